// Package server hosts the HTTP surface: the v1 REST API, health and metrics.
package server

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"net/http"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/labstack/echo/v4/middleware"

	"github.com/hrygo/automl/ai/metrics"
	"github.com/hrygo/automl/internal/profile"
	apiv1 "github.com/hrygo/automl/server/router/api/v1"
)

type Server struct {
	Profile *profile.Profile

	echoServer *echo.Echo
	httpServer *http.Server
}

// NewServer wires the routes. exporter may be nil, in which case /metrics is not served.
func NewServer(_ context.Context, profile *profile.Profile, runner apiv1.Runner, exporter *metrics.PrometheusExporter) (*Server, error) {
	if runner == nil {
		return nil, fmt.Errorf("server: pipeline runner is required")
	}

	echoServer := echo.New()
	echoServer.HideBanner = true
	echoServer.HidePort = true
	echoServer.Use(middleware.Recover())
	echoServer.Use(middleware.RequestLoggerWithConfig(middleware.RequestLoggerConfig{
		LogMethod:   true,
		LogURI:      true,
		LogStatus:   true,
		LogLatency:  true,
		LogError:    true,
		HandleError: true,
		LogValuesFunc: func(_ echo.Context, v middleware.RequestLoggerValues) error {
			attrs := []any{"method", v.Method, "uri", v.URI, "status", v.Status, "latency_ms", v.Latency.Milliseconds()}
			if v.Error != nil {
				slog.Warn("HTTP request failed", append(attrs, "error", v.Error)...)
				return nil
			}
			slog.Debug("HTTP request", attrs...)
			return nil
		},
	}))

	echoServer.GET("/healthz", func(c echo.Context) error {
		return c.String(http.StatusOK, "Service ready.")
	})

	var tracker apiv1.RunTracker
	if exporter != nil {
		tracker = exporter
		echoServer.GET("/metrics", echo.WrapHandler(exporter.Handler()))
	}

	apiv1.NewAPIV1Service(profile, runner, tracker).RegisterRoutes(echoServer)

	return &Server{
		Profile:    profile,
		echoServer: echoServer,
	}, nil
}

// Handler exposes the router, mainly for tests.
func (s *Server) Handler() http.Handler {
	return s.echoServer
}

// Start listens on the configured address and serves in the background.
func (s *Server) Start(_ context.Context) error {
	addr := net.JoinHostPort(s.Profile.Addr, fmt.Sprint(s.Profile.Port))
	listener, err := net.Listen("tcp", addr)
	if err != nil {
		return fmt.Errorf("listen %s: %w", addr, err)
	}

	s.httpServer = &http.Server{
		Handler:           s.echoServer,
		ReadHeaderTimeout: 10 * time.Second,
	}
	go func() {
		if err := s.httpServer.Serve(listener); err != nil && !errors.Is(err, http.ErrServerClosed) {
			slog.Error("HTTP server stopped", "error", err)
		}
	}()
	slog.Info("HTTP server listening", "addr", listener.Addr().String())
	return nil
}

// Shutdown drains in-flight requests for up to ten seconds.
func (s *Server) Shutdown(ctx context.Context) {
	if s.httpServer == nil {
		return
	}
	ctx, cancel := context.WithTimeout(ctx, 10*time.Second)
	defer cancel()

	slog.Info("server shutting down")
	if err := s.httpServer.Shutdown(ctx); err != nil {
		slog.Error("failed to shutdown server", slog.String("error", err.Error()))
	}
	slog.Info("server stopped properly")
}
