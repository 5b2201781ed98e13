package main

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"os/signal"
	"strings"

	"github.com/joho/godotenv"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"

	"github.com/hrygo/automl/ai/observability/logging"
	"github.com/hrygo/automl/internal/profile"
	"github.com/hrygo/automl/internal/version"
	"github.com/hrygo/automl/server"
)

var (
	rootCmd = &cobra.Command{
		Use:   "automl",
		Short: `A resilient AutoML pipeline: intent classification, dataset acquisition with synthetic fallback, and generated training code.`,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			// Only load .env for direct binary execution (not when running as systemd service)
			if !isRunningAsSystemdService() {
				_ = godotenv.Load()
			}
			_, err := logging.Setup(os.Stderr, viper.GetString("log-format"), viper.GetString("log-level"))
			return err
		},
		SilenceUsage: true,
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	serveCmd = &cobra.Command{
		Use:   "serve",
		Short: "Run the HTTP API (default command)",
		RunE: func(cmd *cobra.Command, _ []string) error {
			return serve(cmd.Context())
		},
	}

	versionCmd = &cobra.Command{
		Use:   "version",
		Short: "Print build information",
		Long:  "Print build information. With --require, fail unless this build is at least the given version.",
		RunE: func(cmd *cobra.Command, _ []string) error {
			info := version.Get()
			fmt.Fprintf(cmd.OutOrStdout(), "automl %s (%s)\n", version.String(), info.GoVersion)
			if info.BuildTime != "" {
				fmt.Fprintf(cmd.OutOrStdout(), "built %s\n", info.BuildTime)
			}

			required, _ := cmd.Flags().GetString("require")
			if required == "" {
				return nil
			}
			if !version.IsValid(required) {
				return fmt.Errorf("--require %q is not a semantic version", required)
			}
			if !version.AtLeast(info.Version, required) {
				return fmt.Errorf("automl %s is older than required %s", info.Version, required)
			}
			return nil
		},
	}
)

func init() {
	viper.SetDefault("mode", "dev")
	viper.SetDefault("port", 28090)
	viper.SetDefault("log-format", "text")
	viper.SetDefault("log-level", "info")

	rootCmd.PersistentFlags().String("mode", "dev", `mode of server, can be "prod" or "dev"`)
	rootCmd.PersistentFlags().String("addr", "", "address of server")
	rootCmd.PersistentFlags().Int("port", 28090, "port of server")
	rootCmd.PersistentFlags().String("config-dir", "", "directory holding YAML tables such as the fallback responses")
	rootCmd.PersistentFlags().String("log-format", "text", `log format, "text" or "json"`)
	rootCmd.PersistentFlags().String("log-level", "info", "log level: debug, info, warn or error")

	for _, key := range []string{"mode", "addr", "port", "config-dir", "log-format", "log-level"} {
		if err := viper.BindPFlag(key, rootCmd.PersistentFlags().Lookup(key)); err != nil {
			panic(err)
		}
	}

	viper.SetEnvPrefix("automl")
	viper.SetEnvKeyReplacer(strings.NewReplacer(".", "_", "-", "_"))
	viper.AutomaticEnv()

	versionCmd.Flags().String("require", "", "minimum acceptable version, e.g. 0.1.0")

	rootCmd.AddCommand(serveCmd, runCmd, synthCmd, versionCmd)
}

// loadProfile builds the process configuration from flags and the environment.
func loadProfile() (*profile.Profile, error) {
	p := &profile.Profile{
		Mode:      viper.GetString("mode"),
		Addr:      viper.GetString("addr"),
		Port:      viper.GetInt("port"),
		ConfigDir: viper.GetString("config-dir"),
		LogFormat: viper.GetString("log-format"),
		LogLevel:  viper.GetString("log-level"),
		Version:   version.String(),
	}
	if err := p.FromEnv(); err != nil {
		return nil, err
	}
	if err := p.Validate(); err != nil {
		return nil, err
	}
	return p, nil
}

func serve(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	instanceProfile, err := loadProfile()
	if err != nil {
		return err
	}

	app, err := buildApp(instanceProfile, false)
	if err != nil {
		return err
	}

	ctx, cancel := context.WithCancel(ctx)
	defer cancel()

	s, err := server.NewServer(ctx, instanceProfile, app.orchestrator, app.exporter)
	if err != nil {
		return err
	}

	c := make(chan os.Signal, 1)
	// Trigger graceful shutdown on SIGINT or SIGTERM.
	signal.Notify(c, terminationSignals...)

	if err := s.Start(ctx); err != nil {
		return err
	}
	printGreetings(instanceProfile)

	go func() {
		<-c
		s.Shutdown(context.Background())
		cancel()
	}()

	// Wait for CTRL-C.
	<-ctx.Done()
	return nil
}

func printGreetings(p *profile.Profile) {
	fmt.Printf("AutoML %s started successfully!\n", p.Version)
	if p.IsDev() {
		fmt.Fprint(os.Stderr, "Development mode is enabled\n")
	}

	host := p.Addr
	if host == "" {
		host = "localhost"
	}
	fmt.Printf("Server running on %s:%d\n", host, p.Port)
	fmt.Printf("Backends: %d configured, live download: %t\n", len(p.Backends), p.EnableLiveDownload)
	if len(p.Backends) == 0 {
		fmt.Fprint(os.Stderr, "No generative backend configured; answers will come from local templates\n")
	}
	slog.Debug("profile loaded", "profile", p.String())
}

// isRunningAsSystemdService detects if the process is running under systemd
func isRunningAsSystemdService() bool {
	return os.Getenv("INVOCATION_ID") != "" || os.Getenv("WATCHDOG_USEC") != ""
}

func main() {
	if err := rootCmd.Execute(); err != nil {
		os.Exit(1)
	}
}
