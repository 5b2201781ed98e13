package catalog

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/hrygo/automl/ai/core/errclass"
)

func newTestClient(t *testing.T, h http.HandlerFunc) *Client {
	t.Helper()
	srv := httptest.NewServer(h)
	t.Cleanup(srv.Close)

	c, err := NewClient(Config{BaseURL: srv.URL + "/api/v1/", Username: "user", Key: "secret"})
	require.NoError(t, err)
	return c
}

func TestNewClient_RequiresCredentials(t *testing.T) {
	_, err := NewClient(Config{Username: "user"})
	assert.ErrorIs(t, err, errclass.ErrConfiguration)

	_, err = NewClient(Config{Key: "secret"})
	assert.ErrorIs(t, err, errclass.ErrConfiguration)

	c, err := NewClient(Config{Username: "user", Key: "secret", RequestsPerSecond: 5})
	require.NoError(t, err)
	assert.Equal(t, DefaultBaseURL, c.baseURL)
	assert.NotNil(t, c.limiter)
}

func TestClient_Metadata(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		user, key, ok := r.BasicAuth()
		if !ok || user != "user" || key != "secret" {
			w.WriteHeader(http.StatusUnauthorized)
			return
		}
		assert.Equal(t, "/api/v1/datasets/view/mirichoi0218/insurance", r.URL.Path)
		_, _ = w.Write([]byte(`{"ref":"mirichoi0218/insurance","title":"Medical Cost Personal Datasets",
			"subtitle":"Insurance Forecast","description":"charges by age and bmi","totalBytes":16425}`))
	})

	meta, err := c.Metadata(context.Background(), "mirichoi0218/insurance")
	require.NoError(t, err)
	assert.Equal(t, "Medical Cost Personal Datasets", meta.Title)
	assert.Equal(t, int64(16425), meta.TotalBytes)
	assert.Equal(t, "charges by age and bmi", meta.Summary())
}

func TestClient_MetadataErrors(t *testing.T) {
	tests := []struct {
		name      string
		status    int
		body      string
		ref       string
		retryable bool
		target    error
	}{
		{"server error", http.StatusBadGateway, "", "a/b", true, errclass.ErrTransient},
		{"rate limited", http.StatusTooManyRequests, "", "a/b", true, errclass.ErrTransient},
		{"empty body", http.StatusOK, " ", "a/b", true, errclass.ErrEmptyResult},
		{"missing title", http.StatusOK, `{"ref":"a/b"}`, "a/b", false, errclass.ErrParse},
		{"malformed", http.StatusOK, `{"ref":`, "a/b", false, errclass.ErrParse},
		{"not found", http.StatusNotFound, `{"message":"not found"}`, "a/b", false, nil},
		{"bad ref", http.StatusOK, "", "medical", false, nil},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
				w.WriteHeader(tt.status)
				_, _ = w.Write([]byte(tt.body))
			})

			_, err := c.Metadata(context.Background(), tt.ref)
			require.Error(t, err)
			assert.Equal(t, tt.retryable, errclass.IsRetryable(err))
			if tt.target != nil {
				assert.ErrorIs(t, err, tt.target)
			}
		})
	}
}

func TestClient_StatusErrorIsInspectable(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		http.Error(w, "forbidden", http.StatusForbidden)
	})

	_, err := c.Download(context.Background(), "a/b")
	var statusErr *StatusError
	require.True(t, errors.As(err, &statusErr))
	assert.Equal(t, http.StatusForbidden, statusErr.Code)
	assert.Equal(t, "download", statusErr.Op)
}

func TestClient_Download(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets/download/a/b", r.URL.Path)
		_, _ = w.Write([]byte("x,y\n1,2\n"))
	})

	data, err := c.Download(context.Background(), "a/b")
	require.NoError(t, err)
	assert.Equal(t, "x,y\n1,2\n", string(data))
}

func TestClient_DownloadLimits(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/datasets/download/a/empty" {
			return
		}
		_, _ = w.Write(make([]byte, 64))
	}))
	defer srv.Close()

	c, err := NewClient(Config{BaseURL: srv.URL, Username: "u", Key: "k", MaxDownloadBytes: 32})
	require.NoError(t, err)

	_, err = c.Download(context.Background(), "a/big")
	assert.ErrorContains(t, err, "exceeds 32 bytes")

	_, err = c.Download(context.Background(), "a/empty")
	assert.ErrorIs(t, err, errclass.ErrEmptyResult)
}

func TestClient_Search(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/api/v1/datasets/list", r.URL.Path)
		assert.Equal(t, "titanic survival", r.URL.Query().Get("search"))
		_, _ = w.Write([]byte(`[{"ref":"c/titanic","title":"Titanic"},{"ref":"d/titanic2","title":"Titanic v2"}]`))
	})

	hits, err := c.Search(context.Background(), "titanic survival")
	require.NoError(t, err)
	require.Len(t, hits, 2)
	assert.Equal(t, "c/titanic", hits[0].Ref)

	_, err = c.Search(context.Background(), "  ")
	assert.Error(t, err)
}

func TestClient_SearchDropsInvalidHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"title":"no ref"},{"ref":"c/titanic","title":"Titanic"},{"ref":"d/untitled"}]`))
	})

	hits, err := c.Search(context.Background(), "titanic")
	require.NoError(t, err)
	require.Len(t, hits, 1)
	assert.Equal(t, "c/titanic", hits[0].Ref)
}

func TestClient_SearchAllHitsInvalid(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[{"title":"no ref"},{"ref":"d/untitled"}]`))
	})

	_, err := c.Search(context.Background(), "titanic")
	assert.ErrorIs(t, err, errclass.ErrParse)
}

func TestClient_SearchNoHits(t *testing.T) {
	c := newTestClient(t, func(w http.ResponseWriter, r *http.Request) {
		_, _ = w.Write([]byte(`[]`))
	})

	hits, err := c.Search(context.Background(), "titanic")
	require.NoError(t, err)
	assert.Empty(t, hits)
}

func TestClient_Unreachable(t *testing.T) {
	srv := httptest.NewServer(http.NotFoundHandler())
	url := srv.URL
	srv.Close()

	c, err := NewClient(Config{BaseURL: url, Username: "u", Key: "k"})
	require.NoError(t, err)

	_, err = c.Metadata(context.Background(), "a/b")
	require.Error(t, err)
	assert.True(t, errclass.IsRetryable(err))
}
