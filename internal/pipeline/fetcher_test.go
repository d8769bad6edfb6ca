package pipeline

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/siance/internal/model"
)

func testFetchConfig() model.FetchConfig {
	return model.FetchConfig{
		Timeout:      5 * time.Second,
		UserAgent:    "test-agent",
		MaxBodyBytes: 1 << 20,
	}
}

func noSleep(t *testing.T) {
	t.Helper()
	orig := fetchSleepFunc
	fetchSleepFunc = func(time.Duration) {}
	t.Cleanup(func() { fetchSleepFunc = orig })
}

func TestFetchWithRetry_Success(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "test-agent", r.Header.Get("User-Agent"))
		w.Header().Set("Content-Type", "text/html")
		_, _ = fmt.Fprint(w, "<html><body>OK</body></html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testFetchConfig(), nil).FetchWithRetry(context.Background(), server.URL+"/lettres/INSSN-LYO-2021-0640.html")
	require.NoError(t, err)
	assert.Equal(t, "<html><body>OK</body></html>", result.HTML)
	assert.Equal(t, "INSSN-LYO-2021-0640", result.Name)
	assert.Equal(t, "text/html", result.ContentType)
}

func TestFetchWithRetry_TransientThenSuccess(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if attempts.Add(1) <= 2 {
			w.WriteHeader(http.StatusServiceUnavailable)
			return
		}
		_, _ = fmt.Fprint(w, "<html>OK</html>")
	}))
	defer server.Close()

	result, err := NewFetcher(testFetchConfig(), nil).FetchWithRetry(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "<html>OK</html>", result.HTML)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestFetchWithRetry_PermanentFailure(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusNotFound)
	}))
	defer server.Close()

	_, err := NewFetcher(testFetchConfig(), nil).FetchWithRetry(context.Background(), server.URL)
	require.Error(t, err)
	assert.Equal(t, "unexpected status: 404 404 Not Found", err.Error())
	assert.EqualValues(t, 1, attempts.Load(), "404 is not retried")
}

func TestFetchWithRetry_AllRetriesExhausted(t *testing.T) {
	noSleep(t)
	var attempts atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		attempts.Add(1)
		w.WriteHeader(http.StatusTooManyRequests)
	}))
	defer server.Close()

	_, err := NewFetcher(testFetchConfig(), nil).FetchWithRetry(context.Background(), server.URL)
	var status *StatusError
	require.ErrorAs(t, err, &status)
	assert.Equal(t, http.StatusTooManyRequests, status.Code)
	assert.EqualValues(t, 3, attempts.Load())
}

func TestFetch_BodyLimit(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_, _ = fmt.Fprint(w, "0123456789")
	}))
	defer server.Close()

	cfg := testFetchConfig()
	cfg.MaxBodyBytes = 4
	result, err := NewFetcher(cfg, nil).Fetch(context.Background(), server.URL)
	require.NoError(t, err)
	assert.Equal(t, "0123", result.HTML)
}

func TestFetch_RobotsDisallowed(t *testing.T) {
	var pageHits atomic.Int32
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path == "/robots.txt" {
			_, _ = fmt.Fprint(w, "User-agent: *\nDisallow: /\n")
			return
		}
		pageHits.Add(1)
	}))
	defer server.Close()

	cfg := testFetchConfig()
	cfg.RespectRobots = true
	_, err := NewFetcher(cfg, nil).FetchWithRetry(context.Background(), server.URL+"/lettre.html")
	assert.ErrorIs(t, err, ErrDisallowed)
	assert.EqualValues(t, 0, pageHits.Load())
}

type keyLimiter struct{ keys []string }

func (l *keyLimiter) Wait(_ context.Context, key string) error {
	l.keys = append(l.keys, key)
	return nil
}

func TestFetch_UsesLimiter(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	defer server.Close()

	limiter := &keyLimiter{}
	_, err := NewFetcher(testFetchConfig(), limiter).Fetch(context.Background(), server.URL+"/a")
	require.NoError(t, err)
	assert.Equal(t, []string{server.URL + "/a"}, limiter.keys)
}

func TestIsRetryableFetchError(t *testing.T) {
	tests := []struct {
		name      string
		err       error
		retryable bool
	}{
		{"nil", nil, false},
		{"503", &StatusError{Code: 503, Status: "503 Service Unavailable"}, true},
		{"500", &StatusError{Code: 500}, true},
		{"429", &StatusError{Code: 429}, true},
		{"404", &StatusError{Code: 404}, false},
		{"403", &StatusError{Code: 403}, false},
		{"wrapped 502", fmt.Errorf("fetch: %w", &StatusError{Code: 502}), true},
		{"canceled", fmt.Errorf("fetch: %w", context.Canceled), false},
		{"plain", errors.New("read body: unexpected EOF"), false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.retryable, isRetryableFetchError(tt.err))
		})
	}
}

func TestIsRetryableFetchError_ConnectionRefused(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {}))
	url := server.URL
	server.Close()

	_, err := NewFetcher(testFetchConfig(), nil).Fetch(context.Background(), url)
	require.Error(t, err)
	assert.True(t, isRetryableFetchError(err))
}

func TestPageName(t *testing.T) {
	assert.Equal(t, "lettre-2021", pageName("https://example.org/a/lettre-2021.html"))
	assert.Equal(t, "example.org", pageName("https://example.org/"))
}
