package embed

import (
	"context"
	"encoding/json"
	"errors"
	"math"
	"net/http"
	"net/http/httptest"
	"sync/atomic"
	"testing"
	"time"

	"github.com/sashabaranov/go-openai"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ppiankov/siance/internal/cache"
	"github.com/ppiankov/siance/internal/logging"
)

func TestNewProvider(t *testing.T) {
	p, err := NewProvider(Config{})
	require.NoError(t, err)
	assert.Nil(t, p)

	p, err = NewProvider(Config{Provider: "Hashing", Dimensions: 16})
	require.NoError(t, err)
	assert.Equal(t, "hashing-16", p.Model())

	_, err = NewProvider(Config{Provider: "openai"})
	assert.Error(t, err, "API key is required")

	_, err = NewProvider(Config{Provider: "anthropic"})
	assert.Error(t, err)
}

func TestOpenAIProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		assert.Equal(t, "/embeddings", r.URL.Path)
		assert.Equal(t, "Bearer test-key", r.Header.Get("Authorization"))

		var req struct {
			Input []string `json:"input"`
			Model string   `json:"model"`
		}
		require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
		assert.Equal(t, "text-embedding-3-small", req.Model)

		// answered out of order on purpose
		resp := openai.EmbeddingResponse{
			Object: "list",
			Data: []openai.Embedding{
				{Object: "embedding", Index: 1, Embedding: []float32{0, 1}},
				{Object: "embedding", Index: 0, Embedding: []float32{1, 0}},
			},
		}
		_ = json.NewEncoder(w).Encode(resp)
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	require.NoError(t, err)

	vecs, err := p.Embed(context.Background(), []string{"premier", "second"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1, 0}, {0, 1}}, vecs)
}

func TestOpenAIProvider_APIError(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusInternalServerError)
		_, _ = w.Write([]byte(`{"error": {"message": "Internal Server Error", "type": "server_error"}}`))
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Config{APIKey: "test-key", BaseURL: server.URL, Timeout: 5})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"x"})
	assert.Error(t, err)
}

func TestOpenAIProvider_WrongCount(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		_ = json.NewEncoder(w).Encode(openai.EmbeddingResponse{
			Data: []openai.Embedding{{Index: 0, Embedding: []float32{1}}},
		})
	}))
	defer server.Close()

	p, err := NewOpenAIProvider(Config{APIKey: "k", BaseURL: server.URL})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a", "b"})
	assert.ErrorIs(t, err, ErrBadResponse)
}

func TestOllamaProvider_Embed(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/api/tags":
			w.WriteHeader(http.StatusOK)
		case "/api/embed":
			var req ollamaEmbedRequest
			require.NoError(t, json.NewDecoder(r.Body).Decode(&req))
			assert.Equal(t, "nomic-embed-text", req.Model)
			out := ollamaEmbedResponse{Model: req.Model}
			for i := range req.Input {
				out.Embeddings = append(out.Embeddings, []float64{float64(i), 1})
			}
			_ = json.NewEncoder(w).Encode(out)
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL + "/", Model: "nomic-embed-text", Timeout: 5})
	require.NoError(t, err)
	assert.True(t, p.IsAvailable(context.Background()))

	vecs, err := p.Embed(context.Background(), []string{"a", "b", "c"})
	require.NoError(t, err)
	require.Len(t, vecs, 3)
	assert.Equal(t, []float64{2, 1}, vecs[2])
}

func TestOllamaProvider_ErrorBody(t *testing.T) {
	server := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
		_, _ = w.Write([]byte(`{"error":"model \"nope\" not found"}`))
	}))
	defer server.Close()

	p, err := NewOllamaProvider(Config{BaseURL: server.URL, Model: "nope"})
	require.NoError(t, err)

	_, err = p.Embed(context.Background(), []string{"a"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "not found")
	assert.False(t, p.IsAvailable(context.Background()))
}

func TestOllamaProvider_RequiresModel(t *testing.T) {
	_, err := NewOllamaProvider(Config{})
	assert.Error(t, err)
}

func TestHashingProvider(t *testing.T) {
	p := NewHashingProvider(64)
	vecs, err := p.Embed(context.Background(), []string{
		"Je vous demande de corriger l'écart.",
		"JE VOUS DEMANDE DE CORRIGER L'ECART.",
		"",
	})
	require.NoError(t, err)
	require.Len(t, vecs, 3)

	assert.Equal(t, vecs[0], vecs[1], "folding makes case and accents irrelevant")
	var norm float64
	for _, v := range vecs[0] {
		norm += v * v
	}
	assert.InDelta(t, 1.0, math.Sqrt(norm), 1e-9)
	assert.Equal(t, make([]float64, 64), vecs[2])
}

// countingProvider answers with the text length and records calls
type countingProvider struct {
	calls   atomic.Int32
	texts   atomic.Int32
	failFor int32
}

func (p *countingProvider) Name() string                     { return "counting" }
func (p *countingProvider) Model() string                    { return "len-v1" }
func (p *countingProvider) IsAvailable(context.Context) bool { return true }

func (p *countingProvider) Embed(_ context.Context, texts []string) ([][]float64, error) {
	n := p.calls.Add(1)
	if n <= p.failFor {
		return nil, errors.New("service unavailable")
	}
	p.texts.Add(int32(len(texts)))
	out := make([][]float64, len(texts))
	for i, t := range texts {
		out[i] = []float64{float64(len(t))}
	}
	return out, nil
}

type recordingLimiter struct{ keys []string }

func (l *recordingLimiter) Wait(_ context.Context, key string) error {
	l.keys = append(l.keys, key)
	return nil
}

func TestCached_DeduplicatesBatchesAndMemoizes(t *testing.T) {
	inner := &countingProvider{}
	mem := cache.NewMemoryCache(time.Minute, time.Minute, 0)
	limiter := &recordingLimiter{}
	c := NewCached(inner, mem, limiter, Options{BatchSize: 2}, logging.Nop())

	vecs, err := c.Embed(context.Background(), []string{"a", "bb", "a", "ccc"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{1}, {2}, {1}, {3}}, vecs)
	assert.EqualValues(t, 2, inner.calls.Load(), "three distinct texts in batches of two")
	assert.EqualValues(t, 3, inner.texts.Load())
	assert.Equal(t, []string{"counting", "counting"}, limiter.keys)

	vecs, err = c.Embed(context.Background(), []string{"ccc", "a"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{3}, {1}}, vecs)
	assert.EqualValues(t, 2, inner.calls.Load(), "second call served from cache")

	_, ok := mem.Get(cache.EmbeddingKey("len-v1", "bb"))
	assert.True(t, ok)
}

func TestCached_Retries(t *testing.T) {
	inner := &countingProvider{failFor: 2}
	rec := logging.NewRecorder()
	c := NewCached(inner, nil, nil, Options{MaxRetries: 2, Backoff: time.Millisecond}, rec)

	vecs, err := c.Embed(context.Background(), []string{"abcd"})
	require.NoError(t, err)
	assert.Equal(t, [][]float64{{4}}, vecs)
	assert.EqualValues(t, 3, inner.calls.Load())
	assert.Equal(t, 2, rec.Count("warn"))
}

func TestCached_RetriesExhausted(t *testing.T) {
	inner := &countingProvider{failFor: 10}
	c := NewCached(inner, nil, nil, Options{MaxRetries: 1, Backoff: time.Millisecond}, nil)

	_, err := c.Embed(context.Background(), []string{"abcd"})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "exhausted 1 retries")
	assert.EqualValues(t, 2, inner.calls.Load())
}

func TestCached_Empty(t *testing.T) {
	inner := &countingProvider{}
	c := NewCached(inner, nil, nil, Options{}, nil)

	vecs, err := c.Embed(context.Background(), nil)
	require.NoError(t, err)
	assert.Empty(t, vecs)
	assert.EqualValues(t, 0, inner.calls.Load())
}
