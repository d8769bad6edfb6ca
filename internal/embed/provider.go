// Package embed turns sentences into vectors through an external embedding
// service. Providers are interchangeable; Cached adds memoization, batching,
// rate limiting and retries on top of any of them.
package embed

import (
	"context"
	"errors"

	"github.com/ppiankov/siance/internal/model"
)

var (
	// ErrProviderUnavailable is returned when no embedding provider is configured
	ErrProviderUnavailable = errors.New("embedding provider unavailable")
	// ErrBadResponse is returned when the service answers with the wrong number of vectors
	ErrBadResponse = errors.New("embedding service returned a malformed response")
)

// Provider defines the interface for embedding services
type Provider interface {
	// Name returns the provider name
	Name() string

	// Model returns the embedding model in use; it is part of every cache key
	Model() string

	// Embed returns one vector per input text, in input order
	Embed(ctx context.Context, texts []string) ([][]float64, error)

	// IsAvailable checks if the provider is properly configured and reachable
	IsAvailable(ctx context.Context) bool
}

// Config holds embedding provider configuration
type Config struct {
	// Provider name: "openai", "ollama", "hashing", ""
	Provider string

	Model   string
	APIKey  string
	BaseURL string

	// Timeout in seconds for a single request
	Timeout int

	// Dimensions of the "hashing" provider
	Dimensions int

	HTTPProxy  string
	HTTPSProxy string
}

// ConfigFromModel converts model.Config sections to embed.Config
func ConfigFromModel(cfg *model.Config) Config {
	return Config{
		Provider:   cfg.Embedding.Provider,
		Model:      cfg.Embedding.Model,
		APIKey:     cfg.Embedding.APIKey,
		BaseURL:    cfg.Embedding.BaseURL,
		Timeout:    cfg.Embedding.Timeout,
		Dimensions: cfg.Embedding.Dimensions,
		HTTPProxy:  cfg.Fetch.HTTPProxy,
		HTTPSProxy: cfg.Fetch.HTTPSProxy,
	}
}
