package embed

import (
	"fmt"
	"strings"
)

// NewProvider creates an embedding provider based on configuration.
// An empty provider name returns nil, nil (embeddings disabled).
func NewProvider(config Config) (Provider, error) {
	switch strings.ToLower(config.Provider) {
	case "openai":
		return NewOpenAIProvider(config)

	case "ollama":
		return NewOllamaProvider(config)

	case "hashing", "hash":
		return NewHashingProvider(config.Dimensions), nil

	case "":
		return nil, nil

	default:
		return nil, fmt.Errorf("unknown embedding provider: %s (supported: openai, ollama, hashing)", config.Provider)
	}
}
