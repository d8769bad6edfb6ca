// Package cache memoizes external lookups (sentence embeddings) in a bounded
// memory layer, optionally backed by a disk layer.
package cache

import (
	"crypto/sha256"
	"encoding/hex"
	"strings"
	"time"

	"github.com/ppiankov/siance/internal/model"
)

// Cache defines the interface for caching
type Cache interface {
	Get(key string) ([]byte, bool)
	Set(key string, value []byte, ttl time.Duration) error
	Delete(key string) error
	Clear() error
}

// Key derives a cache key from a namespace and the parts of a lookup. Parts
// are separated by a NUL byte so ("ab","c") and ("a","bc") differ.
func Key(namespace string, parts ...string) string {
	hash := sha256.Sum256([]byte(strings.Join(parts, "\x00")))
	return "siance:v1:" + namespace + ":" + hex.EncodeToString(hash[:])
}

// EmbeddingKey is the key of the vector of one sentence under one model
func EmbeddingKey(embeddingModel, sentence string) string {
	return Key("embedding", embeddingModel, sentence)
}

// New builds the cache described by cfg: nil when disabled, memory only
// when no directory is set, memory over disk otherwise
func New(cfg model.CacheConfig) Cache {
	if !cfg.Enabled {
		return nil
	}
	memory := NewMemoryCache(cfg.MemoryTTL, 10*time.Minute, cfg.MaxItems)
	if cfg.Dir == "" {
		return memory
	}
	return NewLayeredCache(memory, NewDiskCache(cfg.Dir, cfg.DiskTTL))
}
