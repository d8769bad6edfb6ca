package model

import (
	"errors"
	"fmt"
	"time"
)

// Config holds the complete runtime configuration
type Config struct {
	Segmentation   SegmentationConfig   `yaml:"segmentation" mapstructure:"segmentation"`
	Classification ClassificationConfig `yaml:"classification" mapstructure:"classification"`
	Embedding      EmbeddingConfig      `yaml:"embedding" mapstructure:"embedding"`
	Cache          CacheConfig          `yaml:"cache" mapstructure:"cache"`
	Concurrency    ConcurrencyConfig    `yaml:"concurrency" mapstructure:"concurrency"`
	RateLimiting   RateLimitConfig      `yaml:"rate_limiting" mapstructure:"rate_limiting"`
	Fetch          FetchConfig          `yaml:"fetch" mapstructure:"fetch"`
	Output         OutputConfig         `yaml:"output" mapstructure:"output"`
	Log            LogConfig            `yaml:"log" mapstructure:"log"`
	Metrics        MetricsConfig        `yaml:"metrics" mapstructure:"metrics"`
}

// SegmentationConfig controls zone and demand extraction
type SegmentationConfig struct {
	NPreviousBlocks    int      `yaml:"n_previous_blocks" mapstructure:"n_previous_blocks"`       // Context paragraphs merged before a demand
	ParagraphMinLength int      `yaml:"paragraph_min_length" mapstructure:"paragraph_min_length"` // Shorter paragraphs are merged
	TriggerPhrases     []string `yaml:"trigger_phrases,omitempty" mapstructure:"trigger_phrases"` // Empty means the built-in phrases
}

// ClassificationConfig controls topic prediction
type ClassificationConfig struct {
	ModelPath         string  `yaml:"model_path" mapstructure:"model_path"`
	LabelsPath        string  `yaml:"labels_path" mapstructure:"labels_path"`
	TopN              int     `yaml:"top_n" mapstructure:"top_n"` // 1 disables the safety net
	MinSentenceLength int     `yaml:"min_sentence_length" mapstructure:"min_sentence_length"`
	DecisionThreshold float64 `yaml:"decision_threshold" mapstructure:"decision_threshold"`
	Estimator         string  `yaml:"estimator" mapstructure:"estimator"` // softmax, centroid
	Epochs            int     `yaml:"epochs" mapstructure:"epochs"`
	LearningRate      float64 `yaml:"learning_rate" mapstructure:"learning_rate"`
	L2                float64 `yaml:"l2" mapstructure:"l2"`
}

// EmbeddingConfig configures the sentence embedding service
type EmbeddingConfig struct {
	Provider   string `yaml:"provider" mapstructure:"provider"` // openai, ollama
	Model      string `yaml:"model" mapstructure:"model"`
	APIKey     string `yaml:"api_key,omitempty" mapstructure:"api_key"`
	BaseURL    string `yaml:"base_url,omitempty" mapstructure:"base_url"`
	Timeout    int    `yaml:"timeout" mapstructure:"timeout"` // seconds
	BatchSize  int    `yaml:"batch_size" mapstructure:"batch_size"`
	MaxRetries int    `yaml:"max_retries" mapstructure:"max_retries"`
	Dimensions int    `yaml:"dimensions,omitempty" mapstructure:"dimensions"` // hashing provider only
}

// CacheConfig configures embedding memoization
type CacheConfig struct {
	Enabled   bool          `yaml:"enabled" mapstructure:"enabled"`
	Dir       string        `yaml:"dir" mapstructure:"dir"`
	MemoryTTL time.Duration `yaml:"memory_ttl" mapstructure:"memory_ttl"`
	DiskTTL   time.Duration `yaml:"disk_ttl" mapstructure:"disk_ttl"`
	MaxItems  int           `yaml:"max_items" mapstructure:"max_items"`
}

// ConcurrencyConfig configures batch processing
type ConcurrencyConfig struct {
	Workers       int           `yaml:"workers" mapstructure:"workers"`
	LetterTimeout time.Duration `yaml:"letter_timeout" mapstructure:"letter_timeout"`
}

// RateLimitConfig limits calls to external services, per service key
type RateLimitConfig struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
	// Services overrides the default rate for one bucket: an embedding
	// provider name (openai, ollama) or a letter page host
	Services map[string]ServiceRate `yaml:"services,omitempty" mapstructure:"services"`
}

// ServiceRate is the rate of one rate-limiting bucket
type ServiceRate struct {
	RequestsPerSecond float64 `yaml:"requests_per_second" mapstructure:"requests_per_second"`
	BurstSize         int     `yaml:"burst_size" mapstructure:"burst_size"`
}

// FetchConfig configures letter page acquisition
type FetchConfig struct {
	Timeout       time.Duration `yaml:"timeout" mapstructure:"timeout"`
	UserAgent     string        `yaml:"user_agent" mapstructure:"user_agent"`
	MaxBodyBytes  int64         `yaml:"max_body_bytes" mapstructure:"max_body_bytes"`
	RespectRobots bool          `yaml:"respect_robots" mapstructure:"respect_robots"`
	HTTPProxy     string        `yaml:"http_proxy,omitempty" mapstructure:"http_proxy"`
	HTTPSProxy    string        `yaml:"https_proxy,omitempty" mapstructure:"https_proxy"`
}

// OutputConfig configures report rendering
type OutputConfig struct {
	Verbose     bool `yaml:"verbose" mapstructure:"verbose"`
	WithContent bool `yaml:"with_content" mapstructure:"with_content"` // Include demand text in reports
}

// LogConfig configures structured logging
type LogConfig struct {
	Level  string `yaml:"level" mapstructure:"level"`   // debug, info, warn, error
	Format string `yaml:"format" mapstructure:"format"` // json, console
}

// MetricsConfig configures the Prometheus endpoint
type MetricsConfig struct {
	Addr string `yaml:"addr,omitempty" mapstructure:"addr"` // Empty disables the endpoint
}

// ErrInvalidConfig is returned by Validate
var ErrInvalidConfig = errors.New("invalid config")

// Validate rejects settings no letter could be processed with
func (c *Config) Validate() error {
	var errs []error
	if c.Segmentation.NPreviousBlocks < 0 {
		errs = append(errs, fmt.Errorf("segmentation.n_previous_blocks must be non-negative, got %d", c.Segmentation.NPreviousBlocks))
	}
	if c.Segmentation.ParagraphMinLength < 0 {
		errs = append(errs, fmt.Errorf("segmentation.paragraph_min_length must be non-negative, got %d", c.Segmentation.ParagraphMinLength))
	}
	if len(errs) == 0 {
		return nil
	}
	return fmt.Errorf("%w: %w", ErrInvalidConfig, errors.Join(errs...))
}

// DefaultConfig returns sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Segmentation: SegmentationConfig{
			NPreviousBlocks:    1,
			ParagraphMinLength: 8,
		},
		Classification: ClassificationConfig{
			TopN:              2,
			MinSentenceLength: 64,
			DecisionThreshold: 0.3,
			Estimator:         "softmax",
			Epochs:            200,
			LearningRate:      0.5,
			L2:                1e-4,
		},
		Embedding: EmbeddingConfig{
			Provider:   "",
			Timeout:    30,
			BatchSize:  64,
			MaxRetries: 3,
		},
		Cache: CacheConfig{
			Enabled:   true,
			Dir:       ".siance-cache",
			MemoryTTL: time.Hour,
			DiskTTL:   30 * 24 * time.Hour,
			MaxItems:  50_000,
		},
		Concurrency: ConcurrencyConfig{
			Workers:       4,
			LetterTimeout: 2 * time.Minute,
		},
		RateLimiting: RateLimitConfig{
			RequestsPerSecond: 5,
			BurstSize:         5,
		},
		Fetch: FetchConfig{
			Timeout:       30 * time.Second,
			UserAgent:     "Siance/0.1 (+https://github.com/ppiankov/siance)",
			MaxBodyBytes:  5_000_000,
			RespectRobots: true,
		},
		Log: LogConfig{
			Level:  "info",
			Format: "console",
		},
	}
}
