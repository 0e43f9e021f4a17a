// Copyright 2025 Faktenforum
//
// Licensed under the Apache License, Version 2.0 (the "License");
// you may not use this file except in compliance with the License.
// You may obtain a copy of the License at
//
//     http://www.apache.org/licenses/LICENSE-2.0
//
// Unless required by applicable law or agreed to in writing, software
// distributed under the License is distributed on an "AS IS" BASIS,
// WITHOUT WARRANTIES OR CONDITIONS OF ANY KIND, either express or implied.
// See the License for the specific language governing permissions and
// limitations under the License.

package ai

import (
	"errors"
	"strings"
	"time"
)

// Config holds configuration for the embedding provider.
type Config struct {
	// BaseURL is the base URL of the OpenAI-compatible API.
	// Example: "https://api.scaleway.ai/v1", "https://openrouter.ai/api/v1"
	BaseURL string

	// Model is the embedding model identifier.
	// Example: "qwen3-embedding-8b", "text-embedding-3-small"
	Model string

	// APIKey is sent as a bearer credential.
	APIKey string

	// Dimensions is the vector size requested from the provider.
	// Must match the dimensionality of the stored vectors.
	Dimensions int

	// NativeDimensions is the model's full output size. When Dimensions equals
	// it, no reduction is requested.
	// Default: 4096
	NativeDimensions int

	// BatchSize is the maximum number of texts sent in one request.
	// Default: 32
	BatchSize int

	// MaxAttempts bounds the attempts per request, including the first.
	// Default: 3
	MaxAttempts int

	// RetryDelay is the base delay between attempts; it doubles on each retry.
	// Default: 1s
	RetryDelay time.Duration

	// RequestsPerSecond throttles provider requests, retries included.
	// Zero disables throttling.
	RequestsPerSecond float64

	// Referer and Title are sent as HTTP-Referer and X-Title headers, which
	// some routers require for attribution.
	Referer string
	Title   string
}

// ConfigOption is a functional option for configuring a Config.
type ConfigOption func(*Config)

// WithBaseURL sets the provider base URL.
func WithBaseURL(url string) ConfigOption {
	return func(c *Config) {
		c.BaseURL = url
	}
}

// WithModel sets the embedding model identifier.
func WithModel(model string) ConfigOption {
	return func(c *Config) {
		c.Model = model
	}
}

// WithAPIKey sets the bearer credential.
func WithAPIKey(key string) ConfigOption {
	return func(c *Config) {
		c.APIKey = key
	}
}

// WithDimensions sets the requested vector size.
func WithDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.Dimensions = dims
	}
}

// WithNativeDimensions sets the model's full output size.
func WithNativeDimensions(dims int) ConfigOption {
	return func(c *Config) {
		c.NativeDimensions = dims
	}
}

// WithBatchSize sets the maximum number of texts per request.
func WithBatchSize(size int) ConfigOption {
	return func(c *Config) {
		c.BatchSize = size
	}
}

// WithRetry sets the attempt bound and base delay for provider calls.
func WithRetry(maxAttempts int, baseDelay time.Duration) ConfigOption {
	return func(c *Config) {
		c.MaxAttempts = maxAttempts
		c.RetryDelay = baseDelay
	}
}

// WithRequestsPerSecond throttles provider requests. Zero disables throttling.
func WithRequestsPerSecond(rps float64) ConfigOption {
	return func(c *Config) {
		c.RequestsPerSecond = rps
	}
}

// DefaultConfig returns a Config with the defaults of the hosted Qwen3 embedding model.
func DefaultConfig() *Config {
	return &Config{
		BaseURL:          "https://api.scaleway.ai/v1",
		Model:            "qwen3-embedding-8b",
		Dimensions:       1536,
		NativeDimensions: 4096,
		BatchSize:        32,
		MaxAttempts:      3,
		RetryDelay:       time.Second,
		Referer:          "https://faktenforum.org",
		Title:            "Checkbot RAG",
	}
}

// NewConfig creates a Config with the default values and applies the provided options.
//
// Example:
//
//	cfg := NewConfig(
//	    WithBaseURL("https://openrouter.ai/api/v1"),
//	    WithModel("qwen/qwen3-embedding-8b"),
//	    WithAPIKey(os.Getenv("CHECKBOT_RAG_EMBEDDING_API_KEY")),
//	)
func NewConfig(opts ...ConfigOption) *Config {
	cfg := DefaultConfig()
	for _, opt := range opts {
		opt(cfg)
	}
	return cfg
}

// Normalize ensures the configuration is in a canonical form.
// Trailing slashes are removed from BaseURL so request paths join cleanly.
func (c *Config) Normalize() {
	c.BaseURL = strings.TrimRight(strings.TrimSpace(c.BaseURL), "/")
}

// RequestDimensions returns the dimensions parameter to send, or 0 when the
// provider's native size is wanted and the parameter must be omitted.
func (c *Config) RequestDimensions() int {
	if c.Dimensions == c.NativeDimensions {
		return 0
	}
	return c.Dimensions
}

// Validate checks that the configuration is valid and complete.
// It automatically normalizes the configuration before validation.
func (c *Config) Validate() error {
	c.Normalize()

	if c.BaseURL == "" {
		return errors.New("ai config: BaseURL is required")
	}
	if c.Model == "" {
		return errors.New("ai config: Model is required")
	}
	if c.Dimensions < 0 {
		return errors.New("ai config: Dimensions must not be negative")
	}
	if c.BatchSize < 1 {
		return errors.New("ai config: BatchSize must be greater than 0")
	}
	if c.MaxAttempts < 1 {
		return errors.New("ai config: MaxAttempts must be greater than 0")
	}
	if c.RetryDelay < 0 {
		return errors.New("ai config: RetryDelay must not be negative")
	}
	if c.RequestsPerSecond < 0 {
		return errors.New("ai config: RequestsPerSecond must not be negative")
	}
	return nil
}
