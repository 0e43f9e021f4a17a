// Package config loads checkbot-rag settings from defaults, an optional YAML
// file, a .env file and CHECKBOT_RAG_* environment variables, in increasing
// order of precedence.
package config

import (
	"errors"
	"fmt"
	"io/fs"
	"net"
	"net/url"
	"os"
	"strconv"
	"strings"

	"github.com/faktenforum/checkbot-rag/ai"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/joho/godotenv"
	"gopkg.in/yaml.v3"
)

// EnvPrefix prefixes every environment variable read by Load.
const EnvPrefix = "CHECKBOT_RAG_"

// Store backends.
const (
	BackendPostgres = "postgres"
	BackendBadger   = "badger"
)

// DatabaseConfig holds PostgreSQL connection settings.
type DatabaseConfig struct {
	Host     string `yaml:"host"`
	Port     int    `yaml:"port"`
	Name     string `yaml:"name"`
	User     string `yaml:"user"`
	Password string `yaml:"password"`
	SSLMode  string `yaml:"sslmode"`
}

// StoreConfig selects the storage backend.
type StoreConfig struct {
	Backend    string `yaml:"backend"`
	BadgerPath string `yaml:"badger_path"`
}

// EmbeddingConfig configures the embedding provider.
type EmbeddingConfig struct {
	BaseURL          string `yaml:"base_url"`
	Model            string `yaml:"model"`
	APIKey           string `yaml:"api_key"`
	Dimensions       int    `yaml:"dimensions"`
	NativeDimensions int    `yaml:"native_dimensions"`
	BatchSize        int    `yaml:"batch_size"`

	// RequestsPerSecond throttles provider calls; 0 means unthrottled.
	RequestsPerSecond float64 `yaml:"requests_per_second"`
}

// SearchConfig tunes hybrid search.
type SearchConfig struct {
	WeightVec       float64 `yaml:"weight_vec"`
	WeightFts       float64 `yaml:"weight_fts"`
	RRFK            float64 `yaml:"rrf_k"`
	OverfetchFactor int     `yaml:"overfetch_factor"`
	Language        string  `yaml:"language"`
}

// ChunkingConfig tunes the splitter.
type ChunkingConfig struct {
	MaxChunkChars int `yaml:"max_chunk_chars"`
}

// ImportConfig tunes the importer.
type ImportConfig struct {
	PoolSize int `yaml:"pool_size"`
}

// Config is the root configuration.
type Config struct {
	Store     StoreConfig     `yaml:"store"`
	Database  DatabaseConfig  `yaml:"database"`
	Embedding EmbeddingConfig `yaml:"embedding"`
	Search    SearchConfig    `yaml:"search"`
	Chunking  ChunkingConfig  `yaml:"chunking"`
	Import    ImportConfig    `yaml:"import"`
}

// Default returns the built-in configuration.
func Default() *Config {
	embedding := ai.DefaultConfig()
	return &Config{
		Store: StoreConfig{
			Backend:    BackendPostgres,
			BadgerPath: "data/checkbot-rag",
		},
		Database: DatabaseConfig{
			Host:    "localhost",
			Port:    5432,
			Name:    "checkbot_rag",
			User:    "postgres",
			SSLMode: "disable",
		},
		Embedding: EmbeddingConfig{
			BaseURL:          embedding.BaseURL,
			Model:            embedding.Model,
			Dimensions:       embedding.Dimensions,
			NativeDimensions: embedding.NativeDimensions,
			BatchSize:        embedding.BatchSize,
		},
		Search: SearchConfig{
			WeightVec:       1,
			WeightFts:       1,
			RRFK:            60,
			OverfetchFactor: 3,
			Language:        "de",
		},
		Chunking: ChunkingConfig{MaxChunkChars: 6000},
		Import:   ImportConfig{PoolSize: 2},
	}
}

// Load builds the configuration. A .env file in the working directory is
// loaded first if present; it never overrides variables already set. The
// YAML file named by CHECKBOT_RAG_CONFIG, if any, is then applied over the
// defaults, and finally individual environment variables.
func Load() (*Config, error) {
	return LoadFile("")
}

// LoadFile is Load with an explicit YAML file. An empty path falls back to
// CHECKBOT_RAG_CONFIG.
func LoadFile(path string) (*Config, error) {
	if err := godotenv.Load(); err != nil && !errors.Is(err, fs.ErrNotExist) {
		return nil, fmt.Errorf("loading .env: %w", err)
	}

	cfg := Default()
	if path == "" {
		path = os.Getenv(EnvPrefix + "CONFIG")
	}
	if path != "" {
		if err := cfg.mergeFile(path); err != nil {
			return nil, err
		}
	}
	if err := cfg.applyEnv(os.LookupEnv); err != nil {
		return nil, err
	}
	if err := cfg.Validate(); err != nil {
		return nil, err
	}
	return cfg, nil
}

// mergeFile overlays the YAML file at path. Keys absent from the file keep their values.
func (c *Config) mergeFile(path string) error {
	data, err := os.ReadFile(path)
	if err != nil {
		return fmt.Errorf("reading config file: %w", err)
	}
	if err := yaml.Unmarshal(data, c); err != nil {
		return fmt.Errorf("parsing config file %s: %w", path, err)
	}
	return nil
}

type envBinding struct {
	name  string
	apply func(string) error
}

func (c *Config) bindings() []envBinding {
	return []envBinding{
		{"DB_HOST", setString(&c.Database.Host)},
		{"DB_PORT", setInt(&c.Database.Port)},
		{"DB_NAME", setString(&c.Database.Name)},
		{"DB_USER", setString(&c.Database.User)},
		{"DB_PASSWORD", setString(&c.Database.Password)},
		{"DB_SSLMODE", setString(&c.Database.SSLMode)},
		{"STORE", setString(&c.Store.Backend)},
		{"BADGER_PATH", setString(&c.Store.BadgerPath)},
		{"EMBEDDING_MODEL", setString(&c.Embedding.Model)},
		{"EMBEDDING_API_KEY", setString(&c.Embedding.APIKey)},
		{"EMBEDDING_BASE_URL", setString(&c.Embedding.BaseURL)},
		{"EMBEDDING_DIMENSIONS", setInt(&c.Embedding.Dimensions)},
		{"EMBEDDING_NATIVE_DIMENSIONS", setInt(&c.Embedding.NativeDimensions)},
		{"EMBEDDING_BATCH_SIZE", setInt(&c.Embedding.BatchSize)},
		{"EMBEDDING_REQUESTS_PER_SECOND", setFloat(&c.Embedding.RequestsPerSecond)},
		{"SEARCH_WEIGHT_VEC", setFloat(&c.Search.WeightVec)},
		{"SEARCH_WEIGHT_FTS", setFloat(&c.Search.WeightFts)},
		{"SEARCH_RRF_K", setFloat(&c.Search.RRFK)},
		{"SEARCH_OVERFETCH_FACTOR", setInt(&c.Search.OverfetchFactor)},
		{"SEARCH_LANGUAGE", setString(&c.Search.Language)},
		{"CHUNKING_MAX_CHUNK_CHARS", setInt(&c.Chunking.MaxChunkChars)},
		{"IMPORT_POOL_SIZE", setInt(&c.Import.PoolSize)},
	}
}

// applyEnv overrides fields from the variables lookup finds. Every malformed value is reported.
func (c *Config) applyEnv(lookup func(string) (string, bool)) error {
	var errs []error
	for _, b := range c.bindings() {
		value, ok := lookup(EnvPrefix + b.name)
		if !ok {
			continue
		}
		if err := b.apply(strings.TrimSpace(value)); err != nil {
			errs = append(errs, fmt.Errorf("%s%s: %w", EnvPrefix, b.name, err))
		}
	}
	return errors.Join(errs...)
}

func setString(dst *string) func(string) error {
	return func(v string) error {
		*dst = v
		return nil
	}
}

func setInt(dst *int) func(string) error {
	return func(v string) error {
		n, err := strconv.Atoi(v)
		if err != nil {
			return err
		}
		*dst = n
		return nil
	}
}

func setFloat(dst *float64) func(string) error {
	return func(v string) error {
		f, err := strconv.ParseFloat(v, 64)
		if err != nil {
			return err
		}
		*dst = f
		return nil
	}
}

// Validate reports every invalid setting at once.
func (c *Config) Validate() error {
	var errs []error
	check := func(ok bool, format string, args ...any) {
		if !ok {
			errs = append(errs, fmt.Errorf(format, args...))
		}
	}

	switch c.Store.Backend {
	case BackendPostgres:
		check(c.Database.Host != "", "database host is required")
		check(c.Database.Port > 0 && c.Database.Port < 65536, "database port %d out of range", c.Database.Port)
		check(c.Database.Name != "", "database name is required")
	case BackendBadger:
		check(c.Store.BadgerPath != "", "badger path is required")
	default:
		errs = append(errs, fmt.Errorf("unknown store backend %q", c.Store.Backend))
	}

	check(c.Embedding.Dimensions > 0, "embedding dimensions must be positive, got %d", c.Embedding.Dimensions)
	check(c.Embedding.BatchSize > 0, "embedding batch size must be positive, got %d", c.Embedding.BatchSize)
	check(c.Embedding.RequestsPerSecond >= 0, "embedding requests per second must not be negative")
	check(c.Search.WeightVec >= 0 && c.Search.WeightFts >= 0, "search weights must not be negative")
	check(c.Search.RRFK > 0, "search rrf k must be positive, got %v", c.Search.RRFK)
	check(c.Search.OverfetchFactor >= 1, "search overfetch factor must be at least 1, got %d", c.Search.OverfetchFactor)
	check(c.Chunking.MaxChunkChars > 0, "max chunk chars must be positive, got %d", c.Chunking.MaxChunkChars)
	check(c.Import.PoolSize > 0, "import pool size must be positive, got %d", c.Import.PoolSize)
	if err := core.ValidateLanguage(c.Search.Language); err != nil {
		errs = append(errs, fmt.Errorf("search language: %w", err))
	}

	return errors.Join(errs...)
}

// DSN returns the PostgreSQL connection URL.
func (c *Config) DSN() string {
	u := url.URL{
		Scheme:   "postgres",
		Host:     net.JoinHostPort(c.Database.Host, strconv.Itoa(c.Database.Port)),
		Path:     "/" + c.Database.Name,
		RawQuery: url.Values{"sslmode": {c.Database.SSLMode}}.Encode(),
	}
	if c.Database.Password != "" {
		u.User = url.UserPassword(c.Database.User, c.Database.Password)
	} else if c.Database.User != "" {
		u.User = url.User(c.Database.User)
	}
	return u.String()
}

// AI returns the embedding provider configuration.
func (c *Config) AI() *ai.Config {
	return ai.NewConfig(
		ai.WithBaseURL(c.Embedding.BaseURL),
		ai.WithModel(c.Embedding.Model),
		ai.WithAPIKey(c.Embedding.APIKey),
		ai.WithDimensions(c.Embedding.Dimensions),
		ai.WithNativeDimensions(c.Embedding.NativeDimensions),
		ai.WithBatchSize(c.Embedding.BatchSize),
		ai.WithRequestsPerSecond(c.Embedding.RequestsPerSecond),
	)
}

// TextSearchConfig returns the full-text configuration for the search language.
func (c *Config) TextSearchConfig() string {
	return core.TextSearchConfig(c.Search.Language)
}
