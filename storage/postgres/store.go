package postgres

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/jackc/pgx/v5/pgxpool"
	"gorm.io/driver/postgres"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"
)

const defaultDimensions = 1536

// Store implements storage.Store on PostgreSQL with pgvector.
// Claims, chunks and candidate queries go through a pgx pool; import jobs
// are persisted through gorm.
type Store struct {
	pool             *pgxpool.Pool
	db               *gorm.DB
	dimensions       int
	textSearchConfig string
	logger           *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithDimensions sets the embedding column width. Defaults to 1536.
func WithDimensions(dims int) Option {
	return func(s *Store) error {
		if dims <= 0 {
			return fmt.Errorf("dimensions must be positive, got %d", dims)
		}
		s.dimensions = dims
		return nil
	}
}

// WithTextSearchConfig sets the configuration used to build the generated
// fts_vector column. Defaults to "german".
func WithTextSearchConfig(config string) Option {
	return func(s *Store) error {
		if !core.IsTextSearchConfig(config) {
			return fmt.Errorf("%w: text search config %q", core.ErrUnsupportedLanguage, config)
		}
		s.textSearchConfig = config
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Store) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewStore connects to the database at dsn and verifies the connection.
// Call EnsureSchema before first use of a fresh database.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(ctx context.Context, dsn string, opts ...Option) (storage.Store, error) {
	return newStore(ctx, dsn, opts...)
}

func newStore(ctx context.Context, dsn string, opts ...Option) (*Store, error) {
	s := &Store{
		dimensions:       defaultDimensions,
		textSearchConfig: "german",
		logger:           slog.Default(),
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "postgres-store")

	pool, err := pgxpool.New(ctx, dsn)
	if err != nil {
		return nil, fmt.Errorf("failed to create postgres connection pool: %w", err)
	}
	if err := pool.Ping(ctx); err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to ping postgres: %w", err)
	}

	db, err := gorm.Open(postgres.Open(dsn), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Warn),
	})
	if err != nil {
		pool.Close()
		return nil, fmt.Errorf("failed to open gorm session: %w", err)
	}

	s.pool = pool
	s.db = db
	return s, nil
}

// TextSearchConfig names the configuration of the generated fts_vector column.
func (s *Store) TextSearchConfig() string {
	return s.textSearchConfig
}

// Close closes the pool and gorm's connections.
func (s *Store) Close() error {
	s.pool.Close()
	sqlDB, err := s.db.DB()
	if err != nil {
		return err
	}
	return sqlDB.Close()
}

func (s *Store) checkDimensions(vector []float32) error {
	if len(vector) > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, s.dimensions, len(vector))
	}
	return nil
}
