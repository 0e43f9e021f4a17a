package badger

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

// Store implements storage.Store on an embedded BadgerDB.
type Store struct {
	backend          *Backend
	chunkSeq         *badger.Sequence
	dimensions       int
	textSearchConfig string
	logger           *slog.Logger
}

var _ storage.Store = (*Store)(nil)

// Option configures a Store.
type Option func(*Store) error

// WithDimensions makes the store reject embeddings of any other length.
// Zero disables the check.
func WithDimensions(dims int) Option {
	return func(s *Store) error {
		if dims < 0 {
			return fmt.Errorf("dimensions must not be negative, got %d", dims)
		}
		s.dimensions = dims
		return nil
	}
}

// WithTextSearchConfig selects the stop words and stemming of lexical
// scoring. Defaults to "german".
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

// NewStore opens or creates a store in the directory at path.
//
// Returns storage.Store interface to enforce abstraction.
func NewStore(path string, opts ...Option) (storage.Store, error) {
	return openStore(path, false, opts...)
}

func openStore(path string, inMemory bool, opts ...Option) (*Store, error) {
	s := &Store{textSearchConfig: "german", logger: slog.Default()}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	s.logger = s.logger.With("component", "badger-store")

	backend, err := OpenBackend(path, inMemory, s.logger)
	if err != nil {
		return nil, fmt.Errorf("open badger: %w", err)
	}
	seq, err := backend.GetSequence(chunkIDSeq)
	if err != nil {
		backend.Close()
		return nil, err
	}
	s.backend = backend
	s.chunkSeq = seq
	return s, nil
}

// TextSearchConfig names the configuration lexical scoring uses for both
// query and content.
func (s *Store) TextSearchConfig() string {
	return s.textSearchConfig
}

// EnsureSchema is a no-op; key prefixes need no setup.
func (s *Store) EnsureSchema(ctx context.Context) error {
	return nil
}

// Close releases the chunk ID sequence and closes the database.
func (s *Store) Close() error {
	if s.backend.IsClosed() {
		return storage.ErrStorageClosed
	}
	return errors.Join(s.chunkSeq.Release(), s.backend.Close())
}

// nextChunkID draws an ID from the chunk sequence.
func (s *Store) nextChunkID() (int64, error) {
	id, err := s.chunkSeq.Next()
	if err != nil {
		return 0, err
	}
	// BadgerDB sequences can return 0 on first call, so we skip it
	if id == 0 {
		id, err = s.chunkSeq.Next()
		if err != nil {
			return 0, err
		}
	}
	return int64(id), nil
}

func (s *Store) checkDimensions(vector []float32) error {
	if s.dimensions > 0 && len(vector) > 0 && len(vector) != s.dimensions {
		return fmt.Errorf("%w: expected %d, got %d", storage.ErrDimensionMismatch, s.dimensions, len(vector))
	}
	return nil
}

// readValue loads key, returning storage.ErrNotFound if it is absent.
func readValue[T any](tx *badger.Txn, key []byte, decode func([]byte) (T, error)) (T, error) {
	var zero T
	item, err := tx.Get(key)
	if errors.Is(err, badger.ErrKeyNotFound) {
		return zero, storage.ErrNotFound
	}
	if err != nil {
		return zero, err
	}
	var out T
	err = item.Value(func(val []byte) error {
		out, err = decode(val)
		return err
	})
	return out, err
}

// scanPrefix calls fn with the value of every key under prefix.
func scanPrefix(tx *badger.Txn, prefix []byte, fn func(key, val []byte) error) error {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	iter := tx.NewIterator(opts)
	defer iter.Close()

	for iter.Rewind(); iter.Valid(); iter.Next() {
		item := iter.Item()
		key := item.KeyCopy(nil)
		if err := item.Value(func(val []byte) error {
			return fn(key, val)
		}); err != nil {
			return err
		}
	}
	return nil
}

// collectKeys returns copies of every key under prefix without reading values.
func collectKeys(tx *badger.Txn, prefix []byte) [][]byte {
	opts := badger.DefaultIteratorOptions
	opts.Prefix = prefix
	opts.PrefetchValues = false
	iter := tx.NewIterator(opts)
	defer iter.Close()

	var keys [][]byte
	for iter.Rewind(); iter.Valid(); iter.Next() {
		keys = append(keys, iter.Item().KeyCopy(nil))
	}
	return keys
}
