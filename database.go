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

// Package checkbotrag wires storage, embedding, import and search together
// from a single configuration.
package checkbotrag

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/faktenforum/checkbot-rag/ai"
	"github.com/faktenforum/checkbot-rag/ai/openai"
	"github.com/faktenforum/checkbot-rag/chunking"
	"github.com/faktenforum/checkbot-rag/config"
	"github.com/faktenforum/checkbot-rag/ingestion"
	"github.com/faktenforum/checkbot-rag/reembed"
	"github.com/faktenforum/checkbot-rag/search"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/faktenforum/checkbot-rag/storage/badger"
	"github.com/faktenforum/checkbot-rag/storage/postgres"
)

type Database struct {
	config   *config.Config
	store    storage.Store
	embedder ai.Embedder
	splitter *chunking.Splitter
	logger   *slog.Logger
}

// DatabaseOption configures a Database.
type DatabaseOption func(*databaseOptions)

type databaseOptions struct {
	store    storage.Store
	embedder ai.Embedder
	logger   *slog.Logger
}

// WithStore uses an already opened store instead of the configured backend.
// The Database takes ownership and closes it.
func WithStore(store storage.Store) DatabaseOption {
	return func(o *databaseOptions) {
		o.store = store
	}
}

// WithEmbedder replaces the configured embedding provider.
func WithEmbedder(embedder ai.Embedder) DatabaseOption {
	return func(o *databaseOptions) {
		o.embedder = embedder
	}
}

// WithLogger sets the logger handed to every component.
func WithLogger(logger *slog.Logger) DatabaseOption {
	return func(o *databaseOptions) {
		o.logger = logger
	}
}

// Open connects to the configured store, ensures its schema and prepares the
// embedder and splitter.
func Open(ctx context.Context, cfg *config.Config, opts ...DatabaseOption) (*Database, error) {
	if cfg == nil {
		cfg = config.Default()
	}
	if err := cfg.Validate(); err != nil {
		return nil, fmt.Errorf("invalid configuration: %w", err)
	}

	options := &databaseOptions{logger: slog.Default()}
	for _, opt := range opts {
		opt(options)
	}

	splitter, err := chunking.NewSplitter(chunking.WithMaxChunkChars(cfg.Chunking.MaxChunkChars))
	if err != nil {
		return nil, err
	}

	embedder := options.embedder
	if embedder == nil {
		embedder, err = openai.NewEmbedder(cfg.AI(), openai.WithLogger(options.logger))
		if err != nil {
			return nil, fmt.Errorf("failed to create embedder: %w", err)
		}
	}

	store := options.store
	if store == nil {
		store, err = openStore(ctx, cfg, options.logger)
		if err != nil {
			return nil, err
		}
	}

	if err := store.EnsureSchema(ctx); err != nil {
		store.Close()
		return nil, fmt.Errorf("failed to prepare schema: %w", err)
	}

	return &Database{
		config:   cfg,
		store:    store,
		embedder: embedder,
		splitter: splitter,
		logger:   options.logger,
	}, nil
}

func openStore(ctx context.Context, cfg *config.Config, logger *slog.Logger) (storage.Store, error) {
	switch cfg.Store.Backend {
	case config.BackendBadger:
		return badger.NewStore(cfg.Store.BadgerPath,
			badger.WithDimensions(cfg.Embedding.Dimensions),
			badger.WithTextSearchConfig(cfg.TextSearchConfig()),
			badger.WithLogger(logger),
		)
	case config.BackendPostgres:
		return postgres.NewStore(ctx, cfg.DSN(),
			postgres.WithDimensions(cfg.Embedding.Dimensions),
			postgres.WithTextSearchConfig(cfg.TextSearchConfig()),
			postgres.WithLogger(logger),
		)
	default:
		return nil, fmt.Errorf("unknown store backend %q", cfg.Store.Backend)
	}
}

func (db *Database) Close() error {
	if err := db.store.Close(); err != nil {
		db.logger.Error("error closing store", "err", err)
		return err
	}
	return nil
}

func (db *Database) Store() storage.Store {
	return db.store
}

func (db *Database) Embedder() ai.Embedder {
	return db.embedder
}

func (db *Database) Config() *config.Config {
	return db.config
}

// NewImporter creates an importer using the configured pool size and language.
// Later options override the configured ones.
func (db *Database) NewImporter(opts ...ingestion.Option) (*ingestion.Importer, error) {
	base := []ingestion.Option{
		ingestion.WithPoolSize(db.config.Import.PoolSize),
		ingestion.WithLanguage(db.config.Search.Language),
		ingestion.WithLogger(db.logger),
	}
	return ingestion.NewImporter(db.store, db.splitter, db.embedder, append(base, opts...)...)
}

// NewSearcher creates a searcher using the configured fusion settings.
// Later options override the configured ones.
func (db *Database) NewSearcher(opts ...search.Option) (*search.Searcher, error) {
	base := []search.Option{
		search.WithWeights(db.config.Search.WeightVec, db.config.Search.WeightFts),
		search.WithRRFK(db.config.Search.RRFK),
		search.WithOverfetchFactor(db.config.Search.OverfetchFactor),
		search.WithLanguage(db.config.Search.Language),
		search.WithLogger(db.logger),
	}
	return search.NewSearcher(db.store, db.embedder, append(base, opts...)...)
}

// NewReembedder creates a reembedder over the store. A nil cfg uses the
// defaults with the configured embedding batch size. Progress goes to w,
// which may be nil.
func (db *Database) NewReembedder(cfg *reembed.Config, w io.Writer) (*reembed.Reembedder, error) {
	if cfg == nil {
		cfg = reembed.DefaultConfig()
		cfg.BatchSize = db.config.Embedding.BatchSize
	}
	return reembed.NewReembedder(db.store, db.embedder, cfg, w)
}
