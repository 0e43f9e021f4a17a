package main

import (
	"fmt"
	"io"

	checkbotrag "github.com/faktenforum/checkbot-rag"
	"github.com/faktenforum/checkbot-rag/reembed"
	"github.com/urfave/cli/v2"
)

func reembedCommand(c *cli.Context) error {
	reembedConfig := &reembed.Config{
		BatchSize:      c.Int("batch-size"),
		ReportInterval: c.Int("report-interval"),
		MaxRetries:     c.Int("max-retries"),
		RetryDelay:     c.Duration("retry-delay"),
	}

	if reembedConfig.BatchSize < 0 {
		return fmt.Errorf("batch-size must not be negative")
	}
	if reembedConfig.ReportInterval <= 0 {
		return fmt.Errorf("report-interval must be greater than 0")
	}
	if reembedConfig.MaxRetries <= 0 {
		return fmt.Errorf("max-retries must be greater than 0")
	}

	return withDatabase(c, func(db *checkbotrag.Database) error {
		if reembedConfig.BatchSize == 0 {
			reembedConfig.BatchSize = db.Config().Embedding.BatchSize
		}

		reembedder, err := db.NewReembedder(reembedConfig, c.App.ErrWriter)
		if err != nil {
			return err
		}

		cfg := db.Config()
		fmt.Fprintf(c.App.ErrWriter, "Store: %s\n", cfg.Store.Backend)
		fmt.Fprintf(c.App.ErrWriter, "Embedding host: %s\n", cfg.Embedding.BaseURL)
		fmt.Fprintf(c.App.ErrWriter, "Embedding model: %s (%d dimensions)\n", cfg.Embedding.Model, cfg.Embedding.Dimensions)
		fmt.Fprintln(c.App.ErrWriter)

		result, err := reembedder.Run(c.Context)
		if err != nil {
			if result != nil {
				return fmt.Errorf("reembedding failed after %d chunks: %w", result.Chunks, err)
			}
			return fmt.Errorf("reembedding failed: %w", err)
		}
		return render(c, result, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Reembedded %d chunks in %s\n", result.Chunks, result.Elapsed)
			return err
		})
	})
}

// migrateCommand relies on Open preparing the schema.
func migrateCommand(c *cli.Context) error {
	return withDatabase(c, func(db *checkbotrag.Database) error {
		cfg := db.Config()
		summary := map[string]any{
			"store":      cfg.Store.Backend,
			"dimensions": cfg.Embedding.Dimensions,
			"textSearch": cfg.TextSearchConfig(),
		}
		return render(c, summary, func(w io.Writer) error {
			_, err := fmt.Fprintf(w, "Schema ready (%s, %d dimensions, text search %s)\n",
				cfg.Store.Backend, cfg.Embedding.Dimensions, cfg.TextSearchConfig())
			return err
		})
	})
}
