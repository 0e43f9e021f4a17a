package checkbotrag

import (
	"context"
	"os"
	"path/filepath"
	"testing"

	"github.com/faktenforum/checkbot-rag/ai/mock"
	"github.com/faktenforum/checkbot-rag/config"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/search"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func badgerConfig(t *testing.T) *config.Config {
	cfg := config.Default()
	cfg.Store.Backend = config.BackendBadger
	cfg.Store.BadgerPath = filepath.Join(t.TempDir(), "test_db")
	cfg.Embedding.Dimensions = mock.DefaultDimensions
	return cfg
}

func TestOpen(t *testing.T) {
	t.Run("opens badger backend", func(t *testing.T) {
		db, err := Open(context.Background(), badgerConfig(t), WithEmbedder(mock.NewMockEmbedder()))
		require.NoError(t, err)
		require.NotNil(t, db)
		defer db.Close()

		assert.NotNil(t, db.Store())
		assert.NotNil(t, db.Embedder())
		assert.NotNil(t, db.splitter)
		assert.NotNil(t, db.logger)
	})

	t.Run("error with invalid path", func(t *testing.T) {
		tmpFile := filepath.Join(t.TempDir(), "not_a_dir")
		require.NoError(t, os.WriteFile(tmpFile, []byte("test"), 0644))

		cfg := badgerConfig(t)
		cfg.Store.BadgerPath = tmpFile
		db, err := Open(context.Background(), cfg, WithEmbedder(mock.NewMockEmbedder()))
		assert.Error(t, err)
		assert.Nil(t, db)
	})

	t.Run("rejects invalid configuration", func(t *testing.T) {
		cfg := badgerConfig(t)
		cfg.Search.RRFK = 0
		db, err := Open(context.Background(), cfg)
		assert.Error(t, err)
		assert.Nil(t, db)
	})
}

func TestDatabase_Close(t *testing.T) {
	db, err := Open(context.Background(), badgerConfig(t), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	assert.NoError(t, db.Close())
}

func TestDatabase_ImportThenSearch(t *testing.T) {
	ctx := context.Background()
	db, err := Open(ctx, badgerConfig(t), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer db.Close()

	importer, err := db.NewImporter()
	require.NoError(t, err)
	defer importer.Release()

	synopsis := "Windräder töten jedes Jahr Millionen Vögel"
	claims := []*core.Claim{{
		ID:       "claim-1",
		ShortID:  "c1",
		Synopsis: &synopsis,
		Status:   core.ClaimStatusPublished,
		Facts: []core.Fact{{
			ID:    "fact-1",
			Index: 1,
			Text:  "Studien zeigen deutlich geringere Zahlen als behauptet.",
		}},
	}}
	jobID, err := importer.Submit(ctx, claims, "test", nil)
	require.NoError(t, err)
	require.NoError(t, importer.Wait(ctx, jobID))

	job, err := importer.Status(ctx, jobID)
	require.NoError(t, err)
	assert.Equal(t, core.JobStatusDone, job.Status)
	assert.Equal(t, 1, job.Processed)

	searcher, err := db.NewSearcher()
	require.NoError(t, err)
	resp, err := searcher.Search(ctx, search.Request{Query: "Vögel"})
	require.NoError(t, err)
	require.Len(t, resp.Claims, 1)
	assert.Equal(t, "claim-1", resp.Claims[0].ExternalID)
}

func TestDatabase_NewReembedder(t *testing.T) {
	db, err := Open(context.Background(), badgerConfig(t), WithEmbedder(mock.NewMockEmbedder()))
	require.NoError(t, err)
	defer db.Close()

	r, err := db.NewReembedder(nil, nil)
	require.NoError(t, err)

	result, err := r.Run(context.Background())
	require.NoError(t, err)
	assert.Zero(t, result.Chunks)
}
