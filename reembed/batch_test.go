package reembed

import (
	"context"
	"errors"
	"fmt"
	"testing"
	"time"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"github.com/faktenforum/checkbot-rag/storage/badger"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

// mockEmbedder for testing
type mockEmbedder struct {
	embedTextsFunc func(ctx context.Context, texts []string) ([][]float32, error)
}

func (m *mockEmbedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	out, err := m.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	return out[0], nil
}

func (m *mockEmbedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if m.embedTextsFunc != nil {
		return m.embedTextsFunc(ctx, texts)
	}
	// Default: unnormalized vectors with magnitude 3
	result := make([][]float32, len(texts))
	for i := range texts {
		result[i] = []float32{1.0, 2.0, 2.0}
	}
	return result, nil
}

// setupTestStore returns an in-memory store holding n claims with one
// overview chunk each, embedded as {1, 0, 0}.
func setupTestStore(t *testing.T, n int) storage.Store {
	t.Helper()
	store, err := badger.NewMemoryStore(badger.WithDimensions(3))
	require.NoError(t, err)
	t.Cleanup(func() { store.Close() })

	ctx := context.Background()
	for i := 0; i < n; i++ {
		id := fmt.Sprintf("claim-%03d", i)
		record := &core.ClaimRecord{ExternalID: id, Status: core.ClaimStatusPublished}
		chunks := []core.Chunk{{
			Type:      core.ChunkTypeOverview,
			Content:   "overview of " + id,
			Embedding: []float32{1, 0, 0},
		}}
		require.NoError(t, store.UpsertClaim(ctx, record, chunks))
	}
	return store
}

// storedChunks reads every chunk back in id order.
func storedChunks(t *testing.T, store storage.Store) []core.Chunk {
	t.Helper()
	var all []core.Chunk
	err := store.ForEachChunkBatch(context.Background(), 50, func(batch []core.Chunk) error {
		all = append(all, batch...)
		return nil
	})
	require.NoError(t, err)
	return all
}

func TestBatchProcessor_Process(t *testing.T) {
	store := setupTestStore(t, 2)
	ctx := context.Background()

	processor := NewBatchProcessor(store, &mockEmbedder{}, 3, 10*time.Millisecond)
	require.NoError(t, processor.Process(ctx, storedChunks(t, store)))

	for _, chunk := range storedChunks(t, store) {
		require.Len(t, chunk.Embedding, 3)
		assert.InDelta(t, 1.0/3, chunk.Embedding[0], 0.001)
		assert.InDelta(t, 2.0/3, chunk.Embedding[1], 0.001)
	}
}

func TestBatchProcessor_EmptyBatch(t *testing.T) {
	store := setupTestStore(t, 0)
	calls := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			calls++
			return nil, nil
		},
	}
	processor := NewBatchProcessor(store, embedder, 3, 10*time.Millisecond)

	require.NoError(t, processor.Process(context.Background(), nil), "empty batch should not error")
	assert.Zero(t, calls)
}

func TestBatchProcessor_EmbeddingError(t *testing.T) {
	store := setupTestStore(t, 1)
	attempts := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			attempts++
			return nil, errors.New("embedding error")
		},
	}
	processor := NewBatchProcessor(store, embedder, 3, time.Millisecond)

	err := processor.Process(context.Background(), storedChunks(t, store))
	require.Error(t, err)
	assert.Contains(t, err.Error(), "embedding error")
	assert.Equal(t, 3, attempts)
}

func TestBatchProcessor_Retry(t *testing.T) {
	store := setupTestStore(t, 1)
	attempts := 0
	embedder := &mockEmbedder{
		embedTextsFunc: func(_ context.Context, texts []string) ([][]float32, error) {
			attempts++
			if attempts < 2 {
				return nil, errors.New("temporary error")
			}
			result := make([][]float32, len(texts))
			for i := range texts {
				result[i] = []float32{0, 0, 1}
			}
			return result, nil
		},
	}
	processor := NewBatchProcessor(store, embedder, 3, time.Millisecond)

	require.NoError(t, processor.Process(context.Background(), storedChunks(t, store)))
	assert.Equal(t, 2, attempts, "should retry on failure")
	assert.Equal(t, []float32{0, 0, 1}, storedChunks(t, store)[0].Embedding)
}

func TestBatchProcessor_CountMismatch(t *testing.T) {
	store := setupTestStore(t, 2)
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{1, 0, 0}}, nil
		},
	}
	processor := NewBatchProcessor(store, embedder, 1, time.Millisecond)

	err := processor.Process(context.Background(), storedChunks(t, store))
	assert.ErrorIs(t, err, ErrEmbeddingCountMismatch)
}

func TestBatchProcessor_WrongDimensions(t *testing.T) {
	store := setupTestStore(t, 1)
	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			return [][]float32{{3, 4}}, nil
		},
	}
	processor := NewBatchProcessor(store, embedder, 1, time.Millisecond)

	err := processor.Process(context.Background(), storedChunks(t, store))
	assert.ErrorIs(t, err, storage.ErrDimensionMismatch)
	assert.Equal(t, []float32{1, 0, 0}, storedChunks(t, store)[0].Embedding, "stored vector unchanged")
}

func TestBatchProcessor_ContextCancellation(t *testing.T) {
	store := setupTestStore(t, 1)
	ctx, cancel := context.WithCancel(context.Background())

	embedder := &mockEmbedder{
		embedTextsFunc: func(context.Context, []string) ([][]float32, error) {
			cancel()
			return nil, errors.New("error")
		},
	}
	processor := NewBatchProcessor(store, embedder, 3, 10*time.Millisecond)

	err := processor.Process(ctx, storedChunks(t, store))
	require.Error(t, err)
	assert.ErrorIs(t, err, context.Canceled)
}
