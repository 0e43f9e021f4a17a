// Package mock provides a test double for ai.Embedder.
//
// MockEmbedder returns deterministic unit vectors derived from a hash of the
// text, so the same text always maps to the same vector and tests run without
// an embedding provider.
//
// # Usage in Tests
//
//	embedder := mock.NewMockEmbedder()
//	vector, err := embedder.EmbedText(ctx, "test")
//
//	// Custom behavior injection
//	embedder.EmbedTextsFunc = func(ctx context.Context, texts []string) ([][]float32, error) {
//	    return nil, errors.New("provider down")
//	}
//
//	// Check call counts
//	count := embedder.CallCount()
package mock
