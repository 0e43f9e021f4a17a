package openai

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"time"

	"github.com/faktenforum/checkbot-rag/ai"
	openai "github.com/sashabaranov/go-openai"
	"golang.org/x/time/rate"
)

const defaultRequestTimeout = 2 * time.Minute

// Embedder implements ai.Embedder using an OpenAI-compatible embeddings endpoint.
type Embedder struct {
	client     *openai.Client
	config     *ai.Config
	httpClient *http.Client
	limiter    *rate.Limiter // nil when unthrottled
	logger     *slog.Logger
}

var _ ai.Embedder = (*Embedder)(nil)

// Option configures an Embedder.
type Option func(*Embedder) error

// WithHTTPClient sets the HTTP client used for provider calls.
// Its transport is wrapped to add the attribution headers.
func WithHTTPClient(client *http.Client) Option {
	return func(e *Embedder) error {
		if client == nil {
			client = &http.Client{Timeout: defaultRequestTimeout}
		}
		e.httpClient = client
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(e *Embedder) error {
		if logger == nil {
			logger = slog.Default()
		}
		e.logger = logger.With("component", "openai-embedder")
		return nil
	}
}

// newEmbedder is an internal constructor that returns the concrete type.
func newEmbedder(config *ai.Config, opts ...Option) (*Embedder, error) {
	if config == nil {
		return nil, ErrConfigRequired
	}
	if err := config.Validate(); err != nil {
		return nil, err
	}

	e := &Embedder{
		config:     config,
		httpClient: &http.Client{Timeout: defaultRequestTimeout},
		logger:     slog.Default().With("component", "openai-embedder"),
	}
	for _, opt := range opts {
		if err := opt(e); err != nil {
			return nil, err
		}
	}

	headers := map[string]string{}
	if config.Referer != "" {
		headers["HTTP-Referer"] = config.Referer
	}
	if config.Title != "" {
		headers["X-Title"] = config.Title
	}
	httpClient := *e.httpClient
	httpClient.Transport = newHeaderTransport(httpClient.Transport, headers)

	if config.RequestsPerSecond > 0 {
		e.limiter = rate.NewLimiter(rate.Limit(config.RequestsPerSecond), 1)
	}

	clientConfig := openai.DefaultConfig(config.APIKey)
	clientConfig.BaseURL = config.BaseURL
	clientConfig.HTTPClient = &httpClient
	e.client = openai.NewClientWithConfig(clientConfig)

	return e, nil
}

// NewEmbedder creates a new embedder using the provided configuration.
//
// Returns ai.Embedder interface to enforce abstraction.
func NewEmbedder(config *ai.Config, opts ...Option) (ai.Embedder, error) {
	return newEmbedder(config, opts...)
}

// EmbedText generates a vector embedding for a single text string.
func (e *Embedder) EmbedText(ctx context.Context, text string) ([]float32, error) {
	vectors, err := e.EmbedTexts(ctx, []string{text})
	if err != nil {
		return nil, err
	}
	if len(vectors) == 0 || len(vectors[0]) == 0 {
		return nil, ai.ErrNoEmbedding
	}
	return vectors[0], nil
}

// EmbedTexts splits texts into requests of at most BatchSize inputs, retries
// each request independently and concatenates the results in input order.
func (e *Embedder) EmbedTexts(ctx context.Context, texts []string) ([][]float32, error) {
	if len(texts) == 0 {
		return [][]float32{}, nil
	}

	e.logger.Debug("generating embeddings", "count", len(texts), "batchSize", e.config.BatchSize)

	result := make([][]float32, 0, len(texts))
	for start := 0; start < len(texts); start += e.config.BatchSize {
		end := min(start+e.config.BatchSize, len(texts))
		vectors, err := e.embedBatch(ctx, texts[start:end])
		if err != nil {
			e.logger.Error("failed to generate embeddings", "offset", start, "count", end-start, "err", err)
			return nil, err
		}
		result = append(result, vectors...)
	}
	return result, nil
}

func (e *Embedder) embedBatch(ctx context.Context, texts []string) ([][]float32, error) {
	req := openai.EmbeddingRequest{
		Input:      texts,
		Model:      openai.EmbeddingModel(e.config.Model),
		Dimensions: e.config.RequestDimensions(),
	}

	var vectors [][]float32
	err := ai.RetryWithBackoff(ctx, func() error {
		if e.limiter != nil {
			if err := e.limiter.Wait(ctx); err != nil {
				return ai.Permanent(err)
			}
		}
		resp, err := e.client.CreateEmbeddings(ctx, req)
		if err != nil {
			return fmt.Errorf("embedding request: %w", err)
		}
		vectors, err = orderByIndex(resp.Data, len(texts), e.config.Dimensions)
		return err
	}, e.config.MaxAttempts, e.config.RetryDelay)
	if err != nil {
		return nil, err
	}
	return vectors, nil
}

// orderByIndex places each returned vector at the input position it is tagged
// with. Providers do not guarantee response order.
func orderByIndex(data []openai.Embedding, n, dims int) ([][]float32, error) {
	if len(data) != n {
		return nil, fmt.Errorf("%w: expected %d, got %d", ai.ErrEmbeddingCountMismatch, n, len(data))
	}
	out := make([][]float32, n)
	for _, item := range data {
		if item.Index < 0 || item.Index >= n || out[item.Index] != nil {
			return nil, fmt.Errorf("%w: invalid or duplicate index %d", ai.ErrEmbeddingCountMismatch, item.Index)
		}
		if dims > 0 && len(item.Embedding) != dims {
			return nil, ai.Permanent(fmt.Errorf("%w: expected %d, got %d", ai.ErrDimensionMismatch, dims, len(item.Embedding)))
		}
		out[item.Index] = item.Embedding
	}
	return out, nil
}
