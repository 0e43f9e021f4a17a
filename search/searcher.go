package search

import (
	"context"
	"fmt"
	"log/slog"
	"sort"
	"strings"

	"github.com/faktenforum/checkbot-rag/ai"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
	"golang.org/x/sync/errgroup"
)

const (
	// DefaultLimit is the number of chunks fused into a response when no limit is given.
	DefaultLimit = 10

	// MaxLimit caps the requested limit.
	MaxLimit = 100

	// DefaultOverfetchFactor multiplies the limit to size each candidate list.
	DefaultOverfetchFactor = 3
)

// Searcher runs hybrid searches over stored chunks.
type Searcher struct {
	candidates      storage.CandidateSearcher
	embedder        ai.Embedder
	rrf             RRFOptions
	overfetchFactor int
	language        string
	logger          *slog.Logger
}

// Option configures a Searcher.
type Option func(*Searcher) error

// WithWeights sets the fusion weights of the vector and lexical lists.
func WithWeights(vec, fts float64) Option {
	return func(s *Searcher) error {
		if vec < 0 || fts < 0 {
			return fmt.Errorf("fusion weights must not be negative, got %v and %v", vec, fts)
		}
		s.rrf.WeightVec = vec
		s.rrf.WeightFts = fts
		return nil
	}
}

// WithRRFK sets the rank damping constant k.
func WithRRFK(k float64) Option {
	return func(s *Searcher) error {
		if k <= 0 {
			return fmt.Errorf("rrf k must be positive, got %v", k)
		}
		s.rrf.K = k
		return nil
	}
}

// WithOverfetchFactor sets how many candidates per list are fetched for each result.
func WithOverfetchFactor(n int) Option {
	return func(s *Searcher) error {
		if n < 1 {
			return fmt.Errorf("overfetch factor must be at least 1, got %d", n)
		}
		s.overfetchFactor = n
		return nil
	}
}

// WithLanguage sets the query language used when a request names none.
func WithLanguage(language string) Option {
	return func(s *Searcher) error {
		if err := core.ValidateLanguage(language); err != nil {
			return err
		}
		s.language = language
		return nil
	}
}

// WithLogger sets a custom logger.
// Default is slog.Default().
func WithLogger(logger *slog.Logger) Option {
	return func(s *Searcher) error {
		if logger == nil {
			logger = slog.Default()
		}
		s.logger = logger
		return nil
	}
}

// NewSearcher creates a new searcher.
func NewSearcher(candidates storage.CandidateSearcher, embedder ai.Embedder, opts ...Option) (*Searcher, error) {
	if candidates == nil {
		return nil, ErrCandidateSearcherRequired
	}
	if embedder == nil {
		return nil, ErrEmbedderRequired
	}

	s := &Searcher{
		candidates:      candidates,
		embedder:        embedder,
		rrf:             DefaultRRFOptions(),
		overfetchFactor: DefaultOverfetchFactor,
		language:        "de",
		logger:          slog.Default(),
	}

	// Apply options
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}

	s.logger = s.logger.With("component", "searcher")
	return s, nil
}

// Request describes one search.
type Request struct {
	Query       string
	Limit       int            // DefaultLimit if zero or negative, capped at MaxLimit
	Categories  []string       // any overlap matches
	RatingLabel string         // exact match
	ChunkType   core.ChunkType // empty for all chunk types
	Language    string         // searcher default if empty; must match the lexical index
}

// Search runs a hybrid search.
func (s *Searcher) Search(ctx context.Context, req Request) (*core.SearchResponse, error) {
	return s.SearchWithMonitor(ctx, req, nil)
}

// SearchWithMonitor runs a hybrid search and reports each stage to monitor.
// Any failure fails the whole search; there are no partial results.
func (s *Searcher) SearchWithMonitor(ctx context.Context, req Request, monitor SearchMonitor) (*core.SearchResponse, error) {
	if monitor == nil {
		monitor = &noopMonitor{}
	}

	query := strings.TrimSpace(req.Query)
	if query == "" {
		return nil, ErrEmptyQuery
	}
	language := req.Language
	if language == "" {
		language = s.language
	}
	if err := core.ValidateLanguage(language); err != nil {
		return nil, err
	}
	if cfg, indexed := core.TextSearchConfig(language), s.candidates.TextSearchConfig(); cfg != indexed {
		return nil, fmt.Errorf("%w: %q searches with %s, the index is built with %s", ErrLanguageNotIndexed, language, cfg, indexed)
	}
	filter, err := requestFilter(req)
	if err != nil {
		return nil, err
	}
	limit := req.Limit
	if limit <= 0 {
		limit = DefaultLimit
	}
	limit = min(limit, MaxLimit)
	fetchLimit := limit * s.overfetchFactor

	monitor.Start(query)

	var vector, lexical []core.SearchCandidate
	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		embedding, err := s.embedder.EmbedText(gctx, query)
		if err != nil {
			return fmt.Errorf("embedding query: %w", err)
		}
		vector, err = s.candidates.VectorCandidates(gctx, embedding, filter, fetchLimit)
		if err != nil {
			return fmt.Errorf("vector candidates: %w", err)
		}
		return nil
	})
	g.Go(func() error {
		var err error
		lexical, err = s.candidates.LexicalCandidates(gctx, query, filter, fetchLimit)
		if err != nil {
			return fmt.Errorf("lexical candidates: %w", err)
		}
		return nil
	})
	if err := g.Wait(); err != nil {
		s.logger.Error("search failed", "query", query, "err", err)
		return nil, err
	}
	monitor.AfterVectorSearch(vector)
	monitor.AfterLexicalSearch(lexical)

	ranked := FuseRRF(vector, lexical, s.rrf)
	if len(ranked) > limit {
		ranked = ranked[:limit]
	}
	monitor.AfterFusion(ranked)

	if len(ranked) == 0 {
		resp := &core.SearchResponse{Query: query, Claims: []core.SearchResultClaim{}}
		monitor.Finish(resp)
		return resp, nil
	}

	ids := make([]int64, len(ranked))
	for i, r := range ranked {
		ids[i] = r.ChunkID
	}
	hydrated, err := s.candidates.HydrateChunks(ctx, ids)
	if err != nil {
		s.logger.Error("error hydrating chunks", "chunks", len(ids), "err", err)
		return nil, err
	}
	monitor.AfterHydration(hydrated)

	claims := groupByClaim(ranked, hydrated)
	resp := &core.SearchResponse{Query: query, TotalResults: len(claims), Claims: claims}
	monitor.Finish(resp)

	s.logger.Debug("search complete",
		"query", query,
		"vector", len(vector),
		"lexical", len(lexical),
		"claims", len(claims))
	return resp, nil
}

func requestFilter(req Request) (storage.SearchFilter, error) {
	switch req.ChunkType {
	case "", core.ChunkTypeOverview, core.ChunkTypeFactDetail:
	default:
		return storage.SearchFilter{}, fmt.Errorf("%w: %q", ErrInvalidChunkType, req.ChunkType)
	}
	return storage.SearchFilter{
		ChunkType:   req.ChunkType,
		Categories:  req.Categories,
		RatingLabel: req.RatingLabel,
	}, nil
}

// groupByClaim groups ranked chunks by their claim's external id. A claim
// scores as its best chunk; chunks keep their own fused scores and rank order.
// Chunks missing from hydrated were removed after fusion and are dropped.
func groupByClaim(ranked []core.RankedResult, hydrated map[int64]*core.HydratedChunk) []core.SearchResultClaim {
	claims := make([]core.SearchResultClaim, 0)
	index := make(map[string]int)

	for _, r := range ranked {
		h, ok := hydrated[r.ChunkID]
		if !ok {
			continue
		}
		chunk := core.SearchResultChunk{
			ChunkID:    h.Chunk.ID,
			ClaimID:    h.Chunk.ClaimID,
			ExternalID: h.Claim.ExternalID,
			ShortID:    h.Claim.ShortID,
			ChunkType:  h.Chunk.Type,
			FactIndex:  h.Chunk.FactIndex,
			Content:    h.Chunk.Content,
			Metadata:   h.Chunk.Metadata,
			RRFScore:   r.Score,
			VecScore:   r.VecScore,
			FtsScore:   r.FtsScore,
		}

		i, ok := index[h.Claim.ExternalID]
		if !ok {
			index[h.Claim.ExternalID] = len(claims)
			claims = append(claims, core.SearchResultClaim{
				ExternalID:      h.Claim.ExternalID,
				ShortID:         h.Claim.ShortID,
				Synopsis:        h.Claim.Synopsis,
				RatingLabel:     h.Claim.RatingLabel,
				RatingSummary:   h.Claim.RatingSummary,
				RatingStatement: h.Claim.RatingStatement,
				Categories:      h.Claim.Categories,
				PublishingURL:   h.Claim.PublishingURL,
				PublishingDate:  h.Claim.PublishingDate,
				Status:          h.Claim.Status,
				Language:        h.Claim.Language,
				BestScore:       chunk.RRFScore,
				Chunks:          []core.SearchResultChunk{chunk},
			})
			continue
		}
		claims[i].Chunks = append(claims[i].Chunks, chunk)
		claims[i].BestScore = max(claims[i].BestScore, chunk.RRFScore)
	}

	sort.SliceStable(claims, func(i, j int) bool {
		return claims[i].BestScore > claims[j].BestScore
	})
	return claims
}
