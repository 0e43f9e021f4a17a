package search

import (
	"log/slog"

	"github.com/faktenforum/checkbot-rag/core"
)

// SearchMonitor provides hooks to observe the search process.
// Implement this interface to track intermediate steps and results during search.
// Hooks are called sequentially from the goroutine running the search.
type SearchMonitor interface {
	Start(query string)
	AfterVectorSearch(candidates []core.SearchCandidate)
	AfterLexicalSearch(candidates []core.SearchCandidate)
	AfterFusion(ranked []core.RankedResult)
	AfterHydration(chunks map[int64]*core.HydratedChunk)
	Finish(response *core.SearchResponse)
}

// noopMonitor is a no-op implementation of SearchMonitor
type noopMonitor struct{}

var _ SearchMonitor = (*noopMonitor)(nil)

func (n *noopMonitor) Start(_ string)                                {}
func (n *noopMonitor) AfterVectorSearch(_ []core.SearchCandidate)    {}
func (n *noopMonitor) AfterLexicalSearch(_ []core.SearchCandidate)   {}
func (n *noopMonitor) AfterFusion(_ []core.RankedResult)             {}
func (n *noopMonitor) AfterHydration(_ map[int64]*core.HydratedChunk) {}
func (n *noopMonitor) Finish(_ *core.SearchResponse)                 {}

// LogMonitor reports each search stage at debug level.
type LogMonitor struct {
	logger *slog.Logger
}

var _ SearchMonitor = (*LogMonitor)(nil)

// NewLogMonitor creates a monitor writing to logger, or slog.Default() if nil.
func NewLogMonitor(logger *slog.Logger) *LogMonitor {
	if logger == nil {
		logger = slog.Default()
	}
	return &LogMonitor{logger: logger.With("component", "search-monitor")}
}

func (m *LogMonitor) Start(query string) {
	m.logger.Debug("search started", "query", query)
}

func (m *LogMonitor) AfterVectorSearch(candidates []core.SearchCandidate) {
	m.logger.Debug("vector candidates", "count", len(candidates))
}

func (m *LogMonitor) AfterLexicalSearch(candidates []core.SearchCandidate) {
	m.logger.Debug("lexical candidates", "count", len(candidates))
}

func (m *LogMonitor) AfterFusion(ranked []core.RankedResult) {
	both := 0
	for _, r := range ranked {
		if r.VecRank != nil && r.FtsRank != nil {
			both++
		}
	}
	m.logger.Debug("fused candidates", "count", len(ranked), "in_both", both)
}

func (m *LogMonitor) AfterHydration(chunks map[int64]*core.HydratedChunk) {
	m.logger.Debug("hydrated chunks", "count", len(chunks))
}

func (m *LogMonitor) Finish(response *core.SearchResponse) {
	m.logger.Debug("search finished", "claims", response.TotalResults)
}
