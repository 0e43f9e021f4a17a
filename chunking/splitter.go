package chunking

import (
	"math"
	"strings"
	"unicode/utf8"

	"github.com/faktenforum/checkbot-rag/core"
)

const (
	// DefaultMaxChunkChars is the default character budget of a fact_detail chunk.
	DefaultMaxChunkChars = 6000

	// DefaultOverlapRatio is the share of the budget carried over between split chunks.
	DefaultOverlapRatio = 0.2
)

// Overview line labels. The corpus is German, so the labels are too.
const (
	labelSynopsis   = "Behauptung: "
	labelSummary    = "Bewertung: "
	labelStatement  = "Einschätzung: "
	labelVerdict    = "Urteil: "
	labelCategories = "Kategorien: "
	labelShortID    = "ID: "
	labelSource     = "Quelle: "
)

// Splitter turns a claim into an ordered list of chunks.
// A Splitter is immutable after construction and safe for concurrent use.
type Splitter struct {
	maxChunkChars int
	overlapRatio  float64
}

// Option configures a Splitter.
type Option func(*Splitter) error

// WithMaxChunkChars sets the character budget for fact_detail chunks.
// Default is DefaultMaxChunkChars.
func WithMaxChunkChars(n int) Option {
	return func(s *Splitter) error {
		if n < 1 {
			return ErrInvalidBudget
		}
		s.maxChunkChars = n
		return nil
	}
}

// WithOverlapRatio sets the fraction of the budget seeded into each follow-up chunk.
// Default is DefaultOverlapRatio.
func WithOverlapRatio(r float64) Option {
	return func(s *Splitter) error {
		if r < 0 || r >= 1 {
			return ErrInvalidOverlap
		}
		s.overlapRatio = r
		return nil
	}
}

// NewSplitter creates a Splitter.
func NewSplitter(opts ...Option) (*Splitter, error) {
	s := &Splitter{
		maxChunkChars: DefaultMaxChunkChars,
		overlapRatio:  DefaultOverlapRatio,
	}
	for _, opt := range opts {
		if err := opt(s); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// MaxChunkChars returns the configured character budget.
func (s *Splitter) MaxChunkChars() int {
	return s.maxChunkChars
}

// Split produces the chunks of a claim: exactly one overview chunk followed by
// the fact_detail chunks of every publishable fact in input order.
//
// The overview chunk is always present. When the claim has none of the
// summarised fields its content is empty; it still anchors the claim's
// metadata in the index.
func (s *Splitter) Split(claim *core.Claim) []core.Chunk {
	meta := baseMetadata(claim)

	chunks := make([]core.Chunk, 0, 1+len(claim.Facts))
	chunks = append(chunks, overviewChunk(claim, meta))

	for i := range claim.Facts {
		fact := &claim.Facts[i]
		if !fact.Publishable() {
			continue
		}
		chunks = append(chunks, s.factChunks(fact, meta)...)
	}
	return chunks
}

func baseMetadata(claim *core.Claim) core.ChunkMetadata {
	return core.ChunkMetadata{
		ClaimID:        claim.ID,
		ExternalID:     claim.ID,
		ShortID:        claim.ShortID,
		ChunkType:      core.ChunkTypeOverview,
		RatingLabel:    claim.RatingLabelName,
		Categories:     claim.CategoryNames(),
		PublishingDate: claim.CreatedAt,
		PublishingURL:  claim.PublishingURL,
		Status:         string(claim.Status),
	}
}

func overviewChunk(claim *core.Claim, meta core.ChunkMetadata) core.Chunk {
	var parts []string
	add := func(label string, value *string) {
		if value != nil && *value != "" {
			parts = append(parts, label+*value)
		}
	}
	add(labelSynopsis, claim.Synopsis)
	add(labelSummary, claim.RatingSummary)
	add(labelStatement, claim.RatingStatement)
	add(labelVerdict, claim.RatingLabelName)

	labels := make([]string, 0, len(claim.ClaimCategories))
	for _, cc := range claim.ClaimCategories {
		if cc.Category.LabelDe != "" {
			labels = append(labels, cc.Category.LabelDe)
		}
	}
	if len(labels) > 0 {
		parts = append(parts, labelCategories+strings.Join(labels, ", "))
	}
	if claim.ShortID != "" {
		parts = append(parts, labelShortID+claim.ShortID)
	}

	return core.Chunk{
		Type:     core.ChunkTypeOverview,
		Content:  strings.Join(parts, "\n\n"),
		Metadata: meta,
	}
}

func (s *Splitter) factChunks(fact *core.Fact, meta core.ChunkMetadata) []core.Chunk {
	var excerpts []string
	for i := range fact.Sources {
		src := &fact.Sources[i]
		if src.Publishable() && src.Excerpt != nil && *src.Excerpt != "" {
			excerpts = append(excerpts, labelSource+*src.Excerpt)
		}
	}

	content := fact.Text
	if len(excerpts) > 0 {
		content += "\n\n" + strings.Join(excerpts, "\n")
	}

	meta.ChunkType = core.ChunkTypeFactDetail
	meta.FactIndex = intPtr(fact.Index)

	var pieces []string
	if utf8.RuneCountInString(content) <= s.maxChunkChars {
		pieces = []string{content}
	} else {
		pieces = s.pack(splitSentences(content))
	}

	chunks := make([]core.Chunk, 0, len(pieces))
	for _, p := range pieces {
		chunks = append(chunks, core.Chunk{
			Type:      core.ChunkTypeFactDetail,
			FactIndex: intPtr(fact.Index),
			Content:   p,
			Metadata:  meta,
		})
	}
	return chunks
}

// pack greedily fills chunks with whole sentences. Every chunk after the
// first starts with the tail of its predecessor.
func (s *Splitter) pack(sentences []string) []string {
	var (
		out     []string
		current string
		curLen  int
	)
	for _, sentence := range sentences {
		sLen := utf8.RuneCountInString(sentence)
		switch {
		case current == "":
			current, curLen = sentence, sLen
		case curLen+1+sLen > s.maxChunkChars:
			out = append(out, strings.TrimSpace(current))
			current = s.seed(current, sentence, sLen)
			curLen = utf8.RuneCountInString(current)
		default:
			current += " " + sentence
			curLen += 1 + sLen
		}
	}
	if strings.TrimSpace(current) != "" {
		out = append(out, strings.TrimSpace(current))
	}
	return out
}

// seed starts a new chunk with the trailing overlap of prev followed by sentence.
// The overlap shrinks when the sentence would otherwise push the chunk over budget.
func (s *Splitter) seed(prev, sentence string, sentenceLen int) string {
	n := int(math.Floor(float64(s.maxChunkChars) * s.overlapRatio))
	if room := s.maxChunkChars - 1 - sentenceLen; n > room {
		n = room
	}
	tail := strings.TrimLeftFunc(lastRunes(strings.TrimSpace(prev), n), isSpace)
	if tail == "" {
		return sentence
	}
	return tail + " " + sentence
}

func lastRunes(s string, n int) string {
	if n <= 0 {
		return ""
	}
	count := utf8.RuneCountInString(s)
	if count <= n {
		return s
	}
	skip := count - n
	for i := range s {
		if skip == 0 {
			return s[i:]
		}
		skip--
	}
	return ""
}

func intPtr(v int) *int {
	return &v
}
