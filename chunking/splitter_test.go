package chunking

import (
	"strings"
	"testing"
	"unicode/utf8"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func strPtr(s string) *string { return &s }

func boolPtr(b bool) *bool { return &b }

// sentenceOf returns a sentence of exactly n characters ending in a period.
func sentenceOf(n int, letter string) string {
	return strings.Repeat(letter, n-1) + "."
}

func longFact(sentences, sentenceLen int) string {
	parts := make([]string, sentences)
	for i := range parts {
		parts[i] = sentenceOf(sentenceLen, string(rune('a'+i%26)))
	}
	return strings.Join(parts, " ")
}

func newTestSplitter(t *testing.T, opts ...Option) *Splitter {
	t.Helper()
	s, err := NewSplitter(opts...)
	require.NoError(t, err)
	return s
}

func TestNewSplitter(t *testing.T) {
	t.Run("defaults", func(t *testing.T) {
		s := newTestSplitter(t)
		assert.Equal(t, DefaultMaxChunkChars, s.MaxChunkChars())
	})

	t.Run("rejects non-positive budget", func(t *testing.T) {
		_, err := NewSplitter(WithMaxChunkChars(0))
		assert.ErrorIs(t, err, ErrInvalidBudget)
	})

	t.Run("rejects overlap of one", func(t *testing.T) {
		_, err := NewSplitter(WithOverlapRatio(1))
		assert.ErrorIs(t, err, ErrInvalidOverlap)
	})
}

func TestSplit_Overview(t *testing.T) {
	s := newTestSplitter(t)

	t.Run("labeled lines for present fields", func(t *testing.T) {
		claim := &core.Claim{
			ID:              "c1",
			ShortID:         "FF-7",
			Status:          core.ClaimStatusPublished,
			Synopsis:        strPtr("Der Mond ist aus Käse"),
			RatingSummary:   strPtr("Falsch"),
			RatingLabelName: strPtr("false"),
			ClaimCategories: []core.ClaimCategory{
				{CategoryName: "science", Category: core.CategoryLabel{LabelDe: "Wissenschaft"}},
				{CategoryName: "space", Category: core.CategoryLabel{LabelDe: "Weltraum"}},
			},
		}

		chunks := s.Split(claim)
		require.Len(t, chunks, 1)
		overview := chunks[0]
		assert.Equal(t, core.ChunkTypeOverview, overview.Type)
		assert.Nil(t, overview.FactIndex)
		assert.Equal(t,
			"Behauptung: Der Mond ist aus Käse\n\nBewertung: Falsch\n\nUrteil: false\n\nKategorien: Wissenschaft, Weltraum\n\nID: FF-7",
			overview.Content)
		assert.Equal(t, []string{"science", "space"}, overview.Metadata.Categories)
		assert.Equal(t, "c1", overview.Metadata.ExternalID)
		assert.Equal(t, "published", overview.Metadata.Status)
	})

	t.Run("empty placeholder when nothing to summarise", func(t *testing.T) {
		chunks := s.Split(&core.Claim{ID: "c2"})
		require.Len(t, chunks, 1)
		assert.Equal(t, core.ChunkTypeOverview, chunks[0].Type)
		assert.Empty(t, chunks[0].Content)
	})
}

func TestSplit_FactDetail(t *testing.T) {
	s := newTestSplitter(t)

	claim := &core.Claim{
		ID:       "c1",
		Synopsis: strPtr("x"),
		Facts: []core.Fact{
			{
				ID: "f1", Index: 0, Text: "Fact one.",
				Sources: []core.Source{
					{ID: "s1", Excerpt: strPtr("first excerpt")},
					{ID: "s2", Excerpt: strPtr("hidden"), Publish: boolPtr(false)},
					{ID: "s3", Excerpt: nil},
					{ID: "s4", Excerpt: strPtr("second excerpt")},
				},
			},
			{ID: "f2", Index: 1, Text: "Unpublished fact.", Publish: boolPtr(false)},
			{ID: "f3", Index: 2, Text: "Fact three."},
		},
	}

	chunks := s.Split(claim)
	require.Len(t, chunks, 3)

	assert.Equal(t, core.ChunkTypeFactDetail, chunks[1].Type)
	require.NotNil(t, chunks[1].FactIndex)
	assert.Equal(t, 0, *chunks[1].FactIndex)
	assert.Equal(t, "Fact one.\n\nQuelle: first excerpt\nQuelle: second excerpt", chunks[1].Content)
	assert.Equal(t, core.ChunkTypeFactDetail, chunks[1].Metadata.ChunkType)

	require.NotNil(t, chunks[2].FactIndex)
	assert.Equal(t, 2, *chunks[2].FactIndex)
	assert.Equal(t, "Fact three.", chunks[2].Content)
}

func TestSplit_LongFact(t *testing.T) {
	s := newTestSplitter(t)

	// 150 sentences of 99 characters joined by spaces: 14,999 characters.
	text := longFact(150, 99)
	require.Equal(t, 14999, utf8.RuneCountInString(text))

	chunks := s.Split(&core.Claim{ID: "c1", Facts: []core.Fact{{ID: "f1", Index: 4, Text: text}}})
	facts := chunks[1:]
	require.Len(t, facts, 3)

	for i, c := range facts {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 6000, "chunk %d over budget", i)
		require.NotNil(t, c.FactIndex)
		assert.Equal(t, 4, *c.FactIndex)
	}

	first := []rune(facts[0].Content)
	overlap := strings.TrimLeft(string(first[len(first)-1200:]), " ")
	assert.True(t, strings.HasPrefix(facts[1].Content, overlap), "second chunk must start with the tail of the first")
}

func TestSplit_Deterministic(t *testing.T) {
	s := newTestSplitter(t, WithMaxChunkChars(500))
	claim := &core.Claim{ID: "c1", Synopsis: strPtr("s"), Facts: []core.Fact{{ID: "f", Text: longFact(30, 60)}}}
	assert.Equal(t, s.Split(claim), s.Split(claim))
}

func TestSplit_BudgetHolds(t *testing.T) {
	budgets := []int{120, 250, 1000}
	for _, budget := range budgets {
		s := newTestSplitter(t, WithMaxChunkChars(budget))
		chunks := s.Split(&core.Claim{ID: "c", Facts: []core.Fact{{ID: "f", Text: longFact(80, 37)}}})
		for _, c := range chunks[1:] {
			assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), budget)
		}
	}
}

func TestSplit_OversizedSentence(t *testing.T) {
	s := newTestSplitter(t, WithMaxChunkChars(100))
	giant := sentenceOf(250, "g")
	text := "Short one. " + giant + " Short two."

	chunks := s.Split(&core.Claim{ID: "c", Facts: []core.Fact{{ID: "f", Text: text}}})[1:]
	require.NotEmpty(t, chunks)

	var found bool
	for _, c := range chunks {
		if strings.Contains(c.Content, giant) {
			found = true
		}
	}
	assert.True(t, found, "an over-budget sentence is kept whole")
}

func TestSplit_MultibyteBudget(t *testing.T) {
	s := newTestSplitter(t, WithMaxChunkChars(50))
	text := strings.Repeat("Äöü ßäö üÄÖ. ", 20)
	for _, c := range s.Split(&core.Claim{ID: "c", Facts: []core.Fact{{ID: "f", Text: text}}})[1:] {
		assert.LessOrEqual(t, utf8.RuneCountInString(c.Content), 50)
	}
}

func TestSplitSentences(t *testing.T) {
	tests := []struct {
		name string
		in   string
		want []string
	}{
		{"single", "One sentence.", []string{"One sentence."}},
		{"mixed terminators", "Hi! Really? Yes.", []string{"Hi!", "Really?", "Yes."}},
		{"no space after dot", "Version 1.2 is out. Next", []string{"Version 1.2 is out.", "Next"}},
		{"newline separator", "Line one.\nLine two.", []string{"Line one.", "Line two."}},
		{"collapses whitespace runs", "A.   \n\t B.", []string{"A.", "B."}},
		{"empty", "   ", nil},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, splitSentences(tt.in))
		})
	}
}
