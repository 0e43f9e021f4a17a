package storage

import (
	"testing"

	"github.com/faktenforum/checkbot-rag/core"
	"github.com/stretchr/testify/assert"
)

func TestSearchFilterMatches(t *testing.T) {
	label := "Falsch"
	chunk := &core.Chunk{
		Type:     core.ChunkTypeFactDetail,
		Metadata: core.ChunkMetadata{RatingLabel: &label, Categories: []string{"health", "politics"}},
	}

	tests := []struct {
		name   string
		filter SearchFilter
		want   bool
	}{
		{"empty filter", SearchFilter{}, true},
		{"chunk type match", SearchFilter{ChunkType: core.ChunkTypeFactDetail}, true},
		{"chunk type mismatch", SearchFilter{ChunkType: core.ChunkTypeOverview}, false},
		{"rating label match", SearchFilter{RatingLabel: "Falsch"}, true},
		{"rating label mismatch", SearchFilter{RatingLabel: "Richtig"}, false},
		{"any category overlaps", SearchFilter{Categories: []string{"sports", "politics"}}, true},
		{"no category overlaps", SearchFilter{Categories: []string{"sports"}}, false},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, tt.filter.Matches(chunk))
		})
	}

	t.Run("missing label never matches a label filter", func(t *testing.T) {
		assert.False(t, SearchFilter{RatingLabel: "Falsch"}.Matches(&core.Chunk{}))
	})
}

func TestClaimFilterNormalize(t *testing.T) {
	f := ClaimFilter{}.Normalize()
	assert.Equal(t, 1, f.Page)
	assert.Equal(t, DefaultPageLimit, f.Limit)
	assert.Equal(t, 0, f.Offset())

	f = ClaimFilter{Page: 3, Limit: 500}.Normalize()
	assert.Equal(t, MaxPageLimit, f.Limit)
	assert.Equal(t, 200, f.Offset())
}

func TestNewClaimPage(t *testing.T) {
	page := NewClaimPage(ClaimFilter{Page: 2, Limit: 20}, nil, 41)
	assert.Equal(t, 3, page.Pages)
	assert.Equal(t, 41, page.Total)
	assert.NotNil(t, page.Data)
}
