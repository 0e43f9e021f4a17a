package storage

import "github.com/faktenforum/checkbot-rag/core"

const (
	DefaultPageLimit = 20
	MaxPageLimit     = 100
)

// SearchFilter restricts candidate retrieval. Zero values match everything.
type SearchFilter struct {
	ChunkType   core.ChunkType
	Categories  []string // any overlap with the claim's categories
	RatingLabel string
}

// Matches reports whether a chunk passes the filter, using the claim fields
// mirrored into its metadata. Backends that filter in SQL must agree with it.
func (f SearchFilter) Matches(chunk *core.Chunk) bool {
	if f.ChunkType != "" && chunk.Type != f.ChunkType {
		return false
	}
	label := chunk.Metadata.RatingLabel
	if f.RatingLabel != "" && (label == nil || *label != f.RatingLabel) {
		return false
	}
	if len(f.Categories) > 0 && !overlaps(f.Categories, chunk.Metadata.Categories) {
		return false
	}
	return true
}

// ClaimFilter selects one page of a claim listing.
type ClaimFilter struct {
	Page        int
	Limit       int
	RatingLabel string
	Category    string
	Status      string
}

// Normalize clamps Page and Limit into range.
func (f ClaimFilter) Normalize() ClaimFilter {
	if f.Page < 1 {
		f.Page = 1
	}
	if f.Limit <= 0 {
		f.Limit = DefaultPageLimit
	}
	if f.Limit > MaxPageLimit {
		f.Limit = MaxPageLimit
	}
	return f
}

// Offset is the number of rows before the page.
func (f ClaimFilter) Offset() int {
	return (f.Page - 1) * f.Limit
}

// Matches reports whether a claim passes the filter.
func (f ClaimFilter) Matches(claim *core.ClaimRecord) bool {
	if f.Status != "" && string(claim.Status) != f.Status {
		return false
	}
	if f.RatingLabel != "" && (claim.RatingLabel == nil || *claim.RatingLabel != f.RatingLabel) {
		return false
	}
	if f.Category != "" && !overlaps([]string{f.Category}, claim.Categories) {
		return false
	}
	return true
}

// NewClaimPage builds a page descriptor for total matching claims.
func NewClaimPage(f ClaimFilter, data []*core.ClaimRecord, total int) *core.ClaimPage {
	pages := 0
	if f.Limit > 0 {
		pages = (total + f.Limit - 1) / f.Limit
	}
	if data == nil {
		data = []*core.ClaimRecord{}
	}
	return &core.ClaimPage{Data: data, Total: total, Page: f.Page, Limit: f.Limit, Pages: pages}
}

func overlaps(want, have []string) bool {
	for _, w := range want {
		for _, h := range have {
			if w == h {
				return true
			}
		}
	}
	return false
}
