package badger

import (
	"cmp"
	"context"
	"slices"

	"github.com/dgraph-io/badger/v4"
	"github.com/faktenforum/checkbot-rag/core"
	"github.com/faktenforum/checkbot-rag/storage"
)

// Stats aggregates claim and chunk counts in one read transaction.
func (s *Store) Stats(ctx context.Context) (*core.Stats, error) {
	stats := &core.Stats{}
	stats.Claims.ByStatus = map[string]int{}
	stats.Chunks.ByType = map[string]int{}
	labels := map[string]int{}
	categories := map[string]int{}

	err := s.backend.View(func(tx *badger.Txn) error {
		err := scanPrefix(tx, []byte(claimPrefix), func(_, val []byte) error {
			record, err := storage.UnmarshalClaim(val)
			if err != nil {
				return err
			}
			stats.Claims.Total++
			stats.Claims.ByStatus[string(record.Status)]++
			countClaim(record, labels, categories)
			return nil
		})
		if err != nil {
			return err
		}

		return scanPrefix(tx, []byte(chunkPrefix), func(_, val []byte) error {
			chunk, err := storage.UnmarshalChunk(val)
			if err != nil {
				return err
			}
			stats.Chunks.Total++
			stats.Chunks.ByType[string(chunk.Type)]++
			if len(chunk.Embedding) > 0 {
				stats.Chunks.Embedded++
			}
			return nil
		})
	})
	if err != nil {
		return nil, err
	}

	stats.RatingLabels = sortedCounts(labels)
	stats.Categories = sortedCounts(categories)
	return stats, nil
}

// ListCategories returns category counts, most frequent first.
func (s *Store) ListCategories(ctx context.Context) ([]core.LabelCount, error) {
	categories := map[string]int{}
	err := s.scanClaims(func(record *core.ClaimRecord) {
		countClaim(record, nil, categories)
	})
	if err != nil {
		return nil, err
	}
	return sortedCounts(categories), nil
}

// ListRatingLabels returns rating label counts, most frequent first.
func (s *Store) ListRatingLabels(ctx context.Context) ([]core.LabelCount, error) {
	labels := map[string]int{}
	err := s.scanClaims(func(record *core.ClaimRecord) {
		countClaim(record, labels, nil)
	})
	if err != nil {
		return nil, err
	}
	return sortedCounts(labels), nil
}

func (s *Store) scanClaims(fn func(*core.ClaimRecord)) error {
	return s.backend.View(func(tx *badger.Txn) error {
		return scanPrefix(tx, []byte(claimPrefix), func(_, val []byte) error {
			record, err := storage.UnmarshalClaim(val)
			if err != nil {
				return err
			}
			fn(record)
			return nil
		})
	})
}

func countClaim(record *core.ClaimRecord, labels, categories map[string]int) {
	if labels != nil && record.RatingLabel != nil && *record.RatingLabel != "" {
		labels[*record.RatingLabel]++
	}
	if categories != nil {
		for _, c := range record.Categories {
			categories[c]++
		}
	}
}

// sortedCounts orders by count descending, then label ascending.
func sortedCounts(counts map[string]int) []core.LabelCount {
	out := make([]core.LabelCount, 0, len(counts))
	for label, n := range counts {
		out = append(out, core.LabelCount{Label: label, Count: n})
	}
	slices.SortFunc(out, func(a, b core.LabelCount) int {
		if c := cmp.Compare(b.Count, a.Count); c != 0 {
			return c
		}
		return cmp.Compare(a.Label, b.Label)
	})
	return out
}
