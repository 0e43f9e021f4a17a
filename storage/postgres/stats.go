package postgres

import (
	"context"

	"github.com/faktenforum/checkbot-rag/core"
	"golang.org/x/sync/errgroup"
)

const (
	ratingLabelCountsSQL = `
		SELECT rating_label, count(*) FROM claims
		WHERE rating_label IS NOT NULL AND rating_label <> ''
		GROUP BY rating_label
		ORDER BY count(*) DESC, rating_label`
	categoryCountsSQL = `
		SELECT category, count(*) FROM claims, unnest(categories) AS category
		GROUP BY category
		ORDER BY count(*) DESC, category`
)

// Stats runs the aggregate queries concurrently.
func (s *Store) Stats(ctx context.Context) (*core.Stats, error) {
	stats := &core.Stats{}
	stats.Claims.ByStatus = map[string]int{}
	stats.Chunks.ByType = map[string]int{}

	g, gctx := errgroup.WithContext(ctx)
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, `SELECT status, count(*) FROM claims GROUP BY status`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var status string
			var n int
			if err := rows.Scan(&status, &n); err != nil {
				return err
			}
			stats.Claims.ByStatus[status] = n
			stats.Claims.Total += n
		}
		return rows.Err()
	})
	g.Go(func() error {
		rows, err := s.pool.Query(gctx, `SELECT chunk_type, count(*), count(embedding) FROM chunks GROUP BY chunk_type`)
		if err != nil {
			return err
		}
		defer rows.Close()
		for rows.Next() {
			var chunkType string
			var n, embedded int
			if err := rows.Scan(&chunkType, &n, &embedded); err != nil {
				return err
			}
			stats.Chunks.ByType[chunkType] = n
			stats.Chunks.Total += n
			stats.Chunks.Embedded += embedded
		}
		return rows.Err()
	})
	g.Go(func() error {
		var err error
		stats.RatingLabels, err = s.labelCounts(gctx, ratingLabelCountsSQL)
		return err
	})
	g.Go(func() error {
		var err error
		stats.Categories, err = s.labelCounts(gctx, categoryCountsSQL)
		return err
	})

	if err := g.Wait(); err != nil {
		return nil, err
	}
	return stats, nil
}

// ListCategories returns category counts, most frequent first.
func (s *Store) ListCategories(ctx context.Context) ([]core.LabelCount, error) {
	return s.labelCounts(ctx, categoryCountsSQL)
}

// ListRatingLabels returns rating label counts, most frequent first.
func (s *Store) ListRatingLabels(ctx context.Context) ([]core.LabelCount, error) {
	return s.labelCounts(ctx, ratingLabelCountsSQL)
}

func (s *Store) labelCounts(ctx context.Context, query string) ([]core.LabelCount, error) {
	rows, err := s.pool.Query(ctx, query)
	if err != nil {
		return nil, err
	}
	defer rows.Close()

	out := []core.LabelCount{}
	for rows.Next() {
		var lc core.LabelCount
		if err := rows.Scan(&lc.Label, &lc.Count); err != nil {
			return nil, err
		}
		out = append(out, lc)
	}
	return out, rows.Err()
}
