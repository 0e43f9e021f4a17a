package postgres

import (
	"fmt"
	"strings"

	"github.com/faktenforum/checkbot-rag/storage"
)

// chunkFilterSQL renders f as " AND ..." conditions over chunks c joined to
// claims cl, with placeholders numbered from next. It returns the clause and
// its arguments in placeholder order.
func chunkFilterSQL(f storage.SearchFilter, next int) (string, []any) {
	var conds []string
	var args []any
	if f.ChunkType != "" {
		conds = append(conds, fmt.Sprintf("c.chunk_type = $%d", next))
		args = append(args, string(f.ChunkType))
		next++
	}
	if len(f.Categories) > 0 {
		conds = append(conds, fmt.Sprintf("cl.categories && $%d::text[]", next))
		args = append(args, f.Categories)
		next++
	}
	if f.RatingLabel != "" {
		conds = append(conds, fmt.Sprintf("cl.rating_label = $%d", next))
		args = append(args, f.RatingLabel)
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " AND " + strings.Join(conds, " AND "), args
}

// claimFilterSQL renders f as a WHERE clause over claims cl.
func claimFilterSQL(f storage.ClaimFilter) (string, []any) {
	var conds []string
	var args []any
	if f.Status != "" {
		args = append(args, f.Status)
		conds = append(conds, fmt.Sprintf("cl.status = $%d", len(args)))
	}
	if f.RatingLabel != "" {
		args = append(args, f.RatingLabel)
		conds = append(conds, fmt.Sprintf("cl.rating_label = $%d", len(args)))
	}
	if f.Category != "" {
		args = append(args, f.Category)
		conds = append(conds, fmt.Sprintf("$%d = ANY(cl.categories)", len(args)))
	}
	if len(conds) == 0 {
		return "", nil
	}
	return " WHERE " + strings.Join(conds, " AND "), args
}
