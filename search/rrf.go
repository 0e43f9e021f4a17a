package search

import (
	"sort"

	"github.com/faktenforum/checkbot-rag/core"
)

// DefaultRRFK is the rank damping constant.
const DefaultRRFK = 60

// RRFOptions weights the two candidate lists in the fusion.
type RRFOptions struct {
	WeightVec float64
	WeightFts float64
	K         float64
}

// DefaultRRFOptions weights both lists equally with k = 60.
func DefaultRRFOptions() RRFOptions {
	return RRFOptions{WeightVec: 1, WeightFts: 1, K: DefaultRRFK}
}

// RRFScore returns the fused score for 1-based ranks. A nil rank contributes nothing.
func RRFScore(vecRank, ftsRank *int, opts RRFOptions) float64 {
	var score float64
	if vecRank != nil {
		score += opts.WeightVec / (opts.K + float64(*vecRank))
	}
	if ftsRank != nil {
		score += opts.WeightFts / (opts.K + float64(*ftsRank))
	}
	return score
}

// MergeCandidates combines the two lists by chunk id. The result holds every
// vector candidate in its order, followed by the lexical-only candidates in theirs.
func MergeCandidates(vector, lexical []core.SearchCandidate) []core.SearchCandidate {
	merged := make([]core.SearchCandidate, 0, len(vector)+len(lexical))
	index := make(map[int64]int, len(vector)+len(lexical))

	for _, c := range vector {
		if _, dup := index[c.ChunkID]; dup {
			continue
		}
		index[c.ChunkID] = len(merged)
		merged = append(merged, core.SearchCandidate{ChunkID: c.ChunkID, VecScore: c.VecScore})
	}
	for _, c := range lexical {
		if i, ok := index[c.ChunkID]; ok {
			if merged[i].FtsScore == nil {
				merged[i].FtsScore = c.FtsScore
			}
			continue
		}
		index[c.ChunkID] = len(merged)
		merged = append(merged, core.SearchCandidate{ChunkID: c.ChunkID, FtsScore: c.FtsScore})
	}
	return merged
}

// FuseRRF merges the two lists and sorts the result by fused score. A
// candidate's rank in each list is its position in that list as returned, so
// ties inside one list keep the order that list's backend chose. Equal fused
// scores keep merged order.
func FuseRRF(vector, lexical []core.SearchCandidate, opts RRFOptions) []core.RankedResult {
	vecRanks := listRanks(vector)
	ftsRanks := listRanks(lexical)

	merged := MergeCandidates(vector, lexical)
	results := make([]core.RankedResult, len(merged))
	for i, c := range merged {
		r := core.RankedResult{SearchCandidate: c}
		if rank, ok := vecRanks[c.ChunkID]; ok {
			r.VecRank = &rank
		}
		if rank, ok := ftsRanks[c.ChunkID]; ok {
			r.FtsRank = &rank
		}
		r.Score = RRFScore(r.VecRank, r.FtsRank, opts)
		results[i] = r
	}

	sort.SliceStable(results, func(i, j int) bool {
		return results[i].Score > results[j].Score
	})
	return results
}

// listRanks assigns 1-based ranks by position. Repeated chunk ids keep their first rank.
func listRanks(list []core.SearchCandidate) map[int64]int {
	out := make(map[int64]int, len(list))
	for _, c := range list {
		if _, dup := out[c.ChunkID]; !dup {
			out[c.ChunkID] = len(out) + 1
		}
	}
	return out
}
