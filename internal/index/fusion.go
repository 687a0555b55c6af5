package index

import (
	"sort"

	"github.com/kailas-cloud/tunedex/internal/domain"
	"github.com/kailas-cloud/tunedex/internal/domain/search"
)

// rrfK is the Reciprocal Rank Fusion constant (standard value from Cormack et al. 2009).
const rrfK = 60

// candidate is a ranked document inside a fusion pass.
type candidate struct {
	result search.Result
}

// fuseRRF merges ranked candidate lists via Reciprocal Rank Fusion.
// score(d) = sum of 1/(k + rank_i(d) + 1) for each list where d appears.
// Documents are deduplicated by ISRC; the first occurrence wins for the
// carried fields. Ties break on ISRC for a stable ordering.
func fuseRRF(lists [][]candidate) []candidate {
	type scored struct {
		cand  candidate
		score float64
	}

	merged := make(map[domain.ISRC]*scored)

	for _, list := range lists {
		for rank, c := range list {
			s := 1.0 / float64(rrfK+rank+1)
			if existing, ok := merged[c.result.ISRC]; ok {
				existing.score += s
			} else {
				merged[c.result.ISRC] = &scored{cand: c, score: s}
			}
		}
	}

	fused := make([]candidate, 0, len(merged))
	for _, s := range merged {
		c := s.cand
		c.result.Score = s.score
		fused = append(fused, c)
	}

	sort.Slice(fused, func(i, j int) bool {
		if fused[i].result.Score != fused[j].result.Score {
			return fused[i].result.Score > fused[j].result.Score
		}
		return fused[i].result.ISRC < fused[j].result.ISRC
	})

	return fused
}
