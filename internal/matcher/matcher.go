// Package matcher pairs recovered functions across two binaries, per
// spec.md §4.7. It mirrors original_source/src/core/differ.cpp's
// MatchFunctions: candidates are restricted to functions sharing a
// fingerprint bucket, scored pairwise, sorted by descending score, and
// accepted greedily one-to-one above a fixed floor.
package matcher

import (
	"sort"

	"github.com/moleium/zydiff/internal/function"
	"github.com/moleium/zydiff/internal/similarity"
)

// acceptFloor is the minimum similarity score a candidate pair needs
// to be accepted as a match (original_source's 0.7 threshold).
const acceptFloor = 0.7

// MatchedFunction pairs a primary function and its best-scoring
// counterpart in the secondary binary.
type MatchedFunction struct {
	PrimaryIndex   int
	SecondaryIndex int
	Score          float64
	DiffDetail     []string
}

// Result is the outcome of matching every primary function against
// every secondary function.
type Result struct {
	Matched            []MatchedFunction
	UnmatchedPrimary   []int
	UnmatchedSecondary []int
}

// candidate is a scored pair awaiting greedy acceptance.
type candidate struct {
	primary, secondary int
	score              float64
	detail             []string
}

// Match compares primary against secondary and returns every accepted
// pairing plus the indices left unmatched on each side.
func Match(primary, secondary []function.Function) Result {
	// Bucket by the fingerprint's hash, not the struct itself: this is
	// the same unordered_map<uint64_t, ...> bucketing
	// original_source/src/core/analyzer.h's fingerprint_hash feeds.
	// Hash collisions land in the same bucket; the Fingerprint equality
	// check below is what actually restricts candidates.
	buckets := make(map[uint64][]int)
	for j, fn := range secondary {
		buckets[fn.Fingerprint.Hash()] = append(buckets[fn.Fingerprint.Hash()], j)
	}

	var candidates []candidate
	for i, pfn := range primary {
		for _, j := range buckets[pfn.Fingerprint.Hash()] {
			if secondary[j].Fingerprint != pfn.Fingerprint {
				continue
			}
			score, detail := similarity.Score(pfn, secondary[j])
			if score > acceptFloor {
				candidates = append(candidates, candidate{primary: i, secondary: j, score: score, detail: detail})
			}
		}
	}

	sort.Slice(candidates, func(a, b int) bool {
		if candidates[a].score != candidates[b].score {
			return candidates[a].score > candidates[b].score
		}
		if candidates[a].primary != candidates[b].primary {
			return candidates[a].primary < candidates[b].primary
		}
		return candidates[a].secondary < candidates[b].secondary
	})

	usedPrimary := make(map[int]bool)
	usedSecondary := make(map[int]bool)
	var result Result

	for _, c := range candidates {
		if usedPrimary[c.primary] || usedSecondary[c.secondary] {
			continue
		}
		usedPrimary[c.primary] = true
		usedSecondary[c.secondary] = true
		result.Matched = append(result.Matched, MatchedFunction{
			PrimaryIndex:   c.primary,
			SecondaryIndex: c.secondary,
			Score:          c.score,
			DiffDetail:     c.detail,
		})
	}

	for i := range primary {
		if !usedPrimary[i] {
			result.UnmatchedPrimary = append(result.UnmatchedPrimary, i)
		}
	}
	for j := range secondary {
		if !usedSecondary[j] {
			result.UnmatchedSecondary = append(result.UnmatchedSecondary, j)
		}
	}

	return result
}
