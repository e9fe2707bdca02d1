package similarity

import (
	"fmt"

	"github.com/moleium/zydiff/internal/function"
)

// blockMatchFloor is the minimum block similarity ratio that counts
// toward a function's overall score (original_source/differ.cpp's
// 0.5 threshold).
const blockMatchFloor = 0.5

// repairFloor is the ratio below which a positionally-aligned block
// pair is considered misaligned and a better partner is searched for
// elsewhere in the secondary function (original_source's 0.3
// threshold).
const repairFloor = 0.3

// Score compares two functions block-by-block and returns their
// overall similarity (0..1) together with human-readable diff detail
// for every aligned pair that isn't a perfect match.
//
// Blocks are aligned positionally by index over the first
// min(|primary.Blocks|, |secondary.Blocks|) of them, mirroring
// original_source/src/core/differ.cpp's CalculateFunctionSimilarity:
// this is a structural, not semantic, alignment, so a single inserted
// block shifts every later pairing. Any extra blocks on the longer
// side past that point are ignored by the score entirely — they
// surface only indirectly, through the matcher's fallback to treating
// the whole function as unmatched. The repair search below recovers
// from the worst cases of misalignment without permanently realigning
// anything. The overall score is the mean block similarity ratio over
// every pair that clears blockMatchFloor, not a count of matched pairs
// over the wider side's block count — a function that matches on
// every compared block but each only partially still scores below
// 1.0.
func Score(primary, secondary function.Function) (float64, []string) {
	n := len(primary.Blocks)
	m := len(secondary.Blocks)
	width := n
	if m < width {
		width = m
	}
	if width == 0 {
		return 1.0, nil
	}

	var total float64
	compared := 0
	var detail []string

	for i := 0; i < width; i++ {
		pBlock := primary.Blocks[i]
		sBlock := secondary.Blocks[i]

		ratio := blockSimilarity(pBlock, sBlock)
		if ratio < repairFloor {
			if best, ok := repair(pBlock, secondary.Blocks); ok && best > ratio {
				ratio = best
			}
		}

		if ratio > blockMatchFloor {
			total += ratio
			compared++
			if ratio < 1.0 {
				detail = append(detail, formatBlockDiff(i, pBlock, sBlock)...)
			}
		}
	}

	if compared == 0 {
		return 0.0, detail
	}
	return total / float64(compared), detail
}

// blockSimilarity scores a single aligned block pair by Levenshtein
// ratio over instruction text: 1 - distance/max(len1, len2). Two
// absent blocks (both zero-length) are treated as identical.
func blockSimilarity(a, b function.BasicBlock) float64 {
	la, lb := len(a.Instructions), len(b.Instructions)
	if la == 0 && lb == 0 {
		return 1.0
	}
	maxLen := la
	if lb > maxLen {
		maxLen = lb
	}
	dist := Levenshtein(a.Instructions, b.Instructions)
	return 1.0 - float64(dist)/float64(maxLen)
}

// repair searches every block of candidates for the one that best
// matches target, without altering the caller's positional alignment —
// it only reports the best ratio found, for scoring purposes.
func repair(target function.BasicBlock, candidates []function.BasicBlock) (float64, bool) {
	best := 0.0
	found := false
	for _, c := range candidates {
		ratio := blockSimilarity(target, c)
		if !found || ratio > best {
			best = ratio
			found = true
		}
	}
	return best, found
}

// formatBlockDiff renders the removed/added instructions of one aligned
// block pair, mirroring original_source/differ.cpp's "Removed:"/"Added:"
// sections — one line per instruction, in the order
// similarity.InstructionDifferences reports them, removed before added.
func formatBlockDiff(index int, p, s function.BasicBlock) []string {
	removed, added := InstructionDifferences(p.Instructions, s.Instructions)
	var lines []string
	for _, instr := range removed {
		lines = append(lines, fmt.Sprintf("block %d: -%s", index, instr))
	}
	for _, instr := range added {
		lines = append(lines, fmt.Sprintf("block %d: +%s", index, instr))
	}
	return lines
}
