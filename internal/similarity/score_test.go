package similarity

import (
	"testing"

	"github.com/moleium/zydiff/internal/function"
)

func TestScoreIdenticalFunctionsIsOne(t *testing.T) {
	blocks := []function.BasicBlock{
		{Start: 0x1000, End: 0x1008, Instructions: []string{"push rbp", "ret"}},
	}
	f := function.New(0x1000, blocks)
	score, detail := Score(f, f)
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0", score)
	}
	if len(detail) != 0 {
		t.Errorf("detail = %v, want none", detail)
	}
}

// TestScoreCompletelyDifferentFunctionsIsLow mirrors
// original_source/differ.cpp's CalculateFunctionSimilarity: diff
// detail is only emitted for blocks that clear blockMatchFloor. A
// block pair too dissimilar to count toward the score at all gets no
// detail either — there's no meaningful correspondence to describe.
func TestScoreCompletelyDifferentFunctionsIsLow(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1004, Instructions: []string{"push rbp", "mov rbp, rsp"}},
	})
	b := function.New(0x2000, []function.BasicBlock{
		{Start: 0x2000, End: 0x2004, Instructions: []string{"xor eax, eax", "ret"}},
	})
	score, detail := Score(a, b)
	if score >= blockMatchFloor {
		t.Errorf("score = %v, want < %v", score, blockMatchFloor)
	}
	if len(detail) != 0 {
		t.Errorf("detail = %v, want none (block never cleared the match floor)", detail)
	}
}

// TestScorePartialBlockSimilarityIsBetweenFloorAndOne covers spec.md
// §8.2's single-instruction-patch scenario: a block that still clears
// blockMatchFloor but isn't a perfect match must score strictly less
// than 1.0, not collapse to 1.0 just because it's the only compared
// block.
func TestScorePartialBlockSimilarityIsBetweenFloorAndOne(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1008, Instructions: []string{"push rbp", "mov rbp, rsp", "sub rsp, 0x20", "ret"}},
	})
	b := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1008, Instructions: []string{"push rbp", "mov rbp, rsp", "sub rsp, 0x30", "ret"}},
	})
	score, detail := Score(a, b)
	if score <= blockMatchFloor || score >= 1.0 {
		t.Errorf("score = %v, want strictly between %v and 1.0", score, blockMatchFloor)
	}
	if len(detail) == 0 {
		t.Error("detail = empty, want diff entries for the patched instruction")
	}
}

// TestScoreExtraBlockIsIgnored covers original_source/differ.cpp's
// min(|blocks1|, |blocks2|) loop bound: a block with no counterpart on
// the shorter side is never compared, scored, or reported — it simply
// falls outside the loop.
func TestScoreExtraBlockIsIgnored(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1004, Instructions: []string{"ret"}},
	})
	b := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1004, Instructions: []string{"ret"}},
		{Start: 0x1004, End: 0x1008, Instructions: []string{"nop", "ret"}},
	})
	score, detail := Score(a, b)
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0 (extra block ignored, not counted)", score)
	}
	if len(detail) != 0 {
		t.Errorf("detail = %v, want none", detail)
	}
}

func TestScoreEmptyFunctionsAreIdentical(t *testing.T) {
	a := function.New(0x1000, nil)
	b := function.New(0x2000, nil)
	score, detail := Score(a, b)
	if score != 1.0 {
		t.Errorf("score = %v, want 1.0 for two empty functions", score)
	}
	if len(detail) != 0 {
		t.Errorf("detail = %v, want none", detail)
	}
}
