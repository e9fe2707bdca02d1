package matcher

import (
	"testing"

	"github.com/moleium/zydiff/internal/function"
)

func block(start, end uint64, instrs ...string) function.BasicBlock {
	return function.BasicBlock{Start: start, End: end, Instructions: instrs}
}

func TestMatchIdenticalFunctionsPairUp(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{block(0x1000, 0x1004, "push rbp", "ret")})
	b := function.New(0x2000, []function.BasicBlock{block(0x2000, 0x2004, "push rbp", "ret")})

	result := Match([]function.Function{a}, []function.Function{b})
	if len(result.Matched) != 1 {
		t.Fatalf("Matched = %v, want 1 pair", result.Matched)
	}
	if result.Matched[0].Score != 1.0 {
		t.Errorf("Score = %v, want 1.0", result.Matched[0].Score)
	}
	if len(result.UnmatchedPrimary) != 0 || len(result.UnmatchedSecondary) != 0 {
		t.Errorf("unmatched primary=%v secondary=%v, want none", result.UnmatchedPrimary, result.UnmatchedSecondary)
	}
}

func TestMatchDifferentFingerprintsDoNotPair(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{block(0x1000, 0x1004, "push rbp", "ret")})
	b := function.New(0x2000, []function.BasicBlock{
		block(0x2000, 0x2002, "push rbp"),
		block(0x2002, 0x2006, "mov rbp, rsp", "ret"),
	})

	result := Match([]function.Function{a}, []function.Function{b})
	if len(result.Matched) != 0 {
		t.Errorf("Matched = %v, want none (different fingerprints)", result.Matched)
	}
	if len(result.UnmatchedPrimary) != 1 || len(result.UnmatchedSecondary) != 1 {
		t.Errorf("unmatched primary=%v secondary=%v, want one each", result.UnmatchedPrimary, result.UnmatchedSecondary)
	}
}

func TestMatchGreedyOneToOne(t *testing.T) {
	// Two primary functions, one secondary function that matches both
	// equally well — only one match should be accepted.
	p1 := function.New(0x1000, []function.BasicBlock{block(0x1000, 0x1004, "push rbp", "ret")})
	p2 := function.New(0x1100, []function.BasicBlock{block(0x1100, 0x1104, "push rbp", "ret")})
	s := function.New(0x2000, []function.BasicBlock{block(0x2000, 0x2004, "push rbp", "ret")})

	result := Match([]function.Function{p1, p2}, []function.Function{s})
	if len(result.Matched) != 1 {
		t.Fatalf("Matched = %v, want exactly 1", result.Matched)
	}
	if len(result.UnmatchedPrimary) != 1 {
		t.Errorf("UnmatchedPrimary = %v, want exactly 1", result.UnmatchedPrimary)
	}
}

func TestMatchBelowFloorIsUnmatched(t *testing.T) {
	a := function.New(0x1000, []function.BasicBlock{block(0x1000, 0x1004, "push rbp", "mov rax, 1")})
	b := function.New(0x2000, []function.BasicBlock{block(0x2000, 0x2004, "push rsi", "mov rcx, 2")})

	result := Match([]function.Function{a}, []function.Function{b})
	if len(result.Matched) != 0 {
		t.Errorf("Matched = %v, want none (below accept floor)", result.Matched)
	}
}
