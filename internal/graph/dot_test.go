package graph

import (
	"strings"
	"testing"

	"github.com/moleium/zydiff/internal/function"
)

func TestDOTRendersNodesAndConditionalEdges(t *testing.T) {
	f := function.New(0x1000, []function.BasicBlock{
		{Start: 0x1000, End: 0x1002, Instructions: []string{"je 0x1004"}, Successors: []uint64{0x1004, 0x1002}},
		{Start: 0x1002, End: 0x1003, Instructions: []string{"ret"}},
		{Start: 0x1004, End: 0x1005, Instructions: []string{"ret"}},
	})

	out := DOT(f, Monochrome)
	if !strings.HasPrefix(out, "digraph cfg {") {
		t.Fatalf("output doesn't start with digraph header: %s", out)
	}
	if !strings.Contains(out, "bb0") || !strings.Contains(out, "bb1") || !strings.Contains(out, "bb2") {
		t.Errorf("output missing expected block nodes: %s", out)
	}
	if !strings.Contains(out, ">T</font>") || !strings.Contains(out, ">F</font>") {
		t.Errorf("output missing T/F conditional edge labels: %s", out)
	}
}

func TestDOTEmptyFunctionProducesEmptyOutput(t *testing.T) {
	f := function.New(0x1000, nil)
	if out := DOT(f, Monochrome); out != "" {
		t.Errorf("DOT(empty function) = %q, want empty", out)
	}
}
