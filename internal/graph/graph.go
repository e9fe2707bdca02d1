// Package graph exports recovered functions into
// github.com/zboralski/lattice's generic CFG types, the same mapping
// internal/callgraph/cfg.go performs for Dart AOT functions: a
// function's blocks and edges become a lattice.FuncCFG, and every
// function in a binary becomes one lattice.CFGGraph. This supports
// feeding zydiff's recovered functions into lattice-based tooling (DOT
// rendering, graph diffing) independent of the similarity/matcher
// pipeline.
package graph

import (
	"fmt"
	"sort"

	"github.com/zboralski/lattice"

	"github.com/moleium/zydiff/internal/function"
)

// Export converts a single recovered function into a lattice.FuncCFG.
// Block IDs are the function's own block indices; instruction offsets
// are cumulative across blocks in discovery order, mirroring the flat
// instruction indexing internal/callgraph/cfg.go's convertFuncCFG
// expects.
func Export(f function.Function) *lattice.FuncCFG {
	blockID := make(map[uint64]int, len(f.Blocks))
	for i, b := range f.Blocks {
		blockID[b.Start] = i
	}

	lcfg := &lattice.FuncCFG{Name: symbolName(f.Start)}

	offset := 0
	for i, b := range f.Blocks {
		start := offset
		end := start + len(b.Instructions)
		offset = end

		lb := &lattice.BasicBlock{
			ID:    i,
			Start: start,
			End:   end,
			Term:  len(b.Successors) == 0,
		}

		for si, succAddr := range b.Successors {
			id, ok := blockID[succAddr]
			if !ok {
				// Successor falls outside the recovered function
				// (tail call, or control left the recovered region);
				// there's no block to point at.
				continue
			}
			cond := ""
			if len(b.Successors) == 2 {
				if si == 0 {
					cond = "true"
				} else {
					cond = "false"
				}
			}
			lb.Succs = append(lb.Succs, lattice.Successor{BlockID: id, Cond: cond})
		}

		for _, c := range b.Calls {
			lb.Calls = append(lb.Calls, lattice.CallSite{
				Offset: start + c.InstructionIndex,
				Callee: symbolName(c.Target),
			})
		}
		sort.Slice(lb.Calls, func(a, bIdx int) bool { return lb.Calls[a].Offset < lb.Calls[bIdx].Offset })

		lcfg.Blocks = append(lcfg.Blocks, lb)
	}

	return lcfg
}

// ExportAll converts every recovered function of a binary into a
// single lattice.CFGGraph.
func ExportAll(funcs []function.Function) *lattice.CFGGraph {
	cg := &lattice.CFGGraph{}
	for _, f := range funcs {
		cg.Funcs = append(cg.Funcs, Export(f))
	}
	return cg
}

// symbolName gives an address a stable, sub_-prefixed label in the
// absence of real debug symbols, the same fallback
// internal/callgraph/cfg.go's isInterestingCallee treats as
// uninteresting but still valid.
func symbolName(addr uint64) string {
	return fmt.Sprintf("sub_%x", addr)
}
