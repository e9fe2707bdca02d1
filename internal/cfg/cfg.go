// Package cfg recovers a function's control flow graph as a set of
// basic blocks, per spec.md §4.4. It mirrors
// original_source/src/core/analyzer.cpp's find_basic_blocks: a single
// LIFO worklist seeded with the function entry, popped until empty.
// Block discovery order is therefore deterministic but
// implementation-defined — it depends on push order, not address
// order — and similarity.Score relies on that order being stable and
// reproduced exactly, including the target-before-fallthrough push
// order for conditional branches below.
package cfg

import (
	"github.com/moleium/zydiff/internal/decoder"
	"github.com/moleium/zydiff/internal/function"
)

// Recover builds a Function for the subroutine starting at entry,
// decoding from data (mapped at base) until control flow leaves the
// function (RET, indirect branch, or decode failure) along every
// path reachable from entry. A CALL, direct or indirect, continues at
// its return address.
func Recover(data []byte, base, entry uint64) function.Function {
	leaders := map[uint64]struct{}{entry: {}}
	visited := make(map[uint64]struct{})
	stack := []uint64{entry}

	var blocks []function.BasicBlock

	for len(stack) > 0 {
		start := stack[len(stack)-1]
		stack = stack[:len(stack)-1]

		if _, done := visited[start]; done {
			continue
		}
		if start < base || start-base >= uint64(len(data)) {
			continue
		}
		visited[start] = struct{}{}

		block := walkBlock(data, base, leaders, start)
		blocks = append(blocks, block)

		// Push successors in the same order walkBlock recorded them so
		// that, for a conditional branch, the fallthrough (pushed
		// last) is popped and explored before the target.
		for _, succ := range block.Successors {
			stack = append(stack, succ)
		}
	}

	return function.New(entry, blocks)
}

// walkBlock decodes straight-line instructions starting at start until
// it reaches a block-ending instruction or an already-known leader,
// returning the resulting basic block. Any new leaders it discovers
// (direct branch targets, the fallthrough after a conditional branch
// or a call) are recorded
// in leaders so later blocks split on them correctly.
func walkBlock(data []byte, base uint64, leaders map[uint64]struct{}, start uint64) function.BasicBlock {
	addr := start
	instrs := []string{}
	var calls []function.CallSite

	for {
		offset := addr - base
		if offset >= uint64(len(data)) {
			return function.BasicBlock{Start: start, End: addr, Instructions: instrs, Calls: calls}
		}

		if addr != start {
			if _, isLeader := leaders[addr]; isLeader {
				return function.BasicBlock{
					Start:        start,
					End:          addr,
					Instructions: instrs,
					Successors:   []uint64{addr},
					Calls:        calls,
				}
			}
		}

		inst, err := decoder.Decode(addr, data[offset:])
		if err != nil {
			return function.BasicBlock{Start: start, End: addr, Instructions: instrs, Calls: calls}
		}

		instrs = append(instrs, inst.Text)
		next := addr + uint64(inst.Length)

		switch {
		case inst.Mnemonic == decoder.MnemRet:
			return function.BasicBlock{Start: start, End: next, Instructions: instrs, Calls: calls}

		case inst.Mnemonic == decoder.MnemJmp:
			target, ok := inst.DirectTarget()
			if !ok {
				return function.BasicBlock{Start: start, End: next, Instructions: instrs, Calls: calls}
			}
			leaders[target] = struct{}{}
			return function.BasicBlock{
				Start:        start,
				End:          next,
				Instructions: instrs,
				Successors:   []uint64{target},
				Calls:        calls,
			}

		case inst.Mnemonic.IsConditionalJump():
			target, ok := inst.DirectTarget()
			if !ok {
				return function.BasicBlock{Start: start, End: next, Instructions: instrs, Calls: calls}
			}
			leaders[target] = struct{}{}
			leaders[next] = struct{}{}
			return function.BasicBlock{
				Start:        start,
				End:          next,
				Instructions: instrs,
				// target before fallthrough: walkBlock's caller pushes
				// this slice onto the stack in order, so fallthrough
				// ends up on top and is explored first.
				Successors: []uint64{target, next},
				Calls:      calls,
			}

		case inst.Mnemonic == decoder.MnemCall:
			if target, ok := inst.DirectTarget(); ok {
				calls = append(calls, function.CallSite{InstructionIndex: len(instrs) - 1, Target: target})
			}
			// CALL ends the block: the only successor is the
			// fall-through at the return address, per the
			// call-return convention (spec.md §4.4).
			leaders[next] = struct{}{}
			return function.BasicBlock{
				Start:        start,
				End:          next,
				Instructions: instrs,
				Successors:   []uint64{next},
				Calls:        calls,
			}

		default:
			addr = next
		}
	}
}
