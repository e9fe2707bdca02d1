// Package recovery implements function entry recovery: finding the set
// of addresses that are likely subroutine starts within a code section,
// per spec.md §4.3. It unions two independent strategies, mirroring
// original_source/src/core/analyzer.cpp's get_subroutines: direct call
// targets discovered while walking reachable code, and prologue pattern
// matches scanned linearly across the section.
package recovery

import (
	"sort"

	"github.com/moleium/zydiff/internal/decoder"
)

// RecoverEntries returns the recovered function entry addresses within
// data, which is mapped starting at base. Addresses are returned sorted
// and deduplicated.
func RecoverEntries(data []byte, base uint64) []uint64 {
	entries := make(map[uint64]struct{})

	for addr := range recoverCallTargets(data, base) {
		entries[addr] = struct{}{}
	}
	for addr := range recoverPrologues(data, base) {
		entries[addr] = struct{}{}
	}

	out := make([]uint64, 0, len(entries))
	for addr := range entries {
		out = append(out, addr)
	}
	sort.Slice(out, func(i, j int) bool { return out[i] < out[j] })
	return out
}

// recoverCallTargets walks every reachable instruction stream reachable
// from address 0 of the section, decoding linearly and queuing direct
// call targets as further streams to walk. Whenever it decodes a CALL
// with a resolvable direct target, that target is recorded as an entry
// and queued. A RET or unconditional JMP ends the current stream
// (spec.md §4.3(a)); the walk terminates once the FIFO queue of queued
// call targets drains.
func recoverCallTargets(data []byte, base uint64) map[uint64]struct{} {
	entries := make(map[uint64]struct{})
	visited := make(map[uint64]struct{})

	queue := []uint64{base}
	for len(queue) > 0 {
		addr := queue[0]
		queue = queue[1:]

		for {
			if _, seen := visited[addr]; seen {
				break
			}
			offset := addr - base
			if offset >= uint64(len(data)) {
				break
			}
			visited[addr] = struct{}{}

			inst, err := decoder.Decode(addr, data[offset:])
			if err != nil {
				break
			}

			stop := false
			next := addr + uint64(inst.Length)
			switch inst.Mnemonic {
			case decoder.MnemCall:
				if target, ok := inst.DirectTarget(); ok && inSection(target, base, data) {
					entries[target] = struct{}{}
					queue = append(queue, target)
				}
			case decoder.MnemJmp, decoder.MnemRet:
				// Linear scan stops at a RET or unconditional JMP
				// (spec.md §4.3(a)); it does not follow the jump.
				stop = true
			}

			if stop {
				break
			}
			addr = next
		}
	}

	return entries
}

// recoverPrologues scans data linearly, decoding one candidate
// instruction per offset (never matching raw bytes), and flags three
// patterns as function starts, mirroring
// original_source/src/core/analyzer.cpp's prologue scan and
// maxgio92-prologo/detector.go's DetectPrologues, which takes the same
// decode-then-inspect approach over x86asm rather than byte matching:
//
//  1. push rbp; mov rbp, rsp (flagged at the push, the pair's start)
//  2. sub rsp, imm
//  3. two or more consecutive push instructions
//
// Decoding (rather than matching literal opcode bytes) is what lets
// this recognize REX-prefixed forms — push r8-r15, alternate sub rsp
// encodings — for free: x86asm.Decode already strips the prefix and
// reports the same Mnemonic/operands regardless of which register
// width or encoding was used.
func recoverPrologues(data []byte, base uint64) map[uint64]struct{} {
	entries := make(map[uint64]struct{})

	offset := 0
	var prev decoder.Instruction
	havePrev := false

	for offset < len(data) {
		addr := base + uint64(offset)
		inst, err := decoder.Decode(addr, data[offset:])
		if err != nil {
			offset++
			havePrev = false
			continue
		}

		if havePrev && isPushRBP(prev) && isMovRBPFromRSP(inst) {
			entries[prev.Address] = struct{}{}
		}
		if isSubRSPImm(inst) {
			entries[addr] = struct{}{}
		}
		if inst.Mnemonic == decoder.MnemPush && pushRunLength(data, base, offset) >= 2 {
			entries[addr] = struct{}{}
		}

		prev = inst
		havePrev = true
		offset += inst.Length
	}

	return entries
}

func isPushRBP(inst decoder.Instruction) bool {
	if inst.Mnemonic != decoder.MnemPush {
		return false
	}
	reg, ok := inst.RegisterOperand(0)
	return ok && reg == "RBP"
}

func isMovRBPFromRSP(inst decoder.Instruction) bool {
	if inst.Mnemonic != decoder.MnemMov {
		return false
	}
	dst, ok := inst.RegisterOperand(0)
	if !ok || dst != "RBP" {
		return false
	}
	src, ok := inst.RegisterOperand(1)
	return ok && src == "RSP"
}

func isSubRSPImm(inst decoder.Instruction) bool {
	if inst.Mnemonic != decoder.MnemSub {
		return false
	}
	dst, ok := inst.RegisterOperand(0)
	if !ok || dst != "RSP" {
		return false
	}
	_, ok = inst.ImmediateOperand(1)
	return ok
}

// pushRunLength decodes forward from offset and counts consecutive
// PUSH instructions, stopping at the first non-PUSH or decode failure.
func pushRunLength(data []byte, base uint64, offset int) int {
	n := 0
	for offset < len(data) {
		inst, err := decoder.Decode(base+uint64(offset), data[offset:])
		if err != nil || inst.Mnemonic != decoder.MnemPush {
			break
		}
		n++
		offset += inst.Length
	}
	return n
}

func inSection(addr, base uint64, data []byte) bool {
	return addr >= base && addr < base+uint64(len(data))
}
