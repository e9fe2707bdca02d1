// Package decoder wraps golang.org/x/arch/x86/x86asm into the decode
// contract the rest of the pipeline depends on: one instruction in,
// one immutable record out, with PC-relative operands already resolved
// to absolute addresses.
package decoder

import (
	"errors"
	"fmt"

	"golang.org/x/arch/x86/x86asm"
)

// ErrTruncated is returned when fewer bytes are available than the
// decoder needs to even attempt a decode.
var ErrTruncated = errors.New("decoder: truncated input")

// Mnemonic is the coarse instruction classification the rest of the
// pipeline reasons about. It intentionally collapses the many x86asm.Op
// values into the handful of tags spec.md's data model names.
type Mnemonic int

// Recognized mnemonic tags. MnemOther covers every instruction the
// pipeline does not need to distinguish.
const (
	MnemOther Mnemonic = iota
	MnemJmp
	MnemJcc // conditional jump family: Ja, Jae, Jb, Jbe, Je, Jg, ...
	MnemCall
	MnemRet
	MnemPush
	MnemPop
	MnemMov
	MnemSub
)

// OperandKind distinguishes the three operand forms spec.md §3 calls
// out: register, immediate, memory.
type OperandKind int

const (
	OperandRegister OperandKind = iota
	OperandImmediate
	OperandMemory
)

// Operand is a decoded instruction argument. For OperandImmediate,
// Value holds the absolute value — relative branch/call targets have
// already been resolved against the owning instruction's address. For
// a RIP-relative OperandMemory, Value holds the resolved effective
// address; for other memory operands it holds the raw displacement.
type Operand struct {
	Kind     OperandKind
	Register string
	Value    int64
}

// maxOperands mirrors x86asm.Inst.Args' fixed capacity.
const maxOperands = 4

// Instruction is the decoder's output: immutable for the lifetime of a
// decode, per spec.md §3.
type Instruction struct {
	Address  uint64
	Length   int
	Mnemonic Mnemonic
	Op       x86asm.Op // raw opcode, for callers that need finer detail than Mnemonic
	Operands []Operand
	Text     string // canonical, address-resolved human-readable form
}

// Decode decodes one instruction at address from the front of data.
// On failure it reports the error without mutating any caller state —
// there is no decoder-owned state to mutate; the type is stateless
// between calls.
func Decode(address uint64, data []byte) (Instruction, error) {
	if len(data) == 0 {
		return Instruction{}, ErrTruncated
	}

	inst, err := x86asm.Decode(data, 64)
	if err != nil {
		return Instruction{}, fmt.Errorf("decoder: decode at 0x%x: %w", address, err)
	}
	// x86asm reports truncated or prefix-only input as a one-byte
	// instruction with no opcode and a nil error; treat that as a
	// failed decode.
	if inst.Op == 0 {
		return Instruction{}, fmt.Errorf("decoder: decode at 0x%x: no opcode after byte 0x%02x", address, data[0])
	}

	operands := make([]Operand, 0, maxOperands)
	for _, arg := range inst.Args {
		if arg == nil {
			break
		}
		operands = append(operands, resolveOperand(arg, address, inst.Len))
	}

	return Instruction{
		Address:  address,
		Length:   inst.Len,
		Mnemonic: classify(inst.Op),
		Op:       inst.Op,
		Operands: operands,
		Text:     x86asm.GNUSyntax(inst, address, nil),
	}, nil
}

// resolveOperand converts a raw x86asm argument into an Operand,
// resolving PC-relative encodings to absolute addresses using
// address + length + displacement, per spec.md §4.1.
func resolveOperand(arg x86asm.Arg, address uint64, length int) Operand {
	switch a := arg.(type) {
	case x86asm.Reg:
		return Operand{Kind: OperandRegister, Register: a.String()}
	case x86asm.Rel:
		target := int64(address) + int64(length) + int64(a)
		return Operand{Kind: OperandImmediate, Value: target}
	case x86asm.Imm:
		return Operand{Kind: OperandImmediate, Value: int64(a)}
	case x86asm.Mem:
		if a.Base == x86asm.RIP && a.Index == 0 {
			effective := int64(address) + int64(length) + a.Disp
			return Operand{Kind: OperandMemory, Value: effective}
		}
		return Operand{Kind: OperandMemory, Value: a.Disp}
	default:
		return Operand{Kind: OperandMemory}
	}
}

// classify maps an x86asm opcode to the coarse Mnemonic tags the rest
// of the pipeline switches on. The conditional-jump family is
// enumerated explicitly rather than tested as a contiguous range over
// x86asm.Op — see SPEC_FULL.md's "Resolved Open Questions" for why.
func classify(op x86asm.Op) Mnemonic {
	switch op {
	case x86asm.JMP:
		return MnemJmp
	case x86asm.JA, x86asm.JAE, x86asm.JB, x86asm.JBE, x86asm.JE,
		x86asm.JG, x86asm.JGE, x86asm.JL, x86asm.JLE, x86asm.JNE,
		x86asm.JNO, x86asm.JNP, x86asm.JNS, x86asm.JO, x86asm.JP,
		x86asm.JS, x86asm.JCXZ, x86asm.JECXZ, x86asm.JRCXZ:
		return MnemJcc
	case x86asm.CALL:
		return MnemCall
	case x86asm.RET:
		return MnemRet
	case x86asm.PUSH:
		return MnemPush
	case x86asm.POP:
		return MnemPop
	case x86asm.MOV:
		return MnemMov
	case x86asm.SUB:
		return MnemSub
	default:
		return MnemOther
	}
}

// IsConditionalJump reports whether m is a member of the conditional
// jump family (the "taken" path has a sibling fallthrough).
func (m Mnemonic) IsConditionalJump() bool { return m == MnemJcc }

// DirectTarget returns the instruction's first operand as a resolved
// absolute address, if and only if that operand is an immediate — i.e.
// a direct branch/call. Register and memory operands (including
// RIP-relative ones) are indirect for control-flow purposes: the
// decoder resolves the effective address of the memory cell, not the
// pointer it holds, so the true branch target is unknown statically.
func (i Instruction) DirectTarget() (uint64, bool) {
	if len(i.Operands) == 0 {
		return 0, false
	}
	op := i.Operands[0]
	if op.Kind != OperandImmediate {
		return 0, false
	}
	if op.Value < 0 {
		return 0, false
	}
	return uint64(op.Value), true
}

// RegisterOperand reports whether operand idx is a register and, if
// so, its name (e.g. "RBP", "RSP").
func (i Instruction) RegisterOperand(idx int) (string, bool) {
	if idx < 0 || idx >= len(i.Operands) {
		return "", false
	}
	op := i.Operands[idx]
	if op.Kind != OperandRegister {
		return "", false
	}
	return op.Register, true
}

// ImmediateOperand reports whether operand idx is an immediate and,
// if so, its value.
func (i Instruction) ImmediateOperand(idx int) (int64, bool) {
	if idx < 0 || idx >= len(i.Operands) {
		return 0, false
	}
	op := i.Operands[idx]
	if op.Kind != OperandImmediate {
		return 0, false
	}
	return op.Value, true
}
