//go:build linux && amd64

// Package jit compiles straight-line runs of RV32I integer instructions into
// native x86-64 machine code. It never executes a guest instruction itself;
// pkg/rv/machine decides when to call into a compiled block versus single-
// stepping through pkg/rv/interp.
package jit

import "encoding/binary"

// Reg is an x86-64 general-purpose register encoding (0-15, R8-R15 needing a
// REX prefix bit to address).
type Reg byte

const (
	RAX Reg = 0
	RCX Reg = 1
	RDX Reg = 2
	RBX Reg = 3
	RSP Reg = 4
	RBP Reg = 5
	RSI Reg = 6
	RDI Reg = 7
	R8  Reg = 8
	R9  Reg = 9
	R10 Reg = 10
	R11 Reg = 11
	R12 Reg = 12
	R13 Reg = 13
	R14 Reg = 14
	R15 Reg = 15
)

// Assembler emits x86-64 machine code into a caller-owned buffer, the same
// two-pass-free single-pass style the teacher's jit.Assembler uses: callers
// know block size ahead of translation (one RV32 word in, at most a handful
// of x86 instructions out) so no relocation pass is needed.
type Assembler struct {
	buf    []byte
	offset int
}

// NewAssembler targets buf, starting at offset 0.
func NewAssembler(buf []byte) *Assembler {
	return &Assembler{buf: buf}
}

// Offset reports the current write position, usable as a branch-patch site.
func (a *Assembler) Offset() int { return a.offset }

// Bytes returns everything emitted so far.
func (a *Assembler) Bytes() []byte { return a.buf[:a.offset] }

func (a *Assembler) emit(bytes ...byte) {
	copy(a.buf[a.offset:], bytes)
	a.offset += len(bytes)
}

func (a *Assembler) emitInt32(v int32) {
	binary.LittleEndian.PutUint32(a.buf[a.offset:], uint32(v))
	a.offset += 4
}

func (a *Assembler) emitUint32(v uint32) {
	binary.LittleEndian.PutUint32(a.buf[a.offset:], v)
	a.offset += 4
}

// PatchInt32 overwrites a previously-emitted placeholder, such as a forward
// branch's rel32 whose target isn't known until the rest of the block is
// laid out.
func (a *Assembler) PatchInt32(at int, v int32) {
	binary.LittleEndian.PutUint32(a.buf[at:], uint32(v))
}

// rex builds a REX prefix: 0100WRXB.
func rex(w, r, x, b bool) byte {
	p := byte(0x40)
	if w {
		p |= 0x08
	}
	if r {
		p |= 0x04
	}
	if x {
		p |= 0x02
	}
	if b {
		p |= 0x01
	}
	return p
}

func rexW(reg, rm Reg) byte { return rex(true, reg >= 8, false, rm >= 8) }

// rex32 emits a non-W REX prefix only when R8-R15 are in play, matching how
// the 32-bit operand forms below stay prefix-free for the common case.
func (a *Assembler) rex32(reg, rm Reg) {
	if reg >= 8 || rm >= 8 {
		a.emit(rex(false, reg >= 8, false, rm >= 8))
	}
}

func modRM(mod byte, reg, rm Reg) byte {
	return mod | ((byte(reg) & 7) << 3) | (byte(rm) & 7)
}

// emitMemOperand emits ModR/M (+SIB +disp) for [base+disp32], handling the
// RSP/R12 (needs SIB) and RBP/R13 (needs a displacement byte even at zero)
// special cases every x86-64 encoder has to special-case.
func (a *Assembler) emitMemOperand(reg, base Reg, disp int32) {
	switch {
	case base == RSP || base == R12:
		if disp == 0 {
			a.emit(modRM(0x00, reg, RSP), 0x24)
		} else if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, RSP), 0x24, byte(disp))
		} else {
			a.emit(modRM(0x80, reg, RSP), 0x24)
			a.emitInt32(disp)
		}
	case base == RBP || base == R13:
		if disp >= -128 && disp <= 127 {
			a.emit(modRM(0x40, reg, base), byte(disp))
		} else {
			a.emit(modRM(0x80, reg, base))
			a.emitInt32(disp)
		}
	case disp == 0:
		a.emit(modRM(0x00, reg, base))
	case disp >= -128 && disp <= 127:
		a.emit(modRM(0x40, reg, base), byte(disp))
	default:
		a.emit(modRM(0x80, reg, base))
		a.emitInt32(disp)
	}
}

// --- 32-bit operand forms: all guest integer registers are 32 bits wide,
// and writing a 32-bit x86 register implicitly zeroes its upper half, which
// is exactly the width RV32 needs. ---

// MovRegReg32: mov dst32, src32
func (a *Assembler) MovRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x89, modRM(0xC0, src, dst))
}

// MovRegImm32: mov reg32, imm32
func (a *Assembler) MovRegImm32(reg Reg, imm uint32) {
	a.rex32(0, reg)
	a.emit(0xB8 | byte(reg&7))
	a.emitUint32(imm)
}

// MovRegMem32: mov reg32, [base+disp32]
func (a *Assembler) MovRegMem32(reg, base Reg, disp int32) {
	a.rex32(reg, base)
	a.emit(0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMemReg32: mov [base+disp32], reg32
func (a *Assembler) MovMemReg32(base Reg, disp int32, reg Reg) {
	a.rex32(reg, base)
	a.emit(0x89)
	a.emitMemOperand(reg, base, disp)
}

// AddRegReg32: add dst32, src32
func (a *Assembler) AddRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x01, modRM(0xC0, src, dst))
}

// AddRegImm32: add reg32, imm32 (sign-extended from imm8 when it fits)
func (a *Assembler) AddRegImm32(reg Reg, imm int32) {
	a.rex32(0, reg)
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, 0, reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, 0, reg))
		a.emitInt32(imm)
	}
}

// SubRegReg32: sub dst32, src32
func (a *Assembler) SubRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x29, modRM(0xC0, src, dst))
}

// AndRegReg32: and dst32, src32
func (a *Assembler) AndRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x21, modRM(0xC0, src, dst))
}

// AndRegImm32: and reg32, imm32
func (a *Assembler) AndRegImm32(reg Reg, imm int32) {
	a.rex32(0, reg)
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, 4, reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, 4, reg))
		a.emitInt32(imm)
	}
}

// OrRegReg32: or dst32, src32
func (a *Assembler) OrRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x09, modRM(0xC0, src, dst))
}

// OrRegImm32: or reg32, imm32
func (a *Assembler) OrRegImm32(reg Reg, imm int32) {
	a.rex32(0, reg)
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, 1, reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, 1, reg))
		a.emitInt32(imm)
	}
}

// XorRegReg32: xor dst32, src32 — also the zero-a-register idiom (xor r, r).
func (a *Assembler) XorRegReg32(dst, src Reg) {
	a.rex32(src, dst)
	a.emit(0x31, modRM(0xC0, src, dst))
}

// XorRegImm32: xor reg32, imm32
func (a *Assembler) XorRegImm32(reg Reg, imm int32) {
	a.rex32(0, reg)
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, 6, reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, 6, reg))
		a.emitInt32(imm)
	}
}

// NegReg32: neg reg32 (two's-complement negate)
func (a *Assembler) NegReg32(reg Reg) {
	a.rex32(0, reg)
	a.emit(0xF7, modRM(0xC0, 3, reg))
}

// IMulRegReg32: imul dst32, src32 (low 32 bits of the signed product)
func (a *Assembler) IMulRegReg32(dst, src Reg) {
	a.rex32(dst, src)
	a.emit(0x0F, 0xAF, modRM(0xC0, dst, src))
}

// Shl32RegCL: shl reg32, cl
func (a *Assembler) Shl32RegCL(reg Reg) {
	a.rex32(0, reg)
	a.emit(0xD3, modRM(0xC0, 4, reg))
}

// Shl32RegImm8: shl reg32, imm8
func (a *Assembler) Shl32RegImm8(reg Reg, imm byte) {
	a.rex32(0, reg)
	if imm == 1 {
		a.emit(0xD1, modRM(0xC0, 4, reg))
	} else {
		a.emit(0xC1, modRM(0xC0, 4, reg), imm)
	}
}

// Shr32RegCL: shr reg32, cl (logical)
func (a *Assembler) Shr32RegCL(reg Reg) {
	a.rex32(0, reg)
	a.emit(0xD3, modRM(0xC0, 5, reg))
}

// Shr32RegImm8: shr reg32, imm8 (logical)
func (a *Assembler) Shr32RegImm8(reg Reg, imm byte) {
	a.rex32(0, reg)
	if imm == 1 {
		a.emit(0xD1, modRM(0xC0, 5, reg))
	} else {
		a.emit(0xC1, modRM(0xC0, 5, reg), imm)
	}
}

// Sar32RegCL: sar reg32, cl (arithmetic)
func (a *Assembler) Sar32RegCL(reg Reg) {
	a.rex32(0, reg)
	a.emit(0xD3, modRM(0xC0, 7, reg))
}

// Sar32RegImm8: sar reg32, imm8 (arithmetic)
func (a *Assembler) Sar32RegImm8(reg Reg, imm byte) {
	a.rex32(0, reg)
	if imm == 1 {
		a.emit(0xD1, modRM(0xC0, 7, reg))
	} else {
		a.emit(0xC1, modRM(0xC0, 7, reg), imm)
	}
}

// CmpRegReg32: cmp left32, right32
func (a *Assembler) CmpRegReg32(left, right Reg) {
	a.rex32(right, left)
	a.emit(0x39, modRM(0xC0, right, left))
}

// CmpRegImm32: cmp reg32, imm32
func (a *Assembler) CmpRegImm32(reg Reg, imm int32) {
	a.rex32(0, reg)
	if imm >= -128 && imm <= 127 {
		a.emit(0x83, modRM(0xC0, 7, reg), byte(imm))
	} else {
		a.emit(0x81, modRM(0xC0, 7, reg))
		a.emitInt32(imm)
	}
}

// setcc emits a Setcc byte write to reg's low 8 bits, then zero-extends it
// into the full 32-bit register — the standard "materialize a flag as 0/1"
// idiom x86 needs two instructions for.
func (a *Assembler) setcc(opcode byte, reg Reg) {
	if reg >= 8 || reg >= RSP {
		a.emit(rex(false, false, false, reg >= 8))
	}
	a.emit(0x0F, opcode, modRM(0xC0, 0, reg))
	a.rex32(reg, reg)
	a.emit(0x0F, 0xB6, modRM(0xC0, reg, reg))
}

func (a *Assembler) Sete(reg Reg)  { a.setcc(0x94, reg) } // ZF=1
func (a *Assembler) Setne(reg Reg) { a.setcc(0x95, reg) } // ZF=0
func (a *Assembler) Setb(reg Reg)  { a.setcc(0x92, reg) } // CF=1 (unsigned <)
func (a *Assembler) Setae(reg Reg) { a.setcc(0x93, reg) } // CF=0 (unsigned >=)
func (a *Assembler) Setl(reg Reg)  { a.setcc(0x9C, reg) } // SF!=OF (signed <)
func (a *Assembler) Setge(reg Reg) { a.setcc(0x9D, reg) } // SF=OF (signed >=)

// Conditional jumps, near form (rel32) — blocks are small but branch targets
// can be anywhere in the buffer, so near form is used uniformly rather than
// chasing rel8 range.
func (a *Assembler) je(op byte, rel32 int32) {
	a.emit(0x0F, op)
	a.emitInt32(rel32)
}

func (a *Assembler) JeNear(rel32 int32)  { a.je(0x84, rel32) }
func (a *Assembler) JneNear(rel32 int32) { a.je(0x85, rel32) }

// JmpRel32: jmp rel32
func (a *Assembler) JmpRel32(rel32 int32) {
	a.emit(0xE9)
	a.emitInt32(rel32)
}

// CallReg: call reg (absolute indirect, 64-bit address)
func (a *Assembler) CallReg(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0xFF, modRM(0xC0, 2, reg))
}

// Ret: ret
func (a *Assembler) Ret() { a.emit(0xC3) }

// Push: push reg (64-bit, used to save callee-saved hardware-resident
// registers across the call into a compiled block)
func (a *Assembler) Push(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x50 | byte(reg&7))
}

// Pop: pop reg (64-bit)
func (a *Assembler) Pop(reg Reg) {
	if reg >= 8 {
		a.emit(rex(false, false, false, true))
	}
	a.emit(0x58 | byte(reg&7))
}

// MovRegMem64: mov reg64, [base+disp32] — used only for the 64-bit cycle
// counter field.
func (a *Assembler) MovRegMem64(reg, base Reg, disp int32) {
	a.emit(rexW(reg, base), 0x8B)
	a.emitMemOperand(reg, base, disp)
}

// MovMemReg64: mov [base+disp32], reg64
func (a *Assembler) MovMemReg64(base Reg, disp int32, reg Reg) {
	a.emit(rexW(reg, base), 0x89)
	a.emitMemOperand(reg, base, disp)
}

// Cmov conditional moves, 64-bit form. Used to select between two
// precomputed exit descriptors (next PC, exception code) without a real
// branch inside a translated conditional-branch instruction — both
// candidate values already have their upper 32 bits zeroed by MovRegImm32,
// so a 64-bit move never mixes in stale bits from a previous value.
func (a *Assembler) cmov(opcode byte, dst, src Reg) {
	a.emit(rexW(dst, src), 0x0F, opcode, modRM(0xC0, dst, src))
}

func (a *Assembler) Cmove(dst, src Reg)  { a.cmov(0x44, dst, src) } // ZF=1
func (a *Assembler) Cmovne(dst, src Reg) { a.cmov(0x45, dst, src) } // ZF=0
func (a *Assembler) Cmovb(dst, src Reg)  { a.cmov(0x42, dst, src) } // CF=1
func (a *Assembler) Cmovae(dst, src Reg) { a.cmov(0x43, dst, src) } // CF=0
func (a *Assembler) Cmovl(dst, src Reg)  { a.cmov(0x4C, dst, src) } // SF!=OF
func (a *Assembler) Cmovge(dst, src Reg) { a.cmov(0x4D, dst, src) } // SF=OF

// AddRegImm64: add reg64, imm32 (sign-extended) — used to add a block's
// retired-instruction count onto the 64-bit cycle counter in one shot.
func (a *Assembler) AddRegImm64(reg Reg, imm int32) {
	if imm >= -128 && imm <= 127 {
		a.emit(rexW(0, reg), 0x83, modRM(0xC0, 0, reg), byte(imm))
	} else {
		a.emit(rexW(0, reg), 0x81, modRM(0xC0, 0, reg))
		a.emitInt32(imm)
	}
}
