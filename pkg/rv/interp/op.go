package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// mExtensionFunct7 gates the M-extension opcodes (MUL/DIV/REM family) within
// the OP major opcode, per spec.md §4.2.
const mExtensionFunct7 = 0b0000001

// handleOp implements ADD, SUB, SLL, SLT, SLTU, XOR, SRL, SRA, OR, AND (base
// integer), dispatching to the M extension when funct7 selects it.
func handleOp(rv *cpu.State, instr uint32) bool {
	funct7 := decode.Funct7(instr)
	if funct7 == mExtensionFunct7 {
		return handleMExtension(rv, instr)
	}

	rd := decode.Rd(instr)
	a := rv.X[decode.Rs1(instr)]
	b := rv.X[decode.Rs2(instr)]
	shamt := b & 0x1f

	var result uint32
	switch decode.Funct3(instr) {
	case 0b000: // ADD / SUB
		if funct7 == 0b0100000 {
			result = a - b
		} else {
			result = a + b
		}
	case 0b001: // SLL
		result = a << shamt
	case 0b010: // SLT
		result = boolToWord(int32(a) < int32(b))
	case 0b011: // SLTU
		result = boolToWord(a < b)
	case 0b100: // XOR
		result = a ^ b
	case 0b101: // SRL / SRA
		if funct7 == 0b0100000 {
			result = uint32(int32(a) >> shamt)
		} else {
			result = a >> shamt
		}
	case 0b110: // OR
		result = a | b
	case 0b111: // AND
		result = a & b
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	rv.SetX(int(rd), result)
	advancePC(rv)
	return true
}

// handleMExtension implements MUL, MULH, MULHSU, MULHU, DIV, DIVU, REM,
// REMU. DIV/REM follow the two RISC-V-specified sentinel cases instead of
// trapping: division by zero and the signed-overflow case
// (0x80000000 / -1) each produce a fixed result rather than an exception.
func handleMExtension(rv *cpu.State, instr uint32) bool {
	rd := decode.Rd(instr)
	a := rv.X[decode.Rs1(instr)]
	b := rv.X[decode.Rs2(instr)]
	sa, sb := int32(a), int32(b)

	var result uint32
	switch decode.Funct3(instr) {
	case 0b000: // MUL
		result = a * b
	case 0b001: // MULH
		result = uint32(int64(sa) * int64(sb) >> 32)
	case 0b010: // MULHSU
		result = mulhsu(sa, b)
	case 0b011: // MULHU
		result = uint32((uint64(a) * uint64(b)) >> 32)
	case 0b100: // DIV
		switch {
		case b == 0:
			result = 0xffffffff
		case a == 0x80000000 && sb == -1:
			result = a
		default:
			result = uint32(sa / sb)
		}
	case 0b101: // DIVU
		if b == 0 {
			result = 0xffffffff
		} else {
			result = a / b
		}
	case 0b110: // REM
		switch {
		case b == 0:
			result = a
		case a == 0x80000000 && sb == -1:
			result = 0
		default:
			result = uint32(sa % sb)
		}
	case 0b111: // REMU
		if b == 0 {
			result = a
		} else {
			result = a % b
		}
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	rv.SetX(int(rd), result)
	advancePC(rv)
	return true
}

// mulhsu computes the high 32 bits of a signed 32-bit value times an
// unsigned 32-bit value, as a signed*unsigned 64-bit product.
func mulhsu(a int32, b uint32) uint32 {
	product := int64(a) * int64(b)
	return uint32(uint64(product) >> 32)
}
