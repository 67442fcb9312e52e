package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// handleOpImm implements ADDI, SLTI, SLTIU, XORI, ORI, ANDI, SLLI, SRLI,
// SRAI. SRLI/SRAI share funct3==0b101 and are discriminated by imm[10]
// (the I-immediate's bit 10, which is funct7 bit 30 in the shift encoding).
func handleOpImm(rv *cpu.State, instr uint32) bool {
	rd := decode.Rd(instr)
	a := rv.X[decode.Rs1(instr)]
	imm := decode.IImm(instr)
	shamt := decode.Shamt(instr)

	var result uint32
	switch decode.Funct3(instr) {
	case 0b000: // ADDI
		result = a + uint32(imm)
	case 0b010: // SLTI
		result = boolToWord(int32(a) < imm)
	case 0b011: // SLTIU
		result = boolToWord(a < uint32(imm))
	case 0b100: // XORI
		result = a ^ uint32(imm)
	case 0b110: // ORI
		result = a | uint32(imm)
	case 0b111: // ANDI
		result = a & uint32(imm)
	case 0b001: // SLLI
		result = a << shamt
	case 0b101:
		if imm&(1<<10) != 0 { // SRAI
			result = uint32(int32(a) >> shamt)
		} else { // SRLI
			result = a >> shamt
		}
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	rv.SetX(int(rd), result)
	advancePC(rv)
	return true
}

// boolToWord encodes a boolean as the canonical 0/1 register value RISC-V
// comparisons produce.
func boolToWord(b bool) uint32 {
	if b {
		return 1
	}
	return 0
}
