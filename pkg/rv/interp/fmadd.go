package interp

import (
	"math"

	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// The four fused multiply-add major opcodes share an operand layout: rs1,
// rs2, rs3 (instr[31:27]) and a format-select field funct2 (instr[26:25])
// that must be 0 (single precision) — this core supports no other format.

func fmaddOperands(rv *cpu.State, instr uint32) (rd uint32, a, b, c float32, ok bool) {
	if decode.Funct2(instr) != 0 {
		return 0, 0, 0, 0, false
	}
	rd = decode.Rd(instr)
	a = math.Float32frombits(rv.F[decode.Rs1(instr)])
	b = math.Float32frombits(rv.F[decode.Rs2(instr)])
	c = math.Float32frombits(rv.F[decode.Rs3(instr)])
	return rd, a, b, c, true
}

// handleFMAdd implements FMADD.S: rd = a*b + c.
func handleFMAdd(rv *cpu.State, instr uint32) bool {
	rd, a, b, c, ok := fmaddOperands(rv, instr)
	if !ok {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	rv.SetF(int(rd), math.Float32bits(a*b+c))
	advancePC(rv)
	return true
}

// handleFMSub implements FMSUB.S: rd = a*b - c.
func handleFMSub(rv *cpu.State, instr uint32) bool {
	rd, a, b, c, ok := fmaddOperands(rv, instr)
	if !ok {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	rv.SetF(int(rd), math.Float32bits(a*b-c))
	advancePC(rv)
	return true
}

// handleFNMSub implements FNMSUB.S: rd = -(a*b) + c.
func handleFNMSub(rv *cpu.State, instr uint32) bool {
	rd, a, b, c, ok := fmaddOperands(rv, instr)
	if !ok {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	rv.SetF(int(rd), math.Float32bits(-(a*b)+c))
	advancePC(rv)
	return true
}

// handleFNMAdd implements FNMADD.S: rd = -(a*b) - c.
func handleFNMAdd(rv *cpu.State, instr uint32) bool {
	rd, a, b, c, ok := fmaddOperands(rv, instr)
	if !ok {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	rv.SetF(int(rd), math.Float32bits(-(a*b)-c))
	advancePC(rv)
	return true
}
