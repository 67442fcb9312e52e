package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// handleBranch implements BEQ, BNE, BLT, BGE, BLTU, BGEU. On a taken branch,
// PC += B-imm; otherwise PC += 4. Either way this is a control transfer
// (never "sequential") so the driver re-evaluates state, matching §4.2's
// contract that BRANCH always ends a basic block.
func handleBranch(rv *cpu.State, instr uint32) bool {
	a := rv.X[decode.Rs1(instr)]
	b := rv.X[decode.Rs2(instr)]

	var taken bool
	switch decode.Funct3(instr) {
	case 0b000: // BEQ
		taken = a == b
	case 0b001: // BNE
		taken = a != b
	case 0b100: // BLT
		taken = int32(a) < int32(b)
	case 0b101: // BGE
		taken = int32(a) >= int32(b)
	case 0b110: // BLTU
		taken = a < b
	case 0b111: // BGEU
		taken = a >= b
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	if taken {
		setPC(rv, rv.PC+uint32(decode.BImm(instr)))
	} else {
		advancePC(rv)
	}
	return false
}

// handleJAL implements JAL: link PC+4 to rd, then PC += J-imm.
func handleJAL(rv *cpu.State, instr uint32) bool {
	link := rv.PC + 4
	target := rv.PC + uint32(decode.JImm(instr))
	rv.SetX(int(decode.Rd(instr)), link)
	setPC(rv, target)
	return false
}

// handleJALR implements JALR: link PC+4 to rd, then
// PC = (X[rs1] + I-imm) & ~1.
func handleJALR(rv *cpu.State, instr uint32) bool {
	link := rv.PC + 4
	target := (rv.X[decode.Rs1(instr)] + uint32(decode.IImm(instr))) &^ 1
	rv.SetX(int(decode.Rd(instr)), link)
	setPC(rv, target)
	return false
}
