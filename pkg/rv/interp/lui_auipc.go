package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// handleLUI implements LUI: X[rd] = U-imm.
func handleLUI(rv *cpu.State, instr uint32) bool {
	rv.SetX(int(decode.Rd(instr)), uint32(decode.UImm(instr)))
	advancePC(rv)
	return true
}

// handleAUIPC implements AUIPC: X[rd] = U-imm + PC.
func handleAUIPC(rv *cpu.State, instr uint32) bool {
	rv.SetX(int(decode.Rd(instr)), uint32(decode.UImm(instr))+rv.PC)
	advancePC(rv)
	return true
}
