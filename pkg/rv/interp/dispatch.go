// Package interp is the RV32I(+M+A+F+Zicsr+Zifencei) interpreter: a
// 32-slot dispatch table keyed by instr[6:2], routing to one handler
// function per major opcode group. Handlers are split across files by
// concern (load/store, op-imm, op, lui/auipc, branch/jump, system+CSR,
// fence, atomic, float) rather than one large switch, so each stays an
// independently testable unit.
package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// Handler executes one instruction against rv. It returns true if control
// fell through sequentially (the driver may advance without re-checking
// PC-derived state) and false on any branch (taken or not), jump, illegal
// instruction, or latched exception. ECALL/EBREAK return false only when
// the bus callback latched an exception; otherwise they fall through.
type Handler func(rv *cpu.State, instr uint32) (sequential bool)

// table is indexed by decode.Major5(instr). A nil slot is a fatal illegal
// instruction.
var table [32]Handler

func init() {
	table[0b00000] = handleLoad
	table[0b00001] = handleLoadFP
	table[0b00011] = handleFence
	table[0b00100] = handleOpImm
	table[0b00101] = handleAUIPC
	table[0b01000] = handleStore
	table[0b01001] = handleStoreFP
	table[0b01011] = handleAMO
	table[0b01100] = handleOp
	table[0b01101] = handleLUI
	table[0b10000] = handleFMAdd
	table[0b10001] = handleFMSub
	table[0b10010] = handleFNMSub
	table[0b10011] = handleFNMAdd
	table[0b10100] = handleOpFP
	table[0b11000] = handleBranch
	table[0b11001] = handleJALR
	table[0b11011] = handleJAL
	table[0b11100] = handleSystem
}

// Step fetches and executes one instruction, advancing csr_cycle by one. It
// returns false if the caller should re-evaluate PC-derived state (a branch
// was taken, an exception was latched, or the instruction stream halted).
// Step does nothing and returns false if an exception is already latched.
func Step(rv *cpu.State) bool {
	if rv.Exception() != cpu.ExcNone {
		return false
	}

	instr := rv.Bus.IFetch(rv, rv.PC)
	h := table[decode.Major5(instr)]
	if h == nil {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	sequential := h(rv, instr)
	rv.TickCycle()
	return sequential
}

// advancePC moves PC to pc+4, the fall-through address for every
// non-control-transfer instruction.
func advancePC(rv *cpu.State) {
	rv.PC += 4
}

// setPC performs a control transfer to target. If target is not 4-byte
// aligned, PC still moves to target and an instruction-misaligned exception
// is latched, which halts the driver.
func setPC(rv *cpu.State, target uint32) {
	if target&0b11 != 0 {
		rv.RaiseException(cpu.ExcInstMisaligned)
		rv.PC = target
		return
	}
	rv.PC = target
}
