package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// handleSystem implements ECALL, EBREAK, and the Zicsr instructions
// (CSRRW/CSRRS/CSRRC and their immediate-operand forms CSRRWI/CSRRSI/CSRRCI).
func handleSystem(rv *cpu.State, instr uint32) bool {
	funct3 := decode.Funct3(instr)

	if funct3 == 0 {
		switch decode.IImm(instr) {
		case 0: // ECALL
			rv.Bus.OnECall(rv, rv.PC, instr)
		case 1: // EBREAK
			rv.Bus.OnEBreak(rv, rv.PC, instr)
		default:
			rv.RaiseException(cpu.ExcIllegalInstruction)
			return false
		}
		if rv.Exception() != cpu.ExcNone {
			return false
		}
		advancePC(rv)
		return true
	}

	csr := decode.CSR(instr)
	rd := decode.Rd(instr)

	var operand uint32
	switch funct3 {
	case 0b001, 0b010, 0b011: // register-operand forms
		operand = rv.X[decode.Rs1(instr)]
	case 0b101, 0b110, 0b111: // immediate-operand forms: rs1 field is a 5-bit zero-extended immediate
		operand = decode.Rs1(instr)
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	var old uint32
	switch funct3 {
	case 0b001, 0b101: // CSRRW / CSRRWI
		old = rv.CSRRW(csr, operand)
	case 0b010, 0b110: // CSRRS / CSRRSI
		old = rv.CSRRS(csr, operand)
	case 0b011, 0b111: // CSRRC / CSRRCI
		old = rv.CSRRC(csr, operand)
	}

	rv.SetX(int(rd), old)
	advancePC(rv)
	return true
}
