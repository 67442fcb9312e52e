package interp

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// handleLoad implements LB/LH/LW/LBU/LHU (funct3 0-4).
func handleLoad(rv *cpu.State, instr uint32) bool {
	rd := decode.Rd(instr)
	addr := rv.X[decode.Rs1(instr)] + uint32(decode.IImm(instr))

	var val uint32
	switch decode.Funct3(instr) {
	case 0b000: // LB
		val = uint32(int32(int8(rv.Bus.ReadByte(rv, addr))))
	case 0b001: // LH
		val = uint32(int32(int16(rv.Bus.ReadHalf(rv, addr))))
	case 0b010: // LW
		val = rv.Bus.ReadWord(rv, addr)
	case 0b100: // LBU
		val = uint32(rv.Bus.ReadByte(rv, addr))
	case 0b101: // LHU
		val = uint32(rv.Bus.ReadHalf(rv, addr))
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	rv.SetX(int(rd), val)
	advancePC(rv)
	return true
}

// handleStore implements SB/SH/SW (funct3 0-2).
func handleStore(rv *cpu.State, instr uint32) bool {
	addr := rv.X[decode.Rs1(instr)] + uint32(decode.SImm(instr))
	val := rv.X[decode.Rs2(instr)]

	switch decode.Funct3(instr) {
	case 0b000: // SB
		rv.Bus.WriteByte(rv, addr, uint8(val))
	case 0b001: // SH
		rv.Bus.WriteHalf(rv, addr, uint16(val))
	case 0b010: // SW
		rv.Bus.WriteWord(rv, addr, val)
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	advancePC(rv)
	return true
}

// handleLoadFP implements FLW: loads a 32-bit word from memory directly
// into an F register, bit-exact (no float conversion happens on the way
// in — the bits loaded are the bits stored).
func handleLoadFP(rv *cpu.State, instr uint32) bool {
	if decode.Funct3(instr) != 0b010 {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	addr := rv.X[decode.Rs1(instr)] + uint32(decode.IImm(instr))
	rv.SetF(int(decode.Rd(instr)), rv.Bus.ReadWord(rv, addr))
	advancePC(rv)
	return true
}

// handleStoreFP implements FSW.
func handleStoreFP(rv *cpu.State, instr uint32) bool {
	if decode.Funct3(instr) != 0b010 {
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}
	addr := rv.X[decode.Rs1(instr)] + uint32(decode.SImm(instr))
	rv.Bus.WriteWord(rv, addr, rv.F[decode.Rs2(instr)])
	advancePC(rv)
	return true
}
