package interp

import (
	"math"

	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/decode"
)

// OP-FP funct7 selectors.
const (
	fpFAdd    = 0b0000000
	fpFSub    = 0b0000100
	fpFMul    = 0b0001000
	fpFDiv    = 0b0001100
	fpFSqrt   = 0b0101100
	fpFSgnj   = 0b0010000
	fpFMinMax = 0b0010100
	fpFCvtWS  = 0b1100000 // float -> int
	fpFMvXW   = 0b1110000 // bit move / FCLASS
	fpFCmp    = 0b1010000
	fpFCvtSW  = 0b1101000 // int -> float
	fpFMvWX   = 0b1111000
)

// handleOpFP implements the F-extension arithmetic, sign-injection,
// min/max, compare, conversion, and move/classify instructions (OP-FP major
// opcode). The rm field (decode.Funct3 for the arithmetic forms) is decoded
// implicitly by routing through Go's float32 operators at host default
// rounding — spec.md's accepted deviation from strict IEEE-754 rounding
// conformance.
func handleOpFP(rv *cpu.State, instr uint32) bool {
	rd := decode.Rd(instr)
	rs1 := decode.Rs1(instr)
	rs2 := decode.Rs2(instr)
	funct3 := decode.Funct3(instr)
	funct7 := decode.Funct7(instr)

	a := math.Float32frombits(rv.F[rs1])
	b := math.Float32frombits(rv.F[rs2])

	switch funct7 {
	case fpFAdd:
		rv.SetF(int(rd), math.Float32bits(a+b))
	case fpFSub:
		rv.SetF(int(rd), math.Float32bits(a-b))
	case fpFMul:
		rv.SetF(int(rd), math.Float32bits(a*b))
	case fpFDiv:
		rv.SetF(int(rd), math.Float32bits(a/b))
	case fpFSqrt:
		rv.SetF(int(rd), math.Float32bits(float32(math.Sqrt(float64(a)))))
	case fpFSgnj:
		rv.SetF(int(rd), fsgnj(funct3, rv.F[rs1], rv.F[rs2]))
	case fpFMinMax:
		if funct3 == 0 {
			rv.SetF(int(rd), math.Float32bits(fmin32(a, b)))
		} else {
			rv.SetF(int(rd), math.Float32bits(fmax32(a, b)))
		}
	case fpFCvtWS:
		rv.SetX(int(rd), fcvtFromFloat(a, rs2))
	case fpFCvtSW:
		rv.SetF(int(rd), fcvtToFloat(rv.X[rs1], rs2))
	case fpFMvXW:
		if funct3 == 0b001 {
			rv.SetX(int(rd), cpu.FClass(rv.F[rs1]))
		} else {
			rv.SetX(int(rd), rv.F[rs1]) // FMV.X.W: bit-exact transfer, no conversion
		}
	case fpFMvWX:
		rv.SetF(int(rd), rv.X[rs1]) // FMV.W.X: bit-exact transfer, no conversion
	case fpFCmp:
		rv.SetX(int(rd), fcompare(funct3, a, b))
	default:
		rv.RaiseException(cpu.ExcIllegalInstruction)
		return false
	}

	advancePC(rv)
	return true
}

// fsgnj implements FSGNJ.S/FSGNJN.S/FSGNJX.S: bit-level sign injection, not
// a value-level negation — the magnitude bits of a are kept unconditionally.
func fsgnj(funct3 uint32, a, b uint32) uint32 {
	const signMask = uint32(1) << 31
	magnitude := a &^ signMask
	switch funct3 {
	case 0b000: // FSGNJ: sign of b
		return magnitude | (b & signMask)
	case 0b001: // FSGNJN: negated sign of b
		return magnitude | (^b & signMask)
	default: // FSGNJX: XOR of signs
		return magnitude | ((a ^ b) & signMask)
	}
}

// fmin32 mirrors fminf: a NaN operand loses to the other operand outright
// (only NaN if both are NaN), and a ±0 tie resolves to -0 rather than an
// arbitrary magnitude comparison.
func fmin32(a, b float32) float32 {
	if a != a {
		return b
	}
	if b != b {
		return a
	}
	if a == 0 && b == 0 {
		if math.Float32bits(a)>>31 != 0 {
			return a
		}
		return b
	}
	if a < b {
		return a
	}
	return b
}

// fmax32 mirrors fmaxf: same NaN handling as fmin32, with a ±0 tie
// resolving to +0.
func fmax32(a, b float32) float32 {
	if a != a {
		return b
	}
	if b != b {
		return a
	}
	if a == 0 && b == 0 {
		if math.Float32bits(a)>>31 == 0 {
			return a
		}
		return b
	}
	if a > b {
		return a
	}
	return b
}

// fcvtFromFloat implements FCVT.W.S (rs2==0, signed) and FCVT.WU.S
// (rs2==1, unsigned).
func fcvtFromFloat(f float32, rs2 uint32) uint32 {
	if rs2 == 1 {
		if f < 0 {
			return 0
		}
		return uint32(uint64(f))
	}
	return uint32(int32(f))
}

// fcvtToFloat implements FCVT.S.W (rs2==0, signed) and FCVT.S.WU (rs2==1,
// unsigned).
func fcvtToFloat(x uint32, rs2 uint32) uint32 {
	if rs2 == 1 {
		return math.Float32bits(float32(x))
	}
	return math.Float32bits(float32(int32(x)))
}

// fcompare implements FEQ.S (funct3==2), FLT.S (funct3==1), FLE.S (funct3==0).
func fcompare(funct3 uint32, a, b float32) uint32 {
	switch funct3 {
	case 0b010:
		return boolToWord(a == b)
	case 0b001:
		return boolToWord(a < b)
	default:
		return boolToWord(a <= b)
	}
}
