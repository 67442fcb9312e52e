// Package decode extracts the fixed instruction fields from a 32-bit RV32
// instruction word. Every function here is pure and total: given any
// uint32, it returns a value, never an error. Legality of the resulting
// fields (does this opcode actually exist) is the dispatcher's job, not
// this package's.
package decode

// Opcode returns the 7-bit major opcode, instr[6:0].
func Opcode(instr uint32) uint32 {
	return instr & 0x7f
}

// Major5 returns instr[6:2], the 5-bit index the interpreter's dispatch
// table is keyed by (bits 1:0 are always 11 for a 32-bit instruction).
func Major5(instr uint32) uint32 {
	return (instr >> 2) & 0x1f
}

// Rd returns the destination register field, instr[11:7].
func Rd(instr uint32) uint32 {
	return (instr >> 7) & 0x1f
}

// Funct3 returns instr[14:12].
func Funct3(instr uint32) uint32 {
	return (instr >> 12) & 0x7
}

// Rs1 returns instr[19:15].
func Rs1(instr uint32) uint32 {
	return (instr >> 15) & 0x1f
}

// Rs2 returns instr[24:20].
func Rs2(instr uint32) uint32 {
	return (instr >> 20) & 0x1f
}

// Rs3 returns the R4-type (fused multiply-add) third source register,
// instr[31:27].
func Rs3(instr uint32) uint32 {
	return (instr >> 27) & 0x1f
}

// Funct7 returns instr[31:25].
func Funct7(instr uint32) uint32 {
	return (instr >> 25) & 0x7f
}

// Funct2 returns the R4-type format-select field, instr[26:25]. Only
// 0b00 (single precision) is meaningful here; it exists purely so callers
// can reject unsupported formats instead of silently misinterpreting them.
func Funct2(instr uint32) uint32 {
	return (instr >> 25) & 0x3
}

// CSR returns the 12-bit CSR address field, instr[31:20].
func CSR(instr uint32) uint32 {
	return instr >> 20
}

// Shamt returns the 5-bit shift amount used by the immediate shift forms
// (SLLI/SRLI/SRAI), instr[24:20] — the low 5 bits of the I-immediate.
func Shamt(instr uint32) uint32 {
	return Rs2(instr)
}

// signExtend sign-extends the low n bits of x to a full int32.
func signExtend(x uint32, n uint) int32 {
	shift := 32 - n
	return int32(x<<shift) >> shift
}

// IImm decodes the 12-bit I-type immediate, sign-extended: instr[31:20].
func IImm(instr uint32) int32 {
	return signExtend(instr>>20, 12)
}

// SImm decodes the 12-bit S-type immediate, sign-extended:
// {instr[31:25], instr[11:7]}.
func SImm(instr uint32) int32 {
	hi := (instr >> 25) & 0x7f
	lo := (instr >> 7) & 0x1f
	return signExtend(hi<<5|lo, 12)
}

// BImm decodes the 13-bit B-type immediate, sign-extended, low bit always
// zero: {instr[31], instr[7], instr[30:25], instr[11:8], 0}.
func BImm(instr uint32) int32 {
	bit12 := (instr >> 31) & 0x1
	bit11 := (instr >> 7) & 0x1
	bits10_5 := (instr >> 25) & 0x3f
	bits4_1 := (instr >> 8) & 0xf
	raw := bit12<<12 | bit11<<11 | bits10_5<<5 | bits4_1<<1
	return signExtend(raw, 13)
}

// UImm decodes the 32-bit U-type immediate: instr[31:12] in the top bits,
// low 12 bits zero. Not sign-extended beyond that — it already occupies
// the full 32-bit register width.
func UImm(instr uint32) int32 {
	return int32(instr & 0xfffff000)
}

// JImm decodes the 21-bit J-type immediate, sign-extended, low bit always
// zero: {instr[31], instr[19:12], instr[20], instr[30:21], 0}.
func JImm(instr uint32) int32 {
	bit20 := (instr >> 31) & 0x1
	bits19_12 := (instr >> 12) & 0xff
	bit11 := (instr >> 20) & 0x1
	bits10_1 := (instr >> 21) & 0x3ff
	raw := bit20<<20 | bits19_12<<12 | bit11<<11 | bits10_1<<1
	return signExtend(raw, 21)
}
