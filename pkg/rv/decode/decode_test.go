package decode

import "testing"

func TestFieldExtraction(t *testing.T) {
	// ADD x1, x2, x3: opcode=0110011, rd=1, funct3=0, rs1=2, rs2=3, funct7=0
	instr := uint32(3)<<20 | uint32(2)<<15 | uint32(0)<<12 | uint32(1)<<7 | 0x33

	if got := Opcode(instr); got != 0x33 {
		t.Errorf("Opcode() = %#x, want 0x33", got)
	}
	if got := Major5(instr); got != 0x0c {
		t.Errorf("Major5() = %#x, want 0x0c", got)
	}
	if got := Rd(instr); got != 1 {
		t.Errorf("Rd() = %d, want 1", got)
	}
	if got := Funct3(instr); got != 0 {
		t.Errorf("Funct3() = %d, want 0", got)
	}
	if got := Rs1(instr); got != 2 {
		t.Errorf("Rs1() = %d, want 2", got)
	}
	if got := Rs2(instr); got != 3 {
		t.Errorf("Rs2() = %d, want 3", got)
	}
	if got := Funct7(instr); got != 0 {
		t.Errorf("Funct7() = %d, want 0", got)
	}
}

func TestRs3AndFunct2(t *testing.T) {
	// FMADD.S-shaped word: rs3 in [31:27], funct2 in [26:25].
	var instr uint32
	instr |= 17 << 27 // rs3 = 17
	instr |= 0 << 25  // funct2 = 0 (single precision)

	if got := Rs3(instr); got != 17 {
		t.Errorf("Rs3() = %d, want 17", got)
	}
	if got := Funct2(instr); got != 0 {
		t.Errorf("Funct2() = %d, want 0", got)
	}
}

func TestShamtIsLowFiveOfRs2Field(t *testing.T) {
	instr := uint32(31) << 20 // SLLI x.., x.., 31
	if got := Shamt(instr); got != 31 {
		t.Errorf("Shamt() = %d, want 31", got)
	}
}

func TestCSR(t *testing.T) {
	instr := uint32(0xC00) << 20 // cycle CSR address
	if got := CSR(instr); got != 0xC00 {
		t.Errorf("CSR() = %#x, want 0xC00", got)
	}
}

func TestImmediateEncodings(t *testing.T) {
	tests := []struct {
		name string
		imm  int32
		fn   func(int32) uint32 // encoder under test, inverse of the decoder
		dec  func(uint32) int32
	}{
		{"IImm max positive", 2047, encodeIImm, IImm},
		{"IImm min negative", -2048, encodeIImm, IImm},
		{"IImm zero", 0, encodeIImm, IImm},
		{"SImm max positive", 2047, encodeSImm, SImm},
		{"SImm min negative", -2048, encodeSImm, SImm},
		{"BImm max positive (even)", 4094, encodeBImm, BImm},
		{"BImm min negative (even)", -4096, encodeBImm, BImm},
		{"JImm max positive (even)", 1048574, encodeJImm, JImm},
		{"JImm min negative (even)", -1048576, encodeJImm, JImm},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			instr := tt.fn(tt.imm)
			if got := tt.dec(instr); got != tt.imm {
				t.Errorf("round trip = %d, want %d (instr=%#x)", got, tt.imm, instr)
			}
		})
	}
}

func TestUImmMasksLowBits(t *testing.T) {
	instr := uint32(0xfffff800) // LUI with all immediate bits set
	got := UImm(instr)
	want := uint32(0xfffff000)
	if got != int32(want) {
		t.Errorf("UImm() = %#x, want %#x", uint32(got), want)
	}
	if got&0xfff != 0 {
		t.Errorf("UImm() low 12 bits not zero: %#x", uint32(got))
	}
}

// encodeIImm, encodeSImm, encodeBImm and encodeJImm build a raw instruction
// word carrying the given immediate in each type's field layout, used only
// to exercise the decoders above with a known-good inverse.

func encodeIImm(imm int32) uint32 {
	return uint32(imm&0xfff) << 20
}

func encodeSImm(imm int32) uint32 {
	u := uint32(imm) & 0xfff
	hi := u >> 5
	lo := u & 0x1f
	return hi<<25 | lo<<7
}

func encodeBImm(imm int32) uint32 {
	u := uint32(imm) & 0x1fff
	bit12 := (u >> 12) & 0x1
	bit11 := (u >> 11) & 0x1
	bits10_5 := (u >> 5) & 0x3f
	bits4_1 := (u >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | bits4_1<<8 | bit11<<7
}

func encodeJImm(imm int32) uint32 {
	u := uint32(imm) & 0x1fffff
	bit20 := (u >> 20) & 0x1
	bits19_12 := (u >> 12) & 0xff
	bit11 := (u >> 11) & 0x1
	bits10_1 := (u >> 1) & 0x3ff
	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12
}
