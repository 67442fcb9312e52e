//go:build linux && amd64

package jit

import "testing"

// fakeFetcher is a Fetcher over a fixed PC->word map, standing in for a
// cpu.Bus in translation-time tests the way refbus stands in for one at
// execution time.
type fakeFetcher map[uint32]uint32

func (f fakeFetcher) PeekWord(addr uint32) (uint32, bool) {
	w, ok := f[addr]
	return w, ok
}

// encodeIType builds an I-type word (OP-IMM, JALR, LOAD, SYSTEM, ...).
func encodeIType(major5, rd, funct3, rs1 uint32, imm int32) uint32 {
	opcode := major5<<2 | 0b11
	return uint32(imm&0xfff)<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encodeRType builds an R-type word (OP).
func encodeRType(major5, rd, funct3, rs1, rs2, funct7 uint32) uint32 {
	opcode := major5<<2 | 0b11
	return funct7<<25 | rs2<<20 | rs1<<15 | funct3<<12 | rd<<7 | opcode
}

// encodeJType builds a JAL word.
func encodeJType(rd uint32, imm int32) uint32 {
	opcode := uint32(0b11011)<<2 | 0b11
	u := uint32(imm) & 0x1fffff
	bit20 := (u >> 20) & 0x1
	bits19_12 := (u >> 12) & 0xff
	bit11 := (u >> 11) & 0x1
	bits10_1 := (u >> 1) & 0x3ff
	return bit20<<31 | bits10_1<<21 | bit11<<20 | bits19_12<<12 | rd<<7 | opcode
}

// encodeBType builds a BRANCH word.
func encodeBType(funct3, rs1, rs2 uint32, imm int32) uint32 {
	opcode := uint32(0b11000)<<2 | 0b11
	u := uint32(imm) & 0x1fff
	bit12 := (u >> 12) & 0x1
	bit11 := (u >> 11) & 0x1
	bits10_5 := (u >> 5) & 0x3f
	bits4_1 := (u >> 1) & 0xf
	return bit12<<31 | bits10_5<<25 | rs2<<20 | rs1<<15 | funct3<<12 | bits4_1<<8 | bit11<<7 | opcode
}

const (
	addi      = 0b000
	ecallWord = uint32(0b1110011) // SYSTEM major opcode, funct3/rs1/rd/imm all zero: ECALL
)

func newTestCompiler(t *testing.T) *Compiler {
	t.Helper()
	mem, err := NewExecutableMemory(64 * 1024)
	if err != nil {
		t.Fatalf("NewExecutableMemory: %v", err)
	}
	t.Cleanup(func() { _ = mem.Free() })
	return NewCompiler(mem)
}

func TestPvmHardwareReg(t *testing.T) {
	tests := []struct {
		x    uint32
		want Reg
		hwOK bool
	}{
		{0, 0, false},
		{1, RBX, true},
		{2, R12, true},
		{3, R13, true},
		{4, R14, true},
		{5, R15, true},
		{6, 0, false},
		{31, 0, false},
	}
	for _, tt := range tests {
		hw, ok := pvmHardwareReg(tt.x)
		if ok != tt.hwOK {
			t.Errorf("pvmHardwareReg(%d) ok = %v, want %v", tt.x, ok, tt.hwOK)
			continue
		}
		if ok && hw != tt.want {
			t.Errorf("pvmHardwareReg(%d) = %v, want %v", tt.x, hw, tt.want)
		}
	}
}

func TestBranchFunct3Valid(t *testing.T) {
	for funct3 := uint32(0); funct3 < 8; funct3++ {
		want := funct3 != 0b010 && funct3 != 0b011
		if got := branchFunct3Valid(funct3); got != want {
			t.Errorf("branchFunct3Valid(%#b) = %v, want %v", funct3, got, want)
		}
	}
}

func TestCompileBlockRefusesWhenFirstInstructionIsNonTranslatable(t *testing.T) {
	c := newTestCompiler(t)
	fetch := fakeFetcher{0: ecallWord}

	block, ok := c.CompileBlock(fetch, 0)
	if ok {
		t.Fatalf("CompileBlock() ok = true, want false (block.Instrs=%d)", block.Instrs)
	}
}

func TestCompileBlockEndsBeforeNonTranslatableInstruction(t *testing.T) {
	c := newTestCompiler(t)
	addiWord := encodeIType(0b00100, 1, addi, 1, 5) // ADDI x1, x1, 5
	fetch := fakeFetcher{
		0: addiWord,
		4: ecallWord,
	}

	block, ok := c.CompileBlock(fetch, 0)
	if !ok {
		t.Fatalf("CompileBlock() ok = false, want true")
	}
	if block.Instrs != 1 {
		t.Errorf("block.Instrs = %d, want 1", block.Instrs)
	}
	if block.StartPC != 0 {
		t.Errorf("block.StartPC = %d, want 0", block.StartPC)
	}
	if block.Entry == 0 {
		t.Errorf("block.Entry is zero")
	}
}

func TestCompileBlockTerminatesOnJAL(t *testing.T) {
	c := newTestCompiler(t)
	fetch := fakeFetcher{0: encodeJType(1, 100)} // JAL x1, +100

	block, ok := c.CompileBlock(fetch, 0)
	if !ok {
		t.Fatalf("CompileBlock() ok = false, want true")
	}
	if block.Instrs != 1 {
		t.Errorf("block.Instrs = %d, want 1", block.Instrs)
	}
}

func TestCompileBlockRefusesReservedBranchFunct3(t *testing.T) {
	c := newTestCompiler(t)
	// funct3 0b010 is reserved for BRANCH.
	fetch := fakeFetcher{0: encodeBType(0b010, 1, 2, 8)}

	_, ok := c.CompileBlock(fetch, 0)
	if ok {
		t.Fatalf("CompileBlock() ok = true, want false for reserved BRANCH funct3")
	}
}

func TestCompileBlockStopsAtMaxBlockInstrs(t *testing.T) {
	c := newTestCompiler(t)
	fetch := fakeFetcher{}
	for i := 0; i < maxBlockInstrs+8; i++ {
		fetch[uint32(i*4)] = encodeIType(0b00100, 1, addi, 1, 1) // ADDI x1, x1, 1
	}

	block, ok := c.CompileBlock(fetch, 0)
	if !ok {
		t.Fatalf("CompileBlock() ok = false, want true")
	}
	if block.Instrs != maxBlockInstrs {
		t.Errorf("block.Instrs = %d, want %d", block.Instrs, maxBlockInstrs)
	}
}

func TestCompileBlockRefusesMExtension(t *testing.T) {
	c := newTestCompiler(t)
	// MUL x1, x2, x3 (OP major, funct3=0, funct7=0b0000001)
	fetch := fakeFetcher{0: encodeRType(0b01100, 1, 0b000, 2, 3, mExtensionFunct7)}

	_, ok := c.CompileBlock(fetch, 0)
	if ok {
		t.Fatalf("CompileBlock() ok = true, want false for MUL (not translated)")
	}
}
