package cpu

import "testing"

type nullBus struct{}

func (nullBus) IFetch(rv *State, addr uint32) uint32       { return 0 }
func (nullBus) ReadByte(rv *State, addr uint32) uint8       { return 0 }
func (nullBus) ReadHalf(rv *State, addr uint32) uint16      { return 0 }
func (nullBus) ReadWord(rv *State, addr uint32) uint32      { return 0 }
func (nullBus) WriteByte(rv *State, addr uint32, val uint8)  {}
func (nullBus) WriteHalf(rv *State, addr uint32, val uint16) {}
func (nullBus) WriteWord(rv *State, addr uint32, val uint32) {}
func (nullBus) OnECall(rv *State, pc, inst uint32)          {}
func (nullBus) OnEBreak(rv *State, pc, inst uint32)         {}

func TestResetSetsStackPointerAndClearsState(t *testing.T) {
	rv := New(nullBus{}, nil)
	rv.SetX(5, 42)
	rv.csrCycle = 100
	rv.RaiseException(ExcIllegalInstruction)

	rv.Reset(0x1000)

	if rv.PC != 0x1000 {
		t.Errorf("PC = %#x, want 0x1000", rv.PC)
	}
	if rv.X[5] != 0 {
		t.Errorf("X[5] = %d, want 0 after reset", rv.X[5])
	}
	if rv.X[2] != DefaultStackPointer {
		t.Errorf("X[2] = %#x, want default stack pointer %#x", rv.X[2], uint32(DefaultStackPointer))
	}
	if rv.X[2]%16 != 0 {
		t.Errorf("default stack pointer %#x not 16-byte aligned", rv.X[2])
	}
	if rv.csrCycle != 0 {
		t.Errorf("csrCycle = %d, want 0 after reset", rv.csrCycle)
	}
	if rv.Exception() != ExcNone {
		t.Errorf("Exception() = %v, want ExcNone after reset", rv.Exception())
	}
}

func TestSetXZeroRegisterDiscipline(t *testing.T) {
	rv := New(nullBus{}, nil)
	rv.SetX(0, 0xdeadbeef)
	if rv.X[0] != 0 {
		t.Errorf("X[0] = %#x, want 0", rv.X[0])
	}
	rv.SetX(3, 7)
	rv.SetX(0, 1)
	if rv.X[3] != 7 {
		t.Errorf("X[3] = %d, want 7 (unaffected by X[0] write)", rv.X[3])
	}
}

func TestExceptionLatchIsSticky(t *testing.T) {
	rv := New(nullBus{}, nil)
	rv.RaiseException(ExcInstMisaligned)
	rv.RaiseException(ExcIllegalInstruction)
	if got := rv.Exception(); got != ExcInstMisaligned {
		t.Errorf("Exception() = %v, want first-raised ExcInstMisaligned (sticky)", got)
	}
	rv.ClearException()
	if got := rv.Exception(); got != ExcNone {
		t.Errorf("Exception() = %v, want ExcNone after clear", got)
	}
	rv.RaiseException(ExcBreakpoint)
	if got := rv.Exception(); got != ExcBreakpoint {
		t.Errorf("Exception() = %v, want ExcBreakpoint after clear+raise", got)
	}
}

func TestCycleCounting(t *testing.T) {
	rv := New(nullBus{}, nil)
	for i := 0; i < 5; i++ {
		rv.TickCycle()
	}
	if rv.CSRCycle() != 5 {
		t.Errorf("CSRCycle() = %d, want 5", rv.CSRCycle())
	}
	rv.AddCycles(10)
	if rv.CSRCycle() != 15 {
		t.Errorf("CSRCycle() = %d, want 15", rv.CSRCycle())
	}
}

func TestSetFPreservesBitsExactly(t *testing.T) {
	rv := New(nullBus{}, nil)
	nanBits := uint32(0x7fc00001) // quiet NaN with a nonzero payload
	rv.SetF(1, nanBits)
	if rv.F[1] != nanBits {
		t.Errorf("F[1] = %#x, want %#x (bit-exact)", rv.F[1], nanBits)
	}
}
