// Package cpu holds the processor state a RISC-V core operates on: the
// integer and float register files, the program counter, the CSR block, the
// sticky exception latch, and the host I/O bus the core calls out through.
// Nothing in this package executes an instruction — that is interp's job.
package cpu

// DefaultStackPointer is the implementation-defined initial value of X[2]
// (sp) after Reset. 16-byte aligned, just below the 2 GiB mark (the top of
// the lower half of the 32-bit address space), leaving room below for an
// embedder-mapped guard region.
const DefaultStackPointer = 0x7ffffff0

// Bus is the host I/O contract a State borrows for its lifetime. The core
// never touches guest memory directly; every load, store, ecall and ebreak
// crosses through here. Implementations may set the exception latch on rv
// from within a callback (e.g. on a faulting address) — the driver checks
// the latch immediately after the call returns.
type Bus interface {
	IFetch(rv *State, addr uint32) uint32
	ReadByte(rv *State, addr uint32) uint8
	ReadHalf(rv *State, addr uint32) uint16
	ReadWord(rv *State, addr uint32) uint32
	WriteByte(rv *State, addr uint32, val uint8)
	WriteHalf(rv *State, addr uint32, val uint16)
	WriteWord(rv *State, addr uint32, val uint32)
	OnECall(rv *State, pc, inst uint32)
	OnEBreak(rv *State, pc, inst uint32)
}

// State is the complete architectural state of one RV32 hart.
//
// Field order here is deliberate, not cosmetic: the JIT (pkg/rv/jit) reads
// and writes X, PC and csrCycle directly from generated machine code using
// hardcoded byte offsets (see jit.stateOffset* in compiler.go), the same
// way the teacher's JIT hardcodes StateRegistersOffset against pkg/pvm's
// State layout. Every field up to Bus is a fixed-size value with natural
// alignment and zero hidden padding on amd64, so the offsets are exact:
// X at 0, F at 128, PC at 256, exception at 260, csrMstatus at 264, csrFcsr
// at 268, csrCycle at 272 (8-byte aligned with no gap). Reordering or
// resizing any field before Bus requires updating those offsets to match.
type State struct {
	X [32]uint32
	F [32]uint32
	PC uint32

	exception ExceptionKind

	csrMstatus uint32
	csrFcsr    uint32
	csrCycle   uint64

	Bus      Bus
	UserData any
}

// New constructs a State bound to the given bus and user-data pointer, reset
// to PC 0. The bus is required and is never swapped out for the lifetime of
// the returned State.
func New(bus Bus, userdata any) *State {
	rv := &State{Bus: bus, UserData: userdata}
	rv.Reset(0)
	return rv
}

// Reset clears all registers and CSRs, sets PC, and restores the default
// stack pointer. The exception latch is cleared.
func (rv *State) Reset(pc uint32) {
	rv.X = [32]uint32{}
	rv.F = [32]uint32{}
	rv.PC = pc
	rv.exception = ExcNone
	rv.csrCycle = 0
	rv.csrMstatus = 0
	rv.csrFcsr = 0
	rv.X[2] = DefaultStackPointer
}

// SetX writes an integer register, enforcing that X[0] always reads back 0
// regardless of what was written to it.
func (rv *State) SetX(i int, v uint32) {
	rv.X[i] = v
	rv.X[0] = 0
}

// SetF writes a float register's bit pattern verbatim, preserving NaN
// payloads exactly — no value is ever routed through a Go float32 addition
// or conversion on its way in.
func (rv *State) SetF(i int, bits uint32) {
	rv.F[i] = bits
}

// RaiseException latches rv.exception if it is not already set. The latch
// is sticky: once raised, only ClearException resets it, matching the
// "exception never self-clears" propagation policy the driver relies on.
func (rv *State) RaiseException(kind ExceptionKind) {
	if rv.exception == ExcNone {
		rv.exception = kind
	}
}

// Exception reports the currently latched exception kind, or ExcNone.
func (rv *State) Exception() ExceptionKind { return rv.exception }

// ClearException resets the latch so stepping may resume.
func (rv *State) ClearException() { rv.exception = ExcNone }

// CSRCycle returns the 64-bit retired-instruction counter.
func (rv *State) CSRCycle() uint64 { return rv.csrCycle }

// TickCycle advances the retired-instruction counter by one. Called exactly
// once per retired instruction by both the interpreter and the JIT runtime.
func (rv *State) TickCycle() { rv.csrCycle++ }

// AddCycles advances the retired-instruction counter by n, used by the JIT
// runtime to account for an entire translated block in one step.
func (rv *State) AddCycles(n uint64) { rv.csrCycle += n }
