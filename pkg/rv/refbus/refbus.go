// Package refbus is a reference implementation of the cpu.Bus contract: a
// single flat, fixed-size byte slice with bounds-checked little-endian loads
// and stores. It exists for tests and the scenario harness, not as part of
// the core's public contract — spec.md treats the guest memory system as
// entirely the embedder's concern.
//
// Simplified from the teacher's paged, access-controlled RAM (pkg/ram):
// no page table, no per-page access permissions, no reservation tracking.
// A real embedder's memory system is expected to be considerably richer;
// this one is deliberately the simplest thing that can stand in for it.
package refbus

import (
	"encoding/binary"

	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/rverr"
)

// Bus is a flat memory region plus hooks the test harness can override to
// observe ECALL/EBREAK.
type Bus struct {
	mem []byte

	// OnECallFunc/OnEBreakFunc, when set, are called instead of the default
	// behavior, which latches ExcEnvironmentCall (ECALL) or ExcBreakpoint
	// (EBREAK). Used by tests to choose how the execution driver halts on
	// ECALL, the way a real syscall shim would by raising an exception.
	OnECallFunc  func(rv *cpu.State, pc, inst uint32)
	OnEBreakFunc func(rv *cpu.State, pc, inst uint32)
}

// New returns a Bus backed by a zeroed region of the given size in bytes.
func New(size int) *Bus {
	return &Bus{mem: make([]byte, size)}
}

// LoadProgram copies prog into the bus's memory starting at addr. The
// backing slice never grows: returns an error wrapped with rverr if
// addr+len(prog) would exceed the configured memory size.
func (b *Bus) LoadProgram(addr uint32, prog []byte) error {
	end := int(addr) + len(prog)
	if end > len(b.mem) {
		return rverr.Wrapf(nil, "refbus: program of %d bytes at %#x exceeds bus size %d", len(prog), addr, len(b.mem))
	}
	copy(b.mem[addr:end], prog)
	return nil
}

func (b *Bus) IFetch(rv *cpu.State, addr uint32) uint32 {
	return b.ReadWord(rv, addr)
}

// PeekWord implements jit.Fetcher: a translation-time read of guest code
// memory that reports out-of-bounds as ok=false instead of latching
// cpu.ExcMemoryFault the way IFetch does, since the compiler has no live
// cpu.State to latch against and must simply refuse to translate past the
// mapped region.
func (b *Bus) PeekWord(addr uint32) (uint32, bool) {
	if !b.inBounds(addr, 4) {
		return 0, false
	}
	return binary.LittleEndian.Uint32(b.mem[addr:]), true
}

func (b *Bus) ReadByte(rv *cpu.State, addr uint32) uint8 {
	if !b.inBounds(addr, 1) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return 0
	}
	return b.mem[addr]
}

func (b *Bus) ReadHalf(rv *cpu.State, addr uint32) uint16 {
	if !b.inBounds(addr, 2) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return 0
	}
	return binary.LittleEndian.Uint16(b.mem[addr:])
}

func (b *Bus) ReadWord(rv *cpu.State, addr uint32) uint32 {
	if !b.inBounds(addr, 4) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return 0
	}
	return binary.LittleEndian.Uint32(b.mem[addr:])
}

func (b *Bus) WriteByte(rv *cpu.State, addr uint32, val uint8) {
	if !b.inBounds(addr, 1) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return
	}
	b.mem[addr] = val
}

func (b *Bus) WriteHalf(rv *cpu.State, addr uint32, val uint16) {
	if !b.inBounds(addr, 2) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return
	}
	binary.LittleEndian.PutUint16(b.mem[addr:], val)
}

func (b *Bus) WriteWord(rv *cpu.State, addr uint32, val uint32) {
	if !b.inBounds(addr, 4) {
		rv.RaiseException(cpu.ExcMemoryFault)
		return
	}
	binary.LittleEndian.PutUint32(b.mem[addr:], val)
}

func (b *Bus) OnECall(rv *cpu.State, pc, inst uint32) {
	if b.OnECallFunc != nil {
		b.OnECallFunc(rv, pc, inst)
		return
	}
	rv.RaiseException(cpu.ExcEnvironmentCall)
}

func (b *Bus) OnEBreak(rv *cpu.State, pc, inst uint32) {
	if b.OnEBreakFunc != nil {
		b.OnEBreakFunc(rv, pc, inst)
		return
	}
	rv.RaiseException(cpu.ExcBreakpoint)
}

func (b *Bus) inBounds(addr uint32, width int) bool {
	return int(addr)+width <= len(b.mem) && int(addr) >= 0
}
