//go:build linux && amd64

package jit

import (
	"testing"

	"github.com/google/go-cmp/cmp"

	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/interp"
	"rv32vm/pkg/rv/refbus"
)

func encodeUType(major5, rd uint32, imm uint32) uint32 {
	opcode := major5<<2 | 0b11
	return imm&0xfffff000 | rd<<7 | opcode
}

// equivalenceProgram exercises ADDI (OP-IMM), ADD (OP), LUI, AUIPC, BRANCH
// both taken and not-taken, JAL, and JALR — every instruction shape the
// compiler translates — ending in an ECALL the interpreter halts on and the
// compiler refuses, so the JIT side falls back to the interpreter for
// exactly that one instruction the same way machine.Processor's driver loop
// would.
func equivalenceProgram() []uint32 {
	return []uint32{
		encodeIType(0b00100, 1, 0b000, 0, 5),   // 0:  addi x1, x0, 5
		encodeIType(0b00100, 2, 0b000, 0, 3),   // 4:  addi x2, x0, 3
		encodeRType(0b01100, 3, 0b000, 1, 2, 0), // 8:  add x3, x1, x2
		encodeUType(0b01101, 4, 0x1000),        // 12: lui x4, 0x1
		encodeUType(0b00101, 5, 0),              // 16: auipc x5, 0
		encodeBType(0b000, 1, 2, 12),            // 20: beq x1, x2, +12 (not taken -> 24)
		encodeIType(0b00100, 6, 0b000, 0, 99),   // 24: addi x6, x0, 99
		encodeBType(0b000, 1, 1, 8),             // 28: beq x1, x1, +8 (taken -> 36)
		encodeIType(0b00100, 7, 0b000, 0, -1),   // 32: addi x7, x0, -1 (dead: skipped by the taken branch above)
		encodeJType(8, 8),                       // 36: jal x8, +8 (-> 44)
		encodeIType(0b00100, 9, 0b000, 0, 55),   // 40: addi x9, x0, 55 (dead: skipped by jal)
		encodeIType(0b00100, 11, 0b000, 0, 52),  // 44: addi x11, x0, 52
		encodeIType(0b11001, 12, 0b000, 11, 0),  // 48: jalr x12, x11, 0 (-> 52)
		encodeIType(0b00100, 13, 0b000, 0, 777), // 52: addi x13, x0, 777
		ecallWord,                                // 56: ecall
	}
}

func assembleImage(words []uint32) []byte {
	buf := make([]byte, len(words)*4)
	for i, w := range words {
		buf[i*4] = byte(w)
		buf[i*4+1] = byte(w >> 8)
		buf[i*4+2] = byte(w >> 16)
		buf[i*4+3] = byte(w >> 24)
	}
	return buf
}

type archSnapshot struct {
	X         [32]uint32
	PC        uint32
	Exception cpu.ExceptionKind
	Cycle     uint64
}

func snapshot(rv *cpu.State) archSnapshot {
	return archSnapshot{X: rv.X, PC: rv.PC, Exception: rv.Exception(), Cycle: rv.CSRCycle()}
}

func newProgramState(t *testing.T, image []byte) (*cpu.State, *refbus.Bus) {
	t.Helper()
	bus := refbus.New(len(image) + 64)
	bus.OnECallFunc = func(rv *cpu.State, pc, inst uint32) { rv.RaiseException(cpu.ExcEnvironmentCall) }
	if err := bus.LoadProgram(0, image); err != nil {
		t.Fatalf("LoadProgram: %v", err)
	}
	return cpu.New(bus, nil), bus
}

// TestJITInterpreterEquivalence runs the same program to completion on both
// backends from identical initial states and asserts the post-states agree
// bit for bit, the spec's required JIT-interpreter equivalence property.
// Exercises the real compiled code path end to end: FindOrTranslate,
// ExecuteBlock, and the assembly trampoline (callJITCode) all run for real,
// not just the compiler's block-boundary decisions.
func TestJITInterpreterEquivalence(t *testing.T) {
	image := assembleImage(equivalenceProgram())

	interpState, _ := newProgramState(t, image)
	for i := 0; i < 1000 && interpState.Exception() == cpu.ExcNone; i++ {
		interp.Step(interpState)
	}
	if interpState.Exception() != cpu.ExcEnvironmentCall {
		t.Fatalf("interpreter run ended with exception %v, want environment_call", interpState.Exception())
	}

	jitState, jitBus := newProgramState(t, image)
	rt, err := NewRuntime(64 * 1024)
	if err != nil {
		t.Fatalf("NewRuntime: %v", err)
	}
	t.Cleanup(func() { _ = rt.Free() })

	for i := 0; i < 1000 && jitState.Exception() == cpu.ExcNone; i++ {
		block, ok := rt.FindOrTranslate(jitBus, jitState.PC)
		if ok {
			rt.ExecuteBlock(block, jitState)
			continue
		}
		interp.Step(jitState)
	}
	if jitState.Exception() != cpu.ExcEnvironmentCall {
		t.Fatalf("JIT run ended with exception %v, want environment_call", jitState.Exception())
	}

	stats := rt.Stats()
	if stats.BlocksCompiled == 0 || stats.BlocksExecuted == 0 {
		t.Fatalf("JIT stats show no blocks compiled/executed (%+v) — the JIT path was never exercised", stats)
	}

	if diff := cmp.Diff(snapshot(interpState), snapshot(jitState)); diff != "" {
		t.Errorf("interpreter vs JIT post-state mismatch (-interp +jit):\n%s", diff)
	}
}
