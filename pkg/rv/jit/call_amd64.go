//go:build linux && amd64

package jit

import "unsafe"

// callJITCode invokes a compiled block's entry point through the hand-
// written assembly trampoline in trampoline_amd64.s. Kept in this package
// directly rather than in a separate asm subpackage the way the teacher's
// call_amd64.go does (pkg/pvm/jit/asm) — that split exists there to keep
// cgo (the teacher's signal-handler setup) and Go assembly apart within the
// same build; nothing here uses cgo, so there is no such conflict to avoid.
//
// entryPoint: address of compiled code. statePtr: pointer to cpu.State,
// passed through in RDI per System V AMD64 ABI. Returns the exit reason
// (RAX) and next PC (RDX) the compiled block left on its way out.
func callJITCode(entryPoint uintptr, statePtr unsafe.Pointer) (exitReason uint64, nextPC uint64)
