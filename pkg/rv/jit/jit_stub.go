//go:build !linux || !amd64

// On any platform other than linux/amd64 the real x86-64 assembler,
// executable-memory arena, and compiler (compiler.go, x86asm.go, execmem.go,
// runtime.go, call_amd64.go, trampoline_amd64.s) are excluded from the build.
// Runtime still exists here so pkg/rv/machine can hold a *jit.Runtime field
// unconditionally instead of forking its own code path per platform; it is
// simply permanently disabled. Grounded on the teacher's stub.go, which does
// the same for ProgramContext on non-Linux builds.
package jit

import "rv32vm/pkg/rv/cpu"

// Runtime is always disabled on this platform.
type Runtime struct{}

// NewRuntime never fails here: WithJIT(true) on an unsupported platform
// degrades silently to interpreter-only execution rather than surfacing a
// construction error, since "no native JIT backend for this host" is not
// the caller's mistake to handle.
func NewRuntime(size int) (*Runtime, error) {
	return &Runtime{}, nil
}

func (r *Runtime) Enabled() bool     { return false }
func (r *Runtime) SetEnabled(_ bool) {}

func (r *Runtime) FindOrTranslate(fetch Fetcher, pc uint32) (*CompiledBlock, bool) {
	return nil, false
}

// ExecuteBlock is unreachable on this platform: FindOrTranslate always
// returns ok=false, so a correct driver loop never calls this.
func (r *Runtime) ExecuteBlock(block *CompiledBlock, rv *cpu.State) (exitReason uint64, nextPC uint64) {
	panic("jit: ExecuteBlock called on a platform with no JIT backend")
}

func (r *Runtime) Stats() Stats { return Stats{} }
func (r *Runtime) Reset()       {}
func (r *Runtime) Free() error  { return nil }
