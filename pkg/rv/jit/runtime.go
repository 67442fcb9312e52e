//go:build linux && amd64

package jit

import (
	"sync"
	"unsafe"

	"rv32vm/pkg/rv/cpu"
)

// Runtime owns one executable-memory arena and the cache of blocks compiled
// into it, keyed by guest start PC alone — per spec.md's find_or_translate
// identity rule, the model assumes guest code immutability within the
// cache's lifetime. Grounded on the teacher's jit.Runtime
// (pkg/pvm/jit/runtime.go), dropping its trampoline/mid-block-entry machinery
// (RV32 basic blocks are discovered one at a time from a known start PC; this
// core never needs to jump into the middle of a previously compiled block).
type Runtime struct {
	mu       sync.Mutex
	compiler *Compiler
	mem      *ExecutableMemory
	blocks   map[uint32]*CompiledBlock
	enabled  bool
	stats    Stats
}

// NewRuntime allocates a code arena of the given size (DefaultCodeSize if
// size <= 0) and returns a Runtime ready to compile and execute blocks into
// it, enabled by default.
func NewRuntime(size int) (*Runtime, error) {
	mem, err := NewExecutableMemory(size)
	if err != nil {
		return nil, err
	}
	return &Runtime{
		compiler: NewCompiler(mem),
		mem:      mem,
		blocks:   make(map[uint32]*CompiledBlock),
		enabled:  true,
	}, nil
}

// Enabled reports whether the driver should attempt JIT execution at all. A
// nil Runtime is always disabled, so callers may hold a nil *Runtime when
// JIT was never constructed and call Enabled() without a nil check first.
func (r *Runtime) Enabled() bool { return r != nil && r.enabled }

// SetEnabled toggles JIT use without discarding already-compiled blocks.
func (r *Runtime) SetEnabled(enabled bool) {
	if r != nil {
		r.enabled = enabled
	}
}

// FindOrTranslate returns the compiled block starting at pc, compiling it
// from fetch if this is the first request for that PC. ok is false if no
// block could be produced (the first instruction at pc was refused) — the
// caller falls back to the interpreter for that PC, exactly as spec.md's
// "the translator must be able to refuse a block" requires.
func (r *Runtime) FindOrTranslate(fetch Fetcher, pc uint32) (*CompiledBlock, bool) {
	r.mu.Lock()
	defer r.mu.Unlock()

	if block, ok := r.blocks[pc]; ok {
		return block, true
	}

	if err := r.mem.BeginWrite(); err != nil {
		return nil, false
	}
	block, ok := r.compiler.CompileBlock(fetch, pc)
	if err := r.mem.FinishWrite(); err != nil {
		return nil, false
	}
	if !ok {
		r.stats.Refusals++
		return nil, false
	}

	r.blocks[pc] = block
	r.stats.BlocksCompiled++
	return block, true
}

// ExecuteBlock runs a compiled block against rv via the assembly trampoline,
// returning the encoded exit reason (always ExitGo today — see CompiledBlock
// / ExitGo) and the next guest PC. rv's hardware-resident registers are
// spilled back into cpu.State before this returns.
func (r *Runtime) ExecuteBlock(block *CompiledBlock, rv *cpu.State) (exitReason uint64, nextPC uint64) {
	r.stats.BlocksExecuted++
	return callJITCode(block.Entry, unsafe.Pointer(rv))
}

// Stats reports cumulative compilation and execution counts.
func (r *Runtime) Stats() Stats {
	if r == nil {
		return Stats{}
	}
	return r.stats
}

// Reset discards every compiled block and rewinds the code arena. Callers
// must not hold a *CompiledBlock obtained before Reset across the call.
func (r *Runtime) Reset() {
	r.mu.Lock()
	defer r.mu.Unlock()
	r.blocks = make(map[uint32]*CompiledBlock)
	r.mem.Reset()
	r.compiler = NewCompiler(r.mem)
}

// Free releases the code arena. The Runtime must not be used afterward.
func (r *Runtime) Free() error {
	if r == nil {
		return nil
	}
	return r.mem.Free()
}
