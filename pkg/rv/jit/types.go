package jit

// Fetcher lets the compiler read guest code memory at translation time
// without going through cpu.Bus.IFetch, which is defined against a live
// cpu.State and may have execution-time side effects (exception latching on
// an out-of-range address). A Bus that also implements Fetcher is eligible
// for JIT compilation; one that doesn't gets interpreter-only execution.
//
// Declared here rather than in compiler.go so it (and CompiledBlock, Stats)
// stay available on every platform, including the ones where the real
// compiler is replaced by jit_stub.go's permanently-disabled Runtime.
type Fetcher interface {
	PeekWord(addr uint32) (word uint32, ok bool)
}

// CompiledBlock is one basic block's translated machine code, resident in an
// ExecutableMemory arena.
type CompiledBlock struct {
	StartPC uint32
	Entry   uintptr
	Instrs  int // guest instructions folded into this block, for cycle accounting
}

// ExitGo is the only exit reason a compiled block currently produces: it ran
// out of translatable instructions (fell through to one the JIT refused) or
// completed a translated branch/jump. NextPC says where the driver resumes.
// Kept as a named constant, rather than a bare 0, so a future exit reason
// has an established sibling to sit next to instead of a magic number.
const ExitGo = 0

// Stats reports cumulative JIT activity for a Runtime, grounded on the
// teacher's jit.Stats (pkg/pvm/jit/runtime.go).
type Stats struct {
	BlocksCompiled int
	BlocksExecuted uint64
	Refusals       int
}
