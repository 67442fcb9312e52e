package machine

import (
	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/interp"
	"rv32vm/pkg/rv/jit"
)

// Step runs up to cycles guest instructions, stopping earlier if an
// exception latches. Implements spec.md §4.3's step(cycles) verbatim: try a
// compiled block at the current PC first, otherwise single-step the
// interpreter until a non-sequential instruction, a latched exception, or
// the end of the cycle budget, then try a compiled block again.
//
// A JIT block is charged to csr_cycle as a whole on exit (see
// compiler.go's addCycles) and is not itself interruptible mid-block, so a
// call may retire up to one block's worth of instructions (at most
// compiler.go's maxBlockInstrs, 64) past cycles — the atomicity
// spec.md §5 grants a compiled block with respect to external observers.
func (p *Processor) Step(cycles uint64) {
	target := p.rv.CSRCycle() + cycles
	for p.rv.CSRCycle() < target && p.rv.Exception() == cpu.ExcNone {
		if p.tryRunBlock() {
			continue
		}
		for p.rv.CSRCycle() < target && p.rv.Exception() == cpu.ExcNone {
			sequential := interp.Step(p.rv)
			if p.trace != nil {
				p.trace.Printf("pc=%#08x x=%v f=%v cycle=%d", p.rv.PC, p.rv.X, p.rv.F, p.rv.CSRCycle())
			}
			if !sequential {
				break
			}
		}
	}
}

// tryRunBlock attempts to execute a JIT-compiled block at the current PC.
// It reports false (without consulting the interpreter loop's inner state
// at all) when JIT is disabled, the bus doesn't support translation-time
// reads, or the block at this PC was refused — the caller always falls back
// to interp.Step in that case.
func (p *Processor) tryRunBlock() bool {
	if !p.rt.Enabled() {
		return false
	}
	fetch, ok := p.rv.Bus.(jit.Fetcher)
	if !ok {
		return false
	}
	block, ok := p.rt.FindOrTranslate(fetch, p.rv.PC)
	if !ok {
		return false
	}
	p.rt.ExecuteBlock(block, p.rv)
	return true
}
