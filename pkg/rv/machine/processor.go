// Package machine ties the decoder, interpreter and JIT together into the
// embeddable processor spec.md describes: construction, reset, the
// try-JIT-else-interpret step loop, and the accessor surface an embedder
// drives a guest program through.
//
// Grounded on the teacher's PVM/jit_integration pairing (pkg/pvm/pvm.go's
// NewPVM/Run, pkg/pvm/jit_integration.go's RunJIT/initJIT/SetJITEnabled):
// the "try compiled block first, fall back to single-stepping" loop here is
// structurally the same decision RunJIT makes before falling back to Run.
package machine

import (
	"log"
	"os"

	"rv32vm/pkg/rv/cpu"
	"rv32vm/pkg/rv/jit"
	"rv32vm/pkg/rv/progcache"
	"rv32vm/pkg/rv/rverr"
)

// Processor is one RV32 hart plus its optional JIT backend.
type Processor struct {
	rv    *cpu.State
	rt    *jit.Runtime
	trace *log.Logger
	cache *progcache.Cache
}

// Create allocates a Processor bound to bus for its lifetime, reset to
// PC=0. userdata is opaque to the core and returned verbatim by UserData.
//
// JIT is attempted by default. WithJIT explicitly overrides that; absent an
// explicit option, the RV_MODE=interpreter environment variable disables
// it, matching the teacher's PVM_MODE convention (pkg/pvm/jit_integration.go)
// generalized to an explicit-option-wins rule. Setting WithTrace forces
// interpreter-only execution regardless of either of those, since a
// compiled block cannot emit a per-instruction trace line.
//
// Create can fail: unlike the teacher's panic-free construction (which
// never allocates host-executable memory up front), this one mmaps a JIT
// code arena eagerly when JIT is requested, and that mmap is fallible.
func Create(bus cpu.Bus, userdata any, opts ...Option) (*Processor, error) {
	var o options
	for _, opt := range opts {
		opt(&o)
	}

	jitEnabled := o.jitRequested == nil && os.Getenv("RV_MODE") != "interpreter"
	if o.jitRequested != nil {
		jitEnabled = *o.jitRequested
	}
	if o.trace != nil {
		jitEnabled = false
	}

	p := &Processor{rv: cpu.New(bus, userdata), cache: o.cache}

	if o.trace != nil {
		p.trace = log.New(o.trace, "", log.LstdFlags)
	}

	if jitEnabled {
		rt, err := jit.NewRuntime(o.codeSize)
		if err != nil {
			return nil, rverr.Wrap(err, "machine: create JIT runtime")
		}
		p.rt = rt
	}

	return p, nil
}

// Reset clears registers and CSRs, sets PC, and restores the default stack
// pointer — see cpu.State.Reset. Previously compiled JIT blocks remain
// valid: guest code identity is assumed immutable for the cache's lifetime
// regardless of how many times the processor itself is reset.
func (p *Processor) Reset(pc uint32) {
	p.rv.Reset(pc)
}

// Close releases the JIT code arena, if one was allocated. The Processor
// must not be used afterward.
func (p *Processor) Close() error {
	if p.rt == nil {
		return nil
	}
	return p.rt.Free()
}

// --- accessors -----------------------------------------------------------

func (p *Processor) X(i int) uint32               { return p.rv.X[i] }
func (p *Processor) SetX(i int, v uint32)         { p.rv.SetX(i, v) }
func (p *Processor) F(i int) uint32               { return p.rv.F[i] }
func (p *Processor) SetF(i int, bits uint32)      { p.rv.SetF(i, bits) }
func (p *Processor) PC() uint32                   { return p.rv.PC }
func (p *Processor) SetPC(pc uint32)              { p.rv.PC = pc }
func (p *Processor) CSRCycle() uint64             { return p.rv.CSRCycle() }
func (p *Processor) Exception() cpu.ExceptionKind { return p.rv.Exception() }
func (p *Processor) ClearException()              { p.rv.ClearException() }
func (p *Processor) UserData() any                { return p.rv.UserData }

// JITEnabled reports whether this Processor will attempt JIT translation.
// False either because it was disabled by option/environment/trace, or
// because the host platform has no JIT backend (see jit_stub.go).
func (p *Processor) JITEnabled() bool { return p.rt.Enabled() }

// JITStats reports cumulative JIT compilation/execution counts, zero value
// if JIT was never enabled.
func (p *Processor) JITStats() jit.Stats { return p.rt.Stats() }

// WarmProgramCache consults the configured progcache.Cache (a no-op if none
// was supplied via WithProgramCache) for image's block-start PCs, computing
// and storing them via progcache.ScanBlockStarts on a cache miss, then eagerly
// compiles each one through the JIT so the first real execution of a hot
// block doesn't pay its translation cost. A no-op if JIT is disabled or the
// bus doesn't implement jit.Fetcher.
func (p *Processor) WarmProgramCache(image []byte) error {
	if p.cache == nil || !p.rt.Enabled() {
		return nil
	}
	fetch, ok := p.rv.Bus.(jit.Fetcher)
	if !ok {
		return nil
	}

	rec, found, err := p.cache.Get(image)
	if err != nil {
		return err
	}
	if !found {
		starts := progcache.ScanBlockStarts(image)
		rec, err = p.cache.Put(image, starts)
		if err != nil {
			return err
		}
	}

	for _, pc := range rec.BlockStarts {
		p.rt.FindOrTranslate(fetch, pc)
	}
	return nil
}
