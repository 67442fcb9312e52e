package machine

import (
	"io"

	"rv32vm/pkg/rv/progcache"
)

// options collects the functional options Create accepts. jitRequested is a
// pointer so Create can tell "explicitly set" apart from "unset, consult
// RV_MODE" — mirroring the teacher's PVM_MODE-driven ModeJIT/ModeInterpreter
// toggle (pkg/pvm/jit_integration.go), generalized to an explicit option
// that wins over the environment variable when given.
type options struct {
	jitRequested *bool
	trace        io.Writer
	cache        *progcache.Cache
	codeSize     int
}

// Option configures a Processor at construction time.
type Option func(*options)

// WithJIT explicitly enables or disables JIT translation, overriding the
// RV_MODE environment variable fallback.
func WithJIT(enabled bool) Option {
	return func(o *options) { o.jitRequested = &enabled }
}

// WithTrace writes one line per retired instruction to w. Setting this
// forces interpreter-only execution (see Create): a compiled block has no
// per-instruction Go-level hook to log from, since it never calls back into
// Go before its terminating exit.
func WithTrace(w io.Writer) Option {
	return func(o *options) { o.trace = w }
}

// WithProgramCache attaches a progcache.Cache that WarmProgramCache can
// consult and populate. Create itself never touches the cache — the
// embedder calls WarmProgramCache once guest memory is loaded.
func WithProgramCache(cache *progcache.Cache) Option {
	return func(o *options) { o.cache = cache }
}

// WithCodeSize overrides the JIT executable-memory arena size in bytes
// (jit.DefaultCodeSize if unset or <= 0).
func WithCodeSize(bytes int) Option {
	return func(o *options) { o.codeSize = bytes }
}
