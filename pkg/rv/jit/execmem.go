//go:build linux && amd64

package jit

import (
	"sync"
	"unsafe"

	"golang.org/x/sys/unix"

	"rv32vm/pkg/rv/rverr"
)

// DefaultCodeSize is the size of one executable-memory arena, used when a
// Runtime is built without an explicit size. Every block reserves a fixed
// perInstrBudget*maxBlockInstrs = 16KB, so 16MB holds 1024 translated basic
// blocks before the arena needs to be reset.
const DefaultCodeSize = 16 * 1024 * 1024

// ExecutableMemory is a bump-allocated arena of host pages that toggles
// between writable (while the compiler emits into it) and executable (while
// compiled blocks run), never both at once. Grounded on the teacher's
// execmem.go, which mmaps a single RWX region; this version keeps the same
// bump-allocator shape but never leaves the region simultaneously writable
// and executable, since nothing here needs JIT code to self-modify at
// runtime the way the teacher's always-RWX arena permits.
type ExecutableMemory struct {
	mu       sync.Mutex
	buffer   []byte
	used     int
	writable bool
}

// NewExecutableMemory mmaps size bytes (DefaultCodeSize if size <= 0),
// initially in the writable state so the first block can be emitted.
func NewExecutableMemory(size int) (*ExecutableMemory, error) {
	if size <= 0 {
		size = DefaultCodeSize
	}
	buf, err := unix.Mmap(-1, 0, size,
		unix.PROT_READ|unix.PROT_WRITE,
		unix.MAP_PRIVATE|unix.MAP_ANONYMOUS)
	if err != nil {
		return nil, rverr.Wrap(err, "mmap executable memory")
	}
	return &ExecutableMemory{buffer: buf, writable: true}, nil
}

// BaseAddress is the address of the first byte of the arena.
func (em *ExecutableMemory) BaseAddress() uintptr {
	if len(em.buffer) == 0 {
		return 0
	}
	return uintptr(unsafe.Pointer(&em.buffer[0]))
}

// BeginWrite switches the arena to PROT_READ|PROT_WRITE so the compiler can
// emit into it. Must be called before any Allocate whose returned slice will
// be written through.
func (em *ExecutableMemory) BeginWrite() error {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.writable {
		return nil
	}
	if err := unix.Mprotect(em.buffer, unix.PROT_READ|unix.PROT_WRITE); err != nil {
		return rverr.Wrap(err, "mprotect writable")
	}
	em.writable = true
	return nil
}

// FinishWrite switches the arena to PROT_READ|PROT_EXEC. Must be called
// before any previously-written block in this arena is entered.
func (em *ExecutableMemory) FinishWrite() error {
	em.mu.Lock()
	defer em.mu.Unlock()
	if !em.writable {
		return nil
	}
	if err := unix.Mprotect(em.buffer, unix.PROT_READ|unix.PROT_EXEC); err != nil {
		return rverr.Wrap(err, "mprotect executable")
	}
	em.writable = false
	return nil
}

// Allocate reserves size bytes and returns both their address (for a
// compiled block's entry point) and a slice over them (for the assembler to
// write into — only valid to write while the arena is in the writable
// state).
func (em *ExecutableMemory) Allocate(size int) (uintptr, []byte, error) {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.used+size > len(em.buffer) {
		return 0, nil, rverr.Errorf("out of executable memory: need %d, have %d", size, len(em.buffer)-em.used)
	}
	slice := em.buffer[em.used : em.used+size]
	addr := em.BaseAddress() + uintptr(em.used)
	em.used += size
	return addr, slice, nil
}

// Reset rewinds the bump allocator, invalidating every block previously
// handed out from this arena. Callers must drop their block-address cache
// before calling this.
func (em *ExecutableMemory) Reset() {
	em.mu.Lock()
	defer em.mu.Unlock()
	em.used = 0
}

// Used reports bytes currently allocated.
func (em *ExecutableMemory) Used() int {
	em.mu.Lock()
	defer em.mu.Unlock()
	return em.used
}

// Capacity reports the arena's total size.
func (em *ExecutableMemory) Capacity() int { return len(em.buffer) }

// Free unmaps the arena. The ExecutableMemory must not be used afterward.
func (em *ExecutableMemory) Free() error {
	em.mu.Lock()
	defer em.mu.Unlock()
	if em.buffer == nil {
		return nil
	}
	err := unix.Munmap(em.buffer)
	em.buffer = nil
	em.used = 0
	return err
}
