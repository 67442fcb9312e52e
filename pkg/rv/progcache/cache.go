// Package progcache is an optional, disk-backed cache of program decode
// metadata: which PCs begin a basic block, keyed by a BLAKE2b-256 digest of
// the raw guest image. It never stores guest memory contents or compiled
// machine code — only metadata that is cheap to recompute and therefore
// safe to treat as a cache, so a repeatedly-loaded guest image (a fuzzer
// driving the same binary thousands of times, a CLI reloading the same ELF
// across invocations) can skip redundant block-boundary analysis on restart.
//
// Grounded on the teacher's in-process programCache (pkg/pvm/pvm.go, a
// SHA-256-keyed map) generalized to a disk-backed store using the teacher's
// own Pebble-open pattern (pkg/staterepository/pebblerepository.go) and its
// blake2b keying convention (pkg/pvm/hostfunctions.go).
package progcache

import (
	"bytes"
	"encoding/gob"

	"github.com/cockroachdb/pebble"
	"golang.org/x/crypto/blake2b"

	"rv32vm/pkg/rv/rverr"
)

// Record is the metadata stored for one guest image.
type Record struct {
	// BlockStarts lists every guest PC known to begin a basic block,
	// ascending.
	BlockStarts []uint32
	// TimesSeen counts how many times Put has stored a record for this
	// image; Get does not change it.
	TimesSeen uint32
}

// Cache wraps a Pebble database. Safe for concurrent use by independent
// machine.Processor instances — Pebble does its own internal locking, so no
// additional lock is taken here (see SPEC_FULL.md §5's concurrency note).
type Cache struct {
	db *pebble.DB
}

// Open opens (creating if absent) a Pebble database at dir.
func Open(dir string) (*Cache, error) {
	db, err := pebble.Open(dir, &pebble.Options{})
	if err != nil {
		return nil, rverr.Wrap(err, "progcache: open")
	}
	return &Cache{db: db}, nil
}

func key(image []byte) []byte {
	h := blake2b.Sum256(image)
	return h[:]
}

// Get looks up the record for image. found is false (with a nil error) on a
// cache miss; an error is only returned for a Pebble I/O failure or a
// corrupt stored record.
func (c *Cache) Get(image []byte) (rec *Record, found bool, err error) {
	val, closer, err := c.db.Get(key(image))
	if err == pebble.ErrNotFound {
		return nil, false, nil
	}
	if err != nil {
		return nil, false, rverr.Wrap(err, "progcache: get")
	}
	defer closer.Close()

	var r Record
	if decErr := gob.NewDecoder(bytes.NewReader(val)).Decode(&r); decErr != nil {
		return nil, false, rverr.Wrap(decErr, "progcache: corrupt record")
	}
	return &r, true, nil
}

// Put stores blockStarts for image, incrementing TimesSeen on top of
// whatever was already recorded (0 if this image was never seen before).
func (c *Cache) Put(image []byte, blockStarts []uint32) (*Record, error) {
	existing, found, err := c.Get(image)
	if err != nil {
		return nil, err
	}
	rec := &Record{BlockStarts: blockStarts, TimesSeen: 1}
	if found {
		rec.TimesSeen = existing.TimesSeen + 1
	}

	var buf bytes.Buffer
	if err := gob.NewEncoder(&buf).Encode(rec); err != nil {
		return nil, rverr.Wrap(err, "progcache: encode record")
	}
	if err := c.db.Set(key(image), buf.Bytes(), pebble.Sync); err != nil {
		return nil, rverr.Wrap(err, "progcache: put")
	}
	return rec, nil
}

// Close releases the underlying Pebble handle.
func (c *Cache) Close() error {
	if c == nil || c.db == nil {
		return nil
	}
	if err := c.db.Close(); err != nil {
		return rverr.Wrap(err, "progcache: close")
	}
	return nil
}
