package progcache

import (
	"testing"
)

func TestCacheGetMissThenPutThenGetHit(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	image := []byte{0x13, 0x00, 0x00, 0x00, 0x6f, 0x00, 0x00, 0x00}

	if _, found, err := c.Get(image); err != nil || found {
		t.Fatalf("Get before Put: found=%v err=%v, want found=false err=nil", found, err)
	}

	starts := ScanBlockStarts(image)
	rec, err := c.Put(image, starts)
	if err != nil {
		t.Fatalf("Put: %v", err)
	}
	if rec.TimesSeen != 1 {
		t.Errorf("TimesSeen after first Put = %d, want 1", rec.TimesSeen)
	}

	got, found, err := c.Get(image)
	if err != nil || !found {
		t.Fatalf("Get after Put: found=%v err=%v, want found=true err=nil", found, err)
	}
	if len(got.BlockStarts) != len(starts) {
		t.Fatalf("BlockStarts round-trip length = %d, want %d", len(got.BlockStarts), len(starts))
	}
	for i := range starts {
		if got.BlockStarts[i] != starts[i] {
			t.Errorf("BlockStarts[%d] = %d, want %d", i, got.BlockStarts[i], starts[i])
		}
	}
}

func TestCachePutTwiceIncrementsTimesSeen(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	image := []byte{0x37, 0x00, 0x00, 0x00}

	if _, err := c.Put(image, []uint32{0}); err != nil {
		t.Fatalf("first Put: %v", err)
	}
	rec, err := c.Put(image, []uint32{0})
	if err != nil {
		t.Fatalf("second Put: %v", err)
	}
	if rec.TimesSeen != 2 {
		t.Errorf("TimesSeen after second Put = %d, want 2", rec.TimesSeen)
	}
}

func TestCacheDistinctImagesDistinctRecords(t *testing.T) {
	c, err := Open(t.TempDir())
	if err != nil {
		t.Fatalf("Open: %v", err)
	}
	defer c.Close()

	imageA := []byte{0x13, 0x00, 0x00, 0x00}
	imageB := []byte{0x37, 0x00, 0x00, 0x00}

	if _, err := c.Put(imageA, []uint32{0}); err != nil {
		t.Fatalf("Put A: %v", err)
	}
	if _, found, err := c.Get(imageB); err != nil || found {
		t.Fatalf("Get B before its own Put: found=%v err=%v, want found=false", found, err)
	}
}

func TestCacheCloseOnNilIsSafe(t *testing.T) {
	var c *Cache
	if err := c.Close(); err != nil {
		t.Errorf("Close on nil *Cache = %v, want nil", err)
	}
}
