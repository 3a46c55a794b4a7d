package dmabuf_test

import (
	"bytes"
	"testing"

	"github.com/tamago-contrib/pataide/dmabuf"
)

func TestAllocReturnsAlignedDistinctBuffers(t *testing.T) {
	r := dmabuf.NewRegion(0x1000, 2*4096)

	buf1, phys1, err := r.Alloc(8, 4)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	buf2, phys2, err := r.Alloc(4096, 4096)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if phys2%4096 != 0 {
		t.Fatalf("phys2 = %#x, not 4096-aligned", phys2)
	}
	if phys1 == phys2 {
		t.Fatalf("Alloc returned overlapping physical addresses")
	}

	buf1[0] = 0xAA
	if buf2[0] == 0xAA {
		t.Fatalf("buffers alias each other")
	}
}

func TestAllocExhaustion(t *testing.T) {
	r := dmabuf.NewRegion(0, 16)
	if _, _, err := r.Alloc(17, 1); err != dmabuf.ErrOutOfMemory {
		t.Fatalf("err = %v, want ErrOutOfMemory", err)
	}
}

func TestFreeReturnsBlockToPool(t *testing.T) {
	r := dmabuf.NewRegion(0, 16)

	_, phys, err := r.Alloc(16, 1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}
	if _, _, err := r.Alloc(1, 1); err != dmabuf.ErrOutOfMemory {
		t.Fatalf("expected exhaustion before Free, got %v", err)
	}

	r.Free(phys)

	if _, _, err := r.Alloc(16, 1); err != nil {
		t.Fatalf("Alloc after Free: %v", err)
	}
}

func TestAtReturnsAliasingSlice(t *testing.T) {
	r := dmabuf.NewRegion(0x2000, 64)

	buf, phys, err := r.Alloc(16, 1)
	if err != nil {
		t.Fatalf("Alloc: %v", err)
	}

	view := r.At(phys, 16)
	copy(view, bytes.Repeat([]byte{0x5A}, 16))

	if !bytes.Equal(buf, view) {
		t.Fatalf("At does not alias the allocated buffer")
	}
}
