package surface

import (
	"testing"
)

func rgba(n int, seed byte) []byte {
	pix := make([]byte, n*4)
	for i := range pix {
		pix[i] = seed + byte(i)
	}
	return pix
}

func TestPutCopiesRows(t *testing.T) {
	s := NewImage(4, 3)
	pix := rgba(12, 1)
	if err := s.Put(pix, 4, 3); err != nil {
		t.Fatalf("Put: %v", err)
	}
	snap := s.Snapshot()
	for i := range pix {
		if snap.Pix[i] != pix[i] {
			t.Fatalf("pixel byte %d = %d, want %d", i, snap.Pix[i], pix[i])
		}
	}
	pix[0] = 0
	if s.Snapshot().Pix[0] != 1 {
		t.Error("surface aliases the caller's buffer")
	}
}

func TestPutClipsToBounds(t *testing.T) {
	s := NewImage(2, 2)
	pix := rgba(9, 0) // 3x3
	if err := s.Put(pix, 3, 3); err != nil {
		t.Fatalf("Put: %v", err)
	}
	snap := s.Snapshot()
	// second surface row starts at the second source row
	if snap.Pix[8] != pix[12] {
		t.Errorf("row 1 starts with %d, want %d", snap.Pix[8], pix[12])
	}
}

func TestPutRejectsShortData(t *testing.T) {
	s := NewImage(4, 3)
	if err := s.Put(make([]byte, 47), 4, 3); err == nil {
		t.Error("expected error for short pixel data")
	}
	if s.Generation() != 0 {
		t.Error("failed put must not bump the generation")
	}
}

func TestResize(t *testing.T) {
	s := NewImage(DefaultWidth, DefaultHeight)
	if w, h := s.Size(); w != 300 || h != 150 {
		t.Fatalf("Size = %dx%d, want 300x150", w, h)
	}

	s.Resize(300, 150)
	if s.Generation() != 0 {
		t.Error("resize to the same size should be a no-op")
	}

	s.Resize(8, 6)
	if w, h := s.Size(); w != 8 || h != 6 {
		t.Errorf("Size = %dx%d, want 8x6", w, h)
	}
	if s.Generation() != 1 {
		t.Errorf("Generation = %d, want 1", s.Generation())
	}
}
