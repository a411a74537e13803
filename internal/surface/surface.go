// Package surface provides the 2D drawing surface frames are blitted to.
package surface

import (
	"fmt"
	"image"
	"sync"
)

// Default size of a freshly created canvas.
const (
	DefaultWidth  = 300
	DefaultHeight = 150
)

// Surface receives whole RGBA8 frames.
type Surface interface {
	Size() (width, height int)
	// Resize changes the surface size. Changing it clears the contents.
	Resize(width, height int)
	// Put copies width*height RGBA8 pixels to the origin, clipped to the
	// surface bounds.
	Put(pix []byte, width, height int) error
}

// Image is an in-memory Surface. Back-ends read it through Snapshot from
// any goroutine.
type Image struct {
	mu  sync.RWMutex
	img *image.RGBA
	gen uint64
}

// NewImage returns a cleared surface of the given size.
func NewImage(width, height int) *Image {
	return &Image{img: image.NewRGBA(image.Rect(0, 0, width, height))}
}

func (s *Image) Size() (int, int) {
	s.mu.RLock()
	defer s.mu.RUnlock()
	b := s.img.Bounds()
	return b.Dx(), b.Dy()
}

func (s *Image) Resize(width, height int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	if b.Dx() == width && b.Dy() == height {
		return
	}
	s.img = image.NewRGBA(image.Rect(0, 0, width, height))
	s.gen++
}

func (s *Image) Put(pix []byte, width, height int) error {
	if width < 0 || height < 0 || len(pix) < width*height*4 {
		return fmt.Errorf("pixel data holds %d bytes, need %d for %dx%d", len(pix), width*height*4, width, height)
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	b := s.img.Bounds()
	w := min(width, b.Dx())
	h := min(height, b.Dy())
	for y := 0; y < h; y++ {
		copy(s.img.Pix[y*s.img.Stride:y*s.img.Stride+w*4], pix[y*width*4:])
	}
	s.gen++
	return nil
}

// Generation increases on every resize or put.
func (s *Image) Generation() uint64 {
	s.mu.RLock()
	defer s.mu.RUnlock()
	return s.gen
}

// Snapshot returns a copy of the current contents.
func (s *Image) Snapshot() *image.RGBA {
	s.mu.RLock()
	defer s.mu.RUnlock()
	out := image.NewRGBA(s.img.Bounds())
	copy(out.Pix, s.img.Pix)
	return out
}
