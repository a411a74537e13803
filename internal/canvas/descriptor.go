// Package canvas decodes the pixel surface a module publishes in its
// linear memory.
//
// A module using the descriptor convention writes a five-word record
//
//	offset  0: pixels   byte offset of the RGBA8 pixel data
//	offset  4: width    in pixels
//	offset  8: height   in pixels
//	offset 12: stride   row length in pixels
//	offset 16: size     record size in words
//
// little-endian at a base address. The host only ever reads it.
package canvas

import (
	"encoding/binary"
	"errors"
	"fmt"
	"math"
)

// Word indices inside the descriptor record.
const (
	fieldPixels = iota
	fieldWidth
	fieldHeight
	fieldStride
	fieldSize
	descriptorWords
)

// DescriptorSize is the byte size of the record.
const DescriptorSize = descriptorWords * 4

// BytesPerPixel of the RGBA8 pixel format.
const BytesPerPixel = 4

// MaxDimension caps the width and height of a canvas.
const MaxDimension = 1 << 14

var (
	// ErrOutOfBounds is returned when a read falls outside linear memory.
	ErrOutOfBounds = errors.New("out of bounds of linear memory")
	// ErrEmpty is returned for a canvas with zero width or height.
	ErrEmpty = errors.New("canvas has zero area")
	// ErrTooLarge is returned for a canvas wider or taller than MaxDimension.
	ErrTooLarge = errors.New("canvas exceeds the maximum dimension")
)

// Memory is the read side of a module's linear memory. api.Memory
// satisfies it. Slices it returns may alias the memory and are only
// valid until the module runs again.
type Memory interface {
	Read(offset, byteCount uint32) ([]byte, bool)
}

// Descriptor is the decoded record.
type Descriptor struct {
	Pixels uint32
	Width  uint32
	Height uint32
	Stride uint32
	Size   uint32
}

// StrideError reports a canvas whose rows are padded. The display path
// copies rows back to back, so such a frame cannot be shown.
type StrideError struct {
	Width  uint32
	Stride uint32
}

func (e *StrideError) Error() string {
	return fmt.Sprintf("canvas width (%d) is not equal to its stride (%d)", e.Width, e.Stride)
}

// Decode reads the descriptor at base.
func Decode(mem Memory, base uint32) (Descriptor, error) {
	raw, ok := mem.Read(base, DescriptorSize)
	if !ok {
		return Descriptor{}, fmt.Errorf("descriptor at %d: %w", base, ErrOutOfBounds)
	}
	word := func(i int) uint32 {
		return binary.LittleEndian.Uint32(raw[i*4:])
	}
	return Descriptor{
		Pixels: word(fieldPixels),
		Width:  word(fieldWidth),
		Height: word(fieldHeight),
		Stride: word(fieldStride),
		Size:   word(fieldSize),
	}, nil
}

// Validate reports whether the canvas can be blitted as is.
func (d Descriptor) Validate() error {
	if d.Width != d.Stride {
		return &StrideError{Width: d.Width, Stride: d.Stride}
	}
	return ValidateSize(d.Width, d.Height)
}

// ValidateSize rejects canvases no display surface can hold.
func ValidateSize(width, height uint32) error {
	if width == 0 || height == 0 {
		return fmt.Errorf("%dx%d: %w", width, height, ErrEmpty)
	}
	if width > MaxDimension || height > MaxDimension {
		return fmt.Errorf("%dx%d (max %d): %w", width, height, MaxDimension, ErrTooLarge)
	}
	return nil
}

// ByteLen is the size of the pixel data the descriptor points at.
func (d Descriptor) ByteLen() uint64 {
	return uint64(d.Width) * uint64(d.Height) * BytesPerPixel
}

// CopyPixels copies width*height RGBA8 pixels starting at ptr into a new
// slice. The result never aliases linear memory, which may move when the
// module grows it.
func CopyPixels(mem Memory, ptr, width, height uint32) ([]byte, error) {
	n := uint64(width) * uint64(height) * BytesPerPixel
	if n > math.MaxUint32 {
		return nil, fmt.Errorf("%dx%d pixels at %d: %w", width, height, ptr, ErrOutOfBounds)
	}
	view, ok := mem.Read(ptr, uint32(n))
	if !ok {
		return nil, fmt.Errorf("%dx%d pixels at %d: %w", width, height, ptr, ErrOutOfBounds)
	}
	pix := make([]byte, len(view))
	copy(pix, view)
	return pix, nil
}
