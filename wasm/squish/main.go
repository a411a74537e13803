//go:build wasm

// Command squish is a demo module for the descriptor convention. It draws
// a pulsing disc with gg into a static pixel buffer and publishes the
// buffer through the canvas descriptor the host hands to render.
//
// Build it with TinyGo as a reactor:
//
//	tinygo build -target=wasip1 -buildmode=c-shared -no-debug -o build/squish.wasm ./wasm/squish
package main

import (
	"image"
	"unsafe"

	"github.com/fogleman/gg"
)

const (
	width  = 256
	height = 256
)

// sinf and cosf come from the host's math table.
//
//go:wasmimport env sinf
func sinf(x float32) float32

//go:wasmimport env cosf
func cosf(x float32) float32

var (
	pixels     [width * height * 4]byte
	descriptor [5]uint32
	elapsed    float32
	dc         *gg.Context
)

func main() {}

func context() *gg.Context {
	if dc == nil {
		img := &image.RGBA{
			Pix:    pixels[:],
			Stride: width * 4,
			Rect:   image.Rect(0, 0, width, height),
		}
		dc = gg.NewContextForRGBA(img)
	}
	return dc
}

//export canvas_base
func canvasBase() uint32 {
	return uint32(uintptr(unsafe.Pointer(&descriptor[0])))
}

//export render
func render(base uint32, dt float32) {
	elapsed += dt
	squish := 0.3 * sinf(elapsed*3)

	dc := context()
	dc.SetRGB(0.09, 0.09, 0.11)
	dc.Clear()

	dc.Push()
	dc.Translate(width/2, height/2)
	dc.Rotate(float64(elapsed))
	dc.Scale(float64(1+squish), float64(1-squish))
	dc.DrawCircle(0, 0, 80)
	dc.SetRGB(0.5+0.5*float64(cosf(elapsed)), 0.35, 0.9)
	dc.Fill()
	dc.Pop()

	words := (*[5]uint32)(unsafe.Pointer(uintptr(base)))
	words[0] = uint32(uintptr(unsafe.Pointer(&pixels[0])))
	words[1] = width
	words[2] = height
	words[3] = width
	words[4] = uint32(len(words))
}
