// Package display shows the canvases of a page: tile layout and hover
// tracking shared by the back-ends, a headless frame clock, a terminal
// renderer and PNG snapshots.
package display

import (
	"image"
	"math"
)

// Grid lays canvases out in rows of tiles. Each cell is as large as the
// biggest canvas in its row and column.
type Grid struct {
	// Cols is the number of tiles per row; 0 picks a near-square grid.
	Cols int
	// Gap is the space between tiles and around the edge.
	Gap int
	// Label is the height reserved below each tile for its caption.
	Label int
}

func (g Grid) cols(n int) int {
	if g.Cols > 0 {
		return g.Cols
	}
	return max(1, int(math.Ceil(math.Sqrt(float64(n)))))
}

// Layout returns one tile rectangle per size, in order. Sizes with zero
// area take no cell and get an empty rectangle.
func (g Grid) Layout(sizes []image.Point) []image.Rectangle {
	if len(sizes) == 0 {
		return nil
	}
	rects := make([]image.Rectangle, len(sizes))
	var shown []int
	for i, s := range sizes {
		if s.X > 0 && s.Y > 0 {
			shown = append(shown, i)
		}
	}
	if len(shown) == 0 {
		return rects
	}

	cols := g.cols(len(shown))
	rows := (len(shown) + cols - 1) / cols

	colW := make([]int, cols)
	rowH := make([]int, rows)
	for n, i := range shown {
		colW[n%cols] = max(colW[n%cols], sizes[i].X)
		rowH[n/cols] = max(rowH[n/cols], sizes[i].Y)
	}

	y := g.Gap
	for r := 0; r < rows; r++ {
		x := g.Gap
		for c := 0; c < cols; c++ {
			n := r*cols + c
			if n >= len(shown) {
				break
			}
			i := shown[n]
			rects[i] = image.Rect(x, y, x+sizes[i].X, y+sizes[i].Y)
			x += colW[c] + g.Gap
		}
		y += rowH[r] + g.Label + g.Gap
	}
	return rects
}

// Bounds returns the size of the area covering every tile and its
// caption, gap included. Empty tiles are ignored.
func (g Grid) Bounds(rects []image.Rectangle) image.Point {
	var p image.Point
	for _, r := range rects {
		if r.Empty() {
			continue
		}
		p.X = max(p.X, r.Max.X+g.Gap)
		p.Y = max(p.Y, r.Max.Y+g.Label+g.Gap)
	}
	return p
}

// HitTest returns the index of the tile containing p, or -1.
func HitTest(rects []image.Rectangle, p image.Point) int {
	for i, r := range rects {
		if p.In(r) {
			return i
		}
	}
	return -1
}
