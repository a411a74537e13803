package display

import (
	"image"

	"github.com/efejjota/wasmcanvas/internal/page"
	"github.com/fogleman/gg"
)

// SnapshotGrid is the layout used for contact sheets.
var SnapshotGrid = Grid{Gap: 8, Label: 16}

// Sheet composes every canvas into one labelled image.
func Sheet(canvases []*page.Element) image.Image {
	imgs := make([]*image.RGBA, len(canvases))
	sizes := make([]image.Point, len(canvases))
	for i, el := range canvases {
		imgs[i] = el.Canvas().Snapshot()
		sizes[i] = imgs[i].Bounds().Size()
	}
	rects := SnapshotGrid.Layout(sizes)
	bounds := SnapshotGrid.Bounds(rects)

	dc := gg.NewContext(max(bounds.X, 1), max(bounds.Y, 1))
	dc.SetRGB(0.12, 0.12, 0.14)
	dc.Clear()
	for i, r := range rects {
		if r.Empty() {
			continue
		}
		dc.DrawImage(imgs[i], r.Min.X, r.Min.Y)

		dc.SetRGB(0.9, 0.9, 0.9)
		dc.DrawStringAnchored(canvases[i].ID, float64(r.Min.X), float64(r.Max.Y+SnapshotGrid.Label/2), 0, 0.5)

		dc.SetRGB(0.4, 0.4, 0.45)
		dc.SetLineWidth(1)
		dc.DrawRectangle(float64(r.Min.X)-0.5, float64(r.Min.Y)-0.5, float64(r.Dx())+1, float64(r.Dy())+1)
		dc.Stroke()
	}
	return dc.Image()
}

// Snapshot writes the contact sheet of canvases to path as PNG.
func Snapshot(path string, canvases []*page.Element) error {
	return gg.SavePNG(path, Sheet(canvases))
}
