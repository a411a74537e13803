// Package window shows every canvas of a page in a desktop window. The
// window owns the frame clock: each ebiten update ticks the frame queue,
// so all module calls happen on ebiten's update goroutine.
package window

import (
	"context"
	"errors"
	"image"
	"time"

	"github.com/efejjota/wasmcanvas/internal/display"
	"github.com/efejjota/wasmcanvas/internal/frame"
	"github.com/efejjota/wasmcanvas/internal/page"
	"github.com/hajimehoshi/ebiten/v2"
	"github.com/hajimehoshi/ebiten/v2/ebitenutil"
	"go.uber.org/zap"
)

// Config controls the window.
type Config struct {
	Title string
	Scale int
}

var grid = display.Grid{Gap: 8, Label: 16}

type tile struct {
	img *ebiten.Image
	gen uint64
}

type game struct {
	ctx    context.Context
	doc    *page.Document
	queue  *frame.Queue
	logger *zap.Logger
	start  time.Time

	hover    display.Hover
	canvases []*page.Element
	rects    []image.Rectangle
	tiles    map[*page.Element]*tile
}

// Run opens the window and blocks until it is closed or ctx is done.
func Run(ctx context.Context, doc *page.Document, queue *frame.Queue, cfg Config, logger *zap.Logger) error {
	if cfg.Scale <= 0 {
		cfg.Scale = 1
	}
	g := &game{
		ctx:    ctx,
		doc:    doc,
		queue:  queue,
		logger: logger.With(zap.String("component", "window")),
		start:  time.Now(),
		tiles:  make(map[*page.Element]*tile),
	}
	g.layout()
	size := g.bounds()

	ebiten.SetWindowTitle(cfg.Title)
	ebiten.SetWindowSize(size.X*cfg.Scale, size.Y*cfg.Scale)
	ebiten.SetWindowResizingMode(ebiten.WindowResizingModeEnabled)
	ebiten.SetTPS(60)

	g.logger.Info("Opening window",
		zap.Int("canvases", len(g.canvases)),
		zap.Int("width", size.X),
		zap.Int("height", size.Y),
	)
	if err := ebiten.RunGame(g); err != nil && !errors.Is(err, ebiten.Termination) {
		return err
	}
	return nil
}

func (g *game) layout() {
	g.canvases = g.doc.Canvases()
	sizes := make([]image.Point, len(g.canvases))
	for i, el := range g.canvases {
		w, h := el.Canvas().Size()
		sizes[i] = image.Pt(w, h)
	}
	g.rects = grid.Layout(sizes)
}

func (g *game) bounds() image.Point {
	b := grid.Bounds(g.rects)
	return image.Pt(max(b.X, 1), max(b.Y, 1))
}

// Update runs one animation frame for every driver, then re-lays out the
// tiles, since descriptor modules may have resized their canvas, and
// turns the cursor position into hover events.
func (g *game) Update() error {
	if g.ctx.Err() != nil {
		return ebiten.Termination
	}
	g.queue.Tick(float64(time.Since(g.start).Microseconds()) / 1000)
	g.layout()

	x, y := ebiten.CursorPosition()
	if i := display.HitTest(g.rects, image.Pt(x, y)); i >= 0 {
		g.hover.Move(g.canvases[i])
	} else {
		g.hover.Move(nil)
	}
	return nil
}

func (g *game) Draw(screen *ebiten.Image) {
	for i, el := range g.canvases {
		t := g.tile(el)
		if t == nil {
			continue
		}
		r := g.rects[i]
		op := &ebiten.DrawImageOptions{}
		op.GeoM.Translate(float64(r.Min.X), float64(r.Min.Y))
		screen.DrawImage(t.img, op)
		ebitenutil.DebugPrintAt(screen, el.ID, r.Min.X, r.Max.Y)
	}
}

// tile uploads the canvas to its ebiten image when it changed since the
// last draw.
func (g *game) tile(el *page.Element) *tile {
	c := el.Canvas()
	w, h := c.Size()
	if w == 0 || h == 0 {
		return nil
	}

	t := g.tiles[el]
	if t == nil || t.img.Bounds().Dx() != w || t.img.Bounds().Dy() != h {
		if t != nil {
			t.img.Deallocate()
		}
		t = &tile{img: ebiten.NewImage(w, h)}
		g.tiles[el] = t
	} else if t.gen == c.Generation() {
		return t
	}

	gen := c.Generation()
	snap := c.Snapshot()
	if snap.Bounds().Dx() != w || snap.Bounds().Dy() != h {
		// Resized between Size and Snapshot; pick it up next draw.
		return t
	}
	t.img.WritePixels(snap.Pix)
	t.gen = gen
	return t
}

func (g *game) Layout(outsideWidth, outsideHeight int) (int, int) {
	b := g.bounds()
	return b.X, b.Y
}
