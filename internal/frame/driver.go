// Package frame drives a module instance once per animation frame: it
// calls the render export, decodes the pixel surface the module produced
// and blits it to a display surface.
package frame

import (
	"context"
	"errors"
	"strings"
	"sync/atomic"

	"github.com/efejjota/wasmcanvas/internal/canvas"
	"github.com/efejjota/wasmcanvas/internal/surface"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/sys"
	"go.uber.org/zap"
)

// Export names of the module contract.
const (
	MemoryExport   = "memory"
	RenderExport   = "render"
	InitExport     = "init"
	HeapBaseExport = "__heap_base"

	// LegacyRenderExport is tried when a module has no render export and
	// no render name is configured.
	LegacyRenderExport = "vc_render"
)

// Display size used by the direct convention when none is configured.
const (
	DefaultWidth  = 800
	DefaultHeight = 600
)

// Convention selects how a module hands its pixels to the host.
type Convention int

const (
	// Descriptor: render(base, dt) fills the canvas descriptor at base.
	Descriptor Convention = iota
	// Direct: render(dt) returns a pointer to a fixed-size pixel buffer.
	Direct
)

func (c Convention) String() string {
	switch c {
	case Descriptor:
		return "descriptor"
	case Direct:
		return "direct"
	default:
		return "unknown"
	}
}

// ParseConvention accepts "descriptor" (the default for "") or "direct".
func ParseConvention(name string) (Convention, error) {
	switch strings.ToLower(strings.TrimSpace(name)) {
	case "", "descriptor":
		return Descriptor, nil
	case "direct":
		return Direct, nil
	default:
		return 0, &UnknownConventionError{Name: name}
	}
}

// State is the lifecycle position of a driver.
type State int32

const (
	Loading State = iota
	AwaitingFirstFrame
	Running
	Abandoned
)

func (s State) String() string {
	switch s {
	case Loading:
		return "loading"
	case AwaitingFirstFrame:
		return "awaiting-first-frame"
	case Running:
		return "running"
	case Abandoned:
		return "abandoned"
	default:
		return "unknown"
	}
}

// Instance is the part of a live module the driver needs. api.Module
// satisfies it.
type Instance interface {
	Name() string
	ExportedFunction(name string) api.Function
	ExportedGlobal(name string) api.Global
	ExportedMemory(name string) api.Memory
}

// Options configure a driver.
type Options struct {
	Convention Convention
	// Render overrides the render export name.
	Render string
	// Width and Height fix the display size for the direct convention.
	Width, Height int
	// BaseExport names the global, or nullary function, holding the
	// descriptor base. Defaults to __heap_base.
	BaseExport string
	// DescriptorBase pins the descriptor base and skips BaseExport.
	DescriptorBase *uint32
	// Paused starts the driver paused.
	Paused bool
}

// Driver owns one instance's frame loop. All frame callbacks run on the
// scheduler's goroutine; only the paused flag is touched from elsewhere.
type Driver struct {
	ctx     context.Context
	mod     Instance
	opts    Options
	render  api.Function
	memory  api.Memory
	base    uint32
	target  surface.Surface
	sched   Scheduler
	logger  *zap.Logger
	prev    float64
	state   atomic.Int32
	paused  atomic.Bool
	frames  atomic.Uint64
	skipped atomic.Uint64
}

// NewDriver resolves the exports the convention needs, runs the direct
// convention's init, and leaves the driver awaiting its first frame.
func NewDriver(ctx context.Context, mod Instance, target surface.Surface, sched Scheduler, logger *zap.Logger, opts Options) (*Driver, error) {
	d := &Driver{
		ctx:    ctx,
		mod:    mod,
		opts:   opts,
		target: target,
		sched:  sched,
		logger: logger.With(
			zap.String("component", "frame"),
			zap.String("module", mod.Name()),
		),
	}
	d.paused.Store(opts.Paused)

	renderName := opts.Render
	if renderName == "" {
		renderName = RenderExport
		if mod.ExportedFunction(RenderExport) == nil && mod.ExportedFunction(LegacyRenderExport) != nil {
			renderName = LegacyRenderExport
		}
	}
	if d.render = mod.ExportedFunction(renderName); d.render == nil {
		return nil, &MissingExportError{Module: mod.Name(), Export: renderName}
	}
	if d.memory = mod.ExportedMemory(MemoryExport); d.memory == nil {
		return nil, &MissingExportError{Module: mod.Name(), Export: MemoryExport}
	}

	switch opts.Convention {
	case Direct:
		def := d.render.Definition()
		if !sameTypes(def.ParamTypes(), api.ValueTypeF32) || !sameTypes(def.ResultTypes(), api.ValueTypeI32) {
			return nil, &MissingExportError{Module: mod.Name(), Export: renderName, Hint: "render must take (dt f32) and return a pixel pointer"}
		}
		if opts.Width <= 0 {
			d.opts.Width = DefaultWidth
		}
		if opts.Height <= 0 {
			d.opts.Height = DefaultHeight
		}
		if err := canvas.ValidateSize(uint32(d.opts.Width), uint32(d.opts.Height)); err != nil {
			return nil, err
		}
		target.Resize(d.opts.Width, d.opts.Height)
		if init := mod.ExportedFunction(InitExport); init != nil {
			if _, err := init.Call(ctx); err != nil {
				return nil, err
			}
		}
	default:
		if !sameTypes(d.render.Definition().ParamTypes(), api.ValueTypeI32, api.ValueTypeF32) {
			return nil, &MissingExportError{Module: mod.Name(), Export: renderName, Hint: "render must take (descriptor base i32, dt f32)"}
		}
		base, err := d.resolveBase()
		if err != nil {
			return nil, err
		}
		d.base = base
	}

	d.state.Store(int32(AwaitingFirstFrame))
	d.logger.Info("Frame driver ready",
		zap.Stringer("convention", opts.Convention),
		zap.Uint32("descriptor_base", d.base),
	)
	return d, nil
}

func sameTypes(got []api.ValueType, want ...api.ValueType) bool {
	if len(got) != len(want) {
		return false
	}
	for i := range got {
		if got[i] != want[i] {
			return false
		}
	}
	return true
}

func (d *Driver) resolveBase() (uint32, error) {
	if d.opts.DescriptorBase != nil {
		return *d.opts.DescriptorBase, nil
	}
	name := d.opts.BaseExport
	if name == "" {
		name = HeapBaseExport
	}
	if g := d.mod.ExportedGlobal(name); g != nil {
		return api.DecodeU32(g.Get()), nil
	}
	if fn := d.mod.ExportedFunction(name); fn != nil && len(fn.Definition().ParamTypes()) == 0 {
		res, err := fn.Call(d.ctx)
		if err != nil {
			return 0, err
		}
		if len(res) > 0 {
			return api.DecodeU32(res[0]), nil
		}
	}
	return 0, &MissingExportError{
		Module: d.mod.Name(),
		Export: name,
		Hint:   "compile the module with -Wl,--export=__heap_base or configure a descriptor base",
	}
}

// Start schedules the first frame.
func (d *Driver) Start() {
	d.sched.RequestFrame(d.first)
}

// The first frame has no previous timestamp: it renders right away with a
// zero delta, paused or not, so a paused instance still shows an image.
func (d *Driver) first(timestamp float64) {
	d.prev = timestamp
	d.state.Store(int32(Running))
	d.renderFrame(0)
	d.next()
}

func (d *Driver) loop(timestamp float64) {
	dt := (timestamp - d.prev) * 0.001
	d.prev = timestamp
	if !d.paused.Load() {
		d.renderFrame(dt)
	}
	d.next()
}

func (d *Driver) next() {
	if d.State() == Abandoned {
		return
	}
	d.sched.RequestFrame(d.loop)
}

func (d *Driver) renderFrame(dt float64) {
	var (
		pix           []byte
		width, height int
		err           error
	)
	switch d.opts.Convention {
	case Direct:
		pix, width, height, err = d.renderDirect(dt)
	default:
		pix, width, height, err = d.renderDescriptor(dt)
	}
	if err != nil {
		d.skip(err)
		return
	}

	if err := d.target.Put(pix, width, height); err != nil {
		d.skip(err)
		return
	}
	d.frames.Add(1)
}

func (d *Driver) renderDirect(dt float64) ([]byte, int, int, error) {
	res, err := d.render.Call(d.ctx, api.EncodeF32(float32(dt)))
	if err != nil {
		return nil, 0, 0, err
	}
	w, h := d.opts.Width, d.opts.Height
	pix, err := canvas.CopyPixels(d.memory, api.DecodeU32(res[0]), uint32(w), uint32(h))
	return pix, w, h, err
}

func (d *Driver) renderDescriptor(dt float64) ([]byte, int, int, error) {
	if _, err := d.render.Call(d.ctx, api.EncodeU32(d.base), api.EncodeF32(float32(dt))); err != nil {
		return nil, 0, 0, err
	}
	desc, err := canvas.Decode(d.memory, d.base)
	if err != nil {
		return nil, 0, 0, err
	}
	if err := desc.Validate(); err != nil {
		return nil, 0, 0, err
	}
	pix, err := canvas.CopyPixels(d.memory, desc.Pixels, desc.Width, desc.Height)
	if err != nil {
		return nil, 0, 0, err
	}
	d.target.Resize(int(desc.Width), int(desc.Height))
	return pix, int(desc.Width), int(desc.Height), nil
}

// skip drops the current frame. A module that exited cannot render again,
// so its chain is abandoned instead.
func (d *Driver) skip(err error) {
	var exitErr *sys.ExitError
	if errors.As(err, &exitErr) {
		d.state.Store(int32(Abandoned))
		d.logger.Error("Module exited, abandoning frame loop", zap.Uint32("exit_code", exitErr.ExitCode()))
		return
	}

	d.skipped.Add(1)
	var strideErr *canvas.StrideError
	if errors.As(err, &strideErr) {
		d.logger.Error("Canvas width is not equal to its stride, skipping frame",
			zap.Uint32("width", strideErr.Width),
			zap.Uint32("stride", strideErr.Stride),
		)
		return
	}
	d.logger.Error("Frame skipped", zap.Error(err))
}

// SetPaused freezes or resumes rendering. The callback chain keeps
// running either way.
func (d *Driver) SetPaused(paused bool) {
	d.paused.Store(paused)
}

func (d *Driver) Paused() bool {
	return d.paused.Load()
}

func (d *Driver) State() State {
	return State(d.state.Load())
}

// Frames returns the number of frames blitted.
func (d *Driver) Frames() uint64 {
	return d.frames.Load()
}

// Skipped returns the number of frames dropped by per-frame errors.
func (d *Driver) Skipped() uint64 {
	return d.skipped.Load()
}

// Name of the underlying module.
func (d *Driver) Name() string {
	return d.mod.Name()
}
