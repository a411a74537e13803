// Package demo mounts modules onto canvases. Demos are started eagerly by
// element id or lazily by a custom element; both go through Mount.
package demo

import (
	"context"
	"errors"
	"fmt"
	"strconv"
	"sync"

	"github.com/efejjota/wasmcanvas/internal/frame"
	"github.com/efejjota/wasmcanvas/internal/loader"
	"github.com/efejjota/wasmcanvas/internal/page"
	"github.com/efejjota/wasmcanvas/internal/surface"
	"go.uber.org/zap"
	"golang.org/x/sync/errgroup"
)

// Loader turns a source into a linked instance. *loader.Loader
// satisfies it.
type Loader interface {
	Load(ctx context.Context, src loader.Source) (*loader.Instance, error)
}

// ConfigError reports a demo that cannot start because the page is not
// set up for it.
type ConfigError struct {
	Demo    string
	Message string
	Err     error
}

func (e *ConfigError) Error() string {
	if e.Err != nil {
		return fmt.Sprintf("demo '%s': %s: %v", e.Demo, e.Message, e.Err)
	}
	return fmt.Sprintf("demo '%s': %s", e.Demo, e.Message)
}

func (e *ConfigError) Unwrap() error {
	return e.Err
}

// Instance is a mounted demo.
type Instance struct {
	Name   string
	Driver *frame.Driver
	Target surface.Surface
	Module *loader.Instance
}

// Host starts demos and tracks the ones that made it. Startups run
// concurrently and independently: one failing never cancels another.
type Host struct {
	loader Loader
	sched  frame.Scheduler
	base   *zap.Logger
	logger *zap.Logger
	group  errgroup.Group

	mu        sync.Mutex
	instances []*Instance
}

// NewHost creates a host whose drivers schedule frames on sched.
func NewHost(l Loader, sched frame.Scheduler, logger *zap.Logger) *Host {
	return &Host{
		loader: l,
		sched:  sched,
		base:   logger,
		logger: logger.With(zap.String("component", "demo")),
	}
}

// Mount loads src, drives it onto target and schedules its first frame.
func (h *Host) Mount(ctx context.Context, name string, target surface.Surface, src loader.Source, opts frame.Options) (*frame.Driver, error) {
	inst, err := h.loader.Load(ctx, src)
	if err != nil {
		return nil, err
	}

	driver, err := frame.NewDriver(ctx, inst.Module, target, h.sched, h.base, opts)
	if err != nil {
		inst.Close(ctx)
		return nil, err
	}

	h.mu.Lock()
	h.instances = append(h.instances, &Instance{
		Name:   name,
		Driver: driver,
		Target: target,
		Module: inst,
	})
	h.mu.Unlock()

	driver.Start()
	h.logger.Info("Demo mounted",
		zap.String("demo", name),
		zap.String("src", src.Name()),
		zap.Bool("paused", opts.Paused),
	)
	return driver, nil
}

// Start looks up the demo's elements and mounts it in the background.
// Configuration errors are logged and abort this demo only; Start
// returns an error only when the demo options themselves are invalid.
func (h *Host) Start(ctx context.Context, doc *page.Document, spec page.DemoSpec) error {
	opts, err := spec.Options()
	if err != nil {
		return err
	}

	canvas := doc.GetElementByID(spec.Canvas)
	if canvas == nil || canvas.Canvas() == nil {
		h.configError(&ConfigError{
			Demo:    spec.Name,
			Message: fmt.Sprintf("Could not find canvas element '%s'. Skipping demo", spec.Canvas),
		})
		return nil
	}

	var section *page.Element
	if spec.Section != "" {
		if section = doc.GetElementByID(spec.Section); section == nil {
			h.configError(&ConfigError{
				Demo:    spec.Name,
				Message: fmt.Sprintf("Could not find section element '%s'. Skipping demo", spec.Section),
			})
			return nil
		}
	}

	if spec.Src == "" {
		h.configError(&ConfigError{Demo: spec.Name, Message: "src is required. Skipping demo"})
		return nil
	}

	h.group.Go(func() error {
		driver, err := h.mount(ctx, spec.Name, canvas.Canvas(), spec.Src, opts)
		if err != nil || driver == nil {
			return err
		}
		if section != nil {
			section.AddEventListener(page.EventMouseEnter, func() { driver.SetPaused(false) })
			section.AddEventListener(page.EventMouseLeave, func() { driver.SetPaused(true) })
		}
		return nil
	})
	return nil
}

// StartAll starts every demo and waits for their startups. A demo with
// invalid options is logged and skipped like any other configuration
// error.
func (h *Host) StartAll(ctx context.Context, doc *page.Document, specs []page.DemoSpec) error {
	for _, spec := range specs {
		if err := h.Start(ctx, doc, spec); err != nil {
			h.configError(&ConfigError{Demo: spec.Name, Message: "invalid options. Skipping demo", Err: err})
		}
	}
	return h.Wait()
}

// DefineElement registers tag as an embedding element. Each attached
// element reads its src attribute, creates a child canvas and mounts the
// module onto it.
func (h *Host) DefineElement(ctx context.Context, doc *page.Document, tag string) {
	doc.Define(tag, func(el *page.Element) {
		name := el.ID
		if name == "" {
			name = tag
		}
		src, _ := el.Attr("src")
		if src == "" {
			h.configError(&ConfigError{Demo: name, Message: "src attribute is required. Skipping element"})
			return
		}
		opts, err := elementOptions(el)
		if err != nil {
			h.configError(&ConfigError{Demo: name, Message: "invalid attributes. Skipping element", Err: err})
			return
		}

		id := ""
		if el.ID != "" {
			id = el.ID + "-canvas"
		}
		canvas := page.NewElement(page.CanvasTag, id)
		doc.AppendChild(el, canvas)

		h.group.Go(func() error {
			_, err := h.mount(ctx, name, canvas.Canvas(), src, opts)
			return err
		})
	})
}

func elementOptions(el *page.Element) (frame.Options, error) {
	var opts frame.Options
	var err error
	if v, ok := el.Attr("convention"); ok {
		if opts.Convention, err = frame.ParseConvention(v); err != nil {
			return opts, err
		}
	}
	opts.Render, _ = el.Attr("render")
	opts.BaseExport, _ = el.Attr("base-export")
	for attr, dst := range map[string]*int{"width": &opts.Width, "height": &opts.Height} {
		if v, ok := el.Attr(attr); ok {
			if *dst, err = strconv.Atoi(v); err != nil {
				return opts, fmt.Errorf("%s: %w", attr, err)
			}
		}
	}
	return opts, nil
}

// mount wraps Mount for background startups. A module missing an export
// is a configuration error; fetch, compile and link failures are fatal
// for the demo and returned.
func (h *Host) mount(ctx context.Context, name string, target surface.Surface, src string, opts frame.Options) (*frame.Driver, error) {
	driver, err := h.Mount(ctx, name, target, loader.Open(src), opts)
	if err == nil {
		return driver, nil
	}

	var missing *frame.MissingExportError
	if errors.As(err, &missing) {
		h.configError(&ConfigError{Demo: name, Message: "module does not satisfy its export contract", Err: err})
		return nil, nil
	}
	h.logger.Error("Failed to start demo", zap.String("demo", name), zap.Error(err))
	return nil, fmt.Errorf("demo '%s': %w", name, err)
}

func (h *Host) configError(err *ConfigError) {
	h.logger.Error("Demo configuration error", zap.String("demo", err.Demo), zap.Error(err))
}

// Wait blocks until every pending startup finished and returns the first
// fatal error.
func (h *Host) Wait() error {
	return h.group.Wait()
}

// Instances returns the mounted demos in mount order.
func (h *Host) Instances() []*Instance {
	h.mu.Lock()
	defer h.mu.Unlock()
	return append([]*Instance(nil), h.instances...)
}

// Close releases every mounted module.
func (h *Host) Close(ctx context.Context) error {
	h.mu.Lock()
	instances := h.instances
	h.instances = nil
	h.mu.Unlock()

	var errs []error
	for _, inst := range instances {
		if err := inst.Module.Close(ctx); err != nil {
			errs = append(errs, fmt.Errorf("close %s: %w", inst.Name, err))
		}
	}
	return errors.Join(errs...)
}
