package demo

import (
	"context"
	"errors"
	"os"
	"path/filepath"
	"testing"

	"github.com/efejjota/wasmcanvas/internal/frame"
	"github.com/efejjota/wasmcanvas/internal/loader"
	"github.com/efejjota/wasmcanvas/internal/page"
	"github.com/efejjota/wasmcanvas/internal/wasmtest"
	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

type fixture struct {
	host  *Host
	queue *frame.Queue
	logs  *observer.ObservedLogs
	dir   string
}

func newFixture(t *testing.T) *fixture {
	t.Helper()
	l, err := loader.New(zaptest.NewLogger(t), nil)
	if err != nil {
		t.Fatalf("loader.New: %v", err)
	}
	t.Cleanup(func() { l.Close(context.Background()) })

	core, logs := observer.New(zapcore.ErrorLevel)
	q := frame.NewQueue()
	h := NewHost(l, q, zap.New(core))
	t.Cleanup(func() { h.Close(context.Background()) })
	return &fixture{host: h, queue: q, logs: logs, dir: t.TempDir()}
}

// module writes a descriptor-convention module to disk and returns its path.
func (f *fixture) module(t *testing.T, name string, m wasmtest.DescriptorModule) string {
	t.Helper()
	path := filepath.Join(f.dir, name)
	if err := os.WriteFile(path, m.Build(), 0644); err != nil {
		t.Fatalf("write %s: %v", path, err)
	}
	return path
}

func pageWithCanvas(ids ...string) *page.Document {
	doc := page.NewDocument()
	for _, id := range ids {
		section := page.NewElement("section", "sec-"+id)
		section.AppendChild(page.NewElement(page.CanvasTag, id))
		doc.Append(section)
	}
	return doc
}

var demoModule = wasmtest.DescriptorModule{HeapBase: 1024, ExportHeapBase: true}

// publish stages a 2x2 canvas in every mounted demo so its frames render.
func (f *fixture) publish(t *testing.T) {
	t.Helper()
	for _, inst := range f.host.Instances() {
		if !wasmtest.PutWords(inst.Module.Module.ExportedMemory("memory"), 0, 2048, 2, 2, 2, 5) {
			t.Fatalf("%s: stage descriptor", inst.Name)
		}
	}
}

func TestStartupIndependence(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "demo.wasm", demoModule)
	doc := pageWithCanvas("present")

	err := f.host.StartAll(ctx, doc, []page.DemoSpec{
		{Name: "missing", Canvas: "absent", Src: src},
		{Name: "present", Canvas: "present", Src: src},
	})
	if err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	f.publish(t)
	f.queue.Tick(1000)

	if n := f.logs.Len(); n != 1 {
		t.Errorf("error logs = %d, want 1", n)
	}
	running := 0
	for _, inst := range f.host.Instances() {
		if inst.Driver.State() == frame.Running {
			running++
		}
	}
	if running != 1 {
		t.Errorf("running instances = %d, want 1", running)
	}
}

func TestStartConfigErrors(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "demo.wasm", demoModule)
	doc := pageWithCanvas("view")

	specs := []page.DemoSpec{
		{Name: "no-canvas", Canvas: "nope", Src: src},
		{Name: "no-section", Canvas: "view", Section: "nope", Src: src},
		{Name: "no-src", Canvas: "view"},
		{Name: "section-not-canvas", Canvas: "sec-view", Src: src},
	}
	for _, spec := range specs {
		if err := f.host.Start(ctx, doc, spec); err != nil {
			t.Errorf("Start(%s) = %v, want nil", spec.Name, err)
		}
	}
	if err := f.host.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}

	if n := f.logs.Len(); n != len(specs) {
		t.Errorf("error logs = %d, want %d", n, len(specs))
	}
	for _, entry := range f.logs.All() {
		if entry.Message != "Demo configuration error" {
			t.Errorf("unexpected log %q", entry.Message)
		}
		if _, ok := entry.ContextMap()["error"]; !ok {
			t.Errorf("log %q has no error attached", entry.Message)
		}
	}
	if len(f.host.Instances()) != 0 {
		t.Errorf("instances = %d, want 0", len(f.host.Instances()))
	}
}

func TestStartMissingHeapBaseIsConfigError(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "nobase.wasm", wasmtest.DescriptorModule{})

	if err := f.host.StartAll(ctx, pageWithCanvas("view"), []page.DemoSpec{{Name: "nobase", Canvas: "view", Src: src}}); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	if f.logs.FilterMessage("Demo configuration error").Len() != 1 {
		t.Errorf("logs = %v, want one configuration error", f.logs.All())
	}
}

func TestStartFetchFailureIsReturned(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := filepath.Join(f.dir, "missing.wasm")

	err := f.host.StartAll(ctx, pageWithCanvas("view"), []page.DemoSpec{{Name: "gone", Canvas: "view", Src: src}})
	var fe *loader.FetchError
	if !errors.As(err, &fe) {
		t.Fatalf("StartAll = %v, want a FetchError", err)
	}
	if f.logs.FilterMessage("Failed to start demo").Len() != 1 {
		t.Errorf("logs = %v, want one startup failure", f.logs.All())
	}
}

func TestStartAllContinuesPastInvalidOptions(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "demo.wasm", demoModule)
	doc := pageWithCanvas("first", "second")

	err := f.host.StartAll(ctx, doc, []page.DemoSpec{
		{Name: "sideways", Canvas: "first", Src: src, Convention: "sideways"},
		{Name: "second", Canvas: "second", Src: src},
	})
	if err != nil {
		t.Fatalf("StartAll = %v, want nil", err)
	}
	instances := f.host.Instances()
	if len(instances) != 1 || instances[0].Name != "second" {
		t.Fatalf("instances = %v, want only second", instances)
	}
	entries := f.logs.FilterMessage("Demo configuration error").All()
	if len(entries) != 1 || entries[0].ContextMap()["demo"] != "sideways" {
		t.Errorf("logs = %v, want one configuration error for sideways", f.logs.All())
	}
}

func TestStartUnknownConvention(t *testing.T) {
	f := newFixture(t)
	err := f.host.Start(context.Background(), pageWithCanvas("view"), page.DemoSpec{Name: "x", Canvas: "view", Src: "x.wasm", Convention: "sideways"})
	var ue *frame.UnknownConventionError
	if !errors.As(err, &ue) {
		t.Errorf("Start = %v, want UnknownConventionError", err)
	}
}

func TestHoverPause(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "demo.wasm", demoModule)
	doc := pageWithCanvas("view")

	if err := f.host.StartAll(ctx, doc, []page.DemoSpec{{Name: "hover", Canvas: "view", Section: "sec-view", Src: src}}); err != nil {
		t.Fatalf("StartAll: %v", err)
	}
	instances := f.host.Instances()
	if len(instances) != 1 {
		t.Fatalf("instances = %d, want 1", len(instances))
	}
	d := instances[0].Driver
	if !d.Paused() {
		t.Fatal("hover demo did not start paused")
	}
	f.publish(t)

	f.queue.Tick(0)
	f.queue.Tick(16)
	if d.Frames() != 1 {
		t.Errorf("frames while paused = %d, want the first frame only", d.Frames())
	}

	section := doc.GetElementByID("sec-view")
	section.Dispatch(page.EventMouseEnter)
	f.queue.Tick(32)
	if d.Paused() || d.Frames() != 2 {
		t.Errorf("after mouseenter: paused = %v, frames = %d", d.Paused(), d.Frames())
	}

	section.Dispatch(page.EventMouseLeave)
	f.queue.Tick(48)
	if !d.Paused() || d.Frames() != 2 {
		t.Errorf("after mouseleave: paused = %v, frames = %d", d.Paused(), d.Frames())
	}
}

func TestDefineElement(t *testing.T) {
	ctx := context.Background()
	f := newFixture(t)
	src := f.module(t, "demo.wasm", demoModule)

	doc := page.NewDocument()
	early := page.NewElement("wasm-canvas", "early")
	early.SetAttr("src", src)
	doc.Append(early)

	f.host.DefineElement(ctx, doc, "wasm-canvas")

	late := page.NewElement("wasm-canvas", "late")
	late.SetAttr("src", src)
	doc.Append(late)

	doc.Append(page.NewElement("wasm-canvas", "nosrc"))

	if err := f.host.Wait(); err != nil {
		t.Fatalf("Wait: %v", err)
	}
	if n := len(f.host.Instances()); n != 2 {
		t.Errorf("instances = %d, want 2", n)
	}
	for _, id := range []string{"early-canvas", "late-canvas"} {
		if el := doc.GetElementByID(id); el == nil || el.Canvas() == nil {
			t.Errorf("child canvas %s missing", id)
		}
	}
	if doc.GetElementByID("nosrc-canvas") != nil {
		t.Error("element without src got a canvas")
	}
	if f.logs.FilterMessage("Demo configuration error").Len() != 1 {
		t.Errorf("logs = %v, want one configuration error", f.logs.All())
	}

	f.publish(t)
	f.queue.Tick(0)
	for _, inst := range f.host.Instances() {
		if inst.Driver.State() != frame.Running {
			t.Errorf("%s state = %v, want running", inst.Name, inst.Driver.State())
		}
	}
}

func TestElementOptions(t *testing.T) {
	el := page.NewElement("wasm-canvas", "")
	el.SetAttr("convention", "direct")
	el.SetAttr("width", "64")
	el.SetAttr("height", "32")
	el.SetAttr("base-export", "canvas_base")

	opts, err := elementOptions(el)
	if err != nil {
		t.Fatal(err)
	}
	if opts.Convention != frame.Direct || opts.Width != 64 || opts.Height != 32 || opts.BaseExport != "canvas_base" {
		t.Errorf("options = %+v", opts)
	}

	el.SetAttr("width", "wide")
	if _, err := elementOptions(el); err == nil {
		t.Error("non-numeric width accepted")
	}
}
