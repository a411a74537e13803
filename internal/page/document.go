// Package page models the document demos are embedded in: elements
// looked up by id, canvas elements backed by drawing surfaces, pointer
// events, and custom tags initialised when attached.
package page

import (
	"sync"

	"github.com/efejjota/wasmcanvas/internal/surface"
)

// Pointer events dispatched by display back-ends.
const (
	EventMouseEnter = "mouseenter"
	EventMouseLeave = "mouseleave"
)

// CanvasTag is the tag of elements backed by a drawing surface.
const CanvasTag = "canvas"

// Element is a node of the document.
type Element struct {
	ID  string
	Tag string

	mu        sync.Mutex
	attrs     map[string]string
	canvas    *surface.Image
	parent    *Element
	children  []*Element
	listeners map[string][]func()
}

// NewElement creates a detached element. Canvas elements get a surface
// of the default size.
func NewElement(tag, id string) *Element {
	el := &Element{
		ID:        id,
		Tag:       tag,
		attrs:     make(map[string]string),
		listeners: make(map[string][]func()),
	}
	if tag == CanvasTag {
		el.canvas = surface.NewImage(surface.DefaultWidth, surface.DefaultHeight)
	}
	return el
}

func (e *Element) Attr(name string) (string, bool) {
	e.mu.Lock()
	defer e.mu.Unlock()
	v, ok := e.attrs[name]
	return v, ok
}

func (e *Element) SetAttr(name, value string) {
	e.mu.Lock()
	e.attrs[name] = value
	e.mu.Unlock()
}

// Canvas returns the element's own surface, or nil for non-canvas
// elements.
func (e *Element) Canvas() *surface.Image {
	return e.canvas
}

func (e *Element) Parent() *Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return e.parent
}

func (e *Element) Children() []*Element {
	e.mu.Lock()
	defer e.mu.Unlock()
	return append([]*Element(nil), e.children...)
}

// AppendChild attaches child below e. Use Document.AppendChild to also
// register ids and fire attach hooks.
func (e *Element) AppendChild(child *Element) {
	e.mu.Lock()
	e.children = append(e.children, child)
	e.mu.Unlock()

	child.mu.Lock()
	child.parent = e
	child.mu.Unlock()
}

// AddEventListener registers fn for event.
func (e *Element) AddEventListener(event string, fn func()) {
	e.mu.Lock()
	e.listeners[event] = append(e.listeners[event], fn)
	e.mu.Unlock()
}

// Dispatch runs the listeners of event on this element only.
func (e *Element) Dispatch(event string) {
	e.mu.Lock()
	fns := append([]func(){}, e.listeners[event]...)
	e.mu.Unlock()
	for _, fn := range fns {
		fn()
	}
}

// AttachFunc initialises an element of a custom tag once it is attached.
type AttachFunc func(el *Element)

// Document is the set of attached elements.
type Document struct {
	mu       sync.Mutex
	roots    []*Element
	byID     map[string]*Element
	defs     map[string]AttachFunc
	attached []*Element
}

// NewDocument returns an empty document.
func NewDocument() *Document {
	return &Document{
		byID: make(map[string]*Element),
		defs: make(map[string]AttachFunc),
	}
}

// GetElementByID returns the attached element with id, or nil.
func (d *Document) GetElementByID(id string) *Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	return d.byID[id]
}

// Append attaches el, with its subtree, at the top level.
func (d *Document) Append(el *Element) {
	d.mu.Lock()
	d.roots = append(d.roots, el)
	d.mu.Unlock()
	d.attach(el)
}

// AppendChild attaches child below an attached parent.
func (d *Document) AppendChild(parent, child *Element) {
	parent.AppendChild(child)
	d.attach(child)
}

// attach registers the subtree and fires attach hooks, parents first.
// Hooks run outside the document lock so they may append children.
func (d *Document) attach(el *Element) {
	d.mu.Lock()
	if el.ID != "" {
		d.byID[el.ID] = el
	}
	d.attached = append(d.attached, el)
	hook := d.defs[el.Tag]
	d.mu.Unlock()

	// Children appended by the hook attach themselves.
	children := el.Children()
	if hook != nil {
		hook(el)
	}
	for _, child := range children {
		d.attach(child)
	}
}

// Define registers hook for tag and upgrades already attached elements
// of that tag.
func (d *Document) Define(tag string, hook AttachFunc) {
	d.mu.Lock()
	d.defs[tag] = hook
	var upgrade []*Element
	for _, el := range d.attached {
		if el.Tag == tag {
			upgrade = append(upgrade, el)
		}
	}
	d.mu.Unlock()

	for _, el := range upgrade {
		hook(el)
	}
}

// Canvases returns every attached canvas element in attach order.
func (d *Document) Canvases() []*Element {
	d.mu.Lock()
	defer d.mu.Unlock()
	var out []*Element
	for _, el := range d.attached {
		if el.canvas != nil {
			out = append(out, el)
		}
	}
	return out
}

// Ancestry returns el followed by its ancestors, nearest first.
func Ancestry(el *Element) []*Element {
	var out []*Element
	for ; el != nil; el = el.Parent() {
		out = append(out, el)
	}
	return out
}
