package display

import "github.com/efejjota/wasmcanvas/internal/page"

// Hover turns "the pointer is over this element" updates into
// mouseenter and mouseleave events. Like a browser, entering a canvas
// also enters every ancestor, so a section wrapping the canvas sees the
// pointer too.
type Hover struct {
	inside []*page.Element
}

// Move reports the element under the pointer, or nil.
func (h *Hover) Move(el *page.Element) {
	next := page.Ancestry(el)

	for _, old := range h.inside {
		if !contains(next, old) {
			old.Dispatch(page.EventMouseLeave)
		}
	}
	// Outermost first, matching enter order in a document.
	for i := len(next) - 1; i >= 0; i-- {
		if !contains(h.inside, next[i]) {
			next[i].Dispatch(page.EventMouseEnter)
		}
	}
	h.inside = next
}

// Current returns the element under the pointer, or nil.
func (h *Hover) Current() *page.Element {
	if len(h.inside) == 0 {
		return nil
	}
	return h.inside[0]
}

func contains(els []*page.Element, el *page.Element) bool {
	for _, e := range els {
		if e == el {
			return true
		}
	}
	return false
}
