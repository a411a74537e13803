package page

import (
	"fmt"
	"os"
	"path/filepath"
	"strings"

	"github.com/efejjota/wasmcanvas/internal/frame"
	"gopkg.in/yaml.v3"
)

// DefaultCustomElement is the tag of the declarative embedding element.
const DefaultCustomElement = "wasm-canvas"

// Manifest describes a page: its element tree and the demos started on
// it by element id.
type Manifest struct {
	Title         string        `yaml:"title"`
	CustomElement string        `yaml:"custom_element"`
	Elements      []ElementSpec `yaml:"elements"`
	Demos         []DemoSpec    `yaml:"demos"`

	path string
}

// ElementSpec declares one element and its subtree.
type ElementSpec struct {
	Tag      string            `yaml:"tag"`
	ID       string            `yaml:"id"`
	Attrs    map[string]string `yaml:"attrs"`
	Children []ElementSpec     `yaml:"children"`
}

// DemoSpec binds a module to a canvas element.
type DemoSpec struct {
	Name string `yaml:"name"`
	// Canvas is the id of the target canvas element.
	Canvas string `yaml:"canvas"`
	// Section is the id of the element whose hover resumes the demo.
	// Demos with a section start paused.
	Section string `yaml:"section"`
	// Src is the module path or URL.
	Src            string  `yaml:"src"`
	Convention     string  `yaml:"convention"`
	Render         string  `yaml:"render"`
	Width          int     `yaml:"width"`
	Height         int     `yaml:"height"`
	BaseExport     string  `yaml:"base_export"`
	DescriptorBase *uint32 `yaml:"descriptor_base"`
}

// Options converts the demo into frame driver options.
func (d DemoSpec) Options() (frame.Options, error) {
	conv, err := frame.ParseConvention(d.Convention)
	if err != nil {
		return frame.Options{}, err
	}
	return frame.Options{
		Convention:     conv,
		Render:         d.Render,
		Width:          d.Width,
		Height:         d.Height,
		BaseExport:     d.BaseExport,
		DescriptorBase: d.DescriptorBase,
		Paused:         d.Section != "",
	}, nil
}

// ParseManifest reads and validates the manifest at path. Relative module
// paths are resolved against the manifest's directory.
func ParseManifest(path string) (*Manifest, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, &ManifestNotFoundError{Path: path, Err: err}
	}
	return DecodeManifest(data, path)
}

// DecodeManifest parses manifest bytes. path is used for error messages
// and to resolve relative module paths.
func DecodeManifest(data []byte, path string) (*Manifest, error) {
	var m Manifest
	if err := yaml.Unmarshal(data, &m); err != nil {
		return nil, &ManifestParseError{Path: path, Err: err}
	}
	m.path = path
	if m.CustomElement == "" {
		m.CustomElement = DefaultCustomElement
	}

	if err := m.Validate(); err != nil {
		return nil, err
	}

	dir := filepath.Dir(path)
	for i := range m.Demos {
		m.Demos[i].Src = ResolveSrc(dir, m.Demos[i].Src)
	}
	resolveAttrs(dir, m.Elements)
	return &m, nil
}

// Validate checks the manifest. Demos referring to elements that do not
// exist are left to fail at startup, one at a time.
func (m *Manifest) Validate() error {
	ids := make(map[string]bool)
	if err := m.validateElements("elements", m.Elements, ids); err != nil {
		return err
	}

	names := make(map[string]bool)
	for i, d := range m.Demos {
		field := fmt.Sprintf("demos[%d]", i)
		if d.Name == "" {
			return &ManifestValidationError{Path: m.path, Field: field + ".name", Message: "name is required"}
		}
		if names[d.Name] {
			return &ManifestValidationError{
				Path:    m.path,
				Field:   field + ".name",
				Message: fmt.Sprintf("duplicate demo name: %s", d.Name),
			}
		}
		names[d.Name] = true
		if _, err := frame.ParseConvention(d.Convention); err != nil {
			return &ManifestValidationError{Path: m.path, Field: field + ".convention", Message: err.Error()}
		}
		if d.Width < 0 || d.Height < 0 {
			return &ManifestValidationError{Path: m.path, Field: field, Message: "width and height must not be negative"}
		}
	}
	return nil
}

func (m *Manifest) validateElements(field string, specs []ElementSpec, ids map[string]bool) error {
	for i, el := range specs {
		f := fmt.Sprintf("%s[%d]", field, i)
		if el.Tag == "" {
			return &ManifestValidationError{Path: m.path, Field: f + ".tag", Message: "tag is required"}
		}
		if el.ID != "" {
			if ids[el.ID] {
				return &ManifestValidationError{
					Path:    m.path,
					Field:   f + ".id",
					Message: fmt.Sprintf("duplicate element id: %s", el.ID),
				}
			}
			ids[el.ID] = true
		}
		if err := m.validateElements(f+".children", el.Children, ids); err != nil {
			return err
		}
	}
	return nil
}

// Path returns the manifest file path.
func (m *Manifest) Path() string {
	return m.path
}

// Build creates the declared elements and appends them to doc.
func (m *Manifest) Build(doc *Document) {
	for _, spec := range m.Elements {
		doc.Append(spec.element())
	}
}

func (s ElementSpec) element() *Element {
	el := NewElement(s.Tag, s.ID)
	for k, v := range s.Attrs {
		el.SetAttr(k, v)
	}
	for _, child := range s.Children {
		el.AppendChild(child.element())
	}
	return el
}

// ResolveSrc joins a relative file path onto dir. URLs, absolute paths
// and empty strings are returned unchanged.
func ResolveSrc(dir, src string) string {
	if src == "" || filepath.IsAbs(src) ||
		strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return src
	}
	return filepath.Join(dir, src)
}

func resolveAttrs(dir string, specs []ElementSpec) {
	for i := range specs {
		if src, ok := specs[i].Attrs["src"]; ok {
			specs[i].Attrs["src"] = ResolveSrc(dir, src)
		}
		resolveAttrs(dir, specs[i].Children)
	}
}
