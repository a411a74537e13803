// Package wasmtest encodes small WebAssembly binaries for tests.
//
// Modules are assembled section by section from function signatures,
// imports, globals, a single memory and raw instruction bodies, so tests
// can exercise the host against real wazero instances without shipping
// prebuilt .wasm files.
package wasmtest

import (
	"math"

	"github.com/tetratelabs/wazero/api"
)

// Builder accumulates the pieces of a module. Function imports must be
// declared before any local function because they occupy the low end of
// the function index space.
type Builder struct {
	imports   []importFunc
	funcs     []funcDef
	globals   []globalDef
	hasMemory bool
	memPages  uint32
	memExport string
}

type importFunc struct {
	module  string
	name    string
	params  []api.ValueType
	results []api.ValueType
}

type funcDef struct {
	export  string
	params  []api.ValueType
	results []api.ValueType
	locals  []api.ValueType
	body    Code
}

type globalDef struct {
	export  string
	valType api.ValueType
	mutable bool
	init    int64
}

// New returns an empty builder.
func New() *Builder {
	return &Builder{}
}

// ImportFunc declares a function import and returns its function index.
func (b *Builder) ImportFunc(module, name string, params, results []api.ValueType) uint32 {
	if len(b.funcs) > 0 {
		panic("wasmtest: function imports must precede local functions")
	}
	b.imports = append(b.imports, importFunc{module: module, name: name, params: params, results: results})
	return uint32(len(b.imports) - 1)
}

// Func adds a local function and returns its function index. An empty
// export name keeps the function private.
func (b *Builder) Func(export string, params, results, locals []api.ValueType, body Code) uint32 {
	b.funcs = append(b.funcs, funcDef{export: export, params: params, results: results, locals: locals, body: body})
	return uint32(len(b.imports) + len(b.funcs) - 1)
}

// Global adds a global initialised with a constant and returns its index.
func (b *Builder) Global(export string, valType api.ValueType, mutable bool, init int64) uint32 {
	b.globals = append(b.globals, globalDef{export: export, valType: valType, mutable: mutable, init: init})
	return uint32(len(b.globals) - 1)
}

// Memory declares the module's linear memory with the given minimum page
// count, exported under name when name is not empty.
func (b *Builder) Memory(pages uint32, name string) {
	b.hasMemory = true
	b.memPages = pages
	b.memExport = name
}

// Build encodes the module.
func (b *Builder) Build() []byte {
	var wasm []byte
	wasm = append(wasm, 0x00, 0x61, 0x73, 0x6d)
	wasm = append(wasm, 0x01, 0x00, 0x00, 0x00)

	if len(b.imports)+len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x01, b.typeSection())
	}
	if len(b.imports) > 0 {
		wasm = appendSection(wasm, 0x02, b.importSection())
	}
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x03, b.funcSection())
	}
	if b.hasMemory {
		var mem []byte
		mem = append(mem, 0x01, 0x00)
		mem = append(mem, EncodeULEB128(b.memPages)...)
		wasm = appendSection(wasm, 0x05, mem)
	}
	if len(b.globals) > 0 {
		wasm = appendSection(wasm, 0x06, b.globalSection())
	}
	wasm = appendSection(wasm, 0x07, b.exportSection())
	if len(b.funcs) > 0 {
		wasm = appendSection(wasm, 0x0a, b.codeSection())
	}
	return wasm
}

func appendSection(wasm []byte, id byte, section []byte) []byte {
	wasm = append(wasm, id)
	wasm = append(wasm, EncodeULEB128(uint32(len(section)))...)
	return append(wasm, section...)
}

func appendName(dst []byte, name string) []byte {
	dst = append(dst, EncodeULEB128(uint32(len(name)))...)
	return append(dst, name...)
}

func appendSignature(dst []byte, params, results []api.ValueType) []byte {
	dst = append(dst, 0x60)
	dst = append(dst, EncodeULEB128(uint32(len(params)))...)
	for _, t := range params {
		dst = append(dst, t)
	}
	dst = append(dst, EncodeULEB128(uint32(len(results)))...)
	for _, t := range results {
		dst = append(dst, t)
	}
	return dst
}

// One type per function: imports first, then locals, so a function's
// type index equals its function index.
func (b *Builder) typeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)+len(b.funcs)))...)
	for _, f := range b.imports {
		section = appendSignature(section, f.params, f.results)
	}
	for _, f := range b.funcs {
		section = appendSignature(section, f.params, f.results)
	}
	return section
}

func (b *Builder) importSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.imports)))...)
	for i, f := range b.imports {
		section = appendName(section, f.module)
		section = appendName(section, f.name)
		section = append(section, 0x00)
		section = append(section, EncodeULEB128(uint32(i))...)
	}
	return section
}

func (b *Builder) funcSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for i := range b.funcs {
		section = append(section, EncodeULEB128(uint32(len(b.imports)+i))...)
	}
	return section
}

func (b *Builder) globalSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.globals)))...)
	for _, g := range b.globals {
		section = append(section, g.valType)
		if g.mutable {
			section = append(section, 0x01)
		} else {
			section = append(section, 0x00)
		}
		switch g.valType {
		case api.ValueTypeI64:
			section = append(section, 0x42)
			section = append(section, EncodeSLEB128(g.init)...)
		case api.ValueTypeF32:
			section = append(section, 0x43)
			section = appendU32(section, math.Float32bits(float32(g.init)))
		case api.ValueTypeF64:
			section = append(section, 0x44)
			bits := math.Float64bits(float64(g.init))
			section = appendU32(section, uint32(bits))
			section = appendU32(section, uint32(bits>>32))
		default:
			section = append(section, 0x41)
			section = append(section, EncodeSLEB128(int64(int32(g.init)))...)
		}
		section = append(section, 0x0b)
	}
	return section
}

func (b *Builder) exportSection() []byte {
	var entries []byte
	count := 0
	if b.hasMemory && b.memExport != "" {
		entries = appendName(entries, b.memExport)
		entries = append(entries, 0x02, 0x00)
		count++
	}
	for i, g := range b.globals {
		if g.export == "" {
			continue
		}
		entries = appendName(entries, g.export)
		entries = append(entries, 0x03)
		entries = append(entries, EncodeULEB128(uint32(i))...)
		count++
	}
	for i, f := range b.funcs {
		if f.export == "" {
			continue
		}
		entries = appendName(entries, f.export)
		entries = append(entries, 0x00)
		entries = append(entries, EncodeULEB128(uint32(len(b.imports)+i))...)
		count++
	}
	section := EncodeULEB128(uint32(count))
	return append(section, entries...)
}

func (b *Builder) codeSection() []byte {
	var section []byte
	section = append(section, EncodeULEB128(uint32(len(b.funcs)))...)
	for _, f := range b.funcs {
		var body []byte
		body = append(body, EncodeULEB128(uint32(len(f.locals)))...)
		for _, t := range f.locals {
			body = append(body, 0x01, t)
		}
		body = append(body, f.body...)
		body = append(body, 0x0b)
		section = append(section, EncodeULEB128(uint32(len(body)))...)
		section = append(section, body...)
	}
	return section
}

func appendU32(dst []byte, v uint32) []byte {
	return append(dst, byte(v), byte(v>>8), byte(v>>16), byte(v>>24))
}

// EncodeULEB128 encodes an unsigned LEB128 integer.
func EncodeULEB128(v uint32) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		if v != 0 {
			c |= 0x80
		}
		out = append(out, c)
		if v == 0 {
			return out
		}
	}
}

// EncodeSLEB128 encodes a signed LEB128 integer.
func EncodeSLEB128(v int64) []byte {
	var out []byte
	for {
		c := byte(v & 0x7f)
		v >>= 7
		done := (v == 0 && c&0x40 == 0) || (v == -1 && c&0x40 != 0)
		if !done {
			c |= 0x80
		}
		out = append(out, c)
		if done {
			return out
		}
	}
}
