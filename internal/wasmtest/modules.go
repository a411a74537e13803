package wasmtest

import (
	"github.com/tetratelabs/wazero/api"
)

var (
	i32 = api.ValueTypeI32
	f32 = api.ValueTypeF32
)

// Global indices shared by the canned modules.
const (
	GlobalFrames   = 0
	GlobalHeapBase = 1
	GlobalInited   = 1
)

// DescriptorModule configures a module following the descriptor
// convention. Each render call copies five words from Staging into the
// descriptor at the base pointer it was handed, so tests steer the
// decoded canvas by writing the staging area between frames.
type DescriptorModule struct {
	HeapBase       uint32
	ExportHeapBase bool
	// BaseFunc, when set, exports a nullary function returning HeapBase.
	BaseFunc string
	Staging  uint32
	Pages    uint32
	// Trace imports env.trace(f32) and calls it with every dt.
	Trace bool
	// Trap makes render hit unreachable after bumping the frame counter.
	Trap   bool
	Render string
}

// Build encodes the module.
func (m DescriptorModule) Build() []byte {
	b := New()
	var trace uint32
	if m.Trace {
		trace = b.ImportFunc("env", "trace", []api.ValueType{f32}, nil)
	}
	b.Global("frames", i32, true, 0)
	if m.ExportHeapBase {
		b.Global("__heap_base", i32, false, int64(m.HeapBase))
	}
	b.Memory(pagesOr(m.Pages), "memory")

	var body Code
	if m.Trace {
		body = body.LocalGet(1).Call(trace)
	}
	body = body.GlobalGet(GlobalFrames).I32Const(1).I32Add().GlobalSet(GlobalFrames)
	if m.Trap {
		body = body.Unreachable()
	}
	for k := uint32(0); k < 5; k++ {
		body = body.LocalGet(0).I32Const(0).I32Load(m.Staging + 4*k).I32Store(4 * k)
	}
	render := m.Render
	if render == "" {
		render = "render"
	}
	b.Func(render, []api.ValueType{i32, f32}, nil, nil, body)

	if m.BaseFunc != "" {
		b.Func(m.BaseFunc, nil, []api.ValueType{i32}, nil, Code{}.I32Const(int32(m.HeapBase)))
	}
	return b.Build()
}

// DirectModule configures a module following the direct-pixel
// convention: init sets the "inited" global, render returns Pixels.
type DirectModule struct {
	Pixels uint32
	Pages  uint32
	Trace  bool
	NoInit bool
}

// Build encodes the module.
func (m DirectModule) Build() []byte {
	b := New()
	var trace uint32
	if m.Trace {
		trace = b.ImportFunc("env", "trace", []api.ValueType{f32}, nil)
	}
	b.Global("frames", i32, true, 0)
	b.Global("inited", i32, true, 0)
	b.Memory(pagesOr(m.Pages), "memory")

	if !m.NoInit {
		b.Func("init", nil, nil, nil, Code{}.I32Const(1).GlobalSet(GlobalInited))
	}
	var body Code
	if m.Trace {
		body = body.LocalGet(0).Call(trace)
	}
	body = body.GlobalGet(GlobalFrames).I32Const(1).I32Add().GlobalSet(GlobalFrames)
	body = body.I32Const(int32(m.Pixels))
	b.Func("render", []api.ValueType{f32}, []api.ValueType{i32}, nil, body)
	return b.Build()
}

// MathModule imports atan2f, sinf, powf and ilogb from env and exports
// thin wrappers "atan2", "sin", "pow" and "ilogb" around them.
func MathModule() []byte {
	b := New()
	atan2f := b.ImportFunc("env", "atan2f", []api.ValueType{f32, f32}, []api.ValueType{f32})
	sinf := b.ImportFunc("env", "sinf", []api.ValueType{f32}, []api.ValueType{f32})
	powf := b.ImportFunc("env", "powf", []api.ValueType{f32, f32}, []api.ValueType{f32})
	ilogb := b.ImportFunc("env", "ilogb", []api.ValueType{i32}, []api.ValueType{i32})

	b.Func("atan2", []api.ValueType{f32, f32}, []api.ValueType{f32}, nil,
		Code{}.LocalGet(0).LocalGet(1).Call(atan2f))
	b.Func("sin", []api.ValueType{f32}, []api.ValueType{f32}, nil,
		Code{}.LocalGet(0).Call(sinf))
	b.Func("pow", []api.ValueType{f32, f32}, []api.ValueType{f32}, nil,
		Code{}.LocalGet(0).LocalGet(1).Call(powf))
	b.Func("ilogb", []api.ValueType{i32}, []api.ValueType{i32}, nil,
		Code{}.LocalGet(0).Call(ilogb))
	return b.Build()
}

// PutWords writes little-endian words at offset.
func PutWords(mem api.Memory, offset uint32, words ...uint32) bool {
	for i, w := range words {
		if !mem.WriteUint32Le(offset+uint32(4*i), w) {
			return false
		}
	}
	return true
}

func pagesOr(pages uint32) uint32 {
	if pages == 0 {
		return 1
	}
	return pages
}
