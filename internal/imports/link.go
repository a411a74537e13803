package imports

import (
	"context"
	"fmt"
	"math"

	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"github.com/tetratelabs/wazero/imports/wasi_snapshot_preview1"
	"go.uber.org/zap"
)

// Namespace is the import module name served by the resolver.
const Namespace = "env"

// Binding records how one imported function was satisfied.
type Binding struct {
	Name     string
	Params   []api.ValueType
	Results  []api.ValueType
	Resolved bool
}

// Link instantiates the host modules compiled needs in rt: an "env"
// module with one function per env import, typed after the import, and
// the WASI preview1 module when compiled imports from it. Imports from
// any other namespace are left for instantiation to reject.
func (r *Resolver) Link(ctx context.Context, rt wazero.Runtime, compiled wazero.CompiledModule) ([]Binding, error) {
	builder := rt.NewHostModuleBuilder(Namespace)
	seen := make(map[string]bool)
	needWASI := false

	var bindings []Binding
	for _, def := range compiled.ImportedFunctions() {
		moduleName, name, _ := def.Import()
		if moduleName == wasi_snapshot_preview1.ModuleName {
			needWASI = true
			continue
		}
		if moduleName != Namespace || seen[name] {
			continue
		}
		seen[name] = true

		fn, ok := r.Lookup(name)
		if !ok {
			fn = r.stub(name)
			r.logger.Debug("Binding stub for unresolved import", zap.String("symbol", name))
		}
		b := Binding{
			Name:     name,
			Params:   def.ParamTypes(),
			Results:  def.ResultTypes(),
			Resolved: ok,
		}
		builder.NewFunctionBuilder().
			WithGoModuleFunction(hostFunc(fn, b.Params, b.Results), b.Params, b.Results).
			WithName(name).
			Export(name)
		bindings = append(bindings, b)
	}

	if needWASI {
		if _, err := wasi_snapshot_preview1.Instantiate(ctx, rt); err != nil {
			return nil, fmt.Errorf("failed to instantiate %s: %w", wasi_snapshot_preview1.ModuleName, err)
		}
	}
	if len(bindings) > 0 {
		if _, err := builder.Instantiate(ctx); err != nil {
			return nil, fmt.Errorf("failed to instantiate %s host module: %w", Namespace, err)
		}
	}
	return bindings, nil
}

// hostFunc adapts fn to the raw stack calling convention.
func hostFunc(fn Func, params, results []api.ValueType) api.GoModuleFunc {
	return func(ctx context.Context, mod api.Module, stack []uint64) {
		args := make([]float64, len(params))
		for i, t := range params {
			args[i] = decode(t, stack[i])
		}
		v := fn(args...)
		for i, t := range results {
			if i == 0 {
				stack[i] = encode(t, v)
			} else {
				stack[i] = 0
			}
		}
	}
}

func decode(t api.ValueType, v uint64) float64 {
	switch t {
	case api.ValueTypeI32:
		return float64(api.DecodeI32(v))
	case api.ValueTypeI64:
		return float64(int64(v))
	case api.ValueTypeF32:
		return float64(api.DecodeF32(v))
	case api.ValueTypeF64:
		return api.DecodeF64(v)
	default:
		return float64(v)
	}
}

func encode(t api.ValueType, v float64) uint64 {
	switch t {
	case api.ValueTypeF32:
		return api.EncodeF32(float32(v))
	case api.ValueTypeF64:
		return api.EncodeF64(v)
	case api.ValueTypeI32:
		return api.EncodeI32(int32(toInteger(v)))
	default:
		return api.EncodeI64(toInteger(v))
	}
}

// toInteger truncates toward zero; NaN, infinities and out-of-range
// values become 0.
func toInteger(v float64) int64 {
	if math.IsNaN(v) || math.IsInf(v, 0) || math.Abs(v) >= 1<<63 {
		return 0
	}
	return int64(math.Trunc(v))
}
