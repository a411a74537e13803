// Package imports supplies the "env" import namespace that graphics
// modules link against.
//
// A module compiled against a native math library imports whatever subset
// of it the compiler decided to keep. The host does not enumerate those
// symbols up front: each import is looked up in an ordered list of symbol
// tables and anything missing is bound to a stub that logs the call
// instead of failing instantiation.
package imports

import (
	"math"

	"go.uber.org/zap"
)

// Func is a host numeric primitive. Arguments and the result are widened
// to float64 regardless of the wasm value types at the call site.
type Func func(args ...float64) float64

// Table maps import names to host functions. Tables are read-only once
// handed to a Resolver.
type Table map[string]Func

// LibM returns the single-precision math symbols a C graphics module
// typically imports, backed by double-precision math. No truncation to
// 32 bits happens on the host side.
func LibM() Table {
	return Table{
		"atan2f": func(a ...float64) float64 { return math.Atan2(arg(a, 0), arg(a, 1)) },
		"cosf":   func(a ...float64) float64 { return math.Cos(arg(a, 0)) },
		"sinf":   func(a ...float64) float64 { return math.Sin(arg(a, 0)) },
		"sqrtf":  func(a ...float64) float64 { return math.Sqrt(arg(a, 0)) },
	}
}

// A missing argument behaves like an undefined number.
func arg(args []float64, i int) float64 {
	if i < len(args) {
		return args[i]
	}
	return math.NaN()
}

// Resolver looks names up in its tables in priority order.
type Resolver struct {
	tables []Table
	logger *zap.Logger
}

// NewResolver creates a resolver over tables, highest priority first.
func NewResolver(logger *zap.Logger, tables ...Table) *Resolver {
	return &Resolver{
		tables: tables,
		logger: logger.With(zap.String("component", "imports")),
	}
}

// Lookup returns the function bound to name in the first table that
// defines it. Nil entries count as undefined.
func (r *Resolver) Lookup(name string) (Func, bool) {
	for _, t := range r.tables {
		if fn, ok := t[name]; ok && fn != nil {
			return fn, true
		}
	}
	return nil, false
}

// Resolve never fails: a name absent from every table yields a stub.
func (r *Resolver) Resolve(name string) Func {
	if fn, ok := r.Lookup(name); ok {
		return fn
	}
	return r.stub(name)
}

// stub logs every invocation with the symbol name and its arguments and
// returns NaN, which is what an undefined result coerces to.
func (r *Resolver) stub(name string) Func {
	return func(args ...float64) float64 {
		r.logger.Error("NOT IMPLEMENTED",
			zap.String("symbol", name),
			zap.Float64s("args", args),
		)
		return math.NaN()
	}
}
