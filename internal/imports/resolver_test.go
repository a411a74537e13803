package imports

import (
	"math"
	"testing"

	"go.uber.org/zap"
	"go.uber.org/zap/zapcore"
	"go.uber.org/zap/zaptest"
	"go.uber.org/zap/zaptest/observer"
)

func constTable(names map[string]float64) Table {
	t := Table{}
	for name, v := range names {
		v := v
		t[name] = func(...float64) float64 { return v }
	}
	return t
}

func TestLookupPriority(t *testing.T) {
	first := constTable(map[string]float64{"a": 1, "shared": 10})
	second := constTable(map[string]float64{"b": 2, "shared": 20})
	r := NewResolver(zaptest.NewLogger(t), first, second)

	tests := []struct {
		name string
		want float64
	}{
		{"a", 1},
		{"b", 2},
		{"shared", 10},
	}
	for _, tc := range tests {
		fn, ok := r.Lookup(tc.name)
		if !ok {
			t.Errorf("Lookup(%q) not found", tc.name)
			continue
		}
		if got := fn(); got != tc.want {
			t.Errorf("Lookup(%q)() = %v, want %v", tc.name, got, tc.want)
		}
	}

	if _, ok := r.Lookup("missing"); ok {
		t.Error("Lookup(missing) should not be found")
	}
}

func TestLookupSkipsNilEntries(t *testing.T) {
	first := Table{"f": nil}
	second := constTable(map[string]float64{"f": 7})
	r := NewResolver(zaptest.NewLogger(t), first, second)

	fn, ok := r.Lookup("f")
	if !ok || fn() != 7 {
		t.Error("nil entry should fall through to the next table")
	}
}

func TestResolveStubLogsEveryCall(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(zap.New(core), LibM())

	stub := r.Resolve("powf")
	if stub == nil {
		t.Fatal("Resolve returned nil")
	}

	if got := stub(2, 3); !math.IsNaN(got) {
		t.Errorf("stub result = %v, want NaN", got)
	}
	stub()
	stub(1, 2, 3, 4)

	entries := logs.FilterMessage("NOT IMPLEMENTED").All()
	if len(entries) != 3 {
		t.Fatalf("logged %d diagnostics, want 3", len(entries))
	}
	first := entries[0].ContextMap()
	if first["symbol"] != "powf" {
		t.Errorf("symbol = %v, want powf", first["symbol"])
	}
	args, ok := first["args"].([]interface{})
	if !ok || len(args) != 2 || args[0] != 2.0 || args[1] != 3.0 {
		t.Errorf("args = %#v, want [2 3]", first["args"])
	}
	if entries[0].Level != zapcore.ErrorLevel {
		t.Errorf("level = %v, want error", entries[0].Level)
	}
}

func TestResolveFoundDoesNotLog(t *testing.T) {
	core, logs := observer.New(zapcore.DebugLevel)
	r := NewResolver(zap.New(core), LibM())

	if got := r.Resolve("sqrtf")(16); got != 4 {
		t.Errorf("sqrtf(16) = %v, want 4", got)
	}
	if logs.Len() != 0 {
		t.Errorf("unexpected logs: %d", logs.Len())
	}
}

func TestLibM(t *testing.T) {
	m := LibM()
	tests := []struct {
		name string
		args []float64
		want float64
	}{
		{"atan2f", []float64{1, 1}, math.Pi / 4},
		{"cosf", []float64{0}, 1},
		{"sinf", []float64{math.Pi / 2}, 1},
		{"sqrtf", []float64{2}, math.Sqrt2},
	}
	for _, tc := range tests {
		got := m[tc.name](tc.args...)
		if math.Abs(got-tc.want) > 1e-12 {
			t.Errorf("%s(%v) = %v, want %v", tc.name, tc.args, got, tc.want)
		}
	}
	if len(m) != 4 {
		t.Errorf("LibM has %d symbols, want 4", len(m))
	}
	if !math.IsNaN(m["cosf"]()) {
		t.Error("cosf() without arguments should be NaN")
	}
}
