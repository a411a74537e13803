package loader

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"os"
	"path/filepath"
	"sort"
	"testing"

	"github.com/efejjota/wasmcanvas/internal/imports"
	"github.com/efejjota/wasmcanvas/internal/wasmtest"
	"go.uber.org/zap/zaptest"
)

func newLoader(t *testing.T) *Loader {
	t.Helper()
	l, err := New(zaptest.NewLogger(t), nil, imports.LibM())
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	t.Cleanup(func() { l.Close(context.Background()) })
	return l
}

func TestLoadFromMemory(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t)

	inst, err := l.Load(ctx, &MemorySource{ModuleName: "math", Data: wasmtest.MathModule()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer inst.Close(ctx)

	if inst.Module.Name() != "math" {
		t.Errorf("module name = %q, want math", inst.Module.Name())
	}
	if len(inst.Bindings) != 4 {
		t.Errorf("bindings = %d, want 4", len(inst.Bindings))
	}
	unresolved := inst.Unresolved()
	sort.Strings(unresolved)
	if len(unresolved) != 2 || unresolved[0] != "ilogb" || unresolved[1] != "powf" {
		t.Errorf("unresolved = %v, want [ilogb powf]", unresolved)
	}
}

func TestLoadSameModuleTwice(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t)
	bin := wasmtest.DescriptorModule{ExportHeapBase: true}.Build()

	for i := 0; i < 2; i++ {
		inst, err := l.Load(ctx, &MemorySource{ModuleName: "demo", Data: bin})
		if err != nil {
			t.Fatalf("Load #%d: %v", i, err)
		}
		defer inst.Close(ctx)
	}
}

func TestLoadFromFile(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t)

	path := filepath.Join(t.TempDir(), "demo.wasm")
	if err := os.WriteFile(path, wasmtest.DirectModule{}.Build(), 0644); err != nil {
		t.Fatalf("write: %v", err)
	}

	src := Open(path)
	if _, ok := src.(*FileSource); !ok {
		t.Fatalf("Open(%q) = %T, want *FileSource", path, src)
	}
	inst, err := l.Load(ctx, src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	defer inst.Close(ctx)
	if inst.Module.ExportedFunction("render") == nil {
		t.Error("render not exported")
	}
}

func TestLoadFromHTTP(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t)
	bin := wasmtest.DirectModule{}.Build()

	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		if r.URL.Path != "/build/demo.wasm" {
			http.NotFound(w, r)
			return
		}
		w.Header().Set("Content-Type", "application/wasm")
		w.Write(bin)
	}))
	defer srv.Close()

	src := Open(srv.URL + "/build/demo.wasm")
	if _, ok := src.(*HTTPSource); !ok {
		t.Fatalf("Open = %T, want *HTTPSource", src)
	}
	inst, err := l.Load(ctx, src)
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst.Close(ctx)

	_, err = l.Load(ctx, Open(srv.URL+"/missing.wasm"))
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("err = %v, want *FetchError", err)
	}
}

func TestLoadErrors(t *testing.T) {
	ctx := context.Background()
	l := newLoader(t)

	_, err := l.Load(ctx, &FileSource{Path: filepath.Join(t.TempDir(), "nope.wasm")})
	var fe *FetchError
	if !errors.As(err, &fe) {
		t.Errorf("missing file: err = %v, want *FetchError", err)
	}

	_, err = l.Load(ctx, &MemorySource{ModuleName: "garbage", Data: []byte("not wasm")})
	var ce *CompilationError
	if !errors.As(err, &ce) {
		t.Errorf("garbage: err = %v, want *CompilationError", err)
	}

	b := wasmtest.New()
	b.ImportFunc("gl", "clear", nil, nil)
	_, err = l.Load(ctx, &MemorySource{ModuleName: "foreign", Data: b.Build()})
	var ie *InstantiationError
	if !errors.As(err, &ie) {
		t.Errorf("foreign namespace: err = %v, want *InstantiationError", err)
	}
}

func TestErrorMessages(t *testing.T) {
	base := errors.New("boom")
	tests := []struct {
		err  error
		want string
	}{
		{&FetchError{Source: "a.wasm", Err: base}, "failed to fetch Wasm module 'a.wasm': boom"},
		{&CompilationError{ModuleName: "a.wasm", Err: base}, "failed to compile Wasm module 'a.wasm': boom"},
		{&InstantiationError{ModuleName: "a.wasm", Err: base}, "failed to instantiate module 'a.wasm': boom"},
	}
	for _, tc := range tests {
		if tc.err.Error() != tc.want {
			t.Errorf("Error() = %q, want %q", tc.err.Error(), tc.want)
		}
		if !errors.Is(tc.err, base) {
			t.Errorf("%T does not unwrap", tc.err)
		}
	}
}

func TestCacheDir(t *testing.T) {
	ctx := context.Background()
	l, err := New(zaptest.NewLogger(t), &Config{CacheDir: t.TempDir()})
	if err != nil {
		t.Fatalf("New: %v", err)
	}
	defer l.Close(ctx)

	inst, err := l.Load(ctx, &MemorySource{ModuleName: "cached", Data: wasmtest.DirectModule{}.Build()})
	if err != nil {
		t.Fatalf("Load: %v", err)
	}
	inst.Close(ctx)
}
