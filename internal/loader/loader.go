// Package loader turns a module path into a live, linked instance: fetch,
// compile, link the env imports, instantiate.
package loader

import (
	"context"
	"fmt"
	"time"

	"github.com/efejjota/wasmcanvas/internal/imports"
	"github.com/tetratelabs/wazero"
	"github.com/tetratelabs/wazero/api"
	"go.uber.org/zap"
)

// Config holds loader configuration.
type Config struct {
	// Compilation cache directory (for persistent caching).
	// If empty, uses in-memory caching only.
	CacheDir string
}

// Loader creates one runtime per instance so every module gets its own
// env namespace; compiled code is shared through a compilation cache.
type Loader struct {
	cache  wazero.CompilationCache
	tables []imports.Table
	logger *zap.Logger
}

// New creates a loader whose instances link against tables, highest
// priority first.
func New(logger *zap.Logger, cfg *Config, tables ...imports.Table) (*Loader, error) {
	if cfg == nil {
		cfg = &Config{}
	}

	cache := wazero.NewCompilationCache()
	if cfg.CacheDir != "" {
		var err error
		if cache, err = wazero.NewCompilationCacheWithDir(cfg.CacheDir); err != nil {
			return nil, fmt.Errorf("failed to open compilation cache %s: %w", cfg.CacheDir, err)
		}
	}

	l := &Loader{
		cache:  cache,
		tables: tables,
		logger: logger.With(zap.String("component", "wasm-loader")),
	}
	l.logger.Info("Wasm loader initialized",
		zap.String("cache_dir", cfg.CacheDir),
		zap.Int("symbol_tables", len(tables)),
	)
	return l, nil
}

// Instance is a linked module together with the runtime that owns it.
type Instance struct {
	Module   api.Module
	Bindings []imports.Binding

	runtime wazero.Runtime
}

// Unresolved returns the names of env imports bound to logging stubs.
func (i *Instance) Unresolved() []string {
	var names []string
	for _, b := range i.Bindings {
		if !b.Resolved {
			names = append(names, b.Name)
		}
	}
	return names
}

// Close releases the instance and its runtime.
func (i *Instance) Close(ctx context.Context) error {
	return i.runtime.Close(ctx)
}

// Load fetches, compiles, links and instantiates the module behind src.
func (l *Loader) Load(ctx context.Context, src Source) (*Instance, error) {
	name := src.Name()
	bin, err := src.Bytes(ctx)
	if err != nil {
		return nil, &FetchError{Source: name, Err: err}
	}

	l.logger.Info("Compiling Wasm module",
		zap.String("module", name),
		zap.Int("size_bytes", len(bin)),
	)
	startTime := time.Now()

	rt := wazero.NewRuntimeWithConfig(ctx, wazero.NewRuntimeConfig().WithCompilationCache(l.cache))
	compiled, err := rt.CompileModule(ctx, bin)
	if err != nil {
		rt.Close(ctx)
		return nil, &CompilationError{ModuleName: name, Err: err}
	}

	resolver := imports.NewResolver(l.logger.With(zap.String("module", name)), l.tables...)
	bindings, err := resolver.Link(ctx, rt, compiled)
	if err != nil {
		rt.Close(ctx)
		return nil, &InstantiationError{ModuleName: name, Err: err}
	}

	// Reactor-style modules export _initialize; command-style _start would
	// run main and exit, so it is never called.
	moduleConfig := wazero.NewModuleConfig().
		WithName(name).
		WithStartFunctions("_initialize")

	mod, err := rt.InstantiateModule(ctx, compiled, moduleConfig)
	if err != nil {
		rt.Close(ctx)
		return nil, &InstantiationError{ModuleName: name, Err: err}
	}

	inst := &Instance{Module: mod, Bindings: bindings, runtime: rt}
	l.logger.Info("Module instantiated successfully",
		zap.String("module", name),
		zap.Duration("duration", time.Since(startTime)),
		zap.Int("env_imports", len(bindings)),
		zap.Strings("unresolved", inst.Unresolved()),
	)
	return inst, nil
}

// Close releases the compilation cache.
func (l *Loader) Close(ctx context.Context) error {
	return l.cache.Close(ctx)
}
