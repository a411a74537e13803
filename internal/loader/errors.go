package loader

import "fmt"

// FetchError occurs when module bytes cannot be obtained.
type FetchError struct {
	Source string
	Err    error
}

func (e *FetchError) Error() string {
	return fmt.Sprintf("failed to fetch Wasm module '%s': %v", e.Source, e.Err)
}

func (e *FetchError) Unwrap() error {
	return e.Err
}

// CompilationError occurs when Wasm module compilation fails.
type CompilationError struct {
	ModuleName string
	Err        error
}

func (e *CompilationError) Error() string {
	return fmt.Sprintf("failed to compile Wasm module '%s': %v", e.ModuleName, e.Err)
}

func (e *CompilationError) Unwrap() error {
	return e.Err
}

// InstantiationError occurs when linking or instantiation fails.
type InstantiationError struct {
	ModuleName string
	Err        error
}

func (e *InstantiationError) Error() string {
	return fmt.Sprintf("failed to instantiate module '%s': %v", e.ModuleName, e.Err)
}

func (e *InstantiationError) Unwrap() error {
	return e.Err
}
