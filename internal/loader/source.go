package loader

import (
	"context"
	"fmt"
	"io"
	"net/http"
	"os"
	"strings"
)

// Source represents a source for Wasm bytecode.
type Source interface {
	// Bytes fetches the Wasm bytecode.
	Bytes(ctx context.Context) ([]byte, error)

	// Name returns a name/identifier for this module.
	Name() string
}

// Open picks a source for src: http(s) URLs are fetched, anything else
// is read from the file system.
func Open(src string) Source {
	if strings.HasPrefix(src, "http://") || strings.HasPrefix(src, "https://") {
		return &HTTPSource{URL: src}
	}
	return &FileSource{Path: src}
}

// FileSource loads Wasm from a file.
type FileSource struct {
	Path string
}

func (f *FileSource) Bytes(ctx context.Context) ([]byte, error) {
	return os.ReadFile(f.Path)
}

func (f *FileSource) Name() string {
	return f.Path
}

// HTTPSource fetches Wasm over HTTP. There is no timeout beyond ctx.
type HTTPSource struct {
	URL    string
	Client *http.Client
}

func (h *HTTPSource) Bytes(ctx context.Context) ([]byte, error) {
	req, err := http.NewRequestWithContext(ctx, http.MethodGet, h.URL, nil)
	if err != nil {
		return nil, err
	}
	client := h.Client
	if client == nil {
		client = http.DefaultClient
	}
	resp, err := client.Do(req)
	if err != nil {
		return nil, err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("unexpected status %s", resp.Status)
	}
	return io.ReadAll(resp.Body)
}

func (h *HTTPSource) Name() string {
	return h.URL
}

// MemorySource loads Wasm from memory.
type MemorySource struct {
	ModuleName string
	Data       []byte
}

func (m *MemorySource) Bytes(ctx context.Context) ([]byte, error) {
	return m.Data, nil
}

func (m *MemorySource) Name() string {
	return m.ModuleName
}
