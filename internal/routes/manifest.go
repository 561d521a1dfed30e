// # internal/routes/manifest.go

// Package routes maintains the page manifest written alongside generated
// modules. The manifest is rebuilt from scratch on every full build and
// patched per-file in watch mode.
package routes

import (
	"encoding/json"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"loom/internal/compiler/codegen"
)

type Manifest struct {
	mu      sync.Mutex
	entries map[string]*codegen.RouteMeta // keyed by source-relative module
}

func NewManifest() *Manifest {
	return &Manifest{entries: make(map[string]*codegen.RouteMeta)}
}

// Set records or replaces the route contributed by one module. A nil route
// clears the module's entry, which covers a page losing its directive.
func (m *Manifest) Set(module string, route *codegen.RouteMeta) {
	m.mu.Lock()
	defer m.mu.Unlock()
	if route == nil {
		delete(m.entries, module)
		return
	}
	m.entries[module] = route
}

func (m *Manifest) Routes() []*codegen.RouteMeta {
	m.mu.Lock()
	defer m.mu.Unlock()

	out := make([]*codegen.RouteMeta, 0, len(m.entries))
	for _, r := range m.entries {
		out = append(out, r)
	}
	sort.Slice(out, func(i, j int) bool { return out[i].Path < out[j].Path })
	return out
}

func (m *Manifest) Len() int {
	m.mu.Lock()
	defer m.mu.Unlock()
	return len(m.entries)
}

// Write serializes the manifest to path, creating parent directories.
func (m *Manifest) Write(path string) error {
	routes := m.Routes()
	if routes == nil {
		routes = []*codegen.RouteMeta{}
	}

	data, err := json.MarshalIndent(map[string]any{"routes": routes}, "", "  ")
	if err != nil {
		return err
	}
	data = append(data, '\n')

	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return err
		}
	}
	return os.WriteFile(path, data, 0o644)
}
