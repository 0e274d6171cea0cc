package backend

import (
	"fmt"
	"sort"
	"sync"

	"github.com/gogpu/shadertoggle/gpucore"
)

// Adapter names registered by the bundled packages.
const (
	// NameLegacy is the state block adapter for single-threaded APIs.
	NameLegacy = "legacy"

	// NameExplicit is the descriptor replay adapter for explicit APIs.
	NameExplicit = "explicit"
)

// Factory creates an adapter for one device.
type Factory func(Config) Adapter

// Registry state - protected by mutex for thread-safe access.
var (
	registryMu sync.RWMutex
	factories  = make(map[string]Factory)
)

// Register registers an adapter factory with the given name.
// This is typically called from init() in adapter packages:
//
//	func init() {
//	    backend.Register(backend.NameLegacy, New)
//	}
//
// Register panics if factory is nil or if name is already registered.
func Register(name string, factory Factory) {
	registryMu.Lock()
	defer registryMu.Unlock()

	if factory == nil {
		panic("backend: Register factory is nil")
	}
	if _, dup := factories[name]; dup {
		panic("backend: Register called twice for " + name)
	}
	factories[name] = factory
}

// Unregister removes an adapter from the registry.
// This is useful for testing.
func Unregister(name string) {
	registryMu.Lock()
	defer registryMu.Unlock()
	delete(factories, name)
}

// Available returns a sorted list of registered adapter names.
func Available() []string {
	registryMu.RLock()
	defer registryMu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}

// IsRegistered checks if an adapter with the given name is registered.
func IsRegistered(name string) bool {
	registryMu.RLock()
	defer registryMu.RUnlock()
	_, ok := factories[name]
	return ok
}

// Get returns a new adapter by name, or nil if it is not registered.
func Get(name string, cfg Config) Adapter {
	registryMu.RLock()
	factory, ok := factories[name]
	registryMu.RUnlock()

	if !ok {
		return nil
	}
	return factory(cfg)
}

// ForAPI returns the adapter name suited to api. D3D9 has state blocks but
// no descriptor tables; every other API uses descriptor replay.
func ForAPI(api gpucore.API) string {
	if api == gpucore.APID3D9 {
		return NameLegacy
	}
	return NameExplicit
}

// Select creates the adapter named name, or the one suited to api when
// name is empty. The error message includes a hint about forgotten
// imports.
func Select(name string, api gpucore.API, cfg Config) (Adapter, error) {
	if name == "" {
		name = ForAPI(api)
	}
	a := Get(name, cfg)
	if a == nil {
		return nil, fmt.Errorf("backend: unknown adapter %q (forgotten import?)", name)
	}
	return a, nil
}
