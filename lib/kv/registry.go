package kv

import (
	"fmt"
	"sort"

	"github.com/puzpuzpuz/xsync/v3"
)

// engines maps engine names to their factories. Engines register themselves
// from init functions, which may run from multiple packages, so the map must
// tolerate concurrent access.
var engines = xsync.NewMapOf[string, StoreFactory]()

// RegisterEngine makes a store engine available under the given name.
// Registering the same name twice panics, mirroring database/sql driver
// registration.
func RegisterEngine(name string, factory StoreFactory) {
	if factory == nil {
		panic("kv: RegisterEngine called with nil factory")
	}
	if _, loaded := engines.LoadOrStore(name, factory); loaded {
		panic(fmt.Sprintf("kv: engine %q registered twice", name))
	}
}

// GetEngine returns the factory registered under the given name.
func GetEngine(name string) (StoreFactory, error) {
	factory, ok := engines.Load(name)
	if !ok {
		return nil, fmt.Errorf("unknown engine %q (available: %v)", name, EngineNames())
	}
	return factory, nil
}

// EngineNames returns the names of all registered engines, sorted.
func EngineNames() []string {
	var names []string
	engines.Range(func(name string, _ StoreFactory) bool {
		names = append(names, name)
		return true
	})
	sort.Strings(names)
	return names
}
