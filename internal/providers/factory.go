package providers

import (
	"fmt"
	"sort"
	"sync"
)

// Factory constructs a provider instance from resolved settings.
type Factory func(s Settings) (Provider, error)

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]Factory)
)

// RegisterFactory makes a provider type available to the plugin
// loader. Built-in types call this from init, mirroring the
// database/sql driver convention. Registering a duplicate or nil
// factory panics: both are programmer errors.
func RegisterFactory(typ string, f Factory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	if f == nil {
		panic("providers: RegisterFactory with nil factory for type " + typ)
	}
	if _, dup := factories[typ]; dup {
		panic("providers: RegisterFactory called twice for type " + typ)
	}
	factories[typ] = f
}

// New builds a provider of the given type.
func New(typ string, s Settings) (Provider, error) {
	factoriesMu.RLock()
	f, ok := factories[typ]
	factoriesMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("unknown provider type: %s", typ)
	}
	return f(s)
}

// Types returns the registered provider type names, sorted.
func Types() []string {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()

	types := make([]string, 0, len(factories))
	for typ := range factories {
		types = append(types, typ)
	}
	sort.Strings(types)
	return types
}
