// Package adapter maintains the registry of exchange adapters. Each
// adapter package registers a factory under its exchange id in init();
// the bootstrap selects one by the configured exchange name.
package adapter

import (
	"fmt"
	"sort"
	"sync"

	"tradebot/internal/infra"
	"tradebot/internal/trading"
)

// Factory builds a trading.API instance from application config.
type Factory func(cfg *infra.Config) (trading.API, error)

var (
	mu        sync.RWMutex
	factories = make(map[string]Factory)
)

// Register makes an adapter available under the given exchange id.
// Registering the same id twice is a programming error and panics.
func Register(name string, f Factory) {
	mu.Lock()
	defer mu.Unlock()

	if f == nil {
		panic("adapter: Register with nil factory")
	}
	if _, dup := factories[name]; dup {
		panic(fmt.Sprintf("adapter: Register called twice for %q", name))
	}
	factories[name] = f
}

// New builds the adapter registered under name.
func New(name string, cfg *infra.Config) (trading.API, error) {
	mu.RLock()
	f, ok := factories[name]
	mu.RUnlock()

	if !ok {
		return nil, fmt.Errorf("unknown exchange adapter: %q (registered: %v)", name, Names())
	}
	return f(cfg)
}

// Names returns the registered exchange ids, sorted.
func Names() []string {
	mu.RLock()
	defer mu.RUnlock()

	names := make([]string, 0, len(factories))
	for name := range factories {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
