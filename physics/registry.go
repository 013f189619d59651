package physics

import (
	"errors"
	"fmt"
	"sort"
	"sync"

	"go.uber.org/zap"

	"github.com/clokk/bonkgo/vmath"
)

// ErrUnknownBackend is returned when no factory is registered under the
// requested name. Fatal at scene construction time.
var ErrUnknownBackend = errors.New("physics: unknown backend")

// WorldConfig is passed to backend factories
type WorldConfig struct {
	Gravity vmath.Vec2
	Layers  *LayerRegistry
	Log     *zap.Logger
}

// Factory builds a concrete World
type Factory func(cfg WorldConfig) (World, error)

var (
	backendsMu sync.RWMutex
	backends   = make(map[string]Factory)
)

// Register adds a backend factory by name, typically from a backend
// package's init
func Register(name string, factory Factory) {
	backendsMu.Lock()
	defer backendsMu.Unlock()
	backends[name] = factory
}

// NewWorld constructs the named backend. A nil Layers registry is
// replaced with a fresh one so backends can rely on it.
func NewWorld(name string, cfg WorldConfig) (World, error) {
	backendsMu.RLock()
	factory, ok := backends[name]
	backendsMu.RUnlock()
	if !ok {
		return nil, fmt.Errorf("%w: %q (registered: %v)", ErrUnknownBackend, name, BackendNames())
	}
	if cfg.Layers == nil {
		cfg.Layers = NewLayerRegistry(cfg.Log)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}
	return factory(cfg)
}

// BackendNames returns all registered backend names, sorted
func BackendNames() []string {
	backendsMu.RLock()
	defer backendsMu.RUnlock()
	names := make([]string, 0, len(backends))
	for name := range backends {
		names = append(names, name)
	}
	sort.Strings(names)
	return names
}
