package physics

import (
	"sync"

	"go.uber.org/zap"

	"github.com/clokk/bonkgo/parameter"
)

// LayerRegistry maps human-readable collision layer names to bitmask
// categories. At most 32 layers exist; "default" always occupies bit 0.
// Registration is first-use: Category auto-registers unknown names.
type LayerRegistry struct {
	mu      sync.RWMutex
	log     *zap.Logger
	bits    map[string]uint32
	names   map[uint32]string
	nextBit int
}

// NewLayerRegistry creates a registry with "default" pre-registered at bit 0
func NewLayerRegistry(log *zap.Logger) *LayerRegistry {
	if log == nil {
		log = zap.NewNop()
	}
	r := &LayerRegistry{
		log:   log,
		bits:  make(map[string]uint32),
		names: make(map[uint32]string),
	}
	r.register(parameter.DefaultLayer)
	return r
}

// Category returns the category bit for name, auto-registering on first
// use. Once all 32 bits are taken, unknown names map to the default
// category with a warning instead of failing.
func (r *LayerRegistry) Category(name string) uint32 {
	if name == "" {
		name = parameter.DefaultLayer
	}

	r.mu.RLock()
	bit, ok := r.bits[name]
	r.mu.RUnlock()
	if ok {
		return bit
	}

	r.mu.Lock()
	defer r.mu.Unlock()
	if bit, ok := r.bits[name]; ok {
		return bit
	}
	if r.nextBit >= parameter.MaxCollisionLayers {
		r.log.Warn("collision layer limit reached, using default category",
			zap.String("layer", name),
			zap.Int("limit", parameter.MaxCollisionLayers))
		return r.bits[parameter.DefaultLayer]
	}
	return r.register(name)
}

// register assumes the write lock is held (or the registry is private)
func (r *LayerRegistry) register(name string) uint32 {
	bit := uint32(1) << uint(r.nextBit)
	r.bits[name] = bit
	r.names[bit] = name
	r.nextBit++
	return bit
}

// Mask returns the OR of the categories for names. An empty list means
// "collide with everything": all bits set, so layers registered later
// are matched too.
func (r *LayerRegistry) Mask(names []string) uint32 {
	if len(names) == 0 {
		return ^uint32(0)
	}
	var mask uint32
	for _, name := range names {
		mask |= r.Category(name)
	}
	return mask
}

// Name returns the layer name owning the category bit
func (r *LayerRegistry) Name(category uint32) (string, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	name, ok := r.names[category]
	return name, ok
}

// Count returns the number of registered layers
func (r *LayerRegistry) Count() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.bits)
}
