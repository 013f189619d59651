package engine

import (
	"sync/atomic"
)

// EntityID uniquely identifies an entity for the lifetime of the process
type EntityID uint64

var nextEntityID atomic.Uint64

// Entity is a node in the scene graph: identity, transform, and attached
// capabilities. The parent's children list is the owning edge; parent is
// a non-owning back-reference. Entities are created detached and become
// live when added to a Scene.
type Entity struct {
	id       EntityID
	name     string
	tag      string
	disabled bool

	parent   *Entity
	children []*Entity

	transform  Transform
	components []Component
	behaviors  []Behavior

	scene          *Scene
	pendingDestroy bool
	destroyed      bool
}

// NewEntity creates a detached entity with a fresh id and identity transform
func NewEntity(name string) *Entity {
	e := &Entity{
		id:   EntityID(nextEntityID.Add(1)),
		name: name,
	}
	e.transform = newTransform(e)
	return e
}

// ID returns the session-stable unique id
func (e *Entity) ID() EntityID { return e.id }

// Name returns the mutable, non-unique display name
func (e *Entity) Name() string { return e.name }

// SetName changes the display name
func (e *Entity) SetName(name string) { e.name = name }

// Tag returns the optional grouping tag
func (e *Entity) Tag() string { return e.tag }

// SetTag changes the grouping tag
func (e *Entity) SetTag(tag string) { e.tag = tag }

// Enabled reports whether this entity participates in update phases.
// A disabled entity skips its own hooks and its whole subtree's.
func (e *Entity) Enabled() bool { return !e.disabled }

// SetEnabled toggles participation in update phases
func (e *Entity) SetEnabled(enabled bool) { e.disabled = !enabled }

// Destroyed reports whether the entity has been removed from its scene
func (e *Entity) Destroyed() bool { return e.destroyed }

// Scene returns the owning scene, nil while detached
func (e *Entity) Scene() *Scene { return e.scene }

// Transform returns the entity's transform
func (e *Entity) Transform() *Transform { return &e.transform }

// Parent returns the non-owning parent back-reference
func (e *Entity) Parent() *Entity { return e.parent }

// Children returns the ordered child list. The slice is live; callers
// iterating while mutating the hierarchy should copy it first.
func (e *Entity) Children() []*Entity { return e.children }

// SetParent reparents the entity. Only the ownership edge changes: the
// local transform is kept as-is, so the world pose moves with the new
// parent chain. Adjusting locals to preserve world pose is left to the
// caller.
//
// Parenting a detached entity under a live one registers its whole
// subtree with the parent's scene; after scene start the subtree awakes
// and starts immediately, like a late Add. Fails with ErrCyclicHierarchy
// if newParent is the entity itself or one of its descendants, and with
// ErrAlreadyInScene if the entity is live and newParent is not in the
// same scene.
func (e *Entity) SetParent(newParent *Entity) error {
	if newParent == e {
		return ErrCyclicHierarchy
	}
	for a := newParent; a != nil; a = a.parent {
		if a == e {
			return ErrCyclicHierarchy
		}
	}
	if newParent != nil && e.scene != nil && newParent.scene != e.scene {
		return ErrAlreadyInScene
	}
	if newParent != nil && newParent.scene != nil && e.destroyed {
		return ErrEntityDestroyed
	}

	if e.parent != nil {
		e.parent.removeChild(e)
	} else if e.scene != nil {
		e.scene.removeRoot(e)
	}

	e.parent = newParent
	if newParent != nil {
		newParent.children = append(newParent.children, e)
	} else if e.scene != nil {
		e.scene.roots = append(e.scene.roots, e)
	}

	if newParent != nil && newParent.scene != nil && e.scene == nil {
		newParent.scene.adopt(e)
	}
	return nil
}

func (e *Entity) removeChild(child *Entity) {
	for i, c := range e.children {
		if c == child {
			e.children = append(e.children[:i], e.children[i+1:]...)
			return
		}
	}
}

// AddComponent attaches a component. Lifecycle hooks do not run here;
// components become active once the entity is live in a scene.
func (e *Entity) AddComponent(c Component) {
	c.attach(e)
	e.components = append(e.components, c)
	if e.scene != nil {
		e.scene.componentAdded(e, c)
	}
}

// RemoveComponent detaches a previously added component
func (e *Entity) RemoveComponent(c Component) {
	for i, have := range e.components {
		if have == c {
			e.components = append(e.components[:i], e.components[i+1:]...)
			if e.scene != nil {
				e.scene.componentRemoved(e, c)
			}
			c.attach(nil)
			return
		}
	}
}

// Components returns the attached components in attach order
func (e *Entity) Components() []Component { return e.components }

// Component returns the first attached component of the given kind.
// The ok result is false when no such component is attached, matching
// the optional-lookup style used throughout the runtime.
func (e *Entity) Component(kind Kind) (Component, bool) {
	for _, c := range e.components {
		if c.Kind() == kind {
			return c, true
		}
	}
	return nil, false
}

// ComponentOf returns the first attached component of concrete type T
func ComponentOf[T Component](e *Entity) (T, bool) {
	for _, c := range e.components {
		if t, ok := c.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// AddBehavior attaches a scripted behavior. If the entity is already
// live in a started scene, Awake and Start run immediately.
func (e *Entity) AddBehavior(b Behavior) {
	core := b.core()
	core.entity = e
	core.self = b
	e.behaviors = append(e.behaviors, b)
	if e.scene != nil && e.scene.started {
		e.scene.wakeBehavior(b)
		e.scene.startBehavior(b)
	}
}

// Behaviors returns the attached behaviors in attach order
func (e *Entity) Behaviors() []Behavior { return e.behaviors }

// BehaviorOf returns the first attached behavior of concrete type T
func BehaviorOf[T Behavior](e *Entity) (T, bool) {
	for _, b := range e.behaviors {
		if t, ok := b.(T); ok {
			return t, true
		}
	}
	var zero T
	return zero, false
}

// Destroy requests deferred destruction through the owning scene.
// Detached entities are simply marked destroyed.
func (e *Entity) Destroy() {
	if e.scene != nil {
		e.scene.Destroy(e)
		return
	}
	e.destroyed = true
}

// activeInHierarchy reports whether this entity and every ancestor is enabled
func (e *Entity) activeInHierarchy() bool {
	for a := e; a != nil; a = a.parent {
		if a.disabled {
			return false
		}
	}
	return true
}
