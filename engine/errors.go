package engine

import "errors"

var (
	// ErrCyclicHierarchy is returned when a reparent would make an entity
	// its own ancestor
	ErrCyclicHierarchy = errors.New("engine: reparent would create a hierarchy cycle")

	// ErrEntityDestroyed is returned when an operation targets an entity
	// that has already been removed from its scene
	ErrEntityDestroyed = errors.New("engine: entity has been destroyed")

	// ErrAlreadyInScene is returned when adding an entity that is live in
	// a scene, or parenting across scenes
	ErrAlreadyInScene = errors.New("engine: entity already belongs to a scene")
)
