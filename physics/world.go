// Package physics defines the abstract 2D physics contract the runtime
// depends on. Concrete backends live in subpackages and register
// themselves by name; the runtime never imports a backend directly.
package physics

import (
	"github.com/clokk/bonkgo/vmath"
)

// BodyType selects who drives a body's motion
type BodyType uint8

const (
	// BodyDynamic is simulated; its transform is pulled back after each step
	BodyDynamic BodyType = iota
	// BodyStatic never moves after creation and is never synced
	BodyStatic
	// BodyKinematic is driven by game logic; its transform is pushed before each step
	BodyKinematic
)

// String returns the lowercase name used in prefab documents and config
func (t BodyType) String() string {
	switch t {
	case BodyStatic:
		return "static"
	case BodyKinematic:
		return "kinematic"
	default:
		return "dynamic"
	}
}

// ShapeKind discriminates collider geometry
type ShapeKind uint8

const (
	ShapeBox ShapeKind = iota
	ShapeCircle
	ShapePolygon
)

// String returns the lowercase name used in prefab documents
func (k ShapeKind) String() string {
	switch k {
	case ShapeCircle:
		return "circle"
	case ShapePolygon:
		return "polygon"
	default:
		return "box"
	}
}

// BodyID identifies a body for the lifetime of its world. It stays
// stable even when collider changes force the backend to rebuild the
// underlying object, so owner maps keyed by it never go stale.
type BodyID uint64

// BodyConfig describes a body at creation time
type BodyConfig struct {
	Type            BodyType
	Position        vmath.Vec2
	Rotation        float64 // degrees
	Mass            float64 // dynamic only; <= 0 means default
	Friction        float64
	Restitution     float64
	LinearDamping   float64
	GravityScale    float64 // 1 if zero value is passed through NormalizedGravityScale
	FixedRotation   bool
	GravityScaleSet bool // distinguishes an explicit 0 from the zero value
}

// NormalizedGravityScale returns the effective gravity multiplier
func (c BodyConfig) NormalizedGravityScale() float64 {
	if !c.GravityScaleSet && c.GravityScale == 0 {
		return 1
	}
	return c.GravityScale
}

// ColliderConfig describes one collider attached to a body.
// Layer selects this collider's category; Mask lists the layer names it
// collides with, empty meaning every registered layer.
type ColliderConfig struct {
	Shape     ShapeKind
	Size      vmath.Vec2   // box
	Radius    float64      // circle
	Vertices  []vmath.Vec2 // polygon, convex, counter-clockwise
	Offset    vmath.Vec2
	IsTrigger bool
	Layer     string
	Mask      []string
}

// Body is a handle to a backend body. Mutation goes through these
// methods only; there is no way to bypass the backend.
type Body interface {
	ID() BodyID
	Type() BodyType

	Position() vmath.Vec2
	Rotation() float64 // degrees
	Velocity() vmath.Vec2
	AngularVelocity() float64 // degrees per second

	SetPosition(p vmath.Vec2)
	SetRotation(degrees float64)
	SetVelocity(v vmath.Vec2)
	SetAngularVelocity(degreesPerSec float64)
	ApplyForce(f vmath.Vec2)
	ApplyImpulse(j vmath.Vec2)
}

// Contact is a single contact point reported with a collision event
type Contact struct {
	Point  vmath.Vec2
	Normal vmath.Vec2
}

// CollisionEvent reports a contact starting or ending between two
// bodies. Normal points away from body A by convention; consumers
// reporting to B's side flip it.
type CollisionEvent struct {
	A, B     Body
	Normal   vmath.Vec2
	Contacts []Contact
	Sensor   bool // at least one collider involved is a trigger
}

// RaycastHit describes the closest intersection along a segment
type RaycastHit struct {
	Body     Body
	Point    vmath.Vec2
	Normal   vmath.Vec2
	Distance float64 // from segment start to the contact point
}

// World is the abstract 2D physics backend
type World interface {
	// CreateBody registers a new body. Building is two-step: body first,
	// then colliders, because collider geometry may force the backend to
	// recreate its internal object. The BodyID survives recreation.
	CreateBody(cfg BodyConfig) (Body, error)

	// AddCollider attaches collider geometry to an existing body
	AddCollider(b Body, cfg ColliderConfig) error

	// RemoveBody detaches the body and all its colliders
	RemoveBody(b Body)

	// Step advances the simulation by exactly dt seconds. Callers pass
	// the clock's fixed step, never the variable frame delta.
	Step(dt float64)

	// Raycast returns the closest hit by distance to the contact point
	Raycast(from, to vmath.Vec2) (RaycastHit, bool)

	// QueryAABB returns every body whose collider overlaps the box
	QueryAABB(min, max vmath.Vec2) []Body

	// OnCollisionStart registers a callback invoked during Step for each
	// new contact. Callbacks run synchronously on the stepping goroutine.
	OnCollisionStart(fn func(CollisionEvent))

	// OnCollisionEnd registers a callback invoked during Step for each
	// contact that separated.
	OnCollisionEnd(fn func(CollisionEvent))

	Gravity() vmath.Vec2
	SetGravity(g vmath.Vec2)

	// Layers exposes the registry colliders resolve their names through
	Layers() *LayerRegistry

	// Close releases backend resources; the world is unusable afterwards
	Close()
}
