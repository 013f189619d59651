package engine

import (
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

// Sprite is the visual component consumed by the rendering adapter.
// The core never draws; it only carries the data the renderer reads.
type Sprite struct {
	ComponentCore

	Glyph   rune    // cell glyph for the terminal renderer
	Texture string  // texture id for graphical backends
	Alpha   float64 // 0 transparent .. 1 opaque
	Hidden  bool
}

// Kind returns KindSprite
func (s *Sprite) Kind() Kind { return KindSprite }

// Visible reports whether the renderer should draw this sprite
func (s *Sprite) Visible() bool { return !s.Hidden && s.Enabled() }

// Camera marks the viewpoint the rendering adapter projects through.
// One primary camera is expected; the renderer picks the first enabled one.
type Camera struct {
	ComponentCore

	Zoom    float64 // <= 0 treated as 1
	Primary bool
}

// Kind returns KindCamera
func (c *Camera) Kind() Kind { return KindCamera }

// AudioSource queues playback requests consumed by the audio adapter.
// The core places no ordering requirement on when they are serviced
// beyond "during update phases".
type AudioSource struct {
	ComponentCore

	Freq     float64 // tone frequency in Hz
	Duration float64 // seconds
	Volume   float64 // 0..1
	Loop     bool

	pending bool
}

// Kind returns KindAudioSource
func (a *AudioSource) Kind() Kind { return KindAudioSource }

// Play queues one playback request
func (a *AudioSource) Play() { a.pending = true }

// TakePending consumes the queued request, returning whether one existed
func (a *AudioSource) TakePending() bool {
	p := a.pending
	a.pending = false
	return p
}

// RigidBody2D attaches a physics body to the entity. The scene creates
// the backend body when the entity goes live and keeps the body and the
// transform in sync each fixed step: kinematic bodies are pushed from
// the transform, dynamic bodies are pulled back from the simulation.
//
// A nil GravityScale means the backend default of 1; an explicit zero
// makes the body ignore gravity entirely.
type RigidBody2D struct {
	ComponentCore

	BodyType      physics.BodyType
	Mass          float64
	Friction      float64
	Restitution   float64
	LinearDamping float64
	GravityScale  *float64
	FixedRotation bool

	body physics.Body
}

// Kind returns KindRigidBody2D
func (rb *RigidBody2D) Kind() Kind { return KindRigidBody2D }

// Body returns the live backend body, nil until the entity is in a scene
func (rb *RigidBody2D) Body() physics.Body { return rb.body }

// ApplyForce forwards to the backend body if live
func (rb *RigidBody2D) ApplyForce(f vmath.Vec2) {
	if rb.body != nil {
		rb.body.ApplyForce(f)
	}
}

// ApplyImpulse forwards to the backend body if live
func (rb *RigidBody2D) ApplyImpulse(j vmath.Vec2) {
	if rb.body != nil {
		rb.body.ApplyImpulse(j)
	}
}

// SetVelocity forwards to the backend body if live
func (rb *RigidBody2D) SetVelocity(v vmath.Vec2) {
	if rb.body != nil {
		rb.body.SetVelocity(v)
	}
}

// Velocity reads the backend body velocity, zero until live
func (rb *RigidBody2D) Velocity() vmath.Vec2 {
	if rb.body == nil {
		return vmath.Vec2{}
	}
	return rb.body.Velocity()
}

// bodyConfig builds the backend body configuration from the component
// fields and the entity's current world pose.
func (rb *RigidBody2D) bodyConfig() physics.BodyConfig {
	t := rb.Entity().Transform()
	cfg := physics.BodyConfig{
		Type:          rb.BodyType,
		Position:      t.WorldPosition(),
		Rotation:      t.WorldRotation(),
		Mass:          rb.Mass,
		Friction:      rb.Friction,
		Restitution:   rb.Restitution,
		LinearDamping: rb.LinearDamping,
		FixedRotation: rb.FixedRotation,
	}
	if rb.GravityScale != nil {
		cfg.GravityScale = *rb.GravityScale
		cfg.GravityScaleSet = true
	}
	return cfg
}

// Collider2D describes collider geometry for the entity's RigidBody2D.
// Layer selects the category bit; Mask lists layer names to collide
// with, empty meaning every registered layer.
type Collider2D struct {
	ComponentCore

	Shape     physics.ShapeKind
	Size      vmath.Vec2   // box width/height
	Radius    float64      // circle
	Vertices  []vmath.Vec2 // polygon
	Offset    vmath.Vec2
	IsTrigger bool
	Layer     string
	Mask      []string
}

// Kind returns KindCollider2D
func (c *Collider2D) Kind() Kind { return KindCollider2D }

// colliderConfig builds the backend collider configuration
func (c *Collider2D) colliderConfig() physics.ColliderConfig {
	return physics.ColliderConfig{
		Shape:     c.Shape,
		Size:      c.Size,
		Radius:    c.Radius,
		Vertices:  c.Vertices,
		Offset:    c.Offset,
		IsTrigger: c.IsTrigger,
		Layer:     c.Layer,
		Mask:      c.Mask,
	}
}
