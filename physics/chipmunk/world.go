// Package chipmunk implements the physics.World contract on top of the
// pure-Go Chipmunk2D port. It registers itself under the name
// "chipmunk".
package chipmunk

import (
	"errors"
	"fmt"
	"math"

	"github.com/jakecoffman/cp"
	"go.uber.org/zap"

	"github.com/clokk/bonkgo/parameter"
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

// Every shape shares one collision type so a single handler observes
// all contact pairs; filtering happens through categories and masks.
const contactType cp.CollisionType = 1

var errClosed = errors.New("chipmunk: world is closed")

func init() {
	physics.Register("chipmunk", New)
}

// New builds a Chipmunk-backed world
func New(cfg physics.WorldConfig) (physics.World, error) {
	space := cp.NewSpace()
	space.SetGravity(cp.Vector{X: cfg.Gravity.X, Y: cfg.Gravity.Y})

	w := &world{
		space:   space,
		layers:  cfg.Layers,
		log:     cfg.Log,
		gravity: cfg.Gravity,
		bodies:  make(map[physics.BodyID]*body),
	}
	if w.log == nil {
		w.log = zap.NewNop()
	}
	if w.layers == nil {
		w.layers = physics.NewLayerRegistry(w.log)
	}

	handler := space.NewCollisionHandler(contactType, contactType)
	handler.UserData = w
	handler.BeginFunc = beginContact
	handler.SeparateFunc = separateContact

	return w, nil
}

type world struct {
	space   *cp.Space
	layers  *physics.LayerRegistry
	log     *zap.Logger
	gravity vmath.Vec2

	nextID physics.BodyID
	bodies map[physics.BodyID]*body

	// Events buffered during Step and flushed to callbacks afterwards,
	// so consumers may mutate the space from their handlers
	pendingStart []physics.CollisionEvent
	pendingEnd   []physics.CollisionEvent

	startFns []func(physics.CollisionEvent)
	endFns   []func(physics.CollisionEvent)

	closed bool
}

type body struct {
	id        physics.BodyID
	w         *world
	cpBody    *cp.Body
	typ       physics.BodyType
	cfg       physics.BodyConfig
	colliders []physics.ColliderConfig
	shapes    []*cp.Shape
}

// === physics.World ===

func (w *world) CreateBody(cfg physics.BodyConfig) (physics.Body, error) {
	if w.closed {
		return nil, errClosed
	}

	var cpBody *cp.Body
	switch cfg.Type {
	case physics.BodyStatic:
		cpBody = cp.NewStaticBody()
	case physics.BodyKinematic:
		cpBody = cp.NewKinematicBody()
	default:
		mass := cfg.Mass
		if mass <= 0 {
			mass = parameter.DefaultBodyMass
		}
		cfg.Mass = mass
		// Moment is recomputed once colliders arrive
		cpBody = cp.NewBody(mass, cp.INFINITY)
	}
	cpBody.SetPosition(cp.Vector{X: cfg.Position.X, Y: cfg.Position.Y})
	cpBody.SetAngle(vmath.Radians(cfg.Rotation))

	w.nextID++
	b := &body{
		id:     w.nextID,
		w:      w,
		cpBody: cpBody,
		typ:    cfg.Type,
		cfg:    cfg,
	}
	cpBody.UserData = b

	if cfg.Type == physics.BodyDynamic {
		applyVelocityTuning(cpBody, cfg)
	}

	w.space.AddBody(cpBody)
	w.bodies[b.id] = b
	return b, nil
}

// applyVelocityTuning installs a velocity update func honoring the
// body's gravity scale and linear damping on top of the space settings.
func applyVelocityTuning(cpBody *cp.Body, cfg physics.BodyConfig) {
	scale := cfg.NormalizedGravityScale()
	linearDamping := cfg.LinearDamping
	if scale == 1 && linearDamping == 0 {
		return
	}
	cpBody.SetVelocityUpdateFunc(func(b *cp.Body, gravity cp.Vector, damping float64, dt float64) {
		if linearDamping > 0 {
			damping *= math.Exp(-linearDamping * dt)
		}
		b.UpdateVelocity(gravity.Mult(scale), damping, dt)
	})
}

// AddCollider attaches geometry to the body. Chipmunk shapes cannot
// change geometry in place, so the body's full shape set is rebuilt:
// the cp objects are recreated while the logical BodyID stays the same,
// keeping owner maps valid.
func (w *world) AddCollider(bd physics.Body, cfg physics.ColliderConfig) error {
	if w.closed {
		return errClosed
	}
	b, ok := bd.(*body)
	if !ok || w.bodies[b.id] != b {
		return fmt.Errorf("chipmunk: body %d is not part of this world", bd.ID())
	}
	if cfg.Shape == physics.ShapePolygon && len(cfg.Vertices) < 3 {
		return fmt.Errorf("chipmunk: polygon collider needs at least 3 vertices, got %d", len(cfg.Vertices))
	}

	b.colliders = append(b.colliders, cfg)
	w.rebuildShapes(b)
	return nil
}

// rebuildShapes drops and recreates every shape of the body from its
// collider configs, then refreshes mass and moment.
func (w *world) rebuildShapes(b *body) {
	for _, shape := range b.shapes {
		w.space.RemoveShape(shape)
	}
	b.shapes = b.shapes[:0]

	for _, cfg := range b.colliders {
		shape := w.makeShape(b, cfg)
		shape.SetCollisionType(contactType)
		shape.SetFriction(b.cfg.Friction)
		shape.SetElasticity(b.cfg.Restitution)
		shape.SetSensor(cfg.IsTrigger)
		shape.SetFilter(cp.NewShapeFilter(
			cp.NO_GROUP,
			uint(w.layers.Category(cfg.Layer)),
			uint(w.layers.Mask(cfg.Mask)),
		))
		shape.UserData = b
		w.space.AddShape(shape)
		b.shapes = append(b.shapes, shape)
	}

	if b.typ == physics.BodyDynamic {
		b.cpBody.SetMass(b.cfg.Mass)
		if b.cfg.FixedRotation {
			b.cpBody.SetMoment(cp.INFINITY)
		} else {
			b.cpBody.SetMoment(w.momentFor(b))
		}
	}
}

func (w *world) makeShape(b *body, cfg physics.ColliderConfig) *cp.Shape {
	offset := cp.Vector{X: cfg.Offset.X, Y: cfg.Offset.Y}
	switch cfg.Shape {
	case physics.ShapeCircle:
		return cp.NewCircle(b.cpBody, cfg.Radius, offset)
	case physics.ShapePolygon:
		verts := make([]cp.Vector, len(cfg.Vertices))
		for i, v := range cfg.Vertices {
			verts[i] = cp.Vector{X: v.X + cfg.Offset.X, Y: v.Y + cfg.Offset.Y}
		}
		return cp.NewPolyShapeRaw(b.cpBody, len(verts), verts, 0)
	default:
		hw, hh := cfg.Size.X/2, cfg.Size.Y/2
		bb := cp.BB{
			L: offset.X - hw,
			B: offset.Y - hh,
			R: offset.X + hw,
			T: offset.Y + hh,
		}
		return cp.NewBox2(b.cpBody, bb, 0)
	}
}

// momentFor sums the moment contribution of every collider, splitting
// the body mass evenly between them.
func (w *world) momentFor(b *body) float64 {
	if len(b.colliders) == 0 {
		return cp.INFINITY
	}
	share := b.cfg.Mass / float64(len(b.colliders))
	moment := 0.0
	for _, cfg := range b.colliders {
		offset := cp.Vector{X: cfg.Offset.X, Y: cfg.Offset.Y}
		switch cfg.Shape {
		case physics.ShapeCircle:
			moment += cp.MomentForCircle(share, 0, cfg.Radius, offset)
		case physics.ShapePolygon:
			verts := make([]cp.Vector, len(cfg.Vertices))
			for i, v := range cfg.Vertices {
				verts[i] = cp.Vector{X: v.X, Y: v.Y}
			}
			moment += cp.MomentForPoly(share, len(verts), verts, offset, 0)
		default:
			moment += cp.MomentForBox(share, cfg.Size.X, cfg.Size.Y)
		}
	}
	return moment
}

func (w *world) RemoveBody(bd physics.Body) {
	b, ok := bd.(*body)
	if !ok || w.bodies[b.id] != b {
		return
	}
	for _, shape := range b.shapes {
		w.space.RemoveShape(shape)
	}
	b.shapes = nil
	w.space.RemoveBody(b.cpBody)
	delete(w.bodies, b.id)
}

func (w *world) Step(dt float64) {
	if w.closed {
		return
	}
	w.space.Step(dt)

	starts := w.pendingStart
	ends := w.pendingEnd
	w.pendingStart = nil
	w.pendingEnd = nil

	for _, ev := range starts {
		for _, fn := range w.startFns {
			fn(ev)
		}
	}
	for _, ev := range ends {
		for _, fn := range w.endFns {
			fn(ev)
		}
	}
}

func (w *world) Raycast(from, to vmath.Vec2) (physics.RaycastHit, bool) {
	start := cp.Vector{X: from.X, Y: from.Y}
	end := cp.Vector{X: to.X, Y: to.Y}
	info := w.space.SegmentQueryFirst(start, end, 0, cp.SHAPE_FILTER_ALL)
	if info.Shape == nil {
		return physics.RaycastHit{}, false
	}
	owner, ok := info.Shape.UserData.(*body)
	if !ok {
		return physics.RaycastHit{}, false
	}
	point := vmath.Vec2{X: info.Point.X, Y: info.Point.Y}
	return physics.RaycastHit{
		Body:     owner,
		Point:    point,
		Normal:   vmath.Vec2{X: info.Normal.X, Y: info.Normal.Y},
		Distance: from.Distance(point),
	}, true
}

func (w *world) QueryAABB(min, max vmath.Vec2) []physics.Body {
	bb := cp.BB{L: min.X, B: min.Y, R: max.X, T: max.Y}
	seen := make(map[physics.BodyID]bool)
	var result []physics.Body
	w.space.BBQuery(bb, cp.SHAPE_FILTER_ALL, func(shape *cp.Shape, _ interface{}) {
		owner, ok := shape.UserData.(*body)
		if !ok || seen[owner.id] {
			return
		}
		seen[owner.id] = true
		result = append(result, owner)
	}, nil)
	return result
}

func (w *world) OnCollisionStart(fn func(physics.CollisionEvent)) {
	w.startFns = append(w.startFns, fn)
}

func (w *world) OnCollisionEnd(fn func(physics.CollisionEvent)) {
	w.endFns = append(w.endFns, fn)
}

func (w *world) Gravity() vmath.Vec2 { return w.gravity }

func (w *world) SetGravity(g vmath.Vec2) {
	w.gravity = g
	w.space.SetGravity(cp.Vector{X: g.X, Y: g.Y})
}

func (w *world) Layers() *physics.LayerRegistry { return w.layers }

func (w *world) Close() {
	if w.closed {
		return
	}
	for _, b := range w.bodies {
		for _, shape := range b.shapes {
			w.space.RemoveShape(shape)
		}
		b.shapes = nil
		w.space.RemoveBody(b.cpBody)
	}
	w.bodies = make(map[physics.BodyID]*body)
	w.closed = true
}

// === Collision callbacks (invoked by cp during Step) ===

func beginContact(arb *cp.Arbiter, _ *cp.Space, data interface{}) bool {
	w := data.(*world)
	if ev, ok := w.eventFor(arb); ok {
		w.pendingStart = append(w.pendingStart, ev)
	}
	return true
}

func separateContact(arb *cp.Arbiter, _ *cp.Space, data interface{}) {
	w := data.(*world)
	if ev, ok := w.eventFor(arb); ok {
		w.pendingEnd = append(w.pendingEnd, ev)
	}
}

// eventFor translates an arbiter into the abstract event. The arbiter
// normal points away from the first shape, matching the contract.
func (w *world) eventFor(arb *cp.Arbiter) (physics.CollisionEvent, bool) {
	shapeA, shapeB := arb.Shapes()
	bodyA, okA := shapeA.UserData.(*body)
	bodyB, okB := shapeB.UserData.(*body)
	if !okA || !okB {
		return physics.CollisionEvent{}, false
	}

	set := arb.ContactPointSet()
	normal := vmath.Vec2{X: set.Normal.X, Y: set.Normal.Y}
	contacts := make([]physics.Contact, 0, set.Count)
	for i := 0; i < set.Count; i++ {
		contacts = append(contacts, physics.Contact{
			Point:  vmath.Vec2{X: set.Points[i].PointA.X, Y: set.Points[i].PointA.Y},
			Normal: normal,
		})
	}

	return physics.CollisionEvent{
		A:        bodyA,
		B:        bodyB,
		Normal:   normal,
		Contacts: contacts,
		Sensor:   shapeA.Sensor() || shapeB.Sensor(),
	}, true
}

// === physics.Body ===

func (b *body) ID() physics.BodyID     { return b.id }
func (b *body) Type() physics.BodyType { return b.typ }

func (b *body) Position() vmath.Vec2 {
	p := b.cpBody.Position()
	return vmath.Vec2{X: p.X, Y: p.Y}
}

func (b *body) Rotation() float64 {
	return vmath.Degrees(b.cpBody.Angle())
}

func (b *body) Velocity() vmath.Vec2 {
	v := b.cpBody.Velocity()
	return vmath.Vec2{X: v.X, Y: v.Y}
}

func (b *body) AngularVelocity() float64 {
	return vmath.Degrees(b.cpBody.AngularVelocity())
}

func (b *body) SetPosition(p vmath.Vec2) {
	b.cpBody.SetPosition(cp.Vector{X: p.X, Y: p.Y})
	b.reindexIfStationary()
}

func (b *body) SetRotation(degrees float64) {
	b.cpBody.SetAngle(vmath.Radians(degrees))
	b.reindexIfStationary()
}

// reindexIfStationary refreshes the broadphase for bodies the solver
// does not move on its own
func (b *body) reindexIfStationary() {
	if b.typ != physics.BodyDynamic {
		b.w.space.ReindexShapesForBody(b.cpBody)
	}
}

func (b *body) SetVelocity(v vmath.Vec2) {
	b.cpBody.SetVelocityVector(cp.Vector{X: v.X, Y: v.Y})
}

func (b *body) SetAngularVelocity(degreesPerSec float64) {
	b.cpBody.SetAngularVelocity(vmath.Radians(degreesPerSec))
}

func (b *body) ApplyForce(f vmath.Vec2) {
	at := b.cpBody.LocalToWorld(b.cpBody.CenterOfGravity())
	b.cpBody.ApplyForceAtWorldPoint(cp.Vector{X: f.X, Y: f.Y}, at)
}

func (b *body) ApplyImpulse(j vmath.Vec2) {
	at := b.cpBody.LocalToWorld(b.cpBody.CenterOfGravity())
	b.cpBody.ApplyImpulseAtWorldPoint(cp.Vector{X: j.X, Y: j.Y}, at)
}
