package engine

import (
	"fmt"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"github.com/clokk/bonkgo/parameter"
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

// SceneConfig selects the physics backend and wires the injected
// collaborators. Zero values fall back to engine defaults.
type SceneConfig struct {
	Backend string     // physics backend name, default parameter.DefaultBackend
	Gravity vmath.Vec2 // world gravity passed to the backend
	Clock   *Clock
	Log     *zap.Logger
}

// Scene owns the entity forest, the physics world, and the body↔entity
// mapping. It orchestrates the per-frame phase sequence and routes
// collision events into behavior callbacks. The scene is the sole
// mutator of its lookup maps and the pending-destroy set; everything
// runs on one logical thread of control.
//
// The host calls, in order, once per rendered frame:
//
//	clock.Update(dt) → FixedUpdate() → Update() → LateUpdate() → ProcessPendingDestroy()
//
// That order is a precondition, not a runtime-checked contract.
type Scene struct {
	id    uuid.UUID
	log   *zap.Logger
	clock *Clock
	ctx   *Context

	world  physics.World
	layers *physics.LayerRegistry

	entities map[EntityID]*Entity
	roots    []*Entity

	bodyByEntity map[EntityID]physics.Body
	entityByBody map[physics.BodyID]EntityID

	pending []*Entity

	startEvents []physics.CollisionEvent
	endEvents   []physics.CollisionEvent

	started  bool
	unloaded bool
}

// NewScene constructs a scene with the named physics backend. An
// unknown backend name is fatal here and propagates to the caller.
func NewScene(cfg SceneConfig) (*Scene, error) {
	if cfg.Backend == "" {
		cfg.Backend = parameter.DefaultBackend
	}
	if cfg.Clock == nil {
		cfg.Clock = NewClock(parameter.FixedDelta)
	}
	if cfg.Log == nil {
		cfg.Log = zap.NewNop()
	}

	layers := physics.NewLayerRegistry(cfg.Log)
	world, err := physics.NewWorld(cfg.Backend, physics.WorldConfig{
		Gravity: cfg.Gravity,
		Layers:  layers,
		Log:     cfg.Log,
	})
	if err != nil {
		return nil, fmt.Errorf("scene: construct physics backend: %w", err)
	}

	s := &Scene{
		id:           uuid.New(),
		log:          cfg.Log,
		clock:        cfg.Clock,
		world:        world,
		layers:       layers,
		entities:     make(map[EntityID]*Entity),
		bodyByEntity: make(map[EntityID]physics.Body),
		entityByBody: make(map[physics.BodyID]EntityID),
	}
	s.ctx = &Context{Scene: s, Clock: cfg.Clock}

	world.OnCollisionStart(func(ev physics.CollisionEvent) {
		s.startEvents = append(s.startEvents, ev)
	})
	world.OnCollisionEnd(func(ev physics.CollisionEvent) {
		s.endEvents = append(s.endEvents, ev)
	})

	return s, nil
}

// ID returns the scene instance id
func (s *Scene) ID() uuid.UUID { return s.id }

// Clock returns the injected clock
func (s *Scene) Clock() *Clock { return s.clock }

// World returns the physics backend
func (s *Scene) World() physics.World { return s.world }

// Layers returns the collision layer registry
func (s *Scene) Layers() *physics.LayerRegistry { return s.layers }

// Started reports whether Start has run
func (s *Scene) Started() bool { return s.started }

// === Entity management ===

// Add registers a detached entity tree with the scene. Before Start,
// lifecycle hooks are deferred to the scene-wide awake/start pass. After
// Start, the whole added batch awakes first, then starts, so Start code
// can look up siblings created in the same load.
func (s *Scene) Add(e *Entity) error {
	if e.destroyed {
		return ErrEntityDestroyed
	}
	if e.scene != nil {
		return ErrAlreadyInScene
	}
	if e.parent != nil && e.parent.scene != s {
		return fmt.Errorf("engine: parent of %q is not in this scene", e.name)
	}

	if e.parent == nil {
		s.roots = append(s.roots, e)
	}
	s.adopt(e)
	return nil
}

// adopt registers a subtree that just became reachable from the scene,
// either through Add or by reparenting a detached entity under a live
// one. After scene start the whole batch awakes first, then starts.
func (s *Scene) adopt(e *Entity) {
	s.register(e)
	if s.started {
		batch := collect(e, nil)
		for _, ent := range batch {
			s.wakeEntity(ent)
		}
		for _, ent := range batch {
			s.startEntity(ent)
		}
	}
}

// register attaches the subtree to scene lookups and builds physics bodies
func (s *Scene) register(e *Entity) {
	e.scene = s
	s.entities[e.id] = e
	s.ensureBody(e)
	for _, child := range e.children {
		s.register(child)
	}
}

// Start marks the scene live. Every entity present receives Awake before
// any entity receives Start.
func (s *Scene) Start() {
	if s.started {
		return
	}
	s.started = true

	batch := s.iterationOrder()
	for _, e := range batch {
		s.wakeEntity(e)
	}
	for _, e := range batch {
		s.startEntity(e)
	}
}

// Destroy schedules the entity and its subtree for removal at the end
// of the frame. Until ProcessPendingDestroy runs, the entity keeps
// participating in iteration, so mid-frame code never observes a moving
// target.
func (s *Scene) Destroy(e *Entity) {
	if e == nil || e.scene != s || e.pendingDestroy || e.destroyed {
		return
	}
	e.pendingDestroy = true
	s.pending = append(s.pending, e)
}

// PendingDestroyCount returns the number of queued destruction requests
func (s *Scene) PendingDestroyCount() int { return len(s.pending) }

// EntityByID resolves an id through the scene lookup table
func (s *Scene) EntityByID(id EntityID) (*Entity, bool) {
	e, ok := s.entities[id]
	return e, ok
}

// Find returns the first entity with the given name in hierarchy order
func (s *Scene) Find(name string) (*Entity, bool) {
	for _, e := range s.iterationOrder() {
		if e.name == name {
			return e, true
		}
	}
	return nil, false
}

// FindByTag returns every entity carrying the tag, in hierarchy order
func (s *Scene) FindByTag(tag string) []*Entity {
	var result []*Entity
	for _, e := range s.iterationOrder() {
		if e.tag == tag {
			result = append(result, e)
		}
	}
	return result
}

// Roots returns the scene's root entities in insertion order
func (s *Scene) Roots() []*Entity { return s.roots }

// EntityCount returns the number of live entities
func (s *Scene) EntityCount() int { return len(s.entities) }

// iterationOrder snapshots the forest depth-first, children in insertion
// order. Phases iterate the snapshot so mid-phase structural changes
// take effect next phase.
func (s *Scene) iterationOrder() []*Entity {
	order := make([]*Entity, 0, len(s.entities))
	for _, root := range s.roots {
		order = collect(root, order)
	}
	return order
}

func collect(e *Entity, into []*Entity) []*Entity {
	into = append(into, e)
	for _, child := range e.children {
		into = collect(child, into)
	}
	return into
}

func (s *Scene) removeRoot(e *Entity) {
	for i, r := range s.roots {
		if r == e {
			s.roots = append(s.roots[:i], s.roots[i+1:]...)
			return
		}
	}
}

// === Frame phases ===

// FixedUpdate runs one fixed simulation step: push kinematic poses into
// the backend, step, pull dynamic poses back, route collision events,
// then run every behavior's FixedUpdate. The strict sync order keeps
// kinematic motion from lagging a frame and keeps simulated motion from
// being clobbered by stale transforms.
func (s *Scene) FixedUpdate() {
	if !s.started || s.unloaded {
		return
	}

	order := s.iterationOrder()

	s.syncKinematicToPhysics(order)
	s.world.Step(s.clock.FixedDelta())
	s.syncDynamicFromPhysics(order)
	s.routeCollisions()

	for _, e := range order {
		if !e.activeInHierarchy() {
			continue
		}
		for _, b := range e.behaviors {
			if !b.core().Enabled() {
				continue
			}
			s.safeHook("FixedUpdate", e, func() { b.FixedUpdate(s.ctx) })
		}
	}
}

// Update runs every behavior's Update and pumps its coroutine scheduler
// with the scaled frame delta.
func (s *Scene) Update() {
	if !s.started || s.unloaded {
		return
	}

	dt := s.clock.Delta()
	for _, e := range s.iterationOrder() {
		if !e.activeInHierarchy() {
			continue
		}
		for _, b := range e.behaviors {
			core := b.core()
			if !core.Enabled() {
				continue
			}
			s.safeHook("Update", e, func() { b.Update(s.ctx) })
			if core.sched != nil {
				core.sched.Update(dt)
			}
		}
	}
}

// LateUpdate runs after every entity's Update, before destruction processing
func (s *Scene) LateUpdate() {
	if !s.started || s.unloaded {
		return
	}

	for _, e := range s.iterationOrder() {
		if !e.activeInHierarchy() {
			continue
		}
		for _, b := range e.behaviors {
			if !b.core().Enabled() {
				continue
			}
			s.safeHook("LateUpdate", e, func() { b.LateUpdate(s.ctx) })
		}
	}
}

// ProcessPendingDestroy finalizes every deferred destruction request.
// OnDestroy hooks may queue further destructions; the loop drains them
// within the same call so the frame ends with an empty queue.
func (s *Scene) ProcessPendingDestroy() {
	for len(s.pending) > 0 {
		batch := s.pending
		s.pending = nil
		for _, e := range batch {
			s.finalizeDestroy(e)
		}
	}
}

// finalizeDestroy removes the subtree bottom-up: children are torn down
// before their parent.
func (s *Scene) finalizeDestroy(e *Entity) {
	if e.destroyed || e.scene != s {
		return
	}

	children := make([]*Entity, len(e.children))
	copy(children, e.children)
	for _, child := range children {
		s.finalizeDestroy(child)
	}

	// Unregister before the user hook so OnDestroy code does not see its
	// own entity through scene queries
	delete(s.entities, e.id)
	s.dropBody(e)

	for _, b := range e.behaviors {
		core := b.core()
		core.destroy()
		if core.awoken {
			s.safeHook("OnDestroy", e, func() { b.OnDestroy(s.ctx) })
		}
	}

	if e.parent != nil {
		e.parent.removeChild(e)
	} else {
		s.removeRoot(e)
	}
	e.parent = nil
	e.scene = nil
	e.pendingDestroy = false
	e.destroyed = true
}

// Unload tears down the whole scene synchronously: every entity is
// destroyed (OnDestroy fires), lookups are cleared, and the physics
// backend is closed. The scene is unusable afterwards; reloading builds
// a fresh scene from the same source data.
func (s *Scene) Unload() {
	if s.unloaded {
		return
	}
	roots := make([]*Entity, len(s.roots))
	copy(roots, s.roots)
	for _, root := range roots {
		s.finalizeDestroy(root)
	}
	s.pending = nil
	s.world.Close()
	s.unloaded = true
}

// === Behavior lifecycle ===

func (s *Scene) wakeEntity(e *Entity) {
	behaviors := make([]Behavior, len(e.behaviors))
	copy(behaviors, e.behaviors)
	for _, b := range behaviors {
		s.wakeBehavior(b)
	}
}

func (s *Scene) startEntity(e *Entity) {
	behaviors := make([]Behavior, len(e.behaviors))
	copy(behaviors, e.behaviors)
	for _, b := range behaviors {
		s.startBehavior(b)
	}
}

func (s *Scene) wakeBehavior(b Behavior) {
	core := b.core()
	if core.awoken {
		return
	}
	core.awoken = true
	core.Scheduler().SetLogger(s.log)
	s.safeHook("Awake", core.entity, func() { b.Awake(s.ctx) })
}

func (s *Scene) startBehavior(b Behavior) {
	core := b.core()
	if core.started || !core.awoken {
		return
	}
	core.started = true
	s.safeHook("Start", core.entity, func() { b.Start(s.ctx) })
}

// safeHook isolates one behavior hook invocation so a failing script
// cannot abort the phase for other entities.
func (s *Scene) safeHook(hook string, e *Entity, fn func()) {
	defer func() {
		if r := recover(); r != nil {
			name := ""
			if e != nil {
				name = e.name
			}
			s.log.Error("behavior hook panicked",
				zap.String("hook", hook),
				zap.String("entity", name),
				zap.Any("panic", r))
		}
	}()
	fn()
}

// === Physics integration ===

// componentAdded reacts to runtime component attachment on live entities
func (s *Scene) componentAdded(e *Entity, c Component) {
	switch c.(type) {
	case *RigidBody2D:
		s.ensureBody(e)
	case *Collider2D:
		if _, ok := s.bodyByEntity[e.id]; ok {
			s.rebuildBody(e)
		} else {
			s.ensureBody(e)
		}
	}
}

// componentRemoved reacts to runtime component detachment
func (s *Scene) componentRemoved(e *Entity, c Component) {
	switch c.(type) {
	case *RigidBody2D:
		s.dropBody(e)
	case *Collider2D:
		if _, ok := s.bodyByEntity[e.id]; ok {
			s.rebuildBody(e)
		}
	}
}

// ensureBody creates the backend body for an entity carrying a
// RigidBody2D. Building is two-step: body first, then each collider.
func (s *Scene) ensureBody(e *Entity) {
	if _, exists := s.bodyByEntity[e.id]; exists {
		return
	}
	rb, ok := ComponentOf[*RigidBody2D](e)
	if !ok {
		return
	}

	body, err := s.world.CreateBody(rb.bodyConfig())
	if err != nil {
		s.log.Error("create physics body failed",
			zap.String("entity", e.name), zap.Error(err))
		return
	}
	rb.body = body
	s.bodyByEntity[e.id] = body
	s.entityByBody[body.ID()] = e.id

	for _, c := range e.components {
		col, isCollider := c.(*Collider2D)
		if !isCollider || !col.Enabled() {
			continue
		}
		if err := s.world.AddCollider(body, col.colliderConfig()); err != nil {
			s.log.Error("add collider failed",
				zap.String("entity", e.name), zap.Error(err))
		}
	}
}

// rebuildBody recreates the backend body after collider geometry
// changed. The logical body↔entity mapping survives through the fresh
// body handle; nothing outside this method observes the swap.
func (s *Scene) rebuildBody(e *Entity) {
	s.dropBody(e)
	s.ensureBody(e)
}

func (s *Scene) dropBody(e *Entity) {
	body, ok := s.bodyByEntity[e.id]
	if !ok {
		return
	}
	delete(s.bodyByEntity, e.id)
	delete(s.entityByBody, body.ID())
	if rb, hasRB := ComponentOf[*RigidBody2D](e); hasRB {
		rb.body = nil
	}
	s.world.RemoveBody(body)
}

// syncKinematicToPhysics pushes game-driven poses into the backend
// before stepping. Static bodies are never synced after creation.
func (s *Scene) syncKinematicToPhysics(order []*Entity) {
	for _, e := range order {
		body, ok := s.bodyByEntity[e.id]
		if !ok || body.Type() != physics.BodyKinematic {
			continue
		}
		t := e.Transform()
		body.SetPosition(t.WorldPosition())
		body.SetRotation(t.WorldRotation())
	}
}

// syncDynamicFromPhysics pulls simulated poses back into transforms
// after stepping.
func (s *Scene) syncDynamicFromPhysics(order []*Entity) {
	for _, e := range order {
		body, ok := s.bodyByEntity[e.id]
		if !ok || body.Type() != physics.BodyDynamic {
			continue
		}
		t := e.Transform()
		t.SetWorldPosition(body.Position())
		t.SetWorldRotation(body.Rotation())
	}
}

// === Collision routing ===

func (s *Scene) routeCollisions() {
	starts := s.startEvents
	ends := s.endEvents
	s.startEvents = nil
	s.endEvents = nil

	for _, ev := range starts {
		s.routeCollision(ev, true)
	}
	for _, ev := range ends {
		s.routeCollision(ev, false)
	}
}

// routeCollision resolves both bodies to entities and invokes the
// matching hooks on every enabled behavior of both sides. The contact
// normal points away from the first body; it is flipped for the second
// entity's perspective. Events referencing an unmapped body are dropped:
// that happens legitimately when a body is torn down in the same step.
func (s *Scene) routeCollision(ev physics.CollisionEvent, begin bool) {
	idA, okA := s.entityByBody[ev.A.ID()]
	idB, okB := s.entityByBody[ev.B.ID()]
	if !okA || !okB {
		s.log.Debug("dropping collision event for unmapped body")
		return
	}
	entityA, okA := s.entities[idA]
	entityB, okB := s.entities[idB]
	if !okA || !okB {
		s.log.Debug("dropping collision event for unregistered entity")
		return
	}

	s.deliver(entityA, Collision{
		Other:    entityB,
		Body:     ev.B,
		Normal:   ev.Normal,
		Contacts: ev.Contacts,
	}, ev.Sensor, begin)
	s.deliver(entityB, Collision{
		Other:    entityA,
		Body:     ev.A,
		Normal:   ev.Normal.Neg(),
		Contacts: ev.Contacts,
	}, ev.Sensor, begin)
}

func (s *Scene) deliver(e *Entity, hit Collision, sensor, begin bool) {
	if !e.activeInHierarchy() {
		return
	}
	for _, b := range e.behaviors {
		if !b.core().Enabled() {
			continue
		}
		if sensor {
			h, ok := b.(TriggerHandler)
			if !ok {
				continue
			}
			if begin {
				s.safeHook("OnTriggerEnter", e, func() { h.OnTriggerEnter(s.ctx, hit) })
			} else {
				s.safeHook("OnTriggerExit", e, func() { h.OnTriggerExit(s.ctx, hit) })
			}
			continue
		}
		h, ok := b.(CollisionHandler)
		if !ok {
			continue
		}
		if begin {
			s.safeHook("OnCollisionEnter", e, func() { h.OnCollisionEnter(s.ctx, hit) })
		} else {
			s.safeHook("OnCollisionExit", e, func() { h.OnCollisionExit(s.ctx, hit) })
		}
	}
}

// === Spatial queries ===

// SceneRaycastHit pairs a physics hit with its owning entity
type SceneRaycastHit struct {
	Entity *Entity
	physics.RaycastHit
}

// Raycast returns the closest hit along the segment, resolved to its
// owning entity. Hits on bodies without a registered owner are skipped.
func (s *Scene) Raycast(from, to vmath.Vec2) (SceneRaycastHit, bool) {
	hit, ok := s.world.Raycast(from, to)
	if !ok {
		return SceneRaycastHit{}, false
	}
	id, mapped := s.entityByBody[hit.Body.ID()]
	if !mapped {
		return SceneRaycastHit{}, false
	}
	e, live := s.entities[id]
	if !live {
		return SceneRaycastHit{}, false
	}
	return SceneRaycastHit{Entity: e, RaycastHit: hit}, true
}

// QueryAABB returns every live entity whose collider overlaps the box
func (s *Scene) QueryAABB(min, max vmath.Vec2) []*Entity {
	var result []*Entity
	for _, body := range s.world.QueryAABB(min, max) {
		id, mapped := s.entityByBody[body.ID()]
		if !mapped {
			continue
		}
		if e, live := s.entities[id]; live {
			result = append(result, e)
		}
	}
	return result
}
