package engine

import (
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

// Context is passed into every lifecycle hook. It replaces ambient
// globals: behaviors reach the clock, the scene, and its queries through
// it, so independent simulations never share state.
type Context struct {
	Scene *Scene
	Clock *Clock
}

// Behavior is a user-scriptable capability with the full frame
// lifecycle. Concrete behaviors embed BehaviorCore, which provides
// no-op defaults, so they override only the hooks they need.
//
// Collision and trigger callbacks are optional: a behavior opts in by
// implementing CollisionHandler or TriggerHandler.
type Behavior interface {
	Awake(ctx *Context)
	Start(ctx *Context)
	FixedUpdate(ctx *Context)
	Update(ctx *Context)
	LateUpdate(ctx *Context)
	OnDestroy(ctx *Context)

	core() *BehaviorCore
}

// Collision describes one side of a contact delivered to behaviors.
// Normal points away from the receiving entity's body.
type Collision struct {
	Other    *Entity
	Body     physics.Body
	Normal   vmath.Vec2
	Contacts []physics.Contact
}

// CollisionHandler is the optional capability for solid-contact callbacks
type CollisionHandler interface {
	OnCollisionEnter(ctx *Context, hit Collision)
	OnCollisionExit(ctx *Context, hit Collision)
}

// TriggerHandler is the optional capability for sensor-overlap callbacks
type TriggerHandler interface {
	OnTriggerEnter(ctx *Context, hit Collision)
	OnTriggerExit(ctx *Context, hit Collision)
}

// BehaviorCore carries the shared behavior state: entity back-reference,
// enabled flag, the private coroutine scheduler, and the local event
// emitter. The zero value is enabled and detached.
type BehaviorCore struct {
	entity   *Entity
	self     Behavior
	disabled bool
	awoken   bool
	started  bool

	sched   *Scheduler
	emitter *Emitter
}

func (c *BehaviorCore) core() *BehaviorCore { return c }

// Entity returns the owning entity, nil while detached
func (c *BehaviorCore) Entity() *Entity { return c.entity }

// Enabled reports whether lifecycle and collision hooks fire. A disabled
// behavior stays attached and resumes receiving events when re-enabled.
func (c *BehaviorCore) Enabled() bool { return !c.disabled }

// SetEnabled toggles hook delivery
func (c *BehaviorCore) SetEnabled(enabled bool) { c.disabled = !enabled }

// Scheduler returns the behavior's private coroutine scheduler
func (c *BehaviorCore) Scheduler() *Scheduler {
	if c.sched == nil {
		c.sched = NewScheduler()
	}
	return c.sched
}

// Events returns the behavior-local publish/subscribe emitter
func (c *BehaviorCore) Events() *Emitter {
	if c.emitter == nil {
		c.emitter = NewEmitter()
	}
	return c.emitter
}

// StartCoroutine registers a routine on the behavior's scheduler
func (c *BehaviorCore) StartCoroutine(r Routine) *CoroutineHandle {
	return c.Scheduler().Start(r)
}

// StopAllCoroutines cancels every coroutine this behavior started
func (c *BehaviorCore) StopAllCoroutines() {
	if c.sched != nil {
		c.sched.StopAll()
	}
}

// destroy tears down behavior-owned resources before the user hook runs
func (c *BehaviorCore) destroy() {
	c.StopAllCoroutines()
	if c.emitter != nil {
		c.emitter.Clear()
	}
}

// No-op lifecycle defaults; concrete behaviors override selectively.

// Awake runs once when the entity joins a live scene
func (c *BehaviorCore) Awake(*Context) {}

// Start runs once after every entity in the same batch has awoken
func (c *BehaviorCore) Start(*Context) {}

// FixedUpdate runs once per fixed step after physics synchronization
func (c *BehaviorCore) FixedUpdate(*Context) {}

// Update runs once per frame; the scheduler is pumped alongside it
func (c *BehaviorCore) Update(*Context) {}

// LateUpdate runs after every entity's Update
func (c *BehaviorCore) LateUpdate(*Context) {}

// OnDestroy runs exactly once during deferred-destruction processing,
// after the entity has been unregistered from scene lookups
func (c *BehaviorCore) OnDestroy(*Context) {}
