package engine

// Kind discriminates component types in prefab documents and queries
type Kind string

const (
	KindSprite      Kind = "Sprite"
	KindCamera      Kind = "Camera"
	KindAudioSource Kind = "AudioSource"
	KindRigidBody2D Kind = "RigidBody2D"
	KindCollider2D  Kind = "Collider2D"
)

// Component is a typed, non-scripted capability attached to an entity.
// Concrete kinds embed ComponentCore and implement Kind.
type Component interface {
	Kind() Kind
	Entity() *Entity
	Enabled() bool
	SetEnabled(bool)

	attach(e *Entity)
}

// ComponentCore carries the shared component state: the non-owning
// entity back-reference and the enabled flag. The zero value is enabled
// and detached.
type ComponentCore struct {
	entity   *Entity
	disabled bool
}

// Entity returns the owning entity, nil while detached
func (c *ComponentCore) Entity() *Entity { return c.entity }

// Enabled reports whether the component participates in its subsystem
func (c *ComponentCore) Enabled() bool { return !c.disabled }

// SetEnabled toggles participation
func (c *ComponentCore) SetEnabled(enabled bool) { c.disabled = !enabled }

func (c *ComponentCore) attach(e *Entity) { c.entity = e }
