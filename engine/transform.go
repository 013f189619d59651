package engine

import (
	"github.com/clokk/bonkgo/vmath"
)

// Transform holds an entity's local pose: position, rotation in degrees,
// non-uniform scale, and z-order for rendering. World-space values are
// computed on every read by walking the parent chain, so they are always
// consistent with the hierarchy at the moment of the call. There is no
// cache that can go stale across a mid-frame reparent.
type Transform struct {
	Position vmath.Vec2
	Rotation float64 // degrees
	Scale    vmath.Vec2
	ZIndex   int

	owner *Entity
}

func newTransform(owner *Entity) Transform {
	return Transform{
		Scale: vmath.Vec2{X: 1, Y: 1},
		owner: owner,
	}
}

// Entity returns the owning entity
func (t *Transform) Entity() *Entity { return t.owner }

// WorldPosition folds the parent chain from root to self, composing
// scale, then rotation, then translation, applied child-to-parent.
func (t *Transform) WorldPosition() vmath.Vec2 {
	p := t.parent()
	if p == nil {
		return t.Position
	}
	return p.TransformPoint(t.Position)
}

// WorldRotation returns the accumulated rotation of the parent chain in degrees
func (t *Transform) WorldRotation() float64 {
	p := t.parent()
	if p == nil {
		return t.Rotation
	}
	return p.WorldRotation() + t.Rotation
}

// WorldScale returns the component-wise product of the parent chain's scales
func (t *Transform) WorldScale() vmath.Vec2 {
	p := t.parent()
	if p == nil {
		return t.Scale
	}
	return p.WorldScale().Mul(t.Scale)
}

// TransformPoint maps a point from this transform's local space to
// world space, folding each level's scale, rotation, and translation in
// turn from here up to the root. Collapsing the chain into one
// accumulated scale and rotation would give wrong results when a
// non-uniform scale sits above a rotated level.
func (t *Transform) TransformPoint(local vmath.Vec2) vmath.Vec2 {
	p := local.Mul(t.Scale).Rotate(vmath.Radians(t.Rotation)).Add(t.Position)
	if parent := t.parent(); parent != nil {
		return parent.TransformPoint(p)
	}
	return p
}

// InverseTransformPoint maps a world-space point into this transform's
// local space by unwinding the ancestor fold top-down. Used when pulling
// simulated poses back into children of transformed parents.
func (t *Transform) InverseTransformPoint(world vmath.Vec2) vmath.Vec2 {
	p := world
	if parent := t.parent(); parent != nil {
		p = parent.InverseTransformPoint(world)
	}
	return p.Sub(t.Position).Rotate(-vmath.Radians(t.Rotation)).Div(t.Scale)
}

// SetWorldPosition adjusts the local position so the world position
// matches target under the current parent chain.
func (t *Transform) SetWorldPosition(target vmath.Vec2) {
	p := t.parent()
	if p == nil {
		t.Position = target
		return
	}
	t.Position = p.InverseTransformPoint(target)
}

// SetWorldRotation adjusts the local rotation so the world rotation
// matches target degrees under the current parent chain.
func (t *Transform) SetWorldRotation(target float64) {
	p := t.parent()
	if p == nil {
		t.Rotation = target
		return
	}
	t.Rotation = target - p.WorldRotation()
}

func (t *Transform) parent() *Transform {
	if t.owner == nil || t.owner.parent == nil {
		return nil
	}
	return t.owner.parent.Transform()
}
