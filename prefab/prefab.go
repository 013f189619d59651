// Package prefab loads and exports scene documents: JSON entity trees
// with components and behavior references. It builds detached entity
// graphs for Scene.Add; the runtime core never parses serialized data
// itself.
package prefab

import (
	"fmt"
	"sync"

	"github.com/google/uuid"
	jsoniter "github.com/json-iterator/go"

	"github.com/clokk/bonkgo/engine"
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

var json = jsoniter.ConfigCompatibleWithStandardLibrary

// Document is a loadable scene or prefab: a forest of entity trees
type Document struct {
	ID       string      `json:"id,omitempty"`
	Name     string      `json:"name,omitempty"`
	Entities []EntityDoc `json:"entities"`
}

// EntityDoc describes one entity and its subtree
type EntityDoc struct {
	Name       string         `json:"name"`
	Tag        string         `json:"tag,omitempty"`
	Disabled   bool           `json:"disabled,omitempty"`
	Transform  TransformDoc   `json:"transform"`
	Components []ComponentDoc `json:"components,omitempty"`
	Behaviors  []BehaviorDoc  `json:"behaviors,omitempty"`
	Children   []EntityDoc    `json:"children,omitempty"`
}

// TransformDoc carries the local pose
type TransformDoc struct {
	Position [2]float64  `json:"position"`
	Rotation float64     `json:"rotation,omitempty"`
	Scale    *[2]float64 `json:"scale,omitempty"` // nil means (1,1)
	ZIndex   int         `json:"zIndex,omitempty"`
}

// ComponentDoc is a kind discriminator plus kind-specific properties
type ComponentDoc struct {
	Kind  string              `json:"kind"`
	Props jsoniter.RawMessage `json:"props,omitempty"`
}

// BehaviorDoc references a registered behavior factory by name
type BehaviorDoc struct {
	Name  string              `json:"name"`
	Props jsoniter.RawMessage `json:"props,omitempty"`
}

// BehaviorFactory builds a behavior instance from its document props
type BehaviorFactory func(props []byte) (engine.Behavior, error)

// Named is implemented by behaviors that survive Export round-trips
type Named interface {
	PrefabName() string
}

var (
	factoriesMu sync.RWMutex
	factories   = make(map[string]BehaviorFactory)
)

// RegisterBehavior adds a behavior factory by document name
func RegisterBehavior(name string, factory BehaviorFactory) {
	factoriesMu.Lock()
	defer factoriesMu.Unlock()
	factories[name] = factory
}

func behaviorFactory(name string) (BehaviorFactory, bool) {
	factoriesMu.RLock()
	defer factoriesMu.RUnlock()
	f, ok := factories[name]
	return f, ok
}

// Load parses a document from JSON. A missing id gets a fresh one.
func Load(data []byte) (*Document, error) {
	var doc Document
	if err := json.Unmarshal(data, &doc); err != nil {
		return nil, fmt.Errorf("prefab: parse document: %w", err)
	}
	if doc.ID == "" {
		doc.ID = uuid.NewString()
	}
	return &doc, nil
}

// Save serializes a document to indented JSON
func Save(doc *Document) ([]byte, error) {
	data, err := json.MarshalIndent(doc, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("prefab: serialize document: %w", err)
	}
	return data, nil
}

// Build constructs detached entity trees from the document, fresh ids
// every time. The caller passes the roots to Scene.Add.
func Build(doc *Document) ([]*engine.Entity, error) {
	roots := make([]*engine.Entity, 0, len(doc.Entities))
	for i := range doc.Entities {
		e, err := buildEntity(&doc.Entities[i])
		if err != nil {
			return nil, err
		}
		roots = append(roots, e)
	}
	return roots, nil
}

func buildEntity(doc *EntityDoc) (*engine.Entity, error) {
	e := engine.NewEntity(doc.Name)
	e.SetTag(doc.Tag)
	e.SetEnabled(!doc.Disabled)

	t := e.Transform()
	t.Position = vmath.Vec2{X: doc.Transform.Position[0], Y: doc.Transform.Position[1]}
	t.Rotation = doc.Transform.Rotation
	if doc.Transform.Scale != nil {
		t.Scale = vmath.Vec2{X: doc.Transform.Scale[0], Y: doc.Transform.Scale[1]}
	}
	t.ZIndex = doc.Transform.ZIndex

	for _, cd := range doc.Components {
		c, err := buildComponent(cd)
		if err != nil {
			return nil, fmt.Errorf("prefab: entity %q: %w", doc.Name, err)
		}
		e.AddComponent(c)
	}

	for _, bd := range doc.Behaviors {
		factory, ok := behaviorFactory(bd.Name)
		if !ok {
			return nil, fmt.Errorf("prefab: entity %q: no behavior registered as %q", doc.Name, bd.Name)
		}
		b, err := factory(bd.Props)
		if err != nil {
			return nil, fmt.Errorf("prefab: entity %q: behavior %q: %w", doc.Name, bd.Name, err)
		}
		e.AddBehavior(b)
	}

	for i := range doc.Children {
		child, err := buildEntity(&doc.Children[i])
		if err != nil {
			return nil, err
		}
		if err := child.SetParent(e); err != nil {
			return nil, err
		}
	}
	return e, nil
}

// === Component documents ===

type spriteProps struct {
	Glyph   string   `json:"glyph,omitempty"`
	Texture string   `json:"texture,omitempty"`
	Alpha   *float64 `json:"alpha,omitempty"` // nil means opaque, zero is transparent
	Hidden  bool     `json:"hidden,omitempty"`
}

type cameraProps struct {
	Zoom    float64 `json:"zoom,omitempty"`
	Primary bool    `json:"primary,omitempty"`
}

type audioProps struct {
	Freq     float64 `json:"freq,omitempty"`
	Duration float64 `json:"duration,omitempty"`
	Volume   float64 `json:"volume,omitempty"`
	Loop     bool    `json:"loop,omitempty"`
}

type rigidBodyProps struct {
	BodyType      string   `json:"bodyType,omitempty"` // dynamic|static|kinematic
	Mass          float64  `json:"mass,omitempty"`
	Friction      float64  `json:"friction,omitempty"`
	Restitution   float64  `json:"restitution,omitempty"`
	LinearDamping float64  `json:"linearDamping,omitempty"`
	GravityScale  *float64 `json:"gravityScale,omitempty"` // nil means the default of 1
	FixedRotation bool     `json:"fixedRotation,omitempty"`
}

type colliderProps struct {
	Shape     string       `json:"shape,omitempty"` // box|circle|polygon
	Size      [2]float64   `json:"size,omitempty"`
	Radius    float64      `json:"radius,omitempty"`
	Vertices  [][2]float64 `json:"vertices,omitempty"`
	Offset    [2]float64   `json:"offset,omitempty"`
	IsTrigger bool         `json:"isTrigger,omitempty"`
	Layer     string       `json:"layer,omitempty"`
	Mask      []string     `json:"mask,omitempty"`
}

func buildComponent(doc ComponentDoc) (engine.Component, error) {
	switch engine.Kind(doc.Kind) {
	case engine.KindSprite:
		var p spriteProps
		if err := decodeProps(doc.Props, &p); err != nil {
			return nil, err
		}
		s := &engine.Sprite{Texture: p.Texture, Alpha: 1, Hidden: p.Hidden}
		if p.Glyph != "" {
			s.Glyph = []rune(p.Glyph)[0]
		}
		if p.Alpha != nil {
			s.Alpha = *p.Alpha
		}
		return s, nil

	case engine.KindCamera:
		var p cameraProps
		if err := decodeProps(doc.Props, &p); err != nil {
			return nil, err
		}
		return &engine.Camera{Zoom: p.Zoom, Primary: p.Primary}, nil

	case engine.KindAudioSource:
		var p audioProps
		if err := decodeProps(doc.Props, &p); err != nil {
			return nil, err
		}
		return &engine.AudioSource{Freq: p.Freq, Duration: p.Duration, Volume: p.Volume, Loop: p.Loop}, nil

	case engine.KindRigidBody2D:
		var p rigidBodyProps
		if err := decodeProps(doc.Props, &p); err != nil {
			return nil, err
		}
		rb := &engine.RigidBody2D{
			Mass:          p.Mass,
			Friction:      p.Friction,
			Restitution:   p.Restitution,
			LinearDamping: p.LinearDamping,
			GravityScale:  p.GravityScale,
			FixedRotation: p.FixedRotation,
		}
		switch p.BodyType {
		case "", "dynamic":
			rb.BodyType = physics.BodyDynamic
		case "static":
			rb.BodyType = physics.BodyStatic
		case "kinematic":
			rb.BodyType = physics.BodyKinematic
		default:
			return nil, fmt.Errorf("unknown body type %q", p.BodyType)
		}
		return rb, nil

	case engine.KindCollider2D:
		var p colliderProps
		if err := decodeProps(doc.Props, &p); err != nil {
			return nil, err
		}
		c := &engine.Collider2D{
			Size:      vmath.Vec2{X: p.Size[0], Y: p.Size[1]},
			Radius:    p.Radius,
			Offset:    vmath.Vec2{X: p.Offset[0], Y: p.Offset[1]},
			IsTrigger: p.IsTrigger,
			Layer:     p.Layer,
			Mask:      p.Mask,
		}
		switch p.Shape {
		case "", "box":
			c.Shape = physics.ShapeBox
		case "circle":
			c.Shape = physics.ShapeCircle
		case "polygon":
			c.Shape = physics.ShapePolygon
			c.Vertices = make([]vmath.Vec2, len(p.Vertices))
			for i, v := range p.Vertices {
				c.Vertices[i] = vmath.Vec2{X: v[0], Y: v[1]}
			}
		default:
			return nil, fmt.Errorf("unknown collider shape %q", p.Shape)
		}
		return c, nil

	default:
		return nil, fmt.Errorf("unknown component kind %q", doc.Kind)
	}
}

func decodeProps(raw jsoniter.RawMessage, into any) error {
	if len(raw) == 0 {
		return nil
	}
	return json.Unmarshal(raw, into)
}

// === Export ===

// Export serializes entity trees back into a document with a fresh id.
// Behaviors are exported only when they implement Named with a
// registered factory; everything else round-trips losslessly enough to
// rebuild an isomorphic graph (names, tags, component kinds, hierarchy).
func Export(name string, roots []*engine.Entity) *Document {
	doc := &Document{ID: uuid.NewString(), Name: name}
	for _, e := range roots {
		doc.Entities = append(doc.Entities, exportEntity(e))
	}
	return doc
}

func exportEntity(e *engine.Entity) EntityDoc {
	t := e.Transform()
	doc := EntityDoc{
		Name:     e.Name(),
		Tag:      e.Tag(),
		Disabled: !e.Enabled(),
		Transform: TransformDoc{
			Position: [2]float64{t.Position.X, t.Position.Y},
			Rotation: t.Rotation,
			ZIndex:   t.ZIndex,
		},
	}
	if t.Scale != (vmath.Vec2{X: 1, Y: 1}) {
		doc.Transform.Scale = &[2]float64{t.Scale.X, t.Scale.Y}
	}

	for _, c := range e.Components() {
		if cd, ok := exportComponent(c); ok {
			doc.Components = append(doc.Components, cd)
		}
	}
	for _, b := range e.Behaviors() {
		if named, ok := b.(Named); ok {
			doc.Behaviors = append(doc.Behaviors, BehaviorDoc{Name: named.PrefabName()})
		}
	}
	for _, child := range e.Children() {
		doc.Children = append(doc.Children, exportEntity(child))
	}
	return doc
}

func exportComponent(c engine.Component) (ComponentDoc, bool) {
	var props any
	switch v := c.(type) {
	case *engine.Sprite:
		glyph := ""
		if v.Glyph != 0 {
			glyph = string(v.Glyph)
		}
		alpha := v.Alpha
		props = spriteProps{Glyph: glyph, Texture: v.Texture, Alpha: &alpha, Hidden: v.Hidden}
	case *engine.Camera:
		props = cameraProps{Zoom: v.Zoom, Primary: v.Primary}
	case *engine.AudioSource:
		props = audioProps{Freq: v.Freq, Duration: v.Duration, Volume: v.Volume, Loop: v.Loop}
	case *engine.RigidBody2D:
		props = rigidBodyProps{
			BodyType:      v.BodyType.String(),
			Mass:          v.Mass,
			Friction:      v.Friction,
			Restitution:   v.Restitution,
			LinearDamping: v.LinearDamping,
			GravityScale:  v.GravityScale,
			FixedRotation: v.FixedRotation,
		}
	case *engine.Collider2D:
		verts := make([][2]float64, len(v.Vertices))
		for i, vert := range v.Vertices {
			verts[i] = [2]float64{vert.X, vert.Y}
		}
		props = colliderProps{
			Shape:     v.Shape.String(),
			Size:      [2]float64{v.Size.X, v.Size.Y},
			Radius:    v.Radius,
			Vertices:  verts,
			Offset:    [2]float64{v.Offset.X, v.Offset.Y},
			IsTrigger: v.IsTrigger,
			Layer:     v.Layer,
			Mask:      v.Mask,
		}
	default:
		return ComponentDoc{}, false
	}

	raw, err := json.Marshal(props)
	if err != nil {
		return ComponentDoc{}, false
	}
	return ComponentDoc{Kind: string(c.Kind()), Props: raw}, true
}
