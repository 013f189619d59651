package prefab

import (
	"testing"

	"github.com/clokk/bonkgo/engine"
	"github.com/clokk/bonkgo/physics"
	"github.com/clokk/bonkgo/vmath"
)

const sampleDoc = `{
  "name": "level-1",
  "entities": [
    {
      "name": "floor",
      "tag": "world",
      "transform": {"position": [0, -200]},
      "components": [
        {"kind": "RigidBody2D", "props": {"bodyType": "static", "friction": 0.8}},
        {"kind": "Collider2D", "props": {"shape": "box", "size": [2000, 40], "layer": "world"}},
        {"kind": "Sprite", "props": {"glyph": "="}}
      ]
    },
    {
      "name": "crate",
      "transform": {"position": [10, 100], "rotation": 15, "scale": [2, 2]},
      "components": [
        {"kind": "RigidBody2D", "props": {"mass": 2, "restitution": 0.3}},
        {"kind": "Collider2D", "props": {"size": [40, 40]}}
      ],
      "children": [
        {
          "name": "marker",
          "transform": {"position": [0, 30], "zIndex": 5},
          "components": [{"kind": "Sprite", "props": {"glyph": "*", "alpha": 0.5}}]
        }
      ]
    }
  ]
}`

// Test loading assigns an id and parses the entity forest
func TestLoad(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if doc.ID == "" {
		t.Error("Expected a generated document id")
	}
	if doc.Name != "level-1" {
		t.Errorf("Expected name level-1, got %q", doc.Name)
	}
	if len(doc.Entities) != 2 {
		t.Fatalf("Expected 2 root entities, got %d", len(doc.Entities))
	}
	if len(doc.Entities[1].Children) != 1 {
		t.Errorf("Expected crate to carry one child, got %d", len(doc.Entities[1].Children))
	}
}

// Test malformed input fails with a wrapped parse error
func TestLoadMalformed(t *testing.T) {
	if _, err := Load([]byte(`{"entities": [`)); err == nil {
		t.Error("Expected an error for truncated JSON")
	}
}

// Test building materializes components, hierarchy, and transforms
func TestBuild(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	roots, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if len(roots) != 2 {
		t.Fatalf("Expected 2 roots, got %d", len(roots))
	}

	floor := roots[0]
	if floor.Name() != "floor" || floor.Tag() != "world" {
		t.Errorf("Expected floor/world, got %q/%q", floor.Name(), floor.Tag())
	}
	rb, ok := engine.ComponentOf[*engine.RigidBody2D](floor)
	if !ok {
		t.Fatal("Expected a RigidBody2D on the floor")
	}
	if rb.BodyType != physics.BodyStatic || rb.Friction != 0.8 {
		t.Errorf("Expected static body with friction 0.8, got %v %f", rb.BodyType, rb.Friction)
	}
	col, ok := engine.ComponentOf[*engine.Collider2D](floor)
	if !ok || col.Layer != "world" || col.Size != (vmath.Vec2{X: 2000, Y: 40}) {
		t.Errorf("Expected world box collider, got %+v", col)
	}

	crate := roots[1]
	if crate.Transform().Rotation != 15 {
		t.Errorf("Expected rotation 15, got %f", crate.Transform().Rotation)
	}
	if crate.Transform().Scale != (vmath.Vec2{X: 2, Y: 2}) {
		t.Errorf("Expected scale (2,2), got %v", crate.Transform().Scale)
	}
	crateRB, _ := engine.ComponentOf[*engine.RigidBody2D](crate)
	if crateRB.BodyType != physics.BodyDynamic {
		t.Error("Expected body type to default to dynamic")
	}

	if len(crate.Children()) != 1 {
		t.Fatalf("Expected one child, got %d", len(crate.Children()))
	}
	marker := crate.Children()[0]
	if marker.Parent() != crate {
		t.Error("Expected child parent back-reference")
	}
	if marker.Transform().ZIndex != 5 {
		t.Errorf("Expected zIndex 5, got %d", marker.Transform().ZIndex)
	}
	sprite, ok := engine.ComponentOf[*engine.Sprite](marker)
	if !ok || sprite.Glyph != '*' || sprite.Alpha != 0.5 {
		t.Errorf("Expected * sprite at alpha 0.5, got %+v", sprite)
	}
}

// Test every build yields fresh entity ids
func TestBuildFreshIDs(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	first, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	second, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	if first[0].ID() == second[0].ID() {
		t.Error("Expected fresh entity ids per build")
	}
}

// Test unknown component kinds and body types fail with context
func TestBuildValidation(t *testing.T) {
	bad := `{"entities": [{"name": "x", "transform": {"position": [0,0]},
	  "components": [{"kind": "teleporter"}]}]}`
	doc, err := Load([]byte(bad))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := Build(doc); err == nil {
		t.Error("Expected an error for an unknown component kind")
	}

	badType := `{"entities": [{"name": "x", "transform": {"position": [0,0]},
	  "components": [{"kind": "RigidBody2D", "props": {"bodyType": "floaty"}}]}]}`
	doc, err = Load([]byte(badType))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := Build(doc); err == nil {
		t.Error("Expected an error for an unknown body type")
	}
}

// Test unregistered behavior references fail the build
func TestBuildUnknownBehavior(t *testing.T) {
	src := `{"entities": [{"name": "x", "transform": {"position": [0,0]},
	  "behaviors": [{"name": "never-registered"}]}]}`
	doc, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	if _, err := Build(doc); err == nil {
		t.Error("Expected an error for an unregistered behavior")
	}
}

// spinner is a registered, exportable test behavior
type spinner struct {
	engine.BehaviorCore
}

func (s *spinner) PrefabName() string { return "spinner" }

func init() {
	RegisterBehavior("spinner", func([]byte) (engine.Behavior, error) {
		return &spinner{}, nil
	})
}

// Test registered behaviors build and survive export round-trips
func TestBehaviorRoundTrip(t *testing.T) {
	src := `{"entities": [{"name": "top", "transform": {"position": [0,0]},
	  "behaviors": [{"name": "spinner"}]}]}`
	doc, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	roots, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}
	if _, ok := engine.BehaviorOf[*spinner](roots[0]); !ok {
		t.Fatal("Expected a spinner behavior on the built entity")
	}

	exported := Export("copy", roots)
	if len(exported.Entities) != 1 || len(exported.Entities[0].Behaviors) != 1 {
		t.Fatal("Expected the behavior exported")
	}
	if exported.Entities[0].Behaviors[0].Name != "spinner" {
		t.Errorf("Expected behavior name spinner, got %q", exported.Entities[0].Behaviors[0].Name)
	}
}

// Test load→build→export→save→load→build yields an isomorphic graph
func TestExportRoundTrip(t *testing.T) {
	doc, err := Load([]byte(sampleDoc))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	roots, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	exported := Export("copy", roots)
	if exported.ID == doc.ID {
		t.Error("Expected a fresh document id on export")
	}

	data, err := Save(exported)
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load of exported document failed: %v", err)
	}
	rebuilt, err := Build(reloaded)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}

	if len(rebuilt) != len(roots) {
		t.Fatalf("Expected %d roots, got %d", len(roots), len(rebuilt))
	}
	for i := range roots {
		assertIsomorphic(t, roots[i], rebuilt[i])
	}
}

// Test explicit zeros for gravity scale and alpha are kept, not defaulted
func TestExplicitZeroPropsPreserved(t *testing.T) {
	src := `{"entities": [{"name": "balloon", "transform": {"position": [0,0]},
	  "components": [
	    {"kind": "RigidBody2D", "props": {"gravityScale": 0}},
	    {"kind": "Sprite", "props": {"glyph": "o", "alpha": 0}}
	  ]}]}`
	doc, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	roots, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rb, ok := engine.ComponentOf[*engine.RigidBody2D](roots[0])
	if !ok || rb.GravityScale == nil || *rb.GravityScale != 0 {
		t.Errorf("Expected explicit zero gravity scale, got %+v", rb.GravityScale)
	}
	sprite, ok := engine.ComponentOf[*engine.Sprite](roots[0])
	if !ok || sprite.Alpha != 0 {
		t.Errorf("Expected fully transparent sprite, got %+v", sprite)
	}

	data, err := Save(Export("copy", roots))
	if err != nil {
		t.Fatalf("Save failed: %v", err)
	}
	reloaded, err := Load(data)
	if err != nil {
		t.Fatalf("Load of exported document failed: %v", err)
	}
	rebuilt, err := Build(reloaded)
	if err != nil {
		t.Fatalf("Rebuild failed: %v", err)
	}
	rb2, _ := engine.ComponentOf[*engine.RigidBody2D](rebuilt[0])
	if rb2.GravityScale == nil || *rb2.GravityScale != 0 {
		t.Error("Expected zero gravity scale to survive the round trip")
	}
	sprite2, _ := engine.ComponentOf[*engine.Sprite](rebuilt[0])
	if sprite2.Alpha != 0 {
		t.Errorf("Expected zero alpha to survive the round trip, got %f", sprite2.Alpha)
	}
}

// Test absent gravity scale and alpha take their defaults
func TestAbsentPropsDefaults(t *testing.T) {
	src := `{"entities": [{"name": "plain", "transform": {"position": [0,0]},
	  "components": [
	    {"kind": "RigidBody2D"},
	    {"kind": "Sprite", "props": {"glyph": "#"}}
	  ]}]}`
	doc, err := Load([]byte(src))
	if err != nil {
		t.Fatalf("Load failed: %v", err)
	}
	roots, err := Build(doc)
	if err != nil {
		t.Fatalf("Build failed: %v", err)
	}

	rb, _ := engine.ComponentOf[*engine.RigidBody2D](roots[0])
	if rb.GravityScale != nil {
		t.Errorf("Expected gravity scale left unset, got %f", *rb.GravityScale)
	}
	sprite, _ := engine.ComponentOf[*engine.Sprite](roots[0])
	if sprite.Alpha != 1 {
		t.Errorf("Expected opaque sprite by default, got %f", sprite.Alpha)
	}
}

func assertIsomorphic(t *testing.T, a, b *engine.Entity) {
	t.Helper()
	if a.Name() != b.Name() || a.Tag() != b.Tag() || a.Enabled() != b.Enabled() {
		t.Errorf("Entity identity mismatch: %q vs %q", a.Name(), b.Name())
	}
	if a.Transform().Position != b.Transform().Position ||
		a.Transform().Rotation != b.Transform().Rotation ||
		a.Transform().Scale != b.Transform().Scale ||
		a.Transform().ZIndex != b.Transform().ZIndex {
		t.Errorf("Transform mismatch on %q", a.Name())
	}
	if len(a.Components()) != len(b.Components()) {
		t.Fatalf("Component count mismatch on %q: %d vs %d",
			a.Name(), len(a.Components()), len(b.Components()))
	}
	for i := range a.Components() {
		if a.Components()[i].Kind() != b.Components()[i].Kind() {
			t.Errorf("Component kind mismatch on %q at %d", a.Name(), i)
		}
	}
	if len(a.Children()) != len(b.Children()) {
		t.Fatalf("Child count mismatch on %q", a.Name())
	}
	for i := range a.Children() {
		assertIsomorphic(t, a.Children()[i], b.Children()[i])
	}
}
