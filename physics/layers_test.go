package physics

import (
	"testing"
)

// Test "default" occupies bit 0 and categories stay stable per name
func TestDefaultLayerBitZero(t *testing.T) {
	r := NewLayerRegistry(nil)

	if got := r.Category("default"); got != 1 {
		t.Errorf("Expected default category 1, got %d", got)
	}
	if got := r.Category(""); got != 1 {
		t.Errorf("Expected empty name mapped to default, got %d", got)
	}

	first := r.Category("enemy")
	second := r.Category("enemy")
	if first != second {
		t.Errorf("Expected stable category per name, got %d then %d", first, second)
	}
	if first == 1 {
		t.Error("Expected fresh layer not to share the default bit")
	}
}

// Test auto-registration assigns distinct single bits
func TestLayerAutoRegistration(t *testing.T) {
	r := NewLayerRegistry(nil)

	a := r.Category("a")
	b := r.Category("b")
	c := r.Category("c")

	if a&b != 0 || a&c != 0 || b&c != 0 {
		t.Errorf("Expected disjoint category bits, got %d %d %d", a, b, c)
	}
	if r.Count() != 4 {
		t.Errorf("Expected 4 registered layers including default, got %d", r.Count())
	}

	name, ok := r.Name(b)
	if !ok || name != "b" {
		t.Errorf("Expected reverse lookup to return b, got %q", name)
	}
}

// Test an empty mask list means collide with everything, including
// layers registered afterwards
func TestEmptyMaskMatchesEverything(t *testing.T) {
	r := NewLayerRegistry(nil)
	r.Category("early")

	mask := r.Mask(nil)
	if mask != ^uint32(0) {
		t.Fatalf("Expected all bits set for empty mask, got %x", mask)
	}

	late := r.Category("late")
	if mask&late == 0 {
		t.Error("Expected empty mask to match a layer registered later")
	}
}

// Test named masks OR their categories
func TestNamedMask(t *testing.T) {
	r := NewLayerRegistry(nil)
	a := r.Category("a")
	b := r.Category("b")
	c := r.Category("c")

	mask := r.Mask([]string{"a", "c"})
	if mask != a|c {
		t.Errorf("Expected mask %d, got %d", a|c, mask)
	}
	if mask&b != 0 {
		t.Error("Expected unnamed layer excluded from mask")
	}
}

// Test the 33rd layer maps to the default category instead of failing
func TestLayerOverflowFallsBackToDefault(t *testing.T) {
	r := NewLayerRegistry(nil)

	// Default occupies bit 0; fill the remaining 31
	for i := 0; i < 31; i++ {
		r.Category(string(rune('A' + i)))
	}
	if r.Count() != 32 {
		t.Fatalf("Expected 32 layers registered, got %d", r.Count())
	}

	overflow := r.Category("one-too-many")
	if overflow != 1 {
		t.Errorf("Expected overflow layer mapped to default category, got %d", overflow)
	}
	if r.Count() != 32 {
		t.Errorf("Expected overflow not registered, got %d layers", r.Count())
	}
}
