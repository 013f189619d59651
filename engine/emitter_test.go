package engine

import (
	"testing"
)

// Test handlers receive payloads in subscribe order
func TestEmitterDelivery(t *testing.T) {
	e := NewEmitter()
	var got []int

	e.Subscribe("hit", func(p any) { got = append(got, p.(int)*10) })
	e.Subscribe("hit", func(p any) { got = append(got, p.(int)*100) })
	e.Subscribe("miss", func(any) { t.Error("Expected no delivery to other events") })

	e.Emit("hit", 3)

	if len(got) != 2 || got[0] != 30 || got[1] != 300 {
		t.Errorf("Expected [30 300], got %v", got)
	}
}

// Test unsubscribe by token stops delivery
func TestEmitterUnsubscribe(t *testing.T) {
	e := NewEmitter()
	calls := 0

	id := e.Subscribe("tick", func(any) { calls++ })
	e.Emit("tick", nil)
	e.Unsubscribe("tick", id)
	e.Emit("tick", nil)

	if calls != 1 {
		t.Errorf("Expected one call, got %d", calls)
	}
}

// Test handlers may unsubscribe themselves during delivery
func TestEmitterUnsubscribeDuringEmit(t *testing.T) {
	e := NewEmitter()
	calls := 0

	var id int
	id = e.Subscribe("once", func(any) {
		calls++
		e.Unsubscribe("once", id)
	})

	e.Emit("once", nil)
	e.Emit("once", nil)

	if calls != 1 {
		t.Errorf("Expected a self-removing handler to fire once, got %d", calls)
	}
}

// Test Clear detaches everything
func TestEmitterClear(t *testing.T) {
	e := NewEmitter()
	calls := 0
	e.Subscribe("a", func(any) { calls++ })
	e.Subscribe("b", func(any) { calls++ })

	e.Clear()
	e.Emit("a", nil)
	e.Emit("b", nil)

	if calls != 0 {
		t.Errorf("Expected no deliveries after Clear, got %d", calls)
	}
}
