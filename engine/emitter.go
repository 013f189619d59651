package engine

// Emitter is a behavior-local observer: string-keyed publish/subscribe
// with no delivery guarantees beyond synchronous, in-order invocation.
// Not safe for concurrent use; everything runs on the frame goroutine.
type Emitter struct {
	nextID   int
	handlers map[string][]subscription
}

type subscription struct {
	id int
	fn func(payload any)
}

// NewEmitter creates an empty emitter
func NewEmitter() *Emitter {
	return &Emitter{handlers: make(map[string][]subscription)}
}

// Subscribe registers fn for event and returns an unsubscribe token
func (e *Emitter) Subscribe(event string, fn func(payload any)) int {
	e.nextID++
	e.handlers[event] = append(e.handlers[event], subscription{id: e.nextID, fn: fn})
	return e.nextID
}

// Unsubscribe removes a previously registered handler by token
func (e *Emitter) Unsubscribe(event string, id int) {
	subs := e.handlers[event]
	for i, s := range subs {
		if s.id == id {
			e.handlers[event] = append(subs[:i], subs[i+1:]...)
			return
		}
	}
}

// Emit invokes every handler registered for event, in subscribe order
func (e *Emitter) Emit(event string, payload any) {
	// Snapshot so handlers may subscribe/unsubscribe during delivery
	subs := e.handlers[event]
	snapshot := make([]subscription, len(subs))
	copy(snapshot, subs)
	for _, s := range snapshot {
		s.fn(payload)
	}
}

// Clear detaches every handler; used during behavior teardown
func (e *Emitter) Clear() {
	e.handlers = make(map[string][]subscription)
}
