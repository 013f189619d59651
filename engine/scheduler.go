package engine

import (
	"iter"

	"go.uber.org/zap"
)

// Routine is a coroutine body: a resumable sequence that yields a
// YieldInstruction at every suspension point. Between yields it runs to
// completion of its current segment, synchronously, inside one
// Scheduler.Update call. Returning ends the coroutine; yield returning
// false means the coroutine was cancelled and the body must unwind.
type Routine = func(yield func(YieldInstruction) bool)

// YieldInstruction is a suspension condition. The three time-based kinds
// plus WaitForCoroutine are the only suspension points in the runtime.
type YieldInstruction interface {
	isYield()
}

type waitSeconds struct{ seconds float64 }
type waitFrames struct{ frames int }
type waitUntil struct{ pred func() bool }
type waitCoroutine struct{ handle *CoroutineHandle }

func (waitSeconds) isYield()   {}
func (waitFrames) isYield()    {}
func (waitUntil) isYield()     {}
func (waitCoroutine) isYield() {}

// WaitSeconds suspends until n seconds of scaled delta time accumulate
func WaitSeconds(n float64) YieldInstruction { return waitSeconds{seconds: n} }

// WaitFrames suspends for n scheduler ticks
func WaitFrames(n int) YieldInstruction { return waitFrames{frames: n} }

// WaitUntil suspends until pred returns true; pred is evaluated once per tick
func WaitUntil(pred func() bool) YieldInstruction { return waitUntil{pred: pred} }

// WaitForCoroutine suspends until the other coroutine completes.
// Cancellation of the awaited coroutine counts as completion, so waiters
// never deadlock.
func WaitForCoroutine(h *CoroutineHandle) YieldInstruction { return waitCoroutine{handle: h} }

// CoroutineHandle tracks one started coroutine
type CoroutineHandle struct {
	running   bool
	cancelled bool
}

// Running reports whether the coroutine may still resume
func (h *CoroutineHandle) Running() bool { return h.running }

// Cancel marks the coroutine for removal. Cancellation is cooperative:
// it takes effect at or before the next scheduled resume, and the
// coroutine never resumes afterwards. Side effects already applied are
// not rolled back.
func (h *CoroutineHandle) Cancel() {
	if h.running {
		h.cancelled = true
		h.running = false
	}
}

type coroutine struct {
	handle *CoroutineHandle
	next   func() (YieldInstruction, bool)
	stop   func()
	gen    int

	current YieldInstruction
	resumed bool    // body has run its first segment
	elapsed float64 // WaitSeconds accumulator
	frames  int     // WaitFrames countdown
}

// Scheduler drives the coroutines of one behavior. Update resumes every
// active coroutine at most once; suspension state advances even while a
// coroutine is waiting. Not safe for concurrent use.
type Scheduler struct {
	active []*coroutine
	gen    int // bumped by StopAll; older coroutines never resume
	log    *zap.Logger
}

// NewScheduler creates an empty scheduler
func NewScheduler() *Scheduler {
	return &Scheduler{}
}

// SetLogger routes coroutine fault reports; nil silences them
func (s *Scheduler) SetLogger(log *zap.Logger) { s.log = log }

// Start registers the routine as active and returns its handle. The
// first segment of the body runs on the next Update tick, not here.
func (s *Scheduler) Start(r Routine) *CoroutineHandle {
	next, stop := iter.Pull(iter.Seq[YieldInstruction](r))
	co := &coroutine{
		handle: &CoroutineHandle{running: true},
		next:   next,
		stop:   stop,
		gen:    s.gen,
	}
	s.active = append(s.active, co)
	return co.handle
}

// Update advances every active coroutine once. dt is the scaled frame
// delta; WaitSeconds accumulates it, so timeScale 0 suspends waits
// indefinitely.
func (s *Scheduler) Update(dt float64) {
	if len(s.active) == 0 {
		return
	}

	// Iterate over a snapshot: resumed bodies may start new coroutines
	snapshot := s.active
	s.active = make([]*coroutine, 0, len(snapshot))

	for _, co := range snapshot {
		if co.handle.cancelled || co.gen < s.gen {
			co.handle.Cancel()
			co.stop()
			continue
		}
		if co.resumed && !co.ready(dt) {
			s.active = append(s.active, co)
			continue
		}
		if s.resume(co) {
			s.active = append(s.active, co)
		}
	}
}

// ready advances the current suspension condition and reports whether
// the coroutine should resume this tick
func (co *coroutine) ready(dt float64) bool {
	switch instr := co.current.(type) {
	case waitSeconds:
		co.elapsed += dt
		return co.elapsed >= instr.seconds
	case waitFrames:
		co.frames--
		return co.frames <= 0
	case waitUntil:
		return instr.pred()
	case waitCoroutine:
		return !instr.handle.Running()
	default:
		// nil or unknown instruction resumes immediately
		return true
	}
}

// resume runs the body until its next yield. Returns false when the
// coroutine completed, was cancelled mid-resume, or panicked. A panic
// terminates only this coroutine; siblings are unaffected.
func (s *Scheduler) resume(co *coroutine) (alive bool) {
	defer func() {
		if r := recover(); r != nil {
			if s.log != nil {
				s.log.Error("coroutine panicked", zap.Any("panic", r))
			}
			co.handle.running = false
			co.stop()
			alive = false
		}
	}()

	instr, ok := co.next()
	if !ok {
		co.handle.running = false
		co.stop()
		return false
	}
	if !co.handle.running || co.gen < s.gen {
		// Cancelled from inside the resumed segment (self-cancel or StopAll)
		co.handle.Cancel()
		co.stop()
		return false
	}

	co.resumed = true
	co.current = instr
	co.elapsed = 0
	if wf, isFrames := instr.(waitFrames); isFrames {
		co.frames = wf.frames
	}
	return true
}

// StopAll cancels every active coroutine and clears the tracking list.
// Called mid-Update it also covers the in-flight coroutine and the rest
// of the tick's snapshot: the generation bump marks them stale, and the
// Update loop drops stale coroutines instead of resuming them.
// Coroutines started after the call are unaffected.
func (s *Scheduler) StopAll() {
	s.gen++
	for _, co := range s.active {
		co.handle.Cancel()
		co.stop()
	}
	s.active = nil
}

// ActiveCount returns the number of coroutines still tracked
func (s *Scheduler) ActiveCount() int {
	return len(s.active)
}
