package engine

import (
	"testing"
)

const tick = 1.0 / 60.0

// Test that the first segment runs on the first tick, not at Start
func TestSchedulerStartDeferred(t *testing.T) {
	sched := NewScheduler()
	ran := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		ran = true
	})

	if ran {
		t.Error("Expected body deferred until the first Update")
	}
	sched.Update(tick)
	if !ran {
		t.Error("Expected body to run on the first Update")
	}
	if sched.ActiveCount() != 0 {
		t.Errorf("Expected completed coroutine removed, got %d active", sched.ActiveCount())
	}
}

// Test WaitSeconds accumulation against scaled delta
func TestWaitSeconds(t *testing.T) {
	sched := NewScheduler()
	stage := 0

	sched.Start(func(yield func(YieldInstruction) bool) {
		stage = 1
		if !yield(WaitSeconds(3 * tick)) {
			return
		}
		stage = 2
	})

	sched.Update(tick) // runs first segment, suspends
	if stage != 1 {
		t.Fatalf("Expected stage 1 after first tick, got %d", stage)
	}
	sched.Update(tick) // elapsed 1 tick
	sched.Update(tick) // elapsed 2 ticks
	if stage != 1 {
		t.Errorf("Expected still suspended at 2 ticks, got stage %d", stage)
	}
	sched.Update(tick) // elapsed 3 ticks, resumes
	if stage != 2 {
		t.Errorf("Expected stage 2 after wait elapsed, got %d", stage)
	}
}

// Test that WaitSeconds never elapses when dt is zero (paused clock)
func TestWaitSecondsFrozenAtZeroDelta(t *testing.T) {
	sched := NewScheduler()
	done := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitSeconds(0.001)) {
			return
		}
		done = true
	})

	sched.Update(tick) // first segment
	for i := 0; i < 100; i++ {
		sched.Update(0)
	}
	if done {
		t.Error("Expected coroutine suspended while delta is zero")
	}
	sched.Update(tick)
	if !done {
		t.Error("Expected coroutine resumed once time flows again")
	}
}

// Test that doubled delta halves the real ticks a WaitSeconds takes
func TestWaitSecondsScalesWithDelta(t *testing.T) {
	sched := NewScheduler()
	done := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitSeconds(4 * tick)) {
			return
		}
		done = true
	})

	sched.Update(2 * tick) // first segment
	sched.Update(2 * tick) // elapsed 2 ticks worth
	if done {
		t.Fatal("Expected still suspended after one double tick")
	}
	sched.Update(2 * tick) // elapsed 4 ticks worth
	if !done {
		t.Error("Expected resume after two double ticks")
	}
}

// Test WaitFrames counts scheduler ticks, not time
func TestWaitFrames(t *testing.T) {
	sched := NewScheduler()
	done := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitFrames(2)) {
			return
		}
		done = true
	})

	sched.Update(1000) // huge dt is irrelevant to frame waits
	sched.Update(1000)
	if done {
		t.Fatal("Expected still suspended one frame short")
	}
	sched.Update(1000)
	if !done {
		t.Error("Expected resume after two frame ticks")
	}
}

// Test WaitUntil polls the predicate once per tick
func TestWaitUntil(t *testing.T) {
	sched := NewScheduler()
	gate := false
	done := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitUntil(func() bool { return gate })) {
			return
		}
		done = true
	})

	sched.Update(tick)
	sched.Update(tick)
	if done {
		t.Fatal("Expected suspension while predicate is false")
	}
	gate = true
	sched.Update(tick)
	if !done {
		t.Error("Expected resume once predicate turns true")
	}
}

// Test a cancelled coroutine never resumes
func TestCancelNeverResumes(t *testing.T) {
	sched := NewScheduler()
	resumed := false

	h := sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitFrames(1)) {
			return
		}
		resumed = true
	})

	sched.Update(tick) // first segment
	h.Cancel()
	for i := 0; i < 5; i++ {
		sched.Update(tick)
	}

	if resumed {
		t.Error("Expected cancelled coroutine to never resume")
	}
	if h.Running() {
		t.Error("Expected handle reported stopped after cancel")
	}
	if sched.ActiveCount() != 0 {
		t.Errorf("Expected cancelled coroutine removed, got %d active", sched.ActiveCount())
	}
}

// Test cancelling before the first segment suppresses it entirely
func TestCancelBeforeFirstSegment(t *testing.T) {
	sched := NewScheduler()
	ran := false

	h := sched.Start(func(yield func(YieldInstruction) bool) {
		ran = true
	})
	h.Cancel()
	sched.Update(tick)

	if ran {
		t.Error("Expected body suppressed when cancelled before first tick")
	}
}

// Test StopAll leaves zero active coroutines
func TestStopAll(t *testing.T) {
	sched := NewScheduler()
	var resumes int

	for i := 0; i < 3; i++ {
		sched.Start(func(yield func(YieldInstruction) bool) {
			for yield(WaitFrames(1)) {
				resumes++
			}
		})
	}

	sched.Update(tick)
	sched.StopAll()
	if sched.ActiveCount() != 0 {
		t.Errorf("Expected zero active after StopAll, got %d", sched.ActiveCount())
	}
	sched.Update(tick)
	sched.Update(tick)
	if resumes != 0 {
		t.Errorf("Expected no resumes after StopAll, got %d", resumes)
	}
}

// Test StopAll called from inside a coroutine body stops itself and the
// rest of the tick's snapshot
func TestStopAllFromInsideCoroutine(t *testing.T) {
	sched := NewScheduler()
	var selfResumes, siblingResumes int

	sched.Start(func(yield func(YieldInstruction) bool) {
		sched.StopAll()
		for yield(WaitFrames(1)) {
			selfResumes++
		}
	})
	sched.Start(func(yield func(YieldInstruction) bool) {
		for yield(WaitFrames(1)) {
			siblingResumes++
		}
	})

	for i := 0; i < 3; i++ {
		sched.Update(tick)
	}

	if sched.ActiveCount() != 0 {
		t.Errorf("Expected zero active after StopAll, got %d", sched.ActiveCount())
	}
	if selfResumes != 0 || siblingResumes != 0 {
		t.Errorf("Expected no resumes after StopAll, got self=%d sibling=%d", selfResumes, siblingResumes)
	}
}

// Test a coroutine started after a mid-tick StopAll still runs
func TestStartAfterStopAllRuns(t *testing.T) {
	sched := NewScheduler()
	ran := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		sched.StopAll()
		sched.Start(func(yield func(YieldInstruction) bool) {
			ran = true
		})
		yield(WaitFrames(1))
	})

	sched.Update(tick)
	sched.Update(tick)

	if !ran {
		t.Error("Expected coroutine started after StopAll to run")
	}
	if sched.ActiveCount() != 0 {
		t.Errorf("Expected only the completed coroutine tracked, got %d active", sched.ActiveCount())
	}
}

// Test WaitForCoroutine resumes the waiter when the awaitee completes
func TestWaitForCoroutine(t *testing.T) {
	sched := NewScheduler()
	order := []string{}

	inner := sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitFrames(2)) {
			return
		}
		order = append(order, "inner")
	})
	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitForCoroutine(inner)) {
			return
		}
		order = append(order, "outer")
	})

	for i := 0; i < 6; i++ {
		sched.Update(tick)
	}

	if len(order) != 2 || order[0] != "inner" || order[1] != "outer" {
		t.Errorf("Expected [inner outer], got %v", order)
	}
}

// Test that waiting on a cancelled coroutine resumes rather than deadlocks
func TestWaitForCancelledCoroutine(t *testing.T) {
	sched := NewScheduler()
	done := false

	inner := sched.Start(func(yield func(YieldInstruction) bool) {
		yield(WaitFrames(100))
	})
	sched.Start(func(yield func(YieldInstruction) bool) {
		if !yield(WaitForCoroutine(inner)) {
			return
		}
		done = true
	})

	sched.Update(tick)
	inner.Cancel()
	sched.Update(tick)

	if !done {
		t.Error("Expected waiter resumed after awaitee cancellation")
	}
}

// Test a panicking coroutine is removed without disturbing siblings
func TestCoroutinePanicIsolation(t *testing.T) {
	sched := NewScheduler()
	survivor := 0

	sched.Start(func(yield func(YieldInstruction) bool) {
		panic("boom")
	})
	sched.Start(func(yield func(YieldInstruction) bool) {
		survivor++
		if !yield(WaitFrames(1)) {
			return
		}
		survivor++
	})

	sched.Update(tick)
	sched.Update(tick)

	if survivor != 2 {
		t.Errorf("Expected sibling coroutine to keep running, got %d resumes", survivor)
	}
	if sched.ActiveCount() != 0 {
		t.Errorf("Expected panicked coroutine removed, got %d active", sched.ActiveCount())
	}
}

// Test a coroutine started during another's resume runs on the next tick
func TestStartDuringUpdate(t *testing.T) {
	sched := NewScheduler()
	spawned := false

	sched.Start(func(yield func(YieldInstruction) bool) {
		sched.Start(func(yield func(YieldInstruction) bool) {
			spawned = true
		})
	})

	sched.Update(tick)
	if spawned {
		t.Error("Expected spawned coroutine deferred to the next tick")
	}
	sched.Update(tick)
	if !spawned {
		t.Error("Expected spawned coroutine to run on the following tick")
	}
}
