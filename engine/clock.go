package engine

import (
	"github.com/clokk/bonkgo/parameter"
)

// Clock tracks frame timing for one simulation. It is owned by the host
// and injected into the Scene, never a process global, so independent
// simulations can run side by side in tests.
type Clock struct {
	time          float64 // seconds elapsed, scaled
	unscaledDelta float64
	delta         float64 // unscaledDelta * timeScale
	fixedDelta    float64 // constant; host decides steps per frame
	timeScale     float64
	frameCount    uint64
}

// NewClock creates a clock with the given fixed step and timeScale 1.
// fixedDelta <= 0 falls back to the default step.
func NewClock(fixedDelta float64) *Clock {
	if fixedDelta <= 0 {
		fixedDelta = parameter.FixedDelta
	}
	return &Clock{
		fixedDelta: fixedDelta,
		timeScale:  parameter.DefaultTimeScale,
	}
}

// Update advances the clock by one host frame. Called exactly once per
// rendered frame, even while timeScale is 0.
func (c *Clock) Update(unscaledDt float64) {
	if unscaledDt < 0 {
		unscaledDt = 0
	}
	c.unscaledDelta = unscaledDt
	c.delta = unscaledDt * c.timeScale
	c.time += c.delta
	c.frameCount++
}

// Time returns scaled seconds elapsed since creation or Reset
func (c *Clock) Time() float64 { return c.time }

// Delta returns the scaled delta of the current frame
func (c *Clock) Delta() float64 { return c.delta }

// UnscaledDelta returns the wall-clock delta of the current frame
func (c *Clock) UnscaledDelta() float64 { return c.unscaledDelta }

// FixedDelta returns the constant physics step
func (c *Clock) FixedDelta() float64 { return c.fixedDelta }

// FrameCount returns the number of Update calls since creation or Reset
func (c *Clock) FrameCount() uint64 { return c.frameCount }

// TimeScale returns the current gameplay time multiplier
func (c *Clock) TimeScale() float64 { return c.timeScale }

// SetTimeScale sets the gameplay time multiplier, clamped to >= 0.
// Scale 0 freezes gameplay time; the host keeps calling Update.
func (c *Clock) SetTimeScale(scale float64) {
	if scale < 0 {
		scale = 0
	}
	c.timeScale = scale
}

// Reset reinitializes all counters, e.g. on scene reload
func (c *Clock) Reset() {
	c.time = 0
	c.unscaledDelta = 0
	c.delta = 0
	c.timeScale = parameter.DefaultTimeScale
	c.frameCount = 0
}
