package main

import "time"

// scrollDirection is the sign of a raw scroll tick.
type scrollDirection int

const (
	directionNone scrollDirection = 0
	directionUp   scrollDirection = 1
	directionDown scrollDirection = -1
)

func directionOf(delta int32) scrollDirection {
	if delta > 0 {
		return directionUp
	}
	return directionDown
}

// velocityTracker converts a stream of timestamped, directional scroll ticks
// into a smoothed ticks-per-second estimate.
//
// Velocity resets to zero at the start of a gesture: on the first tick ever,
// on a tick after an idle gap longer than decayWindow, and on a direction
// reversal. Within a gesture the estimate is an exponentially-weighted blend
// of the previous value and the instantaneous 1/dt sample, which damps the
// irregular tick timing real scroll wheels produce.
//
// Single-owner: called only by the relay goroutine, no locking.
type velocityTracker struct {
	lastTime      time.Time
	lastDirection scrollDirection
	smoothed      float64

	decayWindow time.Duration
	alpha       float64
}

func newVelocityTracker() *velocityTracker {
	return &velocityTracker{
		decayWindow: defaultDecayWindow,
		alpha:       defaultSmoothingAlpha,
	}
}

// observe incorporates one tick and returns the post-update smoothed
// velocity in ticks per second, always >= 0.
func (t *velocityTracker) observe(dir scrollDirection, now time.Time) float64 {
	dt := now.Sub(t.lastTime)

	switch {
	case t.lastTime.IsZero(), dir != t.lastDirection:
		t.smoothed = 0
	case dt <= 0, dt > t.decayWindow:
		// Non-positive dt covers clock adjustments and out-of-order event
		// timestamps; treat it like an idle gap rather than dividing by it.
		t.smoothed = 0
	default:
		inst := 1.0 / dt.Seconds()
		t.smoothed = t.alpha*inst + (1-t.alpha)*t.smoothed
	}

	t.lastTime = now
	t.lastDirection = dir
	return t.smoothed
}
