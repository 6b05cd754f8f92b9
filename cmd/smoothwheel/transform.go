package main

import (
	"math"
	"time"
)

// transformSample records one transform decision for debug logging and the
// monitor hub.
type transformSample struct {
	DeltaIn    int32   `json:"delta_in"`
	DeltaOut   int32   `json:"delta_out"`
	Velocity   float64 `json:"velocity"`
	Multiplier float64 `json:"multiplier"`
	Carry      float64 `json:"carry"`
}

// transformer turns one incoming scroll tick into an integer output delta,
// accumulating the fractional remainder so no sub-unit scroll is lost.
type transformer struct {
	curve   curveEvaluator
	tracker *velocityTracker

	// carry holds the fractional remainder of the previous scaled tick.
	// It persists across direction reversals: a reversal resets velocity,
	// not the sub-unit scroll debt already owed to the user.
	carry float64
}

func newTransformer(curve curveEvaluator) *transformer {
	return &transformer{
		curve:   curve,
		tracker: newVelocityTracker(),
	}
}

// transform scales rawDelta (nonzero) by the velocity-dependent multiplier.
// A zero return means the scaled magnitude has not yet reached a full unit;
// state and carry still advance so the motion surfaces on a later tick.
func (t *transformer) transform(rawDelta int32, now time.Time) (int32, transformSample) {
	vel := t.tracker.observe(directionOf(rawDelta), now)
	mult := t.curve.evaluate(vel)

	scaled := float64(rawDelta)*mult + t.carry
	out := int32(math.Trunc(scaled))
	t.carry = scaled - float64(out)

	return out, transformSample{
		DeltaIn:    rawDelta,
		DeltaOut:   out,
		Velocity:   vel,
		Multiplier: mult,
		Carry:      t.carry,
	}
}
