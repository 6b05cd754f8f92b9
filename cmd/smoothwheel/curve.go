package main

import "math"

// curveEvaluator maps a velocity magnitude to a sensitivity multiplier.
// Implementations must be total over v >= 0 and never return a non-finite value.
type curveEvaluator interface {
	evaluate(velocity float64) float64
}

// sensitivityCurve is a bounded logistic curve:
//
//	f(v) = max / (1 + C * exp(-ramp * v)), C = max/base - 1
//
// By construction f(0) = base, f is non-decreasing, and f(v) -> max as v grows.
type sensitivityCurve struct {
	base float64
	max  float64
	ramp float64
	c    float64
}

func newSensitivityCurve(base, max, ramp float64) sensitivityCurve {
	return sensitivityCurve{
		base: base,
		max:  max,
		ramp: ramp,
		c:    max/base - 1,
	}
}

func (s sensitivityCurve) evaluate(velocity float64) float64 {
	if velocity <= 0 {
		return s.base
	}

	// Saturate instead of feeding huge arguments to exp(). Past this point
	// the denominator is 1 to within float64 precision anyway.
	arg := s.ramp * velocity
	if arg >= maxExpArg {
		return s.max
	}

	sens := s.max / (1 + s.c*math.Exp(-arg))
	if math.IsNaN(sens) || math.IsInf(sens, 0) {
		return s.max
	}
	return sens
}
