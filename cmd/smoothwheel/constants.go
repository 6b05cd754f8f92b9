package main

import "time"

// Linux input event types and codes (from <linux/input-event-codes.h>)
const (
	EV_SYN = 0x00
	EV_KEY = 0x01
	EV_REL = 0x02
	EV_MSC = 0x04

	SYN_REPORT = 0

	REL_X             = 0x00
	REL_Y             = 0x01
	REL_HWHEEL        = 0x06
	REL_WHEEL         = 0x08
	REL_WHEEL_HI_RES  = 0x0b
	REL_HWHEEL_HI_RES = 0x0c

	EV_MAX  = 0x1f
	KEY_MAX = 0x2ff
	REL_MAX = 0x0f
	MSC_MAX = 0x07
)

// Sensitivity curve defaults
const (
	defaultBaseSensitivity = 1.0  // Multiplier applied to slow, isolated ticks
	defaultMaxSensitivity  = 15.0 // Multiplier the curve tapers towards
	defaultRampRate        = 0.3  // Steepness of the logistic ramp
)

// Velocity tracker tuning
const (
	// A gap longer than this between same-direction ticks ends the gesture
	// and the next tick starts from zero velocity.
	defaultDecayWindow = 250 * time.Millisecond

	// Weight of the instantaneous 1/dt sample in the exponential blend.
	// Higher values respond faster but pass more hardware timing jitter through.
	defaultSmoothingAlpha = 0.4

	// Upper clamp for the exponent argument in the logistic curve.
	// Beyond this the curve is indistinguishable from max sensitivity and
	// exp() would only risk producing non-finite intermediates.
	maxExpArg = 60.0
)

// Daemon defaults
const (
	defaultIPCSocketPath     = "/tmp/smoothwheel.sock"
	defaultMonitorListenAddr = "127.0.0.1:9611"
	virtualDeviceName        = "smoothwheel virtual pointer"
)
