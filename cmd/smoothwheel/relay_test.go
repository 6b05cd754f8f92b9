package main

import (
	"context"
	"errors"
	"io"
	"log/slog"
	"testing"
	"time"
)

func testLogger() *slog.Logger {
	return slog.New(slog.NewTextHandler(io.Discard, nil))
}

// recordingWriter captures everything the relay emits.
type recordingWriter struct {
	events  []inputEvent
	failAll bool
}

func (w *recordingWriter) WriteEvent(ev inputEvent) error {
	if w.failAll {
		return errors.New("virtual device gone")
	}
	w.events = append(w.events, ev)
	return nil
}

func newTestRelay(out eventWriter, hiRes bool) (*relay, chan inputEvent, chan error) {
	events := make(chan inputEvent, 64)
	readErr := make(chan error, 1)
	tr := newTransformer(newSensitivityCurve(1.0, 15.0, 0.3))
	rl := newRelay(events, readErr, out, tr, hiRes, newRelayStats(), nil, testLogger())
	return rl, events, readErr
}

func stamped(typ, code uint16, value int32, at time.Time) inputEvent {
	return inputEvent{
		Sec:   at.Unix(),
		Usec:  int64(at.Nanosecond() / 1000),
		Type:  typ,
		Code:  code,
		Value: value,
	}
}

// TestRelay_PassThroughFidelity: non-scroll events are forwarded with
// identical type/code/value in their original order.
func TestRelay_PassThroughFidelity(t *testing.T) {
	out := &recordingWriter{}
	rl, events, _ := newTestRelay(out, true)

	in := []inputEvent{
		{Type: EV_KEY, Code: 0x110, Value: 1}, // BTN_LEFT press
		{Type: EV_SYN, Code: SYN_REPORT, Value: 0},
		{Type: EV_REL, Code: REL_X, Value: -3},
		{Type: EV_REL, Code: REL_Y, Value: 7},
		{Type: EV_SYN, Code: SYN_REPORT, Value: 0},
		{Type: EV_KEY, Code: 0x110, Value: 0}, // BTN_LEFT release
		{Type: EV_SYN, Code: SYN_REPORT, Value: 0},
	}
	for _, ev := range in {
		events <- ev
	}

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.run(ctx); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(out.events) != len(in) {
		t.Fatalf("forwarded %d events, want %d", len(out.events), len(in))
	}
	for i, ev := range in {
		got := out.events[i]
		if got.Type != ev.Type || got.Code != ev.Code || got.Value != ev.Value {
			t.Errorf("event %d: got {%#x %#x %d}, want {%#x %#x %d}",
				i, got.Type, got.Code, got.Value, ev.Type, ev.Code, ev.Value)
		}
	}
	if rl.state != relayStopped {
		t.Errorf("relay state = %d, want stopped", rl.state)
	}
}

// TestRelay_HiResScrollTransformed: on a hi-res device, REL_WHEEL_HI_RES is
// transformed and the low-res duplicate dropped.
func TestRelay_HiResScrollTransformed(t *testing.T) {
	out := &recordingWriter{}
	rl, events, _ := newTestRelay(out, true)

	at := trackerEpoch
	events <- stamped(EV_REL, REL_WHEEL_HI_RES, 120, at)
	events <- stamped(EV_REL, REL_WHEEL, 1, at) // dropped duplicate
	events <- stamped(EV_SYN, SYN_REPORT, 0, at)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.run(ctx); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	// transformed wheel + its SYN + forwarded device SYN
	if len(out.events) != 3 {
		t.Fatalf("emitted %d events, want 3: %+v", len(out.events), out.events)
	}
	wheel := out.events[0]
	if wheel.Type != EV_REL || wheel.Code != REL_WHEEL_HI_RES {
		t.Fatalf("first event = {%#x %#x}, want hi-res wheel", wheel.Type, wheel.Code)
	}
	// Cold start: multiplier is exactly base 1.0.
	if wheel.Value != 120 {
		t.Errorf("transformed value = %d, want 120", wheel.Value)
	}
	if out.events[1].Type != EV_SYN {
		t.Errorf("transformed wheel not followed by SYN_REPORT")
	}

	snap := rl.stats.snapshot()
	if snap.DroppedLowRes != 1 {
		t.Errorf("dropped low-res count = %d, want 1", snap.DroppedLowRes)
	}
	if snap.ScrollTicks != 1 {
		t.Errorf("scroll ticks = %d, want 1", snap.ScrollTicks)
	}
}

// TestRelay_LowResScrollTransformed: without hi-res support, plain REL_WHEEL
// is the transform target.
func TestRelay_LowResScrollTransformed(t *testing.T) {
	out := &recordingWriter{}
	rl, events, _ := newTestRelay(out, false)

	events <- stamped(EV_REL, REL_WHEEL, -1, trackerEpoch)
	events <- stamped(EV_SYN, SYN_REPORT, 0, trackerEpoch)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if err := rl.run(ctx); err != nil {
		t.Fatalf("run returned error: %v", err)
	}

	if len(out.events) != 3 {
		t.Fatalf("emitted %d events, want 3", len(out.events))
	}
	if out.events[0].Code != REL_WHEEL || out.events[0].Value != -1 {
		t.Errorf("transformed wheel = {%#x %d}, want {REL_WHEEL -1}", out.events[0].Code, out.events[0].Value)
	}
}

// TestRelay_ReadErrorIsFatal: a reader failure terminates the loop with the
// cause preserved for reporting.
func TestRelay_ReadErrorIsFatal(t *testing.T) {
	out := &recordingWriter{}
	rl, _, readErr := newTestRelay(out, true)

	cause := errors.New("device disconnected")
	readErr <- cause

	err := rl.run(context.Background())
	if err == nil {
		t.Fatal("run returned nil, want error")
	}
	if !errors.Is(err, cause) {
		t.Errorf("run error %v does not wrap the read failure", err)
	}
	if rl.state != relayStopped {
		t.Errorf("relay state = %d, want stopped", rl.state)
	}
}

// TestRelay_WriteErrorIsFatal: a write failure (virtual device gone)
// terminates the loop.
func TestRelay_WriteErrorIsFatal(t *testing.T) {
	out := &recordingWriter{failAll: true}
	rl, events, _ := newTestRelay(out, true)

	events <- inputEvent{Type: EV_KEY, Code: 0x110, Value: 1}

	if err := rl.run(context.Background()); err == nil {
		t.Fatal("run returned nil, want write error")
	}
}

// TestRelay_TeardownErrorsNotFatalAfterCancel: teardown destroys the virtual
// device and closes the physical fd while the relay may still be selecting.
// Failures the teardown itself induces must not surface as fatal errors;
// a clean shutdown exits cleanly. Loop because the select between ctx.Done
// and a buffered event is a coin flip per iteration.
func TestRelay_TeardownErrorsNotFatalAfterCancel(t *testing.T) {
	for i := 0; i < 200; i++ {
		out := &recordingWriter{failAll: true} // virtual device already gone
		rl, events, _ := newTestRelay(out, true)
		events <- inputEvent{Type: EV_KEY, Code: 0x110, Value: 1}

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := rl.run(ctx); err != nil {
			t.Fatalf("iteration %d: clean shutdown reported fatal error: %v", i, err)
		}
	}
}

// TestRelay_ReadErrorAfterCancelIsClean: the close-induced reader failure
// racing with ctx.Done is part of shutdown, not a device fault.
func TestRelay_ReadErrorAfterCancelIsClean(t *testing.T) {
	for i := 0; i < 200; i++ {
		out := &recordingWriter{}
		rl, _, readErr := newTestRelay(out, true)
		readErr <- errors.New("read /dev/input/event4: file already closed")

		ctx, cancel := context.WithCancel(context.Background())
		cancel()
		if err := rl.run(ctx); err != nil {
			t.Fatalf("iteration %d: close-induced read error reported fatal: %v", i, err)
		}
	}
}

// TestRelay_ShutdownIsBounded: cancellation stops the loop promptly even
// with an idle event stream.
func TestRelay_ShutdownIsBounded(t *testing.T) {
	out := &recordingWriter{}
	rl, _, _ := newTestRelay(out, true)

	ctx, cancel := context.WithCancel(context.Background())

	done := make(chan error, 1)
	go func() { done <- rl.run(ctx) }()

	cancel()
	select {
	case err := <-done:
		if err != nil {
			t.Fatalf("run returned error on shutdown: %v", err)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("relay did not stop within 2s of cancellation")
	}
}
