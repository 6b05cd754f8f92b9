package main

import (
	"context"
	"fmt"
	"log/slog"
	"time"
)

// eventWriter is the output side of the relay. Satisfied by *virtualDevice.
type eventWriter interface {
	WriteEvent(ev inputEvent) error
}

// relayState tracks the loop's lifecycle.
type relayState int

const (
	relayRunning relayState = iota
	relayDraining
	relayStopped
)

// relay is the single control path between the physical event stream and the
// virtual device: one reader, one writer, order inherently preserved.
//
// Scroll classification:
//   - hi-res wheel events go through the transform stage
//   - plain REL_WHEEL is dropped when the device also emits hi-res (the
//     consumer stack synthesizes low-res from hi-res; forwarding both would
//     double every detent), transformed directly otherwise
//   - everything else, synchronization events included, is forwarded with
//     identical type/code/value and order
type relay struct {
	events  <-chan inputEvent
	readErr <-chan error
	out     eventWriter

	tr      *transformer
	hiRes   bool
	stats   *relayStats
	monitor *monitorHub // nil when monitoring is disabled
	logger  *slog.Logger

	state relayState
}

func newRelay(events <-chan inputEvent, readErr <-chan error, out eventWriter, tr *transformer, hiRes bool, stats *relayStats, monitor *monitorHub, logger *slog.Logger) *relay {
	return &relay{
		events:  events,
		readErr: readErr,
		out:     out,
		tr:      tr,
		hiRes:   hiRes,
		stats:   stats,
		monitor: monitor,
		logger:  logger,
	}
}

// run relays events until the context is canceled or a device-level failure
// occurs. Device failures are returned to the caller; they are not retried
// here because a disconnect means the device identity may have changed.
func (r *relay) run(ctx context.Context) error {
	r.state = relayRunning
	defer func() { r.state = relayStopped }()

	for {
		select {
		case <-ctx.Done():
			r.state = relayDraining
			r.drain()
			return nil

		case err := <-r.readErr:
			r.state = relayDraining
			// Shutdown closes the physical fd to unblock the reader, so a
			// read failure after cancellation is the teardown, not a fault.
			if ctx.Err() != nil {
				r.logger.Debug("reader stopped during shutdown", "error", err)
				return nil
			}
			return fmt.Errorf("physical device read: %w", err)

		case ev := <-r.events:
			if err := r.handle(ev); err != nil {
				r.state = relayDraining
				// Same for writes: the virtual device may already be
				// destroyed by the time a buffered event is picked up.
				if ctx.Err() != nil {
					r.logger.Debug("write failed during shutdown", "error", err)
					return nil
				}
				return err
			}
		}
	}
}

// drain forwards events already buffered at shutdown, then stops. It never
// blocks, so shutdown completes in bounded time.
func (r *relay) drain() {
	for {
		select {
		case ev := <-r.events:
			if err := r.handle(ev); err != nil {
				r.logger.Warn("write during drain", "error", err)
				return
			}
		default:
			return
		}
	}
}

func (r *relay) handle(ev inputEvent) error {
	if ev.Type == EV_REL {
		switch ev.Code {
		case REL_WHEEL_HI_RES:
			if r.hiRes {
				return r.transformScroll(ev)
			}
		case REL_WHEEL:
			if r.hiRes {
				// Low-res duplicate of the hi-res stream.
				r.stats.recordDroppedLowRes()
				return nil
			}
			return r.transformScroll(ev)
		}
	}

	if err := r.out.WriteEvent(ev); err != nil {
		return err
	}
	r.stats.recordRelayed()
	return nil
}

func (r *relay) transformScroll(ev inputEvent) error {
	if ev.Value == 0 {
		return nil
	}

	now := ev.timestamp()
	if now.IsZero() {
		now = time.Now()
	}

	out, sample := r.tr.transform(ev.Value, now)
	r.stats.recordScroll(sample)
	r.logger.Debug("transform",
		"delta_in", sample.DeltaIn,
		"delta_out", sample.DeltaOut,
		"velocity", sample.Velocity,
		"multiplier", sample.Multiplier,
		"carry", sample.Carry)
	if r.monitor != nil {
		r.monitor.BroadcastTransform(sample)
	}

	if out == 0 {
		// Sub-unit movement; the carry surfaces it on a later tick.
		return nil
	}

	// One event carrying the full magnitude, then the report boundary.
	scaled := ev
	scaled.Value = out
	if err := r.out.WriteEvent(scaled); err != nil {
		return err
	}
	if err := r.out.WriteEvent(inputEvent{Type: EV_SYN, Code: SYN_REPORT}); err != nil {
		return err
	}
	r.stats.recordRelayed()
	return nil
}
