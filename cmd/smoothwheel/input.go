package main

import (
	"bytes"
	"encoding/binary"
	"io"
	"os"
	"time"
)

// inputEvent mirrors the kernel's event record:
// struct input_event { struct timeval time; __u16 type; __u16 code; __s32 value; };
type inputEvent struct {
	Sec   int64
	Usec  int64
	Type  uint16
	Code  uint16
	Value int32
}

// timestamp returns the kernel-stamped event time. An event with both time
// fields zero has no timestamp and yields the zero time.Time; callers fall
// back to time.Now for those.
func (ev inputEvent) timestamp() time.Time {
	if ev.Sec == 0 && ev.Usec == 0 {
		return time.Time{}
	}
	return time.Unix(ev.Sec, ev.Usec*1000)
}

// readInputEvents reads raw events from the physical device and sends them to
// a channel. It runs in a dedicated goroutine and blocks on read operations;
// closing the underlying file is what unblocks it during shutdown.
func readInputEvents(f *os.File, events chan<- inputEvent, readErr chan<- error) {
	evSize := binary.Size(inputEvent{})
	buf := make([]byte, evSize)
	reader := bytes.NewReader(buf)

	for {
		if _, err := io.ReadFull(f, buf); err != nil {
			readErr <- err
			return
		}

		reader.Reset(buf)
		var ev inputEvent
		if err := binary.Read(reader, binary.LittleEndian, &ev); err != nil {
			// Skip malformed events
			continue
		}

		events <- ev
	}
}
