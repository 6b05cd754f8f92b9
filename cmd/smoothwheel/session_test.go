//go:build linux

package main

import (
	"errors"
	"os"
	"sync"
	"sync/atomic"
	"testing"
)

type fakePhysical struct {
	releases atomic.Int32
	err      error
}

func (f *fakePhysical) eventSource() *os.File { return nil }
func (f *fakePhysical) release() error {
	f.releases.Add(1)
	return f.err
}

type fakeVirtual struct {
	destroys atomic.Int32
	err      error
}

func (f *fakeVirtual) WriteEvent(inputEvent) error { return nil }
func (f *fakeVirtual) destroy() error {
	f.destroys.Add(1)
	return f.err
}

func newTestSession(phys *fakePhysical, virt *fakeVirtual) *session {
	return &session{
		phys:   phys,
		virt:   virt,
		path:   "/dev/input/event4",
		name:   "Test Mouse",
		logger: testLogger(),
	}
}

// TestSession_CloseReleasesBothHalvesOnce: every exit path funnels into
// Close, so the grab release and virtual-device destroy must each run
// exactly once no matter how many paths fire.
func TestSession_CloseReleasesBothHalvesOnce(t *testing.T) {
	phys := &fakePhysical{}
	virt := &fakeVirtual{}
	sess := newTestSession(phys, virt)

	// Fatal-error path and deferred path both call Close; a signal-driven
	// teardown goroutine may race with either.
	var wg sync.WaitGroup
	for i := 0; i < 3; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			sess.Close()
		}()
	}
	wg.Wait()
	sess.Close()

	if got := phys.releases.Load(); got != 1 {
		t.Errorf("physical release ran %d times, want 1", got)
	}
	if got := virt.destroys.Load(); got != 1 {
		t.Errorf("virtual destroy ran %d times, want 1", got)
	}
}

// TestSession_CloseReleasesPhysicalDespiteDestroyError: a failing virtual
// teardown must not leave the physical device grabbed.
func TestSession_CloseReleasesPhysicalDespiteDestroyError(t *testing.T) {
	phys := &fakePhysical{}
	virt := &fakeVirtual{err: errors.New("uinput gone")}
	sess := newTestSession(phys, virt)

	sess.Close()

	if got := phys.releases.Load(); got != 1 {
		t.Errorf("physical release ran %d times, want 1", got)
	}
	if got := virt.destroys.Load(); got != 1 {
		t.Errorf("virtual destroy ran %d times, want 1", got)
	}
}
