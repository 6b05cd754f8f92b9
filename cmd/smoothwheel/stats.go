package main

import (
	"sync"
	"time"
)

// relayStats collects counters the IPC and monitor surfaces read. Written by
// the relay goroutine, snapshotted from IPC/monitor handlers, hence the lock.
type relayStats struct {
	mu sync.Mutex

	startedAt      time.Time
	eventsRelayed  uint64
	scrollTicks    uint64
	droppedLowRes  uint64
	lastVelocity   float64
	lastMultiplier float64
}

// statsSnapshot is the JSON shape served over IPC.
type statsSnapshot struct {
	EventsRelayed  uint64  `json:"events_relayed"`
	ScrollTicks    uint64  `json:"scroll_ticks"`
	DroppedLowRes  uint64  `json:"dropped_low_res"`
	LastVelocity   float64 `json:"last_velocity"`
	LastMultiplier float64 `json:"last_multiplier"`
	UptimeSec      float64 `json:"uptime_sec"`
}

func newRelayStats() *relayStats {
	return &relayStats{startedAt: time.Now()}
}

func (s *relayStats) recordRelayed() {
	s.mu.Lock()
	s.eventsRelayed++
	s.mu.Unlock()
}

func (s *relayStats) recordScroll(sample transformSample) {
	s.mu.Lock()
	s.scrollTicks++
	s.lastVelocity = sample.Velocity
	s.lastMultiplier = sample.Multiplier
	s.mu.Unlock()
}

func (s *relayStats) recordDroppedLowRes() {
	s.mu.Lock()
	s.droppedLowRes++
	s.mu.Unlock()
}

func (s *relayStats) snapshot() statsSnapshot {
	s.mu.Lock()
	defer s.mu.Unlock()
	return statsSnapshot{
		EventsRelayed:  s.eventsRelayed,
		ScrollTicks:    s.scrollTicks,
		DroppedLowRes:  s.droppedLowRes,
		LastVelocity:   s.lastVelocity,
		LastMultiplier: s.lastMultiplier,
		UptimeSec:      time.Since(s.startedAt).Seconds(),
	}
}
