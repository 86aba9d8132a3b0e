package service

import (
	"sync/atomic"
	"time"
)

// State holds the liveness facts the health endpoints report. All fields are
// updated atomically so probes never contend with the event loop.
type State struct {
	startedAt time.Time
	ready     atomic.Bool
	lastEvent atomic.Int64 // unix nanos, 0 until the first event
}

func NewState() *State {
	return &State{startedAt: time.Now()}
}

// SetReady marks the gateway as warmed up and serving.
func (s *State) SetReady(ready bool) {
	s.ready.Store(ready)
}

func (s *State) Ready() bool {
	return s.ready.Load()
}

// TouchEvent records that a terminal event just arrived.
func (s *State) TouchEvent() {
	s.lastEvent.Store(time.Now().UnixNano())
}

// LastEvent is the arrival time of the most recent terminal event, zero if
// none arrived yet.
func (s *State) LastEvent() time.Time {
	nanos := s.lastEvent.Load()
	if nanos == 0 {
		return time.Time{}
	}
	return time.Unix(0, nanos)
}

func (s *State) Uptime() time.Duration {
	return time.Since(s.startedAt)
}
