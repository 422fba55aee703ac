// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package clock implements the simulator's single global virtual-time scheduler.
// Every animated packet, timer, and retransmit in netsim is driven off this clock
// instead of wall time, so a paused simulation truly stops and a "fast forward"
// truly fast-forwards.
package clock

import (
	"container/heap"
	"sync"
	"time"

	"github.com/google/uuid"
)

// SpeedLevel selects the multiplier between wall-clock time and simulated time.
type SpeedLevel int

const (
	Paused SpeedLevel = iota
	Slower
	RealTime
	Faster
)

// multiplier returns the sim-ms advanced per wall-ms at this speed.
func (s SpeedLevel) multiplier() float64 {
	switch s {
	case Paused:
		return 0
	case Slower:
		return 1e-6
	case RealTime:
		return 1
	case Faster:
		return 1e5
	default:
		return 1
	}
}

func (s SpeedLevel) String() string {
	switch s {
	case Paused:
		return "paused"
	case Slower:
		return "slower"
	case RealTime:
		return "real_time"
	case Faster:
		return "faster"
	default:
		return "unknown"
	}
}

// CallbackID identifies a scheduled timer for later cancellation.
type CallbackID string

// NewCallbackID mints a fresh, unique callback identifier.
func NewCallbackID() CallbackID {
	return CallbackID(uuid.NewString())
}

type timer struct {
	id       CallbackID
	fireAt   float64 // sim-ms
	seq      uint64  // insertion order, for same-fireAt FIFO tie-break
	fn       func()
	canceled bool
}

// timerHeap is a min-heap on (fireAt, seq).
type timerHeap []*timer

func (h timerHeap) Len() int { return len(h) }
func (h timerHeap) Less(i, j int) bool {
	if h[i].fireAt != h[j].fireAt {
		return h[i].fireAt < h[j].fireAt
	}
	return h[i].seq < h[j].seq
}
func (h timerHeap) Swap(i, j int)      { h[i], h[j] = h[j], h[i] }
func (h *timerHeap) Push(x any)        { *h = append(*h, x.(*timer)) }
func (h *timerHeap) Pop() any {
	old := *h
	n := len(old)
	t := old[n-1]
	*h = old[:n-1]
	return t
}

// TickListener is invoked every time simulated time advances.
type TickListener func(simMs float64)

// Scheduler is the process-wide virtual-time clock. The zero value is not usable;
// construct one with New. Unlike the original implementation's implicit host
// singleton, the Scheduler here is an explicit handle passed to every component
// that needs to read or advance time.
type Scheduler struct {
	mu sync.Mutex

	speed        SpeedLevel
	wallStart    time.Time
	elapsedSimMs float64 // accumulated sim-ms from completed run intervals
	running      bool

	pending  timerHeap
	byID     map[CallbackID]*timer
	nextSeq  uint64
	epoch    uint64 // bumped on Reset so stale goroutines can detect cancellation
	tickers  []TickListener
	wallNow  func() time.Time
}

// New constructs a Scheduler paused at sim-time zero.
func New() *Scheduler {
	return &Scheduler{
		speed:   Paused,
		byID:    make(map[CallbackID]*timer),
		wallNow: time.Now,
	}
}

// SetSpeed changes the playback speed. Switching away from Paused resumes the
// wall-clock mapping from "now"; switching into Paused freezes DeltaMs at its
// current value.
func (s *Scheduler) SetSpeed(level SpeedLevel) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.freezeLocked()
	s.speed = level
	if level != Paused {
		s.wallStart = s.wallNow()
		s.running = true
	} else {
		s.running = false
	}
	s.drainDueLocked()
}

// Speed returns the current playback speed.
func (s *Scheduler) Speed() SpeedLevel {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.speed
}

// freezeLocked folds the elapsed wall interval into elapsedSimMs under the
// current speed, then stops the running interval. Caller holds s.mu.
func (s *Scheduler) freezeLocked() {
	if s.running {
		wallMs := float64(s.wallNow().Sub(s.wallStart)) / float64(time.Millisecond)
		s.elapsedSimMs += wallMs * s.speed.multiplier()
	}
}

// nowSimMsLocked returns the current simulated-time position. Caller holds s.mu.
func (s *Scheduler) nowSimMsLocked() float64 {
	if !s.running {
		return s.elapsedSimMs
	}
	wallMs := float64(s.wallNow().Sub(s.wallStart)) / float64(time.Millisecond)
	return s.elapsedSimMs + wallMs*s.speed.multiplier()
}

// DeltaMs returns elapsed simulated milliseconds since the last Reset.
func (s *Scheduler) DeltaMs() float64 {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.nowSimMsLocked()
}

// Schedule arranges for fn to run once simulated time reaches atSimMs (absolute,
// not relative to now). Events with equal atSimMs fire in Schedule call order.
func (s *Scheduler) Schedule(id CallbackID, atSimMs float64, fn func()) {
	s.mu.Lock()
	defer s.mu.Unlock()
	t := &timer{id: id, fireAt: atSimMs, seq: s.nextSeq, fn: fn}
	s.nextSeq++
	s.byID[id] = t
	heap.Push(&s.pending, t)
	s.drainDueLocked()
}

// Cancel prevents a previously scheduled callback from firing. Idempotent.
func (s *Scheduler) Cancel(id CallbackID) {
	s.mu.Lock()
	defer s.mu.Unlock()
	if t, ok := s.byID[id]; ok {
		t.canceled = true
		delete(s.byID, id)
	}
}

// OnTick registers a listener invoked with the current simulated time at the
// end of every drain of due timers, which happens on Schedule, SetSpeed and
// Pump; DeltaMs does not invoke it. Used by presentation-adjacent consumers
// that want a steady animation heartbeat rather than polling.
func (s *Scheduler) OnTick(fn TickListener) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.tickers = append(s.tickers, fn)
}

// drainDueLocked fires every pending timer whose fireAt has passed. Caller
// holds s.mu. There is no background goroutine: draining happens only when
// Schedule, SetSpeed or Pump is called, so a host that wants timers to fire
// as wall time passes calls Pump periodically.
func (s *Scheduler) drainDueLocked() {
	now := s.nowSimMsLocked()
	for s.pending.Len() > 0 {
		next := s.pending[0]
		if next.canceled {
			heap.Pop(&s.pending)
			continue
		}
		if next.fireAt > now {
			break
		}
		heap.Pop(&s.pending)
		delete(s.byID, next.id)
		fn := next.fn
		epoch := s.epoch
		s.mu.Unlock()
		if fn != nil {
			fn()
		}
		s.mu.Lock()
		if epoch != s.epoch {
			// Reset happened re-entrantly from within fn; stop draining this batch.
			return
		}
		now = s.nowSimMsLocked()
	}
	for _, fn := range s.tickers {
		fn(now)
	}
}

// Pump should be called periodically (e.g. from a ~16ms wall-clock ticker owned
// by the host) so that timers fire even when nothing is actively calling
// Schedule or SetSpeed. It is a no-op when paused.
func (s *Scheduler) Pump() {
	s.mu.Lock()
	defer s.mu.Unlock()
	if s.running {
		s.drainDueLocked()
	}
}

// Reset zeroes elapsed simulated time and cancels every pending callback. No
// callback from the previous epoch may fire afterward, even if it is already
// in flight on another goroutine.
func (s *Scheduler) Reset() {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.epoch++
	s.elapsedSimMs = 0
	s.running = false
	s.speed = Paused
	s.pending = nil
	for id := range s.byID {
		delete(s.byID, id)
	}
}
