// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package gbn implements the Go-Back-N animation kernel (spec.md §4.8): a
// sliding-window ARQ with cumulative ACKs and a single retransmit timer on
// the base packet.
package gbn

import (
	"math/rand"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

// PacketStatus is one in-flight or delivered packet's lifecycle stage.
type PacketStatus int

const (
	StatusPending PacketStatus = iota
	StatusInFlight
	StatusWaiting // marked for retransmit after a timeout/fast-retransmit
	StatusAcked
)

// Flight is one animated packet or ACK currently on the wire.
type Flight struct {
	Seq             int
	Progress        float64
	Lost            bool
	IsFastRetransmit bool
}

// State is GBN's complete, serializable snapshot (spec.md §4.8).
type State struct {
	TotalPackets      int
	WindowSize        int
	Base              int
	NextSeqNum        int
	LastAckReceived   int
	DuplicateAckCount int
	TimeoutMs         float64
	LossRatePercent   float64
	SpeedMs           float64

	SenderPackets   []PacketStatus
	ExpectedSeqNum  int
	ArrivedPackets  map[int]bool
	FlyingPackets   []Flight
	FlyingAcks      []Flight

	IsRunning bool
	Completed bool
}

// CreateInitialState builds a fresh, paused GBN state (the pure factory every
// kernel's shape starts from).
func CreateInitialState(totalPackets, windowSize int, timeoutMs, lossRatePercent, speedMs float64) State {
	return State{
		TotalPackets:    totalPackets,
		WindowSize:      windowSize,
		TimeoutMs:       timeoutMs,
		LossRatePercent: lossRatePercent,
		SpeedMs:         speedMs,
		SenderPackets:   make([]PacketStatus, totalPackets),
		ArrivedPackets:  make(map[int]bool),
		// Nothing is acked yet: the receiver's duplicate ACK while expecting
		// packet 0 carries -1, which must match to count toward fast retransmit.
		LastAckReceived: -1,
	}
}

// Kernel wraps State with the scheduler-driven machinery spec.md's shared
// shape calls for: start/stop/reset/dispose, setters, and a private animator.
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	rng      *rand.Rand

	baseTimerID   clock.CallbackID
	flightCancels map[int]clock.CancelFunc
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:       state.NewSubject(initial, nil),
		sched:         sched,
		animator:      clock.NewAnimator(sched),
		rng:           rand.New(rand.NewSource(1)),
		flightCancels: make(map[int]clock.CancelFunc),
	}
}

// SetListener subscribes to every state change, for presentation.
func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }

// GetState returns a snapshot of the current state.
func (k *Kernel) GetState() State { return k.subject.GetState() }

// Start begins sending, filling the window up to WindowSize.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = true })
	k.fillWindow()
}

// Stop pauses the kernel without resetting its state.
func (k *Kernel) Stop() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false })
	k.sched.Cancel(k.baseTimerID)
}

// Reset restores initial state, preserving TotalPackets and config per
// spec.md §4.8.
func (k *Kernel) Reset() {
	k.Stop()
	for _, cancel := range k.flightCancels {
		cancel()
	}
	k.flightCancels = make(map[int]clock.CancelFunc)

	state.MutateVoid(k.subject, func(s *State) {
		fresh := CreateInitialState(s.TotalPackets, s.WindowSize, s.TimeoutMs, s.LossRatePercent, s.SpeedMs)
		*s = fresh
	})
}

// Dispose stops the kernel and releases its scheduler resources.
func (k *Kernel) Dispose() { k.Stop() }

func (k *Kernel) fillWindow() {
	snap := k.GetState()
	for seq := snap.NextSeqNum; seq < snap.Base+snap.WindowSize && seq < snap.TotalPackets; seq++ {
		k.sendPacket(seq, false)
	}
	state.MutateVoid(k.subject, func(s *State) {
		if s.NextSeqNum < s.Base+s.WindowSize {
			s.NextSeqNum = min(s.Base+s.WindowSize, s.TotalPackets)
		}
	})
	k.armBaseTimer()
}

func min(a, b int) int {
	if a < b {
		return a
	}
	return b
}

func (k *Kernel) armBaseTimer() {
	k.sched.Cancel(k.baseTimerID)
	snap := k.GetState()
	if snap.Base >= snap.TotalPackets {
		return
	}
	k.baseTimerID = clock.NewCallbackID()
	k.sched.Schedule(k.baseTimerID, k.sched.DeltaMs()+snap.TimeoutMs, k.onTimeout)
}

func (k *Kernel) onTimeout() {
	snap := k.GetState()
	if !snap.IsRunning || snap.Base >= snap.TotalPackets {
		return
	}
	state.MutateVoid(k.subject, func(s *State) {
		for i := s.Base; i < s.NextSeqNum; i++ {
			s.SenderPackets[i] = StatusWaiting
		}
	})
	for seq := snap.Base; seq < snap.NextSeqNum; seq++ {
		k.sendPacket(seq, false)
	}
	k.armBaseTimer()
}

// sendPacket launches one animated flight for seq, rolling loss independently.
func (k *Kernel) sendPacket(seq int, fastRetransmit bool) {
	lose := k.rng.Float64()*100 < k.GetState().LossRatePercent
	idx := seq

	state.MutateVoid(k.subject, func(s *State) {
		s.SenderPackets[idx] = StatusInFlight
		s.FlyingPackets = append(s.FlyingPackets, Flight{Seq: seq, IsFastRetransmit: fastRetransmit})
	})

	cancel := k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().SpeedMs,
		WillBeLost: lose,
		OnProgress: func(pct float64) { k.updateFlightProgress(seq, pct) },
		OnArrived: func() {
			k.removeFlight(seq)
			k.deliverToReceiver(seq)
		},
		OnLost: func() {
			state.MutateVoid(k.subject, func(s *State) {
				for i := range s.FlyingPackets {
					if s.FlyingPackets[i].Seq == seq {
						s.FlyingPackets[i].Lost = true
					}
				}
			})
		},
	})
	k.flightCancels[seq] = cancel
}

func (k *Kernel) updateFlightProgress(seq int, pct float64) {
	state.MutateVoid(k.subject, func(s *State) {
		for i := range s.FlyingPackets {
			if s.FlyingPackets[i].Seq == seq {
				s.FlyingPackets[i].Progress = pct
			}
		}
	})
}

func (k *Kernel) removeFlight(seq int) {
	state.MutateVoid(k.subject, func(s *State) {
		out := s.FlyingPackets[:0]
		for _, f := range s.FlyingPackets {
			if f.Seq != seq {
				out = append(out, f)
			}
		}
		s.FlyingPackets = out
	})
}

// deliverToReceiver applies the receiver's accept-only-expected rule, then
// schedules the resulting ACK flight back to the sender.
func (k *Kernel) deliverToReceiver(seq int) {
	var ackSeq int
	var dup bool
	state.MutateVoid(k.subject, func(s *State) {
		if seq == s.ExpectedSeqNum {
			s.ExpectedSeqNum++
			ackSeq = s.ExpectedSeqNum - 1
		} else {
			s.ArrivedPackets[seq] = true
			ackSeq = s.ExpectedSeqNum - 1
			dup = true
		}
	})
	k.sendAck(ackSeq, dup)
}

func (k *Kernel) sendAck(ackSeq int, duplicate bool) {
	state.MutateVoid(k.subject, func(s *State) {
		s.FlyingAcks = append(s.FlyingAcks, Flight{Seq: ackSeq})
	})
	k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().SpeedMs,
		OnProgress: func(pct float64) {
			state.MutateVoid(k.subject, func(s *State) {
				for i := range s.FlyingAcks {
					if s.FlyingAcks[i].Seq == ackSeq {
						s.FlyingAcks[i].Progress = pct
					}
				}
			})
		},
		OnArrived: func() {
			state.MutateVoid(k.subject, func(s *State) {
				out := s.FlyingAcks[:0]
				for _, f := range s.FlyingAcks {
					if f.Seq != ackSeq {
						out = append(out, f)
					}
				}
				s.FlyingAcks = out
			})
			k.onAckReceived(ackSeq, duplicate)
		},
	})
}

// onAckReceived applies cumulative-ACK semantics, the 3-duplicate fast
// retransmit rule, and window refill.
func (k *Kernel) onAckReceived(ackSeq int, duplicate bool) {
	var triggerFastRetransmit bool
	var completed bool

	state.MutateVoid(k.subject, func(s *State) {
		if ackSeq == s.LastAckReceived && duplicate {
			s.DuplicateAckCount++
			if s.DuplicateAckCount >= 3 {
				triggerFastRetransmit = true
				s.DuplicateAckCount = 0
			}
			return
		}
		if ackSeq+1 > s.Base {
			for i := s.Base; i <= ackSeq && i < len(s.SenderPackets); i++ {
				s.SenderPackets[i] = StatusAcked
			}
			s.Base = ackSeq + 1
			s.LastAckReceived = ackSeq
			s.DuplicateAckCount = 0
		}
		if s.Base >= s.TotalPackets {
			completed = true
			s.IsRunning = false
			s.Completed = true
		}
	})

	if completed {
		k.sched.Cancel(k.baseTimerID)
		return
	}
	if triggerFastRetransmit {
		snap := k.GetState()
		k.sendPacket(snap.Base, true)
		return
	}
	k.fillWindow()
}
