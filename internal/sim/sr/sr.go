// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package sr implements the Selective Repeat animation kernel (spec.md §4.8):
// a sliding-window ARQ with per-packet timers, individual ACKs, and an
// out-of-order receiver buffer.
package sr

import (
	"math/rand"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

type PacketStatus int

const (
	StatusPending PacketStatus = iota
	StatusInFlight
	StatusWaiting
	StatusAcked
)

// Flight is one animated packet or ACK currently on the wire.
type Flight struct {
	Seq              int
	Progress         float64
	Lost             bool
	IsFastRetransmit bool
}

// State is Selective Repeat's complete, serializable snapshot (spec.md §4.8).
type State struct {
	TotalPackets      int
	WindowSize        int
	Base              int
	NextSeqNum        int
	DuplicateAckCount int
	TimeoutMs         float64
	LossRatePercent   float64
	SpeedMs           float64

	SenderPackets  []PacketStatus
	ExpectedSeqNum int
	ReceiverBuffer map[int]bool
	LastAckSent    int
	FlyingPackets  []Flight
	FlyingAcks     []Flight

	IsRunning bool
	Completed bool
}

// CreateInitialState builds a fresh, paused Selective Repeat state.
func CreateInitialState(totalPackets, windowSize int, timeoutMs, lossRatePercent, speedMs float64) State {
	return State{
		TotalPackets:    totalPackets,
		WindowSize:      windowSize,
		TimeoutMs:       timeoutMs,
		LossRatePercent: lossRatePercent,
		SpeedMs:         speedMs,
		SenderPackets:   make([]PacketStatus, totalPackets),
		ReceiverBuffer:  make(map[int]bool),
		LastAckSent:     -1,
	}
}

// Kernel wraps State with scheduler-driven delivery, per-packet timers and an
// animator, following the shared kernel shape (start/stop/reset/dispose).
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	rng      *rand.Rand

	packetTimers  map[int]clock.CallbackID
	flightCancels map[int]clock.CancelFunc
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:       state.NewSubject(initial, nil),
		sched:         sched,
		animator:      clock.NewAnimator(sched),
		rng:           rand.New(rand.NewSource(1)),
		packetTimers:  make(map[int]clock.CallbackID),
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
	for seq, id := range k.packetTimers {
		k.sched.Cancel(id)
		delete(k.packetTimers, seq)
	}
}

// Reset restores initial state, preserving TotalPackets and config.
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
		k.armPacketTimer(seq)
	}
	state.MutateVoid(k.subject, func(s *State) {
		if s.NextSeqNum < s.Base+s.WindowSize {
			next := s.Base + s.WindowSize
			if next > s.TotalPackets {
				next = s.TotalPackets
			}
			s.NextSeqNum = next
		}
	})
}

func (k *Kernel) armPacketTimer(seq int) {
	if id, ok := k.packetTimers[seq]; ok {
		k.sched.Cancel(id)
	}
	id := clock.NewCallbackID()
	k.packetTimers[seq] = id
	timeoutMs := k.GetState().TimeoutMs
	k.sched.Schedule(id, k.sched.DeltaMs()+timeoutMs, func() { k.onTimeout(seq) })
}

func (k *Kernel) onTimeout(seq int) {
	snap := k.GetState()
	if !snap.IsRunning || seq < snap.Base {
		return
	}
	state.MutateVoid(k.subject, func(s *State) {
		if seq < len(s.SenderPackets) {
			s.SenderPackets[seq] = StatusWaiting
		}
	})
	k.sendPacket(seq, false)
	k.armPacketTimer(seq)
}

func (k *Kernel) sendPacket(seq int, fastRetransmit bool) {
	lose := k.rng.Float64()*100 < k.GetState().LossRatePercent

	state.MutateVoid(k.subject, func(s *State) {
		s.SenderPackets[seq] = StatusInFlight
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

// deliverToReceiver buffers an arriving packet within [expected, expected+window)
// and delivers contiguous prefixes in order, then ACKs the individual packet.
func (k *Kernel) deliverToReceiver(seq int) {
	state.MutateVoid(k.subject, func(s *State) {
		if seq < s.ExpectedSeqNum {
			return // duplicate of an already-delivered packet
		}
		if seq >= s.ExpectedSeqNum+s.WindowSize {
			return // outside receive window
		}
		s.ReceiverBuffer[seq] = true
		for s.ReceiverBuffer[s.ExpectedSeqNum] {
			delete(s.ReceiverBuffer, s.ExpectedSeqNum)
			s.ExpectedSeqNum++
		}
	})
	k.sendAck(seq)
}

func (k *Kernel) sendAck(ackSeq int) {
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
			k.onAckReceived(ackSeq)
		},
	})
}

// onAckReceived marks one packet acked individually (unlike GBN's cumulative
// ACK), cancels its timer, and slides the window forward if base is now acked.
func (k *Kernel) onAckReceived(ackSeq int) {
	var completed bool
	state.MutateVoid(k.subject, func(s *State) {
		if ackSeq < len(s.SenderPackets) {
			s.SenderPackets[ackSeq] = StatusAcked
		}
		for s.Base < len(s.SenderPackets) && s.SenderPackets[s.Base] == StatusAcked {
			s.Base++
		}
		if s.Base >= s.TotalPackets {
			completed = true
			s.IsRunning = false
			s.Completed = true
		}
	})
	if id, ok := k.packetTimers[ackSeq]; ok {
		k.sched.Cancel(id)
		delete(k.packetTimers, ackSeq)
	}
	if completed {
		return
	}
	k.fillWindow()
}
