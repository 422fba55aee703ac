// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tcpfin implements the TCP connection-teardown animation kernel
// (spec.md §4.8): four frames (FIN, ACK, FIN, ACK), with the initiator
// parked in TIME_WAIT for a configurable duration before closing.
package tcpfin

import (
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

// PeerState is one endpoint's teardown position.
type PeerState int

const (
	Established PeerState = iota
	FinWait1
	FinWait2
	CloseWait
	LastAck
	TimeWait
	ClosedState
)

func (s PeerState) String() string {
	switch s {
	case Established:
		return "ESTABLISHED"
	case FinWait1:
		return "FIN_WAIT_1"
	case FinWait2:
		return "FIN_WAIT_2"
	case CloseWait:
		return "CLOSE_WAIT"
	case LastAck:
		return "LAST_ACK"
	case TimeWait:
		return "TIME_WAIT"
	case ClosedState:
		return "CLOSED"
	default:
		return "UNKNOWN"
	}
}

// Variant selects which peer initiates the close.
type Variant int

const (
	ClientClosesFirst Variant = iota
	ServerClosesFirst
)

// FrameKind tags one of the four teardown segments.
type FrameKind int

const (
	FrameFin FrameKind = iota
	FrameAck
)

// Frame is one segment traveling between the two named endpoints.
type Frame struct {
	Kind     FrameKind
	From, To string
	Progress float64
}

// State is the teardown kernel's complete, serializable snapshot.
type State struct {
	Variant Variant

	ClientState PeerState
	ServerState PeerState

	HasTimeWaitTimer bool
	TimeWaitDuration float64
	SpeedMs          float64

	Flying    []Frame
	Phase     string // "running" | "completed"
	IsRunning bool
}

// CreateInitialState builds a fresh, paused teardown state with both peers
// already ESTABLISHED (this kernel animates only the close).
func CreateInitialState(variant Variant, timeWaitDuration, speedMs float64) State {
	return State{
		Variant:          variant,
		ClientState:      Established,
		ServerState:      Established,
		TimeWaitDuration: timeWaitDuration,
		SpeedMs:          speedMs,
		Phase:            "running",
	}
}

// Kernel drives the four-frame close sequence and the initiator's TIME_WAIT.
type Kernel struct {
	subject     *state.Subject[State]
	sched       *clock.Scheduler
	animator    *clock.Animator
	timeWaitID  clock.CallbackID
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:  state.NewSubject(initial, nil),
		sched:    sched,
		animator: clock.NewAnimator(sched),
	}
}

func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }
func (k *Kernel) GetState() State            { return k.subject.GetState() }

// Start sends the initiator's first FIN.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = true })
	initiator, responder := k.endpoints()
	if initiator == "client" {
		state.MutateVoid(k.subject, func(s *State) { s.ClientState = FinWait1 })
	} else {
		state.MutateVoid(k.subject, func(s *State) { s.ServerState = FinWait1 })
	}
	k.sendFrame(FrameFin, initiator, responder, k.onFirstFinArrived)
}

// Stop pauses the kernel; the TIME_WAIT timer, if armed, is canceled.
func (k *Kernel) Stop() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false })
	k.sched.Cancel(k.timeWaitID)
}

// Reset restores initial state, preserving the variant and timing config.
func (k *Kernel) Reset() {
	k.Stop()
	state.MutateVoid(k.subject, func(s *State) {
		*s = CreateInitialState(s.Variant, s.TimeWaitDuration, s.SpeedMs)
	})
}

func (k *Kernel) Dispose() { k.Stop() }

func (k *Kernel) endpoints() (initiator, responder string) {
	if k.GetState().Variant == ClientClosesFirst {
		return "client", "server"
	}
	return "server", "client"
}

func (k *Kernel) sendFrame(kind FrameKind, from, to string, onArrive func()) {
	state.MutateVoid(k.subject, func(s *State) {
		s.Flying = append(s.Flying, Frame{Kind: kind, From: from, To: to})
	})
	idx := len(k.GetState().Flying) - 1
	k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().SpeedMs,
		OnProgress: func(pct float64) {
			state.MutateVoid(k.subject, func(s *State) {
				if idx >= 0 && idx < len(s.Flying) {
					s.Flying[idx].Progress = pct
				}
			})
		},
		OnArrived: func() {
			state.MutateVoid(k.subject, func(s *State) {
				if idx >= 0 && idx < len(s.Flying) {
					s.Flying = append(s.Flying[:idx], s.Flying[idx+1:]...)
				}
			})
			if onArrive != nil {
				onArrive()
			}
		},
	})
}

func (k *Kernel) setState(who string, ps PeerState) {
	state.MutateVoid(k.subject, func(s *State) {
		if who == "client" {
			s.ClientState = ps
		} else {
			s.ServerState = ps
		}
	})
}

// onFirstFinArrived: the responder enters CLOSE_WAIT and immediately ACKs.
func (k *Kernel) onFirstFinArrived() {
	initiator, responder := k.endpoints()
	k.setState(responder, CloseWait)
	k.sendFrame(FrameAck, responder, initiator, func() {
		k.setState(initiator, FinWait2)
		k.onFirstAckArrived()
	})
}

// onFirstAckArrived: the responder, having no more data, sends its own FIN.
func (k *Kernel) onFirstAckArrived() {
	initiator, responder := k.endpoints()
	k.setState(responder, LastAck)
	k.sendFrame(FrameFin, responder, initiator, k.onSecondFinArrived)
}

// onSecondFinArrived: the initiator ACKs the responder's FIN and enters
// TIME_WAIT; the responder closes immediately on receiving that ACK.
func (k *Kernel) onSecondFinArrived() {
	initiator, responder := k.endpoints()
	k.setState(initiator, TimeWait)
	state.MutateVoid(k.subject, func(s *State) { s.HasTimeWaitTimer = true })
	k.sendFrame(FrameAck, initiator, responder, func() {
		k.setState(responder, ClosedState)
		k.armTimeWait()
	})
}

func (k *Kernel) armTimeWait() {
	k.timeWaitID = clock.NewCallbackID()
	dur := k.GetState().TimeWaitDuration
	k.sched.Schedule(k.timeWaitID, k.sched.DeltaMs()+dur, k.onTimeWaitExpired)
}

func (k *Kernel) onTimeWaitExpired() {
	initiator, _ := k.endpoints()
	k.setState(initiator, ClosedState)
	state.MutateVoid(k.subject, func(s *State) {
		s.HasTimeWaitTimer = false
		s.Phase = "completed"
		s.IsRunning = false
	})
}
