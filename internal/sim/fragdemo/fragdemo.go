// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package fragdemo animates a single oversized IPv4 packet being fragmented
// at a router's egress and its fragments arriving independently (spec.md
// §4.6/§4.8). It wires internal/ipnet.Fragment for the split itself; the
// per-fragment egress pacing is the scheduler's authoritative virtual-time
// delay, not golang.org/x/time/rate's wall-clock limiter (see DESIGN.md).
package fragdemo

import (
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/state"
)

// FragmentFlight is one fragment (or the unfragmented original) in flight.
type FragmentFlight struct {
	Index      int
	FragOff    int
	MoreFrags  bool
	PayloadLen int
	Progress   float64
	Arrived    bool
}

// State is the fragmentation demo kernel's complete, serializable snapshot.
type State struct {
	Original  IPv4PacketSummary
	MtuBytes  int
	IPVersion ipnet.IPVersion

	ProcessingDelayMs float64
	PacingMs          float64
	FlightDurationMs  float64

	Fragments    []FragmentFlight
	AddedCount   int
	AddedBytes   int
	FragmentedAt bool // true once Fragment() has run, even if it produced only 1 packet

	IsRunning bool
	Completed bool
	Err       string
}

// IPv4PacketSummary is the display-facing subset of ipnet.IPv4Packet.
type IPv4PacketSummary struct {
	Src, Dst  string
	PayloadLen int
	DF        bool
}

// CreateInitialState builds a fresh, paused fragmentation demo state. version
// gates whether Start ever actually splits the packet (spec.md §4.5: IPv6
// mode forwards oversized packets as-is).
func CreateInitialState(original ipnet.IPv4Packet, mtuBytes int, version ipnet.IPVersion, processingDelayMs, pacingMs, flightDurationMs float64) State {
	return State{
		Original: IPv4PacketSummary{
			Src:        original.Src.String(),
			Dst:        original.Dst.String(),
			PayloadLen: len(original.Payload),
			DF:         original.DF,
		},
		MtuBytes:          mtuBytes,
		IPVersion:         version,
		ProcessingDelayMs: processingDelayMs,
		PacingMs:          pacingMs,
		FlightDurationMs:  flightDurationMs,
	}
}

// Kernel drives one fragmentation event: split, then stagger each fragment's
// departure by ProcessingDelayMs + index*PacingMs on the virtual clock, and
// animate its transit.
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	packet   ipnet.IPv4Packet

	departTimers []clock.CallbackID
}

// New constructs a Kernel over initial and the packet it was built from,
// bound to sched.
func New(sched *clock.Scheduler, initial State, packet ipnet.IPv4Packet) *Kernel {
	return &Kernel{
		subject: state.NewSubject(initial, nil),
		sched:   sched,
		animator: clock.NewAnimator(sched),
		packet:   packet,
	}
}

func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }
func (k *Kernel) GetState() State            { return k.subject.GetState() }

// Start fragments the packet (if needed) and schedules each resulting
// fragment's paced departure.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = true })

	mtu := k.GetState().MtuBytes
	frags, err := ipnet.Fragment(k.packet, mtu, k.GetState().IPVersion)
	if err != nil {
		state.MutateVoid(k.subject, func(s *State) {
			s.Err = err.Error()
			s.IsRunning = false
			s.Completed = true
		})
		return
	}

	addedCount := len(frags) - 1
	addedBytes := addedCount * 20 // spec.md §4.6: one extra 20-byte IPv4 header per added fragment
	state.MutateVoid(k.subject, func(s *State) {
		s.FragmentedAt = true
		s.AddedCount = addedCount
		s.AddedBytes = addedBytes
		for i, f := range frags {
			s.Fragments = append(s.Fragments, FragmentFlight{
				Index: i, FragOff: f.FragOff, MoreFrags: f.MF, PayloadLen: len(f.Payload),
			})
		}
	})

	procDelay := k.GetState().ProcessingDelayMs
	pacing := k.GetState().PacingMs
	for i := range frags {
		idx := i
		id := clock.NewCallbackID()
		k.departTimers = append(k.departTimers, id)
		departAt := k.sched.DeltaMs() + procDelay + float64(idx)*pacing
		k.sched.Schedule(id, departAt, func() { k.departFragment(idx) })
	}
}

func (k *Kernel) departFragment(idx int) {
	k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().FlightDurationMs,
		OnProgress: func(pct float64) {
			state.MutateVoid(k.subject, func(s *State) {
				if idx < len(s.Fragments) {
					s.Fragments[idx].Progress = pct
				}
			})
		},
		OnArrived: func() {
			var allArrived bool
			state.MutateVoid(k.subject, func(s *State) {
				if idx < len(s.Fragments) {
					s.Fragments[idx].Arrived = true
				}
				allArrived = true
				for _, f := range s.Fragments {
					if !f.Arrived {
						allArrived = false
						break
					}
				}
			})
			if allArrived {
				state.MutateVoid(k.subject, func(s *State) {
					s.Completed = true
					s.IsRunning = false
				})
			}
		},
	})
}

// Stop cancels every pending departure timer.
func (k *Kernel) Stop() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false })
	for _, id := range k.departTimers {
		k.sched.Cancel(id)
	}
	k.departTimers = nil
}

// Reset restores initial state, preserving the original packet summary and
// timing config.
func (k *Kernel) Reset() {
	k.Stop()
	state.MutateVoid(k.subject, func(s *State) {
		*s = CreateInitialState(k.packet, s.MtuBytes, s.IPVersion, s.ProcessingDelayMs, s.PacingMs, s.FlightDurationMs)
	})
}

func (k *Kernel) Dispose() { k.Stop() }
