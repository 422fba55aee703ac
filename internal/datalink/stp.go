// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package datalink

import (
	"bytes"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

// PortState is one of the five STP port states (spec.md §3).
type PortState int

const (
	Disabled PortState = iota
	Blocking
	Listening
	Learning
	Forwarding
)

func (s PortState) String() string {
	switch s {
	case Disabled:
		return "disabled"
	case Blocking:
		return "blocking"
	case Listening:
		return "listening"
	case Learning:
		return "learning"
	case Forwarding:
		return "forwarding"
	default:
		return "unknown"
	}
}

// PortRole classifies why a port is in its current state.
type PortRole int

const (
	RoleUnknown PortRole = iota
	RoleRoot
	RoleDesignated
	RoleBlocked
	RoleDisabledRole
)

func (r PortRole) String() string {
	switch r {
	case RoleRoot:
		return "root"
	case RoleDesignated:
		return "designated"
	case RoleBlocked:
		return "blocked"
	case RoleDisabledRole:
		return "disabled"
	default:
		return "unknown"
	}
}

// BridgeID is (priority, baseMac), totally ordered with priority first.
type BridgeID struct {
	Priority uint16
	Mac      addr.MacAddress
}

// Less reports whether b sorts before other (lower priority wins ties broken
// by MAC, both ascending).
func (b BridgeID) Less(other BridgeID) bool {
	if b.Priority != other.Priority {
		return b.Priority < other.Priority
	}
	return bytes.Compare(b.Mac[:], other.Mac[:]) < 0
}

func (b BridgeID) Equal(other BridgeID) bool {
	return b.Priority == other.Priority && b.Mac == other.Mac
}

// Bpdu is the periodic STP advertisement.
type Bpdu struct {
	RootID       BridgeID
	RootPathCost uint32
	SenderID     BridgeID
	SenderPort   int
}

// Better reports whether b is a superior BPDU to other, per the lexicographic
// tuple comparison in spec.md §4.4: (rootId, rootPathCost, senderId, senderPort).
func (b Bpdu) Better(other Bpdu) bool {
	if !b.RootID.Equal(other.RootID) {
		return b.RootID.Less(other.RootID)
	}
	if b.RootPathCost != other.RootPathCost {
		return b.RootPathCost < other.RootPathCost
	}
	if !b.SenderID.Equal(other.SenderID) {
		return b.SenderID.Less(other.SenderID)
	}
	return b.SenderPort < other.SenderPort
}

// stpPort is one switch port's STP bookkeeping.
type stpPort struct {
	index        int
	pathCost     uint32
	state        PortState
	role         PortRole
	administered bool // false once administratively disabled
	best         *Bpdu
	lastSeenMs   float64
	transitionID clock.CallbackID
}

// STP is one switch's spanning-tree instance.
type STP struct {
	BridgeID       BridgeID
	ForwardDelayMs float64
	MaxAgeMs       float64

	rootID       BridgeID
	rootPathCost uint32
	rootPort     int // -1 when this bridge is root or has no ports yet

	ports []*stpPort
	sched *clock.Scheduler
}

// NewSTP constructs an STP instance with numPorts ports, all starting
// Blocking and assuming itself the root until a better BPDU arrives.
func NewSTP(bridgeID BridgeID, numPorts int, sched *clock.Scheduler, forwardDelayMs, maxAgeMs float64) *STP {
	s := &STP{
		BridgeID:       bridgeID,
		ForwardDelayMs: forwardDelayMs,
		MaxAgeMs:       maxAgeMs,
		rootID:         bridgeID,
		rootPathCost:   0,
		rootPort:       -1,
		sched:          sched,
	}
	for i := 0; i < numPorts; i++ {
		s.ports = append(s.ports, &stpPort{index: i, pathCost: 1, state: Blocking, role: RoleUnknown, administered: true})
	}
	return s
}

// SetPortCost sets the path cost advertised out of port i.
func (s *STP) SetPortCost(i int, cost uint32) {
	if i >= 0 && i < len(s.ports) {
		s.ports[i].pathCost = cost
	}
}

// SetPortAdministered enables/disables a port administratively; a disabled
// port's state is forced to Disabled regardless of STP computation.
func (s *STP) SetPortAdministered(i int, up bool) {
	if i < 0 || i >= len(s.ports) {
		return
	}
	p := s.ports[i]
	p.administered = up
	if !up {
		s.cancelTransition(p)
		p.state = Disabled
		p.role = RoleDisabledRole
	}
}

// OutgoingBpdu returns the BPDU this bridge should advertise out of port i.
func (s *STP) OutgoingBpdu(i int) Bpdu {
	cost := s.rootPathCost
	if i >= 0 && i < len(s.ports) {
		cost += s.ports[i].pathCost
	}
	return Bpdu{RootID: s.rootID, RootPathCost: cost, SenderID: s.BridgeID, SenderPort: i}
}

// ReceiveBpdu processes a BPDU heard on port i. Re-delivery of the same BPDU
// is idempotent: it refreshes the freshness timer but never regresses state.
func (s *STP) ReceiveBpdu(i int, bpdu Bpdu, nowMs float64) {
	if i < 0 || i >= len(s.ports) {
		return
	}
	p := s.ports[i]
	if !p.administered {
		return
	}
	p.lastSeenMs = nowMs

	if p.best == nil || bpdu.Better(*p.best) {
		stored := bpdu
		p.best = &stored
	}
	s.recompute(nowMs)
}

// Tick ages out ports whose BPDU went stale (MaxAgeMs with no re-delivery),
// forgetting their best BPDU and forcing a reconvergence.
func (s *STP) Tick(nowMs float64) {
	changed := false
	for _, p := range s.ports {
		if p.best == nil || s.MaxAgeMs <= 0 {
			continue
		}
		if nowMs-p.lastSeenMs > s.MaxAgeMs {
			p.best = nil
			changed = true
		}
	}
	if changed {
		s.recompute(nowMs)
	}
}

// recompute determines the root bridge, root path cost, root port, and every
// port's role/target state, then schedules any state transitions needed.
func (s *STP) recompute(nowMs float64) {
	bestRoot := s.BridgeID
	bestCost := uint32(0)
	rootPort := -1

	for _, p := range s.ports {
		if p.best == nil || !p.administered {
			continue
		}
		candidateCost := p.best.RootPathCost + p.pathCost
		candidateRoot := p.best.RootID
		if candidateRoot.Less(bestRoot) || (candidateRoot.Equal(bestRoot) && rootPort != -1 && candidateCost < bestCost) {
			bestRoot = candidateRoot
			bestCost = candidateCost
			rootPort = p.index
		}
	}
	s.rootID = bestRoot
	s.rootPathCost = bestCost
	s.rootPort = rootPort

	isRootBridge := s.rootID.Equal(s.BridgeID)

	for _, p := range s.ports {
		if !p.administered {
			continue
		}
		var target PortRole
		switch {
		case !isRootBridge && p.index == rootPort:
			target = RoleRoot
		case isRootBridge:
			target = RoleDesignated
		case p.best == nil:
			target = RoleDesignated
		default:
			// Designated iff our advertised BPDU out this port beats the best
			// BPDU we've heard on it; otherwise this port is blocked.
			ours := s.OutgoingBpdu(p.index)
			if ours.Better(*p.best) {
				target = RoleDesignated
			} else {
				target = RoleBlocked
			}
		}
		s.applyRole(p, target, nowMs)
	}
}

func (s *STP) applyRole(p *stpPort, role PortRole, nowMs float64) {
	if p.role == role {
		return
	}
	p.role = role
	s.cancelTransition(p)

	if role == RoleBlocked {
		p.state = Blocking
		return
	}
	// Root and designated ports walk Listening -> Learning -> Forwarding,
	// spending ForwardDelayMs in each transitional state.
	p.state = Listening
	s.scheduleAdvance(p, Learning, nowMs+s.ForwardDelayMs)
}

func (s *STP) scheduleAdvance(p *stpPort, next PortState, atMs float64) {
	id := clock.NewCallbackID()
	p.transitionID = id
	s.sched.Schedule(id, atMs, func() {
		if p.role != RoleRoot && p.role != RoleDesignated {
			return
		}
		p.state = next
		if next == Learning {
			s.scheduleAdvance(p, Forwarding, s.sched.DeltaMs()+s.ForwardDelayMs)
		}
	})
}

func (s *STP) cancelTransition(p *stpPort) {
	if p.transitionID != "" {
		s.sched.Cancel(p.transitionID)
		p.transitionID = ""
	}
}

// PortInfo is the read-only view of a port's STP status (spec.md §6: "STP
// portsInfo").
type PortInfo struct {
	Index int
	Role  PortRole
	State PortState
	Cost  uint32
}

// PortsInfo returns a read-only snapshot of every port's role/state/cost.
func (s *STP) PortsInfo() []PortInfo {
	out := make([]PortInfo, 0, len(s.ports))
	for _, p := range s.ports {
		out = append(out, PortInfo{Index: p.index, Role: p.role, State: p.state, Cost: p.pathCost})
	}
	return out
}

// IsRootBridge reports whether this bridge currently believes itself root.
func (s *STP) IsRootBridge() bool {
	return s.rootID.Equal(s.BridgeID)
}

// PortState returns the current state of port i.
func (s *STP) PortState(i int) PortState {
	if i < 0 || i >= len(s.ports) {
		return Disabled
	}
	return s.ports[i].state
}
