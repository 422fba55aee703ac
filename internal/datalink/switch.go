// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package datalink

import (
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/logging"
)

var log = logging.WithComponent("datalink")

// PortSender delivers a frame out of a physical port. Implemented by
// internal/topology's ifacePort adapter over the physical.HardwareInterface
// the switch port is bound to.
type PortSender interface {
	Transmit(frame EthernetFrame)
}

// maxCaptures bounds the switch's diagnostic capture ring so a long-running
// simulation's pcap export doesn't grow without bound.
const maxCaptures = 256

// Switch is a learning bridge: it forwards on known unicast, floods on
// unknown unicast/broadcast, and only egresses through ports STP has put in
// the Forwarding state (spec.md §4.4).
type Switch struct {
	Name  string
	ports []PortSender
	table *MacTable
	stp   *STP

	captures [][]byte
}

// NewSwitch constructs a switch with the given ports (index-aligned with the
// STP instance's port indices) and a MAC table aged by macTableTtlMs.
func NewSwitch(name string, ports []PortSender, bridgeID BridgeID, sched *clock.Scheduler, macTableTtlMs, forwardDelayMs, maxAgeMs float64) *Switch {
	return &Switch{
		Name:  name,
		ports: ports,
		table: NewMacTable(macTableTtlMs),
		stp:   NewSTP(bridgeID, len(ports), sched, forwardDelayMs, maxAgeMs),
	}
}

// Captures returns the switch's most recent frames, rendered as real
// Ethernet bytes via EthernetFrame.Encode, for pcap-style diagnostic export
// (spec.md §6's node/link diagnostics surface). Oldest first.
func (s *Switch) Captures() [][]byte {
	out := make([][]byte, len(s.captures))
	copy(out, s.captures)
	return out
}

func (s *Switch) capture(frame EthernetFrame) {
	raw, err := frame.Encode()
	if err != nil {
		log.Debug("failed to encode frame for capture", "switch", s.Name, "err", err)
		return
	}
	s.captures = append(s.captures, raw)
	if len(s.captures) > maxCaptures {
		s.captures = s.captures[len(s.captures)-maxCaptures:]
	}
}

// STP exposes the switch's spanning-tree instance for BPDU injection, port
// administration, and status queries.
func (s *Switch) STP() *STP { return s.stp }

// MacTable exposes the learning table for presentation/inspection.
func (s *Switch) MacTable() *MacTable { return s.table }

// Receive processes a frame that arrived on port p at nowMs, per spec.md
// §4.4:
//  1. Learn SrcMac -> p (only if p is Learning or Forwarding — a Disabled,
//     Blocking or Listening port never learns, and only Forwarding forwards;
//     BPDUs bypass Receive).
//  2. If DstMac is broadcast, or unknown, or the learned port for DstMac is p
//     itself, flood to every other port that is Forwarding.
//  3. Else unicast out the learned port, iff that port is Forwarding.
func (s *Switch) Receive(p int, frame EthernetFrame, nowMs float64) {
	if p < 0 || p >= len(s.ports) {
		return
	}
	if s.stp.PortState(p) == Forwarding || s.stp.PortState(p) == Learning {
		s.table.Learn(frame.SrcMac, p, nowMs)
	}
	if s.stp.PortState(p) != Forwarding {
		return
	}
	s.capture(frame)

	if frame.IsBroadcast() {
		s.flood(p, frame)
		return
	}
	outPort, ok := s.table.Lookup(frame.DstMac, nowMs)
	if !ok || outPort == p {
		s.flood(p, frame)
		return
	}
	s.forward(outPort, frame)
}

func (s *Switch) flood(inPort int, frame EthernetFrame) {
	for i, port := range s.ports {
		if i == inPort {
			continue
		}
		if s.stp.PortState(i) != Forwarding {
			continue
		}
		port.Transmit(frame)
	}
}

func (s *Switch) forward(outPort int, frame EthernetFrame) {
	if s.stp.PortState(outPort) != Forwarding {
		log.Debug("dropping unicast frame to non-forwarding port", "switch", s.Name, "port", outPort)
		return
	}
	s.ports[outPort].Transmit(frame)
}
