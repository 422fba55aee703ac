// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package physical models the bottom of the stack: hardware interfaces,
// the links between them, and the per-link propagation/serialization delay
// and auto-negotiation that every frame pays before a listener ever sees it.
package physical

import (
	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

// SpeedBps enumerates the link speeds auto-negotiation can settle on.
type SpeedBps uint64

const (
	SpeedAuto SpeedBps = 0
	Speed10M  SpeedBps = 10_000_000
	Speed100M SpeedBps = 100_000_000
	Speed1G   SpeedBps = 1_000_000_000
)

// BitsListener receives raw bits (represented here as a frame payload length in
// bits, since the spec explicitly excludes symbol-level fidelity) once they
// have finished arriving at this interface.
type BitsListener func(bits int)

// HardwareInterface is exclusively owned by the node that created it; it is
// destroyed along with that node.
type HardwareInterface struct {
	Name       string
	Mac        addr.MacAddress
	SpeedBps   SpeedBps
	FullDuplex bool
	Active     bool

	MinSpeed SpeedBps
	MaxSpeed SpeedBps

	connectedLink *Link
	listeners     []BitsListener

	sched *clock.Scheduler
}

// NewHardwareInterface constructs an interface bound to sched for delay timing.
func NewHardwareInterface(name string, mac addr.MacAddress, sched *clock.Scheduler) *HardwareInterface {
	return &HardwareInterface{
		Name:     name,
		Mac:      mac,
		SpeedBps: SpeedAuto,
		MinSpeed: Speed10M,
		MaxSpeed: Speed1G,
		sched:    sched,
	}
}

// AddListener registers fn to be invoked, in registration order, whenever a
// frame finishes arriving on this interface.
func (h *HardwareInterface) AddListener(fn BitsListener) {
	h.listeners = append(h.listeners, fn)
}

// Link returns the link plugged into this interface, or nil if unplugged.
func (h *HardwareInterface) Link() *Link { return h.connectedLink }

// Transmit sends a frame of the given bit length across the connected link.
// It schedules delivery to the peer's listeners after the serialization delay
// (bits/speed) plus the link's propagation delay, both in simulated time. It
// is a no-op if the interface is down or unplugged.
func (h *HardwareInterface) Transmit(bits int) {
	if !h.Active || h.connectedLink == nil {
		return
	}
	peer := h.connectedLink.Other(h)
	if peer == nil || !peer.Active {
		return
	}

	delayMs := h.serializationDelayMs(bits) + h.connectedLink.PropagationDelayMs()
	arriveAt := h.sched.DeltaMs() + delayMs
	h.sched.Schedule(clock.NewCallbackID(), arriveAt, func() {
		for _, l := range peer.listeners {
			l(bits)
		}
	})
}

// serializationDelayMs is F/S seconds, expressed in sim-ms, for F bits at the
// interface's negotiated speed. An interface with SpeedAuto (not yet
// negotiated) reports zero delay.
func (h *HardwareInterface) serializationDelayMs(bits int) float64 {
	if h.SpeedBps == 0 {
		return 0
	}
	seconds := float64(bits) / float64(h.SpeedBps)
	return seconds * 1000
}
