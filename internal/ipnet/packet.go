// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package ipnet implements IPv4 routing, ARP resolution, fragmentation, and
// ICMP echo, all operating on in-memory packet structs rather than real
// sockets.
package ipnet

import (
	"net"

	"golang.org/x/net/ipv4"

	"grimm.is/netsim/internal/addr"
)

// IPVersion selects which IP version's forwarding rules apply to a packet.
// The simulator never builds a real IPv6 header (spec.md's IPv6 routing
// Non-goal) — this only gates the one IPv6 behavior spec.md §4.5 does
// specify: a router never fragments in IPv6 mode, it forwards as-is.
type IPVersion int

const (
	IPv4 IPVersion = 4
	IPv6 IPVersion = 6
)

// Protocol mirrors the handful of IPv4 protocol numbers this simulator
// understands.
type Protocol int

const (
	ProtoICMP Protocol = 1
	ProtoTCP  Protocol = 6
	ProtoUDP  Protocol = 17
)

// IPv4Packet is the in-memory representation of a datagram, deliberately
// mirroring golang.org/x/net/ipv4.Header's field set so the same struct can
// be rendered through that package's Marshal for byte-accurate diagnostics.
type IPv4Packet struct {
	Src      addr.IPv4Address
	Dst      addr.IPv4Address
	TTL      int
	Protocol Protocol
	ID       int // identification field, shared across a fragment set
	DF       bool
	MF       bool
	FragOff  int // in 8-byte units, per RFC 791
	Payload  []byte
}

// HeaderBytes is the fixed IPv4 header size this simulator models (no IP
// options).
const HeaderBytes = ipv4.HeaderLen

// TotalBits returns the packet's length in bits including its header, used by
// the physical layer for serialization delay and by fragmentation to decide
// whether a packet fits the egress MTU.
func (p IPv4Packet) TotalBits() int {
	return (HeaderBytes + len(p.Payload)) * 8
}

// TotalBytes returns the packet's length in bytes including its header.
func (p IPv4Packet) TotalBytes() int {
	return HeaderBytes + len(p.Payload)
}

// ToHeader renders the packet's header fields as a golang.org/x/net/ipv4.Header,
// giving diagnostics a byte-accurate struct without ever touching a socket.
func (p IPv4Packet) ToHeader() *ipv4.Header {
	flags := ipv4.Flag(0)
	if p.DF {
		flags |= ipv4.DontFragment
	}
	if p.MF {
		flags |= ipv4.MoreFragments
	}
	return &ipv4.Header{
		Version:  ipv4.Version,
		Len:      HeaderBytes,
		TotalLen: p.TotalBytes(),
		ID:       p.ID,
		FragOff:  p.FragOff,
		Flags:    flags,
		TTL:      p.TTL,
		Protocol: int(p.Protocol),
		Src:      net.ParseIP(p.Src.String()),
		Dst:      net.ParseIP(p.Dst.String()),
	}
}
