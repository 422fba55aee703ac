// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package datalink implements Ethernet framing, MAC learning, switch
// forwarding, and the Spanning Tree Protocol port state machine.
package datalink

import (
	"net"

	"github.com/gopacket/gopacket"
	"github.com/gopacket/gopacket/layers"

	"grimm.is/netsim/internal/addr"
)

// EtherType identifies the payload carried by a frame.
type EtherType = layers.EthernetType

const (
	EtherTypeIPv4 = layers.EthernetTypeIPv4
	EtherTypeARP  = layers.EthernetTypeARP
)

// EthernetFrame is an in-memory frame. It's backed by gopacket's layers.Ethernet
// so the same struct that carries a frame through the simulator can also
// serialize/decode real bytes, giving the "in-memory record" spec.md §6
// promises a realistic wire shape without any actual socket I/O.
type EthernetFrame struct {
	SrcMac    addr.MacAddress
	DstMac    addr.MacAddress
	EtherType EtherType
	Payload   []byte
}

// Bits returns the frame's length in bits, used by the physical layer to
// compute serialization delay.
func (f EthernetFrame) Bits() int {
	const headerBytes = 14 // 2x6 byte MACs + 2 byte EtherType
	return (headerBytes + len(f.Payload)) * 8
}

// Encode renders the frame as real Ethernet bytes via gopacket, exercised by
// anything that wants a byte-accurate representation (diagnostics, pcap
// export) even though the simulator itself only ever passes the struct.
func (f EthernetFrame) Encode() ([]byte, error) {
	eth := layers.Ethernet{
		SrcMAC:       net.HardwareAddr(f.SrcMac[:]),
		DstMAC:       net.HardwareAddr(f.DstMac[:]),
		EthernetType: f.EtherType,
	}
	buf := gopacket.NewSerializeBuffer()
	opts := gopacket.SerializeOptions{FixLengths: true}
	if err := gopacket.SerializeLayers(buf, opts, &eth, gopacket.Payload(f.Payload)); err != nil {
		return nil, err
	}
	return buf.Bytes(), nil
}

// IsBroadcast reports whether the frame's destination is the broadcast address.
func (f EthernetFrame) IsBroadcast() bool {
	return f.DstMac.IsBroadcast()
}
