// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	nserrors "grimm.is/netsim/internal/errors"
)

// FragmentCallback is invoked once per packet actually placed on the wire
// (original or fragment), receiving the number of fragments a split produced
// and the total bytes of header overhead that split added (spec.md §4.6:
// "onFragmentation(addedCount, addedCount*20)").
type FragmentCallback func(addedCount int, addedBytes int)

// Fragment splits p into a set of packets no larger than mtuBytes, each
// carrying a payload aligned to an 8-byte boundary (RFC 791 fragment offset
// units) except the final fragment. DF=1 packets that don't fit are reported
// as KindFragmentationRequired instead of being split.
//
// In version IPv6, a router never fragments (spec.md §4.5: "In IPv6 mode,
// never fragment — forward as-is regardless of size") — oversized packets
// are forwarded whole, same as a packet that already fits under mtuBytes.
func Fragment(p IPv4Packet, mtuBytes int, version IPVersion) ([]IPv4Packet, error) {
	if version == IPv6 {
		return []IPv4Packet{p}, nil
	}
	if p.TotalBytes() <= mtuBytes {
		return []IPv4Packet{p}, nil
	}
	if p.DF {
		return nil, nserrors.Errorf(nserrors.KindFragmentationRequired,
			"packet to %s exceeds MTU %d bytes with DF set", p.Dst, mtuBytes)
	}

	maxPayload := mtuBytes - HeaderBytes
	maxPayload -= maxPayload % 8 // each non-final fragment's payload must be a multiple of 8 bytes
	if maxPayload <= 0 {
		return nil, nserrors.Errorf(nserrors.KindFragmentationRequired, "MTU %d too small to carry any payload", mtuBytes)
	}

	var out []IPv4Packet
	offset := 0
	for offset < len(p.Payload) {
		end := offset + maxPayload
		last := end >= len(p.Payload)
		if last {
			end = len(p.Payload)
		}
		frag := p
		frag.Payload = p.Payload[offset:end]
		frag.FragOff = offset / 8
		frag.MF = !last
		out = append(out, frag)
		offset = end
	}
	return out, nil
}
