// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	"testing"

	"grimm.is/netsim/internal/addr"
	nserrors "grimm.is/netsim/internal/errors"
)

func testPacket(payloadLen int) IPv4Packet {
	return IPv4Packet{
		Src:     addr.MustParseIPv4("10.0.0.1"),
		Dst:     addr.MustParseIPv4("10.0.0.2"),
		TTL:     64,
		ID:      1,
		Payload: make([]byte, payloadLen),
	}
}

func TestFragmentPassthroughWhenFits(t *testing.T) {
	p := testPacket(100)
	frags, err := Fragment(p, 1500, IPv4)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected no fragmentation, got %d fragments", len(frags))
	}
}

func TestFragmentSplitsOversizedPacket(t *testing.T) {
	p := testPacket(4000)
	frags, err := Fragment(p, 1500, IPv4)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) < 3 {
		t.Fatalf("expected at least 3 fragments for a 4000-byte payload at 1500 MTU, got %d", len(frags))
	}

	total := 0
	for i, f := range frags {
		total += len(f.Payload)
		isLast := i == len(frags)-1
		if f.MF == isLast {
			t.Fatalf("fragment %d: MF=%v, isLast=%v (should be opposite)", i, f.MF, isLast)
		}
		if !isLast && len(f.Payload)%8 != 0 {
			t.Fatalf("fragment %d: non-final payload length %d is not 8-byte aligned", i, len(f.Payload))
		}
	}
	if total != len(p.Payload) {
		t.Fatalf("expected fragments to cover the whole payload, got %d of %d bytes", total, len(p.Payload))
	}
}

func TestFragmentDFSetReturnsFragmentationRequired(t *testing.T) {
	p := testPacket(4000)
	p.DF = true
	_, err := Fragment(p, 1500, IPv4)
	if nserrors.GetKind(err) != nserrors.KindFragmentationRequired {
		t.Fatalf("expected KindFragmentationRequired, got %v", err)
	}
}

// TestFragmentIPv6NeverFragments covers spec.md §4.5 scenario S3: an oversize
// packet in IPv6 mode is forwarded as exactly one packet, never split, even
// though the same payload at the same MTU would split under IPv4.
func TestFragmentIPv6NeverFragments(t *testing.T) {
	p := testPacket(4000)
	frags, err := Fragment(p, 1500, IPv6)
	if err != nil {
		t.Fatal(err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected IPv6 mode to forward as a single packet, got %d fragments", len(frags))
	}
	if len(frags[0].Payload) != len(p.Payload) {
		t.Fatalf("expected the full original payload to be forwarded intact, got %d of %d bytes", len(frags[0].Payload), len(p.Payload))
	}

	// A DF-set oversized packet would normally error under IPv4; IPv6 mode
	// bypasses that path entirely since it never attempts to split.
	p.DF = true
	frags, err = Fragment(p, 1500, IPv6)
	if err != nil {
		t.Fatalf("expected IPv6 mode to ignore DF and forward as-is, got error: %v", err)
	}
	if len(frags) != 1 {
		t.Fatalf("expected exactly one forwarded packet, got %d", len(frags))
	}
}
