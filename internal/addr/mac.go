// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package addr implements the MAC and IPv4 value types the rest of the
// simulator is built on: parsing, canonical formatting, equality, and the
// netmask arithmetic routing and switching depend on.
package addr

import (
	"fmt"
	"strconv"
	"strings"

	nserrors "grimm.is/netsim/internal/errors"
)

// MacAddress is a 48-bit Ethernet hardware address.
type MacAddress [6]byte

// BroadcastMac is the all-ones MAC address used for Ethernet broadcast and ARP requests.
var BroadcastMac = MacAddress{0xFF, 0xFF, 0xFF, 0xFF, 0xFF, 0xFF}

// ParseMac accepts six hex octets, case-insensitive, separated uniformly by
// ':' or '-'. It fails with a KindFormat error on anything else.
func ParseMac(s string) (MacAddress, error) {
	var sep byte
	switch {
	case strings.Contains(s, ":"):
		sep = ':'
	case strings.Contains(s, "-"):
		sep = '-'
	default:
		return MacAddress{}, nserrors.Errorf(nserrors.KindFormat, "mac %q: missing ':' or '-' separator", s)
	}

	parts := strings.Split(s, string(sep))
	if len(parts) != 6 {
		return MacAddress{}, nserrors.Errorf(nserrors.KindFormat, "mac %q: expected 6 octets, got %d", s, len(parts))
	}

	var m MacAddress
	for i, p := range parts {
		if len(p) != 2 {
			return MacAddress{}, nserrors.Errorf(nserrors.KindFormat, "mac %q: octet %q is not two hex digits", s, p)
		}
		v, err := strconv.ParseUint(p, 16, 8)
		if err != nil {
			return MacAddress{}, nserrors.Wrapf(err, nserrors.KindFormat, "mac %q: invalid hex octet %q", s, p)
		}
		m[i] = byte(v)
	}
	return m, nil
}

// MustParseMac is ParseMac for callers (tests, fixtures) that already know the input is valid.
func MustParseMac(s string) MacAddress {
	m, err := ParseMac(s)
	if err != nil {
		panic(err)
	}
	return m
}

// String renders the canonical colon-hex form.
func (m MacAddress) String() string {
	return fmt.Sprintf("%02x:%02x:%02x:%02x:%02x:%02x", m[0], m[1], m[2], m[3], m[4], m[5])
}

// Equal reports bit-exact equality.
func (m MacAddress) Equal(other MacAddress) bool {
	return m == other
}

// IsBroadcast reports whether m is the all-ones broadcast address.
func (m MacAddress) IsBroadcast() bool {
	return m == BroadcastMac
}
