// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	"net/netip"
	"sync"

	"github.com/gaissmai/bart"

	nserrors "grimm.is/netsim/internal/errors"
	"grimm.is/netsim/internal/addr"
)

// Route is one entry in a RoutingTable: a next hop (zero value means
// "directly connected") and the egress interface name.
type Route struct {
	Dest      addr.IPv4Address
	Mask      addr.IPv4Address
	NextHop   addr.IPv4Address // zero if directly connected
	Interface string
	Metric    int
}

// RoutingTable is a longest-prefix-match forwarding table backed by a
// compressed binary trie (bart.Table), giving O(log W) lookups even once a
// router holds thousands of routes. A side map of installed prefixes supports
// presentation without depending on the trie's iteration surface.
type RoutingTable struct {
	mu     sync.RWMutex
	trie   bart.Table[Route]
	byPfx  map[netip.Prefix]Route
}

// NewRoutingTable constructs an empty table.
func NewRoutingTable() *RoutingTable {
	return &RoutingTable{byPfx: make(map[netip.Prefix]Route)}
}

// AddRoute inserts or replaces the route for (dest, mask). ValidateMask errors
// propagate unchanged.
func (t *RoutingTable) AddRoute(r Route) error {
	pfx, err := toPrefix(r.Dest, r.Mask)
	if err != nil {
		return err
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trie.Insert(pfx, r)
	t.byPfx[pfx] = r
	return nil
}

// RemoveRoute deletes the route for (dest, mask), if present.
func (t *RoutingTable) RemoveRoute(dest, mask addr.IPv4Address) {
	pfx, err := toPrefix(dest, mask)
	if err != nil {
		return
	}
	t.mu.Lock()
	defer t.mu.Unlock()
	t.trie.Delete(pfx)
	delete(t.byPfx, pfx)
}

// Lookup performs longest-prefix match for dst, returning KindNoRoute if
// nothing matches (not even a default route).
func (t *RoutingTable) Lookup(dst addr.IPv4Address) (Route, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	r, ok := t.trie.Lookup(toAddr(dst))
	if !ok {
		return Route{}, nserrors.Errorf(nserrors.KindNoRoute, "no route to %s", dst)
	}
	return r, nil
}

// Routes returns every route currently installed, for presentation.
func (t *RoutingTable) Routes() []Route {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]Route, 0, len(t.byPfx))
	for _, r := range t.byPfx {
		out = append(out, r)
	}
	return out
}

func toPrefix(dest, mask addr.IPv4Address) (netip.Prefix, error) {
	if err := mask.ValidateMask(); err != nil {
		return netip.Prefix{}, err
	}
	return netip.PrefixFrom(toAddr(dest), mask.PrefixLen()), nil
}

func toAddr(a addr.IPv4Address) netip.Addr {
	b := [4]byte{byte(a >> 24), byte(a >> 16), byte(a >> 8), byte(a)}
	return netip.AddrFrom4(b)
}
