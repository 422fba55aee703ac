// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package dhcp implements an in-memory DHCP server and client pair, exchanging
// real dhcpv4 message structs over the simulator's virtual-time scheduler
// instead of UDP sockets.
package dhcp

import (
	"strings"
	"sync"

	"grimm.is/netsim/internal/addr"
	nserrors "grimm.is/netsim/internal/errors"
)

// DhcpPool is one named, contiguous address range a server draws dynamic
// leases from (spec.md §3: "{name, gateway, netmask, start, end, dns?, tftp?,
// wlc?}").
type DhcpPool struct {
	Name    string
	Gateway addr.IPv4Address
	Netmask addr.IPv4Address
	Start   addr.IPv4Address
	End     addr.IPv4Address
	DNS     []addr.IPv4Address
	TFTP    string // optional next-server hint; empty means unset
	WLC     string // optional wireless-controller hint; empty means unset
}

// Validate enforces spec.md §3's invariant: start and end lie in gateway's
// own subnet under netmask.
func (p DhcpPool) Validate() error {
	if err := p.Netmask.ValidateMask(); err != nil {
		return err
	}
	if !p.Gateway.InSameNetwork(p.Netmask, p.Start) {
		return nserrors.Errorf(nserrors.KindValidation,
			"DHCP pool %q: start %s is not in gateway %s's subnet under %s", p.Name, p.Start, p.Gateway, p.Netmask)
	}
	if !p.Gateway.InSameNetwork(p.Netmask, p.End) {
		return nserrors.Errorf(nserrors.KindValidation,
			"DHCP pool %q: end %s is not in gateway %s's subnet under %s", p.Name, p.End, p.Gateway, p.Netmask)
	}
	if p.End < p.Start {
		return nserrors.Errorf(nserrors.KindValidation, "DHCP pool %q: end %s precedes start %s", p.Name, p.End, p.Start)
	}
	return nil
}

// sharesSubnet reports whether arrivalIP belongs to the same network as this
// pool's gateway, per spec.md §4.6's pool-selection rule. The zero address
// (no relay/giaddr context) always matches, so a single-pool, non-relayed
// server keeps working without every caller threading an arrival address.
func (p DhcpPool) sharesSubnet(arrivalIP addr.IPv4Address) bool {
	if arrivalIP == 0 {
		return true
	}
	return p.Gateway.InSameNetwork(p.Netmask, arrivalIP)
}

// lease is one ledger entry: a MAC bound to an IP, drawn from pool, until
// expiresAtMs.
type lease struct {
	ip          addr.IPv4Address
	pool        DhcpPool
	expiresAtMs float64
	hostname    string
}

// DhcpLedger tracks active leases across an ordered set of pools, allocating
// from the first pool whose gateway shares a subnet with the request's
// arrival interface (spec.md §4.6), and carries the server's enable flag
// (spec.md §4.6: "Server. Configured with ordered DhcpPools, a ledger, and an
// enable flag" — kept on the ledger since it's the shared state both the
// server and the API's pool CRUD surface operate on).
type DhcpLedger struct {
	mu       sync.Mutex
	enabled  bool
	pools    []DhcpPool
	leaseMs  float64
	byMac    map[addr.MacAddress]*lease
	takenIPs map[addr.IPv4Address]addr.MacAddress
}

// NewDhcpLedger constructs an enabled ledger over pools, each dynamic lease
// valid for leaseMs.
func NewDhcpLedger(pools []DhcpPool, leaseMs float64) *DhcpLedger {
	return &DhcpLedger{
		enabled:  true,
		pools:    pools,
		leaseMs:  leaseMs,
		byMac:    make(map[addr.MacAddress]*lease),
		takenIPs: make(map[addr.IPv4Address]addr.MacAddress),
	}
}

// Enabled reports whether the server should answer DHCP traffic at all.
func (l *DhcpLedger) Enabled() bool {
	l.mu.Lock()
	defer l.mu.Unlock()
	return l.enabled
}

// SetEnabled toggles the server on or off (spec.md §6: "DHCP enable").
func (l *DhcpLedger) SetEnabled(enabled bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	l.enabled = enabled
}

// Pools returns a snapshot of the ordered pool list (spec.md §6: "pools[]").
func (l *DhcpLedger) Pools() []DhcpPool {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]DhcpPool, len(l.pools))
	copy(out, l.pools)
	return out
}

// AddPool appends a validated pool, rejecting a duplicate name.
func (l *DhcpLedger) AddPool(pool DhcpPool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, existing := range l.pools {
		if existing.Name == pool.Name {
			return nserrors.Errorf(nserrors.KindValidation, "DHCP pool %q already exists", pool.Name)
		}
	}
	l.pools = append(l.pools, pool)
	return nil
}

// UpdatePool replaces the pool named pool.Name in place, preserving its
// position in the ordered list.
func (l *DhcpLedger) UpdatePool(pool DhcpPool) error {
	if err := pool.Validate(); err != nil {
		return err
	}
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.pools {
		if existing.Name == pool.Name {
			l.pools[i] = pool
			return nil
		}
	}
	return nserrors.Errorf(nserrors.KindValidation, "no such DHCP pool %q", pool.Name)
}

// RemovePool deletes the named pool. Existing leases drawn from it are left
// alone; they simply won't be renewable once they expire.
func (l *DhcpLedger) RemovePool(name string) error {
	l.mu.Lock()
	defer l.mu.Unlock()
	for i, existing := range l.pools {
		if existing.Name == name {
			l.pools = append(l.pools[:i], l.pools[i+1:]...)
			return nil
		}
	}
	return nserrors.Errorf(nserrors.KindValidation, "no such DHCP pool %q", name)
}

// SelectPool returns the first pool whose gateway shares a subnet with
// arrivalIP — the interface the request arrived on (spec.md §4.6). arrivalIP
// is the relay/giaddr address when the request was relayed, or the zero
// address for a directly-attached, non-relayed request, which matches the
// first configured pool.
func (l *DhcpLedger) SelectPool(arrivalIP addr.IPv4Address) (DhcpPool, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, pool := range l.pools {
		if pool.sharesSubnet(arrivalIP) {
			return pool, true
		}
	}
	return DhcpPool{}, false
}

// Allocate returns mac's existing lease if still valid, or binds the lowest
// free address from the pool selected for arrivalIP.
func (l *DhcpLedger) Allocate(mac addr.MacAddress, hostname string, nowMs float64, arrivalIP addr.IPv4Address) (addr.IPv4Address, DhcpPool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	if existing, ok := l.byMac[mac]; ok && existing.expiresAtMs > nowMs {
		return existing.ip, existing.pool, nil
	}

	for _, pool := range l.pools {
		if !pool.sharesSubnet(arrivalIP) {
			continue
		}
		for ip := pool.Start; ip <= pool.End; ip++ {
			if owner, taken := l.takenIPs[ip]; taken && owner != mac {
				continue
			}
			newLease := &lease{ip: ip, pool: pool, expiresAtMs: nowMs + l.leaseMs, hostname: hostname}
			l.byMac[mac] = newLease
			l.takenIPs[ip] = mac
			return ip, pool, nil
		}
	}
	return 0, DhcpPool{}, nserrors.Errorf(nserrors.KindHostUnreachable, "DHCP pool exhausted, no address available for %s", mac)
}

// Renew extends mac's existing lease by leaseMs from nowMs. It's a no-op
// (silently succeeds) if mac has no current lease; spec.md's REQUEST handling
// always calls Allocate first, which creates one.
func (l *DhcpLedger) Renew(mac addr.MacAddress, nowMs float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ls, ok := l.byMac[mac]; ok {
		ls.expiresAtMs = nowMs + l.leaseMs
	}
}

// Release gives back mac's lease immediately.
func (l *DhcpLedger) Release(mac addr.MacAddress) {
	l.mu.Lock()
	defer l.mu.Unlock()
	if ls, ok := l.byMac[mac]; ok {
		delete(l.takenIPs, ls.ip)
		delete(l.byMac, mac)
	}
}

// ExpireStale drops every lease whose expiry has passed as of nowMs.
func (l *DhcpLedger) ExpireStale(nowMs float64) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for mac, ls := range l.byMac {
		if ls.expiresAtMs <= nowMs {
			delete(l.takenIPs, ls.ip)
			delete(l.byMac, mac)
		}
	}
}

// ResolveHostname returns the leased address currently held under hostname
// (case-insensitive), backing the minimal DNS stub resolver in resolver.go.
func (l *DhcpLedger) ResolveHostname(hostname string) (addr.IPv4Address, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	for _, ls := range l.byMac {
		if strings.EqualFold(ls.hostname, hostname) {
			return ls.ip, true
		}
	}
	return 0, false
}

// Lookup returns mac's currently leased address, if any.
func (l *DhcpLedger) Lookup(mac addr.MacAddress) (addr.IPv4Address, bool) {
	l.mu.Lock()
	defer l.mu.Unlock()
	ls, ok := l.byMac[mac]
	if !ok {
		return 0, false
	}
	return ls.ip, true
}

// LeaseInfo is a read-only snapshot of one active lease, for presentation.
type LeaseInfo struct {
	Mac         addr.MacAddress
	IP          addr.IPv4Address
	Hostname    string
	ExpiresAtMs float64
}

// Leases returns a snapshot of every currently held lease, for read-only
// presentation (e.g. the API's DHCP info endpoint).
func (l *DhcpLedger) Leases() []LeaseInfo {
	l.mu.Lock()
	defer l.mu.Unlock()
	out := make([]LeaseInfo, 0, len(l.byMac))
	for mac, ls := range l.byMac {
		out = append(out, LeaseInfo{Mac: mac, IP: ls.ip, Hostname: ls.hostname, ExpiresAtMs: ls.expiresAtMs})
	}
	return out
}
