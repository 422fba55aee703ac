// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	"sync"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	nserrors "grimm.is/netsim/internal/errors"
)

type arpEntry struct {
	mac        addr.MacAddress
	learnedAtMs float64
}

// ArpResolver is asked to emit an ARP request when a resolution is needed.
// Implemented by the node that owns the cache.
type ArpResolver interface {
	SendArpRequest(target addr.IPv4Address)
}

// pendingWait is a queue of packets blocked on resolving one next hop.
type pendingWait struct {
	timeoutID clock.CallbackID
	onResolve []func(addr.MacAddress)
	onTimeout []func()
}

// ArpCache resolves IPv4 next hops to MAC addresses, queuing callers behind a
// pending request and failing them all with KindHostUnreachable if no reply
// arrives within arpTimeoutMs (spec.md §4.5).
type ArpCache struct {
	mu         sync.Mutex
	entries    map[addr.IPv4Address]arpEntry
	pending    map[addr.IPv4Address]*pendingWait
	ttlMs      float64
	timeoutMs  float64
	sched      *clock.Scheduler
	resolver   ArpResolver
}

// NewArpCache constructs a cache that ages entries out after ttlMs and gives
// up an in-flight resolution after timeoutMs.
func NewArpCache(sched *clock.Scheduler, resolver ArpResolver, ttlMs, timeoutMs float64) *ArpCache {
	return &ArpCache{
		entries:  make(map[addr.IPv4Address]arpEntry),
		pending:  make(map[addr.IPv4Address]*pendingWait),
		ttlMs:    ttlMs,
		timeoutMs: timeoutMs,
		sched:    sched,
		resolver: resolver,
	}
}

// Resolve looks up ip, invoking onResolve synchronously if already cached, or
// queuing the callback behind an ARP request otherwise. onTimeout fires
// (at most once) if no reply arrives within timeoutMs and no resolution ever
// occurred for this request.
func (c *ArpCache) Resolve(ip addr.IPv4Address, onResolve func(addr.MacAddress), onTimeout func()) {
	c.mu.Lock()
	now := c.sched.DeltaMs()
	if e, ok := c.entries[ip]; ok && (c.ttlMs <= 0 || now-e.learnedAtMs <= c.ttlMs) {
		mac := e.mac
		c.mu.Unlock()
		onResolve(mac)
		return
	}

	w, inFlight := c.pending[ip]
	if !inFlight {
		w = &pendingWait{}
		c.pending[ip] = w
		id := clock.NewCallbackID()
		w.timeoutID = id
		c.sched.Schedule(id, now+c.timeoutMs, func() { c.expire(ip) })
	}
	w.onResolve = append(w.onResolve, onResolve)
	if onTimeout != nil {
		w.onTimeout = append(w.onTimeout, onTimeout)
	}
	c.mu.Unlock()

	if !inFlight {
		c.resolver.SendArpRequest(ip)
	}
}

// Learn records a resolved mapping and releases every caller waiting on it.
func (c *ArpCache) Learn(ip addr.IPv4Address, mac addr.MacAddress) {
	c.mu.Lock()
	now := c.sched.DeltaMs()
	c.entries[ip] = arpEntry{mac: mac, learnedAtMs: now}
	w, ok := c.pending[ip]
	if ok {
		delete(c.pending, ip)
		c.sched.Cancel(w.timeoutID)
	}
	c.mu.Unlock()

	if ok {
		for _, cb := range w.onResolve {
			cb(mac)
		}
	}
}

// expire fires every queued timeout callback for ip with KindHostUnreachable
// semantics, then drops the pending entry.
func (c *ArpCache) expire(ip addr.IPv4Address) {
	c.mu.Lock()
	w, ok := c.pending[ip]
	if ok {
		delete(c.pending, ip)
	}
	c.mu.Unlock()
	if !ok {
		return
	}
	for _, cb := range w.onTimeout {
		cb()
	}
}

// Lookup is a synchronous, non-blocking cache read.
func (c *ArpCache) Lookup(ip addr.IPv4Address) (addr.MacAddress, bool) {
	c.mu.Lock()
	defer c.mu.Unlock()
	now := c.sched.DeltaMs()
	e, ok := c.entries[ip]
	if !ok || (c.ttlMs > 0 && now-e.learnedAtMs > c.ttlMs) {
		return addr.MacAddress{}, false
	}
	return e.mac, true
}

// ErrHostUnreachable is returned by higher layers when an ARP resolution's
// timeout callback fires; kept as a shared sentinel so callers can build a
// uniform KindHostUnreachable error.
func ErrHostUnreachable(ip addr.IPv4Address) error {
	return nserrors.Errorf(nserrors.KindHostUnreachable, "no ARP reply from %s", ip)
}
