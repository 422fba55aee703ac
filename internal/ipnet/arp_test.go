// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	"testing"
	"time"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

type countingResolver struct {
	requests []addr.IPv4Address
}

func (r *countingResolver) SendArpRequest(target addr.IPv4Address) {
	r.requests = append(r.requests, target)
}

func pumpUntilTrue(t *testing.T, sched *clock.Scheduler, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() && time.Now().Before(deadline) {
		sched.Pump()
	}
	if !cond() {
		t.Fatal("condition never became true before deadline")
	}
}

func TestArpResolvesAndCaches(t *testing.T) {
	sched := clock.New()
	sched.SetSpeed(clock.Faster)
	resolver := &countingResolver{}
	cache := NewArpCache(sched, resolver, 30000, 3000)

	target := addr.MustParseIPv4("10.0.0.1")
	mac := addr.MustParseMac("aa:aa:aa:aa:aa:01")

	var resolved addr.MacAddress
	cache.Resolve(target, func(m addr.MacAddress) { resolved = m }, nil)
	if len(resolver.requests) != 1 {
		t.Fatalf("expected one ARP request sent, got %d", len(resolver.requests))
	}

	cache.Learn(target, mac)
	if resolved != mac {
		t.Fatal("expected onResolve to fire with the learned MAC")
	}

	// Second resolve should hit cache, not request again.
	cache.Resolve(target, func(addr.MacAddress) {}, nil)
	if len(resolver.requests) != 1 {
		t.Fatal("expected cached resolution to avoid a second ARP request")
	}
}

func TestArpTimeoutFiresHostUnreachable(t *testing.T) {
	sched := clock.New()
	sched.SetSpeed(clock.Faster)
	resolver := &countingResolver{}
	cache := NewArpCache(sched, resolver, 30000, 50)

	target := addr.MustParseIPv4("10.0.0.2")
	timedOut := false
	cache.Resolve(target, func(addr.MacAddress) {}, func() { timedOut = true })

	pumpUntilTrue(t, sched, func() bool { return timedOut })
}

func TestArpConcurrentResolvesShareOneRequest(t *testing.T) {
	sched := clock.New()
	resolver := &countingResolver{}
	cache := NewArpCache(sched, resolver, 30000, 3000)
	target := addr.MustParseIPv4("10.0.0.3")

	cache.Resolve(target, func(addr.MacAddress) {}, nil)
	cache.Resolve(target, func(addr.MacAddress) {}, nil)
	cache.Resolve(target, func(addr.MacAddress) {}, nil)

	if len(resolver.requests) != 1 {
		t.Fatalf("expected a single ARP request for concurrent waiters, got %d", len(resolver.requests))
	}
}
