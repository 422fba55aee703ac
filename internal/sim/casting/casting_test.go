// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package casting

import (
	"testing"

	"grimm.is/netsim/internal/clock"
)

func pump(sched *clock.Scheduler, ms float64) {
	sched.SetSpeed(clock.Faster)
	start := sched.DeltaMs()
	for sched.DeltaMs()-start < ms {
		sched.Pump()
	}
	sched.SetSpeed(clock.Paused)
}

func TestBroadcastReachesAllFivePCs(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Broadcast, 50))
	k.Start()
	pump(sched, 2000)

	s := k.GetState()
	if s.TotalPackets != int64(len(allPCs)) {
		t.Fatalf("expected %d packets for broadcast, got %d", len(allPCs), s.TotalPackets)
	}
	if !s.Completed {
		t.Fatal("expected broadcast to complete")
	}
}

func TestMulticastReachesOnlyGroupMembers(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Multicast, 50))
	k.Start()
	pump(sched, 2000)

	s := k.GetState()
	if s.TotalPackets != int64(len(multicastGroup)) {
		t.Fatalf("expected %d packets for multicast, got %d", len(multicastGroup), s.TotalPackets)
	}
}

func TestAnycastPicksSingleNearestPC(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Anycast, 50))
	k.Start()
	pump(sched, 2000)

	s := k.GetState()
	if s.TotalPackets != 1 {
		t.Fatalf("expected anycast to deliver to exactly 1 PC, got %d", s.TotalPackets)
	}
	if s.AnycastSent != 1 {
		t.Fatalf("expected anycastSent=1, got %d", s.AnycastSent)
	}
}

func TestUnicastTakesOnePath(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Unicast, 50))
	k.Start()
	pump(sched, 2000)

	s := k.GetState()
	if s.TotalPackets != 1 || s.UnicastSent != 1 {
		t.Fatalf("expected exactly one unicast packet, got packets=%d sent=%d", s.TotalPackets, s.UnicastSent)
	}
	if s.TotalHops != 2 {
		t.Fatalf("expected source->switch-a->pc1 (2 hops), got %d", s.TotalHops)
	}
}

func TestResetClearsCountersButKeepsCastType(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(Broadcast, 50))
	k.Start()
	pump(sched, 2000)
	k.Reset()

	s := k.GetState()
	if s.TotalPackets != 0 || s.BroadcastSent != 0 {
		t.Fatalf("expected counters cleared after reset, got %+v", s)
	}
	if s.CastType != Broadcast {
		t.Fatalf("expected CastType preserved across reset, got %v", s.CastType)
	}
}
