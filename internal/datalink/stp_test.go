// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package datalink

import (
	"testing"
	"time"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

func pumpUntil(t *testing.T, sched *clock.Scheduler, cond func() bool) {
	t.Helper()
	deadline := time.Now().Add(2 * time.Second)
	for !cond() && time.Now().Before(deadline) {
		sched.Pump()
	}
	if !cond() {
		t.Fatal("condition never became true before deadline")
	}
}

func TestBridgeIDOrdersByPriorityThenMac(t *testing.T) {
	low := BridgeID{Priority: 100, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:ff")}
	high := BridgeID{Priority: 200, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}
	if !low.Less(high) {
		t.Fatal("lower priority should sort first regardless of MAC")
	}

	sameA := BridgeID{Priority: 100, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}
	sameB := BridgeID{Priority: 100, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:02")}
	if !sameA.Less(sameB) {
		t.Fatal("equal priority should tie-break on MAC ascending")
	}
}

func TestBridgeWithBetterBpduBecomesRootPort(t *testing.T) {
	sched := clock.New()
	sched.SetSpeed(clock.Faster)

	self := BridgeID{Priority: 32768, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:02")}
	other := BridgeID{Priority: 4096, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}

	stp := NewSTP(self, 2, sched, 50, 2000)
	if !stp.IsRootBridge() {
		t.Fatal("a freshly constructed bridge should consider itself root")
	}

	stp.ReceiveBpdu(0, Bpdu{RootID: other, RootPathCost: 0, SenderID: other, SenderPort: 0}, 0)

	if stp.IsRootBridge() {
		t.Fatal("bridge should concede root status to the superior BPDU")
	}
	if stp.rootPort != 0 {
		t.Fatalf("expected port 0 to become the root port, got %d", stp.rootPort)
	}

	pumpUntil(t, sched, func() bool { return stp.PortState(0) == Forwarding })
}

func TestRootBridgeAllPortsDesignated(t *testing.T) {
	sched := clock.New()
	sched.SetSpeed(clock.Faster)
	self := BridgeID{Priority: 4096, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}
	stp := NewSTP(self, 3, sched, 10, 2000)

	worse := BridgeID{Priority: 32768, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:02")}
	stp.ReceiveBpdu(1, Bpdu{RootID: self, RootPathCost: 1, SenderID: worse, SenderPort: 0}, 0)

	if !stp.IsRootBridge() {
		t.Fatal("root bridge should remain root when hearing an inferior BPDU")
	}
	for _, info := range stp.PortsInfo() {
		if info.Role == RoleBlocked {
			t.Fatalf("root bridge port %d should never be blocked, got role %v", info.Index, info.Role)
		}
	}
}

func TestDisabledPortNeverForwards(t *testing.T) {
	sched := clock.New()
	self := BridgeID{Priority: 32768, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}
	stp := NewSTP(self, 2, sched, 10, 2000)
	stp.SetPortAdministered(0, false)

	if stp.PortState(0) != Disabled {
		t.Fatalf("expected Disabled, got %v", stp.PortState(0))
	}

	other := BridgeID{Priority: 4096, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:02")}
	stp.ReceiveBpdu(0, Bpdu{RootID: other, RootPathCost: 0, SenderID: other, SenderPort: 0}, 0)
	if stp.PortState(0) != Disabled {
		t.Fatal("an administratively disabled port must ignore BPDUs")
	}
}

func TestStaleBpduTimesOutAndReclaimsRoot(t *testing.T) {
	sched := clock.New()
	self := BridgeID{Priority: 32768, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:02")}
	other := BridgeID{Priority: 4096, Mac: addr.MustParseMac("aa:aa:aa:aa:aa:01")}
	stp := NewSTP(self, 1, sched, 10, 1000)

	stp.ReceiveBpdu(0, Bpdu{RootID: other, RootPathCost: 0, SenderID: other, SenderPort: 0}, 0)
	if stp.IsRootBridge() {
		t.Fatal("expected to concede root initially")
	}

	stp.Tick(5000) // well past MaxAgeMs with no refresh
	if !stp.IsRootBridge() {
		t.Fatal("expected to reclaim root status once the superior BPDU goes stale")
	}
}
