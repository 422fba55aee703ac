// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package physical

import (
	"testing"
	"time"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

func TestLinkRequiresBothEndpoints(t *testing.T) {
	sched := clock.New()
	a := NewHardwareInterface("eth0", addr.MustParseMac("aa:aa:aa:aa:aa:01"), sched)
	_, err := NewLink(a, nil, 10)
	if err == nil {
		t.Fatal("expected error constructing a link with a nil endpoint")
	}
}

func TestTransmitDeliversToPeerOverLink(t *testing.T) {
	sched := clock.New()
	a := NewHardwareInterface("eth0", addr.MustParseMac("aa:aa:aa:aa:aa:01"), sched)
	b := NewHardwareInterface("eth1", addr.MustParseMac("aa:aa:aa:aa:aa:02"), sched)
	a.SpeedBps = Speed100M
	a.Active, b.Active = true, true

	link, err := NewLink(a, b, 200_000) // 200km
	if err != nil {
		t.Fatal(err)
	}
	if !link.Valid() {
		t.Fatal("link should be valid with both endpoints set")
	}

	received := false
	b.AddListener(func(bits int) { received = true })

	sched.SetSpeed(clock.Faster)
	a.Transmit(800) // 800 bits at 100Mbps = 0.008ms serialization

	deadline := time.Now().Add(2 * time.Second)
	for !received && time.Now().Before(deadline) {
		sched.Pump()
	}
	if !received {
		t.Fatal("expected frame to arrive at peer")
	}

	propDelay := link.PropagationDelayMs()
	if propDelay <= 0 {
		t.Fatal("expected positive propagation delay for a 200km link")
	}
}

func TestNegotiateCommonSpeedPrefersFullDuplex(t *testing.T) {
	sched := clock.New()
	a := NewHardwareInterface("eth0", addr.MustParseMac("aa:aa:aa:aa:aa:01"), sched)
	b := NewHardwareInterface("eth1", addr.MustParseMac("aa:aa:aa:aa:aa:02"), sched)
	a.MinSpeed, a.MaxSpeed = Speed10M, Speed1G
	b.MinSpeed, b.MaxSpeed = Speed10M, Speed100M

	result := Negotiate(a, b)
	if result.Speed != Speed100M {
		t.Fatalf("expected common speed 100M, got %v", result.Speed)
	}
	if !result.FullDuplex {
		t.Error("expected full duplex when both support it")
	}
	if !result.LinkUp {
		t.Error("expected link up")
	}
}

func TestNegotiateIncompatibleSpeedsLinkDown(t *testing.T) {
	sched := clock.New()
	a := NewHardwareInterface("eth0", addr.MustParseMac("aa:aa:aa:aa:aa:01"), sched)
	b := NewHardwareInterface("eth1", addr.MustParseMac("aa:aa:aa:aa:aa:02"), sched)
	a.MinSpeed, a.MaxSpeed = Speed1G, Speed1G
	b.MinSpeed, b.MaxSpeed = Speed10M, Speed10M

	result := Negotiate(a, b)
	if result.LinkUp {
		t.Fatal("expected link-down for incompatible speed ranges")
	}
}

func TestRunAutoNegotiationCommitsBothSides(t *testing.T) {
	sched := clock.New()
	a := NewHardwareInterface("eth0", addr.MustParseMac("aa:aa:aa:aa:aa:01"), sched)
	b := NewHardwareInterface("eth1", addr.MustParseMac("aa:aa:aa:aa:aa:02"), sched)
	link, _ := NewLink(a, b, 1)

	sched.SetSpeed(clock.Faster)
	RunAutoNegotiation(sched, link, 10)

	deadline := time.Now().Add(2 * time.Second)
	for a.SpeedBps == SpeedAuto && time.Now().Before(deadline) {
		sched.Pump()
	}

	if a.SpeedBps != b.SpeedBps || a.FullDuplex != b.FullDuplex {
		t.Fatalf("both interfaces should commit to the same result, got a=%+v b=%+v", a, b)
	}
	if !a.Active {
		t.Fatal("expected interfaces to come up")
	}
}
