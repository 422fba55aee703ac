// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tcpsyn

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

func TestHandshakeWithoutFirewallUsesExactlyThreeFrames(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(50, false))
	k.Start()
	pump(sched, 2000)

	s := k.GetState()
	if !s.Completed {
		t.Fatal("expected handshake to complete")
	}
	if s.SentFrames != 3 {
		t.Fatalf("expected exactly 3 frames, got %d", s.SentFrames)
	}
	if s.ClientState != Established || s.ServerState != Established {
		t.Fatalf("expected both peers ESTABLISHED, got client=%s server=%s", s.ClientState, s.ServerState)
	}
}

// TestHandshakeWithFirewallInterceptsAndRestarts mirrors spec.md §8 scenario
// S6: withFirewall=true yields more than 3 total frames, an RST from
// firewall to client, and a second SYN from client to server.
func TestHandshakeWithFirewallInterceptsAndRestarts(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(50, true))

	var sawRstFromFirewall bool
	var synToServerCount int
	k.SetListener(func(s State) {
		for _, f := range s.Flying {
			if f.Kind == FrameRst && f.From == "firewall" && f.To == "client" {
				sawRstFromFirewall = true
			}
			if f.Kind == FrameSyn && f.From == "client" && f.To == "server" {
				synToServerCount++
			}
		}
	})
	k.Start()
	pump(sched, 3000)

	s := k.GetState()
	if s.SentFrames <= 3 {
		t.Fatalf("expected more than 3 frames with a firewall in path, got %d", s.SentFrames)
	}
	if !sawRstFromFirewall {
		t.Fatal("expected an RST frame from firewall to client")
	}
	if synToServerCount == 0 {
		t.Fatal("expected a direct client->server SYN after the firewall's RST")
	}
	if !s.Completed {
		t.Fatal("expected the restarted handshake to eventually complete")
	}
}

// TestFirewallRejectsForgedCookie verifies the RST path is actually gated on
// the cookie the firewall issued: an ACK echoing a cookie the firewall never
// sent is dropped, not answered with an RST.
func TestFirewallRejectsForgedCookie(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(50, true))
	k.Start()
	// Deliver the SYN to the firewall directly so it issues the real cookie;
	// the client's genuine ACK is never delivered, so nothing else can move
	// the firewall to RST_SENT before the forged ACK below.
	k.onSynAtFirewall()

	if k.GetState().IssuedCookie == 0 {
		t.Fatal("expected the firewall to have issued a nonzero cookie")
	}

	k.onAckAtFirewall(k.GetState().IssuedCookie + 1) // forged cookie
	if k.GetState().FirewallState == RstSent {
		t.Fatal("expected a forged cookie to never advance the firewall to RST_SENT")
	}
}

// TestFirewallRejectsReplayedCookie verifies uniqueness: the same valid
// cookie is only honored once.
func TestFirewallRejectsReplayedCookie(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(50, true))
	k.Start()
	pump(sched, 3000)

	cookie := k.GetState().IssuedCookie
	if !k.GetState().SeenCookies[cookie] {
		t.Fatal("expected the real handshake's cookie to be recorded as seen")
	}

	k.onAckAtFirewall(cookie) // replay
	frameCount := k.GetState().SentFrames
	k.onAckAtFirewall(cookie) // replay again
	if k.GetState().SentFrames != frameCount {
		t.Fatal("expected a replayed cookie to never trigger another RST")
	}
}

func TestResetPreservesFirewallToggle(t *testing.T) {
	sched := clock.New()
	k := New(sched, CreateInitialState(50, true))
	k.Start()
	pump(sched, 500)
	k.Reset()

	s := k.GetState()
	if !s.WithFirewall {
		t.Fatal("expected firewall toggle preserved across reset")
	}
	if s.ClientState != Closed || s.SentFrames != 0 {
		t.Fatalf("expected fresh state after reset, got %+v", s)
	}
}
