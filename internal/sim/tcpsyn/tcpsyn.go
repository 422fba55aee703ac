// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package tcpsyn implements the TCP three-way handshake animation kernel
// (spec.md §4.8), with an optional SYN-cookie firewall sitting between client
// and server.
package tcpsyn

import (
	"encoding/binary"

	"golang.org/x/crypto/blake2b"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/state"
)

// PeerState is one endpoint's handshake position.
type PeerState int

const (
	Closed PeerState = iota
	Listen
	SynSent
	SynReceived
	Established
)

func (s PeerState) String() string {
	switch s {
	case Closed:
		return "CLOSED"
	case Listen:
		return "LISTEN"
	case SynSent:
		return "SYN_SENT"
	case SynReceived:
		return "SYN_RCVD"
	case Established:
		return "ESTABLISHED"
	default:
		return "UNKNOWN"
	}
}

// FirewallState is the SYN-cookie firewall's position when enabled.
type FirewallState int

const (
	Filtering FirewallState = iota
	CookieSent
	RstSent
	Idle
)

func (s FirewallState) String() string {
	switch s {
	case Filtering:
		return "FILTERING"
	case CookieSent:
		return "COOKIE_SENT"
	case RstSent:
		return "RST_SENT"
	case Idle:
		return "IDLE"
	default:
		return "UNKNOWN"
	}
}

// FrameKind tags one animated segment.
type FrameKind int

const (
	FrameSyn FrameKind = iota
	FrameSynAck
	FrameAck
	FrameRst
)

func (k FrameKind) String() string {
	switch k {
	case FrameSyn:
		return "SYN"
	case FrameSynAck:
		return "SYN-ACK"
	case FrameAck:
		return "ACK"
	case FrameRst:
		return "RST"
	default:
		return "UNKNOWN"
	}
}

// Frame is one segment traveling between two named endpoints. Cookie is only
// meaningful on the firewall's SYN-ACK and the client's answering ACK: the
// ACK must echo back the exact cookie the firewall issued for the firewall
// to accept it (spec.md §4.8: "cookie values MUST be unique").
type Frame struct {
	Kind     FrameKind
	From, To string
	Progress float64
	Cookie   uint64
}

// State is the handshake kernel's complete, serializable snapshot.
type State struct {
	ClientState PeerState
	ServerState PeerState

	WithFirewall  bool
	FirewallState FirewallState
	IssuedCookie  uint64
	SeenCookies   map[uint64]bool

	SpeedMs     float64
	SentFrames  int
	Flying      []Frame
	Completed   bool
	IsRunning   bool
}

// CreateInitialState builds a fresh, paused handshake state.
func CreateInitialState(speedMs float64, withFirewall bool) State {
	fw := Idle
	if withFirewall {
		fw = Filtering
	}
	return State{
		ClientState:   Closed,
		ServerState:   Listen,
		WithFirewall:  withFirewall,
		FirewallState: fw,
		SeenCookies:   make(map[uint64]bool),
		SpeedMs:       speedMs,
	}
}

// Kernel drives the handshake's three (or, with a firewall, seven) frames.
type Kernel struct {
	subject  *state.Subject[State]
	sched    *clock.Scheduler
	animator *clock.Animator
	seq      uint64
}

// New constructs a Kernel over initial, bound to sched.
func New(sched *clock.Scheduler, initial State) *Kernel {
	return &Kernel{
		subject:  state.NewSubject(initial, nil),
		sched:    sched,
		animator: clock.NewAnimator(sched),
	}
}

func (k *Kernel) SetListener(fn func(State)) { k.subject.SetListener(fn) }
func (k *Kernel) GetState() State            { return k.subject.GetState() }

// Start sends the opening SYN from the client.
func (k *Kernel) Start() {
	state.MutateVoid(k.subject, func(s *State) {
		s.IsRunning = true
		s.ClientState = SynSent
	})
	if k.GetState().WithFirewall {
		k.sendFrame(FrameSyn, "client", "firewall", 0, k.onSynAtFirewall)
	} else {
		k.sendFrame(FrameSyn, "client", "server", 0, k.onSynAtServer)
	}
}

// Stop pauses the kernel; there is no pending-timer state to cancel beyond
// in-flight animations, which resolve naturally.
func (k *Kernel) Stop() {
	state.MutateVoid(k.subject, func(s *State) { s.IsRunning = false })
}

// Reset restores initial state, preserving config (speed, firewall toggle).
func (k *Kernel) Reset() {
	state.MutateVoid(k.subject, func(s *State) {
		*s = CreateInitialState(s.SpeedMs, s.WithFirewall)
	})
}

func (k *Kernel) Dispose() { k.Stop() }

func (k *Kernel) sendFrame(kind FrameKind, from, to string, cookie uint64, onArrive func()) {
	state.MutateVoid(k.subject, func(s *State) {
		s.SentFrames++
		s.Flying = append(s.Flying, Frame{Kind: kind, From: from, To: to, Cookie: cookie})
	})
	idx := len(k.GetState().Flying) - 1
	k.animator.Start(clock.AnimationSpec{
		DurationMs: k.GetState().SpeedMs,
		OnProgress: func(pct float64) {
			state.MutateVoid(k.subject, func(s *State) {
				if idx >= 0 && idx < len(s.Flying) {
					s.Flying[idx].Progress = pct
				}
			})
		},
		OnArrived: func() {
			state.MutateVoid(k.subject, func(s *State) {
				if idx >= 0 && idx < len(s.Flying) {
					s.Flying = append(s.Flying[:idx], s.Flying[idx+1:]...)
				}
			})
			if onArrive != nil {
				onArrive()
			}
		},
	})
}

// --- No firewall path -------------------------------------------------

func (k *Kernel) onSynAtServer() {
	state.MutateVoid(k.subject, func(s *State) { s.ServerState = SynReceived })
	k.sendFrame(FrameSynAck, "server", "client", 0, k.onSynAckAtClient)
}

func (k *Kernel) onSynAckAtClient() {
	state.MutateVoid(k.subject, func(s *State) { s.ClientState = Established })
	k.sendFrame(FrameAck, "client", "server", 0, k.onFinalAckAtServer)
}

func (k *Kernel) onFinalAckAtServer() {
	state.MutateVoid(k.subject, func(s *State) {
		s.ServerState = Established
		s.Completed = true
		s.IsRunning = false
	})
}

// --- SYN-cookie firewall path ------------------------------------------
//
// The firewall answers the client's SYN directly with a SYN-ACK carrying a
// stateless cookie (derived via blake2b over the handshake's sequence
// counter), never allocating server-side state until the client's ACK
// proves it really wants the connection. The cookie travels on the wire:
// the firewall stamps it onto the SYN-ACK, the client's ACK echoes it back,
// and the firewall only issues its RST once it has verified the ACK's
// cookie matches what it issued and hasn't been seen before (spec.md §4.8:
// "cookie values MUST be unique").

func (k *Kernel) onSynAtFirewall() {
	cookie := k.computeCookie()
	state.MutateVoid(k.subject, func(s *State) {
		s.FirewallState = CookieSent
		s.IssuedCookie = cookie
	})
	k.sendFrame(FrameSynAck, "firewall", "client", cookie, func() { k.onCookieSynAckAtClient(cookie) })
}

func (k *Kernel) onCookieSynAckAtClient(cookie uint64) {
	// The client believes it reached the server and answers the cookie
	// SYN-ACK with an ACK echoing the same cookie, which the firewall
	// intercepts.
	k.sendFrame(FrameAck, "client", "firewall", cookie, func() { k.onAckAtFirewall(cookie) })
}

func (k *Kernel) onAckAtFirewall(ackCookie uint64) {
	s := k.GetState()
	if ackCookie != s.IssuedCookie || s.SeenCookies[ackCookie] {
		// A forged or replayed cookie: the firewall silently drops it
		// instead of opening a path to the server.
		return
	}
	state.MutateVoid(k.subject, func(s *State) {
		s.SeenCookies[ackCookie] = true
		s.FirewallState = RstSent
	})
	k.sendFrame(FrameRst, "firewall", "client", 0, k.onRstAtClient)
}

func (k *Kernel) onRstAtClient() {
	state.MutateVoid(k.subject, func(s *State) {
		s.ClientState = Closed
		s.FirewallState = Idle
	})
	// The client restarts a direct, unfiltered handshake straight to the server.
	state.MutateVoid(k.subject, func(s *State) { s.ClientState = SynSent })
	k.sendFrame(FrameSyn, "client", "server", 0, k.onSynAtServer)
}

// computeCookie derives a per-handshake SYN cookie. Real TCP SYN cookies
// encode a timestamp and MSS index into the initial sequence number; here the
// kernel only needs enough entropy to make each handshake's cookie unique for
// display purposes.
func (k *Kernel) computeCookie() uint64 {
	k.seq++
	var buf [8]byte
	binary.BigEndian.PutUint64(buf[:], k.seq)
	sum := blake2b.Sum256(buf[:])
	return binary.BigEndian.Uint64(sum[:8])
}
