// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package ipnet

import (
	"sync"

	"golang.org/x/net/icmp"
	"golang.org/x/net/ipv4"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	nserrors "grimm.is/netsim/internal/errors"
)

// pingKey identifies one outstanding echo request, matching golang.org/x/net/icmp's
// (id, seq) addressing so a reply can be correlated back to its request even
// though nothing here ever touches a real socket.
type pingKey struct {
	src, dst addr.IPv4Address
	id, seq  int
}

// PingResult is delivered to a PingRegistry caller once an echo resolves,
// either with a reply or a timeout.
type PingResult struct {
	RoundTripMs float64
	TimedOut    bool
}

type pingWait struct {
	sentAtMs  float64
	onResult  func(PingResult)
	timeoutID clock.CallbackID
}

// PingRegistry tracks in-flight ICMP echo requests and resolves them against
// replies or a timeout (spec.md §4.7).
type PingRegistry struct {
	mu      sync.Mutex
	pending map[pingKey]*pingWait
	sched   *clock.Scheduler
}

// NewPingRegistry constructs an empty registry.
func NewPingRegistry(sched *clock.Scheduler) *PingRegistry {
	return &PingRegistry{pending: make(map[pingKey]*pingWait), sched: sched}
}

// EncodeEcho renders an echo request/reply as real ICMP bytes via
// golang.org/x/net/icmp, giving the simulator a byte-accurate payload to carry
// inside an IPv4Packet without ever opening a socket.
func EncodeEcho(isRequest bool, id, seq int, data []byte) ([]byte, error) {
	t := ipv4.ICMPTypeEchoReply
	if isRequest {
		t = ipv4.ICMPTypeEcho
	}
	msg := icmp.Message{
		Type: t,
		Code: 0,
		Body: &icmp.Echo{ID: id, Seq: seq, Data: data},
	}
	return msg.Marshal(nil)
}

// SendEcho registers an outstanding request and arranges for onResult to be
// called once, either by a matching ReceiveReply or by the timeout.
func (r *PingRegistry) SendEcho(src, dst addr.IPv4Address, id, seq int, timeoutMs float64, onResult func(PingResult)) {
	key := pingKey{src: src, dst: dst, id: id, seq: seq}
	now := r.sched.DeltaMs()

	r.mu.Lock()
	w := &pingWait{sentAtMs: now, onResult: onResult}
	r.pending[key] = w
	tid := clock.NewCallbackID()
	w.timeoutID = tid
	r.mu.Unlock()

	r.sched.Schedule(tid, now+timeoutMs, func() { r.resolve(key, PingResult{TimedOut: true}) })
}

// ReceiveReply resolves the matching outstanding request, if any is still
// pending. A reply for an unknown or already-resolved key is ignored.
func (r *PingRegistry) ReceiveReply(src, dst addr.IPv4Address, id, seq int) {
	// A reply to A's request to B arrives carrying src=B, dst=A; key back by
	// what was originally sent.
	key := pingKey{src: dst, dst: src, id: id, seq: seq}
	r.mu.Lock()
	w, ok := r.pending[key]
	r.mu.Unlock()
	if !ok {
		return
	}
	now := r.sched.DeltaMs()
	r.resolve(key, PingResult{RoundTripMs: now - w.sentAtMs})
}

func (r *PingRegistry) resolve(key pingKey, result PingResult) {
	r.mu.Lock()
	w, ok := r.pending[key]
	if ok {
		delete(r.pending, key)
	}
	r.mu.Unlock()
	if !ok {
		return
	}
	if !result.TimedOut {
		r.sched.Cancel(w.timeoutID)
	}
	w.onResult(result)
}

// ErrTimeout builds the KindTimeout error a ping operation surfaces once its
// registry callback reports TimedOut.
func ErrTimeout(dst addr.IPv4Address) error {
	return nserrors.Errorf(nserrors.KindTimeout, "ping to %s timed out", dst)
}
