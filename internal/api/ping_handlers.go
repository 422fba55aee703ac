// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/node"
	"grimm.is/netsim/internal/topology"
)

// perHopDelayMs is the nominal propagation+processing cost assigned to one
// link for executePing's round-trip estimate: a fixed value, not derived from
// each link's real auto-negotiated speed or length.
const perHopDelayMs = 5.0

// PingHandlers implements executePing (SPEC_FULL.md §3: "POST /ping
// (executePing)"), echoing prometheus-community/pro-bing's Pinger.OnRecv /
// Pinger.OnFinish callback shape over the virtual-time scheduler instead of a
// real ICMP socket.
type PingHandlers struct {
	sched    *clock.Scheduler
	topo     *topology.Topology
	registry *ipnet.PingRegistry
	nextSeq  int
}

func NewPingHandlers(sched *clock.Scheduler, topo *topology.Topology) *PingHandlers {
	return &PingHandlers{sched: sched, topo: topo, registry: ipnet.NewPingRegistry(sched)}
}

func (h *PingHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/ping", h.handlePing).Methods("POST")
}

type pingRequest struct {
	From      string  `json:"from"`
	To        string  `json:"to"`
	TimeoutMs float64 `json:"timeout_ms"`
}

type pingResponse struct {
	RoundTripMs float64 `json:"round_trip_ms,omitempty"`
	TimedOut    bool    `json:"timed_out"`
}

// handlePing blocks the request goroutine until the echo resolves (reply or
// timeout), which only ever takes real wall-clock time proportional to the
// scheduler's current playback speed — at Paused it would never return, so
// callers are expected to only ping while the scheduler is running.
func (h *PingHandlers) handlePing(w http.ResponseWriter, r *http.Request) {
	var req pingRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if req.TimeoutMs <= 0 {
		req.TimeoutMs = 5000
	}

	fromNode, err := h.topo.Node(req.From)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	toNode, err := h.topo.Node(req.To)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	hops, err := h.topo.HopCount(req.From, req.To)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}

	src := firstConfiguredAddress(fromNode)
	dst := firstConfiguredAddress(toNode)
	h.nextSeq++
	seq := h.nextSeq

	result := make(chan ipnet.PingResult, 1)
	h.registry.SendEcho(src, dst, 1, seq, req.TimeoutMs, func(pr ipnet.PingResult) { result <- pr })

	// The two-way trip crosses hops links each way; schedule the reply after
	// that nominal delay so ReceiveReply resolves it before the timeout fires
	// for any reasonable hop count.
	replyAtMs := h.sched.DeltaMs() + float64(hops)*2*perHopDelayMs
	h.sched.Schedule(clock.NewCallbackID(), replyAtMs, func() {
		h.registry.ReceiveReply(src, dst, 1, seq)
	})

	pr := <-result
	respondWithJSON(w, http.StatusOK, pingResponse{RoundTripMs: pr.RoundTripMs, TimedOut: pr.TimedOut})
}

// firstConfiguredAddress returns the IPv4 address of the node's first
// L3-configured interface, or the zero address if none is configured yet
// (e.g. a client still awaiting a DHCP lease).
func firstConfiguredAddress(n *node.Node) addr.IPv4Address {
	for _, name := range n.InterfaceNames() {
		if cfg, ok := n.IfaceAddress(name); ok {
			return cfg.IPv4
		}
	}
	return 0
}
