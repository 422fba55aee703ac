// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"net/http"

	"github.com/gorilla/mux"
)

// simKernel is the shape every internal/sim/* kernel exposes (spec.md §2.8 /
// SPEC_FULL.md §2.8's shared kernel contract). Each kernel package defines
// its own concrete State type, so this is generic over it rather than an
// interface any one of them implements by name.
type simKernel[S any] interface {
	SetListener(func(S))
	GetState() S
	Start()
	Stop()
	Reset()
	Dispose()
}

// SimEndpoint wires one animation kernel to a REST control surface (GET
// current state, POST start/stop/reset) and a websocket stream that pushes a
// snapshot on every state change, via topicHub.
type SimEndpoint[S any] struct {
	kernel simKernel[S]
	hub    *topicHub
	onRun  func(running bool)
}

// NewSimEndpoint wraps kernel, subscribing hub to every state change so
// connected websocket clients see a push per mutation rather than polling.
// onRun, if non-nil, is invoked whenever the kernel's running/stopped state
// is toggled via the REST surface, so callers can mirror it into metrics.
func NewSimEndpoint[S any](kernel simKernel[S], onRun func(running bool)) *SimEndpoint[S] {
	hub := newTopicHub()
	kernel.SetListener(func(s S) { hub.Broadcast(s) })
	return &SimEndpoint[S]{kernel: kernel, hub: hub, onRun: onRun}
}

func (e *SimEndpoint[S]) handleGetState(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, e.kernel.GetState())
}

func (e *SimEndpoint[S]) handleStart(w http.ResponseWriter, r *http.Request) {
	e.kernel.Start()
	e.setRunning(true)
	respondWithJSON(w, http.StatusOK, e.kernel.GetState())
}

func (e *SimEndpoint[S]) handleStop(w http.ResponseWriter, r *http.Request) {
	e.kernel.Stop()
	e.setRunning(false)
	respondWithJSON(w, http.StatusOK, e.kernel.GetState())
}

func (e *SimEndpoint[S]) handleReset(w http.ResponseWriter, r *http.Request) {
	e.kernel.Reset()
	e.setRunning(false)
	respondWithJSON(w, http.StatusOK, e.kernel.GetState())
}

func (e *SimEndpoint[S]) setRunning(running bool) {
	if e.onRun != nil {
		e.onRun(running)
	}
}

// handleWS upgrades to a websocket streaming every subsequent state push.
func (e *SimEndpoint[S]) handleWS(w http.ResponseWriter, r *http.Request) {
	e.hub.ServeHTTP(w, r)
}

// RegisterRoutes mounts this kernel's REST + websocket surface under router.
func (e *SimEndpoint[S]) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/state", e.handleGetState).Methods("GET")
	router.HandleFunc("/start", e.handleStart).Methods("POST")
	router.HandleFunc("/stop", e.handleStop).Methods("POST")
	router.HandleFunc("/reset", e.handleReset).Methods("POST")
	router.HandleFunc("/ws", e.handleWS)
}
