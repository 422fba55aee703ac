// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"grimm.is/netsim/internal/clock"
)

// SchedulerHandlers exposes the virtual-time scheduler's speed control
// (SPEC_FULL.md §3: "POST /scheduler/speed, POST /scheduler/reset, GET
// /scheduler/delta").
type SchedulerHandlers struct {
	sched *clock.Scheduler
}

func NewSchedulerHandlers(sched *clock.Scheduler) *SchedulerHandlers {
	return &SchedulerHandlers{sched: sched}
}

func (h *SchedulerHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/speed", h.handleSetSpeed).Methods("POST")
	router.HandleFunc("/reset", h.handleReset).Methods("POST")
	router.HandleFunc("/delta", h.handleDelta).Methods("GET")
}

var speedNames = map[string]clock.SpeedLevel{
	"paused":    clock.Paused,
	"slower":    clock.Slower,
	"real_time": clock.RealTime,
	"faster":    clock.Faster,
}

type setSpeedRequest struct {
	Speed string `json:"speed"`
}

func (h *SchedulerHandlers) handleSetSpeed(w http.ResponseWriter, r *http.Request) {
	var req setSpeedRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	level, ok := speedNames[req.Speed]
	if !ok {
		respondWithError(w, http.StatusBadRequest, "unknown speed \""+req.Speed+"\"")
		return
	}
	h.sched.SetSpeed(level)
	respondWithJSON(w, http.StatusOK, map[string]string{"speed": level.String()})
}

func (h *SchedulerHandlers) handleReset(w http.ResponseWriter, r *http.Request) {
	h.sched.Reset()
	respondWithJSON(w, http.StatusOK, map[string]float64{"delta_ms": h.sched.DeltaMs()})
}

func (h *SchedulerHandlers) handleDelta(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]float64{"delta_ms": h.sched.DeltaMs()})
}
