// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/base64"
	"net/http"

	"github.com/gorilla/mux"

	"grimm.is/netsim/internal/topology"
)

// STPHandlers exposes each switch's spanning-tree state and a pcap-style
// export of its most recently forwarded frames.
type STPHandlers struct {
	topo *topology.Topology
}

func NewSTPHandlers(topo *topology.Topology) *STPHandlers {
	return &STPHandlers{topo: topo}
}

func (h *STPHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/{name}", h.handleStatus).Methods("GET")
	router.HandleFunc("/{name}/captures", h.handleCaptures).Methods("GET")
}

type portInfoView struct {
	Index int    `json:"index"`
	Role  string `json:"role"`
	State string `json:"state"`
	Cost  uint32 `json:"cost"`
}

type stpStatusView struct {
	Switch     string         `json:"switch"`
	IsRoot     bool           `json:"is_root"`
	Ports      []portInfoView `json:"ports"`
}

func (h *STPHandlers) handleStatus(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sw, err := h.topo.Switch(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	stp := sw.STP()
	ports := make([]portInfoView, 0)
	for _, p := range stp.PortsInfo() {
		ports = append(ports, portInfoView{
			Index: p.Index,
			Role:  p.Role.String(),
			State: p.State.String(),
			Cost:  p.Cost,
		})
	}
	respondWithJSON(w, http.StatusOK, stpStatusView{
		Switch: name,
		IsRoot: stp.IsRootBridge(),
		Ports:  ports,
	})
}

type captureView struct {
	Switch string   `json:"switch"`
	Frames []string `json:"frames"` // each a base64-encoded raw Ethernet frame
}

// handleCaptures exports the switch's recent frames as base64-encoded raw
// Ethernet bytes (datalink.EthernetFrame.Encode), a minimal pcap-style
// diagnostic surface alongside the STP status view.
func (h *STPHandlers) handleCaptures(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	sw, err := h.topo.Switch(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	captures := sw.Captures()
	frames := make([]string, len(captures))
	for i, raw := range captures {
		frames[i] = base64.StdEncoding.EncodeToString(raw)
	}
	respondWithJSON(w, http.StatusOK, captureView{Switch: name, Frames: frames})
}
