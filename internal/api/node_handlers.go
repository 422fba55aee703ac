// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"net/http"

	"github.com/gorilla/mux"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/config"
	"grimm.is/netsim/internal/node"
	"grimm.is/netsim/internal/topology"
)

// NodeHandlers exposes CRUD over the topology's nodes and their interfaces
// (SPEC_FULL.md §3: "node CRUD + interface up/down + setters").
type NodeHandlers struct {
	topo *topology.Topology
}

func NewNodeHandlers(topo *topology.Topology) *NodeHandlers {
	return &NodeHandlers{topo: topo}
}

// RegisterRoutes mounts /nodes... directly on router (not a subrouter, so the
// bare collection path "/nodes" itself resolves cleanly).
func (h *NodeHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/nodes", h.handleList).Methods("GET")
	router.HandleFunc("/nodes", h.handleCreate).Methods("POST")
	router.HandleFunc("/nodes/{name}", h.handleGet).Methods("GET")
	router.HandleFunc("/nodes/{name}", h.handleDelete).Methods("DELETE")
	router.HandleFunc("/nodes/{name}/interfaces/{iface}/address", h.handleSetAddress).Methods("POST")
	router.HandleFunc("/nodes/{name}/interfaces/{iface}/state", h.handleSetInterfaceState).Methods("POST")
}

// nodeView is the JSON presentation of a node.Node.
type nodeView struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Interfaces []string `json:"interfaces"`
	Gateway    string   `json:"gateway,omitempty"`
}

func toNodeView(n *node.Node) nodeView {
	v := nodeView{Name: n.Name, Kind: kindString(n.Kind), Interfaces: n.InterfaceNames()}
	if n.Gateway != 0 {
		v.Gateway = n.Gateway.String()
	}
	return v
}

func kindString(k node.Kind) string {
	switch k {
	case node.KindPC:
		return "pc"
	case node.KindServer:
		return "server"
	case node.KindSwitch:
		return "switch"
	case node.KindRouter:
		return "router"
	default:
		return "unknown"
	}
}

func (h *NodeHandlers) handleList(w http.ResponseWriter, r *http.Request) {
	nodes := h.topo.Nodes()
	views := make([]nodeView, 0, len(nodes))
	for _, n := range nodes {
		views = append(views, toNodeView(n))
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (h *NodeHandlers) handleGet(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	n, err := h.topo.Node(name)
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toNodeView(n))
}

func (h *NodeHandlers) handleCreate(w http.ResponseWriter, r *http.Request) {
	var nc config.NodeConfig
	if err := decodeJSON(r, &nc); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := h.topo.AddNode(nc); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	n, _ := h.topo.Node(nc.Name)
	respondWithJSON(w, http.StatusCreated, toNodeView(n))
}

func (h *NodeHandlers) handleDelete(w http.ResponseWriter, r *http.Request) {
	name := mux.Vars(r)["name"]
	if err := h.topo.RemoveNode(name); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type setAddressRequest struct {
	IP   string `json:"ip"`
	Mask string `json:"mask"`
}

func (h *NodeHandlers) handleSetAddress(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n, err := h.topo.Node(vars["name"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	var req setAddressRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	ip, err := addr.ParseIPv4(req.IP)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	mask, err := addr.ParseIPv4(req.Mask)
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := n.SetIfaceAddress(vars["iface"], ip, mask); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toNodeView(n))
}

type setInterfaceStateRequest struct {
	Up bool `json:"up"`
}

func (h *NodeHandlers) handleSetInterfaceState(w http.ResponseWriter, r *http.Request) {
	vars := mux.Vars(r)
	n, err := h.topo.Node(vars["name"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	iface, err := n.GetInterface(vars["iface"])
	if err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}

	var req setInterfaceStateRequest
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	iface.Active = req.Up
	respondWithJSON(w, http.StatusOK, toNodeView(n))
}
