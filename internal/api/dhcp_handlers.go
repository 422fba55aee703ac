// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"net/http"

	"github.com/gorilla/mux"
	"github.com/miekg/dns"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/services/dhcp"
	"grimm.is/netsim/internal/topology"
)

// DHCPHandlers exposes the topology's lease ledger: read-only lease/pool
// views, the enable toggle, and pool CRUD (spec.md §6: "DHCP enable,
// pools[] (add/remove/update)").
type DHCPHandlers struct {
	topo *topology.Topology
}

func NewDHCPHandlers(topo *topology.Topology) *DHCPHandlers {
	return &DHCPHandlers{topo: topo}
}

func (h *DHCPHandlers) RegisterRoutes(router *mux.Router) {
	router.HandleFunc("/leases", h.handleLeases).Methods("GET")
	router.HandleFunc("/enable", h.handleGetEnable).Methods("GET")
	router.HandleFunc("/enable", h.handleSetEnable).Methods("POST")
	router.HandleFunc("/pools", h.handleListPools).Methods("GET")
	router.HandleFunc("/pools", h.handleAddPool).Methods("POST")
	router.HandleFunc("/pools/{name}", h.handleUpdatePool).Methods("PUT")
	router.HandleFunc("/pools/{name}", h.handleRemovePool).Methods("DELETE")
	router.HandleFunc("/resolve/{hostname}", h.handleResolve).Methods("GET")
}

type leaseView struct {
	Mac         string  `json:"mac"`
	IP          string  `json:"ip"`
	Hostname    string  `json:"hostname,omitempty"`
	ExpiresAtMs float64 `json:"expires_at_ms"`
}

func (h *DHCPHandlers) handleLeases(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithJSON(w, http.StatusOK, []leaseView{})
		return
	}
	leases := ledger.Leases()
	views := make([]leaseView, 0, len(leases))
	for _, l := range leases {
		views = append(views, leaseView{
			Mac:         l.Mac.String(),
			IP:          l.IP.String(),
			Hostname:    l.Hostname,
			ExpiresAtMs: l.ExpiresAtMs,
		})
	}
	respondWithJSON(w, http.StatusOK, views)
}

type enableView struct {
	Enabled bool `json:"enabled"`
}

func (h *DHCPHandlers) handleGetEnable(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	respondWithJSON(w, http.StatusOK, enableView{Enabled: ledger.Enabled()})
}

func (h *DHCPHandlers) handleSetEnable(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	var req enableView
	if err := decodeJSON(r, &req); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	ledger.SetEnabled(req.Enabled)
	respondWithJSON(w, http.StatusOK, enableView{Enabled: ledger.Enabled()})
}

// poolView is the JSON presentation/request shape for a dhcp.DhcpPool.
type poolView struct {
	Name    string   `json:"name"`
	Gateway string   `json:"gateway"`
	Netmask string   `json:"netmask"`
	Start   string   `json:"start"`
	End     string   `json:"end"`
	DNS     []string `json:"dns,omitempty"`
	TFTP    string   `json:"tftp,omitempty"`
	WLC     string   `json:"wlc,omitempty"`
}

func toPoolView(p dhcp.DhcpPool) poolView {
	dns := make([]string, len(p.DNS))
	for i, ip := range p.DNS {
		dns[i] = ip.String()
	}
	return poolView{
		Name: p.Name, Gateway: p.Gateway.String(), Netmask: p.Netmask.String(),
		Start: p.Start.String(), End: p.End.String(), DNS: dns, TFTP: p.TFTP, WLC: p.WLC,
	}
}

func (v poolView) toPool() (dhcp.DhcpPool, error) {
	gateway, err := addr.ParseIPv4(v.Gateway)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	netmask, err := addr.ParseIPv4(v.Netmask)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	start, err := addr.ParseIPv4(v.Start)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	end, err := addr.ParseIPv4(v.End)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	dns := make([]addr.IPv4Address, 0, len(v.DNS))
	for _, s := range v.DNS {
		ip, err := addr.ParseIPv4(s)
		if err != nil {
			return dhcp.DhcpPool{}, err
		}
		dns = append(dns, ip)
	}
	return dhcp.DhcpPool{
		Name: v.Name, Gateway: gateway, Netmask: netmask, Start: start, End: end,
		DNS: dns, TFTP: v.TFTP, WLC: v.WLC,
	}, nil
}

func (h *DHCPHandlers) handleListPools(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithJSON(w, http.StatusOK, []poolView{})
		return
	}
	pools := ledger.Pools()
	views := make([]poolView, 0, len(pools))
	for _, p := range pools {
		views = append(views, toPoolView(p))
	}
	respondWithJSON(w, http.StatusOK, views)
}

func (h *DHCPHandlers) handleAddPool(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	var v poolView
	if err := decodeJSON(r, &v); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	pool, err := v.toPool()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ledger.AddPool(pool); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	respondWithJSON(w, http.StatusCreated, toPoolView(pool))
}

func (h *DHCPHandlers) handleUpdatePool(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	var v poolView
	if err := decodeJSON(r, &v); err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	v.Name = mux.Vars(r)["name"]
	pool, err := v.toPool()
	if err != nil {
		respondWithError(w, http.StatusBadRequest, err.Error())
		return
	}
	if err := ledger.UpdatePool(pool); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	respondWithJSON(w, http.StatusOK, toPoolView(pool))
}

func (h *DHCPHandlers) handleRemovePool(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	if err := ledger.RemovePool(mux.Vars(r)["name"]); err != nil {
		respondWithError(w, http.StatusNotFound, err.Error())
		return
	}
	w.WriteHeader(http.StatusNoContent)
}

type resolveView struct {
	Hostname string `json:"hostname"`
	IP       string `json:"ip"`
}

// handleResolve answers a hostname lookup against the ledger's active leases
// using the miekg/dns-backed stub resolver (dhcp.DhcpLedger.BuildHostnameAnswer).
func (h *DHCPHandlers) handleResolve(w http.ResponseWriter, r *http.Request) {
	ledger, ok := h.topo.DHCPLedger()
	if !ok {
		respondWithError(w, http.StatusNotFound, "no DHCP server configured")
		return
	}
	hostname := mux.Vars(r)["hostname"]
	msg, ok := ledger.BuildHostnameAnswer(hostname)
	if !ok || len(msg.Answer) == 0 {
		respondWithError(w, http.StatusNotFound, "hostname does not resolve to a current lease")
		return
	}
	a, ok := msg.Answer[0].(*dns.A)
	if !ok {
		respondWithError(w, http.StatusNotFound, "hostname does not resolve to a current lease")
		return
	}
	respondWithJSON(w, http.StatusOK, resolveView{Hostname: hostname, IP: a.A.String()})
}
