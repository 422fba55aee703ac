// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/config"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/metrics"
	"grimm.is/netsim/internal/topology"
)

func newDHCPTestServer(t *testing.T) *Server {
	t.Helper()
	sched := clock.New()
	cfg := config.Default()
	cfg.Nodes = []config.NodeConfig{
		{Name: "pc1", Kind: "pc", Interfaces: []string{"eth0"}},
		{Name: "srv1", Kind: "server", Interfaces: []string{"eth0"}},
	}
	cfg.Links = []config.LinkConfig{{A: "pc1", B: "srv1", LengthMeters: 2}}
	cfg.DHCP = &config.DHCPConfig{
		ServerNode: "srv1",
		LeaseMs:    60_000,
		Pools: []config.DHCPPoolConfig{
			{Name: "office", Gateway: "10.0.0.1", Netmask: "255.255.255.0", Start: "10.0.0.100", End: "10.0.0.200"},
		},
	}

	topo, err := topology.New(sched, cfg)
	if err != nil {
		t.Fatalf("unexpected error building topology: %v", err)
	}
	coll := metrics.NewCollector()
	pkt := ipnet.IPv4Packet{Src: addr.MustParseIPv4("10.0.0.1"), Dst: addr.MustParseIPv4("10.0.0.2"), Payload: make([]byte, 4000)}
	return NewServer(DefaultServerConfig(), sched, topo, coll, pkt)
}

func TestDHCPEnableRoundTrip(t *testing.T) {
	srv := newDHCPTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/dhcp/enable")
	if err != nil {
		t.Fatal(err)
	}
	var view enableView
	json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()
	if !view.Enabled {
		t.Fatal("expected a freshly configured DHCP server to be enabled")
	}

	resp, err = http.Post(ts.URL+"/dhcp/enable", "application/json", strings.NewReader(`{"enabled":false}`))
	if err != nil {
		t.Fatal(err)
	}
	json.NewDecoder(resp.Body).Decode(&view)
	resp.Body.Close()
	if view.Enabled {
		t.Fatal("expected the enable toggle to persist false")
	}
}

func TestDHCPPoolCrudOverREST(t *testing.T) {
	srv := newDHCPTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/dhcp/pools")
	if err != nil {
		t.Fatal(err)
	}
	var pools []poolView
	json.NewDecoder(resp.Body).Decode(&pools)
	resp.Body.Close()
	if len(pools) != 1 || pools[0].Name != "office" {
		t.Fatalf("expected the configured office pool, got %+v", pools)
	}

	addBody := `{"name":"lab","gateway":"10.0.1.1","netmask":"255.255.255.0","start":"10.0.1.10","end":"10.0.1.20"}`
	resp, err = http.Post(ts.URL+"/dhcp/pools", "application/json", strings.NewReader(addBody))
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusCreated {
		t.Fatalf("expected 201 adding a pool, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	updateBody := `{"gateway":"10.0.1.1","netmask":"255.255.255.0","start":"10.0.1.10","end":"10.0.1.30"}`
	req, _ := http.NewRequest(http.MethodPut, ts.URL+"/dhcp/pools/lab", strings.NewReader(updateBody))
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 updating a pool, got %d", resp.StatusCode)
	}
	resp.Body.Close()

	req, _ = http.NewRequest(http.MethodDelete, ts.URL+"/dhcp/pools/lab", nil)
	resp, err = http.DefaultClient.Do(req)
	if err != nil {
		t.Fatal(err)
	}
	if resp.StatusCode != http.StatusNoContent {
		t.Fatalf("expected 204 removing a pool, got %d", resp.StatusCode)
	}
	resp.Body.Close()
}

func TestDHCPResolveUnleasedHostnameNotFound(t *testing.T) {
	srv := newDHCPTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/dhcp/resolve/printer1")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404 for an unleased hostname, got %d", resp.StatusCode)
	}
}
