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

func newTestServer(t *testing.T) (*Server, *clock.Scheduler) {
	t.Helper()
	sched := clock.New()
	cfg := config.Default()
	cfg.Nodes = []config.NodeConfig{
		{Name: "pc1", Kind: "pc", Interfaces: []string{"eth0"}},
		{Name: "sw1", Kind: "switch", Interfaces: []string{"eth0", "eth1"}},
	}
	cfg.Links = []config.LinkConfig{{A: "pc1", B: "sw1", LengthMeters: 2}}

	topo, err := topology.New(sched, cfg)
	if err != nil {
		t.Fatalf("unexpected error building topology: %v", err)
	}
	coll := metrics.NewCollector()
	pkt := ipnet.IPv4Packet{Src: addr.MustParseIPv4("10.0.0.1"), Dst: addr.MustParseIPv4("10.0.0.2"), Payload: make([]byte, 4000)}

	return NewServer(DefaultServerConfig(), sched, topo, coll, pkt), sched
}

func TestHealthzReportsOk(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/healthz")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
}

func TestNodeListReturnsConfiguredNodes(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nodes")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()

	var nodes []nodeView
	if err := json.NewDecoder(resp.Body).Decode(&nodes); err != nil {
		t.Fatal(err)
	}
	if len(nodes) != 2 {
		t.Fatalf("expected 2 nodes, got %d", len(nodes))
	}
}

func TestSetNodeAddressPersists(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	body := strings.NewReader(`{"ip":"10.0.0.5","mask":"255.255.255.0"}`)
	resp, err := http.Post(ts.URL+"/nodes/pc1/interfaces/eth0/address", "application/json", body)
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}

	var view nodeView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}

	n, err := srv.topo.Node("pc1")
	if err != nil {
		t.Fatal(err)
	}
	cfg, ok := n.IfaceAddress("eth0")
	if !ok || cfg.IPv4 != addr.MustParseIPv4("10.0.0.5") {
		t.Fatalf("expected pc1/eth0 to keep 10.0.0.5, got %v (set=%v)", cfg.IPv4, ok)
	}
}

func TestSchedulerSpeedRoundTrip(t *testing.T) {
	srv, sched := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/scheduler/speed", "application/json", strings.NewReader(`{"speed":"faster"}`))
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	if sched.Speed() != clock.Faster {
		t.Fatalf("expected scheduler speed Faster, got %v", sched.Speed())
	}
}

func TestSimKernelStartStopOverREST(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Post(ts.URL+"/sim/gbn/start", "application/json", nil)
	if err != nil {
		t.Fatal(err)
	}
	resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 starting gbn kernel, got %d", resp.StatusCode)
	}

	resp, err = http.Get(ts.URL + "/sim/gbn/state")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200 reading gbn state, got %d", resp.StatusCode)
	}
}

func TestSwitchCapturesEndpointReturnsEmptyBeforeAnyTraffic(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stp/sw1/captures")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		t.Fatalf("expected 200, got %d", resp.StatusCode)
	}
	var view captureView
	if err := json.NewDecoder(resp.Body).Decode(&view); err != nil {
		t.Fatal(err)
	}
	if view.Switch != "sw1" || len(view.Frames) != 0 {
		t.Fatalf("expected an empty capture list for a freshly built switch, got %+v", view)
	}
}

func TestSwitchCapturesEndpointUnknownSwitchNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/stp/ghost/captures")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}

func TestUnknownNodeReturnsNotFound(t *testing.T) {
	srv, _ := newTestServer(t)
	ts := httptest.NewServer(srv.Router())
	defer ts.Close()

	resp, err := http.Get(ts.URL + "/nodes/ghost")
	if err != nil {
		t.Fatal(err)
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusNotFound {
		t.Fatalf("expected 404, got %d", resp.StatusCode)
	}
}
