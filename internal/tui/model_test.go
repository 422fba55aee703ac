// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui_test

import (
	"encoding/json"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	tea "github.com/charmbracelet/bubbletea"
	"github.com/charmbracelet/x/exp/teatest"

	"grimm.is/netsim/internal/tui"
)

// newMockServer mirrors the teacher's tests/tui MockBackend pattern: a real
// httptest.Server standing in for netsim-server, exercised through
// tui.RemoteBackend rather than a hand-rolled fake Backend.
func newMockServer(t *testing.T) *httptest.Server {
	t.Helper()
	mux := http.NewServeMux()

	mux.HandleFunc("/nodes", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode([]tui.NodeView{
			{Name: "pc1", Kind: "pc", Interfaces: []string{"eth0"}},
			{Name: "sw1", Kind: "switch", Interfaces: []string{"eth0", "eth1"}},
		})
	})
	mux.HandleFunc("/scheduler/delta", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tui.SchedulerState{DeltaMs: 42})
	})
	mux.HandleFunc("/scheduler/speed", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]string{"speed": "faster"})
	})
	mux.HandleFunc("/sim/gbn/state", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(map[string]any{"running": false})
	})
	mux.HandleFunc("/ping", func(w http.ResponseWriter, r *http.Request) {
		json.NewEncoder(w).Encode(tui.PingResult{RoundTripMs: 12.5, TimedOut: false})
	})
	// Every other kernel path 404s, which the dashboard renders as "unreachable".
	mux.HandleFunc("/", func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusNotFound)
	})

	server := httptest.NewServer(mux)
	t.Cleanup(server.Close)
	return server
}

func TestDashboardRendersNodesFromBackend(t *testing.T) {
	server := newMockServer(t)
	backend := tui.NewRemoteBackend(server.URL)
	model := tui.NewModel(backend)

	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	time.Sleep(500 * time.Millisecond)

	tm.Send(tea.Quit())
	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second))
	if len(final.View()) == 0 {
		t.Fatal("expected a non-empty view")
	}
	if !strings.Contains(final.View(), "Nodes (2)") {
		t.Fatalf("expected the dashboard to list the backend's 2 nodes, got:\n%s", final.View())
	}
}

func TestSwitchingToPingViewShowsForm(t *testing.T) {
	server := newMockServer(t)
	backend := tui.NewRemoteBackend(server.URL)
	model := tui.NewModel(backend)

	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	time.Sleep(200 * time.Millisecond)

	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("2")})
	time.Sleep(200 * time.Millisecond)

	tm.Send(tea.Quit())
	final := tm.FinalModel(t, teatest.WithFinalTimeout(3*time.Second))
	if len(final.View()) == 0 {
		t.Fatal("expected a non-empty ping view")
	}
	if !strings.Contains(final.View(), "fill in two node names") {
		t.Fatalf("expected the ping view after pressing 2, got:\n%s", final.View())
	}
}

func TestQuitKeyTerminatesProgram(t *testing.T) {
	server := newMockServer(t)
	backend := tui.NewRemoteBackend(server.URL)
	model := tui.NewModel(backend)

	tm := teatest.NewTestModel(t, model, teatest.WithInitialTermSize(100, 30))
	tm.Send(tea.KeyMsg{Type: tea.KeyRunes, Runes: []rune("q")})
	tm.WaitFinished(t, teatest.WithFinalTimeout(3*time.Second))
}
