// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package tui

import (
	"bytes"
	"encoding/json"
	"fmt"
	"net/http"
	"time"
)

// NodeView mirrors internal/api's node presentation JSON shape.
type NodeView struct {
	Name       string   `json:"name"`
	Kind       string   `json:"kind"`
	Interfaces []string `json:"interfaces"`
	Gateway    string   `json:"gateway,omitempty"`
}

// SchedulerState is the operator-facing view of the virtual-time clock.
// The API only reports DeltaMs (SPEC_FULL.md §3's GET /scheduler/delta); the
// dashboard tracks the speed it last requested itself, since nothing asks
// for it back.
type SchedulerState struct {
	DeltaMs float64 `json:"delta_ms"`
}

// KernelState is a raw snapshot of one animation kernel's published state,
// shown as-is rather than unmarshaled into per-kernel types: the dashboard
// doesn't need to interpret it, only display it.
type KernelState map[string]any

// PingResult mirrors internal/api's ping response.
type PingResult struct {
	RoundTripMs float64 `json:"round_trip_ms"`
	TimedOut    bool    `json:"timed_out"`
}

// Backend is everything the dashboard needs from a running netsim-server,
// following the teacher's Backend-interface-over-HTTP shape
// (internal/tui.Backend) so the dashboard model never talks HTTP directly.
type Backend interface {
	ListNodes() ([]NodeView, error)
	SchedulerState() (SchedulerState, error)
	SetSchedulerSpeed(speed string) error
	KernelState(name string) (KernelState, error)
	Ping(from, to string) (PingResult, error)
}

// RemoteBackend implements Backend against a live netsim-server over HTTP,
// grounded on the teacher's RemoteBackend (internal/tui/remote.go) minus its
// TLS/API-key auth, which this local single-operator dashboard has no use for.
type RemoteBackend struct {
	BaseURL string
	Client  *http.Client
}

func NewRemoteBackend(baseURL string) *RemoteBackend {
	return &RemoteBackend{
		BaseURL: baseURL,
		Client:  &http.Client{Timeout: 5 * time.Second},
	}
}

func (b *RemoteBackend) getJSON(path string, out any) error {
	resp, err := b.Client.Get(b.BaseURL + path)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (b *RemoteBackend) postJSON(path string, body, out any) error {
	var buf bytes.Buffer
	if body != nil {
		if err := json.NewEncoder(&buf).Encode(body); err != nil {
			return err
		}
	}
	resp, err := b.Client.Post(b.BaseURL+path, "application/json", &buf)
	if err != nil {
		return err
	}
	defer resp.Body.Close()
	if resp.StatusCode != http.StatusOK {
		return fmt.Errorf("%s: %s", path, resp.Status)
	}
	if out == nil {
		return nil
	}
	return json.NewDecoder(resp.Body).Decode(out)
}

func (b *RemoteBackend) ListNodes() ([]NodeView, error) {
	var nodes []NodeView
	err := b.getJSON("/nodes", &nodes)
	return nodes, err
}

func (b *RemoteBackend) SchedulerState() (SchedulerState, error) {
	var st SchedulerState
	if err := b.getJSON("/scheduler/delta", &st); err != nil {
		return SchedulerState{}, err
	}
	return st, nil
}

func (b *RemoteBackend) SetSchedulerSpeed(speed string) error {
	return b.postJSON("/scheduler/speed", map[string]string{"speed": speed}, nil)
}

func (b *RemoteBackend) KernelState(name string) (KernelState, error) {
	var state KernelState
	err := b.getJSON("/sim/"+name+"/state", &state)
	return state, err
}

func (b *RemoteBackend) Ping(from, to string) (PingResult, error) {
	var result PingResult
	req := map[string]string{"from": from, "to": to}
	if err := b.postJSON("/ping", req, &result); err != nil {
		return PingResult{}, err
	}
	return result, nil
}
