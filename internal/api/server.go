// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package api implements netsim's HTTP control surface: scheduler control,
// node CRUD, per-kernel REST+WS pairs, DHCP enable/lease/pool management and
// hostname lookup, and read-only STP status and captures, following
// the teacher's gorilla/mux + respondWithJSON idiom (internal/api/server.go,
// internal/api/ebpf_handlers.go) rather than its auth/TLS/CSRF machinery,
// which this single-operator simulator has no use for (see DESIGN.md).
package api

import (
	"context"
	"net/http"
	"time"

	"github.com/gorilla/mux"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/logging"
	"grimm.is/netsim/internal/metrics"
	"grimm.is/netsim/internal/topology"
)

var apiLog = logging.WithComponent("api")

// ServerConfig holds the http.Server timeouts every netsim listener uses,
// following the teacher's ServerConfig/DefaultServerConfig shape.
type ServerConfig struct {
	Addr              string
	ReadHeaderTimeout time.Duration
	ReadTimeout       time.Duration
	WriteTimeout      time.Duration
	IdleTimeout       time.Duration
}

// DefaultServerConfig returns sane listener timeouts for a local dev server.
func DefaultServerConfig() ServerConfig {
	return ServerConfig{
		Addr:              ":8080",
		ReadHeaderTimeout: 10 * time.Second,
		ReadTimeout:       15 * time.Second,
		WriteTimeout:      30 * time.Second,
		IdleTimeout:       60 * time.Second,
	}
}

// Server is netsim's HTTP control plane: one process, one topology, one
// scheduler (SPEC_FULL.md §3).
type Server struct {
	cfg    ServerConfig
	sched  *clock.Scheduler
	topo   *topology.Topology
	coll   *metrics.Collector
	router *mux.Router
	http   *http.Server
}

// NewServer wires every handler group onto a fresh mux.Router.
func NewServer(cfg ServerConfig, sched *clock.Scheduler, topo *topology.Topology, coll *metrics.Collector, fragPacket ipnet.IPv4Packet) *Server {
	s := &Server{cfg: cfg, sched: sched, topo: topo, coll: coll, router: mux.NewRouter()}

	NewSchedulerHandlers(sched).RegisterRoutes(s.router.PathPrefix("/scheduler").Subrouter())
	NewNodeHandlers(topo).RegisterRoutes(s.router)
	NewDHCPHandlers(topo).RegisterRoutes(s.router.PathPrefix("/dhcp").Subrouter())
	NewSTPHandlers(topo).RegisterRoutes(s.router.PathPrefix("/stp").Subrouter())
	NewPingHandlers(sched, topo).RegisterRoutes(s.router)
	NewSimHandlers(sched, coll, fragPacket).RegisterRoutes(s.router)
	s.router.Handle("/metrics", promhttp.Handler()).Methods("GET")
	s.router.HandleFunc("/healthz", s.handleHealthz).Methods("GET")

	s.http = &http.Server{
		Addr:              cfg.Addr,
		Handler:           s.router,
		ReadHeaderTimeout: cfg.ReadHeaderTimeout,
		ReadTimeout:       cfg.ReadTimeout,
		WriteTimeout:      cfg.WriteTimeout,
		IdleTimeout:       cfg.IdleTimeout,
	}
	return s
}

// Router exposes the underlying mux.Router, mainly for tests.
func (s *Server) Router() *mux.Router { return s.router }

func (s *Server) handleHealthz(w http.ResponseWriter, r *http.Request) {
	respondWithJSON(w, http.StatusOK, map[string]string{"status": "ok"})
}

// Run serves until ctx is canceled, then shuts down gracefully.
func (s *Server) Run(ctx context.Context) error {
	errCh := make(chan error, 1)
	go func() {
		apiLog.Info("api server listening", "addr", s.cfg.Addr)
		if err := s.http.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			errCh <- err
			return
		}
		errCh <- nil
	}()

	select {
	case <-ctx.Done():
		shutdownCtx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
		defer cancel()
		if err := s.http.Shutdown(shutdownCtx); err != nil {
			return err
		}
		return <-errCh
	case err := <-errCh:
		return err
	}
}
