// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Command netsim-server runs the virtual-time network simulator's HTTP
// control plane: a scheduler, a topology loaded from an HCL config file, and
// the REST/websocket surface internal/api exposes over it.
package main

import (
	"context"
	"flag"
	"os"
	"os/signal"
	"syscall"

	"github.com/prometheus/client_golang/prometheus"
	"golang.org/x/sync/errgroup"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/api"
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/config"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/logging"
	"grimm.is/netsim/internal/metrics"
	"grimm.is/netsim/internal/topology"
)

var log = logging.WithComponent("netsim-server")

func main() {
	configPath := flag.String("config", "", "path to an HCL topology file (uses built-in defaults if empty)")
	addrFlag := flag.String("addr", ":8080", "HTTP listen address")
	flag.Parse()

	if err := run(*configPath, *addrFlag); err != nil {
		log.Error("exiting", "error", err.Error())
		os.Exit(1)
	}
}

func run(configPath, listenAddr string) error {
	cfg, watchFile, err := loadConfig(configPath)
	if err != nil {
		return err
	}

	sched := clock.New()
	topo, err := topology.New(sched, cfg)
	if err != nil {
		return err
	}

	collector := metrics.NewCollector()
	collector.Register(prometheus.DefaultRegisterer)

	demoPacket := ipnet.IPv4Packet{
		Src:     addr.MustParseIPv4("10.0.0.1"),
		Dst:     addr.MustParseIPv4("10.0.0.2"),
		Payload: make([]byte, 4000),
	}

	serverCfg := api.DefaultServerConfig()
	serverCfg.Addr = listenAddr
	server := api.NewServer(serverCfg, sched, topo, collector, demoPacket)

	ctx, cancel := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer cancel()

	g, ctx := errgroup.WithContext(ctx)
	g.Go(func() error { return server.Run(ctx) })

	if watchFile != nil {
		watcher, err := config.Watch(watchFile, func(f *config.File) {
			log.Info("topology config changed on disk; restart netsim-server to apply it")
		})
		if err != nil {
			log.Warn("failed to start config watcher", "error", err.Error())
		} else {
			defer watcher.Close()
		}
	}

	log.Info("netsim-server started", "addr", listenAddr)
	return g.Wait()
}

// loadConfig returns the effective config, and the backing *config.File if
// one was loaded from disk (nil when running off built-in defaults, since
// there's nothing to hot-reload).
func loadConfig(path string) (*config.Config, *config.File, error) {
	if path == "" {
		return config.Default(), nil, nil
	}
	f, err := config.Load(path)
	if err != nil {
		return nil, nil, err
	}
	return f.Config, f, nil
}
