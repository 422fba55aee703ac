// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package api

import (
	"github.com/gorilla/mux"

	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/metrics"
	"grimm.is/netsim/internal/sim/casting"
	"grimm.is/netsim/internal/sim/fragdemo"
	"grimm.is/netsim/internal/sim/gbn"
	"grimm.is/netsim/internal/sim/modulation"
	"grimm.is/netsim/internal/sim/sr"
	"grimm.is/netsim/internal/sim/tcpfin"
	"grimm.is/netsim/internal/sim/tcpsyn"
)

// SimHandlers owns one SimEndpoint per animation kernel named in spec.md §4.8,
// each independently startable/stoppable/resettable over REST + websocket.
type SimHandlers struct {
	gbn        *SimEndpoint[gbn.State]
	sr         *SimEndpoint[sr.State]
	tcpsyn     *SimEndpoint[tcpsyn.State]
	tcpfin     *SimEndpoint[tcpfin.State]
	casting    *SimEndpoint[casting.State]
	modulation *SimEndpoint[modulation.State]
	fragdemo   *SimEndpoint[fragdemo.State]
}

// NewSimHandlers builds every kernel with a demo-reasonable default
// configuration and a collector hook that mirrors each Start/Stop into a
// netsim_sim_kernel_running gauge.
func NewSimHandlers(sched *clock.Scheduler, collector *metrics.Collector, fragPacket ipnet.IPv4Packet) *SimHandlers {
	running := func(name string) func(bool) {
		return func(r bool) { collector.SetKernelRunning(name, r) }
	}

	gbnKernel := gbn.New(sched, gbn.CreateInitialState(20, 4, 1000, 10, 200))
	srKernel := sr.New(sched, sr.CreateInitialState(20, 4, 1000, 10, 200))
	tcpsynKernel := tcpsyn.New(sched, tcpsyn.CreateInitialState(400, false))
	tcpfinKernel := tcpfin.New(sched, tcpfin.CreateInitialState(tcpfin.ClientClosesFirst, 30000, 400))
	castingKernel := casting.New(sched, casting.CreateInitialState(casting.Broadcast, 300))
	modulationKernel := modulation.New(sched, modulation.CreateInitialState(modulation.Scheme16QAM, 8000, 5))
	fragdemoKernel := fragdemo.New(sched, fragdemo.CreateInitialState(fragPacket, 1500, ipnet.IPv4, 2, 1, 600), fragPacket)

	return &SimHandlers{
		gbn:        NewSimEndpoint[gbn.State](gbnKernel, running("gbn")),
		sr:         NewSimEndpoint[sr.State](srKernel, running("sr")),
		tcpsyn:     NewSimEndpoint[tcpsyn.State](tcpsynKernel, running("tcpsyn")),
		tcpfin:     NewSimEndpoint[tcpfin.State](tcpfinKernel, running("tcpfin")),
		casting:    NewSimEndpoint[casting.State](castingKernel, running("casting")),
		modulation: NewSimEndpoint[modulation.State](modulationKernel, running("modulation")),
		fragdemo:   NewSimEndpoint[fragdemo.State](fragdemoKernel, running("fragdemo")),
	}
}

// RegisterRoutes mounts /sim/{kernel} for every kernel under router.
func (h *SimHandlers) RegisterRoutes(router *mux.Router) {
	h.gbn.RegisterRoutes(router.PathPrefix("/sim/gbn").Subrouter())
	h.sr.RegisterRoutes(router.PathPrefix("/sim/sr").Subrouter())
	h.tcpsyn.RegisterRoutes(router.PathPrefix("/sim/tcpsyn").Subrouter())
	h.tcpfin.RegisterRoutes(router.PathPrefix("/sim/tcpfin").Subrouter())
	h.casting.RegisterRoutes(router.PathPrefix("/sim/casting").Subrouter())
	h.modulation.RegisterRoutes(router.PathPrefix("/sim/modulation").Subrouter())
	h.fragdemo.RegisterRoutes(router.PathPrefix("/sim/fragdemo").Subrouter())
}
