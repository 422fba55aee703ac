// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package metrics exposes the simulator's Prometheus registry (spec.md §0.5):
// frames forwarded/dropped per switch port, STP topology-change counts, ARP
// cache hit/miss, fragments emitted, DHCP lease activity, ICMP RTT, and one
// gauge per running animation kernel.
package metrics

import "github.com/prometheus/client_golang/prometheus"

// Collector holds every metric the simulator publishes, following the
// teacher's Collector-as-metric-bundle shape (internal/ebpf/metrics.Metrics).
type Collector struct {
	FramesForwarded *prometheus.CounterVec
	FramesDropped   *prometheus.CounterVec

	StpTopologyChanges *prometheus.CounterVec

	ArpCacheHits   prometheus.Counter
	ArpCacheMisses prometheus.Counter

	FragmentsEmitted prometheus.Counter

	DhcpLeasesIssued  prometheus.Counter
	DhcpLeasesExpired prometheus.Counter

	IcmpRoundTripMs prometheus.Histogram

	SimKernelRunning *prometheus.GaugeVec
}

// NewCollector constructs a Collector with every metric defined but not yet
// registered; call Register to attach it to a prometheus.Registerer.
func NewCollector() *Collector {
	return &Collector{
		FramesForwarded: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_datalink_frames_forwarded_total",
			Help: "Total number of Ethernet frames forwarded, by switch and port.",
		}, []string{"switch", "port"}),
		FramesDropped: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_datalink_frames_dropped_total",
			Help: "Total number of Ethernet frames dropped, by switch, port, and reason.",
		}, []string{"switch", "port", "reason"}),
		StpTopologyChanges: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "netsim_stp_topology_changes_total",
			Help: "Total number of STP root/role recomputations, by switch.",
		}, []string{"switch"}),
		ArpCacheHits: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsim_arp_cache_hits_total",
			Help: "Total number of ARP resolutions served from cache.",
		}),
		ArpCacheMisses: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsim_arp_cache_misses_total",
			Help: "Total number of ARP resolutions that required a request.",
		}),
		FragmentsEmitted: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsim_ipv4_fragments_emitted_total",
			Help: "Total number of IPv4 fragments placed on the wire (excludes unfragmented packets).",
		}),
		DhcpLeasesIssued: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsim_dhcp_leases_issued_total",
			Help: "Total number of DHCP leases issued (ACKed).",
		}),
		DhcpLeasesExpired: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "netsim_dhcp_leases_expired_total",
			Help: "Total number of DHCP leases reclaimed after expiry.",
		}),
		IcmpRoundTripMs: prometheus.NewHistogram(prometheus.HistogramOpts{
			Name:    "netsim_icmp_round_trip_ms",
			Help:    "ICMP echo round-trip time in simulated milliseconds.",
			Buckets: prometheus.ExponentialBuckets(1, 2, 12),
		}),
		SimKernelRunning: prometheus.NewGaugeVec(prometheus.GaugeOpts{
			Name: "netsim_sim_kernel_running",
			Help: "Whether an animation kernel is currently running (1) or idle (0), by kernel name.",
		}, []string{"kernel"}),
	}
}

// Register attaches every metric to reg. Call once per process.
func (c *Collector) Register(reg prometheus.Registerer) {
	reg.MustRegister(
		c.FramesForwarded,
		c.FramesDropped,
		c.StpTopologyChanges,
		c.ArpCacheHits,
		c.ArpCacheMisses,
		c.FragmentsEmitted,
		c.DhcpLeasesIssued,
		c.DhcpLeasesExpired,
		c.IcmpRoundTripMs,
		c.SimKernelRunning,
	)
}

// SetKernelRunning records whether the named sim kernel is currently running.
func (c *Collector) SetKernelRunning(kernel string, running bool) {
	v := 0.0
	if running {
		v = 1.0
	}
	c.SimKernelRunning.WithLabelValues(kernel).Set(v)
}
