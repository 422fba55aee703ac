// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package config loads the simulator's topology + engine configuration from
// HCL, merges it over built-in defaults, and watches it for hot-reload
// (spec.md §0.3 / SPEC_FULL.md §0.3), following the teacher's config.Config /
// ConfigFile shape.
package config

// Config is the top-level structure for a netsim topology file.
type Config struct {
	SchemaVersion string        `hcl:"schema_version,optional" json:"schema_version,omitempty"`
	Engine        *EngineConfig `hcl:"engine,block" json:"engine,omitempty"`
	Nodes         []NodeConfig  `hcl:"node,block" json:"node,omitempty"`
	Links         []LinkConfig  `hcl:"link,block" json:"link,omitempty"`
	DHCP          *DHCPConfig   `hcl:"dhcp,block" json:"dhcp,omitempty"`
}

// EngineConfig tunes the simulation engine's timing constants.
type EngineConfig struct {
	InitialSpeed      string  `hcl:"initial_speed,optional" json:"initial_speed,omitempty"`
	ArpTtlMs          float64 `hcl:"arp_ttl_ms,optional" json:"arp_ttl_ms,omitempty"`
	ArpTimeoutMs      float64 `hcl:"arp_timeout_ms,optional" json:"arp_timeout_ms,omitempty"`
	MacTableTtlMs     float64 `hcl:"mac_table_ttl_ms,optional" json:"mac_table_ttl_ms,omitempty"`
	StpForwardDelayMs float64 `hcl:"stp_forward_delay_ms,optional" json:"stp_forward_delay_ms,omitempty"`
	StpMaxAgeMs       float64 `hcl:"stp_max_age_ms,optional" json:"stp_max_age_ms,omitempty"`
	IcmpTimeoutMs     float64 `hcl:"icmp_timeout_ms,optional" json:"icmp_timeout_ms,omitempty"`
	FragProcessingMs  float64 `hcl:"frag_processing_delay_ms,optional" json:"frag_processing_delay_ms,omitempty"`
	FragPacingMs      float64 `hcl:"frag_pacing_ms,optional" json:"frag_pacing_ms,omitempty"`
}

// NodeConfig describes one PC, server, switch, or router in the topology.
type NodeConfig struct {
	Name       string   `hcl:"name,label" json:"name"`
	Kind       string   `hcl:"kind" json:"kind"` // "pc" | "server" | "switch" | "router"
	Interfaces []string `hcl:"interfaces,optional" json:"interfaces,omitempty"`
	Gateway    string   `hcl:"gateway,optional" json:"gateway,omitempty"`
	BridgeID   uint16   `hcl:"bridge_priority,optional" json:"bridge_priority,omitempty"`
}

// LinkConfig describes one physical link between two node interfaces.
type LinkConfig struct {
	A            string  `hcl:"a,label" json:"a"`
	B            string  `hcl:"b,label" json:"b"`
	LengthMeters float64 `hcl:"length_meters,optional" json:"length_meters,omitempty"`
}

// DHCPConfig describes the DHCP server this topology may run: an enable
// flag, a ledger's lease lifetime, and an ordered list of pools (spec.md §3:
// "{name, gateway, netmask, start, end, dns?, tftp?, wlc?}").
type DHCPConfig struct {
	ServerNode string           `hcl:"server_node" json:"server_node"`
	Enabled    *bool            `hcl:"enabled,optional" json:"enabled,omitempty"`
	LeaseMs    float64          `hcl:"lease_ms,optional" json:"lease_ms,omitempty"`
	Pools      []DHCPPoolConfig `hcl:"pool,block" json:"pool,omitempty"`
}

// DHCPPoolConfig describes one address pool within a DHCPConfig.
type DHCPPoolConfig struct {
	Name    string   `hcl:"name,label" json:"name"`
	Gateway string   `hcl:"gateway" json:"gateway"`
	Netmask string   `hcl:"netmask" json:"netmask"`
	Start   string   `hcl:"start" json:"start"`
	End     string   `hcl:"end" json:"end"`
	DNS     []string `hcl:"dns,optional" json:"dns,omitempty"`
	TFTP    string   `hcl:"tftp,optional" json:"tftp,omitempty"`
	WLC     string   `hcl:"wlc,optional" json:"wlc,omitempty"`
}

// CurrentSchemaVersion is written into freshly-generated topology files.
const CurrentSchemaVersion = "1.0"

// Default returns the built-in defaults every loaded config is merged over,
// so a topology file only needs to specify what it wants to override.
func Default() *Config {
	return &Config{
		SchemaVersion: CurrentSchemaVersion,
		Engine: &EngineConfig{
			InitialSpeed:      "paused",
			ArpTtlMs:          60_000,
			ArpTimeoutMs:      3_000,
			MacTableTtlMs:     300_000,
			StpForwardDelayMs: 15_000,
			StpMaxAgeMs:       20_000,
			IcmpTimeoutMs:     5_000,
			FragProcessingMs:  2,
			FragPacingMs:      1,
		},
	}
}
