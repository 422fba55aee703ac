// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package topology assembles a config.Config into the live node/link graph
// internal/api's CRUD and info endpoints operate on, wiring internal/node,
// internal/physical, and internal/datalink together per SPEC_FULL.md §2.7.
package topology

import (
	"sync"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/config"
	"grimm.is/netsim/internal/datalink"
	nserrors "grimm.is/netsim/internal/errors"
	"grimm.is/netsim/internal/node"
	"grimm.is/netsim/internal/physical"
	"grimm.is/netsim/internal/services/dhcp"
)

// ifacePort adapts a physical.HardwareInterface to datalink.PortSender. Only
// the frame's bit length crosses the adapter: the physical layer below it is
// deliberately bit-count-only (spec.md's non-goal on symbol-level fidelity),
// so switches built here drive real STP/MacTable state machines without a
// generic byte-accurate forwarding path — each protocol's own animation
// kernel (internal/sim/*) is where content-accurate delivery actually lives.
type ifacePort struct {
	iface *physical.HardwareInterface
}

func (p ifacePort) Transmit(frame datalink.EthernetFrame) {
	p.iface.Transmit(frame.Bits())
}

// Topology owns every node, link, and switch built from a config.Config, plus
// the adjacency graph used for coarse hop-count estimates (e.g. by the ping
// endpoint).
type Topology struct {
	mu sync.RWMutex

	sched *clock.Scheduler

	nodes     map[string]*node.Node
	switches  map[string]*datalink.Switch
	links     []*physical.Link
	adjacency map[string][]string

	dhcpLedger *dhcp.DhcpLedger
}

// New builds a Topology from cfg, bound to sched for every timed component
// (interface serialization delay, STP timers).
func New(sched *clock.Scheduler, cfg *config.Config) (*Topology, error) {
	t := &Topology{
		sched:     sched,
		nodes:     make(map[string]*node.Node),
		switches:  make(map[string]*datalink.Switch),
		adjacency: make(map[string][]string),
	}

	for _, nc := range cfg.Nodes {
		if err := t.addNodeLocked(nc); err != nil {
			return nil, err
		}
	}
	for _, lc := range cfg.Links {
		if err := t.addLinkLocked(lc); err != nil {
			return nil, err
		}
	}
	if cfg.DHCP != nil {
		if err := t.configureDHCPLocked(cfg.DHCP); err != nil {
			return nil, err
		}
	}
	return t, nil
}

func (t *Topology) addNodeLocked(nc config.NodeConfig) error {
	if _, exists := t.nodes[nc.Name]; exists {
		return nserrors.Errorf(nserrors.KindValidation, "duplicate node name %q", nc.Name)
	}

	ifaceNames := nc.Interfaces
	if len(ifaceNames) == 0 {
		ifaceNames = []string{"eth0"}
	}
	ifaces := make([]*physical.HardwareInterface, 0, len(ifaceNames))
	for i, name := range ifaceNames {
		mac := syntheticMac(nc.Name, i)
		iface := physical.NewHardwareInterface(name, mac, t.sched)
		iface.Active = true
		ifaces = append(ifaces, iface)
	}

	kind, err := parseKind(nc.Kind)
	if err != nil {
		return err
	}
	n := node.New(nc.Name, kind, ifaces)
	if nc.Gateway != "" {
		gw, err := addr.ParseIPv4(nc.Gateway)
		if err != nil {
			return err
		}
		n.Gateway = gw
	}
	t.nodes[nc.Name] = n

	if kind == node.KindSwitch {
		ports := make([]datalink.PortSender, len(ifaces))
		for i, iface := range ifaces {
			ports[i] = ifacePort{iface: iface}
		}
		bridgeMac := addr.MacAddress{}
		if len(ifaces) > 0 {
			bridgeMac = ifaces[0].Mac
		}
		t.switches[nc.Name] = datalink.NewSwitch(nc.Name, ports, datalink.BridgeID{Priority: nc.BridgeID, Mac: bridgeMac}, t.sched,
			300_000, 15_000, 20_000)
	}
	return nil
}

func (t *Topology) addLinkLocked(lc config.LinkConfig) error {
	a, err := t.resolveFreeInterface(lc.A)
	if err != nil {
		return err
	}
	b, err := t.resolveFreeInterface(lc.B)
	if err != nil {
		return err
	}
	link, err := physical.NewLink(a, b, lc.LengthMeters)
	if err != nil {
		return err
	}
	t.links = append(t.links, link)
	t.adjacency[lc.A] = append(t.adjacency[lc.A], lc.B)
	t.adjacency[lc.B] = append(t.adjacency[lc.B], lc.A)
	return nil
}

// resolveFreeInterface returns the first interface on nodeName with no link
// plugged in yet.
func (t *Topology) resolveFreeInterface(nodeName string) (*physical.HardwareInterface, error) {
	n, ok := t.nodes[nodeName]
	if !ok {
		return nil, nserrors.Errorf(nserrors.KindValidation, "link references unknown node %q", nodeName)
	}
	for _, iface := range n.Interfaces {
		if iface.Link() == nil {
			return iface, nil
		}
	}
	return nil, nserrors.Errorf(nserrors.KindValidation, "node %q has no free interface for a new link", nodeName)
}

func (t *Topology) configureDHCPLocked(dc *config.DHCPConfig) error {
	pools := make([]dhcp.DhcpPool, 0, len(dc.Pools))
	for _, pc := range dc.Pools {
		pool, err := toDhcpPool(pc)
		if err != nil {
			return err
		}
		pools = append(pools, pool)
	}
	ledger := dhcp.NewDhcpLedger(pools, dc.LeaseMs)
	if dc.Enabled != nil {
		ledger.SetEnabled(*dc.Enabled)
	}
	t.dhcpLedger = ledger
	return nil
}

func toDhcpPool(pc config.DHCPPoolConfig) (dhcp.DhcpPool, error) {
	gateway, err := addr.ParseIPv4(pc.Gateway)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	netmask, err := addr.ParseIPv4(pc.Netmask)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	start, err := addr.ParseIPv4(pc.Start)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	end, err := addr.ParseIPv4(pc.End)
	if err != nil {
		return dhcp.DhcpPool{}, err
	}
	dns := make([]addr.IPv4Address, 0, len(pc.DNS))
	for _, s := range pc.DNS {
		ip, err := addr.ParseIPv4(s)
		if err != nil {
			return dhcp.DhcpPool{}, err
		}
		dns = append(dns, ip)
	}
	pool := dhcp.DhcpPool{
		Name: pc.Name, Gateway: gateway, Netmask: netmask, Start: start, End: end,
		DNS: dns, TFTP: pc.TFTP, WLC: pc.WLC,
	}
	if err := pool.Validate(); err != nil {
		return dhcp.DhcpPool{}, err
	}
	return pool, nil
}

func parseKind(s string) (node.Kind, error) {
	switch s {
	case "pc":
		return node.KindPC, nil
	case "server":
		return node.KindServer, nil
	case "switch":
		return node.KindSwitch, nil
	case "router":
		return node.KindRouter, nil
	default:
		return 0, nserrors.Errorf(nserrors.KindValidation, "unknown node kind %q", s)
	}
}

// syntheticMac derives a locally-administered MAC from a node name and
// interface index, so topology-loaded nodes don't need MACs spelled out in
// every config file.
func syntheticMac(nodeName string, ifaceIndex int) addr.MacAddress {
	h := fnv32(nodeName) + uint32(ifaceIndex)
	return addr.MacAddress{0x02, byte(h >> 24), byte(h >> 16), byte(h >> 8), byte(h), byte(ifaceIndex)}
}

func fnv32(s string) uint32 {
	const prime = 16777619
	h := uint32(2166136261)
	for i := 0; i < len(s); i++ {
		h ^= uint32(s[i])
		h *= prime
	}
	return h
}

// Node returns the named node, or an error if it doesn't exist.
func (t *Topology) Node(name string) (*node.Node, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	n, ok := t.nodes[name]
	if !ok {
		return nil, nserrors.Errorf(nserrors.KindValidation, "no such node %q", name)
	}
	return n, nil
}

// Nodes returns every node in the topology.
func (t *Topology) Nodes() []*node.Node {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]*node.Node, 0, len(t.nodes))
	for _, n := range t.nodes {
		out = append(out, n)
	}
	return out
}

// AddNode adds a new node at runtime, e.g. via the API's node-create endpoint.
func (t *Topology) AddNode(nc config.NodeConfig) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	return t.addNodeLocked(nc)
}

// RemoveNode deletes a node and unplugs any links attached to it.
func (t *Topology) RemoveNode(name string) error {
	t.mu.Lock()
	defer t.mu.Unlock()
	n, ok := t.nodes[name]
	if !ok {
		return nserrors.Errorf(nserrors.KindValidation, "no such node %q", name)
	}
	for _, iface := range n.Interfaces {
		if link := iface.Link(); link != nil {
			link.Unplug()
		}
	}
	delete(t.nodes, name)
	delete(t.switches, name)
	delete(t.adjacency, name)
	for k, neighbors := range t.adjacency {
		filtered := neighbors[:0]
		for _, nb := range neighbors {
			if nb != name {
				filtered = append(filtered, nb)
			}
		}
		t.adjacency[k] = filtered
	}
	return nil
}

// Switch returns the named switch's live datalink state, if it is a switch.
func (t *Topology) Switch(name string) (*datalink.Switch, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	sw, ok := t.switches[name]
	if !ok {
		return nil, nserrors.Errorf(nserrors.KindValidation, "no such switch %q", name)
	}
	return sw, nil
}

// Switches returns the name of every switch in the topology.
func (t *Topology) Switches() []string {
	t.mu.RLock()
	defer t.mu.RUnlock()
	out := make([]string, 0, len(t.switches))
	for name := range t.switches {
		out = append(out, name)
	}
	return out
}

// DHCPLedger returns the topology's single DHCP ledger, if one was configured.
func (t *Topology) DHCPLedger() (*dhcp.DhcpLedger, bool) {
	t.mu.RLock()
	defer t.mu.RUnlock()
	return t.dhcpLedger, t.dhcpLedger != nil
}

// HopCount returns the number of links on the shortest path between src and
// dst, via a breadth-first search over the link adjacency graph (the same
// technique internal/sim/casting uses over its fixed demo topology).
func (t *Topology) HopCount(src, dst string) (int, error) {
	t.mu.RLock()
	defer t.mu.RUnlock()

	if src == dst {
		return 0, nil
	}
	if _, ok := t.nodes[src]; !ok {
		return 0, nserrors.Errorf(nserrors.KindValidation, "no such node %q", src)
	}
	if _, ok := t.nodes[dst]; !ok {
		return 0, nserrors.Errorf(nserrors.KindValidation, "no such node %q", dst)
	}

	visited := map[string]bool{src: true}
	queue := []string{src}
	dist := map[string]int{src: 0}
	for len(queue) > 0 {
		cur := queue[0]
		queue = queue[1:]
		if cur == dst {
			return dist[cur], nil
		}
		for _, nb := range t.adjacency[cur] {
			if visited[nb] {
				continue
			}
			visited[nb] = true
			dist[nb] = dist[cur] + 1
			queue = append(queue, nb)
		}
	}
	return 0, nserrors.Errorf(nserrors.KindNoRoute, "no path from %q to %q", src, dst)
}
