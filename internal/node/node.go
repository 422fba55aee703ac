// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

// Package node implements the topology-facing aggregates (PC, server,
// switch, router) that wire a name, an interface set, and a gateway together.
// L3 addressing lives here rather than on physical.HardwareInterface: the
// physical layer only knows bits, links, and speeds.
package node

import (
	"sort"

	"github.com/agext/levenshtein"

	"grimm.is/netsim/internal/addr"
	nserrors "grimm.is/netsim/internal/errors"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/physical"
)

// Kind distinguishes the four node archetypes spec.md §5 describes.
type Kind int

const (
	KindPC Kind = iota
	KindServer
	KindSwitch
	KindRouter
)

// IfaceConfig is the L3 configuration hung off one physical interface.
type IfaceConfig struct {
	IPv4 addr.IPv4Address
	Mask addr.IPv4Address
}

func (c IfaceConfig) configured() bool { return c.IPv4 != 0 }

// Node is a named device with a fixed set of physical interfaces. Switches
// and routers layer their own per-kind state (STP, routing table) on top of
// the same interface bookkeeping.
type Node struct {
	Name       string
	Kind       Kind
	Interfaces []*physical.HardwareInterface
	addrs      map[string]IfaceConfig
	Gateway    addr.IPv4Address

	Routes *ipnet.RoutingTable // nil for PCs/servers that have no routing table of their own
}

// New constructs a node with the given interfaces, indexed in the order given.
func New(name string, kind Kind, ifaces []*physical.HardwareInterface) *Node {
	return &Node{Name: name, Kind: kind, Interfaces: ifaces, addrs: make(map[string]IfaceConfig)}
}

// SetIfaceAddress configures the L3 address for the named interface.
func (n *Node) SetIfaceAddress(ifaceName string, ip, mask addr.IPv4Address) error {
	if err := mask.ValidateMask(); err != nil {
		return err
	}
	if _, err := n.GetInterface(ifaceName); err != nil {
		return err
	}
	n.addrs[ifaceName] = IfaceConfig{IPv4: ip, Mask: mask}
	return nil
}

// IfaceAddress returns the L3 configuration for the named interface, if any.
func (n *Node) IfaceAddress(ifaceName string) (IfaceConfig, bool) {
	c, ok := n.addrs[ifaceName]
	return c, ok
}

// GetInterface resolves name either as an exact interface name or a 0-based
// index ("0", "1", ...). On a miss it returns a KindValidation error carrying
// the closest name by edit distance, so the caller can render "did you mean
// eth0?" instead of a bare lookup failure.
func (n *Node) GetInterface(nameOrIndex string) (*physical.HardwareInterface, error) {
	for _, iface := range n.Interfaces {
		if iface.Name == nameOrIndex {
			return iface, nil
		}
	}
	if idx, ok := parseIndex(nameOrIndex); ok && idx >= 0 && idx < len(n.Interfaces) {
		return n.Interfaces[idx], nil
	}
	return nil, n.noSuchInterfaceError(nameOrIndex)
}

func (n *Node) noSuchInterfaceError(nameOrIndex string) error {
	suggestion, distance := "", -1
	for _, iface := range n.Interfaces {
		d := levenshtein.Distance(nameOrIndex, iface.Name, nil)
		if distance == -1 || d < distance {
			distance, suggestion = d, iface.Name
		}
	}
	err := nserrors.Errorf(nserrors.KindValidation, "node %q has no interface %q", n.Name, nameOrIndex)
	if suggestion != "" && distance <= 2 {
		err = nserrors.Attr(err, "suggestion", suggestion)
	}
	return err
}

func parseIndex(s string) (int, bool) {
	if s == "" {
		return 0, false
	}
	n := 0
	for _, c := range s {
		if c < '0' || c > '9' {
			return 0, false
		}
		n = n*10 + int(c-'0')
	}
	return n, true
}

// GetNextHop resolves the next hop to reach dst: directly connected subnets
// resolve to dst itself; otherwise a router consults its routing table, and a
// PC/server falls back to its configured default gateway.
func (n *Node) GetNextHop(dst addr.IPv4Address) (addr.IPv4Address, string, error) {
	for name, cfg := range n.addrs {
		if cfg.configured() && cfg.IPv4.InSameNetwork(cfg.Mask, dst) {
			return dst, name, nil
		}
	}

	if n.Routes != nil {
		route, err := n.Routes.Lookup(dst)
		if err != nil {
			return 0, "", err
		}
		next := route.NextHop
		if next == 0 {
			next = dst // directly connected default route
		}
		return next, route.Interface, nil
	}

	if n.Gateway == 0 {
		return 0, "", nserrors.Errorf(nserrors.KindNoRoute, "node %q has no route and no gateway to reach %s", n.Name, dst)
	}
	for name, cfg := range n.addrs {
		if cfg.configured() && cfg.IPv4.InSameNetwork(cfg.Mask, n.Gateway) {
			return n.Gateway, name, nil
		}
	}
	return n.Gateway, "", nserrors.Errorf(nserrors.KindNoRoute, "node %q gateway %s is unreachable from any interface", n.Name, n.Gateway)
}

// InterfaceNames returns every interface name, sorted, for presentation.
func (n *Node) InterfaceNames() []string {
	out := make([]string, 0, len(n.Interfaces))
	for _, iface := range n.Interfaces {
		out = append(out, iface.Name)
	}
	sort.Strings(out)
	return out
}
