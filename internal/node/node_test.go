// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package node

import (
	"testing"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	nserrors "grimm.is/netsim/internal/errors"
	"grimm.is/netsim/internal/ipnet"
	"grimm.is/netsim/internal/physical"
)

func newTestNode(t *testing.T, name string, ifaceNames ...string) *Node {
	t.Helper()
	sched := clock.New()
	var ifaces []*physical.HardwareInterface
	for i, n := range ifaceNames {
		mac := addr.MustParseMac("aa:aa:aa:aa:aa:0" + string(rune('1'+i)))
		ifaces = append(ifaces, physical.NewHardwareInterface(n, mac, sched))
	}
	return New(name, KindPC, ifaces)
}

func TestGetInterfaceByNameAndIndex(t *testing.T) {
	n := newTestNode(t, "pc1", "eth0", "eth1")

	if _, err := n.GetInterface("eth0"); err != nil {
		t.Fatal(err)
	}
	iface, err := n.GetInterface("1")
	if err != nil {
		t.Fatal(err)
	}
	if iface.Name != "eth1" {
		t.Fatalf("expected index 1 to resolve to eth1, got %s", iface.Name)
	}
}

func TestGetInterfaceSuggestsClosestMatch(t *testing.T) {
	n := newTestNode(t, "pc1", "eth0")
	_, err := n.GetInterface("eht0")
	if nserrors.GetKind(err) != nserrors.KindValidation {
		t.Fatalf("expected KindValidation, got %v", err)
	}
	attrs := nserrors.GetAttributes(err)
	if attrs["suggestion"] != "eth0" {
		t.Fatalf("expected suggestion %q, got %v", "eth0", attrs["suggestion"])
	}
}

func TestGetNextHopDirectlyConnected(t *testing.T) {
	n := newTestNode(t, "pc1", "eth0")
	must(t, n.SetIfaceAddress("eth0", addr.MustParseIPv4("10.0.0.5"), addr.NewMask(24)))

	hop, iface, err := n.GetNextHop(addr.MustParseIPv4("10.0.0.9"))
	if err != nil {
		t.Fatal(err)
	}
	if iface != "eth0" || hop != addr.MustParseIPv4("10.0.0.9") {
		t.Fatalf("expected directly-connected resolution, got hop=%s iface=%s", hop, iface)
	}
}

func TestGetNextHopFallsBackToGateway(t *testing.T) {
	n := newTestNode(t, "pc1", "eth0")
	must(t, n.SetIfaceAddress("eth0", addr.MustParseIPv4("10.0.0.5"), addr.NewMask(24)))
	n.Gateway = addr.MustParseIPv4("10.0.0.1")

	hop, iface, err := n.GetNextHop(addr.MustParseIPv4("8.8.8.8"))
	if err != nil {
		t.Fatal(err)
	}
	if hop != n.Gateway || iface != "eth0" {
		t.Fatalf("expected gateway resolution via eth0, got hop=%s iface=%s", hop, iface)
	}
}

func TestGetNextHopUsesRoutingTableForRouters(t *testing.T) {
	n := newTestNode(t, "r1", "eth0", "eth1")
	n.Kind = KindRouter
	n.Routes = ipnet.NewRoutingTable()
	must(t, n.SetIfaceAddress("eth0", addr.MustParseIPv4("10.0.0.1"), addr.NewMask(24)))
	must(t, n.Routes.AddRoute(ipnet.Route{
		Dest: addr.MustParseIPv4("192.168.0.0"), Mask: addr.NewMask(16),
		NextHop: addr.MustParseIPv4("10.0.0.2"), Interface: "eth1",
	}))

	hop, iface, err := n.GetNextHop(addr.MustParseIPv4("192.168.5.5"))
	if err != nil {
		t.Fatal(err)
	}
	if hop != addr.MustParseIPv4("10.0.0.2") || iface != "eth1" {
		t.Fatalf("expected routed next hop via eth1, got hop=%s iface=%s", hop, iface)
	}
}

func must(t *testing.T, err error) {
	t.Helper()
	if err != nil {
		t.Fatal(err)
	}
}
