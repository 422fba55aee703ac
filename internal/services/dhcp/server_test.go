// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dhcp

import (
	"net"
	"testing"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

// wire couples a Server and Client directly, standing in for the datalink
// broadcast path a real topology would provide.
type wire struct {
	server    *Server
	clientMac addr.MacAddress
}

func (w *wire) SendDhcpRequest(msg *dhcpv4.DHCPv4) {
	w.server.Receive(w.clientMac, msg)
}

type clientSide struct {
	client *Client
}

func (c *clientSide) SendDhcpReply(dst addr.MacAddress, msg *dhcpv4.DHCPv4) {
	if msg.MessageType() == dhcpv4.MessageTypeOffer {
		c.client.ReceiveOffer(msg)
	} else {
		c.client.ReceiveReply(msg)
	}
}

func TestDhcpDoraBindsClient(t *testing.T) {
	sched := clock.New()
	router := addr.MustParseIPv4("10.0.0.1")
	mask := addr.NewMask(24)
	pool := DhcpPool{Name: "office", Gateway: router, Netmask: mask, Start: addr.MustParseIPv4("10.0.0.10"), End: addr.MustParseIPv4("10.0.0.20")}
	if err := pool.Validate(); err != nil {
		t.Fatal(err)
	}
	ledger := NewDhcpLedger([]DhcpPool{pool}, 3_600_000)

	clientMac := addr.MustParseMac("aa:aa:aa:aa:aa:05")
	cs := &clientSide{}
	server := NewServer(ledger, sched, cs)

	bound := false
	w := &wire{server: server, clientMac: clientMac}
	client := NewClient(clientMac, sched, w, 5000, func() { bound = true })
	cs.client = client

	client.Start()

	if !bound {
		t.Fatal("expected the client to be bound after the DORA exchange")
	}
	if client.IP != addr.MustParseIPv4("10.0.0.10") {
		t.Fatalf("expected the first pool address, got %s", client.IP)
	}
	if client.Router != router {
		t.Fatalf("expected router %s, got %s", router, client.Router)
	}
}

func TestDhcpServerIgnoresTrafficWhenDisabled(t *testing.T) {
	sched := clock.New()
	router := addr.MustParseIPv4("10.0.0.1")
	mask := addr.NewMask(24)
	pool := DhcpPool{Name: "office", Gateway: router, Netmask: mask, Start: addr.MustParseIPv4("10.0.0.10"), End: addr.MustParseIPv4("10.0.0.20")}
	ledger := NewDhcpLedger([]DhcpPool{pool}, 3_600_000)
	ledger.SetEnabled(false)

	clientMac := addr.MustParseMac("aa:aa:aa:aa:aa:06")
	replied := false
	cs := &recordingSender{onReply: func() { replied = true }}
	server := NewServer(ledger, sched, cs)

	discover, err := dhcpv4.NewDiscovery(net.HardwareAddr(clientMac[:]))
	if err != nil {
		t.Fatal(err)
	}
	server.Receive(clientMac, discover)

	if replied {
		t.Fatal("expected a disabled server to never reply")
	}
	if _, ok := ledger.Lookup(clientMac); ok {
		t.Fatal("expected a disabled server to never allocate a lease")
	}
}

type recordingSender struct {
	onReply func()
}

func (r *recordingSender) SendDhcpReply(dst addr.MacAddress, msg *dhcpv4.DHCPv4) {
	r.onReply()
}
