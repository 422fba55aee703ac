// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dhcp

import (
	"net"
	"time"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
)

// ClientState is the DHCP client's DORA state machine position.
type ClientState int

const (
	StateInit ClientState = iota
	StateSelecting
	StateRequesting
	StateBound
)

// ClientSender delivers a client-originated DHCP message; implemented by the
// node's broadcast path.
type ClientSender interface {
	SendDhcpRequest(msg *dhcpv4.DHCPv4)
}

// Client drives DISCOVER -> OFFER -> REQUEST -> ACK, retrying discovery if
// no offer arrives and renewing its lease at half the lease lifetime
// (spec.md §4.8).
type Client struct {
	Mac   addr.MacAddress
	State ClientState

	IP      addr.IPv4Address
	Router  addr.IPv4Address
	Netmask addr.IPv4Address

	sched        *clock.Scheduler
	sender       ClientSender
	retryID      clock.CallbackID
	renewID      clock.CallbackID
	retryDelayMs float64
	leaseMs      float64
	onBound      func()
}

// NewClient constructs a client identified by mac, retrying DISCOVER every
// retryDelayMs until it's bound.
func NewClient(mac addr.MacAddress, sched *clock.Scheduler, sender ClientSender, retryDelayMs float64, onBound func()) *Client {
	return &Client{Mac: mac, State: StateInit, sched: sched, sender: sender, retryDelayMs: retryDelayMs, onBound: onBound}
}

// Start sends the first DISCOVER and begins the retry cycle.
func (c *Client) Start() {
	c.State = StateSelecting
	c.sendDiscover()
}

func (c *Client) sendDiscover() {
	discover, err := dhcpv4.NewDiscovery(net.HardwareAddr(c.Mac[:]))
	if err == nil {
		c.sender.SendDhcpRequest(discover)
	}
	c.retryID = clock.NewCallbackID()
	c.sched.Schedule(c.retryID, c.sched.DeltaMs()+c.retryDelayMs, func() {
		if c.State == StateSelecting {
			c.sendDiscover()
		}
	})
}

// ReceiveOffer processes an OFFER, requesting the offered address.
func (c *Client) ReceiveOffer(m *dhcpv4.DHCPv4) {
	if c.State != StateSelecting {
		return
	}
	c.sched.Cancel(c.retryID)
	c.State = StateRequesting

	req, err := dhcpv4.NewRequestFromOffer(m)
	if err != nil {
		c.State = StateSelecting
		return
	}
	c.sender.SendDhcpRequest(req)
}

// ReceiveReply processes an ACK (binds) or a NAK (restarts from DISCOVER).
func (c *Client) ReceiveReply(m *dhcpv4.DHCPv4) {
	if c.State != StateRequesting {
		return
	}
	switch m.MessageType() {
	case dhcpv4.MessageTypeAck:
		c.bind(m)
	case dhcpv4.MessageTypeNak:
		c.State = StateSelecting
		c.sendDiscover()
	}
}

func (c *Client) bind(m *dhcpv4.DHCPv4) {
	c.State = StateBound
	c.IP = ipv4FromNetIP(m.YourIPAddr)
	if routers := m.Router(); len(routers) > 0 {
		c.Router = ipv4FromNetIP(routers[0])
	}
	c.Netmask = ipv4FromNetIP(net.IP(m.SubnetMask()))
	c.leaseMs = float64(m.IPAddressLeaseTime(1 * time.Hour).Milliseconds())

	c.renewID = clock.NewCallbackID()
	c.sched.Schedule(c.renewID, c.sched.DeltaMs()+c.leaseMs/2, c.renew)

	if c.onBound != nil {
		c.onBound()
	}
}

func (c *Client) renew() {
	if c.State != StateBound {
		return
	}
	req, err := dhcpv4.NewRequestFromOffer(&dhcpv4.DHCPv4{
		ClientHWAddr: net.HardwareAddr(c.Mac[:]),
		ClientIPAddr: toNetIP(c.IP),
	})
	if err != nil {
		return
	}
	c.sender.SendDhcpRequest(req)
	c.State = StateRequesting
}

func ipv4FromNetIP(ip net.IP) addr.IPv4Address {
	b := ip.To4()
	if b == nil {
		return 0
	}
	return addr.IPv4Address(uint32(b[0])<<24 | uint32(b[1])<<16 | uint32(b[2])<<8 | uint32(b[3]))
}
