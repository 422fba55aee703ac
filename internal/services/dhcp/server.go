// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dhcp

import (
	"net"

	"github.com/insomniacslk/dhcp/dhcpv4"

	"grimm.is/netsim/internal/addr"
	"grimm.is/netsim/internal/clock"
	"grimm.is/netsim/internal/logging"
)

var log = logging.WithComponent("dhcp")

// L2Sender abstracts the broadcast/unicast delivery a Server uses to get a
// reply back to the requesting host, decoupling this package from datalink.
type L2Sender interface {
	SendDhcpReply(dst addr.MacAddress, msg *dhcpv4.DHCPv4)
}

// Server answers DISCOVER/REQUEST/RELEASE against a DhcpLedger (spec.md
// §4.8), honoring the ledger's enable flag and its ordered, subnet-matched
// pools (spec.md §4.6) instead of one flat router/netmask/DNS triple.
type Server struct {
	Ledger *DhcpLedger
	sched  *clock.Scheduler
	sender L2Sender
}

// NewServer constructs a DHCP server answering out of ledger's pools.
func NewServer(ledger *DhcpLedger, sched *clock.Scheduler, sender L2Sender) *Server {
	return &Server{Ledger: ledger, sched: sched, sender: sender}
}

// Receive dispatches an inbound DHCP message by its type. It's a no-op when
// the ledger is disabled (spec.md §6: "DHCP enable").
func (s *Server) Receive(clientMac addr.MacAddress, m *dhcpv4.DHCPv4) {
	if !s.Ledger.Enabled() {
		return
	}
	now := s.sched.DeltaMs()
	switch m.MessageType() {
	case dhcpv4.MessageTypeDiscover:
		s.handleDiscover(clientMac, m, now)
	case dhcpv4.MessageTypeRequest:
		s.handleRequest(clientMac, m, now)
	case dhcpv4.MessageTypeRelease:
		s.Ledger.Release(clientMac)
	}
}

// arrivalIP extracts the relay/giaddr address identifying the subnet a
// request arrived on (spec.md §4.6: "the interface the request arrived on").
// A directly-attached, non-relayed request carries no giaddr, which
// DhcpPool.sharesSubnet treats as matching the first configured pool.
func arrivalIP(m *dhcpv4.DHCPv4) addr.IPv4Address {
	if m.GatewayIPAddr == nil || m.GatewayIPAddr.IsUnspecified() {
		return 0
	}
	return ipv4FromNetIP(m.GatewayIPAddr)
}

func (s *Server) handleDiscover(clientMac addr.MacAddress, m *dhcpv4.DHCPv4, now float64) {
	ip, pool, err := s.Ledger.Allocate(clientMac, m.HostName(), now, arrivalIP(m))
	if err != nil {
		log.WithError(err).Warn("DHCP pool exhausted", "mac", clientMac)
		return
	}

	reply, err := dhcpv4.NewReplyFromRequest(m,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeOffer),
		dhcpv4.WithYourIP(toNetIP(ip)),
		dhcpv4.WithServerIP(toNetIP(pool.Gateway)),
		dhcpv4.WithRouter(toNetIP(pool.Gateway)),
		dhcpv4.WithNetmask(net.IPMask(toNetIP(pool.Netmask).To4())),
		dhcpv4.WithDNS(toNetIPs(pool.DNS)...),
	)
	if err != nil {
		log.WithError(err).Error("failed to build DHCP OFFER")
		return
	}
	s.sender.SendDhcpReply(clientMac, reply)
}

func (s *Server) handleRequest(clientMac addr.MacAddress, m *dhcpv4.DHCPv4, now float64) {
	requested := m.RequestedIPAddress()
	allocated, pool, err := s.Ledger.Allocate(clientMac, m.HostName(), now, arrivalIP(m))
	if err != nil {
		log.WithError(err).Warn("DHCP pool exhausted on request", "mac", clientMac)
		return
	}

	if requested != nil && !requested.IsUnspecified() && !toNetIP(allocated).Equal(requested) {
		nak, err := dhcpv4.NewReplyFromRequest(m,
			dhcpv4.WithMessageType(dhcpv4.MessageTypeNak),
			dhcpv4.WithServerIP(toNetIP(pool.Gateway)),
		)
		if err == nil {
			s.sender.SendDhcpReply(clientMac, nak)
		}
		return
	}

	s.Ledger.Renew(clientMac, now)
	ack, err := dhcpv4.NewReplyFromRequest(m,
		dhcpv4.WithMessageType(dhcpv4.MessageTypeAck),
		dhcpv4.WithYourIP(toNetIP(allocated)),
		dhcpv4.WithServerIP(toNetIP(pool.Gateway)),
		dhcpv4.WithRouter(toNetIP(pool.Gateway)),
		dhcpv4.WithNetmask(net.IPMask(toNetIP(pool.Netmask).To4())),
		dhcpv4.WithDNS(toNetIPs(pool.DNS)...),
	)
	if err != nil {
		log.WithError(err).Error("failed to build DHCP ACK")
		return
	}
	s.sender.SendDhcpReply(clientMac, ack)
}

func toNetIP(ip addr.IPv4Address) net.IP {
	return net.IPv4(byte(ip>>24), byte(ip>>16), byte(ip>>8), byte(ip))
}

func toNetIPs(ips []addr.IPv4Address) []net.IP {
	out := make([]net.IP, len(ips))
	for i, ip := range ips {
		out[i] = toNetIP(ip)
	}
	return out
}
