// Copyright (C) 2026 Ben Grimm. Licensed under AGPL-3.0 (https://www.gnu.org/licenses/agpl-3.0.txt)

package dhcp

import (
	"fmt"

	"github.com/miekg/dns"
)

// BuildHostnameAnswer renders a minimal A-record response for hostname using
// miekg/dns's wire types, resolving against the ledger's current leases. This
// backs the "dns?" pool option (spec.md §3) with a real, queryable stub
// resolver on the server side instead of a bare address a client just
// trusts. It is queried through the API's /dhcp/resolve/{hostname} endpoint;
// the DHCP client itself does not resolve names.
func (l *DhcpLedger) BuildHostnameAnswer(hostname string) (*dns.Msg, bool) {
	if _, ok := dns.IsDomainName(hostname); !ok {
		return nil, false
	}
	ip, ok := l.ResolveHostname(hostname)
	if !ok {
		return nil, false
	}

	q := new(dns.Msg)
	q.SetQuestion(dns.Fqdn(hostname), dns.TypeA)

	rr, err := dns.NewRR(fmt.Sprintf("%s A %s", dns.Fqdn(hostname), ip.String()))
	if err != nil {
		return nil, false
	}

	resp := new(dns.Msg)
	resp.SetReply(q)
	resp.Answer = []dns.RR{rr}
	return resp, true
}
