package probes

import (
	"context"
	"net"
	"strconv"
	"time"

	"github.com/miekg/dns"

	"github.com/anstrom/probeforge/internal/engine"
)

// DNSResult reports whether a target answered a recursive query for a probe
// domain, which on an authoritative resolver's own address usually means an
// open (and possibly abusable) recursive resolver.
type DNSResult struct {
	Recursive bool
	RCode     int
	Answers   int
}

// DNSScanner sends a single recursive A-record query and records whether
// the reply advertised recursion, its rcode, and its answer count. The
// reply's authoritative flag is not inspected.
type DNSScanner struct {
	client     *dns.Client
	probeName  string
	recordType uint16
}

// NewDNSScanner builds a scanner querying probeName (must be a fully
// qualified domain, e.g. "example.com.") with the given per-query timeout.
func NewDNSScanner(probeName string, timeout time.Duration) DNSScanner {
	return DNSScanner{
		client:     &dns.Client{Timeout: timeout, Net: "udp"},
		probeName:  dns.Fqdn(probeName),
		recordType: dns.TypeA,
	}
}

// Exec implements engine.Job[net.UDPAddr, DNSResult].
func (s DNSScanner) Exec(ctx context.Context, addr net.UDPAddr) (engine.Signal[DNSResult], error) {
	msg := new(dns.Msg)
	msg.SetQuestion(s.probeName, s.recordType)
	msg.RecursionDesired = true

	dest := net.JoinHostPort(addr.IP.String(), strconv.Itoa(addr.Port))
	resp, _, err := s.client.ExchangeContext(ctx, msg, dest)
	if err != nil {
		return engine.Classify[DNSResult](err, DNSResult{}), nil
	}

	return engine.Success(engine.VerdictOpen, DNSResult{
		Recursive: resp.RecursionAvailable,
		RCode:     resp.Rcode,
		Answers:   len(resp.Answer),
	}), nil
}
