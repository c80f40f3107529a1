package probes

import (
	"context"
	"net"
	"time"

	"github.com/gosnmp/gosnmp"

	"github.com/anstrom/probeforge/internal/engine"
)

// sysDescrOID is the standard MIB-II sysDescr object, queried as a minimal
// liveness/identification probe against an SNMP agent.
const sysDescrOID = ".1.3.6.1.2.1.1.1.0"

// SNMPResult reports the agent's sysDescr string when the community string
// was accepted.
type SNMPResult struct {
	SysDescr string
}

// SNMPScanner probes an agent with an SNMPv2c GET for sysDescr.
type SNMPScanner struct {
	Community string
	Timeout   time.Duration
}

// NewSNMPScanner builds a scanner using the given community string.
func NewSNMPScanner(community string, timeout time.Duration) SNMPScanner {
	return SNMPScanner{Community: community, Timeout: timeout}
}

// Exec implements engine.Job[net.UDPAddr, SNMPResult].
func (s SNMPScanner) Exec(ctx context.Context, addr net.UDPAddr) (engine.Signal[SNMPResult], error) {
	params := &gosnmp.GoSNMP{
		Target:    addr.IP.String(),
		Port:      uint16(addr.Port),
		Community: s.Community,
		Version:   gosnmp.Version2c,
		Timeout:   s.Timeout,
		Retries:   0,
		Context:   ctx,
	}

	if err := params.Connect(); err != nil {
		return engine.Classify[SNMPResult](err, SNMPResult{}), nil
	}
	defer params.Conn.Close()

	result, err := params.Get([]string{sysDescrOID})
	if err != nil {
		return engine.Classify[SNMPResult](err, SNMPResult{}), nil
	}

	if len(result.Variables) == 0 {
		return engine.Success(engine.VerdictClosed, SNMPResult{}), nil
	}

	var descr string
	if b, ok := result.Variables[0].Value.([]byte); ok {
		descr = string(b)
	}

	return engine.Success(engine.VerdictOpen, SNMPResult{SysDescr: descr}), nil
}
