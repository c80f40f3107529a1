package workers

import (
	"context"
	"net"

	"github.com/anstrom/probeforge/internal/db"
	"github.com/anstrom/probeforge/internal/engine"
	"github.com/anstrom/probeforge/internal/logging"
	"github.com/anstrom/probeforge/internal/probes"
	"github.com/anstrom/probeforge/internal/scanning"
)

// ScanResultSink is the engine.Output[probes.NmapTarget, *scanning.ScanResult]
// persisting each tick's terminal records into Postgres: one host row per
// scanning.Host the nmap job reported, one port_scans row per scanning.Port.
// Jobs that errored are logged and otherwise discarded — there is no
// partial result to persist for them. Dropped jobs never reach the sink:
// the pool emits no record for them.
type ScanResultSink struct {
	hosts *db.HostRepository
	ports *db.PortScanRepository
}

// NewScanResultSink builds a sink writing through the given repositories.
func NewScanResultSink(hosts *db.HostRepository, ports *db.PortScanRepository) *ScanResultSink {
	return &ScanResultSink{hosts: hosts, ports: ports}
}

// Handle implements engine.Output[probes.NmapTarget, *scanning.ScanResult].
func (s *ScanResultSink) Handle(records []engine.Record[probes.NmapTarget, *scanning.ScanResult]) {
	ctx := context.Background()

	for _, rec := range records {
		switch rec.Signal.Kind {
		case engine.SignalSuccess:
			s.persist(ctx, rec)
		case engine.SignalError:
			logging.Warn("workers: scan job failed",
				"job_id", rec.Meta.ID.String(),
				"kind", rec.Signal.Err.Kind,
				"cause", rec.Signal.Err.Cause)
		case engine.SignalRetry, engine.SignalStash, engine.SignalDrop:
			// Nothing to persist yet; the pool already re-queued or dropped it.
		}
	}
}

func (s *ScanResultSink) persist(ctx context.Context, rec engine.Record[probes.NmapTarget, *scanning.ScanResult]) {
	result := rec.Signal.Resp
	if result == nil {
		return
	}

	for _, h := range result.Hosts {
		host := &db.Host{
			IPAddress: db.IPAddr{IP: parseHostIP(h.Address)},
			Status:    h.Status,
		}

		if err := s.hosts.CreateOrUpdate(ctx, host); err != nil {
			logging.Error("workers: failed to persist host",
				"address", h.Address, "error", err)
			continue
		}

		scans := make([]*db.PortScan, 0, len(h.Ports))
		for _, p := range h.Ports {
			scan := &db.PortScan{
				JobID:    rec.Meta.ID,
				HostID:   host.ID,
				Port:     int(p.Number),
				Protocol: p.Protocol,
				State:    p.State,
			}
			if p.Service != "" {
				scan.ServiceName = &p.Service
			}
			if p.Version != "" {
				scan.ServiceVersion = &p.Version
			}
			scans = append(scans, scan)
		}

		if len(scans) == 0 {
			continue
		}
		if err := s.ports.CreateBatch(ctx, scans); err != nil {
			logging.Error("workers: failed to persist port scans",
				"host_id", host.ID.String(), "error", err)
		}
	}
}

// parseHostIP resolves a scanning.Host.Address (which may be a bare
// hostname when nmap couldn't reverse-resolve it) to a net.IP, falling back
// to a zero IP rather than failing the whole persist on an unparsable
// address.
func parseHostIP(address string) net.IP {
	if ip := net.ParseIP(address); ip != nil {
		return ip
	}
	if ips, err := net.LookupIP(address); err == nil && len(ips) > 0 {
		return ips[0]
	}
	return net.IPv4zero
}
