package probes

import (
	"context"

	"github.com/anstrom/probeforge/internal/db"
	"github.com/anstrom/probeforge/internal/engine"
	"github.com/anstrom/probeforge/internal/scanning"
)

// NmapTarget is the per-job state an NmapScanJob consumes: a single target
// plus the port/scan-type options shared by every job a Pool spawns for it.
type NmapTarget struct {
	Host     string
	Ports    string
	ScanType string
}

// NmapScanJob wraps one internal/scanning nmap run as an engine.Job, so a
// single-target discovery run can be scheduled, retried, and throttled
// through the same probe engine as the lighter protocol probes.
type NmapScanJob struct {
	database *db.DB
}

// NewNmapScanJob builds a job storing results via database when non-nil.
func NewNmapScanJob(database *db.DB) NmapScanJob {
	return NmapScanJob{database: database}
}

// Exec implements engine.Job[NmapTarget, *scanning.ScanResult].
func (j NmapScanJob) Exec(ctx context.Context, target NmapTarget) (engine.Signal[*scanning.ScanResult], error) {
	cfg := &scanning.ScanConfig{
		Targets:  []string{target.Host},
		Ports:    target.Ports,
		ScanType: target.ScanType,
	}

	result, err := scanning.RunScanWithContext(ctx, cfg, j.database)
	if err != nil {
		return engine.Classify[*scanning.ScanResult](err, nil), nil
	}

	verdict := engine.VerdictClosed
	if len(result.Hosts) > 0 {
		verdict = engine.VerdictOpen
	}
	return engine.Success(verdict, result), nil
}
