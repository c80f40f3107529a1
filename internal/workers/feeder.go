package workers

import (
	"context"
	"sync"

	"github.com/anstrom/probeforge/internal/db"
	"github.com/anstrom/probeforge/internal/logging"
	"github.com/anstrom/probeforge/internal/probes"
)

// TargetFeeder adapts db.ScanTargetRepository into an engine.Feeder,
// pulling every enabled scan target once per run and handing them to the
// probe engine as NmapTarget states.
//
// GenerateChunk/Done satisfy engine.Feeder[probes.NmapTarget] structurally;
// this file does not import internal/engine, though output.go in the same
// package does.
type TargetFeeder struct {
	repo *db.ScanTargetRepository

	mu     sync.Mutex
	loaded bool
	queue  []probes.NmapTarget
}

// NewTargetFeeder builds a feeder reading from repo.
func NewTargetFeeder(repo *db.ScanTargetRepository) *TargetFeeder {
	return &TargetFeeder{repo: repo}
}

// GenerateChunk appends up to max pending targets into out, loading the
// full enabled-target set from the database on first call.
func (f *TargetFeeder) GenerateChunk(out *[]probes.NmapTarget, max int) int {
	f.mu.Lock()
	defer f.mu.Unlock()

	if !f.loaded {
		targets, err := f.repo.GetEnabled(context.Background())
		if err != nil {
			logging.Error("workers: failed to load scan targets", "error", err)
			f.loaded = true
			return 0
		}
		f.queue = make([]probes.NmapTarget, 0, len(targets))
		for _, t := range targets {
			f.queue = append(f.queue, probes.NmapTarget{
				Host:     t.Network.String(),
				Ports:    t.ScanPorts,
				ScanType: t.ScanType,
			})
		}
		f.loaded = true
	}

	if max <= 0 || len(f.queue) == 0 {
		return 0
	}
	if max > len(f.queue) {
		max = len(f.queue)
	}

	*out = append(*out, f.queue[:max]...)
	f.queue = f.queue[max:]
	return max
}

// Done reports whether every enabled target has been handed out.
func (f *TargetFeeder) Done() bool {
	f.mu.Lock()
	defer f.mu.Unlock()
	return f.loaded && len(f.queue) == 0
}
