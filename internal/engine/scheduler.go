package engine

import (
	"time"

	"github.com/anstrom/probeforge/internal/logging"
)

// Chunk is the maximum number of targets pulled from a Feeder in one pass
// (spec §4.5).
const Chunk = 4000

// TickInterval is the cooperative yield the scheduler sleeps for after
// every pass (spec §4.5 "500ns cooperative yield"); see
// RunConfig.TickInterval to override.
const TickInterval = 500 * time.Nanosecond

// Feeder produces targets to scan. GenerateChunk appends up to max targets
// into out and returns the number appended; Done reports whether the feeder
// has no more targets to produce (spec's external "Feeder" collaborator —
// CIDR expansion and enumeration live outside the engine).
type Feeder[T any] interface {
	GenerateChunk(out *[]T, max int) int
	Done() bool
}

// Output consumes terminal records (spec §6 "Output-side interface").
type Output[T any, R any] interface {
	Handle(records []Record[T, R])
}

// RunConfig tunes the scheduler loop.
type RunConfig struct {
	ChunkSize    int
	TickInterval time.Duration
}

// DefaultRunConfig returns the scheduler defaults named in spec §4.5.
func DefaultRunConfig() RunConfig {
	return RunConfig{ChunkSize: Chunk, TickInterval: TickInterval}
}

// Run drives pool from feeder until the feeder is exhausted and no work
// remains in flight, handing every tick's terminal records to out.
//
// The interleave mirrors spec §4.5: stash-before-feed keeps deferred
// targets from starving behind fresh input; the tick sleep after every pass
// yields to the running jobs; termination is gated on the pool's
// in-flight counter reaching its idle value (JobCount()==1), matching the
// "only the pool's own writer handle remains" condition — realized here via
// Worker's explicit atomic counter rather than a shared-handle refcount
// (spec §9 redesign note).
func Run[T any, R any](pool *Pool[T, R], feeder Feeder[T], out Output[T, R], cfg RunConfig) {
	if cfg.ChunkSize <= 0 {
		cfg.ChunkSize = Chunk
	}
	if cfg.TickInterval <= 0 {
		cfg.TickInterval = TickInterval
	}

	var queued []Item[T]

	for {
		if !feeder.Done() {
			fireFromFeeder(pool, &queued, feeder, cfg.ChunkSize)
		}

		results := pool.Tick(&queued)
		out.Handle(results)

		if len(queued) == 0 && feeder.Done() && pool.JobCount() == 1 {
			break
		}
		time.Sleep(cfg.TickInterval)
	}

	out.Handle(pool.FlushChannel())
}

// fireFromFeeder pulls a chunk from feeder, prefers releasing stashed
// targets over fresh input against the available spawn allowance, tops up
// with fresh input only if the stash didn't cover the allowance, and fires.
func fireFromFeeder[T any, R any](pool *Pool[T, R], queued *[]Item[T], feeder Feeder[T], chunkSize int) int {
	var fresh []T
	feeder.GenerateChunk(&fresh, chunkSize)
	for _, t := range fresh {
		*queued = append(*queued, pool.Fresh(t))
	}

	alloc := pool.CalcNewSpawns(len(*queued))
	if alloc <= 0 {
		return 0
	}

	released := pool.FlushStash(queued)
	if released < alloc && !feeder.Done() {
		need := alloc - released
		var topUp []T
		feeder.GenerateChunk(&topUp, need)
		for _, t := range topUp {
			*queued = append(*queued, pool.Fresh(t))
		}
	}

	logging.Debug("engine: scheduler pass", "queued", len(*queued), "alloc", alloc, "released", released)
	return pool.Spawn(queued)
}
