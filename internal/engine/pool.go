package engine

import (
	"context"
	"time"

	"github.com/google/uuid"

	"github.com/anstrom/probeforge/internal/errors"
	"github.com/anstrom/probeforge/internal/logging"
)

// Item pairs a target's domain state with its scheduling bookkeeping. It is
// the unit of work that flows through Worker and Pool; Job implementations
// only ever see the State field, via Pool's internal adapter.
//
// Go's generics give value types, not Rust's ownership-tracked moves, so
// spec's bare "S moves through the system" is realized here by threading an
// Item[T] (still copied by value, never aliased) instead of maintaining a
// side id->meta map that every caller of Worker would otherwise need to
// consult.
type Item[T any] struct {
	Meta  JobMeta
	State T
}

// Record is one terminal record handed to the caller-supplied Output sink:
// the meta that produced it, its control outcome, and the state/response
// pair (spec §6 "Output-side interface").
type Record[T any, R any] struct {
	Meta   JobMeta
	Signal Signal[R]
	State  T
}

// PoolConfig resolves the two Open Questions left in spec §9 and supplies
// the defaults Pool.Fresh uses to bookkeep targets handed in directly from a
// Feeder (which carry no explicit ttl/max_retries of their own).
type PoolConfig struct {
	DefaultTTL        time.Duration
	DefaultMaxRetries uint32

	// StashConsumesRetry selects whether a Stash signal advances
	// meta.Attempt. Spec treats stash as not consuming by default.
	StashConsumesRetry bool

	// MetaSubscriber, if set, may override a signal's kind post-hoc before
	// the result policy runs. At most one hook is supported (spec §9:
	// "leave as a single-handler hook until the contract is pinned down").
	MetaSubscriber func(meta *JobMeta, kind SignalKind) SignalKind

	// Instrumentation receives spawn/drop/retry/stash observations. Nil
	// defaults to a no-op.
	Instrumentation Instrumentation
}

type stashed[T any] struct {
	meta    JobMeta
	state   T
	readyAt time.Time
}

// itemJob adapts a user Job[T, R] so it can run as a Worker's Job over
// Item[T], forwarding only the State field.
type itemJob[T any, R any] struct {
	inner Job[T, R]
}

func (j itemJob[T, R]) Exec(ctx context.Context, it Item[T]) (Signal[R], error) {
	return j.inner.Exec(ctx, it.State)
}

// Pool layers stash and retry semantics on top of a Worker: a bank of
// timer-held pending jobs, a stash list for deferred targets, and an
// immediate-retry list.
type Pool[T any, R any] struct {
	worker *Worker[Item[T], R]
	timer  *DelayTimer
	cfg    PoolConfig

	bank  map[uuid.UUID]Item[T]
	stash []stashed[T]
	retry []Item[T]

	closedResp func() R
}

// NewPool constructs a Pool running job through a throttled worker.
// closedResp builds the zero/default response value used when Classify
// resolves a failure to Success(Closed, ...) without job itself producing
// one.
func NewPool[T any, R any](job Job[T, R], throttle Boundary, cfg PoolConfig, closedResp func() R) *Pool[T, R] {
	if cfg.Instrumentation == nil {
		cfg.Instrumentation = noopInstrumentation{}
	}
	worker := NewWorker[Item[T], R](itemJob[T, R]{inner: job}, throttle, cfg.DefaultTTL)
	return &Pool[T, R]{
		worker:     worker,
		timer:      NewDelayTimer(),
		cfg:        cfg,
		bank:       make(map[uuid.UUID]Item[T]),
		closedResp: closedResp,
	}
}

// Fresh wraps a target handed in directly from a Feeder with bookkeeping
// built from the pool's configured defaults. It is not placed in the bank:
// it is meant to be fired on the very next spawn, not timer-deferred.
func (p *Pool[T, R]) Fresh(state T) Item[T] {
	return Item[T]{Meta: NewJobMeta(p.cfg.DefaultTTL, 0, p.cfg.DefaultMaxRetries), State: state}
}

// Insert creates bookkeeping for state, places it in the bank, and arms a
// timer entry at now+fireIn.
func (p *Pool[T, R]) Insert(state T, ttl, fireIn time.Duration, maxRetries uint32) JobMeta {
	meta := NewJobMeta(ttl, fireIn, maxRetries)
	p.bank[meta.ID] = Item[T]{Meta: meta, State: state}
	p.timer.Insert(meta.ID, fireIn)
	return meta
}

// ReleaseReady drains all timer entries whose delay has elapsed, moving
// their Item out of the bank into out. Non-blocking. Timer entries whose
// bank row is already gone are silently skipped — the bank/timer invariant
// only holds at quiescent points between ticks, not mid-release.
func (p *Pool[T, R]) ReleaseReady(out *[]Item[T]) int {
	var ids []uuid.UUID
	p.timer.DrainReady(&ids)

	n := 0
	for _, id := range ids {
		it, ok := p.bank[id]
		if !ok {
			continue
		}
		delete(p.bank, id)
		*out = append(*out, it)
		n++
	}
	return n
}

// FlushStash appends all stash entries whose readyAt has elapsed into out
// and returns the count released.
func (p *Pool[T, R]) FlushStash(out *[]Item[T]) int {
	now := time.Now()
	remaining := p.stash[:0]
	n := 0

	for _, s := range p.stash {
		if !s.readyAt.After(now) {
			*out = append(*out, Item[T]{Meta: s.meta, State: s.state})
			n++
			continue
		}
		remaining = append(remaining, s)
	}
	p.stash = remaining
	return n
}

// CalcNewSpawns delegates to the Worker.
func (p *Pool[T, R]) CalcNewSpawns(queuedLen int) int {
	return p.worker.CalcNewSpawns(queuedLen)
}

// JobCount delegates to the Worker.
func (p *Pool[T, R]) JobCount() int {
	return p.worker.JobCount()
}

// Spawn feeds any pending immediate retries ahead of buf, then fires as
// many items as the throttle allows.
func (p *Pool[T, R]) Spawn(buf *[]Item[T]) int {
	if len(p.retry) > 0 {
		*buf = append(p.retry, *buf...)
		p.retry = nil
	}
	n := p.worker.FireJobs(buf)
	if n > 0 {
		p.cfg.Instrumentation.Spawned(n)
	}
	p.cfg.Instrumentation.InFlight(p.worker.JobCount() - 1)
	return n
}

// Tick performs ReleaseReady, Spawn, then DrainResults in that order, and
// applies the result policy to each completed (Signal, Item) pair.
func (p *Pool[T, R]) Tick(buf *[]Item[T]) []Record[T, R] {
	start := time.Now()
	p.ReleaseReady(buf)
	p.Spawn(buf)
	records := p.applyResults(p.worker.DrainResults())
	p.cfg.Instrumentation.TickDuration(time.Since(start))
	return records
}

// FlushChannel performs one final post-shutdown drain of any residual
// results, without releasing the timer or spawning new work.
func (p *Pool[T, R]) FlushChannel() []Record[T, R] {
	return p.applyResults(p.worker.DrainResults())
}

func (p *Pool[T, R]) applyResults(results []entry[Item[T], R]) []Record[T, R] {
	out := make([]Record[T, R], 0, len(results))

	for _, res := range results {
		meta := res.state.Meta
		state := res.state.State
		sig := res.sig

		if sig.Kind == SignalError {
			sig = ClassifyJobErr(sig.Err, p.closedResp())
		}

		if p.cfg.MetaSubscriber != nil {
			sig.Kind = p.cfg.MetaSubscriber(&meta, sig.Kind)
		}

		switch sig.Kind {
		case SignalSuccess:
			out = append(out, Record[T, R]{Meta: meta, Signal: sig, State: state})

		case SignalDrop:
			logging.Debug("engine: job dropped", "job_id", meta.ID.String())
			p.cfg.Instrumentation.Dropped()

		case SignalRetry:
			if !meta.ExhaustedRetries() {
				meta.Attempt++
				p.retry = append(p.retry, Item[T]{Meta: meta, State: state})
				p.cfg.Instrumentation.Retried()
				continue
			}
			out = append(out, p.terminalFailure(meta, state, "max retries exceeded"))

		case SignalStash:
			if !meta.ExhaustedRetries() {
				if p.cfg.StashConsumesRetry {
					meta.Attempt++
				}
				p.stash = append(p.stash, stashed[T]{
					meta:    meta,
					state:   state,
					readyAt: time.Now().Add(sig.Delay),
				})
				p.cfg.Instrumentation.Stashed()
				continue
			}
			out = append(out, p.terminalFailure(meta, state, "max retries exceeded on stash"))

		case SignalError:
			out = append(out, Record[T, R]{Meta: meta, Signal: sig, State: state})
		}
	}

	return out
}

func (p *Pool[T, R]) terminalFailure(meta JobMeta, state T, reason string) Record[T, R] {
	cause := errors.NewEngineError(errors.CodeEngineRetriesExhausted, reason, meta.ID.String(), meta.Attempt)
	return Record[T, R]{
		Meta:   meta,
		Signal: ErrorSignal[R](JobErr{Kind: JobErrOther, Cause: cause}),
		State:  state,
	}
}
