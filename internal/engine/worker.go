package engine

import (
	"context"
	"sync/atomic"
	"time"

	"github.com/anstrom/probeforge/internal/logging"
)

// allocSize is the minimum result-ring pre-allocation, chosen to avoid
// resize cost during a burst of completions (spec §4.3).
const allocSize = 16384

// Worker bounds the number of in-flight tasks, enforces a per-task TTL, and
// collects completed (Signal, S) pairs into a shared result ring.
//
// Liveness is tracked with an explicit atomic in-flight counter rather than
// the reference count of a shared writer handle — spec §9's own redesign
// note: the refcount trick "leaks an implementation detail into the
// termination predicate".
type Worker[S any, R any] struct {
	job      Job[S, R]
	throttle Boundary
	ttl      time.Duration
	ring     *resultRing[S, R]
	inFlight atomic.Int64
}

// NewWorker constructs a Worker bounded by throttle, with ttl applied to
// every spawned attempt.
func NewWorker[S any, R any](job Job[S, R], throttle Boundary, ttl time.Duration) *Worker[S, R] {
	capacity := allocSize
	if throttle.IsLimited() && throttle.Limit()+1 > capacity {
		capacity = throttle.Limit() + 1
	}

	return &Worker[S, R]{
		job:      job,
		throttle: throttle,
		ttl:      ttl,
		ring:     newResultRing[S, R](capacity),
	}
}

// JobCount returns the number of live task handles, including the worker's
// own handle. A value of 1 means no task is currently running.
func (w *Worker[S, R]) JobCount() int {
	return int(w.inFlight.Load()) + 1
}

// CalcNewSpawns returns how many items from a queue of length queuedLen may
// be spawned right now without exceeding throttle.
func (w *Worker[S, R]) CalcNewSpawns(queuedLen int) int {
	if !w.throttle.IsLimited() {
		return queuedLen
	}

	limit := w.throttle.Limit()
	running := w.JobCount()
	if running > limit {
		return 0
	}

	spawnable := limit - running
	if spawnable > queuedLen {
		spawnable = queuedLen
	}
	if spawnable < 0 {
		spawnable = 0
	}
	return spawnable
}

// FireJobs drains the first CalcNewSpawns(len(buf)) items from buf and
// spawns one cooperative task per item. Returns the number spawned.
func (w *Worker[S, R]) FireJobs(buf *[]S) int {
	n := w.CalcNewSpawns(len(*buf))
	if n <= 0 {
		return 0
	}

	batch := (*buf)[:n]
	*buf = (*buf)[n:]

	for _, state := range batch {
		w.spawn(state)
	}
	return n
}

// DrainResults refreshes the result ring, returning everything queued since
// the last drain. Non-blocking.
func (w *Worker[S, R]) DrainResults() []entry[S, R] {
	return w.ring.drain()
}

func (w *Worker[S, R]) spawn(state S) {
	w.inFlight.Add(1)
	go func() {
		defer w.inFlight.Add(-1)

		logging.Debug("engine: firing job")
		ctx, cancel := context.WithTimeout(context.Background(), w.ttl)
		defer cancel()

		sig, _ := w.runWithTimeout(ctx, state)
		logging.Debug("engine: completed job", "signal", sig.Kind.String())
		w.ring.push(sig, state)
	}()
}

func (w *Worker[S, R]) runWithTimeout(ctx context.Context, state S) (Signal[R], error) {
	type outcome struct {
		sig Signal[R]
		err error
	}
	done := make(chan outcome, 1)

	go func() {
		sig, err := w.job.Exec(ctx, state)
		done <- outcome{sig: sig, err: err}
	}()

	select {
	case o := <-done:
		if o.err != nil {
			logging.Warn("engine: job exec failed", "error", o.err)
			return ErrorSignal[R](JobErr{Kind: JobErrTaskFailed, Cause: o.err}), nil
		}
		return o.sig, nil
	case <-ctx.Done():
		return ErrorSignal[R](JobErr{Kind: JobErrTimeout, Cause: ctx.Err()}), nil
	}
}
