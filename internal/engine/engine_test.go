package engine

import (
	"context"
	"testing"
	"time"

	"github.com/google/uuid"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type noopResponse struct{}

// noopJob always succeeds immediately, matching original_source's
// scheduler/src/schedule/test.rs `noop::Worker`.
type noopJob struct{}

func (noopJob) Exec(_ context.Context, _ int) (Signal[noopResponse], error) {
	return Success(VerdictOpen, noopResponse{}), nil
}

func newNoopPool(jobCount int, ttl time.Duration, maxRetries uint32) *Pool[int, noopResponse] {
	pool := NewPool[int, noopResponse](noopJob{}, Limited(16384), PoolConfig{
		DefaultTTL:        ttl,
		DefaultMaxRetries: maxRetries,
	}, func() noopResponse { return noopResponse{} })

	for i := 0; i < jobCount; i++ {
		pool.Insert(i, ttl, 0, maxRetries)
	}
	return pool
}

func drainUntil[T any, R any](t *testing.T, pool *Pool[T, R], buf *[]Item[T], want int, timeout time.Duration) []Record[T, R] {
	t.Helper()
	deadline := time.Now().Add(timeout)
	var all []Record[T, R]

	for len(all) < want && time.Now().Before(deadline) {
		all = append(all, pool.Tick(buf)...)
		if len(all) < want {
			time.Sleep(10 * time.Millisecond)
		}
	}
	return all
}

// Scenario 1: single in, single out.
func TestSingleInSingleOut(t *testing.T) {
	pool := newNoopPool(1, 100*time.Second, 3)

	var buf []Item[int]
	released := pool.ReleaseReady(&buf)
	require.Equal(t, 1, released)

	pool.Spawn(&buf)
	require.Empty(t, buf)

	records := drainUntil(t, pool, &buf, 1, 5*time.Second)
	require.Len(t, records, 1)
	assert.Equal(t, SignalSuccess, records[0].Signal.Kind)
}

// Scenario 2: all in, all out; bank empty at end.
func TestAllInAllOut(t *testing.T) {
	const jobCount = 100
	pool := newNoopPool(jobCount, 100*time.Second, 3)

	var buf []Item[int]
	released := pool.ReleaseReady(&buf)
	require.Equal(t, jobCount, released)
	require.Empty(t, pool.bank)

	pool.Spawn(&buf)

	records := drainUntil(t, pool, &buf, jobCount, 5*time.Second)
	require.Len(t, records, jobCount)
	require.Empty(t, pool.bank)
}

// Scenario 3: retry-now once — forces Retry on attempts 0 and 1, Success on 2.
func TestRetryNowOnce(t *testing.T) {
	const jobCount = 20

	job := JobFunc[int, noopResponse](func(_ context.Context, _ int) (Signal[noopResponse], error) {
		return Success(VerdictOpen, noopResponse{}), nil
	})

	pool := NewPool[int, noopResponse](job, Limited(16384), PoolConfig{
		DefaultTTL:        100 * time.Second,
		DefaultMaxRetries: 3,
		MetaSubscriber: func(meta *JobMeta, kind SignalKind) SignalKind {
			if meta.Attempt < 2 {
				return SignalRetry
			}
			return kind
		},
	}, func() noopResponse { return noopResponse{} })

	for i := 0; i < jobCount; i++ {
		pool.Insert(i, 100*time.Second, 0, 3)
	}

	var buf []Item[int]
	pool.ReleaseReady(&buf)
	pool.Spawn(&buf)

	var terminal []Record[int, noopResponse]
	deadline := time.Now().Add(10 * time.Second)
	for len(terminal) < jobCount && time.Now().Before(deadline) {
		res := pool.Tick(&buf)
		for _, r := range res {
			if r.Signal.Kind == SignalSuccess {
				terminal = append(terminal, r)
			}
		}
		time.Sleep(10 * time.Millisecond)
	}

	require.Len(t, terminal, jobCount)
}

// Scenario 4: universal timeout — every job's signal is a timeout error.
func TestUniversalTimeout(t *testing.T) {
	const jobCount = 10

	// Deliberately ignores ctx: the point of this scenario is that the
	// worker's own watchdog fires the timeout signal even when the job
	// itself never notices cancellation.
	job := JobFunc[int, noopResponse](func(_ context.Context, _ int) (Signal[noopResponse], error) {
		time.Sleep(3 * time.Second)
		return Success(VerdictOpen, noopResponse{}), nil
	})

	pool := NewPool[int, noopResponse](job, Limited(16384), PoolConfig{
		DefaultTTL:        1 * time.Second,
		DefaultMaxRetries: 1,
	}, func() noopResponse { return noopResponse{} })

	for i := 0; i < jobCount; i++ {
		pool.Insert(i, 1*time.Second, 0, 1)
	}

	var buf []Item[int]
	pool.ReleaseReady(&buf)
	pool.Spawn(&buf)

	records := drainUntil(t, pool, &buf, jobCount, 8*time.Second)
	require.Len(t, records, jobCount)
	for _, r := range records {
		assert.Equal(t, SignalError, r.Signal.Kind)
		assert.Equal(t, JobErrTimeout, r.Signal.Err.Kind)
	}
	require.Empty(t, pool.bank)
}

// Scenario 5: non-blocking drain — Tick on an empty pool returns promptly.
func TestNonBlockingDrain(t *testing.T) {
	pool := newNoopPool(0, 100*time.Second, 3)

	done := make(chan struct{})
	go func() {
		var buf []Item[int]
		pool.Tick(&buf)
		close(done)
	}()

	select {
	case <-done:
	case <-time.After(2 * time.Second):
		t.Fatal("Tick blocked on an empty pool")
	}
}

// Scenario 6: fd-exhaustion stash — the job returns the Stash(5s) signal that
// Classify produces for EMFILE (see TestClassifyErrnoMapsToStash); the pool
// re-schedules it with a >=5s delay and (per the resolved Open Question) does
// not advance the attempt counter unless StashConsumesRetry is set.
func TestFdExhaustionStashDoesNotConsumeRetryByDefault(t *testing.T) {
	job := JobFunc[int, noopResponse](func(_ context.Context, _ int) (Signal[noopResponse], error) {
		return Stash[noopResponse](5 * time.Second), nil
	})

	pool := NewPool[int, noopResponse](job, Limited(16384), PoolConfig{
		DefaultTTL:        10 * time.Second,
		DefaultMaxRetries: 3,
	}, func() noopResponse { return noopResponse{} })

	pool.Insert(1, 10*time.Second, 0, 3)

	var buf []Item[int]
	pool.ReleaseReady(&buf)
	pool.Spawn(&buf)

	start := time.Now()
	deadline := start.Add(1 * time.Second)
	for time.Now().Before(deadline) && len(pool.stash) == 0 {
		pool.Tick(&buf)
		time.Sleep(10 * time.Millisecond)
	}

	require.Len(t, pool.stash, 1)
	assert.Equal(t, uint32(0), pool.stash[0].meta.Attempt)
	assert.True(t, pool.stash[0].readyAt.Sub(start) >= 4*time.Second)
}

func TestFdExhaustionStashConsumesRetryWhenConfigured(t *testing.T) {
	job := JobFunc[int, noopResponse](func(_ context.Context, _ int) (Signal[noopResponse], error) {
		return Stash[noopResponse](5 * time.Second), nil
	})

	pool := NewPool[int, noopResponse](job, Limited(16384), PoolConfig{
		DefaultTTL:         10 * time.Second,
		DefaultMaxRetries:  3,
		StashConsumesRetry: true,
	}, func() noopResponse { return noopResponse{} })

	pool.Insert(1, 10*time.Second, 0, 3)

	var buf []Item[int]
	pool.ReleaseReady(&buf)
	pool.Spawn(&buf)

	deadline := time.Now().Add(1 * time.Second)
	for time.Now().Before(deadline) && len(pool.stash) == 0 {
		pool.Tick(&buf)
		time.Sleep(10 * time.Millisecond)
	}

	require.Len(t, pool.stash, 1)
	assert.Equal(t, uint32(1), pool.stash[0].meta.Attempt)
}

func TestClassifyErrnoMapsToStash(t *testing.T) {
	sig := ClassifyJobErr[noopResponse](JobErr{Kind: JobErrErrno, Errno: 24}, noopResponse{})
	require.Equal(t, SignalStash, sig.Kind)
	assert.Equal(t, 5*time.Second, sig.Delay)
}

func TestDelayTimerOrdering(t *testing.T) {
	timer := NewDelayTimer()
	first := uuid.New()
	second := uuid.New()

	// Inserted in reverse fire order; DrainReady must still release the
	// earlier-firing entry first once both are ripe.
	timer.Insert(second, 20*time.Millisecond)
	timer.Insert(first, 5*time.Millisecond)

	var ids []uuid.UUID
	deadline := time.Now().Add(200 * time.Millisecond)
	for len(ids) < 2 && time.Now().Before(deadline) {
		timer.DrainReady(&ids)
		time.Sleep(2 * time.Millisecond)
	}

	require.Len(t, ids, 2)
	assert.Equal(t, first, ids[0])
	assert.Equal(t, second, ids[1])
}

func TestDelayTimerNonBlockingWhenEmpty(t *testing.T) {
	timer := NewDelayTimer()
	var ids []uuid.UUID
	n := timer.DrainReady(&ids)
	assert.Equal(t, 0, n)
	assert.Empty(t, ids)
}
