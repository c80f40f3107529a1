package engine

import (
	"time"

	"github.com/google/uuid"
)

// JobMeta is per-target bookkeeping the pool maintains while a target is
// pending. It is created on insertion and destroyed when the job reports
// terminal success or exceeds MaxRetries.
type JobMeta struct {
	ID         uuid.UUID
	Attempt    uint32
	MaxRetries uint32
	TTL        time.Duration
	NextFireIn time.Duration
	insertedAt time.Time
}

// NewJobMeta creates bookkeeping for a freshly-inserted target.
func NewJobMeta(ttl, fireIn time.Duration, maxRetries uint32) JobMeta {
	return JobMeta{
		ID:         uuid.New(),
		Attempt:    0,
		MaxRetries: maxRetries,
		TTL:        ttl,
		NextFireIn: fireIn,
		insertedAt: time.Now(),
	}
}

// ExhaustedRetries reports whether meta has used up its allotted attempts.
func (m JobMeta) ExhaustedRetries() bool {
	return m.Attempt >= m.MaxRetries
}
