package engine

import (
	"errors"
	"net"
	"syscall"
	"time"

	"github.com/anstrom/probeforge/internal/logging"
)

// stashBackoff is the delay applied to resource-exhaustion style errno
// classes so the file-descriptor budget has a chance to recover.
const stashBackoff = 5 * time.Second

// Classify maps a low-level IO failure from a job's Exec into a Signal.
// Transport refusals (reset, refused, timed out) are treated as an
// authoritative negative result rather than a retryable failure; raw errno
// values that indicate resource exhaustion (EMFILE, ENETUNREACH, EHOSTUNREACH,
// ENOPROTOOPT) back off instead of burning a retry attempt; anything else
// unclassified gets one more chance.
func Classify[R any](err error, closedResp R) Signal[R] {
	if err == nil {
		return Success(VerdictClosed, closedResp)
	}

	var netErr net.Error
	if errors.As(err, &netErr) && netErr.Timeout() {
		return Success(VerdictClosed, closedResp)
	}

	if errors.Is(err, syscall.ECONNABORTED) ||
		errors.Is(err, syscall.ECONNRESET) ||
		errors.Is(err, syscall.ECONNREFUSED) {
		return Success(VerdictClosed, closedResp)
	}

	var errno syscall.Errno
	if errors.As(err, &errno) {
		switch errno {
		case syscall.ENETUNREACH, syscall.EHOSTUNREACH, syscall.ENOPROTOOPT, syscall.EMFILE:
			return Stash[R](stashBackoff)
		default:
			logging.Warn("engine: unclassified errno", "errno", int(errno))
			return Success(VerdictClosed, closedResp)
		}
	}

	logging.Warn("engine: unclassified error, retrying", "error", err)
	return Retry[R]()
}

// ClassifyJobErr re-applies Classify to the Cause wrapped in a JobErr,
// matching the pool's "route IO errors through classify" result policy
// (spec §4.4). Non-IO JobErr kinds pass through as a terminal error signal.
func ClassifyJobErr[R any](e JobErr, closedResp R) Signal[R] {
	switch e.Kind {
	case JobErrIO:
		if e.Cause != nil {
			return Classify(e.Cause, closedResp)
		}
		return Success(VerdictClosed, closedResp)
	case JobErrErrno:
		switch e.Errno {
		case int(syscall.ENETUNREACH), int(syscall.EHOSTUNREACH), int(syscall.ENOPROTOOPT), int(syscall.EMFILE):
			return Stash[R](stashBackoff)
		default:
			logging.Warn("engine: unclassified errno", "errno", e.Errno)
			return Success(VerdictClosed, closedResp)
		}
	case JobErrTimeout:
		return ErrorSignal[R](e)
	case JobErrTaskFailed, JobErrOther:
		return ErrorSignal[R](e)
	default:
		return Retry[R]()
	}
}
