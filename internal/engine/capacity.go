package engine

import "golang.org/x/sys/unix"

// Boundary is the upper bound on concurrent in-flight tasks: either a hard
// Limited ceiling or Unlimited (no throttling applied).
type Boundary struct {
	limited bool
	limit   int
}

// Limited constructs a bounded Boundary.
func Limited(n int) Boundary { return Boundary{limited: true, limit: n} }

// Unlimited constructs an unbounded Boundary.
func Unlimited() Boundary { return Boundary{} }

// IsLimited reports whether the boundary carries a ceiling.
func (b Boundary) IsLimited() bool { return b.limited }

// Limit returns the ceiling value; only meaningful when IsLimited is true.
func (b Boundary) Limit() int { return b.limit }

// WithReserve returns a new Boundary with reserve subtracted from a Limited
// ceiling (for stdio, logging, and DNS sockets); Unlimited passes through
// unchanged. The result is never negative.
func (b Boundary) WithReserve(reserve int) Boundary {
	if !b.limited {
		return b
	}
	n := b.limit - reserve
	if n < 0 {
		n = 0
	}
	return Limited(n)
}

// GetMaxFD consults the OS soft file-descriptor limit and returns a Limited
// boundary, or Unlimited if the kernel reports no ceiling (RLIM_INFINITY).
func GetMaxFD() (Boundary, error) {
	var rlimit unix.Rlimit
	if err := unix.Getrlimit(unix.RLIMIT_NOFILE, &rlimit); err != nil {
		return Boundary{}, err
	}
	if rlimit.Cur == unix.RLIM_INFINITY {
		return Unlimited(), nil
	}
	return Limited(int(rlimit.Cur)), nil
}
