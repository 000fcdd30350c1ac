// Package backoff maps an attempt number to the un-jittered wait that
// precedes the next retry. It is pure and has no state.
package backoff

import (
	"math"
	"strings"
	"time"
)

// Strategy selects how the wait grows between attempts.
type Strategy string

const (
	// Exponential doubles the wait on every attempt: base * 2^(attempt-1).
	Exponential Strategy = "exponential"
	// Linear grows the wait by base on every attempt: base * attempt.
	Linear Strategy = "linear"
	// Fixed always waits base.
	Fixed Strategy = "fixed"
)

// String returns the strategy name.
func (s Strategy) String() string { return string(s) }

// maxShift keeps 1<<shift inside an int64.
const maxShift = 62

// ParseStrategy maps a strategy name (case-insensitive) to a Strategy.
// Unknown names resolve to Fixed; they are not reported as errors.
func ParseStrategy(name string) Strategy {
	switch Strategy(strings.ToLower(strings.TrimSpace(name))) {
	case Exponential:
		return Exponential
	case Linear:
		return Linear
	default:
		return Fixed
	}
}

// Delay returns the wait before the retry that follows the given attempt
// (1-indexed). Attempts below 1 are treated as 1 and a negative base yields 0.
// Any strategy other than Exponential or Linear behaves like Fixed. Results
// saturate at the largest representable duration.
func Delay(base time.Duration, attempt int, s Strategy) time.Duration {
	switch s {
	case Exponential:
		return ExponentialDelay(base, attempt)
	case Linear:
		return LinearDelay(base, attempt)
	default:
		return FixedDelay(base, attempt)
	}
}

// ExponentialDelay returns base * 2^(attempt-1).
func ExponentialDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	shift := max(attempt, 1) - 1
	if shift > maxShift {
		return time.Duration(math.MaxInt64)
	}
	return mulSat(base, int64(1)<<shift)
}

// LinearDelay returns base * attempt.
func LinearDelay(base time.Duration, attempt int) time.Duration {
	if base <= 0 {
		return 0
	}
	return mulSat(base, int64(max(attempt, 1)))
}

// FixedDelay returns base regardless of attempt.
func FixedDelay(base time.Duration, _ int) time.Duration {
	if base <= 0 {
		return 0
	}
	return base
}

// mulSat multiplies d by a positive factor, saturating instead of overflowing.
func mulSat(d time.Duration, factor int64) time.Duration {
	if int64(d) > math.MaxInt64/factor {
		return time.Duration(math.MaxInt64)
	}
	return d * time.Duration(factor)
}
