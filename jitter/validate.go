package jitter

import (
	"errors"
	"fmt"
	"math"
	"time"
)

var (
	// ErrInvalidConfig is matched by every *ConfigError.
	ErrInvalidConfig = errors.New("invalid jitter config")

	// ErrInvariant is matched by every *InvariantError.
	ErrInvariant = errors.New("jitter invariant violated")
)

// ConfigError reports a jitter input outside its allowed domain. It is a
// caller mistake and is never retried.
type ConfigError struct {
	Variant string
	Field   string
	Value   any
	Reason  string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("jitter: invalid %s config: %s=%v %s", e.Variant, e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

// InvariantError reports a computed jitter amount that falls outside the
// documented range of its strategy. It points at a defect in the computation
// (or in the Source), not at the caller's configuration.
type InvariantError struct {
	Variant string
	Result  float64
	Reason  string
}

func (e *InvariantError) Error() string {
	if math.IsNaN(e.Result) || math.IsInf(e.Result, 0) || math.Abs(e.Result) >= math.MaxInt64 {
		return fmt.Sprintf("jitter: %s result %gns %s", e.Variant, e.Result, e.Reason)
	}
	return fmt.Sprintf("jitter: %s result %v %s", e.Variant, time.Duration(e.Result), e.Reason)
}

// Is reports whether target is ErrInvariant.
func (e *InvariantError) Is(target error) bool { return target == ErrInvariant }

func nonNegative(variant, field string, d time.Duration) error {
	if d < 0 {
		return &ConfigError{Variant: variant, Field: field, Value: d, Reason: "must not be negative"}
	}
	return nil
}

func finiteFraction(variant, field string, f float64) error {
	switch {
	case math.IsNaN(f) || math.IsInf(f, 0):
		return &ConfigError{Variant: variant, Field: field, Value: f, Reason: "must be finite"}
	case f < 0:
		return &ConfigError{Variant: variant, Field: field, Value: f, Reason: "must not be negative"}
	case f > 1:
		return &ConfigError{Variant: variant, Field: field, Value: f, Reason: "must be within [0, 1]"}
	}
	return nil
}

func firstErr(errs ...error) error {
	for _, err := range errs {
		if err != nil {
			return err
		}
	}
	return nil
}

// slack absorbs float rounding when comparing against range bounds.
func slack(lo, hi float64) float64 {
	return max(math.Abs(lo), math.Abs(hi))*1e-12 + 0.5
}

// checkResult verifies x is a finite, non-negative amount inside [lo, hi] and
// converts it to a Duration. Values beyond the Duration range saturate.
func checkResult(variant string, x, lo, hi float64) (time.Duration, error) {
	if math.IsNaN(x) || math.IsInf(x, 0) {
		return 0, &InvariantError{Variant: variant, Result: x, Reason: "is not finite"}
	}
	if x < 0 {
		return 0, &InvariantError{Variant: variant, Result: x, Reason: "is negative"}
	}
	s := slack(lo, hi)
	if x < lo-s || x > hi+s {
		return 0, &InvariantError{
			Variant: variant,
			Result:  x,
			Reason:  fmt.Sprintf("is outside [%v, %v]", time.Duration(lo), time.Duration(hi)),
		}
	}
	x = min(max(x, lo), hi)
	if x >= math.MaxInt64 {
		return time.Duration(math.MaxInt64), nil
	}
	return time.Duration(x), nil
}

// guard runs fn and normalizes what comes out of it. ConfigError and
// InvariantError values pass through untouched; any other error, or a panic
// raised while computing (typically by a Source), is wrapped with the
// variant name.
func guard(variant string, fn func() (time.Duration, error)) (d time.Duration, err error) {
	defer func() {
		if r := recover(); r != nil {
			rerr, ok := r.(error)
			if !ok {
				rerr = fmt.Errorf("%v", r)
			}
			d, err = 0, wrap(variant, rerr)
		}
	}()
	d, err = fn()
	if err != nil {
		return 0, wrap(variant, err)
	}
	return d, nil
}

func wrap(variant string, err error) error {
	var ce *ConfigError
	var ie *InvariantError
	if errors.As(err, &ce) || errors.As(err, &ie) {
		return err
	}
	return fmt.Errorf("jitter %s: %w", variant, err)
}
