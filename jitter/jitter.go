// Package jitter randomizes backoff delays so that many clients retrying the
// same dependency do not wake up in lockstep.
//
// Five strategies are provided, each available as a standalone function
// ([EqualJitter], [FullJitter], [FixedJitter], [RandomJitter],
// [DecorrelatedJitter]) and through [Apply], which dispatches on a [Config]
// value. Every result is an amount that is added to the base wait, not a
// replacement for it.
//
// Inputs are validated before computing and the result is checked against the
// strategy's documented range afterwards. Bad inputs produce a [*ConfigError];
// a result outside its range produces a [*InvariantError].
package jitter

import (
	"fmt"
	"math/rand/v2"
	"time"
)

// Source yields uniformly distributed values in [0, 1).
// *rand.Rand from math/rand/v2 satisfies it.
type Source interface {
	Float64() float64
}

type globalSource struct{}

func (globalSource) Float64() float64 { return rand.Float64() }

// Global is the process-wide source used when a nil Source is passed. It is
// safe for concurrent use.
var Global Source = globalSource{}

func sourceOrGlobal(src Source) Source {
	if src == nil {
		return Global
	}
	return src
}

// Config selects a jitter strategy and carries its parameters. The set of
// implementations is closed: None, Equal, Full, Fixed, Random, Decorrelated.
type Config interface {
	// Name returns the strategy name used in errors and telemetry.
	Name() string
	sealed()
}

// None adds no jitter.
type None struct{}

// Equal keeps half of the base wait and randomizes the other half.
type Equal struct{}

// Full picks a uniformly random amount in [Min, Max).
type Full struct {
	Min time.Duration
	Max time.Duration
}

// Fixed subtracts a constant Amount from the base wait, floored at zero.
type Fixed struct {
	Amount time.Duration
}

// Random spreads the base wait by ±Fraction (0..1).
type Random struct {
	Fraction float64
}

// Decorrelated grows from the previous jittered delay (up to three times it)
// and is capped at MaxDelay.
type Decorrelated struct {
	MaxDelay time.Duration
}

func (None) Name() string         { return "none" }
func (Equal) Name() string        { return "equal" }
func (Full) Name() string         { return "full" }
func (Fixed) Name() string        { return "fixed" }
func (Random) Name() string       { return "random" }
func (Decorrelated) Name() string { return "decorrelated" }

func (None) sealed()         {}
func (Equal) sealed()        {}
func (Full) sealed()         {}
func (Fixed) sealed()        {}
func (Random) sealed()       {}
func (Decorrelated) sealed() {}

// Apply computes the jitter amount for cfg. base is the un-jittered wait for
// the current attempt and prev is the jitter amount returned for the previous
// attempt (0 on the first retry); only Decorrelated reads prev. A nil cfg or
// None yields 0.
func Apply(cfg Config, base, prev time.Duration, src Source) (time.Duration, error) {
	cfg = deref(cfg)
	if cfg == nil {
		return 0, nil
	}
	return guard(cfg.Name(), func() (time.Duration, error) {
		switch c := cfg.(type) {
		case None:
			return 0, nil
		case Equal:
			return EqualJitter(base, src)
		case Full:
			return FullJitter(c.Min, c.Max, src)
		case Fixed:
			return FixedJitter(base, c.Amount)
		case Random:
			return RandomJitter(base, c.Fraction, src)
		case Decorrelated:
			return DecorrelatedJitter(base, c.MaxDelay, prev, src)
		default:
			return 0, fmt.Errorf("unhandled jitter config %T", cfg)
		}
	})
}

// deref turns pointer variants into values so Apply only switches on values.
// A nil pointer counts as no config.
func deref(cfg Config) Config {
	switch c := cfg.(type) {
	case *None:
		if c != nil {
			return *c
		}
	case *Equal:
		if c != nil {
			return *c
		}
	case *Full:
		if c != nil {
			return *c
		}
	case *Fixed:
		if c != nil {
			return *c
		}
	case *Random:
		if c != nil {
			return *c
		}
	case *Decorrelated:
		if c != nil {
			return *c
		}
	default:
		return cfg
	}
	return nil
}
