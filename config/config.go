// Package config loads retry settings from the environment (and an optional
// .env file) and turns them into retry options.
//
// With prefix "RETRY" the recognized variables are:
//
//	RETRY_MAX_ATTEMPTS     total attempts, >= 1 (default 3)
//	RETRY_DELAY            base delay as a Go duration (default 1s)
//	RETRY_BACKOFF          exponential | linear | fixed (default exponential)
//	RETRY_JITTER           none | equal | full | fixed | random | decorrelated
//	RETRY_JITTER_MIN       full: lower bound
//	RETRY_JITTER_MAX       full: upper bound
//	RETRY_JITTER_AMOUNT    fixed: amount subtracted from the base wait
//	RETRY_JITTER_FRACTION  random: spread in [0, 1]
//	RETRY_JITTER_MAX_DELAY decorrelated: cap
//
// The backoff name is not validated; unknown names behave like fixed, the
// same as in the backoff package.
package config

import (
	"fmt"
	"os"
	"strconv"
	"strings"
	"time"

	"github.com/Keksclan/goRawrRetry/backoff"
	"github.com/Keksclan/goRawrRetry/jitter"
	"github.com/Keksclan/goRawrRetry/retry"
	"github.com/go-playground/validator/v10"
	"github.com/joho/godotenv"
)

// Settings holds retry configuration read from the environment.
type Settings struct {
	MaxAttempts int           `validate:"gte=1"`
	Delay       time.Duration `validate:"gte=0"`
	Backoff     string
	Jitter      JitterSettings
}

// JitterSettings holds the jitter strategy and its parameters. Only the
// fields of the selected strategy are read.
type JitterSettings struct {
	Kind     string        `validate:"omitempty,oneof=none equal full fixed random decorrelated"`
	Min      time.Duration `validate:"gte=0"`
	Max      time.Duration `validate:"gte=0"`
	Amount   time.Duration `validate:"gte=0"`
	Fraction float64       `validate:"gte=0,lte=1"`
	MaxDelay time.Duration `validate:"gte=0"`
}

var validate = validator.New()

// Load reads an optional .env file from the working directory, then the
// variables named prefix + "_" + suffix, and validates the result.
func Load(prefix string) (Settings, error) {
	_ = godotenv.Load()
	return FromLookup(prefix, os.LookupEnv)
}

// FromLookup is Load with an explicit variable source and no .env handling.
func FromLookup(prefix string, lookup func(string) (string, bool)) (Settings, error) {
	env := func(suffix string) (string, bool) {
		v, ok := lookup(prefix + "_" + suffix)
		return strings.TrimSpace(v), ok && strings.TrimSpace(v) != ""
	}

	s := Settings{
		MaxAttempts: retry.DefaultMaxAttempts,
		Delay:       retry.DefaultDelay,
		Backoff:     string(retry.DefaultBackoff),
	}

	var err error
	if v, ok := env("MAX_ATTEMPTS"); ok {
		if s.MaxAttempts, err = strconv.Atoi(v); err != nil {
			return Settings{}, fmt.Errorf("config: %s_MAX_ATTEMPTS: %w", prefix, err)
		}
	}
	if v, ok := env("BACKOFF"); ok {
		s.Backoff = v
	}
	if v, ok := env("JITTER"); ok {
		s.Jitter.Kind = strings.ToLower(v)
	}
	if v, ok := env("JITTER_FRACTION"); ok {
		if s.Jitter.Fraction, err = strconv.ParseFloat(v, 64); err != nil {
			return Settings{}, fmt.Errorf("config: %s_JITTER_FRACTION: %w", prefix, err)
		}
	}

	durations := []struct {
		suffix string
		dst    *time.Duration
	}{
		{"DELAY", &s.Delay},
		{"JITTER_MIN", &s.Jitter.Min},
		{"JITTER_MAX", &s.Jitter.Max},
		{"JITTER_AMOUNT", &s.Jitter.Amount},
		{"JITTER_MAX_DELAY", &s.Jitter.MaxDelay},
	}
	for _, d := range durations {
		v, ok := env(d.suffix)
		if !ok {
			continue
		}
		if *d.dst, err = time.ParseDuration(v); err != nil {
			return Settings{}, fmt.Errorf("config: %s_%s: %w", prefix, d.suffix, err)
		}
	}

	if err := validate.Struct(s); err != nil {
		return Settings{}, fmt.Errorf("config: %w", err)
	}
	return s, nil
}

// JitterConfig returns the jitter strategy described by the settings, or nil
// when none is selected.
func (s Settings) JitterConfig() jitter.Config {
	j := s.Jitter
	switch j.Kind {
	case "equal":
		return jitter.Equal{}
	case "full":
		return jitter.Full{Min: j.Min, Max: j.Max}
	case "fixed":
		return jitter.Fixed{Amount: j.Amount}
	case "random":
		return jitter.Random{Fraction: j.Fraction}
	case "decorrelated":
		return jitter.Decorrelated{MaxDelay: j.MaxDelay}
	default:
		return nil
	}
}

// Options converts the settings into retry options.
func (s Settings) Options() []retry.Option {
	return []retry.Option{
		retry.WithMaxAttempts(s.MaxAttempts),
		retry.WithDelay(s.Delay),
		retry.WithBackoff(backoff.ParseStrategy(s.Backoff)),
		retry.WithJitter(s.JitterConfig()),
	}
}
