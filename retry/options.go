package retry

import (
	"fmt"
	"log/slog"
	"time"

	"github.com/Keksclan/goRawrRetry/backoff"
	"github.com/Keksclan/goRawrRetry/jitter"
)

// Defaults applied before any Option.
const (
	DefaultMaxAttempts = 3
	DefaultDelay       = time.Second
	DefaultBackoff     = backoff.Exponential
)

// ErrInvalidConfig is matched by every configuration error, both those
// raised here and the *jitter.ConfigError values surfaced from the jitter
// validator.
var ErrInvalidConfig = jitter.ErrInvalidConfig

// OnRetryFunc is notified after a failed attempt that will be retried,
// before the wait starts. attempt is the 1-based number of the attempt that
// just failed and wait is the total delay (backoff plus jitter) about to be
// slept.
type OnRetryFunc func(err error, attempt int, wait time.Duration)

// config is assembled from Options and copied into each wrapped function.
// It is never modified afterwards.
type config struct {
	maxAttempts int
	delay       time.Duration
	backoff     backoff.Strategy
	jitter      jitter.Config
	onRetry     OnRetryFunc
	retryIf     func(error) bool
	rand        jitter.Source
	sleep       func(time.Duration)
	logger      *slog.Logger
}

// Option configures a wrapped function.
type Option func(*config)

func newConfig(opts []Option) config {
	cfg := config{
		maxAttempts: DefaultMaxAttempts,
		delay:       DefaultDelay,
		backoff:     DefaultBackoff,
	}
	for _, o := range opts {
		if o != nil {
			o(&cfg)
		}
	}
	if cfg.rand == nil {
		cfg.rand = jitter.Global
	}
	if cfg.sleep == nil {
		cfg.sleep = Sleep
	}
	if cfg.logger == nil {
		cfg.logger = slog.New(slog.DiscardHandler)
	}
	return cfg
}

// WithMaxAttempts sets the total number of calls, including the first one.
// It must be at least 1.
func WithMaxAttempts(n int) Option {
	return func(c *config) { c.maxAttempts = n }
}

// WithDelay sets the base delay fed to the backoff strategy. It must not be
// negative.
func WithDelay(d time.Duration) Option {
	return func(c *config) { c.delay = d }
}

// WithBackoff selects how the base delay grows between attempts. Unknown
// strategies behave like backoff.Fixed.
func WithBackoff(s backoff.Strategy) Option {
	return func(c *config) { c.backoff = s }
}

// WithJitter adds a randomized amount to every wait. A nil config disables
// jitter. The config is validated when a wait is computed, so an invalid one
// fails on the first retry.
func WithJitter(j jitter.Config) Option {
	return func(c *config) { c.jitter = j }
}

// OnRetry installs the retry observer. It runs synchronously on the calling
// goroutine; a panic inside it is not recovered. Use [Notify] to attach
// several observers.
func OnRetry(fn OnRetryFunc) Option {
	return func(c *config) { c.onRetry = fn }
}

// WithRetryIf restricts which errors are retried. Errors for which fn returns
// false are returned immediately. By default every error is retried.
func WithRetryIf(fn func(error) bool) Option {
	return func(c *config) { c.retryIf = fn }
}

// WithRand sets the random source used for jitter.
func WithRand(src jitter.Source) Option {
	return func(c *config) { c.rand = src }
}

// WithSleep replaces the timed wait between attempts. Mainly useful in tests.
func WithSleep(fn func(time.Duration)) Option {
	return func(c *config) { c.sleep = fn }
}

// WithLogger sets the logger used for debug output about scheduled retries.
func WithLogger(l *slog.Logger) Option {
	return func(c *config) { c.logger = l }
}

// ConfigError reports an invalid attempt budget or base delay.
type ConfigError struct {
	Field  string
	Value  any
	Reason string
}

func (e *ConfigError) Error() string {
	return fmt.Sprintf("retry: invalid config: %s=%v %s", e.Field, e.Value, e.Reason)
}

// Is reports whether target is ErrInvalidConfig.
func (e *ConfigError) Is(target error) bool { return target == ErrInvalidConfig }

func (c *config) validate() error {
	if c.maxAttempts < 1 {
		return &ConfigError{Field: "maxAttempts", Value: c.maxAttempts, Reason: "must be at least 1"}
	}
	if c.delay < 0 {
		return &ConfigError{Field: "delay", Value: c.delay, Reason: "must not be negative"}
	}
	return nil
}
