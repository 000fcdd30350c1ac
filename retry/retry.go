// Package retry wraps an operation that may fail transiently so that it is
// called again, after a backoff delay with optional jitter, until it succeeds
// or the attempt budget runs out.
//
//	fetch := retry.Wrap(client.Fetch,
//		retry.WithMaxAttempts(5),
//		retry.WithDelay(100*time.Millisecond),
//		retry.WithJitter(jitter.Equal{}),
//	)
//	body, err := fetch(url)
//
// Only the error of the final attempt is returned. Intermediate errors are
// visible through the [OnRetry] observer. The wait between attempts is never
// interrupted; an operation that hangs blocks the whole sequence.
package retry

import (
	"log/slog"
	"math"
	"time"

	"github.com/Keksclan/goRawrRetry/backoff"
	"github.com/Keksclan/goRawrRetry/jitter"
)

// Func is an operation taking a single argument. Use a struct or closure for
// operations with more inputs.
type Func[A, R any] func(A) (R, error)

// Wrap returns a function with the same shape as op that retries it
// according to opts. The options are resolved once; every call of the
// returned function starts with a fresh attempt counter, so it is safe to
// call concurrently.
//
// Configuration errors (see [ErrInvalidConfig]) are returned without further
// attempts: an invalid budget or delay before op is called, an invalid
// jitter config on the first retry.
func Wrap[A, R any](op Func[A, R], opts ...Option) Func[A, R] {
	cfg := newConfig(opts)
	return func(arg A) (R, error) {
		return run(cfg, op, arg)
	}
}

// Do calls op with retries according to opts.
func Do[R any](op func() (R, error), opts ...Option) (R, error) {
	return run(newConfig(opts), func(struct{}) (R, error) { return op() }, struct{}{})
}

func run[A, R any](cfg config, op Func[A, R], arg A) (R, error) {
	var zero R
	if err := cfg.validate(); err != nil {
		return zero, err
	}

	var prevJitter time.Duration
	for attempt := 1; ; attempt++ {
		result, err := call(op, arg)
		if err == nil {
			return result, nil
		}

		if cfg.retryIf != nil && !cfg.retryIf(err) {
			cfg.logger.Debug("retry: error is not retryable",
				slog.Int("attempt", attempt),
				slog.Any("error", err),
			)
			return zero, err
		}

		if attempt >= cfg.maxAttempts {
			cfg.logger.Debug("retry: attempts exhausted",
				slog.Int("attempts", attempt),
				slog.Any("error", err),
			)
			return zero, err
		}

		base := backoff.Delay(cfg.delay, attempt, cfg.backoff)
		j, jerr := jitter.Apply(cfg.jitter, base, prevJitter, cfg.rand)
		if jerr != nil {
			return zero, jerr
		}
		prevJitter = j
		wait := addSat(base, j)

		cfg.logger.Debug("retry: scheduling next attempt",
			slog.Int("attempt", attempt),
			slog.Duration("wait", wait),
			slog.String("backoff", cfg.backoff.String()),
			slog.Any("error", err),
		)
		if cfg.onRetry != nil {
			cfg.onRetry(err, attempt, wait)
		}
		cfg.sleep(wait)
	}
}

// call runs op, turning a panic into that attempt's error.
func call[A, R any](op Func[A, R], arg A) (result R, err error) {
	defer func() {
		if r := recover(); r != nil {
			var zero R
			result, err = zero, panicError(r)
		}
	}()
	return op(arg)
}

func addSat(a, b time.Duration) time.Duration {
	if b > 0 && a > time.Duration(math.MaxInt64)-b {
		return time.Duration(math.MaxInt64)
	}
	return a + b
}
