// Package metrics exports retry activity as Prometheus metrics. A Recorder
// plugs into the retry observer and into the wrapped function itself so that
// scheduled retries, computed waits and final outcomes are counted per
// operation.
package metrics

import (
	"net/http"
	"time"

	"github.com/Keksclan/goRawrRetry/retry"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Outcome label values for the calls counter.
const (
	OutcomeSuccess = "success"
	OutcomeFailure = "failure"
)

// Recorder holds the retry collectors. All methods are safe for concurrent
// use.
type Recorder struct {
	retries *prometheus.CounterVec
	waits   *prometheus.HistogramVec
	calls   *prometheus.CounterVec
	gather  prometheus.Gatherer
}

// NewRecorder creates the collectors under namespace and registers them with
// reg. When reg is nil a fresh registry is used; it can be served through
// [Recorder.Handler].
func NewRecorder(reg prometheus.Registerer, namespace string) (*Recorder, error) {
	var gather prometheus.Gatherer = prometheus.DefaultGatherer
	if reg == nil {
		r := prometheus.NewRegistry()
		reg, gather = r, r
	} else if g, ok := reg.(prometheus.Gatherer); ok {
		gather = g
	}

	rec := &Recorder{
		retries: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_attempts_total",
			Help:      "Retries scheduled after a failed attempt.",
		}, []string{"operation"}),
		waits: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Name:      "retry_wait_seconds",
			Help:      "Computed wait (backoff plus jitter) before a retry.",
			Buckets:   prometheus.ExponentialBuckets(0.01, 2, 12),
		}, []string{"operation"}),
		calls: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Name:      "retry_calls_total",
			Help:      "Completed calls of retried operations by outcome.",
		}, []string{"operation", "outcome"}),
		gather: gather,
	}

	for _, c := range []prometheus.Collector{rec.retries, rec.waits, rec.calls} {
		if err := reg.Register(c); err != nil {
			return nil, err
		}
	}
	return rec, nil
}

// OnRetry returns an observer that counts the retry and records its wait.
func (r *Recorder) OnRetry(operation string) retry.OnRetryFunc {
	retries := r.retries.WithLabelValues(operation)
	waits := r.waits.WithLabelValues(operation)
	return func(_ error, _ int, wait time.Duration) {
		retries.Inc()
		waits.Observe(wait.Seconds())
	}
}

// Handler serves the registry the recorder gathers from.
func (r *Recorder) Handler() http.Handler {
	return promhttp.HandlerFor(r.gather, promhttp.HandlerOpts{})
}

// Track wraps fn so that every completed call is counted as a success or a
// failure for operation.
func Track[A, R any](r *Recorder, operation string, fn retry.Func[A, R]) retry.Func[A, R] {
	ok := r.calls.WithLabelValues(operation, OutcomeSuccess)
	failed := r.calls.WithLabelValues(operation, OutcomeFailure)
	return func(arg A) (R, error) {
		res, err := fn(arg)
		if err != nil {
			failed.Inc()
		} else {
			ok.Inc()
		}
		return res, err
	}
}
