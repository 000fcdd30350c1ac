// Package grpcretry retries unary gRPC client calls through the retry loop.
// It is opt-in: install it with grpc.WithChainUnaryInterceptor on the client
// connection. Only calls failing with one of the configured status codes are
// retried; every other error is returned on the spot.
package grpcretry

import (
	"context"
	"slices"

	"github.com/Keksclan/goRawrRetry/retry"
	"github.com/Keksclan/goRawrRetry/tracing"
	"google.golang.org/grpc"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"
)

// Config controls which calls are retried and how.
type Config struct {
	// RetryCodes lists the gRPC status codes that are considered retryable.
	// An empty list means no error is retried.
	RetryCodes []codes.Code

	// Options configure the retry loop (attempts, delay, backoff, jitter,
	// logger). A retry.WithRetryIf or retry.OnRetry among them is replaced by
	// the interceptor; use OnRetry below instead.
	Options []retry.Option

	// OnRetry is called for every scheduled retry, before the retry is
	// recorded on the call's span.
	OnRetry retry.OnRetryFunc
}

// Retryable reports whether err carries one of the given status codes.
func Retryable(err error, retryCodes []codes.Code) bool {
	st, ok := status.FromError(err)
	return ok && slices.Contains(retryCodes, st.Code())
}

// UnaryClientInterceptor returns a [grpc.UnaryClientInterceptor] that
// re-invokes the call while it fails with a code in cfg.RetryCodes, up to the
// configured attempt budget. Each retry is added as an event to the span in
// the call context, if any.
//
// The wait between attempts is not cut short by the call context. Leave
// codes.Canceled and codes.DeadlineExceeded out of RetryCodes so that an
// expired context stops the sequence at the next attempt.
func UnaryClientInterceptor(cfg Config) grpc.UnaryClientInterceptor {
	retryCodes := slices.Clone(cfg.RetryCodes)
	base := slices.Clip(slices.Clone(cfg.Options))
	retryIf := retry.WithRetryIf(func(err error) bool {
		return Retryable(err, retryCodes)
	})

	return func(
		ctx context.Context,
		method string,
		req, reply any,
		cc *grpc.ClientConn,
		invoker grpc.UnaryInvoker,
		opts ...grpc.CallOption,
	) error {
		callOpts := append(base,
			retryIf,
			retry.OnRetry(retry.Notify(cfg.OnRetry, tracing.OnRetry(ctx))),
		)
		_, err := retry.Do(func() (struct{}, error) {
			return struct{}{}, invoker(ctx, method, req, reply, cc, opts...)
		}, callOpts...)
		return err
	}
}
