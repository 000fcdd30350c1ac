// Package tracing provides OpenTelemetry instrumentation for retried gRPC
// client calls. One client span covers a logical call; every retry inside it
// is recorded as a span event, so a slow call can be read as "three attempts
// and two waits" instead of a single opaque duration.
package tracing

import (
	"context"
	"strings"
	"time"

	"github.com/Keksclan/goRawrRetry/retry"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
	"google.golang.org/grpc"
	"google.golang.org/grpc/metadata"
	grpcStatus "google.golang.org/grpc/status"
)

// TracingConfig holds the OpenTelemetry configuration used by the client
// interceptor.
type TracingConfig struct {
	// TracerProvider supplies the Tracer used to create spans. When nil the
	// global otel.GetTracerProvider() is used.
	TracerProvider trace.TracerProvider

	// Propagators injects trace context into outgoing metadata.
	// When nil the global otel.GetTextMapPropagator() is used.
	Propagators propagation.TextMapPropagator
}

func (c *TracingConfig) tracer() trace.Tracer {
	tp := c.TracerProvider
	if tp == nil {
		tp = otel.GetTracerProvider()
	}
	return tp.Tracer("github.com/Keksclan/goRawrRetry/tracing")
}

func (c *TracingConfig) propagators() propagation.TextMapPropagator {
	if c.Propagators != nil {
		return c.Propagators
	}
	return otel.GetTextMapPropagator()
}

// UnaryClientInterceptor returns a [grpc.UnaryClientInterceptor] that opens a
// client span per call and injects its context into the outgoing metadata.
// Install it outside the retry interceptor so the span spans all attempts.
// If cfg is nil the interceptor is a no-op passthrough.
func UnaryClientInterceptor(cfg *TracingConfig) grpc.UnaryClientInterceptor {
	if cfg == nil {
		return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
			return invoker(ctx, method, req, reply, cc, opts...)
		}
	}
	return func(ctx context.Context, method string, req, reply any, cc *grpc.ClientConn, invoker grpc.UnaryInvoker, opts ...grpc.CallOption) error {
		ctx, span := cfg.tracer().Start(ctx, method, trace.WithSpanKind(trace.SpanKindClient))
		defer span.End()

		service, m := splitFullMethod(method)
		span.SetAttributes(
			attribute.String("rpc.system", "grpc"),
			attribute.String("rpc.service", service),
			attribute.String("rpc.method", m),
		)

		err := invoker(inject(ctx, cfg), method, req, reply, cc, opts...)
		recordStatus(span, err)
		return err
	}
}

// RecordRetry adds a "retry" event to the span carried by ctx. It does
// nothing when ctx carries no recording span.
func RecordRetry(ctx context.Context, err error, attempt int, wait time.Duration) {
	span := trace.SpanFromContext(ctx)
	if !span.IsRecording() {
		return
	}
	attrs := []attribute.KeyValue{
		attribute.Int("retry.attempt", attempt),
		attribute.Int64("retry.wait_ms", wait.Milliseconds()),
	}
	if err != nil {
		attrs = append(attrs, attribute.String("exception.message", err.Error()))
	}
	span.AddEvent("retry", trace.WithAttributes(attrs...))
}

// OnRetry returns a retry observer that records events on ctx's span.
func OnRetry(ctx context.Context) retry.OnRetryFunc {
	return func(err error, attempt int, wait time.Duration) {
		RecordRetry(ctx, err, attempt, wait)
	}
}

// --- helpers ----------------------------------------------------------------

// metadataCarrier adapts gRPC [metadata.MD] to the OTel
// [propagation.TextMapCarrier] interface.
type metadataCarrier metadata.MD

func (mc metadataCarrier) Get(key string) string {
	vals := metadata.MD(mc).Get(key)
	if len(vals) == 0 {
		return ""
	}
	return vals[0]
}

func (mc metadataCarrier) Set(key, value string) {
	metadata.MD(mc).Set(key, value)
}

func (mc metadataCarrier) Keys() []string {
	md := metadata.MD(mc)
	keys := make([]string, 0, len(md))
	for k := range md {
		keys = append(keys, k)
	}
	return keys
}

// inject writes the span context of ctx into a copy of its outgoing metadata.
func inject(ctx context.Context, cfg *TracingConfig) context.Context {
	md, ok := metadata.FromOutgoingContext(ctx)
	if ok {
		md = md.Copy()
	} else {
		md = metadata.MD{}
	}
	cfg.propagators().Inject(ctx, metadataCarrier(md))
	return metadata.NewOutgoingContext(ctx, md)
}

// splitFullMethod splits "/service/method" into ("service", "method").
func splitFullMethod(fullMethod string) (string, string) {
	fullMethod = strings.TrimPrefix(fullMethod, "/")
	service, method, ok := strings.Cut(fullMethod, "/")
	if !ok {
		return fullMethod, ""
	}
	return service, method
}

// recordStatus sets the span status and records the gRPC status code.
func recordStatus(span trace.Span, err error) {
	st, _ := grpcStatus.FromError(err)
	span.SetAttributes(attribute.String("rpc.grpc.status_code", st.Code().String()))
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, st.Message())
	} else {
		span.SetStatus(codes.Ok, "")
	}
}
