package observability

import (
	"context"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	semconv "go.opentelemetry.io/otel/semconv/v1.26.0"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"caritauyuk.id/catalog/internal/platform/requestctx"
)

const instrumentationName = "caritauyuk.id/catalog/internal/platform/observability"

var (
	tracer     = otel.Tracer(instrumentationName)
	propagator = propagation.TraceContext{}
)

// TraceMiddleware continues a W3C traceparent from the caller, starts a server span and
// stores the span identifiers on the request context for logging.
func TraceMiddleware() func(http.Handler) http.Handler {
	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))
			ctx, span := tracer.Start(ctx, SanitizeMethod(r.Method)+" "+SanitizeRoute(r.URL.Path),
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					semconv.HTTPRequestMethodKey.String(SanitizeMethod(r.Method)),
					semconv.URLPath(SanitizeRoute(r.URL.Path)),
				),
			)
			defer span.End()

			if sc := span.SpanContext(); sc.IsValid() {
				ctx = requestctx.WithTrace(ctx, requestctx.TraceInfo{
					TraceID: sc.TraceID().String(),
					SpanID:  sc.SpanID().String(),
					Sampled: sc.IsSampled(),
				})
			}
			next.ServeHTTP(w, r.WithContext(ctx))
		})
	}
}

// StartClientSpan opens a span around an outgoing call to service and writes its
// traceparent into header.
func StartClientSpan(ctx context.Context, service, method, host string, header http.Header) (context.Context, trace.Span) {
	ctx, span := tracer.Start(ctx, service+" "+SanitizeMethod(method),
		trace.WithSpanKind(trace.SpanKindClient),
		trace.WithAttributes(
			semconv.HTTPRequestMethodKey.String(SanitizeMethod(method)),
			semconv.ServerAddress(host),
			attribute.String("peer.service", service),
		),
	)
	propagator.Inject(ctx, propagation.HeaderCarrier(header))
	return ctx, span
}

// EndSpan records the response status, or err when the call never completed, and ends span.
func EndSpan(span trace.Span, status int, err error) {
	if err != nil {
		span.RecordError(err)
		span.SetStatus(codes.Error, err.Error())
	} else {
		span.SetAttributes(semconv.HTTPResponseStatusCode(status))
		setSpanStatus(span, status)
	}
	span.End()
}

func setSpanStatus(span trace.Span, status int) {
	if status >= http.StatusInternalServerError {
		span.SetStatus(codes.Error, http.StatusText(status))
		return
	}
	span.SetStatus(codes.Ok, "")
}

func traceFields(r *http.Request) []zap.Field {
	info, ok := requestctx.Trace(r.Context())
	if !ok {
		return nil
	}
	return []zap.Field{
		zap.String("trace_id", info.TraceID),
		zap.String("span_id", info.SpanID),
		zap.Bool("trace_sampled", info.Sampled),
	}
}
