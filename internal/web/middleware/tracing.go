package middleware

import (
	"fmt"
	"net/http"

	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

const instrumentationName = "github.com/trackerhq/tracker/internal/web/middleware"

// Tracing starts a server span per request, continuing any incoming trace.
func Tracing(next http.Handler) http.Handler {
	tracer := otel.Tracer(instrumentationName)
	propagator := otel.GetTextMapPropagator()

	return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		ctx := propagator.Extract(r.Context(), propagation.HeaderCarrier(r.Header))

		ctx, span := tracer.Start(ctx, fmt.Sprintf("%s %s", r.Method, r.URL.Path),
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("url.path", r.URL.Path),
				attribute.String("server.address", r.Host),
				attribute.String("user_agent.original", r.UserAgent()),
			),
		)
		defer span.End()

		if requestID := GetRequestID(ctx); requestID != "" {
			span.SetAttributes(attribute.String("request.id", requestID))
		}

		wrapped := newStatusRecorder(w)
		next.ServeHTTP(wrapped, r.WithContext(ctx))

		span.SetAttributes(
			attribute.Int("http.response.status_code", wrapped.statusCode),
			attribute.Int64("http.response.body.size", wrapped.written),
		)
		if wrapped.statusCode >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(wrapped.statusCode))
		}
	})
}
