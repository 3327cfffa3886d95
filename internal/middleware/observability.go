package middleware

import (
	"net/http"
	"time"

	"github.com/SscSPs/swap_exchange_app/internal/platform/metrics"
	"github.com/SscSPs/swap_exchange_app/internal/platform/tracing"
	"github.com/gin-gonic/gin"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/propagation"
	"go.opentelemetry.io/otel/trace"
)

// Observability records request counters and latency, and wraps each request in
// a server span that continues an incoming W3C traceparent.
func Observability(m *metrics.Metrics) gin.HandlerFunc {
	tracer := m.Tracer()
	propagator := tracing.Propagator()
	return func(c *gin.Context) {
		start := time.Now()
		route := c.FullPath()
		if route == "" {
			route = "unmatched"
		}

		ctx := propagator.Extract(c.Request.Context(), propagation.HeaderCarrier(c.Request.Header))
		ctx, span := tracer.Start(ctx, c.Request.Method+" "+route,
			trace.WithSpanKind(trace.SpanKindServer),
			trace.WithAttributes(
				attribute.String("http.method", c.Request.Method),
				attribute.String("http.route", route),
			))
		c.Request = c.Request.WithContext(ctx)

		c.Next()

		status := c.Writer.Status()
		span.SetAttributes(attribute.Int("http.status_code", status))
		if status >= http.StatusInternalServerError {
			span.SetStatus(codes.Error, http.StatusText(status))
		}
		span.End()
		m.ObserveHTTP(route, c.Request.Method, status, time.Since(start))
	}
}
