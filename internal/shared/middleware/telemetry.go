package middleware

import (
	"net/http"
	"time"

	"go.opentelemetry.io/contrib/instrumentation/net/http/otelhttp"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/attribute"
	"go.opentelemetry.io/otel/codes"
	"go.opentelemetry.io/otel/metric"
	"go.opentelemetry.io/otel/trace"
)

const unmatchedRoute = "unmatched"

var (
	httpTracer         = otel.Tracer("budgetrelay/http")
	httpMeter          = otel.Meter("budgetrelay/http")
	relayRequestDur, _ = httpMeter.Float64Histogram("budgetrelay.http.request.duration",
		metric.WithDescription("Relay request duration in seconds by route and status"),
		metric.WithUnit("s"),
	)
	relayRequests, _ = httpMeter.Int64Counter("budgetrelay.http.requests",
		metric.WithDescription("Relay requests by route, status and error class"),
	)
)

// Telemetry wraps the handler in otelhttp, which extracts incoming trace
// context and records the standard HTTP server metrics.
func Telemetry(next http.Handler) http.Handler {
	return otelhttp.NewHandler(next, "budgetrelay-api")
}

// Tracing adds a relay span per request plus route-level metrics. Paths not
// in routes are labelled "unmatched" so scanners cannot inflate cardinality.
// Install inside RequestID so the span carries the request ID.
func Tracing(routes ...string) func(http.Handler) http.Handler {
	known := make(map[string]struct{}, len(routes))
	for _, r := range routes {
		known[r] = struct{}{}
	}

	return func(next http.Handler) http.Handler {
		return http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
			route := r.URL.Path
			if _, ok := known[route]; !ok {
				route = unmatchedRoute
			}

			ctx, span := httpTracer.Start(r.Context(), r.Method+" "+route,
				trace.WithSpanKind(trace.SpanKindServer),
				trace.WithAttributes(
					attribute.String("http.route", route),
					attribute.String("relay.request_id", RequestIDFromContext(r.Context())),
				),
			)
			defer span.End()

			start := time.Now()
			rec := &statusRecorder{ResponseWriter: w}
			next.ServeHTTP(rec, r.WithContext(ctx))
			status := rec.code()

			span.SetAttributes(attribute.Int("http.response.status_code", status))
			if status >= 500 {
				span.SetStatus(codes.Error, http.StatusText(status))
			}

			attrs := metric.WithAttributes(
				attribute.String("http.request.method", r.Method),
				attribute.String("http.route", route),
				attribute.Int("http.response.status_code", status),
				attribute.String("relay.status_class", statusClass(status)),
			)
			relayRequestDur.Record(ctx, time.Since(start).Seconds(), attrs)
			relayRequests.Add(ctx, 1, attrs)
		})
	}
}

// statusClass buckets responses the way clients act on them.
func statusClass(status int) string {
	switch {
	case status == http.StatusGatewayTimeout:
		return "sync_capped"
	case status >= 500:
		return "server_error"
	case status >= 400:
		return "caller_error"
	default:
		return "ok"
	}
}
