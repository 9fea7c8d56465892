//go:build !nometrics

package obs

import (
	"context"
	"sync"
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
	"go.opentelemetry.io/otel"
	"go.opentelemetry.io/otel/sdk/resource"
	sdktrace "go.opentelemetry.io/otel/sdk/trace"
	semconv "go.opentelemetry.io/otel/semconv/v1.21.0"
)

var (
	setupOnce sync.Once
	shutdown  = func(context.Context) error { return nil }
)

var (
	httpRequests = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_http_requests_total",
		Help: "Admin API requests by route and status code.",
	}, []string{"route", "code"})
	httpDuration = promauto.NewHistogramVec(prometheus.HistogramOpts{
		Name:    "hatchery_http_request_duration_ms",
		Help:    "Histogram of admin API latency in ms.",
		Buckets: prometheus.ExponentialBuckets(0.25, 2, 10),
	}, []string{"route"})
	reloads = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_reloads_total",
		Help: "Configuration reloads by result (ok, partial, failed, rejected).",
	}, []string{"result"})
	eggEvents = promauto.NewCounterVec(prometheus.CounterOpts{
		Name: "hatchery_egg_events_total",
		Help: "Egg-form events by scenario and verdict (allowed, cancelled, ignored, unavailable).",
	}, []string{"scenario", "verdict"})
)

// ObserveRequest records admin API request metrics.
func ObserveRequest(route, code string, duration time.Duration, traceID string) {
	httpRequests.WithLabelValues(route, code).Inc()
	ms := float64(duration.Microseconds()) / 1000
	observer := httpDuration.WithLabelValues(route)
	if eo, ok := observer.(prometheus.ExemplarObserver); ok && traceID != "" {
		eo.ObserveWithExemplar(ms, prometheus.Labels{"trace_id": traceID})
		return
	}
	observer.Observe(ms)
}

// RecordReload counts a reload attempt by result.
func RecordReload(result string) {
	reloads.WithLabelValues(result).Inc()
}

// RecordEggEvent counts a handled egg-form event.
func RecordEggEvent(scenario, verdict string) {
	eggEvents.WithLabelValues(scenario, verdict).Inc()
}

// InitTracer sets up a minimal OpenTelemetry tracer provider.
func InitTracer(serviceName string, sampleRatio float64) (func(context.Context) error, error) {
	var initErr error
	setupOnce.Do(func() {
		res, err := resource.New(context.Background(),
			resource.WithAttributes(
				semconv.ServiceName(serviceName),
			),
		)
		if err != nil {
			initErr = err
			return
		}

		provider := sdktrace.NewTracerProvider(
			sdktrace.WithSampler(sdktrace.ParentBased(sdktrace.TraceIDRatioBased(sampleRatio))),
			sdktrace.WithResource(res),
		)
		otel.SetTracerProvider(provider)
		shutdown = provider.Shutdown
	})
	return shutdown, initErr
}
