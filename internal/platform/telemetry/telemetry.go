// Package telemetry exposes Prometheus metrics for the HTTP server, the
// booking engine and the database pool on a dedicated registry.
package telemetry

import (
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/labstack/echo/v4"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/collectors"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/medibook/medibook/internal/platform/db"
)

const namespace = "medibook"

// TelemetryConfig holds all configuration for the telemetry provider.
type TelemetryConfig struct {
	ServiceName    string
	ServiceVersion string
	Environment    string
	MetricsEnabled *bool // nil = use default (true)
	// RuntimeMetrics adds Go runtime and process collectors.
	RuntimeMetrics bool
}

func (c *TelemetryConfig) metricsOn() bool {
	if c.MetricsEnabled == nil {
		return true
	}
	return *c.MetricsEnabled
}

func (c *TelemetryConfig) applyDefaults() {
	if c.ServiceName == "" {
		c.ServiceName = "medibook-server"
	}
	if c.ServiceVersion == "" {
		c.ServiceVersion = "0.0.0"
	}
	if c.Environment == "" {
		c.Environment = "development"
	}
}

// BoolPtr is a helper to create a *bool for TelemetryConfig fields.
func BoolPtr(b bool) *bool {
	return &b
}

var defaultDurationBuckets = []float64{
	0.005, 0.01, 0.025, 0.05, 0.075, 0.1, 0.25, 0.5, 0.75, 1, 2.5, 5, 7.5, 10,
}

// TelemetryProvider owns the metric registry and every collector on it.
type TelemetryProvider struct {
	cfg      TelemetryConfig
	registry *prometheus.Registry

	httpRequests   *prometheus.CounterVec
	httpDuration   *prometheus.HistogramVec
	activeRequests prometheus.Gauge
	bookingOps     *prometheus.CounterVec
	authAttempts   *prometheus.CounterVec
}

func NewTelemetryProvider(cfg TelemetryConfig) *TelemetryProvider {
	cfg.applyDefaults()

	tp := &TelemetryProvider{
		cfg:      cfg,
		registry: prometheus.NewRegistry(),
		httpRequests: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP requests by method, route and status code.",
		}, []string{"method", "route", "status"}),
		httpDuration: prometheus.NewHistogramVec(prometheus.HistogramOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP request latency by method and route.",
			Buckets:   defaultDurationBuckets,
		}, []string{"method", "route"}),
		activeRequests: prometheus.NewGauge(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "http",
			Name:      "active_requests",
			Help:      "Requests currently being served.",
		}),
		bookingOps: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "booking",
			Name:      "operations_total",
			Help:      "Booking engine operations by operation and outcome.",
		}, []string{"operation", "outcome"}),
		authAttempts: prometheus.NewCounterVec(prometheus.CounterOpts{
			Namespace: namespace,
			Subsystem: "auth",
			Name:      "attempts_total",
			Help:      "Register, login and refresh attempts by outcome.",
		}, []string{"operation", "outcome"}),
	}

	buildInfo := prometheus.NewGauge(prometheus.GaugeOpts{
		Namespace: namespace,
		Name:      "build_info",
		Help:      "Constant 1, labelled with service metadata.",
		ConstLabels: prometheus.Labels{
			"service":     cfg.ServiceName,
			"version":     cfg.ServiceVersion,
			"environment": cfg.Environment,
		},
	})
	buildInfo.Set(1)

	tp.registry.MustRegister(
		tp.httpRequests,
		tp.httpDuration,
		tp.activeRequests,
		tp.bookingOps,
		tp.authAttempts,
		buildInfo,
	)
	if cfg.RuntimeMetrics {
		tp.registry.MustRegister(
			collectors.NewGoCollector(),
			collectors.NewProcessCollector(collectors.ProcessCollectorOpts{}),
		)
	}
	return tp
}

// Registry returns the registry backing /metrics.
func (tp *TelemetryProvider) Registry() *prometheus.Registry {
	return tp.registry
}

// BookingOutcome counts one booking engine operation.
func (tp *TelemetryProvider) BookingOutcome(operation, outcome string) {
	tp.bookingOps.WithLabelValues(operation, outcome).Inc()
}

// AuthOutcome counts one authentication operation.
func (tp *TelemetryProvider) AuthOutcome(operation, outcome string) {
	tp.authAttempts.WithLabelValues(operation, outcome).Inc()
}

// ObservePool exports connection pool statistics, read at scrape time.
func (tp *TelemetryProvider) ObservePool(stats func() *db.PoolStats) {
	gauge := func(name, help string, pick func(*db.PoolStats) int32) prometheus.Collector {
		return prometheus.NewGaugeFunc(prometheus.GaugeOpts{
			Namespace: namespace,
			Subsystem: "db_pool",
			Name:      name,
			Help:      help,
		}, func() float64 {
			return float64(pick(stats()))
		})
	}
	tp.registry.MustRegister(
		gauge("total_connections", "Open connections in the pool.", func(s *db.PoolStats) int32 { return s.TotalConns }),
		gauge("idle_connections", "Idle connections in the pool.", func(s *db.PoolStats) int32 { return s.IdleConns }),
		gauge("acquired_connections", "Connections currently checked out.", func(s *db.PoolStats) int32 { return s.AcquiredConns }),
		gauge("max_connections", "Configured pool size.", func(s *db.PoolStats) int32 { return s.MaxConns }),
	)
}

// MetricsMiddleware records request count and latency per route pattern.
func (tp *TelemetryProvider) MetricsMiddleware() echo.MiddlewareFunc {
	return func(next echo.HandlerFunc) echo.HandlerFunc {
		return func(c echo.Context) error {
			if !tp.cfg.metricsOn() {
				return next(c)
			}

			tp.activeRequests.Inc()
			defer tp.activeRequests.Dec()

			start := time.Now()
			err := next(c)
			duration := time.Since(start).Seconds()

			// Use route pattern, not actual path, to bound label cardinality.
			route := c.Path()
			if route == "" {
				route = "unmatched"
			}
			status := c.Response().Status
			if err != nil {
				status = errorStatus(err)
			}

			method := c.Request().Method
			tp.httpRequests.WithLabelValues(method, route, strconv.Itoa(status)).Inc()
			tp.httpDuration.WithLabelValues(method, route).Observe(duration)

			return err
		}
	}
}

func errorStatus(err error) int {
	var he *echo.HTTPError
	if errors.As(err, &he) {
		return he.Code
	}
	var sc interface{ StatusCode() int }
	if errors.As(err, &sc) {
		return sc.StatusCode()
	}
	return http.StatusInternalServerError
}

// PrometheusHandler serves the registry in Prometheus text exposition format.
func (tp *TelemetryProvider) PrometheusHandler() echo.HandlerFunc {
	return echo.WrapHandler(promhttp.HandlerFor(tp.registry, promhttp.HandlerOpts{
		Registry: tp.registry,
	}))
}
