package web

import (
	"context"

	"github.com/gofiber/fiber/v2"
	"github.com/gofiber/fiber/v2/middleware/adaptor"
	"github.com/pmsworks/pms"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"
)

// Metrics collects auth activity and guard outcomes. It doubles as the
// pms.ActivitySink handed to every AuthClient.
type Metrics struct {
	authEvents     *prometheus.CounterVec
	guardRedirects prometheus.Counter
	rateLimited    prometheus.Counter
	busyRejects    prometheus.Counter
	gatherer       prometheus.Gatherer
}

var _ pms.ActivitySink = (*Metrics)(nil)

// NewMetrics registers the collectors on reg.
func NewMetrics(reg *prometheus.Registry) *Metrics {
	m := &Metrics{
		authEvents: prometheus.NewCounterVec(prometheus.CounterOpts{
			Name: "pms_auth_events_total",
			Help: "Identity events by type and provider error code.",
		}, []string{"event", "code"}),
		guardRedirects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_guard_redirects_total",
			Help: "Guarded actions redirected to the login view.",
		}),
		rateLimited: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_rate_limited_total",
			Help: "Credential submissions rejected by the rate limiter.",
		}),
		busyRejects: prometheus.NewCounter(prometheus.CounterOpts{
			Name: "pms_busy_rejects_total",
			Help: "Submissions rejected while another one was in flight.",
		}),
		gatherer: reg,
	}

	reg.MustRegister(
		m.authEvents,
		m.guardRedirects,
		m.rateLimited,
		m.busyRejects,
	)

	return m
}

// Record implements pms.ActivitySink.
func (m *Metrics) Record(_ context.Context, event pms.ActivityEvent) error {
	m.authEvents.WithLabelValues(string(event.EventType), event.Code).Inc()
	return nil
}

func (m *Metrics) RecordGuardRedirect() {
	m.guardRedirects.Inc()
}

func (m *Metrics) RecordRateLimited() {
	m.rateLimited.Inc()
}

func (m *Metrics) RecordBusy() {
	m.busyRejects.Inc()
}

// Handler serves the Prometheus exposition format.
func (m *Metrics) Handler() fiber.Handler {
	return adaptor.HTTPHandler(promhttp.HandlerFor(m.gatherer, promhttp.HandlerOpts{}))
}
