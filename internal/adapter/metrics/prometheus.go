package metrics

import (
	"net/http"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"github.com/thushan/switchyard/internal/core/domain"
)

const (
	ResultSuccess = "success"
	ResultFailure = "failure"
)

// PrometheusExporter mirrors the event stream into its own registry so it
// never collides with whatever the embedding process registers globally
type PrometheusExporter struct {
	registry     *prometheus.Registry
	checks       *prometheus.CounterVec
	duration     *prometheus.HistogramVec
	healthy      *prometheus.GaugeVec
	failovers    *prometheus.CounterVec
	lastFailover prometheus.Gauge
}

func NewPrometheusExporter() *PrometheusExporter {
	registry := prometheus.NewRegistry()

	p := &PrometheusExporter{
		registry: registry,
		checks: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchyard_healthcheck_total",
				Help: "Health check executions by endpoint and result",
			},
			[]string{"endpoint", "result"},
		),
		duration: prometheus.NewHistogramVec(
			prometheus.HistogramOpts{
				Name:    "switchyard_healthcheck_duration_seconds",
				Help:    "Time spent in successful health checks, retries included",
				Buckets: prometheus.DefBuckets,
			},
			[]string{"endpoint"},
		),
		healthy: prometheus.NewGaugeVec(
			prometheus.GaugeOpts{
				Name: "switchyard_endpoint_healthy",
				Help: "1 when the endpoint is considered healthy, 0 otherwise",
			},
			[]string{"endpoint"},
		),
		failovers: prometheus.NewCounterVec(
			prometheus.CounterOpts{
				Name: "switchyard_failovers_total",
				Help: "Endpoint switches by reason",
			},
			[]string{"reason"},
		),
		lastFailover: prometheus.NewGauge(
			prometheus.GaugeOpts{
				Name: "switchyard_last_failover_timestamp_seconds",
				Help: "Unix time of the most recent endpoint switch",
			},
		),
	}

	registry.MustRegister(p.checks)
	registry.MustRegister(p.duration)
	registry.MustRegister(p.healthy)
	registry.MustRegister(p.failovers)
	registry.MustRegister(p.lastFailover)

	return p
}

func (p *PrometheusExporter) OnEvent(event domain.Event) error {
	switch e := event.(type) {
	case domain.HealthCheckCompleted:
		label := e.Endpoint.String()
		p.checks.WithLabelValues(label, ResultSuccess).Inc()
		p.duration.WithLabelValues(label).Observe(e.ResponseTime.Seconds())
	case domain.HealthCheckFailed:
		p.checks.WithLabelValues(e.Endpoint.String(), ResultFailure).Inc()
	case domain.EndpointStatusChanged:
		p.ObserveEndpoint(e.Endpoint, e.Healthy)
	case domain.Failover:
		p.failovers.WithLabelValues(e.Reason.String()).Inc()
		p.lastFailover.Set(float64(e.Timestamp.UnixNano()) / 1e9)
	}
	return nil
}

// ObserveEndpoint sets the health gauge directly, used to seed endpoints that
// have not changed state yet
func (p *PrometheusExporter) ObserveEndpoint(endpoint domain.Endpoint, healthy bool) {
	value := 0.0
	if healthy {
		value = 1
	}
	p.healthy.WithLabelValues(endpoint.String()).Set(value)
}

// ForgetEndpoint drops every series labelled with endpoint
func (p *PrometheusExporter) ForgetEndpoint(endpoint domain.Endpoint) {
	labels := prometheus.Labels{"endpoint": endpoint.String()}
	p.checks.DeletePartialMatch(labels)
	p.duration.DeletePartialMatch(labels)
	p.healthy.DeletePartialMatch(labels)
}

func (p *PrometheusExporter) Registry() *prometheus.Registry {
	return p.registry
}

func (p *PrometheusExporter) Handler() http.Handler {
	return promhttp.HandlerFor(p.registry, promhttp.HandlerOpts{Registry: p.registry})
}
