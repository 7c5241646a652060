package ports

import (
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
)

// MetricsReader is the read side of the metrics collector. The bool is false
// when nothing has been recorded yet.
type MetricsReader interface {
	AverageResponseTime(endpoint domain.Endpoint) (time.Duration, bool)
	MinResponseTime(endpoint domain.Endpoint) (time.Duration, bool)
	MaxResponseTime(endpoint domain.Endpoint) (time.Duration, bool)
	SuccessRate(endpoint domain.Endpoint) (float64, bool)
	FailoverCount() int64
	LastFailoverTime() (time.Time, bool)
	Snapshot() MetricsSnapshot
}

type EndpointStats struct {
	Endpoint       string  `json:"endpoint"`
	Checks         int64   `json:"checks"`
	Successes      int64   `json:"successes"`
	Failures       int64   `json:"failures"`
	AverageLatency int64   `json:"avg_latency_ms"`
	MinLatency     int64   `json:"min_latency_ms"`
	MaxLatency     int64   `json:"max_latency_ms"`
	SuccessRate    float64 `json:"success_rate_percent"`
}

type MetricsSnapshot struct {
	LastFailover  time.Time                `json:"last_failover,omitempty"`
	Endpoints     map[string]EndpointStats `json:"endpoints"`
	FailoverCount int64                    `json:"failover_count"`
}
