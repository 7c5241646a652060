package app

import (
	"errors"
	"net/http"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/failover"
	"github.com/thushan/switchyard/pkg/format"
)

var (
	statusHealthy  = "healthy"
	statusDegraded = "degraded"
	statusCritical = "critical"
	statusPending  = "pending"
	noEndpoint     = "none"
)

type SystemSummary struct {
	Status        string `json:"status"`
	Strategy      string `json:"strategy"`
	Current       string `json:"current_endpoint"`
	EndpointsUp   string `json:"endpoints_up"`
	LastFailover  string `json:"last_failover"`
	UptimeHuman   string `json:"uptime"`
	FailoverCount int64  `json:"failover_count"`
	Running       bool   `json:"running"`
}

type CheckResponse struct {
	Name    string `json:"name"`
	Status  string `json:"status"`
	LastRun string `json:"last_run"`
	Latency string `json:"latency"`
}

type EndpointResponse struct {
	Name        string          `json:"name"`
	Status      string          `json:"status"`
	SuccessRate string          `json:"success_rate"`
	AvgLatency  string          `json:"avg_latency"`
	MinLatency  string          `json:"min_latency"`
	MaxLatency  string          `json:"max_latency"`
	Checks      []CheckResponse `json:"checks"`
	CheckRuns   int64           `json:"check_runs"`
	Failures    int64           `json:"failures"`
}

type EventsSummary struct {
	Published        uint64 `json:"published"`
	ListenerFailures uint64 `json:"listener_failures"`
	Dropped          uint64 `json:"dropped"`
	Listeners        int    `json:"listeners"`
	Subscribers      int    `json:"subscribers"`
}

type StatusResponse struct {
	Timestamp time.Time          `json:"timestamp"`
	System    SystemSummary      `json:"system"`
	Events    EventsSummary      `json:"events"`
	Endpoints []EndpointResponse `json:"endpoints"`
}

func (a *Application) statusHandler(w http.ResponseWriter, r *http.Request) {
	writeJSON(w, http.StatusOK, a.buildStatus())
}

func (a *Application) buildStatus() StatusResponse {
	endpoints := a.manager.EndpointManager()
	snapshot := a.manager.Metrics().Snapshot()

	all := endpoints.Endpoints()
	healthy := 0
	response := StatusResponse{
		Timestamp: time.Now(),
		Endpoints: make([]EndpointResponse, 0, len(all)),
	}

	for _, endpoint := range all {
		up := endpoints.IsEndpointHealthy(endpoint)
		if up {
			healthy++
		}

		stats := snapshot.Endpoints[endpoint.String()]
		entry := EndpointResponse{
			Name:        endpoint.String(),
			Status:      domain.HealthString(up),
			SuccessRate: format.Percentage(stats.SuccessRate),
			AvgLatency:  format.Latency(stats.AverageLatency),
			MinLatency:  format.Latency(stats.MinLatency),
			MaxLatency:  format.Latency(stats.MaxLatency),
			CheckRuns:   stats.Checks,
			Failures:    stats.Failures,
		}
		for _, check := range a.manager.HealthCheckRegistry().HealthChecks(endpoint) {
			entry.Checks = append(entry.Checks, checkStatus(check))
		}
		response.Endpoints = append(response.Endpoints, entry)
	}

	current := noEndpoint
	if ep, ok := a.manager.CurrentEndpoint(); ok {
		current = ep.String()
	}

	response.System = SystemSummary{
		Status:        systemStatus(healthy, len(all)),
		Strategy:      endpoints.SelectionStrategy().Name(),
		Current:       current,
		EndpointsUp:   format.EndpointsUp(healthy, len(all)),
		LastFailover:  format.TimeAgo(snapshot.LastFailover),
		UptimeHuman:   format.Duration(time.Since(a.StartTime)),
		FailoverCount: snapshot.FailoverCount,
		Running:       a.manager.IsRunning(),
	}

	bus := a.manager.EventBus().Stats()
	response.Events = EventsSummary{
		Published:        bus.TotalPublished,
		ListenerFailures: bus.ListenerFailure,
		Dropped:          bus.TotalDropped,
		Listeners:        bus.Listeners,
		Subscribers:      bus.ActiveSubscribers,
	}
	return response
}

// checkStatus reads a check's cached outcome, a check that hasn't run yet is
// reported as pending
func checkStatus(check domain.HealthCheck) CheckResponse {
	resp := CheckResponse{
		Name:    check.Name(),
		Status:  statusPending,
		LastRun: format.TimeAgo(time.Time{}),
		Latency: format.Latency(0),
	}
	timed, ok := check.(domain.HealthCheckTimings)
	if !ok {
		resp.Status = domain.HealthString(check.IsHealthy())
		return resp
	}
	ranAt, ran := timed.LastExecutionTime()
	if !ran {
		return resp
	}
	resp.Status = domain.HealthString(check.IsHealthy())
	resp.LastRun = format.TimeAgo(ranAt)
	if rt, ok := timed.LastResponseTime(); ok {
		resp.Latency = format.Latency(rt.Milliseconds())
	}
	return resp
}

func systemStatus(healthy, total int) string {
	switch {
	case healthy == 0:
		return statusCritical
	case healthy < total:
		return statusDegraded
	default:
		return statusHealthy
	}
}

// failoverHandler forces the current endpoint, ?endpoint=host:port
func (a *Application) failoverHandler(w http.ResponseWriter, r *http.Request) {
	endpoint, err := domain.ParseEndpoint(r.URL.Query().Get("endpoint"))
	if err != nil {
		writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
		return
	}

	if err := a.manager.ForceFailover(endpoint); err != nil {
		code := http.StatusInternalServerError
		if errors.Is(err, failover.ErrUnknownEndpoint) {
			code = http.StatusNotFound
		}
		writeJSON(w, code, map[string]string{"error": err.Error()})
		return
	}

	a.logger.InfoWithEndpoint("Manual failover requested", endpoint.String(), "remote", r.RemoteAddr)
	writeJSON(w, http.StatusOK, map[string]string{"current_endpoint": endpoint.String()})
}
