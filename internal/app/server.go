package app

import (
	"encoding/json"
	"net/http"

	"github.com/thushan/switchyard/internal/config"
	"github.com/thushan/switchyard/pkg/profiler"
)

const (
	ContentTypeJSON   = "application/json"
	ContentTypeHeader = "Content-Type"

	RouteHealth   = "/internal/health"
	RouteStatus   = "/internal/status"
	RouteProcess  = "/internal/process"
	RouteVersion  = "/version"
	RouteFailover = "/internal/failover"
	RouteEvents   = "/internal/events"
)

func (a *Application) routes(cfg config.MetricsConfig) http.Handler {
	metricsPath := cfg.Path
	if metricsPath == "" {
		metricsPath = config.DefaultMetricsPath
	}

	mux := http.NewServeMux()
	mux.Handle("GET "+metricsPath, a.exporter.Handler())
	mux.HandleFunc("GET "+RouteHealth, a.healthHandler)
	mux.HandleFunc("GET "+RouteStatus, a.statusHandler)
	mux.HandleFunc("GET "+RouteProcess, a.processStatsHandler)
	mux.HandleFunc("GET "+RouteVersion, a.versionHandler)
	mux.HandleFunc("POST "+RouteFailover, a.failoverHandler)
	mux.HandleFunc("GET "+RouteEvents, a.eventsHandler)

	if cfg.Profile {
		profiler.Register(mux)
	}
	return mux
}

// healthHandler reports whether there is anywhere to send traffic right now
func (a *Application) healthHandler(w http.ResponseWriter, r *http.Request) {
	status := statusHealthy
	code := http.StatusOK
	if len(a.manager.EndpointManager().HealthyEndpoints()) == 0 {
		status = statusCritical
		code = http.StatusServiceUnavailable
	}
	writeJSON(w, code, map[string]string{"status": status})
}

func writeJSON(w http.ResponseWriter, code int, body any) {
	w.Header().Set(ContentTypeHeader, ContentTypeJSON)
	w.WriteHeader(code)
	_ = json.NewEncoder(w).Encode(body)
}
