package app

import (
	"encoding/json"
	"net/http"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
)

const ContentTypeNDJSON = "application/x-ndjson"

// EventResponse is one line of the events stream
type EventResponse struct {
	Timestamp time.Time `json:"timestamp"`
	ID        string    `json:"id"`
	Kind      string    `json:"kind"`
	Endpoint  string    `json:"endpoint"`
	Check     string    `json:"check,omitempty"`
	Previous  string    `json:"previous,omitempty"`
	Reason    string    `json:"reason,omitempty"`
	Error     string    `json:"error,omitempty"`
	Latency   string    `json:"latency,omitempty"`
	Healthy   *bool     `json:"healthy,omitempty"`
}

func toEventResponse(event domain.Event) EventResponse {
	header := event.Header()
	resp := EventResponse{
		ID:        header.ID,
		Timestamp: header.Timestamp,
		Kind:      string(event.Kind()),
		Endpoint:  domain.EndpointOf(event).String(),
	}

	switch e := event.(type) {
	case domain.HealthCheckStarted:
		resp.Check = e.Check
	case domain.HealthCheckCompleted:
		resp.Check = e.Check
		resp.Latency = e.ResponseTime.String()
	case domain.HealthCheckFailed:
		resp.Check = e.Check
		resp.Latency = e.ResponseTime.String()
		if e.Err != nil {
			resp.Error = e.Err.Error()
		}
	case domain.EndpointStatusChanged:
		healthy := e.Healthy
		resp.Healthy = &healthy
	case domain.Failover:
		resp.Reason = e.Reason.String()
		if e.Previous != nil {
			resp.Previous = e.Previous.String()
		}
	}
	return resp
}

// eventsHandler streams bus events as newline delimited JSON until the
// client goes away, ?endpoint=host:port narrows it to one endpoint. A slow
// reader loses events rather than holding up the bus.
func (a *Application) eventsHandler(w http.ResponseWriter, r *http.Request) {
	var only *domain.Endpoint
	if raw := r.URL.Query().Get("endpoint"); raw != "" {
		endpoint, err := domain.ParseEndpoint(raw)
		if err != nil {
			writeJSON(w, http.StatusBadRequest, map[string]string{"error": err.Error()})
			return
		}
		only = &endpoint
	}

	flusher, ok := w.(http.Flusher)
	if !ok {
		writeJSON(w, http.StatusInternalServerError, map[string]string{"error": "streaming unsupported"})
		return
	}

	events, cleanup := a.manager.EventBus().Subscribe(r.Context())
	defer cleanup()

	w.Header().Set(ContentTypeHeader, ContentTypeNDJSON)
	w.Header().Set("Cache-Control", "no-cache")
	w.WriteHeader(http.StatusOK)
	flusher.Flush()

	enc := json.NewEncoder(w)
	for event := range events {
		if only != nil && domain.EndpointOf(event) != *only {
			continue
		}
		if err := enc.Encode(toEventResponse(event)); err != nil {
			return
		}
		flusher.Flush()
	}
}
