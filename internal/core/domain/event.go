package domain

import (
	"time"

	"github.com/google/uuid"
)

// Event is the closed set of facts published on the event bus. Only the
// variants declared in this file implement it; consumers switch on the
// concrete type and ignore the kinds they don't care about.
type Event interface {
	Kind() EventKind
	Header() EventHeader
	isEvent()
}

type EventKind string

const (
	EventHealthCheckStarted    EventKind = "healthcheck_started"
	EventHealthCheckCompleted  EventKind = "healthcheck_completed"
	EventHealthCheckFailed     EventKind = "healthcheck_failed"
	EventEndpointStatusChanged EventKind = "endpoint_status_changed"
	EventFailover              EventKind = "failover"
)

// EventHeader is stamped once at construction and never changes
type EventHeader struct {
	Timestamp time.Time
	ID        string
}

func newHeader() EventHeader {
	return EventHeader{
		ID:        uuid.NewString(),
		Timestamp: time.Now(),
	}
}

func (h EventHeader) Header() EventHeader {
	return h
}

func (EventHeader) isEvent() {}

type HealthCheckStarted struct {
	EventHeader
	Check    string
	Endpoint Endpoint
}

func NewHealthCheckStarted(endpoint Endpoint, check string) HealthCheckStarted {
	return HealthCheckStarted{EventHeader: newHeader(), Endpoint: endpoint, Check: check}
}

func (HealthCheckStarted) Kind() EventKind { return EventHealthCheckStarted }

type HealthCheckCompleted struct {
	EventHeader
	Check        string
	Endpoint     Endpoint
	ResponseTime time.Duration
}

func NewHealthCheckCompleted(endpoint Endpoint, check string, responseTime time.Duration) HealthCheckCompleted {
	return HealthCheckCompleted{EventHeader: newHeader(), Endpoint: endpoint, Check: check, ResponseTime: responseTime}
}

func (HealthCheckCompleted) Kind() EventKind { return EventHealthCheckCompleted }

type HealthCheckFailed struct {
	EventHeader
	Err          error
	Check        string
	Endpoint     Endpoint
	ResponseTime time.Duration
}

func NewHealthCheckFailed(endpoint Endpoint, check string, responseTime time.Duration, err error) HealthCheckFailed {
	return HealthCheckFailed{EventHeader: newHeader(), Endpoint: endpoint, Check: check, ResponseTime: responseTime, Err: err}
}

func (HealthCheckFailed) Kind() EventKind { return EventHealthCheckFailed }

type EndpointStatusChanged struct {
	EventHeader
	Endpoint Endpoint
	Healthy  bool
	Previous bool
}

func NewEndpointStatusChanged(endpoint Endpoint, healthy, previous bool) EndpointStatusChanged {
	return EndpointStatusChanged{EventHeader: newHeader(), Endpoint: endpoint, Healthy: healthy, Previous: previous}
}

func (EndpointStatusChanged) Kind() EventKind { return EventEndpointStatusChanged }

func (e EndpointStatusChanged) IsTransitionToHealthy() bool {
	return e.Healthy && !e.Previous
}

func (e EndpointStatusChanged) IsTransitionToUnhealthy() bool {
	return !e.Healthy && e.Previous
}

type Failover struct {
	EventHeader
	Previous *Endpoint
	Reason   FailoverReason
	New      Endpoint
}

func NewFailover(previous *Endpoint, next Endpoint, reason FailoverReason) Failover {
	return Failover{EventHeader: newHeader(), Previous: previous, New: next, Reason: reason}
}

func (Failover) Kind() EventKind { return EventFailover }

type FailoverReason string

const (
	ReasonEndpointUnhealthy       FailoverReason = "endpoint_unhealthy"
	ReasonBetterEndpointAvailable FailoverReason = "better_endpoint_available"
	ReasonManual                  FailoverReason = "manual"
	ReasonOther                   FailoverReason = "other"
)

func (r FailoverReason) String() string {
	return string(r)
}

// EndpointOf returns the endpoint an event is about. Failover events report
// the endpoint traffic moved to.
func EndpointOf(event Event) Endpoint {
	switch e := event.(type) {
	case HealthCheckStarted:
		return e.Endpoint
	case HealthCheckCompleted:
		return e.Endpoint
	case HealthCheckFailed:
		return e.Endpoint
	case EndpointStatusChanged:
		return e.Endpoint
	case Failover:
		return e.New
	default:
		return Endpoint{}
	}
}
