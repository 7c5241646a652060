package domain

import (
	"context"
	"time"
)

type HealthCheckErrorType int

const (
	ErrorTypeNone HealthCheckErrorType = iota
	ErrorTypeNetwork
	ErrorTypeTimeout
	ErrorTypeCancelled
	ErrorTypeHTTPError
	ErrorTypePanic
	ErrorTypeOther
)

func (t HealthCheckErrorType) String() string {
	switch t {
	case ErrorTypeNone:
		return "none"
	case ErrorTypeNetwork:
		return "network"
	case ErrorTypeTimeout:
		return "timeout"
	case ErrorTypeCancelled:
		return "cancelled"
	case ErrorTypeHTTPError:
		return "http"
	case ErrorTypePanic:
		return "panic"
	default:
		return "other"
	}
}

// HealthCheck is a probe that decides whether an endpoint is usable.
// Execute runs it now, IsHealthy reads the last recorded outcome.
type HealthCheck interface {
	Name() string
	Execute(ctx context.Context) bool
	IsHealthy() bool
}

// HealthCheckTimings is implemented by checks that record when they last ran
type HealthCheckTimings interface {
	LastExecutionTime() (time.Time, bool)
	LastResponseTime() (time.Duration, bool)
}

// EventPublisher is the producer side of the event bus
type EventPublisher interface {
	Publish(event Event) int
}

// EventBinder is implemented by checks that can publish their own
// Started/Completed/Failed events for the endpoint they're bound to.
type EventBinder interface {
	BindEvents(publisher EventPublisher, endpoint Endpoint)
}
