package ports

import (
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
)

// FailoverListener is told whenever the selected endpoint changes.
// previous is nil on the first selection.
type FailoverListener interface {
	OnFailover(previous *domain.Endpoint, next domain.Endpoint, reason domain.FailoverReason)
}

type FailoverListenerFunc func(previous *domain.Endpoint, next domain.Endpoint, reason domain.FailoverReason)

func (f FailoverListenerFunc) OnFailover(previous *domain.Endpoint, next domain.Endpoint, reason domain.FailoverReason) {
	f(previous, next, reason)
}

// HealthChangeListener is told when an endpoint's recorded health flips
type HealthChangeListener interface {
	OnEndpointHealthChanged(endpoint domain.Endpoint, healthy bool)
}

type HealthChangeListenerFunc func(endpoint domain.Endpoint, healthy bool)

func (f HealthChangeListenerFunc) OnEndpointHealthChanged(endpoint domain.Endpoint, healthy bool) {
	f(endpoint, healthy)
}

// HealthCheckListener is told after every bound health check execution
type HealthCheckListener interface {
	OnHealthCheckExecuted(endpoint domain.Endpoint, check string, healthy bool, responseTime time.Duration)
}

type HealthCheckListenerFunc func(endpoint domain.Endpoint, check string, healthy bool, responseTime time.Duration)

func (f HealthCheckListenerFunc) OnHealthCheckExecuted(endpoint domain.Endpoint, check string, healthy bool, responseTime time.Duration) {
	f(endpoint, check, healthy, responseTime)
}
