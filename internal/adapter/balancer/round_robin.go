package balancer

import (
	"sync/atomic"

	"github.com/thushan/switchyard/internal/core/domain"
)

// RoundRobinSelector cycles through whatever healthy set it is handed. The
// counter is shared across calls, so a changing set shifts the rotation
// rather than restarting it.
type RoundRobinSelector struct {
	counter atomic.Uint64
}

func NewRoundRobinSelector() *RoundRobinSelector {
	return &RoundRobinSelector{}
}

func (r *RoundRobinSelector) Name() string {
	return DefaultBalancerRoundRobin
}

func (r *RoundRobinSelector) Select(endpoints []domain.Endpoint) (domain.Endpoint, bool) {
	if len(endpoints) == 0 {
		return domain.Endpoint{}, false
	}

	current := r.counter.Add(1) - 1 // start from 0
	index := current % uint64(len(endpoints))

	return endpoints[index], true
}
