package balancer

import (
	"math/rand/v2"

	"github.com/thushan/switchyard/internal/core/domain"
)

type RandomSelector struct{}

func NewRandomSelector() *RandomSelector {
	return &RandomSelector{}
}

func (r *RandomSelector) Name() string {
	return DefaultBalancerRandom
}

// Select picks uniformly. math/rand/v2's top-level source is goroutine safe.
func (r *RandomSelector) Select(endpoints []domain.Endpoint) (domain.Endpoint, bool) {
	if len(endpoints) == 0 {
		return domain.Endpoint{}, false
	}
	return endpoints[rand.IntN(len(endpoints))], true
}
