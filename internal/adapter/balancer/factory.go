package balancer

import (
	"fmt"
	"sort"
	"sync"

	"github.com/thushan/switchyard/internal/core/domain"
)

const (
	DefaultBalancerRoundRobin = "round-robin"
	DefaultBalancerRandom     = "random"
	DefaultBalancerWeighted   = "weighted"
	DefaultBalancerPriority   = "priority"
)

type Factory struct {
	creators map[string]func() domain.SelectionStrategy
	mu       sync.RWMutex
}

func NewFactory() *Factory {
	factory := &Factory{
		creators: make(map[string]func() domain.SelectionStrategy),
	}

	factory.Register(DefaultBalancerRoundRobin, func() domain.SelectionStrategy {
		return NewRoundRobinSelector()
	})
	factory.Register(DefaultBalancerRandom, func() domain.SelectionStrategy {
		return NewRandomSelector()
	})
	factory.Register(DefaultBalancerWeighted, func() domain.SelectionStrategy {
		return NewWeightedSelector()
	})
	factory.Register(DefaultBalancerPriority, func() domain.SelectionStrategy {
		return NewPrioritySelector()
	})

	return factory
}

func (f *Factory) Register(name string, creator func() domain.SelectionStrategy) {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.creators[name] = creator
}

func (f *Factory) Create(name string) (domain.SelectionStrategy, error) {
	f.mu.RLock()
	creator, exists := f.creators[name]
	f.mu.RUnlock()

	if !exists {
		return nil, fmt.Errorf("unknown selection strategy: %s", name)
	}

	return creator(), nil
}

// GetAvailableStrategies returns the registered names, sorted
func (f *Factory) GetAvailableStrategies() []string {
	f.mu.RLock()
	defer f.mu.RUnlock()

	strategies := make([]string, 0, len(f.creators))
	for name := range f.creators {
		strategies = append(strategies, name)
	}
	sort.Strings(strategies)
	return strategies
}
