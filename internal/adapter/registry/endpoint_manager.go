package registry

import (
	"cmp"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchyard/internal/adapter/balancer"
	"github.com/thushan/switchyard/internal/core/domain"
)

type endpointState struct {
	seq     uint64
	healthy atomic.Bool
}

// EndpointManager tracks the endpoints in play and whether each is currently
// usable. It never probes anything itself, health arrives via
// UpdateEndpointHealth.
type EndpointManager struct {
	publisher domain.EventPublisher
	endpoints *xsync.Map[domain.Endpoint, *endpointState]
	strategy  domain.SelectionStrategy
	seq       atomic.Uint64
	mu        sync.RWMutex
}

// NewEndpointManager starts with round-robin selection. publisher may be nil.
func NewEndpointManager(publisher domain.EventPublisher) *EndpointManager {
	return &EndpointManager{
		publisher: publisher,
		endpoints: xsync.NewMap[domain.Endpoint, *endpointState](),
		strategy:  balancer.NewRoundRobinSelector(),
	}
}

// AddEndpoint registers endpoint as healthy. Adding a known endpoint marks it
// healthy again but keeps its place in the order.
func (m *EndpointManager) AddEndpoint(endpoint domain.Endpoint) {
	state, loaded := m.endpoints.LoadOrCompute(endpoint, func() (*endpointState, bool) {
		s := &endpointState{seq: m.seq.Add(1)}
		s.healthy.Store(true)
		return s, false
	})
	if loaded {
		state.healthy.Store(true)
	}
}

func (m *EndpointManager) RemoveEndpoint(endpoint domain.Endpoint) {
	m.endpoints.Delete(endpoint)
}

func (m *EndpointManager) HasEndpoint(endpoint domain.Endpoint) bool {
	_, ok := m.endpoints.Load(endpoint)
	return ok
}

// Endpoints returns every registered endpoint in registration order
func (m *EndpointManager) Endpoints() []domain.Endpoint {
	return m.collect(func(*endpointState) bool { return true })
}

func (m *EndpointManager) IsEndpointHealthy(endpoint domain.Endpoint) bool {
	state, ok := m.endpoints.Load(endpoint)
	if !ok {
		return false
	}
	return state.healthy.Load()
}

// UpdateEndpointHealth records a new health flag. Unknown endpoints are
// ignored. EndpointStatusChanged is published only when the flag flips.
func (m *EndpointManager) UpdateEndpointHealth(endpoint domain.Endpoint, healthy bool) {
	state, ok := m.endpoints.Load(endpoint)
	if !ok {
		return
	}
	previous := state.healthy.Swap(healthy)
	if previous == healthy || m.publisher == nil {
		return
	}
	m.publisher.Publish(domain.NewEndpointStatusChanged(endpoint, healthy, previous))
}

// HealthyEndpoints returns the healthy subset in registration order
func (m *EndpointManager) HealthyEndpoints() []domain.Endpoint {
	return m.collect(func(s *endpointState) bool { return s.healthy.Load() })
}

// SelectHealthyEndpoint applies the selection strategy to the healthy set
func (m *EndpointManager) SelectHealthyEndpoint() (domain.Endpoint, bool) {
	healthy := m.HealthyEndpoints()
	if len(healthy) == 0 {
		return domain.Endpoint{}, false
	}
	return m.SelectionStrategy().Select(healthy)
}

// SetSelectionStrategy swaps the strategy, nil is ignored
func (m *EndpointManager) SetSelectionStrategy(strategy domain.SelectionStrategy) {
	if strategy == nil {
		return
	}
	m.mu.Lock()
	m.strategy = strategy
	m.mu.Unlock()
}

func (m *EndpointManager) SelectionStrategy() domain.SelectionStrategy {
	m.mu.RLock()
	defer m.mu.RUnlock()
	return m.strategy
}

func (m *EndpointManager) Size() int {
	return m.endpoints.Size()
}

func (m *EndpointManager) collect(keep func(*endpointState) bool) []domain.Endpoint {
	type ordered struct {
		endpoint domain.Endpoint
		seq      uint64
	}
	var matches []ordered
	m.endpoints.Range(func(endpoint domain.Endpoint, state *endpointState) bool {
		if keep(state) {
			matches = append(matches, ordered{endpoint: endpoint, seq: state.seq})
		}
		return true
	})
	slices.SortFunc(matches, func(a, b ordered) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]domain.Endpoint, len(matches))
	for i, match := range matches {
		out[i] = match.endpoint
	}
	return out
}

