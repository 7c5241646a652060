package registry

import (
	"sync"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchyard/internal/adapter/balancer"
	"github.com/thushan/switchyard/internal/core/domain"
)

var (
	redisA = domain.NewEndpoint("redis-a", 6379)
	redisB = domain.NewEndpoint("redis-b", 6379)
	redisC = domain.NewEndpoint("redis-c", 6379)
)

type recordingPublisher struct {
	events []domain.Event
	mu     sync.Mutex
}

func (p *recordingPublisher) Publish(event domain.Event) int {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.events = append(p.events, event)
	return 1
}

func (p *recordingPublisher) statusChanges() []domain.EndpointStatusChanged {
	p.mu.Lock()
	defer p.mu.Unlock()
	var out []domain.EndpointStatusChanged
	for _, e := range p.events {
		if sc, ok := e.(domain.EndpointStatusChanged); ok {
			out = append(out, sc)
		}
	}
	return out
}

func TestEndpointManager_AddAndRemove(t *testing.T) {
	m := NewEndpointManager(nil)

	m.AddEndpoint(redisA)
	assert.True(t, m.IsEndpointHealthy(redisA), "new endpoints start healthy")
	assert.True(t, m.HasEndpoint(redisA))
	assert.Equal(t, []domain.Endpoint{redisA}, m.Endpoints())

	m.RemoveEndpoint(redisA)
	assert.False(t, m.IsEndpointHealthy(redisA))
	assert.False(t, m.HasEndpoint(redisA))
	assert.Empty(t, m.Endpoints())
	assert.Equal(t, 0, m.Size())

	assert.NotPanics(t, func() { m.RemoveEndpoint(redisB) })
}

func TestEndpointManager_ReAddResetsHealthAndKeepsOrder(t *testing.T) {
	m := NewEndpointManager(nil)
	m.AddEndpoint(redisA)
	m.AddEndpoint(redisB)
	m.UpdateEndpointHealth(redisA, false)

	m.AddEndpoint(redisA)

	assert.True(t, m.IsEndpointHealthy(redisA))
	assert.Equal(t, []domain.Endpoint{redisA, redisB}, m.Endpoints())
}

func TestEndpointManager_UpdateEndpointHealth_PublishesOnlyOnFlip(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewEndpointManager(pub)
	m.AddEndpoint(redisA)

	m.UpdateEndpointHealth(redisA, true)
	assert.Empty(t, pub.statusChanges(), "already healthy")

	m.UpdateEndpointHealth(redisA, false)
	m.UpdateEndpointHealth(redisA, false)

	changes := pub.statusChanges()
	require.Len(t, changes, 1)
	assert.Equal(t, redisA, changes[0].Endpoint)
	assert.False(t, changes[0].Healthy)
	assert.True(t, changes[0].Previous)
	assert.True(t, changes[0].IsTransitionToUnhealthy())

	m.UpdateEndpointHealth(redisA, true)
	changes = pub.statusChanges()
	require.Len(t, changes, 2)
	assert.True(t, changes[1].IsTransitionToHealthy())
}

func TestEndpointManager_UpdateUnknownIsNoop(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewEndpointManager(pub)

	m.UpdateEndpointHealth(redisA, false)

	assert.False(t, m.HasEndpoint(redisA))
	assert.Empty(t, pub.statusChanges())
}

func TestEndpointManager_ConcurrentFlipsPublishOncePerTransition(t *testing.T) {
	pub := &recordingPublisher{}
	m := NewEndpointManager(pub)
	m.AddEndpoint(redisA)

	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			m.UpdateEndpointHealth(redisA, false)
		}()
	}
	wg.Wait()

	assert.Len(t, pub.statusChanges(), 1)
}

func TestEndpointManager_HealthyEndpointsInRegistrationOrder(t *testing.T) {
	m := NewEndpointManager(nil)
	m.AddEndpoint(redisC)
	m.AddEndpoint(redisA)
	m.AddEndpoint(redisB)
	m.UpdateEndpointHealth(redisA, false)

	assert.Equal(t, []domain.Endpoint{redisC, redisB}, m.HealthyEndpoints())
}

func TestEndpointManager_SelectHealthyEndpoint(t *testing.T) {
	m := NewEndpointManager(nil)

	_, ok := m.SelectHealthyEndpoint()
	assert.False(t, ok, "nothing registered")

	m.AddEndpoint(redisA)
	m.UpdateEndpointHealth(redisA, false)
	_, ok = m.SelectHealthyEndpoint()
	assert.False(t, ok, "nothing healthy")

	m.AddEndpoint(redisB)
	ep, ok := m.SelectHealthyEndpoint()
	require.True(t, ok)
	assert.Equal(t, redisB, ep)
}

func TestEndpointManager_RoundRobinCoversEveryEndpoint(t *testing.T) {
	m := NewEndpointManager(nil)
	m.AddEndpoint(redisA)
	m.AddEndpoint(redisB)
	m.AddEndpoint(redisC)

	seen := make(map[domain.Endpoint]bool)
	for i := 0; i < 3; i++ {
		ep, ok := m.SelectHealthyEndpoint()
		require.True(t, ok)
		assert.False(t, seen[ep], "repeated %s before covering all", ep)
		seen[ep] = true
	}
	assert.Len(t, seen, 3)
}

func TestEndpointManager_Strategies(t *testing.T) {
	m := NewEndpointManager(nil)
	assert.Equal(t, balancer.DefaultBalancerRoundRobin, m.SelectionStrategy().Name())

	m.AddEndpoint(redisA)
	m.AddEndpoint(redisB)
	m.AddEndpoint(redisC)

	weighted := balancer.NewWeightedSelector()
	weighted.SetWeight(redisA, 100)
	weighted.SetWeight(redisB, 50)
	weighted.SetWeight(redisC, 75)
	m.SetSelectionStrategy(weighted)

	ep, _ := m.SelectHealthyEndpoint()
	assert.Equal(t, redisB, ep)

	priority := balancer.NewPrioritySelector()
	priority.SetPriority(redisA, 3)
	priority.SetPriority(redisB, 1)
	priority.SetPriority(redisC, 2)
	m.SetSelectionStrategy(priority)

	ep, _ = m.SelectHealthyEndpoint()
	assert.Equal(t, redisB, ep)

	m.UpdateEndpointHealth(redisB, false)
	ep, _ = m.SelectHealthyEndpoint()
	assert.Equal(t, redisC, ep)

	m.SetSelectionStrategy(nil)
	assert.Same(t, priority, m.SelectionStrategy())
}
