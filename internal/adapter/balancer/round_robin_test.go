package balancer

import (
	"fmt"
	"sync"
	"testing"

	"github.com/thushan/switchyard/internal/core/domain"
)

func endpoints(n int) []domain.Endpoint {
	out := make([]domain.Endpoint, n)
	for i := range out {
		out[i] = domain.NewEndpoint(fmt.Sprintf("redis-%d", i), 6379)
	}
	return out
}

func TestRoundRobinSelector_Select_NoEndpoints(t *testing.T) {
	selector := NewRoundRobinSelector()

	if _, ok := selector.Select(nil); ok {
		t.Error("Expected no selection for an empty set")
	}
	if selector.Name() != DefaultBalancerRoundRobin {
		t.Errorf("Expected name %q, got %q", DefaultBalancerRoundRobin, selector.Name())
	}
}

func TestRoundRobinSelector_Select_CoversAllBeforeRepeating(t *testing.T) {
	selector := NewRoundRobinSelector()
	eps := endpoints(3)

	seen := make(map[domain.Endpoint]bool)
	for i := 0; i < 3; i++ {
		ep, ok := selector.Select(eps)
		if !ok {
			t.Fatal("Expected a selection")
		}
		if seen[ep] {
			t.Fatalf("Endpoint %s repeated before all were visited", ep)
		}
		seen[ep] = true
	}

	next, _ := selector.Select(eps)
	if next != eps[0] {
		t.Errorf("Expected rotation to wrap to %s, got %s", eps[0], next)
	}
}

func TestRoundRobinSelector_Select_SingleEndpoint(t *testing.T) {
	selector := NewRoundRobinSelector()
	eps := endpoints(1)

	for i := 0; i < 5; i++ {
		if ep, _ := selector.Select(eps); ep != eps[0] {
			t.Errorf("Expected %s, got %s", eps[0], ep)
		}
	}
}

func TestRoundRobinSelector_SharedCounterAcrossSetChanges(t *testing.T) {
	selector := NewRoundRobinSelector()
	eps := endpoints(3)

	selector.Select(eps) // counter 0
	selector.Select(eps) // counter 1

	// counter 2 against a shrunk set of two: 2 % 2 = 0
	if ep, _ := selector.Select(eps[:2]); ep != eps[0] {
		t.Errorf("Expected %s, got %s", eps[0], ep)
	}
}

func TestRoundRobinSelector_ConcurrentDistribution(t *testing.T) {
	selector := NewRoundRobinSelector()
	eps := endpoints(4)

	const perWorker = 250
	const workers = 8

	var mu sync.Mutex
	counts := make(map[domain.Endpoint]int)

	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func() {
			defer wg.Done()
			local := make(map[domain.Endpoint]int)
			for i := 0; i < perWorker; i++ {
				ep, _ := selector.Select(eps)
				local[ep]++
			}
			mu.Lock()
			for ep, n := range local {
				counts[ep] += n
			}
			mu.Unlock()
		}()
	}
	wg.Wait()

	want := workers * perWorker / len(eps)
	for _, ep := range eps {
		if counts[ep] != want {
			t.Errorf("Expected %d selections of %s, got %d", want, ep, counts[ep])
		}
	}
}

func TestRandomSelector(t *testing.T) {
	selector := NewRandomSelector()
	eps := endpoints(3)

	if _, ok := selector.Select(nil); ok {
		t.Error("Expected no selection for an empty set")
	}

	seen := make(map[domain.Endpoint]bool)
	for i := 0; i < 500; i++ {
		ep, ok := selector.Select(eps)
		if !ok {
			t.Fatal("Expected a selection")
		}
		seen[ep] = true
	}
	if len(seen) != len(eps) {
		t.Errorf("Expected every endpoint to be picked at least once in 500 draws, saw %d", len(seen))
	}
}
