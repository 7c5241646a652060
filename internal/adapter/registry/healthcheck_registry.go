package registry

import (
	"cmp"
	"context"
	"reflect"
	"slices"
	"sync"
	"sync/atomic"

	"github.com/puzpuzpuz/xsync/v4"
	"golang.org/x/sync/errgroup"

	"github.com/thushan/switchyard/internal/core/domain"
)

const DefaultCheckConcurrency = 8

type checkList struct {
	checks []domain.HealthCheck
	seq    uint64
	mu     sync.RWMutex
}

func (l *checkList) snapshot() []domain.HealthCheck {
	l.mu.RLock()
	defer l.mu.RUnlock()
	return slices.Clone(l.checks)
}

// HealthCheckRegistry holds the checks attached to each endpoint. Endpoint
// health here is the AND of its checks; an endpoint with no checks is healthy.
type HealthCheckRegistry struct {
	checks      *xsync.Map[domain.Endpoint, *checkList]
	seq         atomic.Uint64
	concurrency int
}

// NewHealthCheckRegistry bounds ExecuteAllHealthChecks to concurrency
// endpoints at a time, values below one use DefaultCheckConcurrency
func NewHealthCheckRegistry(concurrency int) *HealthCheckRegistry {
	if concurrency < 1 {
		concurrency = DefaultCheckConcurrency
	}
	return &HealthCheckRegistry{
		checks:      xsync.NewMap[domain.Endpoint, *checkList](),
		concurrency: concurrency,
	}
}

func (r *HealthCheckRegistry) RegisterHealthCheck(endpoint domain.Endpoint, check domain.HealthCheck) {
	if check == nil {
		return
	}
	list, _ := r.checks.LoadOrCompute(endpoint, func() (*checkList, bool) {
		return &checkList{seq: r.seq.Add(1)}, false
	})
	list.mu.Lock()
	list.checks = append(list.checks, check)
	list.mu.Unlock()
}

// UnregisterHealthChecks drops every check for endpoint and returns them
func (r *HealthCheckRegistry) UnregisterHealthChecks(endpoint domain.Endpoint) []domain.HealthCheck {
	list, ok := r.checks.LoadAndDelete(endpoint)
	if !ok {
		return nil
	}
	return list.snapshot()
}

// UnregisterHealthCheck removes one check by identity. Checks whose type
// isn't comparable can only be dropped with UnregisterHealthChecks.
func (r *HealthCheckRegistry) UnregisterHealthCheck(endpoint domain.Endpoint, check domain.HealthCheck) bool {
	if check == nil || !reflect.TypeOf(check).Comparable() {
		return false
	}
	list, ok := r.checks.Load(endpoint)
	if !ok {
		return false
	}
	list.mu.Lock()
	defer list.mu.Unlock()
	for i, existing := range list.checks {
		if reflect.TypeOf(existing) == reflect.TypeOf(check) && existing == check {
			list.checks = slices.Delete(list.checks, i, i+1)
			return true
		}
	}
	return false
}

func (r *HealthCheckRegistry) HealthChecks(endpoint domain.Endpoint) []domain.HealthCheck {
	list, ok := r.checks.Load(endpoint)
	if !ok {
		return nil
	}
	return list.snapshot()
}

// AllHealthChecks returns a copy of the whole registry
func (r *HealthCheckRegistry) AllHealthChecks() map[domain.Endpoint][]domain.HealthCheck {
	out := make(map[domain.Endpoint][]domain.HealthCheck, r.checks.Size())
	r.checks.Range(func(endpoint domain.Endpoint, list *checkList) bool {
		if checks := list.snapshot(); len(checks) > 0 {
			out[endpoint] = checks
		}
		return true
	})
	return out
}

// ExecuteHealthChecks runs the endpoint's checks in order, stopping at the
// first failure
func (r *HealthCheckRegistry) ExecuteHealthChecks(ctx context.Context, endpoint domain.Endpoint) bool {
	for _, check := range r.HealthChecks(endpoint) {
		if !check.Execute(ctx) {
			return false
		}
	}
	return true
}

// ExecuteAllHealthChecks runs every endpoint's checks, endpoints in parallel
func (r *HealthCheckRegistry) ExecuteAllHealthChecks(ctx context.Context) map[domain.Endpoint]bool {
	endpoints := r.endpoints()
	results := make(map[domain.Endpoint]bool, len(endpoints))
	var mu sync.Mutex

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(r.concurrency)
	for _, endpoint := range endpoints {
		g.Go(func() error {
			healthy := r.ExecuteHealthChecks(gctx, endpoint)
			mu.Lock()
			results[endpoint] = healthy
			mu.Unlock()
			return nil
		})
	}
	_ = g.Wait()

	return results
}

// IsEndpointHealthy uses each check's last recorded outcome, nothing is run
func (r *HealthCheckRegistry) IsEndpointHealthy(endpoint domain.Endpoint) bool {
	for _, check := range r.HealthChecks(endpoint) {
		if !check.IsHealthy() {
			return false
		}
	}
	return true
}

// HasOutcomes reports whether every check of endpoint that records its
// timings has finished at least one run
func (r *HealthCheckRegistry) HasOutcomes(endpoint domain.Endpoint) bool {
	for _, check := range r.HealthChecks(endpoint) {
		timed, ok := check.(domain.HealthCheckTimings)
		if !ok {
			continue
		}
		if _, ran := timed.LastExecutionTime(); !ran {
			return false
		}
	}
	return true
}

// HealthyEndpoints returns registered endpoints whose cached checks all pass,
// in the order their first check was registered
func (r *HealthCheckRegistry) HealthyEndpoints() []domain.Endpoint {
	var healthy []domain.Endpoint
	for _, endpoint := range r.endpoints() {
		if r.IsEndpointHealthy(endpoint) {
			healthy = append(healthy, endpoint)
		}
	}
	return healthy
}

func (r *HealthCheckRegistry) endpoints() []domain.Endpoint {
	type ordered struct {
		endpoint domain.Endpoint
		seq      uint64
	}
	var all []ordered
	r.checks.Range(func(endpoint domain.Endpoint, list *checkList) bool {
		all = append(all, ordered{endpoint: endpoint, seq: list.seq})
		return true
	})
	slices.SortFunc(all, func(a, b ordered) int {
		return cmp.Compare(a.seq, b.seq)
	})

	out := make([]domain.Endpoint, len(all))
	for i, o := range all {
		out[i] = o.endpoint
	}
	return out
}
