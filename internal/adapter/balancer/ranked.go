package balancer

import (
	"cmp"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchyard/internal/core/domain"
)

// rankedSelector picks the endpoint with the lowest rank. Ranks are set from
// outside and may be missing; if any candidate has no rank the first
// candidate wins.
type rankedSelector[T cmp.Ordered] struct {
	ranks *xsync.Map[domain.Endpoint, T]
	name  string
}

func newRankedSelector[T cmp.Ordered](name string) rankedSelector[T] {
	return rankedSelector[T]{
		ranks: xsync.NewMap[domain.Endpoint, T](),
		name:  name,
	}
}

func (r *rankedSelector[T]) Name() string {
	return r.name
}

func (r *rankedSelector[T]) Select(endpoints []domain.Endpoint) (domain.Endpoint, bool) {
	if len(endpoints) == 0 {
		return domain.Endpoint{}, false
	}

	best := endpoints[0]
	bestRank, ok := r.ranks.Load(best)
	if !ok {
		return best, true
	}

	for _, endpoint := range endpoints[1:] {
		rank, ok := r.ranks.Load(endpoint)
		if !ok {
			return endpoints[0], true
		}
		// strict less keeps the earliest on ties
		if rank < bestRank {
			best, bestRank = endpoint, rank
		}
	}
	return best, true
}

func (r *rankedSelector[T]) set(endpoint domain.Endpoint, rank T) {
	r.ranks.Store(endpoint, rank)
}

func (r *rankedSelector[T]) get(endpoint domain.Endpoint) (T, bool) {
	return r.ranks.Load(endpoint)
}

func (r *rankedSelector[T]) remove(endpoint domain.Endpoint) {
	r.ranks.Delete(endpoint)
}

// WeightedSelector prefers the endpoint with the lowest weight
type WeightedSelector struct {
	rankedSelector[float64]
}

func NewWeightedSelector() *WeightedSelector {
	return &WeightedSelector{rankedSelector: newRankedSelector[float64](DefaultBalancerWeighted)}
}

func (w *WeightedSelector) SetWeight(endpoint domain.Endpoint, weight float64) {
	w.set(endpoint, weight)
}

func (w *WeightedSelector) Weight(endpoint domain.Endpoint) (float64, bool) {
	return w.get(endpoint)
}

func (w *WeightedSelector) RemoveWeight(endpoint domain.Endpoint) {
	w.remove(endpoint)
}

// PrioritySelector prefers the endpoint with the lowest priority number
type PrioritySelector struct {
	rankedSelector[int]
}

func NewPrioritySelector() *PrioritySelector {
	return &PrioritySelector{rankedSelector: newRankedSelector[int](DefaultBalancerPriority)}
}

func (p *PrioritySelector) SetPriority(endpoint domain.Endpoint, priority int) {
	p.set(endpoint, priority)
}

func (p *PrioritySelector) Priority(endpoint domain.Endpoint) (int, bool) {
	return p.get(endpoint)
}

func (p *PrioritySelector) RemovePriority(endpoint domain.Endpoint) {
	p.remove(endpoint)
}
