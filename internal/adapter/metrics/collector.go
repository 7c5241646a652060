package metrics

/*
	Collector listens on the event bus and keeps per-endpoint response time
	and success/failure aggregates plus global failover counts. The bus may
	deliver from any goroutine that runs a check, so nothing here takes a lock.
*/

import (
	"math"
	"sync/atomic"
	"time"

	"github.com/puzpuzpuz/xsync/v4"

	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/core/ports"
)

type responseTimes struct {
	count atomic.Int64
	sum   atomic.Int64
	min   atomic.Int64
	max   atomic.Int64
}

func newResponseTimes() *responseTimes {
	rt := &responseTimes{}
	rt.min.Store(math.MaxInt64)
	return rt
}

func (rt *responseTimes) record(d time.Duration) {
	n := int64(d)
	rt.count.Add(1)
	rt.sum.Add(n)

	for {
		current := rt.min.Load()
		if n >= current || rt.min.CompareAndSwap(current, n) {
			break
		}
	}
	for {
		current := rt.max.Load()
		if n <= current || rt.max.CompareAndSwap(current, n) {
			break
		}
	}
}

type Collector struct {
	responseTimes *xsync.Map[domain.Endpoint, *responseTimes]
	successes     *xsync.Map[domain.Endpoint, *xsync.Counter]
	failures      *xsync.Map[domain.Endpoint, *xsync.Counter]
	failovers     *xsync.Counter
	lastFailover  atomic.Int64
}

var _ ports.MetricsReader = (*Collector)(nil)

func NewCollector() *Collector {
	return &Collector{
		responseTimes: xsync.NewMap[domain.Endpoint, *responseTimes](),
		successes:     xsync.NewMap[domain.Endpoint, *xsync.Counter](),
		failures:      xsync.NewMap[domain.Endpoint, *xsync.Counter](),
		failovers:     xsync.NewCounter(),
	}
}

// OnEvent makes Collector an event bus listener
func (c *Collector) OnEvent(event domain.Event) error {
	switch e := event.(type) {
	case domain.HealthCheckCompleted:
		c.timesFor(e.Endpoint).record(e.ResponseTime)
		counterFor(c.successes, e.Endpoint).Inc()
	case domain.HealthCheckFailed:
		counterFor(c.failures, e.Endpoint).Inc()
	case domain.Failover:
		c.failovers.Inc()
		c.lastFailover.Store(e.Timestamp.UnixNano())
	}
	return nil
}

func (c *Collector) timesFor(endpoint domain.Endpoint) *responseTimes {
	rt, _ := c.responseTimes.LoadOrCompute(endpoint, func() (*responseTimes, bool) {
		return newResponseTimes(), false
	})
	return rt
}

func counterFor(m *xsync.Map[domain.Endpoint, *xsync.Counter], endpoint domain.Endpoint) *xsync.Counter {
	counter, _ := m.LoadOrCompute(endpoint, func() (*xsync.Counter, bool) {
		return xsync.NewCounter(), false
	})
	return counter
}

func (c *Collector) AverageResponseTime(endpoint domain.Endpoint) (time.Duration, bool) {
	rt, ok := c.responseTimes.Load(endpoint)
	if !ok {
		return 0, false
	}
	count := rt.count.Load()
	if count == 0 {
		return 0, false
	}
	return time.Duration(rt.sum.Load() / count), true
}

func (c *Collector) MinResponseTime(endpoint domain.Endpoint) (time.Duration, bool) {
	rt, ok := c.responseTimes.Load(endpoint)
	if !ok || rt.count.Load() == 0 {
		return 0, false
	}
	return time.Duration(rt.min.Load()), true
}

func (c *Collector) MaxResponseTime(endpoint domain.Endpoint) (time.Duration, bool) {
	rt, ok := c.responseTimes.Load(endpoint)
	if !ok || rt.count.Load() == 0 {
		return 0, false
	}
	return time.Duration(rt.max.Load()), true
}

// SuccessRate is successes / (successes + failures) as a percentage
func (c *Collector) SuccessRate(endpoint domain.Endpoint) (float64, bool) {
	successes, failures := c.counts(endpoint)
	total := successes + failures
	if total == 0 {
		return 0, false
	}
	return float64(successes) / float64(total) * 100, true
}

func (c *Collector) counts(endpoint domain.Endpoint) (successes, failures int64) {
	if counter, ok := c.successes.Load(endpoint); ok {
		successes = counter.Value()
	}
	if counter, ok := c.failures.Load(endpoint); ok {
		failures = counter.Value()
	}
	return successes, failures
}

func (c *Collector) FailoverCount() int64 {
	return c.failovers.Value()
}

func (c *Collector) LastFailoverTime() (time.Time, bool) {
	nanos := c.lastFailover.Load()
	if nanos == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, nanos), true
}

// Snapshot copies every aggregate, endpoints keyed by host:port
func (c *Collector) Snapshot() ports.MetricsSnapshot {
	snapshot := ports.MetricsSnapshot{
		Endpoints:     make(map[string]ports.EndpointStats),
		FailoverCount: c.FailoverCount(),
	}
	if last, ok := c.LastFailoverTime(); ok {
		snapshot.LastFailover = last
	}

	seen := make(map[domain.Endpoint]struct{})
	collect := func(endpoint domain.Endpoint) {
		if _, done := seen[endpoint]; done {
			return
		}
		seen[endpoint] = struct{}{}
		snapshot.Endpoints[endpoint.String()] = c.endpointStats(endpoint)
	}
	c.responseTimes.Range(func(endpoint domain.Endpoint, _ *responseTimes) bool {
		collect(endpoint)
		return true
	})
	c.failures.Range(func(endpoint domain.Endpoint, _ *xsync.Counter) bool {
		collect(endpoint)
		return true
	})

	return snapshot
}

func (c *Collector) endpointStats(endpoint domain.Endpoint) ports.EndpointStats {
	successes, failures := c.counts(endpoint)
	stats := ports.EndpointStats{
		Endpoint:  endpoint.String(),
		Successes: successes,
		Failures:  failures,
		Checks:    successes + failures,
	}
	if avg, ok := c.AverageResponseTime(endpoint); ok {
		stats.AverageLatency = avg.Milliseconds()
	}
	if lo, ok := c.MinResponseTime(endpoint); ok {
		stats.MinLatency = lo.Milliseconds()
	}
	if hi, ok := c.MaxResponseTime(endpoint); ok {
		stats.MaxLatency = hi.Milliseconds()
	}
	if rate, ok := c.SuccessRate(endpoint); ok {
		stats.SuccessRate = rate
	}
	return stats
}

// Reset clears every aggregate
func (c *Collector) Reset() {
	c.responseTimes.Clear()
	c.successes.Clear()
	c.failures.Clear()
	c.failovers.Reset()
	c.lastFailover.Store(0)
}
