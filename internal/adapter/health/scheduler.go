package health

import (
	"context"
	"reflect"
	"sync"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/logger"
)

// Schedulable is a check that knows how often it wants to run
type Schedulable interface {
	domain.HealthCheck
	Period() time.Duration
}

// Parent is a check made of other checks, scheduling cascades to its children
type Parent interface {
	Children() []domain.HealthCheck
}

type endpointBound interface {
	BoundEndpoint() (domain.Endpoint, bool)
}

// Scheduler keeps at most one Runner per check so start/stop are idempotent.
// A check that is both scheduled on its own and the child of a scheduled
// composite keeps running until neither holds it.
type Scheduler struct {
	runners map[domain.HealthCheck]*scheduled
	tracker *StatusTransitionTracker
	logger  *logger.StyledLogger
	mu      sync.Mutex
}

type scheduled struct {
	runner  *Runner
	parents int
	direct  bool
}

func NewScheduler(log *logger.StyledLogger) *Scheduler {
	return &Scheduler{
		runners: make(map[domain.HealthCheck]*scheduled),
		tracker: NewStatusTransitionTracker(),
		logger:  log,
	}
}

// Start schedules check and, for composites, every schedulable descendant.
// Checks without a period are left alone, as are values that can't be told
// apart by identity. Returns whether a runner was started for check itself.
func (s *Scheduler) Start(ctx context.Context, check domain.HealthCheck) bool {
	s.mu.Lock()
	defer s.mu.Unlock()

	if entry, ok := s.lookup(check); ok {
		entry.direct = true
		return false
	}
	entry := s.launchLocked(ctx, check)
	if entry == nil {
		return false
	}
	entry.direct = true
	return true
}

// launchLocked starts a runner for check and takes a reference on each of
// its schedulable children
func (s *Scheduler) launchLocked(ctx context.Context, check domain.HealthCheck) *scheduled {
	sc, ok := check.(Schedulable)
	if !ok || !comparableCheck(check) {
		return nil
	}

	entry := &scheduled{runner: NewRunner(sc, sc.Period(), s.observe)}
	s.runners[check] = entry
	entry.runner.Start(ctx)

	if parent, ok := check.(Parent); ok {
		for _, child := range parent.Children() {
			if existing, ok := s.lookup(child); ok {
				existing.parents++
				continue
			}
			if launched := s.launchLocked(ctx, child); launched != nil {
				launched.parents++
			}
		}
	}
	return entry
}

// Stop unschedules check, and any descendant nothing else holds, waiting for
// in-flight iterations. Returns whether check had been scheduled on its own.
func (s *Scheduler) Stop(check domain.HealthCheck) bool {
	s.mu.Lock()
	entry, ok := s.lookup(check)
	if !ok || !entry.direct {
		s.mu.Unlock()
		return false
	}
	entry.direct = false

	var stopping []*Runner
	if entry.parents == 0 {
		s.releaseLocked(check, entry, &stopping)
	}
	s.mu.Unlock()

	// outside the lock, an iteration may publish into code that calls back here
	for _, runner := range stopping {
		runner.Stop()
	}
	return true
}

func (s *Scheduler) releaseLocked(check domain.HealthCheck, entry *scheduled, out *[]*Runner) {
	delete(s.runners, check)
	s.tracker.Forget(s.trackingKey(check))
	*out = append(*out, entry.runner)

	parent, ok := check.(Parent)
	if !ok {
		return
	}
	for _, child := range parent.Children() {
		held, ok := s.lookup(child)
		if !ok {
			continue
		}
		held.parents--
		if held.parents <= 0 && !held.direct {
			s.releaseLocked(child, held, out)
		}
	}
}

// StopAll unschedules everything and waits for all in-flight iterations
func (s *Scheduler) StopAll() {
	s.mu.Lock()
	stopping := make([]*Runner, 0, len(s.runners))
	for check, entry := range s.runners {
		stopping = append(stopping, entry.runner)
		s.tracker.Forget(s.trackingKey(check))
	}
	s.runners = make(map[domain.HealthCheck]*scheduled)
	s.mu.Unlock()

	var wg sync.WaitGroup
	for _, runner := range stopping {
		wg.Add(1)
		go func(r *Runner) {
			defer wg.Done()
			r.Stop()
		}(runner)
	}
	wg.Wait()
}

func (s *Scheduler) IsScheduled(check domain.HealthCheck) bool {
	s.mu.Lock()
	defer s.mu.Unlock()
	_, ok := s.lookup(check)
	return ok
}

func (s *Scheduler) Count() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	return len(s.runners)
}

func (s *Scheduler) lookup(check domain.HealthCheck) (*scheduled, bool) {
	if !comparableCheck(check) {
		return nil, false
	}
	entry, ok := s.runners[check]
	return entry, ok
}

// comparableCheck reports whether check can be used as a map key. Checks are
// normally pointers, a value type holding a slice or map can't be.
func comparableCheck(check domain.HealthCheck) bool {
	return check != nil && reflect.TypeOf(check).Comparable()
}

func (s *Scheduler) trackingKey(check domain.HealthCheck) string {
	if b, ok := check.(endpointBound); ok {
		if ep, bound := b.BoundEndpoint(); bound {
			return ep.String() + "/" + check.Name()
		}
	}
	return check.Name()
}

func (s *Scheduler) observe(check domain.HealthCheck, healthy bool) {
	if s.logger == nil {
		return
	}
	key := s.trackingKey(check)
	shouldLog, failures := s.tracker.ShouldLog(key, healthy)
	if !shouldLog {
		return
	}
	if failures > 1 {
		s.logger.Warn("Health check still failing",
			"check", key,
			"consecutive_failures", failures)
		return
	}
	s.logger.InfoHealthStatus("Health check", key, healthy)
}
