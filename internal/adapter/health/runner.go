package health

import (
	"context"
	"sync"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
)

// RunnerState follows NOT_STARTED -> RUNNING -> STOPPED, a stopped runner
// can't be restarted
type RunnerState int32

const (
	RunnerNotStarted RunnerState = iota
	RunnerRunning
	RunnerStopped
)

func (s RunnerState) String() string {
	switch s {
	case RunnerRunning:
		return "running"
	case RunnerStopped:
		return "stopped"
	default:
		return "not_started"
	}
}

// ResultObserver is told the outcome of every scheduled iteration
type ResultObserver func(check domain.HealthCheck, healthy bool)

// Runner executes one check at a fixed rate on its own goroutine. The first
// iteration runs immediately. Stop is cooperative: it waits for an
// in-flight iteration rather than interrupting it.
type Runner struct {
	check    domain.HealthCheck
	observer ResultObserver
	stopCh   chan struct{}
	period   time.Duration
	wg       sync.WaitGroup
	mu       sync.Mutex
	state    RunnerState
}

func NewRunner(check domain.HealthCheck, period time.Duration, observer ResultObserver) *Runner {
	if period <= 0 {
		period = DefaultSchedulePeriod
	}
	return &Runner{
		check:    check,
		period:   period,
		observer: observer,
		stopCh:   make(chan struct{}),
	}
}

// Start launches the loop, it reports false if the runner was already started
// or has been stopped. Cancelling ctx ends the loop as well as Stop does.
func (r *Runner) Start(ctx context.Context) bool {
	r.mu.Lock()
	defer r.mu.Unlock()

	if r.state != RunnerNotStarted {
		return false
	}
	r.state = RunnerRunning

	r.wg.Add(1)
	go r.loop(ctx)
	return true
}

// Stop signals the loop and waits for the current iteration to finish
func (r *Runner) Stop() {
	r.mu.Lock()
	switch r.state {
	case RunnerRunning:
		r.state = RunnerStopped
		close(r.stopCh)
	case RunnerNotStarted:
		r.state = RunnerStopped
		r.mu.Unlock()
		return
	default:
		r.mu.Unlock()
		return
	}
	r.mu.Unlock()

	r.wg.Wait()
}

func (r *Runner) State() RunnerState {
	r.mu.Lock()
	defer r.mu.Unlock()
	return r.state
}

func (r *Runner) Check() domain.HealthCheck {
	return r.check
}

func (r *Runner) loop(ctx context.Context) {
	defer r.wg.Done()

	ticker := time.NewTicker(r.period)
	defer ticker.Stop()

	r.iterate(ctx)

	for {
		select {
		case <-ctx.Done():
			return
		case <-r.stopCh:
			return
		case <-ticker.C:
			// a stop that raced with the tick wins
			select {
			case <-r.stopCh:
				return
			default:
			}
			r.iterate(ctx)
		}
	}
}

func (r *Runner) iterate(ctx context.Context) {
	healthy := r.check.Execute(ctx)
	if r.observer != nil {
		r.observer(r.check, healthy)
	}
}
