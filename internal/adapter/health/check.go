package health

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"net"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/logger"
	"github.com/thushan/switchyard/theme"
)

/*
Health Check Execution:

Every run (manual Execute or scheduled) goes through the same sequence:
- Started is published (when bound to a bus)
- the probe is attempted up to Retries times, each attempt under its own Timeout
- a failed attempt sleeps RetryDelay before the next one, the last one doesn't
- errors and panics from the probe count as a failed attempt and are logged
- healthy = any attempt succeeded, response time = the whole sequence
- Completed(responseTime) or Failed(last error) is published
*/

const (
	DefaultTimeout        = 5 * time.Second
	DefaultRetries        = 3
	DefaultRetryDelay     = 1 * time.Second
	DefaultSchedulePeriod = 30 * time.Second
)

// ProbeFunc runs one attempt against an endpoint. A false result with a nil
// error is a plain "not healthy".
type ProbeFunc func(ctx context.Context) (bool, error)

// Check is the probe definition shared by every variant: a ProbeFunc plus
// retry policy, timings and an optional event binding. Scheduling lives in
// Runner, a Check never owns a goroutine.
type Check struct {
	publisher domain.EventPublisher
	probe     ProbeFunc
	logger    *logger.StyledLogger
	name      string
	children  []domain.HealthCheck
	endpoint  domain.Endpoint

	timeout    time.Duration
	retryDelay time.Duration
	period     time.Duration
	retries    int

	lastExecution atomic.Int64 // unix nano, 0 = never
	lastResponse  atomic.Int64 // nanoseconds, -1 = never
	mu            sync.RWMutex
	healthy       atomic.Bool
	bound         bool
}

type checkSettings struct {
	publisher  domain.EventPublisher
	name       string
	endpoint   domain.Endpoint
	timeout    time.Duration
	retryDelay time.Duration
	retries    int
	bound      bool
}

// NewCheck builds a check around an arbitrary probe with the default policy
func NewCheck(name string, probe ProbeFunc) *Check {
	c := &Check{
		name:       name,
		probe:      probe,
		timeout:    DefaultTimeout,
		retries:    DefaultRetries,
		retryDelay: DefaultRetryDelay,
		period:     DefaultSchedulePeriod,
		logger:     logger.NewStyledLogger(slog.Default(), theme.Default()),
	}
	c.lastResponse.Store(-1)
	return c
}

func (c *Check) Name() string {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.name
}

func (c *Check) IsHealthy() bool {
	return c.healthy.Load()
}

// WithTimeout bounds every single attempt
func (c *Check) WithTimeout(timeout time.Duration) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	if timeout > 0 {
		c.timeout = timeout
	}
	return c
}

// WithRetries sets the number of attempts per run, values below 1 mean 1
func (c *Check) WithRetries(retries int) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	if retries < 1 {
		retries = 1
	}
	c.retries = retries
	return c
}

func (c *Check) WithRetryDelay(delay time.Duration) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	if delay < 0 {
		delay = 0
	}
	c.retryDelay = delay
	return c
}

// WithSchedulePeriod sets how often a Runner executes this check
func (c *Check) WithSchedulePeriod(period time.Duration) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	if period > 0 {
		c.period = period
	}
	return c
}

func (c *Check) WithName(name string) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.name = name
	return c
}

func (c *Check) WithLogger(log *logger.StyledLogger) *Check {
	c.mu.Lock()
	defer c.mu.Unlock()
	if log != nil {
		c.logger = log
	}
	return c
}

func (c *Check) Timeout() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.timeout
}

func (c *Check) Retries() int {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retries
}

func (c *Check) RetryDelay() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.retryDelay
}

func (c *Check) Period() time.Duration {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.period
}

// Children returns the checks a composite combines, nil for everything else
func (c *Check) Children() []domain.HealthCheck {
	return c.children
}

// BindEvents makes every later run publish Started/Completed/Failed for endpoint
func (c *Check) BindEvents(publisher domain.EventPublisher, endpoint domain.Endpoint) {
	c.mu.Lock()
	defer c.mu.Unlock()
	c.publisher = publisher
	c.endpoint = endpoint
	c.bound = publisher != nil
}

// BoundEndpoint reports the endpoint events are tagged with, if any
func (c *Check) BoundEndpoint() (domain.Endpoint, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return c.endpoint, c.bound
}

func (c *Check) LastExecutionTime() (time.Time, bool) {
	ts := c.lastExecution.Load()
	if ts == 0 {
		return time.Time{}, false
	}
	return time.Unix(0, ts), true
}

func (c *Check) LastResponseTime() (time.Duration, bool) {
	rt := c.lastResponse.Load()
	if rt < 0 {
		return 0, false
	}
	return time.Duration(rt), true
}

func (c *Check) settings() checkSettings {
	c.mu.RLock()
	defer c.mu.RUnlock()
	return checkSettings{
		publisher:  c.publisher,
		name:       c.name,
		endpoint:   c.endpoint,
		bound:      c.bound,
		timeout:    c.timeout,
		retries:    c.retries,
		retryDelay: c.retryDelay,
	}
}

// Execute runs the probe now, bypassing any schedule, and records the outcome.
// LastExecutionTime only reports a run once its outcome is stored.
func (c *Check) Execute(ctx context.Context) bool {
	s := c.settings()

	start := time.Now()
	if s.bound {
		s.publisher.Publish(domain.NewHealthCheckStarted(s.endpoint, s.name))
	}

	healthy, attempts, lastErr := c.runAttempts(ctx, s)

	elapsed := time.Since(start)
	c.healthy.Store(healthy)
	c.lastResponse.Store(int64(elapsed))
	c.lastExecution.Store(start.UnixNano())

	if !s.bound {
		return healthy
	}

	if healthy {
		s.publisher.Publish(domain.NewHealthCheckCompleted(s.endpoint, s.name, elapsed))
		return healthy
	}

	failure := &domain.HealthCheckError{
		Err:       lastErr,
		Check:     s.name,
		Endpoint:  s.endpoint.String(),
		ErrorType: classifyError(lastErr),
		Attempts:  attempts,
		Latency:   elapsed,
	}
	s.publisher.Publish(domain.NewHealthCheckFailed(s.endpoint, s.name, elapsed, failure))
	return healthy
}

func (c *Check) runAttempts(ctx context.Context, s checkSettings) (bool, int, error) {
	var lastErr error

	for attempt := 1; attempt <= s.retries; attempt++ {
		ok, err := c.attempt(ctx, s.timeout)
		if ok {
			return true, attempt, nil
		}

		if err == nil {
			err = domain.ErrProbeFailed
		}
		lastErr = err
		c.logger.Debug("Health check attempt failed",
			"check", s.name,
			"endpoint", s.endpoint.String(),
			"attempt", attempt,
			"of", s.retries,
			"category", classifyError(err).String(),
			"error", err)

		if attempt == s.retries {
			return false, attempt, lastErr
		}
		if !sleepContext(ctx, s.retryDelay) {
			return false, attempt, ctx.Err()
		}
	}

	return false, s.retries, lastErr
}

func (c *Check) attempt(ctx context.Context, timeout time.Duration) (ok bool, err error) {
	attemptCtx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	defer func() {
		if r := recover(); r != nil {
			ok = false
			err = fmt.Errorf("%w: %v", domain.ErrProbePanicked, r)
		}
	}()

	ok, err = c.probe(attemptCtx)
	if !ok && err == nil && attemptCtx.Err() != nil {
		err = attemptCtx.Err()
	}
	return ok, err
}

func sleepContext(ctx context.Context, d time.Duration) bool {
	if d <= 0 {
		return ctx.Err() == nil
	}
	timer := time.NewTimer(d)
	defer timer.Stop()

	select {
	case <-ctx.Done():
		return false
	case <-timer.C:
		return true
	}
}

// classifyError determines the type of error that occurred during health checking
func classifyError(err error) domain.HealthCheckErrorType {
	if err == nil {
		return domain.ErrorTypeNone
	}
	if errors.Is(err, domain.ErrProbePanicked) {
		return domain.ErrorTypePanic
	}
	if errors.Is(err, context.DeadlineExceeded) {
		return domain.ErrorTypeTimeout
	}
	if errors.Is(err, context.Canceled) {
		return domain.ErrorTypeCancelled
	}

	var statusErr *StatusError
	if errors.As(err, &statusErr) {
		return domain.ErrorTypeHTTPError
	}

	var netErr net.Error
	if errors.As(err, &netErr) {
		if netErr.Timeout() {
			return domain.ErrorTypeTimeout
		}
		return domain.ErrorTypeNetwork
	}

	return domain.ErrorTypeOther
}
