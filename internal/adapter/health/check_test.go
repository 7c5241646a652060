package health

import (
	"context"
	"errors"
	"fmt"
	"net"
	"sync"
	"sync/atomic"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchyard/internal/core/domain"
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

func (p *recordingPublisher) Events() []domain.Event {
	p.mu.Lock()
	defer p.mu.Unlock()
	out := make([]domain.Event, len(p.events))
	copy(out, p.events)
	return out
}

func (p *recordingPublisher) Kinds() []domain.EventKind {
	events := p.Events()
	kinds := make([]domain.EventKind, len(events))
	for i, e := range events {
		kinds[i] = e.Kind()
	}
	return kinds
}

var testEndpoint = domain.NewEndpoint("redis-a", 6379)

// scriptedProbe returns results in order, the last one repeats
func scriptedProbe(calls *atomic.Int32, results ...bool) ProbeFunc {
	return func(ctx context.Context) (bool, error) {
		n := int(calls.Add(1))
		if n > len(results) {
			return results[len(results)-1], nil
		}
		return results[n-1], nil
	}
}

func TestCheck_Defaults(t *testing.T) {
	c := NewCheck("custom", func(ctx context.Context) (bool, error) { return true, nil })

	assert.Equal(t, "custom", c.Name())
	assert.Equal(t, DefaultTimeout, c.Timeout())
	assert.Equal(t, DefaultRetries, c.Retries())
	assert.Equal(t, DefaultRetryDelay, c.RetryDelay())
	assert.Equal(t, DefaultSchedulePeriod, c.Period())
	assert.False(t, c.IsHealthy(), "a check is unhealthy until it has run")

	_, ran := c.LastExecutionTime()
	assert.False(t, ran)
	_, measured := c.LastResponseTime()
	assert.False(t, measured)
}

func TestCheck_FluentSettersReturnSameInstance(t *testing.T) {
	c := NewCheck("custom", func(ctx context.Context) (bool, error) { return true, nil })

	same := c.WithTimeout(time.Second).WithRetries(0).WithRetryDelay(-time.Second).WithSchedulePeriod(time.Minute)

	assert.Same(t, c, same)
	assert.Equal(t, time.Second, c.Timeout())
	assert.Equal(t, 1, c.Retries(), "retries below one are normalised")
	assert.Equal(t, time.Duration(0), c.RetryDelay())
	assert.Equal(t, time.Minute, c.Period())
}

func TestCheck_RetriesUntilSuccess(t *testing.T) {
	var calls atomic.Int32
	c := NewCheck("flaky", scriptedProbe(&calls, false, false, true)).
		WithRetries(3).
		WithRetryDelay(time.Millisecond)

	assert.True(t, c.Execute(context.Background()))
	assert.True(t, c.IsHealthy())
	assert.Equal(t, int32(3), calls.Load())
}

func TestCheck_StopsRetryingAfterFirstSuccess(t *testing.T) {
	var calls atomic.Int32
	c := NewCheck("steady", scriptedProbe(&calls, true)).WithRetries(5)

	assert.True(t, c.Execute(context.Background()))
	assert.Equal(t, int32(1), calls.Load())
}

func TestCheck_AllAttemptsFail(t *testing.T) {
	var calls atomic.Int32
	pub := &recordingPublisher{}
	c := NewCheck("down", scriptedProbe(&calls, false)).
		WithRetries(3).
		WithRetryDelay(time.Millisecond)
	c.BindEvents(pub, testEndpoint)

	assert.False(t, c.Execute(context.Background()))
	assert.False(t, c.IsHealthy())
	assert.Equal(t, int32(3), calls.Load())

	events := pub.Events()
	require.Len(t, events, 2)
	failed, ok := events[1].(domain.HealthCheckFailed)
	require.True(t, ok)
	assert.Equal(t, testEndpoint, failed.Endpoint)
	assert.Equal(t, "down", failed.Check)

	var hcErr *domain.HealthCheckError
	require.True(t, errors.As(failed.Err, &hcErr))
	assert.Equal(t, 3, hcErr.Attempts)
	assert.True(t, errors.Is(failed.Err, domain.ErrProbeFailed))
}

func TestCheck_ErrorsAndPanicsCountAsFailedAttempts(t *testing.T) {
	var calls atomic.Int32
	probe := func(ctx context.Context) (bool, error) {
		switch calls.Add(1) {
		case 1:
			panic("connection pool exploded")
		case 2:
			return false, errors.New("READONLY You can't write against a read only replica")
		default:
			return true, nil
		}
	}
	c := NewCheck("moody", probe).WithRetries(3).WithRetryDelay(0)

	assert.NotPanics(t, func() {
		assert.True(t, c.Execute(context.Background()))
	})
	assert.Equal(t, int32(3), calls.Load())
}

func TestCheck_LastErrorIsReported(t *testing.T) {
	boom := errors.New("boom")
	pub := &recordingPublisher{}
	c := NewCheck("erroring", func(ctx context.Context) (bool, error) {
		return false, boom
	}).WithRetries(2).WithRetryDelay(0)
	c.BindEvents(pub, testEndpoint)

	c.Execute(context.Background())

	failed := pub.Events()[1].(domain.HealthCheckFailed)
	assert.ErrorIs(t, failed.Err, boom)
}

func TestCheck_PanicIsClassified(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCheck("panicky", func(ctx context.Context) (bool, error) {
		panic("nope")
	}).WithRetries(1)
	c.BindEvents(pub, testEndpoint)

	c.Execute(context.Background())

	failed := pub.Events()[1].(domain.HealthCheckFailed)
	var hcErr *domain.HealthCheckError
	require.True(t, errors.As(failed.Err, &hcErr))
	assert.Equal(t, domain.ErrorTypePanic, hcErr.ErrorType)
	assert.ErrorIs(t, failed.Err, domain.ErrProbePanicked)
}

func TestCheck_PublishesStartedThenCompleted(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCheck("ok", func(ctx context.Context) (bool, error) {
		time.Sleep(2 * time.Millisecond)
		return true, nil
	})
	c.BindEvents(pub, testEndpoint)

	require.True(t, c.Execute(context.Background()))

	assert.Equal(t, []domain.EventKind{domain.EventHealthCheckStarted, domain.EventHealthCheckCompleted}, pub.Kinds())

	started := pub.Events()[0].(domain.HealthCheckStarted)
	completed := pub.Events()[1].(domain.HealthCheckCompleted)
	assert.Equal(t, testEndpoint, started.Endpoint)
	assert.Equal(t, testEndpoint, completed.Endpoint)
	assert.GreaterOrEqual(t, completed.ResponseTime, 2*time.Millisecond)
	assert.False(t, completed.Header().Timestamp.Before(started.Header().Timestamp))
	assert.NotEqual(t, started.Header().ID, completed.Header().ID)
}

func TestCheck_UnboundPublishesNothing(t *testing.T) {
	c := NewCheck("loner", func(ctx context.Context) (bool, error) { return true, nil })

	_, bound := c.BoundEndpoint()
	assert.False(t, bound)
	assert.True(t, c.Execute(context.Background()))
}

func TestCheck_ResponseTimeCoversWholeRetrySequence(t *testing.T) {
	c := NewCheck("slow-fail", func(ctx context.Context) (bool, error) { return false, nil }).
		WithRetries(3).
		WithRetryDelay(20 * time.Millisecond)

	c.Execute(context.Background())

	rt, ok := c.LastResponseTime()
	require.True(t, ok)
	assert.GreaterOrEqual(t, rt, 40*time.Millisecond, "two delays between three attempts")

	at, ok := c.LastExecutionTime()
	require.True(t, ok)
	assert.WithinDuration(t, time.Now(), at, time.Second)
}

func TestCheck_NoDelayAfterLastAttempt(t *testing.T) {
	c := NewCheck("single", func(ctx context.Context) (bool, error) { return false, nil }).
		WithRetries(1).
		WithRetryDelay(time.Second)

	start := time.Now()
	c.Execute(context.Background())
	assert.Less(t, time.Since(start), 500*time.Millisecond)
}

func TestCheck_TimeoutAppliesPerAttempt(t *testing.T) {
	pub := &recordingPublisher{}
	var calls atomic.Int32
	c := NewCheck("hangs", func(ctx context.Context) (bool, error) {
		calls.Add(1)
		<-ctx.Done()
		return false, nil
	}).WithTimeout(20 * time.Millisecond).WithRetries(2).WithRetryDelay(0)
	c.BindEvents(pub, testEndpoint)

	assert.False(t, c.Execute(context.Background()))
	assert.Equal(t, int32(2), calls.Load())

	failed := pub.Events()[1].(domain.HealthCheckFailed)
	var hcErr *domain.HealthCheckError
	require.True(t, errors.As(failed.Err, &hcErr))
	assert.Equal(t, domain.ErrorTypeTimeout, hcErr.ErrorType)
}

func TestCheck_CancelledContextStopsRetrying(t *testing.T) {
	var calls atomic.Int32
	c := NewCheck("cancelled", scriptedProbe(&calls, false)).
		WithRetries(5).
		WithRetryDelay(time.Second)

	ctx, cancel := context.WithCancel(context.Background())
	time.AfterFunc(20*time.Millisecond, cancel)

	start := time.Now()
	assert.False(t, c.Execute(ctx))
	assert.Less(t, time.Since(start), 500*time.Millisecond)
	assert.Equal(t, int32(1), calls.Load())
}

type timeoutNetError struct{ timeout bool }

func (e *timeoutNetError) Error() string   { return "net error" }
func (e *timeoutNetError) Timeout() bool   { return e.timeout }
func (e *timeoutNetError) Temporary() bool { return false }

var _ net.Error = (*timeoutNetError)(nil)

func TestClassifyError(t *testing.T) {
	tests := []struct {
		err  error
		want domain.HealthCheckErrorType
		name string
	}{
		{name: "nil", err: nil, want: domain.ErrorTypeNone},
		{name: "deadline", err: context.DeadlineExceeded, want: domain.ErrorTypeTimeout},
		{name: "cancelled", err: fmt.Errorf("wrapped: %w", context.Canceled), want: domain.ErrorTypeCancelled},
		{name: "net timeout", err: &timeoutNetError{timeout: true}, want: domain.ErrorTypeTimeout},
		{name: "net refused", err: &timeoutNetError{}, want: domain.ErrorTypeNetwork},
		{name: "status", err: &StatusError{Got: 503, Want: 200}, want: domain.ErrorTypeHTTPError},
		{name: "panic", err: fmt.Errorf("%w: x", domain.ErrProbePanicked), want: domain.ErrorTypePanic},
		{name: "other", err: errors.New("weird"), want: domain.ErrorTypeOther},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, classifyError(tt.err))
		})
	}
}

func TestPingAndCommandChecks(t *testing.T) {
	ping := NewPingCheck(func(ctx context.Context) bool { return true })
	assert.Equal(t, PingCheckName, ping.Name())
	assert.Equal(t, DefaultPingPeriod, ping.Period())
	assert.True(t, ping.Execute(context.Background()))

	cmd := NewCommandCheck("INFO replication", func(ctx context.Context) (bool, error) {
		return false, errors.New("LOADING Redis is loading the dataset in memory")
	}).WithRetries(1)
	assert.Equal(t, "INFO replication", cmd.Name())
	assert.Equal(t, DefaultCommandPeriod, cmd.Period())
	assert.False(t, cmd.Execute(context.Background()))
}

func TestCheck_ExecutionTimeRecordedOnlyOnceOutcomeIs(t *testing.T) {
	entered := make(chan struct{})
	release := make(chan struct{})
	c := NewCheck("blocking", func(ctx context.Context) (bool, error) {
		close(entered)
		<-release
		return true, nil
	}).WithRetries(1)

	done := make(chan bool)
	go func() { done <- c.Execute(context.Background()) }()

	<-entered
	_, ran := c.LastExecutionTime()
	assert.False(t, ran, "a first run in flight has no recorded outcome")

	close(release)
	require.True(t, <-done)
	_, ran = c.LastExecutionTime()
	assert.True(t, ran)
	assert.True(t, c.IsHealthy())
}

func TestCheck_RenameWhileRunning(t *testing.T) {
	pub := &recordingPublisher{}
	c := NewCheck("before", func(ctx context.Context) (bool, error) { return true, nil }).WithRetries(1)
	c.BindEvents(pub, testEndpoint)

	var wg sync.WaitGroup
	wg.Add(2)
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.Execute(context.Background())
		}
	}()
	go func() {
		defer wg.Done()
		for i := 0; i < 50; i++ {
			c.WithName(fmt.Sprintf("renamed-%d", i))
		}
	}()
	wg.Wait()

	// Started and Completed of one run carry the same name
	events := pub.Events()
	require.Len(t, events, 100)
	for i := 0; i < len(events); i += 2 {
		started, ok := events[i].(domain.HealthCheckStarted)
		require.True(t, ok)
		completed, ok := events[i+1].(domain.HealthCheckCompleted)
		require.True(t, ok)
		assert.Equal(t, started.Check, completed.Check)
	}
}
