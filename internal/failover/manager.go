package failover

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"slices"
	"strconv"
	"sync"
	"sync/atomic"
	"time"

	"github.com/thushan/switchyard/internal/adapter/health"
	"github.com/thushan/switchyard/internal/adapter/metrics"
	"github.com/thushan/switchyard/internal/adapter/registry"
	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/core/ports"
	"github.com/thushan/switchyard/internal/logger"
	"github.com/thushan/switchyard/pkg/eventbus"
	"github.com/thushan/switchyard/theme"
)

var ErrUnknownEndpoint = errors.New("endpoint is not registered")

type Option func(*Manager)

func WithLogger(log *logger.StyledLogger) Option {
	return func(m *Manager) {
		if log != nil {
			m.logger = log
		}
	}
}

// WithHealthSync pushes the registry's cached verdict for an endpoint into
// the endpoint manager after every check on that endpoint completes or fails.
// Nothing is pushed until each of the endpoint's checks has run once.
func WithHealthSync(enabled bool) Option {
	return func(m *Manager) {
		m.healthSync = enabled
	}
}

func WithCheckConcurrency(n int) Option {
	return func(m *Manager) {
		m.concurrency = n
	}
}

func WithSelectionStrategy(strategy domain.SelectionStrategy) Option {
	return func(m *Manager) {
		m.strategy = strategy
	}
}

type listenerEntry[L any] struct {
	listener L
	id       string
}

// Manager owns its bus, endpoint manager, check registry and metrics and
// decides when the recommended endpoint has changed
type Manager struct {
	bus       *eventbus.EventBus[domain.Event]
	endpoints *registry.EndpointManager
	checks    *registry.HealthCheckRegistry
	metrics   *metrics.Collector
	scheduler *health.Scheduler
	logger    *logger.StyledLogger
	strategy  domain.SelectionStrategy

	previous  *domain.Endpoint
	runCancel context.CancelFunc
	runCtx    context.Context

	failoverListeners []listenerEntry[ports.FailoverListener]
	healthListeners   []listenerEntry[ports.HealthChangeListener]
	checkListeners    []listenerEntry[ports.HealthCheckListener]

	concurrency int
	listenerSeq atomic.Uint64
	selectMu    sync.Mutex
	announceMu  sync.Mutex
	lifecycleMu sync.Mutex
	listenersMu sync.RWMutex
	running     atomic.Bool
	healthSync  bool
}

func NewManager(opts ...Option) *Manager {
	m := &Manager{
		logger:      logger.NewStyledLogger(slog.Default(), theme.Default()),
		concurrency: registry.DefaultCheckConcurrency,
	}
	for _, opt := range opts {
		opt(m)
	}

	m.bus = eventbus.NewWithConfig[domain.Event](eventbus.EventBusConfig{
		BufferSize: eventbus.DefaultConfig.BufferSize,
		OnListenerError: func(listenerID string, err error) {
			m.logger.Error("Event listener failed", "listener", listenerID, "error", err)
		},
	})
	m.endpoints = registry.NewEndpointManager(m.bus)
	m.checks = registry.NewHealthCheckRegistry(m.concurrency)
	m.metrics = metrics.NewCollector()
	m.scheduler = health.NewScheduler(m.logger)

	if m.strategy != nil {
		m.endpoints.SetSelectionStrategy(m.strategy)
	}

	m.bus.Register(m.metrics)
	m.bus.RegisterFunc(m.dispatch)

	return m
}

func (m *Manager) AddEndpoint(endpoint domain.Endpoint) {
	m.endpoints.AddEndpoint(endpoint)
}

// RemoveEndpoint forgets endpoint and stops and drops its checks
func (m *Manager) RemoveEndpoint(endpoint domain.Endpoint) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.endpoints.RemoveEndpoint(endpoint)
	for _, check := range m.checks.UnregisterHealthChecks(endpoint) {
		m.scheduler.Stop(check)
	}
}

// RegisterHealthCheck stores check for endpoint and binds its events to the
// bus. While the manager is running the check is scheduled straight away.
func (m *Manager) RegisterHealthCheck(endpoint domain.Endpoint, check domain.HealthCheck) {
	if check == nil {
		return
	}
	if binder, ok := check.(domain.EventBinder); ok {
		binder.BindEvents(m.bus, endpoint)
	}

	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	m.checks.RegisterHealthCheck(endpoint, check)
	if m.running.Load() {
		m.scheduler.Start(m.runCtx, check)
	}
}

// UnregisterHealthCheck removes a single check and stops it if scheduled
func (m *Manager) UnregisterHealthCheck(endpoint domain.Endpoint, check domain.HealthCheck) bool {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.checks.UnregisterHealthCheck(endpoint, check) {
		return false
	}
	m.scheduler.Stop(check)
	return true
}

func (m *Manager) SetSelectionStrategy(strategy domain.SelectionStrategy) {
	m.endpoints.SetSelectionStrategy(strategy)
}

// Start schedules every registered check. A second Start is a no-op.
func (m *Manager) Start(ctx context.Context) {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if m.running.Load() {
		return
	}
	m.runCtx, m.runCancel = context.WithCancel(ctx)
	m.running.Store(true)

	scheduled := 0
	for _, checks := range m.checks.AllHealthChecks() {
		for _, check := range checks {
			if m.scheduler.Start(m.runCtx, check) {
				scheduled++
			}
		}
	}
	m.logger.InfoWithCount("Failover manager started, health checks scheduled", scheduled)
}

// Stop waits for in-flight checks to finish, it doesn't interrupt them
func (m *Manager) Stop() {
	m.lifecycleMu.Lock()
	defer m.lifecycleMu.Unlock()

	if !m.running.Load() {
		return
	}
	m.running.Store(false)

	m.scheduler.StopAll()
	m.runCancel()
	m.runCtx, m.runCancel = nil, nil

	m.logger.Info("Failover manager stopped")
}

func (m *Manager) IsRunning() bool {
	return m.running.Load()
}

// Close stops the manager and shuts the bus down, the manager is unusable after
func (m *Manager) Close() {
	m.Stop()
	m.bus.Shutdown()
}

// GetHealthyEndpoint returns the strategy's current pick. When it differs
// from the last pick a Failover event is published and failover listeners are
// notified before returning. Announcements go out in the order the changes
// were decided, so each event's Previous is the New of the one before it.
// Failover listeners must not select or force an endpoint themselves.
func (m *Manager) GetHealthyEndpoint() (domain.Endpoint, bool) {
	m.selectMu.Lock()
	next, ok := m.endpoints.SelectHealthyEndpoint()
	if !ok {
		m.selectMu.Unlock()
		return domain.Endpoint{}, false
	}
	previous := m.previous
	if previous != nil && *previous == next {
		m.selectMu.Unlock()
		return next, true
	}
	reason := m.classify(previous)
	m.previous = &next

	// taken before selectMu is let go so the next change queues behind us
	m.announceMu.Lock()
	m.selectMu.Unlock()
	defer m.announceMu.Unlock()

	m.announce(previous, next, reason)
	return next, true
}

// ForceFailover switches the remembered endpoint by hand. The next
// GetHealthyEndpoint still applies the strategy and may move away again.
func (m *Manager) ForceFailover(endpoint domain.Endpoint) error {
	if !m.endpoints.HasEndpoint(endpoint) {
		return domain.NewEndpointError("force_failover", endpoint.String(), ErrUnknownEndpoint)
	}

	m.selectMu.Lock()
	previous := m.previous
	if previous != nil && *previous == endpoint {
		m.selectMu.Unlock()
		return nil
	}
	m.previous = &endpoint

	m.announceMu.Lock()
	m.selectMu.Unlock()
	defer m.announceMu.Unlock()

	m.announce(previous, endpoint, domain.ReasonManual)
	return nil
}

// CurrentEndpoint is the last endpoint handed out, without selecting again
func (m *Manager) CurrentEndpoint() (domain.Endpoint, bool) {
	m.selectMu.Lock()
	defer m.selectMu.Unlock()
	if m.previous == nil {
		return domain.Endpoint{}, false
	}
	return *m.previous, true
}

func (m *Manager) classify(previous *domain.Endpoint) domain.FailoverReason {
	switch {
	case previous == nil:
		return domain.ReasonOther
	case !m.endpoints.IsEndpointHealthy(*previous):
		return domain.ReasonEndpointUnhealthy
	default:
		return domain.ReasonBetterEndpointAvailable
	}
}

func (m *Manager) announce(previous *domain.Endpoint, next domain.Endpoint, reason domain.FailoverReason) {
	from := ""
	if previous != nil {
		from = previous.String()
	}
	m.logger.InfoFailover(from, next.String(), reason.String())

	m.bus.Publish(domain.NewFailover(previous, next, reason))

	m.listenersMu.RLock()
	listeners := m.failoverListeners
	m.listenersMu.RUnlock()

	for _, entry := range listeners {
		var prev *domain.Endpoint
		if previous != nil {
			p := *previous
			prev = &p
		}
		m.safely(entry.id, domain.EventFailover, func() { entry.listener.OnFailover(prev, next, reason) })
	}
}

// dispatch is the manager's own bus listener
func (m *Manager) dispatch(event domain.Event) error {
	switch e := event.(type) {
	case domain.HealthCheckCompleted:
		m.afterCheck(e.Kind(), e.Endpoint, e.Check, true, e.ResponseTime)
	case domain.HealthCheckFailed:
		m.afterCheck(e.Kind(), e.Endpoint, e.Check, false, e.ResponseTime)
	case domain.EndpointStatusChanged:
		m.listenersMu.RLock()
		listeners := m.healthListeners
		m.listenersMu.RUnlock()
		for _, entry := range listeners {
			m.safely(entry.id, e.Kind(), func() { entry.listener.OnEndpointHealthChanged(e.Endpoint, e.Healthy) })
		}
	}
	return nil
}

func (m *Manager) afterCheck(kind domain.EventKind, endpoint domain.Endpoint, check string, healthy bool, rt time.Duration) {
	// checks that haven't reported yet still read unhealthy
	if m.healthSync && m.checks.HasOutcomes(endpoint) {
		m.endpoints.UpdateEndpointHealth(endpoint, m.checks.IsEndpointHealthy(endpoint))
	}

	m.listenersMu.RLock()
	listeners := m.checkListeners
	m.listenersMu.RUnlock()
	for _, entry := range listeners {
		m.safely(entry.id, kind, func() { entry.listener.OnHealthCheckExecuted(endpoint, check, healthy, rt) })
	}
}

// safely runs a listener callback, a panic is logged and returned as a
// *domain.ListenerError
func (m *Manager) safely(id string, kind domain.EventKind, fn func()) (err error) {
	defer func() {
		if r := recover(); r != nil {
			err = &domain.ListenerError{
				Err:      fmt.Errorf("panic: %v", r),
				Listener: id,
				Event:    kind,
			}
			m.logger.Error("Listener panicked", "error", err)
		}
	}()
	fn()
	return nil
}

func (m *Manager) nextListenerID() string {
	return "fl_" + strconv.FormatUint(m.listenerSeq.Add(1), 10)
}

// RegisterListener adds a failover listener and returns its id
func (m *Manager) RegisterListener(listener ports.FailoverListener) string {
	id := m.nextListenerID()
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.failoverListeners = appendEntry(m.failoverListeners, listenerEntry[ports.FailoverListener]{listener: listener, id: id})
	return id
}

func (m *Manager) RegisterHealthChangeListener(listener ports.HealthChangeListener) string {
	id := m.nextListenerID()
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.healthListeners = appendEntry(m.healthListeners, listenerEntry[ports.HealthChangeListener]{listener: listener, id: id})
	return id
}

func (m *Manager) RegisterHealthCheckListener(listener ports.HealthCheckListener) string {
	id := m.nextListenerID()
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()
	m.checkListeners = appendEntry(m.checkListeners, listenerEntry[ports.HealthCheckListener]{listener: listener, id: id})
	return id
}

// UnregisterListener removes a listener of any kind by id
func (m *Manager) UnregisterListener(id string) bool {
	m.listenersMu.Lock()
	defer m.listenersMu.Unlock()

	var removed bool
	m.failoverListeners, removed = removeEntry(m.failoverListeners, id)
	if removed {
		return true
	}
	m.healthListeners, removed = removeEntry(m.healthListeners, id)
	if removed {
		return true
	}
	m.checkListeners, removed = removeEntry(m.checkListeners, id)
	return removed
}

// the slices are copied on write so readers can iterate a snapshot unlocked
func appendEntry[L any](entries []listenerEntry[L], entry listenerEntry[L]) []listenerEntry[L] {
	next := make([]listenerEntry[L], len(entries), len(entries)+1)
	copy(next, entries)
	return append(next, entry)
}

func removeEntry[L any](entries []listenerEntry[L], id string) ([]listenerEntry[L], bool) {
	i := slices.IndexFunc(entries, func(e listenerEntry[L]) bool { return e.id == id })
	if i < 0 {
		return entries, false
	}
	next := make([]listenerEntry[L], 0, len(entries)-1)
	next = append(next, entries[:i]...)
	return append(next, entries[i+1:]...), true
}

func (m *Manager) EndpointManager() *registry.EndpointManager {
	return m.endpoints
}

func (m *Manager) HealthCheckRegistry() *registry.HealthCheckRegistry {
	return m.checks
}

func (m *Manager) EventBus() *eventbus.EventBus[domain.Event] {
	return m.bus
}

func (m *Manager) Metrics() *metrics.Collector {
	return m.metrics
}
