package app

import (
	"context"
	"errors"
	"fmt"
	"net"
	"net/http"
	"sync"
	"time"

	"github.com/thushan/switchyard/internal/adapter/metrics"
	"github.com/thushan/switchyard/internal/adapter/probe"
	"github.com/thushan/switchyard/internal/config"
	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/failover"
	"github.com/thushan/switchyard/internal/logger"
)

const (
	DefaultShutdownTimeout   = 10 * time.Second
	DefaultReadHeaderTimeout = 5 * time.Second
)

// Application wires a failover manager up from config and exposes it over
// a small metrics and status server
type Application struct {
	StartTime time.Time

	config   *config.Config
	manager  *failover.Manager
	exporter *metrics.PrometheusExporter
	probes   *probe.Pool
	builder  *checkBuilder
	server   *http.Server
	logger   *logger.StyledLogger
	errCh    chan error

	applied    map[domain.Endpoint]config.EndpointConfig
	pollCancel context.CancelFunc
	pollDone   chan struct{}

	configMu sync.RWMutex
	reloadMu sync.Mutex
}

// New loads config.yaml (hot reloading it from then on) and builds the application
func New(startTime time.Time, log *logger.StyledLogger) (*Application, error) {
	app := &Application{
		StartTime: startTime,
		logger:    log,
		errCh:     make(chan error, 1),
	}

	cfg, err := config.Load(app.reload)
	if err != nil {
		return nil, fmt.Errorf("failed to load configuration: %w", err)
	}

	if err := app.init(cfg); err != nil {
		return nil, err
	}
	return app, nil
}

// NewWithConfig builds the application from an already loaded config, no
// file watching happens
func NewWithConfig(startTime time.Time, cfg *config.Config, log *logger.StyledLogger) (*Application, error) {
	app := &Application{
		StartTime: startTime,
		logger:    log,
		errCh:     make(chan error, 1),
	}
	if err := app.init(cfg); err != nil {
		return nil, err
	}
	return app, nil
}

func (a *Application) init(cfg *config.Config) error {
	strategy, err := buildStrategy(cfg.Failover)
	if err != nil {
		return err
	}

	probes := probe.NewPool()
	manager := failover.NewManager(
		failover.WithLogger(a.logger),
		failover.WithHealthSync(cfg.Failover.HealthSync),
		failover.WithCheckConcurrency(cfg.Failover.CheckConcurrency),
		failover.WithSelectionStrategy(strategy),
	)
	exporter := metrics.NewPrometheusExporter()
	manager.EventBus().Register(exporter)

	// reload may fire as soon as config.Load returns, hold it off until wired
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	a.probes = probes
	a.manager = manager
	a.exporter = exporter
	a.builder = newCheckBuilder(probes, a.logger)
	a.applied = make(map[domain.Endpoint]config.EndpointConfig)

	if err := a.applyEndpoints(cfg.Failover.Endpoints); err != nil {
		manager.Close()
		_ = probes.CloseAll()
		return err
	}
	a.setConfig(cfg)

	if cfg.Metrics.Enabled {
		// event streams never end by themselves, shutting down cancels them
		streamCtx, cancelStreams := context.WithCancel(context.Background())
		a.server = &http.Server{
			Addr:              cfg.Metrics.Address,
			Handler:           a.routes(cfg.Metrics),
			ReadHeaderTimeout: DefaultReadHeaderTimeout,
			BaseContext:       func(net.Listener) context.Context { return streamCtx },
		}
		a.server.RegisterOnShutdown(cancelStreams)
	}
	return nil
}

// Start schedules health checks, starts the poll loop and, when enabled,
// the metrics server
func (a *Application) Start(ctx context.Context) error {
	go func() {
		select {
		case err := <-a.errCh:
			a.logger.Error("Metrics server error", "error", err)
		case <-ctx.Done():
			return
		}
	}()

	a.manager.Start(ctx)

	if a.server != nil {
		a.startWebServer()
	}

	pollCtx, cancel := context.WithCancel(ctx)
	a.pollCancel = cancel
	a.pollDone = make(chan struct{})
	go a.pollLoop(pollCtx)

	cfg := a.getConfig()
	a.logger.Info("Switchyard started",
		"endpoints", len(cfg.Failover.Endpoints),
		"strategy", a.manager.EndpointManager().SelectionStrategy().Name(),
		"poll_interval", cfg.Failover.PollInterval)
	return nil
}

// Stop ends the poll loop, shuts the metrics server down, stops every check
// and closes the redis clients
func (a *Application) Stop(ctx context.Context) error {
	shutdownCtx, cancel := context.WithTimeout(ctx, DefaultShutdownTimeout)
	defer cancel()

	if a.pollCancel != nil {
		a.pollCancel()
		<-a.pollDone
	}

	var errs []error
	if a.server != nil {
		if err := a.server.Shutdown(shutdownCtx); err != nil {
			errs = append(errs, fmt.Errorf("metrics server shutdown error: %w", err))
		}
	}

	a.manager.Close()

	if err := a.probes.CloseAll(); err != nil {
		errs = append(errs, fmt.Errorf("closing redis probes: %w", err))
	}
	return errors.Join(errs...)
}

func (a *Application) Manager() *failover.Manager {
	return a.manager
}

func (a *Application) startWebServer() {
	a.logger.Info("Starting metrics server...", "bind", a.server.Addr)

	go func() {
		if err := a.server.ListenAndServe(); err != nil && !errors.Is(err, http.ErrServerClosed) {
			a.errCh <- err
		}
	}()
}

// pollLoop asks for an endpoint every poll interval so failovers are noticed
// (and announced) even when nobody else is asking
func (a *Application) pollLoop(ctx context.Context) {
	defer close(a.pollDone)

	available := true
	for {
		if _, ok := a.manager.GetHealthyEndpoint(); ok != available {
			available = ok
			if ok {
				a.logger.Info("Healthy endpoint available again")
			} else {
				a.logger.Warn("No healthy endpoint available")
			}
		}

		timer := time.NewTimer(a.getConfig().Failover.PollInterval)
		select {
		case <-ctx.Done():
			timer.Stop()
			return
		case <-timer.C:
		}
	}
}
