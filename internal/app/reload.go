package app

import (
	"fmt"
	"reflect"

	"github.com/thushan/switchyard/internal/config"
	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/logger"
)

// reload is the config watcher callback. Endpoints, checks, the selection
// strategy and the log level are swapped live, the rest needs a restart.
func (a *Application) reload(updated *config.Config) {
	a.reloadMu.Lock()
	defer a.reloadMu.Unlock()

	if a.manager == nil {
		return
	}

	strategy, err := buildStrategy(updated.Failover)
	if err != nil {
		a.logger.Error("Config reload rejected", "error", err)
		return
	}
	if err := a.applyEndpoints(updated.Failover.Endpoints); err != nil {
		a.logger.Error("Config reload rejected", "error", err)
		return
	}
	a.manager.SetSelectionStrategy(strategy)

	current := a.getConfig()
	if current.Logging.Level != updated.Logging.Level {
		logger.SetLevel(updated.Logging.Level)
		a.logger.Info("Log level changed", "level", updated.Logging.Level)
	}
	if current.Metrics != updated.Metrics {
		a.logger.Warn("Metrics settings changed, restart to apply")
	}
	if current.Failover.HealthSync != updated.Failover.HealthSync ||
		current.Failover.CheckConcurrency != updated.Failover.CheckConcurrency {
		a.logger.Warn("Health sync and check concurrency changes need a restart")
	}

	a.setConfig(updated)
	a.logger.InfoConfigChange(updated.Filename)
}

// applyEndpoints moves the manager to the given endpoint set. Every changed
// check list is built before anything is touched so a bad entry leaves the
// running set alone. Callers hold reloadMu.
func (a *Application) applyEndpoints(endpoints []config.EndpointConfig) error {
	wanted := make(map[domain.Endpoint]config.EndpointConfig, len(endpoints))
	rebuilt := make(map[domain.Endpoint][]domain.HealthCheck)
	order := make([]domain.Endpoint, 0, len(endpoints))

	for _, ec := range endpoints {
		endpoint := domain.NewEndpoint(ec.Host, ec.Port)
		if _, dup := wanted[endpoint]; dup {
			return domain.NewConfigValidationError("endpoints", endpoint.String(), "duplicate endpoint")
		}
		wanted[endpoint] = ec
		order = append(order, endpoint)

		if previous, ok := a.applied[endpoint]; ok && reflect.DeepEqual(previous.Checks, ec.Checks) {
			continue
		}
		checks, err := a.builder.buildAll(endpoint, ec.Checks)
		if err != nil {
			return fmt.Errorf("building health checks: %w", err)
		}
		rebuilt[endpoint] = checks
	}

	for endpoint := range a.applied {
		if _, keep := wanted[endpoint]; keep {
			continue
		}
		a.manager.RemoveEndpoint(endpoint)
		a.exporter.ForgetEndpoint(endpoint)
		if err := a.probes.Release(endpoint); err != nil {
			a.logger.WarnWithEndpoint("Failed to close redis client for", endpoint.String(), "error", err)
		}
		a.logger.InfoWithEndpoint("Endpoint removed", endpoint.String())
	}

	for _, endpoint := range order {
		checks, changed := rebuilt[endpoint]
		if !changed {
			continue
		}
		if _, existed := a.applied[endpoint]; existed {
			for _, old := range a.manager.HealthCheckRegistry().HealthChecks(endpoint) {
				a.manager.UnregisterHealthCheck(endpoint, old)
			}
			for _, check := range checks {
				a.logger.InfoWithHealthCheck("Health check replaced", check.Name(), "endpoint", endpoint.String())
			}
		} else {
			a.manager.AddEndpoint(endpoint)
			a.exporter.ObserveEndpoint(endpoint, true)
			a.logger.InfoWithEndpoint("Endpoint added", endpoint.String(), "checks", len(checks))
		}
		for _, check := range checks {
			a.manager.RegisterHealthCheck(endpoint, check)
		}
	}

	a.applied = wanted
	return nil
}
