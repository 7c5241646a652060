package app

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/thushan/switchyard/internal/adapter/balancer"
	"github.com/thushan/switchyard/internal/adapter/health"
	"github.com/thushan/switchyard/internal/adapter/probe"
	"github.com/thushan/switchyard/internal/config"
	"github.com/thushan/switchyard/internal/core/domain"
	"github.com/thushan/switchyard/internal/logger"
)

const (
	placeholderHost = "{host}"
	placeholderPort = "{port}"
)

var supportedCheckTypes = []string{
	config.CheckTypeRedisPing,
	config.CheckTypeRedisCommand,
	config.CheckTypeHTTP,
	config.CheckTypeTCP,
	config.CheckTypeComposite,
}

// checkBuilder turns check config into health checks. Redis checks share
// one client per endpoint and database through the probe pool.
type checkBuilder struct {
	probes *probe.Pool
	logger *logger.StyledLogger
}

func newCheckBuilder(probes *probe.Pool, log *logger.StyledLogger) *checkBuilder {
	return &checkBuilder{probes: probes, logger: log.With("component", "healthcheck")}
}

func (b *checkBuilder) buildAll(endpoint domain.Endpoint, configs []config.CheckConfig) ([]domain.HealthCheck, error) {
	checks := make([]domain.HealthCheck, 0, len(configs))
	for i, cc := range configs {
		check, err := b.build(endpoint, cc)
		if err != nil {
			return nil, fmt.Errorf("endpoint %s check %d: %w", endpoint, i, err)
		}
		checks = append(checks, check)
	}
	return checks, nil
}

func (b *checkBuilder) build(endpoint domain.Endpoint, cc config.CheckConfig) (*health.Check, error) {
	var check *health.Check

	switch cc.Type {
	case config.CheckTypeRedisPing:
		redis := b.probes.Get(endpoint, probe.RedisOptions{Password: cc.Password, DB: cc.DB})
		check = health.NewPingCheck(redis.Ping)

	case config.CheckTypeRedisCommand:
		if len(cc.Command) == 0 {
			return nil, domain.NewConfigValidationError("command", cc.Command, "redis-command needs a command")
		}
		redis := b.probes.Get(endpoint, probe.RedisOptions{Password: cc.Password, DB: cc.DB})
		check = health.NewCommandCheck(strings.Join(cc.Command, " "), redis.Command(cc.Expect, cc.Command...))

	case config.CheckTypeHTTP:
		if cc.URL == "" {
			return nil, domain.NewConfigValidationError("url", cc.URL, "http check needs a url")
		}
		var opts []health.HTTPOption
		if cc.Method != "" {
			opts = append(opts, health.WithMethod(cc.Method))
		}
		if cc.ExpectedStatus != 0 {
			opts = append(opts, health.WithExpectedStatus(cc.ExpectedStatus))
		}
		if cc.JSONPath != "" {
			opts = append(opts, health.WithJSONField(cc.JSONPath, cc.JSONValue))
		}
		check = health.NewHTTPCheck(expandURL(cc.URL, endpoint), opts...)

	case config.CheckTypeTCP:
		check = health.NewTCPCheck(endpoint.String())

	case config.CheckTypeComposite:
		mode, err := health.ParseMode(cc.Mode)
		if err != nil {
			return nil, err
		}
		children := make([]domain.HealthCheck, 0, len(cc.Checks))
		for i, child := range cc.Checks {
			built, err := b.build(endpoint, child)
			if err != nil {
				return nil, fmt.Errorf("composite child %d: %w", i, err)
			}
			children = append(children, built)
		}
		check = health.NewCompositeCheck(mode, children...)

	default:
		return nil, domain.NewConfigValidationError("type", cc.Type, "unknown check type")
	}

	return tune(check, cc).WithLogger(b.logger), nil
}

// tune applies the optional knobs, zero values keep the variant's defaults
func tune(check *health.Check, cc config.CheckConfig) *health.Check {
	if cc.Name != "" {
		check.WithName(cc.Name)
	}
	if cc.Timeout > 0 {
		check.WithTimeout(cc.Timeout)
	}
	if cc.Retries > 0 {
		check.WithRetries(cc.Retries)
	}
	if cc.RetryDelay > 0 {
		check.WithRetryDelay(cc.RetryDelay)
	}
	if cc.Interval > 0 {
		check.WithSchedulePeriod(cc.Interval)
	}
	return check
}

// expandURL lets one http check config serve every endpoint, e.g.
// http://{host}:8080/health
func expandURL(url string, endpoint domain.Endpoint) string {
	return strings.NewReplacer(
		placeholderHost, endpoint.Host,
		placeholderPort, strconv.Itoa(endpoint.Port),
	).Replace(url)
}

// buildStrategy creates the configured strategy and seeds weighted and
// priority strategies with the per endpoint ranks
func buildStrategy(cfg config.FailoverConfig) (domain.SelectionStrategy, error) {
	name := cfg.Strategy
	if name == "" {
		name = config.DefaultStrategy
	}

	strategy, err := balancer.NewFactory().Create(name)
	if err != nil {
		return nil, fmt.Errorf("failed to create selection strategy: %w", err)
	}

	switch s := strategy.(type) {
	case *balancer.WeightedSelector:
		for _, ec := range cfg.Endpoints {
			if ec.Weight != nil {
				s.SetWeight(domain.NewEndpoint(ec.Host, ec.Port), *ec.Weight)
			}
		}
	case *balancer.PrioritySelector:
		for _, ec := range cfg.Endpoints {
			if ec.Priority != nil {
				s.SetPriority(domain.NewEndpoint(ec.Host, ec.Port), *ec.Priority)
			}
		}
	}
	return strategy, nil
}
