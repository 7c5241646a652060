package config

import (
	"errors"
	"fmt"
	"os"
	"strings"
	"time"

	"github.com/fsnotify/fsnotify"
	"github.com/spf13/viper"

	"github.com/thushan/switchyard/internal/core/domain"
)

const (
	DefaultStrategy         = "round-robin"
	DefaultPollInterval     = 5 * time.Second
	DefaultCheckConcurrency = 8
	DefaultMetricsAddress   = ":9464"
	DefaultMetricsPath      = "/metrics"

	EnvPrefix     = "SWITCHYARD"
	EnvConfigFile = "SWITCHYARD_CONFIG_FILE"

	CheckTypeRedisPing    = "redis-ping"
	CheckTypeRedisCommand = "redis-command"
	CheckTypeHTTP         = "http"
	CheckTypeTCP          = "tcp"
	CheckTypeComposite    = "composite"
)

// DefaultConfig returns a configuration with sensible defaults
func DefaultConfig() *Config {
	return &Config{
		Logging: LoggingConfig{
			Level:      "info",
			Theme:      "default",
			LogDir:     "./logs",
			MaxSize:    100,
			MaxBackups: 5,
			MaxAge:     30,
		},
		Failover: FailoverConfig{
			Strategy:         DefaultStrategy,
			PollInterval:     DefaultPollInterval,
			CheckConcurrency: DefaultCheckConcurrency,
		},
		Metrics: MetricsConfig{
			Enabled: true,
			Address: DefaultMetricsAddress,
			Path:    DefaultMetricsPath,
		},
	}
}

// Load reads config.yaml (or SWITCHYARD_CONFIG_FILE) and SWITCHYARD_* environment
// overrides. When onChange is non-nil the file is watched and every valid
// edit is handed to onChange as a freshly decoded Config.
func Load(onChange func(*Config)) (*Config, error) {
	v := newViper()

	if configFile := os.Getenv(EnvConfigFile); configFile != "" {
		v.SetConfigFile(configFile)
		if err := v.ReadInConfig(); err != nil {
			return nil, fmt.Errorf("error reading config file %s: %w", configFile, err)
		}
	} else if err := v.ReadInConfig(); err != nil {
		// It's okay if config file doesn't exist
		var notFound viper.ConfigFileNotFoundError
		if !errors.As(err, &notFound) {
			return nil, fmt.Errorf("error reading config file: %w", err)
		}
	}

	config, err := decode(v)
	if err != nil {
		return nil, err
	}

	if onChange != nil && v.ConfigFileUsed() != "" {
		v.OnConfigChange(func(e fsnotify.Event) {
			if !e.Has(fsnotify.Write) && !e.Has(fsnotify.Create) {
				return
			}
			updated, err := decode(v)
			if err != nil {
				return
			}
			onChange(updated)
		})
		v.WatchConfig()
	}

	return config, nil
}

func newViper() *viper.Viper {
	v := viper.New()
	v.SetConfigName("config")
	v.SetConfigType("yaml")
	v.AddConfigPath(".")
	v.AddConfigPath("./config")

	v.SetEnvPrefix(EnvPrefix)
	v.SetEnvKeyReplacer(strings.NewReplacer(".", "_"))
	v.AutomaticEnv()

	// env overrides only apply to keys viper knows about
	defaults := DefaultConfig()
	v.SetDefault("logging.level", defaults.Logging.Level)
	v.SetDefault("logging.theme", defaults.Logging.Theme)
	v.SetDefault("logging.log_dir", defaults.Logging.LogDir)
	v.SetDefault("logging.max_size", defaults.Logging.MaxSize)
	v.SetDefault("logging.max_backups", defaults.Logging.MaxBackups)
	v.SetDefault("logging.max_age", defaults.Logging.MaxAge)
	v.SetDefault("logging.file_output", defaults.Logging.FileOutput)
	v.SetDefault("failover.strategy", defaults.Failover.Strategy)
	v.SetDefault("failover.poll_interval", defaults.Failover.PollInterval)
	v.SetDefault("failover.check_concurrency", defaults.Failover.CheckConcurrency)
	v.SetDefault("failover.health_sync", defaults.Failover.HealthSync)
	v.SetDefault("metrics.enabled", defaults.Metrics.Enabled)
	v.SetDefault("metrics.address", defaults.Metrics.Address)
	v.SetDefault("metrics.path", defaults.Metrics.Path)
	v.SetDefault("metrics.profile", defaults.Metrics.Profile)

	return v
}

func decode(v *viper.Viper) (*Config, error) {
	config := DefaultConfig()
	if err := v.Unmarshal(config); err != nil {
		return nil, fmt.Errorf("unable to decode config: %w", err)
	}
	config.Filename = v.ConfigFileUsed()

	if err := config.Validate(); err != nil {
		return nil, err
	}
	return config, nil
}

// Validate checks the parts of the config that can't be fixed up with a default
func (c *Config) Validate() error {
	if c.Failover.PollInterval <= 0 {
		return domain.NewConfigValidationError("failover.poll_interval", c.Failover.PollInterval, "must be positive")
	}
	if c.Failover.CheckConcurrency < 1 {
		c.Failover.CheckConcurrency = 1
	}

	seen := make(map[string]struct{}, len(c.Failover.Endpoints))
	for i, ep := range c.Failover.Endpoints {
		field := fmt.Sprintf("failover.endpoints[%d]", i)
		if ep.Host == "" {
			return domain.NewConfigValidationError(field+".host", ep.Host, "host is required")
		}
		if ep.Port < 1 || ep.Port > 65535 {
			return domain.NewConfigValidationError(field+".port", ep.Port, "port must be between 1 and 65535")
		}
		key := domain.NewEndpoint(ep.Host, ep.Port).String()
		if _, dup := seen[key]; dup {
			return domain.NewConfigValidationError(field, key, "duplicate endpoint")
		}
		seen[key] = struct{}{}

		for j, check := range ep.Checks {
			if err := validateCheck(fmt.Sprintf("%s.checks[%d]", field, j), check); err != nil {
				return err
			}
		}
	}
	return nil
}

func validateCheck(field string, check CheckConfig) error {
	switch check.Type {
	case CheckTypeRedisPing, CheckTypeTCP:
		return nil
	case CheckTypeRedisCommand:
		if len(check.Command) == 0 {
			return domain.NewConfigValidationError(field+".command", check.Command, "redis-command needs a command")
		}
		return nil
	case CheckTypeHTTP:
		if check.URL == "" {
			return domain.NewConfigValidationError(field+".url", check.URL, "http check needs a url")
		}
		return nil
	case CheckTypeComposite:
		switch strings.ToLower(strings.TrimSpace(check.Mode)) {
		case "", "all", "any", "majority":
		default:
			return domain.NewConfigValidationError(field+".mode", check.Mode, "mode must be all, any or majority")
		}
		for i, child := range check.Checks {
			if err := validateCheck(fmt.Sprintf("%s.checks[%d]", field, i), child); err != nil {
				return err
			}
		}
		return nil
	default:
		return domain.NewConfigValidationError(field+".type", check.Type, "unknown check type")
	}
}
