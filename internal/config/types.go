package config

import (
	"time"
)

// Config holds all configuration for the application
type Config struct {
	Filename string         `yaml:"-" mapstructure:"-"`
	Logging  LoggingConfig  `yaml:"logging" mapstructure:"logging"`
	Failover FailoverConfig `yaml:"failover" mapstructure:"failover"`
	Metrics  MetricsConfig  `yaml:"metrics" mapstructure:"metrics"`
}

// LoggingConfig holds logging configuration
type LoggingConfig struct {
	Level      string `yaml:"level" mapstructure:"level"`
	Theme      string `yaml:"theme" mapstructure:"theme"`
	LogDir     string `yaml:"log_dir" mapstructure:"log_dir"`
	MaxSize    int    `yaml:"max_size" mapstructure:"max_size"`
	MaxBackups int    `yaml:"max_backups" mapstructure:"max_backups"`
	MaxAge     int    `yaml:"max_age" mapstructure:"max_age"`
	FileOutput bool   `yaml:"file_output" mapstructure:"file_output"`
}

// FailoverConfig describes the endpoint pool and how to choose from it
type FailoverConfig struct {
	Strategy         string           `yaml:"strategy" mapstructure:"strategy"`
	Endpoints        []EndpointConfig `yaml:"endpoints" mapstructure:"endpoints"`
	PollInterval     time.Duration    `yaml:"poll_interval" mapstructure:"poll_interval"`
	CheckConcurrency int              `yaml:"check_concurrency" mapstructure:"check_concurrency"`
	HealthSync       bool             `yaml:"health_sync" mapstructure:"health_sync"`
}

// EndpointConfig is a single (host, port) candidate. Weight and Priority
// are optional, an endpoint without one is treated as unranked.
type EndpointConfig struct {
	Weight   *float64      `yaml:"weight" mapstructure:"weight"`
	Priority *int          `yaml:"priority" mapstructure:"priority"`
	Host     string        `yaml:"host" mapstructure:"host"`
	Checks   []CheckConfig `yaml:"checks" mapstructure:"checks"`
	Port     int           `yaml:"port" mapstructure:"port"`
}

// CheckConfig describes a health check. Which fields apply depends on Type.
type CheckConfig struct {
	Type string `yaml:"type" mapstructure:"type"` // redis-ping, redis-command, http, tcp, composite
	Name string `yaml:"name" mapstructure:"name"`

	// redis-ping, redis-command
	Password string   `yaml:"password" mapstructure:"password"`
	Command  []string `yaml:"command" mapstructure:"command"`
	Expect   string   `yaml:"expect" mapstructure:"expect"`
	DB       int      `yaml:"db" mapstructure:"db"`

	// http
	URL            string `yaml:"url" mapstructure:"url"`
	Method         string `yaml:"method" mapstructure:"method"`
	JSONPath       string `yaml:"json_path" mapstructure:"json_path"`
	JSONValue      string `yaml:"json_value" mapstructure:"json_value"`
	ExpectedStatus int    `yaml:"expected_status" mapstructure:"expected_status"`

	// composite
	Mode   string        `yaml:"mode" mapstructure:"mode"`
	Checks []CheckConfig `yaml:"checks" mapstructure:"checks"`

	Timeout    time.Duration `yaml:"timeout" mapstructure:"timeout"`
	RetryDelay time.Duration `yaml:"retry_delay" mapstructure:"retry_delay"`
	Interval   time.Duration `yaml:"interval" mapstructure:"interval"`
	Retries    int           `yaml:"retries" mapstructure:"retries"`
}

// MetricsConfig controls the Prometheus endpoint
type MetricsConfig struct {
	Address string `yaml:"address" mapstructure:"address"`
	Path    string `yaml:"path" mapstructure:"path"`
	Enabled bool   `yaml:"enabled" mapstructure:"enabled"`
	Profile bool   `yaml:"profile" mapstructure:"profile"` // mounts pprof under /debug/pprof/
}
