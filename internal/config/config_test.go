package config

import (
	"errors"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/thushan/switchyard/internal/core/domain"
)

const sampleConfig = `
logging:
  level: debug
failover:
  strategy: weighted
  poll_interval: 2s
  health_sync: true
  endpoints:
    - host: redis-a
      port: 6379
      weight: 10
      checks:
        - type: redis-ping
          interval: 5s
        - type: composite
          mode: majority
          checks:
            - type: tcp
            - type: http
              url: http://redis-a:8080/health
              expected_status: 204
    - host: redis-b
      port: 6380
      priority: 2
      checks:
        - type: redis-command
          command: ["INFO", "replication"]
          expect: "role:master"
          retries: 5
          retry_delay: 250ms
metrics:
  enabled: false
`

func writeConfig(t *testing.T, body string) string {
	t.Helper()
	path := filepath.Join(t.TempDir(), "switchyard.yaml")
	require.NoError(t, os.WriteFile(path, []byte(body), 0o600))
	return path
}

func TestDefaultConfig(t *testing.T) {
	cfg := DefaultConfig()

	assert.Equal(t, "info", cfg.Logging.Level)
	assert.Equal(t, DefaultStrategy, cfg.Failover.Strategy)
	assert.Equal(t, DefaultPollInterval, cfg.Failover.PollInterval)
	assert.True(t, cfg.Metrics.Enabled)
	assert.Equal(t, DefaultMetricsPath, cfg.Metrics.Path)
	assert.Empty(t, cfg.Failover.Endpoints)
	assert.NoError(t, cfg.Validate())
}

func TestLoad_WithoutFile(t *testing.T) {
	t.Setenv(EnvConfigFile, "")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, DefaultStrategy, cfg.Failover.Strategy)
	assert.Empty(t, cfg.Filename)
}

func TestLoad_FromFile(t *testing.T) {
	t.Setenv(EnvConfigFile, writeConfig(t, sampleConfig))

	cfg, err := Load(nil)
	require.NoError(t, err)

	assert.Equal(t, "debug", cfg.Logging.Level)
	assert.Equal(t, "weighted", cfg.Failover.Strategy)
	assert.Equal(t, 2*time.Second, cfg.Failover.PollInterval)
	assert.True(t, cfg.Failover.HealthSync)
	assert.False(t, cfg.Metrics.Enabled)

	require.Len(t, cfg.Failover.Endpoints, 2)
	a := cfg.Failover.Endpoints[0]
	assert.Equal(t, "redis-a", a.Host)
	require.NotNil(t, a.Weight)
	assert.Equal(t, 10.0, *a.Weight)
	assert.Nil(t, a.Priority)
	require.Len(t, a.Checks, 2)
	assert.Equal(t, 5*time.Second, a.Checks[0].Interval)
	assert.Equal(t, "majority", a.Checks[1].Mode)
	require.Len(t, a.Checks[1].Checks, 2)
	assert.Equal(t, 204, a.Checks[1].Checks[1].ExpectedStatus)

	b := cfg.Failover.Endpoints[1]
	require.NotNil(t, b.Priority)
	assert.Equal(t, 2, *b.Priority)
	assert.Equal(t, []string{"INFO", "replication"}, b.Checks[0].Command)
	assert.Equal(t, 250*time.Millisecond, b.Checks[0].RetryDelay)
	assert.Equal(t, 5, b.Checks[0].Retries)
}

func TestLoad_EnvironmentOverrides(t *testing.T) {
	t.Setenv(EnvConfigFile, writeConfig(t, sampleConfig))
	t.Setenv("SWITCHYARD_FAILOVER_STRATEGY", "priority")
	t.Setenv("SWITCHYARD_LOGGING_LEVEL", "warn")

	cfg, err := Load(nil)
	require.NoError(t, err)
	assert.Equal(t, "priority", cfg.Failover.Strategy)
	assert.Equal(t, "warn", cfg.Logging.Level)
}

func TestLoad_MissingExplicitFile(t *testing.T) {
	t.Setenv(EnvConfigFile, filepath.Join(t.TempDir(), "nope.yaml"))

	_, err := Load(nil)
	assert.Error(t, err)
}

func TestValidate(t *testing.T) {
	tests := []struct {
		name   string
		mutate func(*Config)
		field  string
	}{
		{
			name:   "missing host",
			mutate: func(c *Config) { c.Failover.Endpoints = []EndpointConfig{{Port: 6379}} },
			field:  "failover.endpoints[0].host",
		},
		{
			name:   "bad port",
			mutate: func(c *Config) { c.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 70000}} },
			field:  "failover.endpoints[0].port",
		},
		{
			name: "duplicate endpoint",
			mutate: func(c *Config) {
				c.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 1}, {Host: "a", Port: 1}}
			},
			field: "failover.endpoints[1]",
		},
		{
			name: "unknown check type",
			mutate: func(c *Config) {
				c.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 1, Checks: []CheckConfig{{Type: "smoke-signal"}}}}
			},
			field: "failover.endpoints[0].checks[0].type",
		},
		{
			name: "http without url",
			mutate: func(c *Config) {
				c.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 1, Checks: []CheckConfig{{Type: CheckTypeHTTP}}}}
			},
			field: "failover.endpoints[0].checks[0].url",
		},
		{
			name: "nested composite mode",
			mutate: func(c *Config) {
				c.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 1, Checks: []CheckConfig{{
					Type:   CheckTypeComposite,
					Checks: []CheckConfig{{Type: CheckTypeComposite, Mode: "most"}},
				}}}}
			},
			field: "failover.endpoints[0].checks[0].checks[0].mode",
		},
		{
			name:   "zero poll interval",
			mutate: func(c *Config) { c.Failover.PollInterval = 0 },
			field:  "failover.poll_interval",
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := DefaultConfig()
			tt.mutate(cfg)

			err := cfg.Validate()
			require.Error(t, err)

			var cve *domain.ConfigValidationError
			require.True(t, errors.As(err, &cve))
			assert.Equal(t, tt.field, cve.Field)
		})
	}
}

func TestValidate_CompositeModeMatchesParser(t *testing.T) {
	for _, mode := range []string{" any", "MAJORITY ", "\tall\n", ""} {
		cfg := DefaultConfig()
		cfg.Failover.Endpoints = []EndpointConfig{{Host: "a", Port: 1, Checks: []CheckConfig{{
			Type:   CheckTypeComposite,
			Mode:   mode,
			Checks: []CheckConfig{{Type: CheckTypeTCP}},
		}}}}
		assert.NoError(t, cfg.Validate(), "mode %q", mode)
	}
}

func TestLoad_WatchesForChanges(t *testing.T) {
	path := writeConfig(t, sampleConfig)
	t.Setenv(EnvConfigFile, path)

	changed := make(chan *Config, 4)
	_, err := Load(func(cfg *Config) {
		select {
		case changed <- cfg:
		default:
		}
	})
	require.NoError(t, err)

	updated := sampleConfig + "\n" + "  address: \":9999\"\n"
	require.NoError(t, os.WriteFile(path, []byte(updated), 0o600))

	// a write can surface as more than one event, wait for the settled one
	deadline := time.After(5 * time.Second)
	for {
		select {
		case cfg := <-changed:
			if cfg.Metrics.Address == ":9999" {
				return
			}
		case <-deadline:
			t.Fatal("config change was not observed")
		}
	}
}
