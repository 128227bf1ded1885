package config

import (
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func TestConnectionConfig_Missing(t *testing.T) {
	tests := []struct {
		name    string
		conn    ConnectionConfig
		missing []string
	}{
		{
			name: "all mandatory present",
			conn: ConnectionConfig{"account": "a", "user": "u", "password": "p", "database": "d"},
		},
		{
			name:    "password missing",
			conn:    ConnectionConfig{"account": "a", "user": "u", "database": "d"},
			missing: []string{"password"},
		},
		{
			name:    "empty mapping",
			conn:    ConnectionConfig{},
			missing: []string{"account", "user", "password", "database"},
		},
		{
			name: "empty value still counts as present",
			conn: ConnectionConfig{"account": "a", "user": "u", "password": "", "database": "d"},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.missing, tt.conn.Missing())
		})
	}
}

func TestConnectionConfig_Params(t *testing.T) {
	conn := ConnectionConfig{
		"account":   "a",
		"user":      "u",
		"password":  "p",
		"database":  "d",
		"warehouse": "wh",
		"unrelated": "x",
	}

	params := conn.Params()
	assert.Equal(t, map[string]string{
		"account":   "a",
		"user":      "u",
		"password":  "p",
		"database":  "d",
		"warehouse": "wh",
	}, params)
}

func TestNewHandlerConfig_Defaults(t *testing.T) {
	cfg := NewHandlerConfig("analytics", "snowflake")

	assert.Equal(t, 1000, cfg.Memory.GuardRowThreshold)
	assert.Equal(t, 0.9, cfg.Memory.AvailableFraction)
	assert.Equal(t, 60*time.Second, cfg.Timeouts.Connection)
	assert.Equal(t, "info", cfg.Observability.LogLevel)
	assert.True(t, cfg.Observability.EnableMetrics)
	assert.NotNil(t, cfg.Connection)
	assert.NoError(t, cfg.Validate())
}

func TestHandlerConfig_Validate(t *testing.T) {
	tests := []struct {
		name      string
		mutate    func(*HandlerConfig)
		wantError bool
	}{
		{name: "defaults", mutate: func(*HandlerConfig) {}},
		{name: "missing name", mutate: func(c *HandlerConfig) { c.Name = "" }, wantError: true},
		{name: "missing engine", mutate: func(c *HandlerConfig) { c.Engine = "" }, wantError: true},
		{name: "fraction above one", mutate: func(c *HandlerConfig) { c.Memory.AvailableFraction = 1.5 }, wantError: true},
		{name: "negative threshold", mutate: func(c *HandlerConfig) { c.Memory.GuardRowThreshold = -1 }, wantError: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			cfg := NewHandlerConfig("h", "snowflake")
			tt.mutate(cfg)
			if tt.wantError {
				assert.Error(t, cfg.Validate())
			} else {
				assert.NoError(t, cfg.Validate())
			}
		})
	}
}

func TestLoadHandlerConfig_SubstitutesEnv(t *testing.T) {
	t.Setenv("SNOWLINK_TEST_PASSWORD", "s3cret")

	path := filepath.Join(t.TempDir(), "handler.yaml")
	content := `name: analytics
engine: snowflake
connection:
  account: xy12345
  user: LOADER
  password: ${SNOWLINK_TEST_PASSWORD}
  database: ANALYTICS
memory:
  release_unused: true
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadHandlerConfig(path)
	require.NoError(t, err)

	assert.Equal(t, "s3cret", cfg.Connection[ParamPassword])
	assert.True(t, cfg.Memory.ReleaseUnused)
	assert.Equal(t, 1000, cfg.Memory.GuardRowThreshold)
	assert.Empty(t, cfg.Connection.Missing())
	assert.True(t, cfg.Observability.EnableMetrics)
}

func TestLoadHandlerConfig_Observability(t *testing.T) {
	path := filepath.Join(t.TempDir(), "handler.yaml")
	content := `name: analytics
engine: snowflake
observability:
  enable_metrics: false
  enable_tracing: true
  log_level: debug
  log_encoding: console
`
	require.NoError(t, os.WriteFile(path, []byte(content), 0600))

	cfg, err := LoadHandlerConfig(path)
	require.NoError(t, err)

	assert.False(t, cfg.Observability.EnableMetrics)
	assert.True(t, cfg.Observability.EnableTracing)
	assert.Equal(t, "debug", cfg.Observability.LogLevel)
	assert.Equal(t, "console", cfg.Observability.LogEncoding)
}

func TestSaveAndLoadRoundTrip(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out.yaml")
	cfg := NewHandlerConfig("analytics", "snowflake")
	cfg.Connection[ParamRole] = "ANALYST"

	require.NoError(t, Save(path, cfg))

	loaded, err := LoadHandlerConfig(path)
	require.NoError(t, err)
	assert.Equal(t, "ANALYST", loaded.Connection[ParamRole])
}

func TestSubstituteEnvVars(t *testing.T) {
	t.Setenv("SNOWLINK_A", "x")
	assert.Equal(t, "x-y-", substituteEnvVars("${SNOWLINK_A}-y-${SNOWLINK_UNSET_VAR}"))
	assert.Equal(t, "no refs", substituteEnvVars("no refs"))
	assert.Equal(t, "broken ${OPEN", substituteEnvVars("broken ${OPEN"))
}
