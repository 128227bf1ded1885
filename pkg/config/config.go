// Package config provides the configuration of a snowlink handler.
// A HandlerConfig is organized into logical sections:
//   - Connection: the named warehouse connection parameters
//   - Timeouts: connection and query timeouts applied by the caller
//   - Memory: the large-result guard and pool release behaviour
//   - Observability: metrics, tracing and logging
//
// Example usage:
//
//	cfg := config.NewHandlerConfig("analytics", "snowflake")
//	cfg.Connection[config.ParamAccount] = "xy12345.eu-west-1"
//
//	if err := cfg.Validate(); err != nil {
//	    log.Fatal(err)
//	}
package config

import (
	"fmt"
	"time"
)

// Connection parameter names.
const (
	ParamAccount   = "account"
	ParamUser      = "user"
	ParamPassword  = "password"
	ParamDatabase  = "database"
	ParamSchema    = "schema"
	ParamWarehouse = "warehouse"
	ParamRole      = "role"
)

// MandatoryParams must all be present before a connection is attempted.
var MandatoryParams = []string{ParamAccount, ParamUser, ParamPassword, ParamDatabase}

// OptionalParams are forwarded to the driver only when present.
var OptionalParams = []string{ParamSchema, ParamWarehouse, ParamRole}

// ConnectionConfig is the mapping of named connection parameters.
type ConnectionConfig map[string]string

// Missing returns the mandatory parameters absent from the mapping.
// A key that is present with an empty value counts as present.
func (c ConnectionConfig) Missing() []string {
	var missing []string
	for _, key := range MandatoryParams {
		if _, ok := c[key]; !ok {
			missing = append(missing, key)
		}
	}
	return missing
}

// Params merges the mandatory parameters with whichever optional ones are set.
func (c ConnectionConfig) Params() map[string]string {
	params := make(map[string]string, len(MandatoryParams)+len(OptionalParams))
	for _, key := range MandatoryParams {
		params[key] = c[key]
	}
	for _, key := range OptionalParams {
		if v, ok := c[key]; ok {
			params[key] = v
		}
	}
	return params
}

// HandlerConfig is the configuration of a single handler instance.
type HandlerConfig struct {
	// Name identifies the handler instance
	Name string `yaml:"name" json:"name"`
	// Engine selects the handler implementation (e.g., "snowflake")
	Engine string `yaml:"engine" json:"engine"`

	// Connection holds the warehouse connection parameters
	Connection ConnectionConfig `yaml:"connection" json:"connection"`

	// Timeouts define caller-side timeout durations
	Timeouts TimeoutConfig `yaml:"timeouts" json:"timeouts"`

	// Memory controls the large-result guard
	Memory MemoryConfig `yaml:"memory" json:"memory"`

	// Observability settings for monitoring and debugging
	Observability ObservabilityConfig `yaml:"observability" json:"observability"`
}

// TimeoutConfig contains timeout settings. The handler itself defines no
// timeout contract; these are applied by callers through context deadlines.
type TimeoutConfig struct {
	// Connection timeout for establishing the warehouse session
	Connection time.Duration `yaml:"connection" json:"connection"`
	// Query timeout for a single statement
	Query time.Duration `yaml:"query" json:"query"`
}

// MemoryConfig contains settings for the large-result memory guard.
type MemoryConfig struct {
	// GuardRowThreshold is the accumulated row count after which the guard runs
	GuardRowThreshold int `yaml:"guard_row_threshold" json:"guard_row_threshold"`
	// AvailableFraction is the share of available memory the remaining rows may use
	AvailableFraction float64 `yaml:"available_fraction" json:"available_fraction"`
	// ReleaseUnused returns pooled memory to the OS after every query
	ReleaseUnused bool `yaml:"release_unused" json:"release_unused"`
}

// ObservabilityConfig contains monitoring and observability settings.
type ObservabilityConfig struct {
	// EnableMetrics activates prometheus collection. NewHandlerConfig and
	// LoadHandlerConfig default it to true.
	EnableMetrics bool `yaml:"enable_metrics" json:"enable_metrics"`
	// EnableTracing activates OpenTelemetry spans
	EnableTracing bool `yaml:"enable_tracing" json:"enable_tracing"`
	// LogLevel sets logging verbosity (debug, info, warn, error)
	LogLevel string `yaml:"log_level" json:"log_level"`
	// LogEncoding selects json or console output
	LogEncoding string `yaml:"log_encoding" json:"log_encoding"`
}

// NewHandlerConfig creates a HandlerConfig with defaults matching the
// handler's documented behaviour.
func NewHandlerConfig(name, engine string) *HandlerConfig {
	cfg := &HandlerConfig{
		Name:       name,
		Engine:     engine,
		Connection: ConnectionConfig{},
	}
	cfg.Observability.EnableMetrics = true
	cfg.ApplyDefaults()
	return cfg
}

// ApplyDefaults fills zero-valued settings with their defaults.
func (hc *HandlerConfig) ApplyDefaults() {
	if hc.Connection == nil {
		hc.Connection = ConnectionConfig{}
	}
	if hc.Timeouts.Connection == 0 {
		hc.Timeouts.Connection = 60 * time.Second
	}
	if hc.Memory.GuardRowThreshold == 0 {
		hc.Memory.GuardRowThreshold = 1000
	}
	if hc.Memory.AvailableFraction == 0 {
		hc.Memory.AvailableFraction = 0.9
	}
	if hc.Observability.LogLevel == "" {
		hc.Observability.LogLevel = "info"
	}
	if hc.Observability.LogEncoding == "" {
		hc.Observability.LogEncoding = "json"
	}
}

// Validate checks the handler-level settings. Connection parameters are
// validated lazily at connect time so that a handler can be constructed
// before its credentials are known.
func (hc *HandlerConfig) Validate() error {
	if hc.Name == "" {
		return fmt.Errorf("name is required")
	}
	if hc.Engine == "" {
		return fmt.Errorf("engine is required")
	}
	if hc.Memory.GuardRowThreshold < 0 {
		return fmt.Errorf("guard_row_threshold cannot be negative")
	}
	if hc.Memory.AvailableFraction <= 0 || hc.Memory.AvailableFraction > 1 {
		return fmt.Errorf("available_fraction must be in (0, 1]")
	}
	if hc.Timeouts.Query < 0 {
		return fmt.Errorf("query timeout cannot be negative")
	}
	return nil
}
