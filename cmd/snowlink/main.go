package main

import (
	"context"
	"fmt"
	"io"
	"os"
	"strings"

	"github.com/goccy/go-json"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/spf13/cobra"
	"github.com/spf13/viper"
	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/handler/registry"
	"github.com/ajitpratap0/snowlink/pkg/logger"
	"github.com/ajitpratap0/snowlink/pkg/observability"

	// Register the Snowflake handler
	_ "github.com/ajitpratap0/snowlink/pkg/handler/snowflake"
)

var version = "0.1.0"

// app carries the state shared by all commands.
type app struct {
	v   *viper.Viper
	out io.Writer
	cfg *config.HandlerConfig

	shutdownTracing func(context.Context) error
}

func main() {
	a := &app{v: viper.New(), out: os.Stdout}
	if err := a.rootCmd().Execute(); err != nil {
		os.Exit(1)
	}
}

func (a *app) rootCmd() *cobra.Command {
	root := &cobra.Command{
		Use:   "snowlink",
		Short: "snowlink - Snowflake handler for federated queries",
		Long: `snowlink connects to a Snowflake account and exposes the handler operations
used by the federated query engine: connection checks, native queries, schema
introspection and result export.

Connection parameters come from --config, flags or SNOWLINK_* environment variables.`,
		SilenceUsage: true,
		PersistentPreRunE: func(cmd *cobra.Command, args []string) error {
			return a.setup()
		},
		PersistentPostRunE: func(cmd *cobra.Command, args []string) error {
			return a.teardown(cmd.Context())
		},
	}

	pf := root.PersistentFlags()
	pf.String("config", "", "Path to a handler configuration YAML file")
	pf.String("name", "snowlink", "Handler instance name")
	pf.String(config.ParamAccount, "", "Snowflake account identifier")
	pf.String(config.ParamUser, "", "Snowflake user")
	pf.String(config.ParamPassword, "", "Snowflake password")
	pf.String(config.ParamDatabase, "", "Database")
	pf.String(config.ParamSchema, "", "Schema (optional)")
	pf.String(config.ParamWarehouse, "", "Warehouse (optional)")
	pf.String(config.ParamRole, "", "Role (optional)")
	pf.String("log-level", "", "Log level (debug, info, warn, error)")
	pf.String("log-encoding", "", "Log encoding (json, console)")
	pf.Bool("trace", false, "Print OpenTelemetry spans to stderr")
	pf.Bool("release-memory", false, "Return freed memory to the OS after every query")
	pf.String("metrics-file", "", "Write prometheus metrics in text format to this file on exit")
	pf.Duration("timeout", 0, "Timeout for the whole command (e.g., 30s, 5m)")
	_ = a.v.BindPFlags(pf)

	a.v.SetEnvPrefix("SNOWLINK")
	a.v.SetEnvKeyReplacer(strings.NewReplacer("-", "_"))
	a.v.AutomaticEnv()

	root.AddCommand(
		a.versionCmd(),
		a.checkCmd(),
		a.queryCmd(),
		a.tablesCmd(),
		a.columnsCmd(),
		a.exportCmd(),
	)
	return root
}

// handlerConfig assembles the handler configuration from the config file,
// flags and environment, in increasing order of precedence.
func (a *app) handlerConfig() (*config.HandlerConfig, error) {
	var cfg *config.HandlerConfig
	if path := a.v.GetString("config"); path != "" {
		loaded, err := config.LoadHandlerConfig(path)
		if err != nil {
			return nil, err
		}
		cfg = loaded
	} else {
		cfg = config.NewHandlerConfig(a.v.GetString("name"), "snowflake")
		cfg.Observability.LogLevel = "warn"
		cfg.Observability.LogEncoding = "console"
	}
	if cfg.Engine == "" {
		cfg.Engine = "snowflake"
	}
	if cfg.Connection == nil {
		cfg.Connection = config.ConnectionConfig{}
	}

	for _, key := range append(append([]string(nil), config.MandatoryParams...), config.OptionalParams...) {
		if a.v.IsSet(key) && a.v.GetString(key) != "" {
			cfg.Connection[key] = a.v.GetString(key)
		}
	}
	if lvl := a.v.GetString("log-level"); lvl != "" {
		cfg.Observability.LogLevel = lvl
	}
	if enc := a.v.GetString("log-encoding"); enc != "" {
		cfg.Observability.LogEncoding = enc
	}
	if a.v.GetBool("trace") {
		cfg.Observability.EnableTracing = true
	}
	if a.v.GetBool("release-memory") {
		cfg.Memory.ReleaseUnused = true
	}
	if d := a.v.GetDuration("timeout"); d > 0 {
		cfg.Timeouts.Query = d
	}

	cfg.ApplyDefaults()
	return cfg, cfg.Validate()
}

// setup configures logging and tracing from the handler configuration, so
// settings from --config apply as well as flags and environment.
func (a *app) setup() error {
	cfg, err := a.handlerConfig()
	if err != nil {
		return err
	}
	a.cfg = cfg

	obs := cfg.Observability
	if err := logger.Init(logger.Config{Level: obs.LogLevel, Encoding: obs.LogEncoding}); err != nil {
		return err
	}

	if obs.EnableTracing {
		tc := observability.DefaultTracingConfig()
		tc.ServiceVersion = version
		tc.Writer = os.Stderr
		shutdown, err := observability.InitTracing(tc)
		if err != nil {
			return err
		}
		a.shutdownTracing = shutdown
	}
	return nil
}

func (a *app) teardown(ctx context.Context) error {
	if ctx == nil {
		ctx = context.Background()
	}
	if path := a.v.GetString("metrics-file"); path != "" {
		if err := prometheus.WriteToTextfile(path, prometheus.DefaultGatherer); err != nil {
			logger.Warn("failed to write metrics", zap.String("path", path), zap.Error(err))
		}
	}
	if a.shutdownTracing != nil {
		if err := a.shutdownTracing(ctx); err != nil {
			logger.Warn("failed to flush spans", zap.Error(err))
		}
	}
	_ = logger.Sync()
	return nil
}

// handler builds the configured handler and a context bounded by --timeout.
func (a *app) handler(parent context.Context) (registry.Handler, context.Context, context.CancelFunc, error) {
	cfg := a.cfg
	if cfg == nil {
		loaded, err := a.handlerConfig()
		if err != nil {
			return nil, nil, nil, err
		}
		cfg = loaded
	}
	h, err := registry.Create(cfg)
	if err != nil {
		return nil, nil, nil, err
	}

	if parent == nil {
		parent = context.Background()
	}
	ctx, cancel := parent, context.CancelFunc(func() {})
	if cfg.Timeouts.Query > 0 {
		ctx, cancel = context.WithTimeout(parent, cfg.Timeouts.Query)
	}
	return h, ctx, cancel, nil
}

// printJSON writes v as indented JSON.
func (a *app) printJSON(v any) error {
	enc := json.NewEncoder(a.out)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return fmt.Errorf("failed to encode output: %w", err)
	}
	return nil
}
