// Package snowflake implements the Snowflake handler: it connects to a
// Snowflake account, runs native SQL or rendered query trees and translates
// the results and schema metadata into the uniform response types of the
// host engine.
//
// Basic usage:
//
//	cfg := config.NewHandlerConfig("analytics", snowflake.Engine)
//	cfg.Connection = config.ConnectionConfig{
//	    "account":  "xy12345.eu-west-1",
//	    "user":     "loader",
//	    "password": os.Getenv("SNOWFLAKE_PASSWORD"),
//	    "database": "ANALYTICS",
//	}
//	h, err := snowflake.New(cfg)
//	if err != nil {
//	    return err
//	}
//	defer h.Disconnect()
//
//	resp, err := h.NativeQuery(ctx, "select 1")
//
// A Handler is safe for concurrent use; calls are serialized.
package snowflake

import (
	"context"
	"strings"
	"sync"
	"sync/atomic"
	"unicode"

	"go.opentelemetry.io/otel/attribute"
	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/logger"
	"github.com/ajitpratap0/snowlink/pkg/metrics"
	"github.com/ajitpratap0/snowlink/pkg/observability"
	"github.com/ajitpratap0/snowlink/pkg/response"
	"github.com/ajitpratap0/snowlink/pkg/sqlast"
)

// Engine is the engine name the handler registers under.
const Engine = "snowflake"

const tablesQuery = `
            SELECT TABLE_NAME, TABLE_SCHEMA, TABLE_TYPE
            FROM INFORMATION_SCHEMA.TABLES
            WHERE TABLE_TYPE IN ('BASE TABLE', 'VIEW')
              AND TABLE_SCHEMA = current_schema()
        `

const columnsQuery = `
            SELECT
                COLUMN_NAME,
                DATA_TYPE,
                ORDINAL_POSITION,
                COLUMN_DEFAULT,
                IS_NULLABLE,
                CHARACTER_MAXIMUM_LENGTH,
                CHARACTER_OCTET_LENGTH,
                NUMERIC_PRECISION,
                NUMERIC_SCALE,
                DATETIME_PRECISION,
                CHARACTER_SET_NAME,
                COLLATION_NAME
            FROM INFORMATION_SCHEMA.COLUMNS
            WHERE TABLE_NAME = %s
              AND TABLE_SCHEMA = current_schema()
        `

// Handler bridges the host engine and one Snowflake connection.
type Handler struct {
	name     string
	cfg      *config.HandlerConfig
	driver   Driver
	renderer sqlast.Renderer
	pool     MemoryPool
	logger   *zap.Logger
	tracer   *observability.HandlerTracer
	metrics  *metrics.Recorder

	memoryProbe MemoryProbe

	mu        sync.Mutex
	conn      Conn
	connected bool

	stats handlerStats
}

type handlerStats struct {
	queries          atomic.Int64
	errors           atomic.Int64
	connects         atomic.Int64
	fallbackFetches  atomic.Int64
	memoryGuardTrips atomic.Int64
	rowsReturned     atomic.Int64
}

// Stats is a point-in-time snapshot of a handler's counters.
type Stats struct {
	Queries          int64 `json:"queries"`
	Errors           int64 `json:"errors"`
	Connects         int64 `json:"connects"`
	FallbackFetches  int64 `json:"fallback_fetches"`
	MemoryGuardTrips int64 `json:"memory_guard_trips"`
	RowsReturned     int64 `json:"rows_returned"`
}

// Option customizes a Handler.
type Option func(*Handler)

// WithDriver replaces the gosnowflake driver binding.
func WithDriver(d Driver) Option {
	return func(h *Handler) { h.driver = d }
}

// WithRenderer replaces the Snowflake-dialect renderer.
func WithRenderer(r sqlast.Renderer) Option {
	return func(h *Handler) { h.renderer = r }
}

// WithMemoryProbe replaces the available-memory probe used by the large-result guard.
func WithMemoryProbe(p MemoryProbe) Option {
	return func(h *Handler) { h.memoryProbe = p }
}

// WithMemoryPool sets the pool released after every query.
func WithMemoryPool(p MemoryPool) Option {
	return func(h *Handler) { h.pool = p }
}

// WithLogger replaces the handler logger.
func WithLogger(l *zap.Logger) Option {
	return func(h *Handler) { h.logger = l }
}

// New creates a handler for cfg. No connection is opened until the first call
// that needs one.
func New(cfg *config.HandlerConfig, opts ...Option) (*Handler, error) {
	if cfg == nil {
		return nil, errors.New(errors.ErrorTypeConfig, "handler configuration is required")
	}
	cfg.ApplyDefaults()
	if cfg.Engine == "" {
		cfg.Engine = Engine
	}
	if err := cfg.Validate(); err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid handler configuration")
	}

	h := &Handler{
		name:        cfg.Name,
		cfg:         cfg,
		driver:      NewGoSnowflakeDriver(),
		renderer:    sqlast.NewSnowflakeRenderer(),
		memoryProbe: SystemMemory,
		tracer:      observability.NewHandlerTracer(Engine, cfg.Name),
		metrics:     metrics.NewRecorder(cfg.Name, cfg.Observability.EnableMetrics),
	}
	if cfg.Memory.ReleaseUnused {
		h.pool = RuntimePool{}
	}
	for _, opt := range opts {
		opt(h)
	}
	if h.logger == nil {
		h.logger = logger.With(zap.String("component", "snowflake_handler"), zap.String("handler", cfg.Name))
	}
	return h, nil
}

// Name returns the handler instance name.
func (h *Handler) Name() string {
	return h.name
}

// Stats returns a snapshot of the handler counters.
func (h *Handler) Stats() Stats {
	return Stats{
		Queries:          h.stats.queries.Load(),
		Errors:           h.stats.errors.Load(),
		Connects:         h.stats.connects.Load(),
		FallbackFetches:  h.stats.fallbackFetches.Load(),
		MemoryGuardTrips: h.stats.memoryGuardTrips.Load(),
		RowsReturned:     h.stats.rowsReturned.Load(),
	}
}

// NativeQuery runs a SQL string. Failures of the statement itself come back as
// ERROR responses; the returned error is reserved for configuration and
// connection failures and for results too large for available memory.
func (h *Handler) NativeQuery(ctx context.Context, query string) (*response.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.run(ctx, metrics.KindNative, query)
}

// Query renders node to Snowflake SQL and runs it. For SELECT statements,
// upper-case result columns that were not quoted in the select list are
// lower-cased.
func (h *Handler) Query(ctx context.Context, node sqlast.Node) (*response.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	query, err := h.renderer.Render(node, true)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeQuery, "failed to render query")
	}
	h.logger.Debug("executing SQL query", zap.String("query", query))

	resp, err := h.run(ctx, metrics.KindAST, query)
	if err != nil {
		return nil, err
	}
	if sel, ok := node.(*sqlast.Select); ok {
		lowercaseColumns(resp, sel)
	}
	return resp, nil
}

// GetTables lists the base tables and views of the current schema.
func (h *Handler) GetTables(ctx context.Context) (*response.Response, error) {
	h.mu.Lock()
	defer h.mu.Unlock()

	return h.run(ctx, metrics.KindTables, tablesQuery)
}

// GetColumns describes the columns of a table in the current schema.
// tableName must be a non-empty string.
func (h *Handler) GetColumns(ctx context.Context, tableName any) (*response.Response, error) {
	name, ok := tableName.(string)
	if !ok || name == "" {
		return nil, errors.New(errors.ErrorTypeValidation, "invalid table name provided").
			WithDetail("table_name", tableName)
	}

	h.mu.Lock()
	defer h.mu.Unlock()

	resp, err := h.run(ctx, metrics.KindColumns, strings.Replace(columnsQuery, "%s", sqlast.QuoteString(name), 1))
	if err != nil {
		return nil, err
	}
	if err := resp.ToColumnsTable(MapType); err != nil {
		return nil, err
	}
	return resp, nil
}

// run executes query with tracing and metrics. The caller holds h.mu.
func (h *Handler) run(ctx context.Context, kind, query string) (*response.Response, error) {
	timer := metrics.NewTimer(kind)
	h.stats.queries.Add(1)

	var resp *response.Response
	err := h.tracer.Trace(ctx, kind+"_query", func(ctx context.Context) error {
		var err error
		resp, err = h.nativeQuery(ctx, query)
		return err
	}, attribute.String("db.statement", query))

	result := "error"
	if err == nil {
		result = string(resp.Type)
	}
	h.metrics.Query(kind, result, timer.Stop())
	return resp, err
}

// lowercaseColumns lower-cases the upper-case columns of a SELECT result
// unless the select list quoted them.
func lowercaseColumns(resp *response.Response, sel *sqlast.Select) {
	if !resp.IsTable() {
		return
	}

	quoted := make(map[string]struct{})
	for _, target := range sel.Targets {
		if a, ok := target.(sqlast.Aliased); ok && a.GetAlias() != nil {
			if alias := a.GetAlias(); alias.LastQuoted() {
				quoted[alias.Last()] = struct{}{}
			}
			continue
		}
		if id, ok := target.(*sqlast.Identifier); ok && id.LastQuoted() {
			quoted[id.Last()] = struct{}{}
		}
	}

	renames := make(map[string]string)
	for _, col := range resp.Table.Columns {
		if _, ok := quoted[col]; ok {
			continue
		}
		if isUpper(col) {
			renames[col] = strings.ToLower(col)
		}
	}
	if len(renames) > 0 {
		resp.Table.RenameColumns(renames)
	}
}

// isUpper reports whether s has at least one cased letter and no lower-case ones.
func isUpper(s string) bool {
	cased := false
	for _, r := range s {
		if unicode.IsLower(r) {
			return false
		}
		if unicode.IsUpper(r) {
			cased = true
		}
	}
	return cased
}
