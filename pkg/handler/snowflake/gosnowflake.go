package snowflake

import (
	"context"
	"database/sql/driver"
	"io"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/memory"
	sf "github.com/snowflakedb/gosnowflake"

	"github.com/ajitpratap0/snowlink/pkg/config"
	"github.com/ajitpratap0/snowlink/pkg/errors"
)

// GoSnowflakeDriver opens connections with github.com/snowflakedb/gosnowflake.
type GoSnowflakeDriver struct {
	// Allocator backs the arrow batches fetched from the warehouse.
	Allocator memory.Allocator
}

// NewGoSnowflakeDriver returns the production driver binding.
func NewGoSnowflakeDriver() *GoSnowflakeDriver {
	return &GoSnowflakeDriver{Allocator: memory.DefaultAllocator}
}

// sfConfig builds the driver configuration from connection parameters.
// Client telemetry is always disabled. A positive loginTimeout bounds
// authentication.
func sfConfig(params map[string]string, loginTimeout time.Duration) *sf.Config {
	cfg := &sf.Config{
		Account:          params[config.ParamAccount],
		User:             params[config.ParamUser],
		Password:         params[config.ParamPassword],
		Database:         params[config.ParamDatabase],
		Schema:           params[config.ParamSchema],
		Warehouse:        params[config.ParamWarehouse],
		Role:             params[config.ParamRole],
		DisableTelemetry: true,
	}
	if loginTimeout > 0 {
		cfg.LoginTimeout = loginTimeout
	}
	return cfg
}

// Open implements Driver. A deadline on ctx becomes the login timeout; the
// connection itself is opened on a context that outlives the call, since the
// driver keeps it for the session.
func (d *GoSnowflakeDriver) Open(ctx context.Context, params map[string]string) (Conn, error) {
	var loginTimeout time.Duration
	if deadline, ok := ctx.Deadline(); ok {
		loginTimeout = time.Until(deadline)
		if loginTimeout <= 0 {
			return nil, context.DeadlineExceeded
		}
	}
	connector := sf.NewConnector(sf.SnowflakeDriver{}, *sfConfig(params, loginTimeout))
	dc, err := connector.Connect(context.WithoutCancel(ctx))
	if err != nil {
		return nil, err
	}
	qc, ok := dc.(driver.QueryerContext)
	if !ok {
		_ = dc.Close()
		return nil, errors.New(errors.ErrorTypeCapability, "snowflake driver connection does not support queries")
	}
	return &sfConn{conn: dc, queryer: qc, allocator: d.Allocator}, nil
}

type sfConn struct {
	conn      driver.Conn
	queryer   driver.QueryerContext
	allocator memory.Allocator
}

func (c *sfConn) Execute(ctx context.Context, query string) (Cursor, error) {
	ctx = sf.WithArrowBatches(ctx)
	if c.allocator != nil {
		ctx = sf.WithArrowAllocator(ctx, c.allocator)
	}
	rows, err := c.queryer.QueryContext(ctx, query, nil)
	if err != nil {
		return nil, err
	}
	return newSFCursor(rows), nil
}

func (c *sfConn) Close() error {
	return c.conn.Close()
}

// sfCursor adapts gosnowflake rows opened in arrow batch mode.
type sfCursor struct {
	rows    driver.Rows
	columns []ColumnDescription

	batches    []*sf.ArrowBatch
	batchesErr error
	fetched    bool
}

func newSFCursor(rows driver.Rows) *sfCursor {
	names := rows.Columns()
	cols := make([]ColumnDescription, len(names))
	typed, _ := rows.(driver.RowsColumnTypeDatabaseTypeName)
	for i, n := range names {
		cols[i].Name = n
		if typed != nil {
			cols[i].TypeName = typed.ColumnTypeDatabaseTypeName(i)
		}
	}
	return &sfCursor{rows: rows, columns: cols}
}

func (c *sfCursor) Columns() []ColumnDescription {
	return c.columns
}

// arrowBatches fetches the batch list once. JSON results are reported as
// ErrBulkFetchNotSupported.
func (c *sfCursor) arrowBatches() ([]*sf.ArrowBatch, error) {
	if c.fetched {
		return c.batches, c.batchesErr
	}
	c.fetched = true

	sfRows, ok := c.rows.(sf.SnowflakeRows)
	if !ok {
		c.batchesErr = ErrBulkFetchNotSupported
		return nil, c.batchesErr
	}
	batches, err := sfRows.GetArrowBatches()
	if err != nil {
		var sfErr *sf.SnowflakeError
		if errors.As(err, &sfErr) && sfErr.Number == sf.ErrNonArrowResponseInArrowBatches {
			err = ErrBulkFetchNotSupported
		}
		c.batchesErr = err
		return nil, err
	}
	c.batches = batches
	return batches, nil
}

func (c *sfCursor) Batches(ctx context.Context) (BatchIterator, error) {
	batches, err := c.arrowBatches()
	if err != nil {
		return nil, err
	}
	var total int64
	for _, b := range batches {
		total += int64(b.GetRowCount())
	}
	return &sfBatchIterator{batches: batches, total: total}, nil
}

// FetchAll reads arrow results through their batches and JSON results row by row.
func (c *sfCursor) FetchAll(ctx context.Context) ([]Record, error) {
	batches, err := c.arrowBatches()
	switch {
	case err == nil:
		return c.fetchArrowRecords(ctx, batches)
	case errors.Is(err, ErrBulkFetchNotSupported):
		return c.fetchRowRecords(ctx)
	default:
		return nil, err
	}
}

func (c *sfCursor) fetchArrowRecords(ctx context.Context, batches []*sf.ArrowBatch) ([]Record, error) {
	it := &sfBatchIterator{batches: batches}
	names := columnNames(c.columns)
	var out []Record
	for {
		rec, err := it.Next(ctx)
		if err == io.EOF {
			return out, nil
		}
		if err != nil {
			return nil, err
		}
		for _, row := range recordRows(rec) {
			r := make(Record, len(names))
			for j, n := range names {
				if j < len(row) {
					r[n] = row[j]
				}
			}
			out = append(out, r)
		}
		rec.Release()
	}
}

func (c *sfCursor) fetchRowRecords(ctx context.Context) ([]Record, error) {
	names := columnNames(c.columns)
	dest := make([]driver.Value, len(names))
	var out []Record
	for {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if err := c.rows.Next(dest); err != nil {
			if err == io.EOF {
				return out, nil
			}
			return nil, err
		}
		r := make(Record, len(names))
		for j, n := range names {
			r[n] = dest[j]
		}
		out = append(out, r)
	}
}

func (c *sfCursor) Close() error {
	return c.rows.Close()
}

// sfBatchIterator yields the records of each arrow batch in order, fetching a
// batch only when the previous one is exhausted.
type sfBatchIterator struct {
	batches []*sf.ArrowBatch
	total   int64

	next    int
	pending []arrow.Record
}

func (it *sfBatchIterator) TotalRows() int64 {
	return it.total
}

func (it *sfBatchIterator) Next(ctx context.Context) (arrow.Record, error) {
	for len(it.pending) == 0 {
		if err := ctx.Err(); err != nil {
			return nil, err
		}
		if it.next >= len(it.batches) {
			return nil, io.EOF
		}
		recs, err := it.batches[it.next].Fetch()
		it.next++
		if err != nil {
			return nil, err
		}
		if recs != nil {
			it.pending = *recs
		}
	}
	rec := it.pending[0]
	it.pending = it.pending[1:]
	return rec, nil
}
