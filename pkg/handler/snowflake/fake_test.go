package snowflake

import (
	"context"
	"fmt"
	"io"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/snowlink/pkg/config"
)

// fakeResult scripts the cursor returned for one statement.
type fakeResult struct {
	columns []ColumnDescription
	// batches holds the row values of each columnar batch. Nil means the
	// result is not columnar.
	batches    [][][]any
	totalRows  int64
	records    []Record
	batchesErr error
	fetchErr   error
	nextErr    error
}

type fakeDriver struct {
	script     *fakeDriverScript
	opens      int
	openErr    error
	lastParams map[string]string
	conn       *fakeConn

	// openDeadline is the deadline of the context passed to the last Open.
	openDeadline    time.Time
	openHasDeadline bool
}

func (d *fakeDriver) Open(ctx context.Context, params map[string]string) (Conn, error) {
	d.opens++
	d.lastParams = params
	d.openDeadline, d.openHasDeadline = ctx.Deadline()
	if d.openErr != nil {
		return nil, d.openErr
	}
	d.conn = &fakeConn{driver: d}
	return d.conn, nil
}

type fakeConn struct {
	driver  *fakeDriver
	closed  int
	queries []string
}

// fakeDriverScript maps statements to results. Statements without an entry
// get fallback.
type fakeDriverScript struct {
	results  map[string]*fakeResult
	fallback *fakeResult
	execErr  error
}

var _ Driver = (*fakeDriver)(nil)

func (c *fakeConn) Execute(_ context.Context, query string) (Cursor, error) {
	c.queries = append(c.queries, query)
	s := c.driver.script
	if s == nil {
		return nil, fmt.Errorf("no script for query %q", query)
	}
	if s.execErr != nil {
		return nil, s.execErr
	}
	res, ok := s.results[query]
	if !ok {
		res = s.fallback
	}
	if res == nil {
		return nil, fmt.Errorf("no result for query %q", query)
	}
	return &fakeCursor{res: res}, nil
}

func (c *fakeConn) Close() error {
	c.closed++
	return nil
}

type fakeCursor struct {
	res    *fakeResult
	closed bool
}

func (c *fakeCursor) Columns() []ColumnDescription { return c.res.columns }

func (c *fakeCursor) Batches(context.Context) (BatchIterator, error) {
	if c.res.batchesErr != nil {
		return nil, c.res.batchesErr
	}
	if c.res.batches == nil {
		return nil, ErrBulkFetchNotSupported
	}
	total := c.res.totalRows
	if total == 0 {
		for _, b := range c.res.batches {
			total += int64(len(b))
		}
	}
	return &fakeBatches{res: c.res, total: total}, nil
}

func (c *fakeCursor) FetchAll(context.Context) ([]Record, error) {
	if c.res.fetchErr != nil {
		return nil, c.res.fetchErr
	}
	return c.res.records, nil
}

func (c *fakeCursor) Close() error {
	c.closed = true
	return nil
}

type fakeBatches struct {
	res   *fakeResult
	total int64
	next  int
}

func (b *fakeBatches) TotalRows() int64 { return b.total }

func (b *fakeBatches) Next(context.Context) (arrow.Record, error) {
	if b.res.nextErr != nil && b.next > 0 {
		return nil, b.res.nextErr
	}
	if b.next >= len(b.res.batches) {
		return nil, io.EOF
	}
	rows := b.res.batches[b.next]
	b.next++
	return buildRecord(columnNames(b.res.columns), rows), nil
}

// buildRecord makes an arrow record whose column types follow the first row:
// int64 and string values are supported.
func buildRecord(names []string, rows [][]any) arrow.Record {
	fields := make([]arrow.Field, len(names))
	for j, n := range names {
		dt := arrow.DataType(arrow.PrimitiveTypes.Int64)
		if len(rows) > 0 {
			if _, ok := rows[0][j].(string); ok {
				dt = arrow.BinaryTypes.String
			}
		}
		fields[j] = arrow.Field{Name: n, Type: dt, Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)

	b := array.NewRecordBuilder(memory.NewGoAllocator(), schema)
	defer b.Release()
	for _, row := range rows {
		for j, v := range row {
			switch fb := b.Field(j).(type) {
			case *array.Int64Builder:
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(v.(int64))
				}
			case *array.StringBuilder:
				if v == nil {
					fb.AppendNull()
				} else {
					fb.Append(v.(string))
				}
			}
		}
	}
	return b.NewRecord()
}

// intColumn returns count rows of a single int64 column starting at start.
func intColumn(start, count int) [][]any {
	rows := make([][]any, count)
	for i := range rows {
		rows[i] = []any{int64(start + i)}
	}
	return rows
}

func testConfig() *config.HandlerConfig {
	cfg := config.NewHandlerConfig("test", Engine)
	cfg.Connection = config.ConnectionConfig{
		config.ParamAccount:  "xy12345",
		config.ParamUser:     "loader",
		config.ParamPassword: "secret",
		config.ParamDatabase: "ANALYTICS",
	}
	return cfg
}

// newTestHandler returns a handler wired to a scripted fake driver.
func newTestHandler(t *testing.T, script *fakeDriverScript, opts ...Option) (*Handler, *fakeDriver) {
	t.Helper()
	d := &fakeDriver{script: script}

	opts = append([]Option{
		WithDriver(d),
		WithMemoryProbe(fixedMemory(1 << 40)),
	}, opts...)
	h, err := New(testConfig(), opts...)
	require.NoError(t, err)
	return h, d
}
