package snowflake

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/snowlink/pkg/errors"
)

// ErrBulkFetchNotSupported signals that a cursor cannot deliver columnar
// batches and that its rows must be read as records instead. It never
// reaches callers of the handler.
var ErrBulkFetchNotSupported = errors.New(errors.ErrorTypeCapability, "bulk columnar fetch is not supported for this result")

// Driver opens warehouse connections.
type Driver interface {
	Open(ctx context.Context, params map[string]string) (Conn, error)
}

// Conn is one live warehouse connection.
type Conn interface {
	Execute(ctx context.Context, query string) (Cursor, error)
	Close() error
}

// ColumnDescription describes one result column.
type ColumnDescription struct {
	Name     string
	TypeName string
}

// Record is a result row keyed by column name.
type Record map[string]any

// Cursor is the result of one executed statement.
type Cursor interface {
	Columns() []ColumnDescription
	// Batches returns the columnar batches of the result, or an error
	// matching ErrBulkFetchNotSupported when the result is not columnar.
	Batches(ctx context.Context) (BatchIterator, error)
	// FetchAll reads every remaining row as a record.
	FetchAll(ctx context.Context) ([]Record, error)
	Close() error
}

// BatchIterator yields arrow records in result order.
type BatchIterator interface {
	// TotalRows is the row count of the whole result as reported by the warehouse.
	TotalRows() int64
	// Next returns the next record, or io.EOF after the last one. The caller
	// owns the returned record and must release it.
	Next(ctx context.Context) (arrow.Record, error)
}

// columnNames returns the names of cols in order.
func columnNames(cols []ColumnDescription) []string {
	names := make([]string, len(cols))
	for i, c := range cols {
		names[i] = c.Name
	}
	return names
}

// hasDuplicateColumns reports whether two result columns share a name.
func hasDuplicateColumns(cols []ColumnDescription) bool {
	seen := make(map[string]struct{}, len(cols))
	for _, c := range cols {
		if _, ok := seen[c.Name]; ok {
			return true
		}
		seen[c.Name] = struct{}{}
	}
	return false
}
