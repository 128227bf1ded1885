// Package response defines the uniform results a handler returns to the host
// engine: a tagged Response (TABLE, OK or ERROR) and a StatusResponse for
// connection checks.
package response

import (
	"fmt"

	"github.com/ajitpratap0/snowlink/pkg/types"
)

// Type tags a Response variant.
type Type string

const (
	TypeTable Type = "table"
	TypeOK    Type = "ok"
	TypeError Type = "error"
)

// Response is the result of a single query execution.
type Response struct {
	Type Type `json:"type"`

	// Table is set for TypeTable responses.
	Table *Table `json:"table,omitempty"`

	// AffectedRows is set for TypeOK responses when the warehouse reported a count.
	AffectedRows *int64 `json:"affected_rows,omitempty"`

	// ErrorCode and ErrorMessage are set for TypeError responses.
	ErrorCode    int    `json:"error_code,omitempty"`
	ErrorMessage string `json:"error_message,omitempty"`

	// Columns carries canonical column metadata for columns-table responses.
	Columns []ColumnInfo `json:"columns,omitempty"`
}

// NewTable returns a TABLE response.
func NewTable(t *Table) *Response {
	if t == nil {
		t = &Table{}
	}
	return &Response{Type: TypeTable, Table: t}
}

// NewOK returns an OK response with an affected-row count.
func NewOK(affected int64) *Response {
	return &Response{Type: TypeOK, AffectedRows: &affected}
}

// NewOKNoCount returns an OK response without an affected-row count.
func NewOKNoCount() *Response {
	return &Response{Type: TypeOK}
}

// NewError returns an ERROR response.
func NewError(code int, message string) *Response {
	return &Response{Type: TypeError, ErrorCode: code, ErrorMessage: message}
}

// IsTable reports whether the response carries tabular data.
func (r *Response) IsTable() bool {
	return r != nil && r.Type == TypeTable && r.Table != nil
}

// IsError reports whether the response is an ERROR.
func (r *Response) IsError() bool {
	return r != nil && r.Type == TypeError
}

// String implements fmt.Stringer.
func (r *Response) String() string {
	switch r.Type {
	case TypeTable:
		return fmt.Sprintf("TABLE(%d columns, %d rows)", len(r.Table.Columns), len(r.Table.Rows))
	case TypeOK:
		if r.AffectedRows != nil {
			return fmt.Sprintf("OK(affected_rows=%d)", *r.AffectedRows)
		}
		return "OK"
	default:
		return fmt.Sprintf("ERROR(%d: %s)", r.ErrorCode, r.ErrorMessage)
	}
}

// StatusResponse reports the outcome of a connection check.
type StatusResponse struct {
	Success      bool   `json:"success"`
	ErrorMessage string `json:"error_message,omitempty"`
}

// ColumnInfo is canonical per-column metadata.
type ColumnInfo struct {
	Name              string         `json:"name"`
	Type              types.DataType `json:"type"`
	WarehouseType     string         `json:"warehouse_type"`
	Ordinal           int            `json:"ordinal"`
	Default           any            `json:"default,omitempty"`
	Nullable          bool           `json:"nullable"`
	CharMaxLength     *int64         `json:"character_maximum_length,omitempty"`
	CharOctetLength   *int64         `json:"character_octet_length,omitempty"`
	NumericPrecision  *int64         `json:"numeric_precision,omitempty"`
	NumericScale      *int64         `json:"numeric_scale,omitempty"`
	DatetimePrecision *int64         `json:"datetime_precision,omitempty"`
	Charset           string         `json:"charset,omitempty"`
	Collation         string         `json:"collation,omitempty"`
}
