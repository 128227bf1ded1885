// Package types defines the canonical column types shared by every handler.
//
// Handlers map their warehouse-specific type names onto these tags so that the
// host engine can describe columns uniformly regardless of the data source.
package types

import "strings"

// DataType is a canonical column type tag.
type DataType string

const (
	Decimal  DataType = "DECIMAL"
	Int      DataType = "INT"
	Float    DataType = "FLOAT"
	Double   DataType = "DOUBLE"
	Varchar  DataType = "VARCHAR"
	Text     DataType = "TEXT"
	Char     DataType = "CHAR"
	Binary   DataType = "BINARY"
	Bool     DataType = "BOOL"
	Datetime DataType = "DATETIME"
	Date     DataType = "DATE"
	Time     DataType = "TIME"
)

var all = []DataType{Decimal, Int, Float, Double, Varchar, Text, Char, Binary, Bool, Datetime, Date, Time}

// All returns every canonical type in declaration order.
func All() []DataType {
	out := make([]DataType, len(all))
	copy(out, all)
	return out
}

// Parse resolves a canonical tag by name, ignoring case.
func Parse(name string) (DataType, bool) {
	upper := DataType(strings.ToUpper(strings.TrimSpace(name)))
	for _, t := range all {
		if t == upper {
			return t, true
		}
	}
	return "", false
}

// String implements fmt.Stringer.
func (t DataType) String() string {
	return string(t)
}
