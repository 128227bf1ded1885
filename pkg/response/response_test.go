package response

import (
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/snowlink/pkg/types"
)

func TestResponseVariants(t *testing.T) {
	ok := NewOK(7)
	require.NotNil(t, ok.AffectedRows)
	assert.Equal(t, int64(7), *ok.AffectedRows)
	assert.Equal(t, "OK(affected_rows=7)", ok.String())

	none := NewOKNoCount()
	assert.Nil(t, none.AffectedRows)
	assert.Equal(t, "OK", none.String())

	errResp := NewError(0, "boom")
	assert.True(t, errResp.IsError())
	assert.False(t, errResp.IsTable())

	tbl := NewTable(&Table{Columns: []string{"A"}, Rows: [][]any{{1}, {2}}})
	assert.True(t, tbl.IsTable())
	assert.Equal(t, "TABLE(1 columns, 2 rows)", tbl.String())
}

func TestTable_RenameAndRecords(t *testing.T) {
	tbl := &Table{Columns: []string{"FOO", "Bar"}, Rows: [][]any{{1, "x"}}}
	tbl.RenameColumns(map[string]string{"FOO": "foo"})

	assert.Equal(t, []string{"foo", "Bar"}, tbl.Columns)
	assert.Equal(t, []map[string]any{{"foo": 1, "Bar": "x"}}, tbl.Records())

	v, ok := tbl.Value(0, "Bar")
	assert.True(t, ok)
	assert.Equal(t, "x", v)

	_, ok = tbl.Value(3, "Bar")
	assert.False(t, ok)
}

func TestNewEmptyTable_CopiesColumns(t *testing.T) {
	cols := []string{"A", "B"}
	tbl := NewEmptyTable(cols)
	cols[0] = "Z"

	assert.Equal(t, []string{"A", "B"}, tbl.Columns)
	assert.Empty(t, tbl.Rows)
}

func TestToColumnsTable(t *testing.T) {
	resp := NewTable(&Table{
		Columns: []string{
			"COLUMN_NAME", "DATA_TYPE", "ORDINAL_POSITION", "COLUMN_DEFAULT", "IS_NULLABLE",
			"CHARACTER_MAXIMUM_LENGTH", "CHARACTER_OCTET_LENGTH", "NUMERIC_PRECISION",
			"NUMERIC_SCALE", "DATETIME_PRECISION", "CHARACTER_SET_NAME", "COLLATION_NAME",
		},
		Rows: [][]any{
			{"ID", "NUMBER", "1", nil, "NO", nil, nil, "38", "0", nil, nil, nil},
			{"NAME", "TEXT", int64(2), "'x'", "YES", int64(16777216), int64(16777216), nil, nil, nil, nil, nil},
		},
	})

	mapType := func(name string) types.DataType {
		if strings.EqualFold(name, "NUMBER") {
			return types.Decimal
		}
		return types.Text
	}

	require.NoError(t, resp.ToColumnsTable(mapType))

	assert.Equal(t, ColumnsTableLayout, resp.Table.Columns)
	require.Len(t, resp.Table.Rows, 2)

	v, _ := resp.Table.Value(0, ColMySQLDataType)
	assert.Equal(t, "DECIMAL", v)
	v, _ = resp.Table.Value(1, ColDataType)
	assert.Equal(t, "TEXT", v)

	require.Len(t, resp.Columns, 2)
	assert.Equal(t, "ID", resp.Columns[0].Name)
	assert.Equal(t, types.Decimal, resp.Columns[0].Type)
	assert.Equal(t, 1, resp.Columns[0].Ordinal)
	assert.False(t, resp.Columns[0].Nullable)
	require.NotNil(t, resp.Columns[0].NumericPrecision)
	assert.Equal(t, int64(38), *resp.Columns[0].NumericPrecision)
	assert.Nil(t, resp.Columns[0].CharMaxLength)

	assert.True(t, resp.Columns[1].Nullable)
	require.NotNil(t, resp.Columns[1].CharMaxLength)
	assert.Equal(t, int64(16777216), *resp.Columns[1].CharMaxLength)
}

func TestToColumnsTable_PassesErrorsThrough(t *testing.T) {
	resp := NewError(0, "failed")
	require.NoError(t, resp.ToColumnsTable(func(string) types.DataType { return types.Varchar }))
	assert.Nil(t, resp.Table)
	assert.Nil(t, resp.Columns)
}

func TestToColumnsTable_RequiresColumnName(t *testing.T) {
	resp := NewTable(&Table{Columns: []string{"X"}, Rows: [][]any{{1}}})
	assert.Error(t, resp.ToColumnsTable(func(string) types.DataType { return types.Varchar }))
}
