package response

import (
	"strings"

	"github.com/spf13/cast"

	"github.com/ajitpratap0/snowlink/pkg/errors"
	"github.com/ajitpratap0/snowlink/pkg/types"
)

// Column names of the host engine's columns-table layout.
const (
	ColColumnName        = "COLUMN_NAME"
	ColDataType          = "DATA_TYPE"
	ColMySQLDataType     = "MYSQL_DATA_TYPE"
	ColOrdinalPosition   = "ORDINAL_POSITION"
	ColColumnDefault     = "COLUMN_DEFAULT"
	ColIsNullable        = "IS_NULLABLE"
	ColCharMaxLength     = "CHARACTER_MAXIMUM_LENGTH"
	ColCharOctetLength   = "CHARACTER_OCTET_LENGTH"
	ColNumericPrecision  = "NUMERIC_PRECISION"
	ColNumericScale      = "NUMERIC_SCALE"
	ColDatetimePrecision = "DATETIME_PRECISION"
	ColCharacterSetName  = "CHARACTER_SET_NAME"
	ColCollationName     = "COLLATION_NAME"
)

// ColumnsTableLayout is the column order of a columns-table response.
var ColumnsTableLayout = []string{
	ColColumnName,
	ColDataType,
	ColMySQLDataType,
	ColOrdinalPosition,
	ColColumnDefault,
	ColIsNullable,
	ColCharMaxLength,
	ColCharOctetLength,
	ColNumericPrecision,
	ColNumericScale,
	ColDatetimePrecision,
	ColCharacterSetName,
	ColCollationName,
}

// TypeMapFunc maps a warehouse type name to a canonical type.
type TypeMapFunc func(name string) types.DataType

// ToColumnsTable reshapes an information-schema columns result into the
// columns-table layout, mapping every DATA_TYPE through mapType. Non-table
// responses are left untouched.
func (r *Response) ToColumnsTable(mapType TypeMapFunc) error {
	if !r.IsTable() {
		return nil
	}

	src := r.Table
	index := make(map[string]int, len(src.Columns))
	for i, c := range src.Columns {
		index[strings.ToUpper(c)] = i
	}
	if _, ok := index[ColColumnName]; !ok {
		return errors.New(errors.ErrorTypeData, "columns result has no COLUMN_NAME column")
	}
	if _, ok := index[ColDataType]; !ok {
		return errors.New(errors.ErrorTypeData, "columns result has no DATA_TYPE column")
	}

	get := func(row []any, col string) any {
		i, ok := index[col]
		if !ok || i >= len(row) {
			return nil
		}
		return row[i]
	}

	out := &Table{Columns: append([]string(nil), ColumnsTableLayout...), Rows: make([][]any, 0, len(src.Rows))}
	infos := make([]ColumnInfo, 0, len(src.Rows))

	for _, row := range src.Rows {
		warehouseType := cast.ToString(get(row, ColDataType))
		canonical := mapType(warehouseType)

		info := ColumnInfo{
			Name:              cast.ToString(get(row, ColColumnName)),
			Type:              canonical,
			WarehouseType:     warehouseType,
			Ordinal:           cast.ToInt(get(row, ColOrdinalPosition)),
			Default:           get(row, ColColumnDefault),
			Nullable:          isNullable(get(row, ColIsNullable)),
			CharMaxLength:     optionalInt(get(row, ColCharMaxLength)),
			CharOctetLength:   optionalInt(get(row, ColCharOctetLength)),
			NumericPrecision:  optionalInt(get(row, ColNumericPrecision)),
			NumericScale:      optionalInt(get(row, ColNumericScale)),
			DatetimePrecision: optionalInt(get(row, ColDatetimePrecision)),
			Charset:           cast.ToString(get(row, ColCharacterSetName)),
			Collation:         cast.ToString(get(row, ColCollationName)),
		}
		infos = append(infos, info)

		outRow := make([]any, len(ColumnsTableLayout))
		for j, col := range ColumnsTableLayout {
			if col == ColMySQLDataType {
				outRow[j] = string(canonical)
				continue
			}
			outRow[j] = get(row, col)
		}
		out.Rows = append(out.Rows, outRow)
	}

	r.Table = out
	r.Columns = infos
	return nil
}

func isNullable(v any) bool {
	switch s := strings.ToUpper(cast.ToString(v)); s {
	case "YES", "Y", "TRUE", "1":
		return true
	default:
		return false
	}
}

func optionalInt(v any) *int64 {
	if v == nil {
		return nil
	}
	n, err := cast.ToInt64E(v)
	if err != nil {
		return nil
	}
	return &n
}
