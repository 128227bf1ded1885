package snowflake

import (
	"strings"

	"go.uber.org/zap"

	"github.com/ajitpratap0/snowlink/pkg/logger"
	"github.com/ajitpratap0/snowlink/pkg/types"
)

// typeSynonyms groups Snowflake type names by the canonical type they map to.
var typeSynonyms = []struct {
	names     []string
	canonical types.DataType
}{
	{[]string{"NUMBER", "DECIMAL", "DEC", "NUMERIC"}, types.Decimal},
	{[]string{"INT", "INTEGER", "BIGINT", "SMALLINT", "TINYINT", "BYTEINT"}, types.Int},
	{[]string{"FLOAT", "FLOAT4", "FLOAT8"}, types.Float},
	{[]string{"DOUBLE", "DOUBLE PRECISION", "REAL"}, types.Double},
	{[]string{"VARCHAR"}, types.Varchar},
	{[]string{"CHAR", "CHARACTER", "NCHAR"}, types.Char},
	{[]string{"STRING", "TEXT", "NVARCHAR"}, types.Text},
	{[]string{"NVARCHAR2", "CHAR VARYING", "NCHAR VARYING"}, types.Varchar},
	{[]string{"BINARY", "VARBINARY"}, types.Binary},
	{[]string{"BOOLEAN"}, types.Bool},
	{[]string{"TIMESTAMP_NTZ", "DATETIME"}, types.Datetime},
	{[]string{"TIMESTAMP_LTZ", "TIMESTAMP_TZ"}, types.Datetime},
	{[]string{"DATE"}, types.Date},
	{[]string{"TIME"}, types.Time},
	// semi-structured, geospatial and vector values are surfaced as text
	{[]string{"VARIANT", "OBJECT", "ARRAY", "MAP", "GEOGRAPHY", "GEOMETRY", "VECTOR"}, types.Varchar},
}

var typeIndex = buildTypeIndex()

func buildTypeIndex() map[string]types.DataType {
	index := make(map[string]types.DataType)
	for _, group := range typeSynonyms {
		for _, name := range group.names {
			index[name] = group.canonical
		}
	}
	return index
}

// MapType maps a Snowflake column type name onto a canonical type. Matching
// ignores case. Unknown names are logged and reported as VARCHAR.
func MapType(name string) types.DataType {
	if t, ok := typeIndex[strings.ToUpper(name)]; ok {
		return t
	}
	logger.Get().Warn("unsupported snowflake type, using VARCHAR",
		zap.String("component", "snowflake_type_mapper"),
		zap.String("type", name))
	return types.Varchar
}

// SupportedTypeNames returns every type name MapType recognizes.
func SupportedTypeNames() []string {
	names := make([]string, 0, len(typeIndex))
	for _, group := range typeSynonyms {
		names = append(names, group.names...)
	}
	return names
}
