package export

import (
	"regexp"
	"strconv"
	"time"

	"github.com/spf13/cast"

	"github.com/ajitpratap0/snowlink/pkg/response"
)

// kind is the value class of an exported column.
type kind int

const (
	kindString kind = iota
	kindInt
	kindFloat
	kindBool
	kindTime
	kindBytes
)

// inferKinds classifies every column by its first non-nil value. Columns
// whose values disagree with the first one are exported as strings.
func inferKinds(t *response.Table) []kind {
	kinds := make([]kind, len(t.Columns))
	for j := range t.Columns {
		kinds[j] = kindString
		seen := false
		for _, row := range t.Rows {
			if j >= len(row) || row[j] == nil {
				continue
			}
			k := kindOf(row[j])
			if !seen {
				kinds[j], seen = k, true
				continue
			}
			if k != kinds[j] {
				kinds[j] = kindString
				break
			}
		}
	}
	return kinds
}

func kindOf(v any) kind {
	switch v.(type) {
	case int, int8, int16, int32, int64, uint8, uint16, uint32:
		return kindInt
	case float32, float64:
		return kindFloat
	case bool:
		return kindBool
	case time.Time:
		return kindTime
	case []byte:
		return kindBytes
	default:
		return kindString
	}
}

// stringValue renders v as text for string columns and csv cells.
func stringValue(v any) string {
	switch x := v.(type) {
	case nil:
		return ""
	case time.Time:
		return x.Format(time.RFC3339Nano)
	case []byte:
		return string(x)
	case float64:
		return strconv.FormatFloat(x, 'f', -1, 64)
	default:
		return cast.ToString(v)
	}
}

var invalidNameChars = regexp.MustCompile(`[^A-Za-z0-9_]`)

// fieldNames turns column names into unique avro field names.
func fieldNames(columns []string) []string {
	names := make([]string, len(columns))
	used := make(map[string]int, len(columns))
	for i, c := range columns {
		n := invalidNameChars.ReplaceAllString(c, "_")
		if n == "" || (n[0] >= '0' && n[0] <= '9') {
			n = "_" + n
		}
		if count := used[n]; count > 0 {
			used[n]++
			n = n + "_" + strconv.Itoa(count)
		}
		used[n]++
		names[i] = n
	}
	return names
}
