package export

import (
	"encoding/csv"
	"fmt"
	"io"
	"strings"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/ipc"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"
	"github.com/spf13/cast"

	"github.com/ajitpratap0/snowlink/pkg/response"
)

// Format is an export file format.
type Format string

const (
	FormatCSV   Format = "csv"
	FormatJSONL Format = "jsonl"
	FormatArrow Format = "arrow"
	FormatAvro  Format = "avro"
)

// ParseFormat resolves a format by name.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case FormatCSV, FormatJSONL, FormatArrow, FormatAvro:
		return f, nil
	case "json", "ndjson":
		return FormatJSONL, nil
	default:
		return "", fmt.Errorf("unsupported export format: %s", name)
	}
}

// Encode writes t to w in format f.
func Encode(w io.Writer, t *response.Table, f Format) error {
	switch f {
	case FormatCSV:
		return encodeCSV(w, t)
	case FormatJSONL:
		return encodeJSONL(w, t)
	case FormatArrow:
		return encodeArrow(w, t)
	case FormatAvro:
		return encodeAvro(w, t)
	default:
		return fmt.Errorf("unsupported export format: %s", f)
	}
}

func encodeCSV(w io.Writer, t *response.Table) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(t.Columns); err != nil {
		return err
	}
	record := make([]string, len(t.Columns))
	for _, row := range t.Rows {
		for j := range record {
			record[j] = ""
			if j < len(row) {
				record[j] = stringValue(row[j])
			}
		}
		if err := cw.Write(record); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func encodeJSONL(w io.Writer, t *response.Table) error {
	enc := json.NewEncoder(w)
	for _, rec := range t.Records() {
		if err := enc.Encode(rec); err != nil {
			return err
		}
	}
	return nil
}

func arrowType(k kind) arrow.DataType {
	switch k {
	case kindInt:
		return arrow.PrimitiveTypes.Int64
	case kindFloat:
		return arrow.PrimitiveTypes.Float64
	case kindBool:
		return arrow.FixedWidthTypes.Boolean
	case kindTime:
		return &arrow.TimestampType{Unit: arrow.Microsecond, TimeZone: "UTC"}
	case kindBytes:
		return arrow.BinaryTypes.Binary
	default:
		return arrow.BinaryTypes.String
	}
}

func encodeArrow(w io.Writer, t *response.Table) error {
	kinds := inferKinds(t)
	fields := make([]arrow.Field, len(t.Columns))
	for j, c := range t.Columns {
		fields[j] = arrow.Field{Name: c, Type: arrowType(kinds[j]), Nullable: true}
	}
	schema := arrow.NewSchema(fields, nil)
	pool := memory.NewGoAllocator()

	b := array.NewRecordBuilder(pool, schema)
	defer b.Release()

	for _, row := range t.Rows {
		for j := range fields {
			var v any
			if j < len(row) {
				v = row[j]
			}
			appendArrow(b.Field(j), kinds[j], v)
		}
	}
	rec := b.NewRecord()
	defer rec.Release()

	fw, err := ipc.NewFileWriter(w, ipc.WithSchema(schema), ipc.WithAllocator(pool))
	if err != nil {
		return fmt.Errorf("failed to create Arrow writer: %w", err)
	}
	if err := fw.Write(rec); err != nil {
		_ = fw.Close()
		return err
	}
	return fw.Close()
}

func appendArrow(fb array.Builder, k kind, v any) {
	if v == nil {
		fb.AppendNull()
		return
	}
	switch k {
	case kindInt:
		fb.(*array.Int64Builder).Append(cast.ToInt64(v))
	case kindFloat:
		fb.(*array.Float64Builder).Append(cast.ToFloat64(v))
	case kindBool:
		fb.(*array.BooleanBuilder).Append(cast.ToBool(v))
	case kindTime:
		ts, err := arrow.TimestampFromTime(v.(time.Time), arrow.Microsecond)
		if err != nil {
			fb.AppendNull()
			return
		}
		fb.(*array.TimestampBuilder).Append(ts)
	case kindBytes:
		fb.(*array.BinaryBuilder).Append(v.([]byte))
	default:
		fb.(*array.StringBuilder).Append(stringValue(v))
	}
}

func avroType(k kind) any {
	switch k {
	case kindInt:
		return "long"
	case kindFloat:
		return "double"
	case kindBool:
		return "boolean"
	case kindTime:
		return map[string]any{"type": "long", "logicalType": "timestamp-micros"}
	case kindBytes:
		return "bytes"
	default:
		return "string"
	}
}

// avroUnionName is the branch name goavro expects for a nullable value.
func avroUnionName(k kind) string {
	switch k {
	case kindTime:
		return "long.timestamp-micros"
	default:
		return avroType(k).(string)
	}
}

func avroSchema(t *response.Table, names []string, kinds []kind) (string, error) {
	fields := make([]map[string]any, len(t.Columns))
	for j := range t.Columns {
		fields[j] = map[string]any{
			"name":    names[j],
			"type":    []any{"null", avroType(kinds[j])},
			"default": nil,
			"doc":     t.Columns[j],
		}
	}
	b, err := json.Marshal(map[string]any{
		"type":   "record",
		"name":   "snowlink_result",
		"fields": fields,
	})
	return string(b), err
}

func encodeAvro(w io.Writer, t *response.Table) error {
	kinds := inferKinds(t)
	names := fieldNames(t.Columns)
	schema, err := avroSchema(t, names, kinds)
	if err != nil {
		return err
	}

	codec, err := goavro.NewCodec(schema)
	if err != nil {
		return fmt.Errorf("failed to create Avro codec: %w", err)
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{W: w, Codec: codec})
	if err != nil {
		return fmt.Errorf("failed to create Avro writer: %w", err)
	}

	batch := make([]any, 0, len(t.Rows))
	for _, row := range t.Rows {
		rec := make(map[string]any, len(names))
		for j, n := range names {
			var v any
			if j < len(row) {
				v = row[j]
			}
			rec[n] = avroValue(kinds[j], v)
		}
		batch = append(batch, rec)
	}
	if len(batch) == 0 {
		return nil
	}
	return ocf.Append(batch)
}

func avroValue(k kind, v any) any {
	if v == nil {
		return nil
	}
	var native any
	switch k {
	case kindInt:
		native = cast.ToInt64(v)
	case kindFloat:
		native = cast.ToFloat64(v)
	case kindBool:
		native = cast.ToBool(v)
	case kindTime:
		native = v.(time.Time).UTC()
	case kindBytes:
		native = v.([]byte)
	default:
		native = stringValue(v)
	}
	return goavro.Union(avroUnionName(k), native)
}
