package blockio

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/goccy/go-json"
	"github.com/linkedin/goavro/v2"

	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/schema"
)

// AvroSink writes blocks as records of an Avro object container file.
// Nullable columns become ["null", T] unions.
type AvroSink struct {
	ocf     *goavro.OCFWriter
	schema  *arrow.Schema
	types   []string
	batches int64
	rows    int64
}

// NewAvroSink writes the container header for layout s on w.
func NewAvroSink(w io.Writer, s *arrow.Schema, opts ...Option) (*AvroSink, error) {
	o := newOptions(opts)

	avroSchema, types, err := avroSchemaFor(s)
	if err != nil {
		return nil, err
	}
	ocf, err := goavro.NewOCFWriter(goavro.OCFConfig{
		W:               w,
		Schema:          avroSchema,
		CompressionName: avroCodec(o.compression),
	})
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "create avro writer")
	}
	return &AvroSink{ocf: ocf, schema: s, types: types}, nil
}

// Write appends every row of rec.
func (s *AvroSink) Write(rec arrow.Record) error {
	if !rec.Schema().Equal(s.schema) {
		return errors.MalformedBatch("block layout %s does not match file layout %s",
			block.Layout(rec.Schema()), block.Layout(s.schema))
	}

	rows := make([]interface{}, rec.NumRows())
	for r := range rows {
		row := make(map[string]interface{}, rec.NumCols())
		for c, f := range s.schema.Fields() {
			col := rec.Column(c)
			if col.IsNull(r) {
				row[f.Name] = nil
				continue
			}
			v := avroValue(col, r)
			if f.Nullable {
				v = goavro.Union(s.types[c], v)
			}
			row[f.Name] = v
		}
		rows[r] = row
	}
	if err := s.ocf.Append(rows); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "append avro records")
	}
	s.batches++
	s.rows += rec.NumRows()
	return nil
}

// Close is a no-op: every Append writes a complete container block.
func (s *AvroSink) Close() error { return nil }

// Rows returns the number of rows written.
func (s *AvroSink) Rows() int64 { return s.rows }

// Batches returns the number of blocks written.
func (s *AvroSink) Batches() int64 { return s.batches }

func avroSchemaFor(s *arrow.Schema) (string, []string, error) {
	types := make([]string, s.NumFields())
	fields := make([]map[string]interface{}, s.NumFields())
	for i, f := range s.Fields() {
		t, ok := avroType(f.Type)
		if !ok {
			return "", nil, errors.Newf(errors.ErrorTypeSchema, "column %q: type %s has no avro mapping", f.Name, schema.TypeName(f.Type))
		}
		types[i] = t
		field := map[string]interface{}{"name": f.Name, "type": t}
		if f.Nullable {
			field["type"] = []interface{}{"null", t}
			field["default"] = nil
		}
		fields[i] = field
	}

	data, err := json.Marshal(map[string]interface{}{
		"type":   "record",
		"name":   "Block",
		"fields": fields,
	})
	if err != nil {
		return "", nil, errors.Wrap(err, errors.ErrorTypeInternal, "encode avro schema")
	}
	return string(data), types, nil
}

// avroType maps a column type to an avro primitive. Dates and timestamps
// keep their raw integer encoding.
func avroType(dt arrow.DataType) (string, bool) {
	switch dt.ID() {
	case arrow.BOOL:
		return "boolean", true
	case arrow.INT8, arrow.INT16, arrow.INT32, arrow.UINT8, arrow.UINT16, arrow.DATE32:
		return "int", true
	case arrow.INT64, arrow.UINT32, arrow.UINT64, arrow.DATE64, arrow.TIMESTAMP:
		return "long", true
	case arrow.FLOAT32:
		return "float", true
	case arrow.FLOAT64:
		return "double", true
	case arrow.STRING, arrow.LARGE_STRING:
		return "string", true
	case arrow.BINARY, arrow.LARGE_BINARY:
		return "bytes", true
	default:
		return "", false
	}
}

func avroValue(col arrow.Array, i int) interface{} {
	switch c := col.(type) {
	case *array.Boolean:
		return c.Value(i)
	case *array.Int8:
		return int32(c.Value(i))
	case *array.Int16:
		return int32(c.Value(i))
	case *array.Int32:
		return c.Value(i)
	case *array.Uint8:
		return int32(c.Value(i))
	case *array.Uint16:
		return int32(c.Value(i))
	case *array.Date32:
		return int32(c.Value(i))
	case *array.Int64:
		return c.Value(i)
	case *array.Uint32:
		return int64(c.Value(i))
	case *array.Uint64:
		return int64(c.Value(i))
	case *array.Date64:
		return int64(c.Value(i))
	case *array.Timestamp:
		return int64(c.Value(i))
	case *array.Float32:
		return c.Value(i)
	case *array.Float64:
		return c.Value(i)
	case *array.String:
		return c.Value(i)
	case *array.LargeString:
		return c.Value(i)
	case *array.Binary:
		return c.Value(i)
	case *array.LargeBinary:
		return c.Value(i)
	default:
		return nil
	}
}

func avroCodec(c Compression) string {
	switch c {
	case None, "":
		return goavro.CompressionNullLabel
	case S2:
		return goavro.CompressionSnappyLabel
	default:
		return goavro.CompressionDeflateLabel
	}
}
