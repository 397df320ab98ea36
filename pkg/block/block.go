// Package block provides helpers over Arrow records used as the batches
// of a blockstream pipeline: zero-row samples that describe a layout and
// cheap structural checks against such a layout.
package block

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/schema"
)

// Sample returns a zero-row record with schema s. Samples describe column
// names, types and nullability and never carry data.
func Sample(s *arrow.Schema) arrow.Record {
	mem := memory.DefaultAllocator
	cols := make([]arrow.Array, s.NumFields())
	for i, f := range s.Fields() {
		cols[i] = array.MakeArrayOfNull(mem, f.Type, 0)
	}
	rec := array.NewRecord(s, cols, 0)
	for _, c := range cols {
		c.Release()
	}
	return rec
}

// SampleFromDescriptor resolves d and returns its sample.
func SampleFromDescriptor(d *schema.Descriptor) (arrow.Record, error) {
	s, err := d.ArrowSchema()
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "invalid block descriptor")
	}
	return Sample(s), nil
}

// SameShape checks that rec has the column count, names, value types and
// nullability of want, in order. It allocates only on failure.
func SameShape(rec arrow.Record, want *arrow.Schema) error {
	got := rec.Schema()
	if got == want {
		return nil
	}
	if got.NumFields() != want.NumFields() {
		return errors.MalformedBatch("block has %d columns, expected %d", got.NumFields(), want.NumFields()).
			WithDetail("columns", got.NumFields()).
			WithDetail("expected_columns", want.NumFields())
	}
	for i := 0; i < want.NumFields(); i++ {
		g, w := got.Field(i), want.Field(i)
		if g.Name != w.Name {
			return errors.MalformedBatch("column %d is %q, expected %q", i, g.Name, w.Name).
				WithDetail("position", i)
		}
		if !arrow.TypeEqual(g.Type, w.Type) {
			return errors.MalformedBatch("column %q has type %s, expected %s", g.Name, g.Type, w.Type).
				WithDetail("position", i)
		}
		if g.Nullable != w.Nullable {
			return errors.MalformedBatch("column %q is %s, expected %s", g.Name, nullability(g.Nullable), nullability(w.Nullable)).
				WithDetail("position", i).
				WithDetail("layout", Layout(got))
		}
	}
	return nil
}

func nullability(nullable bool) string {
	if nullable {
		return "nullable"
	}
	return "non-nullable"
}

// ByteSize sums the buffer sizes of every column in rec.
func ByteSize(rec arrow.Record) int64 {
	var n int64
	for _, col := range rec.Columns() {
		n += dataSize(col.Data())
	}
	return n
}

func dataSize(d arrow.ArrayData) int64 {
	var n int64
	for _, b := range d.Buffers() {
		if b != nil {
			n += int64(b.Len())
		}
	}
	for _, c := range d.Children() {
		n += dataSize(c)
	}
	return n
}

// Describe renders the layout of rec, e.g. "2 rows [id int32, name Nullable(string)]".
func Describe(rec arrow.Record) string {
	return fmt.Sprintf("%d rows %s", rec.NumRows(), Layout(rec.Schema()))
}

// Layout renders the columns of s with their nullability,
// e.g. "[id int32, name Nullable(string)]".
func Layout(s *arrow.Schema) string {
	var sb strings.Builder
	sb.WriteByte('[')
	for i, f := range s.Fields() {
		if i > 0 {
			sb.WriteString(", ")
		}
		sb.WriteString(f.Name)
		sb.WriteByte(' ')
		sb.WriteString(schema.FormatType(f))
	}
	sb.WriteByte(']')
	return sb.String()
}
