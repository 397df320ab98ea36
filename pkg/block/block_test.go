package block

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/schema"
)

var testSchema = arrow.NewSchema([]arrow.Field{
	{Name: "id", Type: arrow.PrimitiveTypes.Int32},
	{Name: "name", Type: arrow.BinaryTypes.String, Nullable: true},
}, nil)

func buildRecord(t *testing.T, mem memory.Allocator, s *arrow.Schema) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(mem, s)
	defer b.Release()
	b.Field(0).(*array.Int32Builder).AppendValues([]int32{1, 2}, nil)
	b.Field(1).(*array.StringBuilder).AppendValues([]string{"a", "b"}, nil)
	return b.NewRecord()
}

func TestSample(t *testing.T) {
	rec := Sample(testSchema)
	defer rec.Release()

	assert.Equal(t, int64(0), rec.NumRows())
	assert.True(t, rec.Schema().Equal(testSchema))
	assert.Equal(t, "0 rows [id int32, name Nullable(string)]", Describe(rec))
}

func TestSampleFromDescriptor(t *testing.T) {
	rec, err := SampleFromDescriptor(&schema.Descriptor{Columns: []schema.Column{{Name: "id", Type: "Int32"}}})
	require.NoError(t, err)
	defer rec.Release()
	assert.Equal(t, int64(1), rec.NumCols())

	_, err = SampleFromDescriptor(&schema.Descriptor{Columns: []schema.Column{{Name: "id", Type: "Money"}}})
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestSameShape(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := buildRecord(t, mem, testSchema)
	defer rec.Release()

	assert.NoError(t, SameShape(rec, testSchema))

	tests := []struct {
		name string
		want *arrow.Schema
	}{
		{
			name: "column count",
			want: arrow.NewSchema([]arrow.Field{{Name: "id", Type: arrow.PrimitiveTypes.Int32}}, nil),
		},
		{
			name: "column order",
			want: arrow.NewSchema([]arrow.Field{
				{Name: "name", Type: arrow.BinaryTypes.String},
				{Name: "id", Type: arrow.PrimitiveTypes.Int32},
			}, nil),
		},
		{
			name: "nullability",
			want: arrow.NewSchema([]arrow.Field{
				{Name: "id", Type: arrow.PrimitiveTypes.Int32},
				{Name: "name", Type: arrow.BinaryTypes.String},
			}, nil),
		},
		{
			name: "column type",
			want: arrow.NewSchema([]arrow.Field{
				{Name: "id", Type: arrow.PrimitiveTypes.Int64},
				{Name: "name", Type: arrow.BinaryTypes.String},
			}, nil),
		},
	}
	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			err := SameShape(rec, tt.want)
			require.Error(t, err)
			assert.True(t, errors.IsCode(err, errors.CodeMalformedBatch))
		})
	}
}

func TestByteSize(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	rec := buildRecord(t, mem, testSchema)
	defer rec.Release()

	assert.Greater(t, ByteSize(rec), int64(0))
}

func TestLayout(t *testing.T) {
	assert.Equal(t, "[id int32, name Nullable(string)]", Layout(testSchema))
	assert.Equal(t, "[]", Layout(arrow.NewSchema(nil, nil)))
	assert.Equal(t, "[ts timestamp_ms]", Layout(arrow.NewSchema([]arrow.Field{
		{Name: "ts", Type: arrow.FixedWidthTypes.Timestamp_ms},
	}, nil)))
}
