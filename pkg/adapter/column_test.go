package adapter

import (
	"testing"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func int64Array(mem memory.Allocator, vals []int64, valid []bool) *array.Int64 {
	b := array.NewInt64Builder(mem)
	defer b.Release()
	b.AppendValues(vals, valid)
	return b.NewInt64Array()
}

// stripBitmap returns arr without a validity buffer, the way IPC readers
// hand out columns that have no nulls.
func stripBitmap(arr arrow.Array) arrow.Array {
	defer arr.Release()
	data := arr.Data()
	bufs := make([]*memory.Buffer, len(data.Buffers()))
	copy(bufs, data.Buffers())
	bufs[0] = nil
	out := rebuild(data, bufs, 0)
	defer out.Release()
	return array.MakeFromData(out)
}

func TestWrapNullableSharesValues(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	in := stripBitmap(int64Array(mem, []int64{10, 20, 30}, nil))
	defer in.Release()
	require.Nil(t, in.Data().Buffers()[0])

	out := WrapNullable(mem, in)
	defer out.Release()

	assert.Equal(t, in.Len(), out.Len())
	assert.Equal(t, 0, out.NullN())
	require.NotNil(t, out.Data().Buffers()[0])
	for i := 0; i < out.Len(); i++ {
		assert.True(t, out.IsValid(i))
	}
	assert.Same(t, in.Data().Buffers()[1], out.Data().Buffers()[1], "value buffer is shared")
	assert.True(t, array.Equal(in, out))
}

func TestWrapNullableRoundTrip(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	b := array.NewStringBuilder(mem)
	b.AppendValues([]string{"a", "bb", "", "dddd"}, nil)
	in := stripBitmap(b.NewStringArray())
	b.Release()
	defer in.Release()

	wrapped := WrapNullable(mem, in)
	defer wrapped.Release()

	back, nulls := UnwrapOrdinary(wrapped)
	require.Equal(t, 0, nulls)
	defer back.Release()

	assert.Nil(t, back.Data().Buffers()[0])
	assert.True(t, array.Equal(in, back))
}

func TestWrapNullableSlicedArray(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	full := stripBitmap(int64Array(mem, []int64{1, 2, 3, 4, 5, 6, 7, 8, 9, 10, 11}, nil))
	defer full.Release()
	sliced := array.NewSlice(full, 3, 10)
	defer sliced.Release()

	out := WrapNullable(mem, sliced)
	defer out.Release()

	require.Equal(t, 7, out.Len())
	assert.Equal(t, 3, out.Data().Offset())
	for i := 0; i < out.Len(); i++ {
		assert.True(t, out.IsValid(i), "row %d", i)
	}
	assert.Equal(t, []int64{4, 5, 6, 7, 8, 9, 10}, out.(*array.Int64).Int64Values())
}

func TestWrapNullableKeepsExistingBitmap(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	in := int64Array(mem, []int64{1, 2}, []bool{true, true})
	defer in.Release()

	require.NotNil(t, in.Data().Buffers()[0])

	out := WrapNullable(mem, in)
	defer out.Release()

	assert.Same(t, in, out)
	assert.Equal(t, 0, out.NullN())
}

func TestWrapNullableDictionary(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	dt := &arrow.DictionaryType{IndexType: arrow.PrimitiveTypes.Int8, ValueType: arrow.BinaryTypes.String}
	b := array.NewDictionaryBuilder(mem, dt).(*array.BinaryDictionaryBuilder)
	require.NoError(t, b.AppendString("red"))
	require.NoError(t, b.AppendString("blue"))
	require.NoError(t, b.AppendString("red"))
	in := stripBitmap(b.NewDictionaryArray())
	b.Release()
	defer in.Release()

	out := WrapNullable(mem, in)
	defer out.Release()

	dict := out.(*array.Dictionary)
	assert.Equal(t, 0, dict.NullN())
	assert.NotNil(t, dict.Data().Buffers()[0])
	assert.NotNil(t, dict.Data().Dictionary())
	assert.True(t, array.Equal(in, out))
}

func TestUnwrapOrdinaryRejectsNulls(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	in := int64Array(mem, []int64{1, 0, 3, 0}, []bool{true, false, true, false})
	defer in.Release()

	out, nulls := UnwrapOrdinary(in)
	assert.Nil(t, out)
	assert.Equal(t, 2, nulls)
}

func TestUnwrapOrdinaryScansSlice(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	in := int64Array(mem, []int64{0, 1, 2}, []bool{false, true, true})
	defer in.Release()

	// the null sits outside the slice
	sliced := array.NewSlice(in, 1, 3)
	defer sliced.Release()

	out, nulls := UnwrapOrdinary(sliced)
	require.Equal(t, 0, nulls)
	defer out.Release()
	assert.Equal(t, []int64{1, 2}, out.(*array.Int64).Int64Values())
}

func TestNullTypeColumns(t *testing.T) {
	mem := memory.NewCheckedAllocator(memory.NewGoAllocator())
	defer mem.AssertSize(t, 0)

	nulls := array.NewNull(2)
	defer nulls.Release()

	out := WrapNullable(mem, nulls)
	assert.Same(t, nulls, out)
	out.Release()

	_, n := UnwrapOrdinary(nulls)
	assert.Equal(t, 2, n)
}
