package adapter

import (
	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/bitutil"
	"github.com/apache/arrow-go/v18/arrow/memory"
)

// hasValidityBitmap reports whether arrays of dt keep null markers in a
// validity bitmap. Null, union and run-end encoded arrays express nulls
// otherwise.
func hasValidityBitmap(dt arrow.DataType) bool {
	switch dt.ID() {
	case arrow.NULL, arrow.SPARSE_UNION, arrow.DENSE_UNION, arrow.RUN_END_ENCODED:
		return false
	default:
		return true
	}
}

// WrapNullable returns arr with a validity bitmap marking every row valid.
// Value buffers, children and dictionary are shared with arr; only the
// bitmap is allocated from mem. Arrays that already carry a bitmap are
// returned as is. The result must be released by the caller.
func WrapNullable(mem memory.Allocator, arr arrow.Array) arrow.Array {
	data := arr.Data()
	buffers := data.Buffers()
	if !hasValidityBitmap(data.DataType()) || len(buffers) == 0 || buffers[0] != nil {
		arr.Retain()
		return arr
	}

	length, offset := data.Len(), data.Offset()
	bitmap := memory.NewResizableBuffer(mem)
	bitmap.Resize(int(bitutil.BytesForBits(int64(offset + length))))
	bitutil.SetBitsTo(bitmap.Bytes(), int64(offset), int64(length), true)
	defer bitmap.Release()

	bufs := make([]*memory.Buffer, len(buffers))
	copy(bufs, buffers)
	bufs[0] = bitmap

	out := rebuild(data, bufs, 0)
	defer out.Release()
	return array.MakeFromData(out)
}

// UnwrapOrdinary returns arr without its validity bitmap. It scans the null
// markers first; when any row is null it returns nil and the null count.
// The result must be released by the caller.
func UnwrapOrdinary(arr arrow.Array) (arrow.Array, int) {
	if nulls := arr.NullN(); nulls > 0 {
		return nil, nulls
	}

	data := arr.Data()
	buffers := data.Buffers()
	if !hasValidityBitmap(data.DataType()) || len(buffers) == 0 || buffers[0] == nil {
		arr.Retain()
		return arr, 0
	}

	bufs := make([]*memory.Buffer, len(buffers))
	copy(bufs, buffers)
	bufs[0] = nil

	out := rebuild(data, bufs, 0)
	defer out.Release()
	return array.MakeFromData(out), 0
}

// rebuild makes new array data over bufs keeping the children, dictionary,
// length and offset of data.
func rebuild(data arrow.ArrayData, bufs []*memory.Buffer, nulls int) *array.Data {
	if dict := data.Dictionary(); dict != nil {
		return array.NewDataWithDictionary(data.DataType(), data.Len(), bufs, nulls, data.Offset(), dict.(*array.Data))
	}
	return array.NewData(data.DataType(), data.Len(), bufs, data.Children(), nulls, data.Offset())
}
