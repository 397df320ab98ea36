package blockio

import (
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/parquet"
	"github.com/apache/arrow-go/v18/parquet/compress"
	"github.com/apache/arrow-go/v18/parquet/pqarrow"

	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/errors"
)

// ParquetSink writes blocks as row groups of a Parquet file.
type ParquetSink struct {
	fw      *pqarrow.FileWriter
	schema  *arrow.Schema
	batches int64
	rows    int64
}

// NewParquetSink starts a Parquet file for layout s on w. The compression
// option selects the column chunk codec; w is not closed by Close.
func NewParquetSink(w io.Writer, s *arrow.Schema, opts ...Option) (*ParquetSink, error) {
	o := newOptions(opts)

	props := parquet.NewWriterProperties(
		parquet.WithCompression(parquetCodec(o.compression)),
		parquet.WithDictionaryDefault(true),
	)
	arrowProps := pqarrow.NewArrowWriterProperties(
		pqarrow.WithAllocator(o.mem),
		pqarrow.WithStoreSchema(),
	)

	fw, err := pqarrow.NewFileWriter(s, nopWriteCloser{w}, props, arrowProps)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "create parquet writer")
	}
	return &ParquetSink{fw: fw, schema: s}, nil
}

// Write appends rec as its own row group.
func (s *ParquetSink) Write(rec arrow.Record) error {
	if !rec.Schema().Equal(s.schema) {
		return errors.MalformedBatch("block layout %s does not match file layout %s",
			block.Layout(rec.Schema()), block.Layout(s.schema))
	}
	if err := s.fw.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "write parquet row group")
	}
	s.batches++
	s.rows += rec.NumRows()
	return nil
}

// Close writes the file footer.
func (s *ParquetSink) Close() error {
	if err := s.fw.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "close parquet writer")
	}
	return nil
}

// Rows returns the number of rows written.
func (s *ParquetSink) Rows() int64 { return s.rows }

// Batches returns the number of row groups written.
func (s *ParquetSink) Batches() int64 { return s.batches }

func parquetCodec(c Compression) compress.Compression {
	switch c {
	case Zstd:
		return compress.Codecs.Zstd
	case LZ4:
		return compress.Codecs.Lz4Raw
	case S2:
		return compress.Codecs.Snappy
	default:
		return compress.Codecs.Uncompressed
	}
}
