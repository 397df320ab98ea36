package blockio

import (
	"fmt"
	"io"
	"path/filepath"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/blockstream/pkg/errors"
)

// Sink consumes adapted blocks. Write does not take ownership of rec.
type Sink interface {
	Write(rec arrow.Record) error
	Close() error
	Rows() int64
	Batches() int64
}

// Format is an encoding for written blocks.
type Format string

const (
	FormatIPC     Format = "arrow"
	FormatParquet Format = "parquet"
	FormatAvro    Format = "avro"
)

// ParseFormat accepts a format name. The empty string means FormatIPC.
func ParseFormat(name string) (Format, error) {
	switch f := Format(strings.ToLower(strings.TrimSpace(name))); f {
	case "", "ipc", "arrows":
		return FormatIPC, nil
	case FormatIPC, FormatParquet, FormatAvro:
		return f, nil
	default:
		return "", fmt.Errorf("unsupported output format %q", name)
	}
}

// FormatFromPath guesses the format from a file extension.
func FormatFromPath(path string) Format {
	switch strings.ToLower(filepath.Ext(path)) {
	case ".parquet", ".pq":
		return FormatParquet
	case ".avro":
		return FormatAvro
	default:
		return FormatIPC
	}
}

// NewSink opens a sink of format f over w for blocks of layout s.
func NewSink(f Format, w io.Writer, s *arrow.Schema, opts ...Option) (Sink, error) {
	switch f {
	case FormatIPC, "":
		return NewIPCSink(w, s, opts...)
	case FormatParquet:
		return NewParquetSink(w, s, opts...)
	case FormatAvro:
		return NewAvroSink(w, s, opts...)
	default:
		return nil, errors.Newf(errors.ErrorTypeConfig, "unsupported output format %q", f)
	}
}
