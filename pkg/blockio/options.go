// Package blockio reads and writes streams of columnar blocks.
//
// Sources decode an Arrow IPC stream into a stream.Operator. Sinks encode
// blocks as an Arrow IPC stream, a Parquet file or an Avro container file.
// IPC streams can be framed with zstd, lz4 or s2.
package blockio

import (
	"github.com/apache/arrow-go/v18/arrow/memory"

	"github.com/ajitpratap0/blockstream/pkg/stream"
)

type options struct {
	compression Compression
	mem         memory.Allocator
	label       string
	streamOpts  []stream.Option
}

func newOptions(opts []Option) *options {
	o := &options{
		compression: None,
		mem:         memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(o)
	}
	return o
}

// Option configures a source or a sink.
type Option func(*options)

// WithCompression sets the stream framing.
func WithCompression(c Compression) Option {
	return func(o *options) {
		o.compression = c
	}
}

// WithAllocator sets the allocator for decoded buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(o *options) {
		o.mem = mem
	}
}

// WithLabel names the stream in operator IDs, usually after its file.
func WithLabel(label string) Option {
	return func(o *options) {
		o.label = label
	}
}

// WithStreamOptions passes options to the source's profiling base.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(o *options) {
		o.streamOpts = append(o.streamOpts, opts...)
	}
}
