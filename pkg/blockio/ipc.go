package blockio

import (
	"context"
	stderrors "errors"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/ipc"

	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/stream"
)

// IPCSource is an operator over an Arrow IPC stream.
type IPCSource struct {
	stream.Base

	rd      *ipc.Reader
	release func()
	label   string
}

// NewIPCSource reads the stream header from r. Blocks are decoded lazily,
// one per pull.
func NewIPCSource(r io.Reader, opts ...Option) (*IPCSource, error) {
	o := newOptions(opts)

	in, release, err := decompressReader(r, o.compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "open block stream")
	}
	rd, err := ipc.NewReader(in, ipc.WithAllocator(o.mem))
	if err != nil {
		release()
		return nil, errors.Wrap(err, errors.ErrorTypeFile, "read block stream header").
			WithDetail("compression", string(o.compression))
	}

	s := &IPCSource{rd: rd, release: release, label: o.label}
	if s.label == "" {
		layout := block.Layout(rd.Schema())
		s.label = layout[1 : len(layout)-1]
	}
	s.Init("IPCSource", s.ID, o.streamOpts...)
	return s, nil
}

// ID implements stream.Operator.
func (s *IPCSource) ID() string {
	return "IPC(" + s.label + ")"
}

// Schema returns the layout declared by the stream header.
func (s *IPCSource) Schema() *arrow.Schema {
	return s.rd.Schema()
}

// Next implements stream.Operator.
func (s *IPCSource) Next(ctx context.Context) (arrow.Record, error) {
	return s.Pull(ctx, s.next)
}

func (s *IPCSource) next(context.Context) (arrow.Record, error) {
	if !s.rd.Next() {
		if err := s.rd.Err(); err != nil && !stderrors.Is(err, io.EOF) {
			return nil, errors.Wrap(err, errors.ErrorTypeFile, "decode block")
		}
		return nil, io.EOF
	}
	// the reader reuses its record on the following Next
	rec := s.rd.Record()
	rec.Retain()
	return rec, nil
}

// Close releases the decoder.
func (s *IPCSource) Close() {
	s.rd.Release()
	s.release()
}

// IPCSink writes blocks as an Arrow IPC stream.
type IPCSink struct {
	w       *ipc.Writer
	frame   io.WriteCloser
	schema  *arrow.Schema
	batches int64
	rows    int64
}

// NewIPCSink writes the stream header for s to w. Every block written must
// have exactly layout s, nullability included.
func NewIPCSink(w io.Writer, s *arrow.Schema, opts ...Option) (*IPCSink, error) {
	o := newOptions(opts)

	frame, err := compressWriter(w, o.compression)
	if err != nil {
		return nil, errors.Wrap(err, errors.ErrorTypeConfig, "open block stream")
	}
	return &IPCSink{
		w:      ipc.NewWriter(frame, ipc.WithSchema(s), ipc.WithAllocator(o.mem)),
		frame:  frame,
		schema: s,
	}, nil
}

// Write encodes rec. The caller keeps ownership of rec.
func (s *IPCSink) Write(rec arrow.Record) error {
	if !rec.Schema().Equal(s.schema) {
		return errors.MalformedBatch("block layout %s does not match stream layout %s",
			block.Layout(rec.Schema()), block.Layout(s.schema))
	}
	if err := s.w.Write(rec); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "encode block")
	}
	s.batches++
	s.rows += rec.NumRows()
	return nil
}

// Close writes the end-of-stream marker and flushes the framing.
func (s *IPCSink) Close() error {
	if err := s.w.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "close block stream")
	}
	if err := s.frame.Close(); err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "flush block stream")
	}
	return nil
}

// Rows returns the number of rows written.
func (s *IPCSink) Rows() int64 { return s.rows }

// Batches returns the number of blocks written.
func (s *IPCSink) Batches() int64 { return s.batches }
