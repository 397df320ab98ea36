package stream

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"

	"github.com/ajitpratap0/blockstream/pkg/block"
)

// MemorySource emits a fixed list of records, then end of stream.
type MemorySource struct {
	Base
	schema  *arrow.Schema
	records []arrow.Record
	pos     int
}

// NewMemorySource retains recs; each is handed to the consumer once.
// Records not consumed are released by Close.
func NewMemorySource(s *arrow.Schema, recs []arrow.Record, opts ...Option) *MemorySource {
	m := &MemorySource{schema: s, records: make([]arrow.Record, len(recs))}
	for i, rec := range recs {
		rec.Retain()
		m.records[i] = rec
	}
	m.Init("Memory", m.ID, opts...)
	return m
}

// Schema returns the layout of the emitted records.
func (m *MemorySource) Schema() *arrow.Schema {
	return m.schema
}

// ID implements Operator.
func (m *MemorySource) ID() string {
	layout := block.Layout(m.schema)
	return "Memory(" + layout[1:len(layout)-1] + ")"
}

// Next implements Operator.
func (m *MemorySource) Next(ctx context.Context) (arrow.Record, error) {
	return m.Pull(ctx, m.next)
}

func (m *MemorySource) next(context.Context) (arrow.Record, error) {
	if m.pos >= len(m.records) {
		return nil, io.EOF
	}
	rec := m.records[m.pos]
	m.records[m.pos] = nil
	m.pos++
	return rec, nil
}

// Close releases records that were never pulled.
func (m *MemorySource) Close() {
	for i := m.pos; i < len(m.records); i++ {
		if m.records[i] != nil {
			m.records[i].Release()
			m.records[i] = nil
		}
	}
	m.pos = len(m.records)
}
