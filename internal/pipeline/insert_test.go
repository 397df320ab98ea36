package pipeline

import (
	"bytes"
	"context"
	"sync/atomic"
	"testing"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
	"go.uber.org/zap"
	"go.uber.org/zap/zaptest/observer"

	"github.com/ajitpratap0/blockstream/pkg/adapter"
	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/blockio"
	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/logger"
	"github.com/ajitpratap0/blockstream/pkg/schema"
	"github.com/ajitpratap0/blockstream/pkg/stream"
	"github.com/ajitpratap0/blockstream/pkg/testutil"
)

var (
	sourceSchema = arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "tag", Type: arrow.BinaryTypes.String, Nullable: true},
	}, nil)
	targetSchema = arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64, Nullable: true},
		{Name: "tag", Type: arrow.BinaryTypes.String},
	}, nil)
)

func batch(t *testing.T, ids []int64, tags []string, valid []bool) arrow.Record {
	t.Helper()
	b := array.NewRecordBuilder(memory.DefaultAllocator, sourceSchema)
	defer b.Release()
	b.Field(0).(*array.Int64Builder).AppendValues(ids, nil)
	b.Field(1).(*array.StringBuilder).AppendValues(tags, valid)
	return b.NewRecord()
}

func quiet() []stream.Option {
	return []stream.Option{stream.WithLogger(zap.NewNop()), stream.WithMetrics(false)}
}

// collectingSink keeps copies of written blocks.
type collectingSink struct {
	schema  *arrow.Schema
	records []arrow.Record
	rows    int64
	closed  bool
}

func (s *collectingSink) Write(rec arrow.Record) error {
	rec.Retain()
	s.records = append(s.records, rec)
	s.rows += rec.NumRows()
	return nil
}

func (s *collectingSink) Close() error {
	s.closed = true
	return nil
}

func (s *collectingSink) Rows() int64    { return s.rows }
func (s *collectingSink) Batches() int64 { return int64(len(s.records)) }

func (s *collectingSink) release() {
	for _, r := range s.records {
		r.Release()
	}
}

func newConfig(t *testing.T, recs []arrow.Record, sink *collectingSink) *InsertConfig {
	t.Helper()
	src := stream.NewMemorySource(sourceSchema, recs, quiet()...)
	for _, r := range recs {
		r.Release()
	}
	inSample, outSample := block.Sample(sourceSchema), block.Sample(targetSchema)
	t.Cleanup(func() {
		src.Close()
		inSample.Release()
		outSample.Release()
		sink.release()
	})
	return &InsertConfig{
		Source:       src,
		SourceSample: inSample,
		Target:       outSample,
		Required:     schema.FromArrowSchema(targetSchema),
		OpenSink: func(s *arrow.Schema) (blockio.Sink, error) {
			sink.schema = s
			return sink, nil
		},
		AdapterOptions: []adapter.Option{adapter.WithStreamOptions(quiet()...)},
	}
}

func TestInsertPipelineRun(t *testing.T) {
	sink := &collectingSink{}
	cfg := newConfig(t, []arrow.Record{
		batch(t, []int64{1, 2}, []string{"a", "b"}, nil),
		batch(t, []int64{3}, []string{"c"}, nil),
	}, sink)

	core, logs := observer.New(zap.InfoLevel)
	p := NewInsertPipeline(cfg, zap.New(core))
	require.NoError(t, p.Run(logger.WithQuery(context.Background(), "q-7", "events")))

	assert.True(t, sink.closed)
	assert.True(t, sink.schema.Equal(targetSchema))
	require.Len(t, sink.records, 2)
	assert.True(t, sink.records[0].Schema().Field(0).Nullable)
	assert.False(t, sink.records[0].Schema().Field(1).Nullable)

	stats := p.Stats()
	assert.Equal(t, int64(2), stats.Batches)
	assert.Equal(t, int64(3), stats.Rows)
	assert.True(t, stats.MustTransform)
	assert.Equal(t, "[TO_NULLABLE, TO_ORDINARY]", stats.Plan)
	assert.Equal(t, adapter.StateExhausted, p.Adapter().State())

	completed := logs.FilterMessage("insert pipeline completed")
	require.Equal(t, 1, completed.Len())
	assert.Equal(t, 1, completed.FilterField(zap.String("query_id", "q-7")).Len())
	assert.Equal(t, 1, completed.FilterField(zap.String("table", "events")).Len())
}

func TestInsertPipelineNullViolation(t *testing.T) {
	sink := &collectingSink{}
	cfg := newConfig(t, []arrow.Record{
		batch(t, []int64{1}, []string{"a"}, nil),
		batch(t, []int64{2, 3}, []string{"", "c"}, []bool{false, true}),
		batch(t, []int64{4}, []string{"d"}, nil),
	}, sink)

	core, logs := observer.New(zap.InfoLevel)
	p := NewInsertPipeline(cfg, zap.New(core))
	err := p.Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeNullNotAllowed))

	assert.True(t, sink.closed, "sink is closed on failure")
	assert.Len(t, sink.records, 1, "blocks before the violation are written")
	assert.Equal(t, int64(1), p.Stats().Rows)
	assert.Equal(t, 1, logs.FilterMessage("insert pipeline failed").Len())
}

func TestInsertPipelineMissingColumn(t *testing.T) {
	sink := &collectingSink{}
	cfg := newConfig(t, nil, sink)
	target := block.Sample(arrow.NewSchema([]arrow.Field{
		{Name: "id", Type: arrow.PrimitiveTypes.Int64},
		{Name: "created_at", Type: arrow.FixedWidthTypes.Timestamp_ms},
	}, nil))
	defer target.Release()
	cfg.Target = target

	opened := false
	cfg.OpenSink = func(*arrow.Schema) (blockio.Sink, error) {
		opened = true
		return sink, nil
	}

	err := NewInsertPipeline(cfg, zap.NewNop()).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsCode(err, errors.CodeMissingColumn))
	assert.False(t, opened, "no sink is opened for an impossible plan")
}

func TestInsertPipelineStopBeforeRun(t *testing.T) {
	sink := &collectingSink{}
	cfg := newConfig(t, []arrow.Record{batch(t, []int64{1}, []string{"a"}, nil)}, sink)

	p := NewInsertPipeline(cfg, nil)
	p.Stop()
	require.NoError(t, p.Run(context.Background()))
	assert.Empty(t, sink.records)
	assert.True(t, sink.closed)
}

// endlessSource repeats one block until cancelled.
type endlessSource struct {
	stream.Base
	rec arrow.Record
}

func newEndlessSource(rec arrow.Record) *endlessSource {
	s := &endlessSource{rec: rec}
	s.Init("Endless", s.ID, quiet()...)
	return s
}

func (s *endlessSource) ID() string { return "Endless" }

func (s *endlessSource) Next(ctx context.Context) (arrow.Record, error) {
	return s.Pull(ctx, func(context.Context) (arrow.Record, error) {
		s.rec.Retain()
		return s.rec, nil
	})
}

// countingSink counts rows, safe to read while a run is writing.
type countingSink struct {
	rows    atomic.Int64
	batches atomic.Int64
}

func (s *countingSink) Write(rec arrow.Record) error {
	s.rows.Add(rec.NumRows())
	s.batches.Add(1)
	return nil
}

func (s *countingSink) Close() error   { return nil }
func (s *countingSink) Rows() int64    { return s.rows.Load() }
func (s *countingSink) Batches() int64 { return s.batches.Load() }

func TestInsertPipelineStopDuringRun(t *testing.T) {
	rec := batch(t, []int64{1, 2}, []string{"a", "b"}, nil)
	defer rec.Release()
	inSample, outSample := block.Sample(sourceSchema), block.Sample(targetSchema)
	defer inSample.Release()
	defer outSample.Release()

	sink := &countingSink{}
	p := NewInsertPipeline(&InsertConfig{
		Source:         newEndlessSource(rec),
		SourceSample:   inSample,
		Target:         outSample,
		OpenSink:       func(*arrow.Schema) (blockio.Sink, error) { return sink, nil },
		AdapterOptions: []adapter.Option{adapter.WithStreamOptions(quiet()...)},
	}, testutil.TestLogger(t))

	done := make(chan error, 1)
	go func() { done <- p.Run(testutil.TestContext(t)) }()

	testutil.AssertEventually(t, func() bool { return sink.Rows() >= 10 }, 5*time.Second, "blocks flow")
	p.Stop()
	require.NoError(t, <-done)

	assert.Equal(t, sink.Rows(), p.Stats().Rows)
	assert.Equal(t, adapter.StateExhausted, p.Adapter().State())
}

func TestInsertPipelineBadConfig(t *testing.T) {
	err := NewInsertPipeline(&InsertConfig{}, nil).Run(context.Background())
	require.Error(t, err)
	assert.True(t, errors.IsType(err, errors.ErrorTypeConfig))
}

func TestInsertPipelineIPC(t *testing.T) {
	var in bytes.Buffer
	w, err := blockio.NewIPCSink(&in, sourceSchema, blockio.WithCompression(blockio.Zstd))
	require.NoError(t, err)
	rec := batch(t, []int64{1, 2, 3}, []string{"x", "y", "z"}, nil)
	require.NoError(t, w.Write(rec))
	rec.Release()
	require.NoError(t, w.Close())

	src, err := blockio.NewIPCSource(&in, blockio.WithCompression(blockio.Zstd), blockio.WithStreamOptions(quiet()...))
	require.NoError(t, err)
	defer src.Close()

	inSample, outSample := block.Sample(src.Schema()), block.Sample(targetSchema)
	defer inSample.Release()
	defer outSample.Release()

	var out bytes.Buffer
	p := NewInsertPipeline(&InsertConfig{
		Source:       src,
		SourceSample: inSample,
		Target:       outSample,
		OpenSink: func(s *arrow.Schema) (blockio.Sink, error) {
			return blockio.NewIPCSink(&out, s, blockio.WithCompression(blockio.LZ4))
		},
		AdapterOptions: []adapter.Option{adapter.WithStreamOptions(quiet()...)},
	}, zap.NewNop())
	require.NoError(t, p.Run(testutil.TestContext(t)))
	assert.Equal(t, int64(3), p.Stats().Rows)

	back, err := blockio.NewIPCSource(&out, blockio.WithCompression(blockio.LZ4), blockio.WithStreamOptions(quiet()...))
	require.NoError(t, err)
	defer back.Close()
	assert.True(t, back.Schema().Equal(targetSchema))

	got, err := back.Next(context.Background())
	require.NoError(t, err)
	defer got.Release()
	assert.Equal(t, int64(3), got.NumRows())
	assert.Equal(t, []int64{1, 2, 3}, got.Column(0).(*array.Int64).Int64Values())
}
