// Package pipeline runs insert executions: it pulls blocks from a source
// operator, adapts their nullability to the target table through a
// NullableAdapter, and writes the result to a sink.
//
// # Basic Usage
//
//	p := pipeline.NewInsertPipeline(&pipeline.InsertConfig{
//	    Source:       src,
//	    SourceSample: block.Sample(src.Schema()),
//	    Target:       block.Sample(tableSchema),
//	    Required:     schema.FromArrowSchema(tableSchema),
//	    OpenSink: func(s *arrow.Schema) (blockio.Sink, error) {
//	        return blockio.NewIPCSink(out, s)
//	    },
//	}, logger)
//
//	err := p.Run(ctx)
//	stats := p.Stats()
//
// The pipeline is single threaded: every block is pulled, adapted and
// written before the next one is pulled. Stop may be called from another
// goroutine to end the run after the block in flight.
package pipeline

import (
	"context"
	"sync"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blockstream/pkg/adapter"
	"github.com/ajitpratap0/blockstream/pkg/blockio"
	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/logger"
	"github.com/ajitpratap0/blockstream/pkg/schema"
	"github.com/ajitpratap0/blockstream/pkg/stream"
)

// SinkFactory opens the sink once the layout of produced blocks is known.
type SinkFactory func(*arrow.Schema) (blockio.Sink, error)

// InsertConfig describes one insert execution.
type InsertConfig struct {
	Source         stream.Operator       // Upstream producing source-layout blocks
	SourceSample   arrow.Record          // Zero-row descriptor of the source layout
	Target         arrow.Record          // Zero-row descriptor of the target layout
	Required       *schema.NamesAndTypes // Insertion schema of the target table
	OpenSink       SinkFactory           // Consumer of adapted blocks
	AdapterOptions []adapter.Option      // Passed to the adapter
}

// Stats summarizes a run.
type Stats struct {
	Batches       int64         `json:"batches"`
	Rows          int64         `json:"rows"`
	Duration      time.Duration `json:"duration"`
	Plan          string        `json:"plan"`
	MustTransform bool          `json:"must_transform"`
}

// InsertPipeline wires a source, a NullableAdapter and a sink.
type InsertPipeline struct {
	config *InsertConfig
	logger *zap.Logger

	mu      sync.Mutex
	adapter *adapter.NullableAdapter
	stopped bool
	stats   Stats
}

// NewInsertPipeline creates a pipeline. Nothing is pulled until Run.
func NewInsertPipeline(config *InsertConfig, log *zap.Logger) *InsertPipeline {
	if log == nil {
		log = zap.NewNop()
	}
	return &InsertPipeline{
		config: config,
		logger: log.With(zap.String("component", "insert_pipeline")),
	}
}

// Run builds the adapter and drains it into the sink. The sink is closed
// whether or not the run succeeds. Adapter errors (missing column, type
// mismatch, null not allowed, malformed batch) are returned unchanged. Run
// logs carry the query id and table set on ctx with logger.WithQuery.
func (p *InsertPipeline) Run(ctx context.Context) (err error) {
	cfg := p.config
	if cfg == nil || cfg.Source == nil || cfg.SourceSample == nil || cfg.Target == nil || cfg.OpenSink == nil {
		return errors.New(errors.ErrorTypeConfig, "insert pipeline needs a source, both samples and a sink")
	}

	log := logger.FromContext(ctx, p.logger)
	start := time.Now()
	log.Info("starting insert pipeline",
		zap.String("source", cfg.Source.ID()),
		zap.Int64("target_columns", cfg.Target.NumCols()))

	a, err := adapter.NewNullableAdapter(cfg.Source, cfg.SourceSample, cfg.Target, cfg.Required, cfg.AdapterOptions...)
	if err != nil {
		log.Error("cannot adapt source to target", zap.Error(err))
		return err
	}

	p.mu.Lock()
	p.adapter = a
	if p.stopped {
		a.Cancel()
	}
	p.stats.Plan = a.Plan().String()
	p.stats.MustTransform = a.MustTransform()
	p.mu.Unlock()

	sink, err := cfg.OpenSink(a.Schema())
	if err != nil {
		return errors.Wrap(err, errors.ErrorTypeFile, "open sink")
	}
	defer func() {
		if cerr := sink.Close(); cerr != nil && err == nil {
			err = cerr
		}
		p.finish(log, start, sink, err)
	}()

	return stream.Drain(ctx, a, func(rec arrow.Record) error {
		defer rec.Release()
		return sink.Write(rec)
	})
}

func (p *InsertPipeline) finish(log *zap.Logger, start time.Time, sink blockio.Sink, err error) {
	p.mu.Lock()
	p.stats.Batches = sink.Batches()
	p.stats.Rows = sink.Rows()
	p.stats.Duration = time.Since(start)
	stats := p.stats
	p.mu.Unlock()

	fields := []zap.Field{
		zap.Int64("batches", stats.Batches),
		zap.Int64("rows", stats.Rows),
		zap.Duration("duration", stats.Duration),
		zap.String("plan", stats.Plan),
		zap.Bool("must_transform", stats.MustTransform),
	}
	if secs := stats.Duration.Seconds(); secs > 0 {
		fields = append(fields, zap.Float64("rows_per_sec", float64(stats.Rows)/secs))
	}
	if err != nil {
		log.Error("insert pipeline failed", append(fields, zap.Error(err))...)
		return
	}
	log.Info("insert pipeline completed", fields...)
}

// Stop ends the run after the block in flight. Safe to call from any
// goroutine, before or during Run.
func (p *InsertPipeline) Stop() {
	p.mu.Lock()
	defer p.mu.Unlock()
	p.logger.Info("stopping insert pipeline")
	p.stopped = true
	if p.adapter != nil {
		p.adapter.Cancel()
	}
}

// Stats returns the counters of the last run.
func (p *InsertPipeline) Stats() Stats {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.stats
}

// Adapter returns the adapter built by Run, nil before.
func (p *InsertPipeline) Adapter() *adapter.NullableAdapter {
	p.mu.Lock()
	defer p.mu.Unlock()
	return p.adapter
}
