package stream

import (
	"context"
	"io"
	"sync/atomic"
	"time"

	"github.com/apache/arrow-go/v18/arrow"
	"go.opentelemetry.io/otel/trace"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/logger"
	"github.com/ajitpratap0/blockstream/pkg/metrics"
	"github.com/ajitpratap0/blockstream/pkg/observability"
)

// Info is a snapshot of what an operator has produced so far.
type Info struct {
	Batches   int64         `json:"batches"`
	Rows      int64         `json:"rows"`
	Bytes     int64         `json:"bytes"`
	Elapsed   time.Duration `json:"elapsed"`
	FirstPull time.Time     `json:"first_pull"`
	LastPull  time.Time     `json:"last_pull"`
	Exhausted bool          `json:"exhausted"`
}

// Option configures the profiling base of an operator.
type Option func(*Base)

// WithLogger sets the logger operator events are written to.
func WithLogger(l *zap.Logger) Option {
	return func(b *Base) {
		b.logger = l
	}
}

// WithMetrics enables or disables Prometheus collection. Enabled by default.
func WithMetrics(enabled bool) Option {
	return func(b *Base) {
		b.metricsEnabled = enabled
	}
}

// WithTracing enables a span around every pull.
func WithTracing(enabled bool) Option {
	return func(b *Base) {
		b.tracing = enabled
	}
}

// Base is the profiling machinery embedded by operators. It owns the stop
// flag, the end-of-stream and failure latches and the per-operator
// counters; the embedding operator supplies the batch production.
type Base struct {
	name           string
	id             func() string
	logger         *zap.Logger
	collector      *metrics.Collector
	metricsEnabled bool
	tracing        bool

	cancelled atomic.Bool
	exhausted bool
	failed    error
	info      Info
}

// Init prepares the base. id is consulted lazily, only for spans and logs.
func (b *Base) Init(name string, id func() string, opts ...Option) {
	b.name = name
	b.id = id
	b.metricsEnabled = true
	for _, opt := range opts {
		opt(b)
	}
	if b.logger == nil {
		b.logger = logger.Get()
	}
	b.logger = b.logger.With(zap.String("operator", name))
	if b.metricsEnabled {
		b.collector = metrics.NewCollector(name)
	}
}

// Name returns the operator kind.
func (b *Base) Name() string {
	return b.name
}

// Logger returns the operator logger.
func (b *Base) Logger() *zap.Logger {
	return b.logger
}

// Collector returns the operator metrics collector, nil when metrics are disabled.
func (b *Base) Collector() *metrics.Collector {
	return b.collector
}

// Cancel sets the stop flag; the next pull reports end of stream. Safe to
// call from any goroutine.
func (b *Base) Cancel() {
	b.cancelled.Store(true)
}

// IsCancelled reports whether Cancel was called.
func (b *Base) IsCancelled() bool {
	return b.cancelled.Load()
}

// Exhausted reports whether end of stream has been reached.
func (b *Base) Exhausted() bool {
	return b.exhausted
}

// Err returns the error that aborted the stream, nil while it is healthy.
func (b *Base) Err() error {
	return b.failed
}

// Info returns the production counters.
func (b *Base) Info() Info {
	return b.info
}

// Pull runs produce once, applying the end-of-stream latch, the stop flag
// and context cancellation, and accounts the produced batch. A nil batch
// from produce is treated as end of stream. The first error from produce
// aborts the stream: every later pull returns it without calling produce.
func (b *Base) Pull(ctx context.Context, produce func(context.Context) (arrow.Record, error)) (arrow.Record, error) {
	if b.failed != nil {
		return nil, b.failed
	}
	if b.exhausted {
		return nil, io.EOF
	}
	if b.cancelled.Load() {
		b.finish("stream cancelled")
		return nil, io.EOF
	}
	if err := ctx.Err(); err != nil {
		return nil, err
	}

	var span trace.Span
	if b.tracing {
		ctx, span = observability.StartPull(ctx, b.name, b.id())
	}

	now := time.Now()
	if b.info.FirstPull.IsZero() {
		b.info.FirstPull = now
	}
	b.info.LastPull = now

	timer := metrics.NewTimer()
	rec, err := produce(ctx)
	elapsed := timer.Stop()
	b.info.Elapsed += elapsed

	if err == nil && rec == nil {
		err = io.EOF
	}
	if err != nil {
		if span != nil {
			observability.EndPull(span, 0, err == io.EOF, errOrNil(err))
		}
		if err == io.EOF {
			b.finish("stream exhausted")
		} else {
			b.failed = err
			b.logger.Debug("stream aborted", zap.String("id", b.id()), zap.Error(err))
		}
		return nil, err
	}

	rows := rec.NumRows()
	b.info.Batches++
	b.info.Rows += rows
	b.info.Bytes += block.ByteSize(rec)
	if b.collector != nil {
		b.collector.ObserveBatch(rows, elapsed)
	}
	if span != nil {
		observability.EndPull(span, rows, false, nil)
	}
	return rec, nil
}

func (b *Base) finish(msg string) {
	b.exhausted = true
	b.info.Exhausted = true
	b.logger.Debug(msg,
		zap.String("id", b.id()),
		zap.Int64("batches", b.info.Batches),
		zap.Int64("rows", b.info.Rows),
		zap.Duration("elapsed", b.info.Elapsed))
}

func errOrNil(err error) error {
	if err == io.EOF {
		return nil
	}
	return err
}
