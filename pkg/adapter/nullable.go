// Package adapter implements the nullable adapter: a stream operator that
// reshapes batches for insertion into a table whose columns agree with the
// source up to nullability.
//
//   - if a target column is nullable while its source column is not, the
//     source values are wrapped with all-valid null markers;
//   - if a source column is nullable while its target column is not, the
//     values are unwrapped after checking that no row is null;
//   - otherwise the column passes through.
//
// The per-column actions are computed once from the source and target
// samples. When no column needs work and both layouts coincide, batches
// are returned exactly as pulled.
package adapter

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/apache/arrow-go/v18/arrow/array"
	"github.com/apache/arrow-go/v18/arrow/memory"
	"go.uber.org/zap"

	"github.com/ajitpratap0/blockstream/pkg/block"
	"github.com/ajitpratap0/blockstream/pkg/errors"
	"github.com/ajitpratap0/blockstream/pkg/schema"
	"github.com/ajitpratap0/blockstream/pkg/stream"
)

// OperatorName is the kind reported by Name.
const OperatorName = "NullableAdapter"

// State is the lifecycle position of an adapter.
type State uint8

const (
	// StateReady: the plan is computed and nothing has been pulled.
	StateReady State = iota + 1
	// StateStreaming: at least one pull has happened.
	StateStreaming
	// StateExhausted: upstream signalled end of stream. Terminal.
	StateExhausted
)

func (s State) String() string {
	switch s {
	case StateReady:
		return "ready"
	case StateStreaming:
		return "streaming"
	case StateExhausted:
		return "exhausted"
	default:
		return "constructing"
	}
}

// Option configures a NullableAdapter.
type Option func(*NullableAdapter)

// WithAllocator sets the allocator used for new null-marker buffers.
func WithAllocator(mem memory.Allocator) Option {
	return func(a *NullableAdapter) {
		a.mem = mem
	}
}

// WithStreamOptions passes options to the embedded profiling base.
func WithStreamOptions(opts ...stream.Option) Option {
	return func(a *NullableAdapter) {
		a.streamOpts = append(a.streamOpts, opts...)
	}
}

// NullableAdapter adapts batches pulled from its input to the target layout.
// It is pulled from a single goroutine.
type NullableAdapter struct {
	stream.Base

	input    stream.Operator
	source   *arrow.Schema
	target   *arrow.Schema
	required *schema.NamesAndTypes
	plan     *Plan
	state    State

	mem        memory.Allocator
	streamOpts []stream.Option
}

// NewNullableAdapter builds the adapter for batches of input laid out like
// inSample, to be inserted as outSample. Both samples must be zero-row
// descriptors. required is the full insertion schema of the target table;
// it is kept as a shared read-only reference.
//
// Construction fails with a missing-column error when a target column is
// absent from the source, before any batch is pulled.
func NewNullableAdapter(input stream.Operator, inSample, outSample arrow.Record, required *schema.NamesAndTypes, opts ...Option) (*NullableAdapter, error) {
	if inSample.NumRows() != 0 || outSample.NumRows() != 0 {
		return nil, errors.New(errors.ErrorTypeConfig, "block samples must not carry rows").
			WithDetail("source_rows", inSample.NumRows()).
			WithDetail("target_rows", outSample.NumRows())
	}

	plan, err := BuildPlan(inSample.Schema(), outSample.Schema())
	if err != nil {
		return nil, err
	}

	a := &NullableAdapter{
		input:    input,
		source:   inSample.Schema(),
		target:   outSample.Schema(),
		required: required,
		plan:     plan,
		mem:      memory.DefaultAllocator,
	}
	for _, opt := range opts {
		opt(a)
	}
	a.Init(OperatorName, a.ID, a.streamOpts...)
	a.state = StateReady

	fields := []zap.Field{
		zap.String("input", input.ID()),
		zap.Stringer("plan", plan),
		zap.Bool("must_transform", plan.MustTransform()),
	}
	if required != nil {
		fields = append(fields, zap.Int("required_columns", required.Len()))
	}
	a.Logger().Debug("nullable adapter ready", fields...)

	return a, nil
}

// ID implements stream.Operator.
func (a *NullableAdapter) ID() string {
	return OperatorName + "(" + a.input.ID() + ")"
}

// Plan returns the action plan.
func (a *NullableAdapter) Plan() *Plan {
	return a.plan
}

// MustTransform reports whether batches are rebuilt rather than passed on.
func (a *NullableAdapter) MustTransform() bool {
	return a.plan.MustTransform()
}

// RequiredColumns returns the target's insertion schema.
func (a *NullableAdapter) RequiredColumns() *schema.NamesAndTypes {
	return a.required
}

// Schema returns the layout of produced batches when transforming.
func (a *NullableAdapter) Schema() *arrow.Schema {
	if !a.plan.MustTransform() {
		return a.source
	}
	return a.target
}

// State returns the lifecycle state.
func (a *NullableAdapter) State() State {
	return a.state
}

// Next implements stream.Operator.
func (a *NullableAdapter) Next(ctx context.Context) (arrow.Record, error) {
	rec, err := a.Pull(ctx, a.read)
	if err == io.EOF {
		a.state = StateExhausted
	}
	return rec, err
}

func (a *NullableAdapter) read(ctx context.Context) (arrow.Record, error) {
	a.state = StateStreaming

	rec, err := a.input.Next(ctx)
	if err != nil {
		return nil, err
	}
	if rec == nil {
		return nil, io.EOF
	}

	if err := block.SameShape(rec, a.source); err != nil {
		rec.Release()
		return nil, err
	}
	if !a.plan.MustTransform() {
		return rec, nil
	}

	defer rec.Release()
	return a.transform(rec)
}

func (a *NullableAdapter) transform(rec arrow.Record) (arrow.Record, error) {
	cols := make([]arrow.Array, a.plan.Len())
	release := func() {
		for _, c := range cols {
			if c != nil {
				c.Release()
			}
		}
	}

	for i, action := range a.plan.actions {
		src := rec.Column(a.plan.sourcePos[i])
		switch action {
		case ToNullable:
			cols[i] = WrapNullable(a.mem, src)
		case ToOrdinary:
			col, nulls := UnwrapOrdinary(src)
			if nulls > 0 {
				release()
				name := a.target.Field(i).Name
				if c := a.Collector(); c != nil {
					c.NullViolation()
				}
				a.Logger().Warn("null value in non-nullable column",
					zap.String("column", name),
					zap.Int("null_count", nulls),
					zap.Int64("rows", rec.NumRows()))
				return nil, errors.NullNotAllowed(name, nulls).WithDetail("rows", rec.NumRows())
			}
			cols[i] = col
		default:
			src.Retain()
			cols[i] = src
		}
		if action != None {
			if c := a.Collector(); c != nil {
				c.ColumnAction(action.String())
			}
		}
	}

	out := array.NewRecord(a.target, cols, rec.NumRows())
	release()
	return out, nil
}
