// Package stream defines the pull-based operator abstraction blockstream
// pipelines are built from, together with the profiling machinery every
// operator embeds.
//
// # Overview
//
// An Operator produces Arrow records one at a time when its consumer calls
// Next. Operators are composed by each one owning its upstream:
//
//	src := stream.NewMemorySource(sourceSchema, []arrow.Record{rec1, rec2})
//	op := stream.NewPassThrough(src)
//
//	err := stream.Drain(ctx, op, func(rec arrow.Record) error {
//	    defer rec.Release()
//	    return sink.Write(rec)
//	})
//
// # Ownership
//
// A record returned by Next belongs to the caller, who must Release it.
// Operators keep no reference to records they have returned.
//
// # Concurrency
//
// Operators are pulled from a single goroutine. Pulling upstream may block;
// that blocking is the only flow control. Cancel is the one method that
// may be called from another goroutine.
package stream

import (
	"context"
	"io"

	"github.com/apache/arrow-go/v18/arrow"
)

// Operator is a lazily evaluated producer of batches.
type Operator interface {
	// Name returns the operator kind.
	Name() string
	// ID returns a stable identity derived from the operator kind and its
	// upstream, used for plan fingerprinting.
	ID() string
	// Next returns the next batch, or io.EOF once the stream is exhausted.
	// Exhaustion is terminal.
	Next(ctx context.Context) (arrow.Record, error)
}

// Drain pulls op until it is exhausted, handing every batch to fn. fn owns
// the batch. The first error from op or fn stops the drain.
func Drain(ctx context.Context, op Operator, fn func(arrow.Record) error) error {
	for {
		rec, err := op.Next(ctx)
		if err == io.EOF {
			return nil
		}
		if err != nil {
			return err
		}
		if err := fn(rec); err != nil {
			return err
		}
	}
}
