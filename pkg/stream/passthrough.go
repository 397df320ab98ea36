package stream

import (
	"context"

	"github.com/apache/arrow-go/v18/arrow"
)

// PassThrough forwards its upstream unchanged.
type PassThrough struct {
	Base
	input Operator
}

// NewPassThrough wraps input.
func NewPassThrough(input Operator, opts ...Option) *PassThrough {
	p := &PassThrough{input: input}
	p.Init("PassThrough", p.ID, opts...)
	return p
}

// ID implements Operator.
func (p *PassThrough) ID() string {
	return "PassThrough(" + p.input.ID() + ")"
}

// Next implements Operator.
func (p *PassThrough) Next(ctx context.Context) (arrow.Record, error) {
	return p.Pull(ctx, p.input.Next)
}
