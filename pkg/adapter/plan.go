package adapter

import (
	"fmt"
	"strings"

	"github.com/apache/arrow-go/v18/arrow"
	"github.com/goccy/go-json"

	"github.com/ajitpratap0/blockstream/pkg/errors"
)

// Action tells how one target column is produced from its source column.
type Action uint8

const (
	// None passes the source column through.
	None Action = iota
	// ToOrdinary drops the null markers of a nullable source column.
	ToOrdinary
	// ToNullable adds all-valid null markers to a non-nullable source column.
	ToNullable
)

func (a Action) String() string {
	switch a {
	case None:
		return "NONE"
	case ToOrdinary:
		return "TO_ORDINARY"
	case ToNullable:
		return "TO_NULLABLE"
	default:
		return fmt.Sprintf("Action(%d)", uint8(a))
	}
}

// MarshalText implements encoding.TextMarshaler.
func (a Action) MarshalText() ([]byte, error) {
	return []byte(a.String()), nil
}

// UnmarshalText implements encoding.TextUnmarshaler.
func (a *Action) UnmarshalText(text []byte) error {
	switch string(text) {
	case "NONE":
		*a = None
	case "TO_ORDINARY":
		*a = ToOrdinary
	case "TO_NULLABLE":
		*a = ToNullable
	default:
		return fmt.Errorf("unknown action %q", text)
	}
	return nil
}

// Plan is the fixed per-column transformation computed from a source and
// a target layout. Entry i describes target column i.
type Plan struct {
	target    *arrow.Schema
	actions   []Action
	sourcePos []int
	transform bool
}

// BuildPlan matches every target column with the source column of the same
// name and derives its action from the two nullability flags. It fails with
// a missing-column error when a target column has no source, and with a
// type-mismatch error when the matched value types differ.
func BuildPlan(source, target *arrow.Schema) (*Plan, error) {
	p := &Plan{
		target:    target,
		actions:   make([]Action, target.NumFields()),
		sourcePos: make([]int, target.NumFields()),
	}
	if source.NumFields() != target.NumFields() {
		p.transform = true
	}

	for i, out := range target.Fields() {
		idx := source.FieldIndices(out.Name)
		if len(idx) == 0 {
			return nil, errors.MissingColumn(out.Name).WithDetail("position", i)
		}
		pos := idx[0]
		in := source.Field(pos)
		if !arrow.TypeEqual(in.Type, out.Type) {
			return nil, errors.TypeMismatch(out.Name, in.Type.String(), out.Type.String())
		}

		switch {
		case out.Nullable && !in.Nullable:
			p.actions[i] = ToNullable
		case !out.Nullable && in.Nullable:
			p.actions[i] = ToOrdinary
		default:
			p.actions[i] = None
		}
		p.sourcePos[i] = pos

		if p.actions[i] != None || pos != i {
			p.transform = true
		}
	}
	return p, nil
}

// Len returns the number of target columns.
func (p *Plan) Len() int {
	return len(p.actions)
}

// At returns the action for target column i.
func (p *Plan) At(i int) Action {
	return p.actions[i]
}

// SourcePosition returns the source column feeding target column i.
func (p *Plan) SourcePosition(i int) int {
	return p.sourcePos[i]
}

// Actions returns a copy of the per-column actions.
func (p *Plan) Actions() []Action {
	out := make([]Action, len(p.actions))
	copy(out, p.actions)
	return out
}

// MustTransform reports whether batches need any work. It is false only
// when every action is None and the source layout is the target layout,
// in which case batches pass through untouched.
func (p *Plan) MustTransform() bool {
	return p.transform
}

// Equal reports whether two plans apply the same actions to the same columns.
func (p *Plan) Equal(other *Plan) bool {
	if p.Len() != other.Len() || p.transform != other.transform {
		return false
	}
	for i := range p.actions {
		if p.actions[i] != other.actions[i] || p.sourcePos[i] != other.sourcePos[i] {
			return false
		}
		if p.target.Field(i).Name != other.target.Field(i).Name {
			return false
		}
	}
	return true
}

func (p *Plan) String() string {
	parts := make([]string, len(p.actions))
	for i, a := range p.actions {
		parts[i] = a.String()
	}
	return "[" + strings.Join(parts, ", ") + "]"
}

// PlanEntry is the serialized form of one plan entry.
type PlanEntry struct {
	Column         string `json:"column"`
	Action         Action `json:"action"`
	SourcePosition int    `json:"source_position"`
}

// Entries lists the plan per target column.
func (p *Plan) Entries() []PlanEntry {
	entries := make([]PlanEntry, len(p.actions))
	for i, a := range p.actions {
		entries[i] = PlanEntry{
			Column:         p.target.Field(i).Name,
			Action:         a,
			SourcePosition: p.sourcePos[i],
		}
	}
	return entries
}

// MarshalJSON implements json.Marshaler.
func (p *Plan) MarshalJSON() ([]byte, error) {
	return json.Marshal(struct {
		MustTransform bool        `json:"must_transform"`
		Columns       []PlanEntry `json:"columns"`
	}{
		MustTransform: p.transform,
		Columns:       p.Entries(),
	})
}
