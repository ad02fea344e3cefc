// Package query models the serializable browse query: an ordered list of
// stages (or a single literal record) that the store can execute and the
// renderer can round-trip through a chat message.
package query

import (
	"encoding/json"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/record"
)

// Condition ops understood by the store's SQL translation.
const (
	OpEq       = "eq"
	OpNe       = "ne"
	OpGt       = "gt"
	OpLt       = "lt"
	OpContains = "contains"
)

// SafetyCap bounds the result set after a resort.
const SafetyCap = 1000

// Condition is one field comparison inside a match stage. Value is kept as
// raw JSON so encode/decode round-trips are exact.
type Condition struct {
	Field string          `json:"field"`
	Op    string          `json:"op"`
	Value json.RawMessage `json:"value"`
}

// Cond builds a Condition from a Go value.
func Cond(field, op string, value any) Condition {
	raw, _ := json.Marshal(value)
	return Condition{Field: field, Op: op, Value: raw}
}

// DecodedValue returns the condition value as a Go value (string, float64,
// bool, or nil).
func (c Condition) DecodedValue() any {
	var v any
	_ = json.Unmarshal(c.Value, &v)
	return v
}

// SortSpec orders results by a store column.
type SortSpec struct {
	Field string `json:"field"`
	Desc  bool   `json:"desc,omitempty"`
}

// SampleSpec draws a random subset; it counts as the sort-like stage.
type SampleSpec struct {
	Size int `json:"size"`
}

// Stage is one pipeline step. Exactly one member is set.
type Stage struct {
	Match  []Condition `json:"match,omitempty"`
	Sort   *SortSpec   `json:"sort,omitempty"`
	Sample *SampleSpec `json:"sample,omitempty"`
	Limit  *int        `json:"limit,omitempty"`
}

// sortLike reports whether the stage orders the result set.
func (s Stage) sortLike() bool {
	return s.Sort != nil || s.Sample != nil
}

func (s Stage) memberCount() int {
	n := 0
	if s.Match != nil {
		n++
	}
	if s.Sort != nil {
		n++
	}
	if s.Sample != nil {
		n++
	}
	if s.Limit != nil {
		n++
	}
	return n
}

// MatchStage builds a match stage from conditions.
func MatchStage(conds ...Condition) Stage {
	return Stage{Match: conds}
}

// SortStage builds a sort stage.
func SortStage(field string, desc bool) Stage {
	return Stage{Sort: &SortSpec{Field: field, Desc: desc}}
}

// SampleStage builds a random-sample stage.
func SampleStage(size int) Stage {
	return Stage{Sample: &SampleSpec{Size: size}}
}

// LimitStage builds a limit stage.
func LimitStage(n int) Stage {
	return Stage{Limit: &n}
}

// Descriptor is the active browse query. Either Literal is set (one ad-hoc
// record, no backing query) or Stages describes the store pipeline.
type Descriptor struct {
	Literal *record.Record `json:"literal,omitempty"`
	Stages  []Stage        `json:"stages,omitempty"`
}

// NewLiteral wraps a single ad-hoc record as a Descriptor.
func NewLiteral(r *record.Record) *Descriptor {
	return &Descriptor{Literal: r}
}

// IsLiteral reports whether the descriptor pins one ad-hoc record.
func (d *Descriptor) IsLiteral() bool {
	return d.Literal != nil
}

// Validate enforces the stage invariants: each stage has exactly one
// member, at most one sort-like stage, and at most one limit stage.
func (d *Descriptor) Validate() error {
	if d.Literal != nil {
		if len(d.Stages) > 0 {
			return errors.NewMalformedState("literal descriptor must not carry stages")
		}
		return nil
	}

	sortLike, limits := 0, 0
	for _, s := range d.Stages {
		if s.memberCount() != 1 {
			return errors.NewMalformedState("stage must have exactly one member")
		}
		if s.sortLike() {
			sortLike++
		}
		if s.Limit != nil {
			limits++
		}
	}
	if sortLike > 1 {
		return errors.NewMalformedState("more than one sort-like stage")
	}
	if limits > 1 {
		return errors.NewMalformedState("more than one limit stage")
	}
	return nil
}

// ReplaceSortLike swaps the descriptor's sort-like stage in place,
// preserving stage order; if none exists the stage is appended.
func (d *Descriptor) ReplaceSortLike(stage Stage) {
	for i := range d.Stages {
		if d.Stages[i].sortLike() {
			d.Stages[i] = stage
			return
		}
	}
	d.Stages = append(d.Stages, stage)
}

// StripLimit removes the limit stage, if any.
func (d *Descriptor) StripLimit() {
	for i := range d.Stages {
		if d.Stages[i].Limit != nil {
			d.Stages = append(d.Stages[:i], d.Stages[i+1:]...)
			return
		}
	}
}

// LimitValue returns the effective result-set bound. A sample stage bounds
// the set the same way a limit does.
func (d *Descriptor) LimitValue() (int, bool) {
	for _, s := range d.Stages {
		if s.Limit != nil {
			return *s.Limit, true
		}
		if s.Sample != nil {
			return s.Sample.Size, true
		}
	}
	return 0, false
}

// Clone returns a deep copy so navigation mutations never alias the
// descriptor decoded from a message.
func (d *Descriptor) Clone() *Descriptor {
	raw, _ := json.Marshal(d)
	out := &Descriptor{}
	_ = json.Unmarshal(raw, out)
	return out
}
