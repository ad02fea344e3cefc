package browse

import (
	"testing"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

func TestDerive(t *testing.T) {
	tests := []struct {
		name string
		in   AffordanceInput
		want [7]bool // previous, next, jump, refresh, players, sort, join
	}{
		{
			name: "multi-result, online with sample",
			in:   AffordanceInput{Total: 5, Index: 2, HasLiveSample: true, LivenessKnown: true},
			want: [7]bool{false, false, false, true, false, false, true},
		},
		{
			name: "single result disables navigation",
			in:   AffordanceInput{Total: 1, HasLiveSample: true, LivenessKnown: true},
			want: [7]bool{true, true, true, true, false, true, true},
		},
		{
			name: "empty sample keeps players disabled",
			in:   AffordanceInput{Total: 5, LivenessKnown: true},
			want: [7]bool{false, false, false, true, true, false, true},
		},
		{
			name: "probe failed, liveness unknown",
			in:   AffordanceInput{Total: 5, HasLiveSample: false, LivenessKnown: false},
			want: [7]bool{false, false, false, true, true, false, true},
		},
		{
			name: "literal record enables refresh only",
			in:   AffordanceInput{Total: 1, Literal: true, HasLiveSample: true, LivenessKnown: true},
			want: [7]bool{true, true, true, false, true, true, true},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got := Derive(tt.in)
			if got != tt.want {
				t.Errorf("Derive(%+v) = %v, want %v", tt.in, got, tt.want)
			}
		})
	}
}

func TestDerive_JoinAlwaysDisabled(t *testing.T) {
	inputs := []AffordanceInput{
		{Total: 100, HasLiveSample: true, LivenessKnown: true},
		{Total: 1, Literal: true, LivenessKnown: true},
		{Total: 0},
	}
	for _, in := range inputs {
		if got := Derive(in); !got[SlotJoin] {
			t.Errorf("Derive(%+v) left join enabled", in)
		}
	}
}

func TestNextPrevious_Ring(t *testing.T) {
	const total = 5
	for index := 0; index < total; index++ {
		if got := Previous(Next(index, total), total); got != index {
			t.Errorf("Previous(Next(%d)) = %d, want %d", index, got, index)
		}
		if got := Next(Previous(index, total), total); got != index {
			t.Errorf("Next(Previous(%d)) = %d, want %d", index, got, index)
		}
	}

	if got := Next(total-1, total); got != 0 {
		t.Errorf("Next at end = %d, want 0", got)
	}
	if got := Previous(0, total); got != total-1 {
		t.Errorf("Previous at start = %d, want %d", got, total-1)
	}
}

func TestJump(t *testing.T) {
	index, err := Jump(3, 5)
	if err != nil {
		t.Fatalf("Jump(3, 5) error: %v", err)
	}
	if index != 2 {
		t.Errorf("Jump(3, 5) = %d, want 2", index)
	}

	for _, target := range []int{0, -1, 6} {
		if _, err := Jump(target, 5); !errors.Is(err, errors.ErrOutOfRange) {
			t.Errorf("Jump(%d, 5) error = %v, want OUT_OF_RANGE", target, err)
		}
	}
}

func TestResort_StageInvariants(t *testing.T) {
	for _, method := range query.SortMethods {
		d := &query.Descriptor{Stages: []query.Stage{
			query.MatchStage(query.Cond("version.protocol", "gt", 0)),
			query.SortStage("lastSeen", true),
			query.LimitStage(50),
		}}

		index, err := Resort(d, method)
		if err != nil {
			t.Fatalf("Resort(%s) error: %v", method, err)
		}
		if index != 0 {
			t.Errorf("Resort(%s) index = %d, want 0", method, index)
		}

		sortLike, limits := 0, 0
		for _, s := range d.Stages {
			if s.Sort != nil || s.Sample != nil {
				sortLike++
			}
			if s.Limit != nil {
				limits++
			}
		}
		if sortLike != 1 {
			t.Errorf("Resort(%s): %d sort-like stages, want 1", method, sortLike)
		}
		if limits != 1 {
			t.Errorf("Resort(%s): %d limit stages, want 1", method, limits)
		}

		last := d.Stages[len(d.Stages)-1]
		if last.Limit == nil || *last.Limit != query.SafetyCap {
			t.Errorf("Resort(%s): trailing stage is not the safety cap", method)
		}
	}
}

func TestResort_UnknownMethodLeavesDescriptor(t *testing.T) {
	d := &query.Descriptor{Stages: []query.Stage{
		query.SortStage("players.online", true),
		query.LimitStage(50),
	}}
	before := d.Clone()

	_, err := Resort(d, query.SortMethod("bogus"))
	if !errors.Is(err, errors.ErrInvalidSortMethod) {
		t.Fatalf("Resort(bogus) error = %v, want INVALID_SORT_METHOD", err)
	}
	if len(d.Stages) != len(before.Stages) {
		t.Error("Resort(bogus) mutated the descriptor")
	}
}

func TestResort_LiteralRejected(t *testing.T) {
	d := query.NewLiteral(&record.Record{IP: "203.0.113.9", Port: 25565})
	if _, err := Resort(d, query.SortPlayers); !errors.Is(err, errors.ErrInvalidSortMethod) {
		t.Errorf("Resort on literal error = %v, want INVALID_SORT_METHOD", err)
	}
}
