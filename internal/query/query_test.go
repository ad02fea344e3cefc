package query

import (
	"reflect"
	"testing"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/record"
)

func sampleDescriptor() *Descriptor {
	return &Descriptor{Stages: []Stage{
		MatchStage(
			Cond("players.max", OpGt, 0),
			Cond("version.name", OpContains, "1.19"),
		),
		SortStage("lastSeen", true),
		LimitStage(500),
	}}
}

func TestRoundTrip(t *testing.T) {
	tests := []struct {
		name string
		d    *Descriptor
	}{
		{"empty", &Descriptor{}},
		{"single stage", &Descriptor{Stages: []Stage{MatchStage(Cond("ip", OpEq, "10.0.0.1"))}}},
		{"multiple stages", sampleDescriptor()},
		{"literal", NewLiteral(&record.Record{
			IP:   "203.0.113.7",
			Port: 25565,
			Version: record.Version{
				Name: "1.20.1", Protocol: 763,
			},
		})},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			blob, err := Encode(tt.d)
			if err != nil {
				t.Fatalf("Encode failed: %v", err)
			}
			got, err := Decode(blob)
			if err != nil {
				t.Fatalf("Decode failed: %v", err)
			}
			if !reflect.DeepEqual(got, tt.d) {
				t.Errorf("round trip mismatch:\ngot  %+v\nwant %+v", got, tt.d)
			}
		})
	}
}

func TestDecode_Malformed(t *testing.T) {
	tests := []struct {
		name string
		blob string
	}{
		{"empty", ""},
		{"garbage", "not json at all"},
		{"foreign fields", `{"pipeline":[{"$match":{}}]}`},
		{"trailing data", `{"stages":[]}{"stages":[]}`},
		{"double sort", `{"stages":[{"sort":{"field":"lastSeen"}},{"sample":{"size":5}}]}`},
		{"double limit", `{"stages":[{"limit":10},{"limit":20}]}`},
		{"empty stage", `{"stages":[{}]}`},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Decode([]byte(tt.blob))
			if !errors.Is(err, errors.ErrMalformedState) {
				t.Errorf("Decode(%q) err = %v, want MALFORMED_STATE", tt.blob, err)
			}
		})
	}
}

func TestReplaceSortLike_InPlace(t *testing.T) {
	d := sampleDescriptor()
	d.ReplaceSortLike(SortStage("players.online", true))

	if len(d.Stages) != 3 {
		t.Fatalf("len(Stages) = %d, want 3", len(d.Stages))
	}
	if d.Stages[1].Sort == nil || d.Stages[1].Sort.Field != "players.online" {
		t.Errorf("sort stage not replaced in place: %+v", d.Stages[1])
	}
	// match stage order preserved
	if d.Stages[0].Match == nil {
		t.Error("match stage moved")
	}
}

func TestReplaceSortLike_Appends(t *testing.T) {
	d := &Descriptor{Stages: []Stage{MatchStage(Cond("ip", OpEq, "x"))}}
	d.ReplaceSortLike(SampleStage(100))

	if len(d.Stages) != 2 || d.Stages[1].Sample == nil {
		t.Errorf("sample stage not appended: %+v", d.Stages)
	}
}

func TestStripLimit(t *testing.T) {
	d := sampleDescriptor()
	d.StripLimit()
	if _, ok := d.LimitValue(); ok {
		t.Error("limit survived StripLimit")
	}

	// no-op when absent
	d.StripLimit()
}

func TestLimitValue_SampleCounts(t *testing.T) {
	d := &Descriptor{Stages: []Stage{SampleStage(250)}}
	n, ok := d.LimitValue()
	if !ok || n != 250 {
		t.Errorf("LimitValue = %d, %v; want 250, true", n, ok)
	}
}

func TestStageFor(t *testing.T) {
	for _, m := range SortMethods {
		stage, err := StageFor(m)
		if err != nil {
			t.Errorf("StageFor(%s) failed: %v", m, err)
		}
		if !stage.sortLike() {
			t.Errorf("StageFor(%s) returned non-sort-like stage", m)
		}
	}

	_, err := StageFor(SortMethod("bogus"))
	if !errors.Is(err, errors.ErrInvalidSortMethod) {
		t.Errorf("StageFor(bogus) err = %v, want INVALID_SORT_METHOD", err)
	}
}

func TestBuild_Filters(t *testing.T) {
	cracked := true
	d := Build(FindInput{
		Version: "1.19",
		Country: "de",
		Cracked: &cracked,
	})

	if err := d.Validate(); err != nil {
		t.Fatalf("Validate failed: %v", err)
	}
	if len(d.Stages) != 2 {
		t.Fatalf("len(Stages) = %d, want 2", len(d.Stages))
	}
	// two sanity filters plus three user filters
	if got := len(d.Stages[0].Match); got != 5 {
		t.Errorf("len(Match) = %d, want 5", got)
	}
	if d.Stages[1].Sample == nil || d.Stages[1].Sample.Size != SafetyCap {
		t.Errorf("missing safety-cap sample stage: %+v", d.Stages[1])
	}
}
