package browse

import (
	"context"
	"fmt"
	"strings"
	"testing"
	"time"

	"github.com/spyglass-mc/spyglass/internal/errors"
	"github.com/spyglass-mc/spyglass/internal/gateway"
	"github.com/spyglass-mc/spyglass/internal/query"
	"github.com/spyglass-mc/spyglass/internal/record"
)

var testNow = time.Unix(1700000000, 0)

type fakeSource struct {
	records []*record.Record
}

func (f *fakeSource) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	return len(f.records), nil
}

func (f *fakeSource) RecordAt(ctx context.Context, d *query.Descriptor, index int) (*record.Record, error) {
	if index < 0 || index >= len(f.records) {
		return nil, nil
	}
	return f.records[index], nil
}

type fakeProber struct {
	live  *record.Record
	err   error
	calls int
}

func (f *fakeProber) Probe(ctx context.Context, ip string, port int) (*record.Record, error) {
	f.calls++
	return f.live, f.err
}

func storedRecord() *record.Record {
	return &record.Record{
		ID:          "01HV0000000000000000000000",
		IP:          "203.0.113.9",
		Port:        25565,
		Description: "§aA Minecraft Server",
		Version:     record.Version{Name: "1.20.4", Protocol: 765},
		Players:     record.Players{Online: 3, Max: 20},
		LastSeen:    testNow.Add(-24 * time.Hour).Unix(),
	}
}

func testRenderer(src RecordSource, p Prober) *Renderer {
	return &Renderer{
		Store:  src,
		Prober: p,
		Style:  gateway.DefaultStyle(),
		Now:    func() time.Time { return testNow },
	}
}

func TestRender_FastPlaceholders(t *testing.T) {
	prober := &fakeProber{}
	r := testRenderer(&fakeSource{records: []*record.Record{storedRecord()}}, prober)

	snap, err := r.Render(context.Background(), descriptorOf(t), 0, Fast)
	if err != nil {
		t.Fatalf("Render fast: %v", err)
	}

	if prober.calls != 0 {
		t.Errorf("fast render probed %d times, want 0", prober.calls)
	}
	if snap.View.Disabled != AllDisabled() {
		t.Errorf("fast render vector = %v, want all disabled", snap.View.Disabled)
	}
	if snap.Record.Description != "..." {
		t.Errorf("fast description = %q, want placeholder", snap.Record.Description)
	}
	if !strings.Contains(snap.View.Embed.Title, "203.0.113.9:25565") {
		t.Errorf("fast title = %q, missing address", snap.View.Embed.Title)
	}
	if len(snap.View.Attachment) == 0 {
		t.Error("fast render carries no state attachment")
	}
}

func TestRender_SlowOnline(t *testing.T) {
	live := &record.Record{
		Description: "§aA Minecraft Server",
		Version:     record.Version{Name: "1.20.4", Protocol: 765},
		Players: record.Players{
			Online: 7,
			Max:    20,
			Sample: []record.Player{{ID: "u-1", Name: "steve"}},
		},
	}
	r := testRenderer(&fakeSource{records: []*record.Record{storedRecord()}}, &fakeProber{live: live})

	snap, err := r.Render(context.Background(), descriptorOf(t), 0, Slow)
	if err != nil {
		t.Fatalf("Render slow: %v", err)
	}

	if !snap.LivenessKnown || !snap.Online {
		t.Errorf("slow snapshot liveness = (%v, %v), want known online", snap.LivenessKnown, snap.Online)
	}
	if snap.Record.Players.Online != 7 {
		t.Errorf("merged players online = %d, want 7", snap.Record.Players.Online)
	}
	if snap.View.Disabled[SlotPlayers] {
		t.Error("players action disabled despite a live sample")
	}
	if !strings.HasPrefix(snap.View.Embed.Title, "🟢") {
		t.Errorf("online title = %q, want green marker", snap.View.Embed.Title)
	}
	if snap.View.Embed.Footer != "Showing 1 of 1 servers" {
		t.Errorf("footer = %q", snap.View.Embed.Footer)
	}
}

func TestRender_SlowOffline(t *testing.T) {
	stored := storedRecord()
	stored.Players.Sample = []record.Player{{ID: "u-9", Name: "ghost"}}
	r := testRenderer(&fakeSource{records: []*record.Record{stored}}, &fakeProber{live: nil})

	snap, err := r.Render(context.Background(), descriptorOf(t), 0, Slow)
	if err != nil {
		t.Fatalf("Render slow: %v", err)
	}

	// an unreachable target degrades to unknown liveness
	if snap.LivenessKnown || snap.Online {
		t.Errorf("offline snapshot liveness = (%v, %v)", snap.LivenessKnown, snap.Online)
	}
	// a stored sample must not enable the players action when the probe
	// found nobody home
	if !snap.View.Disabled[SlotPlayers] {
		t.Error("players action enabled for an offline target")
	}
	if !strings.HasPrefix(snap.View.Embed.Title, "🔴") {
		t.Errorf("offline title = %q, want red marker", snap.View.Embed.Title)
	}
}

func TestRender_SlowProbeError(t *testing.T) {
	r := testRenderer(&fakeSource{records: []*record.Record{storedRecord()}},
		&fakeProber{err: fmt.Errorf("dial tcp: i/o timeout")})

	snap, err := r.Render(context.Background(), descriptorOf(t), 0, Slow)
	if err != nil {
		t.Fatalf("probe failure must not fail the render: %v", err)
	}

	if snap.LivenessKnown {
		t.Error("probe failure reported as known liveness")
	}
	if !strings.HasPrefix(snap.View.Embed.Title, "🟡") {
		t.Errorf("unknown-liveness title = %q, want yellow marker", snap.View.Embed.Title)
	}
	if !snap.View.Disabled[SlotPlayers] {
		t.Error("players action enabled with unknown liveness")
	}
}

func TestRender_EmptySet(t *testing.T) {
	r := testRenderer(&fakeSource{}, &fakeProber{})

	_, err := r.Render(context.Background(), descriptorOf(t), 0, Fast)
	if !errors.Is(err, errors.ErrNotFound) {
		t.Errorf("Render over empty set error = %v, want NOT_FOUND", err)
	}
}

func TestRender_IndexWraps(t *testing.T) {
	first := storedRecord()
	second := storedRecord()
	second.IP = "198.51.100.4"
	r := testRenderer(&fakeSource{records: []*record.Record{first, second}}, &fakeProber{})

	tests := []struct {
		index, want int
	}{
		{9, 1},
		{2, 0},
		{-1, 1},
	}
	for _, tt := range tests {
		snap, err := r.Render(context.Background(), descriptorOf(t), tt.index, Fast)
		if err != nil {
			t.Fatalf("Render(%d): %v", tt.index, err)
		}
		if snap.Index != tt.want {
			t.Errorf("index %d wrapped to %d, want %d", tt.index, snap.Index, tt.want)
		}
	}
}

type editRecorder struct {
	views []gateway.View
	fail  map[int]error // edit ordinal -> injected error
}

func (e *editRecorder) Send(ctx context.Context, channelID string, v gateway.View) (gateway.MessageRef, error) {
	return gateway.MessageRef{}, nil
}

func (e *editRecorder) Edit(ctx context.Context, ref gateway.MessageRef, v gateway.View) error {
	if err := e.fail[len(e.views)]; err != nil {
		return err
	}
	e.views = append(e.views, v)
	return nil
}

func (e *editRecorder) Delete(ctx context.Context, ref gateway.MessageRef) error { return nil }

func (e *editRecorder) Message(ctx context.Context, ref gateway.MessageRef) (*gateway.Message, error) {
	return nil, nil
}

func (e *editRecorder) Notify(ctx context.Context, ref gateway.MessageRef, em gateway.Embed) error {
	return nil
}

func (e *editRecorder) Prompt(ctx context.Context, ref gateway.MessageRef, p gateway.Prompt) (string, error) {
	return "", errors.NewTimedOut()
}

func (e *editRecorder) Choose(ctx context.Context, ref gateway.MessageRef, s gateway.Select) (string, error) {
	return "", errors.NewTimedOut()
}

func TestPublish_FastThenSlow(t *testing.T) {
	live := &record.Record{
		Description: "§aA Minecraft Server",
		Version:     record.Version{Name: "1.20.4", Protocol: 765},
		Players:     record.Players{Online: 2, Max: 20},
	}
	// two stored records, so the slow pass has navigation to enable
	second := storedRecord()
	second.IP = "198.51.100.4"
	r := testRenderer(&fakeSource{records: []*record.Record{storedRecord(), second}}, &fakeProber{live: live})
	gw := &editRecorder{}

	if err := r.Publish(context.Background(), gw, gateway.MessageRef{MessageID: "m1"}, descriptorOf(t), 0); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(gw.views) != 2 {
		t.Fatalf("Publish performed %d edits, want 2", len(gw.views))
	}
	if gw.views[0].Disabled != AllDisabled() {
		t.Error("first edit is not the all-disabled fast view")
	}
	if gw.views[1].Disabled == AllDisabled() {
		t.Error("second edit did not carry a derived vector")
	}
	if gw.views[1].Disabled[SlotNext] {
		t.Error("next action disabled with more than one record")
	}
}

func TestPublish_SlowFailureKeepsFastView(t *testing.T) {
	src := &fakeSource{records: []*record.Record{storedRecord()}}
	r := testRenderer(src, &fakeProber{})
	gw := &editRecorder{}

	// fail the slow pass at the store layer instead of the gateway
	r.Store = &failingAfter{RecordSource: src, allow: 1}

	if err := r.Publish(context.Background(), gw, gateway.MessageRef{MessageID: "m1"}, descriptorOf(t), 0); err != nil {
		t.Fatalf("Publish: %v", err)
	}
	if len(gw.views) != 2 {
		t.Fatalf("Publish performed %d edits, want 2", len(gw.views))
	}
	last := gw.views[1]
	if last.Disabled != AllDisabled() {
		t.Error("degraded edit re-enabled actions")
	}
	found := false
	for _, f := range last.Embed.Fields {
		if f.Name == "Notice" {
			found = true
		}
	}
	if !found {
		t.Error("degraded edit carries no notice field")
	}
}

// failingAfter lets the first allow calls through, then errors.
type failingAfter struct {
	RecordSource
	allow int
	calls int
}

func (f *failingAfter) Count(ctx context.Context, d *query.Descriptor) (int, error) {
	f.calls++
	if f.calls > f.allow {
		return 0, fmt.Errorf("database is locked")
	}
	return f.RecordSource.Count(ctx, d)
}

func descriptorOf(t *testing.T) *query.Descriptor {
	t.Helper()
	return &query.Descriptor{Stages: []query.Stage{
		query.SortStage("players.online", true),
		query.LimitStage(query.SafetyCap),
	}}
}
