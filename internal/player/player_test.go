package player

import (
	"context"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/spyglass-mc/spyglass/internal/record"
)

func TestMergeSamples_DedupesByID(t *testing.T) {
	stored := []record.Player{
		{ID: "u-1", Name: "steve"},
		{ID: "u-2", Name: "alex"},
	}
	live := []record.Player{
		{ID: "u-1", Name: "steve"},
		{ID: "u-3", Name: "herobrine"},
	}

	merged := MergeSamples(stored, live)
	if len(merged) != 3 {
		t.Fatalf("merged %d players, want 3", len(merged))
	}

	byID := map[string]record.Player{}
	for _, p := range merged {
		byID[p.ID] = p
	}
	if !byID["u-1"].Online || !byID["u-3"].Online {
		t.Error("live players not marked online")
	}
	if byID["u-2"].Online {
		t.Error("stored-only player marked online")
	}
}

func TestMergeSamples_OnlineFirst(t *testing.T) {
	merged := MergeSamples(
		[]record.Player{{ID: "u-2", Name: "aaa"}},
		[]record.Player{{ID: "u-1", Name: "zzz"}},
	)
	if !merged[0].Online {
		t.Errorf("first entry = %+v, want the online player", merged[0])
	}
}

func TestPages(t *testing.T) {
	players := make([]record.Player, 60)
	pages := Pages(players)
	if len(pages) != 3 {
		t.Fatalf("60 players across %d pages, want 3", len(pages))
	}
	if len(pages[0]) != PageSize || len(pages[2]) != 10 {
		t.Errorf("page sizes = %d, %d, %d", len(pages[0]), len(pages[1]), len(pages[2]))
	}

	if Pages(nil) != nil {
		t.Error("Pages(nil) != nil")
	}
}

func TestResolver_UUID(t *testing.T) {
	srv := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		switch r.URL.Path {
		case "/steve":
			w.Write([]byte(`{"id":"00112233445566778899aabbccddeeff","name":"steve"}`))
		default:
			w.WriteHeader(http.StatusNotFound)
		}
	}))
	defer srv.Close()

	r := &Resolver{BaseURL: srv.URL + "/"}

	uuid, err := r.UUID(context.Background(), "steve")
	if err != nil {
		t.Fatalf("UUID(steve): %v", err)
	}
	if uuid != "00112233-4455-6677-8899-aabbccddeeff" {
		t.Errorf("uuid = %q", uuid)
	}

	uuid, err = r.UUID(context.Background(), "nobody")
	if err != nil {
		t.Fatalf("UUID(nobody): %v", err)
	}
	if uuid != "" {
		t.Errorf("unknown username resolved to %q", uuid)
	}
}

func TestDashed(t *testing.T) {
	plain := "00112233445566778899aabbccddeeff"
	want := "00112233-4455-6677-8899-aabbccddeeff"
	if got := Dashed(plain); got != want {
		t.Errorf("Dashed(%q) = %q, want %q", plain, got, want)
	}
	if got := Dashed(want); got != want {
		t.Errorf("Dashed already-dashed = %q", got)
	}
	if got := Dashed("short"); got != "short" {
		t.Errorf("Dashed(short) = %q", got)
	}
}
