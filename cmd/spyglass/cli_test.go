package main

import (
	"bytes"
	"context"
	"encoding/json"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/spyglass-mc/spyglass/internal/config"
	"github.com/spyglass-mc/spyglass/internal/record"
	"github.com/spyglass-mc/spyglass/internal/store"
)

// setupTestStore creates a temporary database for testing.
func setupTestStore(t *testing.T) *store.Store {
	t.Helper()
	st, err := store.Open(t.TempDir())
	if err != nil {
		t.Fatalf("failed to open test store: %v", err)
	}
	t.Cleanup(func() { st.Close() })
	return st
}

func seedServer(t *testing.T, st *store.Store, ip string, online int) {
	t.Helper()
	rec := &record.Record{
		IP:          ip,
		Port:        25565,
		Description: "seeded server",
		Version:     record.Version{Name: "1.20.4", Protocol: 765},
		Players:     record.Players{Online: online, Max: 20},
		LastSeen:    1700000000,
	}
	if _, err := st.Upsert(context.Background(), rec); err != nil {
		t.Fatalf("seed %s: %v", ip, err)
	}
}

// captureStdout runs fn with stdout redirected to a buffer.
func captureStdout(t *testing.T, fn func() error) (string, error) {
	t.Helper()
	oldStdout := os.Stdout
	r, w, _ := os.Pipe()
	os.Stdout = w

	err := fn()

	w.Close()
	var buf bytes.Buffer
	_, _ = buf.ReadFrom(r)
	os.Stdout = oldStdout

	return buf.String(), err
}

func TestSplitAddress(t *testing.T) {
	tests := []struct {
		name     string
		input    string
		wantIP   string
		wantPort int
		wantErr  bool
	}{
		{name: "bare ip", input: "203.0.113.1", wantIP: "203.0.113.1", wantPort: 25565},
		{name: "ip with port", input: "203.0.113.1:25599", wantIP: "203.0.113.1", wantPort: 25599},
		{name: "hostname with port", input: "mc.example.org:25565", wantIP: "mc.example.org", wantPort: 25565},
		{name: "bad port", input: "203.0.113.1:notaport", wantErr: true},
		{name: "port out of range", input: "203.0.113.1:70000", wantErr: true},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			ip, port, err := splitAddress(tt.input)
			if tt.wantErr {
				if err == nil {
					t.Fatalf("splitAddress(%q) expected error", tt.input)
				}
				return
			}
			if err != nil {
				t.Fatalf("splitAddress(%q) error = %v", tt.input, err)
			}
			if ip != tt.wantIP || port != tt.wantPort {
				t.Errorf("splitAddress(%q) = %q, %d; want %q, %d", tt.input, ip, port, tt.wantIP, tt.wantPort)
			}
		})
	}
}

func TestCLIFind(t *testing.T) {
	st := setupTestStore(t)
	seedServer(t, st, "203.0.113.1", 3)
	seedServer(t, st, "203.0.113.2", 9)

	app := newCLIApp(st, config.DefaultConfig())

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"spyglass", "find", "--version=1.20"})
	})
	if err != nil {
		t.Fatalf("find command failed: %v", err)
	}

	var output struct {
		Total   int              `json:"total"`
		Servers []*record.Record `json:"servers"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Total != 2 {
		t.Errorf("total = %d, want 2", output.Total)
	}
	if len(output.Servers) != 2 {
		t.Errorf("servers = %d, want 2", len(output.Servers))
	}
}

func TestCLIFind_OnlineFilter(t *testing.T) {
	st := setupTestStore(t)
	seedServer(t, st, "203.0.113.1", 3)
	seedServer(t, st, "203.0.113.2", 9)

	app := newCLIApp(st, config.DefaultConfig())

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"spyglass", "find", "--online-gte=5"})
	})
	if err != nil {
		t.Fatalf("find command failed: %v", err)
	}

	var output struct {
		Total int `json:"total"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v", err)
	}
	if output.Total != 1 {
		t.Errorf("total = %d, want 1", output.Total)
	}
	if !strings.Contains(out, "203.0.113.2") {
		t.Error("expected only the busier server in the output")
	}
}

func TestCLIImport(t *testing.T) {
	st := setupTestStore(t)

	records := []*record.Record{
		{IP: "198.51.100.1", Port: 25565, Version: record.Version{Name: "1.20.4", Protocol: 765}},
		{IP: "198.51.100.2", Port: 25599, Version: record.Version{Name: "1.19.2", Protocol: 760}},
		{IP: "", Port: 25565}, // invalid, skipped
	}
	data, err := json.Marshal(records)
	if err != nil {
		t.Fatal(err)
	}

	path := filepath.Join(t.TempDir(), "servers.json")
	if err := os.WriteFile(path, data, 0600); err != nil {
		t.Fatal(err)
	}

	app := newCLIApp(st, config.DefaultConfig())

	out, err := captureStdout(t, func() error {
		return app.Run([]string{"spyglass", "import", path})
	})
	if err != nil {
		t.Fatalf("import command failed: %v", err)
	}

	var output struct {
		Imported int `json:"imported"`
		Skipped  int `json:"skipped"`
	}
	if err := json.Unmarshal([]byte(out), &output); err != nil {
		t.Fatalf("failed to parse output: %v\nOutput: %s", err, out)
	}
	if output.Imported != 2 || output.Skipped != 1 {
		t.Errorf("imported = %d, skipped = %d; want 2, 1", output.Imported, output.Skipped)
	}

	rec, err := st.FindByAddress(context.Background(), "198.51.100.2", 25599)
	if err != nil {
		t.Fatalf("FindByAddress: %v", err)
	}
	if rec == nil {
		t.Fatal("imported server not found in store")
	}
}

func TestCLIProbe_MissingArgument(t *testing.T) {
	app := newCLIApp(nil, config.DefaultConfig())

	_, err := captureStdout(t, func() error {
		return app.Run([]string{"spyglass", "probe"})
	})
	if err == nil {
		t.Fatal("probe without an address should fail")
	}
	if !strings.Contains(err.Error(), "MALFORMED_STATE") {
		t.Errorf("error = %v, want MALFORMED_STATE code", err)
	}
}

func TestIsCLIMode(t *testing.T) {
	oldArgs := os.Args
	defer func() { os.Args = oldArgs }()

	tests := []struct {
		args []string
		want bool
	}{
		{[]string{"spyglass"}, false},
		{[]string{"spyglass", "find"}, true},
		{[]string{"spyglass", "serve"}, true},
		{[]string{"spyglass", "--help"}, true},
		{[]string{"spyglass", "bogus"}, false},
	}

	for _, tt := range tests {
		os.Args = tt.args
		if got := isCLIMode(); got != tt.want {
			t.Errorf("isCLIMode() with %v = %v, want %v", tt.args, got, tt.want)
		}
	}
}
