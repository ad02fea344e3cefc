package format

import (
	"strings"
	"testing"
	"time"
)

func TestClean(t *testing.T) {
	tests := []struct {
		in   string
		want string
	}{
		{"§aA Minecraft Server", "A Minecraft Server"},
		{"plain", "plain"},
		{"  padded  ", "padded"},
		{"pipe|split", "pipesplit"},
		{"ping @everyone", "ping @ everyone"},
		{"§l§kobfuscated§r done", "obfuscated done"},
	}

	for _, tt := range tests {
		if got := Clean(tt.in); got != tt.want {
			t.Errorf("Clean(%q) = %q, want %q", tt.in, got, tt.want)
		}
	}
}

func TestANSI(t *testing.T) {
	got := ANSI("§cred§r plain")
	if !strings.Contains(got, "[31m") {
		t.Errorf("ANSI did not map §c to red: %q", got)
	}
	if strings.Contains(got, "§") {
		t.Errorf("ANSI left a color code behind: %q", got)
	}
}

func TestMOTD_JSONChat(t *testing.T) {
	raw := `{"text":" the end","extra":[{"color":"red","text":"start "},{"text":"middle"}]}`
	got := MOTD(raw)
	if got != "§cstart middle the end" {
		t.Errorf("MOTD = %q", got)
	}
}

func TestMOTD_PlainAndEmpty(t *testing.T) {
	if got := MOTD("A Minecraft Server"); got != "A Minecraft Server" {
		t.Errorf("plain MOTD = %q", got)
	}
	if got := MOTD(""); got != "Unknown" {
		t.Errorf("empty MOTD = %q, want Unknown", got)
	}
	if got := MOTD(`"quoted server"`); got != "quoted server" {
		t.Errorf("quoted MOTD = %q", got)
	}
}

func TestMOTD_RedactsAddresses(t *testing.T) {
	got := MOTD("join 203.0.113.7 now")
	if got != "join x.x.x.x now" {
		t.Errorf("MOTD = %q, want redacted address", got)
	}
}

func TestTimeAgo(t *testing.T) {
	now := time.Date(2024, 6, 1, 12, 0, 0, 0, time.UTC)

	tests := []struct {
		then time.Time
		want string
	}{
		{now.Add(-10 * time.Second), "now"},
		{now.Add(-90 * time.Second), "1 minute, 30 seconds"},
		{now.Add(-26 * time.Hour), "1 day, 2 hours"},
		{now.AddDate(-2, 0, 0), "long ago"},
	}

	for _, tt := range tests {
		if got := TimeAgo(tt.then, now); got != tt.want {
			t.Errorf("TimeAgo(%v) = %q, want %q", tt.then, got, tt.want)
		}
	}
}

func TestProtocolName(t *testing.T) {
	if got := ProtocolName(754); got != "1.16.5" {
		t.Errorf("ProtocolName(754) = %q", got)
	}
	if got := ProtocolName(9999); got != "protocol 9999" {
		t.Errorf("ProtocolName(9999) = %q", got)
	}
}
