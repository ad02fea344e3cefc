// Package format holds text helpers for rendering server records: MOTD
// parsing, legacy color-code handling, and humanized durations.
package format

import (
	"encoding/json"
	"fmt"
	"regexp"
	"strings"
	"time"
)

var (
	colorCodeRe = regexp.MustCompile(`§[0-9a-fk-or]`)
	ipv4Re      = regexp.MustCompile(`\d+\.\d+\.\d+\.\d+`)
)

// ansiCodes maps legacy § color codes to ANSI escape sequences usable
// inside chat code blocks. Style codes map to nothing.
var ansiCodes = map[string]string{
	"§0": "[30m",
	"§1": "[34m",
	"§2": "[32m",
	"§3": "[36m",
	"§4": "[31m",
	"§5": "[35m",
	"§6": "[33m",
	"§7": "[30m",
	"§8": "[30m",
	"§9": "[34m",
	"§a": "[32m",
	"§b": "[36m",
	"§c": "[31m",
	"§d": "[35m",
	"§e": "[33m",
	"§f": "[37m",
}

// namedColors maps JSON chat color names back to § codes so extras can be
// folded into a single legacy-coded string.
var namedColors = map[string]string{
	"gray":   "§7",
	"red":    "§c",
	"green":  "§a",
	"yellow": "§e",
	"blue":   "§9",
	"pink":   "§d",
	"cyan":   "§b",
	"white":  "§f",
}

// Clean strips § color codes and characters that break embed markup.
func Clean(text string) string {
	text = colorCodeRe.ReplaceAllString(text, "")
	text = strings.ReplaceAll(text, "|", "")
	text = strings.ReplaceAll(text, "@", "@ ")
	return strings.TrimSpace(text)
}

// ANSI converts § color codes to ANSI escapes for an ansi code block.
func ANSI(text string) string {
	for code, esc := range ansiCodes {
		text = strings.ReplaceAll(text, code, esc)
	}
	// drop style codes and anything unmapped
	return colorCodeRe.ReplaceAllString(text, "")
}

// chatComponent is the wire shape of a JSON chat description. Disconnect
// reasons use translate keys instead of literal text.
type chatComponent struct {
	Text      string          `json:"text"`
	Translate string          `json:"translate,omitempty"`
	With      []chatComponent `json:"with,omitempty"`
	Color     string          `json:"color,omitempty"`
	Extra     []chatComponent `json:"extra,omitempty"`
}

// MOTD flattens a server description into displayable text. The input may
// be a JSON chat object, a JSON string, or plain text. Raw IPv4 addresses
// are redacted and backticks removed so the result is safe in a code block.
func MOTD(raw string) string {
	text := flattenMOTD(raw)
	if text == "" {
		text = "Unknown"
	}
	text = strings.NewReplacer("`", "", "@", "").Replace(text)
	return ipv4Re.ReplaceAllString(text, "x.x.x.x")
}

func flattenMOTD(raw string) string {
	trimmed := strings.TrimSpace(raw)
	if trimmed == "" {
		return ""
	}

	if strings.HasPrefix(trimmed, "{") {
		var c chatComponent
		if err := json.Unmarshal([]byte(trimmed), &c); err == nil {
			return flattenComponent(c)
		}
		return trimmed
	}
	if strings.HasPrefix(trimmed, `"`) {
		var s string
		if err := json.Unmarshal([]byte(trimmed), &s); err == nil {
			return s
		}
	}
	return trimmed
}

func flattenComponent(c chatComponent) string {
	var b strings.Builder
	for _, ext := range c.Extra {
		if code, ok := namedColors[strings.ToLower(ext.Color)]; ok {
			b.WriteString(code)
		}
		b.WriteString(flattenComponent(ext))
	}
	b.WriteString(c.Text)
	if c.Translate != "" {
		b.WriteString(c.Translate)
		for _, w := range c.With {
			b.WriteString(": ")
			b.WriteString(flattenComponent(w))
		}
	}
	return b.String()
}

// TimeAgo humanizes how long ago a time was; "now" under 30 seconds.
func TimeAgo(then, now time.Time) string {
	diff := now.Sub(then)
	if diff < 30*time.Second {
		return "now"
	}

	days := int(diff.Hours()) / 24
	if days >= 365 {
		return "long ago"
	}

	parts := []struct {
		n    int
		unit string
	}{
		{days / 30, "month"},
		{days % 30, "day"},
		{int(diff.Hours()) % 24, "hour"},
		{int(diff.Minutes()) % 60, "minute"},
		{int(diff.Seconds()) % 60, "second"},
	}

	out := make([]string, 0, 3)
	for _, p := range parts {
		if p.n == 0 {
			continue
		}
		unit := p.unit
		if p.n > 1 {
			unit += "s"
		}
		out = append(out, fmt.Sprintf("%d %s", p.n, unit))
		if len(out) == 3 {
			break
		}
	}
	return strings.Join(out, ", ")
}

// protocolNames maps notable protocol numbers to release names. Gaps fall
// back to the bare protocol number.
var protocolNames = map[int]string{
	47:  "1.8.9",
	107: "1.9",
	110: "1.9.4",
	210: "1.10.2",
	315: "1.11",
	335: "1.12",
	340: "1.12.2",
	393: "1.13",
	404: "1.13.2",
	477: "1.14",
	498: "1.14.4",
	573: "1.15",
	578: "1.15.2",
	735: "1.16",
	751: "1.16.2",
	754: "1.16.5",
	755: "1.17",
	756: "1.17.1",
	757: "1.18.1",
	758: "1.18.2",
	759: "1.19",
	760: "1.19.2",
	761: "1.19.3",
	762: "1.19.4",
	763: "1.20.1",
	764: "1.20.2",
	765: "1.20.4",
	766: "1.20.6",
	767: "1.21.1",
}

// ProtocolName returns the release name for a protocol number, or the
// number itself when unmapped.
func ProtocolName(protocol int) string {
	if name, ok := protocolNames[protocol]; ok {
		return name
	}
	return fmt.Sprintf("protocol %d", protocol)
}
