package gateway

// Color is an embed accent color.
type Color int

// Outcome names map to style tokens so the palette is configuration, not
// literals scattered through handlers.
const (
	OutcomeError   = "error"
	OutcomeSuccess = "success"
	OutcomeWarning = "warning"
	OutcomeInfo    = "info"
	OutcomeOffline = "offline"
)

// Style maps outcome names to colors.
type Style map[string]Color

// DefaultStyle returns the stock palette.
func DefaultStyle() Style {
	return Style{
		OutcomeError:   0xFF0000,
		OutcomeSuccess: 0x00FF00,
		OutcomeWarning: 0xFFFF00,
		OutcomeInfo:    0x0000FF,
		OutcomeOffline: 0xFFC0CB,
	}
}

// Color resolves an outcome, falling back to the info color for unknown
// tokens.
func (s Style) Color(outcome string) Color {
	if c, ok := s[outcome]; ok {
		return c
	}
	return s[OutcomeInfo]
}

// Merge overlays non-zero entries from another style.
func (s Style) Merge(overlay map[string]int) Style {
	out := Style{}
	for k, v := range s {
		out[k] = v
	}
	for k, v := range overlay {
		if v != 0 {
			out[k] = Color(v)
		}
	}
	return out
}
