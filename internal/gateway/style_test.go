package gateway

import "testing"

func TestStyle_ColorFallback(t *testing.T) {
	s := DefaultStyle()
	if s.Color(OutcomeSuccess) != 0x00FF00 {
		t.Errorf("success color = %#x", s.Color(OutcomeSuccess))
	}
	if s.Color("nonsense") != s[OutcomeInfo] {
		t.Error("unknown outcome should fall back to the info color")
	}
}

func TestStyle_Merge(t *testing.T) {
	s := DefaultStyle().Merge(map[string]int{
		OutcomeError: 0x990000,
		"custom":     0x123456,
		OutcomeInfo:  0, // zero entries are ignored
	})

	if s.Color(OutcomeError) != 0x990000 {
		t.Errorf("error color = %#x, want overlay value", s.Color(OutcomeError))
	}
	if s.Color("custom") != 0x123456 {
		t.Errorf("custom color = %#x", s.Color("custom"))
	}
	if s.Color(OutcomeInfo) != DefaultStyle()[OutcomeInfo] {
		t.Error("zero overlay entry should not clobber the default")
	}
	if s.Color(OutcomeOffline) != DefaultStyle()[OutcomeOffline] {
		t.Error("untouched entries should survive the merge")
	}
}
