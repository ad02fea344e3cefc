package continuation

import (
	"testing"

	"github.com/spyglass-mc/spyglass/internal/errors"
)

func TestPackUnpack_RoundTrip(t *testing.T) {
	line := Pack(
		Field{Key: "org_id", Value: "1134"},
		Field{Key: "vCode", Value: "a1b2c3"},
	)
	if line != "org_id 1134 vCode a1b2c3" {
		t.Errorf("Pack = %q", line)
	}

	fields, err := Unpack(line, "org_id", "vCode")
	if err != nil {
		t.Fatalf("Unpack failed: %v", err)
	}
	if fields["org_id"] != "1134" || fields["vCode"] != "a1b2c3" {
		t.Errorf("Unpack = %v", fields)
	}
}

func TestPack_SanitizesSpaces(t *testing.T) {
	line := Pack(Field{Key: "k", Value: "two words"})
	if line != "k two_words" {
		t.Errorf("Pack = %q, want sanitized value", line)
	}
}

func TestUnpack_Malformed(t *testing.T) {
	tests := []struct {
		name string
		line string
	}{
		{"empty", ""},
		{"missing value", "org_id 1134 vCode"},
		{"wrong key", "msg_id 1134 vCode abc"},
		{"wrong order", "vCode abc org_id 1134"},
		{"extra segments", "org_id 1134 vCode abc extra seg"},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			_, err := Unpack(tt.line, "org_id", "vCode")
			if !errors.Is(err, errors.ErrMalformedContinuation) {
				t.Errorf("Unpack(%q) err = %v, want MALFORMED_CONTINUATION", tt.line, err)
			}
		})
	}
}

func TestPositionLine_RoundTrip(t *testing.T) {
	line := PositionLine(4, 10)
	if line != "Showing 5 of 10 servers" {
		t.Errorf("PositionLine = %q", line)
	}

	index, total, err := ParsePosition(line)
	if err != nil {
		t.Fatalf("ParsePosition failed: %v", err)
	}
	if index != 4 || total != 10 {
		t.Errorf("ParsePosition = (%d, %d), want (4, 10)", index, total)
	}
}

func TestParsePosition_Malformed(t *testing.T) {
	for _, line := range []string{
		"",
		"Showing five of 10 servers",
		"Showing 0 of 10 servers",
		"5 of 10",
		"Showing 5 of 10 records",
	} {
		if _, _, err := ParsePosition(line); !errors.Is(err, errors.ErrMalformedContinuation) {
			t.Errorf("ParsePosition(%q) err = %v, want MALFORMED_CONTINUATION", line, err)
		}
	}
}

func TestTokenLine_RoundTrip(t *testing.T) {
	token := Token{OriginID: "998877", Verify: "f00dfeed"}

	got, err := ParseToken(TokenLine(token))
	if err != nil {
		t.Fatalf("ParseToken failed: %v", err)
	}
	if got != token {
		t.Errorf("ParseToken = %+v, want %+v", got, token)
	}
}

func TestParseToken_EmptyFields(t *testing.T) {
	// a sanitized-away value must not silently pass
	_, err := ParseToken("org_id 1134 vCode")
	if !errors.Is(err, errors.ErrMalformedContinuation) {
		t.Errorf("err = %v, want MALFORMED_CONTINUATION", err)
	}
}
