// Package continuation packs small pieces of workflow state into the
// visible footer of a rendered message so a later, unrelated interaction
// can recover them. The format is fixed-order space-delimited key/value
// segments; it stays human-readable but parses back unambiguously.
package continuation

import (
	"fmt"
	"strconv"
	"strings"

	"github.com/spyglass-mc/spyglass/internal/errors"
)

// Field is one key/value segment of a continuation line.
type Field struct {
	Key   string
	Value string
}

// Pack renders fields as "k1 v1 k2 v2". Keys and values must not contain
// spaces; Pack replaces any with underscores rather than emit an
// unparseable line.
func Pack(fields ...Field) string {
	parts := make([]string, 0, len(fields)*2)
	for _, f := range fields {
		parts = append(parts, sanitize(f.Key), sanitize(f.Value))
	}
	return strings.Join(parts, " ")
}

// Unpack parses a packed line against an expected key order. It fails with
// MALFORMED_CONTINUATION when the segment count or any key differs —
// callers must abort the step rather than default missing values.
func Unpack(line string, keys ...string) (map[string]string, error) {
	segments := strings.Fields(line)
	if len(segments) != len(keys)*2 {
		return nil, errors.NewMalformedContinuation(
			fmt.Sprintf("expected %d segments, got %d", len(keys)*2, len(segments)))
	}

	out := make(map[string]string, len(keys))
	for i, key := range keys {
		if segments[i*2] != key {
			return nil, errors.NewMalformedContinuation(
				fmt.Sprintf("expected key %q at segment %d, got %q", key, i*2, segments[i*2]))
		}
		out[key] = segments[i*2+1]
	}
	return out, nil
}

func sanitize(s string) string {
	return strings.ReplaceAll(strings.TrimSpace(s), " ", "_")
}

// Position footer: "Showing {index+1} of {total} servers".

// PositionLine renders the browse position for a message footer.
func PositionLine(index, total int) string {
	return fmt.Sprintf("Showing %d of %d servers", index+1, total)
}

// ParsePosition recovers the zero-based index from a position footer.
func ParsePosition(line string) (index int, total int, err error) {
	segments := strings.Fields(line)
	if len(segments) != 5 || segments[0] != "Showing" || segments[2] != "of" || segments[4] != "servers" {
		return 0, 0, errors.NewMalformedContinuation("not a position footer")
	}

	shown, err1 := strconv.Atoi(segments[1])
	total, err2 := strconv.Atoi(segments[3])
	if err1 != nil || err2 != nil || shown < 1 {
		return 0, 0, errors.NewMalformedContinuation("position segments are not numbers")
	}
	return shown - 1, total, nil
}

// Token footer: "org_id {messageID} vCode {code}". The token correlates
// the challenge message with the later code-submission step; it is single
// use and lives nowhere else.

// Token is the authorization continuation payload.
type Token struct {
	OriginID string // id of the originating browse message
	Verify   string // one-time verification code
}

// TokenLine renders a continuation token for a challenge footer.
func TokenLine(t Token) string {
	return Pack(
		Field{Key: "org_id", Value: t.OriginID},
		Field{Key: "vCode", Value: t.Verify},
	)
}

// ParseToken recovers a continuation token from a challenge footer.
func ParseToken(line string) (Token, error) {
	fields, err := Unpack(line, "org_id", "vCode")
	if err != nil {
		return Token{}, err
	}
	t := Token{OriginID: fields["org_id"], Verify: fields["vCode"]}
	if t.OriginID == "" || t.Verify == "" {
		return Token{}, errors.NewMalformedContinuation("empty token fields")
	}
	return t, nil
}
