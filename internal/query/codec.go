package query

import (
	"bytes"
	"encoding/json"

	"github.com/spyglass-mc/spyglass/internal/errors"
)

// Encode serializes a descriptor to the blob attached to a rendered
// message. Round-trip law: Decode(Encode(d)) is structurally equal to d.
func Encode(d *Descriptor) ([]byte, error) {
	if d == nil {
		return nil, errors.NewInternal(nil)
	}
	if err := d.Validate(); err != nil {
		return nil, err
	}
	return json.Marshal(d)
}

// Decode parses a descriptor blob retrieved from a message attachment.
// Corrupted or foreign blobs yield MALFORMED_STATE; callers fall back to a
// default browse rather than crashing.
func Decode(blob []byte) (*Descriptor, error) {
	if len(bytes.TrimSpace(blob)) == 0 {
		return nil, errors.NewMalformedState("empty blob")
	}

	dec := json.NewDecoder(bytes.NewReader(blob))
	dec.DisallowUnknownFields()

	d := &Descriptor{}
	if err := dec.Decode(d); err != nil {
		return nil, errors.NewMalformedState(err.Error())
	}
	// trailing garbage means the blob is not ours
	if dec.More() {
		return nil, errors.NewMalformedState("trailing data after descriptor")
	}

	if err := d.Validate(); err != nil {
		return nil, err
	}
	return d, nil
}
