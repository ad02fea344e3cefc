package mcp

import (
	"bytes"
	"encoding/json"
	"fmt"

	"github.com/mark3labs/mcp-go/mcp"
)

// decodeArgs maps a tool call's untyped argument bag onto the tool's
// input struct. Unknown fields are rejected so a misspelled argument
// fails loudly instead of silently falling back to a default.
func decodeArgs[T any](req mcp.CallToolRequest) (T, error) {
	var in T
	raw, err := json.Marshal(req.GetArguments())
	if err != nil {
		return in, fmt.Errorf("tool arguments: %w", err)
	}
	dec := json.NewDecoder(bytes.NewReader(raw))
	dec.DisallowUnknownFields()
	if err := dec.Decode(&in); err != nil {
		return in, fmt.Errorf("tool arguments: %w", err)
	}
	return in, nil
}
