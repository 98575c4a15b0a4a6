package pipeline

import (
	"bytes"
	"encoding/json"
)

// UnwrapCollection normalizes a list response. A bare array is returned
// as-is, a paginated envelope yields its "results", and anything else is
// returned unchanged.
func UnwrapCollection(raw json.RawMessage) json.RawMessage {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || trimmed[0] != '{' {
		return raw
	}
	var env struct {
		Results json.RawMessage `json:"results"`
	}
	if err := json.Unmarshal(trimmed, &env); err != nil || len(env.Results) == 0 {
		return raw
	}
	return env.Results
}

func isArray(raw json.RawMessage) bool {
	trimmed := bytes.TrimSpace(raw)
	return len(trimmed) > 0 && trimmed[0] == '['
}
