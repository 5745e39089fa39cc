package journal

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalText converts v to JSON TEXT for storage.
// HTML escaping is disabled so stored text matches what scenarios and
// golden traces contain.
func marshalText(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalState converts a state value to JSON TEXT.
func marshalState(state any) (string, error) {
	text, err := marshalText(state)
	if err != nil {
		return "", fmt.Errorf("marshal state: %w", err)
	}
	return text, nil
}

// unmarshalState parses JSON TEXT into a state value of type S.
func unmarshalState[S any](data string) (S, error) {
	var s S
	if err := json.Unmarshal([]byte(data), &s); err != nil {
		return s, fmt.Errorf("unmarshal state: %w", err)
	}
	return s, nil
}
