package store

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// marshalJSON serializes v as compact JSON TEXT for storage.
// Map keys are sorted by encoding/json; HTML escaping is disabled so
// payloads read back byte-identical.
func marshalJSON(v any) (string, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return "", err
	}
	// Encoder adds a trailing newline, remove it
	return strings.TrimSpace(buf.String()), nil
}

// marshalPayload converts an event payload to JSON TEXT. A nil payload is
// stored as "{}".
func marshalPayload(p map[string]string) (string, error) {
	if len(p) == 0 {
		return "{}", nil
	}
	s, err := marshalJSON(p)
	if err != nil {
		return "", fmt.Errorf("marshal payload: %w", err)
	}
	return s, nil
}

// unmarshalPayload parses JSON TEXT to a payload. Empty objects decode to
// nil so round trips through the store compare equal.
func unmarshalPayload(data string) (map[string]string, error) {
	if data == "" || data == "{}" {
		return nil, nil
	}
	var p map[string]string
	if err := json.Unmarshal([]byte(data), &p); err != nil {
		return nil, fmt.Errorf("unmarshal payload: %w", err)
	}
	return p, nil
}

func marshalParts(ids []string) (string, error) {
	if len(ids) == 0 {
		return "[]", nil
	}
	s, err := marshalJSON(ids)
	if err != nil {
		return "", fmt.Errorf("marshal parts: %w", err)
	}
	return s, nil
}

func unmarshalParts(data string) ([]string, error) {
	if data == "" || data == "[]" {
		return nil, nil
	}
	var ids []string
	if err := json.Unmarshal([]byte(data), &ids); err != nil {
		return nil, fmt.Errorf("unmarshal parts: %w", err)
	}
	return ids, nil
}
