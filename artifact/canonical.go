package artifact

import (
	"bytes"
	"encoding/json"
	"fmt"
)

// Canonical JSON: sorted map keys (encoding/json guarantees this), stable
// struct field order, no HTML escaping, UTF-8, LF line endings, trailing
// newline. Two producers serializing the same value emit identical bytes.

// marshalCanonical renders v with two-space indentation and a trailing LF.
func marshalCanonical(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	return buf.Bytes(), nil
}

// marshalLine renders v compactly with a trailing LF, for JSONL files.
func marshalLine(v any) ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	if err := enc.Encode(v); err != nil {
		return nil, fmt.Errorf("canonical marshal: %w", err)
	}
	return buf.Bytes(), nil
}
