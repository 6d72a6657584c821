package bridge

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strings"
)

// NormalizeScope accepts a space-delimited string or an array of strings and
// returns the ordered non-empty tokens. Array elements are themselves split
// on whitespace. Absent or null scope yields an empty slice.
func NormalizeScope(raw json.RawMessage) ([]string, error) {
	raw = bytes.TrimSpace(raw)
	if len(raw) == 0 || bytes.Equal(raw, []byte("null")) {
		return []string{}, nil
	}

	var joined string
	switch raw[0] {
	case '"':
		if err := json.Unmarshal(raw, &joined); err != nil {
			return nil, fmt.Errorf("decoding scope: %w", err)
		}
	case '[':
		var parts []string
		if err := json.Unmarshal(raw, &parts); err != nil {
			return nil, fmt.Errorf("decoding scope: %w", err)
		}
		joined = strings.Join(parts, " ")
	default:
		return nil, fmt.Errorf("scope must be a string or an array of strings")
	}

	tokens := strings.Fields(joined)
	if tokens == nil {
		tokens = []string{}
	}
	return tokens, nil
}
