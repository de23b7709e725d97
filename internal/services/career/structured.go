package career

import (
	"encoding/json"
	"fmt"
	"strings"
)

// parseItems decodes a list of T from raw model output. It accepts a bare JSON
// array or an object with an "items" array, tolerating surrounding code fences
// or prose. Anything else is ErrMalformedOutput.
func parseItems[T any](raw string) ([]T, error) {
	text := stripFences(strings.TrimSpace(raw))
	if text == "" {
		return nil, fmt.Errorf("%w: empty response", ErrMalformedOutput)
	}

	if items, ok := decodeItems[T](text); ok {
		return items, nil
	}

	// Fall back to the outermost array or object embedded in prose
	for _, delims := range [][2]string{{"{", "}"}, {"[", "]"}} {
		start := strings.Index(text, delims[0])
		end := strings.LastIndex(text, delims[1])
		if start == -1 || end <= start {
			continue
		}
		if items, ok := decodeItems[T](text[start : end+1]); ok {
			return items, nil
		}
	}
	return nil, fmt.Errorf("%w: response is not a JSON item list", ErrMalformedOutput)
}

func decodeItems[T any](text string) ([]T, bool) {
	var list []T
	if err := json.Unmarshal([]byte(text), &list); err == nil && list != nil {
		return list, true
	}
	var wrapped struct {
		Items *[]T `json:"items"`
	}
	if err := json.Unmarshal([]byte(text), &wrapped); err == nil && wrapped.Items != nil {
		return *wrapped.Items, true
	}
	return nil, false
}

func stripFences(text string) string {
	if !strings.HasPrefix(text, "```") {
		return text
	}
	text = strings.TrimPrefix(text, "```")
	if nl := strings.IndexByte(text, '\n'); nl != -1 {
		text = text[nl+1:]
	}
	text = strings.TrimSuffix(strings.TrimSpace(text), "```")
	return strings.TrimSpace(text)
}
