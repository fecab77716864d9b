package assist

import (
	"encoding/json"
	"strings"
)

// ExtractJSONArray pulls the outermost JSON array out of a model answer that
// may wrap it in prose or code fences. Returns false when no valid array is
// found.
func ExtractJSONArray(s string) (json.RawMessage, bool) {
	return extractBetween(s, '[', ']')
}

// ExtractJSONObject pulls the outermost JSON object out of a model answer.
func ExtractJSONObject(s string) (json.RawMessage, bool) {
	return extractBetween(s, '{', '}')
}

func extractBetween(s string, open, closing byte) (json.RawMessage, bool) {
	start := strings.IndexByte(s, open)
	end := strings.LastIndexByte(s, closing)
	if start == -1 || end <= start {
		return nil, false
	}
	candidate := []byte(s[start : end+1])
	if !json.Valid(candidate) {
		return nil, false
	}
	return json.RawMessage(candidate), true
}
