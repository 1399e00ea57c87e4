package utils

import (
	"encoding/json"
	"errors"
	"fmt"
	"regexp"
	"strings"
)

// ErrNoJSONFound is returned when a model reply carries no JSON value
var ErrNoJSONFound = errors.New("no valid JSON object or array found in response")

var codeFence = regexp.MustCompile("(?s)```(?:json|JSON)?\\s*(.+?)\\s*```")

// ExtractJSON returns the first complete JSON object or array in a model
// reply. Markdown fences and surrounding prose are ignored.
func ExtractJSON(reply string) (string, error) {
	text := strings.TrimSpace(reply)
	if m := codeFence.FindStringSubmatch(text); m != nil {
		text = m[1]
	}

	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		end := matchingBracket(text, start)
		if end < 0 {
			continue
		}
		if candidate := text[start : end+1]; json.Valid([]byte(candidate)) {
			return candidate, nil
		}
	}
	return "", fmt.Errorf("%w: response length=%d", ErrNoJSONFound, len(reply))
}

// matchingBracket returns the index closing the bracket at open, skipping
// brackets inside string literals, or -1 when it is never closed
func matchingBracket(s string, open int) int {
	depth := 0
	inString, escaped := false, false
	for i := open; i < len(s); i++ {
		c := s[i]
		switch {
		case escaped:
			escaped = false
		case inString && c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{' || c == '[':
			depth++
		case c == '}' || c == ']':
			depth--
			if depth == 0 {
				return i
			}
		}
	}
	return -1
}
