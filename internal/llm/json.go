package llm

import (
	"encoding/json"
	"errors"
	"strings"
)

// ErrNoJSON means a reply held no parseable JSON value
var ErrNoJSON = errors.New("no JSON value found in model output")

// ExtractJSON returns the first complete JSON object or array in text.
// Models often wrap JSON in prose or markdown fences.
func ExtractJSON(text string) ([]byte, error) {
	trimmed := strings.TrimSpace(text)
	if json.Valid([]byte(trimmed)) && trimmed != "" {
		return []byte(trimmed), nil
	}

	for start := 0; start < len(text); start++ {
		if text[start] != '{' && text[start] != '[' {
			continue
		}
		if end := matchingClose(text, start); end > start {
			candidate := []byte(text[start : end+1])
			if json.Valid(candidate) {
				return candidate, nil
			}
		}
	}
	return nil, ErrNoJSON
}

// matchingClose returns the index of the bracket closing text[start], or -1
func matchingClose(text string, start int) int {
	var stack []byte
	inString, escaped := false, false
	for i := start; i < len(text); i++ {
		c := text[i]
		if inString {
			switch {
			case escaped:
				escaped = false
			case c == '\\':
				escaped = true
			case c == '"':
				inString = false
			}
			continue
		}
		switch c {
		case '"':
			inString = true
		case '{':
			stack = append(stack, '}')
		case '[':
			stack = append(stack, ']')
		case '}', ']':
			if len(stack) == 0 || stack[len(stack)-1] != c {
				return -1
			}
			stack = stack[:len(stack)-1]
			if len(stack) == 0 {
				return i
			}
		}
	}
	return -1
}
