package llm

import (
	"bytes"
	"encoding/json"
	"errors"

	"budgie/internal/core"
)

var errNoObject = errors.New("no JSON object found in reply")

// RecoverJSON returns the JSON document in reply. A reply that is valid JSON
// as a whole is returned unchanged; otherwise the first balanced, valid
// {...} object embedded in surrounding prose is extracted.
func RecoverJSON(reply string) ([]byte, error) {
	raw := bytes.TrimSpace([]byte(reply))
	if len(raw) > 0 && json.Valid(raw) {
		return raw, nil
	}

	for start := bytes.IndexByte(raw, '{'); start >= 0; {
		if end := matchObject(raw, start); end > 0 {
			candidate := raw[start:end]
			if json.Valid(candidate) {
				return candidate, nil
			}
		}
		next := bytes.IndexByte(raw[start+1:], '{')
		if next < 0 {
			break
		}
		start += next + 1
	}

	return nil, &core.ResponseFormatError{Reason: "llm reply", Reply: reply, Err: errNoObject}
}

// matchObject returns the index just past the brace closing the object that
// opens at start, or -1. Braces inside string literals are ignored.
func matchObject(b []byte, start int) int {
	depth := 0
	inString := false
	escaped := false
	for i := start; i < len(b); i++ {
		c := b[i]
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
			depth++
		case '}':
			depth--
			if depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
