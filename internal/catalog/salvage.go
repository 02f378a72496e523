package catalog

import (
	"bytes"
	"encoding/json"
	"regexp"
)

var memberStartRE = regexp.MustCompile(`^\s*"[^"]+"\s*:\s*\{\s*$`)

// Salvage truncates a corrupted JSON document to its last structurally
// complete object member and re-closes the enclosing braces. The crawler
// writes files incrementally, so a crash leaves at most the final member
// truncated; everything before it is recoverable. Returns false when no valid
// prefix exists.
func Salvage(data []byte) ([]byte, bool) {
	lines := bytes.SplitAfter(data, []byte("\n"))

	for i := len(lines) - 1; i >= 0; i-- {
		if !memberStartRE.Match(bytes.TrimRight(lines[i], "\r\n")) {
			continue
		}
		if candidate, ok := rebuild(lines[:i]); ok {
			return candidate, true
		}
	}
	return nil, false
}

// rebuild drops a trailing comma left by the removed member and appends
// closing braces until the prefix balances, then validates the result.
func rebuild(lines [][]byte) ([]byte, bool) {
	if len(lines) == 0 {
		return nil, false
	}
	prefix := make([][]byte, len(lines))
	copy(prefix, lines)

	last := bytes.TrimRight(prefix[len(prefix)-1], " \t\r\n")
	last = bytes.TrimSuffix(last, []byte(","))
	prefix[len(prefix)-1] = append(last, '\n')

	joined := bytes.Join(prefix, nil)
	for i, n := 0, openBraces(joined); i < n; i++ {
		joined = append(joined, '}', '\n')
	}
	if !json.Valid(joined) {
		return nil, false
	}
	return joined, true
}

// openBraces counts unclosed braces outside of string literals.
func openBraces(data []byte) int {
	depth := 0
	inString := false
	escaped := false
	for _, b := range data {
		switch {
		case escaped:
			escaped = false
		case inString:
			if b == '\\' {
				escaped = true
			} else if b == '"' {
				inString = false
			}
		case b == '"':
			inString = true
		case b == '{':
			depth++
		case b == '}':
			depth--
		}
	}
	if depth < 0 {
		return 0
	}
	return depth
}
