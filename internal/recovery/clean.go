package recovery

import (
	"regexp"
	"strings"
)

var (
	openFence    = regexp.MustCompile("^```(?:json)?\\s*")
	closeFence   = regexp.MustCompile("\\s*```$")
	controlChars = regexp.MustCompile(`[\x00-\x08\x0B\x0C\x0E-\x1F]`)
	whitespace   = regexp.MustCompile(`\s+`)
	trailingComma = regexp.MustCompile(`,\s*([}\]])`)
	repeatedComma = regexp.MustCompile(`,\s*,+`)
)

// Clean normalizes raw model output before parsing: strips code-fence
// markers and control characters, collapses whitespace runs, escapes stray
// backslashes, removes trailing commas before closing brackets, and truncates
// anything after the closing brace of the top-level object.
func Clean(response string) string {
	response = openFence.ReplaceAllString(strings.TrimSpace(response), "")
	response = closeFence.ReplaceAllString(response, "")
	response = controlChars.ReplaceAllString(response, "")
	response = whitespace.ReplaceAllString(response, " ")
	response = escapeStrayBackslashes(response)
	response = trailingComma.ReplaceAllString(response, "$1")
	response = repeatedComma.ReplaceAllString(response, ",")

	if end := objectEnd(response); end > 0 {
		response = response[:end]
	}
	return response
}

// escapeStrayBackslashes doubles backslashes that do not start a valid JSON
// escape sequence. Models occasionally emit Windows paths or LaTeX fragments
// with single backslashes inside string values.
func escapeStrayBackslashes(s string) string {
	var sb strings.Builder
	sb.Grow(len(s))
	for i := 0; i < len(s); i++ {
		c := s[i]
		if c != '\\' {
			sb.WriteByte(c)
			continue
		}
		if i+1 < len(s) {
			switch s[i+1] {
			case '\\', '/', '"', 'b', 'f', 'n', 'r', 't', 'u':
				sb.WriteByte(c)
				sb.WriteByte(s[i+1])
				i++
				continue
			}
		}
		sb.WriteString(`\\`)
	}
	return sb.String()
}

// objectEnd returns the index just past the closing brace of the first
// top-level JSON object, ignoring braces inside quoted strings. Returns -1 if
// the object never closes.
func objectEnd(s string) int {
	depth := 0
	inString := false
	escaped := false
	started := false
	for i := 0; i < len(s); i++ {
		c := s[i]
		if escaped {
			escaped = false
			continue
		}
		switch {
		case c == '\\':
			escaped = true
		case c == '"':
			inString = !inString
		case inString:
		case c == '{':
			depth++
			started = true
		case c == '}':
			depth--
			if started && depth == 0 {
				return i + 1
			}
		}
	}
	return -1
}
