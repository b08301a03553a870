package recovery

import (
	"bytes"
	"encoding/json"
	"strings"
)

// Parse coerces raw model output into a flat field→value map. It cleans the
// text, then tries progressively more tolerant strategies: a strict parse, a
// decode that ignores trailing data, a decode from the first brace onward, a
// dangling-comma truncation fix, and finally a quote-aware scan back to the
// last complete top-level field. Accepting partial data loss is preferred
// over failing the whole response. When every strategy fails it returns a
// *MalformedResponseError.
func Parse(raw string) (map[string]string, error) {
	cleaned := Clean(raw)

	values, err := parseObject(cleaned)
	if err != nil {
		return nil, &MalformedResponseError{Length: len(cleaned), Cause: err}
	}
	return Flatten(values), nil
}

func parseObject(cleaned string) (map[string]Value, error) {
	// Strict parse.
	var values map[string]Value
	strictErr := json.Unmarshal([]byte(cleaned), &values)
	if strictErr == nil {
		return values, nil
	}

	// Tolerate trailing content after the object.
	dec := json.NewDecoder(bytes.NewReader([]byte(cleaned)))
	if err := dec.Decode(&values); err == nil && values != nil {
		return values, nil
	}

	// Decode from the first brace onward, fixing a dangling comma if the
	// tail was cut off mid-field.
	start := strings.Index(cleaned, "{")
	if start < 0 {
		return nil, strictErr
	}
	tail := cleaned[start:]

	lastComma := strings.LastIndex(tail, ",")
	lastBrace := strings.LastIndex(tail, "}")
	if lastComma > lastBrace {
		fixed := tail[:lastComma] + "}"
		if err := json.Unmarshal([]byte(fixed), &values); err == nil {
			return values, nil
		}
	} else if err := json.Unmarshal([]byte(tail), &values); err == nil {
		return values, nil
	}

	// Last resort: scan for the final complete top-level field, honoring
	// quote and escape state, and close the object there.
	if cut := lastCompleteField(tail); cut > 0 {
		salvaged := tail[:cut] + "}"
		if err := json.Unmarshal([]byte(salvaged), &values); err == nil {
			return values, nil
		}
	}

	return nil, strictErr
}

// lastCompleteField returns the index of the comma following the last
// complete top-level field of a (possibly truncated) JSON object, or -1 when
// no complete field boundary exists.
func lastCompleteField(s string) int {
	last := -1
	depth := 0
	inString := false
	escaped := false
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
		case c == '}':
			depth--
		case c == ',' && depth == 1:
			last = i
		}
	}
	return last
}
