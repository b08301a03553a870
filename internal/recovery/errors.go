// Package recovery extracts JSON objects from unreliable model output.
package recovery

import "fmt"

// MalformedResponseError indicates the response text could not be coerced
// into a JSON object after every recovery pass. It carries the cleaned
// response length for diagnostics.
type MalformedResponseError struct {
	Length int
	Cause  error
}

func (e *MalformedResponseError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("malformed response: all parse attempts failed (response length %d): %v", e.Length, e.Cause)
	}
	return fmt.Sprintf("malformed response: all parse attempts failed (response length %d)", e.Length)
}

func (e *MalformedResponseError) Unwrap() error {
	return e.Cause
}
