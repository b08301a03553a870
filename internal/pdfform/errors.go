package pdfform

import "fmt"

// RasterizeError indicates a page rendering failure. LogOutput carries the
// combined pdftoppm output when available.
type RasterizeError struct {
	Message   string
	LogOutput string
	Cause     error
}

func (e *RasterizeError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("%s: %v", e.Message, e.Cause)
	}
	return e.Message
}

func (e *RasterizeError) Unwrap() error {
	return e.Cause
}
