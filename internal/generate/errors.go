package generate

import "fmt"

// GenerationError indicates a synthetic data or label generation failure.
type GenerationError struct {
	Stage string
	Cause error
}

func (e *GenerationError) Error() string {
	if e.Cause != nil {
		return fmt.Sprintf("generation failed during %s: %v", e.Stage, e.Cause)
	}
	return fmt.Sprintf("generation failed during %s", e.Stage)
}

func (e *GenerationError) Unwrap() error {
	return e.Cause
}
