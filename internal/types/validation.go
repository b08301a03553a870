package types

// Issue types reported by the audit model.
const (
	IssueWrongLocation   = "wrong_location"
	IssueWrongLabel      = "wrong_label"
	IssueWrongValue      = "wrong_value"
	IssueMissingValue    = "missing_value"
	IssueValidationError = "validation_error"
)

// Issue is a single discrepancy flagged during an audit.
type Issue struct {
	FieldName             string `json:"field_name" validate:"required"`
	IssueType             string `json:"issue_type" validate:"required,oneof=wrong_location wrong_label wrong_value missing_value validation_error"`
	Description           string `json:"description"`
	SuggestedCorrectLabel string `json:"suggested_correct_label,omitempty"`
	PageNumber            int    `json:"page_number,omitempty"`
}

// ValidationResult is the outcome of one audit attempt. Results are produced
// fresh each attempt and never mutated, only superseded.
type ValidationResult struct {
	IsValid         bool    `json:"is_valid"`
	ConfidenceScore float64 `json:"confidence_score" validate:"gte=0,lte=1"`
	Issues          []Issue `json:"issues" validate:"dive"`
	Summary         string  `json:"summary"`
}

// Correction records a fix applied to a sample during validation, for the
// batch report.
type Correction struct {
	Type        string `json:"type"`
	Description string `json:"description"`
}
