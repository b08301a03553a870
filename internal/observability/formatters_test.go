package observability

import (
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"

	"github.com/daniel/formsynth/internal/report"
	"github.com/daniel/formsynth/internal/types"
	"github.com/daniel/formsynth/internal/validate"
)

func TestPrintValidationAttempts(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintValidationAttempts("W-2 - Sample [ 1 / 5 ]", []validate.Attempt{
		{
			Number: 1,
			Result: types.ValidationResult{
				IsValid:         false,
				ConfidenceScore: 0.4,
				Issues:          []types.Issue{{FieldName: "f1", IssueType: types.IssueWrongLabel}},
			},
			LabelsCorrected: 2,
			Regenerated:     true,
			Refilled:        true,
		},
		{
			Number: 2,
			Result: types.ValidationResult{IsValid: true, ConfidenceScore: 0.92},
		},
	})

	out := buf.String()
	assert.Contains(t, out, "VALIDATION ATTEMPTS")
	assert.Contains(t, out, "Attempt 1: ✗ invalid")
	assert.Contains(t, out, "2 labels corrected")
	assert.Contains(t, out, "Attempt 2: ✓ valid")
}

func TestPrintValidationAttempts_EmptyPrintsNothing(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintValidationAttempts("flag", nil)
	assert.Empty(t, buf.String())
}

func TestPrintValidationSummary(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	p.PrintValidationSummary("W-2", 3, &report.Statistics{
		SuccessRate:             66.67,
		TotalCorrectionsApplied: 2,
		AverageConfidenceScore:  0.61,
		MostCommonIssues:        []report.IssueTypeCount{{IssueType: "wrong_label", Count: 4}},
		MostProblematicFields:   []report.FieldIssueCount{{FieldName: "f1", Issues: 3}},
		Recommendations:         []string{"Validation performance looks good. Continue monitoring."},
	})

	out := buf.String()
	assert.Contains(t, out, "VALIDATION REPORT SUMMARY - W-2")
	assert.Contains(t, out, "Samples Processed: 3")
	assert.Contains(t, out, "Success Rate: 66.67%")
	assert.Contains(t, out, "wrong_label: 4 occurrences")
	assert.Contains(t, out, "1. Validation performance looks good")
}

func TestPrintBatchSummary(t *testing.T) {
	var buf bytes.Buffer
	NewPrinter(&buf).PrintBatchSummary(2, 1, 3)

	out := buf.String()
	assert.Contains(t, out, "BATCH PROCESSING COMPLETE")
	assert.Contains(t, out, "Successfully processed: 2")
	assert.Contains(t, out, "Failed: 1")
	assert.Contains(t, out, "Total: 3")
}

func TestPrintWarnings_TruncatesLongLists(t *testing.T) {
	var buf bytes.Buffer
	p := NewPrinter(&buf)

	warnings := []string{"one", "two", "three", "four", "five", "six", "seven"}
	p.PrintWarnings("GENERATION WARNINGS", warnings)

	out := buf.String()
	assert.Contains(t, out, "GENERATION WARNINGS")
	assert.Contains(t, out, "... and 2 more")
	assert.NotContains(t, out, "seven")
}
