// Package observability provides formatted output utilities for verbose CLI mode.
package observability

import (
	"fmt"
	"io"
	"strings"

	"github.com/daniel/formsynth/internal/report"
	"github.com/daniel/formsynth/internal/validate"
)

const (
	// boxWidth is the default width for formatted output boxes
	boxWidth = 60
	// maxItemsToShow is the default number of items to display in lists
	maxItemsToShow = 5
)

// Printer handles formatted output for verbose mode
type Printer struct {
	out io.Writer
}

// NewPrinter creates a new Printer that writes to the given writer
func NewPrinter(out io.Writer) *Printer {
	return &Printer{out: out}
}

// printBox prints a formatted box with a title and content
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) printBox(title string, content string) {
	border := strings.Repeat("─", boxWidth-2)
	fmt.Fprintf(p.out, "┌%s┐\n", border)
	fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, title)
	fmt.Fprintf(p.out, "├%s┤\n", border)

	lines := strings.Split(content, "\n")
	for _, line := range lines {
		// Truncate long lines
		if len(line) > boxWidth-4 {
			line = line[:boxWidth-7] + "..."
		}
		fmt.Fprintf(p.out, "│ %-*s │\n", boxWidth-4, line)
	}

	fmt.Fprintf(p.out, "└%s┘\n", border)
}

// PrintDocumentHeader announces the start of processing for one template.
func (p *Printer) PrintDocumentHeader(documentType, pdfPath, outputDir string) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Document: %s\n", documentType))
	sb.WriteString(fmt.Sprintf("PDF Path: %s\n", pdfPath))
	sb.WriteString(fmt.Sprintf("Output:   %s", outputDir))
	p.printBox("PROCESSING TEMPLATE", sb.String())
}

// PrintValidationAttempts outputs a per-attempt trace of one sample's
// validation run.
func (p *Printer) PrintValidationAttempts(sampleFlag string, attempts []validate.Attempt) {
	if len(attempts) == 0 {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("%s\n\n", sampleFlag))

	for i, att := range attempts {
		status := "✗ invalid"
		if att.Result.IsValid {
			status = "✓ valid"
		}
		sb.WriteString(fmt.Sprintf("Attempt %d: %s (confidence %.2f)\n",
			att.Number, status, att.Result.ConfidenceScore))
		if len(att.Result.Issues) > 0 {
			sb.WriteString(fmt.Sprintf("  Issues: %d\n", len(att.Result.Issues)))
		}
		actions := []string{}
		if att.LabelsCorrected > 0 {
			actions = append(actions, fmt.Sprintf("%d labels corrected", att.LabelsCorrected))
		}
		if att.Regenerated {
			actions = append(actions, "data regenerated")
		}
		if att.Refilled {
			actions = append(actions, "PDF refilled")
		}
		if len(actions) > 0 {
			sb.WriteString(fmt.Sprintf("  Actions: %s\n", strings.Join(actions, ", ")))
		}
		if i < len(attempts)-1 {
			sb.WriteString("\n")
		}
	}

	p.printBox("VALIDATION ATTEMPTS", strings.TrimSuffix(sb.String(), "\n"))
}

// PrintValidationSummary outputs the batch validation statistics for one
// document type.
func (p *Printer) PrintValidationSummary(documentType string, samplesProcessed int, stats *report.Statistics) {
	if stats == nil {
		return
	}

	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Samples Processed: %d\n", samplesProcessed))
	sb.WriteString(fmt.Sprintf("Success Rate: %.2f%%\n", stats.SuccessRate))
	sb.WriteString(fmt.Sprintf("Average Confidence: %.3f\n", stats.AverageConfidenceScore))
	sb.WriteString(fmt.Sprintf("Corrections Applied: %d\n", stats.TotalCorrectionsApplied))

	if len(stats.MostCommonIssues) > 0 {
		sb.WriteString("\nMost Common Issues:\n")
		count := min(len(stats.MostCommonIssues), maxItemsToShow)
		for i := 0; i < count; i++ {
			issue := stats.MostCommonIssues[i]
			sb.WriteString(fmt.Sprintf("  • %s: %d occurrences\n", issue.IssueType, issue.Count))
		}
	}

	if len(stats.MostProblematicFields) > 0 {
		sb.WriteString("\nMost Problematic Fields:\n")
		count := min(len(stats.MostProblematicFields), maxItemsToShow)
		for i := 0; i < count; i++ {
			field := stats.MostProblematicFields[i]
			name := field.FieldName
			if len(name) > 40 {
				name = name[:37] + "..."
			}
			sb.WriteString(fmt.Sprintf("  • %s: %d issues\n", name, field.Issues))
		}
	}

	if len(stats.Recommendations) > 0 {
		sb.WriteString("\nRecommendations:\n")
		for i, rec := range stats.Recommendations {
			sb.WriteString(fmt.Sprintf("  %d. %s\n", i+1, rec))
		}
	}

	p.printBox(fmt.Sprintf("VALIDATION REPORT SUMMARY - %s", documentType),
		strings.TrimSuffix(sb.String(), "\n"))
}

// PrintBatchSummary outputs the final tally of a batch run.
//
//nolint:errcheck // writing to stdout; errors are not recoverable
func (p *Printer) PrintBatchSummary(succeeded, failed, total int) {
	var sb strings.Builder
	sb.WriteString(fmt.Sprintf("Successfully processed: %d\n", succeeded))
	sb.WriteString(fmt.Sprintf("Failed: %d\n", failed))
	sb.WriteString(fmt.Sprintf("Total: %d", total))
	p.printBox("BATCH PROCESSING COMPLETE", sb.String())
}

// PrintWarnings outputs non-fatal warnings collected during a step.
func (p *Printer) PrintWarnings(title string, warnings []string) {
	if len(warnings) == 0 {
		return
	}

	var sb strings.Builder
	count := min(len(warnings), maxItemsToShow)
	for i := 0; i < count; i++ {
		w := warnings[i]
		if len(w) > 50 {
			w = w[:47] + "..."
		}
		sb.WriteString(fmt.Sprintf("⚠ %s\n", w))
	}
	if len(warnings) > maxItemsToShow {
		sb.WriteString(fmt.Sprintf("... and %d more", len(warnings)-maxItemsToShow))
	}

	p.printBox(title, strings.TrimSuffix(sb.String(), "\n"))
}
