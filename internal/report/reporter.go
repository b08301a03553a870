// Package report aggregates validation outcomes across a batch run into a
// persisted report with summary statistics and recommendations.
package report

import (
	"encoding/json"
	"fmt"
	"math"
	"os"
	"path/filepath"
	"sort"
	"time"

	"github.com/daniel/formsynth/internal/types"
)

const (
	topIssueTypes        = 5
	topProblematicFields = 10
)

// SampleReport captures one sample's final validation outcome.
type SampleReport struct {
	SampleID             string                 `json:"sample_id"`
	ValidationResult     types.ValidationResult `json:"validation_result"`
	CorrectionsMade      []types.Correction     `json:"corrections_made"`
	ValidationSuccessful bool                   `json:"validation_successful"`
	ConfidenceScore      float64                `json:"confidence_score"`
	IssuesFound          int                    `json:"issues_found"`
}

// FieldAnalysis aggregates issues per field across samples.
type FieldAnalysis struct {
	TotalIssues     int            `json:"total_issues"`
	IssueTypes      map[string]int `json:"issue_types"`
	SamplesAffected []string       `json:"samples_affected"`
}

// IssueAggregate aggregates one issue type across samples. Description holds
// the first description seen for the type.
type IssueAggregate struct {
	Count          int      `json:"count"`
	FieldsAffected []string `json:"fields_affected"`
	Description    string   `json:"description"`
}

// ValidationSummary carries the batch counters.
type ValidationSummary struct {
	TotalValidations      int `json:"total_validations"`
	SuccessfulValidations int `json:"successful_validations"`
	FailedValidations     int `json:"failed_validations"`
	CorrectionsApplied    int `json:"corrections_applied"`
}

// IssueTypeCount pairs an issue type with its occurrence count.
type IssueTypeCount struct {
	IssueType string `json:"issue_type"`
	Count     int    `json:"count"`
}

// FieldIssueCount pairs a field with its total issue count.
type FieldIssueCount struct {
	FieldName string `json:"field_name"`
	Issues    int    `json:"issues"`
}

// Statistics summarizes a finished batch.
type Statistics struct {
	SuccessRate             float64           `json:"success_rate"`
	TotalCorrectionsApplied int               `json:"total_corrections_applied"`
	AverageConfidenceScore  float64           `json:"average_confidence_score"`
	MostCommonIssues        []IssueTypeCount  `json:"most_common_issues"`
	MostProblematicFields   []FieldIssueCount `json:"most_problematic_fields"`
	Recommendations         []string          `json:"recommendations"`
}

// Data is the full report document persisted to disk.
type Data struct {
	DocumentType        string                    `json:"document_type"`
	ValidationTimestamp string                    `json:"validation_timestamp"`
	SamplesProcessed    int                       `json:"samples_processed"`
	ValidationSummary   ValidationSummary         `json:"validation_summary"`
	FieldAnalysis       map[string]*FieldAnalysis `json:"field_analysis"`
	CommonIssues        map[string]*IssueAggregate `json:"common_issues"`
	SampleReports       []SampleReport            `json:"sample_reports"`
	SummaryStatistics   *Statistics               `json:"summary_statistics,omitempty"`
	ReportGeneratedAt   string                    `json:"report_generated_at,omitempty"`
}

// Reporter collects sample outcomes for one batch. It is append-only:
// samples are never removed or rewritten.
type Reporter struct {
	outputDir string
	data      Data
}

// NewReporter creates a reporter for one document type and output directory.
func NewReporter(outputDir, documentType string) *Reporter {
	return &Reporter{
		outputDir: outputDir,
		data: Data{
			DocumentType:        documentType,
			ValidationTimestamp: time.Now().Format(time.RFC3339),
			FieldAnalysis:       make(map[string]*FieldAnalysis),
			CommonIssues:        make(map[string]*IssueAggregate),
			SampleReports:       []SampleReport{},
		},
	}
}

// AddSampleReport records one sample's final validation result along with
// any corrections the loop applied.
func (r *Reporter) AddSampleReport(sampleID string, result types.ValidationResult, corrections []types.Correction) {
	if corrections == nil {
		corrections = []types.Correction{}
	}

	r.data.SampleReports = append(r.data.SampleReports, SampleReport{
		SampleID:             sampleID,
		ValidationResult:     result,
		CorrectionsMade:      corrections,
		ValidationSuccessful: result.IsValid,
		ConfidenceScore:      result.ConfidenceScore,
		IssuesFound:          len(result.Issues),
	})
	r.data.SamplesProcessed++

	r.data.ValidationSummary.TotalValidations++
	if result.IsValid {
		r.data.ValidationSummary.SuccessfulValidations++
	} else {
		r.data.ValidationSummary.FailedValidations++
	}
	r.data.ValidationSummary.CorrectionsApplied += len(corrections)

	for _, issue := range result.Issues {
		fieldName := issue.FieldName
		if fieldName == "" {
			fieldName = "unknown"
		}
		issueType := issue.IssueType
		if issueType == "" {
			issueType = "unknown"
		}

		fa, ok := r.data.FieldAnalysis[fieldName]
		if !ok {
			fa = &FieldAnalysis{IssueTypes: make(map[string]int)}
			r.data.FieldAnalysis[fieldName] = fa
		}
		fa.TotalIssues++
		fa.SamplesAffected = append(fa.SamplesAffected, sampleID)
		fa.IssueTypes[issueType]++

		agg, ok := r.data.CommonIssues[issueType]
		if !ok {
			agg = &IssueAggregate{Description: issue.Description}
			r.data.CommonIssues[issueType] = agg
		}
		agg.Count++
		agg.FieldsAffected = appendUnique(agg.FieldsAffected, fieldName)
	}
}

// SamplesProcessed returns the number of recorded samples.
func (r *Reporter) SamplesProcessed() int {
	return r.data.SamplesProcessed
}

// Statistics computes the batch summary. It fails when no samples were
// recorded.
func (r *Reporter) Statistics() (*Statistics, error) {
	if r.data.SamplesProcessed == 0 {
		return nil, fmt.Errorf("no samples processed")
	}

	successRate := float64(r.data.ValidationSummary.SuccessfulValidations) /
		float64(r.data.SamplesProcessed) * 100

	return &Statistics{
		SuccessRate:             round(successRate, 2),
		TotalCorrectionsApplied: r.data.ValidationSummary.CorrectionsApplied,
		AverageConfidenceScore:  r.averageConfidence(),
		MostCommonIssues:        r.topIssues(topIssueTypes),
		MostProblematicFields:   r.topFields(topProblematicFields),
		Recommendations:         r.recommendations(),
	}, nil
}

func (r *Reporter) averageConfidence() float64 {
	if len(r.data.SampleReports) == 0 {
		return 0
	}
	total := 0.0
	for _, s := range r.data.SampleReports {
		total += s.ConfidenceScore
	}
	return round(total/float64(len(r.data.SampleReports)), 3)
}

func (r *Reporter) topIssues(limit int) []IssueTypeCount {
	counts := make([]IssueTypeCount, 0, len(r.data.CommonIssues))
	for issueType, agg := range r.data.CommonIssues {
		counts = append(counts, IssueTypeCount{IssueType: issueType, Count: agg.Count})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Count != counts[j].Count {
			return counts[i].Count > counts[j].Count
		}
		return counts[i].IssueType < counts[j].IssueType
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func (r *Reporter) topFields(limit int) []FieldIssueCount {
	counts := make([]FieldIssueCount, 0, len(r.data.FieldAnalysis))
	for field, fa := range r.data.FieldAnalysis {
		counts = append(counts, FieldIssueCount{FieldName: field, Issues: fa.TotalIssues})
	}
	sort.Slice(counts, func(i, j int) bool {
		if counts[i].Issues != counts[j].Issues {
			return counts[i].Issues > counts[j].Issues
		}
		return counts[i].FieldName < counts[j].FieldName
	})
	if len(counts) > limit {
		counts = counts[:limit]
	}
	return counts
}

func (r *Reporter) recommendations() []string {
	var recs []string

	successRate := float64(r.data.ValidationSummary.SuccessfulValidations) /
		math.Max(float64(r.data.SamplesProcessed), 1) * 100
	if successRate < 70 {
		recs = append(recs, "Low success rate detected. Consider reviewing field mapping logic or form templates.")
	}

	if agg, ok := r.data.CommonIssues[types.IssueWrongLocation]; ok && agg.Count > 3 {
		recs = append(recs, "Multiple wrong location issues detected. Review field name overlay generation.")
	}
	if agg, ok := r.data.CommonIssues[types.IssueWrongLabel]; ok && agg.Count > 3 {
		recs = append(recs, "Multiple wrong label issues detected. Consider improving human-readable label prompts.")
	}

	problematic := 0
	for _, fa := range r.data.FieldAnalysis {
		if fa.TotalIssues > 2 {
			problematic++
		}
	}
	if problematic > 5 {
		recs = append(recs, fmt.Sprintf(
			"Multiple fields (%d) showing consistent issues. Consider form-specific template adjustments.", problematic))
	}

	if len(recs) == 0 {
		recs = append(recs, "Validation performance looks good. Continue monitoring.")
	}
	return recs
}

// Save finalizes the statistics and writes the report as timestamped JSON,
// returning the file path.
func (r *Reporter) Save() (string, error) {
	stats, err := r.Statistics()
	if err != nil {
		return "", err
	}
	r.data.SummaryStatistics = stats
	r.data.ReportGeneratedAt = time.Now().Format(time.RFC3339)

	filename := fmt.Sprintf("%s_validation_report_%s.json",
		r.data.DocumentType, time.Now().Format("20060102_150405"))
	path := filepath.Join(r.outputDir, filename)

	payload, err := json.MarshalIndent(r.data, "", "  ")
	if err != nil {
		return "", fmt.Errorf("failed to marshal validation report: %w", err)
	}
	if err := os.WriteFile(path, payload, 0644); err != nil {
		return "", fmt.Errorf("failed to write validation report: %w", err)
	}
	return path, nil
}

// Data returns the report document accumulated so far.
func (r *Reporter) Data() Data {
	return r.data
}

func appendUnique(items []string, item string) []string {
	for _, existing := range items {
		if existing == item {
			return items
		}
	}
	return append(items, item)
}

func round(x float64, places int) float64 {
	scale := math.Pow10(places)
	return math.Round(x*scale) / scale
}
