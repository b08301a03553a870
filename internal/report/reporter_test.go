package report

import (
	"encoding/json"
	"os"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/formsynth/internal/types"
)

func validResult(confidence float64) types.ValidationResult {
	return types.ValidationResult{
		IsValid:         true,
		ConfidenceScore: confidence,
		Summary:         "clean",
	}
}

func invalidResult(confidence float64, issues ...types.Issue) types.ValidationResult {
	return types.ValidationResult{
		IsValid:         false,
		ConfidenceScore: confidence,
		Issues:          issues,
		Summary:         "problems found",
	}
}

func TestAddSampleReport_Counters(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")

	r.AddSampleReport("Sample1", validResult(0.9), nil)
	r.AddSampleReport("Sample2", invalidResult(0.4, types.Issue{
		FieldName: "f1", IssueType: types.IssueWrongLabel, Description: "bad label",
	}), []types.Correction{{Type: "label", Description: "relabeled f1"}})

	data := r.Data()
	assert.Equal(t, 2, data.SamplesProcessed)
	assert.Len(t, data.SampleReports, data.SamplesProcessed)
	assert.Equal(t, 2, data.ValidationSummary.TotalValidations)
	assert.Equal(t, 1, data.ValidationSummary.SuccessfulValidations)
	assert.Equal(t, 1, data.ValidationSummary.FailedValidations)
	assert.Equal(t, 1, data.ValidationSummary.CorrectionsApplied)

	require.Contains(t, data.FieldAnalysis, "f1")
	assert.Equal(t, 1, data.FieldAnalysis["f1"].TotalIssues)
	assert.Equal(t, []string{"Sample2"}, data.FieldAnalysis["f1"].SamplesAffected)

	require.Contains(t, data.CommonIssues, types.IssueWrongLabel)
	assert.Equal(t, 1, data.CommonIssues[types.IssueWrongLabel].Count)
	assert.Equal(t, []string{"f1"}, data.CommonIssues[types.IssueWrongLabel].FieldsAffected)
}

func TestStatistics_Empty(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	_, err := r.Statistics()
	assert.Error(t, err)
}

func TestStatistics_RatesAndAverages(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	r.AddSampleReport("Sample1", validResult(0.9), nil)
	r.AddSampleReport("Sample2", validResult(0.8), nil)
	r.AddSampleReport("Sample3", invalidResult(0.1), nil)

	stats, err := r.Statistics()
	require.NoError(t, err)
	assert.InDelta(t, 66.67, stats.SuccessRate, 0.001)
	assert.InDelta(t, 0.6, stats.AverageConfidenceScore, 0.001)
	assert.Equal(t, 0, stats.TotalCorrectionsApplied)
}

func TestStatistics_TopIssuesAndFields(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")

	for i := 0; i < 4; i++ {
		r.AddSampleReport("s", invalidResult(0.2,
			types.Issue{FieldName: "f1", IssueType: types.IssueWrongLabel, Description: "x"},
		), nil)
	}
	r.AddSampleReport("s", invalidResult(0.2,
		types.Issue{FieldName: "f2", IssueType: types.IssueWrongValue, Description: "y"},
	), nil)

	stats, err := r.Statistics()
	require.NoError(t, err)

	require.NotEmpty(t, stats.MostCommonIssues)
	assert.Equal(t, types.IssueWrongLabel, stats.MostCommonIssues[0].IssueType)
	assert.Equal(t, 4, stats.MostCommonIssues[0].Count)

	require.NotEmpty(t, stats.MostProblematicFields)
	assert.Equal(t, "f1", stats.MostProblematicFields[0].FieldName)
	assert.Equal(t, 4, stats.MostProblematicFields[0].Issues)
}

func TestRecommendations_LowSuccessRate(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	r.AddSampleReport("s1", invalidResult(0.2), nil)
	r.AddSampleReport("s2", validResult(0.9), nil)

	stats, err := r.Statistics()
	require.NoError(t, err)
	assert.Contains(t, stats.Recommendations[0], "Low success rate")
}

func TestRecommendations_RepeatedIssueTypes(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	for i := 0; i < 4; i++ {
		r.AddSampleReport("s", invalidResult(0.2,
			types.Issue{FieldName: "f1", IssueType: types.IssueWrongLocation, Description: "x"},
			types.Issue{FieldName: "f2", IssueType: types.IssueWrongLabel, Description: "y"},
		), nil)
	}

	stats, err := r.Statistics()
	require.NoError(t, err)

	joined := ""
	for _, rec := range stats.Recommendations {
		joined += rec + "\n"
	}
	assert.Contains(t, joined, "wrong location issues")
	assert.Contains(t, joined, "wrong label issues")
}

func TestRecommendations_AllGood(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	r.AddSampleReport("s1", validResult(0.95), nil)

	stats, err := r.Statistics()
	require.NoError(t, err)
	require.Len(t, stats.Recommendations, 1)
	assert.Contains(t, stats.Recommendations[0], "looks good")
}

func TestSave_WritesReport(t *testing.T) {
	dir := t.TempDir()
	r := NewReporter(dir, "W-2")
	r.AddSampleReport("Sample1", validResult(0.9), nil)

	path, err := r.Save()
	require.NoError(t, err)
	assert.Contains(t, path, "W-2_validation_report_")

	payload, err := os.ReadFile(path)
	require.NoError(t, err)

	var data Data
	require.NoError(t, json.Unmarshal(payload, &data))
	assert.Equal(t, "W-2", data.DocumentType)
	assert.Equal(t, 1, data.SamplesProcessed)
	require.NotNil(t, data.SummaryStatistics)
	assert.Equal(t, 100.0, data.SummaryStatistics.SuccessRate)
	assert.NotEmpty(t, data.ReportGeneratedAt)
}

func TestSave_EmptyFails(t *testing.T) {
	r := NewReporter(t.TempDir(), "W-2")
	_, err := r.Save()
	assert.Error(t, err)
}
