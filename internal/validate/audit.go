package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"strings"

	"github.com/go-playground/validator/v10"

	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/prompts"
	"github.com/daniel/formsynth/internal/schemas"
	"github.com/daniel/formsynth/internal/types"
)

const (
	auditMaxTokens   = 8000
	auditTemperature = 0.1
)

var structValidator = validator.New()

// audit performs one vision-grounded audit of the filled form. Any failure
// along the way (model call, parsing, schema) is folded into an invalid
// result instead of an error, so one bad audit never aborts the loop.
func (l *Loop) audit(ctx context.Context, images []oracle.Image, mapping types.FieldMapping, labels types.Labels, record types.Record) types.ValidationResult {
	result, err := l.performAudit(ctx, images, mapping, labels, record)
	if err != nil {
		return auditFailure(err)
	}
	return result
}

func (l *Loop) performAudit(ctx context.Context, images []oracle.Image, mapping types.FieldMapping, labels types.Labels, record types.Record) (types.ValidationResult, error) {
	mappingJSON, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return types.ValidationResult{}, err
	}
	recordJSON, err := json.MarshalIndent(record, "", "  ")
	if err != nil {
		return types.ValidationResult{}, err
	}
	labelsJSON, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return types.ValidationResult{}, err
	}

	system := prompts.Format(prompts.MustGet("validation.json", "audit-system"), map[string]string{
		"DocumentType": l.DocumentType,
	})
	user := prompts.Format(prompts.MustGet("validation.json", "audit"), map[string]string{
		"DocumentType":  l.DocumentType,
		"FieldMappings": string(mappingJSON),
		"SyntheticData": string(recordJSON),
		"Labels":        string(labelsJSON),
	})

	resp, err := l.Client.Complete(ctx, oracle.Request{
		System:      system,
		Prompt:      user,
		Images:      images,
		JSONMode:    true,
		Temperature: auditTemperature,
		MaxTokens:   auditMaxTokens,
		Tier:        oracle.TierAdvanced,
	})
	if err != nil {
		return types.ValidationResult{}, fmt.Errorf("audit call failed: %w", err)
	}

	text := stripFences(resp.Text)
	if err := schemas.ValidateJSONString(auditResultSchema, text); err != nil {
		return types.ValidationResult{}, fmt.Errorf("audit response rejected by schema: %w", err)
	}

	var result types.ValidationResult
	if err := json.Unmarshal([]byte(text), &result); err != nil {
		return types.ValidationResult{}, fmt.Errorf("audit response is not valid JSON: %w", err)
	}
	if err := structValidator.Struct(result); err != nil {
		return types.ValidationResult{}, fmt.Errorf("audit response failed validation: %w", err)
	}
	return result, nil
}

// auditFailure synthesizes the invalid result an unusable audit collapses
// into. The attempt still counts against the retry budget.
func auditFailure(err error) types.ValidationResult {
	return types.ValidationResult{
		IsValid:         false,
		ConfidenceScore: 0,
		Issues: []types.Issue{{
			FieldName:   "unknown",
			IssueType:   types.IssueValidationError,
			Description: err.Error(),
		}},
		Summary: fmt.Sprintf("Validation failed due to error: %v", err),
	}
}

// stripFences removes a surrounding markdown code fence if present.
func stripFences(s string) string {
	s = strings.TrimSpace(s)
	if strings.HasPrefix(s, "```") {
		s = strings.TrimPrefix(s, "```json")
		s = strings.TrimPrefix(s, "```")
		s = strings.TrimSuffix(strings.TrimSpace(s), "```")
	}
	return strings.TrimSpace(s)
}
