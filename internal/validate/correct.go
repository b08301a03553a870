package validate

import (
	"context"
	"encoding/json"

	"github.com/daniel/formsynth/internal/match"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/prompts"
	"github.com/daniel/formsynth/internal/recovery"
	"github.com/daniel/formsynth/internal/types"
)

const (
	correctionMaxTokens   = 12000
	correctionTemperature = 0.1
)

// correctLabels asks the model for a corrected label map covering every
// field. On any failure the current labels are returned unchanged so the
// loop can still spend its remaining attempts.
func (l *Loop) correctLabels(ctx context.Context, images []oracle.Image, issues []types.Issue, mapping types.FieldMapping, labels types.Labels) types.Labels {
	corrected, err := l.performCorrection(ctx, images, issues, mapping, labels)
	if err != nil {
		return labels
	}
	return corrected
}

func (l *Loop) performCorrection(ctx context.Context, images []oracle.Image, issues []types.Issue, mapping types.FieldMapping, labels types.Labels) (types.Labels, error) {
	issuesJSON, err := json.MarshalIndent(issues, "", "  ")
	if err != nil {
		return nil, err
	}
	mappingJSON, err := json.MarshalIndent(mapping, "", "  ")
	if err != nil {
		return nil, err
	}
	labelsJSON, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return nil, err
	}

	system := prompts.Format(prompts.MustGet("validation.json", "correction-system"), map[string]string{
		"DocumentType": l.DocumentType,
	})
	user := prompts.Format(prompts.MustGet("validation.json", "correction"), map[string]string{
		"Issues":        string(issuesJSON),
		"FieldMappings": string(mappingJSON),
		"Labels":        string(labelsJSON),
	})

	resp, err := l.Client.Complete(ctx, oracle.Request{
		System:      system,
		Prompt:      user,
		Images:      images,
		JSONMode:    true,
		Temperature: correctionTemperature,
		MaxTokens:   correctionMaxTokens,
		Tier:        oracle.TierStandard,
	})
	if err != nil {
		return nil, err
	}

	parsed, err := recovery.Parse(resp.Text)
	if err != nil {
		return nil, err
	}

	return match.RemapLabels(parsed, mapping), nil
}

// countCorrections reports how many labels changed between two maps.
func countCorrections(before, after types.Labels) int {
	n := 0
	for field, label := range after {
		if old, ok := before[field]; ok && old != label {
			n++
		}
	}
	return n
}
