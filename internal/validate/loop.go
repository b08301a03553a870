// Package validate runs the audit-and-correct loop over filled PDF forms.
// Each attempt rasterizes the filled form, asks a vision model to audit it
// against the field vocabulary, and on failure corrects the labels and
// regenerates the data before trying again.
package validate

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daniel/formsynth/internal/generate"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/pdfform"
	"github.com/daniel/formsynth/internal/types"
)

// DefaultMaxRetries is the number of correction rounds after the first
// failed audit. A run performs at most MaxRetries+1 audits.
const DefaultMaxRetries = 2

// Loop wires the collaborators of one validation run.
type Loop struct {
	Client       oracle.Client
	Generator    *generate.Generator
	Filler       pdfform.Filler
	Rasterizer   pdfform.Rasterizer
	DocumentType string
	MaxRetries   int
}

// Input is the state of one sample entering validation.
type Input struct {
	// TemplatePath is the original unfilled PDF, used for refills.
	TemplatePath string
	// FilledPDFPath is the filled PDF under audit. Refills overwrite it.
	FilledPDFPath string
	// OverlayPages are the rendered field-name overlay images.
	OverlayPages []pdfform.Page
	Mapping      types.FieldMapping
	Labels       types.Labels
	Record       types.Record
	Persona      types.Persona
	// WorkDir receives the per-attempt validation images and corrected
	// label files.
	WorkDir string
}

// Attempt records what happened in one audit round.
type Attempt struct {
	Number          int
	Result          types.ValidationResult
	LabelsCorrected int
	Regenerated     bool
	Refilled        bool
}

// Outcome is the final state of a validation run. Valid is false when the
// retry budget was exhausted; Labels and Record then hold the best
// correction reached, which callers still persist.
type Outcome struct {
	Valid    bool
	Labels   types.Labels
	Record   types.Record
	Result   types.ValidationResult
	Attempts []Attempt
}

// Run drives the audit loop until the form validates or the retry budget is
// exhausted. Audit failures of any kind count as failed attempts; only
// infrastructure failures (rasterization, file IO) abort the run.
func (l *Loop) Run(ctx context.Context, in Input) (Outcome, error) {
	labels := in.Labels.Clone()
	record := in.Record

	outcome := Outcome{}
	for attempt := 0; attempt <= l.MaxRetries; attempt++ {
		images, err := l.renderFilledPages(ctx, in)
		if err != nil {
			return outcome, fmt.Errorf("validation attempt %d: %w", attempt+1, err)
		}

		result := l.audit(ctx, images, in.Mapping, labels, record)
		att := Attempt{Number: attempt + 1, Result: result}

		if result.IsValid {
			outcome.Attempts = append(outcome.Attempts, att)
			outcome.Valid = true
			outcome.Labels = labels
			outcome.Record = record
			outcome.Result = result
			return outcome, nil
		}

		if attempt < l.MaxRetries {
			corrected := l.correctLabels(ctx, images, result.Issues, in.Mapping, labels)
			att.LabelsCorrected = countCorrections(labels, corrected)
			l.saveCorrectedLabels(in.WorkDir, corrected, attempt+2)
			labels = corrected

			regen, genErr := l.Generator.Generate(ctx, generate.Request{
				Mapping:          in.Mapping,
				Labels:           corrected,
				Persona:          in.Persona,
				StrictFieldNames: true,
			})
			if genErr == nil && regen.Record.HasValues() {
				att.Regenerated = true
				if !regen.Record.Equal(record) {
					if fillErr := l.Filler.Fill(in.TemplatePath, in.FilledPDFPath, regen.Record); fillErr == nil {
						att.Refilled = true
					}
				}
				record = regen.Record
			}
			// A regeneration without usable values keeps the previous
			// record; the attempt still counts against the budget.
		}

		outcome.Attempts = append(outcome.Attempts, att)
		outcome.Result = result
	}

	outcome.Labels = labels
	outcome.Record = record
	return outcome, nil
}

// renderFilledPages rasterizes the current filled PDF and combines the
// overlay reference pages with the filled pages into one image set.
func (l *Loop) renderFilledPages(ctx context.Context, in Input) ([]oracle.Image, error) {
	imageDir := filepath.Join(in.WorkDir, "filled_pdf_validation_images")
	paths, err := l.Rasterizer.Rasterize(ctx, in.FilledPDFPath, imageDir)
	if err != nil {
		return nil, err
	}
	filledPages, err := pdfform.ReadPages(paths)
	if err != nil {
		return nil, err
	}

	images := make([]oracle.Image, 0, len(in.OverlayPages)+len(filledPages))
	for _, p := range in.OverlayPages {
		images = append(images, oracle.Image{Name: p.Name, MIMEType: p.MIMEType, Data: p.Data})
	}
	for _, p := range filledPages {
		images = append(images, oracle.Image{Name: p.Name, MIMEType: p.MIMEType, Data: p.Data})
	}
	return images, nil
}

// saveCorrectedLabels archives a corrected label map, best effort.
func (l *Loop) saveCorrectedLabels(workDir string, labels types.Labels, version int) {
	if workDir == "" {
		return
	}
	data, err := json.MarshalIndent(labels, "", "  ")
	if err != nil {
		return
	}
	path := filepath.Join(workDir, fmt.Sprintf("%s_human_readable_labels_corrected_v%d.json", l.DocumentType, version))
	_ = os.WriteFile(path, data, 0644)
}
