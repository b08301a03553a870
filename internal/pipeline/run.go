// Package pipeline provides the high-level orchestration for synthetic form
// sample generation: field extraction, labeling, data generation, PDF
// filling, validation and reporting for one or more templates.
package pipeline

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"

	"github.com/daniel/formsynth/internal/generate"
	"github.com/daniel/formsynth/internal/observability"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/pdfform"
	"github.com/daniel/formsynth/internal/persona"
	"github.com/daniel/formsynth/internal/report"
	"github.com/daniel/formsynth/internal/types"
	"github.com/daniel/formsynth/internal/validate"
)

// DefaultVariants is the number of samples generated per template when none
// is requested.
const DefaultVariants = 5

// ProgressEvent represents a progress update during pipeline execution
type ProgressEvent struct {
	Step     string `json:"step"`
	Category string `json:"category"`
	Message  string `json:"message"`
}

// ProgressCallback is called when pipeline progress occurs
type ProgressCallback func(event ProgressEvent)

// Options holds configuration for one pipeline run.
type Options struct {
	// InputPDF is a single template to process. Ignored when BatchDir is set.
	InputPDF string
	// BatchDir, when set, processes every PDF in the directory.
	BatchDir          string
	OutputDir         string
	Variants          int
	DisableValidation bool
	// FieldFontSize is the font size for field-name overlay markers.
	FieldFontSize int
	MaxRetries    int
	Verbose       bool
	OnProgress    ProgressCallback
}

// Tally is the outcome of a batch run. Failed templates are skipped, not
// fatal: the batch continues with the remaining PDFs.
type Tally struct {
	Succeeded int
	Failed    int
	Total     int
}

// Runner wires the collaborators shared by every template in a run.
type Runner struct {
	Client     oracle.Client
	Extractor  pdfform.Extractor
	Filler     pdfform.Filler
	Overlayer  pdfform.Overlayer
	Rasterizer pdfform.Rasterizer
	Printer    *observability.Printer
}

// NewRunner creates a Runner with the concrete PDF toolchain.
func NewRunner(client oracle.Client) *Runner {
	return &Runner{
		Client:     client,
		Extractor:  pdfform.NewAcroExtractor(),
		Filler:     pdfform.NewAcroFiller(),
		Overlayer:  pdfform.NewOverlayWriter(),
		Rasterizer: pdfform.NewPopplerRasterizer(),
		Printer:    observability.NewPrinter(os.Stdout),
	}
}

func (o *Options) emit(step, category, message string) {
	if o.OnProgress != nil {
		o.OnProgress(ProgressEvent{Step: step, Category: category, Message: message})
	}
}

// Run processes a single template or a batch directory.
func (r *Runner) Run(ctx context.Context, opts Options) (Tally, error) {
	if opts.Variants <= 0 {
		opts.Variants = DefaultVariants
	}
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = validate.DefaultMaxRetries
	}

	if opts.BatchDir != "" {
		return r.runBatch(ctx, opts)
	}

	if opts.InputPDF == "" {
		return Tally{}, fmt.Errorf("an input PDF is required when no batch directory is given")
	}
	tally := Tally{Total: 1}
	if err := r.processTemplate(ctx, opts.InputPDF, opts); err != nil {
		tally.Failed = 1
		return tally, err
	}
	tally.Succeeded = 1
	return tally, nil
}

// runBatch processes every PDF in the batch directory, skipping failures and
// tallying the outcome.
func (r *Runner) runBatch(ctx context.Context, opts Options) (Tally, error) {
	entries, err := os.ReadDir(opts.BatchDir)
	if err != nil {
		return Tally{}, fmt.Errorf("failed to read batch directory %s: %w", opts.BatchDir, err)
	}

	var pdfs []string
	for _, entry := range entries {
		if entry.IsDir() {
			continue
		}
		if strings.EqualFold(filepath.Ext(entry.Name()), ".pdf") {
			pdfs = append(pdfs, filepath.Join(opts.BatchDir, entry.Name()))
		}
	}
	sort.Strings(pdfs)

	if len(pdfs) == 0 {
		opts.emit("batch", "setup", fmt.Sprintf("no PDF files found in %s", opts.BatchDir))
		return Tally{}, nil
	}

	tally := Tally{Total: len(pdfs)}
	for i, pdfPath := range pdfs {
		opts.emit("batch", "setup",
			fmt.Sprintf("[%d/%d] processing %s", i+1, len(pdfs), filepath.Base(pdfPath)))

		if err := r.processTemplate(ctx, pdfPath, opts); err != nil {
			tally.Failed++
			opts.emit("batch", "error",
				fmt.Sprintf("failed to process %s: %v", filepath.Base(pdfPath), err))
			continue
		}
		tally.Succeeded++
	}

	if r.Printer != nil {
		r.Printer.PrintBatchSummary(tally.Succeeded, tally.Failed, tally.Total)
	}
	return tally, nil
}

// templateRun holds the mutable state of one template's sample loop. Labels
// are shared state: corrections applied while validating one sample carry
// forward to the next.
type templateRun struct {
	runner       *Runner
	opts         Options
	documentType string
	templatePath string
	outputRoot   string
	jsonDir      string
	pdfDir       string
	imageDir     string
	labelsPath   string
	mapping      types.FieldMapping
	labels       types.Labels
	overlayPages []pdfform.Page
	generator    *generate.Generator
	reporter     *report.Reporter
}

func (r *Runner) processTemplate(ctx context.Context, pdfPath string, opts Options) error {
	templatePath, err := filepath.Abs(pdfPath)
	if err != nil {
		return fmt.Errorf("failed to resolve template path: %w", err)
	}
	outputRoot, err := filepath.Abs(opts.OutputDir)
	if err != nil {
		return fmt.Errorf("failed to resolve output directory: %w", err)
	}
	if err := os.MkdirAll(outputRoot, 0755); err != nil {
		return fmt.Errorf("failed to create output directory: %w", err)
	}

	documentType := strings.TrimSuffix(filepath.Base(templatePath), filepath.Ext(templatePath))
	if r.Printer != nil && opts.Verbose {
		r.Printer.PrintDocumentHeader(documentType, templatePath, outputRoot)
	}

	run := &templateRun{
		runner:       r,
		opts:         opts,
		documentType: documentType,
		templatePath: templatePath,
		outputRoot:   outputRoot,
		jsonDir:      filepath.Join(outputRoot, documentType, "json_data"),
		pdfDir:       filepath.Join(outputRoot, documentType, "pdf_data"),
		imageDir:     filepath.Join(outputRoot, documentType, "image_data"),
		generator:    generate.NewGenerator(r.Client, documentType),
	}
	for _, dir := range []string{run.jsonDir, run.pdfDir, run.imageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create sample directory: %w", err)
		}
	}

	if run.overlayPages, err = r.renderOverlayPages(ctx, run); err != nil {
		return err
	}

	templateDir := filepath.Dir(templatePath)
	mappingPath := filepath.Join(templateDir, documentType+"_field_mappings.json")
	run.labelsPath = filepath.Join(templateDir, documentType+"_human_readable_labels.json")

	if run.mapping, err = r.loadOrExtractMapping(templatePath, mappingPath, opts); err != nil {
		return err
	}
	if run.labels, err = r.loadOrGenerateLabels(ctx, run); err != nil {
		return err
	}

	if !opts.DisableValidation {
		run.reporter = report.NewReporter(filepath.Join(outputRoot, documentType), documentType)
	}

	for idx := 1; idx <= opts.Variants; idx++ {
		if err := run.generateSample(ctx, idx); err != nil {
			return fmt.Errorf("sample %d/%d: %w", idx, opts.Variants, err)
		}
	}

	return run.finishReport()
}

// renderOverlayPages writes the field-name overlay PDF, rasterizes it, and
// reads the pages back. The auditing model cannot map fields without these
// images, so an empty result is fatal.
func (r *Runner) renderOverlayPages(ctx context.Context, run *templateRun) ([]pdfform.Page, error) {
	fontSize := run.opts.FieldFontSize
	if fontSize <= 0 {
		fontSize = pdfform.DefaultOverlayFontSize
	}

	overlayPDF := filepath.Join(run.outputRoot, run.documentType+"_filled_with_field_names.pdf")
	if err := r.Overlayer.WriteOverlay(run.templatePath, overlayPDF, fontSize); err != nil {
		return nil, fmt.Errorf("failed to write field-name overlay: %w", err)
	}

	overlayImageDir := filepath.Join(run.outputRoot, run.documentType+"_fieldname_images")
	paths, err := r.Rasterizer.Rasterize(ctx, overlayPDF, overlayImageDir)
	if err != nil {
		return nil, fmt.Errorf("failed to render field-name overlay images: %w", err)
	}

	if suspicious := pdfform.ValidateOverlayImages(paths); len(suspicious) > 0 {
		warnings := make([]string, 0, len(suspicious))
		for _, p := range suspicious {
			warnings = append(warnings, fmt.Sprintf("overlay image may be blank: %s", filepath.Base(p)))
		}
		if r.Printer != nil && run.opts.Verbose {
			r.Printer.PrintWarnings("OVERLAY IMAGE WARNINGS", warnings)
		}
		run.opts.emit("overlay", "setup",
			fmt.Sprintf("%d overlay images look suspiciously small", len(suspicious)))
	}

	return pdfform.ReadPages(paths)
}

// loadOrExtractMapping returns the cached field mapping next to the template,
// extracting and caching it on first use.
func (r *Runner) loadOrExtractMapping(templatePath, mappingPath string, opts Options) (types.FieldMapping, error) {
	if data, err := os.ReadFile(mappingPath); err == nil {
		var mapping types.FieldMapping
		if err := json.Unmarshal(data, &mapping); err != nil {
			return nil, fmt.Errorf("failed to parse cached field mappings %s: %w", mappingPath, err)
		}
		opts.emit("mapping", "setup", "field mappings loaded from cache")
		return mapping, nil
	}

	mapping, err := r.Extractor.Extract(templatePath)
	if err != nil {
		return nil, err
	}
	if err := writeJSON(mappingPath, mapping); err != nil {
		return nil, err
	}
	opts.emit("mapping", "setup", fmt.Sprintf("extracted %d fields", len(mapping)))
	return mapping, nil
}

// loadOrGenerateLabels returns the cached human-readable labels next to the
// template, asking the vision model on first use.
func (r *Runner) loadOrGenerateLabels(ctx context.Context, run *templateRun) (types.Labels, error) {
	if data, err := os.ReadFile(run.labelsPath); err == nil {
		var labels types.Labels
		if err := json.Unmarshal(data, &labels); err != nil {
			return nil, fmt.Errorf("failed to parse cached labels %s: %w", run.labelsPath, err)
		}
		run.opts.emit("labels", "setup", "human-readable labels loaded from cache")
		return labels, nil
	}

	labels, err := run.generator.GenerateLabels(ctx, run.mapping, overlayImages(run.overlayPages))
	if err != nil {
		return nil, err
	}
	if err := writeJSON(run.labelsPath, labels); err != nil {
		return nil, err
	}
	run.opts.emit("labels", "setup", fmt.Sprintf("generated %d labels", len(labels)))
	return labels, nil
}

// generateSample produces, fills, validates and archives one variant.
func (t *templateRun) generateSample(ctx context.Context, idx int) error {
	sampleFlag := fmt.Sprintf("%s - Sample [ %d / %d ]", t.documentType, idx, t.opts.Variants)
	t.opts.emit("sample", "generation", sampleFlag)

	personaDir := filepath.Join(t.outputRoot, "persona_variants")
	if err := os.MkdirAll(personaDir, 0755); err != nil {
		return fmt.Errorf("failed to create persona directory: %w", err)
	}
	personaPath := filepath.Join(personaDir, fmt.Sprintf("persona_variant_%d.json", idx))
	current, err := persona.Load(personaPath)
	if err != nil {
		return err
	}

	timestamp := time.Now().UTC().Format("01_02_06_15_04_05")
	sampleID := fmt.Sprintf("Sample%d_%s_%s", idx, timestamp, uuid.New().String())

	sampleJSONDir := filepath.Join(t.jsonDir, sampleID)
	samplePDFDir := filepath.Join(t.pdfDir, sampleID)
	sampleImageDir := filepath.Join(t.imageDir, sampleID)
	for _, dir := range []string{sampleJSONDir, samplePDFDir, sampleImageDir} {
		if err := os.MkdirAll(dir, 0755); err != nil {
			return fmt.Errorf("failed to create sample directory: %w", err)
		}
	}

	result, err := t.generator.Generate(ctx, generate.Request{
		Mapping: t.mapping,
		Labels:  t.labels,
		Persona: current,
	})
	if err != nil {
		return err
	}
	if t.runner.Printer != nil && t.opts.Verbose {
		t.runner.Printer.PrintWarnings("GENERATION WARNINGS", result.Warnings)
	}

	record := result.Record
	current = persona.Merge(current, persona.Extract(record))
	if err := persona.Save(personaPath, current); err != nil {
		return err
	}

	recordPath := filepath.Join(sampleJSONDir, t.documentType+".json")
	if err := writeJSON(recordPath, record); err != nil {
		return err
	}

	filledPath := filepath.Join(samplePDFDir, t.documentType+".pdf")
	if err := t.runner.Filler.Fill(t.templatePath, filledPath, record); err != nil {
		return err
	}

	if !t.opts.DisableValidation {
		record, err = t.validateSample(ctx, sampleID, sampleFlag, sampleJSONDir, filledPath, record, current, personaPath)
		if err != nil {
			return err
		}
	}

	// Render images last so they capture the final, validated PDF state.
	if _, err := t.runner.Rasterizer.Rasterize(ctx, filledPath, sampleImageDir); err != nil {
		return err
	}

	t.consolidate(filledPath, idx)
	t.opts.emit("sample", "generation", sampleFlag+" complete")
	return nil
}

// validateSample runs the audit loop and applies its outcome: regenerated
// data replaces the sample record, corrected labels replace the cached label
// file so later samples inherit them.
func (t *templateRun) validateSample(ctx context.Context, sampleID, sampleFlag, sampleJSONDir, filledPath string, record types.Record, current types.Persona, personaPath string) (types.Record, error) {
	loop := &validate.Loop{
		Client:       t.runner.Client,
		Generator:    t.generator,
		Filler:       t.runner.Filler,
		Rasterizer:   t.runner.Rasterizer,
		DocumentType: t.documentType,
		MaxRetries:   t.opts.MaxRetries,
	}

	outcome, err := loop.Run(ctx, validate.Input{
		TemplatePath:  t.templatePath,
		FilledPDFPath: filledPath,
		OverlayPages:  t.overlayPages,
		Mapping:       t.mapping,
		Labels:        t.labels,
		Record:        record,
		Persona:       current,
		WorkDir:       sampleJSONDir,
	})
	if err != nil {
		return record, err
	}
	if t.runner.Printer != nil && t.opts.Verbose {
		t.runner.Printer.PrintValidationAttempts(sampleFlag, outcome.Attempts)
	}

	var corrections []types.Correction

	if !outcome.Record.Equal(record) && outcome.Record.HasValues() {
		record = outcome.Record
		corrections = append(corrections, types.Correction{
			Type:        "data_regeneration",
			Description: "Regenerated synthetic data with corrected labels and persona context",
		})
		if err := writeJSON(filepath.Join(sampleJSONDir, t.documentType+"_regenerated.json"), record); err != nil {
			return record, err
		}
		merged := persona.Merge(current, persona.Extract(record))
		if err := persona.Save(personaPath, merged); err != nil {
			return record, err
		}
	}

	if !outcome.Labels.Equal(t.labels) {
		t.labels = outcome.Labels
		corrections = append(corrections, types.Correction{
			Type:        "label_correction",
			Description: "Corrected human-readable field labels",
		})
		// Archive the validated labels and update the cache so subsequent
		// samples use the corrected vocabulary.
		validatedPath := strings.TrimSuffix(t.labelsPath, ".json") + "_validated.json"
		if err := writeJSON(validatedPath, t.labels); err != nil {
			return record, err
		}
		if err := writeJSON(t.labelsPath, t.labels); err != nil {
			return record, err
		}
	}

	if t.reporter != nil {
		t.reporter.AddSampleReport(sampleID, outcome.Result, corrections)
	}
	if !outcome.Valid {
		t.opts.emit("validation", "validation",
			fmt.Sprintf("%s exhausted its retry budget; keeping best corrected version", sampleFlag))
	}
	return record, nil
}

// finishReport prints and persists the batch validation report.
func (t *templateRun) finishReport() error {
	if t.reporter == nil || t.reporter.SamplesProcessed() == 0 {
		return nil
	}

	stats, err := t.reporter.Statistics()
	if err != nil {
		return err
	}
	if t.runner.Printer != nil {
		t.runner.Printer.PrintValidationSummary(t.documentType, t.reporter.SamplesProcessed(), stats)
	}

	path, err := t.reporter.Save()
	if err != nil {
		return err
	}
	t.opts.emit("report", "report", fmt.Sprintf("validation report saved to %s", path))
	return nil
}

// consolidate copies the finished PDF into the flat consolidated folder,
// best effort.
func (t *templateRun) consolidate(filledPath string, idx int) {
	consolidatedDir := filepath.Join(t.outputRoot, "consolidated_pdfs")
	if err := os.MkdirAll(consolidatedDir, 0755); err != nil {
		t.opts.emit("consolidate", "generation", fmt.Sprintf("failed to create consolidated folder: %v", err))
		return
	}
	dest := filepath.Join(consolidatedDir, fmt.Sprintf("%s_Sample%d.pdf", t.documentType, idx))
	if err := copyFile(filledPath, dest); err != nil {
		t.opts.emit("consolidate", "generation", fmt.Sprintf("failed to copy PDF to consolidated folder: %v", err))
	}
}

func overlayImages(pages []pdfform.Page) []oracle.Image {
	images := make([]oracle.Image, 0, len(pages))
	for _, p := range pages {
		images = append(images, oracle.Image{Name: p.Name, MIMEType: p.MIMEType, Data: p.Data})
	}
	return images
}

func writeJSON(path string, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode %s: %w", filepath.Base(path), err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write %s: %w", path, err)
	}
	return nil
}

func copyFile(src, dest string) error {
	in, err := os.Open(src)
	if err != nil {
		return err
	}
	defer in.Close()

	out, err := os.Create(dest)
	if err != nil {
		return err
	}
	defer out.Close()

	if _, err := io.Copy(out, in); err != nil {
		return err
	}
	return out.Close()
}
