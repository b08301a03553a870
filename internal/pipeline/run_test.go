package pipeline

import (
	"context"
	"errors"
	"io"
	"os"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/daniel/formsynth/internal/observability"
	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/types"
)

type fakeClient struct {
	responses []string
	requests  []oracle.Request
}

func (f *fakeClient) Complete(_ context.Context, req oracle.Request) (oracle.Response, error) {
	f.requests = append(f.requests, req)
	if len(f.responses) == 0 {
		return oracle.Response{}, errors.New("no scripted response")
	}
	text := f.responses[0]
	f.responses = f.responses[1:]
	return oracle.Response{Text: text}, nil
}

func (f *fakeClient) Close() error { return nil }

type fakeExtractor struct {
	mapping types.FieldMapping
	calls   int
}

func (f *fakeExtractor) Extract(string) (types.FieldMapping, error) {
	f.calls++
	return f.mapping, nil
}

type fakeFiller struct {
	calls int
}

func (f *fakeFiller) Fill(_, outputPath string, _ types.Record) error {
	f.calls++
	return os.WriteFile(outputPath, []byte("%PDF-1.7 filled"), 0o644)
}

type fakeOverlayer struct {
	calls int
}

func (f *fakeOverlayer) WriteOverlay(_, outputPath string, _ int) error {
	f.calls++
	return os.WriteFile(outputPath, []byte("%PDF-1.7 overlay"), 0o644)
}

type fakeRasterizer struct {
	calls int
}

func (f *fakeRasterizer) Rasterize(_ context.Context, _, outputDir string) ([]string, error) {
	f.calls++
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, err
	}
	path := filepath.Join(outputDir, "page-1.jpg")
	if err := os.WriteFile(path, []byte{0xFF, 0xD8, 0xFF}, 0o644); err != nil {
		return nil, err
	}
	return []string{path}, nil
}

func testVocabulary() (types.FieldMapping, types.Labels) {
	mapping := types.FieldMapping{
		"form[0].f1[0]": {FieldType: "/Tx"},
		"form[0].f2[0]": {FieldType: "/Tx"},
	}
	labels := types.Labels{
		"form[0].f1[0]": "First name",
		"form[0].f2[0]": "Employer name",
	}
	return mapping, labels
}

const (
	dataResponse  = `{"form[0].f1[0]": "Avery", "form[0].f2[0]": "Quinn Logistics"}`
	validAudit    = `{"is_valid": true, "confidence_score": 0.95, "issues": [], "summary": "All fields correct"}`
	labelResponse = `{"form[0].f1[0]": "First name", "form[0].f2[0]": "Employer name"}`
)

// seedTemplate creates a template PDF plus cached mapping and label files in
// dir, returning the template path.
func seedTemplate(t *testing.T, dir, documentType string, seedLabels bool) string {
	t.Helper()
	mapping, labels := testVocabulary()

	templatePath := filepath.Join(dir, documentType+".pdf")
	require.NoError(t, os.WriteFile(templatePath, []byte("%PDF-1.7 template"), 0o644))
	require.NoError(t, writeJSON(filepath.Join(dir, documentType+"_field_mappings.json"), mapping))
	if seedLabels {
		require.NoError(t, writeJSON(filepath.Join(dir, documentType+"_human_readable_labels.json"), labels))
	}
	return templatePath
}

func newRunner(client *fakeClient) (*Runner, *fakeFiller, *fakeRasterizer) {
	filler := &fakeFiller{}
	rasterizer := &fakeRasterizer{}
	mapping, _ := testVocabulary()
	return &Runner{
		Client:     client,
		Extractor:  &fakeExtractor{mapping: mapping},
		Filler:     filler,
		Overlayer:  &fakeOverlayer{},
		Rasterizer: rasterizer,
		Printer:    observability.NewPrinter(io.Discard),
	}, filler, rasterizer
}

func TestRun_SingleTemplate_ValidationDisabled(t *testing.T) {
	templateDir := t.TempDir()
	outputDir := t.TempDir()
	templatePath := seedTemplate(t, templateDir, "W-2", true)

	client := &fakeClient{responses: []string{dataResponse, dataResponse}}
	runner, filler, _ := newRunner(client)

	tally, err := runner.Run(context.Background(), Options{
		InputPDF:          templatePath,
		OutputDir:         outputDir,
		Variants:          2,
		DisableValidation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Tally{Succeeded: 1, Total: 1}, tally)

	// One data generation call per variant, no audit calls.
	assert.Len(t, client.requests, 2)
	assert.Equal(t, 2, filler.calls)

	// Per-variant persona slots were populated with identity fields.
	for _, name := range []string{"persona_variant_1.json", "persona_variant_2.json"} {
		path := filepath.Join(outputDir, "persona_variants", name)
		require.FileExists(t, path)
		persona, err := os.ReadFile(path)
		require.NoError(t, err)
		assert.Contains(t, string(persona), "First name")
		assert.Contains(t, string(persona), "Avery")
	}

	// Each sample produced a record JSON and a filled PDF.
	jsonSamples, err := os.ReadDir(filepath.Join(outputDir, "W-2", "json_data"))
	require.NoError(t, err)
	assert.Len(t, jsonSamples, 2)
	pdfSamples, err := os.ReadDir(filepath.Join(outputDir, "W-2", "pdf_data"))
	require.NoError(t, err)
	assert.Len(t, pdfSamples, 2)

	assert.FileExists(t, filepath.Join(outputDir, "consolidated_pdfs", "W-2_Sample1.pdf"))
	assert.FileExists(t, filepath.Join(outputDir, "consolidated_pdfs", "W-2_Sample2.pdf"))

	// No validation report when validation is disabled.
	reports, err := filepath.Glob(filepath.Join(outputDir, "W-2", "*_validation_report_*.json"))
	require.NoError(t, err)
	assert.Empty(t, reports)
}

func TestRun_SingleTemplate_WithValidation(t *testing.T) {
	templateDir := t.TempDir()
	outputDir := t.TempDir()
	templatePath := seedTemplate(t, templateDir, "W-2", true)

	client := &fakeClient{responses: []string{dataResponse, validAudit}}
	runner, _, rasterizer := newRunner(client)

	tally, err := runner.Run(context.Background(), Options{
		InputPDF:  templatePath,
		OutputDir: outputDir,
		Variants:  1,
	})
	require.NoError(t, err)
	assert.Equal(t, Tally{Succeeded: 1, Total: 1}, tally)

	// Data generation then one audit.
	require.Len(t, client.requests, 2)
	assert.Equal(t, oracle.TierAdvanced, client.requests[1].Tier)

	// Overlay render + audit render + final sample images.
	assert.Equal(t, 3, rasterizer.calls)

	reports, err := filepath.Glob(filepath.Join(outputDir, "W-2", "*_validation_report_*.json"))
	require.NoError(t, err)
	require.Len(t, reports, 1)
	payload, err := os.ReadFile(reports[0])
	require.NoError(t, err)
	assert.Contains(t, string(payload), `"successful_validations": 1`)
}

func TestRun_GeneratesLabelCacheOnFirstUse(t *testing.T) {
	templateDir := t.TempDir()
	outputDir := t.TempDir()
	templatePath := seedTemplate(t, templateDir, "W-2", false)

	client := &fakeClient{responses: []string{labelResponse, dataResponse}}
	runner, _, _ := newRunner(client)

	_, err := runner.Run(context.Background(), Options{
		InputPDF:          templatePath,
		OutputDir:         outputDir,
		Variants:          1,
		DisableValidation: true,
	})
	require.NoError(t, err)

	// The label call carries the overlay image, the data call does not.
	require.Len(t, client.requests, 2)
	assert.NotEmpty(t, client.requests[0].Images)
	assert.Empty(t, client.requests[1].Images)

	assert.FileExists(t, filepath.Join(templateDir, "W-2_human_readable_labels.json"))
}

func TestRun_Batch_SkipsFailures(t *testing.T) {
	batchDir := t.TempDir()
	outputDir := t.TempDir()
	seedTemplate(t, batchDir, "1040", true)
	seedTemplate(t, batchDir, "W-2", true)

	// The first template (sorted order: 1040) gets a malformed response and
	// fails; the batch continues with the second.
	client := &fakeClient{responses: []string{"not json at all", dataResponse}}
	runner, _, _ := newRunner(client)

	tally, err := runner.Run(context.Background(), Options{
		BatchDir:          batchDir,
		OutputDir:         outputDir,
		Variants:          1,
		DisableValidation: true,
	})
	require.NoError(t, err)
	assert.Equal(t, Tally{Succeeded: 1, Failed: 1, Total: 2}, tally)

	assert.FileExists(t, filepath.Join(outputDir, "consolidated_pdfs", "W-2_Sample1.pdf"))
	assert.NoFileExists(t, filepath.Join(outputDir, "consolidated_pdfs", "1040_Sample1.pdf"))
}

func TestRun_EmptyBatchDirectory(t *testing.T) {
	runner, _, _ := newRunner(&fakeClient{})
	tally, err := runner.Run(context.Background(), Options{
		BatchDir:  t.TempDir(),
		OutputDir: t.TempDir(),
	})
	require.NoError(t, err)
	assert.Equal(t, Tally{}, tally)
}

func TestRun_RequiresInput(t *testing.T) {
	runner, _, _ := newRunner(&fakeClient{})
	_, err := runner.Run(context.Background(), Options{OutputDir: t.TempDir()})
	require.Error(t, err)
}
