package avm

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"

	"github.com/daniel/formsynth/internal/oracle"
	"github.com/daniel/formsynth/internal/pdfform"
)

// Sample is the set of artifacts one AVM report run produces.
type Sample struct {
	Report   *Report
	DataPath string
	HTMLPath string
	PDFPath  string
	// Images holds rasterized page paths, empty when no rasterizer is
	// configured.
	Images []string
}

// Generator runs the full AVM report pipeline: model data, HTML, PDF and
// optional page images. Data and RenderPDF are fields so tests can run the
// pipeline without a model client or a browser.
type Generator struct {
	Data       func(context.Context) (*Report, error)
	RenderPDF  func(context.Context, string, string) error
	Rasterizer pdfform.Rasterizer
}

// NewGenerator wires the pipeline to a live model client and headless
// browser. Rasterizer may be nil to skip page images.
func NewGenerator(client oracle.Client, rasterizer pdfform.Rasterizer) *Generator {
	return &Generator{
		Data: func(ctx context.Context) (*Report, error) {
			return GenerateData(ctx, client)
		},
		RenderPDF:  RenderPDF,
		Rasterizer: rasterizer,
	}
}

// GenerateSample produces one complete report under outputDir.
func (g *Generator) GenerateSample(ctx context.Context, outputDir string) (*Sample, error) {
	if err := os.MkdirAll(outputDir, 0o755); err != nil {
		return nil, fmt.Errorf("creating AVM output directory: %w", err)
	}

	report, err := g.Data(ctx)
	if err != nil {
		return nil, err
	}

	sample := &Sample{
		Report:   report,
		DataPath: filepath.Join(outputDir, "avm_report_data.json"),
		HTMLPath: filepath.Join(outputDir, "avm_report.html"),
		PDFPath:  filepath.Join(outputDir, "avm_report.pdf"),
	}

	data, err := json.MarshalIndent(report, "", "  ")
	if err != nil {
		return nil, fmt.Errorf("marshalling AVM report data: %w", err)
	}
	if err := os.WriteFile(sample.DataPath, data, 0o644); err != nil {
		return nil, fmt.Errorf("writing AVM report data: %w", err)
	}

	html, err := Render(report)
	if err != nil {
		return nil, err
	}
	if err := SelfCheck(html, report); err != nil {
		return nil, err
	}
	if err := os.WriteFile(sample.HTMLPath, []byte(html), 0o644); err != nil {
		return nil, fmt.Errorf("writing AVM HTML: %w", err)
	}

	if err := g.RenderPDF(ctx, sample.HTMLPath, sample.PDFPath); err != nil {
		return nil, err
	}

	if g.Rasterizer != nil {
		images, err := g.Rasterizer.Rasterize(ctx, sample.PDFPath, filepath.Join(outputDir, "images"))
		if err != nil {
			return nil, err
		}
		sample.Images = images
	}
	return sample, nil
}
