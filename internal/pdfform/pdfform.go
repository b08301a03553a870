// Package pdfform reads, fills, and renders AcroForm PDF templates. Field
// extraction and filling are built on pdfcpu; page rasterization shells out
// to pdftoppm.
package pdfform

import (
	"context"

	"github.com/daniel/formsynth/internal/types"
)

// Extractor reads the AcroForm field vocabulary from a PDF template.
type Extractor interface {
	Extract(pdfPath string) (types.FieldMapping, error)
}

// Filler writes a generated record into a copy of the PDF template.
type Filler interface {
	Fill(inputPath, outputPath string, record types.Record) error
}

// Overlayer writes a copy of the template where every field shows its own
// technical name as a visual marker.
type Overlayer interface {
	WriteOverlay(inputPath, outputPath string, fontSize int) error
}

// Rasterizer renders each page of a PDF to an image file and returns the
// image paths in page order.
type Rasterizer interface {
	Rasterize(ctx context.Context, pdfPath, outputDir string) ([]string, error)
}
