package pdfform

import (
	"context"
	"fmt"
	"os"
	"os/exec"
	"path/filepath"
	"sort"
	"strconv"
	"strings"
	"time"
)

const (
	// RasterizeTimeout is the maximum time to wait for page rendering.
	RasterizeTimeout = 120 * time.Second

	// DefaultRasterDPI matches the resolution the auditing model reads
	// small field markers at.
	DefaultRasterDPI = 200
)

// PopplerRasterizer renders PDF pages to JPEG images via pdftoppm.
type PopplerRasterizer struct {
	DPI     int
	Timeout time.Duration
}

// NewPopplerRasterizer creates a rasterizer with default resolution.
func NewPopplerRasterizer() *PopplerRasterizer {
	return &PopplerRasterizer{DPI: DefaultRasterDPI, Timeout: RasterizeTimeout}
}

// Rasterize renders every page of the PDF into outputDir and returns the
// image paths in page order.
func (r *PopplerRasterizer) Rasterize(ctx context.Context, pdfPath, outputDir string) ([]string, error) {
	if _, err := exec.LookPath("pdftoppm"); err != nil {
		return nil, &RasterizeError{
			Message: "pdftoppm not found in PATH. Please install poppler-utils",
			Cause:   err,
		}
	}

	if err := os.MkdirAll(outputDir, 0755); err != nil {
		return nil, &RasterizeError{
			Message: fmt.Sprintf("failed to create image directory: %s", outputDir),
			Cause:   err,
		}
	}

	timeout := r.Timeout
	if timeout <= 0 {
		timeout = RasterizeTimeout
	}
	ctx, cancel := context.WithTimeout(ctx, timeout)
	defer cancel()

	dpi := r.DPI
	if dpi <= 0 {
		dpi = DefaultRasterDPI
	}

	prefix := filepath.Join(outputDir, "page")
	cmd := exec.CommandContext(ctx, "pdftoppm", "-jpeg", "-r", strconv.Itoa(dpi), pdfPath, prefix)

	var output strings.Builder
	cmd.Stdout = &output
	cmd.Stderr = &output

	if err := cmd.Run(); err != nil {
		return nil, &RasterizeError{
			Message:   fmt.Sprintf("pdftoppm failed for %s", pdfPath),
			LogOutput: output.String(),
			Cause:     err,
		}
	}

	matches, err := filepath.Glob(prefix + "-*.jpg")
	if err != nil {
		return nil, &RasterizeError{Message: "failed to list rendered pages", Cause: err}
	}
	if len(matches) == 0 {
		return nil, &RasterizeError{
			Message:   fmt.Sprintf("no pages rendered for %s", pdfPath),
			LogOutput: output.String(),
		}
	}

	return sortPages(matches), nil
}

// sortPages orders pdftoppm output files by their numeric page suffix so
// page-10 sorts after page-9, not after page-1.
func sortPages(paths []string) []string {
	sorted := make([]string, len(paths))
	copy(sorted, paths)
	sort.Slice(sorted, func(i, j int) bool {
		ni, iok := pageNumber(sorted[i])
		nj, jok := pageNumber(sorted[j])
		if iok && jok && ni != nj {
			return ni < nj
		}
		return sorted[i] < sorted[j]
	})
	return sorted
}

// pageNumber extracts the page index from a pdftoppm output name such as
// "page-12.jpg".
func pageNumber(path string) (int, bool) {
	base := strings.TrimSuffix(filepath.Base(path), filepath.Ext(path))
	idx := strings.LastIndex(base, "-")
	if idx < 0 {
		return 0, false
	}
	n, err := strconv.Atoi(base[idx+1:])
	if err != nil {
		return 0, false
	}
	return n, true
}
