package pdfform

import (
	"fmt"
	"mime"
	"os"
	"path/filepath"
)

// minOverlayImageSize is the size below which an overlay page image is
// unlikely to contain visible field markers.
const minOverlayImageSize = 10_000

// Page is one rendered page image loaded into memory.
type Page struct {
	Name     string
	MIMEType string
	Data     []byte
}

// ReadPages loads rendered page images in the given order.
func ReadPages(paths []string) ([]Page, error) {
	pages := make([]Page, 0, len(paths))
	for _, path := range paths {
		data, err := os.ReadFile(path)
		if err != nil {
			return nil, fmt.Errorf("failed to read page image %s: %w", path, err)
		}
		mimeType := mime.TypeByExtension(filepath.Ext(path))
		if mimeType == "" {
			mimeType = "image/jpeg"
		}
		pages = append(pages, Page{
			Name:     filepath.Base(path),
			MIMEType: mimeType,
			Data:     data,
		})
	}
	return pages, nil
}

// ValidateOverlayImages returns the rendered overlay pages that look blank.
// A page under 10KB almost certainly lost its field name markers, which
// would leave the labeling model without a field location map.
func ValidateOverlayImages(paths []string) []string {
	var suspicious []string
	for _, path := range paths {
		info, err := os.Stat(path)
		if err != nil || info.Size() < minOverlayImageSize {
			suspicious = append(suspicious, path)
		}
	}
	return suspicious
}
