package pdfform

import (
	"fmt"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"
)

// DefaultOverlayFontSize keeps field name markers legible without spilling
// into neighboring fields.
const DefaultOverlayFontSize = 6

// OverlayWriter produces the reference PDF where every field displays its
// own technical name wrapped in curly brackets. The rendered pages give the
// auditing model a visual map of field locations.
type OverlayWriter struct{}

// NewOverlayWriter creates an overlay writer.
func NewOverlayWriter() *OverlayWriter {
	return &OverlayWriter{}
}

// WriteOverlay fills every named field with a "{fieldname}" marker, makes
// the fields read-only and clears their appearance streams so the markers
// render on rasterization.
func (o *OverlayWriter) WriteOverlay(inputPath, outputPath string, fontSize int) error {
	if fontSize <= 0 {
		fontSize = DefaultOverlayFontSize
	}

	ctx, err := api.ReadContextFile(inputPath)
	if err != nil {
		return fmt.Errorf("failed to read PDF %s: %w", inputPath, err)
	}

	fields, err := acroFormFields(ctx)
	if err != nil {
		return err
	}
	if fields == nil {
		return fmt.Errorf("no AcroForm fields in %s", inputPath)
	}

	o.mark(ctx, fields, fontSize)

	if err := setNeedAppearances(ctx); err != nil {
		return err
	}
	if err := api.WriteContextFile(ctx, outputPath); err != nil {
		return fmt.Errorf("failed to write overlay PDF %s: %w", outputPath, err)
	}
	return nil
}

func (o *OverlayWriter) mark(ctx *model.Context, fields pdftypes.Array, fontSize int) {
	for _, fieldRef := range fields {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}

		if tObj, found := fieldDict.Find("T"); found {
			if partial, err := ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil && partial != "" {
				fieldDict["V"] = pdftypes.StringLiteral(overlayMarker(partial))
				fieldDict["DA"] = pdftypes.StringLiteral(fmt.Sprintf("/Helv %d Tf 0 g", fontSize))
				fieldDict["Ff"] = pdftypes.Integer(1)
				delete(fieldDict, "AP")
			}
		}

		if kidsObj, found := fieldDict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				o.mark(ctx, kids, fontSize)
			}
		}
	}
}

// overlayMarker wraps a partial field name in the curly-bracket marker the
// audit prompt describes.
func overlayMarker(partial string) string {
	return "{" + partial + "}"
}
