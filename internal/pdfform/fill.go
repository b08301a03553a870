package pdfform

import (
	"fmt"
	"strings"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/daniel/formsynth/internal/types"
)

// AcroFiller fills form fields using pdfcpu.
type AcroFiller struct{}

// NewAcroFiller creates a form filler.
func NewAcroFiller() *AcroFiller {
	return &AcroFiller{}
}

// fillTarget is one value addressed by the last segment of its field name,
// which matches the partial name (T) on the leaf field dict.
type fillTarget struct {
	fieldType string
	value     string
}

// fillTargets indexes a record by the last dot segment of each field name.
func fillTargets(record types.Record) map[string]fillTarget {
	targets := make(map[string]fillTarget, len(record))
	for _, fv := range record {
		parts := strings.Split(fv.FieldName, ".")
		partial := parts[len(parts)-1]
		targets[partial] = fillTarget{fieldType: fv.FieldType, value: fv.FieldValue}
	}
	return targets
}

// Fill writes the record's values into a copy of the template. Text fields
// get a new V with their appearance stream cleared so viewers regenerate it;
// button fields get V and AS set to the chosen appearance state.
func (f *AcroFiller) Fill(inputPath, outputPath string, record types.Record) error {
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

	f.apply(ctx, fields, fillTargets(record))

	if err := setNeedAppearances(ctx); err != nil {
		return err
	}
	if err := api.WriteContextFile(ctx, outputPath); err != nil {
		return fmt.Errorf("failed to write filled PDF %s: %w", outputPath, err)
	}
	return nil
}

func (f *AcroFiller) apply(ctx *model.Context, fields pdftypes.Array, targets map[string]fillTarget) {
	for _, fieldRef := range fields {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}

		if tObj, found := fieldDict.Find("T"); found {
			if partial, err := ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil); err == nil {
				if target, ok := targets[partial]; ok {
					f.setValue(ctx, fieldDict, target)
				}
			}
		}

		if kidsObj, found := fieldDict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				f.apply(ctx, kids, targets)
			}
		}
	}
}

func (f *AcroFiller) setValue(ctx *model.Context, fieldDict pdftypes.Dict, target fillTarget) {
	switch target.fieldType {
	case "/Btn":
		state := pdftypes.Name(strings.TrimPrefix(target.value, "/"))
		fieldDict["V"] = state
		fieldDict["AS"] = state
		// Radio groups carry the appearance state on their widget kids.
		if kidsObj, found := fieldDict.Find("Kids"); found {
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				for _, kidRef := range kids {
					if kidDict, err := ctx.DereferenceDict(kidRef); err == nil && kidDict != nil {
						kidDict["AS"] = state
					}
				}
			}
		}
	default:
		fieldDict["V"] = pdftypes.StringLiteral(target.value)
		delete(fieldDict, "AP")
	}
}

// setNeedAppearances asks viewers to regenerate field appearance streams,
// which makes cleared text appearances render with the new values.
func setNeedAppearances(ctx *model.Context) error {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return fmt.Errorf("failed to get catalog: %w", err)
	}
	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil || acroFormDict == nil {
		return nil
	}
	acroFormDict["NeedAppearances"] = pdftypes.Boolean(true)
	return nil
}
