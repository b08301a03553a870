package pdfform

import (
	"fmt"
	"sort"

	"github.com/pdfcpu/pdfcpu/pkg/api"
	"github.com/pdfcpu/pdfcpu/pkg/pdfcpu/model"
	pdftypes "github.com/pdfcpu/pdfcpu/pkg/pdfcpu/types"

	"github.com/daniel/formsynth/internal/types"
)

// AcroExtractor extracts form fields using pdfcpu.
type AcroExtractor struct{}

// NewAcroExtractor creates a form field extractor.
func NewAcroExtractor() *AcroExtractor {
	return &AcroExtractor{}
}

// Extract walks the AcroForm field tree and returns every named field keyed
// by its fully qualified dot-path name. Button fields carry the appearance
// states their widgets accept.
func (e *AcroExtractor) Extract(pdfPath string) (types.FieldMapping, error) {
	ctx, err := api.ReadContextFile(pdfPath)
	if err != nil {
		return nil, fmt.Errorf("failed to read PDF %s: %w", pdfPath, err)
	}

	fields, err := acroFormFields(ctx)
	if err != nil {
		return nil, err
	}

	mapping := make(types.FieldMapping)
	if fields != nil {
		e.walk(ctx, fields, "", mapping)
	}
	return mapping, nil
}

// acroFormFields returns the top-level Fields array, or nil when the
// document carries no AcroForm.
func acroFormFields(ctx *model.Context) (pdftypes.Array, error) {
	rootDict, err := ctx.Catalog()
	if err != nil {
		return nil, fmt.Errorf("failed to get catalog: %w", err)
	}

	acroFormObj, found := rootDict.Find("AcroForm")
	if !found {
		return nil, nil
	}
	acroFormDict, err := ctx.DereferenceDict(acroFormObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference AcroForm: %w", err)
	}
	if acroFormDict == nil {
		return nil, nil
	}

	fieldsObj, found := acroFormDict.Find("Fields")
	if !found {
		return nil, nil
	}
	fieldsArray, err := ctx.DereferenceArray(fieldsObj)
	if err != nil {
		return nil, fmt.Errorf("failed to dereference Fields array: %w", err)
	}
	return fieldsArray, nil
}

func (e *AcroExtractor) walk(ctx *model.Context, fields pdftypes.Array, prefix string, mapping types.FieldMapping) {
	for _, fieldRef := range fields {
		fieldDict, err := ctx.DereferenceDict(fieldRef)
		if err != nil || fieldDict == nil {
			continue
		}

		name, named := fieldName(ctx, fieldDict, prefix)
		fieldType := e.fieldType(ctx, fieldDict)

		kidsObj, hasKids := fieldDict.Find("Kids")
		if hasKids && fieldType == "" {
			// Intermediate node: descend with the extended prefix.
			if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
				e.walk(ctx, kids, name, mapping)
			}
			continue
		}

		if !named {
			continue
		}

		spec := types.FieldSpec{FieldType: fieldType}
		if fieldType == "/Btn" {
			spec.PossibleValues = e.buttonStates(ctx, fieldDict)
		}
		mapping[name] = spec
	}
}

// fieldName resolves the partial name (T) against the parent prefix. The
// second return is false for unnamed dicts such as bare widget annotations.
func fieldName(ctx *model.Context, fieldDict pdftypes.Dict, prefix string) (string, bool) {
	tObj, found := fieldDict.Find("T")
	if !found {
		return prefix, false
	}
	partial, err := ctx.DereferenceStringOrHexLiteral(tObj, model.V10, nil)
	if err != nil || partial == "" {
		return prefix, false
	}
	if prefix == "" {
		return partial, true
	}
	return prefix + "." + partial, true
}

// fieldType returns the PDF field type name ("/Tx", "/Btn", "/Ch", "/Sig"),
// following the Parent chain for inherited types.
func (e *AcroExtractor) fieldType(ctx *model.Context, fieldDict pdftypes.Dict) string {
	ftObj, found := fieldDict.Find("FT")
	if !found {
		if parentObj, found := fieldDict.Find("Parent"); found {
			if parentDict, err := ctx.DereferenceDict(parentObj); err == nil && parentDict != nil {
				return e.fieldType(ctx, parentDict)
			}
		}
		return ""
	}

	ftName, err := ctx.DereferenceName(ftObj, model.V10, nil)
	if err != nil {
		return ""
	}
	return "/" + string(ftName)
}

// buttonStates collects the appearance state names a button field accepts,
// scanning the field's own widget and any widget kids.
func (e *AcroExtractor) buttonStates(ctx *model.Context, fieldDict pdftypes.Dict) []string {
	states := make(map[string]struct{})
	e.collectStates(ctx, fieldDict, states)

	if kidsObj, found := fieldDict.Find("Kids"); found {
		if kids, err := ctx.DereferenceArray(kidsObj); err == nil {
			for _, kidRef := range kids {
				if kidDict, err := ctx.DereferenceDict(kidRef); err == nil && kidDict != nil {
					e.collectStates(ctx, kidDict, states)
				}
			}
		}
	}

	if len(states) == 0 {
		return nil
	}
	out := make([]string, 0, len(states))
	for s := range states {
		out = append(out, "/"+s)
	}
	sort.Strings(out)
	return out
}

func (e *AcroExtractor) collectStates(ctx *model.Context, widgetDict pdftypes.Dict, states map[string]struct{}) {
	apObj, found := widgetDict.Find("AP")
	if !found {
		return
	}
	apDict, err := ctx.DereferenceDict(apObj)
	if err != nil || apDict == nil {
		return
	}

	for _, key := range []string{"N", "D"} {
		streamObj, found := apDict.Find(key)
		if !found {
			continue
		}
		if stateDict, err := ctx.DereferenceDict(streamObj); err == nil && stateDict != nil {
			for state := range stateDict {
				states[state] = struct{}{}
			}
		}
	}
}
