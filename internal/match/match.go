// Package match resolves model-returned field keys onto the canonical field
// vocabulary extracted from a PDF template.
package match

import (
	"sort"
	"strings"

	"github.com/daniel/formsynth/internal/types"
)

// fuzzyThreshold is the exact-match coverage below which label remapping
// falls back to suffix matching.
const fuzzyThreshold = 0.7

// Result is the outcome of building a record from a flat response. Warnings
// hold the keys that could not be matched to any canonical id; unmatched
// fields are dropped, never fatal.
type Result struct {
	Record   types.Record
	Warnings []string
}

// BuildRecord maps a flat response of (possibly imprecise) field keys to
// values onto a Record keyed by human-readable label. Exact canonical-id
// matches are used as-is; otherwise any canonical key that ends with or
// contains the returned key is accepted. Ties break to the first match over
// canonical keys in ascending order, which is deterministic and normally
// unambiguous since field suffixes like f1_01 are unique within a form.
func BuildRecord(response map[string]string, mapping types.FieldMapping, labels types.Labels) Result {
	canonical := sortedKeys(labels)

	res := Result{Record: make(types.Record, len(response))}
	for _, key := range sortedKeys(response) {
		value := response[key]

		fieldName := key
		label, ok := labels[fieldName]
		if !ok {
			fieldName = fuzzyResolve(key, canonical)
			if fieldName == "" {
				res.Warnings = append(res.Warnings, key)
				continue
			}
			label = labels[fieldName]
		}

		fieldType := "N/A"
		if spec, ok := mapping[fieldName]; ok && spec.FieldType != "" {
			fieldType = spec.FieldType
		}

		res.Record[label] = types.FieldValue{
			FieldName:  fieldName,
			FieldType:  fieldType,
			FieldValue: value,
		}
	}
	return res
}

// fuzzyResolve finds the first canonical key that ends with or contains the
// returned key. Models often return truncated ids like "f1_01[0]" where the
// canonical id is "topmostSubform[0].Page1[0].f1_01[0]".
func fuzzyResolve(key string, canonical []string) string {
	for _, full := range canonical {
		if strings.HasSuffix(full, key) || strings.Contains(full, key) {
			return full
		}
	}
	return ""
}

// RemapLabels filters a model-returned label map down to keys present in the
// field mapping. When fewer than 70% of the returned keys match exactly, a
// suffix pass keyed on the final dot segment (fields prefixed "f" or "c")
// recovers labels the model returned under shortened names.
func RemapLabels(response map[string]string, mapping types.FieldMapping) types.Labels {
	remapped := make(types.Labels, len(response))
	for key, label := range response {
		if _, ok := mapping[key]; ok {
			remapped[key] = label
		}
	}

	if len(response) == 0 || float64(len(remapped)) >= float64(len(response))*fuzzyThreshold {
		return remapped
	}

	suffixToFull := make(map[string]string)
	for _, full := range sortedKeys(mapping) {
		if suffix, ok := fieldSuffix(full); ok {
			if _, seen := suffixToFull[suffix]; !seen {
				suffixToFull[suffix] = full
			}
		}
	}

	for _, key := range sortedKeys(response) {
		if _, done := remapped[key]; done {
			continue
		}
		if suffix, ok := fieldSuffix(key); ok {
			if full, found := suffixToFull[suffix]; found {
				remapped[full] = response[key]
			}
		}
	}
	return remapped
}

// fieldSuffix returns the final dot segment of a canonical id when it looks
// like a widget field name (prefixed "f" or "c").
func fieldSuffix(key string) (string, bool) {
	parts := strings.Split(key, ".")
	last := parts[len(parts)-1]
	if strings.HasPrefix(last, "f") || strings.HasPrefix(last, "c") {
		return last, true
	}
	return "", false
}

func sortedKeys[V any](m map[string]V) []string {
	keys := make([]string, 0, len(m))
	for k := range m {
		keys = append(keys, k)
	}
	sort.Strings(keys)
	return keys
}
