// Package types defines the shared data structures exchanged between the
// generation, matching, validation, and reporting stages.
package types

import "sort"

// FieldSpec describes one AcroForm field extracted from a PDF template.
// FieldType uses the PDF type names ("/Tx" for text, "/Btn" for buttons).
// PossibleValues lists the enumerated states of button fields.
type FieldSpec struct {
	FieldType      string   `json:"field_type"`
	PossibleValues []string `json:"possible_values,omitempty"`
}

// FieldMapping maps canonical field identifiers (dot-path strings such as
// "topmostSubform[0].Page1[0].f1_01[0]") to their specs. It is extracted once
// from a PDF template and treated as immutable: its keys are the ground-truth
// vocabulary for all later matching.
type FieldMapping map[string]FieldSpec

// TypedFieldCount returns the number of fields with a declared field type.
// Only typed fields receive synthetic data.
func (m FieldMapping) TypedFieldCount() int {
	n := 0
	for _, spec := range m {
		if spec.FieldType != "" {
			n++
		}
	}
	return n
}

// TypedFields returns the canonical ids of all fields with a declared type,
// sorted for deterministic iteration.
func (m FieldMapping) TypedFields() []string {
	keys := make([]string, 0, len(m))
	for k, spec := range m {
		if spec.FieldType != "" {
			keys = append(keys, k)
		}
	}
	sort.Strings(keys)
	return keys
}

// Subset returns a new FieldMapping restricted to the given keys.
func (m FieldMapping) Subset(keys []string) FieldMapping {
	sub := make(FieldMapping, len(keys))
	for _, k := range keys {
		if spec, ok := m[k]; ok {
			sub[k] = spec
		}
	}
	return sub
}

// Labels maps canonical field identifiers to human-readable labels. Unlike
// FieldMapping it is mutable: the validation loop replaces it wholesale with
// corrected versions, and later samples see the corrected labels.
type Labels map[string]string

// Subset returns a new Labels map restricted to the given keys.
func (l Labels) Subset(keys []string) Labels {
	sub := make(Labels, len(keys))
	for _, k := range keys {
		if v, ok := l[k]; ok {
			sub[k] = v
		}
	}
	return sub
}

// Clone returns a shallow copy.
func (l Labels) Clone() Labels {
	out := make(Labels, len(l))
	for k, v := range l {
		out[k] = v
	}
	return out
}

// Equal reports whether two label maps hold identical entries.
func (l Labels) Equal(other Labels) bool {
	if len(l) != len(other) {
		return false
	}
	for k, v := range l {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
