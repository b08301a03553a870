package types

// FieldValue holds one generated value together with the canonical field it
// targets. FieldType is carried along so the filler can choose between text
// and button handling without a second mapping lookup.
type FieldValue struct {
	FieldName  string `json:"field_name"`
	FieldType  string `json:"field_type"`
	FieldValue string `json:"field_value"`
}

// Record is one complete synthetic data sample, keyed by human-readable
// label. Labels are unique within a sample but not across document types.
// Records are regenerated wholesale, never patched field by field.
type Record map[string]FieldValue

// HasValues reports whether the record contains at least one field with a
// populated value. Regenerated records that fail this check are rejected and
// the previous record is kept.
func (r Record) HasValues() bool {
	for _, fv := range r {
		if fv.FieldValue != "" {
			return true
		}
	}
	return false
}

// Equal reports structural identity with another record. Identical
// regenerations skip the PDF refill but still consume a retry attempt.
func (r Record) Equal(other Record) bool {
	if len(r) != len(other) {
		return false
	}
	for k, v := range r {
		if ov, ok := other[k]; !ok || ov != v {
			return false
		}
	}
	return true
}
