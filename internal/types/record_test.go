package types

import (
	"testing"

	"github.com/stretchr/testify/assert"
)

func TestRecordHasValues(t *testing.T) {
	tests := []struct {
		name     string
		record   Record
		expected bool
	}{
		{
			name:     "Empty record",
			record:   Record{},
			expected: false,
		},
		{
			name: "Record with populated value",
			record: Record{
				"Wages": {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: "52000"},
			},
			expected: true,
		},
		{
			name: "Record with only empty values",
			record: Record{
				"Wages":    {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: ""},
				"Employer": {FieldName: "f1_02[0]", FieldType: "/Tx", FieldValue: ""},
			},
			expected: false,
		},
		{
			name: "Mixed empty and populated",
			record: Record{
				"Wages":    {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: ""},
				"Employer": {FieldName: "f1_02[0]", FieldType: "/Tx", FieldValue: "Acme Corp"},
			},
			expected: true,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.expected, tt.record.HasValues())
		})
	}
}

func TestRecordEqual(t *testing.T) {
	base := Record{
		"Wages": {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: "52000"},
	}

	assert.True(t, base.Equal(Record{
		"Wages": {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: "52000"},
	}))
	assert.False(t, base.Equal(Record{
		"Wages": {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: "53000"},
	}))
	assert.False(t, base.Equal(Record{}))
	assert.False(t, base.Equal(Record{
		"Salary": {FieldName: "f1_01[0]", FieldType: "/Tx", FieldValue: "52000"},
	}))
}

func TestFieldMappingTypedFields(t *testing.T) {
	mapping := FieldMapping{
		"form[0].f1_01[0]": {FieldType: "/Tx"},
		"form[0].c1_01[0]": {FieldType: "/Btn", PossibleValues: []string{"/1", "/Off"}},
		"form[0].decor[0]": {},
	}

	assert.Equal(t, 2, mapping.TypedFieldCount())
	assert.Equal(t, []string{"form[0].c1_01[0]", "form[0].f1_01[0]"}, mapping.TypedFields())

	sub := mapping.Subset([]string{"form[0].f1_01[0]"})
	assert.Len(t, sub, 1)
	assert.Equal(t, "/Tx", sub["form[0].f1_01[0]"].FieldType)
}

func TestLabelsEqualAndClone(t *testing.T) {
	labels := Labels{"a": "Label A", "b": "Label B"}

	clone := labels.Clone()
	assert.True(t, labels.Equal(clone))

	clone["a"] = "Changed"
	assert.False(t, labels.Equal(clone))
	assert.Equal(t, "Label A", labels["a"])
}
