// Package persona maintains the identity-field cache that keeps synthetic
// samples of one document describing a single consistent applicant.
package persona

import (
	"encoding/json"
	"fmt"
	"os"
	"strings"

	"github.com/daniel/formsynth/internal/types"
)

// identityKeywords classify a human-readable label as identity-bearing via
// case-insensitive substring match.
var identityKeywords = []string{
	"name", "ssn", "social security", "address", "city", "state", "zip",
	"employer", "dob", "date of birth", "policy", "property", "wages",
	"salary", "income", "ein", "phone",
}

// Extract pulls the identity-bearing fields out of a generated record.
func Extract(record types.Record) types.Persona {
	persona := make(types.Persona)
	for label, info := range record {
		if isIdentityLabel(label) {
			persona[label] = info.FieldValue
		}
	}
	return persona
}

func isIdentityLabel(label string) bool {
	lower := strings.ToLower(label)
	for _, kw := range identityKeywords {
		if strings.Contains(lower, kw) {
			return true
		}
	}
	return false
}

// Merge returns the right-biased union of two personas: keys in partial
// overwrite existing keys, every other key is retained. No key is ever
// removed, so the key set only grows across a batch.
func Merge(persona, partial types.Persona) types.Persona {
	merged := persona.Clone()
	for k, v := range partial {
		merged[k] = v
	}
	return merged
}

// Load reads a persisted persona file. A missing file yields an empty
// persona, not an error: each variant slot starts fresh on its first run.
func Load(path string) (types.Persona, error) {
	data, err := os.ReadFile(path)
	if os.IsNotExist(err) {
		return types.Persona{}, nil
	}
	if err != nil {
		return nil, fmt.Errorf("failed to read persona file %s: %w", path, err)
	}

	var persona types.Persona
	if err := json.Unmarshal(data, &persona); err != nil {
		return nil, fmt.Errorf("failed to parse persona file %s: %w", path, err)
	}
	return persona, nil
}

// Save persists the persona. Saved after every merge so a crash never loses
// accepted identity fields.
func Save(path string, persona types.Persona) error {
	data, err := json.MarshalIndent(persona, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode persona: %w", err)
	}
	if err := os.WriteFile(path, data, 0644); err != nil {
		return fmt.Errorf("failed to write persona file %s: %w", path, err)
	}
	return nil
}
