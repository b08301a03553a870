// Package config provides configuration loading and validation for the CLI.
package config

import (
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
)

// Config represents the CLI configuration that can be loaded from a JSON file.
// All fields are optional; missing values use defaults or must be provided via CLI flags.
type Config struct {
	// Paths
	InputPDF  string `json:"input_pdf,omitempty"`       // Single PDF template to process
	BatchDir  string `json:"batch_directory,omitempty"` // Directory of PDFs to process in batch
	OutputDir string `json:"output_directory,omitempty"`

	// Generation
	Variants      int `json:"number_of_variants,omitempty"` // Samples to generate per template
	FieldFontSize int `json:"field_font_size,omitempty"`    // Font size for field-name overlay markers

	// Validation
	DisableValidation bool `json:"disable_validation,omitempty"`
	MaxRetries        int  `json:"max_retries,omitempty"` // Correction rounds after the first failed audit

	// Model provider
	Provider string `json:"provider,omitempty"` // "gemini" or "openai"
	APIKey   string `json:"api_key,omitempty"`
	BaseURL  string `json:"base_url,omitempty"` // Endpoint override for Azure OpenAI deployments

	// Behavior
	Verbose bool `json:"verbose,omitempty"` // Print detailed debug information
}

// LoadConfig loads configuration from a JSON file.
// Returns an error if the file cannot be read or parsed.
func LoadConfig(path string) (*Config, error) {
	if path == "" {
		return nil, fmt.Errorf("config path is empty")
	}

	// Resolve path relative to current directory if not absolute
	if !filepath.IsAbs(path) {
		cwd, err := os.Getwd()
		if err != nil {
			return nil, fmt.Errorf("failed to get current directory: %w", err)
		}
		path = filepath.Join(cwd, path)
	}

	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read config file %s: %w", path, err)
	}

	var cfg Config
	if err := json.Unmarshal(data, &cfg); err != nil {
		return nil, fmt.Errorf("failed to parse config JSON: %w", err)
	}

	return &cfg, nil
}

// Validate checks that the configuration has valid values.
// Note: This doesn't check for required fields since those are handled
// by CLI flag validation after merging.
func (c *Config) Validate() error {
	// Validate mutually exclusive fields
	if c.InputPDF != "" && c.BatchDir != "" {
		return fmt.Errorf("config error: 'input_pdf' and 'batch_directory' are mutually exclusive")
	}

	// Validate numeric ranges
	if c.Variants < 0 {
		return fmt.Errorf("config error: 'number_of_variants' must be non-negative")
	}
	if c.FieldFontSize < 0 {
		return fmt.Errorf("config error: 'field_font_size' must be non-negative")
	}
	if c.MaxRetries < 0 {
		return fmt.Errorf("config error: 'max_retries' must be non-negative")
	}

	if c.Provider != "" && c.Provider != "gemini" && c.Provider != "openai" {
		return fmt.Errorf("config error: unknown provider %q", c.Provider)
	}

	// Validate file paths exist (if specified)
	if c.InputPDF != "" {
		if _, err := os.Stat(c.InputPDF); os.IsNotExist(err) {
			return fmt.Errorf("config error: input PDF not found: %s", c.InputPDF)
		}
	}
	if c.BatchDir != "" {
		if _, err := os.Stat(c.BatchDir); os.IsNotExist(err) {
			return fmt.Errorf("config error: batch directory not found: %s", c.BatchDir)
		}
	}

	return nil
}

// MergeWithDefaults returns a new Config with empty string fields filled from defaults.
// This is used to apply config file values as defaults for CLI flags.
func (c *Config) MergeWithDefaults(defaults Config) Config {
	result := *c

	// String fields: use default if empty
	if result.InputPDF == "" {
		result.InputPDF = defaults.InputPDF
	}
	if result.BatchDir == "" {
		result.BatchDir = defaults.BatchDir
	}
	if result.OutputDir == "" {
		result.OutputDir = defaults.OutputDir
	}
	if result.Provider == "" {
		result.Provider = defaults.Provider
	}
	if result.APIKey == "" {
		result.APIKey = defaults.APIKey
	}
	if result.BaseURL == "" {
		result.BaseURL = defaults.BaseURL
	}

	// Int fields: use default if zero
	if result.Variants == 0 {
		result.Variants = defaults.Variants
	}
	if result.FieldFontSize == 0 {
		result.FieldFontSize = defaults.FieldFontSize
	}
	if result.MaxRetries == 0 {
		result.MaxRetries = defaults.MaxRetries
	}

	// Bool fields: cannot distinguish unset from false, so we don't merge
	// (CLI flags should always win for bools)

	return result
}
