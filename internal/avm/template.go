package avm

import (
	"bytes"
	_ "embed"
	"fmt"
	"html/template"
)

//go:embed report.html.tmpl
var reportTemplateText string

var reportTemplate = template.Must(template.New("avm-report").Parse(reportTemplateText))

// Render fills the embedded report template with one report's data.
func Render(report *Report) (string, error) {
	var buf bytes.Buffer
	if err := reportTemplate.Execute(&buf, report); err != nil {
		return "", fmt.Errorf("AVM template rendering failed: %w", err)
	}
	return buf.String(), nil
}
