package validate

import (
	_ "embed"
)

// auditResultSchema constrains the audit model's JSON response before it is
// trusted to drive corrections.
//
//go:embed audit_result_schema.json
var auditResultSchema string
