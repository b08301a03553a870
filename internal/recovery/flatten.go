package recovery

import (
	"encoding/json"
	"strings"
)

// Value is either a scalar leaf or a nested object. The audit and generation
// models return the same payload sometimes flat and sometimes nested one or
// more levels deep; modeling both shapes as one sum type lets Flatten
// normalize them without runtime shape probing.
type Value struct {
	Node map[string]Value
	Leaf string
}

// UnmarshalJSON decodes an object into Node and any scalar into Leaf. Scalars
// keep their JSON text form except strings, which are unquoted. Arrays are
// kept as their compact JSON text; forms have no array-valued fields, so this
// only preserves diagnostics.
func (v *Value) UnmarshalJSON(data []byte) error {
	trimmed := strings.TrimSpace(string(data))
	if strings.HasPrefix(trimmed, "{") {
		return json.Unmarshal(data, &v.Node)
	}
	if strings.HasPrefix(trimmed, "\"") {
		return json.Unmarshal(data, &v.Leaf)
	}
	if trimmed == "null" {
		v.Leaf = ""
		return nil
	}
	v.Leaf = trimmed
	return nil
}

// IsNode reports whether the value is a nested object.
func (v Value) IsNode() bool {
	return v.Node != nil
}

// Flatten collapses nested values into a flat map with dotted-path keys
// (parent.child...). Empty nested objects are dropped. Flattening an
// already-flat map returns it unchanged.
func Flatten(data map[string]Value) map[string]string {
	out := make(map[string]string, len(data))
	flattenInto(out, data, "")
	return out
}

func flattenInto(out map[string]string, data map[string]Value, prefix string) {
	for key, value := range data {
		path := key
		if prefix != "" {
			path = prefix + "." + key
		}
		if value.IsNode() {
			flattenInto(out, value.Node, path)
			continue
		}
		out[path] = value.Leaf
	}
}
