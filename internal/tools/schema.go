package tools

import (
	"encoding/json"

	"github.com/google/jsonschema-go/jsonschema"

	"github.com/sgx-labs/notevault/internal/vaulterr"
)

// Schema constructors. Every tool schema is an inlined draft-7 style
// object with no $ref, so clients can render it directly.

func objSchema(props map[string]*jsonschema.Schema, required ...string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:       "object",
		Properties: props,
		Required:   required,
	}
}

func strSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "string", Description: desc}
}

func nonEmptyStrSchema(desc string) *jsonschema.Schema {
	one := 1
	return &jsonschema.Schema{Type: "string", Description: desc, MinLength: &one}
}

func enumSchema(desc string, values ...any) *jsonschema.Schema {
	return &jsonschema.Schema{Description: desc, Enum: values}
}

func intSchema(desc string, min, max float64) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "integer",
		Description: desc,
		Minimum:     &min,
		Maximum:     &max,
	}
}

func numSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "number", Description: desc}
}

func boolSchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{Type: "boolean", Description: desc}
}

func strArraySchema(desc string) *jsonschema.Schema {
	return &jsonschema.Schema{
		Type:        "array",
		Description: desc,
		Items:       &jsonschema.Schema{Type: "string"},
	}
}

// shimArgs is the Claude compatibility shim: clients sometimes send
// array-valued fields as JSON-encoded strings. If tags or links arrive
// as a string that parses to a JSON array, substitute the array. Any
// other shape is left for validation to reject.
func shimArgs(args map[string]any) map[string]any {
	for _, field := range []string{"tags", "links"} {
		s, ok := args[field].(string)
		if !ok {
			continue
		}
		var parsed any
		if err := json.Unmarshal([]byte(s), &parsed); err != nil {
			continue
		}
		if arr, ok := parsed.([]any); ok {
			args[field] = arr
		}
	}
	return args
}

// decodeArgs maps validated arguments onto a typed input struct.
func decodeArgs(args map[string]any, dst any) error {
	raw, err := json.Marshal(args)
	if err != nil {
		return vaulterr.Wrap(vaulterr.SchemaValidation, err, "encode arguments")
	}
	if err := json.Unmarshal(raw, dst); err != nil {
		return vaulterr.Wrap(vaulterr.SchemaValidation, err, "decode arguments")
	}
	return nil
}

// toStrings converts a validated JSON array to a string slice.
func toStrings(in []string) []string {
	if in == nil {
		return []string{}
	}
	return in
}
