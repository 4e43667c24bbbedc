package util

import (
	"fmt"
	"reflect"
	"strconv"
	"strings"
)

// ValidationError describes a parameter that failed validation.
type ValidationError struct {
	Field   string `json:"field"`
	Value   string `json:"value,omitempty"`
	Message string `json:"message"`
	// Missing is set when a required parameter was absent.
	Missing bool `json:"missing,omitempty"`
}

// Error implements the error interface for ValidationError.
func (e *ValidationError) Error() string {
	return fmt.Sprintf("validation error for field '%s': %s", e.Field, e.Message)
}

// CreateSchema derives a JSON schema from the exported fields of a struct.
// Field names come from the json tag, hints from the description tag. A field
// is required unless it is a pointer or tagged omitempty.
func CreateSchema(structType any) map[string]any {
	properties := map[string]any{}
	schema := map[string]any{"type": "object", "properties": properties}

	t := reflect.TypeOf(structType)
	if t != nil && t.Kind() == reflect.Pointer {
		t = t.Elem()
	}
	if t == nil || t.Kind() != reflect.Struct {
		return schema
	}

	var required []string
	for i := range t.NumField() {
		f := t.Field(i)
		name, optional, ok := fieldName(f)
		if !ok {
			continue
		}

		prop := map[string]any{"type": jsonType(f.Type)}
		if d := f.Tag.Get("description"); d != "" {
			prop["description"] = d
		}
		properties[name] = prop

		if !optional {
			required = append(required, name)
		}
	}
	if len(required) > 0 {
		schema["required"] = required
	}
	return schema
}

// fieldName resolves the parameter name of f and whether it may be omitted.
func fieldName(f reflect.StructField) (name string, optional, ok bool) {
	if !f.IsExported() {
		return "", false, false
	}
	tag := f.Tag.Get("json")
	if tag == "-" {
		return "", false, false
	}

	name, opts, _ := strings.Cut(tag, ",")
	if name == "" {
		name = f.Name
	}
	optional = f.Type.Kind() == reflect.Pointer
	for _, o := range strings.Split(opts, ",") {
		if strings.TrimSpace(o) == "omitempty" {
			optional = true
		}
	}
	return name, optional, true
}

func jsonType(t reflect.Type) string {
	switch t.Kind() {
	case reflect.Pointer:
		return jsonType(t.Elem())
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64,
		reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return "integer"
	case reflect.Float32, reflect.Float64:
		return "number"
	case reflect.Bool:
		return "boolean"
	default:
		return "string"
	}
}

// ValidateParameters checks raw text parameters against a schema: every
// required field must be present, and values of integer, number or boolean
// properties must parse as such. Unknown parameters are allowed.
func ValidateParameters(params map[string]string, schema map[string]any) error {
	for _, name := range requiredFields(schema) {
		if _, ok := params[name]; !ok {
			return &ValidationError{Field: name, Message: "required field is missing", Missing: true}
		}
	}

	properties, _ := schema["properties"].(map[string]any)
	for name, value := range params {
		prop, _ := properties[name].(map[string]any)
		typ, _ := prop["type"].(string)
		if !parses(value, typ) {
			return &ValidationError{
				Field:   name,
				Value:   value,
				Message: fmt.Sprintf("expected %s, got %q", typ, value),
			}
		}
	}
	return nil
}

// requiredFields reads the "required" list whether it was built in Go
// ([]string) or decoded from JSON ([]any).
func requiredFields(schema map[string]any) []string {
	switch req := schema["required"].(type) {
	case []string:
		return req
	case []any:
		out := make([]string, 0, len(req))
		for _, r := range req {
			if s, ok := r.(string); ok {
				out = append(out, s)
			}
		}
		return out
	default:
		return nil
	}
}

func parses(value, typ string) bool {
	v := strings.TrimSpace(value)
	var err error
	switch typ {
	case "integer":
		_, err = strconv.ParseInt(v, 10, 64)
	case "number":
		_, err = strconv.ParseFloat(v, 64)
	case "boolean":
		_, err = strconv.ParseBool(v)
	}
	return err == nil
}
