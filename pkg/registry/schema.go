package registry

import (
	"encoding/json"
	"fmt"
	"strconv"
	"strings"

	"github.com/xeipuuv/gojsonschema"
)

// FieldKind tells editors how to render a parameter and the engine how to
// coerce it.
type FieldKind string

const (
	KindString    FieldKind = "string"
	KindNumber    FieldKind = "number"
	KindBoolean   FieldKind = "boolean"
	KindCSVList   FieldKind = "csv-list"
	KindJSON      FieldKind = "json"
	KindMultiline FieldKind = "multiline"
)

// FieldSchema declares one parameter of an action type.
type FieldSchema struct {
	Key         string    `json:"key"`
	Kind        FieldKind `json:"kind"`
	Required    bool      `json:"required"`
	Description string    `json:"description,omitempty"`

	// Enum restricts string fields to a fixed value set.
	Enum []string `json:"enum,omitempty"`

	// JSONSchema validates json-kind fields beyond well-formedness.
	JSONSchema map[string]any `json:"json_schema,omitempty"`
}

// ActionSchema declares an action type: its fields plus an optional
// cross-field rule that single-field coercion cannot express.
type ActionSchema struct {
	Type        string        `json:"type"`
	Description string        `json:"description,omitempty"`
	Fields      []FieldSchema `json:"fields"`

	CrossField func(params map[string]any) error `json:"-"`
}

// Validate checks params against the schema and returns the coerced map.
// It fails fast on the first offending field, naming it in the error.
func (s ActionSchema) Validate(params map[string]any) (map[string]any, error) {
	known := make(map[string]FieldSchema, len(s.Fields))
	for _, f := range s.Fields {
		known[f.Key] = f
	}

	for key := range params {
		if _, ok := known[key]; !ok {
			return nil, fmt.Errorf("unknown param '%s' for action %s", key, s.Type)
		}
	}

	out := make(map[string]any, len(params))

	for _, f := range s.Fields {
		raw, present := params[f.Key]
		if !present || raw == nil {
			if f.Required {
				return nil, fmt.Errorf("param '%s' is required for action %s", f.Key, s.Type)
			}

			continue
		}

		value, err := f.coerce(raw)
		if err != nil {
			return nil, fmt.Errorf("param '%s': %w", f.Key, err)
		}

		out[f.Key] = value
	}

	if s.CrossField != nil {
		if err := s.CrossField(out); err != nil {
			return nil, err
		}
	}

	return out, nil
}

func (f FieldSchema) coerce(raw any) (any, error) {
	switch f.Kind {
	case KindString, KindMultiline:
		str, ok := raw.(string)
		if !ok {
			return nil, fmt.Errorf("expected a string, got %T", raw)
		}

		if f.Required && strings.TrimSpace(str) == "" {
			return nil, fmt.Errorf("must not be empty")
		}

		if len(f.Enum) > 0 && !contains(f.Enum, str) {
			return nil, fmt.Errorf("must be one of %s", strings.Join(f.Enum, ", "))
		}

		return str, nil
	case KindNumber:
		return coerceNumber(raw)
	case KindBoolean:
		return coerceBool(raw)
	case KindCSVList:
		list, err := coerceList(raw)
		if err != nil {
			return nil, err
		}

		if f.Required && len(list) == 0 {
			return nil, fmt.Errorf("must list at least one value")
		}

		return list, nil
	case KindJSON:
		return f.coerceJSON(raw)
	default:
		return nil, fmt.Errorf("unknown field kind '%s'", f.Kind)
	}
}

func coerceNumber(raw any) (float64, error) {
	switch v := raw.(type) {
	case float64:
		return v, nil
	case int:
		return float64(v), nil
	case json.Number:
		return v.Float64()
	case string:
		n, err := strconv.ParseFloat(strings.TrimSpace(v), 64)
		if err != nil {
			return 0, fmt.Errorf("'%s' is not a number", v)
		}

		return n, nil
	default:
		return 0, fmt.Errorf("expected a number, got %T", raw)
	}
}

func coerceBool(raw any) (bool, error) {
	switch v := raw.(type) {
	case bool:
		return v, nil
	case string:
		switch strings.ToLower(strings.TrimSpace(v)) {
		case "true", "1", "yes":
			return true, nil
		case "false", "0", "no":
			return false, nil
		}

		return false, fmt.Errorf("'%s' is not a boolean", v)
	default:
		return false, fmt.Errorf("expected a boolean, got %T", raw)
	}
}

// coerceList accepts either a comma separated string or a list of strings,
// trimming entries and dropping empties.
func coerceList(raw any) ([]string, error) {
	switch v := raw.(type) {
	case string:
		return splitCSV(v), nil
	case []string:
		out := make([]string, 0, len(v))
		for _, item := range v {
			if item = strings.TrimSpace(item); item != "" {
				out = append(out, item)
			}
		}

		return out, nil
	case []any:
		out := make([]string, 0, len(v))

		for _, item := range v {
			str, ok := item.(string)
			if !ok {
				return nil, fmt.Errorf("list entries must be strings, got %T", item)
			}

			if str = strings.TrimSpace(str); str != "" {
				out = append(out, str)
			}
		}

		return out, nil
	default:
		return nil, fmt.Errorf("expected a comma separated string or list, got %T", raw)
	}
}

func (f FieldSchema) coerceJSON(raw any) (any, error) {
	var value any

	switch v := raw.(type) {
	case string:
		if err := json.Unmarshal([]byte(v), &value); err != nil {
			return nil, fmt.Errorf("invalid JSON: %w", err)
		}
	case map[string]any, []any:
		value = v
	default:
		return nil, fmt.Errorf("expected a JSON object, array, or string, got %T", raw)
	}

	if f.JSONSchema != nil {
		if err := validateJSONSchema(value, f.JSONSchema); err != nil {
			return nil, err
		}
	}

	return value, nil
}

func validateJSONSchema(value any, schema map[string]any) error {
	result, err := gojsonschema.Validate(gojsonschema.NewGoLoader(schema), gojsonschema.NewGoLoader(value))
	if err != nil {
		return err
	}

	if !result.Valid() {
		details := make([]string, 0, len(result.Errors()))
		for _, desc := range result.Errors() {
			details = append(details, desc.String())
		}

		return fmt.Errorf("schema validation failed: %s", strings.Join(details, "; "))
	}

	return nil
}

func splitCSV(raw string) []string {
	parts := strings.Split(raw, ",")
	out := make([]string, 0, len(parts))

	for _, part := range parts {
		if part = strings.TrimSpace(part); part != "" {
			out = append(out, part)
		}
	}

	return out
}

func contains(list []string, value string) bool {
	for _, item := range list {
		if item == value {
			return true
		}
	}

	return false
}
