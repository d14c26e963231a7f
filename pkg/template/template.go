// Package template renders {{dot.path}} placeholders in action parameters
// against the event payload that triggered the run.
package template

import (
	"fmt"
	"regexp"
	"strconv"
	"strings"

	"github.com/asklab/relay/pkg/models"
)

var placeholderRe = regexp.MustCompile(`\{\{\s*([a-zA-Z0-9_.-]+)\s*\}\}`)

// Render walks a parameter value and substitutes placeholders in every string
// it contains. Lists and maps recurse; unknown paths render as "".
func Render(value any, payload models.EventPayload) any {
	switch v := value.(type) {
	case string:
		return RenderString(v, payload)
	case []any:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = Render(item, payload)
		}

		return out
	case []string:
		out := make([]any, len(v))
		for i, item := range v {
			out[i] = RenderString(item, payload)
		}

		return out
	case map[string]any:
		out := make(map[string]any, len(v))
		for key, item := range v {
			out[key] = Render(item, payload)
		}

		return out
	default:
		return value
	}
}

// RenderParams renders a full params map, leaving the input untouched.
func RenderParams(params map[string]any, payload models.EventPayload) map[string]any {
	if params == nil {
		return map[string]any{}
	}

	rendered, _ := Render(params, payload).(map[string]any)

	return rendered
}

// HasPlaceholder reports whether the string contains at least one
// {{dot.path}} placeholder. Save-time validation uses this to defer
// type checks on templated values to dispatch time.
func HasPlaceholder(input string) bool {
	return placeholderRe.MatchString(input)
}

// RenderString substitutes every placeholder in one string.
func RenderString(input string, payload models.EventPayload) string {
	return placeholderRe.ReplaceAllStringFunc(input, func(match string) string {
		path := strings.TrimSpace(strings.Trim(match, "{}"))

		return extractPath(payload, path)
	})
}

// extractPath resolves a dot path inside nested payload maps, stringifying the
// leaf it lands on.
func extractPath(payload map[string]any, path string) string {
	var current any = payload

	for _, token := range strings.Split(path, ".") {
		if token == "" {
			continue
		}

		object, ok := current.(map[string]any)
		if !ok {
			if nested, isPayload := current.(models.EventPayload); isPayload {
				object = nested
			} else {
				return ""
			}
		}

		current = object[token]
	}

	if current == nil {
		return ""
	}

	switch v := current.(type) {
	case string:
		return v
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	default:
		return fmt.Sprintf("%v", v)
	}
}
