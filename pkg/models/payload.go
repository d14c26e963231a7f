package models

import (
	"strconv"
	"strings"
)

// Well-known event payload keys published by the host application's chat
// pipeline and connector health checks.
const (
	PayloadQuestion         = "question"
	PayloadAnswer           = "answer"
	PayloadContent          = "content"
	PayloadMessage          = "message"
	PayloadChatID           = "chat_id"
	PayloadBranch           = "branch"
	PayloadUserID           = "user_id"
	PayloadProjectID        = "project_id"
	PayloadToolErrors       = "tool_errors"
	PayloadToolCalls        = "tool_calls"
	PayloadSourcesCount     = "sources_count"
	PayloadFailedConnectors = "failed_connectors"
	PayloadTotalConnectors  = "total_connectors"
	PayloadGrounded         = "grounded"
	PayloadPendingUserInput = "pending_user_input"
	PayloadLLMProvider      = "llm_provider"
	PayloadLLMModel         = "llm_model"
)

// EventPayload is the structured payload delivered with an application event.
// Known keys above carry the chat pipeline fields; producers may attach
// arbitrary extra keys, which templating can still reach by dot path.
type EventPayload map[string]any

// String returns the payload value coerced to a string, or "" when absent.
func (p EventPayload) String(key string) string {
	value, ok := p[key]
	if !ok || value == nil {
		return ""
	}

	switch v := value.(type) {
	case string:
		return v
	case bool:
		return strconv.FormatBool(v)
	case float64:
		return strconv.FormatFloat(v, 'f', -1, 64)
	case int:
		return strconv.Itoa(v)
	case int64:
		return strconv.FormatInt(v, 10)
	default:
		return ""
	}
}

// Int returns the payload value coerced to an int, or 0 when absent or
// non-numeric.
func (p EventPayload) Int(key string) int {
	switch v := p[key].(type) {
	case int:
		return v
	case int64:
		return int(v)
	case float64:
		return int(v)
	case string:
		n, err := strconv.Atoi(strings.TrimSpace(v))
		if err != nil {
			return 0
		}

		return n
	default:
		return 0
	}
}

// Bool returns the payload value coerced to a bool, false when absent.
func (p EventPayload) Bool(key string) bool {
	switch v := p[key].(type) {
	case bool:
		return v
	case string:
		return v == "true"
	default:
		return false
	}
}

// Clone returns a shallow copy so callers can attach run-scoped keys without
// mutating the producer's map.
func (p EventPayload) Clone() EventPayload {
	out := make(EventPayload, len(p))
	for k, v := range p {
		out[k] = v
	}

	return out
}

// Text joins the textual payload fields into one lowercase blob for keyword
// predicates.
func (p EventPayload) Text() string {
	parts := make([]string, 0, 4)

	for _, key := range []string{PayloadQuestion, PayloadAnswer, PayloadContent, PayloadMessage} {
		if value := strings.TrimSpace(p.String(key)); value != "" {
			parts = append(parts, value)
		}
	}

	return strings.ToLower(strings.Join(parts, "\n"))
}
