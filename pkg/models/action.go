package models

// Action selects a typed side effect. Type names an entry in the action-type
// registry; Params carry the raw, untyped parameters exactly as supplied and
// are validated and coerced against the registered field schema at dispatch
// time, never here.
type Action struct {
	Type   string         `json:"type"`
	Params map[string]any `json:"params,omitempty"`
}
