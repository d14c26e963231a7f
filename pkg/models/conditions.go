package models

// MatchMode selects how the configured predicates of a ConditionSet combine.
type MatchMode string

const (
	// MatchAll requires every configured predicate to hold. With zero
	// configured predicates the set is vacuously true.
	MatchAll MatchMode = "all"
	// MatchAny requires at least one configured predicate to hold. With zero
	// configured predicates the set is false, not vacuously true.
	MatchAny MatchMode = "any"
)

// ConditionSet is a declarative predicate set evaluated against an event
// payload. Every field is optional; absent fields are skipped entirely and do
// not count toward either combination mode.
type ConditionSet struct {
	MatchMode MatchMode `json:"match_mode,omitempty"`

	// Substring predicates, case-insensitive, any-of within each list.
	KeywordContains []string `json:"keyword_contains,omitempty"`
	KeywordExcludes []string `json:"keyword_excludes,omitempty"`
	AnswerContains  []string `json:"answer_contains,omitempty"`

	// QuestionRegex matches against the payload question. A pattern that
	// fails to compile evaluates to false with a diagnostic, never an error.
	QuestionRegex string `json:"question_regex,omitempty"`

	// Set-membership predicates.
	BranchIn      []string `json:"branch_in,omitempty"`
	UserIn        []string `json:"user_in,omitempty"`
	LLMProviderIn []string `json:"llm_provider_in,omitempty"`
	LLMModelIn    []string `json:"llm_model_in,omitempty"`

	// Numeric range predicates; each bound is checked independently.
	ToolErrorsMin       *int `json:"tool_errors_min,omitempty"`
	ToolErrorsMax       *int `json:"tool_errors_max,omitempty"`
	ToolCallsMin        *int `json:"tool_calls_min,omitempty"`
	ToolCallsMax        *int `json:"tool_calls_max,omitempty"`
	SourcesCountMin     *int `json:"sources_count_min,omitempty"`
	FailedConnectorsMin *int `json:"failed_connectors_min,omitempty"`
	FailedConnectorsMax *int `json:"failed_connectors_max,omitempty"`

	// Boolean-equality predicates.
	GroundedIs         *bool `json:"grounded_is,omitempty"`
	PendingUserInputIs *bool `json:"pending_user_input_is,omitempty"`
}

// Mode returns the effective match mode; anything but "any" combines as all.
func (c ConditionSet) Mode() MatchMode {
	if c.MatchMode == MatchAny {
		return MatchAny
	}

	return MatchAll
}
