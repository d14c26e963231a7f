// Package conditions evaluates declarative condition sets against event
// payloads. Evaluation is pure: no I/O, no clock, and it never returns an
// error. A malformed predicate evaluates to false with a diagnostic instead
// of aborting the run pipeline.
package conditions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/asklab/relay/pkg/models"
)

// Check is the outcome of a single configured predicate.
type Check struct {
	Predicate string `json:"predicate"`
	Ok        bool   `json:"ok"`
	Detail    string `json:"detail,omitempty"`
}

// Result is the evaluation of a full condition set.
type Result struct {
	Matched bool    `json:"matched"`
	Checks  []Check `json:"checks,omitempty"`
}

// Diagnostics renders the checks as run-record diagnostic lines.
func (r Result) Diagnostics() []string {
	if len(r.Checks) == 0 {
		return nil
	}

	out := make([]string, 0, len(r.Checks))
	for _, check := range r.Checks {
		line := fmt.Sprintf("%s=%t", check.Predicate, check.Ok)
		if check.Detail != "" {
			line += " (" + check.Detail + ")"
		}

		out = append(out, line)
	}

	return out
}

// Evaluate runs every configured predicate of the set against the payload.
// Absent predicates are skipped entirely and count toward neither mode. With
// zero configured predicates, match_mode=all is vacuously true while
// match_mode=any is false; the asymmetry is deliberate and load-bearing for
// catch-all versus opt-in rule styles.
func Evaluate(set models.ConditionSet, payload models.EventPayload) Result {
	var checks []Check

	record := func(predicate string, ok bool, detail string) {
		checks = append(checks, Check{Predicate: predicate, Ok: ok, Detail: detail})
	}

	text := payload.Text()

	if len(set.KeywordContains) > 0 {
		record("keyword_contains", containsAny(text, set.KeywordContains), "")
	}

	if len(set.KeywordExcludes) > 0 {
		record("keyword_excludes", !containsAny(text, set.KeywordExcludes), "")
	}

	if len(set.AnswerContains) > 0 {
		answer := strings.ToLower(payload.String(models.PayloadAnswer))
		record("answer_contains", containsAny(answer, set.AnswerContains), "")
	}

	if set.QuestionRegex != "" {
		re, err := regexp.Compile("(?i)" + set.QuestionRegex)
		if err != nil {
			record("question_regex", false, "invalid pattern: "+err.Error())
		} else {
			record("question_regex", re.MatchString(payload.String(models.PayloadQuestion)), "")
		}
	}

	if len(set.BranchIn) > 0 {
		record("branch_in", memberOf(payload.String(models.PayloadBranch), set.BranchIn, false), "")
	}

	if len(set.UserIn) > 0 {
		record("user_in", memberOf(payload.String(models.PayloadUserID), set.UserIn, false), "")
	}

	if len(set.LLMProviderIn) > 0 {
		record("llm_provider_in", memberOf(payload.String(models.PayloadLLMProvider), set.LLMProviderIn, true), "")
	}

	if len(set.LLMModelIn) > 0 {
		record("llm_model_in", memberOf(payload.String(models.PayloadLLMModel), set.LLMModelIn, false), "")
	}

	checkRange := func(name, key string, minBound, maxBound *int) {
		value := payload.Int(key)

		if minBound != nil {
			record(name+"_min", value >= *minBound, fmt.Sprintf("%d >= %d", value, *minBound))
		}

		if maxBound != nil {
			record(name+"_max", value <= *maxBound, fmt.Sprintf("%d <= %d", value, *maxBound))
		}
	}

	checkRange("tool_errors", models.PayloadToolErrors, set.ToolErrorsMin, set.ToolErrorsMax)
	checkRange("tool_calls", models.PayloadToolCalls, set.ToolCallsMin, set.ToolCallsMax)
	checkRange("sources_count", models.PayloadSourcesCount, set.SourcesCountMin, nil)
	checkRange("failed_connectors", models.PayloadFailedConnectors, set.FailedConnectorsMin, set.FailedConnectorsMax)

	if set.GroundedIs != nil {
		record("grounded_is", payload.Bool(models.PayloadGrounded) == *set.GroundedIs, "")
	}

	if set.PendingUserInputIs != nil {
		record("pending_user_input_is", payload.Bool(models.PayloadPendingUserInput) == *set.PendingUserInputIs, "")
	}

	return Result{Matched: combine(set.Mode(), checks), Checks: checks}
}

func combine(mode models.MatchMode, checks []Check) bool {
	if len(checks) == 0 {
		return mode != models.MatchAny
	}

	if mode == models.MatchAny {
		for _, check := range checks {
			if check.Ok {
				return true
			}
		}

		return false
	}

	for _, check := range checks {
		if !check.Ok {
			return false
		}
	}

	return true
}

func containsAny(haystack string, needles []string) bool {
	for _, needle := range needles {
		needle = strings.ToLower(strings.TrimSpace(needle))
		if needle != "" && strings.Contains(haystack, needle) {
			return true
		}
	}

	return false
}

func memberOf(value string, set []string, foldCase bool) bool {
	value = strings.TrimSpace(value)
	if foldCase {
		value = strings.ToLower(value)
	}

	for _, candidate := range set {
		candidate = strings.TrimSpace(candidate)
		if foldCase {
			candidate = strings.ToLower(candidate)
		}

		if candidate != "" && candidate == value {
			return true
		}
	}

	return false
}
