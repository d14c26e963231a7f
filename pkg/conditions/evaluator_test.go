package conditions_test

import (
	"testing"

	"github.com/asklab/relay/pkg/conditions"
	"github.com/asklab/relay/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func intPtr(v int) *int    { return &v }
func boolPtr(v bool) *bool { return &v }

func TestEvaluateVacuousAsymmetry(t *testing.T) {
	payload := models.EventPayload{"question": "anything"}

	// Zero configured predicates: all is vacuously true, any is false.
	all := conditions.Evaluate(models.ConditionSet{MatchMode: models.MatchAll}, payload)
	assert.True(t, all.Matched)
	assert.Empty(t, all.Checks)

	anyMode := conditions.Evaluate(models.ConditionSet{MatchMode: models.MatchAny}, payload)
	assert.False(t, anyMode.Matched)
	assert.Empty(t, anyMode.Checks)
}

func TestEvaluateToolErrorsMin(t *testing.T) {
	set := models.ConditionSet{MatchMode: models.MatchAll, ToolErrorsMin: intPtr(1)}

	low := conditions.Evaluate(set, models.EventPayload{"tool_errors": 0})
	assert.False(t, low.Matched)

	high := conditions.Evaluate(set, models.EventPayload{"tool_errors": 2})
	assert.True(t, high.Matched)
}

func TestEvaluateKeywordPredicates(t *testing.T) {
	payload := models.EventPayload{
		"question": "This is URGENT, the deploy is blocked",
		"answer":   "Rolling back now.",
	}

	tests := []struct {
		name string
		set  models.ConditionSet
		want bool
	}{
		{
			"keyword contains any-of, case-insensitive",
			models.ConditionSet{KeywordContains: []string{"urgent", "blocker"}},
			true,
		},
		{
			"keyword excludes negates",
			models.ConditionSet{KeywordExcludes: []string{"urgent"}},
			false,
		},
		{
			"answer contains searches answer only",
			models.ConditionSet{AnswerContains: []string{"rolling back"}},
			true,
		},
		{
			"answer contains misses question text",
			models.ConditionSet{AnswerContains: []string{"urgent"}},
			false,
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			assert.Equal(t, tt.want, conditions.Evaluate(tt.set, payload).Matched)
		})
	}
}

func TestEvaluateInvalidRegexIsFalseWithDiagnostic(t *testing.T) {
	set := models.ConditionSet{QuestionRegex: "([unclosed"}

	result := conditions.Evaluate(set, models.EventPayload{"question": "hello"})
	assert.False(t, result.Matched)
	require.Len(t, result.Checks, 1)
	assert.False(t, result.Checks[0].Ok)
	assert.Contains(t, result.Checks[0].Detail, "invalid pattern")
	assert.Contains(t, result.Diagnostics()[0], "question_regex=false")
}

func TestEvaluateRegexCaseInsensitive(t *testing.T) {
	set := models.ConditionSet{QuestionRegex: "deploy(ed)?"}

	result := conditions.Evaluate(set, models.EventPayload{"question": "Was it DEPLOYED?"})
	assert.True(t, result.Matched)
}

func TestEvaluateMembershipAndBooleans(t *testing.T) {
	payload := models.EventPayload{
		"branch":       "main",
		"user_id":      "ana@example.com",
		"llm_provider": "OpenAI",
		"grounded":     true,
	}

	set := models.ConditionSet{
		MatchMode:     models.MatchAll,
		BranchIn:      []string{"main", "develop"},
		UserIn:        []string{"ana@example.com"},
		LLMProviderIn: []string{"openai"},
		GroundedIs:    boolPtr(true),
	}

	result := conditions.Evaluate(set, payload)
	assert.True(t, result.Matched)
	assert.Len(t, result.Checks, 4)
}

func TestEvaluateAnyModeNeedsOneHit(t *testing.T) {
	set := models.ConditionSet{
		MatchMode:       models.MatchAny,
		KeywordContains: []string{"nope"},
		ToolErrorsMin:   intPtr(1),
	}

	miss := conditions.Evaluate(set, models.EventPayload{"question": "fine", "tool_errors": 0})
	assert.False(t, miss.Matched)

	hit := conditions.Evaluate(set, models.EventPayload{"question": "fine", "tool_errors": 3})
	assert.True(t, hit.Matched)
}

func TestEvaluateIndependentBounds(t *testing.T) {
	set := models.ConditionSet{
		ToolCallsMin: intPtr(2),
		ToolCallsMax: intPtr(5),
	}

	assert.False(t, conditions.Evaluate(set, models.EventPayload{"tool_calls": 1}).Matched)
	assert.True(t, conditions.Evaluate(set, models.EventPayload{"tool_calls": 3}).Matched)
	assert.False(t, conditions.Evaluate(set, models.EventPayload{"tool_calls": 9}).Matched)
}

func TestNormalize(t *testing.T) {
	set := models.ConditionSet{
		KeywordContains: []string{" urgent ", "urgent", "", "blocker"},
		LLMProviderIn:   []string{"OpenAI", "openai"},
		ToolErrorsMin:   intPtr(-4),
	}

	normalized, err := conditions.Normalize(set)
	require.NoError(t, err)

	assert.Equal(t, []string{"urgent", "blocker"}, normalized.KeywordContains)
	assert.Equal(t, []string{"openai"}, normalized.LLMProviderIn)
	assert.Equal(t, 0, *normalized.ToolErrorsMin)
	assert.Equal(t, models.MatchAll, normalized.MatchMode)
}

func TestNormalizeRejectsBadRegex(t *testing.T) {
	_, err := conditions.Normalize(models.ConditionSet{QuestionRegex: "("})
	require.Error(t, err)
	assert.Contains(t, err.Error(), "question_regex")
}
