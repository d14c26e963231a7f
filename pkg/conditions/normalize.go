package conditions

import (
	"fmt"
	"regexp"
	"strings"

	"github.com/asklab/relay/pkg/models"
)

// List caps, matching what the editor UI accepts.
const (
	maxListEntries     = 24
	maxUserEntries     = 50
	maxProviderEntries = 16
)

// Normalize trims, dedupes and caps every list predicate, lowercases provider
// names, clamps numeric bounds to be non-negative, and rejects condition sets
// whose regex does not compile. It is the save/update-time boundary; a set
// that passed Normalize evaluates without diagnostics about its own shape.
func Normalize(set models.ConditionSet) (models.ConditionSet, error) {
	out := set
	out.MatchMode = set.Mode()

	out.KeywordContains = normalizeList(set.KeywordContains, maxListEntries, false)
	out.KeywordExcludes = normalizeList(set.KeywordExcludes, maxListEntries, false)
	out.AnswerContains = normalizeList(set.AnswerContains, maxListEntries, false)
	out.BranchIn = normalizeList(set.BranchIn, maxListEntries, false)
	out.UserIn = normalizeList(set.UserIn, maxUserEntries, false)
	out.LLMProviderIn = normalizeList(set.LLMProviderIn, maxProviderEntries, true)
	out.LLMModelIn = normalizeList(set.LLMModelIn, maxListEntries, false)

	out.ToolErrorsMin = clampBound(set.ToolErrorsMin)
	out.ToolErrorsMax = clampBound(set.ToolErrorsMax)
	out.ToolCallsMin = clampBound(set.ToolCallsMin)
	out.ToolCallsMax = clampBound(set.ToolCallsMax)
	out.SourcesCountMin = clampBound(set.SourcesCountMin)
	out.FailedConnectorsMin = clampBound(set.FailedConnectorsMin)
	out.FailedConnectorsMax = clampBound(set.FailedConnectorsMax)

	out.QuestionRegex = strings.TrimSpace(set.QuestionRegex)
	if out.QuestionRegex != "" {
		_, err := regexp.Compile(out.QuestionRegex)
		if err != nil {
			return models.ConditionSet{}, fmt.Errorf("invalid question_regex: %w", err)
		}
	}

	return out, nil
}

func normalizeList(raw []string, maxItems int, foldCase bool) []string {
	if len(raw) == 0 {
		return nil
	}

	out := make([]string, 0, len(raw))
	seen := make(map[string]struct{}, len(raw))

	for _, item := range raw {
		value := strings.TrimSpace(item)
		if foldCase {
			value = strings.ToLower(value)
		}

		if value == "" {
			continue
		}

		if _, dup := seen[value]; dup {
			continue
		}

		seen[value] = struct{}{}
		out = append(out, value)

		if len(out) >= maxItems {
			break
		}
	}

	if len(out) == 0 {
		return nil
	}

	return out
}

func clampBound(bound *int) *int {
	if bound == nil {
		return nil
	}

	value := *bound
	if value < 0 {
		value = 0
	}

	return &value
}
