package registry_test

import (
	"context"
	"fmt"
	"log/slog"
	"testing"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/protocol"
	"github.com/asklab/relay/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func noopHandler() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(_ context.Context, _ models.ExecutionContext, _ map[string]any, _ *slog.Logger) (any, error) {
		return nil, nil
	})
}

func testSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type: "create_chat_task",
		Fields: []registry.FieldSchema{
			{Key: "title", Kind: registry.KindString, Required: true},
			{Key: "priority", Kind: registry.KindNumber},
			{Key: "blocking", Kind: registry.KindBoolean},
			{Key: "labels", Kind: registry.KindCSVList},
			{Key: "body", Kind: registry.KindMultiline},
			{Key: "metadata", Kind: registry.KindJSON},
		},
	}
}

func TestValidateParamsCoercion(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(testSchema(), noopHandler())

	coerced, err := r.ValidateParams("create_chat_task", map[string]any{
		"title":    "triage",
		"priority": "3",
		"blocking": "true",
		"labels":   "a, b ,,c",
		"metadata": `{"source":"relay"}`,
	})
	require.NoError(t, err)

	assert.Equal(t, "triage", coerced["title"])
	assert.InDelta(t, 3.0, coerced["priority"], 0.001)
	assert.Equal(t, true, coerced["blocking"])
	assert.Equal(t, []string{"a", "b", "c"}, coerced["labels"])
	assert.Equal(t, map[string]any{"source": "relay"}, coerced["metadata"])
}

func TestValidateParamsFailsFastNamingField(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(testSchema(), noopHandler())

	_, err := r.ValidateParams("create_chat_task", map[string]any{})
	require.ErrorContains(t, err, "'title'")

	_, err = r.ValidateParams("create_chat_task", map[string]any{"title": "x", "priority": "high"})
	require.ErrorContains(t, err, "'priority'")

	_, err = r.ValidateParams("create_chat_task", map[string]any{"title": "x", "metadata": "{broken"})
	require.ErrorContains(t, err, "'metadata'")

	_, err = r.ValidateParams("create_chat_task", map[string]any{"title": "x", "bogus": 1})
	require.ErrorContains(t, err, "'bogus'")

	_, err = r.ValidateParams("update_chat_task", map[string]any{})
	require.ErrorContains(t, err, "not registered")
}

func TestValidateParamsEnumAndCrossField(t *testing.T) {
	schema := registry.ActionSchema{
		Type: "request_user_input",
		Fields: []registry.FieldSchema{
			{Key: "prompt", Kind: registry.KindString, Required: true},
			{Key: "answer_mode", Kind: registry.KindString, Enum: []string{"open_text", "single_choice"}},
			{Key: "options", Kind: registry.KindCSVList},
		},
		CrossField: func(params map[string]any) error {
			if params["answer_mode"] != "single_choice" {
				return nil
			}

			options, _ := params["options"].([]string)
			if len(options) < 2 {
				return fmt.Errorf("param 'options' must list at least two choices for single_choice")
			}

			return nil
		},
	}

	r := registry.NewRegistry()
	r.Register(schema, noopHandler())

	_, err := r.ValidateParams("request_user_input", map[string]any{"prompt": "p", "answer_mode": "carrier_pigeon"})
	require.ErrorContains(t, err, "must be one of")

	_, err = r.ValidateParams("request_user_input", map[string]any{"prompt": "p", "answer_mode": "single_choice", "options": "only-one"})
	require.ErrorContains(t, err, "options")

	_, err = r.ValidateParams("request_user_input", map[string]any{"prompt": "p", "answer_mode": "single_choice", "options": "yes,no"})
	require.NoError(t, err)
}

func TestValidateParamsRequiredCSVListMustBeNonEmpty(t *testing.T) {
	schema := registry.ActionSchema{
		Type: "notify_users",
		Fields: []registry.FieldSchema{
			{Key: "recipients", Kind: registry.KindCSVList, Required: true},
		},
	}

	r := registry.NewRegistry()
	r.Register(schema, noopHandler())

	// Entries that trim away to nothing leave an empty list.
	_, err := r.ValidateParams("notify_users", map[string]any{"recipients": " , "})
	require.ErrorContains(t, err, "'recipients'")
	require.ErrorContains(t, err, "at least one value")

	_, err = r.ValidateParams("notify_users", map[string]any{"recipients": []any{}})
	require.ErrorContains(t, err, "at least one value")

	coerced, err := r.ValidateParams("notify_users", map[string]any{"recipients": "ana, bo"})
	require.NoError(t, err)
	assert.Equal(t, []string{"ana", "bo"}, coerced["recipients"])
}

func TestJSONSchemaEnforced(t *testing.T) {
	schema := registry.ActionSchema{
		Type: "upsert_state_value",
		Fields: []registry.FieldSchema{
			{
				Key:  "value",
				Kind: registry.KindJSON,
				JSONSchema: map[string]any{
					"type":     "object",
					"required": []any{"key"},
				},
			},
		},
	}

	r := registry.NewRegistry()
	r.Register(schema, noopHandler())

	_, err := r.ValidateParams("upsert_state_value", map[string]any{"value": `{"other":1}`})
	require.ErrorContains(t, err, "schema validation failed")

	_, err = r.ValidateParams("upsert_state_value", map[string]any{"value": `{"key":"k"}`})
	require.NoError(t, err)
}

func TestSchemasSorted(t *testing.T) {
	r := registry.NewRegistry()
	r.Register(registry.ActionSchema{Type: "b"}, noopHandler())
	r.Register(registry.ActionSchema{Type: "a"}, noopHandler())

	schemas := r.Schemas()
	require.Len(t, schemas, 2)
	assert.Equal(t, "a", schemas[0].Type)
	assert.Equal(t, "b", schemas[1].Type)

	_, err := r.Handler("a")
	assert.NoError(t, err)
}
