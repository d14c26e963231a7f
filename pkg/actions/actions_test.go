package actions_test

import (
	"context"
	"log/slog"
	"testing"

	"github.com/asklab/relay/pkg/actions"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/registry"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChats struct {
	createdTasks  []actions.TaskInput
	messages      []string
	titles        []string
	inputRequests []actions.UserInputRequest
	patches       map[string]actions.TaskPatch
}

func (f *fakeChats) CreateTask(_ context.Context, _ string, task actions.TaskInput) (string, error) {
	f.createdTasks = append(f.createdTasks, task)

	return "task-1", nil
}

func (f *fakeChats) UpdateTask(_ context.Context, _, taskID string, patch actions.TaskPatch) error {
	if f.patches == nil {
		f.patches = make(map[string]actions.TaskPatch)
	}

	f.patches[taskID] = patch

	return nil
}

func (f *fakeChats) AppendMessage(_ context.Context, _, _, _, content string) (string, error) {
	f.messages = append(f.messages, content)

	return "msg-1", nil
}

func (f *fakeChats) SetChatTitle(_ context.Context, _, _, title string) error {
	f.titles = append(f.titles, title)

	return nil
}

func (f *fakeChats) RequestUserInput(_ context.Context, _, _ string, req actions.UserInputRequest) (string, error) {
	f.inputRequests = append(f.inputRequests, req)

	return "req-1", nil
}

type fakeState struct {
	values map[string]any
}

func (f *fakeState) Upsert(_ context.Context, _, key string, value any) error {
	if f.values == nil {
		f.values = make(map[string]any)
	}

	f.values[key] = value

	return nil
}

type fakeDispatcher struct {
	dispatched []string
	ran        []string
	toggled    map[string]bool
}

func (f *fakeDispatcher) DispatchEvent(_ context.Context, _ models.ExecutionContext, name string, _ models.EventPayload) error {
	f.dispatched = append(f.dispatched, name)

	return nil
}

func (f *fakeDispatcher) RunAutomation(_ context.Context, _ models.ExecutionContext, automationID string) error {
	f.ran = append(f.ran, automationID)

	return nil
}

func (f *fakeDispatcher) SetAutomationEnabled(_ context.Context, automationID string, enabled bool) error {
	if f.toggled == nil {
		f.toggled = make(map[string]bool)
	}

	f.toggled[automationID] = enabled

	return nil
}

func newCatalog() (*registry.Registry, *fakeChats, *fakeState, *fakeDispatcher) {
	chats := &fakeChats{}
	state := &fakeState{}
	dispatcher := &fakeDispatcher{}

	r := registry.NewRegistry()
	actions.RegisterBuiltins(r, &actions.Catalog{Chats: chats, State: state, Dispatcher: dispatcher})

	return r, chats, state, dispatcher
}

func execute(t *testing.T, r *registry.Registry, actionType string, execCtx models.ExecutionContext, params map[string]any) any {
	t.Helper()

	coerced, err := r.ValidateParams(actionType, params)
	require.NoError(t, err)

	handler, err := r.Handler(actionType)
	require.NoError(t, err)

	result, err := handler.Execute(context.Background(), execCtx, coerced, slog.Default())
	require.NoError(t, err)

	return result
}

func TestAllBuiltinsRegistered(t *testing.T) {
	r, _, _, _ := newCatalog()

	types := make([]string, 0)
	for _, schema := range r.Schemas() {
		types = append(types, schema.Type)
	}

	assert.ElementsMatch(t, []string{
		"create_chat_task",
		"update_chat_task",
		"append_chat_message",
		"set_chat_title",
		"request_user_input",
		"dispatch_event",
		"run_automation",
		"set_automation_enabled",
		"upsert_state_value",
		"log",
	}, types)
}

func TestCreateChatTask(t *testing.T) {
	r, chats, _, _ := newCatalog()

	result := execute(t, r, "create_chat_task", models.ExecutionContext{ProjectID: "p1"}, map[string]any{
		"title":  "Investigate failures",
		"labels": "ops,urgent",
	})

	require.Len(t, chats.createdTasks, 1)
	assert.Equal(t, []string{"ops", "urgent"}, chats.createdTasks[0].Labels)
	assert.Equal(t, map[string]any{"task_id": "task-1"}, result)
}

func TestDryRunPerformsNoSideEffects(t *testing.T) {
	r, chats, state, dispatcher := newCatalog()

	execCtx := models.ExecutionContext{ProjectID: "p1", DryRun: true}

	execute(t, r, "create_chat_task", execCtx, map[string]any{"title": "x"})
	execute(t, r, "append_chat_message", execCtx, map[string]any{"content": "hello"})
	execute(t, r, "dispatch_event", execCtx, map[string]any{"name": "follow_up"})
	execute(t, r, "upsert_state_value", execCtx, map[string]any{"key": "k", "value": `{"a":1}`})
	execute(t, r, "set_automation_enabled", execCtx, map[string]any{"automation_id": "a1", "enabled": "false"})

	assert.Empty(t, chats.createdTasks)
	assert.Empty(t, chats.messages)
	assert.Empty(t, dispatcher.dispatched)
	assert.Empty(t, dispatcher.toggled)
	assert.Empty(t, state.values)
}

func TestDispatchEventValidatesName(t *testing.T) {
	r, _, _, dispatcher := newCatalog()

	coerced, err := r.ValidateParams("dispatch_event", map[string]any{"name": "Follow_Up"})
	require.NoError(t, err)

	handler, err := r.Handler("dispatch_event")
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), models.ExecutionContext{}, coerced, slog.Default())
	require.NoError(t, err)
	assert.Equal(t, []string{"follow_up"}, dispatcher.dispatched)

	coerced, err = r.ValidateParams("dispatch_event", map[string]any{"name": "!!bad!!"})
	require.NoError(t, err)

	_, err = handler.Execute(context.Background(), models.ExecutionContext{}, coerced, slog.Default())
	require.ErrorContains(t, err, "invalid event name")
}

func TestRequestUserInputSingleChoiceNeedsOptions(t *testing.T) {
	r, chats, _, _ := newCatalog()

	_, err := r.ValidateParams("request_user_input", map[string]any{
		"prompt":      "Continue?",
		"answer_mode": "single_choice",
	})
	require.ErrorContains(t, err, "options")

	execute(t, r, "request_user_input", models.ExecutionContext{}, map[string]any{
		"prompt":      "Continue?",
		"answer_mode": "single_choice",
		"options":     "yes,no",
	})

	require.Len(t, chats.inputRequests, 1)
	assert.Equal(t, []string{"yes", "no"}, chats.inputRequests[0].Options)
}

func TestRequestUserInputAnswerModes(t *testing.T) {
	r, chats, _, _ := newCatalog()

	_, err := r.ValidateParams("request_user_input", map[string]any{
		"prompt":      "Which branch?",
		"answer_mode": "open_text",
	})
	require.NoError(t, err)

	_, err = r.ValidateParams("request_user_input", map[string]any{
		"prompt":      "Which branch?",
		"answer_mode": "free_text",
	})
	require.ErrorContains(t, err, "must be one of")

	// Absent answer_mode falls back to open text.
	execute(t, r, "request_user_input", models.ExecutionContext{}, map[string]any{
		"prompt": "Which branch?",
	})

	require.Len(t, chats.inputRequests, 1)
	assert.Equal(t, "open_text", chats.inputRequests[0].AnswerMode)
}

func TestUpdateTaskPatchSemantics(t *testing.T) {
	r, chats, _, _ := newCatalog()

	execute(t, r, "update_chat_task", models.ExecutionContext{}, map[string]any{
		"task_id": "task-9",
		"status":  "done",
	})

	patch := chats.patches["task-9"]
	require.NotNil(t, patch.Status)
	assert.Equal(t, "done", *patch.Status)
	assert.Nil(t, patch.Title, "absent fields stay untouched")
}

func TestUpsertStateValue(t *testing.T) {
	r, _, state, _ := newCatalog()

	execute(t, r, "upsert_state_value", models.ExecutionContext{ProjectID: "p1"}, map[string]any{
		"key":   "last_digest",
		"value": `{"count": 3}`,
	})

	assert.Equal(t, map[string]any{"count": float64(3)}, state.values["last_digest"])
}
