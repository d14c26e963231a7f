package web_test

import (
	"bytes"
	"context"
	"encoding/json"
	"io"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"testing"

	"github.com/asklab/relay/pkg/actions"
	"github.com/asklab/relay/pkg/automations"
	"github.com/asklab/relay/pkg/engine"
	"github.com/asklab/relay/pkg/guard"
	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence/file"
	"github.com/asklab/relay/pkg/presets"
	"github.com/asklab/relay/pkg/registry"
	"github.com/asklab/relay/pkg/web"
	"github.com/go-playground/validator/v10"
	"github.com/gofiber/fiber/v3"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

type fakeChats struct {
	messages []string
}

func (f *fakeChats) CreateTask(_ context.Context, _ string, _ actions.TaskInput) (string, error) {
	return "task-1", nil
}

func (f *fakeChats) UpdateTask(_ context.Context, _, _ string, _ actions.TaskPatch) error {
	return nil
}

func (f *fakeChats) AppendMessage(_ context.Context, _, _, _, content string) (string, error) {
	f.messages = append(f.messages, content)

	return "msg-1", nil
}

func (f *fakeChats) SetChatTitle(_ context.Context, _, _, _ string) error { return nil }

func (f *fakeChats) RequestUserInput(_ context.Context, _, _ string, _ actions.UserInputRequest) (string, error) {
	return "req-1", nil
}

type fakeState struct{}

func (fakeState) Upsert(_ context.Context, _, _ string, _ any) error { return nil }

type testStack struct {
	app   *fiber.App
	chats *fakeChats
}

func setupTestApp(t *testing.T) *testStack {
	t.Helper()

	logger := slog.Default()
	p := file.NewPersistence(t.TempDir())

	r := registry.NewRegistry()
	eng := engine.NewEngine(p, r, guard.NewMemory(), nil, logger)

	chats := &fakeChats{}
	actions.RegisterBuiltins(r, &actions.Catalog{Chats: chats, State: fakeState{}, Dispatcher: eng})

	automationService := automations.NewService(p, r, logger)
	presetService := presets.NewService(p.PresetRepository(), logger)
	validate := validator.New(validator.WithRequiredStructEnabled())

	handlers := web.NewAPIHandlers(automationService, presetService, eng, r, validate)

	app := fiber.New()

	a := app.Group("/automations")
	a.Get("/templates", handlers.GetAutomationTemplates)
	a.Get("/", handlers.GetAutomations)
	a.Post("/", handlers.CreateAutomation)
	a.Get("/:id", handlers.GetAutomation)
	a.Patch("/:id", handlers.UpdateAutomation)
	a.Delete("/:id", handlers.DeleteAutomation)
	a.Post("/:id/run", handlers.RunAutomation)
	a.Get("/:id/runs", handlers.GetAutomationRuns)

	pr := app.Group("/presets")
	pr.Get("/", handlers.GetPresets)
	pr.Post("/", handlers.CreatePreset)
	pr.Get("/:id", handlers.GetPreset)
	pr.Patch("/:id", handlers.UpdatePreset)
	pr.Delete("/:id", handlers.DeletePreset)
	pr.Get("/:id/versions", handlers.GetPresetVersions)
	pr.Get("/:id/versions/:ordinal/diff", handlers.PreviewRollback)
	pr.Post("/:id/rollback", handlers.RollbackPreset)
	pr.Post("/:id/apply", handlers.ApplyPreset)

	app.Post("/events", handlers.DispatchEvent)
	app.Get("/actions", handlers.GetActionSchemas)
	app.Get("/health", handlers.HealthCheck)

	return &testStack{app: app, chats: chats}
}

func doJSON(t *testing.T, app *fiber.App, method, path string, body any) (*http.Response, []byte) {
	t.Helper()

	var reader io.Reader

	if body != nil {
		encoded, err := json.Marshal(body)
		require.NoError(t, err)

		reader = bytes.NewReader(encoded)
	}

	req := httptest.NewRequest(method, path, reader)
	if body != nil {
		req.Header.Set("Content-Type", "application/json")
	}

	resp, err := app.Test(req)
	require.NoError(t, err)

	raw, err := io.ReadAll(resp.Body)
	require.NoError(t, err)

	return resp, raw
}

func createAutomationBody() web.CreateAutomationRequest {
	return web.CreateAutomationRequest{
		ProjectID: "proj-1",
		Name:      "notify on deploy",
		Trigger:   models.TriggerSpec{Trigger: models.EventTrigger{EventType: "deploy_finished"}},
		Action: models.Action{
			Type:   "append_chat_message",
			Params: map[string]any{"chat_id": "chat-1", "content": "deployed {{version}}"},
		},
		Actor: "ana",
	}
}

func TestCreateAutomation(t *testing.T) {
	stack := setupTestApp(t)

	resp, body := doJSON(t, stack.app, http.MethodPost, "/automations/", createAutomationBody())
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var automation models.Automation
	require.NoError(t, json.Unmarshal(body, &automation))
	assert.NotEmpty(t, automation.ID)
	assert.True(t, automation.Enabled)
	assert.Equal(t, models.TriggerKindEvent, automation.Trigger.Kind())
	assert.Equal(t, "ana", automation.CreatedBy)
}

func TestCreateAutomationValidationProblem(t *testing.T) {
	stack := setupTestApp(t)

	body := createAutomationBody()
	body.Action.Type = "no_such_action"

	resp, raw := doJSON(t, stack.app, http.MethodPost, "/automations/", body)
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(raw, &problem))
	assert.Equal(t, "validation_error", problem["type"])
}

func TestGetAutomationNotFound(t *testing.T) {
	stack := setupTestApp(t)

	resp, raw := doJSON(t, stack.app, http.MethodGet, "/automations/missing", nil)
	assert.Equal(t, http.StatusNotFound, resp.StatusCode)

	var problem map[string]any
	require.NoError(t, json.Unmarshal(raw, &problem))
	assert.Equal(t, "not_found", problem["type"])
}

func TestUpdateAutomationPartial(t *testing.T) {
	stack := setupTestApp(t)

	_, body := doJSON(t, stack.app, http.MethodPost, "/automations/", createAutomationBody())

	var created models.Automation
	require.NoError(t, json.Unmarshal(body, &created))

	newName := "renamed"
	resp, body := doJSON(t, stack.app, http.MethodPatch, "/automations/"+created.ID, web.UpdateAutomationRequest{
		Name:  &newName,
		Actor: "bob",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var updated models.Automation
	require.NoError(t, json.Unmarshal(body, &updated))
	assert.Equal(t, "renamed", updated.Name)
	assert.Equal(t, models.TriggerKindEvent, updated.Trigger.Kind(), "omitted fields keep their value")
	assert.Equal(t, "bob", updated.UpdatedBy)
}

func TestRunAutomationManualAndDryRun(t *testing.T) {
	stack := setupTestApp(t)

	body := createAutomationBody()
	body.Trigger = models.TriggerSpec{Trigger: models.ManualTrigger{}}

	_, raw := doJSON(t, stack.app, http.MethodPost, "/automations/", body)

	var created models.Automation
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, raw := doJSON(t, stack.app, http.MethodPost, "/automations/"+created.ID+"/run?dry_run=true", web.RunAutomationRequest{
		Actor:   "ana",
		Payload: models.EventPayload{"version": "v2"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var record models.RunRecord
	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, models.RunStatusSimulated, record.Status)
	assert.Empty(t, stack.chats.messages, "dry runs never reach the chat store")

	resp, raw = doJSON(t, stack.app, http.MethodPost, "/automations/"+created.ID+"/run", web.RunAutomationRequest{
		Actor:   "ana",
		Payload: models.EventPayload{"version": "v2"},
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	require.NoError(t, json.Unmarshal(raw, &record))
	assert.Equal(t, models.RunStatusSucceeded, record.Status)
	assert.Equal(t, []string{"deployed v2"}, stack.chats.messages)

	resp, raw = doJSON(t, stack.app, http.MethodGet, "/automations/"+created.ID+"/runs", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var listing struct {
		Runs []models.RunRecord `json:"runs"`
	}
	require.NoError(t, json.Unmarshal(raw, &listing))
	assert.Len(t, listing.Runs, 2)
}

func TestRunAutomationAdminOnlyForbidden(t *testing.T) {
	stack := setupTestApp(t)

	body := createAutomationBody()
	body.Trigger = models.TriggerSpec{Trigger: models.ManualTrigger{}}
	body.RunAccess = models.RunAccessAdminOnly

	_, raw := doJSON(t, stack.app, http.MethodPost, "/automations/", body)

	var created models.Automation
	require.NoError(t, json.Unmarshal(raw, &created))

	resp, _ := doJSON(t, stack.app, http.MethodPost, "/automations/"+created.ID+"/run", web.RunAutomationRequest{Actor: "bob"})
	assert.Equal(t, http.StatusForbidden, resp.StatusCode)

	resp, _ = doJSON(t, stack.app, http.MethodPost, "/automations/"+created.ID+"/run", web.RunAutomationRequest{
		Actor:        "root",
		ActorIsAdmin: true,
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)
}

func TestDispatchEventFansOut(t *testing.T) {
	stack := setupTestApp(t)

	_, _ = doJSON(t, stack.app, http.MethodPost, "/automations/", createAutomationBody())

	resp, _ := doJSON(t, stack.app, http.MethodPost, "/events", web.DispatchEventRequest{
		ProjectID: "proj-1",
		Name:      "deploy_finished",
		Payload:   models.EventPayload{"version": "v3"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Equal(t, []string{"deployed v3"}, stack.chats.messages)
}

func TestDispatchEventScopedToProject(t *testing.T) {
	stack := setupTestApp(t)

	_, _ = doJSON(t, stack.app, http.MethodPost, "/automations/", createAutomationBody())

	// Missing project scope is a validation error, not a global broadcast.
	resp, _ := doJSON(t, stack.app, http.MethodPost, "/events", web.DispatchEventRequest{
		Name: "deploy_finished",
	})
	assert.Equal(t, http.StatusBadRequest, resp.StatusCode)

	// A different project's event never reaches proj-1 automations.
	resp, _ = doJSON(t, stack.app, http.MethodPost, "/events", web.DispatchEventRequest{
		ProjectID: "proj-2",
		Name:      "deploy_finished",
		Payload:   models.EventPayload{"version": "v9"},
	})
	assert.Equal(t, http.StatusAccepted, resp.StatusCode)
	assert.Empty(t, stack.chats.messages)
}

func TestPresetLifecycle(t *testing.T) {
	stack := setupTestApp(t)

	snapshot := models.PresetSnapshot{
		Name:    "deploy notifier",
		Trigger: models.TriggerSpec{Trigger: models.EventTrigger{EventType: "deploy_finished"}},
		Action: models.Action{
			Type:   "append_chat_message",
			Params: map[string]any{"content": "deployed"},
		},
	}

	resp, raw := doJSON(t, stack.app, http.MethodPost, "/presets/", web.CreatePresetRequest{
		ProjectID: "proj-1",
		Snapshot:  snapshot,
		Actor:     "ana",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var preset models.Preset
	require.NoError(t, json.Unmarshal(raw, &preset))

	snapshot.Name = "deploy notifier v2"
	resp, _ = doJSON(t, stack.app, http.MethodPatch, "/presets/"+preset.ID, web.UpdatePresetRequest{
		Snapshot: snapshot,
		Note:     "rename",
		Actor:    "ana",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	resp, raw = doJSON(t, stack.app, http.MethodGet, "/presets/"+preset.ID+"/versions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var versions struct {
		Versions []models.PresetVersion `json:"versions"`
	}
	require.NoError(t, json.Unmarshal(raw, &versions))
	require.Len(t, versions.Versions, 2)

	resp, raw = doJSON(t, stack.app, http.MethodGet, "/presets/"+preset.ID+"/versions/1/diff", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "name")

	resp, raw = doJSON(t, stack.app, http.MethodPost, "/presets/"+preset.ID+"/rollback", web.RollbackPresetRequest{
		Ordinal: 1,
		Actor:   "ana",
	})
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var rolledBack models.Preset
	require.NoError(t, json.Unmarshal(raw, &rolledBack))
	assert.Equal(t, "deploy notifier", rolledBack.Name)

	resp, raw = doJSON(t, stack.app, http.MethodPost, "/presets/"+preset.ID+"/apply", web.ApplyPresetRequest{
		ProjectID: "proj-2",
		Actor:     "ana",
	})
	assert.Equal(t, http.StatusCreated, resp.StatusCode)

	var automation models.Automation
	require.NoError(t, json.Unmarshal(raw, &automation))
	assert.Equal(t, "proj-2", automation.ProjectID)
	assert.Equal(t, "deploy notifier", automation.Name)
}

func TestActionSchemaCatalog(t *testing.T) {
	stack := setupTestApp(t)

	resp, raw := doJSON(t, stack.app, http.MethodGet, "/actions", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)

	var catalog struct {
		Actions []registry.ActionSchema `json:"actions"`
	}
	require.NoError(t, json.Unmarshal(raw, &catalog))
	assert.NotEmpty(t, catalog.Actions)
}

func TestHealthCheck(t *testing.T) {
	stack := setupTestApp(t)

	resp, raw := doJSON(t, stack.app, http.MethodGet, "/health", nil)
	assert.Equal(t, http.StatusOK, resp.StatusCode)
	assert.Contains(t, string(raw), "healthy")
}
