// Package actions implements the built-in action catalog. Every action type
// declares its parameter schema and an executable handler; side effects go
// through the narrow store interfaces so hosts can bring their own backends.
package actions

import (
	"context"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/registry"
)

// TaskInput is the payload for creating a chat task.
type TaskInput struct {
	Title       string
	Description string
	Assignee    string
	Labels      []string
	Priority    string
}

// TaskPatch carries the mutable fields of update_chat_task. Nil means leave
// unchanged.
type TaskPatch struct {
	Title        *string
	Description  *string
	Status       *string
	AppendLabels []string
}

// UserInputRequest is the payload for request_user_input.
type UserInputRequest struct {
	Prompt     string
	AnswerMode string
	Options    []string
}

// ChatStore is the surface automations use to touch project chats and tasks.
type ChatStore interface {
	CreateTask(ctx context.Context, projectID string, task TaskInput) (string, error)
	UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch) error
	AppendMessage(ctx context.Context, projectID, chatID, role, content string) (string, error)
	SetChatTitle(ctx context.Context, projectID, chatID, title string) error
	RequestUserInput(ctx context.Context, projectID, chatID string, req UserInputRequest) (string, error)
}

// StateStore holds project-scoped key/value state automations may write.
type StateStore interface {
	Upsert(ctx context.Context, projectID, key string, value any) error
}

// Dispatcher lets actions feed back into the engine: chained events, direct
// automation runs, and enable/disable toggles.
type Dispatcher interface {
	DispatchEvent(ctx context.Context, execCtx models.ExecutionContext, name string, payload models.EventPayload) error
	RunAutomation(ctx context.Context, execCtx models.ExecutionContext, automationID string) error
	SetAutomationEnabled(ctx context.Context, automationID string, enabled bool) error
}

// Catalog bundles the dependencies the built-in handlers need.
type Catalog struct {
	Chats      ChatStore
	State      StateStore
	Dispatcher Dispatcher
}

// RegisterBuiltins adds every built-in action type to the registry.
func RegisterBuiltins(r *registry.Registry, c *Catalog) {
	r.Register(createChatTaskSchema(), c.createChatTask())
	r.Register(updateChatTaskSchema(), c.updateChatTask())
	r.Register(appendChatMessageSchema(), c.appendChatMessage())
	r.Register(setChatTitleSchema(), c.setChatTitle())
	r.Register(requestUserInputSchema(), c.requestUserInput())
	r.Register(dispatchEventSchema(), c.dispatchEvent())
	r.Register(runAutomationSchema(), c.runAutomation())
	r.Register(setAutomationEnabledSchema(), c.setAutomationEnabled())
	r.Register(upsertStateValueSchema(), c.upsertStateValue())
	r.Register(logMessageSchema(), c.logMessage())
}

func stringParam(params map[string]any, key string) string {
	s, _ := params[key].(string)

	return s
}

func listParam(params map[string]any, key string) []string {
	l, _ := params[key].([]string)

	return l
}

func stringPtrParam(params map[string]any, key string) *string {
	s, ok := params[key].(string)
	if !ok {
		return nil
	}

	return &s
}
