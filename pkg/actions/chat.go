package actions

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/protocol"
	"github.com/asklab/relay/pkg/registry"
)

func createChatTaskSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "create_chat_task",
		Description: "Create a task attached to the project chat",
		Fields: []registry.FieldSchema{
			{Key: "title", Kind: registry.KindString, Required: true},
			{Key: "description", Kind: registry.KindMultiline},
			{Key: "assignee", Kind: registry.KindString},
			{Key: "labels", Kind: registry.KindCSVList},
			{Key: "priority", Kind: registry.KindString, Enum: []string{"low", "normal", "high"}},
		},
	}
}

func (c *Catalog) createChatTask() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, logger *slog.Logger) (any, error) {
		task := TaskInput{
			Title:       stringParam(params, "title"),
			Description: stringParam(params, "description"),
			Assignee:    stringParam(params, "assignee"),
			Labels:      listParam(params, "labels"),
			Priority:    stringParam(params, "priority"),
		}

		if execCtx.DryRun {
			return map[string]any{"would_create_task": task.Title}, nil
		}

		taskID, err := c.Chats.CreateTask(ctx, execCtx.ProjectID, task)
		if err != nil {
			return nil, fmt.Errorf("failed to create task: %w", err)
		}

		logger.InfoContext(ctx, "Created chat task", "task_id", taskID)

		return map[string]any{"task_id": taskID}, nil
	})
}

func updateChatTaskSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "update_chat_task",
		Description: "Update an existing chat task",
		Fields: []registry.FieldSchema{
			{Key: "task_id", Kind: registry.KindString, Required: true},
			{Key: "title", Kind: registry.KindString},
			{Key: "description", Kind: registry.KindMultiline},
			{Key: "status", Kind: registry.KindString, Enum: []string{"open", "in_progress", "done", "cancelled"}},
			{Key: "append_labels", Kind: registry.KindCSVList},
		},
	}
}

func (c *Catalog) updateChatTask() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		taskID := stringParam(params, "task_id")

		patch := TaskPatch{
			Title:        stringPtrParam(params, "title"),
			Description:  stringPtrParam(params, "description"),
			Status:       stringPtrParam(params, "status"),
			AppendLabels: listParam(params, "append_labels"),
		}

		if execCtx.DryRun {
			return map[string]any{"would_update_task": taskID}, nil
		}

		if err := c.Chats.UpdateTask(ctx, execCtx.ProjectID, taskID, patch); err != nil {
			return nil, fmt.Errorf("failed to update task %s: %w", taskID, err)
		}

		return map[string]any{"task_id": taskID}, nil
	})
}

func appendChatMessageSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "append_chat_message",
		Description: "Append a message to a project chat",
		Fields: []registry.FieldSchema{
			{Key: "chat_id", Kind: registry.KindString},
			{Key: "content", Kind: registry.KindMultiline, Required: true},
			{Key: "role", Kind: registry.KindString, Enum: []string{"assistant", "system"}},
		},
	}
}

func (c *Catalog) appendChatMessage() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		role := stringParam(params, "role")
		if role == "" {
			role = "assistant"
		}

		content := stringParam(params, "content")
		chatID := stringParam(params, "chat_id")

		if execCtx.DryRun {
			return map[string]any{"would_append_message": len(content)}, nil
		}

		messageID, err := c.Chats.AppendMessage(ctx, execCtx.ProjectID, chatID, role, content)
		if err != nil {
			return nil, fmt.Errorf("failed to append message: %w", err)
		}

		return map[string]any{"message_id": messageID}, nil
	})
}

func setChatTitleSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "set_chat_title",
		Description: "Rename a project chat",
		Fields: []registry.FieldSchema{
			{Key: "chat_id", Kind: registry.KindString},
			{Key: "title", Kind: registry.KindString, Required: true},
		},
	}
}

func (c *Catalog) setChatTitle() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		title := stringParam(params, "title")
		chatID := stringParam(params, "chat_id")

		if execCtx.DryRun {
			return map[string]any{"would_set_title": title}, nil
		}

		if err := c.Chats.SetChatTitle(ctx, execCtx.ProjectID, chatID, title); err != nil {
			return nil, fmt.Errorf("failed to set chat title: %w", err)
		}

		return map[string]any{"title": title}, nil
	})
}

func requestUserInputSchema() registry.ActionSchema {
	return registry.ActionSchema{
		Type:        "request_user_input",
		Description: "Post a prompt that waits for a user answer",
		Fields: []registry.FieldSchema{
			{Key: "chat_id", Kind: registry.KindString},
			{Key: "prompt", Kind: registry.KindMultiline, Required: true},
			{Key: "answer_mode", Kind: registry.KindString, Enum: []string{"open_text", "single_choice"}},
			{Key: "options", Kind: registry.KindCSVList},
		},
		CrossField: func(params map[string]any) error {
			if params["answer_mode"] != "single_choice" {
				return nil
			}

			if options, _ := params["options"].([]string); len(options) < 2 {
				return fmt.Errorf("param 'options' must list at least two choices when answer_mode is single_choice")
			}

			return nil
		},
	}
}

func (c *Catalog) requestUserInput() protocol.ActionHandler {
	return protocol.ActionHandlerFunc(func(ctx context.Context, execCtx models.ExecutionContext, params map[string]any, _ *slog.Logger) (any, error) {
		req := UserInputRequest{
			Prompt:     stringParam(params, "prompt"),
			AnswerMode: stringParam(params, "answer_mode"),
			Options:    listParam(params, "options"),
		}

		if req.AnswerMode == "" {
			req.AnswerMode = "open_text"
		}

		if execCtx.DryRun {
			return map[string]any{"would_request_input": req.AnswerMode}, nil
		}

		requestID, err := c.Chats.RequestUserInput(ctx, execCtx.ProjectID, stringParam(params, "chat_id"), req)
		if err != nil {
			return nil, fmt.Errorf("failed to request user input: %w", err)
		}

		return map[string]any{"request_id": requestID}, nil
	})
}
