package actions

import (
	"context"
	"log/slog"

	"github.com/google/uuid"
)

// LogStore is the standalone-mode ChatStore and StateStore: it records every
// side effect to the log and hands back generated ids. Embedding hosts
// replace it with stores backed by their own chat and state systems.
type LogStore struct {
	logger *slog.Logger
}

func NewLogStore(logger *slog.Logger) *LogStore {
	return &LogStore{logger: logger.With("module", "logstore")}
}

func (s *LogStore) CreateTask(ctx context.Context, projectID string, task TaskInput) (string, error) {
	id := uuid.New().String()
	s.logger.InfoContext(ctx, "Created chat task",
		"project_id", projectID, "task_id", id, "title", task.Title, "priority", task.Priority)

	return id, nil
}

func (s *LogStore) UpdateTask(ctx context.Context, projectID, taskID string, patch TaskPatch) error {
	s.logger.InfoContext(ctx, "Updated chat task",
		"project_id", projectID, "task_id", taskID, "status", patch.Status)

	return nil
}

func (s *LogStore) AppendMessage(ctx context.Context, projectID, chatID, role, content string) (string, error) {
	id := uuid.New().String()
	s.logger.InfoContext(ctx, "Appended chat message",
		"project_id", projectID, "chat_id", chatID, "message_id", id, "role", role, "length", len(content))

	return id, nil
}

func (s *LogStore) SetChatTitle(ctx context.Context, projectID, chatID, title string) error {
	s.logger.InfoContext(ctx, "Set chat title",
		"project_id", projectID, "chat_id", chatID, "title", title)

	return nil
}

func (s *LogStore) RequestUserInput(ctx context.Context, projectID, chatID string, req UserInputRequest) (string, error) {
	id := uuid.New().String()
	s.logger.InfoContext(ctx, "Requested user input",
		"project_id", projectID, "chat_id", chatID, "request_id", id, "answer_mode", req.AnswerMode)

	return id, nil
}

func (s *LogStore) Upsert(ctx context.Context, projectID, key string, value any) error {
	s.logger.InfoContext(ctx, "Upserted state value",
		"project_id", projectID, "key", key, "value", value)

	return nil
}
