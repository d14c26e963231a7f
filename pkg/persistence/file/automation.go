package file

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sort"
	"sync"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
)

const fileMode = 0o644

// AutomationRepository stores one JSON document per automation under
// <root>/automations.
type AutomationRepository struct {
	root string
	mu   sync.RWMutex
}

func NewAutomationRepository(root string) *AutomationRepository {
	return &AutomationRepository{root: root}
}

func (r *AutomationRepository) dir() string {
	return filepath.Join(r.root, "automations")
}

func (r *AutomationRepository) path(id string) string {
	return filepath.Join(r.dir(), id+".json")
}

func (r *AutomationRepository) List(ctx context.Context, projectID string) ([]*models.Automation, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Automation, 0, len(all))

	for _, automation := range all {
		if projectID == "" || automation.ProjectID == projectID {
			out = append(out, automation)
		}
	}

	return out, nil
}

func (r *AutomationRepository) ListEnabled(ctx context.Context) ([]*models.Automation, error) {
	all, err := r.loadAll(ctx)
	if err != nil {
		return nil, err
	}

	out := make([]*models.Automation, 0, len(all))

	for _, automation := range all {
		if automation.Enabled {
			out = append(out, automation)
		}
	}

	return out, nil
}

func (r *AutomationRepository) GetByID(_ context.Context, id string) (*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *AutomationRepository) Save(_ context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(automation.ID)); err == nil {
		return persistence.NewAutomationError("Save", automation.ID, persistence.ErrAutomationAlreadyExists)
	}

	return r.write(automation)
}

func (r *AutomationRepository) Update(_ context.Context, automation *models.Automation) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	if _, err := os.Stat(r.path(automation.ID)); errors.Is(err, fs.ErrNotExist) {
		return persistence.NewAutomationError("Update", automation.ID, persistence.ErrAutomationNotFound)
	}

	return r.write(automation)
}

func (r *AutomationRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewAutomationError("Delete", id, persistence.ErrAutomationNotFound)
	}

	return err
}

func (r *AutomationRepository) loadAll(_ context.Context) ([]*models.Automation, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := filepath.Glob(filepath.Join(r.dir(), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list automation files: %w", err)
	}

	out := make([]*models.Automation, 0, len(entries))

	for _, entry := range entries {
		id := cutJSONExt(filepath.Base(entry))

		automation, err := r.read(id)
		if err != nil {
			return nil, err
		}

		out = append(out, automation)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (r *AutomationRepository) read(id string) (*models.Automation, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewAutomationError("GetByID", id, persistence.ErrAutomationNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read automation %s: %w", id, err)
	}

	var automation models.Automation
	if err := json.Unmarshal(data, &automation); err != nil {
		return nil, fmt.Errorf("failed to decode automation %s: %w", id, err)
	}

	return &automation, nil
}

func (r *AutomationRepository) write(automation *models.Automation) error {
	if err := os.MkdirAll(r.dir(), 0o755); err != nil {
		return fmt.Errorf("failed to create automations directory: %w", err)
	}

	data, err := json.MarshalIndent(automation, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode automation %s: %w", automation.ID, err)
	}

	return os.WriteFile(r.path(automation.ID), data, fileMode)
}

func cutJSONExt(name string) string {
	return name[:len(name)-len(".json")]
}
