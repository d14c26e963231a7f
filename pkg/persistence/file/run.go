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

// RunRepository stores run records under <root>/runs/<automation_id>/.
type RunRepository struct {
	root string
	mu   sync.RWMutex
}

func NewRunRepository(root string) *RunRepository {
	return &RunRepository{root: root}
}

func (r *RunRepository) dir(automationID string) string {
	return filepath.Join(r.root, "runs", automationID)
}

func (r *RunRepository) Save(_ context.Context, run *models.RunRecord) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.dir(run.AutomationID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create runs directory: %w", err)
	}

	data, err := json.MarshalIndent(run, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode run %s: %w", run.ID, err)
	}

	return os.WriteFile(filepath.Join(dir, run.ID+".json"), data, fileMode)
}

func (r *RunRepository) GetByID(_ context.Context, id string) (*models.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	matches, err := filepath.Glob(filepath.Join(r.root, "runs", "*", id+".json"))
	if err != nil {
		return nil, fmt.Errorf("failed to locate run %s: %w", id, err)
	}

	if len(matches) == 0 {
		return nil, persistence.NewRunError("GetByID", id, persistence.ErrRunNotFound)
	}

	return readRun(matches[0])
}

func (r *RunRepository) ListByAutomation(_ context.Context, automationID string, limit int) ([]*models.RunRecord, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	runs, err := r.loadAll(automationID)
	if err != nil {
		return nil, err
	}

	if limit > 0 && len(runs) > limit {
		runs = runs[:limit]
	}

	return runs, nil
}

func (r *RunRepository) Prune(_ context.Context, automationID string, keep int) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	runs, err := r.loadAll(automationID)
	if err != nil {
		return err
	}

	for _, run := range runs[min(keep, len(runs)):] {
		err := os.Remove(filepath.Join(r.dir(automationID), run.ID+".json"))
		if err != nil && !errors.Is(err, fs.ErrNotExist) {
			return fmt.Errorf("failed to prune run %s: %w", run.ID, err)
		}
	}

	return nil
}

// loadAll returns an automation's runs sorted newest first.
func (r *RunRepository) loadAll(automationID string) ([]*models.RunRecord, error) {
	entries, err := filepath.Glob(filepath.Join(r.dir(automationID), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list run files: %w", err)
	}

	runs := make([]*models.RunRecord, 0, len(entries))

	for _, entry := range entries {
		run, err := readRun(entry)
		if err != nil {
			return nil, err
		}

		runs = append(runs, run)
	}

	sort.Slice(runs, func(i, j int) bool { return runs[i].StartedAt.After(runs[j].StartedAt) })

	return runs, nil
}

func readRun(path string) (*models.RunRecord, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("failed to read run file %s: %w", path, err)
	}

	var run models.RunRecord
	if err := json.Unmarshal(data, &run); err != nil {
		return nil, fmt.Errorf("failed to decode run file %s: %w", path, err)
	}

	return &run, nil
}
