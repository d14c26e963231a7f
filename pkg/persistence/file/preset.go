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
	"strconv"
	"sync"
	"time"

	"github.com/asklab/relay/pkg/models"
	"github.com/asklab/relay/pkg/persistence"
)

// PresetRepository stores presets under <root>/presets and their version
// history under <root>/preset_versions/<preset_id>/<ordinal>.json. Version
// files are written once and never touched again.
type PresetRepository struct {
	root string
	mu   sync.RWMutex
}

func NewPresetRepository(root string) *PresetRepository {
	return &PresetRepository{root: root}
}

func (r *PresetRepository) path(id string) string {
	return filepath.Join(r.root, "presets", id+".json")
}

func (r *PresetRepository) versionsDir(presetID string) string {
	return filepath.Join(r.root, "preset_versions", presetID)
}

func (r *PresetRepository) List(_ context.Context, projectID string) ([]*models.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := filepath.Glob(filepath.Join(r.root, "presets", "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list preset files: %w", err)
	}

	out := make([]*models.Preset, 0, len(entries))

	for _, entry := range entries {
		preset, err := r.read(cutJSONExt(filepath.Base(entry)))
		if err != nil {
			return nil, err
		}

		if projectID == "" || preset.ProjectID == projectID {
			out = append(out, preset)
		}
	}

	sort.Slice(out, func(i, j int) bool { return out[i].CreatedAt.Before(out[j].CreatedAt) })

	return out, nil
}

func (r *PresetRepository) GetByID(_ context.Context, id string) (*models.Preset, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	return r.read(id)
}

func (r *PresetRepository) Save(_ context.Context, preset *models.Preset) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	return r.write(preset)
}

func (r *PresetRepository) Update(_ context.Context, preset *models.Preset, expectedUpdatedAt time.Time) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	current, err := r.read(preset.ID)
	if err != nil {
		return err
	}

	if !current.UpdatedAt.Equal(expectedUpdatedAt) {
		return persistence.NewPresetError("Update", preset.ID, persistence.ErrConcurrentModification)
	}

	return r.write(preset)
}

func (r *PresetRepository) Delete(_ context.Context, id string) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	err := os.Remove(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return persistence.NewPresetError("Delete", id, persistence.ErrPresetNotFound)
	}

	if err != nil {
		return err
	}

	// History stays: versions outlive their preset for audit.
	return nil
}

func (r *PresetRepository) Versions(_ context.Context, presetID string) ([]*models.PresetVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	entries, err := filepath.Glob(filepath.Join(r.versionsDir(presetID), "*.json"))
	if err != nil {
		return nil, fmt.Errorf("failed to list version files: %w", err)
	}

	out := make([]*models.PresetVersion, 0, len(entries))

	for _, entry := range entries {
		version, err := readVersion(entry)
		if err != nil {
			return nil, err
		}

		out = append(out, version)
	}

	sort.Slice(out, func(i, j int) bool { return out[i].Ordinal < out[j].Ordinal })

	return out, nil
}

func (r *PresetRepository) Version(_ context.Context, presetID string, ordinal int) (*models.PresetVersion, error) {
	r.mu.RLock()
	defer r.mu.RUnlock()

	path := filepath.Join(r.versionsDir(presetID), strconv.Itoa(ordinal)+".json")

	version, err := readVersion(path)
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewPresetError("Version", presetID, persistence.ErrPresetVersionNotFound)
	}

	return version, err
}

func (r *PresetRepository) AppendVersion(_ context.Context, version *models.PresetVersion) error {
	r.mu.Lock()
	defer r.mu.Unlock()

	dir := r.versionsDir(version.PresetID)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("failed to create versions directory: %w", err)
	}

	path := filepath.Join(dir, strconv.Itoa(version.Ordinal)+".json")
	if _, err := os.Stat(path); err == nil {
		return persistence.NewPresetError("AppendVersion", version.PresetID, persistence.ErrConcurrentModification)
	}

	data, err := json.MarshalIndent(version, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode version %d of preset %s: %w", version.Ordinal, version.PresetID, err)
	}

	return os.WriteFile(path, data, fileMode)
}

func (r *PresetRepository) read(id string) (*models.Preset, error) {
	data, err := os.ReadFile(r.path(id))
	if errors.Is(err, fs.ErrNotExist) {
		return nil, persistence.NewPresetError("GetByID", id, persistence.ErrPresetNotFound)
	}

	if err != nil {
		return nil, fmt.Errorf("failed to read preset %s: %w", id, err)
	}

	var preset models.Preset
	if err := json.Unmarshal(data, &preset); err != nil {
		return nil, fmt.Errorf("failed to decode preset %s: %w", id, err)
	}

	return &preset, nil
}

func (r *PresetRepository) write(preset *models.Preset) error {
	if err := os.MkdirAll(filepath.Join(r.root, "presets"), 0o755); err != nil {
		return fmt.Errorf("failed to create presets directory: %w", err)
	}

	data, err := json.MarshalIndent(preset, "", "  ")
	if err != nil {
		return fmt.Errorf("failed to encode preset %s: %w", preset.ID, err)
	}

	return os.WriteFile(r.path(preset.ID), data, fileMode)
}

func readVersion(path string) (*models.PresetVersion, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, err
	}

	var version models.PresetVersion
	if err := json.Unmarshal(data, &version); err != nil {
		return nil, fmt.Errorf("failed to decode version file %s: %w", path, err)
	}

	return &version, nil
}
