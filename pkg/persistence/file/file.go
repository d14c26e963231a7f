// Package file provides file-based persistence for automations, runs, and
// presets. Intended for development and single-process deployments.
package file

import (
	"context"
	"os"
	"strings"

	"github.com/asklab/relay/pkg/persistence"
)

// Persistence implements persistence.Persistence on top of a directory of
// JSON documents.
type Persistence struct {
	root           string
	automationRepo *AutomationRepository
	runRepo        *RunRepository
	presetRepo     *PresetRepository
}

// NewPersistence creates file persistence rooted at the given directory.
// Accepts a plain path or a file:// URL.
func NewPersistence(root string) *Persistence {
	cleanRoot := strings.Replace(root, "file://", "", 1)

	return &Persistence{
		root:           cleanRoot,
		automationRepo: NewAutomationRepository(cleanRoot),
		runRepo:        NewRunRepository(cleanRoot),
		presetRepo:     NewPresetRepository(cleanRoot),
	}
}

func (fp *Persistence) AutomationRepository() persistence.AutomationRepository {
	return fp.automationRepo
}

func (fp *Persistence) RunRepository() persistence.RunRepository {
	return fp.runRepo
}

func (fp *Persistence) PresetRepository() persistence.PresetRepository {
	return fp.presetRepo
}

// HealthCheck verifies the root directory exists.
func (fp *Persistence) HealthCheck(_ context.Context) error {
	if _, err := os.Stat(fp.root); os.IsNotExist(err) {
		return os.ErrNotExist
	}

	return nil
}

// Close performs any necessary cleanup. Nothing to release for files.
func (fp *Persistence) Close(_ context.Context) error {
	return nil
}
