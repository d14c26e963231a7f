// Package persistence provides standardized error types for storage operations.
package persistence

import (
	"errors"
	"fmt"
)

// Standard persistence error types that all implementations should use.
var (
	// ErrAutomationNotFound indicates no automation exists for the given identifier.
	ErrAutomationNotFound = errors.New("automation not found")

	// ErrAutomationAlreadyExists indicates an automation with the same identifier already exists.
	ErrAutomationAlreadyExists = errors.New("automation already exists")

	// ErrRunNotFound indicates no run record exists for the given identifier.
	ErrRunNotFound = errors.New("run not found")

	// ErrPresetNotFound indicates no preset exists for the given identifier.
	ErrPresetNotFound = errors.New("preset not found")

	// ErrPresetVersionNotFound indicates no version exists for the given preset and ordinal.
	ErrPresetVersionNotFound = errors.New("preset version not found")

	// ErrConcurrentModification indicates the row changed between read and write.
	ErrConcurrentModification = errors.New("concurrent modification")
)

// StoreError wraps storage errors with the operation and entity involved.
type StoreError struct {
	Op       string // Operation being performed (e.g., "GetByID", "Save", "Delete")
	Entity   string // Entity kind ("automation", "run", "preset")
	EntityID string
	Err      error
}

func (e *StoreError) Error() string {
	return fmt.Sprintf("%s operation failed for %s %s: %v", e.Op, e.Entity, e.EntityID, e.Err)
}

func (e *StoreError) Unwrap() error {
	return e.Err
}

func (e *StoreError) Is(target error) bool {
	return errors.Is(e.Err, target)
}

// NewAutomationError creates a store error for an automation operation.
func NewAutomationError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "automation", EntityID: id, Err: err}
}

// NewRunError creates a store error for a run operation.
func NewRunError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "run", EntityID: id, Err: err}
}

// NewPresetError creates a store error for a preset operation.
func NewPresetError(op, id string, err error) *StoreError {
	return &StoreError{Op: op, Entity: "preset", EntityID: id, Err: err}
}

// IsAutomationNotFound checks if an error indicates a missing automation.
func IsAutomationNotFound(err error) bool {
	return errors.Is(err, ErrAutomationNotFound)
}

// IsPresetNotFound checks if an error indicates a missing preset.
func IsPresetNotFound(err error) bool {
	return errors.Is(err, ErrPresetNotFound)
}

// IsConcurrentModification checks if an error indicates a lost update race.
func IsConcurrentModification(err error) bool {
	return errors.Is(err, ErrConcurrentModification)
}
