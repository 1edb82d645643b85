package reports

import (
	"errors"
	"fmt"
)

// Sentinel errors shared by both report aggregates.
var (
	// ErrNotFound indicates the referenced report does not exist.
	ErrNotFound = errors.New("report not found")

	// ErrMissingOriginalContent indicates a deep dive was requested for a
	// report whose submission content was never persisted.
	ErrMissingOriginalContent = errors.New("report has no original content")

	// ErrSourceNotReady indicates the report exists but does not yet carry a
	// completed analysis result.
	ErrSourceNotReady = errors.New("report analysis is not completed")

	// ErrAlreadyGenerated guards an existing audio artifact against being
	// clobbered by a second generation run.
	ErrAlreadyGenerated = errors.New("podcast already generated")

	// ErrAlreadyExported rejects a repeated export of a delivered artifact.
	ErrAlreadyExported = errors.New("podcast already exported")

	// ErrNoArtifact indicates export was requested before a successful
	// generation produced an audio URL.
	ErrNoArtifact = errors.New("no audio artifact to export")

	// ErrStageInFlight indicates another pipeline stage is currently running
	// for the same report id.
	ErrStageInFlight = errors.New("podcast operation already in progress")
)

// ValidationError covers malformed caller input, rejected before any state
// mutation.
type ValidationError struct {
	Field  string
	Reason string
}

func (e *ValidationError) Error() string {
	return fmt.Sprintf("invalid %s: %s", e.Field, e.Reason)
}

// Validationf builds a ValidationError for a field.
func Validationf(field, format string, args ...any) error {
	return &ValidationError{Field: field, Reason: fmt.Sprintf(format, args...)}
}

// CollaboratorError wraps a failure from an external collaborator (model,
// synthesis, export). These are the only errors eligible for caller retry.
type CollaboratorError struct {
	Collaborator string
	Err          error
}

func (e *CollaboratorError) Error() string {
	return fmt.Sprintf("%s: %v", e.Collaborator, e.Err)
}

func (e *CollaboratorError) Unwrap() error { return e.Err }
