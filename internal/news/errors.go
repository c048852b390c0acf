package news

import (
	"errors"
	"fmt"
)

// ValidationError reports malformed input; the job is never created.
type ValidationError struct {
	Msg string
}

func (e *ValidationError) Error() string { return e.Msg }

// Validationf builds a ValidationError from a format string.
func Validationf(format string, args ...any) *ValidationError {
	return &ValidationError{Msg: fmt.Sprintf(format, args...)}
}

// ConflictError reports an operation rejected because of the job's current
// state, e.g. retrying or deleting a running job.
type ConflictError struct {
	Msg string
}

func (e *ConflictError) Error() string { return e.Msg }

// Conflictf builds a ConflictError from a format string.
func Conflictf(format string, args ...any) *ConflictError {
	return &ConflictError{Msg: fmt.Sprintf(format, args...)}
}

// NotFoundError reports a missing record.
type NotFoundError struct {
	Kind string
	ID   string
}

func (e *NotFoundError) Error() string { return fmt.Sprintf("%s %s not found", e.Kind, e.ID) }

// SourceError is the structured failure of one provider fetch. Adapters never
// let raw transport errors escape; they are wrapped into SourceErrors so the
// orchestrator can aggregate them per source.
type SourceError struct {
	Provider string
	Message  string
}

func (e *SourceError) Error() string { return fmt.Sprintf("%s: %s", e.Provider, e.Message) }

// SourceErrorf builds a SourceError for the given provider.
func SourceErrorf(provider, format string, args ...any) *SourceError {
	return &SourceError{Provider: provider, Message: fmt.Sprintf(format, args...)}
}

// IsValidation reports whether err is a ValidationError.
func IsValidation(err error) bool {
	var ve *ValidationError
	return errors.As(err, &ve)
}

// IsConflict reports whether err is a ConflictError.
func IsConflict(err error) bool {
	var ce *ConflictError
	return errors.As(err, &ce)
}

// IsNotFound reports whether err is a NotFoundError.
func IsNotFound(err error) bool {
	var nf *NotFoundError
	return errors.As(err, &nf)
}
