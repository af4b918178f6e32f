// Package errors provides structured error types for gophish-backup.
package errors

import (
	"encoding/json"
	"errors"
	"fmt"
	"strings"
)

// Code represents a unique error code.
type Code string

// Error codes for gophish-backup.
const (
	// Precondition errors
	CodeInstanceInvalid Code = "INSTANCE_INVALID"
	CodeConfigMissing   Code = "CONFIG_MISSING"
	CodeConfigInvalid   Code = "CONFIG_INVALID"

	// Archive errors
	CodeArchiveInvalid Code = "ARCHIVE_INVALID"

	// Remote service errors
	CodeRemoteFailed Code = "REMOTE_FAILED"

	// Purge errors
	CodePurgeDeclined Code = "PURGE_DECLINED"
)

// BackupError is the structured error type for gophish-backup.
type BackupError struct {
	Code  Code   `json:"code"`
	What  string `json:"what"`
	Why   string `json:"why,omitempty"`
	Fix   string `json:"fix,omitempty"`
	Cause error  `json:"-"`
}

// Error implements the error interface.
func (e *BackupError) Error() string {
	var b strings.Builder
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString(": ")
		b.WriteString(e.Why)
	}
	if e.Cause != nil {
		b.WriteString(": ")
		b.WriteString(e.Cause.Error())
	}
	return b.String()
}

// Unwrap returns the underlying cause.
func (e *BackupError) Unwrap() error {
	return e.Cause
}

// UserMessage returns a user-friendly message for CLI output.
func (e *BackupError) UserMessage() string {
	var b strings.Builder
	b.WriteString("Error: ")
	b.WriteString(e.What)
	if e.Why != "" {
		b.WriteString("\n\nWhy: ")
		b.WriteString(e.Why)
	}
	if e.Fix != "" {
		b.WriteString("\n\nFix: ")
		b.WriteString(e.Fix)
	}
	return b.String()
}

// MarshalJSON implements json.Marshaler.
func (e *BackupError) MarshalJSON() ([]byte, error) {
	type alias BackupError
	aux := struct {
		*alias
		CauseMsg string `json:"cause,omitempty"`
	}{
		alias: (*alias)(e),
	}
	if e.Cause != nil {
		aux.CauseMsg = e.Cause.Error()
	}
	return json.Marshal(aux)
}

// Is reports whether target is a BackupError with the same code.
func (e *BackupError) Is(target error) bool {
	t, ok := target.(*BackupError)
	if !ok {
		return false
	}
	return e.Code == t.Code
}

// WithCause returns a copy of the error with the given cause.
func (e *BackupError) WithCause(err error) *BackupError {
	return &BackupError{
		Code:  e.Code,
		What:  e.What,
		Why:   e.Why,
		Fix:   e.Fix,
		Cause: err,
	}
}

// --- Error constructors ---

// ErrInstanceInvalid returns an error for a malformed instance address.
func ErrInstanceInvalid(instance, reason string) *BackupError {
	return &BackupError{
		Code: CodeInstanceInvalid,
		What: fmt.Sprintf("invalid instance address %q", instance),
		Why:  reason,
		Fix:  "Provide the full URI including scheme and trailing slash, e.g. https://my.phishingserver.tld/",
	}
}

// ErrConfigMissing returns an error for a required setting that was not provided.
func ErrConfigMissing(field, flag, envVar string) *BackupError {
	return &BackupError{
		Code: CodeConfigMissing,
		What: fmt.Sprintf("missing required setting: %s", field),
		Why:  "This value is required but was not set by flag, environment or config file",
		Fix:  fmt.Sprintf("Pass --%s or set %s", flag, envVar),
	}
}

// ErrConfigInvalid returns an error for an invalid configuration value.
func ErrConfigInvalid(field, reason string) *BackupError {
	return &BackupError{
		Code: CodeConfigInvalid,
		What: fmt.Sprintf("invalid configuration: %s", field),
		Why:  reason,
		Fix:  "Check .gophish-backup.yaml and the GOPHISH_* environment variables",
	}
}

// ErrArchiveInvalid returns an error for an archive that cannot be restored.
func ErrArchiveInvalid(path string) *BackupError {
	return &BackupError{
		Code: CodeArchiveInvalid,
		What: fmt.Sprintf("cannot restore from %s", path),
		Why:  "The archive is missing, unreadable or not laid out as a gophish backup",
		Fix:  "Regenerate the archive with gophish-backup",
	}
}

// ErrRemoteFailed returns an error for a failed call to the Gophish API.
func ErrRemoteFailed(operation string) *BackupError {
	return &BackupError{
		Code: CodeRemoteFailed,
		What: fmt.Sprintf("%s failed", operation),
		Why:  "The Gophish API returned an error or could not be reached",
		Fix:  "Check the instance address, the API key and that the instance is running",
	}
}

// ErrPurgeDeclined returns an error when the purge confirmation was refused.
func ErrPurgeDeclined() *BackupError {
	return &BackupError{
		Code: CodePurgeDeclined,
		What: "purge was not confirmed",
		Why:  "Purging deletes every sending profile, template and landing page on the instance",
		Fix:  "Answer 'y' at the prompt or pass --yes",
	}
}

// AsBackupError attempts to convert an error to a BackupError.
// Returns nil if the error is not a BackupError.
func AsBackupError(err error) *BackupError {
	var backupErr *BackupError
	if errors.As(err, &backupErr) {
		return backupErr
	}
	return nil
}

// Wrap wraps a generic error into a BackupError with unknown code.
func Wrap(err error, what string) *BackupError {
	return &BackupError{
		Code:  Code("UNKNOWN"),
		What:  what,
		Cause: err,
	}
}
