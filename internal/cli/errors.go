package cli

import (
	"errors"
	"fmt"
	"io"

	"github.com/randalmurphal/gophish-backup/internal/archive"
	"github.com/randalmurphal/gophish-backup/internal/backup"
	"github.com/randalmurphal/gophish-backup/internal/config"
	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
	"github.com/randalmurphal/gophish-backup/internal/gophish"
)

// PrintError prints an error with appropriate formatting.
// If the error is a BackupError, it uses the user-friendly format.
// Otherwise, it prints a simple error message.
func PrintError(w io.Writer, err error, verbose bool) {
	if backupErr := backuperrors.AsBackupError(err); backupErr != nil {
		fmt.Fprintln(w, backupErr.UserMessage())
		if verbose {
			// In verbose mode, also print the error code and cause
			fmt.Fprintf(w, "\nCode: %s\n", backupErr.Code)
			if backupErr.Cause != nil {
				fmt.Fprintf(w, "Cause: %v\n", backupErr.Cause)
			}
		}
		return
	}
	fmt.Fprintf(w, "Error: %v\n", err)
}

// wrapRunError maps a pipeline failure onto a user-facing error.
func wrapRunError(operation, archivePath string, err error) error {
	switch {
	case errors.Is(err, backup.ErrPurgeDeclined):
		return backuperrors.ErrPurgeDeclined()
	case errors.Is(err, archive.ErrMalformedArchive):
		return backuperrors.ErrArchiveInvalid(archivePath).WithCause(err)
	case errors.Is(err, gophish.ErrAuthFailed):
		be := backuperrors.ErrRemoteFailed(operation).WithCause(err)
		be.Why = "The instance rejected the API key"
		be.Fix = "Check the key under Settings in the Gophish admin UI and pass it with --api-key or " + config.EnvPrefix + "_API_KEY"
		return be
	default:
		return backuperrors.ErrRemoteFailed(operation).WithCause(err)
	}
}
