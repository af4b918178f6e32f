package cli

import (
	"context"
	"fmt"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/gophish-backup/internal/archive"
	"github.com/randalmurphal/gophish-backup/internal/backup"
	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

// NewBackupCmd creates the gophish-backup root command.
func NewBackupCmd() *cobra.Command {
	cmd, _ := newBackupCmd()
	return cmd
}

func newBackupCmd() (*cobra.Command, *options) {
	opts := &options{}

	cmd := &cobra.Command{
		Use:   "gophish-backup",
		Short: "Back up a Gophish instance to a ZIP archive",
		Long: `Back up the sending profiles, email templates (with attachments) and
landing pages of a Gophish instance into a single ZIP archive.

The archive replaces any existing file with the same name once the backup
completes. Restore it with gophish-restore.

Examples:
  GOPHISH_API_KEY=... gophish-backup --instance https://phish.example.com/
  gophish-backup --instance https://phish.example.com/ --filename nightly`,
		Version:      Version,
		Args:         cobra.NoArgs,
		SilenceUsage: true,
		// errors are printed by Execute in the user-facing format
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			logger := newLogger(cmd.ErrOrStderr(), opts.verbose)
			cfg, err := opts.resolve(cmd, logger)
			if err != nil {
				return err
			}
			remote, err := newRemote(cfg, logger)
			if err != nil {
				return err
			}

			path := cfg.ArchivePath()
			w, err := archive.Create(path)
			if err != nil {
				return backuperrors.ErrConfigInvalid("filename", err.Error()).WithCause(err)
			}

			result, err := backup.NewExporter(remote, logger).Run(cmd.Context(), w)
			if err != nil {
				_ = w.Abort()
				return wrapRunError("backup", path, err)
			}
			if err := w.Close(); err != nil {
				return backuperrors.Wrap(err, "could not write "+path)
			}

			out := cmd.OutOrStdout()
			fmt.Fprintf(out, "Backed up %d sending profiles, %d templates (%d attachments) and %d landing pages to %s\n",
				result.Exported[model.KindSendingProfile],
				result.Exported[model.KindTemplate],
				result.Attachments,
				result.Exported[model.KindPage],
				path)
			return nil
		},
	}

	opts.addFlags(cmd)
	return cmd, opts
}

// ExecuteBackup runs gophish-backup with the process arguments.
func ExecuteBackup(ctx context.Context) error {
	cmd, opts := newBackupCmd()
	return execute(ctx, cmd, &opts.verbose)
}
