package cli

import (
	"context"
	"errors"
	"fmt"
	"io"

	"github.com/spf13/cobra"

	"github.com/randalmurphal/gophish-backup/internal/archive"
	"github.com/randalmurphal/gophish-backup/internal/backup"
	backuperrors "github.com/randalmurphal/gophish-backup/internal/errors"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

type restoreOptions struct {
	options
	unsafe bool
	purge  bool
	yes    bool
	dryRun bool

	// terminal decides whether stdin can answer the purge prompt.
	terminal func(io.Reader) bool
}

// NewRestoreCmd creates the gophish-restore root command.
func NewRestoreCmd() *cobra.Command {
	cmd, _ := newRestoreCmd()
	return cmd
}

func newRestoreCmd() (*cobra.Command, *restoreOptions) {
	opts := &restoreOptions{terminal: isTerminal}

	cmd := &cobra.Command{
		Use:   "gophish-restore",
		Short: "Restore a Gophish instance from a ZIP archive",
		Long: `Restore sending profiles, email templates and landing pages from an
archive written by gophish-backup.

Entities are created in order: sending profiles, templates, landing pages.
An entity whose name already exists on the instance is skipped with a notice,
or overwritten with --unsafe. --purge deletes every template, landing page
and sending profile on the instance first, after confirmation.

Examples:
  gophish-restore --instance https://phish.example.com/
  gophish-restore --instance https://phish.example.com/ --unsafe
  gophish-restore --instance https://phish.example.com/ --purge --yes`,
		Version:       Version,
		Args:          cobra.NoArgs,
		SilenceUsage:  true,
		SilenceErrors: true,
		RunE: func(cmd *cobra.Command, args []string) error {
			return runRestore(cmd, opts)
		},
	}

	opts.addFlags(cmd)
	cmd.Flags().BoolVar(&opts.unsafe, "unsafe", false, "overwrite entities whose name already exists")
	cmd.Flags().BoolVar(&opts.purge, "purge", false, "delete all existing entities before restoring")
	cmd.Flags().BoolVarP(&opts.yes, "yes", "y", false, "do not ask for purge confirmation")
	cmd.Flags().BoolVar(&opts.dryRun, "dry-run", false, "show what would be restored without changing the instance")
	return cmd, opts
}

func runRestore(cmd *cobra.Command, opts *restoreOptions) error {
	ctx := cmd.Context()
	out := cmd.OutOrStdout()
	logger := newLogger(cmd.ErrOrStderr(), opts.verbose)

	cfg, err := opts.resolve(cmd, logger)
	if err != nil {
		return err
	}
	remote, err := newRemote(cfg, logger)
	if err != nil {
		return err
	}

	// Open the archive before touching the instance so a bad path never
	// follows a purge.
	path := cfg.ArchivePath()
	r, err := archive.Open(path)
	if err != nil {
		return backuperrors.ErrArchiveInvalid(path).WithCause(err)
	}
	defer func() { _ = r.Close() }()

	if opts.purge {
		if opts.dryRun {
			fmt.Fprintln(out, "Dry run: skipping purge")
		} else {
			confirm, err := purgeConfirmer(opts.yes, cmd.InOrStdin(), out, opts.terminal)
			if err != nil {
				return backuperrors.ErrPurgeDeclined().WithCause(err)
			}
			result, err := backup.Purge(ctx, remote, confirm, out, logger)
			if err != nil {
				if errors.Is(err, backup.ErrPurgeDeclined) {
					fmt.Fprintln(out, "Cancelled.")
				}
				return wrapRunError("purge", path, err)
			}
			fmt.Fprintf(out, "Purged %d templates, %d landing pages and %d sending profiles\n",
				result.Deleted[model.KindTemplate],
				result.Deleted[model.KindPage],
				result.Deleted[model.KindSendingProfile])
		}
	}

	imp := backup.NewImporter(remote, backup.ImportOptions{
		Unsafe: opts.unsafe,
		DryRun: opts.dryRun,
		Out:    out,
	}, logger)
	result, err := imp.Run(ctx, r)
	if err != nil {
		return wrapRunError("restore", path, err)
	}

	printImportSummary(out, result, opts.dryRun)
	return nil
}

func printImportSummary(w io.Writer, result *backup.ImportResult, dryRun bool) {
	verb := "Restored"
	if dryRun {
		verb = "Would restore"
	}
	for _, kind := range model.Kinds {
		fmt.Fprintf(w, "%s %s: %d created, %d replaced, %d skipped\n",
			verb,
			kindPlural(kind),
			result.Created[kind],
			result.Replaced[kind],
			result.Skipped[kind])
	}
}

func kindPlural(kind model.Kind) string {
	switch kind {
	case model.KindSendingProfile:
		return "sending profiles"
	case model.KindTemplate:
		return "templates"
	case model.KindPage:
		return "landing pages"
	default:
		return string(kind)
	}
}

// ExecuteRestore runs gophish-restore with the process arguments.
func ExecuteRestore(ctx context.Context) error {
	cmd, opts := newRestoreCmd()
	return execute(ctx, cmd, &opts.verbose)
}
