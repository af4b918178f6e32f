package backup

import (
	"context"
	"errors"
	"fmt"
	"io"
	"log/slog"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// ErrPurgeDeclined is returned when the operator does not confirm a purge.
var ErrPurgeDeclined = errors.New("purge declined")

// PurgePrompt is the question put to the operator before a purge.
const PurgePrompt = "Delete every template, landing page and sending profile on the instance?"

// Confirmer asks the operator to approve a destructive action.
type Confirmer func(prompt string) (bool, error)

// PurgeResult counts deleted entities per kind.
type PurgeResult struct {
	Deleted map[model.Kind]int
}

// Purge deletes every template, page and sending profile on the remote, in
// that order. A nil confirm means the operator already approved. Nothing is
// deleted unless confirm returns true.
func Purge(ctx context.Context, remote Remote, confirm Confirmer, out io.Writer, logger *slog.Logger) (*PurgeResult, error) {
	if logger == nil {
		logger = slog.Default()
	}
	if out == nil {
		out = io.Discard
	}

	if confirm != nil {
		ok, err := confirm(PurgePrompt)
		if err != nil {
			return nil, fmt.Errorf("confirm purge: %w", err)
		}
		if !ok {
			return nil, ErrPurgeDeclined
		}
	}

	result := &PurgeResult{Deleted: make(map[model.Kind]int)}

	n, err := purgeKind[model.Template](ctx, model.KindTemplate, remote.Templates, out)
	result.Deleted[model.KindTemplate] = n
	if err != nil {
		return nil, err
	}
	n, err = purgeKind(ctx, model.KindPage, remote.Pages, out)
	result.Deleted[model.KindPage] = n
	if err != nil {
		return nil, err
	}
	n, err = purgeKind(ctx, model.KindSendingProfile, remote.SendingProfiles, out)
	result.Deleted[model.KindSendingProfile] = n
	if err != nil {
		return nil, err
	}

	logger.Info("purged instance",
		"templates", result.Deleted[model.KindTemplate],
		"pages", result.Deleted[model.KindPage],
		"sending_profiles", result.Deleted[model.KindSendingProfile])
	return result, nil
}

func purgeKind[T model.Entity](ctx context.Context, kind model.Kind, coll Collection[T], out io.Writer) (int, error) {
	items, err := coll.List(ctx)
	if err != nil {
		return 0, fmt.Errorf("list %s entities: %w", kind, err)
	}
	deleted := 0
	for _, item := range items {
		if err := coll.Delete(ctx, item.GetID()); err != nil {
			return deleted, fmt.Errorf("delete %s %q (id %d): %w", kind, item.GetName(), item.GetID(), err)
		}
		deleted++
		fmt.Fprintf(out, "Deleted %s %s\n", kind.DisplayName(), item.GetName())
	}
	return deleted, nil
}
