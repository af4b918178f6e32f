package backup

import (
	"context"
	"fmt"
	"io"
	"log/slog"

	"github.com/randalmurphal/gophish-backup/internal/archive"
	"github.com/randalmurphal/gophish-backup/internal/gophish"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

// ImportOptions controls a restore.
type ImportOptions struct {
	// Unsafe overwrites entities whose name already exists on the instance
	// instead of skipping them.
	Unsafe bool
	// DryRun reports what would happen without changing the instance.
	DryRun bool
	// Out receives skip notices and dry-run lines. Nil discards them.
	Out io.Writer
}

// ImportResult summarizes a restore.
type ImportResult struct {
	Created  map[model.Kind]int
	Replaced map[model.Kind]int
	Skipped  map[model.Kind]int
}

func newImportResult() *ImportResult {
	return &ImportResult{
		Created:  make(map[model.Kind]int),
		Replaced: make(map[model.Kind]int),
		Skipped:  make(map[model.Kind]int),
	}
}

// submission is one archived entity ready to be sent to the instance.
type submission struct {
	kind    model.Kind
	name    string
	create  func(ctx context.Context) error
	replace func(ctx context.Context, id int64) error
	lookup  func(ctx context.Context) (int64, bool, error)
}

// Importer restores an archive into a remote instance.
type Importer struct {
	remote Remote
	opts   ImportOptions
	logger *slog.Logger
}

// NewImporter creates an Importer.
func NewImporter(remote Remote, opts ImportOptions, logger *slog.Logger) *Importer {
	if logger == nil {
		logger = slog.Default()
	}
	if opts.Out == nil {
		opts.Out = io.Discard
	}
	return &Importer{remote: remote, opts: opts, logger: logger}
}

// Run restores sending profiles, templates and pages, in that order.
// Templates reference sending profiles by name at campaign time, so profiles
// go first. The first failure other than a name conflict stops the run.
func (imp *Importer) Run(ctx context.Context, r *archive.Reader) (*ImportResult, error) {
	result := newImportResult()

	for _, kind := range model.Kinds {
		entries, err := r.Entries(kind)
		if err != nil {
			return nil, fmt.Errorf("read %s entries: %w", kind, err)
		}
		imp.logger.Info("restoring", "kind", kind, "count", len(entries))

		for _, entry := range entries {
			sub, err := imp.prepare(entry)
			if err != nil {
				return nil, err
			}
			if err := imp.submit(ctx, sub, result); err != nil {
				return nil, err
			}
		}
	}
	return result, nil
}

func (imp *Importer) prepare(entry archive.Entry) (*submission, error) {
	switch entry.Kind {
	case model.KindSendingProfile:
		return structured(entry, imp.remote.SendingProfiles)
	case model.KindTemplate:
		return imp.templateSubmission(entry)
	case model.KindPage:
		return structured(entry, imp.remote.Pages)
	default:
		return nil, fmt.Errorf("unknown entity kind %q", entry.Kind)
	}
}

func (imp *Importer) submit(ctx context.Context, sub *submission, result *ImportResult) error {
	if imp.opts.DryRun {
		return imp.preview(ctx, sub, result)
	}

	err := sub.create(ctx)
	if err == nil {
		result.Created[sub.kind]++
		imp.logger.Debug("created", "kind", sub.kind, "name", sub.name)
		return nil
	}
	if !gophish.IsConflict(err) {
		return fmt.Errorf("create %s %q: %w", sub.kind, sub.name, err)
	}

	if !imp.opts.Unsafe {
		imp.skip(sub, result)
		return nil
	}

	id, found, err := sub.lookup(ctx)
	if err != nil {
		return fmt.Errorf("find existing %s %q: %w", sub.kind, sub.name, err)
	}
	if !found {
		return fmt.Errorf("create %s %q: name reported in use but no such entity is listed", sub.kind, sub.name)
	}
	if err := sub.replace(ctx, id); err != nil {
		return fmt.Errorf("replace %s %q (id %d): %w", sub.kind, sub.name, id, err)
	}
	result.Replaced[sub.kind]++
	imp.logger.Info("replaced existing", "kind", sub.kind, "name", sub.name, "id", id)
	return nil
}

// preview classifies a submission using read-only calls.
func (imp *Importer) preview(ctx context.Context, sub *submission, result *ImportResult) error {
	_, found, err := sub.lookup(ctx)
	if err != nil {
		return fmt.Errorf("find existing %s %q: %w", sub.kind, sub.name, err)
	}
	switch {
	case !found:
		result.Created[sub.kind]++
		fmt.Fprintf(imp.opts.Out, "Would create %s %s\n", sub.kind.DisplayName(), sub.name)
	case imp.opts.Unsafe:
		result.Replaced[sub.kind]++
		fmt.Fprintf(imp.opts.Out, "Would replace %s %s\n", sub.kind.DisplayName(), sub.name)
	default:
		imp.skip(sub, result)
	}
	return nil
}

func (imp *Importer) skip(sub *submission, result *ImportResult) {
	result.Skipped[sub.kind]++
	fmt.Fprintf(imp.opts.Out, "%s %s already exists, skipping\n", sub.kind.DisplayName(), sub.name)
}

// structured builds a submission that sends the entry as a typed record.
// The archived identifier is dropped; the instance assigns a new one.
func structured[T model.Entity](entry archive.Entry, coll Collection[T]) (*submission, error) {
	var check T
	if err := entry.Decode(&check); err != nil {
		return nil, err
	}
	name := check.GetName()

	return &submission{
		kind: entry.Kind,
		name: name,
		create: func(ctx context.Context) error {
			v, err := decodeWithID[T](entry, 0)
			if err != nil {
				return err
			}
			_, err = coll.Create(ctx, v)
			return err
		},
		replace: func(ctx context.Context, id int64) error {
			v, err := decodeWithID[T](entry, id)
			if err != nil {
				return err
			}
			_, err = coll.Replace(ctx, id, v)
			return err
		},
		lookup: func(ctx context.Context) (int64, bool, error) {
			return findByName(ctx, coll, name)
		},
	}, nil
}

// templateSubmission sends templates that carry attachments as the raw
// reconstructed document so attachment fields the model does not know about
// reach the instance unchanged. Other templates use the typed path.
func (imp *Importer) templateSubmission(entry archive.Entry) (*submission, error) {
	attachments, _ := entry.Doc["attachments"].([]any)
	if len(attachments) == 0 {
		return structured[model.Template](entry, imp.remote.Templates)
	}

	var check model.Template
	if err := entry.Decode(&check); err != nil {
		return nil, err
	}
	templates := imp.remote.Templates

	return &submission{
		kind: entry.Kind,
		name: check.Name,
		create: func(ctx context.Context) error {
			doc := entry.Doc.Clone()
			delete(doc, "id")
			_, err := templates.CreateDocument(ctx, doc)
			return err
		},
		replace: func(ctx context.Context, id int64) error {
			doc := entry.Doc.Clone()
			doc.SetID(id)
			_, err := templates.ReplaceDocument(ctx, id, doc)
			return err
		},
		lookup: func(ctx context.Context) (int64, bool, error) {
			return findByName[model.Template](ctx, templates, check.Name)
		},
	}, nil
}

func decodeWithID[T any](entry archive.Entry, id int64) (T, error) {
	var v T
	doc := entry.Doc.Clone()
	if id == 0 {
		delete(doc, "id")
	} else {
		doc.SetID(id)
	}
	if err := doc.Decode(&v); err != nil {
		return v, fmt.Errorf("%s: %w", entry.Path, err)
	}
	return v, nil
}
