package backup

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/randalmurphal/gophish-backup/internal/archive"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

// ExportResult summarizes an export.
type ExportResult struct {
	// Exported counts the entities written per kind.
	Exported map[model.Kind]int
	// Attachments is the number of template attachments written.
	Attachments int
}

// Total returns the number of entities written.
func (r *ExportResult) Total() int {
	n := 0
	for _, c := range r.Exported {
		n += c
	}
	return n
}

// Exporter writes the configuration of a remote instance to an archive.
type Exporter struct {
	remote Remote
	logger *slog.Logger
}

// NewExporter creates an Exporter.
func NewExporter(remote Remote, logger *slog.Logger) *Exporter {
	if logger == nil {
		logger = slog.Default()
	}
	return &Exporter{remote: remote, logger: logger}
}

// Run exports sending profiles, templates and pages, in that order. The
// caller owns w and decides whether to Close or Abort it.
func (e *Exporter) Run(ctx context.Context, w *archive.Writer) (*ExportResult, error) {
	result := &ExportResult{Exported: make(map[model.Kind]int)}

	profiles, err := e.remote.SendingProfiles.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list sending profiles: %w", err)
	}
	for _, p := range profiles {
		if err := w.WriteSendingProfile(p); err != nil {
			return nil, err
		}
	}
	result.Exported[model.KindSendingProfile] = len(profiles)
	e.logger.Info("exported sending profiles", "count", len(profiles))

	templates, err := e.remote.Templates.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list templates: %w", err)
	}
	for _, t := range templates {
		// The listing leaves attachment payloads out.
		attachments, err := e.remote.Templates.Attachments(ctx, t.ID)
		if err != nil {
			return nil, err
		}
		t.Attachments = attachments
		if err := w.WriteTemplate(t); err != nil {
			return nil, err
		}
		result.Attachments += len(attachments)
	}
	result.Exported[model.KindTemplate] = len(templates)
	e.logger.Info("exported templates", "count", len(templates), "attachments", result.Attachments)

	pages, err := e.remote.Pages.List(ctx)
	if err != nil {
		return nil, fmt.Errorf("list pages: %w", err)
	}
	for _, p := range pages {
		if err := w.WritePage(p); err != nil {
			return nil, err
		}
	}
	result.Exported[model.KindPage] = len(pages)
	e.logger.Info("exported pages", "count", len(pages))

	return result, nil
}
