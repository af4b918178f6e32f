// Package backup moves Gophish configuration between a live instance and a
// backup archive.
//
// The Exporter reads sending profiles, templates and landing pages from the
// instance and writes them to an archive. The Importer replays an archive
// against an instance, skipping or overwriting entities whose names already
// exist. Purge empties an instance before a restore.
package backup

import (
	"context"

	"github.com/randalmurphal/gophish-backup/internal/gophish"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

// Collection is the set of calls the pipelines make against one entity
// collection of the remote instance.
type Collection[T any] interface {
	List(ctx context.Context) ([]T, error)
	Get(ctx context.Context, id int64) (*T, error)
	Create(ctx context.Context, v T) (*T, error)
	Replace(ctx context.Context, id int64, v T) (*T, error)
	Delete(ctx context.Context, id int64) error
}

// TemplateCollection adds the template-only calls: attachment retrieval and
// raw-document submission.
type TemplateCollection interface {
	Collection[model.Template]
	Attachments(ctx context.Context, id int64) ([]model.Attachment, error)
	CreateDocument(ctx context.Context, doc any) (*model.Template, error)
	ReplaceDocument(ctx context.Context, id int64, doc any) (*model.Template, error)
}

// Remote is the instance being backed up or restored.
type Remote struct {
	SendingProfiles Collection[model.SendingProfile]
	Templates       TemplateCollection
	Pages           Collection[model.Page]
}

// NewRemote returns a Remote backed by a Gophish API client.
func NewRemote(c *gophish.Client) Remote {
	return Remote{
		SendingProfiles: c.SendingProfiles,
		Templates:       c.Templates,
		Pages:           c.Pages,
	}
}

// findByName returns the identifier of the entity called name.
func findByName[T model.Entity](ctx context.Context, coll Collection[T], name string) (int64, bool, error) {
	items, err := coll.List(ctx)
	if err != nil {
		return 0, false, err
	}
	for _, item := range items {
		if item.GetName() == name {
			return item.GetID(), true, nil
		}
	}
	return 0, false, nil
}
