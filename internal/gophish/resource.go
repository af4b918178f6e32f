package gophish

import (
	"context"
	"fmt"
	"net/http"
	"strconv"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// Resource is one Gophish entity collection, e.g. /api/pages/.
type Resource[T any] struct {
	client *Client
	path   string
}

func (r *Resource[T]) itemPath(id int64) string {
	return r.path + strconv.FormatInt(id, 10)
}

// List returns every record in the collection. Some collections omit large
// fields from the listing.
func (r *Resource[T]) List(ctx context.Context) ([]T, error) {
	var out []T
	if err := r.client.do(ctx, http.MethodGet, r.path, nil, &out); err != nil {
		return nil, err
	}
	return out, nil
}

// Get returns the full record with the given identifier.
func (r *Resource[T]) Get(ctx context.Context, id int64) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodGet, r.itemPath(id), nil, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Create adds a record. A name collision fails with ErrConflict.
func (r *Resource[T]) Create(ctx context.Context, v T) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPost, r.path, v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Replace overwrites the record with the given identifier. The identifier in
// v must match id.
func (r *Resource[T]) Replace(ctx context.Context, id int64, v T) (*T, error) {
	var out T
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), v, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// Delete removes the record with the given identifier.
func (r *Resource[T]) Delete(ctx context.Context, id int64) error {
	return r.client.do(ctx, http.MethodDelete, r.itemPath(id), nil, nil)
}

// TemplateResource is the /api/templates/ collection.
type TemplateResource struct {
	*Resource[model.Template]
}

// Attachments fetches a template's attachments with their payloads.
//
// The bulk listing does not populate attachment payloads, so every template
// needs this second, identifier-specific call before it can be backed up.
func (r *TemplateResource) Attachments(ctx context.Context, id int64) ([]model.Attachment, error) {
	t, err := r.Get(ctx, id)
	if err != nil {
		return nil, fmt.Errorf("fetch attachments of template %d: %w", id, err)
	}
	return t.Attachments, nil
}

// CreateDocument posts a template given as a raw JSON document instead of a
// model.Template. Fields the model does not know are sent as-is.
func (r *TemplateResource) CreateDocument(ctx context.Context, doc any) (*model.Template, error) {
	var out model.Template
	if err := r.client.do(ctx, http.MethodPost, r.path, doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}

// ReplaceDocument is the raw-document counterpart of Replace.
func (r *TemplateResource) ReplaceDocument(ctx context.Context, id int64, doc any) (*model.Template, error) {
	var out model.Template
	if err := r.client.do(ctx, http.MethodPut, r.itemPath(id), doc, &out); err != nil {
		return nil, err
	}
	return &out, nil
}
