package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"
	"path"
	"sort"
	"strconv"
	"strings"
	"unicode/utf8"

	"github.com/bmatcuk/doublestar/v4"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// ErrMalformedArchive is returned when an archive member cannot be
// interpreted. A missing optional sibling is not an error.
var ErrMalformedArchive = errors.New("malformed archive")

// Entry is one entity reconstructed from an archive, with its extracted
// bodies and attachments merged back into the document.
type Entry struct {
	Kind model.Kind
	ID   int64
	Path string
	Doc  Document
}

// Decode unmarshals the reconstructed document into v.
func (e Entry) Decode(v any) error {
	if err := e.Doc.Decode(v); err != nil {
		return fmt.Errorf("%w: %s: %v", ErrMalformedArchive, e.Path, err)
	}
	return nil
}

// Reader reconstructs entities from a backup archive.
type Reader struct {
	closer io.Closer
	files  map[string]*zip.File
	names  []string
}

// Open opens the archive at path.
func Open(path string) (*Reader, error) {
	rc, err := zip.OpenReader(path)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	r, err := newReader(&rc.Reader)
	if err != nil {
		_ = rc.Close()
		return nil, err
	}
	r.closer = rc
	return r, nil
}

// NewReader reads an archive from ra, which has the given size.
func NewReader(ra io.ReaderAt, size int64) (*Reader, error) {
	zr, err := zip.NewReader(ra, size)
	if err != nil {
		return nil, fmt.Errorf("open archive: %w", err)
	}
	return newReader(zr)
}

func newReader(zr *zip.Reader) (*Reader, error) {
	r := &Reader{files: make(map[string]*zip.File, len(zr.File))}
	for _, f := range zr.File {
		if f.FileInfo().IsDir() {
			continue
		}
		if _, dup := r.files[f.Name]; dup {
			return nil, fmt.Errorf("%w: duplicate member %s", ErrMalformedArchive, f.Name)
		}
		r.files[f.Name] = f
		r.names = append(r.names, f.Name)
	}
	return r, nil
}

// Close releases the underlying file for archives opened with Open.
func (r *Reader) Close() error {
	if r.closer == nil {
		return nil
	}
	return r.closer.Close()
}

// Names returns every member path in archive order.
func (r *Reader) Names() []string {
	return append([]string(nil), r.names...)
}

// SendingProfiles reconstructs every sending profile in the archive.
func (r *Reader) SendingProfiles() ([]Entry, error) {
	return r.Entries(model.KindSendingProfile)
}

// Templates reconstructs every template, with HTML, text and attachments.
func (r *Reader) Templates() ([]Entry, error) {
	return r.Entries(model.KindTemplate)
}

// Pages reconstructs every landing page, with its HTML body.
func (r *Reader) Pages() ([]Entry, error) {
	return r.Entries(model.KindPage)
}

// Entries reconstructs every entity of kind, ordered by identifier.
func (r *Reader) Entries(kind model.Kind) ([]Entry, error) {
	pattern := documentGlob(kind)

	var entries []Entry
	for _, name := range r.names {
		matched, err := doublestar.Match(pattern, name)
		if err != nil {
			return nil, fmt.Errorf("match %s: %w", pattern, err)
		}
		if !matched {
			continue
		}

		id, err := documentID(kind, name)
		if err != nil {
			return nil, err
		}
		doc, err := r.readDocument(name)
		if err != nil {
			return nil, err
		}
		if err := r.mergeSiblings(kind, id, doc); err != nil {
			return nil, err
		}
		entries = append(entries, Entry{Kind: kind, ID: id, Path: name, Doc: doc})
	}

	sort.Slice(entries, func(i, j int) bool { return entries[i].ID < entries[j].ID })
	return entries, nil
}

// documentID extracts the identifier from a document path and checks that
// the directory and file name agree on it.
func documentID(kind model.Kind, name string) (int64, error) {
	dir, file := path.Split(name)
	idPart := path.Base(dir)
	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		return 0, fmt.Errorf("%w: %s: non-numeric identifier %q", ErrMalformedArchive, name, idPart)
	}
	if file != path.Base(DocumentPath(kind, id)) {
		return 0, fmt.Errorf("%w: %s: document name does not match directory %s", ErrMalformedArchive, name, idPart)
	}
	return id, nil
}

func (r *Reader) mergeSiblings(kind model.Kind, id int64, doc Document) error {
	if kind == model.KindTemplate || kind == model.KindPage {
		if err := r.mergeText(doc, fieldHTML, HTMLPath(kind, id)); err != nil {
			return err
		}
	}
	if kind != model.KindTemplate {
		return nil
	}
	if err := r.mergeText(doc, fieldText, TextPath(id)); err != nil {
		return err
	}
	attachments, err := r.attachments(id)
	if err != nil {
		return err
	}
	if len(attachments) > 0 {
		doc[fieldAttachments] = attachments
	}
	return nil
}

// mergeText injects a sibling text member under field, if the member exists.
func (r *Reader) mergeText(doc Document, field, name string) error {
	if _, ok := r.files[name]; !ok {
		return nil
	}
	data, err := r.readMember(name)
	if err != nil {
		return err
	}
	if !utf8.Valid(data) {
		return fmt.Errorf("%w: %s: not valid UTF-8", ErrMalformedArchive, name)
	}
	doc[field] = string(data)
	return nil
}

// attachments collects a template's attachment documents ordered by their
// numeric index.
func (r *Reader) attachments(id int64) ([]any, error) {
	prefix := attachmentPrefix(id)

	type indexed struct {
		n   int
		doc Document
	}
	var found []indexed
	for _, name := range r.names {
		rest, ok := strings.CutPrefix(name, prefix)
		if !ok || strings.Contains(rest, "/") || !strings.HasSuffix(rest, extJSON) {
			continue
		}
		n, err := strconv.Atoi(strings.TrimSuffix(rest, extJSON))
		if err != nil || n < 0 {
			return nil, fmt.Errorf("%w: %s: attachment index is not a non-negative integer", ErrMalformedArchive, name)
		}
		doc, err := r.readDocument(name)
		if err != nil {
			return nil, err
		}
		found = append(found, indexed{n: n, doc: doc})
	}

	sort.Slice(found, func(i, j int) bool { return found[i].n < found[j].n })
	out := make([]any, len(found))
	for i, f := range found {
		out[i] = map[string]any(f.doc)
	}
	return out, nil
}

func (r *Reader) readDocument(name string) (Document, error) {
	data, err := r.readMember(name)
	if err != nil {
		return nil, err
	}
	doc, err := ParseDocument(data)
	if err != nil {
		return nil, fmt.Errorf("%w: %s: %v", ErrMalformedArchive, name, err)
	}
	return doc, nil
}

func (r *Reader) readMember(name string) ([]byte, error) {
	f, ok := r.files[name]
	if !ok {
		return nil, fmt.Errorf("%w: missing member %s", ErrMalformedArchive, name)
	}
	rc, err := f.Open()
	if err != nil {
		return nil, fmt.Errorf("open %s: %w", name, err)
	}
	defer func() { _ = rc.Close() }()

	data, err := io.ReadAll(rc)
	if err != nil {
		return nil, fmt.Errorf("read %s: %w", name, err)
	}
	return data, nil
}
