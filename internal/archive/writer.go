package archive

import (
	"archive/zip"
	"errors"
	"fmt"
	"io"

	"github.com/randalmurphal/gophish-backup/internal/model"
	"github.com/randalmurphal/gophish-backup/internal/util"
)

// ErrDuplicateEntity is returned when the same identifier is written twice
// for one kind.
var ErrDuplicateEntity = errors.New("entity already written to archive")

// Writer writes entities into a backup archive.
type Writer struct {
	zw   *zip.Writer
	file *util.AtomicFile
	seen map[model.Kind]map[int64]bool
}

// Create starts a new archive at path. The file only replaces an existing one
// when Close succeeds.
func Create(path string) (*Writer, error) {
	f, err := util.CreateAtomic(path, 0644)
	if err != nil {
		return nil, fmt.Errorf("create archive: %w", err)
	}
	w := NewWriter(f)
	w.file = f
	return w, nil
}

// NewWriter writes an archive to w. Close flushes the ZIP directory but does
// not close w.
func NewWriter(w io.Writer) *Writer {
	return &Writer{
		zw:   zip.NewWriter(w),
		seen: make(map[model.Kind]map[int64]bool),
	}
}

// WriteSendingProfile writes a sending profile document.
func (w *Writer) WriteSendingProfile(p model.SendingProfile) error {
	if err := w.claim(model.KindSendingProfile, p.ID); err != nil {
		return err
	}
	doc, err := NewDocument(p)
	if err != nil {
		return fmt.Errorf("sending profile %d: %w", p.ID, err)
	}
	return w.writeDocument(DocumentPath(model.KindSendingProfile, p.ID), doc)
}

// WriteTemplate writes a template document, its HTML and text bodies and
// one member per attachment, in attachment order.
func (w *Writer) WriteTemplate(t model.Template) error {
	if err := w.claim(model.KindTemplate, t.ID); err != nil {
		return err
	}
	doc, err := NewDocument(t)
	if err != nil {
		return fmt.Errorf("template %d: %w", t.ID, err)
	}
	delete(doc, fieldAttachments)

	if html, ok := doc.Pop(fieldHTML); ok {
		if err := w.writeMember(HTMLPath(model.KindTemplate, t.ID), []byte(html)); err != nil {
			return err
		}
	}
	if text, ok := doc.Pop(fieldText); ok {
		if err := w.writeMember(TextPath(t.ID), []byte(text)); err != nil {
			return err
		}
	}
	for n, a := range t.Attachments {
		attDoc, err := NewDocument(a)
		if err != nil {
			return fmt.Errorf("template %d attachment %d: %w", t.ID, n, err)
		}
		if err := w.writeDocument(AttachmentPath(t.ID, n), attDoc); err != nil {
			return err
		}
	}
	return w.writeDocument(DocumentPath(model.KindTemplate, t.ID), doc)
}

// WritePage writes a landing page document and its HTML body.
func (w *Writer) WritePage(p model.Page) error {
	if err := w.claim(model.KindPage, p.ID); err != nil {
		return err
	}
	doc, err := NewDocument(p)
	if err != nil {
		return fmt.Errorf("page %d: %w", p.ID, err)
	}
	if html, ok := doc.Pop(fieldHTML); ok {
		if err := w.writeMember(HTMLPath(model.KindPage, p.ID), []byte(html)); err != nil {
			return err
		}
	}
	return w.writeDocument(DocumentPath(model.KindPage, p.ID), doc)
}

// Close finishes the archive and, for archives opened with Create, publishes
// the file at its final path.
func (w *Writer) Close() error {
	if err := w.zw.Close(); err != nil {
		if w.file != nil {
			_ = w.file.Abort()
		}
		return fmt.Errorf("finish archive: %w", err)
	}
	if w.file != nil {
		if err := w.file.Commit(); err != nil {
			return fmt.Errorf("publish archive: %w", err)
		}
	}
	return nil
}

// Abort discards an archive opened with Create. Any archive previously at
// the same path is left in place.
func (w *Writer) Abort() error {
	if w.file == nil {
		return nil
	}
	return w.file.Abort()
}

func (w *Writer) claim(kind model.Kind, id int64) error {
	ids := w.seen[kind]
	if ids == nil {
		ids = make(map[int64]bool)
		w.seen[kind] = ids
	}
	if ids[id] {
		return fmt.Errorf("%s %d: %w", kind, id, ErrDuplicateEntity)
	}
	ids[id] = true
	return nil
}

func (w *Writer) writeDocument(name string, doc Document) error {
	data, err := doc.Encode()
	if err != nil {
		return fmt.Errorf("%s: %w", name, err)
	}
	return w.writeMember(name, data)
}

func (w *Writer) writeMember(name string, data []byte) error {
	fw, err := w.zw.Create(name)
	if err != nil {
		return fmt.Errorf("add %s: %w", name, err)
	}
	if _, err := fw.Write(data); err != nil {
		return fmt.Errorf("write %s: %w", name, err)
	}
	return nil
}
