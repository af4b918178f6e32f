// Package archive reads and writes gophish backup archives.
//
// A backup is a ZIP file with one directory per entity. Each entity has a
// JSON document and, when present, sibling members holding its large text
// fields:
//
//	sending_profiles/<id>/sending_profile_<id>.json
//	templates/<id>/template_<id>.json
//	templates/<id>/template_<id>.html
//	templates/<id>/template_<id>.txt
//	templates/<id>/attachments/<n>.json
//	pages/<id>/page_<id>.json
//	pages/<id>/page_<id>.html
//
// The layout is shared by the writer and the reader and must not change:
// archives produced by older releases have to restore.
package archive

import (
	"fmt"
	"path"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// Document field names that are stored outside the JSON document.
const (
	fieldHTML        = "html"
	fieldText        = "text"
	fieldAttachments = "attachments"
)

const (
	extJSON = ".json"
	extHTML = ".html"
	extText = ".txt"

	attachmentsDir = "attachments"
)

// kindDirs maps each kind to its top-level directory.
var kindDirs = map[model.Kind]string{
	model.KindSendingProfile: "sending_profiles",
	model.KindTemplate:       "templates",
	model.KindPage:           "pages",
}

func kindDir(kind model.Kind) string {
	dir, ok := kindDirs[kind]
	if !ok {
		panic(fmt.Sprintf("archive: unknown entity kind %q", kind))
	}
	return dir
}

// entityDir returns "<kind dir>/<id>".
func entityDir(kind model.Kind, id int64) string {
	return fmt.Sprintf("%s/%d", kindDir(kind), id)
}

// stem returns the path shared by an entity's document and its siblings,
// without extension.
func stem(kind model.Kind, id int64) string {
	return fmt.Sprintf("%s/%s_%d", entityDir(kind, id), kind, id)
}

// DocumentPath returns the member path of an entity's JSON document.
func DocumentPath(kind model.Kind, id int64) string {
	return stem(kind, id) + extJSON
}

// HTMLPath returns the member path of an entity's extracted HTML body.
func HTMLPath(kind model.Kind, id int64) string {
	return stem(kind, id) + extHTML
}

// TextPath returns the member path of a template's extracted plaintext body.
func TextPath(id int64) string {
	return stem(model.KindTemplate, id) + extText
}

// AttachmentPath returns the member path of a template's n-th attachment.
func AttachmentPath(id int64, n int) string {
	return fmt.Sprintf("%s/%s/%d%s", entityDir(model.KindTemplate, id), attachmentsDir, n, extJSON)
}

// attachmentPrefix returns the directory holding a template's attachments,
// with trailing slash.
func attachmentPrefix(id int64) string {
	return path.Join(entityDir(model.KindTemplate, id), attachmentsDir) + "/"
}

// documentGlob returns the pattern matching every document of a kind.
// Attachment documents sit one level deeper and never match.
func documentGlob(kind model.Kind) string {
	return fmt.Sprintf("%s/*/%s_*%s", kindDir(kind), kind, extJSON)
}
