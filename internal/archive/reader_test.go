package archive

import (
	"archive/zip"
	"bytes"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// rawArchive builds a ZIP archive from literal members, in the given order.
func rawArchive(t *testing.T, members ...[2]string) []byte {
	t.Helper()
	var buf bytes.Buffer
	zw := zip.NewWriter(&buf)
	for _, m := range members {
		w, err := zw.Create(m[0])
		require.NoError(t, err)
		_, err = w.Write([]byte(m[1]))
		require.NoError(t, err)
	}
	require.NoError(t, zw.Close())
	return buf.Bytes()
}

func TestTemplates_AttachmentsOrderedNumerically(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"templates/3/attachments/10.json", `{"name":"k","type":"text/plain","content":"Sw=="}`},
		[2]string{"templates/3/attachments/2.json", `{"name":"c","type":"text/plain","content":"Qw=="}`},
		[2]string{"templates/3/attachments/0.json", `{"name":"a","type":"text/plain","content":"QQ=="}`},
		[2]string{"templates/3/template_3.json", `{"id":3,"name":"T","subject":"S"}`},
	)
	r := openArchive(t, data)

	entries, err := r.Templates()
	require.NoError(t, err)
	require.Len(t, entries, 1)

	var tmpl model.Template
	require.NoError(t, entries[0].Decode(&tmpl))
	require.Len(t, tmpl.Attachments, 3)
	assert.Equal(t, "a", tmpl.Attachments[0].Name)
	assert.Equal(t, "c", tmpl.Attachments[1].Name)
	assert.Equal(t, "k", tmpl.Attachments[2].Name)
}

func TestTemplates_AttachmentsScopedToOwner(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"templates/1/template_1.json", `{"id":1,"name":"one"}`},
		[2]string{"templates/10/template_10.json", `{"id":10,"name":"ten"}`},
		[2]string{"templates/10/attachments/0.json", `{"name":"only-ten","type":"x/y","content":""}`},
	)
	r := openArchive(t, data)

	entries, err := r.Templates()
	require.NoError(t, err)
	require.Len(t, entries, 2)

	assert.Equal(t, int64(1), entries[0].ID)
	assert.NotContains(t, entries[0].Doc, "attachments")
	assert.Equal(t, int64(10), entries[1].ID)
	assert.Len(t, entries[1].Doc["attachments"], 1)
}

func TestEntries_MissingSiblingsMeanAbsent(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"pages/2/page_2.json", `{"id":2,"name":"P","capture_credentials":false,"capture_passwords":false,"redirect_url":""}`},
		[2]string{"templates/4/template_4.json", `{"id":4,"name":"T","subject":"S"}`},
		[2]string{"templates/4/template_4.txt", "only text"},
	)
	r := openArchive(t, data)

	pages, err := r.Pages()
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.NotContains(t, pages[0].Doc, "html")

	templates, err := r.Templates()
	require.NoError(t, err)
	require.Len(t, templates, 1)
	assert.NotContains(t, templates[0].Doc, "html")
	assert.Equal(t, "only text", templates[0].Doc["text"])
}

func TestEntries_OrderedByID(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"sending_profiles/20/sending_profile_20.json", `{"id":20,"name":"b"}`},
		[2]string{"sending_profiles/3/sending_profile_3.json", `{"id":3,"name":"a"}`},
	)
	r := openArchive(t, data)

	entries, err := r.SendingProfiles()
	require.NoError(t, err)
	require.Len(t, entries, 2)
	assert.Equal(t, int64(3), entries[0].ID)
	assert.Equal(t, int64(20), entries[1].ID)
}

func TestEntries_IgnoresUnrelatedMembers(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"README.txt", "notes"},
		[2]string{"templates/notes.json", `{}`},
		[2]string{"pages/1/page_1.json", `{"id":1,"name":"p"}`},
	)
	r := openArchive(t, data)

	templates, err := r.Templates()
	require.NoError(t, err)
	assert.Empty(t, templates)

	pages, err := r.Pages()
	require.NoError(t, err)
	assert.Len(t, pages, 1)
}

func TestEntries_Malformed(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name    string
		kind    model.Kind
		members [][2]string
	}{
		{
			name:    "invalid json",
			kind:    model.KindPage,
			members: [][2]string{{"pages/1/page_1.json", `{"id":1,`}},
		},
		{
			name:    "document is not an object",
			kind:    model.KindPage,
			members: [][2]string{{"pages/1/page_1.json", `[1,2]`}},
		},
		{
			name:    "non-numeric identifier",
			kind:    model.KindSendingProfile,
			members: [][2]string{{"sending_profiles/abc/sending_profile_abc.json", `{}`}},
		},
		{
			name:    "directory and file disagree",
			kind:    model.KindSendingProfile,
			members: [][2]string{{"sending_profiles/1/sending_profile_2.json", `{}`}},
		},
		{
			name: "non-integer attachment index",
			kind: model.KindTemplate,
			members: [][2]string{
				{"templates/1/template_1.json", `{"id":1}`},
				{"templates/1/attachments/first.json", `{}`},
			},
		},
		{
			name: "html sibling not utf-8",
			kind: model.KindPage,
			members: [][2]string{
				{"pages/1/page_1.json", `{"id":1}`},
				{"pages/1/page_1.html", "\xff\xfe"},
			},
		},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			r := openArchive(t, rawArchive(t, tt.members...))
			_, err := r.Entries(tt.kind)
			assert.ErrorIs(t, err, ErrMalformedArchive)
		})
	}
}

func TestNewReader_DuplicateMember(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"pages/1/page_1.json", `{"id":1}`},
		[2]string{"pages/1/page_1.json", `{"id":1}`},
	)
	_, err := NewReader(bytes.NewReader(data), int64(len(data)))
	assert.ErrorIs(t, err, ErrMalformedArchive)
}

func TestEntries_PreservesUnknownFields(t *testing.T) {
	t.Parallel()

	data := rawArchive(t,
		[2]string{"templates/5/template_5.json", `{"id":5,"name":"T","subject":"S","x_custom":{"a":1}}`},
	)
	r := openArchive(t, data)

	entries, err := r.Templates()
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Contains(t, entries[0].Doc, "x_custom")
}
