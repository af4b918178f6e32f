package gophish_test

import (
	"context"
	"errors"
	"net/http"
	"net/http/httptest"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"github.com/randalmurphal/gophish-backup/internal/gophish"
	"github.com/randalmurphal/gophish-backup/internal/gophish/gophishtest"
	"github.com/randalmurphal/gophish-backup/internal/model"
)

const testKey = "secret-key"

func newClient(t *testing.T, srv *gophishtest.Server) *gophish.Client {
	t.Helper()
	c, err := gophish.New(gophish.ClientConfig{BaseURL: srv.BaseURL(), APIKey: testKey})
	require.NoError(t, err)
	return c
}

func TestNew_Validation(t *testing.T) {
	t.Parallel()

	_, err := gophish.New(gophish.ClientConfig{APIKey: "k"})
	assert.Error(t, err, "missing base URL")

	_, err = gophish.New(gophish.ClientConfig{BaseURL: "https://x/"})
	assert.Error(t, err, "missing API key")

	c, err := gophish.New(gophish.ClientConfig{BaseURL: "https://x/admin", APIKey: "k"})
	require.NoError(t, err)
	assert.Equal(t, "https://x/admin/", c.BaseURL())
}

func TestResource_CRUD(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	created, err := c.Pages.Create(ctx, model.Page{Name: "Login", HTML: "<form></form>", RedirectURL: "https://example.com"})
	require.NoError(t, err)
	assert.NotZero(t, created.ID)
	assert.Equal(t, gophishtest.ModifiedDate, created.ModifiedDate)

	got, err := c.Pages.Get(ctx, created.ID)
	require.NoError(t, err)
	assert.Equal(t, "<form></form>", got.HTML)

	got.CaptureCredentials = true
	replaced, err := c.Pages.Replace(ctx, got.ID, *got)
	require.NoError(t, err)
	assert.True(t, replaced.CaptureCredentials)

	pages, err := c.Pages.List(ctx)
	require.NoError(t, err)
	require.Len(t, pages, 1)
	assert.Equal(t, "Login", pages[0].Name)

	require.NoError(t, c.Pages.Delete(ctx, created.ID))
	pages, err = c.Pages.List(ctx)
	require.NoError(t, err)
	assert.Empty(t, pages)
}

func TestCreate_ConflictOnDuplicateName(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	_, err := c.SendingProfiles.Create(ctx, model.SendingProfile{Name: "relay", InterfaceType: "SMTP"})
	require.NoError(t, err)

	_, err = c.SendingProfiles.Create(ctx, model.SendingProfile{Name: "relay", InterfaceType: "SMTP"})
	require.Error(t, err)
	assert.True(t, gophish.IsConflict(err))

	var apiErr *gophish.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, http.StatusConflict, apiErr.Status)
	assert.Equal(t, "SMTP name already in use", apiErr.Message)
}

func TestErrors_StatusMapping(t *testing.T) {
	t.Parallel()

	tests := []struct {
		name   string
		status int
		want   error
	}{
		{"unauthorized", http.StatusUnauthorized, gophish.ErrAuthFailed},
		{"forbidden", http.StatusForbidden, gophish.ErrAuthFailed},
		{"not found", http.StatusNotFound, gophish.ErrNotFound},
		{"conflict", http.StatusConflict, gophish.ErrConflict},
	}

	for _, tt := range tests {
		tt := tt
		t.Run(tt.name, func(t *testing.T) {
			t.Parallel()
			srv := gophishtest.NewServer(testKey)
			defer srv.Close()
			c := newClient(t, srv)

			srv.FailNext(http.MethodGet, "/api/templates/", tt.status)
			_, err := c.Templates.List(context.Background())
			assert.ErrorIs(t, err, tt.want)
		})
	}
}

func TestErrors_ServerErrorIsNotConflict(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)

	srv.FailNext(http.MethodPost, "/api/pages/", http.StatusInternalServerError)
	_, err := c.Pages.Create(context.Background(), model.Page{Name: "x"})
	require.Error(t, err)
	assert.False(t, gophish.IsConflict(err))
	assert.Contains(t, err.Error(), "status 500")
}

func TestBadAPIKey(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()

	c, err := gophish.New(gophish.ClientConfig{BaseURL: srv.BaseURL(), APIKey: "wrong"})
	require.NoError(t, err)

	_, err = c.SendingProfiles.List(context.Background())
	assert.ErrorIs(t, err, gophish.ErrAuthFailed)
}

func TestTemplates_AttachmentsNeedSecondCall(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)
	ctx := context.Background()

	id := srv.Seed(model.KindTemplate, model.Template{
		Name:        "With files",
		Attachments: []model.Attachment{{Name: "a.txt", Type: "text/plain", Content: "YQ=="}},
	})

	listed, err := c.Templates.List(ctx)
	require.NoError(t, err)
	require.Len(t, listed, 1)
	assert.Empty(t, listed[0].Attachments)

	attachments, err := c.Templates.Attachments(ctx, id)
	require.NoError(t, err)
	require.Len(t, attachments, 1)
	assert.Equal(t, "YQ==", attachments[0].Content)
}

func TestTemplates_CreateDocumentSendsRawFields(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)

	doc := map[string]any{
		"name":        "Raw",
		"subject":     "s",
		"attachments": []any{map[string]any{"name": "a", "type": "t", "content": "Yg=="}},
		"x_extra":     "kept",
	}
	created, err := c.Templates.CreateDocument(context.Background(), doc)
	require.NoError(t, err)
	require.Len(t, created.Attachments, 1)

	items := srv.Items(model.KindTemplate)
	require.Len(t, items, 1)
	assert.Equal(t, "kept", items[0]["x_extra"])
}

func TestRequestHeaders(t *testing.T) {
	t.Parallel()

	var gotAuth, gotUA, gotAccept string
	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		gotAuth = r.Header.Get("Authorization")
		gotUA = r.Header.Get("User-Agent")
		gotAccept = r.Header.Get("Accept")
		_, _ = w.Write([]byte("[]"))
	}))
	defer ts.Close()

	c, err := gophish.New(gophish.ClientConfig{BaseURL: ts.URL + "/", APIKey: "abc", UserAgent: "test-agent"})
	require.NoError(t, err)
	_, err = c.Pages.List(context.Background())
	require.NoError(t, err)

	assert.Equal(t, "Bearer abc", gotAuth)
	assert.Equal(t, "test-agent", gotUA)
	assert.Equal(t, "application/json", gotAccept)
}

func TestNonJSONErrorBody(t *testing.T) {
	t.Parallel()

	ts := httptest.NewServer(http.HandlerFunc(func(w http.ResponseWriter, r *http.Request) {
		w.WriteHeader(http.StatusBadGateway)
		_, _ = w.Write([]byte("upstream down\n"))
	}))
	defer ts.Close()

	c, err := gophish.New(gophish.ClientConfig{BaseURL: ts.URL + "/", APIKey: "k"})
	require.NoError(t, err)

	_, err = c.Pages.List(context.Background())
	var apiErr *gophish.APIError
	require.True(t, errors.As(err, &apiErr))
	assert.Equal(t, "upstream down", apiErr.Message)
}

func TestRateLimit(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()

	c, err := gophish.New(gophish.ClientConfig{BaseURL: srv.BaseURL(), APIKey: testKey, RateLimit: 20})
	require.NoError(t, err)

	start := time.Now()
	for i := 0; i < 3; i++ {
		_, err := c.Pages.List(context.Background())
		require.NoError(t, err)
	}
	// burst of one: the second and third requests each wait ~50ms
	assert.GreaterOrEqual(t, time.Since(start), 80*time.Millisecond)
}

func TestContextCancelled(t *testing.T) {
	t.Parallel()
	srv := gophishtest.NewServer(testKey)
	defer srv.Close()
	c := newClient(t, srv)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	_, err := c.Pages.List(ctx)
	assert.ErrorIs(t, err, context.Canceled)
}
