// Package gophishtest provides an in-memory Gophish API server for tests.
//
// It implements list, get, create, replace and delete for sending profiles,
// templates and landing pages with the same status codes as Gophish: 401 for
// a bad API key, 404 for unknown identifiers and 409 when a create reuses an
// existing name. Like the real service, template listings carry no
// attachments; only fetching a template by identifier returns them.
package gophishtest

import (
	"bytes"
	"encoding/json"
	"fmt"
	"io"
	"net/http"
	"net/http/httptest"
	"sort"
	"strconv"
	"strings"
	"sync"

	"github.com/randalmurphal/gophish-backup/internal/model"
)

// ModifiedDate is the timestamp the server stamps on every write.
const ModifiedDate = "2025-01-01T00:00:00Z"

// Request is one request received by the server.
type Request struct {
	Method string
	Path   string
	Body   map[string]any
}

type collection struct {
	kind  model.Kind
	label string
	items map[int64]map[string]any
}

type failure struct {
	method string
	path   string
	status int
}

// Server is a fake Gophish admin API.
type Server struct {
	*httptest.Server
	APIKey string

	mu          sync.Mutex
	nextID      int64
	collections map[string]*collection
	requests    []Request
	failures    []failure
}

// NewServer starts a server accepting apiKey.
func NewServer(apiKey string) *Server {
	s := &Server{
		APIKey: apiKey,
		nextID: 1,
		collections: map[string]*collection{
			"smtp":      {kind: model.KindSendingProfile, label: "SMTP", items: map[int64]map[string]any{}},
			"templates": {kind: model.KindTemplate, label: "Template", items: map[int64]map[string]any{}},
			"pages":     {kind: model.KindPage, label: "Page", items: map[int64]map[string]any{}},
		},
	}
	s.Server = httptest.NewServer(http.HandlerFunc(s.handle))
	return s
}

// BaseURL returns the instance address with trailing slash.
func (s *Server) BaseURL() string {
	return s.URL + "/"
}

// FailNext makes the next request matching method and path answer status.
func (s *Server) FailNext(method, path string, status int) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.failures = append(s.failures, failure{method: method, path: path, status: status})
}

// Requests returns every request received so far.
func (s *Server) Requests() []Request {
	s.mu.Lock()
	defer s.mu.Unlock()
	return append([]Request(nil), s.requests...)
}

// CountRequests returns how many requests used method.
func (s *Server) CountRequests(method string) int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method == method {
			n++
		}
	}
	return n
}

// Mutations returns how many non-GET requests were received.
func (s *Server) Mutations() int {
	s.mu.Lock()
	defer s.mu.Unlock()
	n := 0
	for _, r := range s.requests {
		if r.Method != http.MethodGet {
			n++
		}
	}
	return n
}

// Seed stores v (any JSON-marshalable record) in the collection for kind and
// returns the assigned identifier. The record's own id is ignored.
func (s *Server) Seed(kind model.Kind, v any) int64 {
	doc := toMap(v)
	s.mu.Lock()
	defer s.mu.Unlock()
	c := s.byKind(kind)
	id := s.nextID
	s.nextID++
	doc["id"] = id
	c.items[id] = doc
	return id
}

// Items returns the stored records for kind ordered by identifier.
func (s *Server) Items(kind model.Kind) []map[string]any {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.byKind(kind).sorted()
}

// Decode unmarshals the stored record into v.
func (s *Server) Decode(kind model.Kind, id int64, v any) error {
	s.mu.Lock()
	item, ok := s.byKind(kind).items[id]
	s.mu.Unlock()
	if !ok {
		return fmt.Errorf("%s %d not stored", kind, id)
	}
	data, err := json.Marshal(item)
	if err != nil {
		return err
	}
	return json.Unmarshal(data, v)
}

func (s *Server) byKind(kind model.Kind) *collection {
	for _, c := range s.collections {
		if c.kind == kind {
			return c
		}
	}
	panic(fmt.Sprintf("gophishtest: unknown kind %q", kind))
}

func (c *collection) sorted() []map[string]any {
	ids := make([]int64, 0, len(c.items))
	for id := range c.items {
		ids = append(ids, id)
	}
	sort.Slice(ids, func(i, j int) bool { return ids[i] < ids[j] })
	out := make([]map[string]any, len(ids))
	for i, id := range ids {
		out[i] = cloneMap(c.items[id])
	}
	return out
}

func (c *collection) findByName(name string) (int64, bool) {
	for id, item := range c.items {
		if item["name"] == name {
			return id, true
		}
	}
	return 0, false
}

func (s *Server) handle(w http.ResponseWriter, r *http.Request) {
	body, _ := io.ReadAll(r.Body)
	var doc map[string]any
	if len(body) > 0 {
		dec := json.NewDecoder(bytes.NewReader(body))
		dec.UseNumber()
		if err := dec.Decode(&doc); err != nil {
			writeJSON(w, http.StatusBadRequest, errorBody("Invalid JSON structure"))
			return
		}
	}

	s.mu.Lock()
	defer s.mu.Unlock()
	s.requests = append(s.requests, Request{Method: r.Method, Path: r.URL.Path, Body: cloneMap(doc)})

	if !s.authorized(r) {
		writeJSON(w, http.StatusUnauthorized, errorBody("Invalid API Key"))
		return
	}
	for i, f := range s.failures {
		if f.method == r.Method && f.path == r.URL.Path {
			s.failures = append(s.failures[:i], s.failures[i+1:]...)
			writeJSON(w, f.status, errorBody("injected failure"))
			return
		}
	}

	rest, ok := strings.CutPrefix(r.URL.Path, "/api/")
	if !ok {
		http.NotFound(w, r)
		return
	}
	name, idPart, _ := strings.Cut(rest, "/")
	c, ok := s.collections[name]
	if !ok {
		http.NotFound(w, r)
		return
	}

	if idPart == "" {
		switch r.Method {
		case http.MethodGet:
			s.list(w, c)
		case http.MethodPost:
			s.create(w, c, doc)
		default:
			writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
		}
		return
	}

	id, err := strconv.ParseInt(idPart, 10, 64)
	if err != nil {
		writeJSON(w, http.StatusBadRequest, errorBody("Invalid id"))
		return
	}
	switch r.Method {
	case http.MethodGet:
		item, ok := c.items[id]
		if !ok {
			writeJSON(w, http.StatusNotFound, errorBody(c.label+" not found"))
			return
		}
		writeJSON(w, http.StatusOK, item)
	case http.MethodPut:
		s.replace(w, c, id, doc)
	case http.MethodDelete:
		if _, ok := c.items[id]; !ok {
			writeJSON(w, http.StatusNotFound, errorBody(c.label+" not found"))
			return
		}
		delete(c.items, id)
		writeJSON(w, http.StatusOK, map[string]any{"success": true, "message": c.label + " deleted successfully!", "data": nil})
	default:
		writeJSON(w, http.StatusMethodNotAllowed, errorBody("method not allowed"))
	}
}

func (s *Server) authorized(r *http.Request) bool {
	key := r.URL.Query().Get("api_key")
	if key == "" {
		key = strings.TrimPrefix(r.Header.Get("Authorization"), "Bearer ")
	}
	return key == s.APIKey
}

func (s *Server) list(w http.ResponseWriter, c *collection) {
	items := c.sorted()
	if c.kind == model.KindTemplate {
		for _, item := range items {
			delete(item, "attachments")
		}
	}
	writeJSON(w, http.StatusOK, items)
}

func (s *Server) create(w http.ResponseWriter, c *collection, doc map[string]any) {
	name, _ := doc["name"].(string)
	if name == "" {
		writeJSON(w, http.StatusBadRequest, errorBody(c.label+" name not specified"))
		return
	}
	if _, exists := c.findByName(name); exists {
		writeJSON(w, http.StatusConflict, errorBody(c.label+" name already in use"))
		return
	}
	id := s.nextID
	s.nextID++
	doc["id"] = id
	doc["modified_date"] = ModifiedDate
	c.items[id] = doc
	writeJSON(w, http.StatusCreated, doc)
}

func (s *Server) replace(w http.ResponseWriter, c *collection, id int64, doc map[string]any) {
	if _, ok := c.items[id]; !ok {
		writeJSON(w, http.StatusNotFound, errorBody(c.label+" not found"))
		return
	}
	if bodyID, _ := doc["id"].(json.Number); bodyID.String() != strconv.FormatInt(id, 10) {
		writeJSON(w, http.StatusBadRequest, errorBody("Error: /:id and "+strings.ToLower(c.label)+"_id mismatch"))
		return
	}
	if other, exists := c.findByName(fmt.Sprint(doc["name"])); exists && other != id {
		writeJSON(w, http.StatusConflict, errorBody(c.label+" name already in use"))
		return
	}
	doc["id"] = id
	doc["modified_date"] = ModifiedDate
	c.items[id] = doc
	writeJSON(w, http.StatusOK, doc)
}

func errorBody(msg string) map[string]any {
	return map[string]any{"success": false, "message": msg, "data": nil}
}

func writeJSON(w http.ResponseWriter, status int, v any) {
	w.Header().Set("Content-Type", "application/json")
	w.WriteHeader(status)
	_ = json.NewEncoder(w).Encode(v)
}

func toMap(v any) map[string]any {
	data, err := json.Marshal(v)
	if err != nil {
		panic(fmt.Sprintf("gophishtest: marshal seed: %v", err))
	}
	var out map[string]any
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()
	if err := dec.Decode(&out); err != nil {
		panic(fmt.Sprintf("gophishtest: seed is not an object: %v", err))
	}
	return out
}

func cloneMap(m map[string]any) map[string]any {
	out := make(map[string]any, len(m))
	for k, v := range m {
		out[k] = v
	}
	return out
}
