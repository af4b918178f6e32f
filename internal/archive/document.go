package archive

import (
	"bytes"
	"encoding/json"
	"fmt"
	"strconv"
)

// Document is the structured form of an entity as stored in the archive.
// It is a plain JSON object so fields this tool does not model survive a
// backup and restore unchanged.
type Document map[string]any

// NewDocument converts a record into a Document.
func NewDocument(v any) (Document, error) {
	data, err := json.Marshal(v)
	if err != nil {
		return nil, fmt.Errorf("marshal record: %w", err)
	}
	return ParseDocument(data)
}

// ParseDocument parses a JSON object. Numbers are kept as json.Number so
// identifiers round-trip exactly.
func ParseDocument(data []byte) (Document, error) {
	dec := json.NewDecoder(bytes.NewReader(data))
	dec.UseNumber()

	var doc Document
	if err := dec.Decode(&doc); err != nil {
		return nil, fmt.Errorf("parse document: %w", err)
	}
	if doc == nil {
		return nil, fmt.Errorf("parse document: not a JSON object")
	}
	return doc, nil
}

// Encode serializes the document with sorted keys and without HTML escaping.
func (d Document) Encode() ([]byte, error) {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	// map keys are emitted in sorted order
	if err := enc.Encode(map[string]any(d)); err != nil {
		return nil, fmt.Errorf("encode document: %w", err)
	}
	return bytes.TrimSuffix(buf.Bytes(), []byte("\n")), nil
}

// Decode unmarshals the document into v.
func (d Document) Decode(v any) error {
	data, err := json.Marshal(map[string]any(d))
	if err != nil {
		return fmt.Errorf("marshal document: %w", err)
	}
	if err := json.Unmarshal(data, v); err != nil {
		return fmt.Errorf("decode document: %w", err)
	}
	return nil
}

// Pop removes a string field and returns its value. Fields that are absent,
// null or not strings report false and are left untouched.
func (d Document) Pop(key string) (string, bool) {
	s, ok := d[key].(string)
	if !ok {
		return "", false
	}
	delete(d, key)
	return s, true
}

// ID returns the numeric "id" field.
func (d Document) ID() (int64, bool) {
	switch v := d["id"].(type) {
	case json.Number:
		id, err := v.Int64()
		return id, err == nil
	case float64:
		return int64(v), true
	case int64:
		return v, true
	case int:
		return int64(v), true
	case string:
		id, err := strconv.ParseInt(v, 10, 64)
		return id, err == nil
	default:
		return 0, false
	}
}

// SetID replaces the "id" field.
func (d Document) SetID(id int64) {
	d["id"] = json.Number(strconv.FormatInt(id, 10))
}

// Name returns the "name" field, the natural key of every entity kind.
func (d Document) Name() string {
	s, _ := d["name"].(string)
	return s
}

// Clone returns a shallow copy of the document.
func (d Document) Clone() Document {
	out := make(Document, len(d))
	for k, v := range d {
		out[k] = v
	}
	return out
}
