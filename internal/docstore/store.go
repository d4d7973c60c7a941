// Package docstore is the document-database contract the domain services
// run on: path-addressed JSON documents grouped into collections, realtime
// collection snapshots, and an atomic counter primitive.
//
// Paths alternate collection and document segments, for example
// restaurants/{rid}/orders/{orderId}. A collection path is the document
// path without its last segment.
package docstore

import (
	"context"
	"encoding/json"
	"errors"
	"strings"
)

var ErrInvalidPath = errors.New("docstore: invalid document path")

// Document is one stored record.
type Document struct {
	ID   string
	Path string
	Data json.RawMessage
}

// Decode unmarshals the document body into v.
func (d Document) Decode(v any) error {
	return json.Unmarshal(d.Data, v)
}

// Store is satisfied by *Memory and *Postgres.
type Store interface {
	// Get returns apperr.ErrNotFound when the document does not exist.
	Get(ctx context.Context, path string) (Document, error)
	// Set creates or replaces the document.
	Set(ctx context.Context, path string, data any) error
	// Insert creates the document only when the path is free; otherwise it
	// returns apperr.ErrConflict and leaves the existing document alone.
	Insert(ctx context.Context, path string, data any) error
	// Update merges top-level fields into an existing document.
	Update(ctx context.Context, path string, fields map[string]any) error
	Delete(ctx context.Context, path string) error
	// Create inserts data under a generated id and returns the id.
	Create(ctx context.Context, collection string, data any) (string, error)
	// List returns every document in the collection in insertion order.
	List(ctx context.Context, collection string) ([]Document, error)
	// Where returns documents whose top-level string field equals value.
	Where(ctx context.Context, collection, field, value string) ([]Document, error)
	// Subscribe delivers the full document set of the collection now and
	// after every later write. fn runs on a dedicated goroutine; bursts of
	// writes may be coalesced into a single snapshot.
	Subscribe(ctx context.Context, collection string, fn func([]Document)) (unsubscribe func(), err error)
	// Increment atomically adds delta to an integer field and returns the
	// new value. A missing document or field starts from zero.
	Increment(ctx context.Context, path, field string, delta int64) (int64, error)
}

// Join builds a path from segments.
func Join(segments ...string) string {
	return strings.Join(segments, "/")
}

// Split separates a document path into its collection path and id.
func Split(path string) (collection, id string, err error) {
	segs := strings.Split(path, "/")
	if len(segs) < 2 || len(segs)%2 != 0 {
		return "", "", ErrInvalidPath
	}
	for _, s := range segs {
		if s == "" {
			return "", "", ErrInvalidPath
		}
	}
	i := strings.LastIndexByte(path, '/')
	return path[:i], path[i+1:], nil
}

func validCollection(collection string) bool {
	segs := strings.Split(collection, "/")
	if len(segs)%2 != 1 {
		return false
	}
	for _, s := range segs {
		if s == "" {
			return false
		}
	}
	return true
}

// mergeFields applies top-level fields onto an encoded JSON object.
func mergeFields(data json.RawMessage, fields map[string]any) (json.RawMessage, error) {
	obj := map[string]json.RawMessage{}
	if len(data) > 0 {
		if err := json.Unmarshal(data, &obj); err != nil {
			return nil, err
		}
	}
	for k, v := range fields {
		raw, err := json.Marshal(v)
		if err != nil {
			return nil, err
		}
		obj[k] = raw
	}
	return json.Marshal(obj)
}
