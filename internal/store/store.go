// Package store is the document-store boundary the admin engine reads from
// and writes to. Collections are addressed by slash-separated paths, so
// "societies/abc/announcements" names a sub-collection.
//
// Two drivers exist: Firestore for deployments and an in-memory driver for
// local runs and tests.
package store

import (
	"context"
	"strings"
)

// Patch maps field paths to new values. Dotted paths address nested map
// fields, e.g. "features.visitorEntry".
type Patch map[string]any

// Increment is a patch value that adds Delta to a numeric field atomically.
type Increment struct {
	Delta int64
}

type Direction int

const (
	Asc Direction = iota
	Desc
)

type Filter struct {
	Field string
	Op    string // ==, !=, <, <=, >, >=
	Value any
}

type Query struct {
	Where   []Filter
	OrderBy string
	Dir     Direction
	Limit   int
}

// Filter returns a copy of q with an extra filter.
func (q Query) Filter(field, op string, value any) Query {
	q.Where = append(append([]Filter(nil), q.Where...), Filter{Field: field, Op: op, Value: value})
	return q
}

// Snapshot is a read document.
type Snapshot interface {
	ID() string
	// ParentID is the id of the document owning the collection, or "" for
	// top-level collections.
	ParentID() string
	DataTo(dst any) error
}

// MutateFunc inspects the current document inside a conditional write and
// returns the patch to apply. Returning an empty patch writes nothing; returning
// an error aborts the write. It may be called more than once and must not have
// side effects.
type MutateFunc func(current Snapshot) (Patch, error)

type Store interface {
	// Get returns apperr.ErrNotFound when the document does not exist.
	Get(ctx context.Context, collection, id string) (Snapshot, error)
	List(ctx context.Context, collection string, q Query) ([]Snapshot, error)
	// ListGroup queries every collection whose last path segment is group.
	ListGroup(ctx context.Context, group string, q Query) ([]Snapshot, error)
	Count(ctx context.Context, collection string) (int, error)
	Create(ctx context.Context, collection string, data Patch) (string, error)
	// Set writes data under id, replacing any existing document.
	Set(ctx context.Context, collection, id string, data Patch) error
	// Update applies p to an existing document; last write wins.
	Update(ctx context.Context, collection, id string, p Patch) error
	// UpdateIf re-reads the document, runs fn and applies its patch atomically
	// with respect to concurrent writers. It returns the document as stored
	// after the write.
	UpdateIf(ctx context.Context, collection, id string, fn MutateFunc) (Snapshot, error)
	Delete(ctx context.Context, collection, id string) error
	Close() error
}

// Path joins path segments into a collection path.
func Path(segments ...string) string {
	return strings.Join(segments, "/")
}
