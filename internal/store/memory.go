package store

import (
	"context"
	"encoding/json"
	"reflect"
	"sort"
	"strings"
	"sync"
	"time"

	"github.com/google/uuid"

	"societyAdminAPI/internal/apperr"
)

// Memory is an in-process Store. Documents are kept as plain maps and decoded
// into typed values through their json tags, which mirror the firestore tags.
type Memory struct {
	mu    sync.RWMutex
	colls map[string]map[string]map[string]any
	newID func() string
}

func NewMemory() *Memory {
	return &Memory{
		colls: make(map[string]map[string]map[string]any),
		newID: uuid.NewString,
	}
}

// Seed stores data under a fixed id, replacing any existing document.
func (m *Memory) Seed(collection, id string, data Patch) {
	m.mu.Lock()
	defer m.mu.Unlock()

	doc := make(map[string]any)
	applyPatch(doc, data)
	m.collection(collection)[id] = doc
}

func (m *Memory) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.External("get "+collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	doc, ok := m.colls[collection][id]
	if !ok {
		return nil, apperr.NotFound("%s/%s", collection, id)
	}
	return newMemSnapshot(collection, id, doc), nil
}

func (m *Memory) List(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.External("list "+collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return runQuery(q, collection, m.colls[collection]), nil
}

func (m *Memory) ListGroup(ctx context.Context, group string, q Query) ([]Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.External("list group "+group, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	var all []Snapshot
	for path, docs := range m.colls {
		if lastSegment(path) != group {
			continue
		}
		all = append(all, runQuery(Query{Where: q.Where, OrderBy: q.OrderBy}, path, docs)...)
	}
	sortSnapshots(all, q)
	if q.Limit > 0 && len(all) > q.Limit {
		all = all[:q.Limit]
	}
	return all, nil
}

func (m *Memory) Count(ctx context.Context, collection string) (int, error) {
	if err := ctx.Err(); err != nil {
		return 0, apperr.External("count "+collection, err)
	}
	m.mu.RLock()
	defer m.mu.RUnlock()

	return len(m.colls[collection]), nil
}

func (m *Memory) Create(ctx context.Context, collection string, data Patch) (string, error) {
	if err := ctx.Err(); err != nil {
		return "", apperr.External("create "+collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	id := m.newID()
	doc := make(map[string]any)
	applyPatch(doc, data)
	m.collection(collection)[id] = doc
	return id, nil
}

func (m *Memory) Set(ctx context.Context, collection, id string, data Patch) error {
	if err := ctx.Err(); err != nil {
		return apperr.External("set "+collection, err)
	}
	m.Seed(collection, id, data)
	return nil
}

func (m *Memory) Update(ctx context.Context, collection, id string, p Patch) error {
	if err := ctx.Err(); err != nil {
		return apperr.External("update "+collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.colls[collection][id]
	if !ok {
		return apperr.NotFound("%s/%s", collection, id)
	}
	applyPatch(doc, p)
	return nil
}

func (m *Memory) UpdateIf(ctx context.Context, collection, id string, fn MutateFunc) (Snapshot, error) {
	if err := ctx.Err(); err != nil {
		return nil, apperr.External("update "+collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	doc, ok := m.colls[collection][id]
	if !ok {
		return nil, apperr.NotFound("%s/%s", collection, id)
	}
	p, err := fn(newMemSnapshot(collection, id, doc))
	if err != nil {
		return nil, err
	}
	if len(p) > 0 {
		applyPatch(doc, p)
	}
	return newMemSnapshot(collection, id, doc), nil
}

func (m *Memory) Delete(ctx context.Context, collection, id string) error {
	if err := ctx.Err(); err != nil {
		return apperr.External("delete "+collection, err)
	}
	m.mu.Lock()
	defer m.mu.Unlock()

	delete(m.colls[collection], id)
	return nil
}

func (m *Memory) Close() error { return nil }

func (m *Memory) collection(path string) map[string]map[string]any {
	docs, ok := m.colls[path]
	if !ok {
		docs = make(map[string]map[string]any)
		m.colls[path] = docs
	}
	return docs
}

type memSnapshot struct {
	id     string
	parent string
	data   map[string]any
}

func newMemSnapshot(collection, id string, doc map[string]any) *memSnapshot {
	return &memSnapshot{id: id, parent: parentID(collection), data: copyMap(doc)}
}

func (s *memSnapshot) ID() string       { return s.id }
func (s *memSnapshot) ParentID() string { return s.parent }

func (s *memSnapshot) DataTo(dst any) error {
	raw, err := json.Marshal(s.data)
	if err != nil {
		return err
	}
	return json.Unmarshal(raw, dst)
}

func runQuery(q Query, path string, docs map[string]map[string]any) []Snapshot {
	out := make([]Snapshot, 0, len(docs))
	for id, doc := range docs {
		if !matches(doc, q) {
			continue
		}
		out = append(out, newMemSnapshot(path, id, doc))
	}
	sortSnapshots(out, q)
	if q.Limit > 0 && len(out) > q.Limit {
		out = out[:q.Limit]
	}
	return out
}

func matches(doc map[string]any, q Query) bool {
	for _, f := range q.Where {
		v, ok := lookup(doc, f.Field)
		if !ok {
			return false
		}
		c, ok := compare(v, f.Value)
		if !ok {
			if f.Op == "!=" {
				continue
			}
			return false
		}
		if !opHolds(f.Op, c) {
			return false
		}
	}
	if q.OrderBy != "" {
		// documents without the ordering field are not returned
		if _, ok := lookup(doc, q.OrderBy); !ok {
			return false
		}
	}
	return true
}

func opHolds(op string, c int) bool {
	switch op {
	case "==":
		return c == 0
	case "!=":
		return c != 0
	case "<":
		return c < 0
	case "<=":
		return c <= 0
	case ">":
		return c > 0
	case ">=":
		return c >= 0
	}
	return false
}

func sortSnapshots(snaps []Snapshot, q Query) {
	sort.SliceStable(snaps, func(i, j int) bool {
		a, b := snaps[i].(*memSnapshot), snaps[j].(*memSnapshot)
		if q.OrderBy != "" {
			av, _ := lookup(a.data, q.OrderBy)
			bv, _ := lookup(b.data, q.OrderBy)
			if c, ok := compare(av, bv); ok && c != 0 {
				if q.Dir == Desc {
					return c > 0
				}
				return c < 0
			}
		}
		return a.id < b.id
	})
}

func lookup(doc map[string]any, path string) (any, bool) {
	var cur any = doc
	for _, part := range strings.Split(path, ".") {
		m, ok := cur.(map[string]any)
		if !ok {
			return nil, false
		}
		if cur, ok = m[part]; !ok {
			return nil, false
		}
	}
	return cur, true
}

func applyPatch(doc map[string]any, p Patch) {
	for path, value := range p {
		parts := strings.Split(path, ".")
		m := doc
		for _, part := range parts[:len(parts)-1] {
			next, ok := m[part].(map[string]any)
			if !ok {
				next = make(map[string]any)
				m[part] = next
			}
			m = next
		}
		key := parts[len(parts)-1]
		if inc, ok := value.(Increment); ok {
			m[key] = addInt(m[key], inc.Delta)
			continue
		}
		m[key] = copyValue(value)
	}
}

func addInt(current any, delta int64) any {
	if f, ok := toFloat(current); ok {
		rv := reflect.ValueOf(current)
		if rv.Kind() == reflect.Float32 || rv.Kind() == reflect.Float64 {
			return f + float64(delta)
		}
		return int64(f) + delta
	}
	return delta
}

func copyMap(src map[string]any) map[string]any {
	dst := make(map[string]any, len(src))
	for k, v := range src {
		dst[k] = copyValue(v)
	}
	return dst
}

func copyValue(v any) any {
	switch t := v.(type) {
	case map[string]any:
		return copyMap(t)
	case Patch:
		return copyMap(t)
	case map[string]bool:
		out := make(map[string]any, len(t))
		for k, b := range t {
			out[k] = b
		}
		return out
	case []any:
		out := make([]any, len(t))
		for i := range t {
			out[i] = copyValue(t[i])
		}
		return out
	case []string:
		return append([]string(nil), t...)
	case *time.Time:
		if t == nil {
			return nil
		}
		return *t
	}
	return v
}

// compare orders two scalar values. It reports false when the values are of
// kinds that cannot be compared.
func compare(a, b any) (int, bool) {
	if at, ok := asTime(a); ok {
		bt, ok := asTime(b)
		if !ok {
			return 0, false
		}
		return at.Compare(bt), true
	}
	if af, ok := toFloat(a); ok {
		bf, ok := toFloat(b)
		if !ok {
			return 0, false
		}
		switch {
		case af < bf:
			return -1, true
		case af > bf:
			return 1, true
		}
		return 0, true
	}
	av, bv := reflect.ValueOf(a), reflect.ValueOf(b)
	if !av.IsValid() || !bv.IsValid() {
		return 0, false
	}
	switch {
	case av.Kind() == reflect.String && bv.Kind() == reflect.String:
		return strings.Compare(av.String(), bv.String()), true
	case av.Kind() == reflect.Bool && bv.Kind() == reflect.Bool:
		if av.Bool() == bv.Bool() {
			return 0, true
		}
		if !av.Bool() {
			return -1, true
		}
		return 1, true
	}
	return 0, false
}

func asTime(v any) (time.Time, bool) {
	switch t := v.(type) {
	case time.Time:
		return t, true
	case *time.Time:
		if t != nil {
			return *t, true
		}
	}
	return time.Time{}, false
}

func toFloat(v any) (float64, bool) {
	rv := reflect.ValueOf(v)
	switch rv.Kind() {
	case reflect.Int, reflect.Int8, reflect.Int16, reflect.Int32, reflect.Int64:
		return float64(rv.Int()), true
	case reflect.Uint, reflect.Uint8, reflect.Uint16, reflect.Uint32, reflect.Uint64:
		return float64(rv.Uint()), true
	case reflect.Float32, reflect.Float64:
		return rv.Float(), true
	}
	return 0, false
}

func lastSegment(path string) string {
	if i := strings.LastIndex(path, "/"); i >= 0 {
		return path[i+1:]
	}
	return path
}

func parentID(collection string) string {
	parts := strings.Split(collection, "/")
	if len(parts) < 3 {
		return ""
	}
	return parts[len(parts)-2]
}
