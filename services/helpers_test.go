package services

import (
	"context"
	"encoding/json"
	"sync"
	"time"

	"societyAdminAPI/internal/store"
)

// countingStore counts writes that actually change a document.
type countingStore struct {
	store.Store
	mu     sync.Mutex
	writes int
}

func (c *countingStore) count() int {
	c.mu.Lock()
	defer c.mu.Unlock()
	return c.writes
}

func (c *countingStore) inc() {
	c.mu.Lock()
	c.writes++
	c.mu.Unlock()
}

func (c *countingStore) Update(ctx context.Context, collection, id string, p store.Patch) error {
	c.inc()
	return c.Store.Update(ctx, collection, id, p)
}

func (c *countingStore) UpdateIf(ctx context.Context, collection, id string, fn store.MutateFunc) (store.Snapshot, error) {
	return c.Store.UpdateIf(ctx, collection, id, func(cur store.Snapshot) (store.Patch, error) {
		p, err := fn(cur)
		if err == nil && len(p) > 0 {
			c.inc()
		}
		return p, err
	})
}

type call struct {
	Function string
	Payload  map[string]any
}

// fakeCaller records remote calls and answers from handlers keyed by function.
type fakeCaller struct {
	mu       sync.Mutex
	calls    []call
	handlers map[string]func(payload map[string]any) (any, error)
}

func newFakeCaller() *fakeCaller {
	return &fakeCaller{handlers: make(map[string]func(map[string]any) (any, error))}
}

func (f *fakeCaller) on(function string, h func(payload map[string]any) (any, error)) {
	f.handlers[function] = h
}

func (f *fakeCaller) Call(_ context.Context, function string, payload, out any) error {
	var p map[string]any
	raw, _ := json.Marshal(payload)
	_ = json.Unmarshal(raw, &p)

	f.mu.Lock()
	f.calls = append(f.calls, call{Function: function, Payload: p})
	h := f.handlers[function]
	f.mu.Unlock()

	if h == nil {
		return nil
	}
	res, err := h(p)
	if err != nil {
		return err
	}
	if out != nil && res != nil {
		raw, _ := json.Marshal(res)
		return json.Unmarshal(raw, out)
	}
	return nil
}

func (f *fakeCaller) called(function string) []call {
	f.mu.Lock()
	defer f.mu.Unlock()
	var out []call
	for _, c := range f.calls {
		if c.Function == function {
			out = append(out, c)
		}
	}
	return out
}

type push struct {
	SocietyID string
	Title     string
}

type fakePusher struct {
	mu     sync.Mutex
	pushes []push
	err    error
}

func (f *fakePusher) SendToSociety(_ context.Context, societyID, title, _ string, _ map[string]any) error {
	f.mu.Lock()
	defer f.mu.Unlock()
	f.pushes = append(f.pushes, push{SocietyID: societyID, Title: title})
	return f.err
}

func date(y int, m time.Month, d int) time.Time {
	return time.Date(y, m, d, 0, 0, 0, 0, time.UTC)
}

func fixedClock(t time.Time) func() time.Time {
	return func() time.Time { return t }
}
