package store

import (
	"context"
	"errors"
	"fmt"

	"cloud.google.com/go/firestore"
	"cloud.google.com/go/firestore/apiv1/firestorepb"
	"google.golang.org/api/iterator"
	"google.golang.org/grpc/codes"
	"google.golang.org/grpc/status"

	"societyAdminAPI/internal/apperr"
)

// Firestore is the production Store backed by Cloud Firestore.
type Firestore struct {
	client *firestore.Client
}

func NewFirestore(client *firestore.Client) *Firestore {
	return &Firestore{client: client}
}

func (f *Firestore) Get(ctx context.Context, collection, id string) (Snapshot, error) {
	snap, err := f.client.Collection(collection).Doc(id).Get(ctx)
	if err != nil {
		return nil, classify("get "+collection+"/"+id, err)
	}
	return fsSnapshot{snap}, nil
}

func (f *Firestore) List(ctx context.Context, collection string, q Query) ([]Snapshot, error) {
	return f.run(ctx, "list "+collection, f.client.Collection(collection).Query, q)
}

func (f *Firestore) ListGroup(ctx context.Context, group string, q Query) ([]Snapshot, error) {
	return f.run(ctx, "list group "+group, f.client.CollectionGroup(group).Query, q)
}

func (f *Firestore) run(ctx context.Context, op string, base firestore.Query, q Query) ([]Snapshot, error) {
	query := base
	for _, w := range q.Where {
		query = query.Where(w.Field, w.Op, w.Value)
	}
	if q.OrderBy != "" {
		dir := firestore.Asc
		if q.Dir == Desc {
			dir = firestore.Desc
		}
		query = query.OrderBy(q.OrderBy, dir)
	}
	if q.Limit > 0 {
		query = query.Limit(q.Limit)
	}

	iter := query.Documents(ctx)
	defer iter.Stop()

	var out []Snapshot
	for {
		d, err := iter.Next()
		if err == iterator.Done {
			break
		}
		if err != nil {
			return nil, classify(op, err)
		}
		out = append(out, fsSnapshot{d})
	}
	return out, nil
}

func (f *Firestore) Count(ctx context.Context, collection string) (int, error) {
	res, err := f.client.Collection(collection).NewAggregationQuery().WithCount("all").Get(ctx)
	if err != nil {
		return 0, classify("count "+collection, err)
	}
	v, ok := res["all"].(*firestorepb.Value)
	if !ok {
		return 0, apperr.External("count "+collection, fmt.Errorf("unexpected aggregation result %T", res["all"]))
	}
	return int(v.GetIntegerValue()), nil
}

func (f *Firestore) Create(ctx context.Context, collection string, data Patch) (string, error) {
	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[k] = toFirestoreValue(v)
	}
	ref, _, err := f.client.Collection(collection).Add(ctx, fields)
	if err != nil {
		return "", classify("create "+collection, err)
	}
	return ref.ID, nil
}

func (f *Firestore) Set(ctx context.Context, collection, id string, data Patch) error {
	fields := make(map[string]any, len(data))
	for k, v := range data {
		fields[k] = toFirestoreValue(v)
	}
	if _, err := f.client.Collection(collection).Doc(id).Set(ctx, fields); err != nil {
		return classify("set "+collection+"/"+id, err)
	}
	return nil
}

func (f *Firestore) Update(ctx context.Context, collection, id string, p Patch) error {
	_, err := f.client.Collection(collection).Doc(id).Update(ctx, updates(p))
	if err != nil {
		return classify("update "+collection+"/"+id, err)
	}
	return nil
}

func (f *Firestore) UpdateIf(ctx context.Context, collection, id string, fn MutateFunc) (Snapshot, error) {
	ref := f.client.Collection(collection).Doc(id)

	err := f.client.RunTransaction(ctx, func(ctx context.Context, tx *firestore.Transaction) error {
		snap, err := tx.Get(ref)
		if err != nil {
			return err
		}
		p, err := fn(fsSnapshot{snap})
		if err != nil {
			return err
		}
		if len(p) == 0 {
			return nil
		}
		return tx.Update(ref, updates(p))
	})
	if err != nil {
		return nil, classify("update "+collection+"/"+id, err)
	}

	snap, err := ref.Get(ctx)
	if err != nil {
		return nil, classify("get "+collection+"/"+id, err)
	}
	return fsSnapshot{snap}, nil
}

func (f *Firestore) Delete(ctx context.Context, collection, id string) error {
	if _, err := f.client.Collection(collection).Doc(id).Delete(ctx); err != nil {
		return classify("delete "+collection+"/"+id, err)
	}
	return nil
}

func (f *Firestore) Close() error {
	return f.client.Close()
}

type fsSnapshot struct {
	snap *firestore.DocumentSnapshot
}

func (s fsSnapshot) ID() string { return s.snap.Ref.ID }

func (s fsSnapshot) ParentID() string {
	if parent := s.snap.Ref.Parent; parent != nil && parent.Parent != nil {
		return parent.Parent.ID
	}
	return ""
}

func (s fsSnapshot) DataTo(dst any) error { return s.snap.DataTo(dst) }

func updates(p Patch) []firestore.Update {
	out := make([]firestore.Update, 0, len(p))
	for path, v := range p {
		out = append(out, firestore.Update{Path: path, Value: toFirestoreValue(v)})
	}
	return out
}

func toFirestoreValue(v any) any {
	if inc, ok := v.(Increment); ok {
		return firestore.Increment(inc.Delta)
	}
	return v
}

// classify maps Firestore errors onto apperr kinds. Errors returned by a
// MutateFunc pass through untouched.
func classify(op string, err error) error {
	if apperr.Classified(err) {
		return err
	}
	if status.Code(err) == codes.NotFound {
		return apperr.NotFound("%s", op)
	}
	if status.Code(err) == codes.DeadlineExceeded || errors.Is(err, context.DeadlineExceeded) {
		return fmt.Errorf("%s: %w: %w", op, apperr.ErrTimeout, err)
	}
	return apperr.External(op, err)
}
