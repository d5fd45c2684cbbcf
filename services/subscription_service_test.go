package services

import (
	"context"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/society"
)

func newSubscriptionFixture(now time.Time) (*SubscriptionService, *store.Memory, *countingStore) {
	svc, mem, cs, _ := newAuditedSubscriptionFixture(now)
	return svc, mem, cs
}

func newAuditedSubscriptionFixture(now time.Time) (*SubscriptionService, *store.Memory, *countingStore, *audit.LogSink) {
	mem := store.NewMemory()
	cs := &countingStore{Store: mem}
	sink := audit.NewLogSink(nil, 0)
	svc := NewSubscriptionService(cs, audit.NewRecorder(sink, nil), nil)
	svc.now = fixedClock(now)
	return svc, mem, cs, sink
}

func TestSubscription_LapsedIsCorrectedOnce(t *testing.T) {
	ctx := context.Background()
	svc, mem, cs := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "s1", store.Patch{
		"name":           "Green Park",
		"status":         "active",
		"planExpiryDate": date(2024, 1, 15),
	})

	views, err := svc.List(ctx)
	require.NoError(t, err)
	require.Len(t, views, 1)
	assert.Equal(t, society.StatusInactive, views[0].EffectiveStatus)
	assert.Equal(t, society.StatusInactive, views[0].Status)
	assert.Equal(t, 1, cs.count())

	view, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, society.StatusInactive, view.EffectiveStatus)
	assert.Equal(t, 1, cs.count(), "re-evaluating a corrected society must not write")
}

func TestSubscription_LapsedSuspendedIsCorrected(t *testing.T) {
	ctx := context.Background()
	svc, mem, cs := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "s1", store.Patch{"status": "suspended", "planExpiryDate": date(2024, 1, 15)})

	view, err := svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, society.StatusInactive, view.EffectiveStatus)
	assert.Equal(t, society.StatusInactive, view.Status)
	assert.Equal(t, 1, cs.count())

	_, err = svc.Get(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, 1, cs.count())
}

func TestSubscription_EvaluateLeavesOtherStatesAlone(t *testing.T) {
	ctx := context.Background()
	svc, mem, cs := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "future", store.Patch{"status": "active", "planExpiryDate": date(2024, 3, 1)})
	mem.Seed(society.Collection, "off", store.Patch{"status": "inactive", "planExpiryDate": date(2023, 3, 1)})
	mem.Seed(society.Collection, "nodate", store.Patch{"status": "active"})

	views, err := svc.List(ctx)
	require.NoError(t, err)

	got := map[string]society.Status{}
	for _, v := range views {
		got[v.ID] = v.EffectiveStatus
	}
	assert.Equal(t, map[string]society.Status{
		"future": society.StatusActive,
		"off":    society.StatusInactive,
		"nodate": society.StatusActive,
	}, got)
	assert.Zero(t, cs.count())
}

func TestSubscription_ListNewestFirst(t *testing.T) {
	svc, mem, _ := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "b", store.Patch{"status": "active", "createdAt": date(2024, 1, 1)})
	mem.Seed(society.Collection, "a", store.Patch{"status": "active", "createdAt": date(2024, 1, 1)})
	mem.Seed(society.Collection, "c", store.Patch{"status": "active", "createdAt": date(2024, 1, 20)})
	mem.Seed(society.Collection, "z", store.Patch{"status": "active"})

	views, err := svc.List(context.Background())
	require.NoError(t, err)

	var ids []string
	for _, v := range views {
		ids = append(ids, v.ID)
	}
	assert.Equal(t, []string{"c", "a", "b", "z"}, ids)
}

func TestSubscription_Toggle(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "s1", store.Patch{"status": "active"})
	mem.Seed(society.Collection, "s2", store.Patch{"status": "suspended"})

	v, err := svc.Toggle(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, society.StatusInactive, v.Status)

	v, err = svc.Toggle(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, society.StatusActive, v.Status)

	v, err = svc.Toggle(ctx, "s2")
	require.NoError(t, err)
	assert.Equal(t, society.StatusActive, v.Status)
}

func TestSubscription_ExtendAlwaysActivates(t *testing.T) {
	ctx := context.Background()
	now := time.Date(2024, 2, 1, 9, 30, 0, 0, time.UTC)
	svc, mem, _ := newSubscriptionFixture(now)
	mem.Seed(society.Collection, "lapsed", store.Patch{"status": "expired", "planExpiryDate": date(2024, 1, 31)})
	mem.Seed(society.Collection, "fresh", store.Patch{"status": "inactive"})

	v, err := svc.Extend(ctx, "lapsed")
	require.NoError(t, err)
	assert.Equal(t, society.StatusActive, v.Status)
	assert.Equal(t, society.StatusActive, v.EffectiveStatus)
	require.NotNil(t, v.PlanExpiryDate)
	assert.True(t, date(2024, 2, 29).Equal(*v.PlanExpiryDate))

	v, err = svc.Extend(ctx, "fresh")
	require.NoError(t, err)
	assert.Equal(t, society.StatusActive, v.Status)
	require.NotNil(t, v.PlanExpiryDate)
	assert.True(t, now.AddDate(0, 1, 0).Equal(*v.PlanExpiryDate))
}

func TestSubscription_ReduceWithoutExpiryWritesNothing(t *testing.T) {
	ctx := context.Background()
	svc, mem, cs, sink := newAuditedSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "s1", store.Patch{"status": "active"})

	v, err := svc.Reduce(ctx, "s1")
	require.NoError(t, err)
	assert.Nil(t, v.PlanExpiryDate)
	assert.Zero(t, cs.count())

	entries, err := sink.Recent(ctx, 10)
	require.NoError(t, err)
	assert.Empty(t, entries, "a no-op reduce is not an operator change")

	_, err = svc.Toggle(ctx, "s1")
	require.NoError(t, err)
	entries, err = sink.Recent(ctx, 10)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "subscription.toggle", entries[0].Action)
}

func TestSubscription_ReduceKeepsStatus(t *testing.T) {
	ctx := context.Background()
	svc, mem, _ := newSubscriptionFixture(date(2024, 2, 1))
	mem.Seed(society.Collection, "s1", store.Patch{"status": "active", "planExpiryDate": date(2024, 2, 20)})

	v, err := svc.Reduce(ctx, "s1")
	require.NoError(t, err)
	assert.Equal(t, society.StatusActive, v.Status)
	assert.True(t, date(2024, 1, 20).Equal(*v.PlanExpiryDate))
	assert.Equal(t, society.StatusInactive, v.EffectiveStatus)
}

func TestSubscription_MissingSociety(t *testing.T) {
	svc, _, _ := newSubscriptionFixture(date(2024, 2, 1))

	_, err := svc.Toggle(context.Background(), "ghost")
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.Extend(context.Background(), "")
	assert.ErrorIs(t, err, apperr.ErrValidation)
}
