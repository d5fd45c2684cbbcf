package services

import (
	"context"
	"errors"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/announcement"
	"societyAdminAPI/internal/types/society"
)

var announceNow = time.Date(2024, 5, 10, 12, 0, 0, 0, time.UTC)

func millis(t time.Time) *int64 {
	ms := t.UnixMilli()
	return &ms
}

func newAnnouncementFixture() (*AnnouncementService, *store.Memory, *fakePusher) {
	mem := store.NewMemory()
	pusher := &fakePusher{}
	b := NewDirectBroadcaster(mem, pusher, nil)
	b.now = fixedClock(announceNow)
	svc := NewAnnouncementService(mem, b, nil, nil)
	svc.now = fixedClock(announceNow)
	for _, id := range []string{"s1", "s2", "s3"} {
		mem.Seed(society.Collection, id, store.Patch{"name": id, "status": "active"})
	}
	return svc, mem, pusher
}

func TestAnnouncement_ScheduleValidation(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()

	cases := map[string]announcement.ScheduleRequest{
		"no title":       {Description: "d", ScheduledFor: millis(announceNow.Add(time.Hour))},
		"no description": {Title: "t", ScheduledFor: millis(announceNow.Add(time.Hour))},
		"no time":        {Title: "t", Description: "d"},
		"past":           {Title: "t", Description: "d", ScheduledFor: millis(announceNow.Add(-time.Minute))},
	}
	for name, req := range cases {
		t.Run(name, func(t *testing.T) {
			_, err := svc.Schedule(ctx, req)
			assert.ErrorIs(t, err, apperr.ErrValidation)
		})
	}
}

func TestAnnouncement_ScheduleAtCurrentMillisecond(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	now := time.Date(2030, 1, 1, 0, 0, 0, 500_000, time.UTC)
	svc.now = fixedClock(now)

	ms := now.UnixMilli()
	a, err := svc.Schedule(context.Background(), announcement.ScheduleRequest{
		Title: "t", Description: "d", ScheduledFor: &ms,
	})
	require.NoError(t, err)
	assert.Equal(t, ms, a.ScheduledFor.UnixMilli())

	earlier := ms - 1
	_, err = svc.Schedule(context.Background(), announcement.ScheduleRequest{
		Title: "t", Description: "d", ScheduledFor: &earlier,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAnnouncement_EditAfterCancelIsInvalidStateEvenWithPastTime(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()
	a, err := svc.Schedule(ctx, announcement.ScheduleRequest{
		Title: "t", Description: "d", ScheduledFor: millis(announceNow.Add(time.Hour)),
	})
	require.NoError(t, err)
	_, err = svc.Cancel(ctx, a.ID)
	require.NoError(t, err)

	_, err = svc.Edit(ctx, a.ID, announcement.ScheduleRequest{
		Title: "t2", Description: "d2", ScheduledFor: millis(announceNow.Add(-time.Hour)),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.Edit(ctx, "missing", announcement.ScheduleRequest{Title: "t", Description: "d"})
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnnouncement_ScheduleStoresPending(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	at := announceNow.Add(2 * time.Hour)

	a, err := svc.Schedule(context.Background(), announcement.ScheduleRequest{
		Title: " Water cut ", Description: "Tank cleaning", ScheduledFor: millis(at),
	})
	require.NoError(t, err)
	assert.NotEmpty(t, a.ID)
	assert.Equal(t, "Water cut", a.Title)
	assert.Equal(t, announcement.StatusPending, a.Status)
	assert.True(t, at.Equal(a.ScheduledFor))
}

func TestAnnouncement_CancelIsOneShot(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()
	a, err := svc.Schedule(ctx, announcement.ScheduleRequest{
		Title: "t", Description: "d", ScheduledFor: millis(announceNow.Add(time.Hour)),
	})
	require.NoError(t, err)

	cancelled, err := svc.Cancel(ctx, a.ID)
	require.NoError(t, err)
	assert.Equal(t, announcement.StatusCancelled, cancelled.Status)
	require.NotNil(t, cancelled.CancelledAt)

	_, err = svc.Cancel(ctx, a.ID)
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.Edit(ctx, a.ID, announcement.ScheduleRequest{
		Title: "t2", Description: "d2", ScheduledFor: millis(announceNow.Add(3 * time.Hour)),
	})
	assert.ErrorIs(t, err, apperr.ErrInvalidState)

	_, err = svc.Cancel(ctx, "missing")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnnouncement_EditPending(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()
	a, err := svc.Schedule(ctx, announcement.ScheduleRequest{
		Title: "t", Description: "d", ScheduledFor: millis(announceNow.Add(time.Hour)),
	})
	require.NoError(t, err)

	later := announceNow.Add(5 * time.Hour)
	edited, err := svc.Edit(ctx, a.ID, announcement.ScheduleRequest{
		Title: "t2", Description: "d2", ScheduledFor: millis(later),
	})
	require.NoError(t, err)
	assert.Equal(t, "t2", edited.Title)
	assert.Equal(t, "d2", edited.Description)
	assert.True(t, later.Equal(edited.ScheduledFor))
	assert.Equal(t, announcement.StatusPending, edited.Status)

	_, err = svc.Edit(ctx, a.ID, announcement.ScheduleRequest{Title: "t3", Description: "d3"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAnnouncement_ListScheduledOrder(t *testing.T) {
	svc, mem, _ := newAnnouncementFixture()
	mem.Seed(announcement.ScheduledCollection, "b", store.Patch{"status": "pending", "scheduledFor": announceNow})
	mem.Seed(announcement.ScheduledCollection, "a", store.Patch{"status": "sent", "scheduledFor": announceNow})
	mem.Seed(announcement.ScheduledCollection, "c", store.Patch{"status": "pending", "scheduledFor": announceNow.Add(time.Hour)})

	list, err := svc.ListScheduled(context.Background())
	require.NoError(t, err)
	var ids []string
	for _, a := range list {
		ids = append(ids, a.ID)
	}
	assert.Equal(t, []string{"c", "a", "b"}, ids)
}

func TestAnnouncement_BroadcastToAll(t *testing.T) {
	svc, _, pusher := newAnnouncementFixture()
	ctx := context.Background()

	n, err := svc.BroadcastNow(ctx, announcement.BroadcastRequest{Title: "Diwali", Description: "Party at 7"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
	assert.Len(t, pusher.pushes, 3)

	all, err := svc.ListAnnouncements(ctx, "")
	require.NoError(t, err)
	require.Len(t, all, 3)
	assert.Equal(t, announcement.TargetAll, all[0].TargetType)

	one, err := svc.ListAnnouncements(ctx, "s2")
	require.NoError(t, err)
	require.Len(t, one, 1)
	assert.Equal(t, "s2", one[0].SocietyID)
	assert.Equal(t, "Diwali", one[0].Title)
}

func TestAnnouncement_BroadcastSelected(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()

	n, err := svc.BroadcastNow(ctx, announcement.BroadcastRequest{
		Title: "t", Description: "d",
		TargetType:        announcement.TargetSelected,
		SelectedSocieties: []string{"s1", "s3", "s1", ""},
	})
	require.NoError(t, err)
	assert.Equal(t, 2, n)

	_, err = svc.BroadcastNow(ctx, announcement.BroadcastRequest{
		Title: "t", Description: "d", TargetType: announcement.TargetSelected,
	})
	assert.ErrorIs(t, err, apperr.ErrValidation)

	_, err = svc.BroadcastNow(ctx, announcement.BroadcastRequest{
		Title: "t", Description: "d",
		TargetType:        announcement.TargetSelected,
		SelectedSocieties: []string{"s1", "nope"},
	})
	assert.ErrorIs(t, err, apperr.ErrNotFound)

	_, err = svc.BroadcastNow(ctx, announcement.BroadcastRequest{Title: "", Description: "d"})
	assert.ErrorIs(t, err, apperr.ErrValidation)
}

func TestAnnouncement_PushFailureDoesNotFailBroadcast(t *testing.T) {
	svc, _, pusher := newAnnouncementFixture()
	pusher.err = errors.New("fcm down")

	n, err := svc.BroadcastNow(context.Background(), announcement.BroadcastRequest{Title: "t", Description: "d"})
	require.NoError(t, err)
	assert.Equal(t, 3, n)
}

func TestAnnouncement_DeleteRemovesEveryCopy(t *testing.T) {
	svc, _, _ := newAnnouncementFixture()
	ctx := context.Background()

	_, err := svc.BroadcastNow(ctx, announcement.BroadcastRequest{Title: "t", Description: "d"})
	require.NoError(t, err)
	all, err := svc.ListAnnouncements(ctx, "")
	require.NoError(t, err)
	require.NotEmpty(t, all)

	require.NoError(t, svc.DeleteAnnouncement(ctx, all[0].BroadcastID))

	all, err = svc.ListAnnouncements(ctx, "")
	require.NoError(t, err)
	assert.Empty(t, all)

	err = svc.DeleteAnnouncement(ctx, "gone")
	assert.ErrorIs(t, err, apperr.ErrNotFound)
}

func TestAnnouncement_PromoteDue(t *testing.T) {
	svc, mem, pusher := newAnnouncementFixture()
	ctx := context.Background()
	mem.Seed(announcement.ScheduledCollection, "due", store.Patch{
		"title": "due", "description": "d", "status": "pending", "scheduledFor": announceNow.Add(-time.Minute),
	})
	mem.Seed(announcement.ScheduledCollection, "later", store.Patch{
		"title": "later", "description": "d", "status": "pending", "scheduledFor": announceNow.Add(time.Hour),
	})
	mem.Seed(announcement.ScheduledCollection, "dropped", store.Patch{
		"title": "dropped", "description": "d", "status": "cancelled", "scheduledFor": announceNow.Add(-time.Hour),
	})

	n, err := svc.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Equal(t, 1, n)
	assert.Len(t, pusher.pushes, 3)

	due, err := svc.GetScheduled(ctx, "due")
	require.NoError(t, err)
	assert.Equal(t, announcement.StatusSent, due.Status)
	require.NotNil(t, due.SentAt)

	later, err := svc.GetScheduled(ctx, "later")
	require.NoError(t, err)
	assert.Equal(t, announcement.StatusPending, later.Status)

	n, err = svc.PromoteDue(ctx)
	require.NoError(t, err)
	assert.Zero(t, n)

	copies, err := svc.ListAnnouncements(ctx, "s1")
	require.NoError(t, err)
	require.Len(t, copies, 1)
	assert.Equal(t, "due", copies[0].ID)
}
