package services

import (
	"context"
	"fmt"
	"sort"
	"strings"
	"time"

	"github.com/google/uuid"
	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/metrics"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/announcement"
	"societyAdminAPI/internal/types/society"
)

type AnnouncementService struct {
	store       store.Store
	broadcaster Broadcaster
	audit       *audit.Recorder
	logger      *zap.Logger
	now         func() time.Time
}

func NewAnnouncementService(st store.Store, broadcaster Broadcaster, rec *audit.Recorder, logger *zap.Logger) *AnnouncementService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &AnnouncementService{store: st, broadcaster: broadcaster, audit: rec, logger: logger, now: time.Now}
}

func (s *AnnouncementService) validateSchedule(req announcement.ScheduleRequest, now time.Time) (string, string, time.Time, error) {
	title := strings.TrimSpace(req.Title)
	desc := strings.TrimSpace(req.Description)
	if title == "" {
		return "", "", time.Time{}, apperr.Validation("title is required")
	}
	if desc == "" {
		return "", "", time.Time{}, apperr.Validation("description is required")
	}
	if req.ScheduledFor == nil {
		return "", "", time.Time{}, apperr.Validation("scheduledFor is required")
	}
	// scheduledFor has millisecond precision; the current millisecond is not past
	at := time.UnixMilli(*req.ScheduledFor).UTC()
	if at.Before(now.Truncate(time.Millisecond)) {
		return "", "", time.Time{}, apperr.Validation("scheduledFor is in the past")
	}
	return title, desc, at, nil
}

// Schedule stores a pending announcement to be broadcast at scheduledFor.
func (s *AnnouncementService) Schedule(ctx context.Context, req announcement.ScheduleRequest) (*announcement.Scheduled, error) {
	now := s.now()
	title, desc, at, err := s.validateSchedule(req, now)
	if err != nil {
		return nil, err
	}

	id, err := s.store.Create(ctx, announcement.ScheduledCollection, store.Patch{
		"title":        title,
		"description":  desc,
		"scheduledFor": at,
		"status":       announcement.StatusPending,
		"createdAt":    now,
		"updatedAt":    now,
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "announcement.schedule", announcement.ScheduledCollection+"/"+id, map[string]any{
		"scheduledFor": at,
	})
	return s.GetScheduled(ctx, id)
}

func (s *AnnouncementService) GetScheduled(ctx context.Context, id string) (*announcement.Scheduled, error) {
	snap, err := s.store.Get(ctx, announcement.ScheduledCollection, id)
	if err != nil {
		return nil, err
	}
	return decodeScheduled(snap)
}

// Cancel moves a pending announcement to cancelled. Anything else is refused.
func (s *AnnouncementService) Cancel(ctx context.Context, id string) (*announcement.Scheduled, error) {
	now := s.now()
	snap, err := s.store.UpdateIf(ctx, announcement.ScheduledCollection, id, func(cur store.Snapshot) (store.Patch, error) {
		if err := requirePending(cur); err != nil {
			return nil, err
		}
		return store.Patch{
			"status":      announcement.StatusCancelled,
			"cancelledAt": now,
			"updatedAt":   now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "announcement.cancel", announcement.ScheduledCollection+"/"+id, nil)
	return decodeScheduled(snap)
}

// Edit overwrites title, description and scheduledFor of a pending announcement.
// An announcement that is no longer pending is refused before the new values
// are looked at.
func (s *AnnouncementService) Edit(ctx context.Context, id string, req announcement.ScheduleRequest) (*announcement.Scheduled, error) {
	now := s.now()

	var at time.Time
	snap, err := s.store.UpdateIf(ctx, announcement.ScheduledCollection, id, func(cur store.Snapshot) (store.Patch, error) {
		if err := requirePending(cur); err != nil {
			return nil, err
		}
		title, desc, when, err := s.validateSchedule(req, now)
		if err != nil {
			return nil, err
		}
		at = when
		return store.Patch{
			"title":        title,
			"description":  desc,
			"scheduledFor": at,
			"updatedAt":    now,
		}, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "announcement.edit", announcement.ScheduledCollection+"/"+id, map[string]any{
		"scheduledFor": at,
	})
	return decodeScheduled(snap)
}

// ListScheduled returns every scheduled announcement, latest scheduledFor first.
func (s *AnnouncementService) ListScheduled(ctx context.Context) ([]announcement.Scheduled, error) {
	snaps, err := s.store.List(ctx, announcement.ScheduledCollection, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]announcement.Scheduled, 0, len(snaps))
	for _, snap := range snaps {
		a, err := decodeScheduled(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(&out[i].ScheduledFor, &out[j].ScheduledFor, out[i].ID, out[j].ID)
	})
	return out, nil
}

// BroadcastNow sends an announcement immediately and returns how many
// societies received it.
func (s *AnnouncementService) BroadcastNow(ctx context.Context, req announcement.BroadcastRequest) (int, error) {
	title := strings.TrimSpace(req.Title)
	desc := strings.TrimSpace(req.Description)
	if title == "" || desc == "" {
		return 0, apperr.Validation("title and description are required")
	}

	b := Broadcast{ID: uuid.NewString(), Title: title, Description: desc}
	switch req.TargetType {
	case "", announcement.TargetAll:
		b.TargetType = announcement.TargetAll
	case announcement.TargetSelected:
		b.TargetType = announcement.TargetSelected
		b.SocietyIDs = dedupe(req.SelectedSocieties)
		if len(b.SocietyIDs) == 0 {
			return 0, apperr.Validation("select at least one society")
		}
	default:
		return 0, apperr.Validation("unknown targetType %q", req.TargetType)
	}

	count, err := s.broadcaster.Broadcast(ctx, b)
	if err != nil {
		return 0, fmt.Errorf("broadcast: %w", err)
	}

	metrics.Broadcast("manual", count)
	s.audit.Record(ctx, "announcement.broadcast", "broadcasts/"+b.ID, map[string]any{
		"targetType": b.TargetType,
		"count":      count,
	})
	return count, nil
}

// ListAnnouncements returns broadcast announcements, newest first, either for
// one society or across all of them.
func (s *AnnouncementService) ListAnnouncements(ctx context.Context, societyID string) ([]announcement.Announcement, error) {
	var (
		snaps []store.Snapshot
		err   error
	)
	if societyID != "" {
		snaps, err = s.store.List(ctx, store.Path(society.Collection, societyID, announcement.Collection), store.Query{})
	} else {
		snaps, err = s.store.ListGroup(ctx, announcement.Collection, store.Query{})
	}
	if err != nil {
		return nil, err
	}

	out := make([]announcement.Announcement, 0, len(snaps))
	for _, snap := range snaps {
		var a announcement.Announcement
		if err := snap.DataTo(&a); err != nil {
			return nil, fmt.Errorf("decode announcement %s: %w", snap.ID(), err)
		}
		a.ID = snap.ID()
		a.SocietyID = snap.ParentID()
		out = append(out, a)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(&out[i].CreatedAt, &out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *AnnouncementService) DeleteAnnouncement(ctx context.Context, id string) error {
	if strings.TrimSpace(id) == "" {
		return apperr.Validation("announcement id is required")
	}
	if err := s.broadcaster.Delete(ctx, id); err != nil {
		return fmt.Errorf("delete announcement: %w", err)
	}
	s.audit.Record(ctx, "announcement.delete", "announcements/"+id, nil)
	return nil
}

// PromoteDue broadcasts every pending announcement whose time has come and
// marks it sent. A crash between broadcast and mark means the next run sends
// it again; the broadcast id is the scheduled id so the direct broadcaster
// overwrites its earlier copies.
func (s *AnnouncementService) PromoteDue(ctx context.Context) (int, error) {
	now := s.now()
	q := store.Query{}.
		Filter("status", "==", string(announcement.StatusPending)).
		Filter("scheduledFor", "<=", now)

	snaps, err := s.store.List(ctx, announcement.ScheduledCollection, q)
	if err != nil {
		return 0, err
	}

	promoted := 0
	for _, snap := range snaps {
		if err := s.promote(ctx, snap.ID(), now); err != nil {
			if ctx.Err() != nil {
				return promoted, err
			}
			s.logger.Error("scheduled announcement not promoted", zap.String("id", snap.ID()), zap.Error(err))
			continue
		}
		promoted++
	}
	return promoted, nil
}

func (s *AnnouncementService) promote(ctx context.Context, id string, now time.Time) error {
	// re-read so a cancel since the listing wins
	a, err := s.GetScheduled(ctx, id)
	if err != nil {
		return err
	}
	if a.Status != announcement.StatusPending {
		return nil
	}

	count, err := s.broadcaster.Broadcast(ctx, Broadcast{
		ID:          id,
		Title:       a.Title,
		Description: a.Description,
		TargetType:  announcement.TargetAll,
	})
	if err != nil {
		return err
	}

	_, err = s.store.UpdateIf(ctx, announcement.ScheduledCollection, id, func(cur store.Snapshot) (store.Patch, error) {
		if err := requirePending(cur); err != nil {
			return nil, err
		}
		return store.Patch{
			"status":    announcement.StatusSent,
			"sentAt":    now,
			"updatedAt": now,
		}, nil
	})
	if err != nil {
		return fmt.Errorf("mark sent: %w", err)
	}

	metrics.Broadcast("scheduled", count)
	s.logger.Info("scheduled announcement sent", zap.String("id", id), zap.Int("societies", count))
	s.audit.Record(ctx, "announcement.send", announcement.ScheduledCollection+"/"+id, map[string]any{
		"count": count,
	})
	return nil
}

func requirePending(snap store.Snapshot) error {
	a, err := decodeScheduled(snap)
	if err != nil {
		return err
	}
	if a.Status != announcement.StatusPending {
		return apperr.InvalidState("scheduled announcement %s is %s", a.ID, a.Status)
	}
	return nil
}

func decodeScheduled(snap store.Snapshot) (*announcement.Scheduled, error) {
	var a announcement.Scheduled
	if err := snap.DataTo(&a); err != nil {
		return nil, fmt.Errorf("decode scheduled announcement %s: %w", snap.ID(), err)
	}
	a.ID = snap.ID()
	return &a, nil
}

func dedupe(ids []string) []string {
	seen := make(map[string]bool, len(ids))
	out := make([]string, 0, len(ids))
	for _, id := range ids {
		id = strings.TrimSpace(id)
		if id == "" || seen[id] {
			continue
		}
		seen[id] = true
		out = append(out, id)
	}
	return out
}
