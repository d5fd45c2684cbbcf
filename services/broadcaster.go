package services

import (
	"context"
	"fmt"
	"time"

	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/gateway"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/announcement"
	"societyAdminAPI/internal/types/society"
)

// Broadcast is one announcement fanned out to a set of societies. ID is
// stable across retries of the same broadcast.
type Broadcast struct {
	ID          string
	Title       string
	Description string
	TargetType  announcement.TargetType
	SocietyIDs  []string
}

// Broadcaster writes a broadcast to its target societies and reports how many
// received it.
type Broadcaster interface {
	Broadcast(ctx context.Context, b Broadcast) (int, error)
	Delete(ctx context.Context, announcementID string) error
}

// FunctionBroadcaster delegates to the backend's broadcast functions.
type FunctionBroadcaster struct {
	functions FunctionCaller
}

func NewFunctionBroadcaster(functions FunctionCaller) *FunctionBroadcaster {
	return &FunctionBroadcaster{functions: functions}
}

func (f *FunctionBroadcaster) Broadcast(ctx context.Context, b Broadcast) (int, error) {
	payload := map[string]any{
		"broadcastId": b.ID,
		"title":       b.Title,
		"description": b.Description,
		"targetType":  b.TargetType,
	}
	if b.TargetType == announcement.TargetSelected {
		payload["selectedSocieties"] = b.SocietyIDs
	}

	var res announcement.BroadcastResponse
	if err := f.functions.Call(ctx, gateway.FnBroadcastAnnouncement, payload, &res); err != nil {
		return 0, err
	}
	return res.Count, nil
}

func (f *FunctionBroadcaster) Delete(ctx context.Context, announcementID string) error {
	return f.functions.Call(ctx, gateway.FnDeleteBroadcastAnnouncement, map[string]any{
		"announcementId": announcementID,
	}, nil)
}

// Pusher notifies the devices of one society.
type Pusher interface {
	SendToSociety(ctx context.Context, societyID, title, body string, data map[string]any) error
}

// DirectBroadcaster writes announcement documents itself and optionally
// pushes a notification to each society's topic. Each society's copy is
// keyed by the broadcast id, so a retried broadcast overwrites rather than
// duplicates.
type DirectBroadcaster struct {
	store  store.Store
	pusher Pusher
	logger *zap.Logger
	now    func() time.Time
}

func NewDirectBroadcaster(st store.Store, pusher Pusher, logger *zap.Logger) *DirectBroadcaster {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &DirectBroadcaster{store: st, pusher: pusher, logger: logger, now: time.Now}
}

func (d *DirectBroadcaster) Broadcast(ctx context.Context, b Broadcast) (int, error) {
	targets, err := d.targets(ctx, b)
	if err != nil {
		return 0, err
	}

	now := d.now()
	for _, sid := range targets {
		err := d.store.Set(ctx, store.Path(society.Collection, sid, announcement.Collection), b.ID, store.Patch{
			"title":       b.Title,
			"description": b.Description,
			"targetType":  b.TargetType,
			"broadcastId": b.ID,
			"createdAt":   now,
		})
		if err != nil {
			return 0, fmt.Errorf("write announcement for society %s: %w", sid, err)
		}
	}

	if d.pusher != nil {
		for _, sid := range targets {
			// push is best effort; the announcement is already stored
			if err := d.pusher.SendToSociety(ctx, sid, b.Title, b.Description, map[string]any{
				"type":           "announcement",
				"announcementId": b.ID,
			}); err != nil {
				d.logger.Warn("announcement push failed", zap.String("society_id", sid), zap.Error(err))
			}
		}
	}
	return len(targets), nil
}

func (d *DirectBroadcaster) targets(ctx context.Context, b Broadcast) ([]string, error) {
	if b.TargetType == announcement.TargetSelected {
		for _, sid := range b.SocietyIDs {
			if _, err := d.store.Get(ctx, society.Collection, sid); err != nil {
				return nil, err
			}
		}
		return b.SocietyIDs, nil
	}

	snaps, err := d.store.List(ctx, society.Collection, store.Query{})
	if err != nil {
		return nil, err
	}
	ids := make([]string, 0, len(snaps))
	for _, snap := range snaps {
		ids = append(ids, snap.ID())
	}
	return ids, nil
}

// Delete removes every society's copy of the broadcast.
func (d *DirectBroadcaster) Delete(ctx context.Context, announcementID string) error {
	snaps, err := d.store.ListGroup(ctx, announcement.Collection, store.Query{}.Filter("broadcastId", "==", announcementID))
	if err != nil {
		return err
	}
	if len(snaps) == 0 {
		return apperr.NotFound("announcement %s", announcementID)
	}
	for _, snap := range snaps {
		if err := d.store.Delete(ctx, store.Path(society.Collection, snap.ParentID(), announcement.Collection), snap.ID()); err != nil {
			return err
		}
	}
	return nil
}
