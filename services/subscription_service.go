package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/metrics"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/subscription"
	"societyAdminAPI/internal/types/society"
)

// FunctionCaller invokes a privileged backend function.
type FunctionCaller interface {
	Call(ctx context.Context, function string, payload, out any) error
}

type SubscriptionService struct {
	store  store.Store
	audit  *audit.Recorder
	logger *zap.Logger
	now    func() time.Time
}

func NewSubscriptionService(st store.Store, rec *audit.Recorder, logger *zap.Logger) *SubscriptionService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &SubscriptionService{store: st, audit: rec, logger: logger, now: time.Now}
}

// List returns every society with its effective status, newest first.
// Lapsed societies are corrected in the store as they are read.
func (s *SubscriptionService) List(ctx context.Context) ([]society.View, error) {
	snaps, err := s.store.List(ctx, society.Collection, store.Query{})
	if err != nil {
		return nil, err
	}

	now := s.now()
	views := make([]society.View, 0, len(snaps))
	for _, snap := range snaps {
		soc, err := decodeSociety(snap)
		if err != nil {
			return nil, err
		}
		view, err := s.evaluate(ctx, soc, now)
		if err != nil {
			return nil, err
		}
		views = append(views, view)
	}

	sort.SliceStable(views, func(i, j int) bool {
		return newerFirst(views[i].CreatedAt, views[j].CreatedAt, views[i].ID, views[j].ID)
	})
	return views, nil
}

// Get reads one society with its effective status, correcting it if lapsed.
func (s *SubscriptionService) Get(ctx context.Context, id string) (society.View, error) {
	snap, err := s.store.Get(ctx, society.Collection, id)
	if err != nil {
		return society.View{}, err
	}
	soc, err := decodeSociety(snap)
	if err != nil {
		return society.View{}, err
	}
	return s.evaluate(ctx, soc, s.now())
}

// evaluate derives the effective status and, when the stored status has
// drifted, writes the correction. The guard re-evaluates against the stored
// document so a concurrent toggle or extend is never overwritten.
func (s *SubscriptionService) evaluate(ctx context.Context, soc *society.Society, now time.Time) (society.View, error) {
	ev := subscription.Evaluate(soc, now)
	if ev.Correction == nil {
		return society.View{Society: soc, EffectiveStatus: ev.Effective}, nil
	}

	var corrected bool
	snap, err := s.store.UpdateIf(ctx, society.Collection, soc.ID, func(cur store.Snapshot) (store.Patch, error) {
		corrected = false
		latest, err := decodeSociety(cur)
		if err != nil {
			return nil, err
		}
		again := subscription.Evaluate(latest, now)
		if again.Correction == nil {
			return nil, nil
		}
		corrected = true
		return store.Patch(again.Correction), nil
	})
	if err != nil {
		return society.View{}, fmt.Errorf("correct lapsed society %s: %w", soc.ID, err)
	}

	latest, err := decodeSociety(snap)
	if err != nil {
		return society.View{}, err
	}
	if corrected {
		metrics.SubscriptionCorrected()
		s.logger.Info("lapsed society marked inactive",
			zap.String("society_id", soc.ID),
			zap.Timep("plan_expiry", latest.PlanExpiryDate),
		)
		s.audit.Record(ctx, "subscription.correct", society.Collection+"/"+soc.ID, map[string]any{
			"status": latest.Status,
		})
	}
	return society.View{Society: latest, EffectiveStatus: subscription.Evaluate(latest, now).Effective}, nil
}

func (s *SubscriptionService) Toggle(ctx context.Context, id string) (society.View, error) {
	return s.transition(ctx, id, "toggle", subscription.Toggle)
}

func (s *SubscriptionService) Extend(ctx context.Context, id string) (society.View, error) {
	return s.transition(ctx, id, "extend", subscription.Extend)
}

func (s *SubscriptionService) Reduce(ctx context.Context, id string) (society.View, error) {
	return s.transition(ctx, id, "reduce", subscription.Reduce)
}

// transition applies rule to the stored society in one conditional write and
// returns the society as stored afterwards.
func (s *SubscriptionService) transition(
	ctx context.Context,
	id, action string,
	rule func(*society.Society, time.Time) map[string]any,
) (society.View, error) {
	if id == "" {
		return society.View{}, apperr.Validation("society id is required")
	}
	now := s.now()

	var changed bool
	snap, err := s.store.UpdateIf(ctx, society.Collection, id, func(cur store.Snapshot) (store.Patch, error) {
		soc, err := decodeSociety(cur)
		if err != nil {
			return nil, err
		}
		p := store.Patch(rule(soc, now))
		changed = len(p) > 0
		return p, nil
	})
	if err != nil {
		return society.View{}, err
	}

	soc, err := decodeSociety(snap)
	if err != nil {
		return society.View{}, err
	}

	view := society.View{Society: soc, EffectiveStatus: subscription.Evaluate(soc, now).Effective}
	if !changed {
		return view, nil
	}

	metrics.SubscriptionChanged(action)
	s.audit.Record(ctx, "subscription."+action, society.Collection+"/"+id, map[string]any{
		"status":         soc.Status,
		"planExpiryDate": soc.PlanExpiryDate,
	})
	return view, nil
}

func decodeSociety(snap store.Snapshot) (*society.Society, error) {
	var soc society.Society
	if err := snap.DataTo(&soc); err != nil {
		return nil, fmt.Errorf("decode society %s: %w", snap.ID(), err)
	}
	soc.ID = snap.ID()
	return &soc, nil
}

// newerFirst orders by timestamp descending, missing timestamps last, then
// by id ascending.
func newerFirst(a, b *time.Time, idA, idB string) bool {
	switch {
	case a != nil && b != nil && !a.Equal(*b):
		return a.After(*b)
	case a != nil && b == nil:
		return true
	case a == nil && b != nil:
		return false
	}
	return idA < idB
}
