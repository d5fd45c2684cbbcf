package services

import (
	"context"
	"errors"
	"fmt"
	"sort"
	"time"

	"go.uber.org/zap"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/metrics"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/society"
	"societyAdminAPI/internal/types/unitrequest"
)

type UnitRequestService struct {
	store   store.Store
	mutator UnitMutator
	audit   *audit.Recorder
	logger  *zap.Logger
	now     func() time.Time
}

func NewUnitRequestService(st store.Store, mutator UnitMutator, rec *audit.Recorder, logger *zap.Logger) *UnitRequestService {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &UnitRequestService{store: st, mutator: mutator, audit: rec, logger: logger, now: time.Now}
}

func collectionFor(kind unitrequest.Kind) (string, error) {
	c, err := kind.Collection()
	if err != nil {
		return "", apperr.Validation("%s", err.Error())
	}
	return c, nil
}

// List returns requests of one kind, newest first, with society names filled in.
func (s *UnitRequestService) List(ctx context.Context, kind unitrequest.Kind) ([]unitrequest.Request, error) {
	coll, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}
	snaps, err := s.store.List(ctx, coll, store.Query{})
	if err != nil {
		return nil, err
	}

	out := make([]unitrequest.Request, 0, len(snaps))
	names := make(map[string]string)
	for _, snap := range snaps {
		req, err := decodeUnitRequest(snap, kind)
		if err != nil {
			return nil, err
		}
		if req.SocietyID != "" {
			name, ok := names[req.SocietyID]
			if !ok {
				name, err = s.societyName(ctx, req.SocietyID)
				if err != nil {
					return nil, err
				}
				names[req.SocietyID] = name
			}
			req.SocietyName = name
		}
		out = append(out, *req)
	}

	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

func (s *UnitRequestService) societyName(ctx context.Context, id string) (string, error) {
	snap, err := s.store.Get(ctx, society.Collection, id)
	if errors.Is(err, apperr.ErrNotFound) {
		return "", nil
	}
	if err != nil {
		return "", err
	}
	soc, err := decodeSociety(snap)
	if err != nil {
		return "", err
	}
	return soc.Name, nil
}

// Decide approves or rejects a pending request exactly once. On approve the
// unit change is applied first; the request only becomes approved after that
// succeeds, so a failed mutation leaves it pending for another try.
func (s *UnitRequestService) Decide(ctx context.Context, kind unitrequest.Kind, id string, action unitrequest.Action) (*unitrequest.Request, error) {
	coll, err := collectionFor(kind)
	if err != nil {
		return nil, err
	}

	var next unitrequest.Status
	switch action {
	case unitrequest.ActionApprove:
		next = unitrequest.StatusApproved
	case unitrequest.ActionReject:
		next = unitrequest.StatusRejected
	default:
		return nil, apperr.Validation("unknown action %q", action)
	}

	snap, err := s.store.Get(ctx, coll, id)
	if err != nil {
		return nil, err
	}
	req, err := decodeUnitRequest(snap, kind)
	if err != nil {
		return nil, err
	}
	if req.Status != unitrequest.StatusPending {
		return nil, apperr.InvalidState("request %s is already %s", id, req.Status)
	}

	if action == unitrequest.ActionApprove {
		if err := s.mutator.Apply(ctx, req); err != nil {
			return nil, fmt.Errorf("apply unit %s: %w", kind, err)
		}
	}

	now := s.now()
	actor := audit.ActorFrom(ctx)
	snap, err = s.store.UpdateIf(ctx, coll, id, func(cur store.Snapshot) (store.Patch, error) {
		latest, err := decodeUnitRequest(cur, kind)
		if err != nil {
			return nil, err
		}
		if latest.Status != unitrequest.StatusPending {
			return nil, apperr.InvalidState("request %s is already %s", id, latest.Status)
		}
		return store.Patch{
			"status":    next,
			"decidedAt": now,
			"decidedBy": actor,
		}, nil
	})
	if err != nil {
		if action == unitrequest.ActionApprove && errors.Is(err, apperr.ErrInvalidState) {
			s.logger.Warn("unit change applied but request was decided concurrently",
				zap.String("kind", string(kind)),
				zap.String("request_id", id),
			)
		}
		return nil, err
	}

	decided, err := decodeUnitRequest(snap, kind)
	if err != nil {
		return nil, err
	}

	metrics.UnitDecision(string(kind), string(action))
	s.audit.Record(ctx, "unit_request."+string(action), coll+"/"+id, map[string]any{
		"societyId": decided.SocietyID,
		"kind":      kind,
	})
	return decided, nil
}

func decodeUnitRequest(snap store.Snapshot, kind unitrequest.Kind) (*unitrequest.Request, error) {
	var req unitrequest.Request
	if err := snap.DataTo(&req); err != nil {
		return nil, fmt.Errorf("decode unit request %s: %w", snap.ID(), err)
	}
	req.ID = snap.ID()
	req.Kind = kind
	return &req, nil
}
