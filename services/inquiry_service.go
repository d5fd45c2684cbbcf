package services

import (
	"context"
	"fmt"
	"sort"
	"time"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/audit"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/inquiry"
)

type InquiryService struct {
	store store.Store
	audit *audit.Recorder
	now   func() time.Time
}

func NewInquiryService(st store.Store, rec *audit.Recorder) *InquiryService {
	return &InquiryService{store: st, audit: rec, now: time.Now}
}

func (s *InquiryService) List(ctx context.Context) ([]inquiry.Inquiry, error) {
	snaps, err := s.store.List(ctx, inquiry.Collection, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]inquiry.Inquiry, 0, len(snaps))
	for _, snap := range snaps {
		in, err := decodeInquiry(snap)
		if err != nil {
			return nil, err
		}
		out = append(out, *in)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}

// UpdateStatus moves an inquiry forward along new -> contacted -> closed.
// Skipping ahead is allowed; staying put or going back is not.
func (s *InquiryService) UpdateStatus(ctx context.Context, id string, status inquiry.Status) (*inquiry.Inquiry, error) {
	if status.Rank() == 0 {
		return nil, apperr.Validation("unknown status %q", status)
	}
	now := s.now()

	snap, err := s.store.UpdateIf(ctx, inquiry.Collection, id, func(cur store.Snapshot) (store.Patch, error) {
		in, err := decodeInquiry(cur)
		if err != nil {
			return nil, err
		}
		current := in.Status
		if current == "" {
			current = inquiry.StatusNew
		}
		if status.Rank() <= current.Rank() {
			return nil, apperr.InvalidState("inquiry %s is %s and cannot move to %s", id, current, status)
		}
		return store.Patch{"status": status, "updatedAt": now}, nil
	})
	if err != nil {
		return nil, err
	}

	s.audit.Record(ctx, "inquiry.status", inquiry.Collection+"/"+id, map[string]any{"status": status})
	return decodeInquiry(snap)
}

func decodeInquiry(snap store.Snapshot) (*inquiry.Inquiry, error) {
	var in inquiry.Inquiry
	if err := snap.DataTo(&in); err != nil {
		return nil, fmt.Errorf("decode inquiry %s: %w", snap.ID(), err)
	}
	in.ID = snap.ID()
	return &in, nil
}
