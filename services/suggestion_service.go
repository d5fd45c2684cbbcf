package services

import (
	"context"
	"fmt"
	"sort"

	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/suggestion"
)

type SuggestionService struct {
	store store.Store
}

func NewSuggestionService(st store.Store) *SuggestionService {
	return &SuggestionService{store: st}
}

// List returns resident suggestions from every society, newest first.
func (s *SuggestionService) List(ctx context.Context) ([]suggestion.Suggestion, error) {
	snaps, err := s.store.ListGroup(ctx, suggestion.Collection, store.Query{})
	if err != nil {
		return nil, err
	}
	out := make([]suggestion.Suggestion, 0, len(snaps))
	for _, snap := range snaps {
		var sg suggestion.Suggestion
		if err := snap.DataTo(&sg); err != nil {
			return nil, fmt.Errorf("decode suggestion %s: %w", snap.ID(), err)
		}
		sg.ID = snap.ID()
		sg.SocietyID = snap.ParentID()
		out = append(out, sg)
	}
	sort.SliceStable(out, func(i, j int) bool {
		return newerFirst(out[i].CreatedAt, out[j].CreatedAt, out[i].ID, out[j].ID)
	})
	return out, nil
}
