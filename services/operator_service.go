package services

import (
	"context"
	"errors"
	"fmt"

	"societyAdminAPI/internal/apperr"
	"societyAdminAPI/internal/store"
	"societyAdminAPI/internal/types/operator"
)

type OperatorService struct {
	store store.Store
}

func NewOperatorService(st store.Store) *OperatorService {
	return &OperatorService{store: st}
}

// IsSuperAdmin reports whether uid belongs to an active super-admin. A missing
// user record is not an error, just a no.
func (s *OperatorService) IsSuperAdmin(ctx context.Context, uid string) (bool, error) {
	if uid == "" {
		return false, nil
	}
	snap, err := s.store.Get(ctx, operator.Collection, uid)
	if errors.Is(err, apperr.ErrNotFound) {
		return false, nil
	}
	if err != nil {
		return false, err
	}

	var u operator.User
	if err := snap.DataTo(&u); err != nil {
		return false, fmt.Errorf("decode user %s: %w", uid, err)
	}
	return u.Role == operator.RoleSuperAdmin && u.IsActive, nil
}
