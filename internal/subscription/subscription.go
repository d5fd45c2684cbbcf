// Package subscription holds the plan lifecycle rules for a society: the
// status an operator sees, the drift correction that keeps the stored status
// honest, and the toggle/extend/reduce transitions.
//
// Every function here is pure. Each transition returns the patch to write so
// callers can apply it inside a conditional store write.
package subscription

import (
	"time"

	"societyAdminAPI/internal/planclock"
	"societyAdminAPI/internal/types/society"
)

const (
	FieldStatus     = "status"
	FieldPlanExpiry = "planExpiryDate"
	FieldUpdatedAt  = "updatedAt"
)

// Evaluation is the result of Evaluate. Correction is nil when the stored
// status already agrees with the expiry.
type Evaluation struct {
	Effective  society.Status
	Correction map[string]any
}

// Evaluate derives the effective status of s at now.
//
// A stored inactive wins over the expiry date. Any other lapsed plan is
// effectively inactive and produces a correction setting status to inactive.
// Suspended and expired only show through while the plan has not lapsed.
func Evaluate(s *society.Society, now time.Time) Evaluation {
	if s.Status == society.StatusInactive {
		return Evaluation{Effective: society.StatusInactive}
	}

	if Lapsed(s, now) {
		return Evaluation{
			Effective: society.StatusInactive,
			Correction: map[string]any{
				FieldStatus:    society.StatusInactive,
				FieldUpdatedAt: now,
			},
		}
	}

	switch s.Status {
	case society.StatusExpired, society.StatusSuspended:
		return Evaluation{Effective: s.Status}
	}
	return Evaluation{Effective: society.StatusActive}
}

// Lapsed reports whether the plan expiry is set and strictly before now.
func Lapsed(s *society.Society, now time.Time) bool {
	return s.PlanExpiryDate != nil && s.PlanExpiryDate.Before(now)
}

// Toggle flips active to inactive and anything else to active.
func Toggle(s *society.Society, now time.Time) map[string]any {
	next := society.StatusActive
	if s.Status == society.StatusActive {
		next = society.StatusInactive
	}
	return map[string]any{
		FieldStatus:    next,
		FieldUpdatedAt: now,
	}
}

// Extend pushes the expiry one calendar month out, starting from now when no
// expiry is set, and reactivates the plan.
func Extend(s *society.Society, now time.Time) map[string]any {
	return map[string]any{
		FieldPlanExpiry: planclock.Shift(s.PlanExpiryDate, 1, now),
		FieldStatus:     society.StatusActive,
		FieldUpdatedAt:  now,
	}
}

// Reduce pulls the expiry one calendar month in. It returns nil when no expiry
// is set. The status is left alone until the next Evaluate.
func Reduce(s *society.Society, now time.Time) map[string]any {
	if s.PlanExpiryDate == nil {
		return nil
	}
	return map[string]any{
		FieldPlanExpiry: planclock.Shift(s.PlanExpiryDate, -1, now),
		FieldUpdatedAt:  now,
	}
}
