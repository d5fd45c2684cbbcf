package services

import (
	"context"

	"societyAdminAPI/internal/types/society"
)

type DashboardService struct {
	subscriptions *SubscriptionService
}

func NewDashboardService(subscriptions *SubscriptionService) *DashboardService {
	return &DashboardService{subscriptions: subscriptions}
}

// Stats summarises all societies by effective status. Revenue is the sum of
// every society's plan price.
func (s *DashboardService) Stats(ctx context.Context) (*society.DashboardStats, error) {
	views, err := s.subscriptions.List(ctx)
	if err != nil {
		return nil, err
	}

	stats := &society.DashboardStats{TotalSocieties: len(views)}
	for _, v := range views {
		stats.TotalRevenue += v.PlanPrice
		switch v.EffectiveStatus {
		case society.StatusActive:
			stats.ActivePlans++
		case society.StatusInactive:
			stats.InactivePlans++
		case society.StatusExpired:
			stats.ExpiredPlans++
		case society.StatusSuspended:
			stats.SuspendedPlans++
		}
	}
	return stats, nil
}
