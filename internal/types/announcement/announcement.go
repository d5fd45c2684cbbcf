package announcement

import "time"

type ScheduleStatus string

const (
	StatusPending   ScheduleStatus = "pending"
	StatusSent      ScheduleStatus = "sent"
	StatusCancelled ScheduleStatus = "cancelled"
)

const (
	ScheduledCollection = "scheduledAnnouncements"
	// Collection is the per-society sub-collection; listing across all
	// societies queries it as a collection group.
	Collection = "announcements"
)

type TargetType string

const (
	TargetAll      TargetType = "all"
	TargetSelected TargetType = "selected"
)

type Scheduled struct {
	ID           string         `json:"id" firestore:"-"`
	Title        string         `json:"title" firestore:"title"`
	Description  string         `json:"description" firestore:"description"`
	ScheduledFor time.Time      `json:"scheduledFor" firestore:"scheduledFor"`
	Status       ScheduleStatus `json:"status" firestore:"status"`
	CreatedAt    *time.Time     `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt    *time.Time     `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
	SentAt       *time.Time     `json:"sentAt,omitempty" firestore:"sentAt,omitempty"`
	CancelledAt  *time.Time     `json:"cancelledAt,omitempty" firestore:"cancelledAt,omitempty"`
}

type Announcement struct {
	ID          string     `json:"id" firestore:"-"`
	SocietyID   string     `json:"societyId" firestore:"-"`
	Title       string     `json:"title" firestore:"title"`
	Description string     `json:"description" firestore:"description"`
	TargetType  TargetType `json:"targetType,omitempty" firestore:"targetType,omitempty"`
	BroadcastID string     `json:"broadcastId,omitempty" firestore:"broadcastId,omitempty"`
	CreatedAt   time.Time  `json:"createdAt" firestore:"createdAt"`
}

// ScheduleRequest carries scheduledFor as epoch milliseconds, the format the
// console sends.
type ScheduleRequest struct {
	Title        string `json:"title"`
	Description  string `json:"description"`
	ScheduledFor *int64 `json:"scheduledFor"`
}

// BroadcastRequest targets every society unless TargetType is "selected".
type BroadcastRequest struct {
	Title             string     `json:"title"`
	Description       string     `json:"description"`
	TargetType        TargetType `json:"targetType"`
	SelectedSocieties []string   `json:"selectedSocieties"`
}

type BroadcastResponse struct {
	Count int `json:"count"`
}
