package suggestion

import "time"

// Collection is queried as a collection group across all societies.
const Collection = "suggestions"

type Suggestion struct {
	ID           string     `json:"id" firestore:"-"`
	SocietyID    string     `json:"societyId,omitempty" firestore:"-"`
	ResidentName string     `json:"residentName,omitempty" firestore:"residentName,omitempty"`
	UnitNo       string     `json:"unitNo,omitempty" firestore:"unitNo,omitempty"`
	Title        string     `json:"title,omitempty" firestore:"title,omitempty"`
	Description  string     `json:"description,omitempty" firestore:"description,omitempty"`
	Status       string     `json:"status,omitempty" firestore:"status,omitempty"`
	CreatedAt    *time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
}
