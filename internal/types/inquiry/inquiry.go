package inquiry

import "time"

type Status string

const (
	StatusNew       Status = "new"
	StatusContacted Status = "contacted"
	StatusClosed    Status = "closed"
)

const Collection = "inquiries"

// Rank orders statuses along the only direction an inquiry may move.
// Unknown statuses rank zero.
func (s Status) Rank() int {
	switch s {
	case StatusNew:
		return 1
	case StatusContacted:
		return 2
	case StatusClosed:
		return 3
	}
	return 0
}

type Inquiry struct {
	ID          string     `json:"id" firestore:"-"`
	Name        string     `json:"name" firestore:"name"`
	Phone       string     `json:"phone" firestore:"phone"`
	City        string     `json:"city" firestore:"city"`
	SocietyName string     `json:"societyName" firestore:"societyName"`
	Status      Status     `json:"status" firestore:"status"`
	CreatedAt   *time.Time `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	UpdatedAt   *time.Time `json:"updatedAt,omitempty" firestore:"updatedAt,omitempty"`
}

type UpdateStatusRequest struct {
	Status Status `json:"status"`
}
