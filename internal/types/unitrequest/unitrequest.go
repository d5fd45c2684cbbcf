package unitrequest

import (
	"fmt"
	"time"
)

type Status string

const (
	StatusPending  Status = "pending"
	StatusApproved Status = "approved"
	StatusRejected Status = "rejected"
)

type Kind string

const (
	KindCreation Kind = "creation"
	KindDeletion Kind = "deletion"
	KindEdit     Kind = "edit"
)

type Action string

const (
	ActionApprove Action = "approve"
	ActionReject  Action = "reject"
)

// Collection returns the store collection holding requests of kind k.
func (k Kind) Collection() (string, error) {
	switch k {
	case KindCreation:
		return "unitCreationRequests", nil
	case KindDeletion:
		return "unitDeletionRequests", nil
	case KindEdit:
		return "unitEditRequests", nil
	}
	return "", fmt.Errorf("unknown request kind %q", string(k))
}

type Request struct {
	ID          string         `json:"id" firestore:"-"`
	Kind        Kind           `json:"kind" firestore:"-"`
	SocietyID   string         `json:"societyId" firestore:"societyId"`
	SocietyName string         `json:"societyName,omitempty" firestore:"-"`
	UnitID      string         `json:"unitId,omitempty" firestore:"unitId,omitempty"`
	UnitNo      string         `json:"unitNo,omitempty" firestore:"unitNo,omitempty"`
	Changes     map[string]any `json:"changes,omitempty" firestore:"changes,omitempty"`
	RequestedBy string         `json:"requestedBy,omitempty" firestore:"requestedBy,omitempty"`
	Status      Status         `json:"status" firestore:"status"`
	CreatedAt   *time.Time     `json:"createdAt,omitempty" firestore:"createdAt,omitempty"`
	DecidedAt   *time.Time     `json:"decidedAt,omitempty" firestore:"decidedAt,omitempty"`
	DecidedBy   string         `json:"decidedBy,omitempty" firestore:"decidedBy,omitempty"`
}

type DecisionRequest struct {
	Action Action `json:"action"`
}
