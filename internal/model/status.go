package model

import (
	"time"

	"github.com/google/uuid"
)

const (
	StatusSubmitted    = "submitted"
	StatusForwarded    = "forwarded"
	StatusAcknowledged = "acknowledged"
	StatusInProgress   = "in_progress"
	StatusResolved     = "resolved"
	StatusReopened     = "reopened"
	StatusRejected     = "rejected"
	StatusClosed       = "closed"
)

var statusTransitions = map[string][]string{
	StatusSubmitted:    {StatusForwarded, StatusRejected},
	StatusForwarded:    {StatusAcknowledged, StatusRejected},
	StatusAcknowledged: {StatusInProgress, StatusRejected},
	StatusInProgress:   {StatusResolved},
	StatusResolved:     {StatusClosed, StatusReopened},
	StatusReopened:     {StatusInProgress},
}

// Statuses lists every complaint status in lifecycle order.
var Statuses = []string{
	StatusSubmitted, StatusForwarded, StatusAcknowledged, StatusInProgress,
	StatusResolved, StatusReopened, StatusRejected, StatusClosed,
}

func IsStatus(s string) bool {
	for _, st := range Statuses {
		if st == s {
			return true
		}
	}
	return false
}

// CanTransition reports whether a complaint may move from one status to another.
func CanTransition(from, to string) bool {
	for _, next := range statusTransitions[from] {
		if next == to {
			return true
		}
	}
	return false
}

type StatusHistory struct {
	ID          uuid.UUID  `json:"id"`
	ComplaintID uuid.UUID  `json:"-"`
	FromStatus  *string    `json:"from_status,omitempty"`
	ToStatus    string     `json:"to_status"`
	Note        *string    `json:"note,omitempty"`
	ChangedBy   *uuid.UUID `json:"-"`
	ChangedAt   time.Time  `json:"changed_at"`
}

// StatusEvent is pushed to live tracking subscribers.
type StatusEvent struct {
	TrackingID string    `json:"tracking_id"`
	FromStatus string    `json:"from_status"`
	ToStatus   string    `json:"to_status"`
	Note       string    `json:"note,omitempty"`
	ChangedAt  time.Time `json:"changed_at"`
}
