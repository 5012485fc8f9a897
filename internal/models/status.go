package models

import "fmt"

// Status is the lifecycle state shared by master orders and vendor orders.
// It is a closed enum: anything not produced by ParseStatus is rejected at
// the boundary, so the engine never carries an unknown status string.
type Status string

const (
	StatusPending    Status = "pending"
	StatusProcessing Status = "processing"
	StatusCompleted  Status = "completed"
	StatusCancelled  Status = "cancelled"
)

// ParseStatus validates a raw status string from a request or a row.
func ParseStatus(raw string) (Status, error) {
	switch Status(raw) {
	case StatusPending, StatusProcessing, StatusCompleted, StatusCancelled:
		return Status(raw), nil
	}
	return "", fmt.Errorf("%w: %q", ErrInvalidStatus, raw)
}

// CanTransitionTo reports whether a vendor order may move from s to next.
// The lifecycle is pending -> processing -> completed, and any state may
// be cancelled, including completed (a fulfilled line can still be voided).
// Cancelled is the one state that never moves again.
func (s Status) CanTransitionTo(next Status) bool {
	if next == StatusCancelled {
		return s != StatusCancelled
	}
	switch s {
	case StatusPending:
		return next == StatusProcessing
	case StatusProcessing:
		return next == StatusCompleted
	}
	return false
}

// AggregateStatus applies the unanimity rule: the master order takes a
// status only when every vendor order agrees on it. A mixed set (including
// a mix of completed and cancelled) promotes nothing and the master keeps
// its last fully-agreed status.
func AggregateStatus(statuses []Status) (Status, bool) {
	if len(statuses) == 0 {
		return "", false
	}
	first := statuses[0]
	for _, s := range statuses[1:] {
		if s != first {
			return "", false
		}
	}
	return first, true
}
