// Package kanban tracks the application status of every job and enforces the
// status state machine.
//
// Valid status graph:
//
//	Pending ──► Applied ──► Interview ──► Offer
//	   │           └──────────────────────► │
//	   └──────────────────────────────────► │
//	Offer ──► Applied                         (reapply after declining)
//	Rejected ──► Applied                      (reapply)
//	any status ──► Rejected
//
// A new history may start in any status. Pending is only ever the initial
// state; nothing transitions back into it.
package kanban

import (
	"fmt"

	"jobmate/jobtracker/internal/apperr"
)

// Status is an application status.
type Status string

const (
	// StatusNone is the "from" side of a history's bootstrap transition.
	StatusNone      Status = ""
	StatusPending   Status = "Pending"
	StatusApplied   Status = "Applied"
	StatusInterview Status = "Interview"
	StatusOffer     Status = "Offer"
	StatusRejected  Status = "Rejected"
)

// Statuses lists every status in pipeline order.
var Statuses = []Status{StatusPending, StatusApplied, StatusInterview, StatusOffer, StatusRejected}

// validTransitions lists every allowed (from → to) pair other than the
// universal rules for StatusNone and StatusRejected.
var validTransitions = map[Status][]Status{
	StatusPending:   {StatusApplied, StatusInterview, StatusOffer},
	StatusApplied:   {StatusInterview, StatusOffer},
	StatusInterview: {StatusOffer},
	StatusOffer:     {StatusApplied},
	StatusRejected:  {StatusApplied},
}

// ParseStatus converts a raw string to a Status. Matching is case-sensitive.
func ParseStatus(s string) (Status, error) {
	st := Status(s)
	switch st {
	case StatusPending, StatusApplied, StatusInterview, StatusOffer, StatusRejected:
		return st, nil
	}
	return StatusNone, apperr.ValidationField("status", fmt.Sprintf("unknown application status %q", s))
}

// IsTransitionAllowed returns true when moving from → to is permitted by the
// state machine.
func IsTransitionAllowed(from, to Status) bool {
	switch {
	case from == StatusNone:
		return to != StatusNone
	case to == StatusPending || to == StatusNone:
		return false
	case to == StatusRejected:
		return true
	}
	for _, s := range validTransitions[from] {
		if s == to {
			return true
		}
	}
	return false
}

// AllowedFrom returns the statuses reachable from s, in pipeline order.
func AllowedFrom(s Status) []Status {
	var out []Status
	for _, to := range Statuses {
		if IsTransitionAllowed(s, to) {
			out = append(out, to)
		}
	}
	return out
}
