package kanban_test

// ── Additional edge-case tests ────────────────────────────────────────────
//
// The core state-machine matrix is covered in transitions_test.go.

import (
	"testing"

	"jobmate/jobtracker/internal/kanban"
)

// Every constant in Statuses must round-trip through ParseStatus.
func TestParseStatus_AllConstantsRoundTrip(t *testing.T) {
	for _, s := range kanban.Statuses {
		got, err := kanban.ParseStatus(string(s))
		if err != nil {
			t.Errorf("ParseStatus(%q) unexpected error: %v", s, err)
		}
		if got != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

// Statuses of another pipeline must not parse.
func TestParseStatus_ForeignStatuses(t *testing.T) {
	for _, s := range []string{"TO_APPLY", "HIRED", "Hired", "Archived"} {
		if _, err := kanban.ParseStatus(s); err == nil {
			t.Errorf("ParseStatus(%q) should fail", s)
		}
	}
}

// Rejected is not terminal: only Applied (re-application) and Rejected lead
// out of it.
func TestIsTransitionAllowed_RejectedOutgoing(t *testing.T) {
	want := map[kanban.Status]bool{kanban.StatusApplied: true, kanban.StatusRejected: true}
	for _, to := range kanban.Statuses {
		got := kanban.IsTransitionAllowed(kanban.StatusRejected, to)
		if got != want[to] {
			t.Errorf("IsTransitionAllowed(Rejected → %s) = %v, want %v", to, got, want[to])
		}
	}
}

// No status may move back to none.
func TestIsTransitionAllowed_NoneIsNeverATarget(t *testing.T) {
	for _, from := range append([]kanban.Status{kanban.StatusNone}, kanban.Statuses...) {
		if kanban.IsTransitionAllowed(from, kanban.StatusNone) {
			t.Errorf("IsTransitionAllowed(%q → none) must be false", from)
		}
	}
}

// An unknown source status only allows rejection.
func TestIsTransitionAllowed_UnknownSource(t *testing.T) {
	unknown := kanban.Status("Archived")
	for _, to := range kanban.Statuses {
		want := to == kanban.StatusRejected
		if got := kanban.IsTransitionAllowed(unknown, to); got != want {
			t.Errorf("IsTransitionAllowed(Archived → %s) = %v, want %v", to, got, want)
		}
	}
}
