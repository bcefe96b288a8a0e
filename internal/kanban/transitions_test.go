package kanban_test

import (
	"testing"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/kanban"
)

// ── ParseStatus ────────────────────────────────────────────────────────────

func TestParseStatus_ValidValues(t *testing.T) {
	valid := []string{"Pending", "Applied", "Interview", "Offer", "Rejected"}
	for _, s := range valid {
		got, err := kanban.ParseStatus(s)
		if err != nil {
			t.Errorf("ParseStatus(%q) returned unexpected error: %v", s, err)
		}
		if string(got) != s {
			t.Errorf("ParseStatus(%q) = %q, want %q", s, got, s)
		}
	}
}

func TestParseStatus_InvalidValues(t *testing.T) {
	for _, s := range []string{"NotAStatus", "", "applied", "APPLIED", " Applied"} {
		_, err := kanban.ParseStatus(s)
		if err == nil {
			t.Errorf("ParseStatus(%q) expected error, got nil", s)
			continue
		}
		if !apperr.IsKind(err, apperr.KindValidation) {
			t.Errorf("ParseStatus(%q) error kind = %q, want validation", s, apperr.KindOf(err))
		}
	}
}

// ── IsTransitionAllowed — bootstrap ───────────────────────────────────────

func TestIsTransitionAllowed_BootstrapAlwaysAllowed(t *testing.T) {
	for _, to := range kanban.Statuses {
		if !kanban.IsTransitionAllowed(kanban.StatusNone, to) {
			t.Errorf("IsTransitionAllowed(none → %s) should be true", to)
		}
	}
}

// ── IsTransitionAllowed — table ───────────────────────────────────────────

func TestIsTransitionAllowed_Table(t *testing.T) {
	cases := []struct {
		from kanban.Status
		to   kanban.Status
	}{
		{kanban.StatusPending, kanban.StatusApplied},
		{kanban.StatusPending, kanban.StatusInterview},
		{kanban.StatusPending, kanban.StatusOffer},
		{kanban.StatusApplied, kanban.StatusInterview},
		{kanban.StatusApplied, kanban.StatusOffer},
		{kanban.StatusInterview, kanban.StatusOffer},
		{kanban.StatusOffer, kanban.StatusApplied},
		{kanban.StatusRejected, kanban.StatusApplied},
	}
	for _, c := range cases {
		if !kanban.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be true", c.from, c.to)
		}
	}
}

// ── IsTransitionAllowed — rejection is always allowed ─────────────────────

func TestIsTransitionAllowed_ToRejected(t *testing.T) {
	for _, from := range kanban.Statuses {
		if !kanban.IsTransitionAllowed(from, kanban.StatusRejected) {
			t.Errorf("IsTransitionAllowed(%s → Rejected) should be true", from)
		}
	}
}

// ── IsTransitionAllowed — Pending is never a forward target ───────────────

func TestIsTransitionAllowed_NeverBackToPending(t *testing.T) {
	for _, from := range kanban.Statuses {
		if kanban.IsTransitionAllowed(from, kanban.StatusPending) {
			t.Errorf("IsTransitionAllowed(%s → Pending) should be false", from)
		}
	}
}

// ── IsTransitionAllowed — invalid transitions ─────────────────────────────

func TestIsTransitionAllowed_Invalid(t *testing.T) {
	cases := []struct {
		from kanban.Status
		to   kanban.Status
	}{
		{kanban.StatusApplied, kanban.StatusApplied},
		{kanban.StatusInterview, kanban.StatusApplied},
		{kanban.StatusInterview, kanban.StatusInterview},
		{kanban.StatusOffer, kanban.StatusInterview},
		{kanban.StatusOffer, kanban.StatusOffer},
		{kanban.StatusRejected, kanban.StatusInterview},
		{kanban.StatusRejected, kanban.StatusOffer},
		{kanban.StatusPending, kanban.StatusNone},
	}
	for _, c := range cases {
		if kanban.IsTransitionAllowed(c.from, c.to) {
			t.Errorf("IsTransitionAllowed(%s → %s) should be false", c.from, c.to)
		}
	}
}

// ── AllowedFrom ────────────────────────────────────────────────────────────

func TestAllowedFrom(t *testing.T) {
	got := kanban.AllowedFrom(kanban.StatusApplied)
	want := []kanban.Status{kanban.StatusInterview, kanban.StatusOffer, kanban.StatusRejected}
	if len(got) != len(want) {
		t.Fatalf("AllowedFrom(Applied) = %v, want %v", got, want)
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("AllowedFrom(Applied)[%d] = %s, want %s", i, got[i], want[i])
		}
	}
}
