package kanban

import (
	"time"

	"jobmate/jobtracker/internal/apperr"
)

// Transition is one recorded status change. FromStatus is nil for the
// bootstrap transition of a history.
type Transition struct {
	FromStatus *Status   `json:"from_status"`
	ToStatus   Status    `json:"to_status"`
	Timestamp  time.Time `json:"timestamp"`
	Notes      string    `json:"notes,omitempty"`
	UserID     string    `json:"user_id,omitempty"`
}

// From returns the previous status, StatusNone for a bootstrap transition.
func (tr Transition) From() Status {
	if tr.FromStatus == nil {
		return StatusNone
	}
	return *tr.FromStatus
}

// StatusHistory is the append-only status log of one job. CurrentStatus
// always equals the last transition's ToStatus, or Pending when there are
// none.
type StatusHistory struct {
	JobID         string       `json:"job_id"`
	CurrentStatus Status       `json:"current_status"`
	CreatedAt     time.Time    `json:"created_at"`
	UpdatedAt     time.Time    `json:"updated_at"`
	Transitions   []Transition `json:"transitions"`
}

func newHistory(jobID string, now time.Time) *StatusHistory {
	return &StatusHistory{
		JobID:         jobID,
		CurrentStatus: StatusPending,
		CreatedAt:     now,
		UpdatedAt:     now,
		Transitions:   []Transition{},
	}
}

// Clone returns a deep copy.
func (h *StatusHistory) Clone() *StatusHistory {
	out := *h
	out.Transitions = make([]Transition, len(h.Transitions))
	for i, tr := range h.Transitions {
		if tr.FromStatus != nil {
			from := *tr.FromStatus
			tr.FromStatus = &from
		}
		out.Transitions[i] = tr
	}
	return &out
}

// record appends a transition from → to at ts. A StatusNone origin is
// stored as a null from_status.
func (h *StatusHistory) record(from, to Status, ts time.Time, notes, userID string) {
	tr := Transition{ToStatus: to, Timestamp: ts, Notes: notes, UserID: userID}
	if from != StatusNone {
		tr.FromStatus = &from
	}
	h.Transitions = append(h.Transitions, tr)
	h.CurrentStatus = to
	h.UpdatedAt = ts
}

// StatusAt replays the transitions up to and including at.
func (h *StatusHistory) StatusAt(at time.Time) Status {
	if at.Before(h.CreatedAt) {
		return StatusNone
	}
	status := StatusPending
	for _, tr := range h.Transitions {
		if tr.Timestamp.After(at) {
			break
		}
		status = tr.ToStatus
	}
	return status
}

// DurationIn sums the time spent in status up to now, counting the initial
// Pending interval and the still-open current interval.
func (h *StatusHistory) DurationIn(status Status, now time.Time) time.Duration {
	var total time.Duration
	start, cur := h.CreatedAt, StatusPending
	for _, tr := range h.Transitions {
		if cur == status && tr.Timestamp.After(start) {
			total += tr.Timestamp.Sub(start)
		}
		start, cur = tr.Timestamp, tr.ToStatus
	}
	if cur == status && now.After(start) {
		total += now.Sub(start)
	}
	return total
}

// visited reports whether the history was ever in status.
func (h *StatusHistory) visited(status Status) bool {
	if status == StatusPending && (len(h.Transitions) == 0 || h.Transitions[0].From() == StatusPending) {
		return true
	}
	for _, tr := range h.Transitions {
		if tr.ToStatus == status {
			return true
		}
	}
	return false
}

// DaysInCurrentStatus is the number of whole days since the last
// transition, or since creation when there are none.
func (h *StatusHistory) DaysInCurrentStatus(now time.Time) int {
	since := h.CreatedAt
	if n := len(h.Transitions); n > 0 {
		since = h.Transitions[n-1].Timestamp
	}
	if !now.After(since) {
		return 0
	}
	return int(now.Sub(since).Hours() / 24)
}

// validate checks a history read from an external report.
func (h *StatusHistory) validate() error {
	if h.JobID == "" {
		return apperr.ValidationField("job_id", "history without job_id")
	}
	if _, err := ParseStatus(string(h.CurrentStatus)); err != nil {
		return err
	}
	want := StatusPending
	for _, tr := range h.Transitions {
		if _, err := ParseStatus(string(tr.ToStatus)); err != nil {
			return err
		}
		want = tr.ToStatus
	}
	if h.CurrentStatus != want {
		return apperr.Validationf("history %s: current_status %s does not match last transition %s",
			h.JobID, h.CurrentStatus, want)
	}
	return nil
}
