package kanban

import (
	"context"
	"math"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jsonfile"
)

// Statistics summarizes every tracked job.
type Statistics struct {
	TotalJobs          int            `json:"total_jobs"`
	StatusDistribution map[Status]int `json:"status_distribution"`
	AvgTransitions     float64        `json:"average_transitions_per_job"`
	AvgDaysInStatus    float64        `json:"average_days_in_current_status"`
	// AvgDaysPerStatus averages, over the jobs that were ever in a status,
	// the days they spent there.
	AvgDaysPerStatus map[Status]float64 `json:"average_days_per_status"`
}

// Statistics computes population-wide status statistics.
func (t *Tracker) Statistics() Statistics {
	t.mu.Lock()
	defer t.mu.Unlock()

	now := t.now().UTC()
	st := Statistics{
		TotalJobs:          len(t.histories),
		StatusDistribution: make(map[Status]int, len(Statuses)),
		AvgDaysPerStatus:   make(map[Status]float64, len(Statuses)),
	}
	for _, s := range Statuses {
		st.StatusDistribution[s] = 0
	}
	if st.TotalJobs == 0 {
		return st
	}

	var transitions, days int
	durations := make(map[Status]time.Duration)
	visits := make(map[Status]int)
	for _, h := range t.histories {
		st.StatusDistribution[h.CurrentStatus]++
		transitions += len(h.Transitions)
		days += h.DaysInCurrentStatus(now)
		for _, s := range Statuses {
			if h.visited(s) {
				visits[s]++
				durations[s] += h.DurationIn(s, now)
			}
		}
	}

	n := float64(st.TotalJobs)
	st.AvgTransitions = round2(float64(transitions) / n)
	st.AvgDaysInStatus = round2(float64(days) / n)
	for s, count := range visits {
		st.AvgDaysPerStatus[s] = round2(durations[s].Hours() / 24 / float64(count))
	}
	return st
}

// ExportReport writes every history to path in the status_history.json
// document shape.
func (t *Tracker) ExportReport(ctx context.Context, path string) error {
	t.mu.Lock()
	doc := t.snapshot()
	// The write happens unlocked, so it must not share histories with the tracker.
	for i, h := range doc.Histories {
		doc.Histories[i] = h.Clone()
	}
	t.mu.Unlock()

	if err := jsonfile.New(path, t.fileOpts).Write(ctx, doc); err != nil {
		return err
	}
	t.log.Info("status report exported", "path", path, "histories", len(doc.Histories))
	return nil
}

// ImportReport merges the histories in path into the tracker, replacing
// histories with the same job id. It returns the number imported. A report
// containing an invalid history is rejected as a whole.
func (t *Tracker) ImportReport(ctx context.Context, path string) (int, error) {
	var doc historyDocument
	found, err := jsonfile.New(path, t.fileOpts).Read(ctx, &doc)
	if err != nil {
		return 0, err
	}
	if !found {
		return 0, apperr.NotFoundf("report %s does not exist", path)
	}

	incoming := make([]*StatusHistory, 0, len(doc.Histories))
	for _, h := range doc.Histories {
		if h == nil {
			continue
		}
		if h.Transitions == nil {
			h.Transitions = []Transition{}
		}
		if err := h.validate(); err != nil {
			return 0, err
		}
		incoming = append(incoming, h)
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	// prev holds the replaced history per id, nil when the id was new.
	prev := make(map[string]*StatusHistory, len(incoming))
	for _, h := range incoming {
		if _, seen := prev[h.JobID]; !seen {
			prev[h.JobID] = t.histories[h.JobID]
		}
		t.histories[h.JobID] = h
	}

	if err := t.persist(ctx); err != nil {
		for id, old := range prev {
			if old != nil {
				t.histories[id] = old
			} else {
				delete(t.histories, id)
			}
		}
		return 0, err
	}

	t.log.Info("status report imported", "path", path, "histories", len(incoming))
	return len(incoming), nil
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
