// Package export merges jobs, their scores and their application status into
// flat records and writes them to external sinks.
package export

import (
	"context"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/kanban"
	"jobmate/jobtracker/internal/model"
)

// Tier is the display classification of a record. It extends the three score
// highlights with green for the best matches.
type Tier string

const (
	TierGreen  Tier = "green"
	TierWhite  Tier = Tier(model.HighlightWhite)
	TierYellow Tier = Tier(model.HighlightYellow)
	TierRed    Tier = Tier(model.HighlightRed)
	// TierNone marks a job that has not been scored yet.
	TierNone Tier = ""
)

// GreenFrom is the lowest overall score displayed as green.
const GreenFrom = 85.0

// DisplayTier overlays the green tier on top of the score's highlight.
func DisplayTier(s *model.Score) Tier {
	if s == nil {
		return TierNone
	}
	if s.OverallScore >= GreenFrom {
		return TierGreen
	}
	return Tier(s.Highlight)
}

// Record is one exported row.
type Record struct {
	JobID        string             `json:"job_id"`
	Title        string             `json:"title"`
	Company      string             `json:"company"`
	Location     string             `json:"location"`
	JobType      string             `json:"job_type,omitempty"`
	Link         string             `json:"link"`
	Source       string             `json:"source,omitempty"`
	ScrapedAt    time.Time          `json:"scraped_at"`
	Scored       bool               `json:"scored"`
	OverallScore float64            `json:"overall_score"`
	Highlight    model.Highlight    `json:"highlight,omitempty"`
	Tier         Tier               `json:"tier,omitempty"`
	Components   map[string]float64 `json:"component_scores,omitempty"`
	ScoredAt     *time.Time         `json:"scored_at,omitempty"`
	Status       kanban.Status      `json:"status,omitempty"`
}

// StatusLookup resolves the current application status of a job.
type StatusLookup interface {
	CurrentStatus(jobID string) (kanban.Status, error)
}

// Sink receives a full export.
type Sink interface {
	Name() string
	Write(ctx context.Context, records []Record) error
}

// Build merges each job with its score and status. A nil lookup, or a job
// without a status history, leaves Status empty.
func Build(jobs []model.Job, statuses StatusLookup) ([]Record, error) {
	out := make([]Record, 0, len(jobs))
	for _, j := range jobs {
		r := Record{
			JobID:     j.ID,
			Title:     j.Title,
			Company:   j.Company,
			Location:  j.Location,
			JobType:   j.JobType,
			Link:      j.Link,
			Source:    j.Source,
			ScrapedAt: j.ScrapedAt,
			Tier:      DisplayTier(j.Score),
		}
		if j.Score != nil {
			s := j.Score.Clone()
			r.Scored = true
			r.OverallScore = s.OverallScore
			r.Highlight = s.Highlight
			r.Components = s.ComponentScores
		}
		if j.ScoredAt != nil {
			t := *j.ScoredAt
			r.ScoredAt = &t
		}
		if statuses != nil {
			st, err := statuses.CurrentStatus(j.ID)
			switch {
			case err == nil:
				r.Status = st
			case apperr.IsKind(err, apperr.KindNotFound):
			default:
				return nil, err
			}
		}
		out = append(out, r)
	}
	return out, nil
}
