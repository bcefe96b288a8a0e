// Package model defines the records shared by the job store, the scoring
// engine, the scrapers and the exporters.
package model

import (
	"bytes"
	"encoding/json"
	"fmt"
	"maps"
	"time"
)

// Job is one scraped posting. ID is derived from its content by the store and
// is never reassigned; ScrapedAt is set at ingestion and never mutated.
type Job struct {
	ID          string     `json:"id"`
	Title       string     `json:"title"`
	Company     string     `json:"company"`
	Location    string     `json:"location"`
	JobType     string     `json:"job_type,omitempty"`
	Description string     `json:"description,omitempty"`
	Link        string     `json:"link"`
	Source      string     `json:"source,omitempty"`
	Salary      *Salary    `json:"salary,omitempty"`
	ScrapedAt   time.Time  `json:"scraped_at"`
	Score       *Score     `json:"score,omitempty"`
	ScoredAt    *time.Time `json:"scored_at,omitempty"`
}

// Clone returns a deep copy so callers cannot mutate store-owned records.
func (j Job) Clone() Job {
	out := j
	if j.Salary != nil {
		s := j.Salary.clone()
		out.Salary = &s
	}
	if j.Score != nil {
		s := j.Score.Clone()
		out.Score = &s
	}
	if j.ScoredAt != nil {
		t := *j.ScoredAt
		out.ScoredAt = &t
	}
	return out
}

// Field returns the value of a filterable string field by its JSON name.
func (j Job) Field(name string) (string, bool) {
	switch name {
	case "id":
		return j.ID, true
	case "title":
		return j.Title, true
	case "company":
		return j.Company, true
	case "location":
		return j.Location, true
	case "job_type":
		return j.JobType, true
	case "description":
		return j.Description, true
	case "link":
		return j.Link, true
	case "source":
		return j.Source, true
	case "highlight":
		if j.Score == nil {
			return "", true
		}
		return string(j.Score.Highlight), true
	}
	return "", false
}

// Salary is either the raw text a board published ("$50k-$70k") or a
// structured range. Both forms round-trip through JSON unchanged.
type Salary struct {
	Raw string
	Min *float64
	Max *float64
}

// TextSalary returns a raw salary.
func TextSalary(raw string) *Salary { return &Salary{Raw: raw} }

// RangeSalary returns a structured salary.
func RangeSalary(lo, hi float64) *Salary { return &Salary{Min: &lo, Max: &hi} }

// Structured reports whether the salary carries numeric bounds.
func (s Salary) Structured() bool { return s.Min != nil || s.Max != nil }

func (s Salary) clone() Salary {
	out := Salary{Raw: s.Raw}
	if s.Min != nil {
		v := *s.Min
		out.Min = &v
	}
	if s.Max != nil {
		v := *s.Max
		out.Max = &v
	}
	return out
}

type salaryRange struct {
	Min *float64 `json:"min,omitempty"`
	Max *float64 `json:"max,omitempty"`
}

// MarshalJSON writes a string for raw salaries and an object for ranges.
func (s Salary) MarshalJSON() ([]byte, error) {
	if s.Structured() {
		return json.Marshal(salaryRange{Min: s.Min, Max: s.Max})
	}
	return json.Marshal(s.Raw)
}

// UnmarshalJSON accepts a string, a number or a {min,max} object.
func (s *Salary) UnmarshalJSON(data []byte) error {
	data = bytes.TrimSpace(data)
	if len(data) == 0 || bytes.Equal(data, []byte("null")) {
		*s = Salary{}
		return nil
	}
	switch data[0] {
	case '"':
		var raw string
		if err := json.Unmarshal(data, &raw); err != nil {
			return err
		}
		*s = Salary{Raw: raw}
	case '{':
		var r salaryRange
		if err := json.Unmarshal(data, &r); err != nil {
			return err
		}
		*s = Salary{Min: r.Min, Max: r.Max}
	default:
		var n float64
		if err := json.Unmarshal(data, &n); err != nil {
			return fmt.Errorf("salary must be a string, number or {min,max}: %w", err)
		}
		*s = Salary{Min: &n, Max: &n}
	}
	return nil
}

// Highlight is the three-tier classification of an overall score.
type Highlight string

const (
	HighlightRed    Highlight = "red"
	HighlightYellow Highlight = "yellow"
	HighlightWhite  Highlight = "white"
)

// Valid reports whether h is one of the three core tiers.
func (h Highlight) Valid() bool {
	return h == HighlightRed || h == HighlightYellow || h == HighlightWhite
}

// Component score names.
const (
	ComponentKeyword  = "keyword_match"
	ComponentSalary   = "salary_match"
	ComponentLocation = "location_match"
	ComponentJobType  = "job_type_match"
)

// Components lists the component names in weight order.
var Components = []string{ComponentKeyword, ComponentSalary, ComponentLocation, ComponentJobType}

// Score is the result of matching a Job against a profile. It is always
// replaced as a whole.
type Score struct {
	OverallScore    float64            `json:"overall_score"`
	Highlight       Highlight          `json:"highlight"`
	ComponentScores map[string]float64 `json:"component_scores"`
	WeightsUsed     Weights            `json:"weights_used"`
}

// Clone returns a deep copy.
func (s Score) Clone() Score {
	out := s
	out.ComponentScores = maps.Clone(s.ComponentScores)
	return out
}
