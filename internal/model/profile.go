package model

import "math"

// Weights combines component scores into the overall score.
type Weights struct {
	KeywordMatch  float64 `json:"keyword_match"  yaml:"keyword_match"`
	SalaryMatch   float64 `json:"salary_match"   yaml:"salary_match"`
	LocationMatch float64 `json:"location_match" yaml:"location_match"`
	JobTypeMatch  float64 `json:"job_type_match" yaml:"job_type_match"`
}

// DefaultWeights is the weight vector used when none is configured.
func DefaultWeights() Weights {
	return Weights{KeywordMatch: 0.50, SalaryMatch: 0.25, LocationMatch: 0.15, JobTypeMatch: 0.10}
}

// Sum returns the total of all four weights.
func (w Weights) Sum() float64 {
	return w.KeywordMatch + w.SalaryMatch + w.LocationMatch + w.JobTypeMatch
}

// IsZero reports whether no weight was set.
func (w Weights) IsZero() bool { return w == Weights{} }

// Of returns the weight for a component name.
func (w Weights) Of(component string) float64 {
	switch component {
	case ComponentKeyword:
		return w.KeywordMatch
	case ComponentSalary:
		return w.SalaryMatch
	case ComponentLocation:
		return w.LocationMatch
	case ComponentJobType:
		return w.JobTypeMatch
	}
	return 0
}

// Preferences describes what the job-seeker is looking for.
type Preferences struct {
	JobTitles []string `json:"job_titles" yaml:"job_titles"`
	Locations []string `json:"locations"  yaml:"locations"`
	// JobTypes holds any of "remote", "onsite", "hybrid" (synonyms accepted).
	JobTypes  []string `json:"job_types"  yaml:"job_types"`
	SalaryMin *float64 `json:"salary_min" yaml:"salary_min"`
	SalaryMax *float64 `json:"salary_max" yaml:"salary_max"`
	// RedFlags are terms that make the ingestion worker discard an offer.
	RedFlags []string `json:"red_flags" yaml:"red_flags"`
}

// SalaryRange returns the desired salary bounds. ok is false when neither
// bound is set; a missing maximum is reported as +Inf.
func (p Preferences) SalaryRange() (lo, hi float64, ok bool) {
	if p.SalaryMin == nil && p.SalaryMax == nil {
		return 0, 0, false
	}
	lo, hi = 0, math.Inf(1)
	if p.SalaryMin != nil {
		lo = *p.SalaryMin
	}
	if p.SalaryMax != nil {
		hi = *p.SalaryMax
	}
	if hi < lo {
		lo, hi = hi, lo
	}
	return lo, hi, true
}
