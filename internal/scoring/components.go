package scoring

import (
	"context"
	"fmt"
	"math"
	"strings"
	"unicode"

	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/model"
)

const (
	technicalShare = 0.7
	overallShare   = 0.3

	titleMatchScore   = 80.0
	titleNoMatchScore = 40.0
)

func (e *Engine) keywordMatch(ctx context.Context, job *model.Job, prefs *model.Preferences, resume *keywords.Set) (float64, error) {
	if resume.Empty() {
		return titleMatch(job.Title, prefs.JobTitles), nil
	}

	jobSet, err := e.extractor.Extract(ctx, job.Title+" "+job.Description)
	if err != nil {
		return 0, fmt.Errorf("extract job keywords: %w", err)
	}
	jobAll := jobSet.Keywords()
	if len(jobAll) == 0 {
		return neutral, nil
	}

	resumeAll := resume.Keywords()
	overall := overlapPercent(jobAll, resumeAll)
	technical := overall
	if len(jobSet.TechnicalSkills) > 0 {
		technical = overlapPercent(jobSet.TechnicalSkills, resumeAll)
	}
	return technicalShare*technical + overallShare*overall, nil
}

// overlapPercent is the share of want found in have, in [0,100].
func overlapPercent(want, have map[string]bool) float64 {
	if len(want) == 0 {
		return 0
	}
	hit := 0
	for k := range want {
		if have[k] {
			hit++
		}
	}
	return 100 * float64(hit) / float64(len(want))
}

// titleMatch is the keyword score without a resume: 80 when the job title
// and a desired title contain one another, else 40.
func titleMatch(jobTitle string, desired []string) float64 {
	jt := strings.ToLower(strings.TrimSpace(jobTitle))
	if jt == "" {
		return titleNoMatchScore
	}
	for _, d := range desired {
		d = strings.ToLower(strings.TrimSpace(d))
		if d == "" {
			continue
		}
		if strings.Contains(jt, d) || strings.Contains(d, jt) {
			return titleMatchScore
		}
	}
	return titleNoMatchScore
}

const (
	salaryAboveRange = 70.0
	salaryOverlapMin = 70.0
	salaryOverlapMax = 30.0
)

func salaryMatch(job *model.Job, prefs *model.Preferences) float64 {
	jlo, jhi, ok := JobSalaryRange(job.Salary)
	if !ok {
		return neutral
	}
	ulo, uhi, ok := prefs.SalaryRange()
	if !ok {
		return 100
	}

	switch {
	case jlo > uhi:
		return salaryAboveRange
	case jhi < ulo:
		if ulo <= 0 {
			return 0
		}
		return math.Max(0, neutral*jhi/ulo)
	}

	span := uhi - ulo
	fraction := 1.0
	if span > 0 && !math.IsInf(span, 1) {
		overlap := math.Min(jhi, uhi) - math.Max(jlo, ulo)
		fraction = math.Max(0, math.Min(1, overlap/span))
	}
	return salaryOverlapMin + salaryOverlapMax*fraction
}

// JobSalaryRange returns the annual bounds a job offers.
func JobSalaryRange(s *model.Salary) (lo, hi float64, ok bool) {
	if s == nil {
		return 0, 0, false
	}
	if s.Structured() {
		switch {
		case s.Min != nil && s.Max != nil:
			lo, hi = *s.Min, *s.Max
		case s.Min != nil:
			lo, hi = *s.Min, *s.Min
		default:
			lo, hi = *s.Max, *s.Max
		}
		if hi < lo {
			lo, hi = hi, lo
		}
		return lo, hi, true
	}
	return ParseSalary(s.Raw)
}

var remoteKeywords = []string{"remote", "anywhere", "work from home", "wfh", "telecommute", "distributed"}

const (
	locationPartialBase  = 60.0
	locationPartialRange = 40.0
	locationNoMatch      = 30.0
)

func locationMatch(job *model.Job, prefs *model.Preferences) float64 {
	jl := strings.ToLower(strings.TrimSpace(job.Location))
	if jl == "" {
		return neutral
	}
	if len(prefs.Locations) == 0 {
		return 100
	}

	for _, l := range prefs.Locations {
		ul := strings.ToLower(strings.TrimSpace(l))
		if ul == "" {
			continue
		}
		if ul == jl || strings.Contains(jl, ul) || strings.Contains(ul, jl) {
			return 100
		}
	}
	if containsAny(jl, remoteKeywords) {
		return 100
	}

	jobTokens := make(map[string]bool)
	for _, t := range locationTokens(jl) {
		jobTokens[t] = true
	}
	best := 0.0
	for _, l := range prefs.Locations {
		userTokens := locationTokens(strings.ToLower(l))
		if len(userTokens) == 0 {
			continue
		}
		shared := 0
		for _, t := range userTokens {
			if jobTokens[t] {
				shared++
			}
		}
		if f := float64(shared) / float64(len(userTokens)); f > best {
			best = f
		}
	}
	if best > 0 {
		return locationPartialBase + locationPartialRange*best
	}
	return locationNoMatch
}

func locationTokens(s string) []string {
	seen := make(map[string]bool)
	var out []string
	for _, f := range strings.FieldsFunc(s, func(r rune) bool {
		return !unicode.IsLetter(r) && !unicode.IsDigit(r)
	}) {
		if len(f) < 2 || seen[f] {
			continue
		}
		seen[f] = true
		out = append(out, f)
	}
	return out
}

var jobTypeSynonyms = map[string][]string{
	"remote": {"remote", "work from home", "wfh", "telecommute", "anywhere", "distributed"},
	"onsite": {"onsite", "on-site", "on site", "in office", "in-office", "office"},
	"hybrid": {"hybrid", "flexible", "partially remote"},
}

const jobTypeNoMatch = 40.0

func jobTypeMatch(job *model.Job, prefs *model.Preferences) float64 {
	if len(prefs.JobTypes) == 0 {
		return 100
	}

	text := strings.ToLower(job.JobType)
	if strings.TrimSpace(text) == "" {
		text = strings.ToLower(job.Title + " " + job.Location + " " + job.Description)
	}

	for _, pref := range prefs.JobTypes {
		if containsAny(text, synonymsFor(pref)) {
			return 100
		}
	}
	return jobTypeNoMatch
}

// synonymsFor maps a preference such as "wfh" to its category's terms.
// Unknown preferences match literally.
func synonymsFor(pref string) []string {
	p := strings.ToLower(strings.TrimSpace(pref))
	if p == "" {
		return nil
	}
	if terms, ok := jobTypeSynonyms[p]; ok {
		return terms
	}
	for _, terms := range jobTypeSynonyms {
		for _, t := range terms {
			if t == p {
				return terms
			}
		}
	}
	return []string{p}
}

func containsAny(s string, terms []string) bool {
	for _, t := range terms {
		if t != "" && strings.Contains(s, t) {
			return true
		}
	}
	return false
}
