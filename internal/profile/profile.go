// Package profile loads the job-seeker's preferences and resume from a YAML
// file.
package profile

import (
	"context"
	"errors"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strings"

	"gopkg.in/yaml.v3"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/model"
)

// Profile is the on-disk user profile.
//
//	preferences:
//	  job_titles: [Backend Engineer]
//	  locations: [Berlin, Remote]
//	  job_types: [remote, hybrid]
//	  salary_min: 60000
//	  salary_max: 90000
//	  red_flags: [unpaid]
//	weights:
//	  keyword_match: 0.5
//	  ...
//	resume:
//	  path: resume.txt
//	  skills: [go, postgresql]
type Profile struct {
	Preferences model.Preferences `yaml:"preferences"`
	// Weights overrides the scoring weights when set.
	Weights model.Weights `yaml:"weights"`
	Resume  Resume        `yaml:"resume"`
}

// Resume is the resume source. Text, the file at Path and Skills are
// concatenated.
type Resume struct {
	Text string `yaml:"text"`
	// Path is resolved relative to the profile file.
	Path   string   `yaml:"path"`
	Skills []string `yaml:"skills"`

	loaded string
}

// Load reads and validates the profile at path.
func Load(path string) (*Profile, error) {
	f, err := os.Open(path)
	if err != nil {
		return nil, fmt.Errorf("open profile %s: %w", path, err)
	}
	defer f.Close()

	p, err := Decode(f)
	if err != nil {
		return nil, fmt.Errorf("profile %s: %w", path, err)
	}

	if p.Resume.Path != "" {
		rp := p.Resume.Path
		if !filepath.IsAbs(rp) {
			rp = filepath.Join(filepath.Dir(path), rp)
		}
		data, err := os.ReadFile(rp)
		if err != nil {
			return nil, fmt.Errorf("read resume %s: %w", rp, err)
		}
		p.Resume.loaded = string(data)
	}
	return p, nil
}

// Decode parses a profile document. Unknown keys are rejected.
func Decode(r io.Reader) (*Profile, error) {
	var p Profile
	dec := yaml.NewDecoder(r)
	dec.KnownFields(true)
	if err := dec.Decode(&p); err != nil && !errors.Is(err, io.EOF) {
		return nil, apperr.Configf("parse profile: %v", err)
	}
	if err := p.validate(); err != nil {
		return nil, err
	}
	return &p, nil
}

func (p *Profile) validate() error {
	prefs := p.Preferences
	if prefs.SalaryMin != nil && *prefs.SalaryMin < 0 {
		return apperr.Configf("salary_min must be non-negative")
	}
	if prefs.SalaryMax != nil && *prefs.SalaryMax < 0 {
		return apperr.Configf("salary_max must be non-negative")
	}
	if prefs.SalaryMin != nil && prefs.SalaryMax != nil && *prefs.SalaryMin > *prefs.SalaryMax {
		return apperr.Configf("salary_min %.0f exceeds salary_max %.0f", *prefs.SalaryMin, *prefs.SalaryMax)
	}
	return nil
}

// ResumeText returns the full resume text, empty when no resume is configured.
func (p *Profile) ResumeText() string {
	parts := make([]string, 0, 3)
	for _, s := range []string{p.Resume.Text, p.Resume.loaded, strings.Join(p.Resume.Skills, ", ")} {
		if s = strings.TrimSpace(s); s != "" {
			parts = append(parts, s)
		}
	}
	return strings.Join(parts, "\n")
}

// ResumeKeywords extracts the resume keyword set. It returns nil when the
// profile has no resume, which makes the scorer fall back to title matching.
func (p *Profile) ResumeKeywords(ctx context.Context, ex keywords.Extractor) (*keywords.Set, error) {
	text := p.ResumeText()
	if text == "" {
		return nil, nil
	}
	set, err := ex.Extract(ctx, text)
	if err != nil {
		return nil, fmt.Errorf("extract resume keywords: %w", err)
	}
	return set, nil
}
