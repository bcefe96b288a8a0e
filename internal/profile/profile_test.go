package profile

import (
	"context"
	"os"
	"path/filepath"
	"strings"
	"testing"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/keywords"
)

const sampleProfile = `
preferences:
  job_titles: [Backend Engineer, Go Developer]
  locations: [Berlin]
  job_types: [remote, hybrid]
  salary_min: 60000
  salary_max: 90000
  red_flags: [unpaid]
weights:
  keyword_match: 0.4
  salary_match: 0.3
  location_match: 0.2
  job_type_match: 0.1
resume:
  path: resume.txt
  skills: [kubernetes]
`

func TestLoad(t *testing.T) {
	dir := t.TempDir()
	require.NoError(t, os.WriteFile(filepath.Join(dir, "profile.yaml"), []byte(sampleProfile), 0o644))
	require.NoError(t, os.WriteFile(filepath.Join(dir, "resume.txt"), []byte("Go developer with PostgreSQL"), 0o644))

	p, err := Load(filepath.Join(dir, "profile.yaml"))
	require.NoError(t, err)

	assert.Equal(t, []string{"Backend Engineer", "Go Developer"}, p.Preferences.JobTitles)
	assert.Equal(t, []string{"unpaid"}, p.Preferences.RedFlags)
	require.NotNil(t, p.Preferences.SalaryMax)
	assert.Equal(t, 90000.0, *p.Preferences.SalaryMax)
	assert.Equal(t, 0.4, p.Weights.KeywordMatch)

	text := p.ResumeText()
	assert.Contains(t, text, "PostgreSQL")
	assert.Contains(t, text, "kubernetes")

	set, err := p.ResumeKeywords(context.Background(), keywords.LexiconExtractor{})
	require.NoError(t, err)
	assert.True(t, set.TechnicalSkills["postgresql"])
	assert.True(t, set.TechnicalSkills["kubernetes"])
}

func TestDecodeWithoutResume(t *testing.T) {
	p, err := Decode(strings.NewReader("preferences:\n  locations: [Remote]\n"))
	require.NoError(t, err)
	assert.True(t, p.Weights.IsZero())
	assert.Empty(t, p.ResumeText())

	set, err := p.ResumeKeywords(context.Background(), keywords.LexiconExtractor{})
	require.NoError(t, err)
	assert.Nil(t, set)
}

func TestDecodeEmptyDocument(t *testing.T) {
	p, err := Decode(strings.NewReader(""))
	require.NoError(t, err)
	assert.Empty(t, p.Preferences.JobTitles)
}

func TestDecodeRejectsBadInput(t *testing.T) {
	tests := map[string]string{
		"unknown key":     "preferences:\n  favourite_colour: blue\n",
		"inverted salary": "preferences:\n  salary_min: 90000\n  salary_max: 10000\n",
		"negative salary": "preferences:\n  salary_min: -1\n",
	}
	for name, doc := range tests {
		t.Run(name, func(t *testing.T) {
			_, err := Decode(strings.NewReader(doc))
			require.Error(t, err)
			assert.True(t, apperr.IsKind(err, apperr.KindConfig))
		})
	}
}

func TestLoadMissingResume(t *testing.T) {
	dir := t.TempDir()
	path := filepath.Join(dir, "profile.yaml")
	require.NoError(t, os.WriteFile(path, []byte("resume:\n  path: nope.txt\n"), 0o644))

	_, err := Load(path)
	assert.ErrorIs(t, err, os.ErrNotExist)
}
