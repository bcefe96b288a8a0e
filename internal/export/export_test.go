package export

import (
	"bytes"
	"context"
	"encoding/csv"
	"errors"
	"os"
	"path/filepath"
	"strings"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/db"
	"jobmate/jobtracker/internal/kanban"
	"jobmate/jobtracker/internal/model"
)

var scrapedAt = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

type fakeStatuses map[string]kanban.Status

func (f fakeStatuses) CurrentStatus(jobID string) (kanban.Status, error) {
	if jobID == "boom" {
		return kanban.StatusNone, errors.New("disk on fire")
	}
	st, ok := f[jobID]
	if !ok {
		return kanban.StatusNone, apperr.NotFoundf("no history for %s", jobID)
	}
	return st, nil
}

func scoredJob(id string, overall float64, h model.Highlight) model.Job {
	at := scrapedAt.Add(time.Hour)
	return model.Job{
		ID: id, Title: "Go Engineer", Company: "Acme", Location: "Berlin", Link: "https://x/" + id,
		ScrapedAt: scrapedAt,
		Score: &model.Score{
			OverallScore: overall,
			Highlight:    h,
			ComponentScores: map[string]float64{
				model.ComponentKeyword: 90, model.ComponentSalary: 80,
				model.ComponentLocation: 100, model.ComponentJobType: 50,
			},
			WeightsUsed: model.DefaultWeights(),
		},
		ScoredAt: &at,
	}
}

func TestDisplayTier(t *testing.T) {
	tests := []struct {
		score *model.Score
		want  Tier
	}{
		{nil, TierNone},
		{&model.Score{OverallScore: 85, Highlight: model.HighlightWhite}, TierGreen},
		{&model.Score{OverallScore: 84.99, Highlight: model.HighlightWhite}, TierWhite},
		{&model.Score{OverallScore: 55, Highlight: model.HighlightYellow}, TierYellow},
		{&model.Score{OverallScore: 10, Highlight: model.HighlightRed}, TierRed},
	}
	for _, tc := range tests {
		assert.Equal(t, tc.want, DisplayTier(tc.score))
	}
}

func TestBuild(t *testing.T) {
	unscored := model.Job{ID: "b", Title: "SRE", Company: "Beta", Location: "Lyon", Link: "https://x/b", ScrapedAt: scrapedAt}
	jobs := []model.Job{scoredJob("a", 91.5, model.HighlightWhite), unscored}

	records, err := Build(jobs, fakeStatuses{"a": kanban.StatusInterview})
	require.NoError(t, err)
	require.Len(t, records, 2)

	a := records[0]
	assert.True(t, a.Scored)
	assert.Equal(t, 91.5, a.OverallScore)
	assert.Equal(t, TierGreen, a.Tier)
	assert.Equal(t, model.HighlightWhite, a.Highlight)
	assert.Equal(t, kanban.StatusInterview, a.Status)
	assert.Equal(t, 90.0, a.Components[model.ComponentKeyword])

	b := records[1]
	assert.False(t, b.Scored)
	assert.Equal(t, TierNone, b.Tier)
	assert.Equal(t, kanban.StatusNone, b.Status)

	// Records do not alias the job's score.
	a.Components[model.ComponentKeyword] = 0
	assert.Equal(t, 90.0, jobs[0].Score.ComponentScores[model.ComponentKeyword])

	_, err = Build([]model.Job{{ID: "boom"}}, fakeStatuses{})
	assert.Error(t, err)

	records, err = Build(jobs, nil)
	require.NoError(t, err)
	assert.Len(t, records, 2)
}

func TestWriteCSV(t *testing.T) {
	unscored := model.Job{ID: "b", Title: "SRE, Platform", Company: "Beta", Location: "Lyon", Link: "https://x/b", ScrapedAt: scrapedAt}
	records, err := Build([]model.Job{scoredJob("a", 72.333, model.HighlightWhite), unscored}, fakeStatuses{"b": kanban.StatusApplied})
	require.NoError(t, err)

	var buf bytes.Buffer
	require.NoError(t, WriteCSV(&buf, records))

	rows, err := csv.NewReader(&buf).ReadAll()
	require.NoError(t, err)
	require.Len(t, rows, 3)
	assert.Equal(t, csvHeader, rows[0])

	a := rows[1]
	assert.Equal(t, "a", a[0])
	assert.Equal(t, "2024-03-01T12:00:00Z", a[7])
	assert.Equal(t, "72.33", a[8])
	assert.Equal(t, "white", a[10])
	assert.Equal(t, "90.00", a[11])
	assert.Equal(t, "2024-03-01T13:00:00Z", a[15])
	assert.Equal(t, "", a[16])

	b := rows[2]
	assert.Equal(t, "SRE, Platform", b[1])
	assert.Equal(t, "", b[8])
	assert.Equal(t, "Applied", b[16])
}

func TestCSVSink(t *testing.T) {
	path := filepath.Join(t.TempDir(), "out", "matches.csv")
	sink := CSVSink{Path: path}

	records, err := Build([]model.Job{scoredJob("a", 50, model.HighlightYellow)}, nil)
	require.NoError(t, err)
	require.NoError(t, sink.Write(context.Background(), records))

	data, err := os.ReadFile(path)
	require.NoError(t, err)
	assert.True(t, strings.HasPrefix(string(data), "job_id,title"))

	entries, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	assert.Len(t, entries, 1, "temporary file left behind")
}

func TestPostgresSink(t *testing.T) {
	url := os.Getenv("DATABASE_URL")
	if url == "" || testing.Short() {
		t.Skip("DATABASE_URL not set")
	}
	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()

	pool, err := db.NewPostgresPool(ctx, url)
	require.NoError(t, err)
	defer pool.Close()

	sink := NewPostgresSink(pool)
	require.NoError(t, sink.EnsureSchema(ctx))
	_, err = pool.Exec(ctx, `DELETE FROM job_matches WHERE job_id LIKE 'export-test-%'`)
	require.NoError(t, err)

	before, err := sink.Count(ctx)
	require.NoError(t, err)

	unscored := model.Job{ID: "export-test-b", Title: "SRE", Company: "Beta", Location: "Lyon", Link: "https://x/b", ScrapedAt: scrapedAt}
	records, err := Build([]model.Job{scoredJob("export-test-a", 88, model.HighlightWhite), unscored}, nil)
	require.NoError(t, err)

	require.NoError(t, sink.Write(ctx, records))
	require.NoError(t, sink.Write(ctx, records))

	after, err := sink.Count(ctx)
	require.NoError(t, err)
	assert.Equal(t, before+2, after)

	var tier string
	require.NoError(t, pool.QueryRow(ctx, `SELECT tier FROM job_matches WHERE job_id = 'export-test-a'`).Scan(&tier))
	assert.Equal(t, "green", tier)
}
