package jobstore

import (
	"context"
	"crypto/md5"
	"encoding/hex"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jsonfile"
	"jobmate/jobtracker/internal/model"
)

var fixedNow = time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)

func openStore(t *testing.T, dir string) *Store {
	t.Helper()
	s, err := Open(context.Background(), Options{
		Dir:              dir,
		File:             jsonfile.Options{MaxRetries: 1, Timeout: time.Second},
		ErrorLogCapacity: 3,
		Now:              func() time.Time { return fixedNow },
	})
	require.NoError(t, err)
	return s
}

func sampleJob(n int) model.Job {
	return model.Job{
		Title:    fmt.Sprintf("Backend Engineer %d", n),
		Company:  "Acme",
		Location: "Berlin",
		Link:     fmt.Sprintf("https://jobs.example.com/%d", n),
	}
}

func TestHashJob(t *testing.T) {
	j := sampleJob(1)
	assert.Equal(t, HashJob(j), HashJob(j))
	assert.Len(t, HashJob(j), 32)

	sum := md5.Sum([]byte(j.Link))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashJob(j))

	noLink := model.Job{Title: "a", Company: "b", Location: "c"}
	sum = md5.Sum([]byte("a|b|c"))
	assert.Equal(t, hex.EncodeToString(sum[:]), HashJob(noLink))
	assert.NotEqual(t, HashJob(noLink), HashJob(model.Job{Title: "a", Company: "b", Location: "d"}))

	upper := j
	upper.Link = "HTTPS://JOBS.EXAMPLE.COM/1"
	assert.NotEqual(t, HashJob(j), HashJob(upper), "links are not normalized")
}

func TestValidate(t *testing.T) {
	require.NoError(t, Validate(sampleJob(1)))

	j := sampleJob(1)
	j.Company = "   "
	err := Validate(j)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindValidation))

	var ae *apperr.Error
	require.True(t, errors.As(err, &ae))
	assert.Equal(t, "company", ae.Field)
}

func TestSaveSkipsDuplicateAcrossCalls(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	res, err := s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Added: 1, Total: 1}, res)

	res, err = s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Skipped: 1, Total: 1}, res)

	all := s.GetAll(ctx, nil)
	require.Len(t, all, 1)
	assert.Equal(t, HashJob(sampleJob(1)), all[0].ID)
	assert.Equal(t, "indeed", all[0].Source)
	assert.Equal(t, fixedNow, all[0].ScrapedAt)
}

func TestSaveCountsInvalidAndBatchDuplicates(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	missingLink := sampleJob(2)
	missingLink.Link = ""

	res, err := s.Save(ctx, []model.Job{sampleJob(1), sampleJob(1), missingLink, sampleJob(3)}, "linkedin", true)
	require.NoError(t, err)
	assert.Equal(t, SaveResult{Added: 2, Skipped: 1, Invalid: 1, Total: 4}, res)
	assert.Equal(t, 2, s.Count(ctx))
}

func TestSaveWithoutSkipReplacesRecord(t *testing.T) {
	ctx := context.Background()
	now := fixedNow
	s, err := Open(ctx, Options{
		Dir:  t.TempDir(),
		File: jsonfile.Options{MaxRetries: 1, Timeout: time.Second},
		Now:  func() time.Time { return now },
	})
	require.NoError(t, err)

	_, err = s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.NoError(t, err)
	id := HashJob(sampleJob(1))
	require.NoError(t, s.UpdateScore(ctx, id, model.Score{OverallScore: 90, Highlight: model.HighlightWhite, ComponentScores: map[string]float64{}}))

	now = fixedNow.Add(48 * time.Hour)
	updated := sampleJob(1)
	updated.Description = "now with details"
	res, err := s.Save(ctx, []model.Job{updated}, "indeed", false)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)

	all := s.GetAll(ctx, nil)
	require.Len(t, all, 1)
	assert.Equal(t, "now with details", all[0].Description)
	assert.True(t, fixedNow.Equal(all[0].ScrapedAt), "scraped_at kept from first ingestion")
	assert.Nil(t, all[0].Score)
}

func TestConcurrentSavesKeepEveryJob(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	const workers, perWorker = 8, 10
	var wg sync.WaitGroup
	for w := 0; w < workers; w++ {
		wg.Add(1)
		go func(w int) {
			defer wg.Done()
			batch := make([]model.Job, 0, perWorker)
			for i := 0; i < perWorker; i++ {
				batch = append(batch, sampleJob(w*perWorker+i))
			}
			res, err := s.Save(ctx, batch, "indeed", true)
			assert.NoError(t, err)
			assert.Equal(t, perWorker, res.Added)
		}(w)
	}
	wg.Wait()
	assert.Equal(t, workers*perWorker, s.Count(ctx))

	scores := map[string]model.Score{}
	for _, j := range s.GetAll(ctx, nil) {
		scores[j.ID] = model.Score{OverallScore: 50, Highlight: model.HighlightYellow, ComponentScores: map[string]float64{}}
	}
	wg.Add(2)
	for i := 0; i < 2; i++ {
		go func() {
			defer wg.Done()
			res, err := s.UpdateScores(ctx, scores)
			assert.NoError(t, err)
			assert.Equal(t, workers*perWorker, res.Updated)
		}()
	}
	wg.Wait()
	assert.Len(t, s.GetByHighlight(ctx, model.HighlightYellow), workers*perWorker)
}

func TestGetAllFilters(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	_, err := s.Save(ctx, []model.Job{sampleJob(1), sampleJob(2)}, "indeed", true)
	require.NoError(t, err)
	_, err = s.Save(ctx, []model.Job{sampleJob(3)}, "linkedin", true)
	require.NoError(t, err)

	assert.Len(t, s.GetAll(ctx, map[string]string{"source": "indeed"}), 2)
	assert.Len(t, s.GetAll(ctx, map[string]string{"source": "linkedin", "company": "Acme"}), 1)
	assert.Empty(t, s.GetAll(ctx, map[string]string{"source": "glassdoor"}))
	assert.Empty(t, s.GetAll(ctx, map[string]string{"no_such_field": "x"}))
}

func TestDocumentShape(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)

	_, err := s.Save(ctx, []model.Job{sampleJob(1), sampleJob(2)}, "indeed", true)
	require.NoError(t, err)

	raw, err := os.ReadFile(filepath.Join(dir, jobsFileName))
	require.NoError(t, err)
	var doc struct {
		Jobs  []map[string]any `json:"jobs"`
		Count int              `json:"count"`
	}
	require.NoError(t, json.Unmarshal(raw, &doc))
	assert.Equal(t, 2, doc.Count)
	assert.Len(t, doc.Jobs, 2)

	reopened := openStore(t, dir)
	assert.Equal(t, 2, reopened.Count(ctx))
}

func TestCorruptDocument(t *testing.T) {
	ctx := context.Background()
	dir := t.TempDir()
	s := openStore(t, dir)
	require.NoError(t, os.WriteFile(filepath.Join(dir, jobsFileName), []byte("{not json"), 0o644))

	assert.Empty(t, s.GetAll(ctx, nil))

	_, err := s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindPersistence))

	entries := s.Errors(ctx)
	require.Len(t, entries, 1)
	assert.Equal(t, "save", entries[0].Operation)

	require.NoError(t, s.ClearAll(ctx))
	res, err := s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.NoError(t, err)
	assert.Equal(t, 1, res.Added)
}

func TestGetByIDAndDelete(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	_, err := s.Save(ctx, []model.Job{sampleJob(1), sampleJob(2)}, "indeed", true)
	require.NoError(t, err)

	id := HashJob(sampleJob(1))
	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, sampleJob(1).Title, got.Title)

	ok, err := s.Exists(ctx, id)
	require.NoError(t, err)
	assert.True(t, ok)

	require.NoError(t, s.Delete(ctx, id))
	_, err = s.GetByID(ctx, id)
	assert.True(t, errors.Is(err, apperr.ErrNotFound))

	ok, err = s.Exists(ctx, id)
	require.NoError(t, err)
	assert.False(t, ok)

	assert.True(t, apperr.IsKind(s.Delete(ctx, id), apperr.KindNotFound))

	require.NoError(t, s.ClearAll(ctx))
	assert.Zero(t, s.Count(ctx))
}

func score(v float64, h model.Highlight) model.Score {
	return model.Score{
		OverallScore:    v,
		Highlight:       h,
		ComponentScores: map[string]float64{model.ComponentKeyword: v},
		WeightsUsed:     model.DefaultWeights(),
	}
}

func TestUpdateScoresAndQueries(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	_, err := s.Save(ctx, []model.Job{sampleJob(1), sampleJob(2), sampleJob(3)}, "indeed", true)
	require.NoError(t, err)

	id1, id2 := HashJob(sampleJob(1)), HashJob(sampleJob(2))
	res, err := s.UpdateScores(ctx, map[string]model.Score{
		id1:       score(82, model.HighlightWhite),
		id2:       score(40, model.HighlightYellow),
		"missing": score(10, model.HighlightRed),
	})
	require.NoError(t, err)
	assert.Equal(t, 2, res.Updated)
	assert.Equal(t, 1, res.NotFound)
	assert.Equal(t, []string{"missing"}, res.NotFoundIDs)

	whites := s.GetByHighlight(ctx, model.HighlightWhite)
	require.Len(t, whites, 1)
	assert.Equal(t, id1, whites[0].ID)
	require.NotNil(t, whites[0].ScoredAt)
	assert.Equal(t, fixedNow, *whites[0].ScoredAt)

	assert.Len(t, s.GetAll(ctx, map[string]string{"highlight": "yellow"}), 1)

	lo, hi := 40.0, 82.0
	assert.Len(t, s.GetByScoreRange(ctx, &lo, &hi), 2, "bounds are inclusive")
	assert.Len(t, s.GetByScoreRange(ctx, nil, nil), 2, "unscored jobs are excluded")
	above := 50.0
	assert.Len(t, s.GetByScoreRange(ctx, &above, nil), 1)

	err = s.UpdateScore(ctx, "missing", score(1, model.HighlightRed))
	assert.True(t, apperr.IsKind(err, apperr.KindNotFound))

	require.NoError(t, s.UpdateScore(ctx, id1, score(20, model.HighlightRed)))
	got, err := s.GetByID(ctx, id1)
	require.NoError(t, err)
	assert.Equal(t, model.HighlightRed, got.Score.Highlight)
}

func TestReturnedJobsAreCopies(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())
	_, err := s.Save(ctx, []model.Job{sampleJob(1)}, "indeed", true)
	require.NoError(t, err)
	id := HashJob(sampleJob(1))
	require.NoError(t, s.UpdateScore(ctx, id, score(70, model.HighlightWhite)))

	got, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	got.Score.ComponentScores[model.ComponentKeyword] = -1

	again, err := s.GetByID(ctx, id)
	require.NoError(t, err)
	assert.Equal(t, 70.0, again.Score.ComponentScores[model.ComponentKeyword])
}

func TestMetadata(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	require.NoError(t, s.RecordScrape(ctx, true))
	require.NoError(t, s.RecordScrape(ctx, false))
	require.NoError(t, s.RecordScrape(ctx, true))

	m := s.Metadata(ctx)
	assert.Equal(t, 3, m.TotalScrapes)
	assert.Equal(t, 2, m.SuccessfulScrapes)
	assert.Equal(t, 1, m.FailedScrapes)
	assert.Equal(t, fixedNow, m.CreatedAt)
	assert.Equal(t, fixedNow, m.LastUpdated)
}

func TestErrorLogIsBounded(t *testing.T) {
	ctx := context.Background()
	s := openStore(t, t.TempDir())

	for i := 0; i < 5; i++ {
		s.LogError(ctx, fmt.Sprintf("op-%d", i), errors.New("boom"))
	}
	entries := s.Errors(ctx)
	require.Len(t, entries, 3)
	assert.Equal(t, "op-2", entries[0].Operation)
	assert.Equal(t, "op-4", entries[2].Operation)
	assert.Equal(t, "boom", entries[2].Error)
}

func TestOpenRequiresDir(t *testing.T) {
	_, err := Open(context.Background(), Options{})
	assert.True(t, apperr.IsKind(err, apperr.KindConfig))
}
