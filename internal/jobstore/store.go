// Package jobstore is the durable, deduplicated repository of scraped jobs and
// their attached scores.
//
// The whole collection lives in one JSON document (jobs.json). Every mutation
// is a read-modify-write cycle over that document performed under a single
// mutex and flushed with an atomic temp-file rename, so readers never observe
// a partial write. Companion documents track ingestion metadata
// (metadata.json) and a bounded log of failed operations (scraping_errors.json).
package jobstore

import (
	"context"
	"fmt"
	"log/slog"
	"os"
	"path/filepath"
	"sync"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jsonfile"
	"jobmate/jobtracker/internal/model"
)

const (
	jobsFileName     = "jobs.json"
	metadataFileName = "metadata.json"
	errorsFileName   = "scraping_errors.json"

	// DefaultErrorLogCapacity is the number of failed operations kept.
	DefaultErrorLogCapacity = 100
)

// Options configures a Store.
type Options struct {
	// Dir holds the three JSON documents. Required.
	Dir string
	// File controls retries and timeouts of each document operation.
	File             jsonfile.Options
	ErrorLogCapacity int
	Now              func() time.Time
	Logger           *slog.Logger
}

// Store is safe for concurrent use; all operations are serialized.
type Store struct {
	mu       sync.Mutex
	jobs     *jsonfile.File
	meta     *jsonfile.File
	errs     *jsonfile.File
	capacity int
	now      func() time.Time
	log      *slog.Logger
}

type jobsDocument struct {
	Jobs  []model.Job `json:"jobs"`
	Count int         `json:"count"`
}

// SaveResult reports what Save did with each submitted job.
type SaveResult struct {
	Added   int `json:"added"`
	Skipped int `json:"skipped"`
	Invalid int `json:"invalid"`
	Total   int `json:"total"`
}

// UpdateResult reports the outcome of a score write-back.
type UpdateResult struct {
	Updated     int      `json:"updated"`
	NotFound    int      `json:"not_found"`
	NotFoundIDs []string `json:"not_found_ids,omitempty"`
}

// Open prepares the data directory and initializes the metadata document on
// first use.
func Open(ctx context.Context, opts Options) (*Store, error) {
	if opts.Dir == "" {
		return nil, apperr.Configf("jobstore: data directory is required")
	}
	if err := os.MkdirAll(opts.Dir, 0o755); err != nil {
		return nil, apperr.Persistence("jobstore.open", fmt.Errorf("mkdir %s: %w", opts.Dir, err))
	}

	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "jobstore")
	fileOpts := opts.File
	fileOpts.Logger = logger

	capacity := opts.ErrorLogCapacity
	if capacity <= 0 {
		capacity = DefaultErrorLogCapacity
	}
	now := opts.Now
	if now == nil {
		now = time.Now
	}

	s := &Store{
		jobs:     jsonfile.New(filepath.Join(opts.Dir, jobsFileName), fileOpts),
		meta:     jsonfile.New(filepath.Join(opts.Dir, metadataFileName), fileOpts),
		errs:     jsonfile.New(filepath.Join(opts.Dir, errorsFileName), fileOpts),
		capacity: capacity,
		now:      now,
		log:      logger,
	}

	if !s.meta.Exists() {
		ts := s.now().UTC()
		if err := s.meta.Write(ctx, Metadata{CreatedAt: ts, LastUpdated: ts}); err != nil {
			return nil, err
		}
	}
	return s, nil
}

// Save validates, deduplicates and persists a batch of scraped jobs.
//
// Jobs missing title, company, location or link are counted as invalid and
// dropped. With skipDuplicates a job whose id is already stored (or appeared
// earlier in the batch) is skipped; otherwise it replaces the stored record,
// keeping its original scraped_at and dropping its score.
// When the write fails the returned error is a persistence error and nothing
// from the batch was stored.
func (s *Store) Save(ctx context.Context, jobs []model.Job, source string, skipDuplicates bool) (SaveResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	res := SaveResult{Total: len(jobs)}
	current, err := s.loadForWrite(ctx)
	if err != nil {
		s.recordError(ctx, "save", err)
		return res, err
	}

	index := make(map[string]int, len(current))
	for i, j := range current {
		index[j.ID] = i
	}

	now := s.now().UTC()
	for _, j := range jobs {
		if err := Validate(j); err != nil {
			res.Invalid++
			s.log.Debug("dropping invalid job", "title", j.Title, "link", j.Link, "err", err)
			continue
		}

		rec := newRecord(j, source, now)
		if pos, ok := index[rec.ID]; ok {
			if skipDuplicates {
				res.Skipped++
				continue
			}
			rec.ScrapedAt = current[pos].ScrapedAt
			current[pos] = rec
			res.Added++
			continue
		}
		index[rec.ID] = len(current)
		current = append(current, rec)
		res.Added++
	}

	if res.Added == 0 {
		return res, nil
	}
	if err := s.persist(ctx, current); err != nil {
		s.recordError(ctx, "save", err)
		return res, err
	}

	s.log.Info("jobs saved", "source", source,
		"added", res.Added, "skipped", res.Skipped, "invalid", res.Invalid, "total", res.Total)
	return res, nil
}

func newRecord(j model.Job, source string, now time.Time) model.Job {
	rec := j.Clone()
	rec.ID = HashJob(j)
	if source != "" {
		rec.Source = source
	}
	rec.ScrapedAt = now
	rec.Score = nil
	rec.ScoredAt = nil
	return rec
}

// GetAll returns every stored job whose fields equal all given filters
// (keys are JSON field names, plus "highlight"). Unreadable storage yields an
// empty slice and a logged warning.
func (s *Store) GetAll(ctx context.Context, filters map[string]string) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selectJobs(ctx, func(j model.Job) bool {
		for field, want := range filters {
			got, ok := j.Field(field)
			if !ok || got != want {
				return false
			}
		}
		return true
	})
}

// GetByID returns the job with the given id.
func (s *Store) GetByID(ctx context.Context, id string) (model.Job, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadForWrite(ctx)
	if err != nil {
		return model.Job{}, err
	}
	for _, j := range current {
		if j.ID == id {
			return j.Clone(), nil
		}
	}
	return model.Job{}, apperr.NotFoundf("job %q not found", id)
}

// Exists reports whether a job id is stored.
func (s *Store) Exists(ctx context.Context, id string) (bool, error) {
	_, err := s.GetByID(ctx, id)
	switch {
	case err == nil:
		return true, nil
	case apperr.IsKind(err, apperr.KindNotFound):
		return false, nil
	}
	return false, err
}

// Count returns the number of stored jobs.
func (s *Store) Count(ctx context.Context) int {
	return len(s.GetAll(ctx, nil))
}

// Delete removes one job.
func (s *Store) Delete(ctx context.Context, id string) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	current, err := s.loadForWrite(ctx)
	if err != nil {
		s.recordError(ctx, "delete", err)
		return err
	}

	kept := current[:0]
	found := false
	for _, j := range current {
		if j.ID == id {
			found = true
			continue
		}
		kept = append(kept, j)
	}
	if !found {
		return apperr.NotFoundf("job %q not found", id)
	}

	if err := s.persist(ctx, kept); err != nil {
		s.recordError(ctx, "delete", err)
		return err
	}
	return nil
}

// ClearAll removes every job. It also recovers a store whose document is
// unreadable.
func (s *Store) ClearAll(ctx context.Context) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	if err := s.persist(ctx, nil); err != nil {
		s.recordError(ctx, "clear_all", err)
		return err
	}
	s.log.Info("job store cleared")
	return nil
}

// UpdateScore attaches score to one job, replacing any previous score.
func (s *Store) UpdateScore(ctx context.Context, id string, score model.Score) error {
	res, err := s.UpdateScores(ctx, map[string]model.Score{id: score})
	if err != nil {
		return err
	}
	if res.NotFound > 0 {
		return apperr.NotFoundf("job %q not found", id)
	}
	return nil
}

// UpdateScores attaches scores to many jobs in one write. Unknown ids are
// counted, not treated as failures.
func (s *Store) UpdateScores(ctx context.Context, scores map[string]model.Score) (UpdateResult, error) {
	s.mu.Lock()
	defer s.mu.Unlock()

	var res UpdateResult
	if len(scores) == 0 {
		return res, nil
	}

	current, err := s.loadForWrite(ctx)
	if err != nil {
		s.recordError(ctx, "update_scores", err)
		return res, err
	}

	index := make(map[string]int, len(current))
	for i, j := range current {
		index[j.ID] = i
	}

	now := s.now().UTC()
	for id, score := range scores {
		pos, ok := index[id]
		if !ok {
			res.NotFound++
			res.NotFoundIDs = append(res.NotFoundIDs, id)
			continue
		}
		sc := score.Clone()
		ts := now
		current[pos].Score = &sc
		current[pos].ScoredAt = &ts
		res.Updated++
	}

	if res.Updated > 0 {
		if err := s.persist(ctx, current); err != nil {
			s.recordError(ctx, "update_scores", err)
			return UpdateResult{}, err
		}
	}
	return res, nil
}

// GetByHighlight returns scored jobs carrying the given highlight.
func (s *Store) GetByHighlight(ctx context.Context, h model.Highlight) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selectJobs(ctx, func(j model.Job) bool {
		return j.Score != nil && j.Score.Highlight == h
	})
}

// GetByScoreRange returns scored jobs with lo <= overall_score <= hi. A nil
// bound is open.
func (s *Store) GetByScoreRange(ctx context.Context, lo, hi *float64) []model.Job {
	s.mu.Lock()
	defer s.mu.Unlock()

	return s.selectJobs(ctx, func(j model.Job) bool {
		if j.Score == nil {
			return false
		}
		v := j.Score.OverallScore
		if lo != nil && v < *lo {
			return false
		}
		if hi != nil && v > *hi {
			return false
		}
		return true
	})
}

func (s *Store) selectJobs(ctx context.Context, keep func(model.Job) bool) []model.Job {
	current, err := s.loadForWrite(ctx)
	if err != nil {
		s.log.Warn("job store unreadable, returning no jobs", "err", err)
		return []model.Job{}
	}
	out := make([]model.Job, 0, len(current))
	for _, j := range current {
		if keep(j) {
			out = append(out, j.Clone())
		}
	}
	return out
}

// loadForWrite reads the collection. A missing document is an empty store;
// an unreadable one is an error so a mutation never overwrites data it could
// not read.
func (s *Store) loadForWrite(ctx context.Context) ([]model.Job, error) {
	var doc jobsDocument
	if _, err := s.jobs.Read(ctx, &doc); err != nil {
		return nil, err
	}
	return doc.Jobs, nil
}

func (s *Store) persist(ctx context.Context, jobs []model.Job) error {
	if jobs == nil {
		jobs = []model.Job{}
	}
	if err := s.jobs.Write(ctx, jobsDocument{Jobs: jobs, Count: len(jobs)}); err != nil {
		return err
	}
	s.touch(ctx)
	return nil
}
