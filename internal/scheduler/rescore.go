package scheduler

import (
	"context"
	"errors"
	"fmt"
	"log/slog"

	"jobmate/jobtracker/internal/export"
	"jobmate/jobtracker/internal/jobstore"
	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/model"
	"jobmate/jobtracker/internal/scoring"
)

// ScoreStore is the part of the job store the rescorer reads and updates.
type ScoreStore interface {
	GetAll(ctx context.Context, filters map[string]string) []model.Job
	UpdateScores(ctx context.Context, scores map[string]model.Score) (jobstore.UpdateResult, error)
	LogError(ctx context.Context, operation string, err error)
}

// RescoreOptions configures a Rescorer.
type RescoreOptions struct {
	Store   ScoreStore
	Engine  *scoring.Engine
	Prefs   model.Preferences
	Resume  *keywords.Set
	Workers int
	// Statuses and Sinks are optional; without sinks nothing is exported.
	Statuses export.StatusLookup
	Sinks    []export.Sink
	Logger   *slog.Logger
}

// RescoreSummary counts what one rescore run did.
type RescoreSummary struct {
	Scored   int
	Updated  int
	NotFound int
	Exported int
}

// Rescorer scores every stored job against the profile, writes the scores
// back and pushes the merged records to the configured sinks.
type Rescorer struct {
	opts RescoreOptions
	log  *slog.Logger
}

func NewRescorer(opts RescoreOptions) *Rescorer {
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Rescorer{opts: opts, log: logger.With("component", "rescorer")}
}

// Run executes one rescore cycle. A failing sink is logged and reported in
// the returned error after every other sink has run.
func (r *Rescorer) Run(ctx context.Context) (RescoreSummary, error) {
	var sum RescoreSummary

	jobs := r.opts.Store.GetAll(ctx, nil)
	if len(jobs) == 0 {
		r.log.Info("no jobs to score")
		return sum, nil
	}

	prefs := r.opts.Prefs
	scores, err := r.opts.Engine.ScoreAll(ctx, jobs, &prefs, r.opts.Resume, r.opts.Workers)
	if err != nil {
		return sum, err
	}
	sum.Scored = len(scores)

	res, err := r.opts.Store.UpdateScores(ctx, scores)
	if err != nil {
		return sum, fmt.Errorf("write scores: %w", err)
	}
	sum.Updated, sum.NotFound = res.Updated, res.NotFound
	if res.NotFound > 0 {
		// Deleted between GetAll and UpdateScores.
		r.log.Warn("scored jobs vanished before write-back", "ids", res.NotFoundIDs)
	}

	if len(r.opts.Sinks) > 0 {
		n, err := r.export(ctx)
		sum.Exported = n
		if err != nil {
			return sum, err
		}
	}

	r.log.Info("rescore complete", "scored", sum.Scored, "updated", sum.Updated, "exported", sum.Exported)
	return sum, nil
}

func (r *Rescorer) export(ctx context.Context) (int, error) {
	records, err := export.Build(r.opts.Store.GetAll(ctx, nil), r.opts.Statuses)
	if err != nil {
		return 0, fmt.Errorf("build export: %w", err)
	}

	var errs []error
	for _, sink := range r.opts.Sinks {
		if err := sink.Write(ctx, records); err != nil {
			err = fmt.Errorf("export to %s: %w", sink.Name(), err)
			r.log.Error("export failed", "sink", sink.Name(), "err", err)
			r.opts.Store.LogError(ctx, "export:"+sink.Name(), err)
			errs = append(errs, err)
		}
	}
	return len(records), errors.Join(errs...)
}
