// Package scoring computes how well a job matches a job-seeker's profile.
//
// An Engine holds only its weight vector and keyword extractor, so a single
// Engine can score any number of jobs concurrently.
package scoring

import (
	"context"
	"fmt"
	"log/slog"
	"math"

	"golang.org/x/sync/errgroup"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/model"
)

// WeightTolerance is how far a custom weight vector may stray from 1.0.
const WeightTolerance = 0.01

// Highlight thresholds on the overall score.
const (
	RedBelow    = 40.0
	YellowBelow = 70.0
)

// Options configures an Engine. Zero values select the defaults.
type Options struct {
	Weights   model.Weights
	Extractor keywords.Extractor
	Logger    *slog.Logger
}

// Engine scores jobs. It is safe for concurrent use.
type Engine struct {
	weights   model.Weights
	extractor keywords.Extractor
	log       *slog.Logger
}

// New validates the weight vector and returns an Engine.
func New(opts Options) (*Engine, error) {
	w := opts.Weights
	if w.IsZero() {
		w = model.DefaultWeights()
	}
	if err := ValidateWeights(w); err != nil {
		return nil, err
	}

	ex := opts.Extractor
	if ex == nil {
		ex = keywords.LexiconExtractor{}
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &Engine{weights: w, extractor: ex, log: logger.With("component", "scoring")}, nil
}

// MustNew is like New but panics on an invalid configuration.
func MustNew(opts Options) *Engine {
	e, err := New(opts)
	if err != nil {
		panic(err)
	}
	return e
}

// ValidateWeights checks that no weight is negative and that they sum to
// 1.0 within WeightTolerance.
func ValidateWeights(w model.Weights) error {
	for _, name := range model.Components {
		if v := w.Of(name); v < 0 || math.IsNaN(v) {
			return apperr.Configf("weight %s must be non-negative, got %v", name, v)
		}
	}
	if sum := w.Sum(); math.Abs(sum-1.0) > WeightTolerance {
		return apperr.Configf("weights must sum to 1.0 (±%.2f), got %.4f", WeightTolerance, sum)
	}
	return nil
}

// Weights returns the weight vector in use.
func (e *Engine) Weights() model.Weights { return e.weights }

// Classify maps an overall score to its highlight tier.
func Classify(score float64) model.Highlight {
	switch {
	case score < RedBelow:
		return model.HighlightRed
	case score < YellowBelow:
		return model.HighlightYellow
	}
	return model.HighlightWhite
}

// ScoreJob scores one job. A nil job or nil preferences yield a zeroed,
// red score.
func (e *Engine) ScoreJob(job *model.Job, prefs *model.Preferences, resume *keywords.Set) model.Score {
	return e.ScoreJobContext(context.Background(), job, prefs, resume)
}

// ScoreJobContext is ScoreJob with a context for the keyword extractor.
func (e *Engine) ScoreJobContext(ctx context.Context, job *model.Job, prefs *model.Preferences, resume *keywords.Set) model.Score {
	components := make(map[string]float64, len(model.Components))
	if job == nil || prefs == nil {
		for _, name := range model.Components {
			components[name] = 0
		}
		return model.Score{
			OverallScore:    0,
			Highlight:       model.HighlightRed,
			ComponentScores: components,
			WeightsUsed:     e.weights,
		}
	}

	components[model.ComponentKeyword] = e.safe(job, model.ComponentKeyword, func() (float64, error) {
		return e.keywordMatch(ctx, job, prefs, resume)
	})
	components[model.ComponentSalary] = e.safe(job, model.ComponentSalary, func() (float64, error) {
		return salaryMatch(job, prefs), nil
	})
	components[model.ComponentLocation] = e.safe(job, model.ComponentLocation, func() (float64, error) {
		return locationMatch(job, prefs), nil
	})
	components[model.ComponentJobType] = e.safe(job, model.ComponentJobType, func() (float64, error) {
		return jobTypeMatch(job, prefs), nil
	})

	var total float64
	for _, name := range model.Components {
		total += components[name] * e.weights.Of(name)
	}
	overall := round2(clamp(total))

	return model.Score{
		OverallScore:    overall,
		Highlight:       Classify(overall),
		ComponentScores: components,
		WeightsUsed:     e.weights,
	}
}

// safe runs one component, substituting the neutral 50 when it fails.
func (e *Engine) safe(job *model.Job, name string, fn func() (float64, error)) (score float64) {
	defer func() {
		if r := recover(); r != nil {
			e.log.Error("component score panicked", "component", name, "job_id", job.ID, "panic", r)
			score = neutral
		}
	}()

	v, err := fn()
	if err != nil {
		e.log.Error("component score failed", "component", name, "job_id", job.ID, "err", err)
		return neutral
	}
	return round2(clamp(v))
}

// ScoreAll scores jobs on up to workers goroutines and returns the scores
// keyed by job id. It stops early only when ctx is cancelled.
func (e *Engine) ScoreAll(ctx context.Context, jobs []model.Job, prefs *model.Preferences, resume *keywords.Set, workers int) (map[string]model.Score, error) {
	if workers <= 0 {
		workers = 1
	}
	results := make([]model.Score, len(jobs))

	g, gctx := errgroup.WithContext(ctx)
	g.SetLimit(workers)
	for i := range jobs {
		i := i
		g.Go(func() error {
			if err := gctx.Err(); err != nil {
				return err
			}
			results[i] = e.ScoreJobContext(gctx, &jobs[i], prefs, resume)
			return nil
		})
	}
	if err := g.Wait(); err != nil {
		return nil, fmt.Errorf("score jobs: %w", err)
	}

	out := make(map[string]model.Score, len(jobs))
	for i, j := range jobs {
		out[j.ID] = results[i]
	}
	return out, nil
}

const neutral = 50.0

func clamp(v float64) float64 {
	if math.IsNaN(v) {
		return 0
	}
	return math.Max(0, math.Min(100, v))
}

func round2(v float64) float64 {
	return math.Round(v*100) / 100
}
