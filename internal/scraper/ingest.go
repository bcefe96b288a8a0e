package scraper

import (
	"context"
	"fmt"
	"log/slog"

	"github.com/google/uuid"

	"jobmate/jobtracker/internal/jobstore"
	"jobmate/jobtracker/internal/model"
)

// Store is the part of the job store the ingestor writes to.
type Store interface {
	Save(ctx context.Context, jobs []model.Job, source string, skipDuplicates bool) (jobstore.SaveResult, error)
	RecordScrape(ctx context.Context, success bool) error
	LogError(ctx context.Context, operation string, err error)
}

// Summary counts what one ingestion run did.
type Summary struct {
	RunID    string
	Fetched  int
	Filtered int // dropped by a red flag
	Added    int
	Skipped  int // duplicates
	Invalid  int
	Failed   int // failed fetches and saves
}

// Ingestor fetches offers for every desired title × location from every
// source and saves them into the store.
type Ingestor struct {
	store   Store
	sources []Source
	log     *slog.Logger
}

func NewIngestor(store Store, sources []Source, logger *slog.Logger) *Ingestor {
	if logger == nil {
		logger = slog.Default()
	}
	return &Ingestor{store: store, sources: sources, log: logger.With("component", "ingestor")}
}

// Run executes one full ingestion cycle. Per-source failures are logged to
// the store and do not stop the run; only context cancellation does.
func (in *Ingestor) Run(ctx context.Context, prefs model.Preferences) (Summary, error) {
	sum := Summary{RunID: uuid.NewString()}
	log := in.log.With("run_id", sum.RunID)

	if len(prefs.JobTitles) == 0 {
		log.Info("no job titles configured, nothing to ingest")
		return sum, nil
	}
	locations := prefs.Locations
	if len(locations) == 0 {
		locations = []string{""}
	}

	log.Info("ingestion cycle started", "titles", len(prefs.JobTitles), "locations", len(locations), "sources", len(in.sources))

	for _, title := range prefs.JobTitles {
		for _, location := range locations {
			for _, src := range in.sources {
				if err := ctx.Err(); err != nil {
					return sum, err
				}
				in.ingestOne(ctx, log, src, title, location, prefs.RedFlags, &sum)
			}
		}
	}

	success := sum.Failed == 0
	if err := in.store.RecordScrape(ctx, success); err != nil {
		log.Warn("record scrape failed", "err", err)
	}

	log.Info("ingestion cycle complete",
		"fetched", sum.Fetched,
		"added", sum.Added,
		"duplicates", sum.Skipped,
		"invalid", sum.Invalid,
		"red_flagged", sum.Filtered,
		"failed", sum.Failed,
	)
	return sum, nil
}

func (in *Ingestor) ingestOne(ctx context.Context, log *slog.Logger, src Source, title, location string, redFlags []string, sum *Summary) {
	offers, err := src.Fetch(ctx, title, location)
	if err != nil {
		sum.Failed++
		log.Error("fetch failed", "source", src.Name(), "title", title, "location", location, "err", err)
		in.store.LogError(ctx, "scrape:"+src.Name(), fmt.Errorf("%q in %q: %w", title, location, err))
		// Keep whatever pages arrived before the failure.
	}
	sum.Fetched += len(offers)

	kept := offers[:0:0]
	for _, offer := range offers {
		if ContainsRedFlag(offer, redFlags) {
			sum.Filtered++
			continue
		}
		kept = append(kept, offer)
	}
	if len(kept) == 0 {
		return
	}

	res, err := in.store.Save(ctx, kept, src.Name(), true)
	sum.Added += res.Added
	sum.Skipped += res.Skipped
	sum.Invalid += res.Invalid
	if err != nil {
		sum.Failed++
		log.Error("save failed", "source", src.Name(), "err", err)
	}
}
