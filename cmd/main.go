// jobtracker — job matching and application tracking
//
// Ingests offers from job boards into a deduplicated JSON job store, scores
// them against the user's profile and tracks each application through
// Pending → Applied → Interview → Offer / Rejected.
//
//   - ingestion cycle: every SCRAPE_INTERVAL_HOURS, red-flag filtered
//   - rescore cycle: every RESCORE_INTERVAL_HOURS, exported to CSV and/or PostgreSQL
//   - REST API for listing jobs and moving cards
package main

import (
	"context"
	"fmt"
	"log/slog"
	"net/http"
	"os"
	"os/signal"
	"path/filepath"
	"syscall"
	"time"

	"jobmate/jobtracker/internal/api"
	"jobmate/jobtracker/internal/config"
	"jobmate/jobtracker/internal/db"
	"jobmate/jobtracker/internal/export"
	"jobmate/jobtracker/internal/jobstore"
	"jobmate/jobtracker/internal/kanban"
	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/profile"
	"jobmate/jobtracker/internal/scheduler"
	"jobmate/jobtracker/internal/scoring"
	"jobmate/jobtracker/internal/scraper"
)

const version = "1.0.0"

func main() {
	if err := run(); err != nil {
		slog.Error("jobtracker stopped", "err", err)
		os.Exit(1)
	}
}

func run() error {
	// ── Config ──────────────────────────────────────────────────────────────
	cfg, err := config.Load()
	if err != nil {
		return fmt.Errorf("config: %w", err)
	}
	level, _ := cfg.SlogLevel()
	logger := initLogger(level)

	ctx, cancel := context.WithCancel(context.Background())
	defer cancel()

	// ── Storage ──────────────────────────────────────────────────────────────
	store, err := jobstore.Open(ctx, jobstore.Options{
		Dir:              cfg.DataDir,
		File:             cfg.Store.File(),
		ErrorLogCapacity: cfg.Store.ErrorLogCapacity,
		Logger:           logger,
	})
	if err != nil {
		return fmt.Errorf("job store: %w", err)
	}

	tracker, err := kanban.Open(ctx, kanban.Options{
		Path:   filepath.Join(cfg.DataDir, "status_history.json"),
		File:   cfg.Store.File(),
		Jobs:   store,
		Logger: logger,
	})
	if err != nil {
		return fmt.Errorf("status tracker: %w", err)
	}

	// ── Profile ──────────────────────────────────────────────────────────────
	prof, err := profile.Load(cfg.ProfilePath)
	if err != nil {
		return err
	}

	// ── Redis keyword cache (optional) ───────────────────────────────────────
	var extractor keywords.Extractor = keywords.LexiconExtractor{}
	checks := map[string]api.Check{}
	if cfg.RedisURL != "" {
		logger.Info("connecting to Redis")
		rdb, err := db.NewRedisClient(ctx, cfg.RedisURL)
		if err != nil {
			return fmt.Errorf("redis: %w", err)
		}
		defer rdb.Close()
		cache := keywords.NewRedisCache(rdb)
		extractor = keywords.NewCachedExtractor(extractor, cache, cfg.KeywordCacheTTL, logger)
		checks["redis"] = cache.Health
		logger.Info("redis connected, keyword cache enabled")
	}

	// ── Scoring ──────────────────────────────────────────────────────────────
	weights := cfg.Weights.Model()
	if !prof.Weights.IsZero() {
		weights = prof.Weights
	}
	engine, err := scoring.New(scoring.Options{Weights: weights, Extractor: extractor, Logger: logger})
	if err != nil {
		return fmt.Errorf("scoring: %w", err)
	}
	resume, err := prof.ResumeKeywords(ctx, extractor)
	if err != nil {
		return err
	}

	// ── Export sinks ─────────────────────────────────────────────────────────
	var sinks []export.Sink
	if cfg.ExportCSVPath != "" {
		sinks = append(sinks, export.CSVSink{Path: cfg.ExportCSVPath})
	}
	if cfg.DatabaseURL != "" {
		logger.Info("connecting to PostgreSQL")
		pool, err := db.NewPostgresPool(ctx, cfg.DatabaseURL)
		if err != nil {
			return fmt.Errorf("postgres: %w", err)
		}
		defer pool.Close()
		checks["postgres"] = pool.Ping
		pg := export.NewPostgresSink(pool)
		if err := pg.EnsureSchema(ctx); err != nil {
			return err
		}
		sinks = append(sinks, pg)
		logger.Info("postgres connected, export enabled")
	}

	// ── Scheduler ────────────────────────────────────────────────────────────
	ingestor := scraper.NewIngestor(store, []scraper.Source{
		scraper.NewAdzunaSource(cfg.AdzunaAppID, cfg.AdzunaAppKey, cfg.AdzunaCountry, logger),
	}, logger)
	rescorer := scheduler.NewRescorer(scheduler.RescoreOptions{
		Store:    store,
		Engine:   engine,
		Prefs:    prof.Preferences,
		Resume:   resume,
		Workers:  cfg.ScoringWorkers,
		Statuses: tracker,
		Sinks:    sinks,
		Logger:   logger,
	})

	sched := scheduler.New(logger)
	if err := sched.Add(scheduler.Cycle{
		Name:  "ingest",
		Every: time.Duration(cfg.ScrapeIntervalHours) * time.Hour,
		Run: func(ctx context.Context) error {
			_, err := ingestor.Run(ctx, prof.Preferences)
			return err
		},
	}); err != nil {
		return err
	}
	if err := sched.Add(scheduler.Cycle{
		Name:  "rescore",
		Every: time.Duration(cfg.RescoreIntervalHours) * time.Hour,
		Run: func(ctx context.Context) error {
			_, err := rescorer.Run(ctx)
			return err
		},
	}); err != nil {
		return err
	}
	if err := sched.Start(ctx); err != nil {
		return err
	}

	// ── HTTP server ──────────────────────────────────────────────────────────
	mux := http.NewServeMux()
	handler := api.NewHandler(store, tracker, version, logger)
	for name, check := range checks {
		handler.WithCheck(name, check)
	}
	handler.RegisterRoutes(mux)

	srv := &http.Server{
		Addr:         fmt.Sprintf(":%s", cfg.Port),
		Handler:      mux,
		ReadTimeout:  10 * time.Second,
		WriteTimeout: 10 * time.Second,
	}

	serveErr := make(chan error, 1)
	go func() {
		logger.Info("listening", "version", version, "port", cfg.Port)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			serveErr <- err
		}
	}()

	// ── Graceful shutdown ────────────────────────────────────────────────────
	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	select {
	case <-quit:
	case err := <-serveErr:
		cancel()
		return fmt.Errorf("http server: %w", err)
	}

	logger.Info("shutting down")
	cancel()
	shutdownCtx, shutdownCancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer shutdownCancel()

	if err := srv.Shutdown(shutdownCtx); err != nil {
		logger.Warn("http shutdown error", "err", err)
	}
	sched.Stop(shutdownCtx)
	logger.Info("stopped")
	return nil
}

// initLogger installs a JSON slog handler as the process default.
func initLogger(level slog.Level) *slog.Logger {
	logger := slog.New(slog.NewJSONHandler(os.Stdout, &slog.HandlerOptions{Level: level}))
	slog.SetDefault(logger)
	return logger
}
