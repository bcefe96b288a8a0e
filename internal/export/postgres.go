package export

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
)

const schemaSQL = `
CREATE TABLE IF NOT EXISTS job_matches (
    job_id           TEXT PRIMARY KEY,
    title            TEXT NOT NULL,
    company          TEXT NOT NULL,
    location         TEXT NOT NULL,
    job_type         TEXT NOT NULL DEFAULT '',
    link             TEXT NOT NULL,
    source           TEXT NOT NULL DEFAULT '',
    scraped_at       TIMESTAMPTZ NOT NULL,
    overall_score    NUMERIC(5,2),
    highlight        TEXT,
    tier             TEXT,
    component_scores JSONB,
    scored_at        TIMESTAMPTZ,
    status           TEXT,
    exported_at      TIMESTAMPTZ NOT NULL DEFAULT NOW()
)`

const upsertSQL = `
INSERT INTO job_matches (job_id, title, company, location, job_type, link, source, scraped_at,
                         overall_score, highlight, tier, component_scores, scored_at, status)
VALUES ($1, $2, $3, $4, $5, $6, $7, $8, $9, $10, $11, $12::jsonb, $13, $14)
ON CONFLICT (job_id) DO UPDATE
SET title            = EXCLUDED.title,
    company          = EXCLUDED.company,
    location         = EXCLUDED.location,
    job_type         = EXCLUDED.job_type,
    link             = EXCLUDED.link,
    source           = EXCLUDED.source,
    overall_score    = EXCLUDED.overall_score,
    highlight        = EXCLUDED.highlight,
    tier             = EXCLUDED.tier,
    component_scores = EXCLUDED.component_scores,
    scored_at        = EXCLUDED.scored_at,
    status           = EXCLUDED.status,
    exported_at      = NOW()`

// PostgresSink upserts records into the job_matches table, one row per job.
type PostgresSink struct {
	pool *pgxpool.Pool
}

func NewPostgresSink(pool *pgxpool.Pool) *PostgresSink {
	return &PostgresSink{pool: pool}
}

func (s *PostgresSink) Name() string { return "postgres" }

// EnsureSchema creates the job_matches table if it does not exist.
func (s *PostgresSink) EnsureSchema(ctx context.Context) error {
	if _, err := s.pool.Exec(ctx, schemaSQL); err != nil {
		return fmt.Errorf("create job_matches: %w", err)
	}
	return nil
}

// Write upserts all records in a single transaction.
func (s *PostgresSink) Write(ctx context.Context, records []Record) error {
	if len(records) == 0 {
		return nil
	}

	batch := &pgx.Batch{}
	for _, r := range records {
		var (
			overall    *float64
			highlight  *string
			tier       *string
			components map[string]float64
			status     *string
		)
		if r.Scored {
			v, h, t := r.OverallScore, string(r.Highlight), string(r.Tier)
			overall, highlight, tier = &v, &h, &t
			components = r.Components
		}
		if r.Status != "" {
			st := string(r.Status)
			status = &st
		}
		batch.Queue(upsertSQL,
			r.JobID, r.Title, r.Company, r.Location, r.JobType, r.Link, r.Source, r.ScrapedAt,
			overall, highlight, tier, components, r.ScoredAt, status,
		)
	}

	err := pgx.BeginFunc(ctx, s.pool, func(tx pgx.Tx) error {
		return tx.SendBatch(ctx, batch).Close()
	})
	if err != nil {
		return fmt.Errorf("upsert job_matches: %w", err)
	}
	return nil
}

// Count returns the number of exported rows.
func (s *PostgresSink) Count(ctx context.Context) (int, error) {
	var n int
	if err := s.pool.QueryRow(ctx, `SELECT COUNT(*) FROM job_matches`).Scan(&n); err != nil {
		return 0, fmt.Errorf("count job_matches: %w", err)
	}
	return n, nil
}
