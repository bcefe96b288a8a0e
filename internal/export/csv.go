package export

import (
	"context"
	"encoding/csv"
	"fmt"
	"io"
	"os"
	"path/filepath"
	"strconv"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/model"
)

var csvHeader = []string{
	"job_id", "title", "company", "location", "job_type", "link", "source", "scraped_at",
	"overall_score", "highlight", "tier",
	model.ComponentKeyword, model.ComponentSalary, model.ComponentLocation, model.ComponentJobType,
	"scored_at", "status",
}

// WriteCSV writes records with a header row. Unscored jobs have empty score
// columns.
func WriteCSV(w io.Writer, records []Record) error {
	cw := csv.NewWriter(w)
	if err := cw.Write(csvHeader); err != nil {
		return err
	}
	for _, r := range records {
		row := []string{
			r.JobID, r.Title, r.Company, r.Location, r.JobType, r.Link, r.Source,
			r.ScrapedAt.UTC().Format(time.RFC3339),
		}
		if r.Scored {
			row = append(row, formatScore(r.OverallScore), string(r.Highlight), string(r.Tier))
			for _, c := range model.Components {
				row = append(row, formatScore(r.Components[c]))
			}
		} else {
			row = append(row, "", "", "", "", "", "", "")
		}
		scoredAt := ""
		if r.ScoredAt != nil {
			scoredAt = r.ScoredAt.UTC().Format(time.RFC3339)
		}
		row = append(row, scoredAt, string(r.Status))
		if err := cw.Write(row); err != nil {
			return err
		}
	}
	cw.Flush()
	return cw.Error()
}

func formatScore(v float64) string {
	return strconv.FormatFloat(v, 'f', 2, 64)
}

// CSVSink replaces a CSV file with each export.
type CSVSink struct {
	Path string
}

func (s CSVSink) Name() string { return "csv" }

// Write renders the records to a temporary file next to Path and renames it
// into place.
func (s CSVSink) Write(_ context.Context, records []Record) error {
	dir := filepath.Dir(s.Path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return apperr.Persistence("export.csv", err)
	}
	tmp, err := os.CreateTemp(dir, "."+filepath.Base(s.Path)+".*.tmp")
	if err != nil {
		return apperr.Persistence("export.csv", err)
	}
	defer os.Remove(tmp.Name())

	if err := WriteCSV(tmp, records); err != nil {
		tmp.Close()
		return apperr.Persistence("export.csv", fmt.Errorf("write %s: %w", tmp.Name(), err))
	}
	if err := tmp.Close(); err != nil {
		return apperr.Persistence("export.csv", err)
	}
	if err := os.Rename(tmp.Name(), s.Path); err != nil {
		return apperr.Persistence("export.csv", err)
	}
	return nil
}
