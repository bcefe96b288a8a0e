package scraper

import (
	"context"
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"net/http"
	"net/url"
	"strconv"
	"strings"
	"time"

	"jobmate/jobtracker/internal/keywords"
	"jobmate/jobtracker/internal/model"
)

// Source is a job board adapter. Fetch returns raw, unvalidated jobs.
type Source interface {
	Name() string
	Fetch(ctx context.Context, title, location string) ([]model.Job, error)
}

const (
	adzunaBaseURL  = "https://api.adzuna.com/v1/api/jobs"
	adzunaPageSize = 50
	adzunaMaxPages = 3 // max 150 results per (title × location) pair
	httpTimeout    = 15 * time.Second
)

// AdzunaSource fetches job offers from the Adzuna public API.
// If AppID or AppKey is empty, Fetch returns (nil, nil) and logs a warning.
type AdzunaSource struct {
	AppID   string
	AppKey  string
	Country string // "fr", "gb", "us", …
	// BaseURL overrides the API root; tests point it at an httptest server.
	BaseURL string
	client  *http.Client
	log     *slog.Logger
}

// NewAdzunaSource constructs a source with a shared HTTP client.
func NewAdzunaSource(appID, appKey, country string, logger *slog.Logger) *AdzunaSource {
	if logger == nil {
		logger = slog.Default()
	}
	return &AdzunaSource{
		AppID:   appID,
		AppKey:  appKey,
		Country: country,
		BaseURL: adzunaBaseURL,
		client:  &http.Client{Timeout: httpTimeout},
		log:     logger.With("source", "adzuna"),
	}
}

func (a *AdzunaSource) Name() string { return "adzuna" }

type adzunaResponse struct {
	Results []adzunaResult `json:"results"`
	Count   int            `json:"count"`
}

type adzunaResult struct {
	ID           string         `json:"id"`
	Title        string         `json:"title"`
	Description  string         `json:"description"`
	Company      adzunaName     `json:"company"`
	Location     adzunaName     `json:"location"`
	SalaryMin    float64        `json:"salary_min"`
	SalaryMax    float64        `json:"salary_max"`
	RedirectURL  string         `json:"redirect_url"`
	ContractTime string         `json:"contract_time"`
	Category     adzunaCategory `json:"category"`
}

type adzunaName struct {
	DisplayName string `json:"display_name"`
}

type adzunaCategory struct {
	Label string `json:"label"`
}

// Fetch retrieves all available offers for a title and location, paging
// until a short page or adzunaMaxPages.
func (a *AdzunaSource) Fetch(ctx context.Context, title, location string) ([]model.Job, error) {
	if a.AppID == "" || a.AppKey == "" {
		a.log.Warn("ADZUNA_APP_ID / ADZUNA_APP_KEY not set, skipping fetch")
		return nil, nil
	}

	var jobs []model.Job
	for page := 1; page <= adzunaMaxPages; page++ {
		batch, err := a.fetchPage(ctx, title, location, page)
		if err != nil {
			return jobs, fmt.Errorf("page %d: %w", page, err)
		}
		jobs = append(jobs, batch...)
		if len(batch) < adzunaPageSize {
			break
		}
	}
	return jobs, nil
}

func (a *AdzunaSource) fetchPage(ctx context.Context, title, location string, page int) ([]model.Job, error) {
	endpoint := fmt.Sprintf("%s/%s/search/%d", strings.TrimRight(a.BaseURL, "/"), a.Country, page)

	params := url.Values{}
	params.Set("app_id", a.AppID)
	params.Set("app_key", a.AppKey)
	params.Set("results_per_page", strconv.Itoa(adzunaPageSize))
	params.Set("what", title)
	if location != "" {
		params.Set("where", location)
	}
	params.Set("content-type", "application/json")
	params.Set("sort_by", "date")

	req, err := http.NewRequestWithContext(ctx, http.MethodGet, endpoint+"?"+params.Encode(), nil)
	if err != nil {
		return nil, err
	}
	req.Header.Set("Accept", "application/json")

	resp, err := a.client.Do(req)
	if err != nil {
		return nil, fmt.Errorf("http GET: %w", err)
	}
	defer resp.Body.Close()

	body, err := io.ReadAll(resp.Body)
	if err != nil {
		return nil, fmt.Errorf("read body: %w", err)
	}
	if resp.StatusCode != http.StatusOK {
		return nil, fmt.Errorf("adzuna returned %d: %s", resp.StatusCode, string(body))
	}

	var apiResp adzunaResponse
	if err := json.Unmarshal(body, &apiResp); err != nil {
		return nil, fmt.Errorf("json unmarshal: %w", err)
	}

	jobs := make([]model.Job, 0, len(apiResp.Results))
	for _, r := range apiResp.Results {
		job := model.Job{
			Title:       strings.TrimSpace(r.Title),
			Company:     r.Company.DisplayName,
			Location:    r.Location.DisplayName,
			Description: keywords.CleanHTML(r.Description),
			Link:        r.RedirectURL,
			Source:      a.Name(),
		}
		if r.SalaryMin > 0 || r.SalaryMax > 0 {
			lo, hi := r.SalaryMin, r.SalaryMax
			if lo == 0 {
				lo = hi
			}
			if hi == 0 {
				hi = lo
			}
			job.Salary = model.RangeSalary(lo, hi)
		}
		jobs = append(jobs, job)
	}
	return jobs, nil
}
