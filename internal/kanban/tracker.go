package kanban

import (
	"context"
	"log/slog"
	"sort"
	"sync"
	"time"

	"jobmate/jobtracker/internal/apperr"
	"jobmate/jobtracker/internal/jsonfile"
)

// ─── Tracker ─────────────────────────────────────────────────────────────────

// JobLookup answers whether a job id is known. *jobstore.Store satisfies it.
type JobLookup interface {
	Exists(ctx context.Context, id string) (bool, error)
}

// Options configures a Tracker.
type Options struct {
	// Path of status_history.json. Required.
	Path string
	File jsonfile.Options
	// Jobs, when set, makes transitions for unknown job ids fail with NotFound.
	Jobs   JobLookup
	Now    func() time.Time
	Logger *slog.Logger
}

// Tracker owns every StatusHistory. All histories are held in memory and the
// whole set is rewritten to disk after each mutation; a failed write rolls
// the in-memory change back.
type Tracker struct {
	mu        sync.Mutex
	file      *jsonfile.File
	fileOpts  jsonfile.Options
	histories map[string]*StatusHistory
	createdAt time.Time
	jobs      JobLookup
	now       func() time.Time
	log       *slog.Logger
}

type historyDocument struct {
	CreatedAt   time.Time        `json:"created_at"`
	LastUpdated time.Time        `json:"last_updated"`
	Histories   []*StatusHistory `json:"histories"`
}

// Open loads the persisted histories. An unreadable document is logged and
// treated as empty.
func Open(ctx context.Context, opts Options) (*Tracker, error) {
	if opts.Path == "" {
		return nil, apperr.Configf("kanban: status history path is required")
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	logger = logger.With("component", "kanban")
	now := opts.Now
	if now == nil {
		now = time.Now
	}
	fileOpts := opts.File
	fileOpts.Logger = logger

	t := &Tracker{
		file:      jsonfile.New(opts.Path, fileOpts),
		fileOpts:  fileOpts,
		histories: make(map[string]*StatusHistory),
		createdAt: now().UTC(),
		jobs:      opts.Jobs,
		now:       now,
		log:       logger,
	}

	var doc historyDocument
	found, err := t.file.Read(ctx, &doc)
	switch {
	case err != nil:
		t.log.Warn("status history unreadable, starting empty", "path", opts.Path, "err", err)
	case found:
		if !doc.CreatedAt.IsZero() {
			t.createdAt = doc.CreatedAt
		}
		for _, h := range doc.Histories {
			if h == nil || h.JobID == "" {
				continue
			}
			if h.Transitions == nil {
				h.Transitions = []Transition{}
			}
			t.histories[h.JobID] = h
		}
	}
	return t, nil
}

// CreateHistory starts a history for jobID. It is idempotent: an existing
// history is returned unchanged. An initial status other than Pending is
// recorded as a bootstrap transition.
func (t *Tracker) CreateHistory(ctx context.Context, jobID string, initial Status) (*StatusHistory, error) {
	if jobID == "" {
		return nil, apperr.ValidationField("job_id", "job id is required")
	}
	if initial == StatusNone {
		initial = StatusPending
	}
	if _, err := ParseStatus(string(initial)); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if h, ok := t.histories[jobID]; ok {
		return h.Clone(), nil
	}
	if err := t.checkJob(ctx, jobID); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	h := newHistory(jobID, now)
	if initial != StatusPending {
		h.record(StatusNone, initial, now, "", "")
	}
	t.histories[jobID] = h

	if err := t.persist(ctx); err != nil {
		delete(t.histories, jobID)
		return nil, err
	}
	return h.Clone(), nil
}

// TransitionRequest is one requested status change.
type TransitionRequest struct {
	JobID  string
	Status Status
	Notes  string
	UserID string
	// SkipValidation bypasses the state machine for administrative corrections.
	SkipValidation bool
}

// AddTransition appends a transition, creating the history if needed.
// A move the state machine forbids returns a TransitionRejected error and
// leaves the history unchanged.
func (t *Tracker) AddTransition(ctx context.Context, req TransitionRequest) (*StatusHistory, error) {
	if req.JobID == "" {
		return nil, apperr.ValidationField("job_id", "job id is required")
	}
	if _, err := ParseStatus(string(req.Status)); err != nil {
		return nil, err
	}

	t.mu.Lock()
	defer t.mu.Unlock()

	if err := t.checkJob(ctx, req.JobID); err != nil {
		return nil, err
	}

	now := t.now().UTC()
	from := StatusNone
	h, existed := t.histories[req.JobID]
	if existed {
		from = h.CurrentStatus
	} else {
		h = newHistory(req.JobID, now)
	}

	if !req.SkipValidation && !IsTransitionAllowed(from, req.Status) {
		t.log.Warn("status transition rejected",
			"job_id", req.JobID, "from", displayStatus(from), "to", req.Status)
		return nil, apperr.Rejectedf("transition %s → %s is not allowed", displayStatus(from), req.Status)
	}

	prev := h.Clone()
	h.record(from, req.Status, now, req.Notes, req.UserID)
	t.histories[req.JobID] = h

	if err := t.persist(ctx); err != nil {
		if existed {
			t.histories[req.JobID] = prev
		} else {
			delete(t.histories, req.JobID)
		}
		return nil, err
	}

	t.log.Info("status transition recorded",
		"job_id", req.JobID, "from", displayStatus(from), "to", req.Status, "user_id", req.UserID)
	return h.Clone(), nil
}

// Transition parses raw at the boundary and applies it with validation.
func (t *Tracker) Transition(ctx context.Context, jobID, raw, notes, userID string) (*StatusHistory, error) {
	status, err := ParseStatus(raw)
	if err != nil {
		return nil, err
	}
	return t.AddTransition(ctx, TransitionRequest{JobID: jobID, Status: status, Notes: notes, UserID: userID})
}

// BulkItem is one entry of a bulk update. Status is parsed per item.
type BulkItem struct {
	JobID  string `json:"job_id"`
	Status string `json:"status"`
	Notes  string `json:"notes,omitempty"`
	UserID string `json:"user_id,omitempty"`
}

// BulkError describes one failed bulk item.
type BulkError struct {
	JobID  string      `json:"job_id"`
	Status string      `json:"status"`
	Kind   apperr.Kind `json:"kind"`
	Error  string      `json:"error"`
}

// BulkResult summarizes a bulk update.
type BulkResult struct {
	Total      int         `json:"total"`
	Successful int         `json:"successful"`
	Failed     int         `json:"failed"`
	Errors     []BulkError `json:"errors"`
}

// BulkUpdate applies each item independently; a failing item never aborts
// the rest.
func (t *Tracker) BulkUpdate(ctx context.Context, items []BulkItem) BulkResult {
	res := BulkResult{Total: len(items), Errors: []BulkError{}}
	for _, it := range items {
		if _, err := t.Transition(ctx, it.JobID, it.Status, it.Notes, it.UserID); err != nil {
			res.Failed++
			res.Errors = append(res.Errors, BulkError{
				JobID:  it.JobID,
				Status: it.Status,
				Kind:   apperr.KindOf(err),
				Error:  err.Error(),
			})
			continue
		}
		res.Successful++
	}
	return res
}

// ─── Queries ─────────────────────────────────────────────────────────────────

// History returns a copy of the history for jobID.
func (t *Tracker) History(jobID string) (*StatusHistory, error) {
	t.mu.Lock()
	defer t.mu.Unlock()

	h, ok := t.histories[jobID]
	if !ok {
		return nil, apperr.NotFoundf("no status history for job %q", jobID)
	}
	return h.Clone(), nil
}

// CurrentStatus returns the job's status.
func (t *Tracker) CurrentStatus(jobID string) (Status, error) {
	h, err := t.History(jobID)
	if err != nil {
		return StatusNone, err
	}
	return h.CurrentStatus, nil
}

// StatusAtDate reconstructs the job's status at a past instant. Before the
// history existed it is StatusNone.
func (t *Tracker) StatusAtDate(jobID string, at time.Time) (Status, error) {
	h, err := t.History(jobID)
	if err != nil {
		return StatusNone, err
	}
	return h.StatusAt(at), nil
}

// TransitionCount returns the number of recorded transitions.
func (t *Tracker) TransitionCount(jobID string) (int, error) {
	h, err := t.History(jobID)
	if err != nil {
		return 0, err
	}
	return len(h.Transitions), nil
}

// DaysInCurrentStatus returns the whole days since the job entered its
// current status.
func (t *Tracker) DaysInCurrentStatus(jobID string) (int, error) {
	h, err := t.History(jobID)
	if err != nil {
		return 0, err
	}
	return h.DaysInCurrentStatus(t.now().UTC()), nil
}

// DurationInStatus returns the total time the job has spent in status.
func (t *Tracker) DurationInStatus(jobID string, status Status) (time.Duration, error) {
	h, err := t.History(jobID)
	if err != nil {
		return 0, err
	}
	return h.DurationIn(status, t.now().UTC()), nil
}

// JobsByStatus returns the sorted ids of jobs currently in status.
func (t *Tracker) JobsByStatus(status Status) []string {
	t.mu.Lock()
	defer t.mu.Unlock()

	ids := []string{}
	for id, h := range t.histories {
		if h.CurrentStatus == status {
			ids = append(ids, id)
		}
	}
	sort.Strings(ids)
	return ids
}

// ─── Persistence ─────────────────────────────────────────────────────────────

func (t *Tracker) checkJob(ctx context.Context, jobID string) error {
	if t.jobs == nil {
		return nil
	}
	ok, err := t.jobs.Exists(ctx, jobID)
	if err != nil {
		return err
	}
	if !ok {
		return apperr.NotFoundf("job %q not found", jobID)
	}
	return nil
}

// snapshot returns the document for the current state, histories sorted by
// job id. Callers hold t.mu.
func (t *Tracker) snapshot() historyDocument {
	doc := historyDocument{
		CreatedAt:   t.createdAt,
		LastUpdated: t.now().UTC(),
		Histories:   make([]*StatusHistory, 0, len(t.histories)),
	}
	for _, h := range t.histories {
		doc.Histories = append(doc.Histories, h)
	}
	sort.Slice(doc.Histories, func(i, j int) bool {
		return doc.Histories[i].JobID < doc.Histories[j].JobID
	})
	return doc
}

func (t *Tracker) persist(ctx context.Context) error {
	if err := t.file.Write(ctx, t.snapshot()); err != nil {
		t.log.Error("failed to persist status history", "err", err)
		return err
	}
	return nil
}

func displayStatus(s Status) string {
	if s == StatusNone {
		return "none"
	}
	return string(s)
}
