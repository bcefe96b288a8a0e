package jobstore

import (
	"context"
	"time"
)

// Metadata tracks ingestion activity over the store's lifetime.
type Metadata struct {
	CreatedAt         time.Time `json:"created_at"`
	LastUpdated       time.Time `json:"last_updated"`
	TotalScrapes      int       `json:"total_scrapes"`
	SuccessfulScrapes int       `json:"successful_scrapes"`
	FailedScrapes     int       `json:"failed_scrapes"`
}

// ErrorEntry is one failed operation in the error log.
type ErrorEntry struct {
	Timestamp time.Time `json:"timestamp"`
	Operation string    `json:"operation"`
	Error     string    `json:"error"`
}

type errorsDocument struct {
	Errors []ErrorEntry `json:"errors"`
}

// Metadata returns the ingestion counters. Unreadable metadata yields the
// zero value.
func (s *Store) Metadata(ctx context.Context) Metadata {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readMetadata(ctx)
}

// RecordScrape counts one ingestion run.
func (s *Store) RecordScrape(ctx context.Context, success bool) error {
	s.mu.Lock()
	defer s.mu.Unlock()

	m := s.readMetadata(ctx)
	m.TotalScrapes++
	if success {
		m.SuccessfulScrapes++
	} else {
		m.FailedScrapes++
	}
	m.LastUpdated = s.now().UTC()
	return s.meta.Write(ctx, m)
}

func (s *Store) readMetadata(ctx context.Context) Metadata {
	var m Metadata
	if _, err := s.meta.Read(ctx, &m); err != nil {
		s.log.Warn("metadata unreadable, using defaults", "err", err)
		return Metadata{}
	}
	return m
}

// touch bumps last_updated after a successful jobs write. Failures are only
// logged; the jobs document is already durable.
func (s *Store) touch(ctx context.Context) {
	m := s.readMetadata(ctx)
	now := s.now().UTC()
	if m.CreatedAt.IsZero() {
		m.CreatedAt = now
	}
	m.LastUpdated = now
	if err := s.meta.Write(ctx, m); err != nil {
		s.log.Warn("failed to update metadata", "err", err)
	}
}

// LogError appends a failed operation to the bounded error log.
func (s *Store) LogError(ctx context.Context, operation string, err error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	s.recordError(ctx, operation, err)
}

// Errors returns the error log, oldest first.
func (s *Store) Errors(ctx context.Context) []ErrorEntry {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.readErrors(ctx)
}

func (s *Store) readErrors(ctx context.Context) []ErrorEntry {
	var doc errorsDocument
	if _, err := s.errs.Read(ctx, &doc); err != nil {
		s.log.Warn("error log unreadable, starting fresh", "err", err)
		return []ErrorEntry{}
	}
	if doc.Errors == nil {
		return []ErrorEntry{}
	}
	return doc.Errors
}

func (s *Store) recordError(ctx context.Context, operation string, err error) {
	if err == nil {
		return
	}
	s.log.Error("job store operation failed", "operation", operation, "err", err)

	entries := append(s.readErrors(ctx), ErrorEntry{
		Timestamp: s.now().UTC(),
		Operation: operation,
		Error:     err.Error(),
	})
	if over := len(entries) - s.capacity; over > 0 {
		entries = entries[over:]
	}
	if werr := s.errs.Write(ctx, errorsDocument{Errors: entries}); werr != nil {
		s.log.Warn("failed to persist error log", "err", werr)
	}
}
