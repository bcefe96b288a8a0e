// Package jsonfile persists whole JSON documents with an atomic replace.
//
// A write serializes the document to a temporary file in the target's
// directory, syncs it and renames it over the target, so a reader sees either
// the previous document or the new one in full. Writes and reads are retried
// with a linear backoff (base delay × attempt) bounded by an operation timeout.
package jsonfile

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"log/slog"
	"os"
	"path/filepath"
	"time"

	"jobmate/jobtracker/internal/apperr"
)

// Options tunes the retry policy of a File.
type Options struct {
	// MaxRetries is the number of attempts per operation (minimum 1).
	MaxRetries int
	// RetryDelay is the base backoff; attempt n waits RetryDelay × n.
	RetryDelay time.Duration
	// Timeout bounds one operation including all retries. Zero disables it.
	Timeout time.Duration
	Logger  *slog.Logger
}

// DefaultOptions returns the policy used when a field is left zero.
func DefaultOptions() Options {
	return Options{
		MaxRetries: 3,
		RetryDelay: 100 * time.Millisecond,
		Timeout:    10 * time.Second,
	}
}

// File is one JSON document on disk. It holds no lock; callers serialize
// read-modify-write cycles themselves.
type File struct {
	path string
	opts Options
	log  *slog.Logger
}

// New returns a File for path.
func New(path string, opts Options) *File {
	def := DefaultOptions()
	if opts.MaxRetries <= 0 {
		opts.MaxRetries = def.MaxRetries
	}
	if opts.RetryDelay < 0 {
		opts.RetryDelay = 0
	}
	logger := opts.Logger
	if logger == nil {
		logger = slog.Default()
	}
	return &File{path: path, opts: opts, log: logger.With("file", filepath.Base(path))}
}

// Exists reports whether the document is present on disk.
func (f *File) Exists() bool {
	_, err := os.Stat(f.path)
	return err == nil
}

// Write atomically replaces the document with v.
func (f *File) Write(ctx context.Context, v any) error {
	data, err := json.MarshalIndent(v, "", "  ")
	if err != nil {
		return apperr.Persistence("jsonfile.write", fmt.Errorf("marshal %s: %w", f.path, err))
	}

	err = f.retry(ctx, "write", func() error {
		return writeAtomic(f.path, data)
	})
	if err != nil {
		return apperr.Persistence("jsonfile.write", err)
	}
	return nil
}

// Read decodes the document into v. It reports found=false with a nil error
// when the file does not exist; v is left untouched in that case.
func (f *File) Read(ctx context.Context, v any) (found bool, err error) {
	err = f.retry(ctx, "read", func() error {
		data, rerr := os.ReadFile(f.path)
		if rerr != nil {
			if errors.Is(rerr, fs.ErrNotExist) {
				return errNotExist
			}
			return rerr
		}
		if uerr := json.Unmarshal(data, v); uerr != nil {
			return fmt.Errorf("decode %s: %w", f.path, uerr)
		}
		return nil
	})
	switch {
	case errors.Is(err, errNotExist):
		return false, nil
	case err != nil:
		return true, apperr.Persistence("jsonfile.read", err)
	}
	return true, nil
}

var errNotExist = errors.New("document does not exist")

func (f *File) retry(ctx context.Context, op string, fn func() error) error {
	if f.opts.Timeout > 0 {
		var cancel context.CancelFunc
		ctx, cancel = context.WithTimeout(ctx, f.opts.Timeout)
		defer cancel()
	}

	var lastErr error
	for attempt := 1; attempt <= f.opts.MaxRetries; attempt++ {
		if err := ctx.Err(); err != nil {
			if lastErr != nil {
				return fmt.Errorf("%w (last error: %v)", err, lastErr)
			}
			return err
		}

		lastErr = fn()
		if lastErr == nil || errors.Is(lastErr, errNotExist) {
			return lastErr
		}
		if attempt == f.opts.MaxRetries {
			break
		}

		delay := f.opts.RetryDelay * time.Duration(attempt)
		f.log.Warn("jsonfile operation failed, retrying",
			"op", op, "attempt", attempt, "delay", delay, "err", lastErr)

		timer := time.NewTimer(delay)
		select {
		case <-ctx.Done():
			timer.Stop()
			return fmt.Errorf("%w (last error: %v)", ctx.Err(), lastErr)
		case <-timer.C:
		}
	}
	return fmt.Errorf("%s failed after %d attempts: %w", op, f.opts.MaxRetries, lastErr)
}

func writeAtomic(path string, data []byte) error {
	dir := filepath.Dir(path)
	if err := os.MkdirAll(dir, 0o755); err != nil {
		return fmt.Errorf("mkdir %s: %w", dir, err)
	}

	tmp, err := os.CreateTemp(dir, "."+filepath.Base(path)+".*.tmp")
	if err != nil {
		return fmt.Errorf("create temp: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			_ = os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(data); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("write temp: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		_ = tmp.Close()
		return fmt.Errorf("sync temp: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp: %w", err)
	}
	if err := os.Rename(tmpName, path); err != nil {
		return fmt.Errorf("rename into place: %w", err)
	}
	committed = true
	return nil
}
