package jsonfile

import (
	"context"
	"os"
	"path/filepath"
	"testing"
	"time"

	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"

	"jobmate/jobtracker/internal/apperr"
)

type doc struct {
	Items []string `json:"items"`
	Count int      `json:"count"`
}

func fastOptions() Options {
	return Options{MaxRetries: 3, RetryDelay: time.Millisecond, Timeout: time.Second}
}

func TestWriteThenRead(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "doc.json")
	f := New(path, fastOptions())
	ctx := context.Background()

	require.NoError(t, f.Write(ctx, doc{Items: []string{"a", "b"}, Count: 2}))

	var got doc
	found, err := f.Read(ctx, &got)
	require.NoError(t, err)
	assert.True(t, found)
	assert.Equal(t, doc{Items: []string{"a", "b"}, Count: 2}, got)
}

func TestReadMissingFile(t *testing.T) {
	f := New(filepath.Join(t.TempDir(), "missing.json"), fastOptions())

	got := doc{Count: 7}
	found, err := f.Read(context.Background(), &got)
	require.NoError(t, err)
	assert.False(t, found)
	assert.Equal(t, 7, got.Count, "target must be untouched when the file is absent")
}

func TestReadCorruptFileReturnsPersistenceError(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))
	f := New(path, fastOptions())

	var got doc
	found, err := f.Read(context.Background(), &got)
	require.Error(t, err)
	assert.True(t, found)
	assert.Equal(t, apperr.KindPersistence, apperr.KindOf(err))
	assert.Contains(t, err.Error(), "failed after 3 attempts")
}

func TestWriteLeavesNoTempFiles(t *testing.T) {
	dir := t.TempDir()
	f := New(filepath.Join(dir, "doc.json"), fastOptions())
	ctx := context.Background()

	for i := 0; i < 5; i++ {
		require.NoError(t, f.Write(ctx, doc{Count: i}))
	}

	entries, err := os.ReadDir(dir)
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, "doc.json", entries[0].Name())
}

func TestWriteReplacesWholeDocument(t *testing.T) {
	path := filepath.Join(t.TempDir(), "doc.json")
	f := New(path, fastOptions())
	ctx := context.Background()

	require.NoError(t, f.Write(ctx, doc{Items: []string{"a", "b", "c"}, Count: 3}))
	require.NoError(t, f.Write(ctx, doc{Items: []string{"z"}, Count: 1}))

	var got doc
	_, err := f.Read(ctx, &got)
	require.NoError(t, err)
	assert.Equal(t, []string{"z"}, got.Items)
}

func TestWriteFailureAfterRetries(t *testing.T) {
	dir := t.TempDir()
	blocker := filepath.Join(dir, "blocker")
	require.NoError(t, os.WriteFile(blocker, []byte("x"), 0o644))

	f := New(filepath.Join(blocker, "doc.json"), fastOptions())
	err := f.Write(context.Background(), doc{Count: 1})

	require.Error(t, err)
	assert.True(t, apperr.IsKind(err, apperr.KindPersistence))
}

func TestRetryStopsWhenContextIsDone(t *testing.T) {
	path := filepath.Join(t.TempDir(), "corrupt.json")
	require.NoError(t, os.WriteFile(path, []byte("]"), 0o644))
	f := New(path, Options{MaxRetries: 50, RetryDelay: 50 * time.Millisecond})

	ctx, cancel := context.WithTimeout(context.Background(), 20*time.Millisecond)
	defer cancel()

	start := time.Now()
	var got doc
	_, err := f.Read(ctx, &got)
	require.Error(t, err)
	assert.Less(t, time.Since(start), 2*time.Second)
	assert.ErrorIs(t, err, context.DeadlineExceeded)
}
