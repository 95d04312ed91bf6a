package history_test

import (
	"context"
	"encoding/json"
	"fmt"
	"os"
	"path/filepath"
	"sync"
	"testing"

	"github.com/kiranshivaraju/a1gen/internal/history"
	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/stretchr/testify/assert"
	"github.com/stretchr/testify/require"
)

func newFileStore(t *testing.T) (*history.FileStore, string) {
	t.Helper()
	path := filepath.Join(t.TempDir(), "history.json")
	s, err := history.NewFileStore(path)
	require.NoError(t, err)
	return s, path
}

func entry(taskID string) models.HistoryEntry {
	return models.HistoryEntry{
		Timestamp:    "2025-03-01 10:00:00Z",
		TaskID:       taskID,
		Status:       "success",
		InputImage:   "history/u:DEFAULT/2025-03-01 10-00-00Z.png",
		ResultImages: []string{"https://cdn/" + taskID + ".png"},
	}
}

func TestFileStore_LoadMissingFileIsEmpty(t *testing.T) {
	s, _ := newFileStore(t)

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc)
	assert.NotNil(t, doc)
}

func TestFileStore_AppendNewestFirst(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()

	for _, id := range []string{"t1", "t2", "t3"} {
		require.NoError(t, s.Append(ctx, "sess:DEFAULT", entry(id)))
	}

	entries, err := s.List(ctx, "sess:DEFAULT")
	require.NoError(t, err)
	require.Len(t, entries, 3)
	assert.Equal(t, "t3", entries[0].TaskID)
	assert.Equal(t, "t2", entries[1].TaskID)
	assert.Equal(t, "t1", entries[2].TaskID)
}

func TestFileStore_RoundTripPreservesFields(t *testing.T) {
	s, path := newFileStore(t)
	ctx := context.Background()
	want := entry("task-9")
	want.ResultImages = []string{"https://cdn/a.png?x=1&y=2", "https://cdn/b.png"}

	require.NoError(t, s.Append(ctx, "api-DEFAULT", want))

	reopened, err := history.NewFileStore(path)
	require.NoError(t, err)
	doc, err := reopened.Load(ctx)
	require.NoError(t, err)
	require.Len(t, doc["api-DEFAULT"], 1)
	assert.Equal(t, want, doc["api-DEFAULT"][0])
}

func TestFileStore_DocumentFormat(t *testing.T) {
	s, path := newFileStore(t)
	e := entry("t1")
	e.ResultImages = nil

	require.NoError(t, s.Append(context.Background(), "u:P", e))

	raw, err := os.ReadFile(path)
	require.NoError(t, err)

	var doc map[string][]map[string]any
	require.NoError(t, json.Unmarshal(raw, &doc))
	require.Len(t, doc["u:P"], 1)
	got := doc["u:P"][0]
	assert.Equal(t, "2025-03-01 10:00:00Z", got["timestamp"])
	assert.Equal(t, "t1", got["task_id"])
	assert.Equal(t, "success", got["status"])
	assert.Equal(t, []any{}, got["result_images"])
	assert.Contains(t, got, "input_image")
}

func TestFileStore_UsersAreIndependent(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()

	require.NoError(t, s.Append(ctx, "a:DEFAULT", entry("a1")))
	require.NoError(t, s.Append(ctx, "b:DEFAULT", entry("b1")))
	require.NoError(t, s.Append(ctx, "a:DEFAULT", entry("a2")))

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc["a:DEFAULT"], 2)
	assert.Len(t, doc["b:DEFAULT"], 1)

	none, err := s.List(ctx, "c:DEFAULT")
	require.NoError(t, err)
	assert.Empty(t, none)
	assert.NotNil(t, none)
}

func TestFileStore_MissingStatusLoadsAsUnknown(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte(`{"u":[{"timestamp":"x","task_id":"t"}]}`), 0o644))

	entries, err := s.List(context.Background(), "u")
	require.NoError(t, err)
	require.Len(t, entries, 1)
	assert.Equal(t, models.StatusUnknown, entries[0].Status)
	assert.Equal(t, []string{}, entries[0].ResultImages)
}

func TestFileStore_CorruptDocumentLoadsEmpty(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, os.WriteFile(path, []byte("{not json"), 0o644))

	doc, err := s.Load(context.Background())
	require.NoError(t, err)
	assert.Empty(t, doc)

	require.NoError(t, s.Append(context.Background(), "u", entry("t1")))
	entries, err := s.List(context.Background(), "u")
	require.NoError(t, err)
	assert.Len(t, entries, 1)
}

func TestFileStore_ConcurrentAppendsAreNotLost(t *testing.T) {
	s, _ := newFileStore(t)
	ctx := context.Background()

	var wg sync.WaitGroup
	for i := 0; i < 20; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			user := "even"
			if i%2 == 1 {
				user = "odd"
			}
			assert.NoError(t, s.Append(ctx, user, entry(fmt.Sprintf("t%d", i))))
		}(i)
	}
	wg.Wait()

	doc, err := s.Load(ctx)
	require.NoError(t, err)
	assert.Len(t, doc["even"], 10)
	assert.Len(t, doc["odd"], 10)
}

func TestFileStore_NoTempFilesLeftBehind(t *testing.T) {
	s, path := newFileStore(t)
	require.NoError(t, s.Append(context.Background(), "u", entry("t1")))
	require.NoError(t, s.Ping(context.Background()))

	files, err := os.ReadDir(filepath.Dir(path))
	require.NoError(t, err)
	require.Len(t, files, 1)
	assert.Equal(t, "history.json", files[0].Name())
}

func TestFileStore_EmptyUserIDRejected(t *testing.T) {
	s, _ := newFileStore(t)
	err := s.Append(context.Background(), "", entry("t1"))
	assert.ErrorIs(t, err, history.ErrInvalidUserID)
}

func TestFileStore_CreatesParentDirectory(t *testing.T) {
	path := filepath.Join(t.TempDir(), "nested", "dir", "history.json")
	s, err := history.NewFileStore(path)
	require.NoError(t, err)
	require.NoError(t, s.Append(context.Background(), "u", entry("t1")))
	assert.FileExists(t, path)
}

func TestNewFileStore_EmptyPath(t *testing.T) {
	_, err := history.NewFileStore("")
	assert.Error(t, err)
}
