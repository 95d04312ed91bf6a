package history

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io/fs"
	"os"
	"path/filepath"
	"sync"

	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/rs/zerolog"
)

// FileStore keeps the whole history mapping in one JSON document on disk.
// Every Append rewrites the document through a temp file and rename, under a
// mutex, so concurrent appends never lose updates and a crash mid-write
// leaves the previous document intact.
type FileStore struct {
	path   string
	mu     sync.Mutex
	logger zerolog.Logger
}

// FileOption customizes a FileStore.
type FileOption func(*FileStore)

// WithFileLogger sets the logger used to report unreadable documents.
func WithFileLogger(l zerolog.Logger) FileOption {
	return func(s *FileStore) { s.logger = l }
}

// NewFileStore creates a FileStore backed by path. The parent directory is
// created if needed; the file itself is created on first append.
func NewFileStore(path string, opts ...FileOption) (*FileStore, error) {
	if path == "" {
		return nil, errors.New("history file path must not be empty")
	}
	if dir := filepath.Dir(path); dir != "." {
		if err := os.MkdirAll(dir, 0o755); err != nil {
			return nil, fmt.Errorf("create history directory: %w", err)
		}
	}
	s := &FileStore{path: path, logger: zerolog.Nop()}
	for _, opt := range opts {
		opt(s)
	}
	return s, nil
}

// Path returns the backing file path.
func (s *FileStore) Path() string {
	return s.path
}

func (s *FileStore) Load(ctx context.Context) (map[string][]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	return s.read()
}

func (s *FileStore) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	s.mu.Lock()
	defer s.mu.Unlock()
	doc, err := s.read()
	if err != nil {
		return nil, err
	}
	entries := doc[userID]
	if entries == nil {
		return []models.HistoryEntry{}, nil
	}
	return entries, nil
}

func (s *FileStore) Append(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	if err := ctx.Err(); err != nil {
		return err
	}

	s.mu.Lock()
	defer s.mu.Unlock()

	doc, err := s.read()
	if err != nil {
		return err
	}
	entries := make([]models.HistoryEntry, 0, len(doc[userID])+1)
	entries = append(entries, normalize(entry))
	entries = append(entries, doc[userID]...)
	doc[userID] = entries

	return s.write(doc)
}

// Ping checks that the backing directory is writable.
func (s *FileStore) Ping(ctx context.Context) error {
	f, err := os.CreateTemp(filepath.Dir(s.path), ".history-ping-*")
	if err != nil {
		return fmt.Errorf("history file not writable: %w", err)
	}
	name := f.Name()
	f.Close()
	return os.Remove(name)
}

func (s *FileStore) Close() error {
	return nil
}

// read loads the document. A missing file is an empty mapping; so is a
// corrupt one, which is logged and replaced by the next append.
func (s *FileStore) read() (map[string][]models.HistoryEntry, error) {
	doc := make(map[string][]models.HistoryEntry)

	raw, err := os.ReadFile(s.path)
	if errors.Is(err, fs.ErrNotExist) {
		return doc, nil
	}
	if err != nil {
		return nil, fmt.Errorf("read history file: %w", err)
	}
	if len(raw) == 0 {
		return doc, nil
	}

	if err := json.Unmarshal(raw, &doc); err != nil {
		s.logger.Warn().Err(err).Str("path", s.path).Msg("history file is not valid JSON; starting empty")
		return make(map[string][]models.HistoryEntry), nil
	}
	if doc == nil {
		doc = make(map[string][]models.HistoryEntry)
	}
	return doc, nil
}

func (s *FileStore) write(doc map[string][]models.HistoryEntry) error {
	var buf bytes.Buffer
	enc := json.NewEncoder(&buf)
	enc.SetEscapeHTML(false)
	enc.SetIndent("", "  ")
	if err := enc.Encode(doc); err != nil {
		return fmt.Errorf("encode history: %w", err)
	}

	tmp, err := os.CreateTemp(filepath.Dir(s.path), filepath.Base(s.path)+".tmp-*")
	if err != nil {
		return fmt.Errorf("create temp history file: %w", err)
	}
	tmpName := tmp.Name()
	committed := false
	defer func() {
		if !committed {
			os.Remove(tmpName)
		}
	}()

	if _, err := tmp.Write(buf.Bytes()); err != nil {
		tmp.Close()
		return fmt.Errorf("write temp history file: %w", err)
	}
	if err := tmp.Chmod(0o644); err != nil {
		tmp.Close()
		return fmt.Errorf("chmod temp history file: %w", err)
	}
	if err := tmp.Sync(); err != nil {
		tmp.Close()
		return fmt.Errorf("sync temp history file: %w", err)
	}
	if err := tmp.Close(); err != nil {
		return fmt.Errorf("close temp history file: %w", err)
	}
	if err := os.Rename(tmpName, s.path); err != nil {
		return fmt.Errorf("replace history file: %w", err)
	}
	committed = true
	return nil
}

// Compile-time check that FileStore implements Store.
var _ Store = (*FileStore)(nil)
