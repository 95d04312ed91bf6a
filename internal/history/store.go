// Package history persists per-user generation history, newest entry first.
package history

import (
	"context"
	"errors"
	"fmt"

	"github.com/kiranshivaraju/a1gen/internal/config"
	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/rs/zerolog"
)

var ErrInvalidUserID = errors.New("user id must not be empty")

// Store is the history access interface. Appends are prepend-only: entries
// are never edited or removed once written. Implementations must be safe for
// concurrent use.
type Store interface {
	Load(ctx context.Context) (map[string][]models.HistoryEntry, error)
	Append(ctx context.Context, userID string, entry models.HistoryEntry) error
	List(ctx context.Context, userID string) ([]models.HistoryEntry, error)
	Ping(ctx context.Context) error
	Close() error
}

// NewStore creates the Store selected by cfg.Backend.
func NewStore(ctx context.Context, cfg config.HistoryConfig, logger zerolog.Logger) (Store, error) {
	switch cfg.Backend {
	case "file", "":
		return NewFileStore(cfg.File, WithFileLogger(logger))
	case "redis":
		return NewRedisStore(cfg.RedisURL)
	case "postgres":
		pool, err := Connect(ctx, cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		return NewPostgresStore(pool), nil
	default:
		return nil, fmt.Errorf("unsupported history backend: %q", cfg.Backend)
	}
}

func validateUserID(userID string) error {
	if userID == "" {
		return ErrInvalidUserID
	}
	return nil
}

// normalize applies the read defaults to an entry coming out of storage.
func normalize(e models.HistoryEntry) models.HistoryEntry {
	if e.Status == "" {
		e.Status = models.StatusUnknown
	}
	if e.ResultImages == nil {
		e.ResultImages = []string{}
	}
	return e
}
