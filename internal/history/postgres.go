package history

import (
	"context"
	"fmt"

	"github.com/jackc/pgx/v5"
	"github.com/jackc/pgx/v5/pgxpool"
	"github.com/kiranshivaraju/a1gen/pkg/models"
)

// PostgresStore implements Store on the history_entries table.
// Ordering is by the serial id, so newest first is id DESC.
type PostgresStore struct {
	pool *pgxpool.Pool
}

// NewPostgresStore creates a new PostgresStore. The store owns the pool.
func NewPostgresStore(pool *pgxpool.Pool) *PostgresStore {
	return &PostgresStore{pool: pool}
}

// Ping checks database connectivity.
func (s *PostgresStore) Ping(ctx context.Context) error {
	return s.pool.Ping(ctx)
}

func (s *PostgresStore) Close() error {
	s.pool.Close()
	return nil
}

func (s *PostgresStore) Append(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	entry = normalize(entry)

	_, err := s.pool.Exec(ctx,
		`INSERT INTO history_entries (user_id, "timestamp", task_id, status, input_image, result_images)
		 VALUES ($1, $2, $3, $4, $5, $6)`,
		userID, entry.Timestamp, entry.TaskID, entry.Status, entry.InputImage, entry.ResultImages)
	if err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (s *PostgresStore) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT "timestamp", task_id, status, input_image, result_images
		 FROM history_entries WHERE user_id = $1 ORDER BY id DESC`, userID)
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries, err := pgx.CollectRows(rows, pgx.RowToStructByName[models.HistoryEntry])
	if err != nil {
		return nil, fmt.Errorf("scan history: %w", err)
	}
	for i := range entries {
		entries[i] = normalize(entries[i])
	}
	return entries, nil
}

func (s *PostgresStore) Load(ctx context.Context) (map[string][]models.HistoryEntry, error) {
	rows, err := s.pool.Query(ctx,
		`SELECT user_id, "timestamp", task_id, status, input_image, result_images
		 FROM history_entries ORDER BY user_id, id DESC`)
	if err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	defer rows.Close()

	doc := make(map[string][]models.HistoryEntry)
	for rows.Next() {
		var (
			userID string
			e      models.HistoryEntry
		)
		if err := rows.Scan(&userID, &e.Timestamp, &e.TaskID, &e.Status, &e.InputImage, &e.ResultImages); err != nil {
			return nil, fmt.Errorf("scan history: %w", err)
		}
		doc[userID] = append(doc[userID], normalize(e))
	}
	if err := rows.Err(); err != nil {
		return nil, fmt.Errorf("load history: %w", err)
	}
	return doc, nil
}

// Compile-time check that PostgresStore implements Store.
var _ Store = (*PostgresStore)(nil)
