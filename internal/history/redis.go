package history

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/kiranshivaraju/a1gen/pkg/models"
	"github.com/redis/go-redis/v9"
)

// RedisStore keeps one Redis list per user. LPUSH gives an atomic prepend,
// so concurrent appends need no client-side locking.
type RedisStore struct {
	client *redis.Client
}

// NewRedisStore creates a RedisStore from a Redis URL.
func NewRedisStore(redisURL string) (*RedisStore, error) {
	opts, err := redis.ParseURL(redisURL)
	if err != nil {
		return nil, fmt.Errorf("parse redis URL: %w", err)
	}
	return &RedisStore{client: redis.NewClient(opts)}, nil
}

func (s *RedisStore) Ping(ctx context.Context) error {
	return s.client.Ping(ctx).Err()
}

func (s *RedisStore) Close() error {
	return s.client.Close()
}

func (s *RedisStore) Append(ctx context.Context, userID string, entry models.HistoryEntry) error {
	if err := validateUserID(userID); err != nil {
		return err
	}
	data, err := json.Marshal(normalize(entry))
	if err != nil {
		return fmt.Errorf("encode history entry: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.LPush(ctx, UserKey(userID), data)
	pipe.SAdd(ctx, UsersKey, userID)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append history entry: %w", err)
	}
	return nil
}

func (s *RedisStore) List(ctx context.Context, userID string) ([]models.HistoryEntry, error) {
	vals, err := s.client.LRange(ctx, UserKey(userID), 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("list history: %w", err)
	}

	entries := make([]models.HistoryEntry, 0, len(vals))
	for _, v := range vals {
		var e models.HistoryEntry
		if err := json.Unmarshal([]byte(v), &e); err != nil {
			return nil, fmt.Errorf("decode history entry for %s: %w", userID, err)
		}
		entries = append(entries, e)
	}
	return entries, nil
}

func (s *RedisStore) Load(ctx context.Context) (map[string][]models.HistoryEntry, error) {
	users, err := s.client.SMembers(ctx, UsersKey).Result()
	if err != nil {
		return nil, fmt.Errorf("list history users: %w", err)
	}

	doc := make(map[string][]models.HistoryEntry, len(users))
	for _, userID := range users {
		entries, err := s.List(ctx, userID)
		if err != nil {
			return nil, err
		}
		doc[userID] = entries
	}
	return doc, nil
}

// Compile-time check that RedisStore implements Store.
var _ Store = (*RedisStore)(nil)
