package memory

import (
	"context"
	"encoding/json"
	"fmt"

	"github.com/go-redis/redis/v8"
)

const defaultRedisKey = "echotutor:conversation"

// RedisStore persists the conversation across process restarts with the
// same bound and FIFO eviction as the in-process ring.
type RedisStore struct {
	client   *redis.Client
	key      string
	maxTurns int
}

func NewRedisStore(client *redis.Client, maxTurns int) *RedisStore {
	if maxTurns <= 0 {
		maxTurns = 1
	}
	return &RedisStore{
		client:   client,
		key:      defaultRedisKey,
		maxTurns: maxTurns,
	}
}

func (s *RedisStore) Add(ctx context.Context, turn Turn) error {
	data, err := json.Marshal(turn)
	if err != nil {
		return fmt.Errorf("marshal turn: %w", err)
	}

	pipe := s.client.TxPipeline()
	pipe.RPush(ctx, s.key, data)
	pipe.LTrim(ctx, s.key, int64(-s.maxTurns), -1)
	if _, err := pipe.Exec(ctx); err != nil {
		return fmt.Errorf("append turn: %w", err)
	}
	return nil
}

func (s *RedisStore) History(ctx context.Context) ([]Turn, error) {
	values, err := s.client.LRange(ctx, s.key, 0, -1).Result()
	if err != nil {
		return nil, fmt.Errorf("read conversation history: %w", err)
	}

	turns := make([]Turn, 0, len(values))
	for _, value := range values {
		var turn Turn
		if err := json.Unmarshal([]byte(value), &turn); err != nil {
			return nil, fmt.Errorf("unmarshal turn: %w", err)
		}
		turns = append(turns, turn)
	}
	return turns, nil
}

func (s *RedisStore) Clear(ctx context.Context) error {
	if err := s.client.Del(ctx, s.key).Err(); err != nil {
		return fmt.Errorf("clear conversation history: %w", err)
	}
	return nil
}

var _ Store = (*RedisStore)(nil)
