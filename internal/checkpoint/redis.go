package checkpoint

import (
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"time"

	"github.com/go-redis/redis/v8"

	"github.com/aaeenbot/constitution-agent/internal/agent"
)

const keyPrefix = "conversation:"

// RedisStore persists conversation state as JSON in Redis so a suspended
// conversation survives process restarts. A zero TTL keeps entries forever;
// a positive TTL lets abandoned conversations expire on their own.
type RedisStore struct {
	client *redis.Client
	ttl    time.Duration
}

func NewRedisStore(addr, password string, db int, ttl time.Duration) (*RedisStore, error) {
	client := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if _, err := client.Ping(ctx).Result(); err != nil {
		return nil, fmt.Errorf("failed to connect to Redis: %w", err)
	}

	return &RedisStore{client: client, ttl: ttl}, nil
}

func (r *RedisStore) Save(ctx context.Context, s *agent.State) error {
	data, err := json.Marshal(s)
	if err != nil {
		return fmt.Errorf("marshal conversation %s: %w", s.ConversationID, err)
	}
	if err := r.client.Set(ctx, keyPrefix+s.ConversationID, data, r.ttl).Err(); err != nil {
		return fmt.Errorf("save conversation %s: %w", s.ConversationID, err)
	}
	return nil
}

func (r *RedisStore) Load(ctx context.Context, conversationID string) (*agent.State, error) {
	data, err := r.client.Get(ctx, keyPrefix+conversationID).Bytes()
	if errors.Is(err, redis.Nil) {
		return nil, agent.ErrConversationNotFound
	}
	if err != nil {
		return nil, fmt.Errorf("load conversation %s: %w", conversationID, err)
	}

	var s agent.State
	if err := json.Unmarshal(data, &s); err != nil {
		return nil, fmt.Errorf("unmarshal conversation %s: %w", conversationID, err)
	}
	return &s, nil
}

func (r *RedisStore) Close() error {
	return r.client.Close()
}
