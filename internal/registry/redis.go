// internal/registry/redis.go
package registry

import (
	"context"
	"encoding/json"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"

	commonerrors "loanflow/internal/common/errors"
	"loanflow/internal/models"
)

const keyPrefix = "loanflow:conversation:"

// RedisRegistry persists conversation state as JSON blobs in Redis with a
// sliding TTL. Every Put refreshes the TTL, so an active conversation never
// expires mid-flight.
type RedisRegistry struct {
	client *redis.Client
	ttl    time.Duration
	now    func() time.Time
}

func NewRedisRegistry(client *redis.Client, ttl time.Duration) *RedisRegistry {
	if ttl <= 0 {
		ttl = 24 * time.Hour
	}
	return &RedisRegistry{
		client: client,
		ttl:    ttl,
		now:    func() time.Time { return time.Now().UTC() },
	}
}

func (r *RedisRegistry) Create(ctx context.Context) (*models.ConversationState, error) {
	state := models.NewConversationState(uuid.New().String(), r.now())
	if err := r.Put(ctx, state); err != nil {
		return nil, err
	}
	return state, nil
}

func (r *RedisRegistry) Get(ctx context.Context, id string) (*models.ConversationState, error) {
	data, err := r.client.Get(ctx, keyPrefix+id).Bytes()
	if err == redis.Nil {
		return nil, commonerrors.NewConversationNotFoundError(id)
	}
	if err != nil {
		return nil, commonerrors.NewDatabaseFailedError("registry get", err)
	}
	var state models.ConversationState
	if err := json.Unmarshal(data, &state); err != nil {
		return nil, commonerrors.NewDatabaseFailedError("registry decode", err)
	}
	return &state, nil
}

func (r *RedisRegistry) Put(ctx context.Context, state *models.ConversationState) error {
	data, err := json.Marshal(state)
	if err != nil {
		return err
	}
	if err := r.client.Set(ctx, keyPrefix+state.ID, data, r.ttl).Err(); err != nil {
		return commonerrors.NewDatabaseFailedError("registry put", err)
	}
	return nil
}
