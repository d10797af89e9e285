package dedup

//go:generate go run go.uber.org/mock/mockgen -source=./dedup.go -destination=./mocks/dedup_mock.go -package=mocks

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
	"github.com/rs/zerolog/log"
)

const keyPrefix = "dedup:message:"

// Registry is a time-windowed set of already-processed message identifiers,
// used to drop at-least-once webhook redeliveries. Remember reports whether
// id is seen for the first time within the window. A genuinely new id must
// never be reported as a duplicate; occasionally reprocessing a very late
// duplicate is acceptable, since the booking state machine guards downstream.
type Registry interface {
	Remember(ctx context.Context, id string) (first bool, err error)
}

type redisRegistry struct {
	client *redis.Client
	ttl    time.Duration
}

// NewRedisRegistry returns a Registry backed by redis SET NX, safe across
// service instances. On redis failure the id is treated as unseen; the error
// is returned for logging.
func NewRedisRegistry(client *redis.Client, ttl time.Duration) Registry {
	return &redisRegistry{
		client: client,
		ttl:    ttl,
	}
}

func (r *redisRegistry) Remember(ctx context.Context, id string) (bool, error) {
	first, err := r.client.SetNX(ctx, keyPrefix+id, 1, r.ttl).Result()
	if err != nil {
		log.Error().Err(err).Str("messageID", id).Msg("failed to record message id, treating as unseen")

		return true, fmt.Errorf("failed to record message id: %w", err)
	}

	return first, nil
}

type memoryRegistry struct {
	mu   sync.Mutex
	seen map[string]time.Time
	ttl  time.Duration
	now  func() time.Time
}

// NewMemoryRegistry returns a single-process Registry sweeping expired entries
// lazily on each call.
func NewMemoryRegistry(ttl time.Duration) Registry {
	return &memoryRegistry{
		seen: make(map[string]time.Time),
		ttl:  ttl,
		now:  time.Now,
	}
}

func (r *memoryRegistry) Remember(_ context.Context, id string) (bool, error) {
	r.mu.Lock()
	defer r.mu.Unlock()

	now := r.now()

	for key, insertedAt := range r.seen {
		if now.Sub(insertedAt) > r.ttl {
			delete(r.seen, key)
		}
	}

	if _, ok := r.seen[id]; ok {
		return false, nil
	}

	r.seen[id] = now

	return true, nil
}
