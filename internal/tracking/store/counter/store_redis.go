package counter

import (
	"context"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"

	"doctrack/internal/tracking/models"
	"doctrack/pkg/platform/sentinel"
)

const counterKeyPrefix = "ctr:"

// Redis keeps counters in one hash per (scope, section). Writes are single
// HSET calls; the allocator's keyed lock serializes the surrounding
// read-modify-write, so no Lua script is needed for a single process. For
// multi-replica deployments prefer the Postgres store, whose row locks
// serialize across processes.
type Redis struct {
	client *redis.Client
}

func NewRedis(client *redis.Client) *Redis {
	return &Redis{client: client}
}

func counterKey(scope models.Scope, section string) string {
	return counterKeyPrefix + string(scope) + ":" + section
}

func (s *Redis) Get(ctx context.Context, scope models.Scope, section string) (*models.Counter, error) {
	fields, err := s.client.HGetAll(ctx, counterKey(scope, section)).Result()
	if err != nil {
		return nil, fmt.Errorf("get counter hash: %w", err)
	}
	if len(fields) == 0 {
		return nil, sentinel.ErrNotFound
	}

	current, err := strconv.Atoi(fields["current"])
	if err != nil {
		return nil, fmt.Errorf("counter hash %s holds non-numeric current %q", counterKey(scope, section), fields["current"])
	}
	return &models.Counter{
		Scope:         scope,
		Section:       section,
		CurrentNumber: current,
		LastDateUsed:  fields["last_date"],
	}, nil
}

func (s *Redis) Upsert(ctx context.Context, ctr *models.Counter) error {
	err := s.client.HSet(ctx, counterKey(ctr.Scope, ctr.Section),
		"current", strconv.Itoa(ctr.CurrentNumber),
		"last_date", ctr.LastDateUsed,
	).Err()
	if err != nil {
		return fmt.Errorf("upsert counter hash: %w", err)
	}
	return nil
}
