package numbering

import (
	"context"
	"fmt"

	"github.com/redis/go-redis/v9"
)

// MaxSequenceFinder reports the highest sequence already persisted for a year.
type MaxSequenceFinder interface {
	MaxSequence(ctx context.Context, year int) (int, error)
}

// Redis shares counters across instances through INCR. A missing counter is
// seeded from persisted data first, so a flushed Redis never reissues numbers.
// Numbers taken by a transaction that later rolls back are skipped.
type Redis struct {
	client    redis.Cmdable
	seeder    MaxSequenceFinder
	keyPrefix string
}

func NewRedis(client redis.Cmdable, seeder MaxSequenceFinder) *Redis {
	return &Redis{client: client, seeder: seeder, keyPrefix: "det:seq:"}
}

func (r *Redis) key(year int) string {
	return fmt.Sprintf("%s%d", r.keyPrefix, year)
}

func (r *Redis) Next(ctx context.Context, year int) (int, error) {
	key := r.key(year)
	exists, err := r.client.Exists(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("check numbering counter: %w", err)
	}
	if exists == 0 {
		floor := 0
		if r.seeder != nil {
			if floor, err = r.seeder.MaxSequence(ctx, year); err != nil {
				return 0, fmt.Errorf("seed numbering counter: %w", err)
			}
		}
		if err := r.client.SetNX(ctx, key, floor, 0).Err(); err != nil {
			return 0, fmt.Errorf("seed numbering counter: %w", err)
		}
	}
	n, err := r.client.Incr(ctx, key).Result()
	if err != nil {
		return 0, fmt.Errorf("increment numbering counter: %w", err)
	}
	return int(n), nil
}
