package state

import (
	"context"
	"errors"
	"fmt"
	"strconv"

	"github.com/redis/go-redis/v9"
)

const PendingDownloadsPrefix = "storefront:pending:downloads:"

// releaseScript decrements and drops the key at zero in one step, so a concurrent
// INCR can never land between the two.
var releaseScript = redis.NewScript(`
local n = redis.call('DECR', KEYS[1])
if n <= 0 then
	redis.call('DEL', KEYS[1])
end
return n
`)

// PendingDownloads tracks increments that were accepted but not yet applied remotely.
type PendingDownloads interface {
	Add(ctx context.Context, itemID string) error
	Release(ctx context.Context, itemID string) error
	Pending(ctx context.Context, itemIDs []string) (map[string]int, error)
}

type redisPendingDownloads struct {
	redisClient redis.Cmdable
	keyPrefix   string
}

func NewRedisPendingDownloads(redisClient redis.Cmdable) PendingDownloads {
	return &redisPendingDownloads{
		redisClient: redisClient,
		keyPrefix:   PendingDownloadsPrefix,
	}
}

func (s *redisPendingDownloads) key(itemID string) string {
	return s.keyPrefix + itemID
}

func (s *redisPendingDownloads) Add(ctx context.Context, itemID string) error {
	if err := s.redisClient.Incr(ctx, s.key(itemID)).Err(); err != nil {
		return fmt.Errorf("failed to add pending download for %s: %w", itemID, err)
	}
	return nil
}

// Release drops one pending download. The key is removed once it reaches zero.
func (s *redisPendingDownloads) Release(ctx context.Context, itemID string) error {
	if err := releaseScript.Run(ctx, s.redisClient, []string{s.key(itemID)}).Err(); err != nil {
		return fmt.Errorf("failed to release pending download for %s: %w", itemID, err)
	}
	return nil
}

// Pending returns the positive tallies for itemIDs. Items without one are absent.
func (s *redisPendingDownloads) Pending(ctx context.Context, itemIDs []string) (map[string]int, error) {
	counts := make(map[string]int)
	if len(itemIDs) == 0 {
		return counts, nil
	}

	keys := make([]string, len(itemIDs))
	for i, id := range itemIDs {
		keys[i] = s.key(id)
	}

	vals, err := s.redisClient.MGet(ctx, keys...).Result()
	if err != nil {
		if errors.Is(err, redis.Nil) {
			return counts, nil
		}
		return nil, fmt.Errorf("failed to get pending downloads: %w", err)
	}

	for i, val := range vals {
		str, ok := val.(string)
		if !ok {
			continue // missing key
		}
		n, err := strconv.Atoi(str)
		if err != nil {
			return nil, fmt.Errorf("failed to parse pending downloads for %s: %w", itemIDs[i], err)
		}
		if n > 0 {
			counts[itemIDs[i]] = n
		}
	}

	return counts, nil
}
