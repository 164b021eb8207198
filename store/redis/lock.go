package redis

import (
	"context"
	"fmt"
	"time"

	goredis "github.com/redis/go-redis/v9"
)

// releaseScript deletes the lock key only while its token still
// matches, so a holder that outlived its TTL can never release a
// successor's lock.
var releaseScript = goredis.NewScript(`
if redis.call("get", KEYS[1]) == ARGV[1] then
	return redis.call("del", KEYS[1])
end
return 0
`)

// TryAcquire takes key in one atomic step via SET NX PX. The TTL is
// the safety net: a holder that crashes without releasing self-expires.
func (s *Store) TryAcquire(ctx context.Context, key, token string, ttl time.Duration) (bool, error) {
	ok, err := s.client.SetNX(ctx, lockKey(key), token, ttl).Result()
	if err != nil {
		return false, fmt.Errorf("coalesce/redis: try acquire %q: %w", key, err)
	}
	return ok, nil
}

// Release deletes the entry for key if its token still matches. A
// missing or mismatched entry is not an error.
func (s *Store) Release(ctx context.Context, key, token string) error {
	if err := releaseScript.Run(ctx, s.client, []string{lockKey(key)}, token).Err(); err != nil {
		return fmt.Errorf("coalesce/redis: release %q: %w", key, err)
	}
	return nil
}
