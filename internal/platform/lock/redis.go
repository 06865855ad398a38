package lock

import (
	"context"
	"crypto/rand"
	"encoding/hex"
	"fmt"
	"sync"
	"time"

	"github.com/redis/go-redis/v9"
)

const retryInterval = 25 * time.Millisecond

// releaseScript deletes the key only while it still holds our token so a
// holder whose TTL lapsed cannot free a lock taken over by someone else.
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0
`)

// Redis is a Locker shared by every server instance pointed at the same
// Redis. Locks expire after ttl if the holder dies.
type Redis struct {
	rdb    redis.UniversalClient
	ttl    time.Duration
	wait   time.Duration
	prefix string
}

func NewRedis(rdb redis.UniversalClient, ttl, wait time.Duration) *Redis {
	if ttl <= 0 {
		ttl = 10 * time.Second
	}
	return &Redis{rdb: rdb, ttl: ttl, wait: wait, prefix: "vaxadmin:lock:"}
}

func (r *Redis) Acquire(ctx context.Context, key string) (ReleaseFunc, error) {
	token, err := newToken()
	if err != nil {
		return nil, err
	}
	full := r.prefix + key

	waitCtx, cancel := waitContext(ctx, r.wait)
	defer cancel()

	ticker := time.NewTicker(retryInterval)
	defer ticker.Stop()
	for {
		ok, err := r.rdb.SetNX(waitCtx, full, token, r.ttl).Result()
		if err != nil && waitCtx.Err() == nil {
			return nil, fmt.Errorf("redis lock %s: %w", key, err)
		}
		if ok {
			break
		}
		select {
		case <-waitCtx.Done():
			return nil, acquireErr(ctx, key)
		case <-ticker.C:
		}
	}

	var once sync.Once
	return func(ctx context.Context) error {
		var err error
		once.Do(func() {
			err = releaseScript.Run(ctx, r.rdb, []string{full}, token).Err()
		})
		return err
	}, nil
}

func newToken() (string, error) {
	b := make([]byte, 16)
	if _, err := rand.Read(b); err != nil {
		return "", fmt.Errorf("generate lock token: %w", err)
	}
	return hex.EncodeToString(b), nil
}
