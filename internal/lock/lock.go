// Package lock provides the best-effort mutual exclusion used by background
// workers so that only one replica runs a tick at a time.
package lock

import (
	"context"
	"fmt"
	"sync"
	"time"

	"github.com/google/uuid"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// Locker acquires a named lease. ok is false when another holder owns it.
type Locker interface {
	TryLock(ctx context.Context, key string, ttl time.Duration) (release func(), ok bool, err error)
}

// compare-and-delete so a holder never releases a lease it lost to expiry
var releaseScript = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
	return redis.call("DEL", KEYS[1])
end
return 0
`)

type Redis struct {
	client *redis.Client
	prefix string
	logger *zap.Logger
}

func NewRedis(client *redis.Client, prefix string, logger *zap.Logger) *Redis {
	if logger == nil {
		logger = zap.NewNop()
	}
	return &Redis{client: client, prefix: prefix, logger: logger}
}

// Connect dials Redis and verifies connectivity.
func Connect(ctx context.Context, addr, password string, db int) (*redis.Client, error) {
	rdb := redis.NewClient(&redis.Options{
		Addr:     addr,
		Password: password,
		DB:       db,
	})
	if err := rdb.Ping(ctx).Err(); err != nil {
		rdb.Close()
		return nil, fmt.Errorf("redis ping: %w", err)
	}
	return rdb, nil
}

func (r *Redis) TryLock(ctx context.Context, key string, ttl time.Duration) (func(), bool, error) {
	full := r.prefix + key
	token := uuid.NewString()

	ok, err := r.client.SetNX(ctx, full, token, ttl).Result()
	if err != nil {
		return nil, false, fmt.Errorf("lock %s: %w", full, err)
	}
	if !ok {
		return nil, false, nil
	}

	release := func() {
		ctx, cancel := context.WithTimeout(context.Background(), 2*time.Second)
		defer cancel()
		if err := releaseScript.Run(ctx, r.client, []string{full}, token).Err(); err != nil {
			r.logger.Warn("lock release failed", zap.String("key", full), zap.Error(err))
		}
	}
	return release, true, nil
}

// Local is an in-process Locker for single-replica deployments and tests.
type Local struct {
	mu     sync.Mutex
	leases map[string]time.Time
	now    func() time.Time
}

func NewLocal() *Local {
	return &Local{leases: make(map[string]time.Time), now: time.Now}
}

func (l *Local) TryLock(_ context.Context, key string, ttl time.Duration) (func(), bool, error) {
	l.mu.Lock()
	defer l.mu.Unlock()

	now := l.now()
	if until, held := l.leases[key]; held && now.Before(until) {
		return nil, false, nil
	}
	until := now.Add(ttl)
	l.leases[key] = until

	release := func() {
		l.mu.Lock()
		defer l.mu.Unlock()
		if l.leases[key].Equal(until) {
			delete(l.leases, key)
		}
	}
	return release, true, nil
}
