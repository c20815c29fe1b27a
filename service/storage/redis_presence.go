package storage

import (
	"context"
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/pkg/errors"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
)

// presence key: im:presence:<user>, value: connection id.
func presenceKey(user string) string { return "im:presence:" + user }

// Only the connection that owns the key may drop or extend it.
var (
	compareAndDelete = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("DEL", KEYS[1])
end
return 0`)

	compareAndExpire = redis.NewScript(`
if redis.call("GET", KEYS[1]) == ARGV[1] then
  return redis.call("PEXPIRE", KEYS[1], ARGV[2])
end
return 0`)
)

// RedisPresence mirrors the gateway's user to connection map into Redis so
// other processes can tell who is online. Keys expire unless refreshed by Run.
type RedisPresence struct {
	rdb redis.UniversalClient
	ttl time.Duration

	mu    sync.Mutex
	local map[string]string // user -> conn owned by this process
}

func NewRedisPresence(rdb redis.UniversalClient, ttl time.Duration) *RedisPresence {
	if ttl <= 0 {
		ttl = 2 * time.Minute
	}
	return &RedisPresence{rdb: rdb, ttl: ttl, local: make(map[string]string)}
}

// Online marks user as connected through connID, replacing any older entry.
func (p *RedisPresence) Online(ctx context.Context, user, connID string) error {
	p.mu.Lock()
	p.local[user] = connID
	p.mu.Unlock()
	if err := p.rdb.Set(ctx, presenceKey(user), connID, p.ttl).Err(); err != nil {
		return errs.WrapMsg(err, "presence online", "user", user)
	}
	return nil
}

// Offline removes the entry only while it still names connID.
func (p *RedisPresence) Offline(ctx context.Context, user, connID string) error {
	p.mu.Lock()
	if p.local[user] == connID {
		delete(p.local, user)
	}
	p.mu.Unlock()
	if err := compareAndDelete.Run(ctx, p.rdb, []string{presenceKey(user)}, connID).Err(); err != nil {
		return errs.WrapMsg(err, "presence offline", "user", user)
	}
	return nil
}

// Lookup reports the connection a user is online with.
func (p *RedisPresence) Lookup(ctx context.Context, user string) (connID string, online bool, err error) {
	val, err := p.rdb.Get(ctx, presenceKey(user)).Result()
	if errors.Is(err, redis.Nil) {
		return "", false, nil
	}
	if err != nil {
		return "", false, errs.WrapMsg(err, "presence lookup", "user", user)
	}
	return val, true, nil
}

// Run extends the keys owned by this process every ttl/3 until ctx ends.
func (p *RedisPresence) Run(ctx context.Context) {
	t := time.NewTicker(p.ttl / 3)
	defer t.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case <-t.C:
			p.refresh(ctx)
		}
	}
}

func (p *RedisPresence) refresh(ctx context.Context) {
	p.mu.Lock()
	owned := make(map[string]string, len(p.local))
	for u, c := range p.local {
		owned[u] = c
	}
	p.mu.Unlock()

	ttlMs := p.ttl.Milliseconds()
	for user, connID := range owned {
		if err := compareAndExpire.Run(ctx, p.rdb, []string{presenceKey(user)}, connID, ttlMs).Err(); err != nil {
			logger.Warn("[Presence] refresh failed", zap.String("user", user), zap.Error(err))
		}
	}
}
