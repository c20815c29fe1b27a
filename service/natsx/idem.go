package natsx

import (
	"context"
	"strings"
	"sync"
	"time"

	"HoodChat/logger"

	"go.uber.org/zap"
)

type IdemStore interface {
	SeenOnce(key string, ttl time.Duration) (seen bool, err error)
}

// memIdem is a single-process store. Expired keys are swept on write once
// the sweep interval has passed, so no background goroutine is needed.
type memIdem struct {
	mu        sync.Mutex
	m         map[string]time.Time
	ttl       time.Duration
	lastSweep time.Time
	now       func() time.Time
}

func NewMemIdem(defaultTTL time.Duration) IdemStore {
	if defaultTTL <= 0 {
		defaultTTL = 10 * time.Minute
	}
	return &memIdem{m: make(map[string]time.Time), ttl: defaultTTL, now: time.Now}
}

func (mi *memIdem) SeenOnce(key string, ttl time.Duration) (bool, error) {
	if ttl <= 0 {
		ttl = mi.ttl
	}
	now := mi.now()
	mi.mu.Lock()
	defer mi.mu.Unlock()
	if now.Sub(mi.lastSweep) >= time.Minute {
		for k, exp := range mi.m {
			if !exp.After(now) {
				delete(mi.m, k)
			}
		}
		mi.lastSweep = now
	}
	if exp, ok := mi.m[key]; ok && exp.After(now) {
		return true, nil
	}
	mi.m[key] = now.Add(ttl)
	return false, nil
}

func msgIDFromHeader(h map[string]string) string {
	for _, k := range []string{HeaderMsgID, "nats-msg-id", "X-Msg-Id", "x-msg-id"} {
		if v, ok := h[k]; ok && v != "" {
			return v
		}
	}
	return ""
}

// NatsxIdemMiddleware drops messages whose id was already handled within ttl.
// Messages without an id are keyed by subject and payload.
func NatsxIdemMiddleware(store IdemStore, ttl time.Duration) NatsxMiddleware {
	return func(next NatsxHandler) NatsxHandler {
		return func(ctx context.Context, msg NatsxMessage) error {
			id := msgIDFromHeader(msg.Header)
			if id == "" {
				id = msg.Subject + "|" + strings.TrimSpace(string(msg.Data))
			}
			seen, err := store.SeenOnce(id, ttl)
			if err != nil {
				logger.Warn("[NATS] idempotency store failed", zap.Error(err))
			}
			if seen {
				logger.Debug("[NATS] duplicate dropped", zap.String("subject", msg.Subject), zap.String("id", id))
				return nil
			}
			return next(ctx, msg)
		}
	}
}
