package mgo

import (
	"context"
	"math/rand"
	"sync"
	"sync/atomic"
	"time"

	mgo "HoodChat/data/database/mgo/mongoutil"
	"HoodChat/logger"
	"HoodChat/tools/errs"

	"go.mongodb.org/mongo-driver/mongo"
	"go.uber.org/zap"
)

const (
	baseBackoff = 200 * time.Millisecond
	maxBackoff  = 5 * time.Second
	healthEvery = 10 * time.Second
	failThresh  = 3
)

// MongoManager connects with backoff and then pings periodically, reporting
// failThresh consecutive failures until ctx ends.
type MongoManager struct {
	cfg *mgo.Config

	mu        sync.RWMutex
	client    *mgo.Client
	readyCh   chan struct{}
	readyOnce sync.Once

	lastErr atomic.Value // error
}

func NewManager(cfg *mgo.Config) *MongoManager {
	return &MongoManager{cfg: cfg, readyCh: make(chan struct{})}
}

// StartAsync runs until ctx is done. Ready is closed after the first successful connect.
func (m *MongoManager) StartAsync(ctx context.Context) {
	go func() {
		for {
			if !m.connect(ctx) {
				return
			}
			m.watch(ctx)
			select {
			case <-ctx.Done():
				return
			default:
			}
		}
	}()
}

func (m *MongoManager) connect(ctx context.Context) bool {
	attempt := 0
	for {
		select {
		case <-ctx.Done():
			return false
		default:
		}

		cli, err := mgo.NewMongoDB(ctx, m.cfg)
		if err == nil {
			m.mu.Lock()
			m.client = cli
			m.mu.Unlock()
			m.readyOnce.Do(func() { close(m.readyCh) })
			logger.Info("mongo connected", zap.String("db", m.cfg.Database))
			return true
		}

		m.lastErr.Store(err)
		logger.Warn("mongo connect failed", zap.Int("attempt", attempt), zap.Error(err))

		backoff := baseBackoff << attempt
		if backoff > maxBackoff {
			backoff = maxBackoff
		}
		jitter := time.Duration(rand.Int63n(int64(backoff/5) + 1))
		timer := time.NewTimer(backoff - jitter/2)
		select {
		case <-ctx.Done():
			timer.Stop()
			return false
		case <-timer.C:
		}
		if attempt < 6 {
			attempt++
		}
	}
}

func (m *MongoManager) watch(ctx context.Context) {
	fail := 0
	ticker := time.NewTicker(healthEvery)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			m.drop()
			return
		case <-ticker.C:
			m.mu.RLock()
			c := m.client
			m.mu.RUnlock()
			if c == nil {
				return
			}
			pingCtx, cancel := context.WithTimeout(ctx, healthEvery/2)
			err := c.GetDB().Client().Ping(pingCtx, nil)
			cancel()
			if err != nil {
				fail++
				m.lastErr.Store(err)
				if fail == failThresh {
					// repositories hold the database handle, so the driver's
					// own pool reconnect is relied on instead of a new client
					logger.Warn("mongo unhealthy", zap.Int("failures", fail), zap.Error(err))
				}
			} else {
				if fail >= failThresh {
					logger.Info("mongo healthy again")
				}
				fail = 0
			}
		}
	}
}

func (m *MongoManager) drop() {
	m.mu.Lock()
	defer m.mu.Unlock()
	if m.client != nil {
		_ = m.client.Disconnect(context.Background())
		m.client = nil
	}
}

func (m *MongoManager) Ready() <-chan struct{} {
	return m.readyCh
}

// Err returns the most recent connect or ping error.
func (m *MongoManager) Err() error {
	if v := m.lastErr.Load(); v != nil {
		return v.(error)
	}
	return nil
}

func (m *MongoManager) TryGetDB() (*mongo.Database, bool) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	if m.client == nil {
		return nil, false
	}
	return m.client.GetDB(), true
}

// WaitReady blocks until the first connect succeeds and returns the database.
func (m *MongoManager) WaitReady(ctx context.Context) (*mongo.Database, error) {
	select {
	case <-m.readyCh:
	case <-ctx.Done():
		if err := m.Err(); err != nil {
			return nil, errs.WrapMsg(err, "mongo not ready")
		}
		return nil, ctx.Err()
	}
	db, ok := m.TryGetDB()
	if !ok {
		return nil, errs.New("mongo disconnected")
	}
	return db, nil
}
