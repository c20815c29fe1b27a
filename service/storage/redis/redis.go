package redis

import (
	"context"
	"time"

	"HoodChat/tools/errs"

	"github.com/redis/go-redis/v9"
)

type Config struct {
	Addr     string
	Password string
	DB       int
	PoolSize int
}

// NewClient connects and pings. The caller owns the client and closes it.
func NewClient(ctx context.Context, c Config) (*redis.Client, error) {
	if c.Addr == "" {
		return nil, errs.ErrArgs.WrapMsg("redis addr is empty")
	}
	rdb := redis.NewClient(&redis.Options{
		Addr:     c.Addr,
		Password: c.Password,
		DB:       c.DB,
		PoolSize: c.PoolSize,
	})

	pingCtx, cancel := context.WithTimeout(ctx, 3*time.Second)
	defer cancel()
	if err := rdb.Ping(pingCtx).Err(); err != nil {
		_ = rdb.Close()
		return nil, errs.WrapMsg(err, "redis ping", "addr", c.Addr)
	}
	return rdb, nil
}
