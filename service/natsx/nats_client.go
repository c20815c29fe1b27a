package natsx

import (
	"strings"
	"sync"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsxMode int

const (
	Core          NatsxMode = iota // no persistence
	JetStreamPush                  // JetStream push subscription
)

// NatsxRoute binds a business name to a subject. Subject may contain "*"
// tokens that publishers fill per message, e.g. chat.notify.* -> chat.notify.<user>.
type NatsxRoute struct {
	Biz           string
	Subject       string
	Mode          NatsxMode
	Queue         string // queue group, empty for fan-out
	Durable       string // JetStream durable name
	AckWait       time.Duration
	MaxAckPending int
}

// Fill replaces the "*" tokens of the route subject in order.
func (r NatsxRoute) Fill(tokens ...string) (string, error) {
	parts := strings.Split(r.Subject, ".")
	next := 0
	for i, p := range parts {
		if p != "*" {
			continue
		}
		if next >= len(tokens) {
			return "", errs.ErrArgs.WrapMsg("missing subject token", "subject", r.Subject)
		}
		tok := tokens[next]
		if tok == "" || strings.ContainsAny(tok, ".*> \t\r\n") {
			return "", errs.ErrArgs.WrapMsg("invalid subject token", "token", tok)
		}
		parts[i] = tok
		next++
	}
	if next != len(tokens) {
		return "", errs.ErrArgs.WrapMsg("too many subject tokens", "subject", r.Subject)
	}
	return strings.Join(parts, "."), nil
}

type NatsxConfig struct {
	Servers         []string
	Name            string
	User            string
	Password        string
	ReconnectWait   time.Duration
	Timeout         time.Duration
	PublishAsyncMax int
}

type NatsxClient struct {
	cfg NatsxConfig
	nc  *nats.Conn
	js  nats.JetStreamContext

	mu     sync.RWMutex
	routes map[string]NatsxRoute
	subs   map[string]*nats.Subscription
}

func NewNatsxClient(cfg NatsxConfig) (*NatsxClient, error) {
	if len(cfg.Servers) == 0 {
		return nil, errs.ErrArgs.WrapMsg("nats servers missing")
	}
	if cfg.ReconnectWait == 0 {
		cfg.ReconnectWait = 500 * time.Millisecond
	}
	if cfg.Timeout == 0 {
		cfg.Timeout = 3 * time.Second
	}
	if cfg.PublishAsyncMax == 0 {
		cfg.PublishAsyncMax = 4096
	}
	opts := []nats.Option{
		nats.Name(cfg.Name),
		nats.MaxReconnects(-1),
		nats.ReconnectWait(cfg.ReconnectWait),
		nats.ReconnectJitter(100*time.Millisecond, 500*time.Millisecond),
		nats.Timeout(cfg.Timeout),
		nats.DisconnectErrHandler(func(_ *nats.Conn, err error) {
			if err != nil {
				logger.Warn("[NATS] disconnected", zap.Error(err))
			}
		}),
		nats.ReconnectHandler(func(nc *nats.Conn) {
			logger.Info("[NATS] reconnected", zap.String("url", nc.ConnectedUrl()))
		}),
	}
	if cfg.User != "" {
		opts = append(opts, nats.UserInfo(cfg.User, cfg.Password))
	}
	nc, err := nats.Connect(strings.Join(cfg.Servers, ","), opts...)
	if err != nil {
		return nil, errs.WrapMsg(err, "nats connect", "servers", strings.Join(cfg.Servers, ","))
	}
	return &NatsxClient{
		cfg:    cfg,
		nc:     nc,
		routes: make(map[string]NatsxRoute),
		subs:   make(map[string]*nats.Subscription),
	}, nil
}

// Close drains subscriptions and the connection.
func (c *NatsxClient) Close() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	for biz, sub := range c.subs {
		_ = sub.Drain()
		delete(c.subs, biz)
	}
	if c.nc != nil {
		return c.nc.Drain()
	}
	return nil
}

// Flush waits until the server processed everything published so far.
func (c *NatsxClient) Flush() error { return c.nc.Flush() }

func (c *NatsxClient) ensureJS() error {
	c.mu.Lock()
	defer c.mu.Unlock()
	if c.js != nil {
		return nil
	}
	js, err := c.nc.JetStream(nats.PublishAsyncMaxPending(c.cfg.PublishAsyncMax))
	if err != nil {
		return err
	}
	c.js = js
	return nil
}

func (c *NatsxClient) RegisterRoute(r NatsxRoute) error {
	if r.Biz == "" || r.Subject == "" {
		return errs.ErrArgs.WrapMsg("invalid route", "biz", r.Biz)
	}
	if r.Mode == JetStreamPush {
		if err := c.ensureJS(); err != nil {
			return errs.WrapMsg(err, "init jetstream")
		}
	}
	if r.AckWait == 0 {
		r.AckWait = 30 * time.Second
	}
	if r.MaxAckPending == 0 {
		r.MaxAckPending = 1024
	}
	c.mu.Lock()
	c.routes[r.Biz] = r
	c.mu.Unlock()
	return nil
}

func (c *NatsxClient) route(biz string) (NatsxRoute, bool) {
	c.mu.RLock()
	defer c.mu.RUnlock()
	r, ok := c.routes[biz]
	return r, ok
}
