package natsx

import (
	"context"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

type NatsxConsumer struct {
	c   *NatsxClient
	mws []NatsxMiddleware
}

func NewNatsxConsumer(c *NatsxClient, mws ...NatsxMiddleware) *NatsxConsumer {
	return &NatsxConsumer{c: c, mws: mws}
}

// Subscribe attaches h to the route of biz. Wildcard subjects receive every
// filled variant. JetStream messages are acked when h returns nil.
func (cs *NatsxConsumer) Subscribe(biz string, h NatsxHandler) error {
	r, ok := cs.c.route(biz)
	if !ok {
		return errs.ErrArgs.WrapMsg("route not found", "biz", biz)
	}
	h = NatsxChain(h, cs.mws...)

	var (
		sub *nats.Subscription
		err error
	)
	switch r.Mode {
	case Core:
		cb := func(m *nats.Msg) {
			if err := h(context.Background(), toMessage(m)); err != nil {
				logger.Warn("[NATS] handler failed", zap.String("subject", m.Subject), zap.Error(err))
			}
		}
		if r.Queue == "" {
			sub, err = cs.c.nc.Subscribe(r.Subject, cb)
		} else {
			sub, err = cs.c.nc.QueueSubscribe(r.Subject, r.Queue, cb)
		}
		if err == nil {
			_ = sub.SetPendingLimits(1_000_000, 64*1024*1024)
		}

	case JetStreamPush:
		cs.c.mu.RLock()
		js := cs.c.js
		cs.c.mu.RUnlock()
		if js == nil {
			return errs.ErrInternalServer.WrapMsg("jetstream not initialized")
		}
		opts := []nats.SubOpt{
			nats.ManualAck(),
			nats.AckWait(r.AckWait),
			nats.MaxAckPending(r.MaxAckPending),
		}
		if r.Durable != "" {
			opts = append(opts, nats.Durable(r.Durable))
		}
		cb := func(m *nats.Msg) {
			if err := h(context.Background(), toMessage(m)); err != nil {
				logger.Warn("[NATS] handler failed, nak", zap.String("subject", m.Subject), zap.Error(err))
				_ = m.Nak()
				return
			}
			_ = m.Ack()
		}
		if r.Queue == "" {
			sub, err = js.Subscribe(r.Subject, cb, opts...)
		} else {
			sub, err = js.QueueSubscribe(r.Subject, r.Queue, cb, opts...)
		}

	default:
		return errs.ErrArgs.WrapMsg("unsupported mode", "biz", biz)
	}
	if err != nil {
		return errs.WrapMsg(err, "nats subscribe", "subject", r.Subject)
	}
	cs.c.mu.Lock()
	if old, ok := cs.c.subs[biz]; ok {
		_ = old.Unsubscribe()
	}
	cs.c.subs[biz] = sub
	cs.c.mu.Unlock()
	return nil
}

func toMessage(m *nats.Msg) NatsxMessage {
	return NatsxMessage{
		Subject: m.Subject,
		Data:    append([]byte(nil), m.Data...),
		Header:  headerToMap(m.Header),
	}
}

func headerToMap(h nats.Header) map[string]string {
	if len(h) == 0 {
		return nil
	}
	out := make(map[string]string, len(h))
	for k, v := range h {
		if len(v) > 0 {
			out[k] = v[0]
		}
	}
	return out
}
