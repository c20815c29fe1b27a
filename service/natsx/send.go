package natsx

import (
	"context"

	"HoodChat/logger"
	"HoodChat/tools/errs"

	"github.com/nats-io/nats.go"
	"go.uber.org/zap"
)

func newMsg(subject string, data []byte, hdr map[string]string) *nats.Msg {
	msg := nats.NewMsg(subject)
	msg.Data = data
	for k, v := range hdr {
		msg.Header.Set(k, v)
	}
	return msg
}

func (c *NatsxClient) sendCore(subject string, data []byte, hdr map[string]string) error {
	if err := c.nc.PublishMsg(newMsg(subject, data, hdr)); err != nil {
		return errs.WrapMsg(err, "nats publish", "subject", subject)
	}
	return nil
}

func (c *NatsxClient) sendJS(ctx context.Context, subject string, data []byte, hdr map[string]string) error {
	c.mu.RLock()
	js := c.js
	c.mu.RUnlock()
	if js == nil {
		return errs.ErrInternalServer.WrapMsg("jetstream not initialized")
	}
	ack, err := js.PublishMsg(newMsg(subject, data, hdr), nats.Context(ctx))
	if err != nil {
		return errs.WrapMsg(err, "jetstream publish", "subject", subject)
	}
	logger.Debug("[NATS] published", zap.String("stream", ack.Stream), zap.Uint64("seq", ack.Sequence))
	return nil
}
