package natsx

import (
	"context"

	"HoodChat/tools/errs"
)

type NatsxProducer struct{ c *NatsxClient }

func NewNatsxProducer(c *NatsxClient) *NatsxProducer { return &NatsxProducer{c: c} }

// Publish sends to the route of biz. tokens fill the "*" parts of its subject.
func (p *NatsxProducer) Publish(ctx context.Context, biz string, tokens []string, data []byte, hdr map[string]string) error {
	r, ok := p.c.route(biz)
	if !ok {
		return errs.ErrArgs.WrapMsg("route not found", "biz", biz)
	}
	subject, err := r.Fill(tokens...)
	if err != nil {
		return err
	}
	switch r.Mode {
	case Core:
		return p.c.sendCore(subject, data, hdr)
	case JetStreamPush:
		return p.c.sendJS(ctx, subject, data, hdr)
	default:
		return errs.ErrArgs.WrapMsg("unsupported mode", "biz", biz)
	}
}
