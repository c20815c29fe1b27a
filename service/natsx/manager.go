package natsx

import (
	"context"

	"HoodChat/tools/errs"
)

// NatsManager is the facade the rest of the process uses.
type NatsManager struct {
	client   *NatsxClient
	producer *NatsxProducer
	consumer *NatsxConsumer
}

func NewNatsManager(cfg NatsxConfig, middlewares ...NatsxMiddleware) (*NatsManager, error) {
	c, err := NewNatsxClient(cfg)
	if err != nil {
		return nil, err
	}
	return &NatsManager{
		client:   c,
		producer: NewNatsxProducer(c),
		consumer: NewNatsxConsumer(c, middlewares...),
	}, nil
}

var errNotInitialized = errs.ErrInternalServer.WrapMsg("nats manager not initialized")

func (m *NatsManager) Close() error {
	if m == nil || m.client == nil {
		return nil
	}
	return m.client.Close()
}

func (m *NatsManager) Flush() error {
	if m == nil || m.client == nil {
		return errNotInitialized
	}
	return m.client.Flush()
}

func (m *NatsManager) RegisterRoute(r NatsxRoute) error {
	if m == nil || m.client == nil {
		return errNotInitialized
	}
	return m.client.RegisterRoute(r)
}

func (m *NatsManager) Publish(ctx context.Context, biz string, tokens []string, data []byte, hdr map[string]string) error {
	if m == nil || m.producer == nil {
		return errNotInitialized
	}
	return m.producer.Publish(ctx, biz, tokens, data, hdr)
}

func (m *NatsManager) PublishOnce(ctx context.Context, biz string, tokens []string, data []byte, hdr map[string]string, msgID string) error {
	if m == nil || m.producer == nil {
		return errNotInitialized
	}
	return m.producer.PublishOnce(ctx, biz, tokens, data, hdr, msgID)
}

// Subscribe uses Queue for load sharing; leave it empty to fan out.
func (m *NatsManager) Subscribe(biz string, h NatsxHandler) error {
	if m == nil || m.consumer == nil {
		return errNotInitialized
	}
	return m.consumer.Subscribe(biz, h)
}
