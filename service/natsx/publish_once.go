package natsx

import (
	"context"

	"github.com/google/uuid"
)

const HeaderMsgID = "Nats-Msg-Id"

// PublishOnce publishes with a Nats-Msg-Id header so JetStream and the
// idempotency middleware can drop duplicates. An empty msgID gets a UUID.
func (p *NatsxProducer) PublishOnce(ctx context.Context, biz string, tokens []string, data []byte, hdr map[string]string, msgID string) error {
	h := make(map[string]string, len(hdr)+1)
	for k, v := range hdr {
		h[k] = v
	}
	if msgID == "" {
		msgID = uuid.NewString()
	}
	h[HeaderMsgID] = msgID
	return p.Publish(ctx, biz, tokens, data, h)
}
