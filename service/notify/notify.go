// Package notify carries in-app notifications over NATS so that workers
// outside the gateway (mail, mobile push) can act on them.
package notify

import (
	"context"
	"encoding/json"
	"strings"

	"HoodChat/logger"
	"HoodChat/service/chat"
	"HoodChat/service/natsx"
	"HoodChat/tools/errs"

	"go.uber.org/zap"
)

const (
	Biz     = "chat.notify"
	Subject = "chat.notify.*" // last token is the recipient user id
)

// Bus is the part of *natsx.NatsManager used here.
type Bus interface {
	RegisterRoute(r natsx.NatsxRoute) error
	PublishOnce(ctx context.Context, biz string, tokens []string, data []byte, hdr map[string]string, msgID string) error
	Subscribe(biz string, h natsx.NatsxHandler) error
}

// Route is the core NATS route for notifications. queue may be empty.
func Route(queue string) natsx.NatsxRoute {
	return natsx.NatsxRoute{Biz: Biz, Subject: Subject, Mode: natsx.Core, Queue: queue}
}

// Publisher implements chat.NotificationSink.
type Publisher struct {
	bus Bus
}

func NewPublisher(bus Bus) (*Publisher, error) {
	if err := bus.RegisterRoute(Route("")); err != nil {
		return nil, err
	}
	return &Publisher{bus: bus}, nil
}

func (p *Publisher) PublishNotification(ctx context.Context, userID string, n chat.Notification) error {
	data, err := json.Marshal(n)
	if err != nil {
		return errs.WrapMsg(err, "marshal notification")
	}
	hdr := map[string]string{"X-Notification-Type": n.Type}
	return p.bus.PublishOnce(ctx, Biz, []string{userID}, data, hdr, n.ID)
}

type HandlerFunc func(ctx context.Context, userID string, n chat.Notification) error

// Subscribe registers the route with queue and passes every decoded
// notification to h. Undecodable payloads are logged and dropped.
func Subscribe(bus Bus, queue string, h HandlerFunc) error {
	if err := bus.RegisterRoute(Route(queue)); err != nil {
		return err
	}
	return bus.Subscribe(Biz, func(ctx context.Context, msg natsx.NatsxMessage) error {
		userID := msg.Subject[strings.LastIndexByte(msg.Subject, '.')+1:]
		var n chat.Notification
		if err := json.Unmarshal(msg.Data, &n); err != nil {
			logger.Warn("[Notify] bad payload", zap.String("subject", msg.Subject), zap.Error(err))
			return nil
		}
		return h(ctx, userID, n)
	})
}
