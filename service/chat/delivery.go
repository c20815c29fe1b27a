package chat

import (
	"context"
	"time"

	"HoodChat/logger"
	"HoodChat/tools/ids"

	"go.uber.org/zap"
)

// ParticipantResolver returns the two parties of a chat.
type ParticipantResolver interface {
	Participants(ctx context.Context, chatID string) (ownerID, interestedID string, err error)
}

// NotificationSink receives a copy of every notification for out-of-process
// consumers (push, mail). Failures never affect live delivery.
type NotificationSink interface {
	PublishNotification(ctx context.Context, userID string, n Notification) error
}

// DeliveryReport describes what one DeliverMessage call reached.
type DeliveryReport struct {
	RoomRecipients  int
	Fallback        bool
	InboxRecipients int
}

// Delivery pushes events to live connections. It is best effort: absent
// recipients are skipped, nothing is queued or retried.
type Delivery struct {
	rooms    *Rooms
	fanout   *Fanout
	resolver ParticipantResolver
	sink     NotificationSink
	now      func() time.Time
}

func NewDelivery(rooms *Rooms, fanout *Fanout, resolver ParticipantResolver, sink NotificationSink) *Delivery {
	return &Delivery{
		rooms:    rooms,
		fanout:   fanout,
		resolver: resolver,
		sink:     sink,
		now:      time.Now,
	}
}

// DeliverMessage broadcasts a newMessage to the chat room. When nobody is in
// the room the frame goes to the inbox of both participants instead.
func (d *Delivery) DeliverMessage(ctx context.Context, chatID string, body MessageBody) (DeliveryReport, error) {
	var rep DeliveryReport
	if body.ChatID == "" {
		body.ChatID = chatID
	}
	payload, err := EncodeFrame(EventNewMessage, "", NewMessage{
		ChatID:    chatID,
		Message:   body,
		Timestamp: d.now().UTC(),
	})
	if err != nil {
		return rep, err
	}

	members := d.rooms.Members(ChatRoom(chatID))
	rep.RoomRecipients = len(members)
	if len(members) > 0 {
		d.fanout.Broadcast(members, payload)
		return rep, nil
	}

	rep.Fallback = true
	if d.resolver == nil {
		return rep, nil
	}
	owner, interested, err := d.resolver.Participants(ctx, chatID)
	if err != nil {
		logger.Warn("[Delivery] resolve participants failed", zap.String("chat", chatID), zap.Error(err))
		return rep, err
	}
	rep.InboxRecipients = d.toInboxes(payload, owner, interested)
	return rep, nil
}

// Notify alerts recipient about a new message. The sender never notifies
// themself. The sink copy is published even when the recipient is offline.
func (d *Delivery) Notify(ctx context.Context, recipient string, n Notification) int {
	if recipient == "" || recipient == n.SenderID {
		return 0
	}
	if n.ID == "" {
		n.ID = ids.GenerateString()
	}
	if n.Timestamp.IsZero() {
		n.Timestamp = d.now().UTC()
	}

	sent := 0
	if payload, err := EncodeFrame(EventNotification, "", n); err != nil {
		logger.Error("[Delivery] encode notification", zap.Error(err))
	} else {
		sent = d.toInboxes(payload, recipient)
	}

	if d.sink != nil {
		if err := d.sink.PublishNotification(ctx, recipient, n); err != nil {
			logger.Warn("[Delivery] notification sink failed", zap.String("user", recipient), zap.String("chat", n.ChatID), zap.Error(err))
		}
	}
	return sent
}

// PushUpdate sends a chatUpdate to the inbox of every listed user.
func (d *Delivery) PushUpdate(_ context.Context, userIDs []string, upd ChatUpdate) int {
	if upd.Timestamp.IsZero() {
		upd.Timestamp = d.now().UTC()
	}
	payload, err := EncodeFrame(EventChatUpdate, "", upd)
	if err != nil {
		logger.Error("[Delivery] encode chatUpdate", zap.Error(err))
		return 0
	}
	return d.toInboxes(payload, userIDs...)
}

func (d *Delivery) toInboxes(payload []byte, userIDs ...string) int {
	seen := make(map[*Conn]struct{})
	var targets []*Conn
	for _, uid := range userIDs {
		if uid == "" {
			continue
		}
		for _, c := range d.rooms.Members(InboxRoom(uid)) {
			if _, dup := seen[c]; dup {
				continue
			}
			seen[c] = struct{}{}
			targets = append(targets, c)
		}
	}
	d.fanout.Broadcast(targets, payload)
	return len(targets)
}
