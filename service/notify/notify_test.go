package notify

import (
	"context"
	"testing"
	"time"

	"HoodChat/service/chat"
	"HoodChat/service/natsx"

	natsserver "github.com/nats-io/nats-server/v2/test"
)

type received struct {
	user string
	n    chat.Notification
}

func TestPublishAndSubscribe(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	newManager := func() *natsx.NatsManager {
		m, err := natsx.NewNatsManager(natsx.NatsxConfig{Servers: []string{s.ClientURL()}},
			natsx.NatsxIdemMiddleware(natsx.NewMemIdem(time.Minute), 0))
		if err != nil {
			t.Fatal(err)
		}
		t.Cleanup(func() { _ = m.Close() })
		return m
	}

	sub := newManager()
	got := make(chan received, 4)
	if err := Subscribe(sub, "mailers", func(_ context.Context, user string, n chat.Notification) error {
		got <- received{user, n}
		return nil
	}); err != nil {
		t.Fatal(err)
	}
	if err := sub.Flush(); err != nil {
		t.Fatal(err)
	}

	pub, err := NewPublisher(newManager())
	if err != nil {
		t.Fatal(err)
	}
	n := chat.NewMessageNotification("chat-1", "u2")
	n.ID = "n-1"
	n.Timestamp = time.Now().UTC()
	ctx := context.Background()
	if err := pub.PublishNotification(ctx, "u1", n); err != nil {
		t.Fatal(err)
	}
	// same id again is dropped by the subscriber
	if err := pub.PublishNotification(ctx, "u1", n); err != nil {
		t.Fatal(err)
	}

	select {
	case r := <-got:
		if r.user != "u1" || r.n.ChatID != "chat-1" || r.n.SenderID != "u2" || r.n.Type != chat.NotificationNewMessage {
			t.Fatalf("received %+v", r)
		}
	case <-time.After(2 * time.Second):
		t.Fatal("notification not received")
	}
	select {
	case r := <-got:
		t.Fatalf("duplicate %+v", r)
	case <-time.After(100 * time.Millisecond):
	}
}

func TestPublishRejectsBadRecipient(t *testing.T) {
	opts := natsserver.DefaultTestOptions
	opts.Port = -1
	s := natsserver.RunServer(&opts)
	defer s.Shutdown()

	m, err := natsx.NewNatsManager(natsx.NatsxConfig{Servers: []string{s.ClientURL()}})
	if err != nil {
		t.Fatal(err)
	}
	defer m.Close()
	pub, err := NewPublisher(m)
	if err != nil {
		t.Fatal(err)
	}
	if err := pub.PublishNotification(context.Background(), "a.b", chat.Notification{}); err == nil {
		t.Fatal("dotted user id accepted")
	}
}
