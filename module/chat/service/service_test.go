package service

import (
	"context"
	"fmt"
	"strings"
	"sync"
	"testing"
	"time"

	"HoodChat/module/chat/model"
	"HoodChat/module/chat/store"
	"HoodChat/module/listing"
	"HoodChat/service/chat"
	"HoodChat/tools/errs"
)

type recordingNotifier struct {
	mu       sync.Mutex
	messages []chat.MessageBody
	notified []string // recipients
	updates  []chat.ChatUpdate
}

func (n *recordingNotifier) DeliverMessage(_ context.Context, _ string, body chat.MessageBody) (chat.DeliveryReport, error) {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.messages = append(n.messages, body)
	return chat.DeliveryReport{}, nil
}

func (n *recordingNotifier) Notify(_ context.Context, recipient string, _ chat.Notification) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.notified = append(n.notified, recipient)
	return 1
}

func (n *recordingNotifier) PushUpdate(_ context.Context, _ []string, upd chat.ChatUpdate) int {
	n.mu.Lock()
	defer n.mu.Unlock()
	n.updates = append(n.updates, upd)
	return 2
}

type recordingEvents struct {
	mu    sync.Mutex
	types []string
}

func (e *recordingEvents) PublishJSON(_ context.Context, key string, v any) error {
	e.mu.Lock()
	defer e.mu.Unlock()
	e.types = append(e.types, v.(Event).Type)
	return nil
}

type fixture struct {
	repo     *store.MemRepo
	listings *listing.MemReader
	notifier *recordingNotifier
	events   *recordingEvents
	svc      *ChatService
}

const (
	owner    = "650000000000000000000001"
	guest    = "650000000000000000000002"
	other    = "650000000000000000000003"
	listing1 = "660000000000000000000001"
)

func newFixture() *fixture {
	fx := &fixture{
		repo:     store.NewMemRepo(),
		listings: listing.NewMemReader(listing.Listing{ID: listing1, OwnerID: owner, Title: "Fix my bike"}),
		notifier: &recordingNotifier{},
		events:   &recordingEvents{},
	}
	fx.svc = New(fx.repo, fx.listings, fx.notifier, WithEvents(fx.events))
	return fx
}

func (fx *fixture) create(t *testing.T) *model.Chat {
	t.Helper()
	c, created, err := fx.svc.Create(context.Background(), guest, CreateRequest{ServiceID: listing1, InterestedUserID: guest})
	if err != nil || !created {
		t.Fatalf("create: created=%v err=%v", created, err)
	}
	return c
}

func TestOwnerInterestedScenario(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()

	c := fx.create(t)
	if c.ServiceOwnerID != owner || c.InterestedUserID != guest || c.Status != model.StatusActive {
		t.Fatalf("chat = %+v", c)
	}

	c, err := fx.svc.SendMessage(ctx, c.ID, guest, "hello")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Messages) != 1 || c.Messages[0].Text != "hello" || c.Messages[0].SenderID != guest || c.LastMessage != "hello" {
		t.Fatalf("chat after send = %+v", c)
	}
	stored, _ := fx.svc.Get(ctx, owner, c.ID)
	if len(stored.Messages) != 1 || stored.LastMessageAt == nil {
		t.Fatalf("stored = %+v", stored)
	}

	if c, err = fx.svc.Close(ctx, c.ID, owner); err != nil || c.Status != model.StatusClosed {
		t.Fatalf("close: %v %+v", err, c)
	}
	if _, err = fx.svc.Close(ctx, c.ID, guest); !errs.ErrNoPermission.Is(err) {
		t.Fatalf("close by guest: %v", err)
	}
	if c, err = fx.svc.Archive(ctx, c.ID, guest); err != nil || c.Status != model.StatusArchived {
		t.Fatalf("archive: %v %+v", err, c)
	}

	if len(fx.notifier.notified) != 1 || fx.notifier.notified[0] != owner {
		t.Fatalf("notified = %v", fx.notifier.notified)
	}
	if len(fx.notifier.updates) != 2 || fx.notifier.updates[1].Status != "archived" || fx.notifier.updates[1].UpdatedBy != guest {
		t.Fatalf("updates = %+v", fx.notifier.updates)
	}
	want := []string{EventChatCreated, EventMessageAppended, EventChatClosed, EventChatArchived}
	if strings.Join(fx.events.types, ",") != strings.Join(want, ",") {
		t.Fatalf("events = %v", fx.events.types)
	}
}

func TestCreateReturnsActiveChat(t *testing.T) {
	fx := newFixture()
	first := fx.create(t)
	again, created, err := fx.svc.Create(context.Background(), guest, CreateRequest{ServiceID: listing1, InterestedUserID: guest})
	if err != nil || created || again.ID != first.ID {
		t.Fatalf("again=%+v created=%v err=%v", again, created, err)
	}
}

func TestCreateAfterCloseOpensNewChat(t *testing.T) {
	fx := newFixture()
	first := fx.create(t)
	if _, err := fx.svc.Close(context.Background(), first.ID, owner); err != nil {
		t.Fatal(err)
	}
	second := fx.create(t)
	if second.ID == first.ID {
		t.Fatal("closed chat reused")
	}
}

func TestCreateReplacesSelfReferentialChat(t *testing.T) {
	fx := newFixture()
	badID := fx.repo.Seed(&model.StoredChat{Chat: model.Chat{
		ServiceOwnerID:   guest,
		InterestedUserID: guest,
		ServiceID:        listing1,
		Status:           model.StatusActive,
	}})

	c := fx.create(t)
	if c.ID == badID || c.ServiceOwnerID != owner {
		t.Fatalf("chat = %+v", c)
	}
	if _, err := fx.repo.FindByID(context.Background(), badID); !errs.ErrRecordNotFound.Is(err) {
		t.Fatalf("degenerate chat kept: %v", err)
	}
}

func TestCreateRejections(t *testing.T) {
	fx := newFixture()
	ctx := context.Background()
	cases := []struct {
		name  string
		actor string
		req   CreateRequest
		want  *errs.CodeError
	}{
		{"missing fields", guest, CreateRequest{ServiceID: listing1}, errs.ErrArgs},
		{"unknown listing", guest, CreateRequest{ServiceID: "670000000000000000000009", InterestedUserID: guest}, errs.ErrRecordNotFound},
		{"owner on own listing", owner, CreateRequest{ServiceID: listing1, InterestedUserID: owner}, errs.ErrArgs},
		{"for someone else", guest, CreateRequest{ServiceID: listing1, InterestedUserID: other}, errs.ErrNoPermission},
	}
	for _, tc := range cases {
		t.Run(tc.name, func(t *testing.T) {
			_, _, err := fx.svc.Create(ctx, tc.actor, tc.req)
			if !tc.want.Is(err) {
				t.Fatalf("err = %v, want code %d", err, tc.want.Code)
			}
		})
	}
}

func TestSendMessageValidation(t *testing.T) {
	fx := newFixture()
	c := fx.create(t)
	ctx := context.Background()

	if _, err := fx.svc.SendMessage(ctx, c.ID, guest, "   "); !errs.ErrArgs.Is(err) {
		t.Fatalf("blank: %v", err)
	}
	if _, err := fx.svc.SendMessage(ctx, c.ID, guest, strings.Repeat("é", MaxMessageRunes+1)); !errs.ErrArgs.Is(err) {
		t.Fatalf("too long: %v", err)
	}
	if _, err := fx.svc.SendMessage(ctx, c.ID, guest, strings.Repeat("é", MaxMessageRunes)); err != nil {
		t.Fatalf("at limit: %v", err)
	}
	if _, err := fx.svc.SendMessage(ctx, c.ID, other, "hi"); !errs.ErrNoPermission.Is(err) {
		t.Fatalf("stranger: %v", err)
	}
	if _, err := fx.svc.SendMessage(ctx, "680000000000000000000000", guest, "hi"); !errs.ErrRecordNotFound.Is(err) {
		t.Fatalf("missing chat: %v", err)
	}
	got, _ := fx.svc.SendMessage(ctx, c.ID, guest, "  padded  ")
	if got.Messages[len(got.Messages)-1].Text != "padded" {
		t.Fatal("text not trimmed")
	}
}

func TestLegacyLogUpgradedOnAppend(t *testing.T) {
	fx := newFixture()
	created := time.Date(2023, 1, 1, 0, 0, 0, 0, time.UTC)
	id := fx.repo.Seed(&model.StoredChat{
		Chat: model.Chat{
			ServiceOwnerID:   owner,
			InterestedUserID: guest,
			ServiceID:        listing1,
			Status:           model.StatusActive,
			CreatedAt:        created,
		},
		Entries: []model.StoredMessage{model.LegacyEntry("one"), model.LegacyEntry("two"), model.LegacyEntry("three")},
	})

	c, err := fx.svc.SendMessage(context.Background(), id, guest, "four")
	if err != nil {
		t.Fatal(err)
	}
	if len(c.Messages) != 4 {
		t.Fatalf("messages = %d", len(c.Messages))
	}
	for i, m := range c.Messages[:3] {
		if m.SenderID != owner || m.Timestamp.IsZero() {
			t.Fatalf("entry %d = %+v", i, m)
		}
	}
	if c.Messages[3].SenderID != guest || c.Messages[3].Text != "four" {
		t.Fatalf("last = %+v", c.Messages[3])
	}

	sc, _ := fx.repo.FindByID(context.Background(), id)
	if model.HasLegacy(sc.Entries) || len(sc.Entries) != 4 {
		t.Fatalf("stored log not upgraded: %d entries", len(sc.Entries))
	}
}

// Concurrent sends all land, and live frames go out in log order.
func TestConcurrentSendsKeepOrder(t *testing.T) {
	fx := newFixture()
	c := fx.create(t)

	var wg sync.WaitGroup
	for i := 0; i < 40; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			sender := guest
			if i%2 == 0 {
				sender = owner
			}
			if _, err := fx.svc.SendMessage(context.Background(), c.ID, sender, fmt.Sprint("m", i)); err != nil {
				t.Error(err)
			}
		}(i)
	}
	wg.Wait()

	got, _ := fx.svc.Get(context.Background(), guest, c.ID)
	if len(got.Messages) != 40 {
		t.Fatalf("messages = %d", len(got.Messages))
	}
	seen := map[string]bool{}
	for i, m := range got.Messages {
		if seen[m.Text] {
			t.Fatalf("duplicate %s", m.Text)
		}
		seen[m.Text] = true
		if fx.notifier.messages[i].Message != m.Text {
			t.Fatalf("push %d = %s, log has %s", i, fx.notifier.messages[i].Message, m.Text)
		}
	}
	if fx.svc.locks.size() != 0 {
		t.Fatal("chat locks leaked")
	}
}

func TestGetAndListAccess(t *testing.T) {
	fx := newFixture()
	c := fx.create(t)
	ctx := context.Background()

	if _, err := fx.svc.Get(ctx, other, c.ID); !errs.ErrNoPermission.Is(err) {
		t.Fatalf("get by stranger: %v", err)
	}
	mine, _ := fx.svc.ListByOwner(ctx, owner)
	interested, _ := fx.svc.ListByInterested(ctx, guest)
	if len(mine) != 1 || len(interested) != 1 {
		t.Fatalf("owner=%d interested=%d", len(mine), len(interested))
	}
	byService, _ := fx.svc.ListByService(ctx, owner, listing1)
	hidden, _ := fx.svc.ListByService(ctx, other, listing1)
	if len(byService) != 1 || len(hidden) != 0 {
		t.Fatalf("byService=%d hidden=%d", len(byService), len(hidden))
	}
}

func TestParticipantResolver(t *testing.T) {
	fx := newFixture()
	c := fx.create(t)
	r := NewParticipantResolver(fx.repo)
	o, i, err := r.Participants(context.Background(), c.ID)
	if err != nil || o != owner || i != guest {
		t.Fatalf("o=%s i=%s err=%v", o, i, err)
	}
}

// ctxNotifier records whether pushes saw a live context.
type ctxNotifier struct {
	recordingNotifier
	errs []error
}

func (n *ctxNotifier) DeliverMessage(ctx context.Context, chatID string, body chat.MessageBody) (chat.DeliveryReport, error) {
	n.mu.Lock()
	n.errs = append(n.errs, ctx.Err())
	n.mu.Unlock()
	return n.recordingNotifier.DeliverMessage(ctx, chatID, body)
}

func (n *ctxNotifier) Notify(ctx context.Context, recipient string, note chat.Notification) int {
	n.mu.Lock()
	n.errs = append(n.errs, ctx.Err())
	n.mu.Unlock()
	return n.recordingNotifier.Notify(ctx, recipient, note)
}

func (n *ctxNotifier) PushUpdate(ctx context.Context, userIDs []string, upd chat.ChatUpdate) int {
	n.mu.Lock()
	n.errs = append(n.errs, ctx.Err())
	n.mu.Unlock()
	return n.recordingNotifier.PushUpdate(ctx, userIDs, upd)
}

// The caller going away after the write must not cancel live pushes.
func TestPushesOutliveCanceledRequest(t *testing.T) {
	fx := newFixture()
	notifier := &ctxNotifier{}
	fx.svc = New(fx.repo, fx.listings, notifier)
	c := fx.create(t)

	ctx, cancel := context.WithCancel(context.Background())
	cancel()
	if _, err := fx.svc.SendMessage(ctx, c.ID, guest, "hello"); err != nil {
		t.Fatal(err)
	}
	if _, err := fx.svc.Close(ctx, c.ID, owner); err != nil {
		t.Fatal(err)
	}
	if len(notifier.errs) != 3 {
		t.Fatalf("pushes = %d", len(notifier.errs))
	}
	for i, err := range notifier.errs {
		if err != nil {
			t.Fatalf("push %d saw %v", i, err)
		}
	}
}
