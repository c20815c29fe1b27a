package service

import (
	"context"
	"strings"
	"time"
	"unicode/utf8"

	"HoodChat/logger"
	"HoodChat/module/chat/model"
	"HoodChat/module/chat/store"
	"HoodChat/module/listing"
	"HoodChat/service/chat"
	"HoodChat/tools/errs"
	"HoodChat/tools/safe"

	"go.uber.org/zap"
)

const MaxMessageRunes = 2000

// ListingReader resolves the owner of a listing.
type ListingReader interface {
	FindListing(ctx context.Context, id string) (*listing.Listing, error)
}

// Notifier pushes live events. *chat.Delivery implements it.
type Notifier interface {
	DeliverMessage(ctx context.Context, chatID string, body chat.MessageBody) (chat.DeliveryReport, error)
	Notify(ctx context.Context, recipient string, n chat.Notification) int
	PushUpdate(ctx context.Context, userIDs []string, upd chat.ChatUpdate) int
}

// EventPublisher records chat lifecycle events keyed by chat id.
type EventPublisher interface {
	PublishJSON(ctx context.Context, key string, v any) error
}

type Option func(*ChatService)

func WithEvents(p EventPublisher) Option { return func(s *ChatService) { s.events = p } }

func WithClock(now func() time.Time) Option { return func(s *ChatService) { s.now = now } }

// ChatService owns the chat aggregate. Writes to one chat are serialized;
// every write persists before anything is pushed.
type ChatService struct {
	repo     store.ChatRepo
	listings ListingReader
	notifier Notifier
	events   EventPublisher
	locks    *keyedMutex
	now      func() time.Time
}

func New(repo store.ChatRepo, listings ListingReader, notifier Notifier, opts ...Option) *ChatService {
	safe.MustNotNil(repo, "chat repo")
	safe.MustNotNil(listings, "listing reader")
	s := &ChatService{
		repo:     repo,
		listings: listings,
		notifier: notifier,
		locks:    newKeyedMutex(),
		now:      time.Now,
	}
	for _, o := range opts {
		o(s)
	}
	return s
}

type CreateRequest struct {
	ServiceID        string `json:"serviceId"`
	InterestedUserID string `json:"interestedUserId"`
}

// Create opens a chat between actorID and the owner of the listing, or returns
// the active one they already have. created reports which.
func (s *ChatService) Create(ctx context.Context, actorID string, req CreateRequest) (c *model.Chat, created bool, err error) {
	if req.ServiceID == "" || req.InterestedUserID == "" {
		return nil, false, errs.ErrArgs.WrapMsg("serviceId and interestedUserId are required")
	}
	l, err := s.listings.FindListing(ctx, req.ServiceID)
	if err != nil {
		return nil, false, err
	}
	if l.OwnerID == actorID {
		return nil, false, errs.ErrArgs.WrapMsg("service owner cannot create a chat for their own service")
	}
	if req.InterestedUserID != actorID {
		return nil, false, errs.ErrNoPermission.WrapMsg("you can only create chats for yourself")
	}

	unlock := s.locks.Lock("create:" + req.ServiceID + ":" + req.InterestedUserID)
	defer unlock()

	existing, err := s.repo.FindActive(ctx, req.ServiceID, req.InterestedUserID)
	switch {
	case err == nil && !existing.SelfReferential():
		return existing.View(), false, nil
	case err == nil:
		// one user on both sides is corrupt data, replace it
		logger.Warn("[Chat] removing self-referential chat", zap.String("chat", existing.ID), zap.String("user", existing.ServiceOwnerID))
		if err := s.repo.Delete(ctx, existing.ID); err != nil {
			return nil, false, err
		}
	case !errs.ErrRecordNotFound.Is(err):
		return nil, false, err
	}

	now := s.now().UTC()
	c = &model.Chat{
		ServiceOwnerID:   l.OwnerID,
		InterestedUserID: actorID,
		ServiceID:        req.ServiceID,
		Messages:         []model.Message{},
		Status:           model.StatusActive,
		CreatedAt:        now,
		UpdatedAt:        now,
	}
	if err := s.repo.Create(ctx, c); err != nil {
		return nil, false, err
	}
	logger.Info("[Chat] created", zap.String("chat", c.ID), zap.String("service", c.ServiceID), zap.String("user", actorID))
	s.publish(ctx, newEvent(EventChatCreated, c, actorID, now))
	return c, true, nil
}

func (s *ChatService) ListByOwner(ctx context.Context, ownerID string) ([]*model.Chat, error) {
	return views(s.repo.ListByOwner(ctx, ownerID))
}

func (s *ChatService) ListByInterested(ctx context.Context, userID string) ([]*model.Chat, error) {
	return views(s.repo.ListByInterested(ctx, userID))
}

// ListByService returns the chats of a listing that actorID takes part in.
func (s *ChatService) ListByService(ctx context.Context, actorID, serviceID string) ([]*model.Chat, error) {
	all, err := views(s.repo.ListByService(ctx, serviceID))
	if err != nil {
		return nil, err
	}
	out := make([]*model.Chat, 0, len(all))
	for _, c := range all {
		if c.IsParticipant(actorID) {
			out = append(out, c)
		}
	}
	return out, nil
}

func (s *ChatService) Get(ctx context.Context, actorID, chatID string) (*model.Chat, error) {
	sc, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		return nil, err
	}
	if !sc.IsParticipant(actorID) {
		return nil, errs.ErrNoPermission.WrapMsg("you are not part of this chat")
	}
	return sc.View(), nil
}

// SendMessage appends text from senderID and then pushes it live. A log still
// in the legacy format is upgraded in the same write.
func (s *ChatService) SendMessage(ctx context.Context, chatID, senderID, text string) (*model.Chat, error) {
	text = strings.TrimSpace(text)
	if text == "" {
		return nil, errs.ErrArgs.WrapMsg("message is required")
	}
	if utf8.RuneCountInString(text) > MaxMessageRunes {
		return nil, errs.ErrArgs.WrapMsg("message too long", "max", MaxMessageRunes)
	}

	unlock := s.locks.Lock(chatID)
	sc, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		unlock()
		return nil, err
	}
	if !sc.IsParticipant(senderID) {
		unlock()
		return nil, errs.ErrNoPermission.WrapMsg("you are not part of this chat")
	}

	now := s.now().UTC()
	var upgraded []model.Message
	if model.HasLegacy(sc.Entries) {
		upgraded = model.Normalize(sc.Entries, sc.ServiceOwnerID, now)
		logger.Info("[Chat] upgrading legacy log", zap.String("chat", chatID), zap.Int("entries", len(upgraded)))
	}
	msg := model.Message{Text: text, SenderID: senderID, Timestamp: now}
	if err := s.repo.Append(ctx, chatID, msg, upgraded); err != nil {
		unlock()
		return nil, err
	}

	c := &sc.Chat
	if upgraded != nil {
		c.Messages = upgraded
	} else {
		c.Messages = model.Normalize(sc.Entries, sc.ServiceOwnerID, sc.CreatedAt)
	}
	c.Messages = append(c.Messages, msg)
	c.LastMessage = text
	c.LastMessageAt = &now
	c.UpdatedAt = now

	// the append is durable; pushes must not die with the caller's request
	pushCtx := context.WithoutCancel(ctx)
	// pushed under the chat lock so live frames follow append order
	s.deliver(pushCtx, c, msg)
	unlock()

	if s.notifier != nil {
		s.notifier.Notify(pushCtx, c.Counterpart(msg.SenderID), chat.NewMessageNotification(c.ID, msg.SenderID))
	}
	s.publish(pushCtx, newMessageEvent(c, msg))
	return c, nil
}

// deliver runs after the append is durable; its failures are only logged.
func (s *ChatService) deliver(ctx context.Context, c *model.Chat, msg model.Message) {
	if s.notifier == nil {
		return
	}
	body := chat.MessageBody{Message: msg.Text, SenderID: msg.SenderID, ChatID: c.ID, Timestamp: msg.Timestamp}
	if _, err := s.notifier.DeliverMessage(ctx, c.ID, body); err != nil {
		logger.Warn("[Chat] live delivery failed", zap.String("chat", c.ID), zap.Error(err))
	}
}

// Close is reserved to the listing owner.
func (s *ChatService) Close(ctx context.Context, chatID, actorID string) (*model.Chat, error) {
	return s.transition(ctx, chatID, actorID, model.StatusClosed, func(c *model.Chat) error {
		if !c.IsOwner(actorID) {
			return errs.ErrNoPermission.WrapMsg("only the service owner can close this chat")
		}
		return nil
	})
}

// Archive is allowed to either participant, from any status.
func (s *ChatService) Archive(ctx context.Context, chatID, actorID string) (*model.Chat, error) {
	return s.transition(ctx, chatID, actorID, model.StatusArchived, func(c *model.Chat) error {
		if !c.IsParticipant(actorID) {
			return errs.ErrNoPermission.WrapMsg("you are not part of this chat")
		}
		return nil
	})
}

func (s *ChatService) transition(ctx context.Context, chatID, actorID string, to model.Status, allow func(*model.Chat) error) (*model.Chat, error) {
	unlock := s.locks.Lock(chatID)
	sc, err := s.repo.FindByID(ctx, chatID)
	if err != nil {
		unlock()
		return nil, err
	}
	if err := allow(&sc.Chat); err != nil {
		unlock()
		return nil, err
	}
	now := s.now().UTC()
	if err := s.repo.UpdateStatus(ctx, chatID, to, now); err != nil {
		unlock()
		return nil, err
	}
	c := sc.View()
	c.Status = to
	c.UpdatedAt = now
	unlock()

	ctx = context.WithoutCancel(ctx)
	logger.Info("[Chat] status changed", zap.String("chat", chatID), zap.String("status", string(to)), zap.String("by", actorID))
	if s.notifier != nil {
		s.notifier.PushUpdate(ctx, c.Participants(), chat.ChatUpdate{
			ChatID:    chatID,
			Status:    string(to),
			UpdatedBy: actorID,
			Timestamp: now,
		})
	}
	kind := EventChatClosed
	if to == model.StatusArchived {
		kind = EventChatArchived
	}
	s.publish(ctx, newEvent(kind, c, actorID, now))
	return c, nil
}

func (s *ChatService) publish(ctx context.Context, ev Event) {
	if s.events == nil {
		return
	}
	if err := s.events.PublishJSON(ctx, ev.ChatID, ev); err != nil {
		logger.Warn("[Chat] publish event failed", zap.String("type", ev.Type), zap.String("chat", ev.ChatID), zap.Error(err))
	}
}

func views(list []*model.StoredChat, err error) ([]*model.Chat, error) {
	if err != nil {
		return nil, err
	}
	out := make([]*model.Chat, 0, len(list))
	for _, sc := range list {
		out = append(out, sc.View())
	}
	return out, nil
}
