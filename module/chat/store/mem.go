package store

import (
	"context"
	"sort"
	"sync"
	"time"

	"HoodChat/module/chat/model"
	"HoodChat/tools/errs"

	"go.mongodb.org/mongo-driver/bson/primitive"
)

// MemRepo is an in-process ChatRepo for tests and local runs.
type MemRepo struct {
	mu    sync.RWMutex
	chats map[string]*model.StoredChat
	order []string // insertion order, breaks sort ties
}

func NewMemRepo() *MemRepo {
	return &MemRepo{chats: make(map[string]*model.StoredChat)}
}

// Seed stores sc as is, legacy entries included. sc.ID is generated when empty.
func (m *MemRepo) Seed(sc *model.StoredChat) string {
	m.mu.Lock()
	defer m.mu.Unlock()
	if sc.ID == "" {
		sc.ID = primitive.NewObjectID().Hex()
	}
	m.put(cloneStored(sc))
	return sc.ID
}

func (m *MemRepo) put(sc *model.StoredChat) {
	if _, ok := m.chats[sc.ID]; !ok {
		m.order = append(m.order, sc.ID)
	}
	m.chats[sc.ID] = sc
}

func (m *MemRepo) Create(_ context.Context, c *model.Chat) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	c.ID = primitive.NewObjectID().Hex()
	m.put(&model.StoredChat{Chat: c.Header()})
	return nil
}

func (m *MemRepo) FindByID(_ context.Context, id string) (*model.StoredChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	sc, ok := m.chats[id]
	if !ok {
		return nil, errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", id)
	}
	return cloneStored(sc), nil
}

func (m *MemRepo) FindActive(_ context.Context, serviceID, interestedUserID string) (*model.StoredChat, error) {
	m.mu.RLock()
	defer m.mu.RUnlock()
	for _, id := range m.order {
		sc, ok := m.chats[id]
		if !ok {
			continue
		}
		if sc.ServiceID == serviceID && sc.InterestedUserID == interestedUserID && sc.Status == model.StatusActive {
			return cloneStored(sc), nil
		}
	}
	return nil, errs.ErrRecordNotFound.WrapMsg("chat not found")
}

func (m *MemRepo) Delete(_ context.Context, id string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	delete(m.chats, id)
	return nil
}

func (m *MemRepo) ListByOwner(_ context.Context, ownerID string) ([]*model.StoredChat, error) {
	return m.list(func(c *model.StoredChat) bool { return c.ServiceOwnerID == ownerID }), nil
}

func (m *MemRepo) ListByInterested(_ context.Context, userID string) ([]*model.StoredChat, error) {
	return m.list(func(c *model.StoredChat) bool { return c.InterestedUserID == userID }), nil
}

func (m *MemRepo) ListByService(_ context.Context, serviceID string) ([]*model.StoredChat, error) {
	return m.list(func(c *model.StoredChat) bool { return c.ServiceID == serviceID }), nil
}

// list sorts like the mongo query: lastMessageAt desc (missing last), then createdAt desc.
func (m *MemRepo) list(match func(*model.StoredChat) bool) []*model.StoredChat {
	m.mu.RLock()
	var out []*model.StoredChat
	for _, id := range m.order {
		if sc, ok := m.chats[id]; ok && match(sc) {
			out = append(out, cloneStored(sc))
		}
	}
	m.mu.RUnlock()

	sort.SliceStable(out, func(i, j int) bool {
		a, b := out[i], out[j]
		switch {
		case a.LastMessageAt != nil && b.LastMessageAt != nil && !a.LastMessageAt.Equal(*b.LastMessageAt):
			return a.LastMessageAt.After(*b.LastMessageAt)
		case (a.LastMessageAt == nil) != (b.LastMessageAt == nil):
			return a.LastMessageAt != nil
		}
		return a.CreatedAt.After(b.CreatedAt)
	})
	return out
}

func (m *MemRepo) Append(_ context.Context, chatID string, msg model.Message, upgraded []model.Message) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.chats[chatID]
	if !ok {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	if upgraded != nil {
		sc.Entries = make([]model.StoredMessage, 0, len(upgraded)+1)
		for _, u := range upgraded {
			sc.Entries = append(sc.Entries, model.RecordEntry(u))
		}
	}
	sc.Entries = append(sc.Entries, model.RecordEntry(msg))
	at := msg.Timestamp
	sc.LastMessage = msg.Text
	sc.LastMessageAt = &at
	sc.UpdatedAt = at
	return nil
}

func (m *MemRepo) UpdateStatus(_ context.Context, chatID string, status model.Status, at time.Time) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	sc, ok := m.chats[chatID]
	if !ok {
		return errs.ErrRecordNotFound.WrapMsg("chat not found", "chatId", chatID)
	}
	sc.Status = status
	sc.UpdatedAt = at
	return nil
}

func cloneStored(sc *model.StoredChat) *model.StoredChat {
	out := &model.StoredChat{Chat: sc.Chat.Header()}
	if sc.LastMessageAt != nil {
		at := *sc.LastMessageAt
		out.LastMessageAt = &at
	}
	out.Entries = append([]model.StoredMessage(nil), sc.Entries...)
	return out
}
