package service

import (
	"context"
	"time"

	"HoodChat/module/chat/model"
	"HoodChat/module/chat/store"
)

const (
	EventChatCreated     = "chat.created"
	EventMessageAppended = "message.appended"
	EventChatClosed      = "chat.closed"
	EventChatArchived    = "chat.archived"
)

// Event is the record written to the chat event stream.
type Event struct {
	Type             string         `json:"type"`
	ChatID           string         `json:"chatId"`
	ServiceID        string         `json:"serviceId"`
	ServiceOwnerID   string         `json:"serviceOwnerId"`
	InterestedUserID string         `json:"interestedUserId"`
	ActorID          string         `json:"actorId"`
	Status           model.Status   `json:"status"`
	Message          *model.Message `json:"message,omitempty"`
	At               time.Time      `json:"at"`
}

func newEvent(kind string, c *model.Chat, actorID string, at time.Time) Event {
	return Event{
		Type:             kind,
		ChatID:           c.ID,
		ServiceID:        c.ServiceID,
		ServiceOwnerID:   c.ServiceOwnerID,
		InterestedUserID: c.InterestedUserID,
		ActorID:          actorID,
		Status:           c.Status,
		At:               at,
	}
}

func newMessageEvent(c *model.Chat, msg model.Message) Event {
	ev := newEvent(EventMessageAppended, c, msg.SenderID, msg.Timestamp)
	ev.Message = &msg
	return ev
}

// RepoResolver answers participant lookups for the gateway from the chat
// store.
type RepoResolver struct {
	repo store.ChatRepo
}

func NewParticipantResolver(repo store.ChatRepo) *RepoResolver {
	return &RepoResolver{repo: repo}
}

func (r *RepoResolver) Participants(ctx context.Context, chatID string) (string, string, error) {
	sc, err := r.repo.FindByID(ctx, chatID)
	if err != nil {
		return "", "", err
	}
	return sc.ServiceOwnerID, sc.InterestedUserID, nil
}
