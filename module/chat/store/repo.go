package store

import (
	"context"
	"time"

	"HoodChat/module/chat/model"
)

// ChatRepo persists chats. Lookups that find nothing return an error matching
// errs.ErrRecordNotFound.
type ChatRepo interface {
	Create(ctx context.Context, c *model.Chat) error
	FindByID(ctx context.Context, id string) (*model.StoredChat, error)
	// FindActive returns the active chat for a listing and interested user.
	FindActive(ctx context.Context, serviceID, interestedUserID string) (*model.StoredChat, error)
	Delete(ctx context.Context, id string) error

	ListByOwner(ctx context.Context, ownerID string) ([]*model.StoredChat, error)
	ListByInterested(ctx context.Context, userID string) ([]*model.StoredChat, error)
	ListByService(ctx context.Context, serviceID string) ([]*model.StoredChat, error)

	// Append adds msg to the log and refreshes lastMessage fields. A non-nil
	// upgraded slice replaces the whole stored log with upgraded followed by
	// msg in the same write; it is set when the stored log held legacy entries.
	Append(ctx context.Context, chatID string, msg model.Message, upgraded []model.Message) error
	UpdateStatus(ctx context.Context, chatID string, status model.Status, at time.Time) error
}
