package model

import (
	"time"
)

type Status string

const (
	StatusActive   Status = "active"
	StatusClosed   Status = "closed"
	StatusArchived Status = "archived"
)

func (s Status) Valid() bool {
	switch s {
	case StatusActive, StatusClosed, StatusArchived:
		return true
	}
	return false
}

// Terminal statuses need no further transition.
func (s Status) Terminal() bool {
	return s == StatusClosed || s == StatusArchived
}

// Chat is one conversation between a listing owner and an interested user
// about one listing. Messages are always structured here; legacy entries
// only exist at the storage boundary.
type Chat struct {
	ID               string     `json:"_id"`
	ServiceOwnerID   string     `json:"serviceOwnerId"`
	InterestedUserID string     `json:"interestedUserId"`
	ServiceID        string     `json:"serviceId"`
	Messages         []Message  `json:"messages"`
	Status           Status     `json:"status"`
	LastMessage      string     `json:"lastMessage"`
	LastMessageAt    *time.Time `json:"lastMessageAt,omitempty"`
	CreatedAt        time.Time  `json:"createdAt"`
	UpdatedAt        time.Time  `json:"updatedAt"`
}

func (c *Chat) IsOwner(userID string) bool {
	return userID != "" && c.ServiceOwnerID == userID
}

func (c *Chat) IsParticipant(userID string) bool {
	return userID != "" && (c.ServiceOwnerID == userID || c.InterestedUserID == userID)
}

// Counterpart returns the participant that is not userID.
func (c *Chat) Counterpart(userID string) string {
	if c.ServiceOwnerID == userID {
		return c.InterestedUserID
	}
	return c.ServiceOwnerID
}

// Participants returns owner then interested user, deduplicated.
func (c *Chat) Participants() []string {
	if c.ServiceOwnerID == c.InterestedUserID {
		return []string{c.ServiceOwnerID}
	}
	return []string{c.ServiceOwnerID, c.InterestedUserID}
}

// SelfReferential marks degenerate records where one user sits on both sides.
func (c *Chat) SelfReferential() bool {
	return c.ServiceOwnerID == c.InterestedUserID
}

// Header is the chat without its message log.
func (c *Chat) Header() Chat {
	h := *c
	h.Messages = nil
	return h
}
