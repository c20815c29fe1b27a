package chat

import (
	"context"
	"sync"
	"time"

	"HoodChat/logger"

	"go.uber.org/zap"
)

// PresenceMirror publishes online state for other processes. It is best
// effort; the in-process registry stays authoritative.
type PresenceMirror interface {
	Online(ctx context.Context, userID, connID string) error
	Offline(ctx context.Context, userID, connID string) error
}

const mirrorTimeout = 2 * time.Second

// Registry maps each user to their current connection and keeps that
// connection in the user's inbox room.
type Registry struct {
	mu     sync.RWMutex
	byUser map[string]*Conn
	rooms  *Rooms
	mirror PresenceMirror
}

func NewRegistry(rooms *Rooms, mirror PresenceMirror) *Registry {
	return &Registry{
		byUser: make(map[string]*Conn),
		rooms:  rooms,
		mirror: mirror,
	}
}

// Register makes c the connection of userID and joins it to the inbox room.
// A previous connection stays open but no longer receives inbox delivery.
func (r *Registry) Register(userID string, c *Conn) {
	if userID == "" || c == nil {
		return
	}
	inbox := InboxRoom(userID)

	r.mu.Lock()
	prev := r.byUser[userID]
	r.byUser[userID] = c
	if prev != nil && prev != c {
		r.rooms.Leave(prev, inbox)
	}
	r.rooms.Join(c, inbox)
	r.mu.Unlock()

	if prev != nil && prev != c {
		logger.Info("[WS] connection superseded", zap.String("user", userID), zap.String("old", prev.ID()), zap.String("conn", c.ID()))
	}
	r.mirrorCall("online", userID, c.ID(), r.onlineFn())
}

// Unregister removes the entry only if it still points at c, so a late
// disconnect of a superseded connection cannot evict its replacement.
func (r *Registry) Unregister(userID string, c *Conn) bool {
	if userID == "" || c == nil {
		return false
	}
	r.mu.Lock()
	cur, ok := r.byUser[userID]
	removed := ok && cur == c
	if removed {
		delete(r.byUser, userID)
	}
	r.rooms.Leave(c, InboxRoom(userID))
	r.mu.Unlock()

	if removed {
		r.mirrorCall("offline", userID, c.ID(), r.offlineFn())
	}
	return removed
}

func (r *Registry) Lookup(userID string) (*Conn, bool) {
	r.mu.RLock()
	defer r.mu.RUnlock()
	c, ok := r.byUser[userID]
	return c, ok
}

// Online returns the number of registered users.
func (r *Registry) Online() int {
	r.mu.RLock()
	defer r.mu.RUnlock()
	return len(r.byUser)
}

func (r *Registry) onlineFn() func(context.Context, string, string) error {
	if r.mirror == nil {
		return nil
	}
	return r.mirror.Online
}

func (r *Registry) offlineFn() func(context.Context, string, string) error {
	if r.mirror == nil {
		return nil
	}
	return r.mirror.Offline
}

func (r *Registry) mirrorCall(op, userID, connID string, fn func(context.Context, string, string) error) {
	if fn == nil {
		return
	}
	ctx, cancel := context.WithTimeout(context.Background(), mirrorTimeout)
	defer cancel()
	if err := fn(ctx, userID, connID); err != nil {
		logger.Warn("[WS] presence mirror failed", zap.String("op", op), zap.String("user", userID), zap.Error(err))
	}
}
