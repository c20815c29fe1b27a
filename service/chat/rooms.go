package chat

import (
	"strings"
	"sync"
)

const (
	chatRoomPrefix  = "chat:"
	inboxRoomPrefix = "user:"
)

// ChatRoom names the room of one conversation.
func ChatRoom(chatID string) string { return chatRoomPrefix + chatID }

// InboxRoom names the per-user room used for direct delivery.
func InboxRoom(userID string) string { return inboxRoomPrefix + userID }

func isChatRoom(room string) bool { return strings.HasPrefix(room, chatRoomPrefix) }

// Rooms tracks room membership of live connections. Both indexes are
// guarded by one mutex so every operation is atomic.
type Rooms struct {
	mu     sync.RWMutex
	byRoom map[string]map[*Conn]struct{}
	byConn map[*Conn]map[string]struct{}
}

func NewRooms() *Rooms {
	return &Rooms{
		byRoom: make(map[string]map[*Conn]struct{}),
		byConn: make(map[*Conn]map[string]struct{}),
	}
}

// Enter moves c out of every chat room and into room.
func (r *Rooms) Enter(c *Conn, room string) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for joined := range r.byConn[c] {
		if isChatRoom(joined) && joined != room {
			r.leaveLocked(c, joined)
		}
	}
	r.joinLocked(c, room)
}

// Join adds c to room without touching its other memberships.
func (r *Rooms) Join(c *Conn, room string) {
	r.mu.Lock()
	r.joinLocked(c, room)
	r.mu.Unlock()
}

// Leave is a no-op when c is not in room.
func (r *Rooms) Leave(c *Conn, room string) {
	r.mu.Lock()
	r.leaveLocked(c, room)
	r.mu.Unlock()
}

// LeaveAll drops every membership of c. Called on disconnect.
func (r *Rooms) LeaveAll(c *Conn) {
	r.mu.Lock()
	defer r.mu.Unlock()
	for room := range r.byConn[c] {
		r.leaveLocked(c, room)
	}
}

func (r *Rooms) IsMember(c *Conn, room string) bool {
	r.mu.RLock()
	defer r.mu.RUnlock()
	_, ok := r.byRoom[room][c]
	return ok
}

// Members returns a snapshot of room.
func (r *Rooms) Members(room string) []*Conn {
	r.mu.RLock()
	defer r.mu.RUnlock()
	set := r.byRoom[room]
	if len(set) == 0 {
		return nil
	}
	out := make([]*Conn, 0, len(set))
	for c := range set {
		out = append(out, c)
	}
	return out
}

// RoomsOf returns a snapshot of the rooms c belongs to.
func (r *Rooms) RoomsOf(c *Conn) []string {
	r.mu.RLock()
	defer r.mu.RUnlock()
	out := make([]string, 0, len(r.byConn[c]))
	for room := range r.byConn[c] {
		out = append(out, room)
	}
	return out
}

func (r *Rooms) joinLocked(c *Conn, room string) {
	members := r.byRoom[room]
	if members == nil {
		members = make(map[*Conn]struct{})
		r.byRoom[room] = members
	}
	members[c] = struct{}{}

	joined := r.byConn[c]
	if joined == nil {
		joined = make(map[string]struct{})
		r.byConn[c] = joined
	}
	joined[room] = struct{}{}
}

func (r *Rooms) leaveLocked(c *Conn, room string) {
	if members := r.byRoom[room]; members != nil {
		delete(members, c)
		if len(members) == 0 {
			delete(r.byRoom, room)
		}
	}
	if joined := r.byConn[c]; joined != nil {
		delete(joined, room)
		if len(joined) == 0 {
			delete(r.byConn, c)
		}
	}
}
