package chat

import (
	"fmt"
	"sync"
	"testing"
)

func testConn(user string) *Conn { return newConn(user, nil, 16) }

func TestRoomNames(t *testing.T) {
	if ChatRoom("42") != "chat:42" || InboxRoom("u1") != "user:u1" {
		t.Fatalf("room names changed: %s %s", ChatRoom("42"), InboxRoom("u1"))
	}
}

func TestEnterSwitchesChatRoom(t *testing.T) {
	r := NewRooms()
	c := testConn("u1")
	r.Join(c, InboxRoom("u1"))

	r.Enter(c, ChatRoom("a"))
	r.Enter(c, ChatRoom("b"))

	if r.IsMember(c, ChatRoom("a")) {
		t.Fatal("still in room a")
	}
	if !r.IsMember(c, ChatRoom("b")) {
		t.Fatal("not in room b")
	}
	if !r.IsMember(c, InboxRoom("u1")) {
		t.Fatal("enter must not touch the inbox")
	}
	if got := len(r.RoomsOf(c)); got != 2 {
		t.Fatalf("rooms = %v", r.RoomsOf(c))
	}
}

func TestEnterSameRoomTwice(t *testing.T) {
	r := NewRooms()
	c := testConn("u1")
	r.Enter(c, ChatRoom("a"))
	r.Enter(c, ChatRoom("a"))
	if n := len(r.Members(ChatRoom("a"))); n != 1 {
		t.Fatalf("members = %d", n)
	}
}

func TestLeaveIdempotent(t *testing.T) {
	r := NewRooms()
	c := testConn("u1")
	r.Leave(c, ChatRoom("x"))
	r.Enter(c, ChatRoom("x"))
	r.Leave(c, ChatRoom("x"))
	r.Leave(c, ChatRoom("x"))
	if r.IsMember(c, ChatRoom("x")) || r.Members(ChatRoom("x")) != nil {
		t.Fatal("membership left behind")
	}
}

func TestLeaveAll(t *testing.T) {
	r := NewRooms()
	c := testConn("u1")
	r.Join(c, InboxRoom("u1"))
	r.Enter(c, ChatRoom("a"))
	r.LeaveAll(c)
	if len(r.RoomsOf(c)) != 0 {
		t.Fatalf("rooms = %v", r.RoomsOf(c))
	}
}

// Concurrent enters from one connection must leave exactly one chat room.
func TestEnterConcurrent(t *testing.T) {
	r := NewRooms()
	c := testConn("u1")
	var wg sync.WaitGroup
	for i := 0; i < 50; i++ {
		wg.Add(1)
		go func(i int) {
			defer wg.Done()
			r.Enter(c, ChatRoom(fmt.Sprint(i%5)))
		}(i)
	}
	wg.Wait()

	chatRooms := 0
	for _, room := range r.RoomsOf(c) {
		if isChatRoom(room) {
			chatRooms++
		}
	}
	if chatRooms != 1 {
		t.Fatalf("chat rooms = %d (%v)", chatRooms, r.RoomsOf(c))
	}
}
