package chat

import (
	"context"
	"errors"
	"sync"
	"testing"
)

type recordingMirror struct {
	mu   sync.Mutex
	ops  []string
	fail bool
}

func (m *recordingMirror) Online(_ context.Context, userID, connID string) error {
	return m.add("online:" + userID + ":" + connID)
}

func (m *recordingMirror) Offline(_ context.Context, userID, connID string) error {
	return m.add("offline:" + userID + ":" + connID)
}

func (m *recordingMirror) add(op string) error {
	m.mu.Lock()
	defer m.mu.Unlock()
	m.ops = append(m.ops, op)
	if m.fail {
		return errors.New("mirror down")
	}
	return nil
}

func TestRegisterReplacesAndStaleUnregisterIsNoop(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)
	h1, h2 := testConn("u"), testConn("u")

	reg.Register("u", h1)
	reg.Register("u", h2)
	if reg.Unregister("u", h1) {
		t.Fatal("stale unregister removed the entry")
	}

	got, ok := reg.Lookup("u")
	if !ok || got != h2 {
		t.Fatalf("lookup = %v, %v", got, ok)
	}
	if rooms.IsMember(h1, InboxRoom("u")) {
		t.Fatal("superseded handle still in inbox")
	}
	if !rooms.IsMember(h2, InboxRoom("u")) {
		t.Fatal("current handle lost its inbox")
	}
}

func TestUnregisterCurrent(t *testing.T) {
	rooms := NewRooms()
	reg := NewRegistry(rooms, nil)
	h := testConn("u")
	reg.Register("u", h)
	if !reg.Unregister("u", h) {
		t.Fatal("unregister failed")
	}
	if _, ok := reg.Lookup("u"); ok {
		t.Fatal("entry survived")
	}
	if reg.Online() != 0 || rooms.Members(InboxRoom("u")) != nil {
		t.Fatal("state left behind")
	}
}

func TestRegistryMirror(t *testing.T) {
	m := &recordingMirror{}
	reg := NewRegistry(NewRooms(), m)
	h1, h2 := testConn("u"), testConn("u")
	reg.Register("u", h1)
	reg.Register("u", h2)
	reg.Unregister("u", h1)
	reg.Unregister("u", h2)

	want := []string{
		"online:u:" + h1.ID(),
		"online:u:" + h2.ID(),
		"offline:u:" + h2.ID(),
	}
	if len(m.ops) != len(want) {
		t.Fatalf("ops = %v", m.ops)
	}
	for i := range want {
		if m.ops[i] != want[i] {
			t.Fatalf("ops[%d] = %s, want %s", i, m.ops[i], want[i])
		}
	}
}

func TestRegistryMirrorFailureIsIgnored(t *testing.T) {
	reg := NewRegistry(NewRooms(), &recordingMirror{fail: true})
	h := testConn("u")
	reg.Register("u", h)
	if got, ok := reg.Lookup("u"); !ok || got != h {
		t.Fatal("mirror failure must not block registration")
	}
}
