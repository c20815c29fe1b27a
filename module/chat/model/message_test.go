package model

import (
	"testing"
	"time"
)

func TestNormalizeUpgradesLegacy(t *testing.T) {
	at := time.Date(2024, 3, 1, 12, 0, 0, 0, time.UTC)
	prior := time.Date(2024, 2, 1, 9, 0, 0, 0, time.UTC)
	entries := []StoredMessage{
		LegacyEntry("first"),
		RecordEntry(Message{Text: "second", SenderID: "u-int", Timestamp: prior}),
		LegacyEntry("third"),
	}

	got := Normalize(entries, "u-owner", at)
	want := []Message{
		{Text: "first", SenderID: "u-owner", Timestamp: at},
		{Text: "second", SenderID: "u-int", Timestamp: prior},
		{Text: "third", SenderID: "u-owner", Timestamp: at},
	}
	if len(got) != len(want) {
		t.Fatalf("len = %d, want %d", len(got), len(want))
	}
	for i := range want {
		if got[i] != want[i] {
			t.Errorf("entry %d = %+v, want %+v", i, got[i], want[i])
		}
	}
	// input untouched
	if !entries[0].IsLegacy() {
		t.Fatal("Normalize mutated its input")
	}
}

func TestNormalizeEmpty(t *testing.T) {
	if got := Normalize(nil, "o", time.Now()); len(got) != 0 {
		t.Fatalf("got %v", got)
	}
}

func TestHasLegacy(t *testing.T) {
	if HasLegacy([]StoredMessage{RecordEntry(Message{Text: "a"})}) {
		t.Fatal("structured log reported as legacy")
	}
	if !HasLegacy([]StoredMessage{RecordEntry(Message{Text: "a"}), LegacyEntry("b")}) {
		t.Fatal("mixed log not reported as legacy")
	}
}

func TestStoredChatView(t *testing.T) {
	created := time.Date(2023, 12, 24, 0, 0, 0, 0, time.UTC)
	sc := &StoredChat{
		Chat:    Chat{ID: "c1", ServiceOwnerID: "o", InterestedUserID: "u", CreatedAt: created},
		Entries: []StoredMessage{LegacyEntry("hi")},
	}
	v := sc.View()
	if len(v.Messages) != 1 || v.Messages[0].SenderID != "o" || !v.Messages[0].Timestamp.Equal(created) {
		t.Fatalf("view = %+v", v.Messages)
	}
}

func TestChatRoles(t *testing.T) {
	c := &Chat{ServiceOwnerID: "o", InterestedUserID: "u"}
	if !c.IsOwner("o") || c.IsOwner("u") {
		t.Error("IsOwner")
	}
	if !c.IsParticipant("u") || c.IsParticipant("x") || c.IsParticipant("") {
		t.Error("IsParticipant")
	}
	if c.Counterpart("o") != "u" || c.Counterpart("u") != "o" {
		t.Error("Counterpart")
	}
	if len(c.Participants()) != 2 || c.SelfReferential() {
		t.Error("Participants")
	}
	self := &Chat{ServiceOwnerID: "o", InterestedUserID: "o"}
	if !self.SelfReferential() || len(self.Participants()) != 1 {
		t.Error("self-referential chat")
	}
}

func TestStatus(t *testing.T) {
	if StatusActive.Terminal() || !StatusClosed.Terminal() || !StatusArchived.Terminal() {
		t.Error("Terminal")
	}
	if Status("deleted").Valid() {
		t.Error("Valid")
	}
}
