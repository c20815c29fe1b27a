package model

import (
	"time"
)

// Message is one structured entry of a chat log. The JSON names match the
// documents already stored in the chats collection.
type Message struct {
	Text      string    `json:"message"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

// StoredMessage is a log entry as it sits in storage: either a legacy bare
// string or a structured record. Exactly one of the two is set.
type StoredMessage struct {
	legacy *string
	record *Message
}

func LegacyEntry(text string) StoredMessage {
	return StoredMessage{legacy: &text}
}

func RecordEntry(m Message) StoredMessage {
	return StoredMessage{record: &m}
}

func (s StoredMessage) IsLegacy() bool { return s.legacy != nil }

// Legacy returns the bare text of a legacy entry.
func (s StoredMessage) Legacy() (string, bool) {
	if s.legacy == nil {
		return "", false
	}
	return *s.legacy, true
}

// Record returns the structured entry.
func (s StoredMessage) Record() (Message, bool) {
	if s.record == nil {
		return Message{}, false
	}
	return *s.record, true
}

// HasLegacy reports whether any entry still needs an upgrade.
func HasLegacy(entries []StoredMessage) bool {
	for _, e := range entries {
		if e.IsLegacy() {
			return true
		}
	}
	return false
}

// Normalize upgrades a stored log to structured messages. Legacy entries are
// attributed to ownerID and stamped with at; structured entries pass through
// unchanged. Order is preserved and the input is not modified.
func Normalize(entries []StoredMessage, ownerID string, at time.Time) []Message {
	out := make([]Message, 0, len(entries))
	for _, e := range entries {
		if rec, ok := e.Record(); ok {
			out = append(out, rec)
			continue
		}
		text, _ := e.Legacy()
		out = append(out, Message{Text: text, SenderID: ownerID, Timestamp: at})
	}
	return out
}

// StoredChat is a chat as loaded from storage, with its raw log.
type StoredChat struct {
	Chat
	Entries []StoredMessage
}

// View normalizes the log for reading. Legacy entries are stamped with the
// chat creation time since reads must not invent a fresh timestamp on each call.
func (s *StoredChat) View() *Chat {
	c := s.Chat
	c.Messages = Normalize(s.Entries, s.ServiceOwnerID, s.CreatedAt)
	return &c
}
