package chat

import (
	"encoding/json"
	"time"

	"HoodChat/tools/decode"
	"HoodChat/tools/errs"
)

// Client to server events.
const (
	EventJoinChat   = "joinChat"
	EventVerifyJoin = "verifyJoin"
	EventLeaveChat  = "leaveChat"
)

// Server to client events.
const (
	EventNewMessage   = "newMessage"
	EventChatUpdate   = "chatUpdate"
	EventNotification = "notification"
	EventAck          = "ack"
	EventError        = "error"
)

// Frame is the JSON envelope used in both directions. Requests that expect
// an acknowledgement carry an ID; the ack echoes it.
type Frame struct {
	Event string         `json:"event"`
	ID    string         `json:"id,omitempty"`
	Data  map[string]any `json:"data,omitempty"`
}

type outFrame struct {
	Event string `json:"event"`
	ID    string `json:"id,omitempty"`
	Data  any    `json:"data,omitempty"`
}

func ParseFrame(raw []byte) (*Frame, error) {
	var f Frame
	if err := json.Unmarshal(raw, &f); err != nil {
		return nil, errs.ErrArgs.WrapMsg("malformed frame", "err", err)
	}
	if f.Event == "" {
		return nil, errs.ErrArgs.WrapMsg("frame without event")
	}
	return &f, nil
}

// EncodeFrame builds a server push or ack.
func EncodeFrame(event, id string, data any) ([]byte, error) {
	return json.Marshal(outFrame{Event: event, ID: id, Data: data})
}

type ChatRequest struct {
	ChatID string `json:"chatId"`
}

// DecodeData decodes the frame payload into T, converting loosely typed
// values such as numeric ids.
func DecodeData[T any](f *Frame) (*T, error) {
	out, err := decode.DecodeMap[T](f.Data)
	if err != nil {
		return nil, errs.ErrArgs.WrapMsg("bad frame data", "event", f.Event, "err", err)
	}
	return out, nil
}

type JoinResult struct {
	Success bool   `json:"success"`
	Room    string `json:"room,omitempty"`
	Error   string `json:"error,omitempty"`
}

type VerifyResult struct {
	Success bool   `json:"success"`
	InRoom  bool   `json:"inRoom"`
	Error   string `json:"error,omitempty"`
}

// MessageBody is the message part of a newMessage push.
type MessageBody struct {
	Message   string    `json:"message"`
	SenderID  string    `json:"senderId"`
	ChatID    string    `json:"chatId"`
	Timestamp time.Time `json:"timestamp"`
}

type NewMessage struct {
	ChatID    string      `json:"chatId"`
	Message   MessageBody `json:"message"`
	Timestamp time.Time   `json:"timestamp"`
}

type ChatUpdate struct {
	ChatID    string    `json:"chatId"`
	Status    string    `json:"status"`
	UpdatedBy string    `json:"updatedBy"`
	Timestamp time.Time `json:"timestamp"`
}

const NotificationNewMessage = "newMessage"

type Notification struct {
	ID        string    `json:"id,omitempty"`
	Type      string    `json:"type"`
	Title     string    `json:"title"`
	Body      string    `json:"body"`
	ChatID    string    `json:"chatId"`
	SenderID  string    `json:"senderId"`
	Timestamp time.Time `json:"timestamp"`
}

// NewMessageNotification is the alert sent to the participant who did not write msg.
func NewMessageNotification(chatID, senderID string) Notification {
	return Notification{
		Type:     NotificationNewMessage,
		Title:    "New Message",
		Body:     "You have a new message in chat",
		ChatID:   chatID,
		SenderID: senderID,
	}
}
