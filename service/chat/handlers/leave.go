package handlers

import (
	"HoodChat/service/chat"
)

type LeaveHandler struct{}

func NewLeaveHandler() chat.Handler  { return &LeaveHandler{} }
func (h *LeaveHandler) Event() string { return chat.EventLeaveChat }

func (h *LeaveHandler) Handle(ctx *chat.Context, f *chat.Frame) (any, error) {
	req, err := chat.DecodeData[chat.ChatRequest](f)
	if err != nil {
		return nil, err
	}
	ctx.S.Rooms().Leave(ctx.Conn, chat.ChatRoom(req.ChatID))
	return map[string]any{"success": true}, nil
}
