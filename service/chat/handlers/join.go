package handlers

import (
	"HoodChat/logger"
	"HoodChat/service/chat"

	"go.uber.org/zap"
)

// JoinHandler moves the connection into a chat room, leaving any other.
type JoinHandler struct{}

func NewJoinHandler() chat.Handler  { return &JoinHandler{} }
func (h *JoinHandler) Event() string { return chat.EventJoinChat }

func (h *JoinHandler) Handle(ctx *chat.Context, f *chat.Frame) (any, error) {
	req, err := chat.DecodeData[chat.ChatRequest](f)
	if err != nil {
		return nil, err
	}
	if err := ctx.S.Authorize(ctx, ctx.UserID(), req.ChatID); err != nil {
		return nil, err
	}
	room := chat.ChatRoom(req.ChatID)
	ctx.S.Rooms().Enter(ctx.Conn, room)
	logger.Debug("[WS] joined", zap.String("user", ctx.UserID()), zap.String("room", room))
	return chat.JoinResult{Success: true, Room: room}, nil
}
