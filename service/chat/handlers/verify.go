package handlers

import (
	"HoodChat/logger"
	"HoodChat/service/chat"

	"go.uber.org/zap"
)

// VerifyHandler answers whether the connection is in the chat room. A
// missing membership is repaired before answering inRoom=false.
type VerifyHandler struct{}

func NewVerifyHandler() chat.Handler  { return &VerifyHandler{} }
func (h *VerifyHandler) Event() string { return chat.EventVerifyJoin }

func (h *VerifyHandler) Handle(ctx *chat.Context, f *chat.Frame) (any, error) {
	req, err := chat.DecodeData[chat.ChatRequest](f)
	if err != nil {
		return nil, err
	}
	room := chat.ChatRoom(req.ChatID)
	if ctx.S.Rooms().IsMember(ctx.Conn, room) {
		return chat.VerifyResult{Success: true, InRoom: true}, nil
	}
	if err := ctx.S.Authorize(ctx, ctx.UserID(), req.ChatID); err != nil {
		return nil, err
	}
	ctx.S.Rooms().Enter(ctx.Conn, room)
	logger.Info("[WS] membership repaired", zap.String("user", ctx.UserID()), zap.String("room", room))
	return chat.VerifyResult{Success: true, InRoom: false}, nil
}
