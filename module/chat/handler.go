// Package chat exposes the chat REST API.
package chat

import (
	"net/http"

	"HoodChat/logger"
	"HoodChat/middleware"
	midsec "HoodChat/middleware/security"
	"HoodChat/module/chat/service"
	"HoodChat/tools/errs"

	"github.com/gin-gonic/gin"
	"go.uber.org/zap"
)

type Handler struct {
	svc *service.ChatService
}

func NewHandler(svc *service.ChatService) *Handler {
	return &Handler{svc: svc}
}

// Routes mounts /chats. Every route requires an authenticated caller.
func (h *Handler) Routes(rt *middleware.Router) {
	auth := middleware.RouteOpt{IsAuth: true}
	rt.POST("/chats", h.create, auth)
	rt.GET("/chats/my-chats", h.myChats, auth)
	rt.GET("/chats/interested", h.interested, auth)
	rt.GET("/chats/service/:serviceId", h.byService, auth)
	rt.GET("/chats/:id", h.get, auth)
	rt.POST("/chats/:id/message", h.sendMessage, auth)
	rt.PATCH("/chats/:id/close", h.close, auth)
	rt.PATCH("/chats/:id/archive", h.archive, auth)
}

type sendMessageBody struct {
	Message string `json:"message"`
}

func (h *Handler) create(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	var req service.CreateRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		fail(c, errs.ErrArgs.WrapMsg("invalid body", "err", err))
		return
	}
	chat, created, err := h.svc.Create(c.Request.Context(), uid, req)
	if err != nil {
		fail(c, err)
		return
	}
	status := http.StatusOK
	if created {
		status = http.StatusCreated
	}
	c.JSON(status, chat)
}

func (h *Handler) myChats(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chats, err := h.svc.ListByOwner(c.Request.Context(), uid)
	respond(c, chats, err)
}

func (h *Handler) interested(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chats, err := h.svc.ListByInterested(c.Request.Context(), uid)
	respond(c, chats, err)
}

func (h *Handler) byService(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chats, err := h.svc.ListByService(c.Request.Context(), uid, c.Param("serviceId"))
	respond(c, chats, err)
}

func (h *Handler) get(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chat, err := h.svc.Get(c.Request.Context(), uid, c.Param("id"))
	respond(c, chat, err)
}

func (h *Handler) sendMessage(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	var body sendMessageBody
	if err := c.ShouldBindJSON(&body); err != nil {
		fail(c, errs.ErrArgs.WrapMsg("invalid body", "err", err))
		return
	}
	chat, err := h.svc.SendMessage(c.Request.Context(), c.Param("id"), uid, body.Message)
	respond(c, chat, err)
}

func (h *Handler) close(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chat, err := h.svc.Close(c.Request.Context(), c.Param("id"), uid)
	respond(c, chat, err)
}

func (h *Handler) archive(c *gin.Context) {
	uid, ok := caller(c)
	if !ok {
		return
	}
	chat, err := h.svc.Archive(c.Request.Context(), c.Param("id"), uid)
	respond(c, chat, err)
}

func caller(c *gin.Context) (string, bool) {
	uid, err := midsec.UserID(c)
	if err != nil {
		fail(c, err)
		return "", false
	}
	return uid, true
}

func respond(c *gin.Context, v any, err error) {
	if err != nil {
		fail(c, err)
		return
	}
	c.JSON(http.StatusOK, v)
}

func fail(c *gin.Context, err error) {
	status := errs.HTTPStatus(err)
	if status >= http.StatusInternalServerError {
		logger.Error("[ChatAPI] request failed", zap.String("path", c.FullPath()), zap.Error(err))
	}
	c.AbortWithStatusJSON(status, gin.H{
		"statusCode": status,
		"message":    errs.PublicMessage(err),
	})
}
