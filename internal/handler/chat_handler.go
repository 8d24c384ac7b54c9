package handler

import (
	"github.com/gin-gonic/gin"

	"github.com/umt-ai/unibot/internal/pkg/errcode"
	"github.com/umt-ai/unibot/internal/pkg/response"
	"github.com/umt-ai/unibot/internal/service"
)

type ChatHandler struct {
	chat *service.ChatService
}

func NewChatHandler(chat *service.ChatService) *ChatHandler {
	return &ChatHandler{chat: chat}
}

type sendMessageRequest struct {
	Text      string `json:"text"`
	SessionID string `json:"session_id"`
}

type deleteSessionRequest struct {
	Topic string `json:"topic"`
}

func (h *ChatHandler) StartSession(c *gin.Context) {
	sessionID, err := h.chat.StartSession(c.Request.Context(), getUsername(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": sessionID})
}

func (h *ChatHandler) SendMessage(c *gin.Context) {
	var req sendMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Text == "" {
		response.Error(c, errcode.ErrInvalid, "text is required")
		return
	}
	result, err := h.chat.HandleUtterance(c.Request.Context(), getUsername(c), req.SessionID, req.Text)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, result)
}

func (h *ChatHandler) History(c *gin.Context) {
	history, err := h.chat.History(c.Request.Context(), getUsername(c))
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"chat_history": history})
}

func (h *ChatHandler) DeleteByTopic(c *gin.Context) {
	var req deleteSessionRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, errcode.ErrInvalid, "invalid request")
		return
	}
	if req.Topic == "" {
		response.Error(c, errcode.ErrInvalid, "topic is required")
		return
	}
	deleted, err := h.chat.DeleteByTopic(c.Request.Context(), getUsername(c), req.Topic)
	if err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"deleted": deleted})
}

func (h *ChatHandler) EndSession(c *gin.Context) {
	sessionID := c.Param("id")
	if sessionID == "" {
		response.Error(c, errcode.ErrInvalid, "session id is required")
		return
	}
	if err := h.chat.EndSession(c.Request.Context(), getUsername(c), sessionID); err != nil {
		handleError(c, err)
		return
	}
	response.Success(c, gin.H{"session_id": sessionID})
}
