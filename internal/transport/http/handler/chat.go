package handler

import (
	"context"
	"errors"
	"net/http"

	"github.com/gin-gonic/gin"

	"edskill-hub/internal/ai"
	"edskill-hub/internal/app"
	"edskill-hub/internal/transport/http/middleware"
	"edskill-hub/internal/transport/http/response"
)

type ChatRelayer interface {
	Relay(ctx context.Context, input app.RelayInput) (string, error)
}

type ChatHandler struct {
	chatService ChatRelayer
}

type RelayRequest struct {
	ConversationID string `json:"conversationId"`
	Message        string `json:"message"`
	CategoryName   string `json:"categoryName"`
}

func NewChatHandler(chatService ChatRelayer) *ChatHandler {
	return &ChatHandler{chatService: chatService}
}

// Relay answers one chat turn. The turn runs to completion even when the
// client goes away, so the exchange is still recorded.
func (h *ChatHandler) Relay(c *gin.Context) {
	userID, _ := middleware.UserID(c)

	var req RelayRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusInternalServerError, err.Error())
		return
	}

	reply, err := h.chatService.Relay(context.WithoutCancel(c.Request.Context()), app.RelayInput{
		UserID:         userID,
		ConversationID: req.ConversationID,
		Message:        req.Message,
		CategoryName:   req.CategoryName,
	})
	if err != nil {
		var upstreamErr *ai.UpstreamError
		switch {
		case errors.As(err, &upstreamErr):
			response.Error(c, http.StatusInternalServerError, "AI service error: "+upstreamErr.Body)
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, err.Error())
		}
		return
	}

	response.OK(c, response.MessageBody{Message: reply})
}
