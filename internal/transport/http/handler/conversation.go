package handler

import (
	"context"
	"errors"
	"net/http"
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/samber/lo"

	"edskill-hub/internal/app"
	"edskill-hub/internal/model"
	"edskill-hub/internal/transport/http/middleware"
	"edskill-hub/internal/transport/http/response"
)

type ConversationService interface {
	ListCategories(ctx context.Context) ([]model.Category, error)
	CreateConversation(ctx context.Context, input app.CreateConversationInput) (*model.Conversation, error)
	ListConversations(ctx context.Context, userID string) ([]model.Conversation, error)
	GetHistory(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error)
	RateMessage(ctx context.Context, input app.RateMessageInput) (*model.Message, error)
}

type ConversationHandler struct {
	service ConversationService
}

type CreateConversationRequest struct {
	CategoryID uint `json:"category_id" binding:"required,gt=0"`
}

type RateMessageRequest struct {
	Rating int `json:"rating" binding:"required"`
}

type categoryDTO struct {
	ID          uint   `json:"id"`
	Name        string `json:"name"`
	Description string `json:"description"`
	Icon        string `json:"icon"`
	Color       string `json:"color"`
}

type conversationDTO struct {
	ID         string    `json:"id"`
	CategoryID uint      `json:"category_id"`
	Title      string    `json:"title"`
	CreatedAt  time.Time `json:"created_at"`
}

type messageDTO struct {
	ID        string    `json:"id"`
	Role      string    `json:"role"`
	Content   string    `json:"content"`
	Rating    *int      `json:"rating"`
	CreatedAt time.Time `json:"created_at"`
}

func NewConversationHandler(service ConversationService) *ConversationHandler {
	return &ConversationHandler{service: service}
}

func (h *ConversationHandler) ListCategories(c *gin.Context) {
	categories, err := h.service.ListCategories(c.Request.Context())
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list categories failed")
		return
	}

	response.OK(c, lo.Map(categories, func(category model.Category, _ int) categoryDTO {
		return categoryDTO{
			ID:          category.ID,
			Name:        category.Name,
			Description: category.Description,
			Icon:        category.Icon,
			Color:       category.Color,
		}
	}))
}

func (h *ConversationHandler) CreateConversation(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req CreateConversationRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	conversation, err := h.service.CreateConversation(c.Request.Context(), app.CreateConversationInput{
		UserID:     userID,
		CategoryID: req.CategoryID,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrCategoryNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "create conversation failed")
		}
		return
	}

	response.Created(c, toConversationDTO(*conversation, 0))
}

func (h *ConversationHandler) ListConversations(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	conversations, err := h.service.ListConversations(c.Request.Context(), userID)
	if err != nil {
		response.Error(c, http.StatusInternalServerError, "list conversations failed")
		return
	}

	response.OK(c, lo.Map(conversations, toConversationDTO))
}

func (h *ConversationHandler) GetHistory(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	limit := 0
	if raw := c.Query("limit"); raw != "" {
		parsed, err := strconv.Atoi(raw)
		if err != nil || parsed < 0 {
			response.Error(c, http.StatusBadRequest, "invalid limit")
			return
		}
		limit = parsed
	}

	history, err := h.service.GetHistory(c.Request.Context(), userID, c.Param("id"), limit)
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrConversationNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "get history failed")
		}
		return
	}

	response.OK(c, lo.Map(history, toMessageDTO))
}

func (h *ConversationHandler) RateMessage(c *gin.Context) {
	userID, ok := middleware.UserID(c)
	if !ok {
		response.Error(c, http.StatusUnauthorized, "Invalid token")
		return
	}

	var req RateMessageRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		response.Error(c, http.StatusBadRequest, "invalid request payload")
		return
	}

	message, err := h.service.RateMessage(c.Request.Context(), app.RateMessageInput{
		UserID:    userID,
		MessageID: c.Param("id"),
		Rating:    req.Rating,
	})
	if err != nil {
		switch {
		case errors.Is(err, app.ErrInvalidInput), errors.Is(err, app.ErrMessageNotRateable):
			response.Error(c, http.StatusBadRequest, err.Error())
		case errors.Is(err, app.ErrMessageNotFound):
			response.Error(c, http.StatusNotFound, err.Error())
		case errors.Is(err, app.ErrRatingAlreadySet):
			response.Error(c, http.StatusConflict, err.Error())
		default:
			response.Error(c, http.StatusInternalServerError, "rate message failed")
		}
		return
	}

	response.OK(c, toMessageDTO(*message, 0))
}

func toConversationDTO(conversation model.Conversation, _ int) conversationDTO {
	return conversationDTO{
		ID:         conversation.ID,
		CategoryID: conversation.CategoryID,
		Title:      conversation.Title,
		CreatedAt:  conversation.CreatedAt,
	}
}

func toMessageDTO(message model.Message, _ int) messageDTO {
	return messageDTO{
		ID:        message.ID,
		Role:      message.Role,
		Content:   message.Content,
		Rating:    message.Rating,
		CreatedAt: message.CreatedAt,
	}
}
