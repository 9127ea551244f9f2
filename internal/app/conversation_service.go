package app

import (
	"context"
	"errors"
	"fmt"
	"time"

	"github.com/go-playground/validator/v10"
	"go.uber.org/zap"

	"edskill-hub/internal/model"
	"edskill-hub/internal/repository"
)

type CategoryStore interface {
	List(ctx context.Context) ([]model.Category, error)
	GetByID(ctx context.Context, id uint) (*model.Category, error)
}

type ConversationStore interface {
	ConversationLookup
	Create(ctx context.Context, conversation *model.Conversation) error
	ListByUserID(ctx context.Context, userID string) ([]model.Conversation, error)
}

type MessageStore interface {
	ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.Message, error)
	GetByID(ctx context.Context, id string) (*model.Message, error)
	SetRating(ctx context.Context, id string, rating int) error
}

type ConversationService struct {
	categories    CategoryStore
	conversations ConversationStore
	messages      MessageStore
	historyCache  HistoryCache
	validate      *validator.Validate
	logger        *zap.Logger
	now           func() time.Time
}

type CreateConversationInput struct {
	UserID     string `validate:"required"`
	CategoryID uint   `validate:"required,gt=0"`
}

type RateMessageInput struct {
	UserID    string `validate:"required"`
	MessageID string `validate:"required"`
	Rating    int    `validate:"min=1,max=5"`
}

func NewConversationService(
	categories CategoryStore,
	conversations ConversationStore,
	messages MessageStore,
	historyCache HistoryCache,
	logger *zap.Logger,
) *ConversationService {
	return &ConversationService{
		categories:    categories,
		conversations: conversations,
		messages:      messages,
		historyCache:  historyCache,
		validate:      validator.New(),
		logger:        logger,
		now:           time.Now,
	}
}

func (s *ConversationService) ListCategories(ctx context.Context) ([]model.Category, error) {
	return s.categories.List(ctx)
}

func (s *ConversationService) CreateConversation(ctx context.Context, input CreateConversationInput) (*model.Conversation, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, ErrInvalidInput
	}

	category, err := s.categories.GetByID(ctx, input.CategoryID)
	if err != nil {
		return nil, err
	}
	if category == nil {
		return nil, ErrCategoryNotFound
	}

	now := s.now()
	conversation := &model.Conversation{
		UserID:     input.UserID,
		CategoryID: category.ID,
		Title:      fmt.Sprintf("%s - %s", category.Name, now.Format("2006-01-02")),
		CreatedAt:  now,
	}
	if err := s.conversations.Create(ctx, conversation); err != nil {
		return nil, err
	}
	return conversation, nil
}

func (s *ConversationService) ListConversations(ctx context.Context, userID string) ([]model.Conversation, error) {
	if userID == "" {
		return nil, ErrInvalidInput
	}
	return s.conversations.ListByUserID(ctx, userID)
}

// GetHistory returns the owner's messages oldest first, read through the
// history cache when it is clean. A positive limit keeps the newest messages.
func (s *ConversationService) GetHistory(ctx context.Context, userID, conversationID string, limit int) ([]model.Message, error) {
	if userID == "" || conversationID == "" {
		return nil, ErrInvalidInput
	}

	conversation, err := s.conversations.GetByIDAndUserID(ctx, conversationID, userID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrConversationNotFound
	}

	if s.historyCache != nil {
		dirty, err := s.historyCache.IsDirty(ctx, conversationID)
		if err == nil && !dirty {
			if cached, hit, cacheErr := s.historyCache.GetHistory(ctx, conversationID); cacheErr == nil && hit {
				return trimMessages(cached, limit), nil
			}
		}
	}

	messages, err := s.messages.ListByConversationID(ctx, conversationID, limit)
	if err != nil {
		return nil, err
	}
	if s.historyCache != nil && limit <= 0 {
		if dirty, dirtyErr := s.historyCache.IsDirty(ctx, conversationID); dirtyErr == nil && !dirty {
			if err := s.historyCache.SetHistory(ctx, conversationID, messages); err != nil {
				s.logger.Warn("fill history cache failed", zap.String("conversation_id", conversationID), zap.Error(err))
			}
		}
	}
	return messages, nil
}

// RateMessage sets the rating of an assistant message once. Messages in
// conversations the caller does not own are reported as missing.
func (s *ConversationService) RateMessage(ctx context.Context, input RateMessageInput) (*model.Message, error) {
	if err := s.validate.Struct(input); err != nil {
		return nil, ErrInvalidInput
	}

	message, err := s.messages.GetByID(ctx, input.MessageID)
	if err != nil {
		return nil, err
	}
	if message == nil {
		return nil, ErrMessageNotFound
	}

	conversation, err := s.conversations.GetByIDAndUserID(ctx, message.ConversationID, input.UserID)
	if err != nil {
		return nil, err
	}
	if conversation == nil {
		return nil, ErrMessageNotFound
	}
	if message.Role != model.RoleAssistant {
		return nil, ErrMessageNotRateable
	}
	if message.Rating != nil {
		return nil, ErrRatingAlreadySet
	}

	if err := s.messages.SetRating(ctx, message.ID, input.Rating); err != nil {
		if errors.Is(err, repository.ErrRatingAlreadySet) {
			return nil, ErrRatingAlreadySet
		}
		return nil, err
	}
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, message.ConversationID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.String("conversation_id", message.ConversationID), zap.Error(err))
		}
	}

	rating := input.Rating
	message.Rating = &rating
	return message, nil
}

func trimMessages(messages []model.Message, limit int) []model.Message {
	if limit <= 0 || limit >= len(messages) {
		return messages
	}
	return messages[len(messages)-limit:]
}
