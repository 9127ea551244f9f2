package repository

import (
	"context"
	"errors"
	"fmt"
	"slices"

	"gorm.io/gorm"

	"edskill-hub/internal/model"
)

var ErrRatingAlreadySet = errors.New("message already rated")

const MaxHistoryLimit = 200

type MessageRepository struct {
	db *gorm.DB
}

func NewMessageRepository(db *gorm.DB) *MessageRepository {
	return &MessageRepository{db: db}
}

// WriteMessages inserts all rows in one statement.
func (r *MessageRepository) WriteMessages(ctx context.Context, messages []model.Message) error {
	if len(messages) == 0 {
		return nil
	}
	if err := r.db.WithContext(ctx).Create(&messages).Error; err != nil {
		return fmt.Errorf("insert messages failed: %w", err)
	}
	return nil
}

// ListByConversationID returns messages oldest first. A positive limit keeps
// only the newest limit rows (capped at MaxHistoryLimit); otherwise the whole
// conversation is returned.
func (r *MessageRepository) ListByConversationID(ctx context.Context, conversationID string, limit int) ([]model.Message, error) {
	if limit > MaxHistoryLimit {
		limit = MaxHistoryLimit
	}

	query := r.db.WithContext(ctx).Where("conversation_id = ?", conversationID)
	var messages []model.Message
	if limit <= 0 {
		if err := query.Order("created_at ASC").Order("id ASC").Find(&messages).Error; err != nil {
			return nil, fmt.Errorf("list messages failed: %w", err)
		}
		return messages, nil
	}

	if err := query.Order("created_at DESC").Order("id DESC").Limit(limit).Find(&messages).Error; err != nil {
		return nil, fmt.Errorf("list messages failed: %w", err)
	}
	slices.Reverse(messages)
	return messages, nil
}

func (r *MessageRepository) GetByID(ctx context.Context, id string) (*model.Message, error) {
	var message model.Message
	if err := r.db.WithContext(ctx).Where("id = ?", id).First(&message).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			return nil, nil
		}
		return nil, fmt.Errorf("get message failed: %w", err)
	}
	return &message, nil
}

// SetRating stores the rating only if none was set before.
func (r *MessageRepository) SetRating(ctx context.Context, id string, rating int) error {
	result := r.db.WithContext(ctx).
		Model(&model.Message{}).
		Where("id = ? AND rating IS NULL", id).
		Update("rating", rating)
	if result.Error != nil {
		return fmt.Errorf("update message rating failed: %w", result.Error)
	}
	if result.RowsAffected == 0 {
		return ErrRatingAlreadySet
	}
	return nil
}
