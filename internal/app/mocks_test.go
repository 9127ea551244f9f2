package app

import (
	"context"
	"path/filepath"
	"testing"

	"github.com/stretchr/testify/mock"
	"github.com/stretchr/testify/require"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"
	"gorm.io/gorm/logger"

	"edskill-hub/internal/ai"
	"edskill-hub/internal/model"
)

type mockCompletion struct {
	mock.Mock
}

func (m *mockCompletion) Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error) {
	args := m.Called(ctx, cfg, messages)
	return args.String(0), args.Error(1)
}

type mockWriter struct {
	mock.Mock
}

func (m *mockWriter) WriteMessages(ctx context.Context, messages []model.Message) error {
	args := m.Called(ctx, messages)
	return args.Error(0)
}

type mockHistoryCache struct {
	mock.Mock
}

func (m *mockHistoryCache) GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error) {
	args := m.Called(ctx, conversationID)
	messages, _ := args.Get(0).([]model.Message)
	return messages, args.Bool(1), args.Error(2)
}

func (m *mockHistoryCache) SetHistory(ctx context.Context, conversationID string, messages []model.Message) error {
	return m.Called(ctx, conversationID, messages).Error(0)
}

func (m *mockHistoryCache) Invalidate(ctx context.Context, conversationID string) error {
	return m.Called(ctx, conversationID).Error(0)
}

func (m *mockHistoryCache) IsDirty(ctx context.Context, conversationID string) (bool, error) {
	args := m.Called(ctx, conversationID)
	return args.Bool(0), args.Error(1)
}

func newTestDB(t *testing.T) *gorm.DB {
	t.Helper()
	db, err := gorm.Open(sqlite.Open(filepath.Join(t.TempDir(), "app.db")), &gorm.Config{
		Logger: logger.Default.LogMode(logger.Silent),
	})
	require.NoError(t, err)
	require.NoError(t, db.AutoMigrate(&model.User{}, &model.Category{}, &model.Conversation{}, &model.Message{}))
	return db
}
