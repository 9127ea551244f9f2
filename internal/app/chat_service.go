package app

import (
	"context"
	"errors"
	"time"
	"unicode/utf8"

	"go.uber.org/zap"

	"edskill-hub/internal/ai"
	"edskill-hub/internal/model"
	"edskill-hub/internal/prompt"
)

type CompletionClient interface {
	Complete(ctx context.Context, cfg ai.ChatConfig, messages []ai.ChatMessage) (string, error)
}

// MessageWriter appends message rows to the conversation log.
type MessageWriter interface {
	WriteMessages(ctx context.Context, messages []model.Message) error
}

type ConversationLookup interface {
	GetByIDAndUserID(ctx context.Context, conversationID, userID string) (*model.Conversation, error)
}

type HistoryCache interface {
	GetHistory(ctx context.Context, conversationID string) ([]model.Message, bool, error)
	SetHistory(ctx context.Context, conversationID string, messages []model.Message) error
	Invalidate(ctx context.Context, conversationID string) error
	IsDirty(ctx context.Context, conversationID string) (bool, error)
}

type ChatService struct {
	completion    CompletionClient
	writer        MessageWriter
	conversations ConversationLookup
	historyCache  HistoryCache
	llm           ai.ChatConfig
	enforceOwner  bool
	logger        *zap.Logger
	now           func() time.Time
}

type ChatServiceOptions struct {
	LLM ai.ChatConfig
	// EnforceConversationOwner rejects relays into conversations the caller
	// does not own. Off by default: the conversation id is trusted as sent.
	EnforceConversationOwner bool
	Conversations            ConversationLookup
	HistoryCache             HistoryCache
}

type RelayInput struct {
	UserID         string
	ConversationID string
	Message        string
	CategoryName   string
}

func NewChatService(completion CompletionClient, writer MessageWriter, logger *zap.Logger, opts ChatServiceOptions) *ChatService {
	return &ChatService{
		completion:    completion,
		writer:        writer,
		conversations: opts.Conversations,
		historyCache:  opts.HistoryCache,
		llm:           opts.LLM,
		enforceOwner:  opts.EnforceConversationOwner && opts.Conversations != nil,
		logger:        logger,
		now:           time.Now,
	}
}

// Relay runs one chat turn: prompt selection, a single completion call and a
// best-effort write of the user/assistant pair. A failed write is logged and
// the reply is still returned.
func (s *ChatService) Relay(ctx context.Context, input RelayInput) (string, error) {
	if s.enforceOwner {
		conversation, err := s.conversations.GetByIDAndUserID(ctx, input.ConversationID, input.UserID)
		if err != nil {
			return "", err
		}
		if conversation == nil {
			return "", ErrConversationNotFound
		}
	}

	s.logger.Info("chat request",
		zap.String("user_id", input.UserID),
		zap.String("conversation_id", input.ConversationID),
		zap.String("category_name", input.CategoryName),
	)

	receivedAt := s.now()
	reply, err := s.completion.Complete(ctx, s.llm, []ai.ChatMessage{
		{Role: "system", Content: prompt.Select(input.CategoryName)},
		{Role: model.RoleUser, Content: input.Message},
	})
	if err != nil {
		var upstreamErr *ai.UpstreamError
		if errors.As(err, &upstreamErr) {
			s.logger.Error("upstream error",
				zap.Int("status", upstreamErr.StatusCode),
				zap.String("body", upstreamErr.Body),
			)
		}
		return "", err
	}

	s.logger.Info("ai response generated", zap.Int("length", utf8.RuneCountInString(reply)))

	s.persist(ctx, []model.Message{
		{
			ConversationID: input.ConversationID,
			Role:           model.RoleUser,
			Content:        input.Message,
			CreatedAt:      receivedAt,
		},
		{
			ConversationID: input.ConversationID,
			Role:           model.RoleAssistant,
			Content:        reply,
			CreatedAt:      s.now(),
		},
	})
	return reply, nil
}

func (s *ChatService) persist(ctx context.Context, messages []model.Message) {
	conversationID := messages[0].ConversationID
	if s.historyCache != nil {
		if err := s.historyCache.Invalidate(ctx, conversationID); err != nil {
			s.logger.Warn("invalidate history cache failed", zap.String("conversation_id", conversationID), zap.Error(err))
		}
	}
	if err := s.writer.WriteMessages(ctx, messages); err != nil {
		s.logger.Error("persist messages failed", zap.String("conversation_id", conversationID), zap.Error(err))
	}
}
