package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"go.uber.org/zap"
	"gorm.io/gorm"

	"edskill-hub/internal/ai"
	appsvc "edskill-hub/internal/app"
	"edskill-hub/internal/cache"
	"edskill-hub/internal/config"
	"edskill-hub/internal/identity"
	"edskill-hub/internal/platform/database"
	rabbitmqClient "edskill-hub/internal/platform/rabbitmq"
	redisClient "edskill-hub/internal/platform/redis"
	"edskill-hub/internal/repository"
	"edskill-hub/internal/worker"
)

type App struct {
	Config        *config.Config
	Logger        *zap.Logger
	DB            *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	MessageWorker *worker.MessagePersistWorker

	Verifier            identity.Verifier
	AuthService         *appsvc.AuthService
	ChatService         *appsvc.ChatService
	ConversationService *appsvc.ConversationService

	StartedAt time.Time
}

func New(ctx context.Context, cfg *config.Config, logger *zap.Logger) (*App, error) {
	app := &App{
		Config:    cfg,
		Logger:    logger,
		StartedAt: time.Now(),
	}

	db, err := database.New(ctx, cfg.Database.Driver, cfg.DSN())
	if err != nil {
		return nil, err
	}
	app.DB = db
	if err := database.Migrate(db); err != nil {
		_ = app.Close()
		return nil, err
	}

	var historyCache appsvc.HistoryCache
	if cfg.Redis.Enabled {
		redisCli, err := redisClient.New(ctx, cfg.Redis)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.Redis = redisCli
		historyCache = cache.NewHistoryCache(
			redisCli,
			time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second,
			time.Duration(cfg.Redis.HistoryDirtyTTLSeconds)*time.Second,
		)
	}

	userRepo := repository.NewUserRepository(db)
	categoryRepo := repository.NewCategoryRepository(db)
	conversationRepo := repository.NewConversationRepository(db)
	messageRepo := repository.NewMessageRepository(db)

	var writer appsvc.MessageWriter = messageRepo
	if cfg.Chat.PersistMode == config.PersistModeQueue {
		mqConn, err := rabbitmqClient.New(cfg.RabbitMQ.URL, cfg.RabbitMQ.MessagePersistQueue)
		if err != nil {
			_ = app.Close()
			return nil, err
		}
		app.MQConn = mqConn

		var invalidator worker.HistoryInvalidator
		if historyCache != nil {
			invalidator = historyCache
		}
		messageWorker := worker.NewMessagePersistWorker(mqConn, messageRepo, invalidator, cfg.RabbitMQ.MessagePersistQueue, logger)
		if err := messageWorker.Start(ctx); err != nil {
			_ = app.Close()
			return nil, fmt.Errorf("start message worker failed: %w", err)
		}
		app.MessageWorker = messageWorker
		writer = rabbitmqClient.NewMessagePublisher(mqConn, cfg.RabbitMQ.MessagePersistQueue)
	}

	switch cfg.Auth.Mode {
	case config.AuthModeRemote:
		app.Verifier = identity.NewRemoteVerifier(cfg.Auth.RemoteURL, cfg.Auth.RemoteAPIKey)
	default:
		app.Verifier = identity.NewJWTVerifier(cfg.Auth.JWTSecret)
	}

	app.AuthService = appsvc.NewAuthService(
		userRepo,
		cfg.Auth.JWTSecret,
		time.Duration(cfg.Auth.JWTExpireMinute)*time.Minute,
	)
	app.ChatService = appsvc.NewChatService(
		ai.NewOpenAICompatibleClient(time.Duration(cfg.LLM.TimeoutSeconds)*time.Second),
		writer,
		logger,
		appsvc.ChatServiceOptions{
			LLM: ai.ChatConfig{
				BaseURL: cfg.LLM.BaseURL,
				APIKey:  cfg.LLM.APIKey,
				Model:   cfg.LLM.Model,
			},
			EnforceConversationOwner: cfg.Chat.EnforceConversationOwner,
			Conversations:            conversationRepo,
			HistoryCache:             historyCache,
		},
	)
	app.ConversationService = appsvc.NewConversationService(
		categoryRepo,
		conversationRepo,
		messageRepo,
		historyCache,
		logger,
	)

	logger.Info("application initialized",
		zap.String("db_driver", cfg.Database.Driver),
		zap.String("auth_mode", cfg.Auth.Mode),
		zap.String("persist_mode", cfg.Chat.PersistMode),
		zap.Bool("redis_enabled", cfg.Redis.Enabled),
	)
	return app, nil
}

func (a *App) Close() error {
	var closeErr error
	if a.MessageWorker != nil {
		a.MessageWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.DB != nil {
		sqlDB, err := a.DB.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
