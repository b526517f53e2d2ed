package bootstrap

import (
	"context"
	"fmt"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"github.com/parardhadhar/parardha-insight-engine/internal/ai"
	"github.com/parardhadhar/parardha-insight-engine/internal/app"
	"github.com/parardhadhar/parardha-insight-engine/internal/cache"
	"github.com/parardhadhar/parardha-insight-engine/internal/config"
	"github.com/parardhadhar/parardha-insight-engine/internal/index"
	"github.com/parardhadhar/parardha-insight-engine/internal/model"
	mysqlClient "github.com/parardhadhar/parardha-insight-engine/internal/platform/mysql"
	rabbitmqClient "github.com/parardhadhar/parardha-insight-engine/internal/platform/rabbitmq"
	redisClient "github.com/parardhadhar/parardha-insight-engine/internal/platform/redis"
	"github.com/parardhadhar/parardha-insight-engine/internal/repository"
	"github.com/parardhadhar/parardha-insight-engine/internal/session"
	"github.com/parardhadhar/parardha-insight-engine/internal/worker"
)

type App struct {
	Config       *config.Config
	Sessions     *session.Store
	Conversation *app.ConversationService
	Archive      *app.ArchiveService

	MySQL         *gorm.DB
	Redis         *redis.Client
	MQConn        *amqp.Connection
	ArchiveWorker *worker.TranscriptArchiveWorker

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	sessions := session.NewStore(time.Duration(cfg.Session.IdleTTLMinutes) * time.Minute)

	provider := ai.NewProvider(ai.ProviderOptions{
		RepoID:            cfg.Embedding.RepoID,
		CacheDir:          cfg.Embedding.CacheDir,
		ONNXSharedLibPath: cfg.Embedding.ONNXSharedLibPath,
		MaxSequenceLength: cfg.Embedding.MaxSequenceLength,
		LLMBaseURL:        cfg.LLM.BaseURL,
		LLMModel:          cfg.LLM.Model,
	})

	builder := index.NewBuilder(
		cfg.Retrieval.ChunkSize,
		cfg.Retrieval.ChunkOverlap,
		cfg.Retrieval.BatchSize,
	)

	a := &App{
		Config:    cfg,
		Sessions:  sessions,
		StartedAt: time.Now(),
	}

	if cfg.Archive.Enabled {
		if err := a.connectArchive(ctx, cfg); err != nil {
			return nil, err
		}
	}

	a.Conversation = app.NewConversationService(
		sessions,
		provider,
		cfg.LLM.APIKey,
		builder,
		cfg.Retrieval.TopK,
		a.Archive,
	)

	return a, nil
}

// connectArchive wires the durable transcript pipeline: RabbitMQ for the
// publish side, MySQL behind the archive worker, Redis in front of reads.
func (a *App) connectArchive(ctx context.Context, cfg *config.Config) error {
	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return err
	}
	if err := mysqlDB.AutoMigrate(&model.TranscriptMessage{}); err != nil {
		return fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return err
	}

	transcriptRepo := repository.NewTranscriptRepository(mysqlDB)
	archiveWorker := worker.NewTranscriptArchiveWorker(mqConn, transcriptRepo, cfg.RabbitMQ.ArchiveQueue)
	if err := archiveWorker.Start(ctx); err != nil {
		return fmt.Errorf("start archive worker failed: %w", err)
	}

	transcriptCache := cache.NewTranscriptCache(
		redisCli,
		time.Duration(cfg.Redis.TranscriptTTLSeconds)*time.Second,
		time.Duration(cfg.Redis.TranscriptDirtyTTLSeconds)*time.Second,
	)
	publisher := rabbitmqClient.NewTranscriptPublisher(mqConn, cfg.RabbitMQ.ArchiveQueue)

	a.MySQL = mysqlDB
	a.Redis = redisCli
	a.MQConn = mqConn
	a.ArchiveWorker = archiveWorker
	a.Archive = app.NewArchiveService(publisher, transcriptCache, transcriptRepo)
	return nil
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.ArchiveWorker != nil {
		a.ArchiveWorker.Close()
	}
	if a.MQConn != nil {
		if err := a.MQConn.Close(); err != nil {
			closeErr = err
		}
	}
	if a.MySQL != nil {
		sqlDB, err := a.MySQL.DB()
		if err == nil {
			if err := sqlDB.Close(); err != nil {
				closeErr = err
			}
		}
	}
	return closeErr
}
