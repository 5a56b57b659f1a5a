package bootstrap

import (
	"context"
	"errors"
	"fmt"
	"log"
	"time"

	amqp "github.com/rabbitmq/amqp091-go"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"helpdesk-rag/internal/ai"
	"helpdesk-rag/internal/cache"
	"helpdesk-rag/internal/config"
	"helpdesk-rag/internal/ingest"
	"helpdesk-rag/internal/kb"
	"helpdesk-rag/internal/model"
	mysqlClient "helpdesk-rag/internal/platform/mysql"
	rabbitmqClient "helpdesk-rag/internal/platform/rabbitmq"
	redisClient "helpdesk-rag/internal/platform/redis"
	"helpdesk-rag/internal/repository"
	"helpdesk-rag/internal/worker"
)

type App struct {
	Config            *config.Config
	MySQL             *gorm.DB
	Redis             *redis.Client
	MQConn            *amqp.Connection
	InteractionWorker *worker.InteractionPersistWorker
	Interactions      *repository.InteractionRepository
	HistoryCache      *cache.HistoryCache
	KB                *kb.Manager

	StartedAt time.Time
}

func New(ctx context.Context) (*App, error) {
	cfg, err := config.Load()
	if err != nil {
		return nil, fmt.Errorf("load config failed: %w", err)
	}

	mysqlDB, err := mysqlClient.New(ctx, cfg.MySQLDSN())
	if err != nil {
		return nil, err
	}
	if err := mysqlDB.AutoMigrate(&model.TabularRow{}, &model.Document{}, &model.Interaction{}); err != nil {
		return nil, fmt.Errorf("auto migrate tables failed: %w", err)
	}

	redisCli, err := redisClient.New(ctx, cfg.Redis.Addr, cfg.Redis.Password, cfg.Redis.DB)
	if err != nil {
		return nil, err
	}

	mqConn, err := rabbitmqClient.New(ctx, cfg.RabbitMQ.URL)
	if err != nil {
		return nil, err
	}

	interactionRepo := repository.NewInteractionRepository(mysqlDB)
	historyCache := cache.NewHistoryCache(redisCli, time.Duration(cfg.Redis.HistoryTTLSeconds)*time.Second)
	interactionWorker := worker.NewInteractionPersistWorker(mqConn, interactionRepo, historyCache, cfg.RabbitMQ.InteractionQueue)
	if err := interactionWorker.Start(ctx); err != nil {
		return nil, fmt.Errorf("start interaction worker failed: %w", err)
	}

	manager, err := buildKnowledgeBase(cfg, mysqlDB, mqConn)
	if err != nil {
		return nil, err
	}
	if err := manager.LoadOrRebuild(ctx); err != nil {
		return nil, fmt.Errorf("restore knowledge base failed: %w", err)
	}
	seedFromCSV(ctx, cfg, manager)

	return &App{
		Config:            cfg,
		MySQL:             mysqlDB,
		Redis:             redisCli,
		MQConn:            mqConn,
		InteractionWorker: interactionWorker,
		Interactions:      interactionRepo,
		HistoryCache:      historyCache,
		KB:                manager,
		StartedAt:         time.Now(),
	}, nil
}

func buildKnowledgeBase(cfg *config.Config, db *gorm.DB, mqConn *amqp.Connection) (*kb.Manager, error) {
	chunker, err := kb.NewChunker(cfg.KB.ChunkSize, cfg.KB.ChunkOverlap)
	if err != nil {
		return nil, err
	}

	client := ai.NewClient()
	embedder := ai.NewBoundEmbedder(client, ai.EmbeddingConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.EmbeddingModel,
	})
	generator := ai.NewBoundGenerator(client, ai.ChatConfig{
		BaseURL: cfg.LLM.BaseURL,
		APIKey:  cfg.LLM.APIKey,
		Model:   cfg.LLM.Model,
	})

	return kb.NewManager(kb.ManagerConfig{
		Chunker:   chunker,
		Embedder:  embedder,
		Retriever: kb.NewRetriever(embedder, cfg.KB.TopK),
		Synth:     kb.NewSynthesizer(generator, cfg.KB.MaxContextChars),
		Tabular:   repository.NewTabularRowRepository(db),
		Docs:      repository.NewDocumentRepository(db),
		Logger:    rabbitmqClient.NewInteractionPublisher(mqConn, cfg.RabbitMQ.InteractionQueue),
		Source:    cfg.KB.CSVSource,
		IndexPath: cfg.IndexPath(),
	}), nil
}

// seedFromCSV performs the initial tabular ingestion when the knowledge base
// came up empty and the configured CSV exists. A missing file is fine; the
// reload endpoint can ingest it later.
func seedFromCSV(ctx context.Context, cfg *config.Config, manager *kb.Manager) {
	status, err := manager.Status(ctx)
	if err != nil {
		log.Printf("bootstrap: knowledge base status check failed: %v", err)
		return
	}
	if status.Ready {
		return
	}

	rows, err := ingest.LoadCSV(cfg.KB.CSVPath)
	if err != nil {
		if errors.Is(err, kb.ErrSourceNotFound) {
			log.Printf("bootstrap: no tabular source at %s, starting with empty knowledge base", cfg.KB.CSVPath)
		} else {
			log.Printf("bootstrap: load csv source failed: %v", err)
		}
		return
	}

	report, err := manager.IngestTabular(ctx, cfg.KB.CSVSource, rows)
	if err != nil {
		log.Printf("bootstrap: initial ingestion failed: %v", err)
		return
	}
	log.Printf("bootstrap: ingested %d rows (%d skipped, %d chunks) from %s", report.Ingested, report.Skipped, report.Chunks, cfg.KB.CSVPath)
}

func (a *App) Close() error {
	var closeErr error
	if a.Redis != nil {
		if err := a.Redis.Close(); err != nil {
			closeErr = err
		}
	}
	if a.InteractionWorker != nil {
		a.InteractionWorker.Close()
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
