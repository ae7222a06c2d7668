package main

import (
	"context"
	"flag"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/sirupsen/logrus"

	"github.com/mattvess/research-rag/api"
	"github.com/mattvess/research-rag/api/handler"
	"github.com/mattvess/research-rag/api/middleware"
	appconfig "github.com/mattvess/research-rag/config"
	"github.com/mattvess/research-rag/internal/cache"
	"github.com/mattvess/research-rag/internal/database"
	"github.com/mattvess/research-rag/internal/document"
	"github.com/mattvess/research-rag/internal/embedding"
	"github.com/mattvess/research-rag/internal/llm"
	"github.com/mattvess/research-rag/internal/models"
	"github.com/mattvess/research-rag/internal/rag"
	"github.com/mattvess/research-rag/internal/repository"
	"github.com/mattvess/research-rag/internal/retriever"
	"github.com/mattvess/research-rag/internal/vectordb"
	"github.com/mattvess/research-rag/pkg/logger"
	"github.com/mattvess/research-rag/pkg/storage"
	"github.com/mattvess/research-rag/pkg/taskqueue"
)

func main() {
	configPath := flag.String("config", "", "path to config file")
	flag.Parse()

	cfg, err := appconfig.Load(*configPath)
	if err != nil {
		fmt.Fprintf(os.Stderr, "failed to load config: %v\n", err)
		os.Exit(1)
	}

	log := logger.New(logger.Config{
		Level:      cfg.Log.Level,
		Format:     cfg.Log.Format,
		File:       cfg.Log.File,
		MaxSizeMB:  cfg.Log.MaxSizeMB,
		MaxBackups: cfg.Log.MaxBackups,
		MaxAgeDays: cfg.Log.MaxAgeDays,
	})
	middleware.SetLogger(log)
	gin.SetMode(cfg.Server.Mode)

	log.Info("starting research RAG service")

	dbCfg := database.DefaultConfig()
	dbCfg.Type = cfg.Database.Type
	dbCfg.DSN = cfg.Database.DSN
	if err := database.Setup(dbCfg, log); err != nil {
		log.Fatalf("failed to initialize database: %v", err)
	}
	defer database.Close()
	store := repository.NewStore()

	files, err := setupStorage(cfg)
	if err != nil {
		log.Fatalf("failed to initialize storage: %v", err)
	}

	embedder, err := embedding.NewClient(cfg.Embed.Provider,
		embedding.WithAPIKey(cfg.Embed.APIKey),
		embedding.WithBaseURL(cfg.Embed.Endpoint),
		embedding.WithModel(cfg.Embed.Model),
		embedding.WithBatchSize(cfg.Embed.BatchSize),
		embedding.WithDimensions(cfg.Embed.Dimensions),
		embedding.WithTimeout(time.Duration(cfg.Embed.Timeout)*time.Second),
	)
	if err != nil {
		log.Fatalf("failed to initialize embedding client: %v", err)
	}

	completer, err := llm.NewClient(cfg.LLM.Provider,
		llm.WithAPIKey(cfg.LLM.APIKey),
		llm.WithBaseURL(cfg.LLM.Endpoint),
		llm.WithModel(cfg.LLM.Model),
		llm.WithMaxTokens(cfg.LLM.MaxTokens),
		llm.WithTemperature(cfg.LLM.Temperature),
		llm.WithTimeout(time.Duration(cfg.LLM.Timeout)*time.Second),
	)
	if err != nil {
		log.Fatalf("failed to initialize LLM client: %v", err)
	}

	sessionOptions, err := buildSessionOptions(cfg, store)
	if err != nil {
		log.Fatalf("invalid session configuration: %v", err)
	}

	manager := rag.NewManager(embedder, completer, vectordb.Config{
		Type:              cfg.VectorDB.Type,
		Path:              cfg.VectorDB.Path,
		Dimension:         cfg.VectorDB.Dim,
		DistanceType:      parseDistance(cfg.VectorDB.Distance),
		CreateIfNotExists: true,
	}, log, sessionOptions...)

	if err := restoreSessions(manager, store, log); err != nil {
		log.Fatalf("failed to restore sessions: %v", err)
	}

	ingestor := taskqueue.NewIngestHandler(manager, files, nil, store, log)

	var queue taskqueue.Queue
	var worker *taskqueue.Worker
	if cfg.Queue.Enable {
		queueCfg := &taskqueue.Config{
			RedisAddr:     cfg.Queue.RedisAddr,
			RedisPassword: cfg.Queue.RedisPassword,
			RedisDB:       cfg.Queue.RedisDB,
			Concurrency:   cfg.Queue.Concurrency,
			RetryLimit:    cfg.Queue.RetryLimit,
			RetryDelay:    time.Duration(cfg.Queue.RetryDelay) * time.Second,
		}
		queue, err = taskqueue.NewRedisQueue(queueCfg, log)
		if err != nil {
			log.Fatalf("failed to initialize task queue: %v", err)
		}
		defer queue.Close()

		ingestor = taskqueue.NewIngestHandler(manager, files, queue, store, log)
		worker = taskqueue.NewWorker(queueCfg, queue, log)
		worker.Register(ingestor)
		if err := worker.Start(); err != nil {
			log.Fatalf("failed to start queue worker: %v", err)
		}
		defer worker.Stop()
		log.Info("task queue worker started")
	}

	sessionHandler := handler.NewSessionHandler(manager, store)
	docHandler := handler.NewDocumentHandler(manager, ingestor, files, store, queue)
	qaHandler := handler.NewQAHandler(manager)
	var taskHandler *handler.TaskHandler
	if queue != nil {
		taskHandler = handler.NewTaskHandler(queue)
	}

	router := api.SetupRouter(sessionHandler, docHandler, qaHandler, taskHandler)

	srv := &http.Server{
		Addr:         fmt.Sprintf("%s:%d", cfg.Server.Host, cfg.Server.Port),
		Handler:      router,
		ReadTimeout:  30 * time.Second,
		WriteTimeout: 120 * time.Second,
	}

	go func() {
		log.Infof("server listening on %s", srv.Addr)
		if err := srv.ListenAndServe(); err != nil && err != http.ErrServerClosed {
			log.Fatalf("failed to start server: %v", err)
		}
	}()

	quit := make(chan os.Signal, 1)
	signal.Notify(quit, syscall.SIGINT, syscall.SIGTERM)
	<-quit
	log.Info("shutting down server")

	ctx, cancel := context.WithTimeout(context.Background(), 10*time.Second)
	defer cancel()
	if err := srv.Shutdown(ctx); err != nil {
		log.Fatalf("server forced to shutdown: %v", err)
	}
	log.Info("server exited")
}

// buildSessionOptions translates file configuration into the options
// every new session gets.
func buildSessionOptions(cfg *appconfig.Config, store repository.Store) ([]rag.SessionOption, error) {
	chunker, err := document.NewChunker(document.ChunkerConfig{
		ChunkSize: cfg.Document.ChunkSize,
		Overlap:   cfg.Document.ChunkOverlap,
	})
	if err != nil {
		return nil, err
	}

	options := []rag.SessionOption{
		rag.WithChunker(chunker),
		rag.WithStore(store),
		rag.WithEmbedBatchSize(cfg.Embed.BatchSize),
		rag.WithRetrievalConfig(retriever.Config{
			TopK:     cfg.Retrieval.TopK,
			MinScore: cfg.Retrieval.MinScore,
		}),
	}

	if cfg.Cache.Enable {
		backend, err := cache.NewCache(cache.Config{
			Type:          cfg.Cache.Type,
			RedisAddr:     cfg.Cache.Address,
			RedisPassword: cfg.Cache.Password,
			RedisDB:       cfg.Cache.DB,
			DefaultTTL:    time.Duration(cfg.Cache.TTL) * time.Second,
		})
		if err != nil {
			return nil, err
		}
		options = append(options, rag.WithAnswerCache(
			cache.NewAnswerCache(backend, time.Duration(cfg.Cache.TTL)*time.Second)))
	}

	return options, nil
}

// restoreSessions rebuilds every persisted session's index from the
// stored chunk vectors, without calling the embedding service.
func restoreSessions(manager *rag.Manager, store repository.Store, log *logrus.Logger) error {
	records, err := store.ListSessions()
	if err != nil {
		return err
	}

	for _, rec := range records {
		session, err := manager.CreateWithID(rec.ID, rec.Name)
		if err != nil {
			return fmt.Errorf("recreating session %s: %w", rec.ID, err)
		}

		if _, err := repository.ReloadSession(store, session.Index(), rec.ID, log); err != nil {
			return fmt.Errorf("reloading session %s: %w", rec.ID, err)
		}

		docs, err := store.ListDocuments(rec.ID)
		if err != nil {
			return err
		}
		for _, doc := range docs {
			if doc.Status == models.DocStatusIndexed {
				session.Restore(doc.ID, doc.ChunkCount)
			}
		}
	}

	if len(records) > 0 {
		log.WithField("sessions", len(records)).Info("sessions restored from database")
	}
	return nil
}

func setupStorage(cfg *appconfig.Config) (storage.Storage, error) {
	switch cfg.Storage.Type {
	case "minio":
		return storage.NewMinioStorage(storage.MinioConfig{
			Endpoint:  cfg.Storage.Endpoint,
			AccessKey: cfg.Storage.AccessKey,
			SecretKey: cfg.Storage.SecretKey,
			UseSSL:    cfg.Storage.UseSSL,
			Bucket:    cfg.Storage.Bucket,
		})
	default:
		return storage.NewLocalStorage(storage.LocalConfig{
			Path: cfg.Storage.Path,
		})
	}
}

func parseDistance(name string) vectordb.DistanceType {
	switch name {
	case "l2", "euclidean":
		return vectordb.Euclidean
	case "dot":
		return vectordb.DotProduct
	default:
		return vectordb.Cosine
	}
}
