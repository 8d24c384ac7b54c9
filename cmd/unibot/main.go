package main

import (
	"context"
	"database/sql"
	"fmt"
	"net/http"
	"os"
	"os/signal"
	"syscall"
	"time"

	"github.com/gin-contrib/gzip"
	"github.com/gin-gonic/gin"
	"github.com/spf13/cobra"
	"github.com/xxxsen/common/logger"
	"github.com/xxxsen/common/logutil"
	"github.com/xxxsen/common/webapi"
	"go.uber.org/zap"

	"github.com/umt-ai/unibot/internal/ai"
	"github.com/umt-ai/unibot/internal/config"
	"github.com/umt-ai/unibot/internal/db"
	"github.com/umt-ai/unibot/internal/embedcache"
	"github.com/umt-ai/unibot/internal/filestore"
	"github.com/umt-ai/unibot/internal/handler"
	"github.com/umt-ai/unibot/internal/job"
	"github.com/umt-ai/unibot/internal/middleware"
	"github.com/umt-ai/unibot/internal/repo"
	"github.com/umt-ai/unibot/internal/schedule"
	"github.com/umt-ai/unibot/internal/service"
	"github.com/umt-ai/unibot/internal/topic"
)

func main() {
	var configPath string

	rootCmd := &cobra.Command{
		Use:   "unibot",
		Short: "unibot backend server",
	}

	runCmd := &cobra.Command{
		Use:   "run",
		Short: "run unibot server",
		RunE: func(cmd *cobra.Command, args []string) error {
			if configPath == "" {
				return fmt.Errorf("--config is required")
			}
			cfg, err := config.Load(configPath)
			if err != nil {
				return err
			}
			logger.Init(
				cfg.LogConfig.File,
				cfg.LogConfig.Level,
				int(cfg.LogConfig.FileCount),
				int(cfg.LogConfig.FileSize),
				int(cfg.LogConfig.KeepDays),
				cfg.LogConfig.Console,
			)
			logutil.GetLogger(context.Background()).Info("config loaded", zap.String("config", configPath))

			conn, err := db.Open(cfg.Database)
			if err != nil {
				return fmt.Errorf("open db: %w", err)
			}
			if err := db.ApplyMigrations(conn); err != nil {
				return fmt.Errorf("migrations: %w", err)
			}
			return runServer(cfg, conn)
		},
	}

	runCmd.Flags().StringVar(&configPath, "config", "", "path to config.json")
	rootCmd.AddCommand(runCmd)

	if err := rootCmd.Execute(); err != nil {
		logutil.GetLogger(context.Background()).Fatal("startup error", zap.Error(err))
	}
}

func runServer(cfg *config.Config, conn *sql.DB) error {
	logutil.GetLogger(context.Background()).Info(
		"starting server",
		zap.Int("port", cfg.Port),
		zap.String("ai_provider", cfg.AI.Provider),
		zap.String("file_store", cfg.FileStore.Type),
	)

	userRepo := repo.NewUserRepo(conn)
	sessionRepo := repo.NewSessionRepo(conn)
	documentRepo := repo.NewDocumentRepo(conn)
	embedCacheRepo := repo.NewEmbeddingCacheRepo(conn)

	provider, err := ai.NewProvider(cfg.AI.Provider, cfg.AI.Data)
	if err != nil {
		return fmt.Errorf("init ai provider: %w", err)
	}
	chatter := ai.NewChatter(provider, cfg.AI.Model)
	generator := ai.NewGenerator(provider, cfg.AI.Model)
	embedder := ai.NewEmbedder(provider, cfg.AI.EmbedModel)
	embedder = embedcache.WrapDBCacheToEmbedder(embedder, embedCacheRepo)
	embedder = embedcache.WrapLruCacheToEmbedder(
		embedder,
		cfg.EmbedCache.LRUSize,
		time.Duration(cfg.EmbedCache.LRUTTLMinutes)*time.Minute,
	)

	store, err := filestore.New(cfg.FileStore)
	if err != nil {
		return fmt.Errorf("init file store: %w", err)
	}

	inferencer := topic.NewLDAInferencer(generator)
	authService := service.NewAuthService(userRepo, []byte(cfg.JWTSecret), time.Hour*time.Duration(cfg.JWTTTLHours))
	documentService := service.NewDocumentService(userRepo, documentRepo, embedder, store, cfg.Ingest.MaxChunkChars)
	chatService := service.NewChatService(userRepo, sessionRepo, documentRepo, chatter, embedder, inferencer)

	deps := handler.RouterDeps{
		Auth:      handler.NewAuthHandler(authService),
		Chat:      handler.NewChatHandler(chatService),
		Documents: handler.NewDocumentHandler(documentService),
		JWTSecret: []byte(cfg.JWTSecret),
	}

	engine, err := webapi.NewEngine(
		"/api/v1",
		fmt.Sprintf("0.0.0.0:%d", cfg.Port),
		webapi.WithRegister(func(group *gin.RouterGroup) {
			handler.RegisterRoutes(group, deps)
		}),
		webapi.WithExtraMiddlewares(
			middleware.RequestID(),
			middleware.CORS(cfg.CORSOrigins),
			gzip.Gzip(gzip.DefaultCompression),
		),
	)
	if err != nil {
		return fmt.Errorf("init web engine: %w", err)
	}

	ctx, stop := signal.NotifyContext(context.Background(), os.Interrupt, syscall.SIGTERM)
	defer stop()

	scheduler := schedule.NewCronScheduler()
	if err := scheduler.AddJob(
		job.NewEmbeddingCacheCleanupJob(embedCacheRepo, cfg.EmbedCache.MaxAgeDays),
		cfg.EmbedCache.CleanupSpec,
	); err != nil {
		return err
	}
	scheduler.Start(ctx)
	defer scheduler.Stop()

	logutil.GetLogger(context.Background()).Info("http server listening", zap.String("addr", fmt.Sprintf("0.0.0.0:%d", cfg.Port)))
	go func() {
		if err := engine.Run(); err != nil && err != http.ErrServerClosed {
			logutil.GetLogger(context.Background()).Error("server error", zap.Error(err))
		}
	}()

	<-ctx.Done()
	logutil.GetLogger(context.Background()).Info("server stopping...")
	return nil
}
