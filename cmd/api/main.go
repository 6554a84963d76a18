package main

import (
	"context"
	"fmt"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"

	"phResumeRender/internal/api"
	"phResumeRender/internal/config"
	"phResumeRender/internal/database"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/storage"
	"phResumeRender/internal/transfer"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	log.Printf("api bootstrapped with db host=%s port=%d db=%s sslmode=%s",
		cfg.Database.Host,
		cfg.Database.Port,
		cfg.Database.Name,
		cfg.Database.SSLMode,
	)

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	log.Printf("database connection ready")

	if err := database.Migrate(db); err != nil {
		log.Fatalf("migrate database: %v", err)
	}
	log.Printf("database migrated")

	storageClient, err := storage.NewClient(cfg.MinIO, logger)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisClient := redis.NewClient(&redis.Options{Addr: cfg.Redis.Addr()})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()
	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	asynqClient := asynq.NewClient(asynq.RedisClientOpt{Addr: cfg.Redis.Addr()})
	defer asynqClient.Close()

	fonts := docrender.NewFonts(logger, cfg.Render.FontPath)
	if err := fonts.Register(); err != nil {
		log.Fatalf("register fonts: %v", err)
	}

	broker := transfer.NewRedisBroker(redisClient)
	hub := transfer.NewHub(transfer.NewRedisStore(redisClient, cfg.Render.ChannelTTL, logger), broker, logger)

	router := api.NewRouter(logger)
	api.RegisterRoutes(router, cfg, db, asynqClient, redisClient, hub, broker, storageClient, docrender.NewRenderer(fonts), logger)

	address := fmt.Sprintf(":%d", cfg.API.Port)
	log.Printf("api listening on %s", address)
	if err := router.Run(address); err != nil {
		log.Fatalf("failed to start api server: %v", err)
	}
}
