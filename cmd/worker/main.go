package main

import (
	"context"
	"log"
	"log/slog"
	"os"

	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	_ "go.uber.org/automaxprocs"

	"phResumeRender/internal/config"
	"phResumeRender/internal/database"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/errcode"
	"phResumeRender/internal/metrics"
	"phResumeRender/internal/pdf"
	"phResumeRender/internal/storage"
	"phResumeRender/internal/tasks"
	"phResumeRender/internal/transfer"
	"phResumeRender/internal/worker"
)

func main() {
	cfg := config.MustLoad()

	logger := slog.New(slog.NewTextHandler(os.Stdout, nil))
	slog.SetDefault(logger)

	db, err := database.Open(cfg.Database, logger)
	if err != nil {
		log.Fatalf("open database: %v", err)
	}
	log.Println("database connection ready for worker")

	storageClient, err := storage.NewClient(cfg.MinIO, logger)
	if err != nil {
		log.Fatalf("init storage client: %v", err)
	}
	log.Printf("storage client ready, bucket=%s", cfg.MinIO.Bucket)

	redisAddr := cfg.Redis.Addr()
	redisClient := redis.NewClient(&redis.Options{Addr: redisAddr})
	defer func() {
		if err := redisClient.Close(); err != nil {
			logger.Error("close redis client failed", slog.Any("error", err))
		}
	}()

	if err := redisClient.Ping(context.Background()).Err(); err != nil {
		log.Fatalf("ping redis: %v", err)
	}

	fonts := docrender.NewFonts(logger, cfg.Render.FontPath)
	if err := fonts.Register(); err != nil {
		log.Fatalf("register fonts: %v", err)
	}
	if fonts.Degraded() {
		logger.Warn("document renderer running with fallback font", slog.String("font_path", cfg.Render.FontPath))
	}

	redisOpt := asynq.RedisClientOpt{Addr: redisAddr}
	server := asynq.NewServer(redisOpt, asynq.Config{
		Concurrency:  cfg.Worker.Concurrency,
		ErrorHandler: asynq.ErrorHandlerFunc(func(ctx context.Context, task *asynq.Task, err error) {
			logger.Warn("task attempt failed",
				slog.String("task_type", task.Type()),
				slog.Int("error_code", errcode.Of(err)),
				slog.Any("error", err),
			)
		}),
	})

	printer := pdf.NewPrinter(logger, cfg.Render.PrintTimeout)
	defer func() {
		if err := printer.Close(); err != nil {
			logger.Warn("close headless browser failed", slog.Any("error", err))
		}
	}()

	exportHandler := worker.NewExportTaskHandler(
		db,
		storageClient,
		transfer.NewRedisBroker(redisClient),
		docrender.NewRenderer(fonts),
		printer,
		logger,
	)

	mux := asynq.NewServeMux()
	mux.Use(metrics.TaskMiddleware())
	mux.Handle(tasks.TypeResumeExport, exportHandler)

	logger.Info("worker service started", slog.String("redis_addr", redisAddr))
	if err := server.Run(mux); err != nil {
		logger.Error("worker server stopped", slog.Any("error", err))
	}
}
