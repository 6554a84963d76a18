package api

import (
	"log/slog"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/redis/go-redis/v9"
	"gorm.io/gorm"

	"phResumeRender/internal/config"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/storage"
	"phResumeRender/internal/transfer"
)

// RegisterRoutes 注册页面与 API 路由。
func RegisterRoutes(
	router *gin.Engine,
	cfg *config.Config,
	db *gorm.DB,
	asynqClient *asynq.Client,
	redisClient *redis.Client,
	hub *transfer.Hub,
	broker transfer.Broker,
	storageClient *storage.Client,
	document *docrender.Renderer,
	logger *slog.Logger,
) {
	renderHandler := NewRenderHandler(hub, storageClient, document, cfg.API.PublicBaseURL)
	channelHandler := NewChannelHandler(hub, logger, cfg.API.AllowedOrigins)
	exportHandler := NewExportHandler(db, asynqClient, redisClient, storageClient, broker, ExportLimits{
		RateLimit:   cfg.Render.ExportRateLimit,
		RateWindow:  cfg.Render.ExportRateWindow,
		DownloadTTL: cfg.Render.DownloadURLTTL,
	}, cfg.API.AllowedOrigins)
	assetHandler := NewAssetHandler(storageClient, cfg.Clamd.Address)

	router.GET("/preview/:session", renderHandler.Preview)
	router.GET("/print", renderHandler.Print)

	v1 := router.Group("/v1")
	{
		channelGroup := v1.Group("/channel/:session")
		{
			channelGroup.GET("/ws", channelHandler.HandleConnection)
			channelGroup.POST("/messages", channelHandler.PostMessage)
		}

		renderGroup := v1.Group("/render")
		{
			renderGroup.POST("/html", renderHandler.RenderHTML)
			renderGroup.POST("/pdf", renderHandler.RenderPDF)
			renderGroup.POST("/viewer", renderHandler.RenderViewer)
		}

		exportGroup := v1.Group("/exports")
		{
			exportGroup.POST("", exportHandler.CreateExport)
			exportGroup.GET("/:id", exportHandler.GetExport)
			exportGroup.GET("/:id/ws", exportHandler.WatchExport)
		}

		assetGroup := v1.Group("/assets")
		{
			assetGroup.POST("/avatar", assetHandler.UploadAvatar)
		}
	}
}
