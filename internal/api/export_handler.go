package api

import (
	"context"
	"encoding/json"
	"errors"
	"log/slog"
	"net/http"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
	"github.com/gorilla/websocket"
	"github.com/hibiken/asynq"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phResumeRender/internal/api/middleware"
	"phResumeRender/internal/database"
	"phResumeRender/internal/errcode"
	"phResumeRender/internal/metrics"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/tasks"
	"phResumeRender/internal/transfer"
)

const exportMaxRetry = 5

// Enqueuer 投递异步任务，*asynq.Client 满足该接口。
type Enqueuer interface {
	Enqueue(task *asynq.Task, opts ...asynq.Option) (*asynq.TaskInfo, error)
}

// Presigner 签发导出文件的下载链接。
type Presigner interface {
	GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error)
}

// ExportLimits 导出接口的限流与链接有效期。
type ExportLimits struct {
	RateLimit   int
	RateWindow  time.Duration
	DownloadTTL time.Duration
}

// ExportHandler 负责创建导出任务、查询结果并推送完成通知。
type ExportHandler struct {
	db        *gorm.DB
	enqueuer  Enqueuer
	limiter   *rateLimiter
	presigner Presigner
	notifier  transfer.Broker
	limits    ExportLimits
	upgrader  websocket.Upgrader
}

// NewExportHandler 构造 ExportHandler。counter 或 notifier 为空时分别跳过限流与通知推送。
func NewExportHandler(db *gorm.DB, enqueuer Enqueuer, counter RateCounter, presigner Presigner, notifier transfer.Broker, limits ExportLimits, allowedOrigins []string) *ExportHandler {
	return &ExportHandler{
		db:        db,
		enqueuer:  enqueuer,
		limiter:   newRateLimiter(counter, "export", limits.RateLimit, limits.RateWindow),
		presigner: presigner,
		notifier:  notifier,
		limits:    limits,
		upgrader:  websocket.Upgrader{CheckOrigin: originChecker(allowedOrigins)},
	}
}

type createExportRequest struct {
	Format database.ExportFormat `json:"format"`
	Resume json.RawMessage       `json:"resume" binding:"required"`
}

type exportResponse struct {
	ID           string                `json:"id"`
	Title        string                `json:"title"`
	Format       database.ExportFormat `json:"format"`
	Status       database.ExportStatus `json:"status"`
	FileName     string                `json:"file_name,omitempty"`
	DownloadURL  string                `json:"download_url,omitempty"`
	ErrorCode    int                   `json:"error_code"`
	ErrorMessage string                `json:"error_message,omitempty"`
	MissingKeys  datatypes.JSON        `json:"missing_keys,omitempty"`
	CreatedAt    time.Time             `json:"created_at"`
}

// CreateExport 保存简历快照并将导出任务入队，立即返回 202。
func (h *ExportHandler) CreateExport(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	ctx := c.Request.Context()

	var req createExportRequest
	if err := c.ShouldBindJSON(&req); err != nil {
		BadRequest(c, err.Error())
		return
	}
	if req.Format == "" {
		req.Format = database.FormatPDF
	}
	if !req.Format.Valid() {
		BadRequest(c, "unsupported format")
		return
	}
	var rec resume.Record
	if err := json.Unmarshal(req.Resume, &rec); err != nil {
		BadRequest(c, unknownRecordFormat)
		return
	}

	allowed, err := h.limiter.allow(ctx, c.ClientIP())
	if err != nil {
		log.Warn("export rate counter unavailable", slog.Any("error", err))
	} else if !allowed {
		c.Header("Retry-After", h.limiter.retryAfter())
		TooManyRequests(c, "export rate limit exceeded")
		return
	}

	snapshot, err := json.Marshal(&rec)
	if err != nil {
		Internal(c, "failed to encode snapshot")
		return
	}
	correlationID := middleware.GetCorrelationID(c)
	job := database.ExportJob{
		PublicID:      uuid.NewString(),
		Title:         rec.Title,
		Format:        req.Format,
		Status:        database.StatusPending,
		Snapshot:      datatypes.JSON(snapshot),
		CorrelationID: correlationID,
	}
	if err := h.db.WithContext(ctx).Create(&job).Error; err != nil {
		log.Error("create export job failed", slog.Any("error", err))
		Internal(c, "failed to create export job")
		return
	}

	task, err := tasks.NewExportTask(job.ID, correlationID)
	if err != nil {
		Internal(c, "failed to create task")
		return
	}
	info, err := h.enqueuer.Enqueue(task, asynq.MaxRetry(exportMaxRetry))
	if err != nil {
		log.Error("enqueue export failed", slog.Any("error", err))
		_ = h.db.WithContext(ctx).Model(&job).Updates(map[string]any{
			"status":        database.StatusFailed,
			"error_code":    errcode.SystemError,
			"error_message": "enqueue failed",
		}).Error
		Internal(c, "failed to enqueue export")
		return
	}

	c.JSON(http.StatusAccepted, gin.H{
		"id":      job.PublicID,
		"status":  job.Status,
		"task_id": info.ID,
	})
}

// GetExport 返回导出任务状态，完成后附带限时下载链接。
func (h *ExportHandler) GetExport(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}

	resp := exportResponse{
		ID:           job.PublicID,
		Title:        job.Title,
		Format:       job.Format,
		Status:       job.Status,
		FileName:     job.FileName,
		ErrorCode:    job.ErrorCode,
		ErrorMessage: job.ErrorMessage,
		MissingKeys:  job.MissingKeys,
		CreatedAt:    job.CreatedAt,
	}
	if job.Status == database.StatusCompleted && job.ObjectKey != "" {
		params := map[string]string{"response-content-disposition": attachment(job.FileName)}
		signedURL, err := h.presigner.GeneratePresignedURLWithParams(c.Request.Context(), job.ObjectKey, h.limits.DownloadTTL, params)
		if err != nil {
			middleware.LoggerFromContext(c).Error("generate download link failed", slog.Any("error", err))
			Internal(c, "failed to generate download link")
			return
		}
		resp.DownloadURL = signedURL
	}

	c.JSON(http.StatusOK, resp)
}

// WatchExport 通过 WebSocket 推送导出完成通知，任务已结束时立即推送当前状态。
func (h *ExportHandler) WatchExport(c *gin.Context) {
	job, ok := h.findJob(c)
	if !ok {
		return
	}
	if h.notifier == nil {
		Conflict(c, "notifications unavailable")
		return
	}

	conn, err := h.upgrader.Upgrade(c.Writer, c.Request, nil)
	if err != nil {
		middleware.LoggerFromContext(c).Error("upgrade websocket failed", slog.Any("error", err))
		return
	}
	defer conn.Close()
	defer metrics.TrackConnection("export")()

	ctx, cancel := context.WithCancel(c.Request.Context())
	defer cancel()
	log := middleware.LoggerFromContext(c).With(slog.String("job_id", job.PublicID))

	if job.Status == database.StatusCompleted || job.Status == database.StatusFailed {
		_ = conn.WriteJSON(gin.H{
			"status":        job.Status,
			"job_id":        job.PublicID,
			"error_code":    job.ErrorCode,
			"error_message": job.ErrorMessage,
		})
		writeClose(conn, websocket.CloseNormalClosure, "done")
		return
	}

	updates, stop, err := h.notifier.Subscribe(ctx, tasks.NotifyTopic(job.PublicID))
	if err != nil {
		log.Error("subscribe export notifications failed", slog.Any("error", err))
		writeClose(conn, websocket.CloseInternalServerErr, "subscribe failed")
		return
	}
	defer stop()

	// 读循环只用于感知客户端断开
	go func() {
		defer cancel()
		for {
			if _, _, err := conn.NextReader(); err != nil {
				return
			}
		}
	}()

	ticker := time.NewTicker(pingInterval)
	defer ticker.Stop()
	for {
		select {
		case <-ctx.Done():
			return
		case payload, ok := <-updates:
			if !ok {
				return
			}
			if err := conn.WriteMessage(websocket.TextMessage, payload); err != nil {
				log.Info("write export notification failed", slog.Any("error", err))
				return
			}
			writeClose(conn, websocket.CloseNormalClosure, "done")
			return
		case <-ticker.C:
			deadline := time.Now().Add(5 * time.Second)
			if err := conn.WriteControl(websocket.PingMessage, []byte("ping"), deadline); err != nil {
				return
			}
		}
	}
}

func (h *ExportHandler) findJob(c *gin.Context) (*database.ExportJob, bool) {
	id := strings.TrimSpace(c.Param("id"))
	if _, err := uuid.Parse(id); err != nil {
		BadRequest(c, "invalid export id")
		return nil, false
	}
	var job database.ExportJob
	if err := h.db.WithContext(c.Request.Context()).Where("public_id = ?", id).First(&job).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			NotFound(c, "export not found")
		} else {
			Internal(c, "failed to query export")
		}
		return nil, false
	}
	return &job, true
}
