package worker

import (
	"bytes"
	"context"
	"encoding/json"
	"errors"
	"fmt"
	"io"
	"log/slog"
	"strings"
	"time"

	"github.com/hibiken/asynq"
	"github.com/minio/minio-go/v7"
	"gorm.io/datatypes"
	"gorm.io/gorm"

	"phResumeRender/internal/database"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/errcode"
	"phResumeRender/internal/htmlrender"
	"phResumeRender/internal/icon"
	"phResumeRender/internal/layout"
	"phResumeRender/internal/metrics"
	"phResumeRender/internal/printdata"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/richtext"
	"phResumeRender/internal/storage"
	"phResumeRender/internal/tasks"
)

const previewQuality = 80

// ObjectStore 导出产物的对象存储。
type ObjectStore interface {
	printdata.ObjectReader
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
	DeleteObject(ctx context.Context, objectKey string) error
}

// Printer 由打印页 HTML 生成 PDF 或截图。
type Printer interface {
	PrintHTML(ctx context.Context, html []byte) ([]byte, error)
	ScreenshotHTML(ctx context.Context, html []byte, quality int) ([]byte, error)
}

// Publisher 发布导出结果通知。
type Publisher interface {
	Publish(ctx context.Context, topic string, payload []byte) error
}

// ExportTaskHandler 负责消费简历导出任务。
type ExportTaskHandler struct {
	db        *gorm.DB
	storage   ObjectStore
	publisher Publisher
	document  *docrender.Renderer
	html      *htmlrender.Renderer
	printer   Printer
	icons     icon.Resolver
	rich      richtext.Renderer
	logger    *slog.Logger
}

// NewExportTaskHandler 创建任务处理器。
func NewExportTaskHandler(
	db *gorm.DB,
	storage ObjectStore,
	publisher Publisher,
	document *docrender.Renderer,
	printer Printer,
	logger *slog.Logger,
) *ExportTaskHandler {
	rich := richtext.New()
	icons := icon.NewBuiltin()
	return &ExportTaskHandler{
		db:        db,
		storage:   storage,
		publisher: publisher,
		document:  document,
		html:      htmlrender.New(rich, icons).WithLogger(logger),
		printer:   printer,
		icons:     icons,
		rich:      rich,
		logger:    logger,
	}
}

type artifact struct {
	data        []byte
	contentType string
	ext         string
}

// ProcessTask 实现 asynq.Handler。
func (h *ExportTaskHandler) ProcessTask(ctx context.Context, t *asynq.Task) (retErr error) {
	log := h.logger

	var payload tasks.ExportPayload
	if err := json.Unmarshal(t.Payload(), &payload); err != nil {
		log.Error("unmarshal task payload failed", slog.Any("error", err))
		return fmt.Errorf("unmarshal payload: %w: %w", err, asynq.SkipRetry)
	}

	log = log.With(
		slog.String("correlation_id", payload.CorrelationID),
		slog.Int("job_id", int(payload.JobID)),
	)

	var job database.ExportJob
	if err := h.db.WithContext(ctx).First(&job, payload.JobID).Error; err != nil {
		if errors.Is(err, gorm.ErrRecordNotFound) {
			log.Warn("export job not found, skipping task")
			return nil
		}
		log.Error("query export job failed", slog.Any("error", err))
		return err
	}
	log = log.With(slog.String("format", string(job.Format)))
	log.Info("Starting resume export task...")

	defer func() {
		if retErr == nil {
			return
		}
		if !errors.Is(retErr, asynq.SkipRetry) && !isFinalAsynqAttempt(ctx) {
			return
		}
		h.fail(ctx, log, &job, payload.CorrelationID, retErr)
	}()

	if err := h.db.WithContext(ctx).Model(&job).Update("status", database.StatusProcessing).Error; err != nil {
		log.Error("mark job processing failed", slog.Any("error", err))
		return err
	}

	var rec resume.Record
	if err := json.Unmarshal(job.Snapshot, &rec); err != nil {
		return errcode.Wrap(errcode.InvalidRecord, fmt.Errorf("decode snapshot: %w: %w", err, asynq.SkipRetry))
	}

	inlined, warning, err := printdata.Inline(ctx, h.storage, &rec, log)
	if err != nil {
		log.Error("inline resume assets failed", slog.Any("error", err))
		return errcode.Wrap(errcode.StorageFailed, err)
	}

	start := time.Now()
	out, err := h.render(ctx, log, job.Format, inlined)
	metrics.ObserveRender(string(job.Format), start, err)
	if err != nil {
		log.Error("render export failed", slog.Any("error", err))
		if errcode.Of(err) == errcode.SystemError {
			err = errcode.Wrap(errcode.RenderFailed, err)
		}
		return err
	}

	objectName := storage.ExportKey(job.PublicID, out.ext)
	if _, err := h.storage.UploadFile(ctx, objectName, bytes.NewReader(out.data), int64(len(out.data)), out.contentType); err != nil {
		log.Error("upload export to minio failed", slog.Any("error", err))
		return errcode.Wrap(errcode.StorageFailed, err)
	}

	notify := ExportNotifyMessage{
		Status:        string(database.StatusCompleted),
		JobID:         job.PublicID,
		CorrelationID: payload.CorrelationID,
		ErrorCode:     errcode.OK,
	}
	update := map[string]any{
		"status":        database.StatusCompleted,
		"object_key":    objectName,
		"file_name":     exportFileName(rec.Title, out.ext),
		"error_code":    errcode.OK,
		"error_message": "",
	}
	if warning != nil {
		notify.ErrorCode = warning.Code
		notify.ErrorMessage = warning.Message
		notify.MissingKeys = warning.MissingKeys
		missing, _ := json.Marshal(warning.MissingKeys)
		update["error_code"] = warning.Code
		update["error_message"] = warning.Message
		update["missing_keys"] = datatypes.JSON(missing)
		metrics.AddMissingAssets(len(warning.MissingKeys))
		log.Warn("export generated with missing assets", slog.Any("missing_keys", warning.MissingKeys))
	}
	if err := h.db.WithContext(ctx).Model(&job).Updates(update).Error; err != nil {
		log.Error("update export job failed", slog.Any("error", err))
		if delErr := h.storage.DeleteObject(context.WithoutCancel(ctx), objectName); delErr != nil {
			log.Warn("remove orphan export failed", slog.String("object_key", objectName), slog.Any("error", delErr))
		}
		return err
	}

	if err := h.publish(ctx, job.PublicID, notify); err != nil {
		log.Error("publish export notification failed", slog.Any("error", err))
	}

	log.Info("Resume export task completed successfully.", slog.Int("bytes", len(out.data)))
	return nil
}

func (h *ExportTaskHandler) render(ctx context.Context, log *slog.Logger, format database.ExportFormat, rec *resume.Record) (artifact, error) {
	plan := layout.Resolve(rec)

	switch format {
	case database.FormatPDF:
		doc, err := h.document.Build(plan, docrender.Assets{
			Images: docrender.LocalImages{},
			Icons:  h.icons,
			Text:   h.rich,
		})
		if err != nil {
			return artifact{}, fmt.Errorf("build document: %w", err)
		}
		for _, w := range doc.Warnings {
			log.Warn("document layout warning", slog.String("warning", w))
		}
		metrics.ObservePages("document", len(doc.Pages))
		data, err := h.document.PDF(doc)
		if err != nil {
			return artifact{}, fmt.Errorf("write pdf: %w", err)
		}
		return artifact{data: data, contentType: "application/pdf", ext: ".pdf"}, nil

	case database.FormatPrint, database.FormatImage:
		page, err := h.html.Page(plan, htmlrender.PageOptions{
			Mode:     htmlrender.ModePrint,
			FileName: resume.FileName(plan.Title),
		})
		if err != nil {
			return artifact{}, fmt.Errorf("render print page: %w", err)
		}
		if format == database.FormatImage {
			data, err := h.printer.ScreenshotHTML(ctx, page, previewQuality)
			if err != nil {
				return artifact{}, fmt.Errorf("capture screenshot: %w", err)
			}
			return artifact{data: data, contentType: "image/jpeg", ext: ".jpg"}, nil
		}
		data, err := h.printer.PrintHTML(ctx, page)
		if err != nil {
			return artifact{}, fmt.Errorf("print page: %w", err)
		}
		return artifact{data: data, contentType: "application/pdf", ext: ".pdf"}, nil
	}
	return artifact{}, errcode.Wrap(errcode.UnsupportedFormat, fmt.Errorf("unsupported export format %q: %w", format, asynq.SkipRetry))
}

func (h *ExportTaskHandler) fail(ctx context.Context, log *slog.Logger, job *database.ExportJob, correlationID string, cause error) {
	// 任务可能因超时失败，状态回写不能复用已取消的 ctx
	ctx = context.WithoutCancel(ctx)
	code := errcode.Of(cause)
	message := strings.TrimSpace(cause.Error())
	if err := h.db.WithContext(ctx).Model(job).Updates(map[string]any{
		"status":        database.StatusFailed,
		"error_code":    code,
		"error_message": message,
	}).Error; err != nil {
		log.Error("mark job failed", slog.Any("error", err))
	}
	notify := ExportNotifyMessage{
		Status:        "error",
		JobID:         job.PublicID,
		CorrelationID: correlationID,
		ErrorCode:     code,
		ErrorMessage:  message,
	}
	if err := h.publish(ctx, job.PublicID, notify); err != nil {
		log.Error("publish export error notification failed", slog.Any("error", err))
	}
}

func (h *ExportTaskHandler) publish(ctx context.Context, publicID string, notify ExportNotifyMessage) error {
	if h.publisher == nil {
		return nil
	}
	data, err := json.Marshal(notify)
	if err != nil {
		return fmt.Errorf("marshal notification payload: %w", err)
	}
	topic := tasks.NotifyTopic(publicID)
	if err := h.publisher.Publish(ctx, topic, data); err != nil {
		return fmt.Errorf("publish notification to %q: %w", topic, err)
	}
	return nil
}

func exportFileName(title, ext string) string {
	return strings.TrimSuffix(resume.FileName(title), ".pdf") + ext
}

func isFinalAsynqAttempt(ctx context.Context) bool {
	retryCount, ok1 := asynq.GetRetryCount(ctx)
	maxRetry, ok2 := asynq.GetMaxRetry(ctx)
	if !ok1 || !ok2 {
		return false
	}
	return retryCount >= maxRetry
}
