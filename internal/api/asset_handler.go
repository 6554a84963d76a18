package api

import (
	"bytes"
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/http"

	"github.com/dutchcoders/go-clamd"
	"github.com/gin-gonic/gin"
	"github.com/minio/minio-go/v7"

	"phResumeRender/internal/api/middleware"
	"phResumeRender/internal/storage"
)

const defaultAvatarMaxBytes = 5 << 20

// Uploader 上传对象到存储。
type Uploader interface {
	UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error)
}

// Scanner 扫描上传内容，返回 false 表示检测到恶意文件。
type Scanner interface {
	Scan(r io.Reader) (bool, error)
}

// ClamdScanner 通过 clamd 的 INSTREAM 命令扫描文件。
type ClamdScanner struct {
	Address string
}

// Scan 实现 Scanner。
func (s ClamdScanner) Scan(r io.Reader) (bool, error) {
	client := clamd.NewClamd(s.Address)
	abortChan := make(chan bool)
	defer close(abortChan)

	results, err := client.ScanStream(r, abortChan)
	if err != nil {
		return false, fmt.Errorf("scan stream: %w", err)
	}
	clean := true
	for result := range results {
		if result.Status != clamd.RES_OK {
			clean = false
		}
	}
	return clean, nil
}

// AssetHandler 负责头像上传。
type AssetHandler struct {
	Storage  Uploader
	Scanner  Scanner
	MaxBytes int64
}

// NewAssetHandler 返回 AssetHandler 实例。clamdAddr 为空时跳过病毒扫描。
func NewAssetHandler(storageClient Uploader, clamdAddr string) *AssetHandler {
	h := &AssetHandler{
		Storage:  storageClient,
		MaxBytes: defaultAvatarMaxBytes,
	}
	if clamdAddr != "" {
		h.Scanner = ClamdScanner{Address: clamdAddr}
	}
	return h
}

// UploadAvatar 处理头像上传：校验类型与大小，扫描病毒后写入存储，返回可写入简历 avatar 字段的对象键。
func (h *AssetHandler) UploadAvatar(c *gin.Context) {
	log := middleware.LoggerFromContext(c)

	file, err := c.FormFile("file")
	if err != nil {
		BadRequest(c, "missing file")
		return
	}
	if file.Size <= 0 || file.Size > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	reader, err := file.Open()
	if err != nil {
		Internal(c, "failed to open file")
		return
	}
	data, err := io.ReadAll(io.LimitReader(reader, h.MaxBytes+1))
	_ = reader.Close()
	if err != nil {
		Internal(c, "failed to read file")
		return
	}
	if int64(len(data)) > h.MaxBytes {
		Error(c, http.StatusRequestEntityTooLarge, "file too large")
		return
	}

	// 以内容嗅探为准，不信任客户端声明的 Content-Type
	contentType := http.DetectContentType(data)
	ext, ok := storage.AvatarExtension(contentType)
	if !ok {
		BadRequest(c, "unsupported image type")
		return
	}

	if h.Scanner != nil {
		clean, err := h.Scanner.Scan(bytes.NewReader(data))
		if err != nil {
			log.Error("scan file", slog.String("error", err.Error()))
			Internal(c, "failed to scan file")
			return
		}
		if !clean {
			BadRequest(c, "malicious file detected")
			return
		}
	}

	objectKey := storage.NewAvatarKey(ext)
	if _, err := h.Storage.UploadFile(c.Request.Context(), objectKey, bytes.NewReader(data), int64(len(data)), contentType); err != nil {
		log.Error("upload file", slog.String("error", err.Error()))
		Internal(c, "failed to upload file")
		return
	}

	c.JSON(http.StatusCreated, gin.H{"objectKey": objectKey})
}
