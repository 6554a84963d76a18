package storage

import (
	"context"
	"fmt"
	"io"
	"log/slog"
	"net/url"
	"strings"
	"time"

	"github.com/minio/minio-go/v7"
	"github.com/minio/minio-go/v7/pkg/credentials"
	"github.com/minio/minio-go/v7/pkg/lifecycle"

	"phResumeRender/internal/config"
)

const (
	avatarCacheControl = "private, max-age=31536000, immutable"
	exportCacheControl = "private, no-store"
	exportLifecycleID  = "expire-exports"
)

// Client 封装 MinIO 客户端：上传头像与导出文件，读取头像并签发下载链接。
// 下载链接由 public 客户端签名，使浏览器访问的 Host 与签名一致。
type Client struct {
	internal *minio.Client
	public   *minio.Client
	bucket   string
}

// NewClient 根据配置初始化 MinIO 客户端，确保 Bucket 存在并为导出文件设置过期规则。
func NewClient(cfg config.MinIOConfig, logger *slog.Logger) (*Client, error) {
	if logger == nil {
		logger = slog.Default()
	}
	lookup, err := bucketLookup(cfg.BucketLookup)
	if err != nil {
		return nil, err
	}

	internal, err := newMinio(cfg, cfg.Endpoint, cfg.UseSSL, lookup)
	if err != nil {
		return nil, fmt.Errorf("init internal minio client: %w", err)
	}

	publicURL, err := url.Parse(cfg.PublicEndpoint)
	if err != nil {
		return nil, fmt.Errorf("parse minio public endpoint: %w", err)
	}
	if publicURL.Host == "" {
		return nil, fmt.Errorf("invalid minio public endpoint %q: host missing", cfg.PublicEndpoint)
	}
	public, err := newMinio(cfg, publicURL.Host, publicURL.Scheme == "https", lookup)
	if err != nil {
		return nil, fmt.Errorf("init public minio client: %w", err)
	}

	c := &Client{internal: internal, public: public, bucket: cfg.Bucket}

	ctx, cancel := context.WithTimeout(context.Background(), 5*time.Second)
	defer cancel()
	if err := c.ensureBucket(ctx, cfg); err != nil {
		return nil, err
	}
	if cfg.ExportRetentionDays > 0 {
		if err := c.expireExports(ctx, cfg.ExportRetentionDays); err != nil {
			// 部分 S3 兼容网关不支持生命周期规则，导出文件只是不会自动清理
			logger.Warn("set export lifecycle failed", slog.String("bucket", cfg.Bucket), slog.Any("error", err))
		}
	}
	return c, nil
}

func bucketLookup(mode string) (minio.BucketLookupType, error) {
	switch strings.ToLower(strings.TrimSpace(mode)) {
	case "", "auto":
		return minio.BucketLookupAuto, nil
	case "dns":
		return minio.BucketLookupDNS, nil
	case "path":
		return minio.BucketLookupPath, nil
	}
	return minio.BucketLookupAuto, fmt.Errorf("invalid minio bucket lookup %q", mode)
}

func newMinio(cfg config.MinIOConfig, endpoint string, secure bool, lookup minio.BucketLookupType) (*minio.Client, error) {
	return minio.New(endpoint, &minio.Options{
		Creds:        credentials.NewStaticV4(cfg.AccessKeyID, cfg.SecretAccessKey, ""),
		Secure:       secure,
		Region:       cfg.Region,
		BucketLookup: lookup,
	})
}

func (c *Client) ensureBucket(ctx context.Context, cfg config.MinIOConfig) error {
	exists, err := c.internal.BucketExists(ctx, c.bucket)
	if err != nil {
		return fmt.Errorf("check bucket %q: %w", c.bucket, err)
	}
	if exists {
		return nil
	}
	if !cfg.AutoCreateBucket {
		return fmt.Errorf("bucket %q does not exist (auto create disabled)", c.bucket)
	}
	if err := c.internal.MakeBucket(ctx, c.bucket, minio.MakeBucketOptions{Region: cfg.Region}); err != nil {
		return fmt.Errorf("make bucket %q: %w", c.bucket, err)
	}
	return nil
}

func (c *Client) expireExports(ctx context.Context, days int) error {
	rules := lifecycle.NewConfiguration()
	rules.Rules = []lifecycle.Rule{{
		ID:         exportLifecycleID,
		Status:     "Enabled",
		RuleFilter: lifecycle.Filter{Prefix: ExportPrefix},
		Expiration: lifecycle.Expiration{Days: lifecycle.ExpirationDays(days)},
	}}
	if err := c.internal.SetBucketLifecycle(ctx, c.bucket, rules); err != nil {
		return fmt.Errorf("set lifecycle on %q: %w", c.bucket, err)
	}
	return nil
}

// UploadFile 将对象上传到私有 Bucket。头像键名唯一可长期缓存，导出文件不缓存。
func (c *Client) UploadFile(ctx context.Context, objectName string, reader io.Reader, size int64, contentType string) (*minio.UploadInfo, error) {
	info, err := c.internal.PutObject(ctx, c.bucket, objectName, reader, size, putOptions(objectName, contentType))
	if err != nil {
		return nil, fmt.Errorf("put object %q: %w", objectName, err)
	}
	return &info, nil
}

func putOptions(objectName, contentType string) minio.PutObjectOptions {
	opts := minio.PutObjectOptions{ContentType: contentType}
	switch {
	case strings.HasPrefix(objectName, AvatarPrefix):
		opts.CacheControl = avatarCacheControl
	case strings.HasPrefix(objectName, ExportPrefix):
		opts.CacheControl = exportCacheControl
	}
	return opts
}

// ReadObject 读取私有 Bucket 中的对象，返回内容与 Content-Type。
// 对象超过 maxBytes 时返回 ErrObjectTooLarge。
func (c *Client) ReadObject(ctx context.Context, objectKey string, maxBytes int64) ([]byte, string, error) {
	obj, err := c.internal.GetObject(ctx, c.bucket, objectKey, minio.GetObjectOptions{})
	if err != nil {
		return nil, "", fmt.Errorf("get object %q: %w", objectKey, err)
	}
	defer func() {
		_ = obj.Close()
	}()

	stat, err := obj.Stat()
	if err != nil {
		return nil, "", fmt.Errorf("stat object %q: %w", objectKey, err)
	}
	if maxBytes > 0 && stat.Size > maxBytes {
		return nil, "", fmt.Errorf("%w: %q is %d bytes", ErrObjectTooLarge, objectKey, stat.Size)
	}

	data, err := io.ReadAll(io.LimitReader(obj, stat.Size))
	if err != nil {
		return nil, "", fmt.Errorf("read object %q: %w", objectKey, err)
	}
	return data, stat.ContentType, nil
}

// GeneratePresignedURLWithParams 生成限时下载链接，params 透传为响应头覆盖参数
// （例如 response-content-disposition）。
func (c *Client) GeneratePresignedURLWithParams(ctx context.Context, objectKey string, duration time.Duration, params map[string]string) (string, error) {
	query := url.Values{}
	for k, v := range params {
		query.Set(k, v)
	}
	signed, err := c.public.PresignedGetObject(ctx, c.bucket, objectKey, duration, query)
	if err != nil {
		return "", fmt.Errorf("presign %q: %w", objectKey, err)
	}
	return signed.String(), nil
}

// DeleteObject 删除指定对象，对象不存在视为成功。
func (c *Client) DeleteObject(ctx context.Context, objectKey string) error {
	objectKey = strings.TrimSpace(objectKey)
	if objectKey == "" {
		return nil
	}
	err := c.internal.RemoveObject(ctx, c.bucket, objectKey, minio.RemoveObjectOptions{})
	if err != nil && !IsNoSuchKey(err) {
		return fmt.Errorf("remove object %q: %w", objectKey, err)
	}
	return nil
}
