// Package printdata 在渲染前把简历中引用的存储对象内联为 data URI。
package printdata

import (
	"context"
	"encoding/base64"
	"errors"
	"fmt"
	"log/slog"
	"strings"

	"phResumeRender/internal/errcode"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/storage"
)

// MaxAvatarBytes 头像对象允许内联的最大字节数。
const MaxAvatarBytes = 5 << 20

// ObjectReader 读取存储对象，返回内容与 Content-Type。
type ObjectReader interface {
	ReadObject(ctx context.Context, objectKey string, maxBytes int64) ([]byte, string, error)
}

// Warning 描述可恢复的资源缺失，流程继续。
type Warning struct {
	Code        int      `json:"code"`
	Message     string   `json:"message"`
	MissingKeys []string `json:"missing_keys,omitempty"`
}

// Inline 返回头像已内联的简历副本，原记录保持不变。
// 约定：
// - 对象不存在或键不合法 => 去掉头像并返回 warning(4004)
// - Bucket 不存在或其他读取错误 => 返回 error
// - data URI 与 http(s) 地址原样保留
func Inline(ctx context.Context, objects ObjectReader, rec *resume.Record, log *slog.Logger) (*resume.Record, *Warning, error) {
	if rec == nil {
		return nil, nil, nil
	}
	out := *rec
	key := strings.TrimSpace(rec.Avatar)
	if key == "" || !isObjectRef(key) {
		return &out, nil, nil
	}
	if log == nil {
		log = slog.Default()
	}

	drop := func(reason string) (*resume.Record, *Warning, error) {
		log.Warn("avatar removed", slog.String("object_key", key), slog.String("reason", reason))
		out.Avatar = ""
		return &out, &Warning{
			Code:        errcode.ResourceMissing,
			Message:     "头像资源缺失或无效，已自动跳过并继续生成",
			MissingKeys: []string{key},
		}, nil
	}

	if !storage.IsAvatarKey(key) {
		return drop("avatar object key 格式不合法")
	}
	if objects == nil {
		return drop("storage 未配置")
	}

	data, contentType, err := objects.ReadObject(ctx, key, MaxAvatarBytes)
	if err != nil {
		switch {
		case storage.IsNoSuchBucket(err):
			return nil, nil, fmt.Errorf("minio bucket does not exist: %w", err)
		case storage.IsNoSuchKey(err):
			return drop("avatar object 不存在")
		case errors.Is(err, storage.ErrObjectTooLarge):
			return drop("avatar object 过大")
		}
		return nil, nil, fmt.Errorf("failed to read avatar: %w", err)
	}
	if strings.TrimSpace(contentType) == "" {
		contentType = "image/png"
	}
	out.Avatar = fmt.Sprintf("data:%s;base64,%s", contentType, base64.StdEncoding.EncodeToString(data))
	return &out, nil, nil
}

func isObjectRef(ref string) bool {
	lower := strings.ToLower(ref)
	return !strings.HasPrefix(lower, "data:") && !strings.Contains(lower, "://")
}
