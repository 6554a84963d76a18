package storage

import (
	"fmt"
	"path"
	"strings"
	"unicode/utf8"

	"github.com/google/uuid"
)

// 对象前缀。
const (
	AvatarPrefix = "avatars/"
	ExportPrefix = "exports/"
)

var avatarExtensions = map[string]string{
	"image/png":  ".png",
	"image/jpeg": ".jpg",
	"image/webp": ".webp",
	"image/gif":  ".gif",
}

// AvatarExtension 返回头像 Content-Type 对应的扩展名，不支持时返回 false。
func AvatarExtension(contentType string) (string, bool) {
	ext, ok := avatarExtensions[strings.ToLower(strings.TrimSpace(contentType))]
	return ext, ok
}

// NewAvatarKey 生成新的头像对象键。
func NewAvatarKey(ext string) string {
	return AvatarPrefix + uuid.NewString() + ext
}

// ExportKey 导出文件的对象键。
func ExportKey(jobID, ext string) string {
	return fmt.Sprintf("%s%s%s", ExportPrefix, jobID, ext)
}

// IsAvatarKey 判断简历中的头像引用是否为本服务签发的对象键。
func IsAvatarKey(key string) bool {
	if key == "" || !utf8.ValidString(key) || len(key) > 200 {
		return false
	}
	if !strings.HasPrefix(key, AvatarPrefix) {
		return false
	}
	if strings.Contains(key, "..") || strings.Contains(key, "\\") || strings.Contains(key, "//") {
		return false
	}
	ext := strings.ToLower(path.Ext(key))
	for _, allowed := range avatarExtensions {
		if ext == allowed {
			return true
		}
	}
	return ext == ".jpeg"
}
