package docrender

import (
	"bytes"
	"encoding/base64"
	"errors"
	"fmt"
	"image"
	_ "image/gif"
	_ "image/jpeg"
	_ "image/png"
	"net/url"
	"os"
	"path/filepath"
	"strings"

	_ "golang.org/x/image/bmp"
	_ "golang.org/x/image/webp"

	"phResumeRender/internal/icon"
	"phResumeRender/internal/richtext"
)

// ErrUnsupportedImage 图片引用既不是 data URI，也不是允许访问的本地文件。
var ErrUnsupportedImage = errors.New("unsupported image reference")

// ImageLoader 将图片引用解码为位图。
type ImageLoader interface {
	Load(ref string) (image.Image, error)
}

// Assets 排版时使用的外部协作者，任一字段为 nil 时对应内容被跳过。
type Assets struct {
	Images ImageLoader
	Icons  icon.Resolver
	Text   richtext.Renderer
}

// LocalImages 解码 data URI；BaseDir 非空时还允许读取该目录下的本地文件。
type LocalImages struct {
	BaseDir string
}

var _ ImageLoader = LocalImages{}

// Load 实现 ImageLoader。
func (l LocalImages) Load(ref string) (image.Image, error) {
	ref = strings.TrimSpace(ref)
	if strings.HasPrefix(strings.ToLower(ref), "data:") {
		data, err := DecodeDataURI(ref)
		if err != nil {
			return nil, err
		}
		return decodeImage(data)
	}
	if l.BaseDir == "" || strings.Contains(ref, "://") || ref == "" {
		return nil, fmt.Errorf("%w: %q", ErrUnsupportedImage, truncate(ref, 64))
	}
	path := ref
	if !filepath.IsAbs(path) {
		path = filepath.Join(l.BaseDir, path)
	}
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read image %s: %w", ref, err)
	}
	return decodeImage(data)
}

// DecodeDataURI 解析 data URI，支持 base64 与 URL 编码两种形式。
func DecodeDataURI(uri string) ([]byte, error) {
	comma := strings.IndexByte(uri, ',')
	if comma < 0 || !strings.HasPrefix(strings.ToLower(uri), "data:") {
		return nil, fmt.Errorf("%w: malformed data uri", ErrUnsupportedImage)
	}
	meta, payload := uri[len("data:"):comma], uri[comma+1:]
	if strings.HasSuffix(strings.ToLower(meta), ";base64") {
		data, err := base64.StdEncoding.DecodeString(payload)
		if err != nil {
			data, err = base64.RawStdEncoding.DecodeString(strings.TrimRight(payload, "="))
		}
		if err != nil {
			return nil, fmt.Errorf("decode data uri: %w", err)
		}
		return data, nil
	}
	unescaped, err := url.PathUnescape(payload)
	if err != nil {
		return nil, fmt.Errorf("unescape data uri: %w", err)
	}
	return []byte(unescaped), nil
}

func decodeImage(data []byte) (image.Image, error) {
	img, _, err := image.Decode(bytes.NewReader(data))
	if err != nil {
		return nil, fmt.Errorf("decode image: %w", err)
	}
	return img, nil
}

func truncate(s string, n int) string {
	if len(s) <= n {
		return s
	}
	return s[:n] + "..."
}
