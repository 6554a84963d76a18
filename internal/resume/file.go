package resume

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"os"
	"path/filepath"
	"regexp"
	"strings"

	"github.com/goccy/go-yaml"
)

// MaxInputSize 限制单份简历输入的大小。
var MaxInputSize = 4 << 20

var (
	ErrEmptyInput    = errors.New("empty resume input")
	ErrInputTooLarge = errors.New("resume input exceeds maximum size")
)

// Format 输入文件格式。
type Format string

const (
	FormatJSON Format = "json"
	FormatYAML Format = "yaml"
)

// DetectFormat 根据扩展名判断格式，无法判断时按内容首字符猜测。
func DetectFormat(name string, data []byte) Format {
	switch strings.ToLower(filepath.Ext(name)) {
	case ".yaml", ".yml":
		return FormatYAML
	case ".json":
		return FormatJSON
	}
	trimmed := bytes.TrimSpace(data)
	if len(trimmed) > 0 && trimmed[0] == '{' {
		return FormatJSON
	}
	return FormatYAML
}

// Decode 解析 JSON 或 YAML 格式的简历。
// YAML 先转为通用结构再走 JSON 解码，使富文本内容保持原始 JSON 形式。
func Decode(data []byte, format Format) (*Record, error) {
	if len(bytes.TrimSpace(data)) == 0 {
		return nil, ErrEmptyInput
	}
	if len(data) > MaxInputSize {
		return nil, fmt.Errorf("%w: %d bytes (max %d)", ErrInputTooLarge, len(data), MaxInputSize)
	}

	raw := data
	if format == FormatYAML {
		var doc any
		if err := yaml.Unmarshal(data, &doc); err != nil {
			return nil, fmt.Errorf("parse yaml: %w", err)
		}
		converted, err := json.Marshal(doc)
		if err != nil {
			return nil, fmt.Errorf("convert yaml: %w", err)
		}
		raw = converted
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", err)
	}
	return &rec, nil
}

// LoadFile 读取本地简历文件。
func LoadFile(path string) (*Record, error) {
	data, err := os.ReadFile(path)
	if err != nil {
		return nil, fmt.Errorf("read resume file: %w", err)
	}
	rec, err := Decode(data, DetectFormat(path, data))
	if err != nil {
		return nil, fmt.Errorf("decode %s: %w", filepath.Base(path), err)
	}
	return rec, nil
}

const defaultFileName = "resume.pdf"

var unsafeFileChars = regexp.MustCompile(`[\\/:*?"<>|\x00-\x1f]+`)

// FileName 由简历标题生成导出文件名，标题为空或清理后为空时返回 resume.pdf。
func FileName(title string) string {
	cleaned := unsafeFileChars.ReplaceAllString(strings.TrimSpace(title), "_")
	cleaned = strings.Trim(cleaned, "._ ")
	if cleaned == "" {
		return defaultFileName
	}
	if r := []rune(cleaned); len(r) > 80 {
		cleaned = string(r[:80])
	}
	return cleaned + ".pdf"
}
