package resume

import (
	"encoding/base64"
	"encoding/json"
	"errors"
	"fmt"
	"net/url"
	"strings"
)

// ErrInvalidPrintParam 表示打印页参数无法解码为简历数据。
var ErrInvalidPrintParam = errors.New("invalid print param")

// EncodePrintParam 将简历编码为打印页 data 参数：UTF-8 JSON 的标准 base64。
func EncodePrintParam(rec *Record) (string, error) {
	if rec == nil {
		return "", fmt.Errorf("encode print param: %w", ErrInvalidPrintParam)
	}
	raw, err := json.Marshal(rec)
	if err != nil {
		return "", fmt.Errorf("marshal record: %w", err)
	}
	return base64.StdEncoding.EncodeToString(raw), nil
}

var printParamEncodings = []*base64.Encoding{
	base64.StdEncoding,
	base64.URLEncoding,
	base64.RawStdEncoding,
	base64.RawURLEncoding,
}

// DecodePrintParam 解码打印页 data 参数，兼容经过 URL 转义的值以及 URL/无填充的 base64 字母表。
// 任何失败都返回包装了 ErrInvalidPrintParam 的错误，调用方应视为无数据。
func DecodePrintParam(param string) (*Record, error) {
	value := strings.TrimSpace(param)
	if value == "" {
		return nil, fmt.Errorf("empty param: %w", ErrInvalidPrintParam)
	}
	if unescaped, err := url.QueryUnescape(value); err == nil && !strings.Contains(value, "+") {
		value = unescaped
	} else if unescaped, err := url.PathUnescape(value); err == nil {
		value = unescaped
	}

	var raw []byte
	var decodeErr error
	for _, enc := range printParamEncodings {
		raw, decodeErr = enc.DecodeString(value)
		if decodeErr == nil {
			break
		}
	}
	if decodeErr != nil {
		return nil, fmt.Errorf("decode base64: %w", errors.Join(ErrInvalidPrintParam, decodeErr))
	}

	var rec Record
	if err := json.Unmarshal(raw, &rec); err != nil {
		return nil, fmt.Errorf("unmarshal record: %w", errors.Join(ErrInvalidPrintParam, err))
	}
	return &rec, nil
}
