// Package richtext 将单元格中的富文本内容转换为安全的 HTML 或纯文本。
//
// 支持两种内容形态：JSON 字符串（按 Markdown 解析）以及编辑器产出的节点树
// （{"type":"doc","content":[...]}）。
package richtext

import (
	"bytes"
	"encoding/json"
	"errors"
	"fmt"
	"html/template"
	"strings"

	"github.com/microcosm-cc/bluemonday"
	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/extension"
	"github.com/yuin/goldmark/renderer/html"
)

// ErrUnsupportedContent 内容既不是字符串也不是节点树。
var ErrUnsupportedContent = errors.New("unsupported rich text content")

// Renderer 富文本渲染协作者。
type Renderer interface {
	HTML(raw json.RawMessage) (template.HTML, error)
	PlainText(raw json.RawMessage) string
}

// Default 是默认的富文本渲染器，输出经过 bluemonday UGC 策略清洗。
type Default struct {
	md     goldmark.Markdown
	policy *bluemonday.Policy
}

var _ Renderer = (*Default)(nil)

// New 创建默认渲染器。
func New() *Default {
	md := goldmark.New(
		goldmark.WithExtensions(extension.GFM),
		goldmark.WithRendererOptions(
			html.WithHardWraps(),
			html.WithXHTML(),
		),
	)
	policy := bluemonday.UGCPolicy()
	policy.AllowStyles("text-align").MatchingEnum("left", "center", "right", "justify").OnElements("p", "h1", "h2", "h3", "h4")
	policy.AllowStyles("color").OnElements("span")
	policy.RequireNoFollowOnLinks(true)
	policy.AddTargetBlankToFullyQualifiedLinks(true)
	return &Default{md: md, policy: policy}
}

// HTML 返回清洗后的 HTML 片段，空内容返回空字符串。
func (d *Default) HTML(raw json.RawMessage) (template.HTML, error) {
	content, err := parse(raw)
	if err != nil {
		return "", err
	}

	var buf bytes.Buffer
	switch c := content.(type) {
	case nil:
		return "", nil
	case string:
		if strings.TrimSpace(c) == "" {
			return "", nil
		}
		if err := d.md.Convert([]byte(c), &buf); err != nil {
			return "", fmt.Errorf("convert markdown: %w", err)
		}
	case *Node:
		writeNodeHTML(&buf, c)
	}
	return template.HTML(d.policy.SanitizeBytes(buf.Bytes())), nil
}

// PlainText 返回去除格式后的文本，块级元素之间以换行分隔；无法解析的内容返回空字符串。
func (d *Default) PlainText(raw json.RawMessage) string {
	content, err := parse(raw)
	if err != nil {
		return ""
	}
	switch c := content.(type) {
	case string:
		return markdownText(d.md, []byte(c))
	case *Node:
		var sb strings.Builder
		writeNodeText(&sb, c)
		return tidyLines(sb.String())
	}
	return ""
}

// parse 识别内容形态，返回 nil、string 或 *Node。
func parse(raw json.RawMessage) (any, error) {
	trimmed := bytes.TrimSpace(raw)
	if len(trimmed) == 0 || bytes.Equal(trimmed, []byte("null")) {
		return nil, nil
	}
	switch trimmed[0] {
	case '"':
		var s string
		if err := json.Unmarshal(trimmed, &s); err != nil {
			return nil, fmt.Errorf("decode text content: %w", err)
		}
		return s, nil
	case '{':
		var n Node
		if err := json.Unmarshal(trimmed, &n); err != nil {
			return nil, fmt.Errorf("decode node content: %w", err)
		}
		return &n, nil
	case '[':
		var nodes []*Node
		if err := json.Unmarshal(trimmed, &nodes); err != nil {
			return nil, fmt.Errorf("decode node list: %w", err)
		}
		return &Node{Type: "doc", Content: nodes}, nil
	}
	return nil, ErrUnsupportedContent
}

func tidyLines(s string) string {
	lines := strings.Split(s, "\n")
	out := lines[:0]
	for _, line := range lines {
		line = strings.TrimRight(line, " \t")
		if line == "" && (len(out) == 0 || out[len(out)-1] == "") {
			continue
		}
		out = append(out, line)
	}
	return strings.TrimSpace(strings.Join(out, "\n"))
}
