package richtext

import (
	"bytes"
	"html"
	"strconv"
	"strings"
)

// Node 编辑器节点树中的一个节点。
type Node struct {
	Type    string         `json:"type"`
	Text    string         `json:"text,omitempty"`
	Attrs   map[string]any `json:"attrs,omitempty"`
	Marks   []Mark         `json:"marks,omitempty"`
	Content []*Node        `json:"content,omitempty"`
}

// Mark 文本节点上的行内样式。
type Mark struct {
	Type  string         `json:"type"`
	Attrs map[string]any `json:"attrs,omitempty"`
}

var blockTags = map[string]string{
	"paragraph":   "p",
	"blockquote":  "blockquote",
	"bulletList":  "ul",
	"orderedList": "ol",
	"listItem":    "li",
	"codeBlock":   "pre",
	"table":       "table",
	"tableRow":    "tr",
	"tableCell":   "td",
	"tableHeader": "th",
}

var markTags = map[string]string{
	"bold":      "strong",
	"strong":    "strong",
	"italic":    "em",
	"em":        "em",
	"underline": "u",
	"strike":    "s",
	"code":      "code",
}

func writeNodeHTML(buf *bytes.Buffer, n *Node) {
	if n == nil {
		return
	}
	switch n.Type {
	case "text":
		writeMarkedText(buf, n)
		return
	case "hardBreak":
		buf.WriteString("<br/>")
		return
	case "horizontalRule":
		buf.WriteString("<hr/>")
		return
	case "heading":
		level := clampHeading(attrInt(n.Attrs, "level"))
		tag := "h" + strconv.Itoa(level)
		writeOpen(buf, tag, n.Attrs)
		writeChildrenHTML(buf, n)
		buf.WriteString("</" + tag + ">")
		return
	}

	tag, ok := blockTags[n.Type]
	if !ok {
		writeChildrenHTML(buf, n)
		return
	}
	writeOpen(buf, tag, n.Attrs)
	if tag == "pre" {
		buf.WriteString("<code>")
		writeChildrenHTML(buf, n)
		buf.WriteString("</code>")
	} else {
		writeChildrenHTML(buf, n)
	}
	buf.WriteString("</" + tag + ">")
}

func writeChildrenHTML(buf *bytes.Buffer, n *Node) {
	for _, child := range n.Content {
		writeNodeHTML(buf, child)
	}
}

func writeOpen(buf *bytes.Buffer, tag string, attrs map[string]any) {
	buf.WriteString("<" + tag)
	if align := attrString(attrs, "textAlign"); align != "" && align != "left" {
		buf.WriteString(` style="text-align: ` + html.EscapeString(align) + `"`)
	}
	buf.WriteString(">")
}

func writeMarkedText(buf *bytes.Buffer, n *Node) {
	var closers []string
	for _, m := range n.Marks {
		switch m.Type {
		case "link":
			href := attrString(m.Attrs, "href")
			if href == "" {
				continue
			}
			buf.WriteString(`<a href="` + html.EscapeString(href) + `">`)
			closers = append(closers, "</a>")
		case "textStyle":
			color := attrString(m.Attrs, "color")
			if color == "" {
				continue
			}
			buf.WriteString(`<span style="color: ` + html.EscapeString(color) + `">`)
			closers = append(closers, "</span>")
		default:
			if tag, ok := markTags[m.Type]; ok {
				buf.WriteString("<" + tag + ">")
				closers = append(closers, "</"+tag+">")
			}
		}
	}
	buf.WriteString(html.EscapeString(n.Text))
	for i := len(closers) - 1; i >= 0; i-- {
		buf.WriteString(closers[i])
	}
}

func writeNodeText(sb *strings.Builder, n *Node) {
	if n == nil {
		return
	}
	switch n.Type {
	case "text":
		sb.WriteString(n.Text)
		return
	case "hardBreak":
		sb.WriteByte('\n')
		return
	case "listItem":
		sb.WriteString(bullet)
	}
	for _, child := range n.Content {
		writeNodeText(sb, child)
	}
	if _, block := blockTags[n.Type]; block || n.Type == "heading" {
		endLine(sb)
	}
}

// endLine 在文本末尾不是换行时补一个换行。
func endLine(sb *strings.Builder) {
	if s := sb.String(); s != "" && !strings.HasSuffix(s, "\n") {
		sb.WriteByte('\n')
	}
}

func attrString(attrs map[string]any, key string) string {
	if v, ok := attrs[key].(string); ok {
		return strings.TrimSpace(v)
	}
	return ""
}

func attrInt(attrs map[string]any, key string) int {
	switch v := attrs[key].(type) {
	case float64:
		return int(v)
	case string:
		n, _ := strconv.Atoi(v)
		return n
	}
	return 0
}

func clampHeading(level int) int {
	return min(max(level, 1), 6)
}
