package richtext

import (
	"strings"

	"github.com/yuin/goldmark"
	"github.com/yuin/goldmark/ast"
	"github.com/yuin/goldmark/text"
)

// markdownText 遍历 Markdown 语法树提取纯文本，列表项前加项目符号。
func markdownText(md goldmark.Markdown, src []byte) string {
	doc := md.Parser().Parse(text.NewReader(src))

	var sb strings.Builder
	_ = ast.Walk(doc, func(n ast.Node, entering bool) (ast.WalkStatus, error) {
		switch node := n.(type) {
		case *ast.Text:
			if entering {
				sb.Write(node.Segment.Value(src))
				if node.HardLineBreak() || node.SoftLineBreak() {
					sb.WriteByte('\n')
				}
			}
		case *ast.String:
			if entering {
				sb.Write(node.Value)
			}
		case *ast.ListItem:
			if entering {
				sb.WriteString(bullet)
			}
		case *ast.FencedCodeBlock, *ast.CodeBlock:
			if entering {
				lines := n.Lines()
				for i := 0; i < lines.Len(); i++ {
					seg := lines.At(i)
					sb.Write(seg.Value(src))
				}
				return ast.WalkSkipChildren, nil
			}
		}
		if !entering && n.Type() == ast.TypeBlock {
			endLine(&sb)
		}
		return ast.WalkContinue, nil
	})
	return tidyLines(sb.String())
}

const bullet = "• "
