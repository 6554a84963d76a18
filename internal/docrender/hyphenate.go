package docrender

import (
	"math"
	"strings"
	"unicode"

	"phResumeRender/internal/layout"
)

// Hyphenate 断字规则：单个字符原样返回；多个字符拆成 [c1, "", c2, "", ...]，
// 排版时每个空字符串处都允许换行，使不含空格的中文文本能够逐字折行。
func Hyphenate(word string) []string {
	runes := []rune(word)
	if len(runes) <= 1 {
		if word == "" {
			return []string{}
		}
		return []string{word}
	}
	out := make([]string, 0, len(runes)*2)
	for _, r := range runes {
		out = append(out, string(r), "")
	}
	return out
}

// Measurer 测量文本宽度（mm）。
type Measurer interface {
	TextWidth(text string, font Font) float64
}

type textLine struct {
	Text  string
	Width float64
}

type unit struct {
	text  string
	space bool
}

// wrapText 贪心折行。拉丁文字只在空格处断行；默认文字中的非 ASCII 单词经 Hyphenate 拆分，
// 可在任意字符后断行。单个单词超过行宽时按字符强制拆分。
func wrapText(text string, limit float64, font Font, script layout.Script, m Measurer) []textLine {
	if limit <= 0 {
		limit = math.MaxFloat64
	}
	var lines []textLine
	for _, para := range strings.Split(strings.ReplaceAll(text, "\r", ""), "\n") {
		lines = append(lines, wrapParagraph(para, limit, font, script, m)...)
	}
	return lines
}

func wrapParagraph(para string, limit float64, font Font, script layout.Script, m Measurer) []textLine {
	var lines []textLine
	var sb strings.Builder
	width := 0.0

	emit := func() {
		s := sb.String()
		if trimmed := strings.TrimRightFunc(s, unicode.IsSpace); trimmed != s {
			s, width = trimmed, m.TextWidth(trimmed, font)
		}
		lines = append(lines, textLine{Text: s, Width: width})
		sb.Reset()
		width = 0
	}
	push := func(s string, w float64) {
		sb.WriteString(s)
		width += w
	}

	for _, u := range breakUnits(para, script) {
		w := m.TextWidth(u.text, font)
		if u.space {
			if sb.Len() == 0 {
				continue
			}
			if width+w > limit {
				emit()
				continue
			}
			push(u.text, w)
			continue
		}
		if sb.Len() > 0 && width+w > limit {
			emit()
		}
		if w <= limit {
			push(u.text, w)
			continue
		}
		for _, chunk := range splitByWidth(u.text, limit, font, m) {
			cw := m.TextWidth(chunk, font)
			if sb.Len() > 0 && width+cw > limit {
				emit()
			}
			push(chunk, cw)
		}
	}
	if sb.Len() > 0 || len(lines) == 0 {
		emit()
	}
	return lines
}

// breakUnits 将段落拆成不可再分的排版单元，相邻单元之间均允许断行。
func breakUnits(para string, script layout.Script) []unit {
	var units []unit
	for _, tok := range tokenize(para) {
		if strings.TrimSpace(tok) == "" {
			units = append(units, unit{text: tok, space: true})
			continue
		}
		if script == layout.ScriptLatin || layout.ScriptOf(tok) == layout.ScriptLatin {
			units = append(units, unit{text: tok})
			continue
		}
		for _, piece := range Hyphenate(tok) {
			if piece != "" {
				units = append(units, unit{text: piece})
			}
		}
	}
	return units
}

// tokenize 按空白与非空白的边界切分。
func tokenize(s string) []string {
	var tokens []string
	var sb strings.Builder
	lastSpace := false
	for _, r := range s {
		isSpace := unicode.IsSpace(r)
		if sb.Len() > 0 && isSpace != lastSpace {
			tokens = append(tokens, sb.String())
			sb.Reset()
		}
		lastSpace = isSpace
		sb.WriteRune(r)
	}
	if sb.Len() > 0 {
		tokens = append(tokens, sb.String())
	}
	return tokens
}

func splitByWidth(token string, limit float64, font Font, m Measurer) []string {
	var parts []string
	var sb strings.Builder
	for _, r := range token {
		sb.WriteRune(r)
		if m.TextWidth(sb.String(), font) > limit && sb.Len() > len(string(r)) {
			s := sb.String()
			parts = append(parts, s[:len(s)-len(string(r))])
			sb.Reset()
			sb.WriteRune(r)
		}
	}
	if sb.Len() > 0 {
		parts = append(parts, sb.String())
	}
	return parts
}
