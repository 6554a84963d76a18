package layout

import (
	"encoding/json"

	"phResumeRender/internal/resume"
)

const (
	// DefaultTitle 标题为空时的占位标题。
	DefaultTitle = "简历标题"
	// DefaultItemsPerRow 网格模式每行默认项数。
	DefaultItemsPerRow = 2
	// InlineSeparator 单行模式中两项之间的分隔符。
	InlineSeparator = " • "
	// JobIntentionSeparator 求职意向各项之间的全角分隔符。
	JobIntentionSeparator = " ｜ "

	LinkPlaceholder  = "点击访问"
	ValuePlaceholder = "未填写"

	PlaceholderIcon    = "mdi:file-document-outline"
	PlaceholderMessage = "暂无简历内容，请在左侧编辑区域添加模块"
)

// Script 标记文本适用的字体：纯 ASCII 文本使用拉丁字体，其余使用默认（中文）字体。
type Script int

const (
	ScriptDefault Script = iota
	ScriptLatin
)

func (s Script) String() string {
	if s == ScriptLatin {
		return "latin"
	}
	return "default"
}

// Plan 是简历解析后的渲染计划，HTML 渲染器与文档渲染器都只读取 Plan。
type Plan struct {
	Title        string
	CenterTitle  bool
	Avatar       string
	JobIntention string
	PersonalInfo PersonalInfo
	Modules      []Module
	// Placeholder 仅在没有任何模块时非空。
	Placeholder *Placeholder
}

// HasJobIntention 是否展示求职意向行。
func (p Plan) HasJobIntention() bool { return p.JobIntention != "" }

// HasAvatar 是否展示头像。
func (p Plan) HasAvatar() bool { return p.Avatar != "" }

// PersonalInfo 个人信息区块的解析结果。
type PersonalInfo struct {
	Mode        resume.LayoutMode
	ItemsPerRow int
	ShowLabels  bool
	Items       []InfoItem
	// Rows 为网格模式下按 ItemsPerRow 切分的行，最后一行可能不满。
	Rows      [][]InfoItem
	Separator string
}

// Inline 是否为单行模式。
func (p PersonalInfo) Inline() bool { return p.Mode == resume.LayoutInline }

// InfoItem 一条个人信息的最终展示内容。
type InfoItem struct {
	ID    string
	Icon  string
	Label string
	// ShowLabel 为 false 时渲染器不输出 Label。
	ShowLabel bool
	Text      string
	// Href 非空表示以链接形式展示。
	Href string
	// Placeholder 表示 Text 是占位文案而非用户填写的值。
	Placeholder bool
	Script      Script
}

// LabelText 返回带冒号的标签文本。
func (i InfoItem) LabelText() string { return i.Label + ":" }

// IsLink 是否为链接。
func (i InfoItem) IsLink() bool { return i.Href != "" }

// Module 解析后的模块。
type Module struct {
	ID        string
	Title     string
	Icon      string
	Subtitle  string
	TimeRange string
	Content   string
	Rows      []Row
}

// HasHeader 副标题或时间范围至少有一项时为 true。
func (m Module) HasHeader() bool { return m.Subtitle != "" || m.TimeRange != "" }

// Row 解析后的行。Cells 的数量总是 Columns 的整数倍。
type Row struct {
	ID      string
	Columns int
	Cells   []Cell
	// Mismatch 表示原始元素数量与列数不一致，已做补齐或折行处理。
	Mismatch bool
}

// Lines 将单元格按列数切分为多行。
func (r Row) Lines() [][]Cell {
	if r.Columns <= 0 {
		return nil
	}
	lines := make([][]Cell, 0, (len(r.Cells)+r.Columns-1)/r.Columns)
	for start := 0; start < len(r.Cells); start += r.Columns {
		end := min(start+r.Columns, len(r.Cells))
		lines = append(lines, r.Cells[start:end])
	}
	return lines
}

// Cell 行中的单元格，Filler 为补齐用的空单元格。
type Cell struct {
	ID      string
	Content json.RawMessage
	Filler  bool
}

// Placeholder 空简历的占位提示。
type Placeholder struct {
	Icon    string
	Message string
}
