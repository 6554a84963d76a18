package layout

import (
	"cmp"
	"slices"
	"strconv"
	"strings"

	"phResumeRender/internal/resume"
)

// Resolve 将简历数据解析为渲染计划。
// 纯函数：不修改入参，不做 I/O；缺失的区块解析为空分支，从不返回错误。
func Resolve(rec *resume.Record) Plan {
	if rec == nil {
		rec = &resume.Record{}
	}

	plan := Plan{
		Title:        rec.Title,
		CenterTitle:  rec.CenterTitle,
		Avatar:       strings.TrimSpace(rec.Avatar),
		JobIntention: JobIntentionLine(rec.JobIntentionSection),
		PersonalInfo: resolvePersonalInfo(rec.PersonalInfoSection),
		Modules:      resolveModules(rec.Modules),
	}
	if strings.TrimSpace(plan.Title) == "" {
		plan.Title = DefaultTitle
	}
	if len(plan.Modules) == 0 {
		plan.Placeholder = &Placeholder{Icon: PlaceholderIcon, Message: PlaceholderMessage}
	}
	return plan
}

// JobIntentionLine 生成求职意向行，区块关闭或过滤后无内容时返回空字符串。
func JobIntentionLine(section *resume.JobIntentionSection) string {
	if section == nil || !section.Enabled || len(section.Items) == 0 {
		return ""
	}

	items := make([]resume.JobIntentionItem, 0, len(section.Items))
	for _, item := range section.Items {
		if jobIntentionValue(item) != "" {
			items = append(items, item)
		}
	}
	slices.SortStableFunc(items, func(a, b resume.JobIntentionItem) int {
		return cmp.Compare(a.Order, b.Order)
	})

	parts := make([]string, 0, len(items))
	for _, item := range items {
		parts = append(parts, item.Label+"："+jobIntentionValue(item))
	}
	return strings.Join(parts, JobIntentionSeparator)
}

// jobIntentionValue 返回求职意向项的展示值，空字符串表示该项应被丢弃。
func jobIntentionValue(item resume.JobIntentionItem) string {
	if item.Type != resume.JobIntentionSalary {
		return strings.TrimSpace(item.Value)
	}
	r := item.SalaryRange
	if r == nil || (r.Min == nil && r.Max == nil) {
		return ""
	}
	if v := strings.TrimSpace(item.Value); v != "" {
		return v
	}
	switch {
	case r.Min != nil && r.Max != nil:
		return formatAmount(*r.Min) + "-" + formatAmount(*r.Max)
	case r.Min != nil:
		return formatAmount(*r.Min) + "以上"
	default:
		return formatAmount(*r.Max) + "以下"
	}
}

func formatAmount(v float64) string {
	return strconv.FormatFloat(v, 'f', -1, 64)
}

// ResolveMode 按“新字段优先、旧开关兜底”的顺序确定个人信息布局。
func ResolveMode(shape resume.Shape) (resume.LayoutMode, int) {
	var inline bool
	var perRow int
	switch s := shape.(type) {
	case resume.CurrentLayout:
		inline = s.Mode == resume.LayoutInline
		perRow = s.ItemsPerRow
	case resume.LegacyLayout:
		inline = s.Inline
		perRow = s.ItemsPerRow
	}
	if perRow <= 0 {
		perRow = DefaultItemsPerRow
	}
	if inline {
		return resume.LayoutInline, perRow
	}
	return resume.LayoutGrid, perRow
}

func resolvePersonalInfo(section *resume.PersonalInfoSection) PersonalInfo {
	mode, perRow := ResolveMode(section.Shape())
	info := PersonalInfo{
		Mode:        mode,
		ItemsPerRow: perRow,
		ShowLabels:  section.LabelsVisible(),
		Separator:   InlineSeparator,
	}
	if section == nil {
		return info
	}

	sorted := slices.Clone(section.PersonalInfo)
	slices.SortStableFunc(sorted, func(a, b resume.PersonalInfoItem) int {
		return cmp.Compare(a.Order, b.Order)
	})

	info.Items = make([]InfoItem, 0, len(sorted))
	for _, item := range sorted {
		info.Items = append(info.Items, resolveInfoItem(item, info.ShowLabels))
	}
	if mode == resume.LayoutGrid {
		info.Rows = chunkItems(info.Items, perRow)
	}
	return info
}

func resolveInfoItem(item resume.PersonalInfoItem, showLabel bool) InfoItem {
	out := InfoItem{
		ID:        item.ID,
		Icon:      strings.TrimSpace(item.Icon),
		Label:     item.Label,
		ShowLabel: showLabel,
	}
	v := item.Value
	if v.Type == resume.ValueLink && v.Content != "" {
		out.Href = v.Content
		out.Text = v.Title
		if out.Text == "" {
			out.Text = LinkPlaceholder
			out.Placeholder = true
		}
		out.Script = ScriptOf(cmp.Or(v.Title, v.Content))
		return out
	}
	out.Text = v.Content
	if out.Text == "" {
		out.Text = ValuePlaceholder
		out.Placeholder = true
	}
	out.Script = ScriptOf(v.Content)
	return out
}

// ScriptOf 非空且全部为 ASCII 字符的文本标记为拉丁文字。
func ScriptOf(s string) Script {
	if s == "" {
		return ScriptDefault
	}
	for i := 0; i < len(s); i++ {
		if s[i] > 0x7F {
			return ScriptDefault
		}
	}
	return ScriptLatin
}

func chunkItems(items []InfoItem, perRow int) [][]InfoItem {
	if len(items) == 0 {
		return nil
	}
	rows := make([][]InfoItem, 0, (len(items)+perRow-1)/perRow)
	for start := 0; start < len(items); start += perRow {
		end := min(start+perRow, len(items))
		rows = append(rows, items[start:end])
	}
	return rows
}

func resolveModules(modules []resume.Module) []Module {
	if len(modules) == 0 {
		return nil
	}
	sorted := slices.Clone(modules)
	slices.SortStableFunc(sorted, func(a, b resume.Module) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]Module, 0, len(sorted))
	for _, m := range sorted {
		out = append(out, Module{
			ID:        m.ID,
			Title:     m.Title,
			Icon:      strings.TrimSpace(m.Icon),
			Subtitle:  m.Subtitle,
			TimeRange: m.TimeRange,
			Content:   m.Content,
			Rows:      resolveRows(m.Rows),
		})
	}
	return out
}

func resolveRows(rows []resume.Row) []Row {
	if len(rows) == 0 {
		return nil
	}
	sorted := slices.Clone(rows)
	slices.SortStableFunc(sorted, func(a, b resume.Row) int {
		return cmp.Compare(a.Order, b.Order)
	})

	out := make([]Row, 0, len(sorted))
	for _, r := range sorted {
		out = append(out, resolveRow(r))
	}
	return out
}

// resolveRow 处理列数与元素数不一致的行：列数无效时取元素数，不足一行的补空单元格，
// 超出的元素按相同列数折到下一行。
func resolveRow(r resume.Row) Row {
	columns := r.Columns
	mismatch := false
	if columns <= 0 {
		columns = max(len(r.Elements), 1)
		mismatch = true
	}
	if len(r.Elements) != columns {
		mismatch = true
	}

	cells := make([]Cell, 0, len(r.Elements)+columns)
	for _, el := range r.Elements {
		cells = append(cells, Cell{ID: el.ID, Content: el.Content})
	}
	for len(cells) == 0 || len(cells)%columns != 0 {
		cells = append(cells, Cell{Filler: true})
	}
	return Row{ID: r.ID, Columns: columns, Cells: cells, Mismatch: mismatch}
}
