package docrender

import (
	"errors"
	"fmt"
	"strings"

	"phResumeRender/internal/icon"
	"phResumeRender/internal/layout"
)

// 版式参数，除特别说明外单位为 pt。
const (
	pagePadding = 30.0

	titleSize         = 18.0
	titleMarginBottom = 10.0

	intentionSize         = 10.0
	intentionMarginBottom = 8.0

	labelSize        = 10.0
	labelMarginRight = 5.0
	valueSize        = 10.0
	infoIconSize     = 12.0
	infoIconMargin   = 5.0
	inlineItemMargin = 3.0
	gridItemMargin   = 5.0
	gridColumnGap    = 6.0

	avatarSize       = 60.0
	avatarMarginLeft = 15.0
	avatarMarginTop  = 12.0

	headerMarginBottom = 20.0

	moduleMarginBottom = 15.0
	moduleTitleSize    = 14.0
	moduleIconSize     = 16.0
	moduleIconGap      = 5.0
	moduleTitlePadding = 5.0
	moduleRuleWidth    = 1.0
	moduleTitleMargin  = 8.0

	subtitleSize        = 12.0
	timeRangeSize       = 10.0
	moduleHeaderMargin  = 5.0
	moduleHeaderSpacing = 10.0

	contentSize       = 10.0
	contentLineHeight = 1.5
	rowColumnGap      = 9.0
	rowMarginBottom   = 6.0

	placeholderMarginTop = 50.0
	placeholderIconSize  = 36.0
	placeholderSize      = 12.0

	defaultLineHeight = 1.2
)

const (
	colorText      = "#000000"
	colorMuted     = "#666666"
	colorSeparator = "#999999"
	colorRule      = "#dddddd"
	colorLink      = "#2563eb"
	colorMask      = "#ffffff"
)

var (
	// ErrNoMeasurer Define 缺少文本测量器。
	ErrNoMeasurer = errors.New("document measurer is required")
	// ErrNoPages 文档没有任何页面。
	ErrNoPages = errors.New("document has no pages")
)

func pt(v float64) float64 { return v * PtToMm }

// Define 是唯一的文档定义函数：将渲染计划排版为 A4 分页绘图树。
// PDF 导出与分页查看器都由它的结果绘制。
func Define(plan layout.Plan, m Measurer, assets Assets) (*Document, error) {
	if m == nil {
		return nil, ErrNoMeasurer
	}
	b := &builder{
		m:      m,
		assets: assets,
		doc:    &Document{Title: plan.Title},
		left:   pt(pagePadding),
		right:  A4Width - pt(pagePadding),
		top:    pt(pagePadding),
		bottom: A4Height - pt(pagePadding),
	}
	b.newPage()

	b.header(plan)
	if plan.Placeholder != nil {
		b.placeholder(plan.Placeholder)
	}
	for _, mod := range plan.Modules {
		if err := b.module(mod); err != nil {
			return nil, err
		}
	}
	return b.doc, nil
}

type builder struct {
	m      Measurer
	assets Assets
	doc    *Document

	left, right, top, bottom float64
	y                        float64
}

func (b *builder) page() *Page { return &b.doc.Pages[len(b.doc.Pages)-1] }

func (b *builder) newPage() {
	b.doc.Pages = append(b.doc.Pages, Page{Width: A4Width, Height: A4Height})
	b.y = b.top
}

// ensure 在剩余空间放不下高度 h 时换页；已在页首时不再换页，避免死循环。
func (b *builder) ensure(h float64) {
	if b.y+h > b.bottom+1e-6 && b.y > b.top+1e-6 {
		b.newPage()
	}
}

func (b *builder) warn(format string, args ...any) {
	b.doc.Warnings = append(b.doc.Warnings, fmt.Sprintf(format, args...))
}

func lineHeight(f Font, factor float64) float64 { return pt(f.Size * factor) }

func (b *builder) addText(text string, x, y, width, lh float64, f Font, color string) {
	if text == "" {
		return
	}
	p := b.page()
	p.Texts = append(p.Texts, TextRun{Text: text, X: x, Y: y, Width: width, LineHeight: lh, Font: f, Color: color})
}

// paragraph 按行放置折行后的文本，每行之前检查分页；align 取 left/center/right。
func (b *builder) paragraph(text string, x, width float64, f Font, factor float64, color, align string, script layout.Script) {
	lh := lineHeight(f, factor)
	for _, line := range wrapText(text, width, f, script, b.m) {
		b.ensure(lh)
		lx := x
		switch align {
		case "center":
			lx = x + (width-line.Width)/2
		case "right":
			lx = x + width - line.Width
		}
		b.addText(line.Text, lx, b.y, line.Width, lh, f, color)
		b.y += lh
	}
}

// iconPath 解析图标并放置为黑色填充路径，返回是否放置成功。
func (b *builder) iconPath(ref string, x, y, size float64) bool {
	if ref == "" || b.assets.Icons == nil {
		return false
	}
	d := icon.PathData(b.assets.Icons.Markup(ref))
	if d == "" {
		return false
	}
	p := b.page()
	p.Paths = append(p.Paths, PathNode{D: d, X: x, Y: y, Scale: size / icon.ViewBox, Fill: colorText})
	return true
}

func (b *builder) header(plan layout.Plan) {
	startY := b.y
	x := b.left
	width := b.right - b.left
	besideAvatar := plan.HasAvatar() && !plan.CenterTitle
	if besideAvatar {
		width -= pt(avatarSize + avatarMarginLeft)
	}
	align := "left"
	if plan.CenterTitle {
		align = "center"
	}

	b.paragraph(plan.Title, x, width, Font{Role: RoleDefault, Size: titleSize, Bold: true}, defaultLineHeight, colorText, align, layout.ScriptDefault)
	b.y += pt(titleMarginBottom)

	if plan.HasJobIntention() {
		b.paragraph(plan.JobIntention, x, width, Font{Role: RoleDefault, Size: intentionSize}, defaultLineHeight, colorMuted, align, layout.ScriptDefault)
		b.y += pt(intentionMarginBottom)
	}

	info := plan.PersonalInfo
	if len(info.Items) > 0 {
		if info.Inline() {
			b.inlineInfo(info, x, width)
		} else {
			b.gridInfo(info, x, width)
		}
	}

	if plan.HasAvatar() {
		size := pt(avatarSize)
		if besideAvatar {
			if b.placeAvatar(plan.Avatar, b.right-size, startY, size) {
				b.y = max(b.y, startY+size)
			}
		} else {
			b.ensure(pt(avatarMarginTop) + size)
			ay := b.y + pt(avatarMarginTop)
			if b.placeAvatar(plan.Avatar, b.left+(b.right-b.left-size)/2, ay, size) {
				b.y = ay + size
			}
		}
	}
	b.y += pt(headerMarginBottom)
}

// placeAvatar 放置圆形头像：位图加四个白色圆角遮罩。无法加载时记录警告并跳过。
func (b *builder) placeAvatar(ref string, x, y, size float64) bool {
	if b.assets.Images == nil {
		b.warn("avatar skipped: no image loader")
		return false
	}
	img, err := b.assets.Images.Load(ref)
	if err != nil {
		b.warn("avatar skipped: %v", err)
		return false
	}
	p := b.page()
	p.Images = append(p.Images, ImageNode{Ref: truncate(ref, 64), X: x, Y: y, Width: size, Height: size, Data: img})
	for _, d := range roundCornerMasks(size, size/2) {
		p.Paths = append(p.Paths, PathNode{D: d, X: x, Y: y, Scale: 1, Fill: colorMask})
	}
	return true
}

// roundCornerMasks 返回覆盖正方形四角的路径，使其呈现半径为 r 的圆角。
func roundCornerMasks(s, r float64) []string {
	f := func(v float64) string { return fmt.Sprintf("%.3f", v) }
	return []string{
		"M0,0 H" + f(r) + " A" + f(r) + "," + f(r) + " 0 0 0 0," + f(r) + " Z",
		"M" + f(s) + ",0 V" + f(r) + " A" + f(r) + "," + f(r) + " 0 0 0 " + f(s-r) + ",0 Z",
		"M" + f(s) + "," + f(s) + " H" + f(s-r) + " A" + f(r) + "," + f(r) + " 0 0 0 " + f(s) + "," + f(s-r) + " Z",
		"M0," + f(s) + " V" + f(s-r) + " A" + f(r) + "," + f(r) + " 0 0 0 " + f(r) + "," + f(s) + " Z",
	}
}

var (
	labelFont     = Font{Role: RoleDefault, Size: labelSize}
	separatorFont = Font{Role: RoleDefault, Size: valueSize}
)

func valueFont(item layout.InfoItem) Font {
	if item.Script == layout.ScriptLatin {
		return Font{Role: RoleLatin, Size: valueSize}
	}
	return Font{Role: RoleDefault, Size: valueSize}
}

func valueColor(item layout.InfoItem) string {
	if item.IsLink() {
		return colorLink
	}
	return colorText
}

// itemPrefixWidth 图标与标签占用的宽度。
func (b *builder) itemPrefixWidth(item layout.InfoItem) float64 {
	w := 0.0
	if b.hasIcon(item.Icon) {
		w += pt(infoIconSize + infoIconMargin)
	}
	if item.ShowLabel {
		w += b.m.TextWidth(item.LabelText(), labelFont) + pt(labelMarginRight)
	}
	return w
}

func (b *builder) hasIcon(ref string) bool {
	return ref != "" && b.assets.Icons != nil && icon.PathData(b.assets.Icons.Markup(ref)) != ""
}

func (b *builder) itemWidth(item layout.InfoItem) float64 {
	return b.itemPrefixWidth(item) + b.m.TextWidth(item.Text, valueFont(item))
}

// infoLayout 一条个人信息在给定位置与宽度下的排版结果。
type infoLayout struct {
	item   layout.InfoItem
	x      float64
	valueX float64
	lines  []textLine

	// sep 非空时在 sepX 处先放置分隔符（单行模式）。
	sep        string
	sepX, sepW float64
}

// measureItem 只计算图标、标签占位与折行结果，不放置任何内容。
func (b *builder) measureItem(item layout.InfoItem, x, maxW float64) infoLayout {
	prefix := b.itemPrefixWidth(item)
	return infoLayout{
		item:   item,
		x:      x,
		valueX: x + prefix,
		lines:  wrapText(item.Text, maxW-prefix, valueFont(item), item.Script, b.m),
	}
}

func (b *builder) drawPrefix(l infoLayout, lh float64) {
	x, y := l.x, b.y
	if l.sep != "" {
		b.addText(l.sep, l.sepX, y, l.sepW, lh, separatorFont, colorSeparator)
	}
	if b.iconPath(l.item.Icon, x, y+(lh-pt(infoIconSize))/2, pt(infoIconSize)) {
		x += pt(infoIconSize + infoIconMargin)
	}
	if l.item.ShowLabel {
		label := l.item.LabelText()
		b.addText(label, x, y, b.m.TextWidth(label, labelFont), lh, labelFont, colorMuted)
	}
}

// placeRow 放置同一基线上的一行信息：先按整行高度换页，
// 整行超过一页时余下的折行逐行续排到后续页面。
func (b *builder) placeRow(row []infoLayout, lh float64) {
	n := 1
	for _, l := range row {
		n = max(n, len(l.lines))
	}
	b.ensure(float64(n) * lh)
	for k := 0; k < n; k++ {
		if k > 0 {
			b.ensure(lh)
		}
		for _, l := range row {
			if k == 0 {
				b.drawPrefix(l, lh)
			}
			if k < len(l.lines) {
				line := l.lines[k]
				b.addText(line.Text, l.valueX, b.y, line.Width, lh, valueFont(l.item), valueColor(l.item))
			}
		}
		b.y += lh
	}
}

func (b *builder) inlineInfo(info layout.PersonalInfo, x0, width float64) {
	lh := lineHeight(labelFont, defaultLineHeight)
	sepW := b.m.TextWidth(info.Separator, separatorFont)
	x := x0
	var row []infoLayout
	for i, item := range info.Items {
		w := b.itemWidth(item)
		needSep := i > 0 && x > x0
		if needSep && x+sepW+w > x0+width {
			b.placeRow(row, lh)
			b.y += pt(inlineItemMargin)
			row, x, needSep = nil, x0, false
		}
		sepX := x
		if needSep {
			x += sepW
		}
		l := b.measureItem(item, x, x0+width-x)
		if needSep {
			l.sep, l.sepX, l.sepW = info.Separator, sepX, sepW
		}
		row = append(row, l)
		x += min(w, x0+width-x)
	}
	b.placeRow(row, lh)
	b.y += pt(inlineItemMargin)
}

func (b *builder) gridInfo(info layout.PersonalInfo, x0, width float64) {
	cols := max(info.ItemsPerRow, 1)
	cellW := width / float64(cols)
	lh := lineHeight(labelFont, defaultLineHeight)
	for _, items := range info.Rows {
		row := make([]infoLayout, len(items))
		for i, item := range items {
			row[i] = b.measureItem(item, x0+float64(i)*cellW, cellW-pt(gridColumnGap))
		}
		b.placeRow(row, lh)
		b.y += pt(gridItemMargin)
	}
}

func (b *builder) placeholder(ph *layout.Placeholder) {
	b.y += pt(placeholderMarginTop)
	size := pt(placeholderIconSize)
	b.ensure(size)
	if b.iconPath(ph.Icon, b.left+(b.right-b.left-size)/2, b.y, size) {
		b.y += size + pt(moduleTitleMargin)
	}
	b.paragraph(ph.Message, b.left, b.right-b.left, Font{Role: RoleDefault, Size: placeholderSize}, defaultLineHeight, colorMuted, "center", layout.ScriptDefault)
}

func (b *builder) module(mod layout.Module) error {
	titleFont := Font{Role: RoleDefault, Size: moduleTitleSize, Bold: true}
	titleLH := lineHeight(titleFont, defaultLineHeight)
	b.ensure(titleLH + pt(moduleTitlePadding+moduleRuleWidth+moduleTitleMargin) + lineHeight(Font{Size: contentSize}, contentLineHeight))

	x := b.left
	if b.iconPath(mod.Icon, x, b.y+(titleLH-pt(moduleIconSize))/2, pt(moduleIconSize)) {
		x += pt(moduleIconSize + moduleIconGap)
	}
	b.paragraph(mod.Title, x, b.right-x, titleFont, defaultLineHeight, colorText, "left", layout.ScriptDefault)
	b.y += pt(moduleTitlePadding)
	p := b.page()
	p.Lines = append(p.Lines, Rule{X1: b.left, Y1: b.y, X2: b.right, Y2: b.y, Width: pt(moduleRuleWidth), Color: colorRule})
	b.y += pt(moduleRuleWidth + moduleTitleMargin)

	if mod.HasHeader() {
		b.moduleHeader(mod)
	}
	if strings.TrimSpace(mod.Content) != "" {
		b.paragraph(mod.Content, b.left, b.right-b.left, Font{Role: RoleDefault, Size: contentSize}, contentLineHeight, colorText, "left", layout.ScriptDefault)
	}
	for _, row := range mod.Rows {
		if err := b.row(row); err != nil {
			return fmt.Errorf("module %s: %w", mod.ID, err)
		}
	}
	b.y += pt(moduleMarginBottom)
	return nil
}

func (b *builder) moduleHeader(mod layout.Module) {
	subFont := Font{Role: RoleDefault, Size: subtitleSize}
	timeFont := Font{Role: RoleDefault, Size: timeRangeSize}
	lh := lineHeight(subFont, defaultLineHeight)
	width := b.right - b.left

	var timeLines, subLines []textLine
	subW := width
	if mod.TimeRange != "" {
		timeW := min(b.m.TextWidth(mod.TimeRange, timeFont), width/2)
		timeLines = wrapText(mod.TimeRange, timeW, timeFont, layout.ScriptDefault, b.m)
		subW = width - timeW - pt(moduleHeaderSpacing)
	}
	if mod.Subtitle != "" {
		subLines = wrapText(mod.Subtitle, subW, subFont, layout.ScriptDefault, b.m)
	}

	// 副标题与时间范围并排，整体放得下时不拆页
	n := max(len(timeLines), len(subLines), 1)
	b.ensure(float64(n) * lh)
	for k := 0; k < n; k++ {
		if k > 0 {
			b.ensure(lh)
		}
		if k < len(subLines) {
			b.addText(subLines[k].Text, b.left, b.y, subLines[k].Width, lh, subFont, colorText)
		}
		if k < len(timeLines) {
			line := timeLines[k]
			b.addText(line.Text, b.right-line.Width, b.y, line.Width, lh, timeFont, colorMuted)
		}
		b.y += lh
	}
	b.y += pt(moduleHeaderMargin)
}

func (b *builder) row(row layout.Row) error {
	cellFont := Font{Role: RoleDefault, Size: contentSize}
	lh := lineHeight(cellFont, contentLineHeight)
	gap := pt(rowColumnGap)
	colW := (b.right - b.left - gap*float64(row.Columns-1)) / float64(row.Columns)

	for _, cells := range row.Lines() {
		wrapped := make([][]textLine, len(cells))
		maxLines := 0
		for i, cell := range cells {
			if cell.Filler || b.assets.Text == nil {
				continue
			}
			text := b.assets.Text.PlainText(cell.Content)
			if text == "" {
				continue
			}
			wrapped[i] = wrapText(text, colW, cellFont, layout.ScriptDefault, b.m)
			maxLines = max(maxLines, len(wrapped[i]))
		}
		for k := 0; k < maxLines; k++ {
			b.ensure(lh)
			for i, lines := range wrapped {
				if k < len(lines) {
					b.addText(lines[k].Text, b.left+float64(i)*(colW+gap), b.y, lines[k].Width, lh, cellFont, colorText)
				}
			}
			b.y += lh
		}
		if maxLines > 0 {
			b.y += pt(rowMarginBottom)
		}
	}
	return nil
}
