// Package htmlrender 将渲染计划输出为预览页或打印页的 HTML。
package htmlrender

import (
	"bytes"
	"fmt"
	"html/template"
	"log/slog"
	"strings"

	"phResumeRender/internal/icon"
	"phResumeRender/internal/layout"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/richtext"
)

// Mode 页面用途。
type Mode string

const (
	// ModePreview 交互预览，带工具栏。
	ModePreview Mode = "preview"
	// ModePrint 供无头浏览器打印，不带交互元素，并输出 #pdf-render-ready 标记。
	ModePrint Mode = "print"
)

const (
	LoadingMessage     = "正在加载简历数据..."
	UnavailableMessage = "无法加载简历数据"
)

// PageOptions 控制整页输出。
type PageOptions struct {
	Mode Mode
	// FileName 作为文档标题，浏览器另存为 PDF 时使用。
	FileName string
	// ChannelURL 非空时页面会加入传输通道，收到新数据后刷新。
	ChannelURL string
}

// Renderer HTML 渲染器。
type Renderer struct {
	rich   richtext.Renderer
	icons  icon.Resolver
	tmpl   *template.Template
	logger *slog.Logger
}

// New 创建 HTML 渲染器。
func New(rich richtext.Renderer, icons icon.Resolver) *Renderer {
	tmpl := template.Must(template.New("htmlrender").Parse(fragmentTemplate))
	template.Must(tmpl.Parse(pageTemplate))
	return &Renderer{rich: rich, icons: icons, tmpl: tmpl, logger: slog.Default()}
}

// WithLogger 设置记录单元格降级的日志器。
func (r *Renderer) WithLogger(logger *slog.Logger) *Renderer {
	if logger != nil {
		r.logger = logger
	}
	return r
}

type fragmentView struct {
	Title        string
	CenterTitle  bool
	JobIntention string
	Avatar       template.URL
	Info         infoView
	Modules      []moduleView
	Placeholder  *placeholderView
}

type infoView struct {
	Inline    bool
	Columns   int
	Separator string
	Items     []itemView
}

type itemView struct {
	Icon        template.HTML
	ShowLabel   bool
	Label       string
	Text        string
	Href        string
	Latin       bool
	Placeholder bool
}

type moduleView struct {
	ID        string
	Title     string
	Icon      template.HTML
	HasHeader bool
	Subtitle  string
	TimeRange string
	Content   string
	Rows      []rowView
}

type rowView struct {
	Columns  int
	Mismatch bool
	Cells    []template.HTML
}

type placeholderView struct {
	Icon    template.HTML
	Message string
}

// Fragment 渲染简历主体片段。富文本无法渲染的单元格输出为空并记录警告。
func (r *Renderer) Fragment(plan layout.Plan) (template.HTML, error) {
	view, err := r.buildView(plan)
	if err != nil {
		return "", err
	}
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, "fragment", view); err != nil {
		return "", fmt.Errorf("execute fragment template: %w", err)
	}
	return template.HTML(buf.String()), nil
}

type pageView struct {
	DocumentTitle string
	Mode          Mode
	CSS           template.CSS
	Chrome        bool
	Ready         bool
	Body          template.HTML
	ChannelURL    string
	Message       string
}

// Page 渲染完整的 HTML 文档。两种模式下主体片段完全一致。
func (r *Renderer) Page(plan layout.Plan, opts PageOptions) ([]byte, error) {
	body, err := r.Fragment(plan)
	if err != nil {
		return nil, err
	}
	mode := opts.Mode
	if mode != ModePrint {
		mode = ModePreview
	}
	view := pageView{
		DocumentTitle: documentTitle(opts.FileName, plan.Title),
		Mode:          mode,
		CSS:           template.CSS(pageCSS),
		Chrome:        mode == ModePreview,
		Ready:         mode == ModePrint,
		Body:          body,
	}
	if mode == ModePreview {
		view.ChannelURL = opts.ChannelURL
	}
	return r.execute("page", view)
}

// LoadingPage 等待传输通道送达数据时展示的页面。
func (r *Renderer) LoadingPage(channelURL string) ([]byte, error) {
	return r.execute("status", pageView{
		DocumentTitle: layout.DefaultTitle,
		Mode:          ModePreview,
		CSS:           template.CSS(pageCSS),
		ChannelURL:    channelURL,
		Message:       LoadingMessage,
	})
}

// UnavailablePage 打印参数无法解码时展示的页面。
func (r *Renderer) UnavailablePage() ([]byte, error) {
	return r.execute("status", pageView{
		DocumentTitle: layout.DefaultTitle,
		Mode:          ModePrint,
		CSS:           template.CSS(pageCSS),
		Message:       UnavailableMessage,
	})
}

func (r *Renderer) execute(name string, view pageView) ([]byte, error) {
	var buf bytes.Buffer
	if err := r.tmpl.ExecuteTemplate(&buf, name, view); err != nil {
		return nil, fmt.Errorf("execute %s template: %w", name, err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) buildView(plan layout.Plan) (fragmentView, error) {
	view := fragmentView{
		Title:        plan.Title,
		CenterTitle:  plan.CenterTitle,
		JobIntention: plan.JobIntention,
		Avatar:       avatarURL(plan.Avatar),
		Info: infoView{
			Inline:    plan.PersonalInfo.Inline(),
			Columns:   plan.PersonalInfo.ItemsPerRow,
			Separator: plan.PersonalInfo.Separator,
		},
	}

	for _, item := range plan.PersonalInfo.Items {
		view.Info.Items = append(view.Info.Items, itemView{
			Icon:        r.iconMarkup(item.Icon),
			ShowLabel:   item.ShowLabel,
			Label:       item.LabelText(),
			Text:        item.Text,
			Href:        item.Href,
			Latin:       item.Script == layout.ScriptLatin,
			Placeholder: item.Placeholder,
		})
	}

	for _, m := range plan.Modules {
		mv := moduleView{
			ID:        m.ID,
			Title:     m.Title,
			Icon:      r.iconMarkup(m.Icon),
			HasHeader: m.HasHeader(),
			Subtitle:  m.Subtitle,
			TimeRange: m.TimeRange,
			Content:   m.Content,
		}
		for _, row := range m.Rows {
			rv := rowView{Columns: row.Columns, Mismatch: row.Mismatch}
			for _, cell := range row.Cells {
				if cell.Filler {
					rv.Cells = append(rv.Cells, "")
					continue
				}
				content, err := r.rich.HTML(cell.Content)
				if err != nil {
					r.logger.Warn("rich text cell rendered empty", "module", m.ID, "cell", cell.ID, "error", err)
					content = ""
				}
				rv.Cells = append(rv.Cells, content)
			}
			mv.Rows = append(mv.Rows, rv)
		}
		view.Modules = append(view.Modules, mv)
	}

	if plan.Placeholder != nil {
		view.Placeholder = &placeholderView{
			Icon:    r.iconMarkup(plan.Placeholder.Icon),
			Message: plan.Placeholder.Message,
		}
	}
	return view, nil
}

// iconMarkup 图标协作者返回的标记已经过清洗，可直接作为 HTML 输出。
func (r *Renderer) iconMarkup(ref string) template.HTML {
	if ref == "" || r.icons == nil {
		return ""
	}
	return template.HTML(r.icons.Markup(ref))
}

// avatarURL 只接受 http(s)、站内路径和图片 data URI。
func avatarURL(src string) template.URL {
	lower := strings.ToLower(src)
	switch {
	case src == "":
		return ""
	case strings.HasPrefix(lower, "https://"), strings.HasPrefix(lower, "http://"):
		return template.URL(src)
	case strings.HasPrefix(lower, "data:image/"):
		return template.URL(src)
	case strings.HasPrefix(src, "/") && !strings.HasPrefix(src, "//"):
		return template.URL(src)
	}
	return ""
}

func documentTitle(fileName, title string) string {
	if name := strings.TrimSuffix(strings.TrimSpace(fileName), ".pdf"); name != "" {
		return name
	}
	return strings.TrimSuffix(resume.FileName(title), ".pdf")
}
