package docrender

import (
	"bytes"
	"fmt"
	"html/template"
	"image/color"
	"sync"

	"github.com/tdewolff/canvas"
	"github.com/tdewolff/canvas/renderers/pdf"
	"github.com/tdewolff/canvas/renderers/svg"

	"phResumeRender/internal/layout"
)

const creator = "phResumeRender"

// Renderer 基于 canvas 绘制绘图树，同时作为排版阶段的文本测量器。
type Renderer struct {
	fonts *Fonts

	faceMu sync.Mutex
	faces  map[faceKey]*canvas.FontFace
}

var _ Measurer = (*Renderer)(nil)

type faceKey struct {
	font  Font
	color string
}

// NewRenderer 创建渲染器。
func NewRenderer(fonts *Fonts) *Renderer {
	if fonts == nil {
		fonts = NewFonts(nil, "")
	}
	return &Renderer{fonts: fonts, faces: map[faceKey]*canvas.FontFace{}}
}

// Build 按渲染计划生成绘图树。
func (r *Renderer) Build(plan layout.Plan, assets Assets) (*Document, error) {
	return Define(plan, r, assets)
}

// TextWidth 实现 Measurer，返回毫米宽度。
func (r *Renderer) TextWidth(text string, font Font) float64 {
	if text == "" {
		return 0
	}
	face, err := r.face(font, colorText)
	if err != nil {
		// 字体不可用时按半个字号估算，保证排版仍可进行
		return float64(len([]rune(text))) * pt(font.Size) * 0.5
	}
	return face.TextWidth(text)
}

func (r *Renderer) face(font Font, hex string) (*canvas.FontFace, error) {
	key := faceKey{font: font, color: hex}
	r.faceMu.Lock()
	defer r.faceMu.Unlock()
	if face, ok := r.faces[key]; ok {
		return face, nil
	}
	family, err := r.fonts.family(font.Role)
	if err != nil {
		return nil, err
	}
	face := family.Face(font.Size, parseColor(hex), styleOf(font), canvas.FontNormal)
	r.faces[key] = face
	return face, nil
}

// PDF 将绘图树输出为 PDF。
func (r *Renderer) PDF(doc *Document) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	var buf bytes.Buffer
	writer := pdf.New(&buf, doc.Pages[0].Width, doc.Pages[0].Height, nil)
	writer.SetInfo(doc.Title, "", "", "", creator)
	for i, page := range doc.Pages {
		if i > 0 {
			writer.NewPage(page.Width, page.Height)
		}
		c, err := r.drawPage(page)
		if err != nil {
			return nil, fmt.Errorf("draw page %d: %w", i+1, err)
		}
		c.RenderTo(writer)
	}
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write pdf: %w", err)
	}
	return buf.Bytes(), nil
}

// PageSVG 将单页输出为 SVG。
func (r *Renderer) PageSVG(page Page) ([]byte, error) {
	c, err := r.drawPage(page)
	if err != nil {
		return nil, err
	}
	var buf bytes.Buffer
	writer := svg.New(&buf, page.Width, page.Height, nil)
	c.RenderTo(writer)
	if err := writer.Close(); err != nil {
		return nil, fmt.Errorf("write svg: %w", err)
	}
	return buf.Bytes(), nil
}

// Viewer 输出内嵌全部页面的分页查看器 HTML，与 PDF 共用同一棵绘图树。
func (r *Renderer) Viewer(doc *Document) ([]byte, error) {
	if doc == nil || len(doc.Pages) == 0 {
		return nil, ErrNoPages
	}
	pages := make([]template.HTML, 0, len(doc.Pages))
	for i, page := range doc.Pages {
		data, err := r.PageSVG(page)
		if err != nil {
			return nil, fmt.Errorf("draw page %d: %w", i+1, err)
		}
		pages = append(pages, template.HTML(data))
	}
	var buf bytes.Buffer
	err := viewerTemplate.Execute(&buf, struct {
		Title string
		Pages []template.HTML
	}{Title: doc.Title, Pages: pages})
	if err != nil {
		return nil, fmt.Errorf("render viewer: %w", err)
	}
	return buf.Bytes(), nil
}

func (r *Renderer) drawPage(page Page) (*canvas.Canvas, error) {
	c := canvas.New(page.Width, page.Height)
	ctx := canvas.NewContext(c)
	ctx.SetCoordSystem(canvas.CartesianIV)

	ctx.SetFillColor(canvas.White)
	ctx.DrawPath(0, 0, canvas.Rectangle(page.Width, page.Height))

	for _, ln := range page.Lines {
		ctx.SetFillColor(color.RGBA{})
		ctx.SetStrokeColor(parseColor(ln.Color))
		ctx.SetStrokeWidth(ln.Width)
		p := &canvas.Path{}
		p.MoveTo(0, 0)
		p.LineTo(ln.X2-ln.X1, ln.Y2-ln.Y1)
		ctx.DrawPath(ln.X1, ln.Y1, p)
	}
	ctx.SetStrokeColor(color.RGBA{})
	ctx.SetStrokeWidth(0)

	for _, img := range page.Images {
		if img.Data == nil || img.Width <= 0 {
			continue
		}
		dpmm := float64(img.Data.Bounds().Dx()) / img.Width
		if dpmm <= 0 {
			dpmm = 1
		}
		ctx.DrawImage(img.X, img.Y, img.Data, canvas.DPMM(dpmm))
	}

	// 路径在图片之后绘制，头像的圆角遮罩依赖这一顺序
	for _, pn := range page.Paths {
		p, err := canvas.ParseSVGPath(pn.D)
		if err != nil {
			return nil, fmt.Errorf("parse path: %w", err)
		}
		if pn.Scale > 0 && pn.Scale != 1 {
			p = p.Transform(canvas.Identity.Scale(pn.Scale, pn.Scale))
		}
		ctx.SetFillColor(parseColor(pn.Fill))
		ctx.DrawPath(pn.X, pn.Y, p)
	}

	for _, run := range page.Texts {
		face, err := r.face(run.Font, run.Color)
		if err != nil {
			return nil, err
		}
		metrics := face.Metrics()
		baseline := run.Y + (run.LineHeight-(metrics.Ascent+metrics.Descent))/2 + metrics.Ascent
		ctx.DrawText(run.X, baseline, canvas.NewTextLine(face, run.Text, canvas.Left))
	}
	return c, nil
}

func parseColor(hex string) color.Color {
	if hex == "" {
		return canvas.Black
	}
	return canvas.Hex(hex)
}

var viewerTemplate = template.Must(template.New("viewer").Parse(`<!DOCTYPE html>
<html lang="zh-CN">
<head>
<meta charset="UTF-8">
<title>{{.Title}}</title>
<style>
body { margin: 0; background: #e5e7eb; font-family: sans-serif; }
.viewer-toolbar { position: sticky; top: 0; display: flex; gap: 12px; align-items: center; justify-content: center; padding: 8px; background: #fff; box-shadow: 0 1px 3px rgba(0,0,0,.1); }
.viewer-page { display: none; width: 210mm; margin: 16px auto; box-shadow: 0 2px 8px rgba(0,0,0,.15); background: #fff; }
.viewer-page.active { display: block; }
.viewer-page svg { display: block; width: 100%; height: auto; }
</style>
</head>
<body>
<div class="viewer-toolbar">
  <button type="button" id="viewer-prev">上一页</button>
  <span><span id="viewer-current">1</span> / {{len .Pages}}</span>
  <button type="button" id="viewer-next">下一页</button>
</div>
{{range $i, $p := .Pages}}<div class="viewer-page{{if eq $i 0}} active{{end}}" data-page="{{$i}}">{{$p}}</div>
{{end}}
<script>
(function () {
  var pages = document.querySelectorAll('.viewer-page');
  var current = 0;
  function show(i) {
    if (i < 0 || i >= pages.length) return;
    pages[current].classList.remove('active');
    current = i;
    pages[current].classList.add('active');
    document.getElementById('viewer-current').textContent = current + 1;
  }
  document.getElementById('viewer-prev').onclick = function () { show(current - 1); };
  document.getElementById('viewer-next').onclick = function () { show(current + 1); };
})();
</script>
</body>
</html>
`))
