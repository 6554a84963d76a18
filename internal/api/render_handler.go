package api

import (
	"encoding/json"
	"fmt"
	"io"
	"log/slog"
	"mime"
	"net/http"
	"net/url"
	"time"

	"github.com/gin-gonic/gin"

	"phResumeRender/internal/api/middleware"
	"phResumeRender/internal/docrender"
	"phResumeRender/internal/htmlrender"
	"phResumeRender/internal/icon"
	"phResumeRender/internal/layout"
	"phResumeRender/internal/metrics"
	"phResumeRender/internal/printdata"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/richtext"
	"phResumeRender/internal/transfer"
)

const (
	maxRecordBytes      = 4 << 20
	warningHeader       = "X-Render-Warnings"
	contentTypeHTML     = "text/html; charset=utf-8"
	contentTypePDF      = "application/pdf"
	unknownRecordFormat = "invalid resume record"
)

// RenderHandler 负责预览页、打印页以及同步渲染接口。
type RenderHandler struct {
	hub           *transfer.Hub
	objects       printdata.ObjectReader
	html          *htmlrender.Renderer
	document      *docrender.Renderer
	icons         icon.Resolver
	rich          richtext.Renderer
	publicBaseURL string
}

// NewRenderHandler 构造渲染处理器。objects 为空时存储中的头像会被跳过。
func NewRenderHandler(hub *transfer.Hub, objects printdata.ObjectReader, document *docrender.Renderer, publicBaseURL string) *RenderHandler {
	rich := richtext.New()
	icons := icon.NewBuiltin()
	return &RenderHandler{
		hub:           hub,
		objects:       objects,
		html:          htmlrender.New(rich, icons),
		document:      document,
		icons:         icons,
		rich:          rich,
		publicBaseURL: publicBaseURL,
	}
}

// RenderHTML 将请求体中的简历渲染为完整 HTML 页面，?mode=print 输出打印页。
func (h *RenderHandler) RenderHTML(c *gin.Context) {
	plan, ok := h.planFromBody(c)
	if !ok {
		return
	}
	mode := htmlrender.ModePreview
	if c.Query("mode") == string(htmlrender.ModePrint) {
		mode = htmlrender.ModePrint
	}
	start := time.Now()
	page, err := h.html.Page(plan, htmlrender.PageOptions{
		Mode:     mode,
		FileName: resume.FileName(plan.Title),
	})
	metrics.ObserveRender("html", start, err)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render html failed", slog.Any("error", err))
		Internal(c, "failed to render html")
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}

// RenderPDF 由文档渲染器直接输出 PDF 文件。
func (h *RenderHandler) RenderPDF(c *gin.Context) {
	doc, ok := h.documentFromBody(c)
	if !ok {
		return
	}
	start := time.Now()
	data, err := h.document.PDF(doc)
	metrics.ObserveRender("pdf", start, err)
	if err != nil {
		middleware.LoggerFromContext(c).Error("write pdf failed", slog.Any("error", err))
		Internal(c, "failed to render pdf")
		return
	}
	c.Header("Content-Disposition", attachment(resume.FileName(doc.Title)))
	c.Data(http.StatusOK, contentTypePDF, data)
}

// RenderViewer 输出分页查看器 HTML，与 RenderPDF 共用同一份绘图树定义。
func (h *RenderHandler) RenderViewer(c *gin.Context) {
	doc, ok := h.documentFromBody(c)
	if !ok {
		return
	}
	start := time.Now()
	data, err := h.document.Viewer(doc)
	metrics.ObserveRender("viewer", start, err)
	if err != nil {
		middleware.LoggerFromContext(c).Error("render viewer failed", slog.Any("error", err))
		Internal(c, "failed to render viewer")
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, data)
}

func (h *RenderHandler) documentFromBody(c *gin.Context) (*docrender.Document, bool) {
	plan, ok := h.planFromBody(c)
	if !ok {
		return nil, false
	}
	doc, err := h.document.Build(plan, docrender.Assets{
		Images: docrender.LocalImages{},
		Icons:  h.icons,
		Text:   h.rich,
	})
	if err != nil {
		middleware.LoggerFromContext(c).Error("build document failed", slog.Any("error", err))
		Internal(c, "failed to build document")
		return nil, false
	}
	if len(doc.Warnings) > 0 {
		c.Header(warningHeader, fmt.Sprint(len(doc.Warnings)))
	}
	metrics.ObservePages("document", len(doc.Pages))
	return doc, true
}

// planFromBody 读取请求体中的简历并内联存储中的头像。失败时已写出响应。
func (h *RenderHandler) planFromBody(c *gin.Context) (layout.Plan, bool) {
	body, err := io.ReadAll(io.LimitReader(c.Request.Body, maxRecordBytes+1))
	if err != nil {
		BadRequest(c, "failed to read body")
		return layout.Plan{}, false
	}
	if len(body) > maxRecordBytes {
		Error(c, http.StatusRequestEntityTooLarge, "resume too large")
		return layout.Plan{}, false
	}
	var rec resume.Record
	if err := json.Unmarshal(body, &rec); err != nil {
		BadRequest(c, unknownRecordFormat)
		return layout.Plan{}, false
	}
	plan, err := h.resolve(c, &rec)
	if err != nil {
		Internal(c, "failed to load resume assets")
		return layout.Plan{}, false
	}
	return plan, true
}

// resolve 内联头像后生成渲染计划，头像缺失时通过响应头提示。
func (h *RenderHandler) resolve(c *gin.Context, rec *resume.Record) (layout.Plan, error) {
	log := middleware.LoggerFromContext(c)
	inlined, warning, err := printdata.Inline(c.Request.Context(), h.objects, rec, log)
	if err != nil {
		log.Error("inline resume assets failed", slog.Any("error", err))
		return layout.Plan{}, err
	}
	if warning != nil {
		c.Header(warningHeader, fmt.Sprint(len(warning.MissingKeys)))
		metrics.AddMissingAssets(len(warning.MissingKeys))
	}
	return layout.Resolve(inlined), nil
}

func attachment(fileName string) string {
	disposition := mime.FormatMediaType("attachment", map[string]string{"filename": fileName})
	if disposition == "" {
		return "attachment; filename*=UTF-8''" + url.PathEscape(fileName)
	}
	return disposition
}
