package api

import (
	"errors"
	"log/slog"
	"net/http"

	"github.com/gin-gonic/gin"

	"phResumeRender/internal/api/middleware"
	"phResumeRender/internal/htmlrender"
	"phResumeRender/internal/resume"
	"phResumeRender/internal/transfer"
)

// Preview 返回预览页：会话中已有数据时直接渲染（刷新后仍可显示），否则返回加载页并加入传输通道。
func (h *RenderHandler) Preview(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	session := c.Param("session")
	if err := transfer.ValidateSession(session); err != nil {
		BadRequest(c, "invalid session")
		return
	}
	wsURL := channelURL(h.publicBaseURL, session)

	rec, err := h.hub.Latest(c.Request.Context(), session)
	if err != nil {
		if !errors.Is(err, transfer.ErrNotFound) {
			log.Warn("read channel store failed", slog.Any("error", err))
		}
		page, err := h.html.LoadingPage(wsURL)
		if err != nil {
			log.Error("render loading page failed", slog.Any("error", err))
			Internal(c, "failed to render page")
			return
		}
		c.Data(http.StatusOK, contentTypeHTML, page)
		return
	}

	plan, err := h.resolve(c, rec)
	if err != nil {
		Internal(c, "failed to load resume assets")
		return
	}
	page, err := h.html.Page(plan, htmlrender.PageOptions{
		Mode:       htmlrender.ModePreview,
		FileName:   resume.FileName(plan.Title),
		ChannelURL: wsURL,
	})
	if err != nil {
		log.Error("render preview page failed", slog.Any("error", err))
		Internal(c, "failed to render page")
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}

// Print 返回打印页。data 参数为 base64 编码的简历 JSON，无法解析时返回提示页而非错误页。
func (h *RenderHandler) Print(c *gin.Context) {
	log := middleware.LoggerFromContext(c)
	rec, err := resume.DecodePrintParam(c.Query("data"))
	if err != nil {
		log.Warn("decode print param failed", slog.Any("error", err))
		h.unavailable(c)
		return
	}
	plan, err := h.resolve(c, rec)
	if err != nil {
		h.unavailable(c)
		return
	}
	page, err := h.html.Page(plan, htmlrender.PageOptions{
		Mode:     htmlrender.ModePrint,
		FileName: resume.FileName(plan.Title),
	})
	if err != nil {
		log.Error("render print page failed", slog.Any("error", err))
		h.unavailable(c)
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}

func (h *RenderHandler) unavailable(c *gin.Context) {
	page, err := h.html.UnavailablePage()
	if err != nil {
		Internal(c, "failed to render page")
		return
	}
	c.Data(http.StatusOK, contentTypeHTML, page)
}
