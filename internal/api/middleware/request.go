package middleware

import (
	"context"
	"log/slog"
	"net/http"
	"regexp"
	"strings"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/google/uuid"
)

// CorrelationHeader 贯穿 API、导出任务与通知的请求标识。
const CorrelationHeader = "X-Correlation-ID"

const (
	correlationIDKey = "correlationID"
	slogLoggerKey    = "slogLogger"
)

type correlationCtxKey struct{}

var correlationPattern = regexp.MustCompile(`^[A-Za-z0-9._-]{1,64}$`)

// CorrelationID 读取或生成 Correlation ID，写入响应头与请求 context。
// 格式不合法的外部标识会被替换，避免污染日志。
func CorrelationID() gin.HandlerFunc {
	return func(c *gin.Context) {
		id := strings.TrimSpace(c.GetHeader(CorrelationHeader))
		if !correlationPattern.MatchString(id) {
			id = uuid.NewString()
		}

		c.Set(correlationIDKey, id)
		c.Header(CorrelationHeader, id)
		c.Request = c.Request.WithContext(context.WithValue(c.Request.Context(), correlationCtxKey{}, id))

		c.Next()
	}
}

// GetCorrelationID 从 gin 上下文中取出 Correlation ID。
func GetCorrelationID(c *gin.Context) string {
	if value, ok := c.Get(correlationIDKey); ok {
		if id, ok := value.(string); ok {
			return id
		}
	}
	return CorrelationIDFrom(c.Request.Context())
}

// CorrelationIDFrom 从 context 中取出 Correlation ID。
func CorrelationIDFrom(ctx context.Context) string {
	id, _ := ctx.Value(correlationCtxKey{}).(string)
	return id
}

// RequestLogger 为每个请求派生带 correlation_id、路由与会话的 logger，并在结束时按状态码分级记录。
// 健康检查与指标抓取只记 Debug。
func RequestLogger(logger *slog.Logger) gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "" {
			route = c.Request.URL.Path
		}

		attrs := []any{
			slog.String("correlation_id", GetCorrelationID(c)),
			slog.String("method", c.Request.Method),
			slog.String("route", route),
		}
		if session := c.Param("session"); session != "" {
			attrs = append(attrs, slog.String("session", session))
		}
		requestLogger := logger.With(attrs...)
		c.Set(slogLoggerKey, requestLogger)

		start := time.Now()
		c.Next()

		status := c.Writer.Status()
		level := slog.LevelInfo
		switch {
		case route == "/health" || route == "/metrics":
			level = slog.LevelDebug
		case status >= http.StatusInternalServerError:
			level = slog.LevelError
		case status >= http.StatusBadRequest:
			level = slog.LevelWarn
		}
		requestLogger.Log(c.Request.Context(), level, "request completed",
			slog.Int("status", status),
			slog.Int("bytes", c.Writer.Size()),
			slog.Duration("latency", time.Since(start)),
		)
	}
}

// Recovery 捕获 handler panic，记录后返回统一的 500 响应。
func Recovery() gin.HandlerFunc {
	return gin.CustomRecovery(func(c *gin.Context, recovered any) {
		LoggerFromContext(c).Error("handler panicked", slog.Any("panic", recovered))
		c.AbortWithStatusJSON(http.StatusInternalServerError, gin.H{"error": "internal server error"})
	})
}

// LoggerFromContext 返回上下文中的 slog.Logger。
func LoggerFromContext(c *gin.Context) *slog.Logger {
	if value, ok := c.Get(slogLoggerKey); ok {
		if logger, ok := value.(*slog.Logger); ok {
			return logger
		}
	}
	return slog.Default()
}
