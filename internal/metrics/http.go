package metrics

import (
	"strconv"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	requestDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phresume_render",
			Subsystem: "http",
			Name:      "request_duration_seconds",
			Help:      "HTTP 请求耗时分布（秒）。",
			Buckets:   []float64{0.005, 0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10},
		},
		[]string{"method", "route", "code"},
	)

	requestTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phresume_render",
			Subsystem: "http",
			Name:      "requests_total",
			Help:      "HTTP 请求总数，code 为状态码类别（2xx、4xx 等）。",
		},
		[]string{"method", "route", "code"},
	)

	openConnections = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phresume_render",
			Subsystem: "ws",
			Name:      "open_connections",
			Help:      "当前打开的 WebSocket 连接数，按用途区分。",
		},
		[]string{"kind"},
	)
)

// unmatchedRoute 未命中任何路由的请求统一记为该值，避免路径基数膨胀。
const unmatchedRoute = "unmatched"

// GinMiddleware 按路由模板记录请求耗时与数量，/metrics 自身不计入。
func GinMiddleware() gin.HandlerFunc {
	return func(c *gin.Context) {
		route := c.FullPath()
		if route == "/metrics" {
			c.Next()
			return
		}
		if route == "" {
			route = unmatchedRoute
		}

		start := time.Now()
		c.Next()

		labels := prometheus.Labels{
			"method": c.Request.Method,
			"route":  route,
			"code":   statusClass(c.Writer.Status()),
		}
		requestDuration.With(labels).Observe(time.Since(start).Seconds())
		requestTotal.With(labels).Inc()
	}
}

// TrackConnection 记录一个打开的 WebSocket 连接，返回的函数在连接关闭时调用。
func TrackConnection(kind string) func() {
	gauge := openConnections.WithLabelValues(kind)
	gauge.Inc()
	return gauge.Dec
}

func statusClass(status int) string {
	if status < 100 || status > 599 {
		return "unknown"
	}
	return strconv.Itoa(status/100) + "xx"
}
