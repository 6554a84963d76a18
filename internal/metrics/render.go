package metrics

import (
	"time"

	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"
)

var (
	renderDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phresume_render",
			Subsystem: "render",
			Name:      "duration_seconds",
			Help:      "单次渲染耗时分布（秒），按输出类型区分。",
			Buckets:   []float64{0.01, 0.05, 0.1, 0.25, 0.5, 1, 2.5, 5, 10, 30, 60},
		},
		[]string{"output", "result"},
	)

	renderPages = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phresume_render",
			Subsystem: "render",
			Name:      "document_pages",
			Help:      "文档渲染器输出的页数分布。",
			Buckets:   []float64{1, 2, 3, 4, 6, 10},
		},
		[]string{"output"},
	)

	missingAssetsTotal = promauto.NewCounter(
		prometheus.CounterOpts{
			Namespace: "phresume_render",
			Subsystem: "render",
			Name:      "missing_assets_total",
			Help:      "渲染时因缺失或无效而被跳过的资源数量。",
		},
	)
)

// ObserveRender 记录一次渲染的耗时与结果，output 例如 html、pdf、viewer、print、image。
func ObserveRender(output string, start time.Time, err error) {
	result := "ok"
	if err != nil {
		result = "error"
	}
	renderDuration.WithLabelValues(output, result).Observe(time.Since(start).Seconds())
}

// ObservePages 记录文档渲染的页数。
func ObservePages(output string, pages int) {
	renderPages.WithLabelValues(output).Observe(float64(pages))
}

// AddMissingAssets 累加被跳过的资源数量。
func AddMissingAssets(n int) {
	if n > 0 {
		missingAssetsTotal.Add(float64(n))
	}
}
