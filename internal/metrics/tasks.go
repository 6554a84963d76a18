package metrics

import (
	"context"
	"errors"
	"strconv"
	"time"

	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus"
	"github.com/prometheus/client_golang/prometheus/promauto"

	"phResumeRender/internal/errcode"
)

// 任务结果标签。
const (
	outcomeSucceeded = "succeeded"
	outcomeRetried   = "retried"
	outcomeFailed    = "failed"
)

var (
	taskTotal = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phresume_render",
			Subsystem: "tasks",
			Name:      "processed_total",
			Help:      "任务处理次数，outcome 区分成功、等待重试与最终失败。",
		},
		[]string{"task_type", "outcome"},
	)

	taskDuration = promauto.NewHistogramVec(
		prometheus.HistogramOpts{
			Namespace: "phresume_render",
			Subsystem: "tasks",
			Name:      "duration_seconds",
			Help:      "单次任务处理耗时分布（秒）。",
			Buckets:   []float64{0.1, 0.5, 1, 2.5, 5, 10, 30, 60, 120},
		},
		[]string{"task_type"},
	)

	taskInProgress = promauto.NewGaugeVec(
		prometheus.GaugeOpts{
			Namespace: "phresume_render",
			Subsystem: "tasks",
			Name:      "in_progress",
			Help:      "当前正在处理的任务数量。",
		},
		[]string{"task_type"},
	)

	taskFailures = promauto.NewCounterVec(
		prometheus.CounterOpts{
			Namespace: "phresume_render",
			Subsystem: "tasks",
			Name:      "failures_total",
			Help:      "最终失败的任务数量，按错误码区分。",
		},
		[]string{"task_type", "error_code"},
	)
)

// TaskMiddleware 记录 asynq 任务的耗时与结果。
func TaskMiddleware() asynq.MiddlewareFunc {
	return func(next asynq.Handler) asynq.Handler {
		return asynq.HandlerFunc(func(ctx context.Context, task *asynq.Task) error {
			taskType := task.Type()
			inProgress := taskInProgress.WithLabelValues(taskType)
			inProgress.Inc()
			defer inProgress.Dec()

			start := time.Now()
			err := next.ProcessTask(ctx, task)
			taskDuration.WithLabelValues(taskType).Observe(time.Since(start).Seconds())

			outcome := taskOutcome(ctx, err)
			taskTotal.WithLabelValues(taskType, outcome).Inc()
			if outcome == outcomeFailed {
				taskFailures.WithLabelValues(taskType, strconv.Itoa(errcode.Of(err))).Inc()
			}
			return err
		})
	}
}

func taskOutcome(ctx context.Context, err error) string {
	if err == nil {
		return outcomeSucceeded
	}
	if errors.Is(err, asynq.SkipRetry) {
		return outcomeFailed
	}
	retried, ok1 := asynq.GetRetryCount(ctx)
	limit, ok2 := asynq.GetMaxRetry(ctx)
	if ok1 && ok2 && retried >= limit {
		return outcomeFailed
	}
	return outcomeRetried
}
