package metrics

import (
	"context"
	"errors"
	"fmt"
	"net/http"
	"net/http/httptest"
	"strings"
	"testing"
	"time"

	"github.com/gin-gonic/gin"
	"github.com/hibiken/asynq"
	"github.com/prometheus/client_golang/prometheus/promhttp"

	"phResumeRender/internal/errcode"
)

func scrape(t *testing.T) string {
	t.Helper()
	w := httptest.NewRecorder()
	promhttp.Handler().ServeHTTP(w, httptest.NewRequest(http.MethodGet, "/metrics", nil))
	if w.Code != http.StatusOK {
		t.Fatalf("scrape status %d", w.Code)
	}
	return w.Body.String()
}

func TestRenderMetricsExposed(t *testing.T) {
	ObserveRender("metrics-test", time.Now(), nil)
	ObserveRender("metrics-test", time.Now(), errors.New("boom"))
	ObservePages("metrics-test", 2)
	AddMissingAssets(1)

	body := scrape(t)
	for _, want := range []string{
		`phresume_render_render_duration_seconds_count{output="metrics-test",result="ok"} 1`,
		`phresume_render_render_duration_seconds_count{output="metrics-test",result="error"} 1`,
		`phresume_render_render_document_pages_count{output="metrics-test"} 1`,
		`phresume_render_render_missing_assets_total`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape output missing %q", want)
		}
	}
}

func TestGinMiddlewareCountsRequests(t *testing.T) {
	gin.SetMode(gin.TestMode)
	router := gin.New()
	router.Use(GinMiddleware())
	router.GET("/health", func(c *gin.Context) { c.Status(http.StatusOK) })

	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/health", nil))
	router.ServeHTTP(httptest.NewRecorder(), httptest.NewRequest(http.MethodGet, "/nope/123", nil))
	body := scrape(t)
	for _, want := range []string{
		`phresume_render_http_requests_total{code="2xx",method="GET",route="/health"} 1`,
		`phresume_render_http_requests_total{code="4xx",method="GET",route="unmatched"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape output missing %q", want)
		}
	}
}

func TestTrackConnection(t *testing.T) {
	done := TrackConnection("metrics-test")
	if !strings.Contains(scrape(t), `phresume_render_ws_open_connections{kind="metrics-test"} 1`) {
		t.Fatal("open connection not tracked")
	}
	done()
	if !strings.Contains(scrape(t), `phresume_render_ws_open_connections{kind="metrics-test"} 0`) {
		t.Fatal("closed connection not released")
	}
}

func TestTaskMiddlewareOutcomes(t *testing.T) {
	handler := TaskMiddleware()(asynq.HandlerFunc(func(_ context.Context, task *asynq.Task) error {
		switch string(task.Payload()) {
		case "skip":
			return errcode.Wrap(errcode.InvalidRecord, fmt.Errorf("bad input: %w", asynq.SkipRetry))
		case "retry":
			return errors.New("flaky")
		}
		return nil
	}))

	for _, payload := range []string{"ok", "skip", "retry"} {
		_ = handler.ProcessTask(context.Background(), asynq.NewTask("metrics:test", []byte(payload)))
	}
	body := scrape(t)
	for _, want := range []string{
		`phresume_render_tasks_processed_total{outcome="succeeded",task_type="metrics:test"} 1`,
		`phresume_render_tasks_processed_total{outcome="failed",task_type="metrics:test"} 1`,
		`phresume_render_tasks_processed_total{outcome="retried",task_type="metrics:test"} 1`,
		`phresume_render_tasks_failures_total{error_code="4001",task_type="metrics:test"} 1`,
	} {
		if !strings.Contains(body, want) {
			t.Fatalf("scrape output missing %q", want)
		}
	}
}
