package tasks

import (
	"encoding/json"

	"github.com/hibiken/asynq"
)

// 任务类型常量，确保队列生产者与消费者一致。
const (
	TypeResumeExport = "resume:export"
)

// ExportPayload 描述导出所需的最小信息，简历快照保存在数据库中。
type ExportPayload struct {
	JobID         uint   `json:"job_id"`
	CorrelationID string `json:"correlation_id"`
}

// NewExportTask 构造一个新的简历导出任务。
func NewExportTask(id uint, correlationID string) (*asynq.Task, error) {
	payload, err := json.Marshal(ExportPayload{
		JobID:         id,
		CorrelationID: correlationID,
	})
	if err != nil {
		return nil, err
	}
	return asynq.NewTask(TypeResumeExport, payload), nil
}

// NotifyTopic 导出结果通知的发布频道。
func NotifyTopic(publicID string) string {
	return "export_notify:" + publicID
}
