package worker

// ExportNotifyMessage 导出结果通知（通过 Redis Pub/Sub 转发给等待中的客户端）。
// 注意：这里的字段名与前端解析保持一致。
type ExportNotifyMessage struct {
	Status        string   `json:"status"`
	JobID         string   `json:"job_id"`
	CorrelationID string   `json:"correlation_id"`
	ErrorCode     int      `json:"error_code"`
	ErrorMessage  string   `json:"error_message"`
	MissingKeys   []string `json:"missing_keys,omitempty"`
}
