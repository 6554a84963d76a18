package database

import (
	"gorm.io/datatypes"
	"gorm.io/gorm"
)

// ExportFormat 导出产物类型。
type ExportFormat string

const (
	// FormatPDF 由文档渲染器直接绘制的 PDF。
	FormatPDF ExportFormat = "pdf"
	// FormatPrint 无头浏览器打印打印页得到的 PDF。
	FormatPrint ExportFormat = "print"
	// FormatImage 打印页截图（JPEG）。
	FormatImage ExportFormat = "image"
)

// Valid 判断格式是否受支持。
func (f ExportFormat) Valid() bool {
	switch f {
	case FormatPDF, FormatPrint, FormatImage:
		return true
	}
	return false
}

// ExportStatus 导出任务状态。
type ExportStatus string

const (
	StatusPending    ExportStatus = "pending"
	StatusProcessing ExportStatus = "processing"
	StatusCompleted  ExportStatus = "completed"
	StatusFailed     ExportStatus = "failed"
)

// ExportJob 记录一次异步导出。Snapshot 保存提交时的简历快照，导出完成后不再读取。
type ExportJob struct {
	gorm.Model
	PublicID      string         `gorm:"uniqueIndex;size:36"`
	Title         string         `gorm:"size:255"`
	Format        ExportFormat   `gorm:"size:16"`
	Status        ExportStatus   `gorm:"size:32;index"`
	Snapshot      datatypes.JSON `gorm:"type:jsonb"`
	ObjectKey     string         `gorm:"size:512"`
	FileName      string         `gorm:"size:255"`
	ErrorCode     int
	ErrorMessage  string         `gorm:"size:1024"`
	MissingKeys   datatypes.JSON `gorm:"type:jsonb"`
	CorrelationID string         `gorm:"size:64"`
}
