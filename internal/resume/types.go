package resume

import "encoding/json"

// Record 表示编辑器产出的一份完整简历数据，字段名与前端保持一致。
// 渲染管线只读取 Record，从不修改它。
type Record struct {
	Title               string               `json:"title" yaml:"title"`
	Avatar              string               `json:"avatar,omitempty" yaml:"avatar,omitempty"`
	CenterTitle         bool                 `json:"centerTitle,omitempty" yaml:"centerTitle,omitempty"`
	JobIntentionSection *JobIntentionSection `json:"jobIntentionSection,omitempty" yaml:"jobIntentionSection,omitempty"`
	PersonalInfoSection *PersonalInfoSection `json:"personalInfoSection,omitempty" yaml:"personalInfoSection,omitempty"`
	Modules             []Module             `json:"modules" yaml:"modules"`
}

// PersonalInfoSection 描述个人信息区块。
// Layout 为新版配置；PersonalInfoInline 是旧版数据遗留的布尔开关，仅在 Layout.Mode 缺省时生效。
type PersonalInfoSection struct {
	PersonalInfo           []PersonalInfoItem  `json:"personalInfo" yaml:"personalInfo"`
	ShowPersonalInfoLabels *bool               `json:"showPersonalInfoLabels,omitempty" yaml:"showPersonalInfoLabels,omitempty"`
	Layout                 *PersonalInfoLayout `json:"layout,omitempty" yaml:"layout,omitempty"`
	PersonalInfoInline     *bool               `json:"personalInfoInline,omitempty" yaml:"personalInfoInline,omitempty"`
}

// PersonalInfoLayout 是新版布局配置，Mode 为空表示未设置。
type PersonalInfoLayout struct {
	Mode        LayoutMode `json:"mode,omitempty" yaml:"mode,omitempty"`
	ItemsPerRow int        `json:"itemsPerRow,omitempty" yaml:"itemsPerRow,omitempty"`
}

// LayoutMode 个人信息排列方式。
type LayoutMode string

const (
	LayoutInline LayoutMode = "inline"
	LayoutGrid   LayoutMode = "grid"
)

// PersonalInfoItem 个人信息中的一项，例如电话、邮箱、主页。
type PersonalInfoItem struct {
	ID    string            `json:"id" yaml:"id"`
	Label string            `json:"label" yaml:"label"`
	Icon  string            `json:"icon,omitempty" yaml:"icon,omitempty"`
	Value PersonalInfoValue `json:"value" yaml:"value"`
	Order int               `json:"order,omitempty" yaml:"order,omitempty"`
}

// ValueType 区分纯文本与链接。
type ValueType string

const (
	ValueText ValueType = "text"
	ValueLink ValueType = "link"
)

// PersonalInfoValue 为带类型的值；链接类型时 Content 为 URL，Title 为可选的显示文本。
type PersonalInfoValue struct {
	Type    ValueType `json:"type" yaml:"type"`
	Content string    `json:"content" yaml:"content"`
	Title   string    `json:"title,omitempty" yaml:"title,omitempty"`
}

// JobIntentionSection 求职意向。
type JobIntentionSection struct {
	Enabled bool               `json:"enabled" yaml:"enabled"`
	Items   []JobIntentionItem `json:"items" yaml:"items"`
}

// JobIntentionType 求职意向项类型，salary 使用 SalaryRange。
type JobIntentionType string

const JobIntentionSalary JobIntentionType = "salary"

// JobIntentionItem 求职意向中的一项。
type JobIntentionItem struct {
	ID          string           `json:"id,omitempty" yaml:"id,omitempty"`
	Label       string           `json:"label" yaml:"label"`
	Value       string           `json:"value" yaml:"value"`
	Order       int              `json:"order" yaml:"order"`
	Type        JobIntentionType `json:"type,omitempty" yaml:"type,omitempty"`
	SalaryRange *SalaryRange     `json:"salaryRange,omitempty" yaml:"salaryRange,omitempty"`
}

// SalaryRange 期望薪资范围，上下限均可缺省。
type SalaryRange struct {
	Min *float64 `json:"min,omitempty" yaml:"min,omitempty"`
	Max *float64 `json:"max,omitempty" yaml:"max,omitempty"`
}

// Module 简历模块，例如教育经历、项目经历。
type Module struct {
	ID        string `json:"id" yaml:"id"`
	Title     string `json:"title" yaml:"title"`
	Icon      string `json:"icon,omitempty" yaml:"icon,omitempty"`
	Subtitle  string `json:"subtitle,omitempty" yaml:"subtitle,omitempty"`
	TimeRange string `json:"timeRange,omitempty" yaml:"timeRange,omitempty"`
	Content   string `json:"content,omitempty" yaml:"content,omitempty"`
	Order     int    `json:"order" yaml:"order"`
	Rows      []Row  `json:"rows" yaml:"rows"`
}

// Row 模块中的一行，Elements 按存储顺序占满 Columns 列。
type Row struct {
	ID       string    `json:"id" yaml:"id"`
	Columns  int       `json:"columns" yaml:"columns"`
	Order    int       `json:"order" yaml:"order"`
	Elements []Element `json:"elements" yaml:"elements"`
}

// Element 行中的单元格，Content 为富文本原始数据，交由富文本渲染器解释。
type Element struct {
	ID      string          `json:"id" yaml:"id"`
	Content json.RawMessage `json:"content,omitempty" yaml:"content,omitempty"`
}
