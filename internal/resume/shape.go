package resume

// Shape 描述个人信息布局配置的数据形态：新版 layout 字段或旧版 personalInfoInline 开关。
// 只有 CurrentLayout 与 LegacyLayout 两种实现。
type Shape interface {
	isShape()
}

// CurrentLayout 表示 layout.mode 已显式设置的新版数据。
type CurrentLayout struct {
	Mode        LayoutMode
	ItemsPerRow int
}

// LegacyLayout 表示缺少 layout.mode 的旧版数据，Inline 来自 personalInfoInline。
type LegacyLayout struct {
	Inline      bool
	ItemsPerRow int
}

func (CurrentLayout) isShape() {}
func (LegacyLayout) isShape()  {}

// Shape 按优先级识别布局数据形态：layout.mode 非空即为新版，否则回退到旧版开关。
// 对 nil 接收者返回空的 LegacyLayout。
func (s *PersonalInfoSection) Shape() Shape {
	if s == nil {
		return LegacyLayout{}
	}
	perRow := 0
	if s.Layout != nil {
		perRow = s.Layout.ItemsPerRow
		if s.Layout.Mode != "" {
			return CurrentLayout{Mode: s.Layout.Mode, ItemsPerRow: perRow}
		}
	}
	inline := s.PersonalInfoInline != nil && *s.PersonalInfoInline
	return LegacyLayout{Inline: inline, ItemsPerRow: perRow}
}

// LabelsVisible 返回是否展示个人信息标签，缺省为 true。
func (s *PersonalInfoSection) LabelsVisible() bool {
	if s == nil || s.ShowPersonalInfoLabels == nil {
		return true
	}
	return *s.ShowPersonalInfoLabels
}
