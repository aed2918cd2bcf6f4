package catalog

// Blueprint 描述某一行业/职类期望的简历形态：
// 默认包含哪些分区、默认顺序，以及蓝图层面的标题/可见性覆盖。
// 蓝图是只读目录数据，核心逻辑从不修改它。
type Blueprint struct {
	ID               string                     `json:"id"`
	Label            string                     `json:"label"`
	DefaultSections  []string                   `json:"default_sections"`
	SectionOverrides map[string]SectionOverride `json:"section_overrides,omitempty"`
}

// SectionOverride 是蓝图对单个分区的展示覆盖。
type SectionOverride struct {
	Title   string `json:"title,omitempty"`
	Visible *bool  `json:"visible,omitempty"`
}

// 布局类型。
const (
	LayoutSingleColumn = "single-column"
	LayoutTwoColumn    = "two-column"
)

// Template 是视觉模板：声明分区默认落在哪个物理栏位，以及配色与字体。
type Template struct {
	ID     string `json:"id"`
	Label  string `json:"label"`
	Layout Layout `json:"layout"`
	Styles Styles `json:"styles"`
}

// Layout 描述模板的栏位结构。
type Layout struct {
	Type    string   `json:"type"` // single-column | two-column
	Columns []Column `json:"columns"`
}

// Column 声明一个物理栏位：宽度百分比、默认放置的分区，以及是否为
// 兜底栏（吸收模板未声明的孤儿分区）。未显式标记时，最后一栏兜底。
type Column struct {
	Width    int      `json:"width"`
	Sections []string `json:"sections"`
	Overflow bool     `json:"overflow,omitempty"`
}

// Styles 描述模板的全局样式。
type Styles struct {
	PrimaryColor string `json:"primary_color"`
	AccentColor  string `json:"accent_color"`
	FontFamily   string `json:"font_family"`
}

// SectionIDs 按栏位声明顺序展开模板涉及的全部分区 ID（去重）。
// 切换模板时会用它整体替换用户的分区顺序。
func (t Template) SectionIDs() []string {
	seen := make(map[string]struct{})
	ids := make([]string, 0, 8)
	for _, col := range t.Layout.Columns {
		for _, id := range col.Sections {
			if _, ok := seen[id]; ok {
				continue
			}
			seen[id] = struct{}{}
			ids = append(ids, id)
		}
	}
	return ids
}

// OverflowColumn 返回兜底栏的下标。
// 没有任何栏位显式标记 Overflow 时退回最后一栏。
func (l Layout) OverflowColumn() int {
	for i, col := range l.Columns {
		if col.Overflow {
			return i
		}
	}
	return len(l.Columns) - 1
}
