package catalog

// 目录不可用（表为空、查询失败）时使用的内置兜底数据。
// 前端在离线/冷启动场景也依赖同一组兜底条目，改动时需同步。

// FallbackBlueprintID 是未选择蓝图时的默认蓝图。
const FallbackBlueprintID = "standard"

// FallbackBlueprint 返回标准蓝图。
func FallbackBlueprint() Blueprint {
	return Blueprint{
		ID:    FallbackBlueprintID,
		Label: "Standard",
		DefaultSections: []string{
			"header", "summary", "work", "education", "skills", "projects",
		},
	}
}

// FallbackBlueprints 返回内置蓝图目录。
func FallbackBlueprints() []Blueprint {
	visible := func(b bool) *bool { return &b }
	return []Blueprint{
		FallbackBlueprint(),
		{
			ID:    "software-engineering",
			Label: "Software Engineering",
			DefaultSections: []string{
				"header", "summary", "skills", "work", "projects", "education",
			},
			SectionOverrides: map[string]SectionOverride{
				"skills":   {Title: "Technical Skills"},
				"projects": {Title: "Selected Projects"},
			},
		},
		{
			ID:    "academic",
			Label: "Academic & Research",
			DefaultSections: []string{
				"header", "summary", "education", "publications", "work", "awards", "references",
			},
			SectionOverrides: map[string]SectionOverride{
				"work":       {Title: "Research Experience"},
				"references": {Visible: visible(false)},
			},
		},
	}
}

// FallbackTemplates 返回内置模板目录。
func FallbackTemplates() []Template {
	return []Template{
		{
			ID:    "modern-professional",
			Label: "Modern Professional",
			Layout: Layout{
				Type: LayoutTwoColumn,
				Columns: []Column{
					{Width: 33, Sections: []string{"skills", "languages", "awards"}},
					{Width: 67, Sections: []string{"header", "summary", "work", "education", "projects"}, Overflow: true},
				},
			},
			Styles: Styles{
				PrimaryColor: "#1f2a44",
				AccentColor:  "#3388ff",
				FontFamily:   "Inter",
			},
		},
		{
			ID:    "classic-simple",
			Label: "Classic Simple",
			Layout: Layout{
				Type: LayoutSingleColumn,
				Columns: []Column{
					{Width: 100, Sections: []string{"header", "summary", "work", "education", "skills", "projects"}, Overflow: true},
				},
			},
			Styles: Styles{
				PrimaryColor: "#222222",
				AccentColor:  "#555555",
				FontFamily:   "Georgia",
			},
		},
		{
			ID:    "creative-bold",
			Label: "Creative Bold",
			Layout: Layout{
				Type: LayoutTwoColumn,
				Columns: []Column{
					{Width: 40, Sections: []string{"header", "skills", "languages"}},
					{Width: 60, Sections: []string{"summary", "work", "projects", "education"}, Overflow: true},
				},
			},
			Styles: Styles{
				PrimaryColor: "#7c3aed",
				AccentColor:  "#f59e0b",
				FontFamily:   "Poppins",
			},
		},
	}
}
