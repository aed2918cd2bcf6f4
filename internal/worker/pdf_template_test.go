package worker

import (
	"strings"
	"testing"

	"craftcv/internal/editor"
	"craftcv/internal/resume"
	"craftcv/internal/sections"
)

func samplePrintData() PrintData {
	return PrintData{
		Title: "backend engineer resume",
		Design: editor.Design{
			LayoutType:   "two-column",
			PrimaryColor: "#1f2a44",
			AccentColor:  "#3388ff",
			FontFamily:   "Inter",
		},
		Content: resume.Content{
			Basics: resume.Basics{
				Name:    "Ada Example",
				Label:   "Backend Engineer",
				Email:   "ada@example.com",
				Summary: "Builds data plumbing.",
			},
			Work: []resume.Work{
				{Company: "Acme", Position: "Engineer", StartDate: "2020-01", Highlights: []string{"Shipped <things>"}},
			},
			Skills: []resume.Skill{{Name: "Go", Level: "Expert"}},
			CustomSections: []resume.CustomSection{
				{ID: "custom:certs", Title: "Certifications", Items: []resume.CustomItem{{Title: "CKA", Date: "2023"}}},
			},
		},
		Sections: []sections.ResolvedSection{
			{ID: "header", Title: "Personal Details", Visible: true},
			{ID: "summary", Title: "Summary", Visible: true},
			{ID: "work", Title: "Experience", Visible: true},
			{ID: "skills", Title: "Skills", Visible: true},
			{ID: "custom:certs", Title: "Certifications", Visible: true, Custom: true},
		},
		Columns: []sections.ColumnAssignment{
			{Column: 0, Width: 33, SectionIDs: []string{"skills"}},
			{Column: 1, Width: 67, SectionIDs: []string{"header", "summary", "work", "custom:certs"}},
		},
		PhotoDataURI: "data:image/png;base64,AAAA",
	}
}

func TestRenderResumeHTML(t *testing.T) {
	html, err := renderResumeHTML(samplePrintData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	for _, want := range []string{
		"Ada Example",
		"Backend Engineer",
		"Experience",          // 解析后的标题优先于内置默认
		"Certifications",      // 自建分区
		"CKA",
		"width: 33%",
		"width: 67%",
		"data:image/png;base64,AAAA", // 头像 data URI 不能被转义器吞掉
	} {
		if !strings.Contains(html, want) {
			t.Errorf("rendered html missing %q", want)
		}
	}

	// 用户内容必须被转义。
	if strings.Contains(html, "Shipped <things>") {
		t.Error("highlight content not escaped")
	}
	if !strings.Contains(html, "Shipped &lt;things&gt;") {
		t.Error("expected escaped highlight content")
	}
}

func TestRenderResumeHTML_ColumnOrderFollowsAssignment(t *testing.T) {
	html, err := renderResumeHTML(samplePrintData())
	if err != nil {
		t.Fatalf("render: %v", err)
	}

	skillsAt := strings.Index(html, "Skills")
	headerAt := strings.Index(html, "Ada Example")
	if skillsAt < 0 || headerAt < 0 {
		t.Fatal("expected both columns rendered")
	}
	if skillsAt > headerAt {
		t.Error("first column content should precede second column content")
	}
}

func TestBuildRenderModel_DefaultsAndCustomLookup(t *testing.T) {
	data := samplePrintData()
	data.Design = editor.Design{}

	model := buildRenderModel(data)
	if model.FontFamily == "" || model.PrimaryColor == "" || model.AccentColor == "" {
		t.Fatalf("expected style defaults, got %+v", model)
	}

	var custom *sectionView
	for i := range model.Columns {
		for j := range model.Columns[i].Sections {
			if model.Columns[i].Sections[j].Kind == "custom" {
				custom = &model.Columns[i].Sections[j]
			}
		}
	}
	if custom == nil || custom.Custom == nil {
		t.Fatal("custom section data not wired into view")
	}
	if custom.Custom.Items[0].Title != "CKA" {
		t.Fatalf("unexpected custom item: %+v", custom.Custom.Items[0])
	}
}
