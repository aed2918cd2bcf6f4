package worker

import (
	"bytes"
	"fmt"
	"html/template"
	"strings"

	"craftcv/internal/resume"
	"craftcv/internal/sections"
)

// sectionView 是模板渲染用的分区视图：标题已解析，数据按类型取自 Content。
type sectionView struct {
	ID    string
	Kind  string
	Title string

	Basics *resume.Basics
	// data URI 由打印接口内联生成，直接标记为可信 URL。
	PhotoDataURI template.URL
	Summary      string

	Work         []resume.Work
	Education    []resume.Education
	Skills       []resume.Skill
	Languages    []resume.Language
	Projects     []resume.Project
	Awards       []resume.Award
	Volunteer    []resume.Volunteer
	References   []resume.Reference
	Publications []resume.Publication
	Custom       *resume.CustomSection
}

type columnView struct {
	WidthPercent int
	Sections     []sectionView
}

type renderModel struct {
	Title        string
	FontFamily   string
	PrimaryColor string
	AccentColor  string
	Columns      []columnView
}

// buildRenderModel 把打印数据展开为模板视图。
// 栏位与顺序完全沿用 API 侧的分配结果，标题取解析后的值。
func buildRenderModel(data PrintData) renderModel {
	titles := make(map[string]string, len(data.Sections))
	for _, section := range data.Sections {
		titles[section.ID] = section.Title
	}

	customByID := make(map[string]*resume.CustomSection, len(data.Content.CustomSections))
	for i := range data.Content.CustomSections {
		cs := &data.Content.CustomSections[i]
		customByID[sections.CustomSectionID(cs.ID)] = cs
	}

	model := renderModel{
		Title:        data.Title,
		FontFamily:   data.Design.FontFamily,
		PrimaryColor: data.Design.PrimaryColor,
		AccentColor:  data.Design.AccentColor,
	}
	if model.FontFamily == "" {
		model.FontFamily = "Helvetica"
	}
	if model.PrimaryColor == "" {
		model.PrimaryColor = "#1f2933"
	}
	if model.AccentColor == "" {
		model.AccentColor = "#3388ff"
	}

	for _, col := range data.Columns {
		view := columnView{WidthPercent: col.Width}
		if view.WidthPercent <= 0 || view.WidthPercent > 100 {
			view.WidthPercent = 100 / max(len(data.Columns), 1)
		}
		for _, id := range col.SectionIDs {
			section := sectionView{
				ID:    id,
				Kind:  sectionKind(id),
				Title: titles[id],
			}
			fillSectionData(&section, data, customByID)
			view.Sections = append(view.Sections, section)
		}
		model.Columns = append(model.Columns, view)
	}
	return model
}

func sectionKind(id string) string {
	if sections.IsCustom(id) {
		return "custom"
	}
	return id
}

func fillSectionData(view *sectionView, data PrintData, customByID map[string]*resume.CustomSection) {
	content := data.Content
	switch view.Kind {
	case sections.KindHeader:
		view.Basics = &content.Basics
		view.PhotoDataURI = template.URL(data.PhotoDataURI)
	case sections.KindSummary:
		view.Summary = content.Basics.Summary
	case sections.KindWork:
		view.Work = content.Work
	case sections.KindEducation:
		view.Education = content.Education
	case sections.KindSkills:
		view.Skills = content.Skills
	case sections.KindLanguages:
		view.Languages = content.Languages
	case sections.KindProjects:
		view.Projects = content.Projects
	case sections.KindAwards:
		view.Awards = content.Awards
	case sections.KindVolunteer:
		view.Volunteer = content.Volunteer
	case sections.KindReferences:
		view.References = content.References
	case sections.KindPublications:
		view.Publications = content.Publications
	case "custom":
		view.Custom = customByID[view.ID]
	}
}

// renderResumeHTML 把打印数据渲染成独立的 HTML 文档，供无头浏览器导出 PDF。
func renderResumeHTML(data PrintData) (string, error) {
	model := buildRenderModel(data)
	var buf bytes.Buffer
	if err := pdfTemplate.Execute(&buf, model); err != nil {
		return "", fmt.Errorf("execute pdf template: %w", err)
	}
	return buf.String(), nil
}

func joinDates(start, end string) string {
	start = strings.TrimSpace(start)
	end = strings.TrimSpace(end)
	switch {
	case start == "" && end == "":
		return ""
	case end == "":
		return start + " – Present"
	case start == "":
		return end
	default:
		return start + " – " + end
	}
}

var pdfTemplate = template.Must(template.New("resume").Funcs(template.FuncMap{
	"dates": joinDates,
}).Parse(pdfTemplateString))

// pdfTemplateString 是 PDF 渲染的 HTML 模板。
// 版式为纵向分栏，栏内分区顺序由打印数据决定。
const pdfTemplateString = `<!DOCTYPE html>
<html>
<head>
<meta charset="UTF-8">
<style>
  @page { size: A4; margin: 0; }
  body {
    margin: 0;
    padding: 0;
    font-family: '{{.FontFamily}}', sans-serif;
    font-size: 10pt;
    color: {{.PrimaryColor}};
  }
  .page {
    width: 794px;       /* A4 @ 96 DPI */
    min-height: 1122px;
    box-sizing: border-box;
    padding: 36px;
    display: flex;
    gap: 24px;
  }
  .column { box-sizing: border-box; }
  .section { margin-bottom: 18px; }
  .section-title {
    font-size: 12pt;
    font-weight: bold;
    color: {{.AccentColor}};
    border-bottom: 1px solid {{.AccentColor}};
    margin-bottom: 6px;
    text-transform: uppercase;
    letter-spacing: 0.5px;
  }
  .entry { margin-bottom: 8px; }
  .entry-head { display: flex; justify-content: space-between; }
  .entry-primary { font-weight: bold; }
  .entry-dates { color: #6b7280; font-size: 9pt; white-space: nowrap; }
  .entry-secondary { font-style: italic; font-size: 9.5pt; }
  .entry-summary { margin-top: 2px; }
  ul.highlights { margin: 2px 0 0; padding-left: 16px; }
  .header-name { font-size: 20pt; font-weight: bold; }
  .header-label { font-size: 12pt; color: {{.AccentColor}}; margin-top: 2px; }
  .header-contacts { margin-top: 6px; font-size: 9pt; color: #6b7280; }
  .header-photo { float: right; width: 84px; height: 84px; object-fit: cover; border-radius: 4px; margin-left: 12px; }
  .tag-row span { display: inline-block; margin-right: 8px; }
</style>
</head>
<body>
<div class="page">
  {{range .Columns}}
  <div class="column" style="width: {{.WidthPercent}}%;">
    {{range .Sections}}
    <div class="section">
      {{if eq .Kind "header"}}
        {{if .PhotoDataURI}}<img class="header-photo" src="{{.PhotoDataURI}}" />{{end}}
        <div class="header-name">{{.Basics.Name}}</div>
        {{if .Basics.Label}}<div class="header-label">{{.Basics.Label}}</div>{{end}}
        <div class="header-contacts">
          {{if .Basics.Email}}<span>{{.Basics.Email}}</span>{{end}}
          {{if .Basics.Phone}}<span> · {{.Basics.Phone}}</span>{{end}}
          {{if .Basics.Website}}<span> · {{.Basics.Website}}</span>{{end}}
          {{if .Basics.Location}}<span> · {{.Basics.Location}}</span>{{end}}
        </div>
      {{else}}
        {{if .Title}}<div class="section-title">{{.Title}}</div>{{end}}
        {{if eq .Kind "summary"}}
          <div class="entry-summary">{{.Summary}}</div>
        {{else if eq .Kind "work"}}
          {{range .Work}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Position}}</span>
              <span class="entry-dates">{{dates .StartDate .EndDate}}</span>
            </div>
            <div class="entry-secondary">{{.Company}}{{if .Location}} · {{.Location}}{{end}}</div>
            {{if .Summary}}<div class="entry-summary">{{.Summary}}</div>{{end}}
            {{if .Highlights}}<ul class="highlights">{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "education"}}
          {{range .Education}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Institution}}</span>
              <span class="entry-dates">{{dates .StartDate .EndDate}}</span>
            </div>
            <div class="entry-secondary">{{.StudyType}}{{if .Area}} · {{.Area}}{{end}}{{if .Score}} · {{.Score}}{{end}}</div>
          </div>
          {{end}}
        {{else if eq .Kind "skills"}}
          {{range .Skills}}
          <div class="entry">
            <span class="entry-primary">{{.Name}}</span>{{if .Level}} <span class="entry-dates">{{.Level}}</span>{{end}}
            {{if .Keywords}}<div class="tag-row">{{range .Keywords}}<span>{{.}}</span>{{end}}</div>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "languages"}}
          {{range .Languages}}
          <div class="entry"><span class="entry-primary">{{.Language}}</span>{{if .Fluency}} <span class="entry-dates">{{.Fluency}}</span>{{end}}</div>
          {{end}}
        {{else if eq .Kind "projects"}}
          {{range .Projects}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Name}}</span>
              <span class="entry-dates">{{dates .StartDate .EndDate}}</span>
            </div>
            {{if .Description}}<div class="entry-summary">{{.Description}}</div>{{end}}
            {{if .URL}}<div class="entry-dates">{{.URL}}</div>{{end}}
            {{if .Highlights}}<ul class="highlights">{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "awards"}}
          {{range .Awards}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Title}}</span>
              <span class="entry-dates">{{.Date}}</span>
            </div>
            {{if .Awarder}}<div class="entry-secondary">{{.Awarder}}</div>{{end}}
            {{if .Summary}}<div class="entry-summary">{{.Summary}}</div>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "volunteer"}}
          {{range .Volunteer}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Position}}</span>
              <span class="entry-dates">{{dates .StartDate .EndDate}}</span>
            </div>
            <div class="entry-secondary">{{.Organization}}</div>
            {{if .Summary}}<div class="entry-summary">{{.Summary}}</div>{{end}}
            {{if .Highlights}}<ul class="highlights">{{range .Highlights}}<li>{{.}}</li>{{end}}</ul>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "references"}}
          {{range .References}}
          <div class="entry">
            <span class="entry-primary">{{.Name}}</span>
            {{if .Reference}}<div class="entry-summary">{{.Reference}}</div>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "publications"}}
          {{range .Publications}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Name}}</span>
              <span class="entry-dates">{{.ReleaseDate}}</span>
            </div>
            {{if .Publisher}}<div class="entry-secondary">{{.Publisher}}</div>{{end}}
            {{if .Summary}}<div class="entry-summary">{{.Summary}}</div>{{end}}
          </div>
          {{end}}
        {{else if eq .Kind "custom"}}
          {{if .Custom}}
          {{range .Custom.Items}}
          <div class="entry">
            <div class="entry-head">
              <span class="entry-primary">{{.Title}}</span>
              <span class="entry-dates">{{.Date}}</span>
            </div>
            {{if .Subtitle}}<div class="entry-secondary">{{.Subtitle}}</div>{{end}}
            {{if .Description}}<div class="entry-summary">{{.Description}}</div>{{end}}
          </div>
          {{end}}
          {{end}}
        {{end}}
      {{end}}
    </div>
    {{end}}
  </div>
  {{end}}
</div>
</body>
</html>
`
