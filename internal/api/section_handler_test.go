package api

import (
	"bytes"
	"encoding/json"
	"log/slog"
	"net/http"
	"net/http/httptest"
	"strconv"
	"strings"
	"testing"

	"github.com/gin-gonic/gin"
	"gorm.io/driver/sqlite"
	"gorm.io/gorm"

	"craftcv/internal/catalog"
	"craftcv/internal/database"
	"craftcv/internal/editor"
	"craftcv/internal/sections"
)

func newSectionTestEnv(t *testing.T) (*SectionHandler, *gorm.DB) {
	t.Helper()
	gin.SetMode(gin.TestMode)

	db, err := gorm.Open(sqlite.Open("file::memory:"), &gorm.Config{})
	if err != nil {
		t.Fatalf("open sqlite: %v", err)
	}
	if err := db.AutoMigrate(&database.Resume{}, &database.BlueprintRecord{}, &database.TemplateRecord{}); err != nil {
		t.Fatalf("migrate: %v", err)
	}

	service := catalog.NewService(db, slog.Default())
	return NewSectionHandler(db, service), db
}

func idParam(id uint) string {
	return strconv.FormatUint(uint64(id), 10)
}

func seedResume(t *testing.T, db *gorm.DB, userID uint) database.Resume {
	t.Helper()
	record := database.Resume{Title: "test resume", UserID: userID}
	if err := editor.NewDocument().Store(&record); err != nil {
		t.Fatalf("store document: %v", err)
	}
	if err := db.Create(&record).Error; err != nil {
		t.Fatalf("create resume: %v", err)
	}
	return record
}

type sectionsViewResponse struct {
	Sections  []sections.ResolvedSection  `json:"sections"`
	Columns   []sections.ColumnAssignment `json:"columns"`
	SectionID string                      `json:"section_id"`
}

func invokeSectionHandler(t *testing.T, handler func(*gin.Context), userID uint, resumeID string, body any) (*httptest.ResponseRecorder, sectionsViewResponse) {
	t.Helper()

	var reader *bytes.Buffer
	if body != nil {
		raw, err := json.Marshal(body)
		if err != nil {
			t.Fatalf("marshal body: %v", err)
		}
		reader = bytes.NewBuffer(raw)
	} else {
		reader = bytes.NewBuffer(nil)
	}

	req := httptest.NewRequest(http.MethodPost, "/v1/resumes/"+resumeID+"/sections", reader)
	req.Header.Set("Content-Type", "application/json")

	w := httptest.NewRecorder()
	c, _ := gin.CreateTestContext(w)
	c.Request = req
	c.Params = gin.Params{{Key: "id", Value: resumeID}}
	c.Set("userID", userID)

	handler(c)

	var view sectionsViewResponse
	if w.Code == http.StatusOK {
		if err := json.Unmarshal(w.Body.Bytes(), &view); err != nil {
			t.Fatalf("decode response: %v body=%s", err, w.Body.String())
		}
	}
	return w, view
}

func sectionByID(view sectionsViewResponse, id string) (sections.ResolvedSection, bool) {
	for _, section := range view.Sections {
		if section.ID == id {
			return section, true
		}
	}
	return sections.ResolvedSection{}, false
}

func TestGetSections_DefaultDocument(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	w, view := invokeSectionHandler(t, h.GetSections, 1, idParam(record.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if len(view.Sections) == 0 {
		t.Fatal("expected resolved sections")
	}
	if _, ok := sectionByID(view, sections.KindHeader); !ok {
		t.Fatal("expected header section in default document")
	}
	if len(view.Columns) != 2 {
		t.Fatalf("default template should produce 2 columns, got %d", len(view.Columns))
	}
}

func TestGetSections_UnknownTemplateFallsBackToDefaultLayout(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)
	if err := db.Model(&record).Update("template_id", "retired-template").Error; err != nil {
		t.Fatalf("update template id: %v", err)
	}

	w, view := invokeSectionHandler(t, h.GetSections, 1, idParam(record.ID), nil)
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	// 模板下架后编辑视图要与导出一致地回落到默认模板，而不是返回空栏位。
	if len(view.Columns) != 2 {
		t.Fatalf("expected fallback template's 2 columns, got %d", len(view.Columns))
	}
}

func TestGetSections_OtherUserGets404(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	w, _ := invokeSectionHandler(t, h.GetSections, 2, idParam(record.ID), nil)
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestRemoveSection_HidesButKeepsEntry(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	w, view := invokeSectionHandler(t, h.RemoveSection, 1, idParam(record.ID),
		sectionIDRequest{SectionID: sections.KindEducation})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}

	section, ok := sectionByID(view, sections.KindEducation)
	if !ok {
		t.Fatal("removed section should stay listed for recovery")
	}
	if section.Visible {
		t.Fatal("removed section should be hidden")
	}
	for _, col := range view.Columns {
		for _, id := range col.SectionIDs {
			if id == sections.KindEducation {
				t.Fatal("hidden section must not appear in columns")
			}
		}
	}

	// 再次 AddSection 恢复。
	_, view = invokeSectionHandler(t, h.AddSection, 1, idParam(record.ID),
		sectionIDRequest{SectionID: sections.KindEducation})
	section, _ = sectionByID(view, sections.KindEducation)
	if !section.Visible {
		t.Fatal("re-added section should be visible")
	}
}

func TestAddCustomSection_AssignsNamespacedID(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	w, view := invokeSectionHandler(t, h.AddCustomSection, 1, idParam(record.ID),
		addCustomSectionRequest{Title: "Certifications", Type: "list"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if !strings.HasPrefix(view.SectionID, sections.CustomPrefix) {
		t.Fatalf("expected namespaced id, got %q", view.SectionID)
	}

	section, ok := sectionByID(view, view.SectionID)
	if !ok {
		t.Fatal("custom section missing from resolved view")
	}
	if section.Title != "Certifications" || !section.Custom || !section.Visible {
		t.Fatalf("unexpected custom section: %+v", section)
	}

	// 自建分区应被兜底栏吸收。
	found := false
	for _, col := range view.Columns {
		for _, id := range col.SectionIDs {
			if id == view.SectionID {
				found = true
			}
		}
	}
	if !found {
		t.Fatal("custom section should land in a column")
	}
}

func TestSetTemplate_ReplacesOrderWholesale(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	// 先自定义一个顺序，随后切模板应整体覆盖。
	_, _ = invokeSectionHandler(t, h.ReorderSections, 1, idParam(record.ID),
		reorderSectionsRequest{Order: []string{sections.KindSkills, sections.KindHeader}})

	w, view := invokeSectionHandler(t, h.SetTemplate, 1, idParam(record.ID),
		setTemplateRequest{TemplateID: "classic-simple"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	if len(view.Columns) != 1 {
		t.Fatalf("classic-simple is single column, got %d", len(view.Columns))
	}

	var reloaded database.Resume
	if err := db.First(&reloaded, record.ID).Error; err != nil {
		t.Fatalf("reload resume: %v", err)
	}
	doc, err := editor.Load(reloaded)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}
	if doc.TemplateID != "classic-simple" {
		t.Fatalf("template id not persisted: %q", doc.TemplateID)
	}
	if len(doc.Config.Order) == 0 || doc.Config.Order[0] == sections.KindSkills {
		t.Fatalf("order should be reset by template, got %v", doc.Config.Order)
	}
}

func TestSetTemplate_UnknownTemplate404(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	w, _ := invokeSectionHandler(t, h.SetTemplate, 1, idParam(record.ID),
		setTemplateRequest{TemplateID: "does-not-exist"})
	if w.Code != http.StatusNotFound {
		t.Fatalf("expected 404 got %d", w.Code)
	}
}

func TestRenameSection_EmptyTitleIsValidOverride(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	empty := ""
	w, view := invokeSectionHandler(t, h.RenameSection, 1, idParam(record.ID),
		renameSectionRequest{SectionID: sections.KindWork, Title: &empty})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	section, _ := sectionByID(view, sections.KindWork)
	if section.Title != "" {
		t.Fatalf("empty title override should win, got %q", section.Title)
	}
}

func TestSetBlueprint_KeepsUserOverrides(t *testing.T) {
	h, db := newSectionTestEnv(t)
	record := seedResume(t, db, 1)

	custom := "My Work"
	_, _ = invokeSectionHandler(t, h.RenameSection, 1, idParam(record.ID),
		renameSectionRequest{SectionID: sections.KindWork, Title: &custom})

	w, view := invokeSectionHandler(t, h.SetBlueprint, 1, idParam(record.ID),
		setBlueprintRequest{BlueprintID: "academic"})
	if w.Code != http.StatusOK {
		t.Fatalf("expected 200 got %d body=%s", w.Code, w.Body.String())
	}
	section, _ := sectionByID(view, sections.KindWork)
	if section.Title != "My Work" {
		t.Fatalf("blueprint switch must keep user title, got %q", section.Title)
	}
}
