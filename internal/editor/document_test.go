package editor

import (
	"reflect"
	"strings"
	"testing"

	"craftcv/internal/catalog"
	"craftcv/internal/database"
	"craftcv/internal/sections"
)

func TestSetTemplate_ReplacesOrderWholesale(t *testing.T) {
	doc := Document{
		Config: sections.Config{Order: []string{"header", "summary", "work"}},
	}
	tpl := catalog.Template{
		ID: "minimal",
		Layout: catalog.Layout{
			Type: catalog.LayoutSingleColumn,
			Columns: []catalog.Column{
				{Width: 100, Sections: []string{"header", "education"}},
			},
		},
	}

	got := doc.SetTemplate(tpl)

	// 破坏性替换：旧顺序整体丢弃，包括模板不认识的 summary/work。
	if want := []string{"header", "education"}; !reflect.DeepEqual(got.Config.Order, want) {
		t.Fatalf("order = %v, want %v", got.Config.Order, want)
	}
	if got.TemplateID != "minimal" {
		t.Fatalf("template id = %q, want minimal", got.TemplateID)
	}
}

func TestSetTemplate_TakesDesignFromTemplate(t *testing.T) {
	tpl := catalog.FallbackTemplates()[0]
	got := Document{}.SetTemplate(tpl)

	if got.Design.LayoutType != tpl.Layout.Type {
		t.Fatalf("layout type = %q, want %q", got.Design.LayoutType, tpl.Layout.Type)
	}
	if got.Design.AccentColor != tpl.Styles.AccentColor || got.Design.FontFamily != tpl.Styles.FontFamily {
		t.Fatalf("design = %+v, want styles from %+v", got.Design, tpl.Styles)
	}
}

func TestSetTemplate_KeepsHiddenAndTitles(t *testing.T) {
	doc := Document{
		Config: sections.Config{
			Order:  []string{"header", "work"},
			Hidden: []string{"summary"},
			Titles: map[string]string{"work": "Experience"},
		},
	}

	got := doc.SetTemplate(catalog.FallbackTemplates()[1])

	if !got.Config.IsHidden("summary") {
		t.Fatal("template switch must not touch hidden set")
	}
	if got.Config.Titles["work"] != "Experience" {
		t.Fatal("template switch must not touch title overrides")
	}
}

func TestAddCustomSection(t *testing.T) {
	doc, id := NewDocument().AddCustomSection("Hobbies", "list")

	if !strings.HasPrefix(id, sections.CustomPrefix) {
		t.Fatalf("custom section id %q lacks namespace prefix", id)
	}
	if len(doc.Content.CustomSections) != 1 || doc.Content.CustomSections[0].ID != id {
		t.Fatalf("custom section not stored in content: %+v", doc.Content.CustomSections)
	}
	found := false
	for _, orderID := range doc.Config.Order {
		if orderID == id {
			found = true
		}
	}
	if !found {
		t.Fatalf("custom section %q missing from order %v", id, doc.Config.Order)
	}
}

func TestNewDocument_Defaults(t *testing.T) {
	doc := NewDocument()

	if doc.BlueprintID != catalog.FallbackBlueprintID {
		t.Fatalf("blueprint id = %q, want %q", doc.BlueprintID, catalog.FallbackBlueprintID)
	}
	fallback := catalog.FallbackTemplates()[0]
	if doc.TemplateID != fallback.ID {
		t.Fatalf("template id = %q, want %q", doc.TemplateID, fallback.ID)
	}
	if !reflect.DeepEqual(doc.Config.Order, fallback.SectionIDs()) {
		t.Fatalf("order = %v, want template sections %v", doc.Config.Order, fallback.SectionIDs())
	}
}

func TestLoadStoreRoundTrip(t *testing.T) {
	doc := NewDocument()
	doc = doc.RenameSection("work", "Experience")
	doc = doc.RemoveSection("summary")
	doc, customID := doc.AddCustomSection("Hobbies", "list")

	var rec database.Resume
	if err := doc.Store(&rec); err != nil {
		t.Fatalf("store document: %v", err)
	}

	loaded, err := Load(rec)
	if err != nil {
		t.Fatalf("load document: %v", err)
	}

	if !reflect.DeepEqual(loaded.Config, doc.Config) {
		t.Fatalf("config round trip mismatch:\n got %+v\nwant %+v", loaded.Config, doc.Config)
	}
	if loaded.Design != doc.Design {
		t.Fatalf("design round trip mismatch: got %+v want %+v", loaded.Design, doc.Design)
	}
	if loaded.BlueprintID != doc.BlueprintID || loaded.TemplateID != doc.TemplateID {
		t.Fatal("catalog ids lost in round trip")
	}
	if len(loaded.Content.CustomSections) != 1 || loaded.Content.CustomSections[0].ID != customID {
		t.Fatalf("custom sections lost: %+v", loaded.Content.CustomSections)
	}
}

func TestLoad_EmptyRowYieldsZeroDocument(t *testing.T) {
	loaded, err := Load(database.Resume{})
	if err != nil {
		t.Fatalf("load empty row: %v", err)
	}
	if len(loaded.Config.Order) != 0 || len(loaded.Content.Work) != 0 {
		t.Fatalf("empty row should load as zero document, got %+v", loaded)
	}
}
