package sections

import (
	"reflect"
	"testing"

	"craftcv/internal/catalog"
	"craftcv/internal/resume"
)

func testBlueprint() *catalog.Blueprint {
	return &catalog.Blueprint{
		ID:              "test",
		Label:           "Test",
		DefaultSections: []string{"header", "summary", "work"},
	}
}

func resolvedIDs(resolved []ResolvedSection) []string {
	ids := make([]string, 0, len(resolved))
	for _, s := range resolved {
		ids = append(ids, s.ID)
	}
	return ids
}

func findSection(t *testing.T, resolved []ResolvedSection, id string) ResolvedSection {
	t.Helper()
	for _, s := range resolved {
		if s.ID == id {
			return s
		}
	}
	t.Fatalf("section %q not resolved, got %v", id, resolvedIDs(resolved))
	return ResolvedSection{}
}

func TestResolve_BlueprintDefaults(t *testing.T) {
	resolved := Resolve(testBlueprint(), Config{}, nil)

	want := []string{"header", "summary", "work"}
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
	for _, s := range resolved {
		if !s.Visible {
			t.Fatalf("section %q should be visible by default", s.ID)
		}
		if s.Title != DefaultTitle(s.ID) {
			t.Fatalf("section %q title = %q, want default %q", s.ID, s.Title, DefaultTitle(s.ID))
		}
	}
}

func TestResolve_HiddenSection(t *testing.T) {
	cfg := Config{Hidden: []string{"summary"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	if len(resolved) != 3 {
		t.Fatalf("resolved %d sections, want 3 (hidden entries stay listed)", len(resolved))
	}
	if findSection(t, resolved, "summary").Visible {
		t.Fatal("summary should be invisible")
	}

	want := []string{"header", "work"}
	if got := VisibleIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("visible ids = %v, want %v", got, want)
	}
}

func TestResolve_UserOrderWins(t *testing.T) {
	cfg := Config{Order: []string{"work", "header", "summary"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	want := []string{"work", "header", "summary"}
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
}

func TestResolve_TitlePrecedence(t *testing.T) {
	bp := testBlueprint()
	bp.SectionOverrides = map[string]catalog.SectionOverride{
		"work": {Title: "Y"},
	}

	cfg := Config{Titles: map[string]string{"work": "X"}}
	if got := findSection(t, Resolve(bp, cfg, nil), "work").Title; got != "X" {
		t.Fatalf("user title override: got %q, want X", got)
	}

	if got := findSection(t, Resolve(bp, Config{}, nil), "work").Title; got != "Y" {
		t.Fatalf("blueprint title override: got %q, want Y", got)
	}

	if got := findSection(t, Resolve(testBlueprint(), Config{}, nil), "work").Title; got != DefaultTitle("work") {
		t.Fatalf("default title: got %q, want %q", got, DefaultTitle("work"))
	}

	// 未知分区退回原始 ID。
	cfg = Config{Order: []string{"header", "summary", "work", "mystery"}}
	if got := findSection(t, Resolve(testBlueprint(), cfg, nil), "mystery").Title; got != "mystery" {
		t.Fatalf("unknown section title: got %q, want raw id", got)
	}
}

func TestResolve_DuplicateOrderIDsDeduplicated(t *testing.T) {
	cfg := Config{Order: []string{"work", "work", "header", "work", "summary", "header"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	counts := make(map[string]int)
	for _, s := range resolved {
		counts[s.ID]++
	}
	for id, n := range counts {
		if n != 1 {
			t.Fatalf("section %q resolved %d times", id, n)
		}
	}
	if got, want := resolvedIDs(resolved), []string{"work", "header", "summary"}; !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
}

func TestResolve_OrderExtrasJoinCandidates(t *testing.T) {
	cfg := Config{Order: []string{"skills", "header", "summary", "work"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	want := []string{"skills", "header", "summary", "work"}
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
}

func TestResolve_IDsAbsentFromOrderSinkToEnd(t *testing.T) {
	// Order 只提了 work：其余候选沉底并保持蓝图相对顺序。
	cfg := Config{Order: []string{"work"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	want := []string{"work", "header", "summary"}
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
}

func TestResolve_NilBlueprintFallsBack(t *testing.T) {
	resolved := Resolve(nil, Config{}, nil)

	want := catalog.FallbackBlueprint().DefaultSections
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want fallback defaults %v", got, want)
	}
}

func TestResolve_StrayHiddenEntryTolerated(t *testing.T) {
	cfg := Config{Hidden: []string{"ghost"}}
	resolved := Resolve(testBlueprint(), cfg, nil)

	if len(resolved) != 3 {
		t.Fatalf("stray hidden id must not create a row, got %v", resolvedIDs(resolved))
	}
}

func TestResolve_CustomSectionsAppended(t *testing.T) {
	content := &resume.Content{
		CustomSections: []resume.CustomSection{
			{ID: "custom:hobbies", Title: "Hobbies"},
		},
	}
	resolved := Resolve(testBlueprint(), Config{}, content)

	if len(resolved) != 4 {
		t.Fatalf("resolved %d sections, want 4", len(resolved))
	}
	last := resolved[len(resolved)-1]
	if last.ID != "custom:hobbies" || !last.Custom || !last.Visible || last.Title != "Hobbies" {
		t.Fatalf("custom section resolved as %+v", last)
	}
}

func TestResolve_CustomSectionInOrderKeepsPosition(t *testing.T) {
	content := &resume.Content{
		CustomSections: []resume.CustomSection{
			{ID: "custom:hobbies", Title: "Hobbies"},
		},
	}
	cfg := Config{Order: []string{"header", "custom:hobbies", "summary", "work"}}
	resolved := Resolve(testBlueprint(), cfg, content)

	want := []string{"header", "custom:hobbies", "summary", "work"}
	if got := resolvedIDs(resolved); !reflect.DeepEqual(got, want) {
		t.Fatalf("resolved ids = %v, want %v", got, want)
	}
	hobbies := findSection(t, resolved, "custom:hobbies")
	if !hobbies.Custom || hobbies.Title != "Hobbies" {
		t.Fatalf("custom section resolved as %+v", hobbies)
	}
}

func TestResolve_HiddenCustomSectionStaysHidden(t *testing.T) {
	content := &resume.Content{
		CustomSections: []resume.CustomSection{
			{ID: "custom:hobbies", Title: "Hobbies"},
		},
	}

	// Hidden 对自建分区同样生效，无论它是否出现在 Order 中，
	// 解析结果要与栏位分配的过滤口径一致。
	inOrder := Resolve(testBlueprint(),
		Config{Order: []string{"header", "custom:hobbies"}, Hidden: []string{"custom:hobbies"}},
		content)
	appended := Resolve(testBlueprint(),
		Config{Hidden: []string{"custom:hobbies"}},
		content)

	if findSection(t, inOrder, "custom:hobbies").Visible {
		t.Fatal("hidden custom section in order should resolve invisible")
	}
	if findSection(t, appended, "custom:hobbies").Visible {
		t.Fatal("hidden custom section outside order should resolve invisible")
	}
}

func TestResolve_BlueprintDefaultVisibility(t *testing.T) {
	hidden := false
	bp := testBlueprint()
	bp.SectionOverrides = map[string]catalog.SectionOverride{
		"summary": {Visible: &hidden},
	}

	if findSection(t, Resolve(bp, Config{}, nil), "summary").Visible {
		t.Fatal("blueprint-hidden section should start invisible")
	}

	// 用户显式添加后蓝图默认不再生效。
	cfg := Config{}.AddSection("summary")
	cfg = cfg.ReorderSections([]string{"header", "summary", "work"})
	if !findSection(t, Resolve(bp, cfg, nil), "summary").Visible {
		t.Fatal("user-added section must be visible despite blueprint default")
	}
}
