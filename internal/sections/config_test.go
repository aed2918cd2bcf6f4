package sections

import (
	"reflect"
	"testing"
)

func TestAddSection_IdempotentOnOrder(t *testing.T) {
	cfg := Config{Order: []string{"header", "work"}}

	once := cfg.AddSection("skills")
	twice := once.AddSection("skills")

	want := []string{"header", "work", "skills"}
	if !reflect.DeepEqual(twice.Order, want) {
		t.Fatalf("order = %v, want %v", twice.Order, want)
	}
}

func TestAddSection_Unhides(t *testing.T) {
	cfg := Config{Order: []string{"header", "work"}, Hidden: []string{"work"}}

	got := cfg.AddSection("work")

	if got.IsHidden("work") {
		t.Fatal("add must remove the id from hidden")
	}
	if want := []string{"header", "work"}; !reflect.DeepEqual(got.Order, want) {
		t.Fatalf("order = %v, want unchanged %v", got.Order, want)
	}
}

func TestRemoveSection_PreservesOrderPosition(t *testing.T) {
	cfg := Config{Order: []string{"header", "summary", "work"}}

	got := cfg.RemoveSection("summary")
	got = got.RemoveSection("summary") // 幂等

	if want := []string{"header", "summary", "work"}; !reflect.DeepEqual(got.Order, want) {
		t.Fatalf("order = %v, want %v", got.Order, want)
	}
	if want := []string{"summary"}; !reflect.DeepEqual(got.Hidden, want) {
		t.Fatalf("hidden = %v, want %v", got.Hidden, want)
	}
}

func TestToggleSection_Symmetric(t *testing.T) {
	cfg := Config{Order: []string{"header", "work"}}

	toggled := cfg.ToggleSection("work")
	if !toggled.IsHidden("work") {
		t.Fatal("first toggle should hide")
	}

	back := toggled.ToggleSection("work")
	if back.IsHidden("work") {
		t.Fatal("second toggle should restore")
	}
	if len(back.Hidden) != 0 {
		t.Fatalf("hidden = %v, want empty", back.Hidden)
	}
}

func TestRenameSection_EmptyTitleIsValidOverride(t *testing.T) {
	cfg := Config{}.RenameSection("work", "")

	title, ok := cfg.Titles["work"]
	if !ok {
		t.Fatal("empty title override must be stored")
	}
	if title != "" {
		t.Fatalf("title = %q, want empty", title)
	}
}

func TestReorderSections_WholesaleReplace(t *testing.T) {
	cfg := Config{Order: []string{"header", "summary", "work"}}

	// 契约是宽松的：不校验新顺序是否为旧集合的排列。
	got := cfg.ReorderSections([]string{"work", "mystery"})

	if want := []string{"work", "mystery"}; !reflect.DeepEqual(got.Order, want) {
		t.Fatalf("order = %v, want %v", got.Order, want)
	}
}

func TestConfig_CopyOnWrite(t *testing.T) {
	original := Config{
		Order:  []string{"header", "work"},
		Hidden: []string{"summary"},
		Titles: map[string]string{"work": "Jobs"},
	}

	mutated := original.AddSection("skills")
	mutated = mutated.RenameSection("header", "About")
	mutated = mutated.ToggleSection("summary")

	if want := []string{"header", "work"}; !reflect.DeepEqual(original.Order, want) {
		t.Fatalf("original order mutated: %v", original.Order)
	}
	if want := []string{"summary"}; !reflect.DeepEqual(original.Hidden, want) {
		t.Fatalf("original hidden mutated: %v", original.Hidden)
	}
	if len(original.Titles) != 1 || original.Titles["work"] != "Jobs" {
		t.Fatalf("original titles mutated: %v", original.Titles)
	}
}
