package template

import "testing"

func TestAll_HasUniqueIDs(t *testing.T) {
	seen := make(map[string]bool)
	for _, tpl := range All() {
		if tpl.ID == "" || tpl.Title == "" || tpl.Prompt == "" || tpl.Category == "" {
			t.Errorf("template %+v has empty required fields", tpl)
		}
		if seen[tpl.ID] {
			t.Errorf("duplicate template id %s", tpl.ID)
		}
		seen[tpl.ID] = true
	}
}

func TestByID(t *testing.T) {
	tpl, err := ByID("explain-code")
	if err != nil {
		t.Fatalf("ByID: %v", err)
	}
	if tpl.Category != "coding" {
		t.Errorf("Category = %q, want coding", tpl.Category)
	}

	if _, err := ByID("missing"); err == nil {
		t.Error("expected error for unknown id")
	}
}

func TestByCategory(t *testing.T) {
	coding := ByCategory("coding")
	if len(coding) == 0 {
		t.Fatal("no coding templates")
	}
	for _, tpl := range coding {
		if tpl.Category != "coding" {
			t.Errorf("template %s leaked into coding", tpl.ID)
		}
	}
	if got := ByCategory("nonexistent"); len(got) != 0 {
		t.Errorf("ByCategory(nonexistent) = %v, want empty", got)
	}
}

func TestCategories_FirstSeenOrder(t *testing.T) {
	cats := Categories()
	if len(cats) == 0 {
		t.Fatal("no categories")
	}
	if cats[0] != "coding" {
		t.Errorf("cats[0] = %q, want coding (definition order)", cats[0])
	}
}
