package sources

import (
	"testing"

	"nexussync/internal/models"
)

func TestNewRegistry_Lookups(t *testing.T) {
	r := NewRegistry("production")

	if r.Count() != 4 {
		t.Fatalf("Expected 4 sources, got %d", r.Count())
	}

	notes, ok := r.Get("notes")
	if !ok {
		t.Fatal("Expected notes source to be registered")
	}
	if notes.SourceName() != "nexusnote-notes-production" {
		t.Errorf("Unexpected source name %s", notes.SourceName())
	}

	byTable, ok := r.ByTable("nexusnote-notes-production")
	if !ok || byTable != notes {
		t.Error("Expected table lookup to return the notes transformer")
	}

	if _, ok := r.Resolve("nexusnote-contacts-production"); !ok {
		t.Error("Resolve should accept table names")
	}
	if _, ok := r.Get("unknown"); ok {
		t.Error("Unknown source must not resolve")
	}
}

func TestRegistry_ListIsOrdered(t *testing.T) {
	r := NewRegistry("dev")
	want := []string{"contacts", "conversations", "notes", "projects"}

	list := r.List()
	if len(list) != len(want) {
		t.Fatalf("Expected %d transformers, got %d", len(want), len(list))
	}
	for i, tr := range list {
		if tr.ID() != want[i] {
			t.Errorf("Position %d: expected %s, got %s", i, want[i], tr.ID())
		}
	}
}

func TestNew_RejectsDuplicates(t *testing.T) {
	if _, err := New(newNotes("a"), newNotes("a")); err == nil {
		t.Error("Expected duplicate source id to be rejected")
	}
}

func TestDeletePolicies(t *testing.T) {
	r := NewRegistry("production")
	tests := map[string]DeletePolicy{
		"notes":         DeleteSoft,
		"projects":      DeleteSoft,
		"contacts":      DeleteHard,
		"conversations": DeleteSoft,
	}
	for id, want := range tests {
		tr, _ := r.Get(id)
		if tr.DeletePolicy() != want {
			t.Errorf("%s: expected %s delete, got %s", id, want, tr.DeletePolicy())
		}
	}
}

func TestRecordTypes(t *testing.T) {
	r := NewRegistry("production")
	tests := map[string]models.RecordType{
		"notes":         models.RecordTypeNote,
		"projects":      models.RecordTypeProject,
		"contacts":      models.RecordTypeContact,
		"conversations": models.RecordTypeConversation,
	}
	for id, want := range tests {
		tr, _ := r.Get(id)
		if tr.RecordType() != want {
			t.Errorf("%s: expected %s, got %s", id, want, tr.RecordType())
		}
	}
}
