package models

import (
	"testing"
	"time"
)

func TestPartitionKeyFor(t *testing.T) {
	got := PartitionKeyFor("nexusnote-notes-production", "u1#n1")
	if got != "nexusnote-notes-production#u1#n1" {
		t.Errorf("Expected nexusnote-notes-production#u1#n1, got %s", got)
	}
	if PartitionKeyFor("a", "b") != PartitionKeyFor("a", "b") {
		t.Error("Partition key must be deterministic")
	}
}

func TestFormatTimestamp(t *testing.T) {
	ts := time.Date(2024, 3, 1, 9, 30, 0, 123456789, time.FixedZone("EST", -5*3600))
	if got := FormatTimestamp(ts); got != "2024-03-01T14:30:00.123Z" {
		t.Errorf("Expected UTC millisecond timestamp, got %s", got)
	}
	if got := FormatTimestamp(time.Time{}); got != "" {
		t.Errorf("Expected empty string for zero time, got %s", got)
	}

	parsed, err := ParseTimestamp("2024-03-01T14:30:00.123Z")
	if err != nil {
		t.Fatalf("ParseTimestamp failed: %v", err)
	}
	if !parsed.Equal(ts.Truncate(time.Millisecond)) {
		t.Errorf("Expected %v, got %v", ts.Truncate(time.Millisecond), parsed)
	}
}

func TestEnrichmentMarkers(t *testing.T) {
	r := &CanonicalRecord{}
	if r.IsEnriched() {
		t.Error("Empty record must not count as enriched")
	}

	r.Summary = "S"
	if r.IsEnriched() {
		t.Error("Summary alone must not count as enriched")
	}

	r.Insight = "I"
	if !r.IsEnriched() || r.HasFallbackEnrichment() {
		t.Error("Expected enriched record without fallback text")
	}

	r.ApplyFallback()
	if !r.HasFallbackEnrichment() {
		t.Error("Expected fallback text to be detected")
	}

	r.ClearEnrichment()
	if r.Summary != "" || r.Insight != "" {
		t.Error("ClearEnrichment must drop both fields")
	}
}

func TestDecodeContent(t *testing.T) {
	tests := []struct {
		name       string
		recordType RecordType
		fields     map[string]interface{}
		want       Content
	}{
		{
			name:       "note",
			recordType: RecordTypeNote,
			fields:     map[string]interface{}{"title": "Hi", "content": "Hello"},
			want:       NoteContent{Title: "Hi", Content: "Hello"},
		},
		{
			name:       "conversation with float count from a JSON decoder",
			recordType: RecordTypeConversation,
			fields:     map[string]interface{}{"title": "Standup", "messageCount": float64(4)},
			want:       ConversationContent{Title: "Standup", MessageCount: 4},
		},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			got, err := DecodeContent(tt.recordType, tt.fields)
			if err != nil {
				t.Fatalf("DecodeContent failed: %v", err)
			}
			if got.RecordType() != tt.recordType {
				t.Errorf("Expected record type %s, got %s", tt.recordType, got.RecordType())
			}
			if len(got.Fields()) != len(tt.want.Fields()) {
				t.Errorf("Expected fields %v, got %v", tt.want.Fields(), got.Fields())
			}
		})
	}
}

func TestDecodeContent_UnknownTypeKeepsFields(t *testing.T) {
	got := DecodeContentOrGeneric("TASK", map[string]interface{}{"title": "x", "priority": float64(2)})
	if _, ok := got.(GenericContent); !ok {
		t.Fatalf("Expected GenericContent, got %T", got)
	}
	if got.Fields()["priority"] != float64(2) {
		t.Errorf("Expected priority to survive, got %v", got.Fields())
	}
}

func TestDecodeContent_MismatchedShapeDegrades(t *testing.T) {
	got := DecodeContentOrGeneric(RecordTypeNote, map[string]interface{}{"title": []interface{}{"not", "a", "string"}})
	if _, ok := got.(GenericContent); !ok {
		t.Fatalf("Expected GenericContent for mismatched shape, got %T", got)
	}
}

func TestItemConversion(t *testing.T) {
	created := time.Date(2024, 1, 1, 0, 0, 0, 0, time.UTC)
	rec := &CanonicalRecord{
		PartitionKey:   "nexusnote-notes-production#u1#n1",
		SortKey:        RecordSortKey,
		SourceType:     SourceTypePersonal,
		SourceName:     "nexusnote-notes-production",
		SourceIdentity: "u1#n1",
		RecordType:     RecordTypeNote,
		Content:        NoteContent{Title: "Hi", Content: "Hello"},
		CreatedAt:      created,
		UpdatedAt:      created.Add(time.Hour),
		LastEvent:      EventInsert,
		OwnerID:        "u1",
	}

	item := ToItem(rec)
	if item.CreatedAt != "2024-01-01T00:00:00.000Z" {
		t.Errorf("Unexpected created_at %s", item.CreatedAt)
	}
	if len(item.Content) != 2 {
		t.Errorf("Expected only mapped fields in content, got %v", item.Content)
	}

	back, err := FromItem(item)
	if err != nil {
		t.Fatalf("FromItem failed: %v", err)
	}
	note, ok := back.Content.(NoteContent)
	if !ok {
		t.Fatalf("Expected NoteContent, got %T", back.Content)
	}
	if note.Title != "Hi" || !back.CreatedAt.Equal(created) || back.OwnerID != "u1" {
		t.Errorf("Record did not survive conversion: %+v", back)
	}
}

func TestFromItem_InvalidTimestamp(t *testing.T) {
	if _, err := FromItem(RecordItem{CreatedAt: "yesterday"}); err == nil {
		t.Error("Expected error for invalid created_at")
	}
}

func TestClone_DoesNotShareContent(t *testing.T) {
	rec := &CanonicalRecord{RecordType: "TASK", Content: GenericContent{"a": "1"}}
	c := rec.Clone()
	c.Content.(GenericContent)["a"] = "2"
	if rec.Content.Fields()["a"] != "1" {
		t.Error("Clone must not share the content map")
	}
}
