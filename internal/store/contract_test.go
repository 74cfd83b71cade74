package store

import (
	"context"
	"errors"
	"testing"
	"time"

	"nexussync/internal/models"
)

func sampleRecord() *models.CanonicalRecord {
	created := time.Date(2024, 5, 1, 12, 0, 0, 0, time.UTC)
	return &models.CanonicalRecord{
		PartitionKey:   "nexusnote-notes-production#u1#n1",
		SortKey:        models.RecordSortKey,
		SourceType:     models.SourceTypePersonal,
		SourceName:     "nexusnote-notes-production",
		SourceIdentity: "u1#n1",
		RecordType:     models.RecordTypeNote,
		Content:        models.NoteContent{Title: "Hi", Content: "Hello", Tags: []string{"a", "b"}},
		CreatedAt:      created,
		UpdatedAt:      created,
		LastEvent:      models.EventInsert,
		OwnerID:        "u1",
	}
}

// testTableContract exercises the behaviour every backend must share
func testTableContract(t *testing.T, table Table) {
	ctx := context.Background()
	rec := sampleRecord()

	t.Run("get missing", func(t *testing.T) {
		_, err := table.Get(ctx, "missing", models.RecordSortKey)
		if !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected ErrNotFound, got %v", err)
		}
	})

	t.Run("upsert round trip", func(t *testing.T) {
		if err := table.Upsert(ctx, models.ToItem(rec)); err != nil {
			t.Fatalf("Upsert failed: %v", err)
		}
		item, err := table.Get(ctx, rec.PartitionKey, rec.SortKey)
		if err != nil {
			t.Fatalf("Get failed: %v", err)
		}
		got, err := models.FromItem(item)
		if err != nil {
			t.Fatal(err)
		}
		content, ok := got.Content.(models.NoteContent)
		if !ok || content.Title != "Hi" || len(content.Tags) != 2 {
			t.Errorf("Unexpected content %#v", got.Content)
		}
		if !got.CreatedAt.Equal(rec.CreatedAt) || got.OwnerID != "u1" {
			t.Errorf("Unexpected record %+v", got)
		}
	})

	t.Run("write-once attributes", func(t *testing.T) {
		item := models.ToItem(rec)
		item.Archived = true
		if err := table.Put(ctx, item); err != nil {
			t.Fatal(err)
		}

		later := rec.Clone()
		later.CreatedAt = rec.CreatedAt.Add(48 * time.Hour)
		later.UpdatedAt = rec.UpdatedAt.Add(48 * time.Hour)
		later.LastEvent = models.EventModify
		later.Summary = "S"
		later.Insight = "I"
		if err := table.Upsert(ctx, models.ToItem(later)); err != nil {
			t.Fatal(err)
		}

		got, _ := table.Get(ctx, rec.PartitionKey, rec.SortKey)
		if got.CreatedAt != models.FormatTimestamp(rec.CreatedAt) {
			t.Errorf("Expected created_at to be preserved, got %s", got.CreatedAt)
		}
		if !got.Archived {
			t.Error("Expected archived flag to be preserved")
		}
		if got.UpdatedAt != models.FormatTimestamp(later.UpdatedAt) || got.LastEvent != "MODIFY" {
			t.Errorf("Expected mutable fields to be overwritten, got %+v", got)
		}
		if got.Summary != "S" || got.Insight != "I" {
			t.Errorf("Expected enrichment to be written, got %q %q", got.Summary, got.Insight)
		}
	})

	t.Run("upsert clears optional fields", func(t *testing.T) {
		bare := rec.Clone()
		bare.OwnerID = ""
		if err := table.Upsert(ctx, models.ToItem(bare)); err != nil {
			t.Fatal(err)
		}
		got, _ := table.Get(ctx, rec.PartitionKey, rec.SortKey)
		if got.Summary != "" || got.OwnerID != "" {
			t.Errorf("Expected optional fields cleared, got %+v", got)
		}
	})

	t.Run("delete", func(t *testing.T) {
		if err := table.Delete(ctx, rec.PartitionKey, rec.SortKey); err != nil {
			t.Fatal(err)
		}
		if _, err := table.Get(ctx, rec.PartitionKey, rec.SortKey); !errors.Is(err, ErrNotFound) {
			t.Errorf("Expected row to be gone, got %v", err)
		}
		if err := table.Delete(ctx, rec.PartitionKey, rec.SortKey); err != nil {
			t.Errorf("Deleting a missing row should succeed, got %v", err)
		}
	})
}

func TestMemoryTable_Contract(t *testing.T) {
	testTableContract(t, NewMemoryTable())
}
