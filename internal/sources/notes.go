package sources

import (
	"time"

	"nexussync/internal/models"
)

// base carries the identifiers every transformer shares
type base struct {
	id         string
	sourceName string
}

func (b base) ID() string         { return b.id }
func (b base) SourceName() string { return b.sourceName }

// notesTransformer maps rows of the personal notes table
type notesTransformer struct{ base }

func newNotes(stage string) *notesTransformer {
	return &notesTransformer{base{id: "notes", sourceName: TableName("notes", stage)}}
}

func (t *notesTransformer) SourceType() models.SourceType { return models.SourceTypePersonal }
func (t *notesTransformer) RecordType() models.RecordType { return models.RecordTypeNote }
func (t *notesTransformer) DeletePolicy() DeletePolicy    { return DeleteSoft }

func (t *notesTransformer) ExtractIdentity(image models.Image) IdentityResult {
	return joinIdentity(t.id, image, "userId", "noteId")
}

// The table key is (userId, noteId), so keys alone always carry the identity.
func (t *notesTransformer) ExtractIdentityFromKeys(keys models.Image) IdentityResult {
	return joinIdentity(t.id, keys, "userId", "noteId")
}

func (t *notesTransformer) MapContent(image models.Image) models.Content {
	return models.NoteContent{
		Title:   stringOr(image, "title"),
		Content: stringOr(image, "content"),
		Tags:    stringsAttr(image, "tags"),
	}
}

func (t *notesTransformer) ResolveCreatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "createdAt")
}

func (t *notesTransformer) ResolveUpdatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "updatedAt")
}

func (t *notesTransformer) ResolveOwner(image models.Image) (string, bool) {
	return stringAttr(image, "userId")
}
