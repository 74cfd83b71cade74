package sources

import (
	"strings"
	"time"

	"nexussync/internal/models"
)

// Single-table key layout of the conversations source:
//
//	PK = USER#<userId>
//	SK = CONV#<conversationId>   conversation metadata row (synced)
//	SK = MSG#...                 message rows (not synced)
//	SK = SYSTEM#...              internal rows (not synced)
const (
	conversationUserPrefix   = "USER#"
	conversationPrefix       = "CONV#"
	conversationSystemPrefix = "SYSTEM#"
)

type conversationsTransformer struct{ base }

func newConversations(stage string) *conversationsTransformer {
	return &conversationsTransformer{base{id: "conversations", sourceName: TableName("conversations", stage)}}
}

func (t *conversationsTransformer) SourceType() models.SourceType { return models.SourceTypeExternal }
func (t *conversationsTransformer) RecordType() models.RecordType {
	return models.RecordTypeConversation
}
func (t *conversationsTransformer) DeletePolicy() DeletePolicy { return DeleteSoft }

func (t *conversationsTransformer) ExtractIdentity(image models.Image) IdentityResult {
	if skip, ok := t.skipRow(image); ok {
		return skip
	}
	return joinIdentity(t.id, image, "userId", "conversationId")
}

// ExtractIdentityFromKeys parses the PK/SK pair, which is all a deletion carries.
func (t *conversationsTransformer) ExtractIdentityFromKeys(keys models.Image) IdentityResult {
	if skip, ok := t.skipRow(keys); ok {
		return skip
	}
	pk, ok := stringAttr(keys, "PK")
	if !ok || !strings.HasPrefix(pk, conversationUserPrefix) || len(pk) == len(conversationUserPrefix) {
		return Fail(&MissingFieldError{Source: t.id, Field: "PK"})
	}
	sk, ok := stringAttr(keys, "SK")
	if !ok || len(sk) == len(conversationPrefix) {
		return Fail(&MissingFieldError{Source: t.id, Field: "SK"})
	}
	return Identity(strings.TrimPrefix(pk, conversationUserPrefix) + "#" + strings.TrimPrefix(sk, conversationPrefix))
}

// skipRow recognises rows that live in the table but are not conversations.
func (t *conversationsTransformer) skipRow(image models.Image) (IdentityResult, bool) {
	sk, ok := stringAttr(image, "SK")
	if !ok {
		return IdentityResult{}, false
	}
	if strings.HasPrefix(sk, conversationSystemPrefix) {
		return Skip("system row"), true
	}
	if !strings.HasPrefix(sk, conversationPrefix) {
		return Skip("non-conversation row"), true
	}
	return IdentityResult{}, false
}

func (t *conversationsTransformer) MapContent(image models.Image) models.Content {
	return models.ConversationContent{
		Title:        stringOr(image, "title"),
		Participants: stringsAttr(image, "participants"),
		LastMessage:  stringOr(image, "lastMessage"),
		MessageCount: intAttr(image, "messageCount"),
	}
}

func (t *conversationsTransformer) ResolveCreatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "createdAt")
}

func (t *conversationsTransformer) ResolveUpdatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "updatedAt", "lastMessageAt")
}

func (t *conversationsTransformer) ResolveOwner(image models.Image) (string, bool) {
	return stringAttr(image, "userId")
}
