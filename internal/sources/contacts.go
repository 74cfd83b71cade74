package sources

import (
	"strings"
	"time"

	"nexussync/internal/models"
)

// systemContactPrefix marks CRM-internal contact rows
const systemContactPrefix = "system:"

// contactsTransformer maps rows of the external CRM contacts table. Contacts are hard
// deleted: nothing downstream needs the tombstone.
type contactsTransformer struct{ base }

func newContacts(stage string) *contactsTransformer {
	return &contactsTransformer{base{id: "contacts", sourceName: TableName("contacts", stage)}}
}

func (t *contactsTransformer) SourceType() models.SourceType { return models.SourceTypeExternal }
func (t *contactsTransformer) RecordType() models.RecordType { return models.RecordTypeContact }
func (t *contactsTransformer) DeletePolicy() DeletePolicy    { return DeleteHard }

func (t *contactsTransformer) ExtractIdentity(image models.Image) IdentityResult {
	id, ok := stringAttr(image, "contactId")
	if !ok {
		return Fail(&MissingFieldError{Source: t.id, Field: "contactId"})
	}
	if strings.HasPrefix(id, systemContactPrefix) {
		return Skip("system contact")
	}
	return Identity(id)
}

func (t *contactsTransformer) MapContent(image models.Image) models.Content {
	name := stringOr(image, "name")
	if name == "" {
		name = strings.TrimSpace(stringOr(image, "firstName") + " " + stringOr(image, "lastName"))
	}
	return models.ContactContent{
		Name:    name,
		Email:   stringOr(image, "email"),
		Company: stringOr(image, "company"),
		Notes:   stringOr(image, "notes"),
	}
}

func (t *contactsTransformer) ResolveCreatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "createdAt")
}

func (t *contactsTransformer) ResolveUpdatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "lastModified", "updatedAt")
}

func (t *contactsTransformer) ResolveOwner(image models.Image) (string, bool) {
	return stringAttr(image, "ownerId")
}
