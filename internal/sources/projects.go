package sources

import (
	"time"

	"nexussync/internal/models"
)

// projectsTransformer maps rows of the personal projects table
type projectsTransformer struct{ base }

func newProjects(stage string) *projectsTransformer {
	return &projectsTransformer{base{id: "projects", sourceName: TableName("projects", stage)}}
}

func (t *projectsTransformer) SourceType() models.SourceType { return models.SourceTypePersonal }
func (t *projectsTransformer) RecordType() models.RecordType { return models.RecordTypeProject }
func (t *projectsTransformer) DeletePolicy() DeletePolicy    { return DeleteSoft }

func (t *projectsTransformer) ExtractIdentity(image models.Image) IdentityResult {
	return joinIdentity(t.id, image, "userId", "projectId")
}

func (t *projectsTransformer) ExtractIdentityFromKeys(keys models.Image) IdentityResult {
	return joinIdentity(t.id, keys, "userId", "projectId")
}

// Older rows stored the project name under "title".
func (t *projectsTransformer) MapContent(image models.Image) models.Content {
	name := stringOr(image, "name")
	if name == "" {
		name = stringOr(image, "title")
	}
	return models.ProjectContent{
		Name:        name,
		Description: stringOr(image, "description"),
		Status:      stringOr(image, "status"),
	}
}

func (t *projectsTransformer) ResolveCreatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "createdAt")
}

func (t *projectsTransformer) ResolveUpdatedAt(image models.Image) (time.Time, bool) {
	return timeAttr(image, "updatedAt")
}

func (t *projectsTransformer) ResolveOwner(image models.Image) (string, bool) {
	return stringAttr(image, "userId")
}
