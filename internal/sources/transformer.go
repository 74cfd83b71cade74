// Package sources holds the per-source transformers that map raw change-feed images into
// canonical records, and the registry that resolves them by source id or table name.
package sources

import (
	"fmt"
	"strings"
	"time"

	"nexussync/internal/models"
)

// DeletePolicy decides what a REMOVE event does to the unified record
type DeletePolicy string

const (
	DeleteSoft DeletePolicy = "soft"
	DeleteHard DeletePolicy = "hard"
)

// Transformer maps one source's rows into canonical records
type Transformer interface {
	// ID is the short source identifier (e.g. "notes")
	ID() string
	// SourceName is the originating table name; it prefixes every partition key
	SourceName() string
	SourceType() models.SourceType
	RecordType() models.RecordType
	DeletePolicy() DeletePolicy

	ExtractIdentity(image models.Image) IdentityResult
	MapContent(image models.Image) models.Content
	ResolveCreatedAt(image models.Image) (time.Time, bool)
	ResolveUpdatedAt(image models.Image) (time.Time, bool)
	ResolveOwner(image models.Image) (string, bool)
}

// KeyExtractor is implemented by transformers that can resolve identity from the key
// attributes alone, as delivered with deletions.
type KeyExtractor interface {
	ExtractIdentityFromKeys(keys models.Image) IdentityResult
}

// IdentityStatus tags the outcome of identity extraction
type IdentityStatus int

const (
	IdentityOK IdentityStatus = iota
	// IdentitySkip marks an internal/system row that must not be synced
	IdentitySkip
	IdentityError
)

func (s IdentityStatus) String() string {
	switch s {
	case IdentityOK:
		return "ok"
	case IdentitySkip:
		return "skip"
	default:
		return "error"
	}
}

// IdentityResult is the typed outcome of identity extraction
type IdentityResult struct {
	Status   IdentityStatus
	Identity string
	Reason   string // why the row was skipped
	Err      error
}

// Identity returns a successful result
func Identity(id string) IdentityResult {
	return IdentityResult{Status: IdentityOK, Identity: id}
}

// Skip returns a skip-marker result
func Skip(reason string) IdentityResult {
	return IdentityResult{Status: IdentitySkip, Reason: reason}
}

// Fail returns an error result
func Fail(err error) IdentityResult {
	return IdentityResult{Status: IdentityError, Err: err}
}

// MissingFieldError reports a required identity attribute absent from an image
type MissingFieldError struct {
	Source string
	Field  string
}

func (e *MissingFieldError) Error() string {
	return fmt.Sprintf("%s: required identity field %q is missing", e.Source, e.Field)
}

// joinIdentity extracts the named attributes in order and joins them with '#'.
func joinIdentity(source string, image models.Image, fields ...string) IdentityResult {
	parts := make([]string, 0, len(fields))
	for _, field := range fields {
		v, ok := stringAttr(image, field)
		if !ok {
			return Fail(&MissingFieldError{Source: source, Field: field})
		}
		parts = append(parts, v)
	}
	return Identity(strings.Join(parts, "#"))
}

// TableName is the per-stage table name of a source
func TableName(id, stage string) string {
	return fmt.Sprintf("nexusnote-%s-%s", id, stage)
}
