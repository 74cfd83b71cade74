package services

import (
	"errors"
	"fmt"
	"strings"
	"time"

	"nexussync/internal/models"
	"nexussync/internal/sources"
)

// SkipError reports a source row that must not be synced
type SkipError struct {
	Source string
	Reason string
}

func (e *SkipError) Error() string {
	return fmt.Sprintf("%s: skipped: %s", e.Source, e.Reason)
}

// UnresolvableDeleteError reports a deletion whose identity no fallback tier could
// recover. Only the one event is affected.
type UnresolvableDeleteError struct {
	Source  string
	EventID string
	Causes  []error
}

func (e *UnresolvableDeleteError) Error() string {
	msgs := make([]string, 0, len(e.Causes))
	for _, c := range e.Causes {
		msgs = append(msgs, c.Error())
	}
	return fmt.Sprintf("%s: cannot resolve identity of deleted record (event %s): %s",
		e.Source, e.EventID, strings.Join(msgs, "; "))
}

func (e *UnresolvableDeleteError) Unwrap() []error { return e.Causes }

// RecordBuilder turns source images into canonical records
type RecordBuilder struct {
	now func() time.Time
}

// NewRecordBuilder creates a builder that stamps missing timestamps with the wall clock
func NewRecordBuilder() *RecordBuilder {
	return &RecordBuilder{now: time.Now}
}

// SetClock replaces the builder's time source
func (b *RecordBuilder) SetClock(now func() time.Time) {
	b.now = now
}

// Build maps a new image into a canonical record. Skip-marked rows return a *SkipError;
// rows without a usable identity return the transformer's error.
func (b *RecordBuilder) Build(t sources.Transformer, image models.Image, eventType models.EventType) (*models.CanonicalRecord, error) {
	res := t.ExtractIdentity(image)
	switch res.Status {
	case sources.IdentitySkip:
		return nil, &SkipError{Source: t.ID(), Reason: res.Reason}
	case sources.IdentityError:
		return nil, fmt.Errorf("failed to extract identity: %w", res.Err)
	}

	now := b.now().UTC()
	createdAt, ok := t.ResolveCreatedAt(image)
	if !ok {
		createdAt = now
	}
	updatedAt, ok := t.ResolveUpdatedAt(image)
	if !ok {
		updatedAt = now
	}
	owner, _ := t.ResolveOwner(image)

	return &models.CanonicalRecord{
		PartitionKey:   models.PartitionKeyFor(t.SourceName(), res.Identity),
		SortKey:        models.RecordSortKey,
		SourceType:     t.SourceType(),
		SourceName:     t.SourceName(),
		SourceIdentity: res.Identity,
		RecordType:     t.RecordType(),
		Content:        t.MapContent(image),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		LastEvent:      eventType,
		OwnerID:        owner,
	}, nil
}

// ResolveDeleteIdentity recovers the identity of a deleted row. Tiers, in order:
//  1. the transformer's key extractor over the event keys
//  2. the general extractor over the event keys
//  3. the general extractor over the old image, when the event carried one
//
// A skip marker at any tier ends resolution as a skip.
func (b *RecordBuilder) ResolveDeleteIdentity(t sources.Transformer, event models.ChangeEvent) sources.IdentityResult {
	var causes []error

	attempt := func(res sources.IdentityResult) (sources.IdentityResult, bool) {
		switch res.Status {
		case sources.IdentityOK, sources.IdentitySkip:
			return res, true
		}
		if res.Err != nil {
			causes = append(causes, res.Err)
		}
		return res, false
	}

	if ke, ok := t.(sources.KeyExtractor); ok && len(event.Keys) > 0 {
		if res, done := attempt(ke.ExtractIdentityFromKeys(event.Keys)); done {
			return res
		}
	}
	if len(event.Keys) > 0 {
		if res, done := attempt(t.ExtractIdentity(event.Keys)); done {
			return res
		}
	}
	if len(event.OldImage) > 0 {
		if res, done := attempt(t.ExtractIdentity(event.OldImage)); done {
			return res
		}
	}

	if len(causes) == 0 {
		causes = append(causes, errors.New("event carried neither keys nor an old image"))
	}
	return sources.Fail(&UnresolvableDeleteError{Source: t.ID(), EventID: event.EventID, Causes: causes})
}

// DeleteKey returns the unified key of a resolved deletion
func DeleteKey(t sources.Transformer, identity string) (string, string) {
	return models.PartitionKeyFor(t.SourceName(), identity), models.RecordSortKey
}
