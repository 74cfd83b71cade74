package models

import (
	"strings"
	"time"
)

// RecordSortKey marks the primary "this is a record" row for an entity.
const RecordSortKey = "RECORD"

// Fallback text written when enrichment could not complete.
const (
	FallbackSummary = "Unable to generate summary."
	FallbackInsight = "Unable to generate insight."
)

// SourceType classifies where a record came from
type SourceType string

const (
	SourceTypePersonal SourceType = "personal"
	SourceTypeExternal SourceType = "external"
)

// RecordType selects the enrichment prompt and UI treatment for a record
type RecordType string

const (
	RecordTypeNote         RecordType = "NOTE"
	RecordTypeProject      RecordType = "PROJECT"
	RecordTypeContact      RecordType = "CONTACT"
	RecordTypeConversation RecordType = "CONVERSATION"
)

// Valid reports whether t is one of the known record types
func (t RecordType) Valid() bool {
	switch t {
	case RecordTypeNote, RecordTypeProject, RecordTypeContact, RecordTypeConversation:
		return true
	}
	return false
}

// EventType is the change type delivered by the upstream change feed
type EventType string

const (
	EventInsert EventType = "INSERT"
	EventModify EventType = "MODIFY"
	EventRemove EventType = "REMOVE"
)

// Valid reports whether e is one of the known change types
func (e EventType) Valid() bool {
	switch e {
	case EventInsert, EventModify, EventRemove:
		return true
	}
	return false
}

// CanonicalRecord is the unified, cross-source row every source record is mapped into
type CanonicalRecord struct {
	PartitionKey   string
	SortKey        string
	SourceType     SourceType
	SourceName     string
	SourceIdentity string
	RecordType     RecordType
	Content        Content

	CreatedAt time.Time
	UpdatedAt time.Time
	LastEvent EventType

	Deleted  bool
	Archived bool // owned by the read API; never set by the pipeline

	OwnerID string // empty when the source exposes no owner

	// Enrichment output. Both present means enrichment already succeeded.
	Summary string
	Insight string
}

// PartitionKeyFor derives the stable partition key of a source entity.
func PartitionKeyFor(sourceName, sourceIdentity string) string {
	return sourceName + "#" + sourceIdentity
}

// IsEnriched reports whether both enrichment fields are present
func (r *CanonicalRecord) IsEnriched() bool {
	return r.Summary != "" && r.Insight != ""
}

// HasFallbackEnrichment reports whether the enrichment fields hold fallback text
// rather than generated output.
func (r *CanonicalRecord) HasFallbackEnrichment() bool {
	return r.Summary == FallbackSummary || r.Insight == FallbackInsight
}

// ClearEnrichment drops summary and insight so enrichment runs again
func (r *CanonicalRecord) ClearEnrichment() {
	r.Summary = ""
	r.Insight = ""
}

// ApplyFallback fills the enrichment fields with deterministic fallback text
func (r *CanonicalRecord) ApplyFallback() {
	r.Summary = FallbackSummary
	r.Insight = FallbackInsight
}

// Clone returns a copy whose content map is not shared with r.
func (r *CanonicalRecord) Clone() *CanonicalRecord {
	if r == nil {
		return nil
	}
	c := *r
	if r.Content != nil {
		c.Content = DecodeContentOrGeneric(r.RecordType, r.Content.Fields())
	}
	return &c
}

// timestampLayout is ISO-8601 in UTC with millisecond precision.
const timestampLayout = "2006-01-02T15:04:05.000Z07:00"

// FormatTimestamp renders t the way records are stored
func FormatTimestamp(t time.Time) string {
	if t.IsZero() {
		return ""
	}
	return t.UTC().Format(timestampLayout)
}

// ParseTimestamp parses a stored ISO-8601 timestamp. Empty input yields the zero time.
func ParseTimestamp(s string) (time.Time, error) {
	s = strings.TrimSpace(s)
	if s == "" {
		return time.Time{}, nil
	}
	t, err := time.Parse(time.RFC3339Nano, s)
	if err != nil {
		return time.Time{}, err
	}
	return t.UTC(), nil
}
