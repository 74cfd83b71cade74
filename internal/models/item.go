package models

import "fmt"

// RecordItem is the open-map form of a CanonicalRecord used by every store backend and
// by dead-letter messages.
type RecordItem struct {
	PartitionKey   string                 `json:"partition_key" bson:"partitionKey" dynamodbav:"partition_key"`
	SortKey        string                 `json:"sort_key" bson:"sortKey" dynamodbav:"sort_key"`
	SourceType     string                 `json:"source_type" bson:"sourceType" dynamodbav:"source_type"`
	SourceName     string                 `json:"source_name" bson:"sourceName" dynamodbav:"source_name"`
	SourceIdentity string                 `json:"source_identity" bson:"sourceIdentity" dynamodbav:"source_identity"`
	RecordType     string                 `json:"record_type" bson:"recordType" dynamodbav:"record_type"`
	Content        map[string]interface{} `json:"content" bson:"content" dynamodbav:"content"`
	CreatedAt      string                 `json:"created_at" bson:"createdAt" dynamodbav:"created_at"`
	UpdatedAt      string                 `json:"updated_at" bson:"updatedAt" dynamodbav:"updated_at"`
	LastEvent      string                 `json:"last_event" bson:"lastEvent" dynamodbav:"last_event"`
	Deleted        bool                   `json:"deleted" bson:"deleted" dynamodbav:"deleted"`
	Archived       bool                   `json:"archived" bson:"archived" dynamodbav:"archived"`
	OwnerID        string                 `json:"owner_id,omitempty" bson:"ownerId,omitempty" dynamodbav:"owner_id,omitempty"`
	Summary        string                 `json:"summary,omitempty" bson:"summary,omitempty" dynamodbav:"summary,omitempty"`
	Insight        string                 `json:"insight,omitempty" bson:"insight,omitempty" dynamodbav:"insight,omitempty"`
}

// ToItem converts a record to its serialization form
func ToItem(r *CanonicalRecord) RecordItem {
	return RecordItem{
		PartitionKey:   r.PartitionKey,
		SortKey:        r.SortKey,
		SourceType:     string(r.SourceType),
		SourceName:     r.SourceName,
		SourceIdentity: r.SourceIdentity,
		RecordType:     string(r.RecordType),
		Content:        ContentFields(r.Content),
		CreatedAt:      FormatTimestamp(r.CreatedAt),
		UpdatedAt:      FormatTimestamp(r.UpdatedAt),
		LastEvent:      string(r.LastEvent),
		Deleted:        r.Deleted,
		Archived:       r.Archived,
		OwnerID:        r.OwnerID,
		Summary:        r.Summary,
		Insight:        r.Insight,
	}
}

// FromItem rebuilds a record from its serialization form
func FromItem(item RecordItem) (*CanonicalRecord, error) {
	createdAt, err := ParseTimestamp(item.CreatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid created_at %q: %w", item.CreatedAt, err)
	}
	updatedAt, err := ParseTimestamp(item.UpdatedAt)
	if err != nil {
		return nil, fmt.Errorf("invalid updated_at %q: %w", item.UpdatedAt, err)
	}

	recordType := RecordType(item.RecordType)
	return &CanonicalRecord{
		PartitionKey:   item.PartitionKey,
		SortKey:        item.SortKey,
		SourceType:     SourceType(item.SourceType),
		SourceName:     item.SourceName,
		SourceIdentity: item.SourceIdentity,
		RecordType:     recordType,
		Content:        DecodeContentOrGeneric(recordType, item.Content),
		CreatedAt:      createdAt,
		UpdatedAt:      updatedAt,
		LastEvent:      EventType(item.LastEvent),
		Deleted:        item.Deleted,
		Archived:       item.Archived,
		OwnerID:        item.OwnerID,
		Summary:        item.Summary,
		Insight:        item.Insight,
	}, nil
}
