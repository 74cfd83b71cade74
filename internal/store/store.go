// Package store is the unified record store. Gateway implements the record-level
// operations on top of a Table backend selected at startup.
package store

import (
	"context"
	"errors"

	"nexussync/internal/models"
)

// ErrNotFound is returned by Table.Get when no row exists for the key
var ErrNotFound = errors.New("record not found")

// ErrStale is returned by Gateway.ApplyEnrichment when the row was deleted or changed
// after the enrichment input was read
var ErrStale = errors.New("record changed since it was read")

// Table is a record table keyed by (partition_key, sort_key).
type Table interface {
	Get(ctx context.Context, partitionKey, sortKey string) (models.RecordItem, error)
	// Upsert overwrites the row, except created_at and archived which are only written
	// when the row is first created.
	Upsert(ctx context.Context, item models.RecordItem) error
	// Put overwrites the row unconditionally
	Put(ctx context.Context, item models.RecordItem) error
	// Delete removes the row. Deleting a missing row is not an error.
	Delete(ctx context.Context, partitionKey, sortKey string) error
	Ping(ctx context.Context) error
	Close(ctx context.Context) error
}
