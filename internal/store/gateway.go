package store

import (
	"context"
	"errors"
	"fmt"
	"log/slog"
	"time"

	"nexussync/internal/models"
	"nexussync/internal/sources"
)

// Gateway performs record writes against the unified table
type Gateway struct {
	table Table
	now   func() time.Time
}

// NewGateway creates a gateway over a table backend
func NewGateway(table Table) *Gateway {
	return &Gateway{table: table, now: time.Now}
}

// SetClock replaces the time source used to stamp soft deletes
func (g *Gateway) SetClock(now func() time.Time) {
	g.now = now
}

// Table exposes the backend, for health checks
func (g *Gateway) Table() Table {
	return g.table
}

// Upsert writes the record keyed by (partition_key, sort_key). Writing the same record
// twice leaves the store unchanged after the first write.
func (g *Gateway) Upsert(ctx context.Context, record *models.CanonicalRecord) error {
	if record.PartitionKey == "" {
		return fmt.Errorf("record has no partition key")
	}
	if record.SortKey == "" {
		record.SortKey = models.RecordSortKey
	}
	if err := g.table.Upsert(ctx, models.ToItem(record)); err != nil {
		return fmt.Errorf("failed to upsert %s: %w", record.PartitionKey, err)
	}
	return nil
}

// SoftDelete marks an existing row deleted. A missing row is logged and ignored: the
// delete may have overtaken the insert it belongs to.
func (g *Gateway) SoftDelete(ctx context.Context, partitionKey, sortKey string) error {
	item, err := g.table.Get(ctx, partitionKey, sortKey)
	if errors.Is(err, ErrNotFound) {
		slog.Warn("soft delete target not found",
			"partition_key", partitionKey,
			"sort_key", sortKey,
		)
		return nil
	}
	if err != nil {
		return fmt.Errorf("failed to read %s for soft delete: %w", partitionKey, err)
	}

	item.Deleted = true
	item.LastEvent = string(models.EventRemove)
	item.UpdatedAt = models.FormatTimestamp(g.now())

	if err := g.table.Put(ctx, item); err != nil {
		return fmt.Errorf("failed to soft delete %s: %w", partitionKey, err)
	}
	return nil
}

// HardDelete removes the row
func (g *Gateway) HardDelete(ctx context.Context, partitionKey, sortKey string) error {
	if err := g.table.Delete(ctx, partitionKey, sortKey); err != nil {
		return fmt.Errorf("failed to hard delete %s: %w", partitionKey, err)
	}
	return nil
}

// Delete applies a source's delete policy
func (g *Gateway) Delete(ctx context.Context, policy sources.DeletePolicy, partitionKey, sortKey string) error {
	switch policy {
	case sources.DeleteHard:
		return g.HardDelete(ctx, partitionKey, sortKey)
	case sources.DeleteSoft:
		return g.SoftDelete(ctx, partitionKey, sortKey)
	default:
		return fmt.Errorf("unknown delete policy %q", policy)
	}
}

// ApplyEnrichment writes the record's summary and insight onto the stored row, leaving
// every other stored field as it is. The row must still exist, must not be deleted, and
// must carry the updated_at the record was read with; otherwise ErrStale is returned and
// nothing is written.
func (g *Gateway) ApplyEnrichment(ctx context.Context, record *models.CanonicalRecord) error {
	sortKey := record.SortKey
	if sortKey == "" {
		sortKey = models.RecordSortKey
	}

	item, err := g.table.Get(ctx, record.PartitionKey, sortKey)
	if errors.Is(err, ErrNotFound) {
		return fmt.Errorf("%s is gone: %w", record.PartitionKey, ErrStale)
	}
	if err != nil {
		return fmt.Errorf("failed to read %s for enrichment: %w", record.PartitionKey, err)
	}
	if item.Deleted {
		return fmt.Errorf("%s is deleted: %w", record.PartitionKey, ErrStale)
	}
	if item.UpdatedAt != models.FormatTimestamp(record.UpdatedAt) {
		return fmt.Errorf("%s was updated at %s: %w", record.PartitionKey, item.UpdatedAt, ErrStale)
	}

	item.Summary = record.Summary
	item.Insight = record.Insight
	if err := g.table.Put(ctx, item); err != nil {
		return fmt.Errorf("failed to write enrichment for %s: %w", record.PartitionKey, err)
	}
	return nil
}

// Get reads a record. Missing rows return ErrNotFound.
func (g *Gateway) Get(ctx context.Context, partitionKey, sortKey string) (*models.CanonicalRecord, error) {
	item, err := g.table.Get(ctx, partitionKey, sortKey)
	if err != nil {
		return nil, err
	}
	return models.FromItem(item)
}

// Ping checks the backend is reachable
func (g *Gateway) Ping(ctx context.Context) error {
	return g.table.Ping(ctx)
}
