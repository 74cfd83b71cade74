package store

import (
	"context"
	"database/sql"
	"encoding/json"
	"errors"
	"fmt"
	"strings"

	"nexussync/internal/database"
	"nexussync/internal/models"
)

var recordColumns = []string{
	"partition_key", "sort_key", "source_type", "source_name", "source_identity",
	"record_type", "content", "created_at", "updated_at", "last_event",
	"deleted", "archived", "owner_id", "summary", "insight",
}

// SQLTable stores records in the records table of a MySQL or SQLite database
type SQLTable struct {
	db        *database.DB
	upsertSQL string
	putSQL    string
	getSQL    string
	deleteSQL string
}

// NewSQLTable creates a table over an initialized database
func NewSQLTable(db *database.DB) *SQLTable {
	cols := strings.Join(recordColumns, ", ")
	placeholders := strings.TrimSuffix(strings.Repeat("?, ", len(recordColumns)), ", ")

	var updates []string
	for _, c := range recordColumns {
		if c == "partition_key" || c == "sort_key" || c == "created_at" || c == "archived" {
			continue
		}
		if db.Dialect == database.DialectMySQL {
			updates = append(updates, fmt.Sprintf("%s = VALUES(%s)", c, c))
		} else {
			updates = append(updates, fmt.Sprintf("%s = excluded.%s", c, c))
		}
	}

	insert := fmt.Sprintf("INSERT INTO %s (%s) VALUES (%s)", database.RecordsTable, cols, placeholders)
	var upsert string
	if db.Dialect == database.DialectMySQL {
		upsert = insert + " ON DUPLICATE KEY UPDATE " + strings.Join(updates, ", ")
	} else {
		upsert = insert + " ON CONFLICT (partition_key, sort_key) DO UPDATE SET " + strings.Join(updates, ", ")
	}

	return &SQLTable{
		db:        db,
		upsertSQL: upsert,
		putSQL:    fmt.Sprintf("REPLACE INTO %s (%s) VALUES (%s)", database.RecordsTable, cols, placeholders),
		getSQL:    fmt.Sprintf("SELECT %s FROM %s WHERE partition_key = ? AND sort_key = ?", cols, database.RecordsTable),
		deleteSQL: fmt.Sprintf("DELETE FROM %s WHERE partition_key = ? AND sort_key = ?", database.RecordsTable),
	}
}

func itemArgs(item models.RecordItem) ([]interface{}, error) {
	content := item.Content
	if content == nil {
		content = map[string]interface{}{}
	}
	raw, err := json.Marshal(content)
	if err != nil {
		return nil, fmt.Errorf("failed to marshal content: %w", err)
	}
	return []interface{}{
		item.PartitionKey, item.SortKey, item.SourceType, item.SourceName, item.SourceIdentity,
		item.RecordType, string(raw), item.CreatedAt, item.UpdatedAt, item.LastEvent,
		item.Deleted, item.Archived, item.OwnerID, item.Summary, item.Insight,
	}, nil
}

func (t *SQLTable) Get(ctx context.Context, partitionKey, sortKey string) (models.RecordItem, error) {
	var (
		item    models.RecordItem
		content string
	)
	err := t.db.QueryRowContext(ctx, t.getSQL, partitionKey, sortKey).Scan(
		&item.PartitionKey, &item.SortKey, &item.SourceType, &item.SourceName, &item.SourceIdentity,
		&item.RecordType, &content, &item.CreatedAt, &item.UpdatedAt, &item.LastEvent,
		&item.Deleted, &item.Archived, &item.OwnerID, &item.Summary, &item.Insight,
	)
	if errors.Is(err, sql.ErrNoRows) {
		return models.RecordItem{}, ErrNotFound
	}
	if err != nil {
		return models.RecordItem{}, fmt.Errorf("failed to query record: %w", err)
	}

	if err := json.Unmarshal([]byte(content), &item.Content); err != nil {
		return models.RecordItem{}, fmt.Errorf("failed to decode content of %s: %w", partitionKey, err)
	}
	return item, nil
}

func (t *SQLTable) Upsert(ctx context.Context, item models.RecordItem) error {
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, t.upsertSQL, args...); err != nil {
		return fmt.Errorf("failed to upsert record: %w", err)
	}
	return nil
}

func (t *SQLTable) Put(ctx context.Context, item models.RecordItem) error {
	args, err := itemArgs(item)
	if err != nil {
		return err
	}
	if _, err := t.db.ExecContext(ctx, t.putSQL, args...); err != nil {
		return fmt.Errorf("failed to write record: %w", err)
	}
	return nil
}

func (t *SQLTable) Delete(ctx context.Context, partitionKey, sortKey string) error {
	_, err := t.db.ExecContext(ctx, t.deleteSQL, partitionKey, sortKey)
	if err != nil {
		return fmt.Errorf("failed to delete record: %w", err)
	}
	return nil
}

func (t *SQLTable) Ping(ctx context.Context) error {
	return t.db.PingContext(ctx)
}

func (t *SQLTable) Close(ctx context.Context) error {
	return t.db.Close()
}
