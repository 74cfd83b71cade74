package store

import (
	"context"
	"errors"
	"path/filepath"
	"strings"
	"testing"

	"nexussync/internal/database"
)

func TestSQLTable_SQLiteContract(t *testing.T) {
	ctx := context.Background()
	table, err := Open(ctx, Config{Driver: DriverSQLite, DatabaseURL: filepath.Join(t.TempDir(), "records.db")}, nil)
	if err != nil {
		t.Fatalf("Failed to open sqlite store: %v", err)
	}
	defer table.Close(ctx)

	if err := table.Ping(ctx); err != nil {
		t.Fatalf("Ping failed: %v", err)
	}

	testTableContract(t, table)
}

func TestOpen_Validation(t *testing.T) {
	ctx := context.Background()
	tests := []struct {
		name string
		cfg  Config
	}{
		{"unknown driver", Config{Driver: "cassandra"}},
		{"dynamo without table", Config{Driver: DriverDynamoDB}},
		{"dynamo without client", Config{Driver: DriverDynamoDB, TableName: "records"}},
		{"mongo without uri", Config{Driver: DriverMongoDB}},
		{"mysql without url", Config{Driver: DriverMySQL}},
		{"mysql with sqlite path", Config{Driver: DriverMySQL, DatabaseURL: "records.db"}},
	}

	for _, tt := range tests {
		t.Run(tt.name, func(t *testing.T) {
			if _, err := Open(ctx, tt.cfg, nil); err == nil {
				t.Error("Expected an error")
			}
		})
	}

	table, err := Open(ctx, Config{}, nil)
	if err != nil {
		t.Fatal(err)
	}
	if _, ok := table.(*MemoryTable); !ok {
		t.Errorf("Expected memory table by default, got %T", table)
	}
}

func TestSQLTable_StatementsUseRecordsTable(t *testing.T) {
	db, err := database.New(filepath.Join(t.TempDir(), "records.db"))
	if err != nil {
		t.Fatal(err)
	}
	defer db.Close()
	if err := db.Initialize(); err != nil {
		t.Fatal(err)
	}

	table := NewSQLTable(db)
	for name, stmt := range map[string]string{
		"upsert": table.upsertSQL,
		"put":    table.putSQL,
		"get":    table.getSQL,
		"delete": table.deleteSQL,
	} {
		if !strings.Contains(stmt, " "+database.RecordsTable+" ") {
			t.Errorf("Expected %s statement to target %s, got %q", name, database.RecordsTable, stmt)
		}
	}

	ctx := context.Background()
	rec := sampleRecord()
	if err := NewGateway(table).Upsert(ctx, rec); err != nil {
		t.Fatal(err)
	}
	if err := table.Delete(ctx, rec.PartitionKey, rec.SortKey); err != nil {
		t.Fatal(err)
	}
	if _, err := table.Get(ctx, rec.PartitionKey, rec.SortKey); !errors.Is(err, ErrNotFound) {
		t.Errorf("Expected ErrNotFound after delete, got %v", err)
	}
}
