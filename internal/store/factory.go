package store

import (
	"context"
	"fmt"
	"strings"

	"nexussync/internal/database"
)

// Drivers accepted by Open
const (
	DriverMemory   = "memory"
	DriverDynamoDB = "dynamodb"
	DriverMongoDB  = "mongodb"
	DriverMySQL    = "mysql"
	DriverSQLite   = "sqlite"
)

// Config selects and configures the record table backend
type Config struct {
	Driver string

	// dynamodb
	TableName string

	// mongodb
	MongoURI string

	// mysql (mysql:// DSN) or sqlite (file path)
	DatabaseURL string
}

// Open builds and initializes the table for cfg.Driver. dynamo is only used by the
// dynamodb driver.
func Open(ctx context.Context, cfg Config, dynamo DynamoAPI) (Table, error) {
	switch strings.ToLower(cfg.Driver) {
	case DriverMemory, "":
		return NewMemoryTable(), nil

	case DriverDynamoDB:
		if cfg.TableName == "" {
			return nil, fmt.Errorf("dynamodb store requires a table name")
		}
		if dynamo == nil {
			return nil, fmt.Errorf("dynamodb store requires a client")
		}
		return NewDynamoTable(dynamo, cfg.TableName), nil

	case DriverMongoDB:
		if cfg.MongoURI == "" {
			return nil, fmt.Errorf("mongodb store requires MONGODB_URI")
		}
		db, err := database.NewMongoDB(cfg.MongoURI)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(ctx); err != nil {
			db.Close(ctx)
			return nil, err
		}
		return NewMongoTable(db), nil

	case DriverMySQL, DriverSQLite:
		if cfg.DatabaseURL == "" {
			return nil, fmt.Errorf("%s store requires DATABASE_URL", cfg.Driver)
		}
		if strings.EqualFold(cfg.Driver, DriverMySQL) && !strings.HasPrefix(cfg.DatabaseURL, "mysql://") {
			return nil, fmt.Errorf("mysql store requires a mysql:// DATABASE_URL")
		}
		db, err := database.New(cfg.DatabaseURL)
		if err != nil {
			return nil, err
		}
		if err := db.Initialize(); err != nil {
			db.Close()
			return nil, err
		}
		return NewSQLTable(db), nil

	default:
		return nil, fmt.Errorf("unknown store driver %q", cfg.Driver)
	}
}
